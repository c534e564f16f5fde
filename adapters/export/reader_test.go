package export

import (
	"os"
	"path/filepath"
	"testing"
)

func writeExport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

// TestReadExport_TSV verifies TSV parsing, trimming, and row preservation
func TestReadExport_TSV(t *testing.T) {
	content := "PROLIFIC_PID\tResponseId\t1_UEQ Tendency\t1_UEQ Release\n" +
		"  5f3b2c9a1d4e6f7a8b9c0d1e  \tR_abc\t 5 \tYes\n" +
		"{\"ImportId\":\"QID1\"}\tR_def\t\t\n"

	reader := NewFileReader("export.tsv")
	export, err := reader.ReadExport(writeExport(t, "export.tsv", content))
	if err != nil {
		t.Fatalf("ReadExport failed: %v", err)
	}

	if len(export.Headers) != 4 {
		t.Errorf("Expected 4 headers, got %d", len(export.Headers))
	}
	if !export.HasColumn("1_UEQ Tendency") {
		t.Error("Expected stimulus column in headers")
	}

	// Readers never filter: the ImportId metadata row must survive parsing.
	if len(export.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(export.Rows))
	}

	if got := export.Rows[0].Get("PROLIFIC_PID"); got != "5f3b2c9a1d4e6f7a8b9c0d1e" {
		t.Errorf("Expected trimmed participant id, got %q", got)
	}
	if got := export.Rows[0].Get("1_UEQ Tendency"); got != "5" {
		t.Errorf("Expected trimmed tendency cell, got %q", got)
	}
	if export.InputHash.String() == "" {
		t.Error("Expected input hash to be set")
	}
}

// TestReadExport_CSV verifies the comma-delimited branch
func TestReadExport_CSV(t *testing.T) {
	content := "PROLIFIC_PID,1_UEQ Tendency\nabcdefabcdefabcdefabcdef,7\n"

	reader := NewFileReader("export.csv")
	export, err := reader.ReadExport(writeExport(t, "export.csv", content))
	if err != nil {
		t.Fatalf("ReadExport failed: %v", err)
	}
	if len(export.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(export.Rows))
	}
	if got := export.Rows[0].Get("1_UEQ Tendency"); got != "7" {
		t.Errorf("Expected tendency 7, got %q", got)
	}
}

// TestReadExport_RaggedRows verifies short rows parse with missing cells empty
func TestReadExport_RaggedRows(t *testing.T) {
	content := "PROLIFIC_PID\tA\tB\nabcdefabcdefabcdefabcdef\tx\n"

	reader := NewFileReader("export.tsv")
	export, err := reader.ReadExport(writeExport(t, "export.tsv", content))
	if err != nil {
		t.Fatalf("ReadExport failed on ragged row: %v", err)
	}
	if got := export.Rows[0].Get("B"); got != "" {
		t.Errorf("Expected missing cell to read empty, got %q", got)
	}
}

// TestReadExport_HashDeterminism verifies identical bytes hash identically
func TestReadExport_HashDeterminism(t *testing.T) {
	content := "PROLIFIC_PID\tA\nabcdefabcdefabcdefabcdef\t1\n"
	path := writeExport(t, "export.tsv", content)

	reader := NewFileReader(path)
	first, err := reader.ReadExport(path)
	if err != nil {
		t.Fatalf("First read failed: %v", err)
	}
	second, err := reader.ReadExport(path)
	if err != nil {
		t.Fatalf("Second read failed: %v", err)
	}
	if first.InputHash != second.InputHash {
		t.Errorf("Input hash not deterministic: %s != %s", first.InputHash, second.InputHash)
	}
}

// TestReadExport_HeaderOnly verifies the empty-export failure path
func TestReadExport_HeaderOnly(t *testing.T) {
	reader := NewFileReader("export.tsv")
	if _, err := reader.ReadExport(writeExport(t, "export.tsv", "PROLIFIC_PID\tA\n")); err == nil {
		t.Error("Expected error for header-only export")
	}
}
