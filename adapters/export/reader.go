package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"surveystat/domain/core"
	"surveystat/domain/survey"
	"surveystat/internal"
	"surveystat/ports"
)

// FileReader reads wide-format survey exports from TSV, CSV, or XLSX files.
// It implements ports.ExportReader.
type FileReader struct {
	fileType string // "tsv", "csv" or "xlsx"
	log      *internal.Logger
}

// NewFileReader creates a reader for the given path, picking the format from
// the file extension. Unknown extensions are treated as TSV, the platform's
// default export format.
func NewFileReader(path string) *FileReader {
	fileType := "tsv"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		fileType = "csv"
	case ".xlsx":
		fileType = "xlsx"
	}
	return &FileReader{fileType: fileType, log: internal.DefaultLogger}
}

// ReadExport reads the export into raw rows. Every cell is whitespace-trimmed;
// no rows are filtered here. The returned export carries the sha256 of the
// file bytes so downstream artifacts can be tied to the exact input.
func (r *FileReader) ReadExport(path string) (*ports.Export, error) {
	startTime := time.Now()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	inputHash := core.NewInputHash(raw)

	var rows [][]string
	switch r.fileType {
	case "tsv", "csv":
		rows, err = r.parseDelimited(raw)
	case "xlsx":
		rows, err = r.parseWorkbook(raw)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("export must have at least a header row and one data row: %w", core.ErrEmptyExport)
	}

	export := r.processRows(rows)
	export.InputHash = inputHash

	r.log.Info("[FileReader] %s export read in %.2fms (%d columns, %d rows)",
		strings.ToUpper(r.fileType), float64(time.Since(startTime).Nanoseconds())/1e6,
		len(export.Headers), len(export.Rows))

	return export, nil
}

// parseDelimited parses TSV/CSV bytes. Survey exports interleave description
// and metadata rows with uneven field counts, so per-record length checks are
// disabled; short rows pad as missing during processing.
func (r *FileReader) parseDelimited(raw []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	if r.fileType == "tsv" {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s export: %w", r.fileType, err)
	}
	return rows, nil
}

// parseWorkbook parses XLSX bytes, always from Sheet1.
func (r *FileReader) parseWorkbook(raw []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into the export structure
func (r *FileReader) processRows(rows [][]string) *ports.Export {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]survey.RawRow, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		fields := make(map[string]string, len(headers))
		for j, cell := range rows[i] {
			if j < len(headers) {
				fields[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, survey.RawRow{Index: i, Fields: fields})
	}

	return &ports.Export{
		Headers: headers,
		Rows:    dataRows,
	}
}
