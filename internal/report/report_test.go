package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"surveystat/domain/core"
	"surveystat/domain/stats"
	"surveystat/domain/survey"
)

func boolPtr(v bool) *bool { return &v }

func sampleEvaluations() []survey.Evaluation {
	return []survey.Evaluation{
		{ParticipantID: "p_beta", Stimulus: 2, Condition: survey.ConditionEthics,
			Tendency: 3, Decision: survey.DecisionReject, Justification: "this dark pattern misleads people"},
		{ParticipantID: "p_alpha", Stimulus: 1, Condition: survey.ConditionStandard,
			Tendency: 5, Decision: survey.DecisionAccept, Justification: "clear flow, easy to use"},
		{ParticipantID: "p_alpha", Stimulus: 2, Condition: survey.ConditionStandard,
			Tendency: 6, Decision: survey.DecisionAccept, Justification: "users get an informed choice here"},
		{ParticipantID: "p_beta", Stimulus: 1, Condition: survey.ConditionEthics,
			Tendency: 2, Decision: survey.DecisionReject, Justification: "it would manipulate users into paying"},
	}
}

func sampleAggregates() []survey.ParticipantAggregate {
	return []survey.ParticipantAggregate{
		{ParticipantID: "p_beta", Condition: survey.ConditionEthics, AIExposed: boolPtr(true),
			Evaluations: 2, MeanTendency: 2.5, RejectionRate: 1.0, MeanTextLen: 33},
		{ParticipantID: "p_alpha", Condition: survey.ConditionStandard,
			Evaluations: 2, MeanTendency: 5.5, RejectionRate: 0.0, MeanTextLen: 27},
	}
}

// TestWriteEvaluations_SortedAndComplete verifies row ordering by participant
// then stimulus, and the exposure column sourced from the aggregates.
func TestWriteEvaluations_SortedAndComplete(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTableWriter(dir)
	if err != nil {
		t.Fatalf("NewTableWriter failed: %v", err)
	}

	if err := w.WriteEvaluations(sampleEvaluations(), sampleAggregates()); err != nil {
		t.Fatalf("WriteEvaluations failed: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "evaluations.tsv"))
	if len(lines) != 5 {
		t.Fatalf("Expected header + 4 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "p_alpha\tUEQ\t\tstim_01") {
		t.Errorf("Unexpected first data row: %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "p_beta\tUEEQ\ttrue\tstim_01") {
		t.Errorf("Unexpected third data row: %q", lines[3])
	}
	if !strings.HasSuffix(lines[3], "No\ttrue") {
		t.Errorf("Expected rejected decision row, got %q", lines[3])
	}
}

// TestWriteEvaluations_Deterministic verifies shuffled input produces
// byte-identical output.
func TestWriteEvaluations_Deterministic(t *testing.T) {
	evals := sampleEvaluations()
	reversed := make([]survey.Evaluation, len(evals))
	for i, e := range evals {
		reversed[len(evals)-1-i] = e
	}

	dir1, dir2 := t.TempDir(), t.TempDir()
	w1, _ := NewTableWriter(dir1)
	w2, _ := NewTableWriter(dir2)

	if err := w1.WriteEvaluations(evals, sampleAggregates()); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := w2.WriteEvaluations(reversed, sampleAggregates()); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	b1, _ := os.ReadFile(filepath.Join(dir1, "evaluations.tsv"))
	b2, _ := os.ReadFile(filepath.Join(dir2, "evaluations.tsv"))
	if string(b1) != string(b2) {
		t.Error("Output must not depend on input order")
	}
}

// TestWriteStimulusTests_Layout verifies aggregate rows come first and
// skipped rows keep their reason but no numbers.
func TestWriteStimulusTests_Layout(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewTableWriter(dir)

	results := []stats.StimulusTestResult{
		{Stimulus: 2, Outcome: stats.OutcomeTendency, Method: stats.MethodWelchT,
			NStandard: 30, NEthics: 28, Statistic: 2.1, RawP: 0.04, OneTailedP: 0.02,
			DirectionMatched: true, EffectSize: 0.55, EffectUnit: "d",
			Adjusted: map[stats.CorrectionMethod]float64{
				stats.CorrectionHolm: 0.08, stats.CorrectionBonferroni: 0.08, stats.CorrectionBH: 0.04,
			}},
		{Aggregate: true, Outcome: stats.OutcomeDecision, Method: stats.MethodMannWhitney,
			NStandard: 40, NEthics: 41, Statistic: 512, RawP: 0.01, OneTailedP: 0.005,
			DirectionMatched: true, EffectSize: 0.2, EffectUnit: "prop_diff"},
		{Stimulus: 1, Outcome: stats.OutcomeDecision, Skipped: true,
			SkipReason: stats.WarningOneCondition, NStandard: 12},
	}

	if err := w.WriteStimulusTests(results); err != nil {
		t.Fatalf("WriteStimulusTests failed: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "stimulus_tests.tsv"))
	if len(lines) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "aggregate\tdecision\tmann_whitney") {
		t.Errorf("Aggregate row must come first, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "stim_01\tdecision\t\t12\t0") {
		t.Errorf("Skipped row malformed: %q", lines[2])
	}
	if !strings.HasSuffix(lines[2], "true\tONE_CONDITION") {
		t.Errorf("Skipped row must carry its reason: %q", lines[2])
	}
	if !strings.Contains(lines[3], "0.080000\t0.080000\t0.040000") {
		t.Errorf("Adjusted p columns missing: %q", lines[3])
	}
}

// TestWriteExclusions_SortedReasons verifies the audit table lists reasons
// alphabetically.
func TestWriteExclusions_SortedReasons(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewTableWriter(dir)

	drops := survey.DropCounter{
		survey.ReasonShortID:     3,
		survey.ReasonEmptyID:     1,
		survey.ReasonMetadataRow: 2,
	}
	if err := w.WriteExclusions(drops); err != nil {
		t.Fatalf("WriteExclusions failed: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "exclusions.tsv"))
	expected := []string{"reason\tcount", "EMPTY_ID\t1", "METADATA_ROW\t2", "SHORT_ID\t3"}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d", len(expected), len(lines))
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("line %d: expected %q, got %q", i, want, lines[i])
		}
	}
}

// TestScanKeywords_PrevalencePerCondition checks per-arm counting and the
// at-most-once-per-text rule.
func TestScanKeywords_PrevalencePerCondition(t *testing.T) {
	prevalence := ScanKeywords(sampleEvaluations(), survey.ConditionStandard, survey.ConditionEthics)

	if len(prevalence) != 3 {
		t.Fatalf("Expected 3 keyword groups, got %d", len(prevalence))
	}

	byGroup := make(map[string]KeywordPrevalence)
	for _, k := range prevalence {
		byGroup[k.Group] = k
	}

	manip := byGroup["manipulation_awareness"]
	if manip.EthicsHits != 2 || manip.EthicsTexts != 2 {
		t.Errorf("Expected 2/2 ethics manipulation hits, got %d/%d",
			manip.EthicsHits, manip.EthicsTexts)
	}
	if manip.StandardHits != 0 {
		t.Errorf("Expected no standard manipulation hits, got %d", manip.StandardHits)
	}

	advocacy := byGroup["user_advocacy"]
	if advocacy.StandardHits != 1 || advocacy.StandardTexts != 2 {
		t.Errorf("Expected 1/2 standard advocacy hits, got %d/%d",
			advocacy.StandardHits, advocacy.StandardTexts)
	}
	if r := advocacy.StandardRate(); r != 0.5 {
		t.Errorf("Expected standard advocacy rate 0.5, got %f", r)
	}
}

// TestGenerateBrief_Sections verifies the brief covers framing, descriptives,
// the confirmatory verdict, and the keyword table, and renders to HTML.
func TestGenerateBrief_Sections(t *testing.T) {
	manifest := stats.NewRunManifest(core.RunID("run-1"), core.NewInputHash([]byte("bytes")))
	manifest.RowsRead = 50
	manifest.Participants = 40
	manifest.TestsExecuted = 30

	data := BriefData{
		Manifest: manifest,
		Standard: survey.ConditionStandard,
		Ethics:   survey.ConditionEthics,
		TendencyDesc: []survey.Descriptives{
			{Condition: survey.ConditionStandard, N: 20, Mean: 4.8, StdDev: 1.1, StdErr: 0.25},
			{Condition: survey.ConditionEthics, N: 20, Mean: 3.9, StdDev: 1.3, StdErr: 0.29},
		},
		Results: []stats.StimulusTestResult{
			{Aggregate: true, Outcome: stats.OutcomeTendency, Method: stats.MethodPooledT,
				Statistic: 2.4, RawP: 0.02, OneTailedP: 0.01, DirectionMatched: true,
				EffectSize: 0.7, EffectUnit: "d", NStandard: 20, NEthics: 20},
			{Stimulus: 1, Outcome: stats.OutcomeTendency, Method: stats.MethodMannWhitney,
				Statistic: 130, RawP: 0.1, OneTailedP: 0.05, NStandard: 20, NEthics: 20,
				Adjusted: map[stats.CorrectionMethod]float64{
					stats.CorrectionHolm: 0.1, stats.CorrectionBonferroni: 0.15, stats.CorrectionBH: 0.1,
				}},
		},
		Keywords: ScanKeywords(sampleEvaluations(), survey.ConditionStandard, survey.ConditionEthics),
		Alpha:    0.05,
	}

	md := GenerateBrief(data)

	for _, section := range []string{
		"# Condition Comparison Brief",
		"## Hypothesis",
		"## Participant-Level Descriptives",
		"## Confirmatory Result",
		"## Exploratory Per-Stimulus Results",
		"## Reasoning-Pattern Prevalence",
		"## Run Audit",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("Brief missing section %q", section)
		}
	}
	if !strings.Contains(md, "significant at 0.05") {
		t.Errorf("Expected significant confirmatory verdict in brief")
	}
	if !strings.Contains(md, "in the expected direction") {
		t.Errorf("Expected direction statement in brief")
	}

	page := string(RenderBriefHTML(md))
	if !strings.Contains(page, "<html") || !strings.Contains(page, "<table>") {
		t.Error("HTML rendering must produce a complete page with tables")
	}

	// Writing the pair produces both files.
	dir := t.TempDir()
	w, _ := NewTableWriter(dir)
	if err := w.WriteBrief(md); err != nil {
		t.Fatalf("WriteBrief failed: %v", err)
	}
	for _, name := range []string{"brief.md", "brief.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}
