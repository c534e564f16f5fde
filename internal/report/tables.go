package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"surveystat/domain/core"
	"surveystat/domain/stats"
	"surveystat/domain/survey"
	"surveystat/internal"
	apperrors "surveystat/internal/errors"
)

// TableWriter emits the delimited output tables. Every table is sorted before
// writing so identical inputs produce byte-identical files.
type TableWriter struct {
	dir string
	log *internal.Logger
}

// NewTableWriter creates a writer rooted at the output directory, creating it
// if needed.
func NewTableWriter(dir string) (*TableWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.ReportWrite(dir, err)
	}
	return &TableWriter{dir: dir, log: internal.DefaultLogger}, nil
}

// WriteEvaluations writes one row per evaluation. The secondary factor comes
// from the owning participant's aggregate.
func (w *TableWriter) WriteEvaluations(evals []survey.Evaluation, aggs []survey.ParticipantAggregate) error {
	exposure := make(map[core.ParticipantID]*bool, len(aggs))
	for _, a := range aggs {
		exposure[a.ParticipantID] = a.AIExposed
	}

	sorted := make([]survey.Evaluation, len(evals))
	copy(sorted, evals)
	survey.SortEvaluations(sorted)

	var b strings.Builder
	writeRow(&b, "participant", "condition", "ai_exposed", "stimulus", "tendency", "decision", "rejected")
	for _, e := range sorted {
		writeRow(&b,
			e.ParticipantID.String(),
			string(e.Condition),
			formatBoolPtr(exposure[e.ParticipantID]),
			e.Stimulus.String(),
			formatFloat(e.Tendency),
			string(e.Decision),
			strconv.FormatBool(e.Rejected()),
		)
	}
	return w.writeFile("evaluations.tsv", b.String())
}

// WriteQuality writes the per-participant screening table.
func (w *TableWriter) WriteQuality(flags []survey.QualityFlag) error {
	sorted := make([]survey.QualityFlag, len(flags))
	copy(sorted, flags)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ParticipantID < sorted[j].ParticipantID
	})

	var b strings.Builder
	writeRow(&b, "participant", "possible_automation", "extreme_bias",
		"degenerate_tendency", "incomplete", "score", "recommendation")
	for _, f := range sorted {
		writeRow(&b,
			f.ParticipantID.String(),
			strconv.FormatBool(f.PossibleAutomation),
			strconv.FormatBool(f.ExtremeBias),
			strconv.FormatBool(f.DegenerateTendency),
			strconv.FormatBool(f.Incomplete),
			strconv.Itoa(f.Score),
			string(f.Recommendation),
		)
	}
	return w.writeFile("quality.tsv", b.String())
}

// WriteStimulusTests writes the test results, aggregate rows first, then
// stimuli in index order with outcomes alphabetical within each.
func (w *TableWriter) WriteStimulusTests(results []stats.StimulusTestResult) error {
	sorted := make([]stats.StimulusTestResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Aggregate != b.Aggregate {
			return a.Aggregate
		}
		if a.Stimulus != b.Stimulus {
			return a.Stimulus < b.Stimulus
		}
		return a.Outcome < b.Outcome
	})

	var b strings.Builder
	writeRow(&b, "stimulus", "outcome", "method", "n_standard", "n_ethics",
		"statistic", "raw_p", "one_tailed_p", "direction_matched",
		"holm_p", "bonferroni_p", "bh_p", "effect_size", "effect_unit",
		"skipped", "skip_reason")
	for _, r := range sorted {
		stimulus := r.Stimulus.String()
		if r.Aggregate {
			stimulus = "aggregate"
		}
		if r.Skipped {
			writeRow(&b, stimulus, string(r.Outcome), "", strconv.Itoa(r.NStandard),
				strconv.Itoa(r.NEthics), "", "", "", "", "", "", "", "", "",
				"true", string(r.SkipReason))
			continue
		}
		writeRow(&b,
			stimulus,
			string(r.Outcome),
			string(r.Method),
			strconv.Itoa(r.NStandard),
			strconv.Itoa(r.NEthics),
			formatFloat(r.Statistic),
			formatP(r.RawP),
			formatP(r.OneTailedP),
			strconv.FormatBool(r.DirectionMatched),
			formatAdjusted(r, stats.CorrectionHolm),
			formatAdjusted(r, stats.CorrectionBonferroni),
			formatAdjusted(r, stats.CorrectionBH),
			formatFloat(r.EffectSize),
			r.EffectUnit,
			"false", "",
		)
	}
	return w.writeFile("stimulus_tests.tsv", b.String())
}

// WriteParticipants writes the participant-level aggregates, the rows the
// confirmatory test runs on.
func (w *TableWriter) WriteParticipants(aggs []survey.ParticipantAggregate) error {
	sorted := make([]survey.ParticipantAggregate, len(aggs))
	copy(sorted, aggs)
	survey.SortAggregates(sorted)

	var b strings.Builder
	writeRow(&b, "participant", "condition", "ai_exposed", "evaluations",
		"mean_tendency", "rejection_rate", "mean_text_len")
	for _, a := range sorted {
		writeRow(&b,
			a.ParticipantID.String(),
			string(a.Condition),
			formatBoolPtr(a.AIExposed),
			strconv.Itoa(a.Evaluations),
			formatFloat(a.MeanTendency),
			formatFloat(a.RejectionRate),
			formatFloat(a.MeanTextLen),
		)
	}
	return w.writeFile("participants.tsv", b.String())
}

// WriteExclusions writes the reason-code audit table.
func (w *TableWriter) WriteExclusions(drops survey.DropCounter) error {
	reasons := make([]survey.ReasonCode, 0, len(drops))
	for reason := range drops {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	var b strings.Builder
	writeRow(&b, "reason", "count")
	for _, reason := range reasons {
		writeRow(&b, string(reason), strconv.Itoa(drops[reason]))
	}
	return w.writeFile("exclusions.tsv", b.String())
}

func (w *TableWriter) writeFile(name, content string) error {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return apperrors.ReportWrite(path, err)
	}
	w.log.Debug("[TableWriter] wrote %s (%d bytes)", name, len(content))
	return nil
}

func writeRow(b *strings.Builder, cells ...string) {
	b.WriteString(strings.Join(cells, "\t"))
	b.WriteString("\n")
}

// formatFloat renders values with enough precision to round-trip but without
// platform-dependent noise.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// formatP renders p-values at fixed width for readable columns.
func formatP(p float64) string {
	return fmt.Sprintf("%.6f", p)
}

func formatAdjusted(r stats.StimulusTestResult, method stats.CorrectionMethod) string {
	p, ok := r.Adjusted[method]
	if !ok {
		return ""
	}
	return formatP(p)
}

func formatBoolPtr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
