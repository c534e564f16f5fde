package ingest

import (
	"strconv"
	"strings"
	"time"

	"surveystat/domain/core"
	"surveystat/domain/survey"
)

// ConditionInferencer assigns each validated row to exactly one experimental
// arm, or to unknown. The wide schema has one column family per arm; a
// participant shown arm A has non-missing values only in A's family, modulo
// partial completion and stray values from platform branching.
type ConditionInferencer struct {
	schema Schema
}

// NewConditionInferencer creates an inferencer for the given schema.
func NewConditionInferencer(schema Schema) *ConditionInferencer {
	return &ConditionInferencer{schema: schema}
}

// Infer builds the Participant for a validated row. The condition is decided
// by majority count of non-missing family responses, never by mere presence:
// a single stray value in the wrong family must not discard a participant.
// A tie for the top count, including all-zero, resolves to unknown. The result
// is memoized on the Participant; downstream stages read it, never re-derive it.
func (ci *ConditionInferencer) Infer(row survey.RawRow) survey.Participant {
	p := survey.Participant{
		ID:         core.ParticipantID(row.Get(ci.schema.IDColumn)),
		ResponseID: core.ResponseID(row.Get(ci.schema.ResponseIDCol)),
		Condition:  survey.ConditionUnknown,
		StartedAt:  ci.parseStartedAt(row),
		Progress:   ci.parseProgress(row),
	}

	best, bestCount, tied := "", 0, false
	for _, label := range ci.schema.Labels {
		count := ci.countFamilyResponses(row, label)
		switch {
		case count > bestCount:
			best, bestCount, tied = label, count, false
		case count == bestCount && count > 0:
			tied = true
		}
	}
	if bestCount > 0 && !tied {
		p.Condition = ci.schema.Condition(best)
	}

	p.AIExposed = ci.inferSecondaryFactor(row)

	return p
}

// countFamilyResponses counts non-missing cells across the family's stimulus
// sub-blocks. All three per-stimulus fields count, so a family answered only
// partially still outweighs a stray value in the other family.
func (ci *ConditionInferencer) countFamilyResponses(row survey.RawRow, label string) int {
	count := 0
	for idx := 1; idx <= ci.schema.StimulusCount; idx++ {
		for _, field := range []string{ci.schema.TendencyField, ci.schema.DecisionField, ci.schema.TextField} {
			if row.Get(ci.schema.Column(idx, label, field)) != "" {
				count++
			}
		}
	}
	return count
}

// inferSecondaryFactor matches the free-text category column against the
// configured label, case-insensitively. This substring matching is brittle to
// label rewording; treat the factor as advisory until it has been reconciled
// against the survey's controlled vocabulary.
func (ci *ConditionInferencer) inferSecondaryFactor(row survey.RawRow) *bool {
	if ci.schema.CategoryCol == "" {
		return nil
	}
	value := row.Get(ci.schema.CategoryCol)
	if value == "" {
		return nil
	}
	exposed := strings.Contains(strings.ToLower(value), strings.ToLower(ci.schema.CategoryLabel))
	return &exposed
}

// parseStartedAt derives the start timestamp from the row's own fields.
// Never from a process-wide clock: reruns must reproduce it byte-identically.
func (ci *ConditionInferencer) parseStartedAt(row survey.RawRow) core.StartedAt {
	value := row.Get(ci.schema.StartedAtCol)
	if value == "" {
		return core.StartedAt{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return core.NewStartedAt(t)
		}
	}
	return core.StartedAt{}
}

func (ci *ConditionInferencer) parseProgress(row survey.RawRow) int {
	value := row.Get(ci.schema.ProgressCol)
	if value == "" {
		return 0
	}
	progress, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return progress
}
