package ingest

import (
	"strconv"
	"strings"

	"surveystat/domain/survey"
)

// Reshaper expands one participant's wide row into per-stimulus Evaluation
// records, reading only the column family of the participant's resolved
// condition. A stimulus yields a record only when both the tendency and the
// decision field are present and well-formed; partial records are dropped
// whole with a reason code, never imputed.
type Reshaper struct {
	schema Schema
}

// NewReshaper creates a reshaper for the given schema.
func NewReshaper(schema Schema) *Reshaper {
	return &Reshaper{schema: schema}
}

// Reshape produces the participant's evaluations and the per-reason tally of
// dropped stimulus records. Participants without a resolved condition must
// not reach this stage.
func (r *Reshaper) Reshape(p survey.Participant, row survey.RawRow) ([]survey.Evaluation, survey.DropCounter) {
	label := string(p.Condition)
	drops := make(survey.DropCounter)
	evals := make([]survey.Evaluation, 0, r.schema.StimulusCount)

	for idx := 1; idx <= r.schema.StimulusCount; idx++ {
		tendencyRaw := row.Get(r.schema.Column(idx, label, r.schema.TendencyField))
		decisionRaw := row.Get(r.schema.Column(idx, label, r.schema.DecisionField))

		if tendencyRaw == "" && decisionRaw == "" {
			// Stimulus not reached at all; completeness is the screener's concern.
			continue
		}
		if tendencyRaw == "" || decisionRaw == "" {
			drops.Add(survey.ReasonPartialStimulus)
			continue
		}

		tendency, ok := parseTendency(tendencyRaw)
		if !ok {
			switch {
			case isSentinel(tendencyRaw):
				drops.Add(survey.ReasonTendencySentinel)
			case isNumeric(tendencyRaw):
				drops.Add(survey.ReasonTendencyRange)
			default:
				drops.Add(survey.ReasonTendencyParse)
			}
			continue
		}

		decision, ok := parseDecision(decisionRaw)
		if !ok {
			drops.Add(survey.ReasonBadDecision)
			continue
		}

		evals = append(evals, survey.Evaluation{
			ParticipantID: p.ID,
			Stimulus:      survey.StimulusID(idx),
			Condition:     p.Condition,
			Tendency:      tendency,
			Decision:      decision,
			Confidence:    r.parseConfidence(row, idx, label),
			Justification: row.Get(r.schema.Column(idx, label, r.schema.TextField)),
		})
	}

	return evals, drops
}

// parseTendency parses the ordinal score, tolerating surrounding whitespace.
// The -1 sentinel ("don't know"), out-of-range values, and non-numeric cells
// all fail; the caller distinguishes them for the audit counters.
func parseTendency(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	if value < survey.TendencyMin || value > survey.TendencyMax {
		return 0, false
	}
	return value, true
}

func isSentinel(raw string) bool {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return err == nil && value == survey.TendencySentinel
}

func isNumeric(raw string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return err == nil
}

// parseDecision normalizes the explicit release answer. The decision is an
// answer of its own; it is never derived by thresholding the tendency score.
func parseDecision(raw string) (survey.Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes":
		return survey.DecisionAccept, true
	case "no":
		return survey.DecisionReject, true
	}
	return "", false
}

func (r *Reshaper) parseConfidence(row survey.RawRow, idx int, label string) float64 {
	raw := row.Get(r.schema.Column(idx, label, r.schema.ConfidenceField))
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}
