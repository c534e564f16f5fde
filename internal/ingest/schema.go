package ingest

import (
	"fmt"
	"strings"

	"surveystat/domain/survey"
	"surveystat/internal/config"
)

// Schema describes the wide export layout. Stimulus columns follow the
// platform convention "<index>_<FamilyLabel> <Field>", one sub-block per
// stimulus per condition family.
type Schema struct {
	IDColumn      string
	ResponseIDCol string
	StartedAtCol  string
	ProgressCol   string
	CategoryCol   string
	CategoryLabel string

	// Labels[0] is the standard arm, Labels[1] the ethics-augmented arm.
	// Further labels name additional arms: their participants are resolved
	// and reported, but the pairwise tests compare the first two arms only.
	Labels        []string
	StimulusCount int

	TendencyField   string
	DecisionField   string
	TextField       string
	ConfidenceField string

	MinIDLength int
}

// NewSchema builds a Schema from configuration.
func NewSchema(cfg config.SchemaConfig) Schema {
	return Schema{
		IDColumn:        cfg.IDColumn,
		ResponseIDCol:   cfg.ResponseIDCol,
		StartedAtCol:    cfg.StartedAtCol,
		ProgressCol:     cfg.ProgressCol,
		CategoryCol:     cfg.CategoryCol,
		CategoryLabel:   cfg.CategoryLabel,
		Labels:          append([]string(nil), cfg.ConditionLabels...),
		StimulusCount:   cfg.StimulusCount,
		TendencyField:   cfg.TendencyField,
		DecisionField:   cfg.DecisionField,
		TextField:       cfg.TextField,
		ConfidenceField: cfg.ConfidenceField,
		MinIDLength:     cfg.MinIDLength,
	}
}

// Column returns the export column name for one stimulus field.
func (s Schema) Column(stimulus int, label, field string) string {
	return fmt.Sprintf("%d_%s %s", stimulus, label, field)
}

// Condition maps a family label to its condition value.
func (s Schema) Condition(label string) survey.Condition {
	return survey.Condition(label)
}

// StandardCondition returns the standard-arm condition.
func (s Schema) StandardCondition() survey.Condition {
	return survey.Condition(s.Labels[0])
}

// EthicsCondition returns the ethics-augmented arm condition, the arm the
// pre-registered hypothesis expects to be more conservative.
func (s Schema) EthicsCondition() survey.Condition {
	return survey.Condition(s.Labels[1])
}

// ConventionColumns counts header columns that match the stimulus naming
// convention for either family. Zero means the export is from a different
// survey entirely and the pipeline must stop.
func (s Schema) ConventionColumns(headers []string) int {
	matches := 0
	for _, h := range headers {
		for _, label := range s.Labels {
			marker := "_" + label + " "
			idx := strings.Index(h, marker)
			if idx < 1 {
				continue
			}
			if isDigits(h[:idx]) {
				matches++
				break
			}
		}
	}
	return matches
}

// ConventionPattern describes the expected naming for error messages.
func (s Schema) ConventionPattern() string {
	return fmt.Sprintf("<index>_{%s} <field>", strings.Join(s.Labels, "|"))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
