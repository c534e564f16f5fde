package ingest

import (
	"strings"

	"surveystat/domain/survey"
	"surveystat/internal"
	"surveystat/internal/errors"
	"surveystat/ports"
)

// RowValidator filters a raw export down to genuine participant rows.
// Platform exports interleave the real data with header repeats, import-id
// marker rows, and question description rows; the validity predicate on the
// participant-identifier field separates them.
type RowValidator struct {
	schema Schema
	log    *internal.Logger
}

// NewRowValidator creates a validator for the given schema.
func NewRowValidator(schema Schema) *RowValidator {
	return &RowValidator{schema: schema, log: internal.DefaultLogger}
}

// ValidationResult carries the surviving rows and the per-reason drop tallies.
type ValidationResult struct {
	Rows  []survey.RawRow
	Drops survey.DropCounter
}

// Validate returns the subsequence of genuine participant rows. A malformed
// row is never fatal; it is counted under its reason code and skipped. The
// only fatal outcome is a schema mismatch: zero columns matching the
// per-stimulus naming convention means the export is not this survey's.
func (v *RowValidator) Validate(export *ports.Export) (*ValidationResult, error) {
	if n := v.schema.ConventionColumns(export.Headers); n == 0 {
		return nil, errors.SchemaMismatch(
			"no columns match the stimulus naming convention " + v.schema.ConventionPattern())
	}

	result := &ValidationResult{
		Rows:  make([]survey.RawRow, 0, len(export.Rows)),
		Drops: make(survey.DropCounter),
	}

	for _, row := range export.Rows {
		if reason, ok := v.rejectRow(row); ok {
			result.Drops.Add(reason)
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	v.log.Info("[RowValidator] %d/%d rows valid (dropped: %v)",
		len(result.Rows), len(export.Rows), result.Drops)

	return result, nil
}

// rejectRow applies the identifier validity predicate.
func (v *RowValidator) rejectRow(row survey.RawRow) (survey.ReasonCode, bool) {
	id := row.Get(v.schema.IDColumn)

	if id == "" {
		return survey.ReasonEmptyID, true
	}
	if v.isMetadataSentinel(id) {
		return survey.ReasonMetadataRow, true
	}
	if len(id) < v.schema.MinIDLength {
		return survey.ReasonShortID, true
	}
	return "", false
}

// isMetadataSentinel recognizes the non-participant rows the platform embeds:
// JSON import-id markers, literal header copies, and prose description rows.
func (v *RowValidator) isMetadataSentinel(id string) bool {
	if strings.HasPrefix(id, "{") {
		return true
	}
	if strings.EqualFold(id, v.schema.IDColumn) {
		return true
	}
	// Real identifiers are single opaque tokens; description rows carry prose.
	return strings.ContainsAny(id, " \t")
}
