package ports

import (
	"surveystat/domain/core"
	"surveystat/domain/survey"
)

// Export is a parsed survey export: the header row, the raw data rows, and
// the fingerprint of the bytes they came from.
type Export struct {
	Headers   []string
	Rows      []survey.RawRow
	InputHash core.InputHash
}

// HasColumn reports whether the export header names a column.
func (e *Export) HasColumn(name string) bool {
	for _, h := range e.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// ExportReader loads a wide-format survey export from a file. Implementations
// must trim cell whitespace and preserve row order. They never filter; row
// validation is the pipeline's job, not the reader's.
type ExportReader interface {
	ReadExport(path string) (*Export, error)
}
