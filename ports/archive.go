package ports

import (
	"context"

	"surveystat/domain/stats"
	"surveystat/domain/survey"
)

// RunArchive persists run results for later cross-run comparison. The
// filesystem reporter is always written; archiving is optional on top of it
// and must never change the report contents.
type RunArchive interface {
	SaveManifest(ctx context.Context, manifest *stats.RunManifest) error
	SaveResults(ctx context.Context, manifest *stats.RunManifest, results []stats.StimulusTestResult) error
	SaveQuality(ctx context.Context, manifest *stats.RunManifest, flags []survey.QualityFlag) error
}
