package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"surveystat/adapters/stats/engine"
	"surveystat/adapters/stats/stages"
	"surveystat/domain/core"
	"surveystat/domain/stats"
	"surveystat/domain/survey"
	"surveystat/internal"
	"surveystat/internal/config"
	"surveystat/internal/ingest"
	"surveystat/internal/report"
	"surveystat/internal/screen"
	"surveystat/ports"
)

// PipelineService orchestrates one batch run: read, validate, infer, reshape,
// screen, test, correct, report. The run is deterministic: identical input
// bytes produce byte-identical output tables.
type PipelineService struct {
	cfg     *config.Config
	reader  ports.ExportReader
	archive ports.RunArchive // nil disables archiving
	log     *internal.Logger
}

// PipelineResult is the audit summary of one completed run.
type PipelineResult struct {
	Manifest *stats.RunManifest
	Results  []stats.StimulusTestResult
	Families []*stats.TestFamilyArtifact
}

// NewPipelineService wires the pipeline. archive may be nil.
func NewPipelineService(cfg *config.Config, reader ports.ExportReader, archive ports.RunArchive) *PipelineService {
	return &PipelineService{
		cfg:     cfg,
		reader:  reader,
		archive: archive,
		log:     internal.DefaultLogger,
	}
}

// rowOutcome is the per-row product of the parallel phase. Slices are
// index-addressed so output never depends on goroutine completion order.
type rowOutcome struct {
	participant survey.Participant
	evals       []survey.Evaluation
	drops       survey.DropCounter
}

// Run executes the full pipeline and writes the report tables.
func (s *PipelineService) Run(ctx context.Context) (*PipelineResult, error) {
	startTime := time.Now()

	export, err := s.reader.ReadExport(s.cfg.Input.ExportFile)
	if err != nil {
		return nil, err
	}

	manifest := stats.NewRunManifest(core.RunID(core.NewID()), export.InputHash)
	manifest.RowsRead = len(export.Rows)

	schema := ingest.NewSchema(s.cfg.Schema)
	validated, err := ingest.NewRowValidator(schema).Validate(export)
	if err != nil {
		return nil, err
	}
	manifest.RowsValid = len(validated.Rows)
	manifest.DropCounts = validated.Drops

	outcomes, err := s.processRows(ctx, schema, validated.Rows)
	if err != nil {
		return nil, err
	}

	participants, evals := s.collect(outcomes, manifest)

	aggs, flags, keptEvals := s.screenParticipants(participants, evals, manifest)
	survey.SortEvaluations(keptEvals)
	survey.SortAggregates(aggs)
	manifest.EvaluationCount = len(keptEvals)

	results, families := s.test(export.InputHash, keptEvals, aggs, manifest)

	if err := s.report(manifest, keptEvals, aggs, flags, results); err != nil {
		return nil, err
	}

	manifest.RuntimeMs = time.Since(startTime).Milliseconds()

	if s.archive != nil {
		if err := s.archiveRun(ctx, manifest, results, flags); err != nil {
			return nil, err
		}
	}

	s.log.Info("[Pipeline] run %s complete in %dms: %d participants, %d tests",
		manifest.RunID, manifest.RuntimeMs, manifest.Participants, manifest.TestsExecuted)

	return &PipelineResult{Manifest: manifest, Results: results, Families: families}, nil
}

// processRows runs inference and reshaping per row under a bounded semaphore.
// Each row is independent; the bound keeps memory flat on large exports.
func (s *PipelineService) processRows(ctx context.Context, schema ingest.Schema, rows []survey.RawRow) ([]rowOutcome, error) {
	inferencer := ingest.NewConditionInferencer(schema)
	reshaper := ingest.NewReshaper(schema)

	limit := int64(runtime.GOMAXPROCS(0))
	sem := semaphore.NewWeighted(limit)
	outcomes := make([]rowOutcome, len(rows))

	for i := range rows {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("row processing interrupted: %w", err)
		}
		go func(i int) {
			defer sem.Release(1)

			row := rows[i]
			p := inferencer.Infer(row)
			outcome := rowOutcome{participant: p, drops: make(survey.DropCounter)}
			if p.Condition.Resolved() {
				outcome.evals, outcome.drops = reshaper.Reshape(p, row)
			}
			outcomes[i] = outcome
		}(i)
	}
	if err := sem.Acquire(ctx, limit); err != nil {
		return nil, fmt.Errorf("row processing interrupted: %w", err)
	}
	return outcomes, nil
}

// collect folds the parallel outcomes back into flat slices and the manifest
// tallies, in input order. A participant id may appear on more than one row
// (a retake or an export duplicate); the first submission is authoritative and
// later rows are dropped with an audit reason, so exactly one aggregate row
// and at most one Evaluation per (participant, stimulus) survive.
func (s *PipelineService) collect(outcomes []rowOutcome, manifest *stats.RunManifest) ([]survey.Participant, map[core.ParticipantID][]survey.Evaluation) {
	participants := make([]survey.Participant, 0, len(outcomes))
	evals := make(map[core.ParticipantID][]survey.Evaluation)
	seen := make(map[core.ParticipantID]bool)

	for _, o := range outcomes {
		manifest.DropCounts = mergeDrops(manifest.DropCounts, o.drops)
		if !o.participant.Condition.Resolved() {
			manifest.Unknown++
			manifest.DropCounts[survey.ReasonUnknownCondition]++
			continue
		}
		if seen[o.participant.ID] {
			manifest.DropCounts[survey.ReasonDuplicateID]++
			s.log.Warn("[Pipeline] duplicate submission for participant %s dropped", o.participant.ID)
			continue
		}
		seen[o.participant.ID] = true
		manifest.Participants++
		participants = append(participants, o.participant)
		evals[o.participant.ID] = o.evals
	}
	return participants, evals
}

// screenParticipants aggregates and screens every resolved participant and
// splits the population into included and excluded. Excluded evaluations never
// reach the tests; the quality table still records everyone.
func (s *PipelineService) screenParticipants(
	participants []survey.Participant,
	evals map[core.ParticipantID][]survey.Evaluation,
	manifest *stats.RunManifest,
) ([]survey.ParticipantAggregate, []survey.QualityFlag, []survey.Evaluation) {
	screener := screen.NewScreener(s.cfg.Screening)

	var aggs []survey.ParticipantAggregate
	var flags []survey.QualityFlag
	var kept []survey.Evaluation

	for _, p := range participants {
		own := evals[p.ID]

		agg, ok := survey.Aggregate(p, own)
		if !ok {
			// No evaluations at all: nothing to screen statistically, but the
			// participant still gets a quality row and never reaches the tests.
			flags = append(flags, survey.QualityFlag{
				ParticipantID:  p.ID,
				Incomplete:     true,
				Score:          survey.ScoreIncomplete,
				Recommendation: survey.RecommendReview,
			})
			manifest.Excluded++
			manifest.DropCounts[survey.ReasonScreenedOut]++
			continue
		}

		justifications := make([]string, 0, len(own))
		for _, e := range own {
			justifications = append(justifications, e.Justification)
		}
		flag := screener.Screen(agg, justifications)
		flags = append(flags, flag)

		exclude := s.cfg.Screening.ApplyScreening && flag.Recommendation == survey.RecommendExclude
		if exclude {
			manifest.Excluded++
			manifest.DropCounts[survey.ReasonScreenedOut]++
			continue
		}
		manifest.Included++
		aggs = append(aggs, agg)
		kept = append(kept, own...)
	}

	s.log.Info("[Pipeline] screening: %d included, %d excluded of %d participants",
		manifest.Included, manifest.Excluded, manifest.Participants)

	return aggs, flags, kept
}

// test runs every comparison and then the correction barrier: no adjusted
// p-value exists until every raw p in the family does.
func (s *PipelineService) test(
	input core.InputHash,
	evals []survey.Evaluation,
	aggs []survey.ParticipantAggregate,
	manifest *stats.RunManifest,
) ([]stats.StimulusTestResult, []*stats.TestFamilyArtifact) {
	schema := ingest.NewSchema(s.cfg.Schema)
	testing := stages.NewTestingStage(
		engine.NewEngine(s.cfg.Testing.MinExpectedCell),
		schema.StandardCondition(),
		schema.EthicsCondition(),
	)
	// Incomplete participants keep their per-stimulus evaluations but stay
	// out of the participant-level confirmatory sample; their completion
	// statistics remain in the participant and quality tables.
	testAggs := aggs
	if s.cfg.Screening.ApplyScreening {
		testAggs = make([]survey.ParticipantAggregate, 0, len(aggs))
		for _, a := range aggs {
			if a.Evaluations >= s.cfg.Screening.MinComplete {
				testAggs = append(testAggs, a)
			}
		}
	}
	results := testing.Execute(evals, testAggs, s.cfg.Schema.StimulusCount)
	families := stages.NewCorrectionStage().Execute(input, results)

	for _, r := range results {
		if r.Skipped {
			manifest.TestsSkipped++
		} else {
			manifest.TestsExecuted++
		}
	}
	return results, families
}

// report writes the output tables and the analysis brief.
func (s *PipelineService) report(
	manifest *stats.RunManifest,
	evals []survey.Evaluation,
	aggs []survey.ParticipantAggregate,
	flags []survey.QualityFlag,
	results []stats.StimulusTestResult,
) error {
	writer, err := report.NewTableWriter(s.cfg.Output.Dir)
	if err != nil {
		return err
	}

	if err := writer.WriteEvaluations(evals, aggs); err != nil {
		return err
	}
	if err := writer.WriteQuality(flags); err != nil {
		return err
	}
	if err := writer.WriteStimulusTests(results); err != nil {
		return err
	}
	if err := writer.WriteParticipants(aggs); err != nil {
		return err
	}
	if err := writer.WriteExclusions(manifest.DropCounts); err != nil {
		return err
	}

	schema := ingest.NewSchema(s.cfg.Schema)
	brief := report.GenerateBrief(report.BriefData{
		Manifest:      manifest,
		Standard:      schema.StandardCondition(),
		Ethics:        schema.EthicsCondition(),
		TendencyDesc:  s.describe(aggs, func(a survey.ParticipantAggregate) float64 { return a.MeanTendency }),
		RejectionDesc: s.describe(aggs, func(a survey.ParticipantAggregate) float64 { return a.RejectionRate }),
		Results:       results,
		Keywords:      report.ScanKeywords(evals, schema.StandardCondition(), schema.EthicsCondition()),
		Alpha:         s.cfg.Testing.Alpha,
	})
	return writer.WriteBrief(brief)
}

// describe computes per-condition descriptives over one participant-level
// measure, standard arm first.
func (s *PipelineService) describe(aggs []survey.ParticipantAggregate, value func(survey.ParticipantAggregate) float64) []survey.Descriptives {
	schema := ingest.NewSchema(s.cfg.Schema)
	conditions := []survey.Condition{schema.StandardCondition(), schema.EthicsCondition()}

	out := make([]survey.Descriptives, 0, len(conditions))
	for _, c := range conditions {
		var values []float64
		for _, a := range aggs {
			if a.Condition == c {
				values = append(values, value(a))
			}
		}
		out = append(out, survey.Describe(c, values))
	}
	return out
}

func (s *PipelineService) archiveRun(ctx context.Context, manifest *stats.RunManifest, results []stats.StimulusTestResult, flags []survey.QualityFlag) error {
	if err := s.archive.SaveManifest(ctx, manifest); err != nil {
		return err
	}
	if err := s.archive.SaveResults(ctx, manifest, results); err != nil {
		return err
	}
	return s.archive.SaveQuality(ctx, manifest, flags)
}

func mergeDrops(dst map[survey.ReasonCode]int, src survey.DropCounter) map[survey.ReasonCode]int {
	if dst == nil {
		dst = make(map[survey.ReasonCode]int)
	}
	for reason, n := range src {
		dst[reason] += n
	}
	return dst
}
