package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"surveystat/domain/stats"
	"surveystat/domain/survey"
	"surveystat/internal"
	apperrors "surveystat/internal/errors"
)

// Archive persists run manifests, test results, and quality flags to
// PostgreSQL for cross-run comparison. Archiving sits beside the filesystem
// reporter and never changes report contents.
type Archive struct {
	db  *sqlx.DB
	log *internal.Logger
}

// Open connects to the database and ensures the archive schema exists.
func Open(databaseURL string) (*Archive, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	a := &Archive{db: db, log: internal.DefaultLogger}
	if err := a.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the connection pool.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id           TEXT PRIMARY KEY,
		input_hash       TEXT NOT NULL,
		rows_read        INTEGER NOT NULL,
		rows_valid       INTEGER NOT NULL,
		participants     INTEGER NOT NULL,
		unknown_condition INTEGER NOT NULL,
		included         INTEGER NOT NULL,
		excluded         INTEGER NOT NULL,
		evaluation_count INTEGER NOT NULL,
		tests_executed   INTEGER NOT NULL,
		tests_skipped    INTEGER NOT NULL,
		runtime_ms       BIGINT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS stimulus_results (
		run_id            TEXT NOT NULL REFERENCES runs(run_id),
		result_key        TEXT NOT NULL,
		aggregate         BOOLEAN NOT NULL,
		outcome           TEXT NOT NULL,
		method            TEXT,
		statistic         DOUBLE PRECISION,
		n_standard        INTEGER NOT NULL,
		n_ethics          INTEGER NOT NULL,
		effect_size       DOUBLE PRECISION,
		effect_unit       TEXT,
		raw_p             DOUBLE PRECISION,
		one_tailed_p      DOUBLE PRECISION,
		direction_matched BOOLEAN NOT NULL,
		holm_p            DOUBLE PRECISION,
		bonferroni_p      DOUBLE PRECISION,
		bh_p              DOUBLE PRECISION,
		family_id         TEXT,
		skipped           BOOLEAN NOT NULL,
		skip_reason       TEXT,
		PRIMARY KEY (run_id, result_key)
	);
	CREATE TABLE IF NOT EXISTS quality_flags (
		run_id              TEXT NOT NULL REFERENCES runs(run_id),
		participant_id      TEXT NOT NULL,
		possible_automation BOOLEAN NOT NULL,
		extreme_bias        BOOLEAN NOT NULL,
		degenerate_tendency BOOLEAN NOT NULL,
		incomplete          BOOLEAN NOT NULL,
		score               INTEGER NOT NULL,
		recommendation      TEXT NOT NULL,
		PRIMARY KEY (run_id, participant_id)
	);`
	if _, err := a.db.Exec(schema); err != nil {
		return apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	return nil
}

type manifestRow struct {
	RunID            string    `db:"run_id"`
	InputHash        string    `db:"input_hash"`
	RowsRead         int       `db:"rows_read"`
	RowsValid        int       `db:"rows_valid"`
	Participants     int       `db:"participants"`
	UnknownCondition int       `db:"unknown_condition"`
	Included         int       `db:"included"`
	Excluded         int       `db:"excluded"`
	EvaluationCount  int       `db:"evaluation_count"`
	TestsExecuted    int       `db:"tests_executed"`
	TestsSkipped     int       `db:"tests_skipped"`
	RuntimeMs        int64     `db:"runtime_ms"`
	CreatedAt        time.Time `db:"created_at"`
}

// SaveManifest inserts the run's audit record.
func (a *Archive) SaveManifest(ctx context.Context, manifest *stats.RunManifest) error {
	row := manifestRow{
		RunID:            manifest.RunID.String(),
		InputHash:        manifest.InputHash.String(),
		RowsRead:         manifest.RowsRead,
		RowsValid:        manifest.RowsValid,
		Participants:     manifest.Participants,
		UnknownCondition: manifest.Unknown,
		Included:         manifest.Included,
		Excluded:         manifest.Excluded,
		EvaluationCount:  manifest.EvaluationCount,
		TestsExecuted:    manifest.TestsExecuted,
		TestsSkipped:     manifest.TestsSkipped,
		RuntimeMs:        manifest.RuntimeMs,
		CreatedAt:        manifest.CreatedAt.Time(),
	}
	_, err := a.db.NamedExecContext(ctx, `
		INSERT INTO runs (
			run_id, input_hash, rows_read, rows_valid, participants,
			unknown_condition, included, excluded, evaluation_count,
			tests_executed, tests_skipped, runtime_ms, created_at
		) VALUES (
			:run_id, :input_hash, :rows_read, :rows_valid, :participants,
			:unknown_condition, :included, :excluded, :evaluation_count,
			:tests_executed, :tests_skipped, :runtime_ms, :created_at
		)
	`, row)
	if err != nil {
		return apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	a.log.Debug("[Archive] stored manifest for run %s", manifest.RunID)
	return nil
}

type resultRow struct {
	RunID            string          `db:"run_id"`
	ResultKey        string          `db:"result_key"`
	Aggregate        bool            `db:"aggregate"`
	Outcome          string          `db:"outcome"`
	Method           sql.NullString  `db:"method"`
	Statistic        sql.NullFloat64 `db:"statistic"`
	NStandard        int             `db:"n_standard"`
	NEthics          int             `db:"n_ethics"`
	EffectSize       sql.NullFloat64 `db:"effect_size"`
	EffectUnit       sql.NullString  `db:"effect_unit"`
	RawP             sql.NullFloat64 `db:"raw_p"`
	OneTailedP       sql.NullFloat64 `db:"one_tailed_p"`
	DirectionMatched bool            `db:"direction_matched"`
	HolmP            sql.NullFloat64 `db:"holm_p"`
	BonferroniP      sql.NullFloat64 `db:"bonferroni_p"`
	BHP              sql.NullFloat64 `db:"bh_p"`
	FamilyID         sql.NullString  `db:"family_id"`
	Skipped          bool            `db:"skipped"`
	SkipReason       sql.NullString  `db:"skip_reason"`
}

// SaveResults inserts every test result under the run.
func (a *Archive) SaveResults(ctx context.Context, manifest *stats.RunManifest, results []stats.StimulusTestResult) error {
	for _, r := range results {
		row := resultRow{
			RunID:            manifest.RunID.String(),
			ResultKey:        r.Key(),
			Aggregate:        r.Aggregate,
			Outcome:          string(r.Outcome),
			NStandard:        r.NStandard,
			NEthics:          r.NEthics,
			DirectionMatched: r.DirectionMatched,
			Skipped:          r.Skipped,
		}
		if r.Skipped {
			row.SkipReason = sql.NullString{String: string(r.SkipReason), Valid: true}
		} else {
			row.Method = sql.NullString{String: string(r.Method), Valid: true}
			row.Statistic = sql.NullFloat64{Float64: r.Statistic, Valid: true}
			row.EffectSize = sql.NullFloat64{Float64: r.EffectSize, Valid: true}
			row.EffectUnit = sql.NullString{String: r.EffectUnit, Valid: true}
			row.RawP = sql.NullFloat64{Float64: r.RawP, Valid: true}
			row.OneTailedP = sql.NullFloat64{Float64: r.OneTailedP, Valid: true}
			row.HolmP = nullAdjusted(r, stats.CorrectionHolm)
			row.BonferroniP = nullAdjusted(r, stats.CorrectionBonferroni)
			row.BHP = nullAdjusted(r, stats.CorrectionBH)
			if r.FamilyID != "" {
				row.FamilyID = sql.NullString{String: r.FamilyID.String(), Valid: true}
			}
		}

		_, err := a.db.NamedExecContext(ctx, `
			INSERT INTO stimulus_results (
				run_id, result_key, aggregate, outcome, method, statistic,
				n_standard, n_ethics, effect_size, effect_unit, raw_p,
				one_tailed_p, direction_matched, holm_p, bonferroni_p, bh_p,
				family_id, skipped, skip_reason
			) VALUES (
				:run_id, :result_key, :aggregate, :outcome, :method, :statistic,
				:n_standard, :n_ethics, :effect_size, :effect_unit, :raw_p,
				:one_tailed_p, :direction_matched, :holm_p, :bonferroni_p, :bh_p,
				:family_id, :skipped, :skip_reason
			)
		`, row)
		if err != nil {
			return apperrors.WithCode(apperrors.CodeDatabaseError, err)
		}
	}
	a.log.Debug("[Archive] stored %d results for run %s", len(results), manifest.RunID)
	return nil
}

type qualityRow struct {
	RunID              string `db:"run_id"`
	ParticipantID      string `db:"participant_id"`
	PossibleAutomation bool   `db:"possible_automation"`
	ExtremeBias        bool   `db:"extreme_bias"`
	DegenerateTendency bool   `db:"degenerate_tendency"`
	Incomplete         bool   `db:"incomplete"`
	Score              int    `db:"score"`
	Recommendation     string `db:"recommendation"`
}

// SaveQuality inserts the per-participant screening table under the run.
func (a *Archive) SaveQuality(ctx context.Context, manifest *stats.RunManifest, flags []survey.QualityFlag) error {
	for _, f := range flags {
		row := qualityRow{
			RunID:              manifest.RunID.String(),
			ParticipantID:      f.ParticipantID.String(),
			PossibleAutomation: f.PossibleAutomation,
			ExtremeBias:        f.ExtremeBias,
			DegenerateTendency: f.DegenerateTendency,
			Incomplete:         f.Incomplete,
			Score:              f.Score,
			Recommendation:     string(f.Recommendation),
		}
		_, err := a.db.NamedExecContext(ctx, `
			INSERT INTO quality_flags (
				run_id, participant_id, possible_automation, extreme_bias,
				degenerate_tendency, incomplete, score, recommendation
			) VALUES (
				:run_id, :participant_id, :possible_automation, :extreme_bias,
				:degenerate_tendency, :incomplete, :score, :recommendation
			)
		`, row)
		if err != nil {
			return apperrors.WithCode(apperrors.CodeDatabaseError, err)
		}
	}
	a.log.Debug("[Archive] stored %d quality flags for run %s", len(flags), manifest.RunID)
	return nil
}

func nullAdjusted(r stats.StimulusTestResult, method stats.CorrectionMethod) sql.NullFloat64 {
	p, ok := r.Adjusted[method]
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p, Valid: true}
}
