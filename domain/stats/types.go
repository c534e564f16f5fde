package stats

import (
	"fmt"

	"surveystat/domain/core"
	"surveystat/domain/survey"
)

// Outcome names which dependent variable a test examined.
type Outcome string

const (
	// OutcomeDecision is the binary accept/reject release answer.
	OutcomeDecision Outcome = "decision"
	// OutcomeTendency is the continuous 1..7 willingness score.
	OutcomeTendency Outcome = "tendency"
)

// TestMethod tags which test variant the selection procedure chose. The tag
// travels with every result so the chosen variant is always inspectable,
// never implicit in which branch executed.
type TestMethod string

const (
	MethodChiSquare   TestMethod = "chi_square"
	MethodFisherExact TestMethod = "fisher_exact"
	MethodPooledT     TestMethod = "pooled_t"
	MethodWelchT      TestMethod = "welch_t"
	MethodMannWhitney TestMethod = "mann_whitney"
)

// CorrectionMethod names a multiple-comparison correction procedure.
type CorrectionMethod string

const (
	CorrectionHolm       CorrectionMethod = "holm"
	CorrectionBonferroni CorrectionMethod = "bonferroni"
	CorrectionBH         CorrectionMethod = "bh"
)

// CorrectionMethods is the fixed set applied to every family, in report order.
var CorrectionMethods = []CorrectionMethod{
	CorrectionHolm, CorrectionBonferroni, CorrectionBH,
}

// WarningCode represents structured reasons a test was skipped or needs care.
type WarningCode string

const (
	WarningLowN         WarningCode = "LOW_N"         // fewer than 2 observations in a group
	WarningOneCondition WarningCode = "ONE_CONDITION" // only one arm present for the stimulus
	WarningZeroVariance WarningCode = "ZERO_VARIANCE" // both groups constant
	WarningEmptyMargin  WarningCode = "EMPTY_MARGIN"  // contingency row/column sums to zero
)

// TestOutput is the tagged result of one executed test: which method ran,
// its statistic, and the two-tailed p-value.
type TestOutput struct {
	Method    TestMethod `json:"method"`
	Statistic float64    `json:"statistic"`
	PValue    float64    `json:"p_value"`
}

// StimulusTestResult is one condition-comparison result: per stimulus, or the
// aggregate participant-level test when Aggregate is set. Immutable once the
// correction stage has filled Adjusted.
type StimulusTestResult struct {
	Stimulus  survey.StimulusID `json:"stimulus"` // 0 for the aggregate test
	Aggregate bool              `json:"aggregate"`
	Outcome   Outcome           `json:"outcome"`

	Method    TestMethod `json:"method"`
	Statistic float64    `json:"statistic"`

	NStandard int `json:"n_standard"`
	NEthics   int `json:"n_ethics"`

	EffectSize float64 `json:"effect_size"`
	EffectUnit string  `json:"effect_unit"` // "d" or "prop_diff"

	RawP       float64 `json:"raw_p"`        // two-tailed
	OneTailedP float64 `json:"one_tailed_p"` // derived, never skipped
	// DirectionMatched records whether the observed ordering matched the
	// pre-registered expectation (ethics arm more conservative).
	DirectionMatched bool `json:"direction_matched"`

	// Adjusted holds one corrected p-value per method, over the per-outcome
	// family across all stimuli. Empty until the correction barrier runs.
	// The aggregate test is confirmatory and stays uncorrected.
	Adjusted map[CorrectionMethod]float64 `json:"adjusted,omitempty"`

	FamilyID core.FamilyID `json:"family_id,omitempty"`

	Skipped    bool        `json:"skipped,omitempty"`
	SkipReason WarningCode `json:"skip_reason,omitempty"`
}

// Key returns a stable identifier for the result within its family.
func (r StimulusTestResult) Key() string {
	if r.Aggregate {
		return fmt.Sprintf("aggregate/%s", r.Outcome)
	}
	return fmt.Sprintf("%s/%s", r.Stimulus, r.Outcome)
}

// SignificantAt reports per-method significance. There is deliberately no
// method-free variant: a caller must always name the correction it trusts.
func (r StimulusTestResult) SignificantAt(alpha float64, method CorrectionMethod) (bool, error) {
	if r.Skipped {
		return false, fmt.Errorf("result %s was skipped (%s)", r.Key(), r.SkipReason)
	}
	p, ok := r.Adjusted[method]
	if !ok {
		return false, fmt.Errorf("result %s has no %s adjustment", r.Key(), method)
	}
	return p < alpha, nil
}

// Validate checks result invariants before it enters a family.
func (r StimulusTestResult) Validate() error {
	if r.Skipped {
		if r.SkipReason == "" {
			return fmt.Errorf("skipped result %s must carry a reason", r.Key())
		}
		return nil
	}
	if !r.Aggregate && !r.Stimulus.Valid() {
		return fmt.Errorf("stimulus index %d out of range", r.Stimulus)
	}
	if r.RawP < 0.0 || r.RawP > 1.0 {
		return fmt.Errorf("raw p must be in [0,1], got %f", r.RawP)
	}
	if r.OneTailedP < 0.0 || r.OneTailedP > 1.0 {
		return fmt.Errorf("one-tailed p must be in [0,1], got %f", r.OneTailedP)
	}
	if r.NStandard <= 0 || r.NEthics <= 0 {
		return fmt.Errorf("group sizes must be > 0, got %d/%d", r.NStandard, r.NEthics)
	}
	return nil
}

// TestFamilyArtifact records one correction family: which results were
// corrected together, over which input, with which methods. Family identity
// is a deterministic hash so reruns regroup identically.
type TestFamilyArtifact struct {
	FamilyID  core.FamilyID      `json:"family_id"`
	Outcome   Outcome            `json:"outcome"`
	InputHash core.InputHash     `json:"input_hash"`
	NumTests  int                `json:"num_tests"`
	Methods   []CorrectionMethod `json:"methods"`
	CreatedAt core.Timestamp     `json:"created_at"`
}

// NewTestFamilyArtifact builds the family artifact for a corrected outcome.
func NewTestFamilyArtifact(input core.InputHash, outcome Outcome, memberKeys []string) *TestFamilyArtifact {
	return &TestFamilyArtifact{
		FamilyID:  core.ComputeFamilyID(input, string(outcome), memberKeys),
		Outcome:   outcome,
		InputHash: input,
		NumTests:  len(memberKeys),
		Methods:   CorrectionMethods,
		CreatedAt: core.Now(),
	}
}

// RunManifest captures the complete audit trail of one pipeline run: what was
// read, what was dropped and why, and the input fingerprint that ties the
// outputs to the exact export bytes.
type RunManifest struct {
	RunID     core.RunID     `json:"run_id"`
	InputHash core.InputHash `json:"input_hash"`

	RowsRead        int `json:"rows_read"`
	RowsValid       int `json:"rows_valid"`
	Participants    int `json:"participants"`
	Unknown         int `json:"unknown_condition"`
	Included        int `json:"included"`
	Excluded        int `json:"excluded"`
	EvaluationCount int `json:"evaluation_count"`

	DropCounts map[survey.ReasonCode]int `json:"drop_counts"`

	TestsExecuted int   `json:"tests_executed"`
	TestsSkipped  int   `json:"tests_skipped"`
	RuntimeMs     int64 `json:"runtime_ms"`

	CreatedAt core.Timestamp `json:"created_at"`
}

// NewRunManifest creates a manifest for a run over the given input.
func NewRunManifest(runID core.RunID, input core.InputHash) *RunManifest {
	return &RunManifest{
		RunID:      runID,
		InputHash:  input,
		DropCounts: make(map[survey.ReasonCode]int),
		CreatedAt:  core.Now(),
	}
}
