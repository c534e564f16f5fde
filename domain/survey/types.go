package survey

import (
	"fmt"

	"surveystat/domain/core"
)

// Condition is the between-subjects experimental arm a participant was
// assigned to. Arms are named by the export's configured family labels; a
// participant either resolves to exactly one arm or stays ConditionUnknown.
// Ties never guess.
type Condition string

const (
	// ConditionStandard is the plain usability-questionnaire arm.
	ConditionStandard Condition = "UEQ"
	// ConditionEthics is the ethics-augmented questionnaire arm.
	ConditionEthics Condition = "UEEQ"
	// ConditionUnknown marks participants with tied or absent evidence.
	ConditionUnknown Condition = "unknown"
)

// Resolved reports whether the condition is an experimental arm.
func (c Condition) Resolved() bool {
	return c != "" && c != ConditionUnknown
}

// StimulusID indexes one design exemplar (interaction pattern) a participant
// evaluates. Valid range is 1..StimulusCount.
type StimulusID int

// StimulusCount is the number of stimuli in the survey.
const StimulusCount = 15

// String returns the stable column/table label for the stimulus.
func (s StimulusID) String() string {
	return fmt.Sprintf("stim_%02d", int(s))
}

// Valid reports whether the stimulus index is in range.
func (s StimulusID) Valid() bool {
	return s >= 1 && s <= StimulusCount
}

// Tendency is the ordinal 1..7 willingness-to-approve rating.
// TendencySentinel is the survey's "don't know / not applicable" token and is
// recorded as missing, never coerced to a boundary value.
const (
	TendencyMin      = 1.0
	TendencyMax      = 7.0
	TendencySentinel = -1.0
)

// Decision is the explicit binary release answer. It is never derived by
// thresholding the tendency score.
type Decision string

const (
	DecisionAccept Decision = "Yes"
	DecisionReject Decision = "No"
)

// RawRow is one record of the export after cell trimming: column name to
// value, plus the source row index for audit messages. Ephemeral; rows are
// read once and never persisted beyond validation.
type RawRow struct {
	Index  int
	Fields map[string]string
}

// Get returns the trimmed cell value for a column, empty when absent.
func (r RawRow) Get(column string) string {
	return r.Fields[column]
}

// Participant is one validated survey respondent.
// Condition is computed once during inference and memoized here; every
// downstream consumer reads this field rather than re-deriving it.
type Participant struct {
	ID         core.ParticipantID
	ResponseID core.ResponseID
	Condition  Condition
	// AIExposed is the secondary binary factor inferred from a free-text
	// category field. Nil when the field is absent. The free-text matching is
	// brittle to label rewording; see the category-vocabulary note in DESIGN.md.
	AIExposed *bool
	StartedAt core.StartedAt
	Progress  int
}

// Evaluation is one participant's rating of one stimulus. At most one exists
// per (participant, stimulus) pair. Immutable after reshaping.
type Evaluation struct {
	ParticipantID core.ParticipantID
	Stimulus      StimulusID
	Condition     Condition
	Tendency      float64
	Decision      Decision
	Confidence    float64 // 0 when the survey variant had no confidence item
	Justification string
}

// Rejected reports whether the explicit decision was a rejection.
func (e Evaluation) Rejected() bool {
	return e.Decision == DecisionReject
}

// ReasonCode is a machine-readable exclusion or drop reason. Every row,
// field, or participant the pipeline discards is counted under one of these.
type ReasonCode string

const (
	ReasonEmptyID          ReasonCode = "EMPTY_ID"
	ReasonShortID          ReasonCode = "SHORT_ID"
	ReasonMetadataRow      ReasonCode = "METADATA_ROW"
	ReasonUnknownCondition ReasonCode = "UNKNOWN_CONDITION"
	ReasonDuplicateID      ReasonCode = "DUPLICATE_ID"
	ReasonTendencySentinel ReasonCode = "TENDENCY_SENTINEL"
	ReasonTendencyRange    ReasonCode = "TENDENCY_RANGE"
	ReasonTendencyParse    ReasonCode = "TENDENCY_PARSE"
	ReasonPartialStimulus  ReasonCode = "PARTIAL_STIMULUS"
	ReasonBadDecision      ReasonCode = "BAD_DECISION"
	ReasonScreenedOut      ReasonCode = "SCREENED_OUT"
)

// DropCounter tallies discards by reason. Plain map; the pipeline is
// single-writer per stage.
type DropCounter map[ReasonCode]int

// Add increments a reason tally.
func (d DropCounter) Add(reason ReasonCode) {
	d[reason]++
}

// Merge folds another counter into this one.
func (d DropCounter) Merge(other DropCounter) {
	for reason, n := range other {
		d[reason] += n
	}
}

// Recommendation is the screening verdict for a participant.
type Recommendation string

const (
	RecommendKeep    Recommendation = "keep"
	RecommendReview  Recommendation = "review"
	RecommendExclude Recommendation = "exclude"
)

// QualityFlag is the immutable screening result for one participant. Score is
// the worst matching category under fixed precedence (automation outranks
// extreme bias outranks degenerate tendency outranks incompleteness); the
// booleans record every category that matched, not only the worst.
type QualityFlag struct {
	ParticipantID      core.ParticipantID
	PossibleAutomation bool
	ExtremeBias        bool
	DegenerateTendency bool
	Incomplete         bool
	Score              int
	Recommendation     Recommendation
}

// Quality score ordinals, worst to best.
const (
	ScoreClean      = 0
	ScoreIncomplete = 1
	ScoreDegenerate = 2
	ScoreBias       = 3
	ScoreAutomation = 4
)
