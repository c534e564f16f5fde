package survey

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"surveystat/domain/core"
)

// ParticipantAggregate collapses one participant's evaluations into a single
// row: the correct statistical unit for the confirmatory test, since the
// per-evaluation records are repeated measures of the same person.
type ParticipantAggregate struct {
	ParticipantID core.ParticipantID
	Condition     Condition
	AIExposed     *bool
	Evaluations   int
	MeanTendency  float64
	RejectionRate float64
	MeanTextLen   float64
	VarTextLen    float64
	VarTendency   float64
}

// Aggregate computes the participant-level summary from that participant's
// evaluations. Returns false when there are none.
func Aggregate(p Participant, evals []Evaluation) (ParticipantAggregate, bool) {
	if len(evals) == 0 {
		return ParticipantAggregate{}, false
	}

	tendencies := make([]float64, 0, len(evals))
	textLens := make([]float64, 0, len(evals))
	rejected := 0
	for _, e := range evals {
		tendencies = append(tendencies, e.Tendency)
		textLens = append(textLens, float64(len(e.Justification)))
		if e.Rejected() {
			rejected++
		}
	}

	meanT, _ := stats.Mean(tendencies)
	varT, _ := stats.PopulationVariance(tendencies)
	meanL, _ := stats.Mean(textLens)
	varL, _ := stats.PopulationVariance(textLens)

	return ParticipantAggregate{
		ParticipantID: p.ID,
		Condition:     p.Condition,
		AIExposed:     p.AIExposed,
		Evaluations:   len(evals),
		MeanTendency:  meanT,
		RejectionRate: float64(rejected) / float64(len(evals)),
		MeanTextLen:   meanL,
		VarTextLen:    varL,
		VarTendency:   varT,
	}, true
}

// Descriptives holds per-condition descriptive statistics.
type Descriptives struct {
	Condition Condition
	N         int
	Mean      float64
	StdDev    float64
	StdErr    float64
}

// Describe computes n, mean, sample SD, and SE for a value slice.
func Describe(c Condition, values []float64) Descriptives {
	d := Descriptives{Condition: c, N: len(values)}
	if len(values) == 0 {
		return d
	}
	d.Mean, _ = stats.Mean(values)
	if len(values) > 1 {
		d.StdDev, _ = stats.StandardDeviationSample(values)
		d.StdErr = d.StdDev / math.Sqrt(float64(len(values)))
	}
	return d
}

// SortEvaluations orders evaluations by (participant, stimulus) so every
// output table is byte-identical across runs regardless of processing order.
func SortEvaluations(evals []Evaluation) {
	sort.Slice(evals, func(i, j int) bool {
		if evals[i].ParticipantID != evals[j].ParticipantID {
			return evals[i].ParticipantID < evals[j].ParticipantID
		}
		return evals[i].Stimulus < evals[j].Stimulus
	})
}

// SortAggregates orders participant aggregates by participant id.
func SortAggregates(aggs []ParticipantAggregate) {
	sort.Slice(aggs, func(i, j int) bool {
		return aggs[i].ParticipantID < aggs[j].ParticipantID
	})
}
