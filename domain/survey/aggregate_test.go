package survey

import (
	"math"
	"testing"

	"surveystat/domain/core"
)

func evalsFor(p core.ParticipantID, tendencies []float64, decisions []Decision) []Evaluation {
	evals := make([]Evaluation, len(tendencies))
	for i := range tendencies {
		evals[i] = Evaluation{
			ParticipantID: p,
			Stimulus:      StimulusID(i + 1),
			Condition:     ConditionStandard,
			Tendency:      tendencies[i],
			Decision:      decisions[i],
		}
	}
	return evals
}

// TestAggregate_MeanAndRejectionRate checks the participant-level summary on
// a worked example: 10 stimuli, mean tendency 4.5, rejection rate 40%.
func TestAggregate_MeanAndRejectionRate(t *testing.T) {
	p := Participant{ID: "p1", Condition: ConditionStandard}
	tendencies := []float64{5, 6, 7, 4, 3, 2, 6, 5, 4, 3}
	decisions := []Decision{
		DecisionReject, DecisionReject, DecisionReject,
		DecisionAccept, DecisionAccept, DecisionAccept,
		DecisionReject, DecisionReject,
		DecisionAccept, DecisionAccept,
	}

	agg, ok := Aggregate(p, evalsFor(p.ID, tendencies, decisions))
	if !ok {
		t.Fatal("Expected aggregate for participant with evaluations")
	}

	if math.Abs(agg.MeanTendency-4.5) > 1e-12 {
		t.Errorf("Expected mean tendency 4.5, got %f", agg.MeanTendency)
	}
	// Rejection = fraction of explicit reject decisions; tendency plays no part.
	if math.Abs(agg.RejectionRate-0.4) > 1e-12 {
		t.Errorf("Expected rejection rate 0.40, got %f", agg.RejectionRate)
	}
	if agg.Evaluations != 10 {
		t.Errorf("Expected 10 evaluations, got %d", agg.Evaluations)
	}
}

// TestAggregate_Empty verifies no aggregate is produced without evaluations
func TestAggregate_Empty(t *testing.T) {
	p := Participant{ID: "p2", Condition: ConditionEthics}
	if _, ok := Aggregate(p, nil); ok {
		t.Error("Expected no aggregate for participant without evaluations")
	}
}

// TestAggregate_MeanWithinScale verifies aggregates stay inside the 1..7 scale
func TestAggregate_MeanWithinScale(t *testing.T) {
	p := Participant{ID: "p3", Condition: ConditionEthics}
	tendencies := []float64{1, 7, 1, 7, 4}
	decisions := []Decision{DecisionAccept, DecisionReject, DecisionAccept, DecisionReject, DecisionAccept}

	agg, ok := Aggregate(p, evalsFor(p.ID, tendencies, decisions))
	if !ok {
		t.Fatal("Expected aggregate")
	}
	if agg.MeanTendency < TendencyMin || agg.MeanTendency > TendencyMax {
		t.Errorf("Mean tendency %f outside [1,7]", agg.MeanTendency)
	}
}

// TestSortEvaluations_Deterministic verifies stable output ordering
func TestSortEvaluations_Deterministic(t *testing.T) {
	evals := []Evaluation{
		{ParticipantID: "b", Stimulus: 2},
		{ParticipantID: "a", Stimulus: 5},
		{ParticipantID: "b", Stimulus: 1},
		{ParticipantID: "a", Stimulus: 1},
	}
	SortEvaluations(evals)

	want := []struct {
		pid  core.ParticipantID
		stim StimulusID
	}{
		{"a", 1}, {"a", 5}, {"b", 1}, {"b", 2},
	}
	for i, w := range want {
		if evals[i].ParticipantID != w.pid || evals[i].Stimulus != w.stim {
			t.Errorf("Position %d: expected (%s, %d), got (%s, %d)",
				i, w.pid, w.stim, evals[i].ParticipantID, evals[i].Stimulus)
		}
	}
}

// TestDescribe_Basics sanity-checks per-condition descriptives
func TestDescribe_Basics(t *testing.T) {
	d := Describe(ConditionStandard, []float64{2, 4, 6})
	if d.N != 3 {
		t.Errorf("Expected n=3, got %d", d.N)
	}
	if math.Abs(d.Mean-4.0) > 1e-12 {
		t.Errorf("Expected mean 4.0, got %f", d.Mean)
	}
	if math.Abs(d.StdDev-2.0) > 1e-12 {
		t.Errorf("Expected sample SD 2.0, got %f", d.StdDev)
	}
	if math.Abs(d.StdErr-2.0/math.Sqrt(3)) > 1e-12 {
		t.Errorf("Unexpected SE %f", d.StdErr)
	}

	empty := Describe(ConditionEthics, nil)
	if empty.N != 0 || empty.Mean != 0 {
		t.Error("Empty descriptives should be zero-valued")
	}
}
