package stages

import (
	"errors"

	"surveystat/adapters/stats/engine"
	"surveystat/domain/core"
	"surveystat/domain/stats"
	"surveystat/domain/survey"
	"surveystat/internal"
)

// TestingStage runs the per-stimulus and aggregate condition comparisons and
// emits raw (uncorrected) results. The correction stage runs afterwards, once
// every raw p-value in a family exists.
type TestingStage struct {
	engine   *engine.Engine
	standard survey.Condition
	ethics   survey.Condition
	log      *internal.Logger
}

// NewTestingStage creates the stage. The ethics condition is the arm the
// pre-registered hypothesis expects to be more conservative (lower tendency,
// higher rejection rate).
func NewTestingStage(e *engine.Engine, standard, ethics survey.Condition) *TestingStage {
	return &TestingStage{
		engine:   e,
		standard: standard,
		ethics:   ethics,
		log:      internal.DefaultLogger,
	}
}

// Execute produces one result per stimulus per outcome, plus the two
// aggregate results over participant-level means. Stimuli that cannot be
// tested yield skipped results with a reason code rather than vanishing.
func (s *TestingStage) Execute(evals []survey.Evaluation, aggs []survey.ParticipantAggregate, stimulusCount int) []stats.StimulusTestResult {
	results := make([]stats.StimulusTestResult, 0, 2*stimulusCount+2)

	byStimulus := make(map[survey.StimulusID][]survey.Evaluation)
	for _, e := range evals {
		byStimulus[e.Stimulus] = append(byStimulus[e.Stimulus], e)
	}

	for idx := 1; idx <= stimulusCount; idx++ {
		stimulus := survey.StimulusID(idx)
		group := byStimulus[stimulus]
		results = append(results,
			s.binaryResult(stimulus, group),
			s.continuousResult(stimulus, group),
		)
	}

	results = append(results, s.aggregateResults(aggs)...)

	executed, skipped := 0, 0
	for _, r := range results {
		if r.Skipped {
			skipped++
		} else {
			executed++
		}
	}
	s.log.Info("[TestingStage] %d tests executed, %d skipped", executed, skipped)

	return results
}

// binaryResult tests the decision outcome for one stimulus.
func (s *TestingStage) binaryResult(stimulus survey.StimulusID, evals []survey.Evaluation) stats.StimulusTestResult {
	result := stats.StimulusTestResult{
		Stimulus:   stimulus,
		Outcome:    stats.OutcomeDecision,
		EffectUnit: "prop_diff",
	}

	rejectStd, totalStd := 0, 0
	rejectEth, totalEth := 0, 0
	for _, e := range evals {
		switch e.Condition {
		case s.standard:
			totalStd++
			if e.Rejected() {
				rejectStd++
			}
		case s.ethics:
			totalEth++
			if e.Rejected() {
				rejectEth++
			}
		}
	}
	result.NStandard = totalStd
	result.NEthics = totalEth

	if totalStd == 0 || totalEth == 0 {
		return skip(result, stats.WarningOneCondition)
	}

	out, err := s.engine.CompareBinary(rejectStd, totalStd, rejectEth, totalEth)
	if err != nil {
		return skip(result, stats.WarningLowN)
	}

	rateStd := float64(rejectStd) / float64(totalStd)
	rateEth := float64(rejectEth) / float64(totalEth)

	result.Method = out.Method
	result.Statistic = out.Statistic
	result.RawP = out.PValue
	result.EffectSize = rateEth - rateStd
	result.DirectionMatched = rateEth > rateStd
	result.OneTailedP = s.engine.OneTailedP(out.PValue, result.DirectionMatched)
	return result
}

// continuousResult tests the tendency outcome for one stimulus.
func (s *TestingStage) continuousResult(stimulus survey.StimulusID, evals []survey.Evaluation) stats.StimulusTestResult {
	result := stats.StimulusTestResult{
		Stimulus:   stimulus,
		Outcome:    stats.OutcomeTendency,
		EffectUnit: "d",
	}

	var standard, ethics []float64
	for _, e := range evals {
		switch e.Condition {
		case s.standard:
			standard = append(standard, e.Tendency)
		case s.ethics:
			ethics = append(ethics, e.Tendency)
		}
	}
	result.NStandard = len(standard)
	result.NEthics = len(ethics)

	return s.fillContinuous(result, standard, ethics)
}

// aggregateResults runs the confirmatory pair on participant-level means,
// the unit that avoids pseudo-replicating repeated ratings per person.
func (s *TestingStage) aggregateResults(aggs []survey.ParticipantAggregate) []stats.StimulusTestResult {
	var tendStd, tendEth, rateStd, rateEth []float64
	for _, a := range aggs {
		switch a.Condition {
		case s.standard:
			tendStd = append(tendStd, a.MeanTendency)
			rateStd = append(rateStd, a.RejectionRate)
		case s.ethics:
			tendEth = append(tendEth, a.MeanTendency)
			rateEth = append(rateEth, a.RejectionRate)
		}
	}

	tendency := stats.StimulusTestResult{
		Aggregate:  true,
		Outcome:    stats.OutcomeTendency,
		EffectUnit: "d",
		NStandard:  len(tendStd),
		NEthics:    len(tendEth),
	}
	tendency = s.fillContinuous(tendency, tendStd, tendEth)

	// The binary outcome aggregates to one rejection rate per participant, so
	// the participant-level comparison is a two-sample test on those rates.
	decision := stats.StimulusTestResult{
		Aggregate:  true,
		Outcome:    stats.OutcomeDecision,
		EffectUnit: "prop_diff",
		NStandard:  len(rateStd),
		NEthics:    len(rateEth),
	}
	if len(rateStd) == 0 || len(rateEth) == 0 {
		decision = skip(decision, stats.WarningOneCondition)
	} else {
		out, err := s.engine.CompareContinuous(rateStd, rateEth)
		if err != nil {
			decision = skip(decision, skipReasonFor(err))
		} else {
			meanStd, meanEth := s.engine.MeansOf(rateStd, rateEth)
			decision.Method = out.Method
			decision.Statistic = out.Statistic
			decision.RawP = out.PValue
			decision.EffectSize = meanEth - meanStd
			decision.DirectionMatched = meanEth > meanStd
			decision.OneTailedP = s.engine.OneTailedP(out.PValue, decision.DirectionMatched)
		}
	}

	return []stats.StimulusTestResult{decision, tendency}
}

// fillContinuous runs the tendency comparison shared by the per-stimulus and
// aggregate paths.
func (s *TestingStage) fillContinuous(result stats.StimulusTestResult, standard, ethics []float64) stats.StimulusTestResult {
	if len(standard) == 0 || len(ethics) == 0 {
		return skip(result, stats.WarningOneCondition)
	}
	if len(standard) < 2 || len(ethics) < 2 {
		return skip(result, stats.WarningLowN)
	}

	out, err := s.engine.CompareContinuous(standard, ethics)
	if err != nil {
		return skip(result, skipReasonFor(err))
	}

	meanStd, meanEth := s.engine.MeansOf(standard, ethics)

	result.Method = out.Method
	result.Statistic = out.Statistic
	result.RawP = out.PValue
	result.EffectSize = s.engine.CohenD(standard, ethics)
	result.DirectionMatched = meanEth < meanStd
	result.OneTailedP = s.engine.OneTailedP(out.PValue, result.DirectionMatched)
	return result
}

func skip(result stats.StimulusTestResult, reason stats.WarningCode) stats.StimulusTestResult {
	result.Skipped = true
	result.SkipReason = reason
	return result
}

// skipReasonFor maps an engine failure to the audit reason it actually had.
func skipReasonFor(err error) stats.WarningCode {
	if errors.Is(err, core.ErrInsufficientData) {
		return stats.WarningLowN
	}
	return stats.WarningZeroVariance
}
