package screen

import (
	"strings"

	"surveystat/domain/survey"
	"surveystat/internal/config"
)

// automationPhrases are disclosure fragments that indicate an automated
// assistant wrote the justification text. Matching is case-insensitive
// substring; one hit anywhere in a participant's texts is enough.
var automationPhrases = []string{
	"as an ai",
	"as a language model",
	"i am an ai",
	"i'm an ai",
	"chatgpt",
	"openai",
	"i cannot assist",
}

// Screener classifies participants for suspect response patterns. It is a
// heuristic classifier, not a statistical test: it asserts a prioritized
// recommendation for human review, never certainty.
type Screener struct {
	cfg config.ScreeningConfig
}

// NewScreener creates a screener with the given thresholds.
func NewScreener(cfg config.ScreeningConfig) *Screener {
	return &Screener{cfg: cfg}
}

// Screen computes the immutable quality flag for one participant from the
// participant's summary statistics and justification texts. Each category is
// computed independently; the score is the worst matching category under the
// fixed precedence automation > extreme bias > degenerate tendency >
// incompleteness.
func (s *Screener) Screen(agg survey.ParticipantAggregate, justifications []string) survey.QualityFlag {
	flag := survey.QualityFlag{
		ParticipantID:      agg.ParticipantID,
		PossibleAutomation: s.possibleAutomation(agg, justifications),
		ExtremeBias:        s.extremeBias(agg),
		DegenerateTendency: s.degenerateTendency(agg),
		Incomplete:         agg.Evaluations < s.cfg.MinComplete,
	}
	flag.Score = scoreOf(flag)
	flag.Recommendation = recommendationOf(flag.Score)
	return flag
}

// possibleAutomation matches disclosure phrases, templated-text variance, and
// implausibly long average responses. The variance check needs a non-trivial
// response count: two near-identical short answers are not evidence.
func (s *Screener) possibleAutomation(agg survey.ParticipantAggregate, justifications []string) bool {
	for _, text := range justifications {
		lower := strings.ToLower(text)
		for _, phrase := range automationPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	if agg.Evaluations >= s.cfg.MinTextsForVar &&
		agg.MeanTextLen > 0 &&
		agg.VarTextLen < s.cfg.MinTextVariance {
		return true
	}
	return agg.MeanTextLen > s.cfg.MaxMeanTextLen
}

// extremeBias flags participants who reject or accept nearly everything.
func (s *Screener) extremeBias(agg survey.ParticipantAggregate) bool {
	return agg.RejectionRate >= s.cfg.BiasRate || agg.RejectionRate <= 1-s.cfg.BiasRate
}

// degenerateTendency flags zero response variance or a mean pinned to the
// scale floor or ceiling.
func (s *Screener) degenerateTendency(agg survey.ParticipantAggregate) bool {
	if agg.VarTendency == 0 {
		return true
	}
	return agg.MeanTendency <= survey.TendencyMin+s.cfg.ExtremeMeanBand ||
		agg.MeanTendency >= survey.TendencyMax-s.cfg.ExtremeMeanBand
}

// scoreOf maps the flag set to the worst matching ordinal.
func scoreOf(flag survey.QualityFlag) int {
	switch {
	case flag.PossibleAutomation:
		return survey.ScoreAutomation
	case flag.ExtremeBias:
		return survey.ScoreBias
	case flag.DegenerateTendency:
		return survey.ScoreDegenerate
	case flag.Incomplete:
		return survey.ScoreIncomplete
	}
	return survey.ScoreClean
}

// recommendationOf is the direct mapping from quality score to verdict.
func recommendationOf(score int) survey.Recommendation {
	switch {
	case score >= survey.ScoreBias:
		return survey.RecommendExclude
	case score >= survey.ScoreIncomplete:
		return survey.RecommendReview
	}
	return survey.RecommendKeep
}
