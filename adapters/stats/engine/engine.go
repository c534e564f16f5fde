package engine

import (
	"math"

	"surveystat/domain/core"
	domstats "surveystat/domain/stats"
)

// Engine runs the condition-comparison tests. Test selection is a decision
// procedure returning a tagged output, so which variant ran is always
// recorded next to its result, never implied by control flow.
type Engine struct {
	dist *Distributions

	// minExpectedCell switches the binary outcome between chi-square and the
	// exact test.
	minExpectedCell float64
	// preconditionAlpha governs the normality and homogeneity checks that
	// select the continuous test variant.
	preconditionAlpha float64
	// minNormalityN is the smallest group for which the normality check is
	// informative; below it selection goes rank-based outright.
	minNormalityN int
}

// NewEngine creates an engine with the given chi-square/exact switch point.
func NewEngine(minExpectedCell float64) *Engine {
	return &Engine{
		dist:              NewDistributions(),
		minExpectedCell:   minExpectedCell,
		preconditionAlpha: 0.05,
		minNormalityN:     8,
	}
}

// CompareBinary tests the 2x2 condition-by-rejection table. Chi-square when
// every expected cell reaches the switch point, the exact test otherwise.
func (e *Engine) CompareBinary(rejectStd, totalStd, rejectEth, totalEth int) (domstats.TestOutput, error) {
	if totalStd < 1 || totalEth < 1 {
		return domstats.TestOutput{}, core.NewInsufficientDataError("binary comparison", totalStd+totalEth)
	}

	table := NewContingency(rejectStd, totalStd, rejectEth, totalEth)

	// A zero column margin (everyone decided the same way in both arms) makes
	// chi-square undefined; the exact test degenerates cleanly to p = 1.
	if table.ColTotals()[0] == 0 || table.ColTotals()[1] == 0 {
		return e.fisherExact(table), nil
	}
	if table.MinExpected() >= e.minExpectedCell {
		return e.chiSquare(table), nil
	}
	return e.fisherExact(table), nil
}

// CompareContinuous tests the difference in means between the two arms.
// Selection: both groups passing the normality check and the variance
// homogeneity check get the pooled t-test; normal but heterogeneous gets
// Welch; anything else goes rank-based.
func (e *Engine) CompareContinuous(standard, ethics []float64) (domstats.TestOutput, error) {
	if len(standard) < 2 || len(ethics) < 2 {
		return domstats.TestOutput{}, core.NewInsufficientDataError("continuous comparison", len(standard)+len(ethics))
	}

	g1 := momentsOf(standard)
	g2 := momentsOf(ethics)

	if g1.variance == 0 && g2.variance == 0 {
		return domstats.TestOutput{}, core.ErrDegenerateSamples
	}

	if !e.plausiblyNormal(standard) || !e.plausiblyNormal(ethics) {
		return e.mannWhitney(standard, ethics), nil
	}
	if e.varianceHomogeneityP(g1, g2) > e.preconditionAlpha {
		return e.pooledT(g1, g2), nil
	}
	return e.welchT(g1, g2), nil
}

// plausiblyNormal runs the goodness-of-fit check where it is informative.
// Groups too small to check are not assumed normal.
func (e *Engine) plausiblyNormal(values []float64) bool {
	if len(values) < e.minNormalityN {
		return false
	}
	return e.jarqueBera(values) > e.preconditionAlpha
}

// OneTailedP derives the one-tailed p-value from the two-tailed result. The
// derivation is unconditional: when the observed ordering matches the
// pre-registered direction the evidence halves, otherwise it lands on the
// far side of 0.5.
func (e *Engine) OneTailedP(twoTailedP float64, directionMatched bool) float64 {
	if directionMatched {
		return twoTailedP / 2
	}
	return 1 - twoTailedP/2
}

// CohenD computes the pooled-SD effect size for the continuous outcome,
// oriented as standard minus ethics arm.
func (e *Engine) CohenD(standard, ethics []float64) float64 {
	g1 := momentsOf(standard)
	g2 := momentsOf(ethics)
	if g1.n < 2 || g2.n < 2 {
		return 0
	}
	return e.dist.EffectSizeCohenD(
		g1.mean, g2.mean,
		math.Sqrt(g1.variance), math.Sqrt(g2.variance),
		g1.n, g2.n)
}

// MeansOf returns group means for direction checks.
func (e *Engine) MeansOf(standard, ethics []float64) (float64, float64) {
	g1 := momentsOf(standard)
	g2 := momentsOf(ethics)
	return g1.mean, g2.mean
}
