package engine

import (
	"math"

	"surveystat/domain/stats"
)

// Contingency is a 2x2 condition-by-rejection table. Rows are the two arms,
// columns are [reject, accept].
type Contingency struct {
	Cells [2][2]float64
}

// NewContingency builds the table from per-arm reject/total counts.
func NewContingency(rejectStd, totalStd, rejectEth, totalEth int) Contingency {
	return Contingency{Cells: [2][2]float64{
		{float64(rejectStd), float64(totalStd - rejectStd)},
		{float64(rejectEth), float64(totalEth - rejectEth)},
	}}
}

// Total returns the grand total.
func (c Contingency) Total() float64 {
	return c.Cells[0][0] + c.Cells[0][1] + c.Cells[1][0] + c.Cells[1][1]
}

// RowTotals returns per-arm totals.
func (c Contingency) RowTotals() [2]float64 {
	return [2]float64{c.Cells[0][0] + c.Cells[0][1], c.Cells[1][0] + c.Cells[1][1]}
}

// ColTotals returns per-outcome totals.
func (c Contingency) ColTotals() [2]float64 {
	return [2]float64{c.Cells[0][0] + c.Cells[1][0], c.Cells[0][1] + c.Cells[1][1]}
}

// Expected returns the expected cell counts under independence.
func (c Contingency) Expected() [2][2]float64 {
	rows := c.RowTotals()
	cols := c.ColTotals()
	total := c.Total()

	var expected [2][2]float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			expected[i][j] = rows[i] * cols[j] / total
		}
	}
	return expected
}

// MinExpected returns the smallest expected cell count, the quantity that
// decides chi-square versus exact testing.
func (c Contingency) MinExpected() float64 {
	expected := c.Expected()
	min := math.Inf(1)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if expected[i][j] < min {
				min = expected[i][j]
			}
		}
	}
	return min
}

// HasEmptyMargin reports whether any row or column sums to zero, which makes
// both tests undefined.
func (c Contingency) HasEmptyMargin() bool {
	rows := c.RowTotals()
	cols := c.ColTotals()
	return rows[0] == 0 || rows[1] == 0 || cols[0] == 0 || cols[1] == 0
}

// chiSquare computes the chi-square test of independence, without continuity
// correction, with the p-value from the chi-square distribution (1 df).
func (e *Engine) chiSquare(c Contingency) stats.TestOutput {
	expected := c.Expected()

	chi2 := 0.0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			diff := c.Cells[i][j] - expected[i][j]
			chi2 += diff * diff / expected[i][j]
		}
	}

	return stats.TestOutput{
		Method:    stats.MethodChiSquare,
		Statistic: chi2,
		PValue:    e.dist.ChiSquarePValue(chi2, 1),
	}
}

// fisherExact computes the two-sided exact test: the sum of hypergeometric
// probabilities of all tables with the observed margins that are no more
// likely than the observed table.
func (e *Engine) fisherExact(c Contingency) stats.TestOutput {
	rows := c.RowTotals()
	cols := c.ColTotals()
	total := int(c.Total())

	r1 := int(rows[0])
	c1 := int(cols[0])
	observed := int(c.Cells[0][0])

	// Feasible range of the top-left cell given the margins.
	lo := 0
	if r1+c1-total > 0 {
		lo = r1 + c1 - total
	}
	hi := r1
	if c1 < hi {
		hi = c1
	}

	pObserved := hypergeomLogProb(observed, r1, c1, total)
	const slack = 1e-7 // tolerate float noise when comparing table probabilities

	p := 0.0
	for k := lo; k <= hi; k++ {
		logP := hypergeomLogProb(k, r1, c1, total)
		if logP <= pObserved+slack {
			p += math.Exp(logP)
		}
	}
	if p > 1.0 {
		p = 1.0
	}

	return stats.TestOutput{
		Method:    stats.MethodFisherExact,
		Statistic: c.Cells[0][0],
		PValue:    p,
	}
}

// hypergeomLogProb is the log probability of a 2x2 table with top-left cell k
// under fixed margins.
func hypergeomLogProb(k, r1, c1, total int) float64 {
	return logChoose(r1, k) +
		logChoose(total-r1, c1-k) -
		logChoose(total, c1)
}

func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	lg := func(x int) float64 {
		v, _ := math.Lgamma(float64(x + 1))
		return v
	}
	return lg(n) - lg(k) - lg(n-k)
}

// ProportionDifference is the binary-outcome effect size: rejection rate in
// the ethics arm minus the standard arm.
func (c Contingency) ProportionDifference() float64 {
	rows := c.RowTotals()
	if rows[0] == 0 || rows[1] == 0 {
		return 0
	}
	return c.Cells[1][0]/rows[1] - c.Cells[0][0]/rows[0]
}

// CramersV is the secondary association strength for the 2x2 table.
func (c Contingency) CramersV(chi2 float64) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return math.Sqrt(chi2 / total)
}
