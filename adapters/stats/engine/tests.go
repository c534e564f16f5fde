package engine

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	domstats "surveystat/domain/stats"
)

// sampleMoments holds the per-group summary the t-test variants share.
type sampleMoments struct {
	n        int
	mean     float64
	variance float64 // sample variance
}

func momentsOf(values []float64) sampleMoments {
	m := sampleMoments{n: len(values)}
	if m.n == 0 {
		return m
	}
	m.mean, _ = stats.Mean(values)
	if m.n > 1 {
		m.variance, _ = stats.SampleVariance(values)
	}
	return m
}

// pooledT computes Student's two-sample t-test under equal variances.
func (e *Engine) pooledT(g1, g2 sampleMoments) domstats.TestOutput {
	df := float64(g1.n + g2.n - 2)
	pooledVar := (float64(g1.n-1)*g1.variance + float64(g2.n-1)*g2.variance) / df
	se := math.Sqrt(pooledVar * (1/float64(g1.n) + 1/float64(g2.n)))

	t := 0.0
	if se > 0 {
		t = (g1.mean - g2.mean) / se
	}

	return domstats.TestOutput{
		Method:    domstats.MethodPooledT,
		Statistic: t,
		PValue:    e.dist.TTestPValue(t, df),
	}
}

// welchT computes the unequal-variance t-test with Welch-Satterthwaite
// degrees of freedom.
func (e *Engine) welchT(g1, g2 sampleMoments) domstats.TestOutput {
	se1 := g1.variance / float64(g1.n)
	se2 := g2.variance / float64(g2.n)
	se := math.Sqrt(se1 + se2)

	t := 0.0
	if se > 0 {
		t = (g1.mean - g2.mean) / se
	}

	df := 0.0
	denom := se1*se1/float64(g1.n-1) + se2*se2/float64(g2.n-1)
	if denom > 0 {
		df = (se1 + se2) * (se1 + se2) / denom
	}

	return domstats.TestOutput{
		Method:    domstats.MethodWelchT,
		Statistic: t,
		PValue:    e.dist.TTestPValue(t, df),
	}
}

// mannWhitney computes the rank-sum test with average ranks for ties and the
// tie-corrected normal approximation. The reported statistic is U for the
// first group.
func (e *Engine) mannWhitney(group1, group2 []float64) domstats.TestOutput {
	n1 := len(group1)
	n2 := len(group2)
	total := n1 + n2

	type rankedValue struct {
		value float64
		group int
	}
	combined := make([]rankedValue, 0, total)
	for _, v := range group1 {
		combined = append(combined, rankedValue{v, 0})
	}
	for _, v := range group2 {
		combined = append(combined, rankedValue{v, 1})
	}
	sort.Slice(combined, func(i, j int) bool { return combined[i].value < combined[j].value })

	// Average ranks within tie runs; track tie sizes for the variance correction.
	ranks := make([]float64, total)
	tieCorrection := 0.0
	for i := 0; i < total; {
		j := i
		for j < total && combined[j].value == combined[i].value {
			j++
		}
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		tieSize := float64(j - i)
		tieCorrection += tieSize*tieSize*tieSize - tieSize
		i = j
	}

	rankSum1 := 0.0
	for i, rv := range combined {
		if rv.group == 0 {
			rankSum1 += ranks[i]
		}
	}

	u1 := rankSum1 - float64(n1*(n1+1))/2.0
	meanU := float64(n1*n2) / 2.0

	nf := float64(total)
	varU := float64(n1*n2) / 12.0 * ((nf + 1) - tieCorrection/(nf*(nf-1)))

	p := 1.0
	if varU > 0 {
		z := (u1 - meanU) / math.Sqrt(varU)
		p = e.dist.NormalTwoTailedPValue(z)
	}

	return domstats.TestOutput{
		Method:    domstats.MethodMannWhitney,
		Statistic: u1,
		PValue:    p,
	}
}

// jarqueBera is the normality goodness-of-fit check used for test selection:
// JB = n/6 * (S^2 + (K-3)^2/4), chi-square with 2 df under normality.
func (e *Engine) jarqueBera(values []float64) float64 {
	n := float64(len(values))
	if n < 3 {
		return 1.0
	}

	mean, _ := stats.Mean(values)

	m2, m3, m4 := 0.0, 0.0, 0.0
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m3 /= n
	m4 /= n

	if m2 == 0 {
		return 1.0
	}

	skew := m3 / math.Pow(m2, 1.5)
	kurt := m4 / (m2 * m2)

	jb := n / 6.0 * (skew*skew + (kurt-3)*(kurt-3)/4.0)
	return e.dist.ChiSquarePValue(jb, 2)
}

// varianceHomogeneityP is the two-sided F-ratio check ahead of t-test
// selection. The larger variance goes in the numerator.
func (e *Engine) varianceHomogeneityP(g1, g2 sampleMoments) float64 {
	if g1.variance == 0 && g2.variance == 0 {
		return 1.0
	}
	if g1.variance >= g2.variance {
		if g2.variance == 0 {
			return 0.0
		}
		return e.dist.VarianceRatioPValue(g1.variance/g2.variance, g1.n-1, g2.n-1)
	}
	if g1.variance == 0 {
		return 0.0
	}
	return e.dist.VarianceRatioPValue(g2.variance/g1.variance, g2.n-1, g1.n-1)
}
