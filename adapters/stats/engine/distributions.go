package engine

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides unified access to the sampling distributions the
// engine needs. All p-values come from gonum's distuv so every test uses the
// same CDF implementations.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// TTestPValue computes the two-tailed p-value for a t statistic. Degrees of
// freedom are fractional for the Welch variant.
func (d *Distributions) TTestPValue(tStatistic, degreesOfFreedom float64) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: degreesOfFreedom}
	return 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
}

// ChiSquarePValue computes the upper-tail p-value for a chi-square statistic.
func (d *Distributions) ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return 1 - chiDist.CDF(chiSquare)
}

// VarianceRatioPValue computes the two-sided p-value for an F-distributed
// variance ratio (the homogeneity check ahead of t-test selection).
func (d *Distributions) VarianceRatioPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 {
		return 1.0
	}

	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	upper := 1 - fDist.CDF(fStatistic)
	p := 2 * math.Min(upper, 1-upper)
	if p > 1.0 {
		p = 1.0
	}
	return p
}

// NormalCDF computes the standard normal CDF.
func (d *Distributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalTwoTailedPValue converts a z score to a two-tailed p-value.
func (d *Distributions) NormalTwoTailedPValue(z float64) float64 {
	return 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
}

// EffectSizeCohenD computes Cohen's d from the pooled standard deviation.
func (d *Distributions) EffectSizeCohenD(mean1, mean2, std1, std2 float64, n1, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 0
	}

	pooledStd := math.Sqrt(((float64(n1-1) * std1 * std1) + (float64(n2-1) * std2 * std2)) / float64(n1+n2-2))
	if pooledStd == 0 {
		return 0
	}

	return (mean1 - mean2) / pooledStd
}
