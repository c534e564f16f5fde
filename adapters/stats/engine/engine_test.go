package engine

import (
	"math"
	"testing"

	domstats "surveystat/domain/stats"
)

// TestCompareBinary_ChiSquarePath verifies large expected cells select
// chi-square: table [[12,18],[20,10]], all expected cells >= 5.
func TestCompareBinary_ChiSquarePath(t *testing.T) {
	e := NewEngine(5.0)

	out, err := e.CompareBinary(12, 30, 20, 30)
	if err != nil {
		t.Fatalf("CompareBinary failed: %v", err)
	}

	if out.Method != domstats.MethodChiSquare {
		t.Errorf("Expected chi_square path, got %s", out.Method)
	}
	// chi2 = 4.2857 for this table, p about 0.038
	if math.Abs(out.Statistic-4.2857) > 0.001 {
		t.Errorf("Expected chi2 about 4.2857, got %f", out.Statistic)
	}
	if out.PValue < 0.03 || out.PValue > 0.05 {
		t.Errorf("Expected p about 0.038, got %f", out.PValue)
	}
}

// TestCompareBinary_ExactPath verifies small expected cells select the exact test
func TestCompareBinary_ExactPath(t *testing.T) {
	e := NewEngine(5.0)

	out, err := e.CompareBinary(1, 5, 4, 5)
	if err != nil {
		t.Fatalf("CompareBinary failed: %v", err)
	}
	if out.Method != domstats.MethodFisherExact {
		t.Errorf("Expected fisher_exact path, got %s", out.Method)
	}
	if out.PValue < 0 || out.PValue > 1 {
		t.Errorf("PValue out of range: %f", out.PValue)
	}
}

// TestFisherExact_KnownTable checks the exact p-value against a published
// example: [[1,9],[11,3]] has two-sided p = 0.002759.
func TestFisherExact_KnownTable(t *testing.T) {
	e := NewEngine(5.0)

	out := e.fisherExact(NewContingency(1, 10, 11, 14))
	if math.Abs(out.PValue-0.002759) > 0.0001 {
		t.Errorf("Expected exact p 0.002759, got %f", out.PValue)
	}
}

// TestCompareBinary_DegenerateColumn verifies unanimous decisions fall back
// to the exact test with p = 1
func TestCompareBinary_DegenerateColumn(t *testing.T) {
	e := NewEngine(5.0)

	out, err := e.CompareBinary(0, 10, 0, 10)
	if err != nil {
		t.Fatalf("CompareBinary failed: %v", err)
	}
	if out.Method != domstats.MethodFisherExact {
		t.Errorf("Expected fisher_exact for degenerate column, got %s", out.Method)
	}
	if out.PValue != 1.0 {
		t.Errorf("Expected p = 1 for a single feasible table, got %f", out.PValue)
	}
}

// TestCompareContinuous_PooledPath verifies normal, homogeneous groups use
// the pooled t-test
func TestCompareContinuous_PooledPath(t *testing.T) {
	e := NewEngine(5.0)

	n := 100
	group1 := make([]float64, n)
	group2 := make([]float64, n)
	for i := 0; i < n; i++ {
		group1[i] = 10.0 + randNorm()*2.0
		group2[i] = 11.0 + randNorm()*2.0
	}

	out, err := e.CompareContinuous(group1, group2)
	if err != nil {
		t.Fatalf("CompareContinuous failed: %v", err)
	}
	if out.Method != domstats.MethodPooledT {
		t.Errorf("Expected pooled_t for homogeneous normal groups, got %s", out.Method)
	}

	t.Logf("Pooled result: t=%.3f, p=%.4f", out.Statistic, out.PValue)
}

// TestCompareContinuous_WelchPath verifies heterogeneous variances select Welch
func TestCompareContinuous_WelchPath(t *testing.T) {
	e := NewEngine(5.0)

	n := 100
	group1 := make([]float64, n)
	group2 := make([]float64, n)
	for i := 0; i < n; i++ {
		group1[i] = 10.0 + randNorm()*1.0
		group2[i] = 12.0 + randNorm()*5.0
	}

	out, err := e.CompareContinuous(group1, group2)
	if err != nil {
		t.Fatalf("CompareContinuous failed: %v", err)
	}
	if out.Method != domstats.MethodWelchT {
		t.Errorf("Expected welch_t for heterogeneous variances, got %s", out.Method)
	}
}

// TestCompareContinuous_RankPath verifies non-normal groups go rank-based
func TestCompareContinuous_RankPath(t *testing.T) {
	e := NewEngine(5.0)

	// Heavily right-skewed data (squared normals) fails the normality check.
	n := 50
	group1 := make([]float64, n)
	group2 := make([]float64, n)
	for i := 0; i < n; i++ {
		v1 := randNorm()
		v2 := randNorm()
		group1[i] = v1 * v1
		group2[i] = v2*v2 + 1.0
	}

	out, err := e.CompareContinuous(group1, group2)
	if err != nil {
		t.Fatalf("CompareContinuous failed: %v", err)
	}
	if out.Method != domstats.MethodMannWhitney {
		t.Errorf("Expected mann_whitney for skewed groups, got %s", out.Method)
	}
}

// TestCompareContinuous_SmallGroupsGoRankBased verifies tiny groups skip the
// normality check and never get a t-test
func TestCompareContinuous_SmallGroupsGoRankBased(t *testing.T) {
	e := NewEngine(5.0)

	out, err := e.CompareContinuous([]float64{3, 4, 5}, []float64{5, 6, 7})
	if err != nil {
		t.Fatalf("CompareContinuous failed: %v", err)
	}
	if out.Method != domstats.MethodMannWhitney {
		t.Errorf("Expected mann_whitney for unverifiable normality, got %s", out.Method)
	}
}

// TestCompareContinuous_DegenerateSamples verifies constant groups are rejected
func TestCompareContinuous_DegenerateSamples(t *testing.T) {
	e := NewEngine(5.0)

	if _, err := e.CompareContinuous([]float64{4, 4, 4}, []float64{4, 4, 4}); err == nil {
		t.Error("Expected error for zero-variance groups")
	}
	if _, err := e.CompareContinuous([]float64{4}, []float64{5, 6}); err == nil {
		t.Error("Expected error for single-observation group")
	}
}

// TestMannWhitney_SeparatedGroups checks U on fully separated values
func TestMannWhitney_SeparatedGroups(t *testing.T) {
	e := NewEngine(5.0)

	out := e.mannWhitney([]float64{1, 2, 3}, []float64{4, 5, 6})
	if out.Statistic != 0 {
		t.Errorf("Expected U = 0 for fully separated groups, got %f", out.Statistic)
	}
}

// TestOneTailedP_Derivation verifies both directions of the derivation
func TestOneTailedP_Derivation(t *testing.T) {
	e := NewEngine(5.0)

	if p := e.OneTailedP(0.04, true); math.Abs(p-0.02) > 1e-12 {
		t.Errorf("Expected matched one-tailed p 0.02, got %f", p)
	}
	if p := e.OneTailedP(0.04, false); math.Abs(p-0.98) > 1e-12 {
		t.Errorf("Expected mismatched one-tailed p 0.98, got %f", p)
	}
}

// TestCohenD_GroupDifference verifies effect size magnitude and sign
func TestCohenD_GroupDifference(t *testing.T) {
	e := NewEngine(5.0)

	n := 50
	group1 := make([]float64, n)
	group2 := make([]float64, n)
	for i := 0; i < n; i++ {
		group1[i] = 10.0 + randNorm()*2.0
		group2[i] = 15.0 + randNorm()*2.0
	}

	d := e.CohenD(group1, group2)
	if d >= 0 {
		t.Errorf("Expected negative d for lower first group, got %f", d)
	}
	if math.Abs(d) < 1.5 {
		t.Errorf("Expected large effect size, got %f", d)
	}

	t.Logf("Cohen's d: %.3f", d)
}

// Simple pseudo-random normal distribution (Box-Muller transform)
var randState = 12345.0

func randNorm() float64 {
	// Update state with linear congruential generator
	randState = math.Mod(randState*1103515245+12345, 2147483648)
	u1 := randState / 2147483648.0

	randState = math.Mod(randState*1103515245+12345, 2147483648)
	u2 := randState / 2147483648.0

	// Box-Muller transform
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
