package stages

import (
	"sort"

	"surveystat/domain/core"
	"surveystat/domain/stats"
	"surveystat/internal"
)

// CorrectionStage adjusts the per-stimulus one-tailed p-values for multiple
// comparisons. Each outcome forms its own family: the fifteen decision tests
// are one family, the fifteen tendency tests another. The aggregate results
// are confirmatory single tests and stay uncorrected.
type CorrectionStage struct {
	log *internal.Logger
}

func NewCorrectionStage() *CorrectionStage {
	return &CorrectionStage{log: internal.DefaultLogger}
}

// Execute fills Adjusted and FamilyID on every non-skipped per-stimulus
// result in place and returns one family artifact per outcome. Skipped
// results never join a family; the divisor m counts only executed tests.
func (c *CorrectionStage) Execute(input core.InputHash, results []stats.StimulusTestResult) []*stats.TestFamilyArtifact {
	families := make(map[stats.Outcome][]int)
	for i, r := range results {
		if r.Skipped || r.Aggregate {
			continue
		}
		families[r.Outcome] = append(families[r.Outcome], i)
	}

	outcomes := make([]stats.Outcome, 0, len(families))
	for outcome := range families {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

	artifacts := make([]*stats.TestFamilyArtifact, 0, len(outcomes))
	for _, outcome := range outcomes {
		members := families[outcome]

		raw := make([]float64, len(members))
		keys := make([]string, len(members))
		for i, idx := range members {
			raw[i] = results[idx].OneTailedP
			keys[i] = results[idx].Key()
		}

		adjusted := AdjustPValues(raw)
		familyID := core.ComputeFamilyID(input, string(outcome), keys)

		for i, idx := range members {
			results[idx].FamilyID = familyID
			results[idx].Adjusted = map[stats.CorrectionMethod]float64{
				stats.CorrectionHolm:       adjusted[stats.CorrectionHolm][i],
				stats.CorrectionBonferroni: adjusted[stats.CorrectionBonferroni][i],
				stats.CorrectionBH:         adjusted[stats.CorrectionBH][i],
			}
		}

		artifacts = append(artifacts, stats.NewTestFamilyArtifact(input, outcome, keys))
		c.log.Info("[CorrectionStage] family %s: %d tests adjusted (%s)",
			outcome, len(members), familyID.Short())
	}

	return artifacts
}

// AdjustPValues computes the three adjusted p-value sets for one family.
// Output slices are index-aligned with the input.
func AdjustPValues(raw []float64) map[stats.CorrectionMethod][]float64 {
	m := len(raw)
	holm := make([]float64, m)
	bonf := make([]float64, m)
	bh := make([]float64, m)

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return raw[order[a]] < raw[order[b]] })

	for idx := range raw {
		bonf[idx] = clampP(raw[idx] * float64(m))
	}

	// Holm step-down: multiplier shrinks with rank, running max keeps the
	// sequence monotone in the sorted order.
	runningMax := 0.0
	for rank, idx := range order {
		adj := clampP(raw[idx] * float64(m-rank))
		if adj < runningMax {
			adj = runningMax
		}
		runningMax = adj
		holm[idx] = adj
	}

	// Benjamini-Hochberg step-up: walk from the largest p down, taking the
	// running minimum of p * m / rank.
	runningMin := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		idx := order[rank]
		adj := clampP(raw[idx] * float64(m) / float64(rank+1))
		if adj > runningMin {
			adj = runningMin
		}
		runningMin = adj
		bh[idx] = adj
	}

	return map[stats.CorrectionMethod][]float64{
		stats.CorrectionHolm:       holm,
		stats.CorrectionBonferroni: bonf,
		stats.CorrectionBH:         bh,
	}
}

func clampP(p float64) float64 {
	if p > 1.0 {
		return 1.0
	}
	return p
}
