// Package analysis compares latency samples from benchmark runs.
package analysis

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level used by the tests in this package.
const Alpha = 0.05

// MannWhitneyResult is the outcome of a two-sided Mann-Whitney U test.
type MannWhitneyResult struct {
	U           float64
	Z           float64 // normal approximation
	PValue      float64
	Significant bool
}

// MannWhitneyU tests whether a and b come from the same distribution without
// assuming normality. Latency samples are rarely normal.
func MannWhitneyU(a, b []float64) *MannWhitneyResult {
	if len(a) == 0 || len(b) == 0 {
		return &MannWhitneyResult{PValue: 1}
	}
	n1, n2 := float64(len(a)), float64(len(b))

	type obs struct {
		v     float64
		fromA bool
	}
	all := make([]obs, 0, len(a)+len(b))
	for _, v := range a {
		all = append(all, obs{v, true})
	}
	for _, v := range b {
		all = append(all, obs{v, false})
	}
	slices.SortFunc(all, func(x, y obs) int { return cmpFloat(x.v, y.v) })

	// Tied values share the mean of their ranks.
	var rankSumA float64
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if all[k].fromA {
				rankSumA += rank
			}
		}
		i = j
	}

	uA := rankSumA - n1*(n1+1)/2
	u := math.Min(uA, n1*n2-uA)
	mu := n1 * n2 / 2
	sigma := math.Sqrt(n1 * n2 * (n1 + n2 + 1) / 12)

	res := &MannWhitneyResult{U: u, PValue: 1}
	if sigma > 0 {
		res.Z = (u - mu) / sigma
		res.PValue = 2 * distuv.UnitNormal.CDF(-math.Abs(res.Z))
	}
	res.Significant = res.PValue < Alpha
	return res
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// EffectSize is Cohen's d with its conventional label.
type EffectSize struct {
	CohensD        float64
	Interpretation string
}

// ComputeEffectSize returns Cohen's d of a relative to b using the pooled
// standard deviation.
func ComputeEffectSize(a, b []float64) *EffectSize {
	if len(a) < 2 || len(b) < 2 {
		return &EffectSize{Interpretation: "undefined"}
	}
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	n1, n2 := float64(len(a)), float64(len(b))
	pooled := math.Sqrt(((n1-1)*varA + (n2-1)*varB) / (n1 + n2 - 2))

	var d float64
	if pooled > 0 {
		d = (meanA - meanB) / pooled
	}
	return &EffectSize{CohensD: d, Interpretation: interpret(math.Abs(d))}
}

func interpret(d float64) string {
	switch {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	}
	return "large"
}

// BootstrapResult is a percentile bootstrap interval for the difference of
// means.
type BootstrapResult struct {
	MeanDiff   float64
	LowerBound float64
	UpperBound float64
	Confidence float64
}

// BootstrapConfidenceInterval resamples a and b with replacement and returns
// the interval covering confidence of the resampled mean differences. The
// generator is seeded so reports are reproducible.
func BootstrapConfidenceInterval(a, b []float64, iterations int, confidence float64) *BootstrapResult {
	res := &BootstrapResult{Confidence: confidence}
	if len(a) == 0 || len(b) == 0 || iterations <= 0 {
		return res
	}
	res.MeanDiff = stat.Mean(a, nil) - stat.Mean(b, nil)

	rng := rand.New(rand.NewPCG(1, 2))
	bufA := make([]float64, len(a))
	bufB := make([]float64, len(b))
	diffs := make([]float64, iterations)
	for i := range diffs {
		for k := range bufA {
			bufA[k] = a[rng.IntN(len(a))]
		}
		for k := range bufB {
			bufB[k] = b[rng.IntN(len(b))]
		}
		diffs[i] = stat.Mean(bufA, nil) - stat.Mean(bufB, nil)
	}
	slices.Sort(diffs)

	tail := (1 - confidence) / 2
	res.LowerBound = stat.Quantile(tail, stat.Empirical, diffs, nil)
	res.UpperBound = stat.Quantile(1-tail, stat.Empirical, diffs, nil)
	return res
}

// DescriptiveStats summarizes one sample.
type DescriptiveStats struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P95    float64
}

// Describe computes descriptive statistics for sample.
func Describe(sample []float64) *DescriptiveStats {
	if len(sample) == 0 {
		return &DescriptiveStats{}
	}
	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	d := &DescriptiveStats{
		N:      len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	d.Mean, d.StdDev = stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		d.StdDev = 0
	}
	return d
}
