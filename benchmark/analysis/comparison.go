package analysis

import (
	"fmt"

	"github.com/discochess/codeassist/benchmark/simulation"
)

// Comparison contrasts a candidate run with a baseline run.
type Comparison struct {
	Baseline  string
	Candidate string

	BaselineStats  *DescriptiveStats
	CandidateStats *DescriptiveStats

	MannWhitney *MannWhitneyResult
	EffectSize  *EffectSize
	BootstrapCI *BootstrapResult

	// Speedup is the baseline mean latency divided by the candidate's.
	Speedup float64
}

// Compare runs the statistical comparison of candidate against baseline.
func Compare(baseline, candidate *simulation.Result, bootstrapIterations int, confidence float64) *Comparison {
	c := &Comparison{
		Baseline:       baseline.Name,
		Candidate:      candidate.Name,
		BaselineStats:  Describe(baseline.Latencies),
		CandidateStats: Describe(candidate.Latencies),
		MannWhitney:    MannWhitneyU(baseline.Latencies, candidate.Latencies),
		EffectSize:     ComputeEffectSize(baseline.Latencies, candidate.Latencies),
		BootstrapCI:    BootstrapConfidenceInterval(baseline.Latencies, candidate.Latencies, bootstrapIterations, confidence),
	}
	if c.CandidateStats.Mean > 0 {
		c.Speedup = c.BaselineStats.Mean / c.CandidateStats.Mean
	}
	return c
}

// Faster reports whether the candidate is significantly faster.
func (c *Comparison) Faster() bool {
	return c.MannWhitney.Significant && c.CandidateStats.Mean < c.BaselineStats.Mean
}

// Summary returns a plain-text summary.
func (c *Comparison) Summary() string {
	verdict := "no significant difference"
	if c.MannWhitney.Significant {
		verdict = fmt.Sprintf("significant (p=%.4f)", c.MannWhitney.PValue)
	}
	return fmt.Sprintf(
		"%s vs %s:\n"+
			"  %s: mean=%.2fms p50=%.2fms p95=%.2fms\n"+
			"  %s: mean=%.2fms p50=%.2fms p95=%.2fms\n"+
			"  Speedup: %.2fx, effect size %.2f (%s)\n"+
			"  Result: %s",
		c.Baseline, c.Candidate,
		c.Baseline, c.BaselineStats.Mean, c.BaselineStats.Median, c.BaselineStats.P95,
		c.Candidate, c.CandidateStats.Mean, c.CandidateStats.Median, c.CandidateStats.P95,
		c.Speedup, c.EffectSize.CohensD, c.EffectSize.Interpretation,
		verdict,
	)
}
