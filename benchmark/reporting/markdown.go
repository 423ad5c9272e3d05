// Package reporting renders benchmark results as Markdown.
package reporting

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/discochess/codeassist/benchmark/analysis"
	"github.com/discochess/codeassist/benchmark/simulation"
)

// MarkdownReport writes a benchmark report to w.
type MarkdownReport struct {
	w   io.Writer
	now func() time.Time
}

// NewMarkdownReport returns a report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w, now: time.Now}
}

// WriteHeader writes the title and generation time.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\nGenerated: %s\n\n", title, r.now().Format(time.RFC3339))
}

// WriteMethodology describes the workload.
func (r *MarkdownReport) WriteMethodology(w simulation.Workload) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Requests per run:** %d\n", w.Requests)
	fmt.Fprintf(r.w, "- **Distinct snippets:** %d\n", w.DistinctSnippets)
	fmt.Fprintf(r.w, "- **Concurrency:** %d\n", w.Concurrency)
	fmt.Fprintf(r.w, "- **Simulated provider latency:** %s\n", w.Latency)
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U, Cohen's d, bootstrap CI of the mean difference")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes one row per run.
func (r *MarkdownReport) WriteSummaryTable(results []*simulation.Result) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Run | Req/s | Mean (ms) | P95 (ms) | P99 (ms) | Provider calls | Cache hit rate |")
	fmt.Fprintln(r.w, "|-----|-------|-----------|----------|----------|----------------|----------------|")
	for _, res := range results {
		m := simulation.ComputeMetrics(res)
		hit := "n/a"
		if res.CacheEnabled {
			hit = fmt.Sprintf("%.1f%%", m.CacheHitRate*100)
		}
		fmt.Fprintf(r.w, "| %s | %.1f | %.2f | %.2f | %.2f | %d | %s |\n",
			res.Name, m.Throughput, m.MeanLatency, m.P95Latency, m.P99Latency, m.ProviderCalls, hit)
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes the statistical comparison of two runs.
func (r *MarkdownReport) WriteComparison(c *analysis.Comparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", c.Baseline, c.Candidate)

	fmt.Fprintf(r.w, "| Latency (ms) | %s | %s |\n", c.Baseline, c.Candidate)
	fmt.Fprintln(r.w, "|--------------|---|---|")
	row := func(name string, a, b float64) {
		fmt.Fprintf(r.w, "| %s | %.2f | %.2f |\n", name, a, b)
	}
	row("Mean", c.BaselineStats.Mean, c.CandidateStats.Mean)
	row("Median", c.BaselineStats.Median, c.CandidateStats.Median)
	row("P95", c.BaselineStats.P95, c.CandidateStats.P95)
	row("Std Dev", c.BaselineStats.StdDev, c.CandidateStats.StdDev)
	row("Max", c.BaselineStats.Max, c.CandidateStats.Max)
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		c.MannWhitney.U, c.MannWhitney.Z, c.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		c.EffectSize.CohensD, c.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **%.0f%% CI for mean difference:** [%.2f, %.2f] ms\n",
		c.BootstrapCI.Confidence*100, c.BootstrapCI.LowerBound, c.BootstrapCI.UpperBound)
	fmt.Fprintf(r.w, "- **Speedup:** %.2fx\n", c.Speedup)
	fmt.Fprintln(r.w)

	if c.Faster() {
		fmt.Fprintf(r.w, "**%s** is significantly faster than %s (effect size: %s).\n\n",
			c.Candidate, c.Baseline, c.EffectSize.Interpretation)
	} else {
		fmt.Fprintf(r.w, "No significant improvement of %s over %s.\n\n", c.Candidate, c.Baseline)
	}
}

// WriteDistribution writes a text histogram of the run's latencies.
func (r *MarkdownReport) WriteDistribution(res *simulation.Result, buckets int) {
	fmt.Fprintf(r.w, "### %s latency distribution\n\n```\n", res.Name)
	lo, hi, counts := histogram(res.Latencies, buckets)
	most := 0.0
	if len(counts) > 0 {
		most = floats.Max(counts)
	}
	width := (hi - lo) / float64(len(counts))
	for i, n := range counts {
		bar := 0
		if most > 0 {
			bar = int(n * 40 / most)
		}
		fmt.Fprintf(r.w, "%8.2f-%8.2f | %s %d\n",
			lo+float64(i)*width, lo+float64(i+1)*width, strings.Repeat("#", bar), int(n))
	}
	fmt.Fprint(r.w, "```\n\n")
}

// histogram buckets data into equal-width bins spanning its range.
func histogram(data []float64, buckets int) (lo, hi float64, counts []float64) {
	if len(data) == 0 || buckets <= 0 {
		return 0, 0, nil
	}
	sorted := slices.Clone(data)
	slices.Sort(sorted)
	lo, hi = sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		hi = lo + 1
	}
	dividers := make([]float64, buckets+1)
	floats.Span(dividers, lo, hi)
	// The last divider is exclusive.
	dividers[buckets] = math.Nextafter(hi, math.Inf(1))
	counts = stat.Histogram(nil, dividers, sorted, nil)
	return lo, hi, counts
}

// WriteFooter closes the report.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprint(r.w, "---\n\n*Report generated by codeassist-bench*\n")
}
