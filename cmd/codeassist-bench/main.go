// Package main provides the codeassist-bench CLI tool for measuring how the
// response cache and concurrency limiter shape request latency.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/codeassist"
	"github.com/discochess/codeassist/benchmark/analysis"
	"github.com/discochess/codeassist/benchmark/reporting"
	"github.com/discochess/codeassist/benchmark/simulation"
	"github.com/discochess/codeassist/internal/codec/zstdcodec"
	"github.com/discochess/codeassist/internal/stats/logger"
)

var (
	workload     = simulation.DefaultWorkload()
	outputFormat string
	outputFile   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "codeassist-bench",
	Short: "Benchmark the codeassist response cache",
	Long: `codeassist-bench replays a synthetic explain-code workload against a
simulated provider twice, once with the response cache disabled and once
with it enabled, and compares the latency distributions.

Examples:
  # Run with the default workload
  codeassist-bench run

  # Heavier reuse, slower provider
  codeassist-bench run --requests 1000 --snippets 10 --latency 50ms

  # Output as a compressed markdown report
  codeassist-bench run --format markdown --output report.md.zst`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark",
	RunE:  runBenchmark,
}

func init() {
	f := runCmd.Flags()
	f.IntVarP(&workload.Requests, "requests", "n", workload.Requests, "requests per run")
	f.IntVar(&workload.DistinctSnippets, "snippets", workload.DistinctSnippets, "distinct code snippets cycled through")
	f.IntVarP(&workload.Concurrency, "concurrency", "c", workload.Concurrency, "concurrent callers")
	f.DurationVar(&workload.Latency, "latency", workload.Latency, "simulated provider latency")
	f.StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	f.StringVarP(&outputFile, "output", "o", "", "output file, zstd-compressed when it ends in .zst (default: stdout)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log client metrics to stderr")

	rootCmd.AddCommand(runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var opts []codeassist.Option
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer l.Sync()
		opts = append(opts, codeassist.WithLogger(l), codeassist.WithStats(logger.New(l.Named("stats"))))
	}

	uncached := workload
	uncached.Name = "uncached"
	cached := workload
	cached.Name = "cached"

	fmt.Fprintf(os.Stderr, "Running %d requests without cache...\n", workload.Requests)
	base, err := simulation.NewSimulator(append(opts, codeassist.WithoutCache())...).Run(ctx, uncached)
	if err != nil {
		return fmt.Errorf("uncached run: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Running %d requests with cache...\n", workload.Requests)
	cand, err := simulation.NewSimulator(opts...).Run(ctx, cached)
	if err != nil {
		return fmt.Errorf("cached run: %w", err)
	}

	comp := analysis.Compare(base, cand, 10000, 0.95)
	results := []*simulation.Result{base, cand}

	out, closeOut, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	switch outputFormat {
	case "markdown":
		writeMarkdownReport(out, results, comp)
	default:
		writeTextReport(out, results, comp)
	}
	return closeOut()
}

// openOutput returns the report destination and a func that flushes and
// closes it.
func openOutput(name string) (io.Writer, func() error, error) {
	if name == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	if !strings.HasSuffix(name, ".zst") {
		return f, f.Close, nil
	}
	zw, err := zstdcodec.New().Writer(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return zw, func() error {
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

func writeTextReport(w io.Writer, results []*simulation.Result, comp *analysis.Comparison) {
	fmt.Fprintf(w, "codeassist Cache Benchmark\n")
	fmt.Fprintf(w, "==========================\n\n")
	fmt.Fprintf(w, "Requests:    %d\n", workload.Requests)
	fmt.Fprintf(w, "Snippets:    %d\n", workload.DistinctSnippets)
	fmt.Fprintf(w, "Concurrency: %d\n", workload.Concurrency)
	fmt.Fprintf(w, "Latency:     %s\n\n", workload.Latency)

	for _, res := range results {
		m := simulation.ComputeMetrics(res)
		fmt.Fprintf(w, "%s:\n", res.Name)
		fmt.Fprintf(w, "  Throughput:     %.1f req/s\n", m.Throughput)
		fmt.Fprintf(w, "  Mean latency:   %s\n", simulation.Milliseconds(m.MeanLatency).Round(time.Microsecond))
		fmt.Fprintf(w, "  P95 latency:    %s\n", simulation.Milliseconds(m.P95Latency).Round(time.Microsecond))
		fmt.Fprintf(w, "  Provider calls: %d (%.1f%% saved)\n", m.ProviderCalls, m.CallsSaved*100)
		if res.Errors > 0 {
			fmt.Fprintf(w, "  Errors:         %d\n", res.Errors)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Statistical Analysis:\n")
	fmt.Fprintf(w, "---------------------\n\n")
	fmt.Fprintln(w, comp.Summary())
}

func writeMarkdownReport(w io.Writer, results []*simulation.Result, comp *analysis.Comparison) {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("codeassist Cache Benchmark")
	report.WriteMethodology(workload)
	report.WriteSummaryTable(results)
	report.WriteComparison(comp)
	for _, res := range results {
		report.WriteDistribution(res, 10)
	}
	report.WriteFooter()
}
