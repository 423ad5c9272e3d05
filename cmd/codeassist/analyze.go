package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/discochess/codeassist"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze PATH...",
	Short: "Analyze source files",
	Long: `Analyze one or more source files: line statistics, structure,
complexity, a quality score and improvement suggestions.

Several files are analyzed together in batches. A file that fails does
not stop the others.

Examples:
  codeassist analyze main.go
  codeassist analyze internal/*.go --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

// fileReport is the JSON form of one analysis.
type fileReport struct {
	Path        string   `json:"path"`
	Language    string   `json:"language,omitempty"`
	Lines       int      `json:"lines,omitempty"`
	CodeLines   int      `json:"code_lines,omitempty"`
	Functions   int      `json:"functions,omitempty"`
	Cyclomatic  int      `json:"cyclomatic,omitempty"`
	Quality     int      `json:"quality,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func newFileReport(path string, a *codeassist.FileAnalysis, err error) fileReport {
	r := fileReport{Path: path}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	rep := a.Report
	r.Language = a.Language.String()
	r.Lines = rep.Basic.TotalLines
	r.CodeLines = rep.Basic.CodeLines
	r.Functions = len(rep.Structure.Functions)
	r.Cyclomatic = rep.Complexity.Cyclomatic
	r.Quality = rep.Quality.Score
	r.Suggestions = rep.Suggestions
	return r
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var reports []fileReport
	if len(args) == 1 {
		a, err := s.client.AnalyzeFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		reports = append(reports, newFileReport(args[0], a, nil))
	} else {
		results, err := s.client.AnalyzeBatch(ctx, args)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		for _, r := range results {
			reports = append(reports, newFileReport(r.Path, r.Analysis, r.Err))
		}
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Println()
		}
		printFileReport(r)
	}
	return nil
}

func printFileReport(r fileReport) {
	fmt.Printf("File:       %s\n", r.Path)
	if r.Error != "" {
		fmt.Printf("Error:      %s\n", r.Error)
		return
	}
	fmt.Printf("Language:   %s\n", r.Language)
	fmt.Printf("Lines:      %d (%d code)\n", r.Lines, r.CodeLines)
	if r.Functions > 0 {
		fmt.Printf("Functions:  %d\n", r.Functions)
	}
	if r.Cyclomatic > 0 {
		fmt.Printf("Complexity: %d\n", r.Cyclomatic)
	}
	if r.Quality > 0 {
		fmt.Printf("Quality:    %d/10\n", r.Quality)
	}
	if len(r.Suggestions) > 0 {
		fmt.Println("Suggestions:")
		fmt.Println("  " + strings.Join(r.Suggestions, "\n  "))
	}
}
