package codeassist

import (
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/discochess/codeassist/internal/analyzer"
	"github.com/discochess/codeassist/internal/cache"
	"github.com/discochess/codeassist/internal/generator"
	"github.com/discochess/codeassist/internal/lang"
	"github.com/discochess/codeassist/internal/recorder"
	"github.com/discochess/codeassist/internal/security"
	"github.com/discochess/codeassist/internal/session"
)

// Param describes a parameter for GenerateFunction.
type Param = generator.Param

// Method describes a method for GenerateType.
type Method = generator.Method

// FileAnalysis is the result of analyzing one file.
type FileAnalysis struct {
	Path     string
	Language lang.Language
	Size     int
	Report   *analyzer.Report
}

// Summary returns a one-line description of the analysis.
func (a *FileAnalysis) Summary() string {
	r := a.Report
	s := fmt.Sprintf("%s: %d lines of %s", a.Path, r.Basic.TotalLines, a.Language)
	if r.Complexity.Measured {
		s += fmt.Sprintf(", cyclomatic complexity %d", r.Complexity.Cyclomatic)
	}
	if r.Quality.Score > 0 {
		s += fmt.Sprintf(", quality %d/10", r.Quality.Score)
	}
	return s
}

// sessionRecord is what the session keeps about an analyzed file.
func (a *FileAnalysis) sessionRecord() map[string]any {
	r := a.Report
	return map[string]any{
		"lines":       r.Basic.TotalLines,
		"code_lines":  r.Basic.CodeLines,
		"cyclomatic":  r.Complexity.Cyclomatic,
		"quality":     r.Quality.Score,
		"suggestions": r.Suggestions,
		"analyzed_at": time.Now().UTC().Format(time.RFC3339),
	}
}

// BatchResult is the outcome for one path in AnalyzeBatch.
type BatchResult struct {
	Path     string
	Analysis *FileAnalysis
	Err      error
}

// ProjectAnalysis is the result of scanning a project.
type ProjectAnalysis struct {
	Project session.Project
	Skipped int // files over the size limit
}

// Summary returns a one-line description of the scan.
func (p *ProjectAnalysis) Summary() string {
	langs := "no recognized languages"
	if len(p.Project.Languages) > 0 {
		langs = strings.Join(p.Project.Languages, ", ")
	}
	return fmt.Sprintf("Analyzed project %s with %d files (%s)", p.Project.Name, p.Project.FileCount, langs)
}

// FixResult is a provider's proposed fix.
type FixResult struct {
	// Content is the full reply.
	Content string
	// Code is the first fenced code block of the reply, if any.
	Code string
	// Patch holds the parsed unified diff when the reply contained one.
	Patch        []*diff.FileDiff
	LinesAdded   int
	LinesDeleted int
}

// Status describes the client's configuration and counters.
type Status struct {
	Model          string
	Provider       string
	Session        session.Summary
	Flags          Flags
	CacheEnabled   bool
	Cache          cache.Stats
	Performance    recorder.OverallStats
	ActiveCalls    int
	WatchdogActive bool
}

// ValidationError reports input rejected by the security validator.
type ValidationError struct {
	Field  string
	Result security.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("codeassist: invalid %s: %s", e.Field, strings.Join(e.Result.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
