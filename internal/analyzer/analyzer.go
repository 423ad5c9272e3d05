// Package analyzer reports statistics, structure, complexity and quality of
// source code. Go sources are parsed locally; other languages rely on the
// provider for structure.
package analyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/codeassist/internal/lang"
	"github.com/discochess/codeassist/internal/provider"
)

// Report is the full analysis of one source text.
type Report struct {
	Language    lang.Language
	Basic       BasicStats
	Structure   Structure
	Complexity  Complexity
	Quality     Quality
	Suggestions []string
}

// Quality is the provider's style review.
type Quality struct {
	Analysis string
	Score    int // 0 when the review carried no score
}

// Analyzer combines local analysis with provider reviews.
type Analyzer struct {
	assistant *provider.Assistant
	logger    *zap.Logger
}

// New returns an Analyzer that sends reviews through a.
func New(a *provider.Assistant, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{assistant: a, logger: logger.Named("analyzer")}
}

// Analyze runs every analysis over code. Provider calls run concurrently; the
// first provider error fails the analysis.
func (a *Analyzer) Analyze(ctx context.Context, code string, language lang.Language) (*Report, error) {
	r := &Report{
		Language:   language,
		Basic:      Stats(code, language),
		Complexity: MeasureComplexity(code, language),
	}

	g, ctx := errgroup.WithContext(ctx)

	if language == lang.Go {
		r.Structure = GoStructure(code)
	} else {
		g.Go(func() error {
			resp, err := a.assistant.AnalyzeCode(ctx, code, language.String(), provider.AnalysisGeneral)
			if err != nil {
				return fmt.Errorf("analyzing structure: %w", err)
			}
			r.Structure.Summary = resp.Content
			return nil
		})
	}

	g.Go(func() error {
		resp, err := a.assistant.AnalyzeCode(ctx, code, language.String(), provider.AnalysisStyle)
		if err != nil {
			return fmt.Errorf("analyzing quality: %w", err)
		}
		r.Quality = Quality{Analysis: resp.Content, Score: ExtractScore(resp.Content)}
		return nil
	})

	g.Go(func() error {
		resp, err := a.assistant.SuggestImprovements(ctx, code, language.String())
		if err != nil {
			return fmt.Errorf("collecting suggestions: %w", err)
		}
		r.Suggestions = ExtractSuggestions(resp.Content)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Debug("analyzed code",
		zap.String("language", language.String()),
		zap.Int("lines", r.Basic.TotalLines),
		zap.Int("score", r.Quality.Score),
	)
	return r, nil
}
