package codeassist

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sourcegraph/go-diff/diff"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/codeassist/internal/generator"
	"github.com/discochess/codeassist/internal/lang"
	"github.com/discochess/codeassist/internal/provider"
	"github.com/discochess/codeassist/internal/security"
)

const (
	relevantFiles  = 3
	previewLength  = 500
	recentInChat   = 3
	maxLanguageTag = 3
)

// AnalyzeFile reads and analyzes one file and adds it to the session.
func (c *Client) AnalyzeFile(ctx context.Context, path string) (*FileAnalysis, error) {
	return run(ctx, c, "analyze_file", func(ctx context.Context) (*FileAnalysis, error) {
		return c.analyzeFile(ctx, path)
	})
}

func (c *Client) analyzeFile(ctx context.Context, path string) (*FileAnalysis, error) {
	clean, err := c.check("path", c.validator.ValidateFilePath(path))
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", clean, err)
	}
	if limit := c.project.MaxFileSize; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, clean, info.Size(), limit)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", clean, err)
	}

	content := string(data)
	language := lang.Detect(clean)
	report, err := c.analyzer.Analyze(ctx, content, language)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", clean, err)
	}

	a := &FileAnalysis{Path: clean, Language: language, Size: len(data), Report: report}
	c.remember(c.session.AddFile(ctx, clean, content, language, a.sessionRecord()))
	return a, nil
}

// AnalyzeBatch analyzes paths together, grouping them into batches. A failed
// file does not stop the others; its error is reported in its result.
// Results are in the order of paths.
func (c *Client) AnalyzeBatch(ctx context.Context, paths []string) ([]BatchResult, error) {
	return run(ctx, c, "analyze_batch", func(ctx context.Context) ([]BatchResult, error) {
		results := make([]BatchResult, len(paths))
		var g errgroup.Group
		for i, p := range paths {
			g.Go(func() error {
				a, err := c.batcher.Submit(ctx, p, c.analyzeFile)
				results[i] = BatchResult{Path: p, Analysis: a, Err: err}
				return nil
			})
		}
		// Per-path errors live in results; no goroutine fails the group.
		_ = g.Wait()

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		c.logger.Debug("batch analyzed", zap.Int("files", len(paths)), zap.Int("failed", failed))
		return results, ctx.Err()
	})
}

// GenerateCode generates code from a description. When background is empty,
// the project and the session's most relevant files are used instead.
func (c *Client) GenerateCode(ctx context.Context, description, language, background string) (string, error) {
	return run(ctx, c, "generate_code", func(ctx context.Context) (string, error) {
		desc, err := c.checkInput("description", description, security.KindDescription)
		if err != nil {
			return "", err
		}
		if background == "" {
			background = c.relevantContext(desc)
		}

		resp, err := c.generator.GenerateCode(ctx, desc, language, background)
		if err != nil {
			return "", fmt.Errorf("generating code: %w", err)
		}

		c.remember(c.session.AddMessage(ctx, provider.RoleUser, "Generate "+language+" code: "+desc, nil))
		c.remember(c.session.AddMessage(ctx, provider.RoleAssistant, resp.Content, map[string]any{
			"operation": "generate_code",
			"language":  language,
		}))
		return resp.Content, nil
	})
}

// Chat sends message with the session history and returns the reply.
// background is added to the system context when non-empty.
func (c *Client) Chat(ctx context.Context, message, background string) (string, error) {
	return run(ctx, c, "chat", func(ctx context.Context) (string, error) {
		msg, err := c.checkInput("message", message, security.KindMessage)
		if err != nil {
			return "", err
		}
		c.remember(c.session.AddMessage(ctx, provider.RoleUser, msg, nil))

		var messages []provider.Message
		if sys := c.chatContext(msg, background); sys != "" {
			messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: sys})
		}
		messages = append(messages, c.session.Conversation(0)...)

		resp, err := c.assistant.Provider().GenerateResponse(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("chatting: %w", err)
		}
		c.remember(c.session.AddMessage(ctx, provider.RoleAssistant, resp.Content, nil))
		return resp.Content, nil
	})
}

// ReviewCode returns a general review of code.
func (c *Client) ReviewCode(ctx context.Context, code, language string) (string, error) {
	return run(ctx, c, "review_code", func(ctx context.Context) (string, error) {
		clean, err := c.checkCode(code, lang.Language(strings.ToLower(language)))
		if err != nil {
			return "", err
		}
		resp, err := c.assistant.AnalyzeCode(ctx, clean, language, provider.AnalysisGeneral)
		if err != nil {
			return "", fmt.Errorf("reviewing code: %w", err)
		}
		return resp.Content, nil
	})
}

// ExplainCode returns an explanation of code.
func (c *Client) ExplainCode(ctx context.Context, code, language string) (string, error) {
	return run(ctx, c, "explain_code", func(ctx context.Context) (string, error) {
		clean, err := c.checkCode(code, lang.Language(strings.ToLower(language)))
		if err != nil {
			return "", err
		}
		resp, err := c.assistant.ExplainCode(ctx, clean, language)
		if err != nil {
			return "", fmt.Errorf("explaining code: %w", err)
		}
		return resp.Content, nil
	})
}

// FixCode asks for a fix of code given the error it produced.
func (c *Client) FixCode(ctx context.Context, code, errorMessage, language string) (*FixResult, error) {
	return run(ctx, c, "fix_code", func(ctx context.Context) (*FixResult, error) {
		clean, err := c.checkCode(code, lang.Language(strings.ToLower(language)))
		if err != nil {
			return nil, err
		}
		errMsg, err := c.checkInput("error message", errorMessage, security.KindMessage)
		if err != nil {
			return nil, err
		}

		resp, err := c.assistant.FixErrors(ctx, clean, errMsg, language)
		if err != nil {
			return nil, fmt.Errorf("fixing code: %w", err)
		}
		return c.parseFix(resp.Content), nil
	})
}

// GenerateFunction generates a single function named name.
func (c *Client) GenerateFunction(ctx context.Context, name, description string, params []Param, returnType, language string) (string, error) {
	return run(ctx, c, "generate_function", func(ctx context.Context) (string, error) {
		desc, err := c.checkInput("description", description, security.KindDescription)
		if err != nil {
			return "", err
		}
		return c.generator.GenerateFunction(ctx, name, desc, params, returnType, language)
	})
}

// GenerateType generates a type named name with methods. embeds lists
// embedded types or base classes.
func (c *Client) GenerateType(ctx context.Context, name, description string, methods []Method, embeds []string, language string) (string, error) {
	return run(ctx, c, "generate_type", func(ctx context.Context) (string, error) {
		desc, err := c.checkInput("description", description, security.KindDescription)
		if err != nil {
			return "", err
		}
		return c.generator.GenerateType(ctx, name, desc, methods, embeds, language)
	})
}

// GenerateTests writes tests for code. An empty framework lets the model
// pick the idiomatic one.
func (c *Client) GenerateTests(ctx context.Context, code, language, framework string) (string, error) {
	return run(ctx, c, "generate_tests", func(ctx context.Context) (string, error) {
		clean, err := c.checkCode(code, lang.Language(strings.ToLower(language)))
		if err != nil {
			return "", err
		}
		return c.generator.GenerateTests(ctx, clean, language, framework)
	})
}

// GenerateDocs documents code in format, such as "godoc" or "markdown".
func (c *Client) GenerateDocs(ctx context.Context, code, language, format string) (string, error) {
	return run(ctx, c, "generate_docs", func(ctx context.Context) (string, error) {
		clean, err := c.checkCode(code, lang.Language(strings.ToLower(language)))
		if err != nil {
			return "", err
		}
		return c.generator.GenerateDocs(ctx, clean, language, format)
	})
}

// Refactor rewrites code. kind is one of "extract_method", "simplify",
// "optimize", "modernize" or "clean"; other values are passed through as a
// free-form approach.
func (c *Client) Refactor(ctx context.Context, code, kind, language string) (string, error) {
	return run(ctx, c, "refactor", func(ctx context.Context) (string, error) {
		clean, err := c.checkCode(code, lang.Language(strings.ToLower(language)))
		if err != nil {
			return "", err
		}
		return c.generator.Refactor(ctx, clean, generator.RefactorKind(kind), language)
	})
}

var fencedBlock = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")

// parseFix splits a fix reply into its code and, when present, its patch.
func (c *Client) parseFix(content string) *FixResult {
	r := &FixResult{Content: content}
	for _, m := range fencedBlock.FindAllStringSubmatch(content, -1) {
		tag, body := strings.ToLower(m[1]), m[2]
		if tag == "diff" || tag == "patch" {
			if r.Patch != nil {
				continue
			}
			files, err := diff.ParseMultiFileDiff([]byte(body))
			if err != nil || len(files) == 0 {
				c.logger.Debug("ignoring unparsable patch", zap.Error(err))
				continue
			}
			r.Patch = files
			for _, f := range files {
				// A changed line is one deletion plus one addition.
				st := f.Stat()
				r.LinesAdded += int(st.Added + st.Changed)
				r.LinesDeleted += int(st.Deleted + st.Changed)
			}
			continue
		}
		if r.Code == "" {
			r.Code = strings.TrimRight(body, "\n")
		}
	}
	return r
}

// relevantContext describes the project and the files most related to
// query, for use as generation background.
func (c *Client) relevantContext(query string) string {
	var parts []string
	if p, ok := c.session.Project(); ok {
		parts = append(parts, "Project: "+p.Name)
		if len(p.Languages) > 0 {
			parts = append(parts, "Languages: "+strings.Join(p.Languages, ", "))
		}
	}
	for _, f := range c.session.RelevantFiles(query, relevantFiles) {
		parts = append(parts, fmt.Sprintf("File: %s\n```%s\n%s\n```", f.Path, f.Language, preview(f.Content)))
	}
	return strings.Join(parts, "\n\n")
}

// chatContext builds the system message for a chat turn.
func (c *Client) chatContext(message, background string) string {
	var parts []string
	if p, ok := c.session.Project(); ok {
		parts = append(parts, "Working on project: "+p.Name)
		if len(p.Languages) > 0 {
			parts = append(parts, "Primary languages: "+strings.Join(p.Languages[:min(len(p.Languages), maxLanguageTag)], ", "))
		}
	}
	if files := c.session.RelevantFiles(message, recentInChat); len(files) > 0 {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		parts = append(parts, "Relevant files: "+strings.Join(paths, ", "))
	}
	if background != "" {
		parts = append(parts, "Additional context: "+background)
	}
	return strings.Join(parts, "\n")
}

// preview truncates content to at most previewLength bytes, on a rune
// boundary.
func preview(content string) string {
	if len(content) <= previewLength {
		return content
	}
	n := previewLength
	for n > 0 && !utf8.RuneStart(content[n]) {
		n--
	}
	return content[:n] + "..."
}
