package codeassist

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/lang"
	"github.com/discochess/codeassist/internal/session"
)

// manifests are dependency files recognized at the project root.
var manifests = []string{
	"requirements.txt",
	"pyproject.toml",
	"package.json",
	"Cargo.toml",
	"go.mod",
	"pom.xml",
}

// AnalyzeProject scans the project at root and records it in the session.
func (c *Client) AnalyzeProject(ctx context.Context, root string) (*ProjectAnalysis, error) {
	return run(ctx, c, "analyze_project", func(ctx context.Context) (*ProjectAnalysis, error) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("reading project: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("reading project: %s is not a directory", abs)
		}

		pa, err := scanProject(ctx, abs, c.project)
		if err != nil {
			return nil, err
		}
		pa.Project.LastAnalyzed = time.Now()
		c.remember(c.session.SetProject(ctx, pa.Project))

		c.logger.Info("project analyzed",
			zap.String("root", abs),
			zap.Int("files", pa.Project.FileCount),
			zap.Int("skipped", pa.Skipped),
			zap.Strings("languages", pa.Project.Languages),
		)
		return pa, nil
	})
}

// scanProject walks root and summarizes the files that pass f.
func scanProject(ctx context.Context, root string, f ProjectFilter) (*ProjectAnalysis, error) {
	pa := &ProjectAnalysis{Project: session.Project{
		RootPath:  root,
		Name:      filepath.Base(root),
		Structure: make(map[string]int),
	}}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ignored(rel, f.Ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !included(d.Name(), f.Include) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if f.MaxFileSize > 0 && info.Size() > f.MaxFileSize {
			pa.Skipped++
			return nil
		}

		pa.Project.FileCount++
		pa.Project.TotalSize += info.Size()
		if l := lang.Detect(p); l != lang.Text {
			pa.Project.Structure[l.String()]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	for l := range pa.Project.Structure {
		pa.Project.Languages = append(pa.Project.Languages, l)
	}
	// Most used first, then by name.
	slices.SortFunc(pa.Project.Languages, func(a, b string) int {
		if n := pa.Project.Structure[b] - pa.Project.Structure[a]; n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})

	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(root, m)); err == nil {
			pa.Project.Dependencies = append(pa.Project.Dependencies, m)
		}
	}
	return pa, nil
}

// ignored reports whether any pattern matches the base name or the whole
// slash-separated relative path.
func ignored(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func included(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
