package codeassist

import (
	"context"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/discochess/codeassist/internal/provider/memprovider"
)

func TestClient_AnalyzeProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "internal/util/util.go", "package util\n")
	writeFile(t, dir, "scripts/app.py", "print('hi')\n")
	writeFile(t, dir, "node_modules/dep/index.js", "module.exports = 1\n")
	writeFile(t, dir, "build.log", "ok\n")
	writeFile(t, dir, "big.go", "package main\n"+strings.Repeat("// padding\n", 20))
	writeFile(t, dir, "go.mod", "module example.com/demo\n")

	c := newClient(t, memprovider.New(), WithProjectFilter(ProjectFilter{
		Include:     []string{"*.go", "*.py", "*.js", "*.log"},
		Ignore:      []string{"node_modules", "*.log"},
		MaxFileSize: 100,
	}))

	pa, err := c.AnalyzeProject(context.Background(), dir)
	if err != nil {
		t.Fatalf("AnalyzeProject() error = %v", err)
	}

	p := pa.Project
	if p.FileCount != 3 {
		t.Errorf("FileCount = %d, want 3", p.FileCount)
	}
	if pa.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", pa.Skipped)
	}
	if want := []string{"go", "python"}; !slices.Equal(p.Languages, want) {
		t.Errorf("Languages = %v, want %v", p.Languages, want)
	}
	if want := map[string]int{"go": 2, "python": 1}; !maps.Equal(p.Structure, want) {
		t.Errorf("Structure = %v, want %v", p.Structure, want)
	}
	if want := []string{"go.mod"}; !slices.Equal(p.Dependencies, want) {
		t.Errorf("Dependencies = %v, want %v", p.Dependencies, want)
	}
	if p.LastAnalyzed.IsZero() {
		t.Error("LastAnalyzed not set")
	}

	got, ok := c.Session().Project()
	if !ok || got.RootPath != p.RootPath {
		t.Errorf("session project = %+v, %v; want %s", got, ok, p.RootPath)
	}
	if !strings.Contains(pa.Summary(), "3 files") {
		t.Errorf("Summary() = %q", pa.Summary())
	}
}

func TestClient_AnalyzeProject_NotADirectory(t *testing.T) {
	file := writeFile(t, t.TempDir(), "main.go", "package main\n")
	c := newClient(t, memprovider.New())

	if _, err := c.AnalyzeProject(context.Background(), file); err == nil {
		t.Error("AnalyzeProject(file) error = nil, want an error")
	}
}

func TestIgnored(t *testing.T) {
	patterns := []string{".git", "*.pyc", "build/out"}
	tests := []struct {
		rel  string
		want bool
	}{
		{".git", true},
		{"sub/.git", true},
		{"pkg/cache.pyc", true},
		{"build/out", true},
		{"build/other", false},
		{"main.go", false},
	}
	for _, tt := range tests {
		if got := ignored(tt.rel, patterns); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestIncluded(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     bool
	}{
		{"main.go", []string{"*.go"}, true},
		{"main.rs", []string{"*.go", "*.py"}, false},
		{"anything", nil, true},
	}
	for _, tt := range tests {
		if got := included(tt.name, tt.patterns); got != tt.want {
			t.Errorf("included(%q, %v) = %v, want %v", tt.name, tt.patterns, got, tt.want)
		}
	}
}
