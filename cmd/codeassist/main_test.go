package main

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/discochess/codeassist"
)

func TestMask(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", ""},
		{"sk-0123456789abcdef", "sk-0...cdef"},
	}
	for _, tt := range tests {
		if got := mask(tt.key); got != tt.want {
			t.Errorf("mask(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	t.Setenv("DEFAULT_MODEL", "")
	dir := t.TempDir()
	t.Chdir(dir)

	configPath, modelName, verbose = defaultConfigPath, "claude-3-5-sonnet", true
	t.Cleanup(func() { configPath, modelName, verbose = defaultConfigPath, "", false })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Model.Name != "claude-3-5-sonnet" {
		t.Errorf("Model.Name = %q, want the --model value", cfg.Model.Name)
	}
	if !cfg.Agent.Verbose {
		t.Error("Agent.Verbose = false, want true from --verbose")
	}

	configPath = filepath.Join(dir, "missing.yaml")
	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() with an explicit missing file error = nil")
	}
}

func TestParseParams(t *testing.T) {
	got := parseParams([]string{"v:int", " lo : int ", "opts"})
	want := []codeassist.Param{{Name: "v", Type: "int"}, {Name: "lo", Type: "int"}, {Name: "opts"}}
	if !slices.Equal(got, want) {
		t.Errorf("parseParams() = %+v, want %+v", got, want)
	}
}

func TestParseMethods(t *testing.T) {
	got := parseMethods([]string{"Push:v int", "Pop", "Swap:i int, j int,"})
	if len(got) != 3 {
		t.Fatalf("parseMethods() returned %d methods, want 3", len(got))
	}
	if got[0].Name != "Push" || !slices.Equal(got[0].Params, []string{"v int"}) {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Name != "Pop" || got[1].Params != nil {
		t.Errorf("got[1] = %+v", got[1])
	}
	if !slices.Equal(got[2].Params, []string{"i int", "j int"}) {
		t.Errorf("got[2].Params = %q", got[2].Params)
	}
}
