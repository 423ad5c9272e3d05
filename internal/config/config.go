// Package config loads application configuration from a YAML file overlaid
// with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/discochess/codeassist/internal/security"
)

// ErrInvalid is wrapped by every load and validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the full application configuration.
type Config struct {
	OpenAIAPIKey    string `yaml:"openai_api_key,omitempty"`
	AnthropicAPIKey string `yaml:"anthropic_api_key,omitempty"`

	Model       ModelConfig       `yaml:"model"`
	Project     ProjectConfig     `yaml:"project"`
	Agent       AgentConfig       `yaml:"agent"`
	Performance PerformanceConfig `yaml:"performance"`
	Session     SessionConfig     `yaml:"session"`
	Security    security.Config   `yaml:"security"`
}

// ModelConfig selects and tunes the model.
type ModelConfig struct {
	Name        string        `yaml:"name" validate:"required"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=1,lte=200000"`
	Temperature float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// ProjectConfig controls project scanning.
type ProjectConfig struct {
	Root            string   `yaml:"root" validate:"required"`
	IgnorePatterns  []string `yaml:"ignore_patterns"`
	IncludePatterns []string `yaml:"include_patterns"`
	MaxFileSize     int64    `yaml:"max_file_size" validate:"gte=1"`
}

// AgentConfig controls assistant behaviour.
type AgentConfig struct {
	Debug         bool `yaml:"debug"`
	Verbose       bool `yaml:"verbose"`
	AutoSave      bool `yaml:"auto_save"`
	ContextWindow int  `yaml:"context_window" validate:"gte=1"`
	EnableTools   bool `yaml:"enable_tools"`
}

// PerformanceConfig sizes the cache, limiter, batcher and watchdog.
type PerformanceConfig struct {
	EnableCache    bool          `yaml:"enable_cache"`
	CacheEntries   int           `yaml:"cache_entries" validate:"gte=1"`
	CacheMemoryMB  int64         `yaml:"cache_memory_mb" validate:"gte=1"`
	CacheTTL       time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	MaxConcurrent  int           `yaml:"max_concurrent" validate:"gte=1"`
	BatchSize      int           `yaml:"batch_size" validate:"gte=1"`
	BatchMaxWait   time.Duration `yaml:"batch_max_wait" validate:"gt=0"`
	EnableWatchdog bool          `yaml:"enable_watchdog"`
	MaxMemoryMB    uint64        `yaml:"max_memory_mb" validate:"gte=1"`
	MaxCPUPercent  float64       `yaml:"max_cpu_percent" validate:"gt=0,lte=100"`
}

// SessionConfig selects where session snapshots are stored.
type SessionConfig struct {
	Backend  string `yaml:"backend" validate:"oneof=memory disk badger s3 gcs minio"`
	Codec    string `yaml:"codec" validate:"oneof=zstd gzip lz4 none"`
	Dir      string `yaml:"dir" validate:"required_if=Backend disk,required_if=Backend badger"`
	Bucket   string `yaml:"bucket" validate:"required_if=Backend s3,required_if=Backend gcs,required_if=Backend minio"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" validate:"required_if=Backend minio"`
	Secure   bool   `yaml:"secure,omitempty"`

	// MinIO credentials come from the environment only.
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name:        "gpt-4",
			MaxTokens:   4000,
			Temperature: 0.1,
			Timeout:     30 * time.Second,
		},
		Project: ProjectConfig{
			Root:            ".",
			IgnorePatterns:  []string{"__pycache__", "*.pyc", ".git", "node_modules", "*.log"},
			IncludePatterns: []string{"*.py", "*.js", "*.ts", "*.java", "*.cpp", "*.c", "*.h", "*.go"},
			MaxFileSize:     1 << 20,
		},
		Agent: AgentConfig{
			AutoSave:      true,
			ContextWindow: 10,
			EnableTools:   true,
		},
		Performance: PerformanceConfig{
			EnableCache:    true,
			CacheEntries:   1000,
			CacheMemoryMB:  100,
			CacheTTL:       time.Hour,
			MaxConcurrent:  10,
			BatchSize:      10,
			BatchMaxWait:   100 * time.Millisecond,
			EnableWatchdog: true,
			MaxMemoryMB:    1024,
			MaxCPUPercent:  80,
		},
		Session: SessionConfig{
			Backend: "disk",
			Codec:   "zstd",
			Dir:     ".codeassist/sessions",
		},
		Security: security.DefaultConfig(),
	}
}

// Load reads path (if non-empty) over the defaults, applies the process
// environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalid, path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through lookup.
// Booleans are true only for a case-insensitive "true".
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.EqualFold(v, "true")
		}
	}
	var errs []error
	integer := func(key string, set func(int64)) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
			return
		}
		set(n)
	}

	str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	str("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	str("DEFAULT_MODEL", &c.Model.Name)
	integer("MAX_TOKENS", func(n int64) { c.Model.MaxTokens = int(n) })
	if v, ok := lookup("TEMPERATURE"); ok && v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("TEMPERATURE=%q: %w", v, err))
		} else {
			c.Model.Temperature = float32(t)
		}
	}
	integer("TIMEOUT", func(n int64) { c.Model.Timeout = time.Duration(n) * time.Second })
	str("PROJECT_ROOT", &c.Project.Root)
	if v, ok := lookup("IGNORE_PATTERNS"); ok && v != "" {
		c.Project.IgnorePatterns = splitList(v)
	}
	integer("MAX_FILE_SIZE", func(n int64) { c.Project.MaxFileSize = n })
	boolean("DEBUG", &c.Agent.Debug)
	boolean("VERBOSE", &c.Agent.Verbose)
	boolean("AUTO_SAVE", &c.Agent.AutoSave)
	integer("CONTEXT_WINDOW", func(n int64) { c.Agent.ContextWindow = int(n) })
	boolean("ENABLE_TOOLS", &c.Agent.EnableTools)
	str("SESSION_BACKEND", &c.Session.Backend)
	str("SESSION_DIR", &c.Session.Dir)
	str("SESSION_BUCKET", &c.Session.Bucket)
	str("MINIO_ACCESS_KEY", &c.Session.AccessKey)
	str("MINIO_SECRET_KEY", &c.Session.SecretKey)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Save writes c to path as YAML. API keys are never written.
func (c *Config) Save(path string) error {
	out := *c
	out.OpenAIAPIKey = ""
	out.AnthropicAPIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// APIKey returns the key for the named provider ("openai" or "anthropic").
func (c *Config) APIKey(providerName string) string {
	switch providerName {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}
