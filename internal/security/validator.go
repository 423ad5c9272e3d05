// Package security validates and sanitizes user input, file paths, API keys
// and code before it reaches a provider.
package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/discochess/codeassist/internal/lang"
)

// Kind selects type-specific validation rules.
type Kind string

const (
	KindGeneral      Kind = "general"
	KindFilename     Kind = "filename"
	KindVariableName Kind = "variable_name"
	KindCode         Kind = "code"
	KindDescription  Kind = "description"
	KindMessage      Kind = "message"
)

// Config controls the validator.
type Config struct {
	APIKeyValidation  bool     `yaml:"api_key_validation"`
	InputSanitization bool     `yaml:"input_sanitization"`
	MaxInputSize      int      `yaml:"max_input_size" validate:"gte=1"`
	AllowedFileTypes  []string `yaml:"allowed_file_types" validate:"dive,startswith=."`
}

// DefaultConfig returns the default validator settings.
func DefaultConfig() Config {
	return Config{
		APIKeyValidation:  true,
		InputSanitization: true,
		MaxInputSize:      10000,
		AllowedFileTypes:  []string{".py", ".js", ".ts", ".java", ".cpp", ".c", ".h", ".go", ".md", ".txt"},
	}
}

// ValidationResult is the outcome of a validation. It is data, not an error.
type ValidationResult struct {
	Valid     bool
	Errors    []string
	Warnings  []string
	Sanitized string // set only when Valid
}

func invalid(warnings []string, errs ...string) ValidationResult {
	return ValidationResult{Errors: errs, Warnings: warnings}
}

var dangerousPatterns = compileAll(
	// command injection
	"[;&|`$(){}\\[\\]<>]",
	`(?:rm|del|format|sudo|su)\s`,
	`(?:eval|exec|system|shell_exec)\s*\(`,
	// path traversal
	`\.\./`,
	`\.\.\\`,
	`/etc/`,
	`/proc/`,
	`/sys/`,
	// SQL injection
	`(?:union|select|insert|update|delete|drop|alter)\s+`,
	`(?:or|and)\s+\d+\s*=\s*\d+`,
	`['"];?\s*(?:or|and|union)`,
	// script injection
	`<script[^>]*>`,
	`javascript:`,
	`onclick\s*=`,
	`onerror\s*=`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?im)` + p)
	}
	return out
}

var (
	filenameRE     = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	variableNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	singleLetterRE = regexp.MustCompile(`\b[a-zA-Z]\b`)
)

var reservedNames = []string{
	"con", "prn", "aux", "nul",
	"com1", "com2", "com3", "com4", "com5", "com6", "com7", "com8", "com9",
	"lpt1", "lpt2", "lpt3", "lpt4", "lpt5", "lpt6", "lpt7", "lpt8", "lpt9",
}

// Validator checks inputs against a Config.
type Validator struct {
	cfg Config
}

// NewValidator returns a Validator for cfg.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// DangerousPatterns returns a description of every dangerous pattern found
// in text.
func DangerousPatterns(text string) []string {
	var found []string
	for i, re := range dangerousPatterns {
		if re.MatchString(text) {
			found = append(found, fmt.Sprintf("pattern %d: %s", i+1, strings.TrimPrefix(re.String(), "(?im)")))
		}
	}
	return found
}

// ValidateInput checks size, emptiness, dangerous patterns and kind-specific
// rules. Dangerous patterns are errors for general, filename and variable
// name input, and warnings for code, descriptions and messages, where
// punctuation is expected.
func (v *Validator) ValidateInput(input string, kind Kind) ValidationResult {
	if n := len(input); n > v.cfg.MaxInputSize {
		return invalid(nil, fmt.Sprintf("input too large: %d > %d", n, v.cfg.MaxInputSize))
	}
	if strings.TrimSpace(input) == "" {
		return invalid(nil, "input cannot be empty or whitespace only")
	}

	var errs, warnings []string
	for _, p := range DangerousPatterns(input) {
		switch kind {
		case KindCode, KindDescription, KindMessage:
			warnings = append(warnings, "potentially dangerous pattern: "+p)
		default:
			errs = append(errs, "dangerous pattern detected: "+p)
		}
	}

	switch kind {
	case KindFilename:
		if !filenameRE.MatchString(input) {
			errs = append(errs, "invalid characters in filename")
		}
		if len(input) > 255 {
			errs = append(errs, "filename too long")
		}
	case KindVariableName:
		if !variableNameRE.MatchString(input) {
			errs = append(errs, "invalid variable name format")
		}
	case KindCode:
		if strings.Count(input, "\n")+1 > 10000 {
			warnings = append(warnings, "very large code file")
		}
		if Obfuscated(input) {
			warnings = append(warnings, "potentially obfuscated code detected")
		}
	case KindDescription:
		if len(input) > 5000 {
			warnings = append(warnings, "very long description")
		}
	}

	if len(errs) > 0 {
		return invalid(warnings, errs...)
	}

	sanitized := input
	if v.cfg.InputSanitization {
		sanitized = Sanitize(input, kind)
	}
	return ValidationResult{Valid: true, Warnings: warnings, Sanitized: sanitized}
}

// ValidateFilePath checks a path for traversal, disallowed extensions and
// reserved device names.
func (v *Validator) ValidateFilePath(path string) ValidationResult {
	if path == "" {
		return invalid(nil, "file path cannot be empty")
	}

	var errs, warnings []string
	if strings.Contains(path, "..") {
		errs = append(errs, "path traversal detected (..)")
	}
	if filepath.IsAbs(path) {
		warnings = append(warnings, "absolute path provided")
	}

	base := filepath.Base(path)
	// A leading dot names a hidden file, not an extension.
	ext := filepath.Ext(strings.TrimPrefix(base, "."))
	if ext != "" && !slices.Contains(v.cfg.AllowedFileTypes, strings.ToLower(ext)) {
		errs = append(errs, "file type not allowed: "+strings.ToLower(ext))
	}
	stem := strings.TrimSuffix(base, ext)
	if slices.Contains(reservedNames, strings.ToLower(stem)) {
		errs = append(errs, "reserved file name: "+stem)
	}
	if strings.HasPrefix(base, ".") && base != ".env" && base != ".gitignore" {
		warnings = append(warnings, "hidden file detected")
	}

	if len(errs) > 0 {
		return invalid(warnings, errs...)
	}
	return ValidationResult{Valid: true, Warnings: warnings, Sanitized: filepath.Clean(path)}
}

// ValidateAPIKey checks the key format expected by providerName.
// It always succeeds when API key validation is disabled.
func (v *Validator) ValidateAPIKey(key, providerName string) bool {
	if !v.cfg.APIKeyValidation {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}

	switch strings.ToLower(providerName) {
	case "openai":
		return strings.HasPrefix(key, "sk-") && len(key) >= 20
	case "anthropic":
		return strings.HasPrefix(key, "sk-ant-") && len(key) >= 20
	}
	if len(key) < 20 {
		return false
	}
	for _, r := range key {
		if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// ValidateCode runs the code input checks plus language-specific rules.
func (v *Validator) ValidateCode(code string, language lang.Language) ValidationResult {
	res := v.ValidateInput(code, KindCode)
	if !res.Valid {
		return res
	}

	var errs []string
	warnings := res.Warnings
	switch language {
	case lang.Python:
		for _, fn := range []string{
			"os.system", "subprocess.call", "subprocess.run", "subprocess.Popen",
			"eval", "exec", "__import__", "compile", "open",
			"pickle.loads", "marshal.loads", "shelve.open",
		} {
			if strings.Contains(code, fn) {
				warnings = append(warnings, "potentially dangerous Python function: "+fn)
			}
		}
		for _, call := range []string{"eval(", "exec(", "compile("} {
			if strings.Contains(code, call) {
				errs = append(errs, "dynamic code execution detected: "+call)
			}
		}
	case lang.JavaScript, lang.TypeScript:
		for _, fn := range []string{
			"eval(", "Function(", "setTimeout(", "setInterval(",
			"document.write(", "innerHTML", "outerHTML",
		} {
			if strings.Contains(code, fn) {
				warnings = append(warnings, "potentially dangerous JavaScript function: "+fn)
			}
		}
		lower := strings.ToLower(code)
		for _, p := range []string{"<script", "javascript:", "onclick=", "onerror="} {
			if strings.Contains(lower, p) {
				errs = append(errs, "potential XSS pattern detected: "+p)
			}
		}
	}

	if len(errs) > 0 {
		return invalid(warnings, errs...)
	}
	res.Warnings = warnings
	return res
}

// Obfuscated reports whether code looks machine-obfuscated: heavy string
// concatenation, many escape sequences, or a glut of single-letter names.
func Obfuscated(code string) bool {
	if strings.Count(code, "+") > len(code)/50 {
		return true
	}
	if strings.Count(code, `\x`) > 10 || strings.Count(code, `\u`) > 10 {
		return true
	}
	return len(singleLetterRE.FindAllStringIndex(code, -1)) > len(code)/100
}

// Sanitize removes NUL bytes and normalizes line endings. Description and
// message lines longer than 1000 bytes are truncated with an ellipsis.
func Sanitize(input string, kind Kind) string {
	s := strings.ReplaceAll(input, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	if kind != KindDescription && kind != KindMessage {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if len(line) > 1000 {
			lines[i] = line[:1000] + "..."
		}
	}
	return strings.Join(lines, "\n")
}
