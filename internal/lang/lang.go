// Package lang names the programming languages the assistant understands.
package lang

import (
	"path/filepath"
	"strings"
)

// Language is a lower-case language identifier.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	CPP        Language = "cpp"
	C          Language = "c"
	CSharp     Language = "csharp"
	PHP        Language = "php"
	Ruby       Language = "ruby"
	Go         Language = "go"
	Rust       Language = "rust"
	Swift      Language = "swift"
	Kotlin     Language = "kotlin"
	Scala      Language = "scala"
	SQL        Language = "sql"
	HTML       Language = "html"
	CSS        Language = "css"
	SCSS       Language = "scss"
	JSON       Language = "json"
	XML        Language = "xml"
	YAML       Language = "yaml"
	Bash       Language = "bash"
	PowerShell Language = "powershell"
	Text       Language = "text"
)

var byExtension = map[string]Language{
	".py":    Python,
	".js":    JavaScript,
	".ts":    TypeScript,
	".java":  Java,
	".cpp":   CPP,
	".c":     C,
	".h":     C,
	".cs":    CSharp,
	".php":   PHP,
	".rb":    Ruby,
	".go":    Go,
	".rs":    Rust,
	".swift": Swift,
	".kt":    Kotlin,
	".scala": Scala,
	".sql":   SQL,
	".html":  HTML,
	".css":   CSS,
	".scss":  SCSS,
	".json":  JSON,
	".xml":   XML,
	".yaml":  YAML,
	".yml":   YAML,
	".sh":    Bash,
	".ps1":   PowerShell,
}

// Detect returns the language for path's extension, or Text.
func Detect(path string) Language {
	if l, ok := byExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return Text
}

// IsSource reports whether path has a known source extension.
func IsSource(path string) bool {
	_, ok := byExtension[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (l Language) String() string { return string(l) }
