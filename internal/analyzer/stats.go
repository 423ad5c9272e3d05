package analyzer

import (
	"strings"

	"github.com/discochess/codeassist/internal/lang"
)

// BasicStats counts lines and characters.
type BasicStats struct {
	TotalLines        int
	NonEmptyLines     int
	CommentLines      int
	CodeLines         int
	CharacterCount    int
	AverageLineLength float64
}

var hashComments = map[lang.Language]bool{
	lang.Python:     true,
	lang.Ruby:       true,
	lang.Bash:       true,
	lang.YAML:       true,
	lang.PowerShell: true,
}

// commentPrefix returns the single-line comment marker for language.
func commentPrefix(language lang.Language) string {
	switch {
	case hashComments[language]:
		return "#"
	case language == lang.SQL:
		return "--"
	case language == lang.Text, language == lang.JSON, language == lang.HTML, language == lang.XML:
		return ""
	}
	return "//"
}

// Stats computes BasicStats for code.
func Stats(code string, language lang.Language) BasicStats {
	lines := strings.Split(code, "\n")
	prefix := commentPrefix(language)

	s := BasicStats{
		TotalLines:     len(lines),
		CharacterCount: len([]rune(code)),
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		s.NonEmptyLines++
		if prefix != "" && strings.HasPrefix(trimmed, prefix) {
			s.CommentLines++
		}
	}
	s.CodeLines = s.NonEmptyLines - s.CommentLines
	s.AverageLineLength = float64(s.CharacterCount) / float64(s.TotalLines)

	return s
}
