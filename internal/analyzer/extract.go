package analyzer

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxSuggestions caps ExtractSuggestions.
const MaxSuggestions = 10

var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`score[:\s]+(\d+)(?:/10)?`),
	regexp.MustCompile(`quality[:\s]+(\d+)(?:/10)?`),
	regexp.MustCompile(`rating[:\s]+(\d+)(?:/10)?`),
}

// ExtractScore finds a "score: N", "quality: N" or "rating: N" figure in a
// review, or returns 0.
func ExtractScore(text string) int {
	lower := strings.ToLower(text)
	for _, re := range scorePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n
			}
		}
	}
	return 0
}

var suggestionPrefixes = []string{
	"1.", "2.", "3.", "4.", "5.", "-", "*", "•",
	"Suggestion", "Recommendation", "Consider",
}

// ExtractSuggestions returns up to MaxSuggestions list or advice lines.
func ExtractSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, p := range suggestionPrefixes {
			if strings.HasPrefix(line, p) {
				out = append(out, line)
				break
			}
		}
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
