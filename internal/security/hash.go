package security

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"
)

// HashContent returns the hex SHA-256 of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename makes name safe to use as a single path element.
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "_")
	s = strings.Map(func(r rune) rune {
		if r < 32 {
			return -1
		}
		return r
	}, s)

	if utf8.RuneCountInString(s) > 255 {
		stem, ext := s, ""
		if i := strings.LastIndexByte(s, '.'); i >= 0 {
			stem, ext = s[:i], s[i+1:]
		}
		if ext != "" {
			s = truncateRunes(stem, 255-utf8.RuneCountInString(ext)-1) + "." + ext
		} else {
			s = truncateRunes(stem, 255)
		}
	}

	if s == "" || s == "." {
		return "untitled"
	}
	return s
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
