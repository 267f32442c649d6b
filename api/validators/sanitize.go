package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CleanText strips control characters (newlines and tabs survive) and surrounding
// space, then truncates to maxRunes runes when maxRunes is positive.
func CleanText(s string, maxRunes int) string {
	if strings.IndexFunc(s, isStrippedControl) >= 0 {
		s = strings.Map(func(r rune) rune {
			if isStrippedControl(r) {
				return -1
			}
			return r
		}, s)
	}
	s = strings.TrimSpace(s)
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxRunes]))
	}
	return s
}

func isStrippedControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}
