package transcript

import (
	"unicode"
	"unicode/utf8"
)

// lowConfidence reports content that fails the post-hoc sanity check: excessive length or
// too many non-text runes. The reason is suitable for logging.
func lowConfidence(content string, rules Rules) (bool, string) {
	n := utf8.RuneCountInString(content)
	if rules.MessageMaxChars > 0 && n > rules.MessageMaxChars {
		return true, "excessive length"
	}
	if rules.MaxNonTextRatio > 0 && n > 0 {
		if float64(countNonText(content))/float64(n) > rules.MaxNonTextRatio {
			return true, "non-text ratio"
		}
	}
	return false, ""
}

func countNonText(s string) int {
	bad := 0
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			bad++
		case unicode.IsControl(r) && !unicode.IsSpace(r):
			bad++
		case unicode.In(r, unicode.Co):
			bad++
		}
	}
	return bad
}
