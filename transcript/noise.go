package transcript

import (
	"regexp"
	"strings"
)

var imageOnlyLineRE = regexp.MustCompile(`^!\[.*\]\(.*\)$`)

// NoiseFilter removes known UI-chrome lines from message content.
// It is deny-list based: lines that are not in the table are always kept.
type NoiseFilter struct {
	lines      map[string]struct{}
	watermarks []string
}

// NewNoiseFilter builds a filter from the rules' noise tables.
func NewNoiseFilter(rules Rules) NoiseFilter {
	lines := make(map[string]struct{}, len(rules.NoiseLines))
	for _, l := range rules.NoiseLines {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			lines[l] = struct{}{}
		}
	}
	return NoiseFilter{lines: lines, watermarks: append([]string(nil), rules.WatermarkImages...)}
}

// Clean returns msg with noise lines removed. The bool is false when nothing is left
// and the message should be dropped.
func (f NoiseFilter) Clean(msg Message) (Message, bool) {
	content := f.CleanText(msg.Content)
	if content == "" {
		return Message{}, false
	}
	return Message{Role: msg.Role, Content: content}, true
}

// CleanText applies the line filter to free text and trims the result.
func (f NoiseFilter) CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// Blank lines carry paragraph structure.
			kept = append(kept, line)
			continue
		}
		if _, ok := f.lines[strings.ToLower(trimmed)]; ok {
			continue
		}
		if f.isWatermarkImage(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func (f NoiseFilter) isWatermarkImage(line string) bool {
	if !imageOnlyLineRE.MatchString(line) {
		return false
	}
	for _, w := range f.watermarks {
		if w != "" && strings.Contains(line, w) {
			return true
		}
	}
	return false
}
