package transcript

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DedupKey is the identity used to detect the same message recovered twice.
func DedupKey(content string) string {
	return norm.NFC.String(strings.TrimSpace(content))
}

// Dedupe drops messages whose content key was already seen, keeping first-occurrence order.
// It returns the kept messages and the number removed.
func Dedupe(msgs []Message) ([]Message, int) {
	if len(msgs) == 0 {
		return nil, 0
	}
	seen := make(map[string]struct{}, len(msgs))
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		key := DedupKey(m.Content)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out, len(msgs) - len(out)
}
