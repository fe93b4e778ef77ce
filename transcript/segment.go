package transcript

import (
	"strings"
	"unicode/utf8"
)

// Segmentation is the output of Segment.
type Segmentation struct {
	Messages []Message

	// Markers counts role-marker lines seen.
	Markers int

	// EarlyFlushes counts buffers closed by the length trigger.
	EarlyFlushes int
}

// Classified reports whether at least one role marker matched.
// An unclassified stream means parsing failed, not an empty conversation.
func (s Segmentation) Classified() bool {
	return s.Markers > 0
}

// SegmentText splits text into lines and segments them.
func SegmentText(text string, rules Rules) Segmentation {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return Segment(strings.Split(text, "\n"), rules)
}

// Segment partitions a line stream into messages at role-marker lines.
//
// Lines before the first marker are discarded. When rules.FlushChars > 0 a buffer is also
// closed once it reaches that many characters and the latest line ends a sentence; the next
// buffer continues under the same role.
func Segment(lines []string, rules Rules) Segmentation {
	c := newClassifier(rules)

	var (
		out    Segmentation
		role   Role
		open   bool
		buf    []string
		bufLen int
	)

	flush := func() {
		if !open {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if content != "" {
			out.Messages = append(out.Messages, Message{Role: role, Content: content})
		}
		buf = buf[:0]
		bufLen = 0
	}

	for _, line := range lines {
		if r, rest, ok := c.classify(line); ok {
			flush()
			out.Markers++
			role = r
			open = true
			if rest == "" {
				continue
			}
			line = rest
		} else if !open {
			continue
		}
		buf = append(buf, line)
		bufLen += utf8.RuneCountInString(line)

		if rules.FlushChars > 0 && bufLen >= rules.FlushChars && endsSentence(line) {
			flush()
			out.EarlyFlushes++
		}
	}
	flush()

	return out
}

func endsSentence(line string) bool {
	line = strings.TrimRight(line, " \t\"'”’)")
	if line == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(line)
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}
