package transcript

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/theimaginaryfoundation/chat-distill/transcript/htmltext"
)

// HTMLResult is the output of ExtractHTML.
type HTMLResult struct {
	Title    string
	Messages []Message

	// Via names the branch that produced the messages: "next_data", "headers" or "markers".
	Via string

	// Headers counts role headers matched in the linear text.
	Headers int

	// Markers counts role markers matched by the line segmenter, for the "markers" branch.
	Markers int

	// OversizedSegments counts segments dropped for exceeding the segment cap.
	OversizedSegments int

	// Linear is the linearized page text, kept for the anchored pass.
	Linear string
}

var (
	tokenCounterRE = regexp.MustCompile(`\d+,\d+\s+tokens`)
	accountLineRE  = regexp.MustCompile(`\S+@\S+\.(com|net|org|io)\b`)
)

const nextDataScriptID = "__NEXT_DATA__"

// ExtractHTML linearizes an HTML page and splits it on role headers. Embedded
// __NEXT_DATA__ JSON is tried first. When no header matches, the line-based segmenter runs
// over the linear text; an unclassified result yields ErrUnclassified alongside the
// partial HTMLResult.
func ExtractHTML(src string, rules Rules) (HTMLResult, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return HTMLResult{}, fmt.Errorf("ExtractHTML: parse: %w", err)
	}
	res := HTMLResult{Title: htmltext.Title(doc)}

	if raw, ok := htmltext.ScriptByID(doc, nextDataScriptID); ok {
		if msgs := nextDataMessages(raw, rules); len(msgs) > 0 {
			res.Messages = msgs
			res.Via = "next_data"
			return res, nil
		}
	}

	res.Linear = htmltext.Linearize(doc)

	split := splitOnHeaders(res.Linear, rules)
	if len(split.roles) > 0 {
		res.Headers = len(split.roles)
		res.Via = "headers"
		maxChars := rules.HTMLSegmentMaxChars

		if opening, ok := openingTurn(split.prefix); ok {
			if maxChars > 0 && utf8.RuneCountInString(opening) > maxChars {
				res.OversizedSegments++
			} else {
				res.Messages = append(res.Messages, Message{Role: RoleUser, Content: opening})
			}
		}
		for i, role := range split.roles {
			content := strings.TrimSpace(split.bodies[i])
			if content == "" {
				continue
			}
			if maxChars > 0 && utf8.RuneCountInString(content) > maxChars {
				res.OversizedSegments++
				continue
			}
			res.Messages = append(res.Messages, Message{Role: role, Content: content})
		}
		return res, nil
	}

	seg := SegmentText(res.Linear, rules)
	res.Markers = seg.Markers
	if !seg.Classified() {
		return res, fmt.Errorf("ExtractHTML: %w", ErrUnclassified)
	}
	res.Via = "markers"
	res.Messages = seg.Messages
	return res, nil
}

func nextDataMessages(raw string, rules Rules) []Message {
	root, err := ParseOrderedJSON([]byte(raw))
	if err != nil {
		return nil
	}
	p := FindConversation(root, DefaultMaxDepth)
	if p.Kind == PayloadNone || p.Kind == PayloadLink {
		return nil
	}
	_, msgs, err := PayloadDecoder{Rules: rules}.Decode(p)
	if err != nil {
		return nil
	}
	return msgs
}

type headerSplit struct {
	prefix string
	roles  []Role
	bodies []string
}

// headerPattern builds the tolerant role-header pattern: a line holding only one of the
// header words, optionally bolded.
func headerPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\n\s*(?:\*\*)?(` + strings.Join(quoted, "|") + `)(?:\*\*)?\s*\n`)
}

func splitOnHeaders(linear string, rules Rules) headerSplit {
	re := headerPattern(rules.HeaderWords)
	if re == nil {
		return headerSplit{prefix: linear}
	}
	text := "\n" + linear + "\n"
	idx := re.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return headerSplit{prefix: linear}
	}

	out := headerSplit{prefix: text[:idx[0][0]]}
	for i, m := range idx {
		role := NormalizeRole(text[m[2]:m[3]])
		if role == "" {
			role = RoleUser
		}
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		out.roles = append(out.roles, role)
		// The match consumed the newline that ends the header line.
		out.bodies = append(out.bodies, text[m[1]:end])
	}
	return out
}

// openingTurn returns the text before the first header when it holds a title-like line:
// a "# " heading, or the line after the account email line.
func openingTurn(prefix string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(prefix), "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			start = i
			break
		}
		if accountLineRE.MatchString(trimmed) {
			start = i + 1
		}
	}
	if start < 0 || start >= len(lines) {
		return "", false
	}
	opening := strings.Join(lines[start:], "\n")
	opening = strings.TrimSpace(tokenCounterRE.ReplaceAllString(opening, ""))
	if opening == "" {
		return "", false
	}
	return opening, true
}
