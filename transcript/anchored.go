package transcript

import (
	"encoding/json"
	"regexp"
	"strings"
)

// anchoredRecordRE matches one message record in a captured app-state array dump:
// the quoted text, a fixed run of seven nulls, then the role token.
//
// A literal `",null,null,null,null,null,null,null,"` inside the text ends the match early.
var anchoredRecordRE = regexp.MustCompile(`\["([\s\S]*?)",null,null,null,null,null,null,null,"(user|model)"`)

const thoughtsToggle = "Expand to view model thoughts"

// AnchoredResult is the output of ExtractAnchored.
type AnchoredResult struct {
	// Applicable reports whether the text looks like an array state dump at all.
	Applicable bool

	// Records is the number of anchor matches. Zero with Applicable set is a silent
	// false negative worth reporting.
	Records int

	// PartialDecodes counts records whose escapes failed to decode; their raw text is kept.
	PartialDecodes int

	Messages []Message
}

// ExtractAnchored recovers messages from an embedded array structure by anchored matching.
func ExtractAnchored(text string) AnchoredResult {
	res := AnchoredResult{Applicable: looksLikeArrayDump(text)}

	for _, m := range anchoredRecordRE.FindAllStringSubmatch(text, -1) {
		res.Records++

		content, ok := decodeJSONStringBody(m[1])
		if !ok {
			res.PartialDecodes++
			content = m[1]
		}
		content = strings.TrimSpace(strings.ReplaceAll(content, thoughtsToggle, ""))
		if content == "" {
			continue
		}

		role := RoleUser
		if m[2] == "model" {
			role = RoleAssistant
		}
		res.Messages = append(res.Messages, Message{Role: role, Content: content})
	}
	return res
}

// decodeJSONStringBody decodes s as the inside of a JSON string literal.
func decodeJSONStringBody(s string) (string, bool) {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return "", false
	}
	return out, true
}

// looksLikeArrayDump reports whether text carries positional records: a string array
// element, a bare null element and a role token.
func looksLikeArrayDump(text string) bool {
	if !strings.Contains(text, ",null,") && !strings.Contains(text, ",null]") {
		return false
	}
	if !strings.Contains(text, `"user"`) && !strings.Contains(text, `"model"`) {
		return false
	}
	return strings.Contains(text, `["`) || strings.Contains(text, "[[")
}
