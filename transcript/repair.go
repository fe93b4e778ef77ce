package transcript

import (
	"regexp"
	"strings"
)

// embeddedPayloadRE captures the message text out of a leaked app payload of the shape
// `...],["<text>",null,[...`.
var embeddedPayloadRE = regexp.MustCompile(`(?s)\],\["(.*?)",null,\[`)

const embeddedPayloadHint = "prompts/"

// RepairEmbedded rewrites content that still carries a serialized app payload
// (recognized by a "prompts/" resource path) to the message text inside it.
// The bool reports whether content was rewritten.
func RepairEmbedded(content string) (string, bool) {
	if !strings.Contains(content, embeddedPayloadHint) {
		return content, false
	}
	m := embeddedPayloadRE.FindStringSubmatch(content)
	if len(m) != 2 {
		return content, false
	}
	clean := m[1]
	if clean == content {
		return content, false
	}
	return clean, true
}

// looksLikeUnrepairedPayload reports content that starts with a resource path but did not match.
func looksLikeUnrepairedPayload(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), embeddedPayloadHint)
}
