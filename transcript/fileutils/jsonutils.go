package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DecodeModelJSON unmarshals JSON from a model response. Models sometimes wrap the JSON in
// prose or code fences, so on a failed fast path the outermost object or array is tried.
func DecodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	sub, ok := outermostJSON(s)
	if !ok {
		return fmt.Errorf("no JSON value found in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}

func outermostJSON(s string) (string, bool) {
	type span struct{ open, close byte }
	best := ""
	for _, sp := range []span{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(s, sp.open)
		end := strings.LastIndexByte(s, sp.close)
		if start == -1 || end <= start {
			continue
		}
		if cand := s[start : end+1]; len(cand) > len(best) {
			best = cand
		}
	}
	return best, best != ""
}
