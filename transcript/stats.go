package transcript

import (
	"unicode/utf8"
)

// CharsPerToken is the rough mixed-language ratio used for token estimates.
const CharsPerToken = 2.5

// ResultStats summarizes one extraction result.
type ResultStats struct {
	File            string  `json:"file"`
	Turns           int     `json:"turns"`
	UserTurns       int     `json:"user_turns"`
	AssistantTurns  int     `json:"assistant_turns"`
	Chars           int     `json:"chars"`
	EstimatedTokens int     `json:"estimated_tokens"`
	LongestRole     Role    `json:"longest_role,omitempty"`
	LongestChars    int     `json:"longest_chars"`
	Longest         string  `json:"-"`
	AvgChars        float64 `json:"avg_chars"`
}

// Stats computes per-result counts. Characters are counted in runes.
func Stats(r ExtractionResult) ResultStats {
	st := ResultStats{File: r.File, Turns: len(r.Messages)}
	for _, m := range r.Messages {
		n := utf8.RuneCountInString(m.Content)
		st.Chars += n
		switch m.Role {
		case RoleUser:
			st.UserTurns++
		case RoleAssistant:
			st.AssistantTurns++
		}
		if n > st.LongestChars {
			st.LongestChars = n
			st.LongestRole = m.Role
			st.Longest = m.Content
		}
	}
	st.EstimatedTokens = EstimateTokens(st.Chars)
	if st.Turns > 0 {
		st.AvgChars = float64(st.Chars) / float64(st.Turns)
	}
	return st
}

// EstimateTokens converts a character count to a rough token count.
func EstimateTokens(chars int) int {
	return int(float64(chars) / CharsPerToken)
}
