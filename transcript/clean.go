package transcript

import (
	"go.uber.org/zap"
)

// CleanStats counts what Clean changed or dropped.
type CleanStats struct {
	Repaired      int `json:"repaired"`
	Unrepaired    int `json:"unrepaired"`
	NoiseDropped  int `json:"noise_dropped"`
	LowConfidence int `json:"low_confidence"`
	Duplicates    int `json:"duplicates"`
}

// Cleaner runs repair, noise filtering, the sanity check and dedupe over a message stream.
type Cleaner struct {
	rules  Rules
	noise  NoiseFilter
	logger *zap.Logger
}

// NewCleaner builds a Cleaner from rules. A nil logger discards output.
func NewCleaner(rules Rules, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{rules: rules, noise: NewNoiseFilter(rules), logger: logger}
}

// Clean returns the kept messages in first-occurrence order. Per-message problems are
// logged and counted; they never fail the stream.
func (c *Cleaner) Clean(msgs []Message) ([]Message, CleanStats) {
	var st CleanStats
	kept := make([]Message, 0, len(msgs))
	for i, m := range msgs {
		content, repaired := RepairEmbedded(m.Content)
		if repaired {
			st.Repaired++
		} else if looksLikeUnrepairedPayload(content) {
			st.Unrepaired++
			c.logger.Warn("embedded payload not repaired", zap.Int("index", i), zap.String("role", string(m.Role)))
		}
		m.Content = content

		cleaned, ok := c.noise.Clean(m)
		if !ok {
			st.NoiseDropped++
			continue
		}
		if low, reason := lowConfidence(cleaned.Content, c.rules); low {
			st.LowConfidence++
			c.logger.Warn("drop low-confidence message",
				zap.Int("index", i),
				zap.String("role", string(cleaned.Role)),
				zap.String("reason", reason),
				zap.Int("chars", len(cleaned.Content)),
			)
			continue
		}
		kept = append(kept, cleaned)
	}

	out, dups := Dedupe(kept)
	st.Duplicates = dups
	if out == nil {
		out = []Message{}
	}
	return out, st
}
