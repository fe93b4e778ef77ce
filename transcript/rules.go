package transcript

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Marker maps a literal line prefix to a canonical role.
type Marker struct {
	Prefix string `yaml:"prefix"`
	Role   Role   `yaml:"role"`
}

// Rules holds the tables that drive classification and filtering.
// The zero value is not useful; start from DefaultRules.
type Rules struct {
	// Markers are line prefixes (matched case-insensitively after trimming).
	Markers []Marker

	// HeaderWords are the role headers recognized on their own line in linearized HTML.
	HeaderWords []string

	// NoiseLines are exact (trimmed, lower-cased) UI-chrome lines removed from content.
	NoiseLines []string

	// WatermarkImages are filenames whose markdown image-only lines are treated as noise.
	WatermarkImages []string

	// HTMLSegmentMaxChars drops HTML segments longer than this as corrupted boundary detection.
	HTMLSegmentMaxChars int

	// MessageMaxChars drops any message longer than this as low confidence.
	MessageMaxChars int

	// MaxNonTextRatio drops messages whose share of non-text runes exceeds it.
	MaxNonTextRatio float64

	// FlushChars enables the length-triggered early flush in the segmenter when > 0.
	FlushChars int
}

// DefaultRules returns the built-in tables.
func DefaultRules() Rules {
	return Rules{
		Markers: []Marker{
			{Prefix: "User:", Role: RoleUser},
			{Prefix: "Human:", Role: RoleUser},
			{Prefix: "Input:", Role: RoleUser},
			{Prefix: "Prompt:", Role: RoleUser},
			{Prefix: "You:", Role: RoleUser},
			{Prefix: "AI:", Role: RoleAssistant},
			{Prefix: "Assistant:", Role: RoleAssistant},
			{Prefix: "Model:", Role: RoleAssistant},
			{Prefix: "Output:", Role: RoleAssistant},
			{Prefix: "Response:", Role: RoleAssistant},
			{Prefix: "ChatGPT:", Role: RoleAssistant},
			{Prefix: "System:", Role: RoleSystem},
		},
		HeaderWords: []string{"User", "Model", "You", "ChatGPT", "Assistant", "Human"},
		NoiseLines: []string{
			"edit",
			"copy",
			"share",
			"good",
			"bad",
			"refresh",
			"more_vert",
			"chevron_right",
			"sharecompare_arrowsadd",
			"auto",
			"thoughts",
			"![thinking]",
			"expand to view model thoughts",
		},
		WatermarkImages:     []string{"watermark.png", "unnamed.png"},
		HTMLSegmentMaxChars: 20000,
		MessageMaxChars:     100000,
		MaxNonTextRatio:     0.5,
	}
}

type rulesFile struct {
	Markers             []Marker `yaml:"markers"`
	HeaderWords         []string `yaml:"header_words"`
	NoiseLines          []string `yaml:"noise_lines"`
	WatermarkImages     []string `yaml:"watermark_images"`
	HTMLSegmentMaxChars int      `yaml:"html_segment_max_chars"`
	MessageMaxChars     int      `yaml:"message_max_chars"`
	MaxNonTextRatio     float64  `yaml:"max_non_text_ratio"`
	FlushChars          int      `yaml:"flush_chars"`
}

// LoadRules reads a YAML rules file and merges it over DefaultRules.
// List entries are appended; non-zero scalars override.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("LoadRules: read file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Rules{}, fmt.Errorf("LoadRules: parse %s: %w", path, err)
	}
	if err := rules.merge(f); err != nil {
		return Rules{}, fmt.Errorf("LoadRules: %s: %w", path, err)
	}
	return rules, nil
}

func (r *Rules) merge(f rulesFile) error {
	for _, m := range f.Markers {
		prefix := strings.TrimSpace(m.Prefix)
		if prefix == "" {
			return errors.New("marker with empty prefix")
		}
		role := NormalizeRole(string(m.Role))
		if role == "" {
			return fmt.Errorf("marker %q has unknown role %q", prefix, m.Role)
		}
		r.Markers = append(r.Markers, Marker{Prefix: prefix, Role: role})
	}
	r.HeaderWords = appendUnique(r.HeaderWords, f.HeaderWords, false)
	r.NoiseLines = appendUnique(r.NoiseLines, f.NoiseLines, true)
	r.WatermarkImages = appendUnique(r.WatermarkImages, f.WatermarkImages, false)
	if f.HTMLSegmentMaxChars > 0 {
		r.HTMLSegmentMaxChars = f.HTMLSegmentMaxChars
	}
	if f.MessageMaxChars > 0 {
		r.MessageMaxChars = f.MessageMaxChars
	}
	if f.MaxNonTextRatio > 0 {
		r.MaxNonTextRatio = f.MaxNonTextRatio
	}
	if f.FlushChars > 0 {
		r.FlushChars = f.FlushChars
	}
	return nil
}

// sortedMarkers returns the markers longest-prefix first so that no marker shadows a longer one.
func (r Rules) sortedMarkers() []Marker {
	out := append([]Marker(nil), r.Markers...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Prefix) > len(out[j].Prefix)
	})
	return out
}

func appendUnique(base, extra []string, lower bool) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if lower {
				s = strings.ToLower(s)
			}
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
