package transcript

import "strings"

var roleAliases = map[string]Role{
	"user":      RoleUser,
	"human":     RoleUser,
	"input":     RoleUser,
	"you":       RoleUser,
	"prompt":    RoleUser,
	"assistant": RoleAssistant,
	"ai":        RoleAssistant,
	"model":     RoleAssistant,
	"gpt":       RoleAssistant,
	"chatgpt":   RoleAssistant,
	"bot":       RoleAssistant,
	"output":    RoleAssistant,
	"response":  RoleAssistant,
	"system":    RoleSystem,
}

// NormalizeRole maps a free-form role label to a canonical role.
// It returns "" when the label is not recognized.
func NormalizeRole(label string) Role {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.TrimSuffix(key, ":")
	key = strings.Trim(key, "*_ ")
	return roleAliases[key]
}

// classifier matches role markers at the start of a trimmed line.
type classifier struct {
	markers []Marker
}

func newClassifier(rules Rules) classifier {
	return classifier{markers: rules.sortedMarkers()}
}

// classify reports whether line starts with a role marker, returning the role and
// the remainder of the line after the marker.
func (c classifier) classify(line string) (Role, string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, m := range c.markers {
		if len(trimmed) < len(m.Prefix) {
			continue
		}
		if strings.EqualFold(trimmed[:len(m.Prefix)], m.Prefix) {
			return m.Role, strings.TrimSpace(trimmed[len(m.Prefix):]), true
		}
	}
	return "", "", false
}
