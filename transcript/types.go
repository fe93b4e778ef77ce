package transcript

import "errors"

// Role is a canonical speaker role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single role-tagged turn. Content is never empty inside a Transcript.
type Message struct {
	Role    Role   `json:"role" jsonschema:"required,enum=user,enum=assistant,enum=system"`
	Content string `json:"content" jsonschema:"required"`
}

// ExtractionResult is the persisted record for one source document.
type ExtractionResult struct {
	File     string    `json:"file" jsonschema:"required"`
	Title    string    `json:"title" jsonschema:"required"`
	Messages []Message `json:"messages" jsonschema:"required"`
}

// TrainingPair is one supervised fine-tuning example derived from a user→assistant adjacency.
type TrainingPair struct {
	Instruction string    `json:"instruction" jsonschema:"required"`
	Input       string    `json:"input" jsonschema:"required"`
	Output      string    `json:"output" jsonschema:"required"`
	History     []Message `json:"history,omitempty"`
}

// SourceKind is the detected payload class of a source.
type SourceKind int

const (
	KindText SourceKind = iota
	KindJSON
	KindHTML
)

func (k SourceKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindHTML:
		return "html"
	default:
		return "text"
	}
}

var (
	// ErrSourceUnreadable is returned when a file is missing or a fetch fails.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrFormatUndetected is returned when no extractor found a conversation payload.
	ErrFormatUndetected = errors.New("no conversation structure found")

	// ErrNeedsFetch is returned when a JSON payload is a link and link following is disabled.
	ErrNeedsFetch = errors.New("payload is a link that needs an external fetch")

	// ErrUnclassified is returned when the segmenter never matched a role marker.
	ErrUnclassified = errors.New("no role markers matched")
)
