package transcript

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// PayloadKind classifies what FindConversation located.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadMessages
	PayloadText
	PayloadLink
	PayloadMapping
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadMessages:
		return "messages"
	case PayloadText:
		return "text"
	case PayloadLink:
		return "link"
	case PayloadMapping:
		return "mapping"
	default:
		return "none"
	}
}

// Payload is the best-candidate conversation container found in a JSON tree.
type Payload struct {
	Kind PayloadKind

	// Path is a dotted locator of the payload inside the document, for logging.
	Path string

	// Items is set for PayloadMessages.
	Items []any
	// Text is set for PayloadText, and holds the URL for PayloadLink.
	Text string
	// Holder is the object carrying a "mapping" member, for PayloadMapping.
	Holder *Object

	// Truncated counts nodes not expanded because they sat below the depth cap.
	Truncated int

	depth int
}

// DefaultMaxDepth bounds the JSON search.
const DefaultMaxDepth = 64

var (
	linkKeys         = []string{"link", "url", "share_link"}
	conversationKeys = []string{"conversations", "messages", "history", "chat"}
	roleKeys         = []string{"role", "from", "author", "speaker"}
	contentKeys      = []string{"content", "value", "text", "parts"}
)

type searchFrame struct {
	node  any
	depth int
	path  string
}

// FindConversation searches a JSON tree depth-first for a conversation payload.
// The first match in document order wins; there is no scoring across candidates.
func FindConversation(root any, maxDepth int) Payload {
	return findConversation(searchFrame{node: root, path: "$"}, maxDepth)
}

// findConversation runs the search from start, which may already sit below the root.
// Every node is visited at most once and no node deeper than maxDepth is expanded.
func findConversation(start searchFrame, maxDepth int) Payload {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	truncated := 0
	stack := []searchFrame{start}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p, ok, preferred := acceptNode(f)
		if ok {
			p.Truncated = truncated
			return p
		}

		var children []searchFrame
		var first *searchFrame
		switch v := f.node.(type) {
		case *Object:
			for _, k := range v.Keys {
				child := searchFrame{node: v.Fields[k], depth: f.depth + 1, path: f.path + "." + k}
				if k == preferred && first == nil {
					first = &child
					continue
				}
				children = append(children, child)
			}
		case []any:
			for i, item := range v {
				children = append(children, searchFrame{node: item, depth: f.depth + 1, path: fmt.Sprintf("%s[%d]", f.path, i)})
			}
		}
		n := len(children)
		if first != nil {
			n++
		}
		if n == 0 {
			continue
		}
		if f.depth+1 > maxDepth {
			truncated += n
			continue
		}
		// Push in reverse so the first child is visited first; the preferred child goes on top.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
		if first != nil {
			stack = append(stack, *first)
		}
	}
	return Payload{Kind: PayloadNone, Truncated: truncated}
}

// acceptNode reports whether f is a payload. When it is not, preferred names an object
// member under a conversation key that should be searched before its siblings.
func acceptNode(f searchFrame) (p Payload, ok bool, preferred string) {
	switch v := f.node.(type) {
	case string:
		// A document that is a single string is a transcript (or a link) itself.
		if f.depth == 0 && strings.TrimSpace(v) != "" {
			return stringPayload(v, f.path, f.depth), true, ""
		}
	case *Object:
		for _, k := range linkKeys {
			// Only a real URL is an indirection; placeholders like "n/a" are ignored.
			if s := strings.TrimSpace(v.String(k)); LooksLikeURL(s) {
				return Payload{Kind: PayloadLink, Path: f.path + "." + k, Text: s, depth: f.depth + 1}, true, ""
			}
		}
		for _, k := range conversationKeys {
			val, ok := v.Get(k)
			if !ok || isEmptyValue(val) {
				continue
			}
			path := f.path + "." + k
			switch c := val.(type) {
			case []any:
				return Payload{Kind: PayloadMessages, Path: path, Items: c, depth: f.depth + 1}, true, ""
			case string:
				return stringPayload(c, path, f.depth+1), true, ""
			case *Object:
				if _, ok := c.Get("mapping"); ok {
					return Payload{Kind: PayloadMapping, Path: path, Holder: c, depth: f.depth + 1}, true, ""
				}
				// An object under a conversation key may itself wrap the list.
				if preferred == "" {
					preferred = k
				}
			}
		}
		if m, ok := v.Get("mapping"); ok {
			if _, isObj := m.(*Object); isObj {
				return Payload{Kind: PayloadMapping, Path: f.path, Holder: v, depth: f.depth}, true, ""
			}
		}
		return Payload{}, false, preferred
	case []any:
		if len(v) == 0 {
			return Payload{}, false, ""
		}
		switch first := v[0].(type) {
		case string:
			return Payload{Kind: PayloadMessages, Path: f.path, Items: v, depth: f.depth}, true, ""
		case *Object:
			if hasAnyKey(first, roleKeys) {
				return Payload{Kind: PayloadMessages, Path: f.path, Items: v, depth: f.depth}, true, ""
			}
		}
	}
	return Payload{}, false, ""
}

func stringPayload(s, path string, depth int) Payload {
	if LooksLikeURL(s) {
		return Payload{Kind: PayloadLink, Path: path, Text: strings.TrimSpace(s), depth: depth}
	}
	return Payload{Kind: PayloadText, Path: path, Text: s, depth: depth}
}

// LooksLikeURL reports whether s is a single http(s) URL rather than content.
func LooksLikeURL(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	return !strings.ContainsAny(s, " \t\n")
}

func isEmptyValue(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(c) == ""
	case []any:
		return len(c) == 0
	case *Object:
		return len(c.Keys) == 0
	case bool:
		return !c
	}
	return false
}

func hasAnyKey(o *Object, keys []string) bool {
	for _, k := range keys {
		if _, ok := o.Get(k); ok {
			return true
		}
	}
	return false
}

// PayloadDecoder turns located payloads into messages.
type PayloadDecoder struct {
	Rules  Rules
	Logger *zap.Logger

	// MaxDepth caps searches into nested conversation lists. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Decode converts a payload into messages. A PayloadLink cannot be decoded locally and
// yields ErrNeedsFetch. The title is set when the payload carried one.
func (d PayloadDecoder) Decode(p Payload) (title string, msgs []Message, err error) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	switch p.Kind {
	case PayloadLink:
		return "", nil, fmt.Errorf("PayloadDecoder: %s at %s: %w", p.Text, p.Path, ErrNeedsFetch)
	case PayloadText:
		seg := SegmentText(p.Text, d.Rules)
		if !seg.Classified() {
			return "", nil, fmt.Errorf("PayloadDecoder: text at %s: %w", p.Path, ErrUnclassified)
		}
		return "", seg.Messages, nil
	case PayloadMapping:
		return linearizeMapping(p.Holder)
	case PayloadMessages:
		return "", d.decodeItems(p, log), nil
	default:
		return "", nil, fmt.Errorf("PayloadDecoder: %w", ErrFormatUndetected)
	}
}

func (d PayloadDecoder) decodeItems(p Payload, log *zap.Logger) []Message {
	c := newClassifier(d.Rules)

	var out []Message
	stringIndex := 0
	for i, item := range p.Items {
		path := fmt.Sprintf("%s[%d]", p.Path, i)
		switch v := item.(type) {
		case string:
			idx := stringIndex
			stringIndex++
			if r, rest, ok := c.classify(v); ok {
				if rest != "" {
					out = append(out, Message{Role: r, Content: rest})
				}
				continue
			}
			content := strings.TrimSpace(v)
			if content == "" {
				continue
			}
			role := RoleUser
			if idx%2 == 1 {
				role = RoleAssistant
			}
			out = append(out, Message{Role: role, Content: content})
		case *Object:
			if !hasAnyKey(v, roleKeys) {
				// A list of conversations: search each element on its own, continuing the
				// depth count of the enclosing search.
				sub := findConversation(searchFrame{node: v, depth: p.depth + 1, path: path}, d.MaxDepth)
				if sub.Truncated > 0 {
					log.Warn("nested json search hit depth cap", zap.String("path", path), zap.Int("skipped", sub.Truncated))
				}
				if sub.Kind == PayloadMessages || sub.Kind == PayloadMapping || sub.Kind == PayloadText {
					_, msgs, err := d.Decode(sub)
					if err != nil {
						log.Warn("skip nested conversation", zap.String("path", path), zap.Error(err))
						continue
					}
					out = append(out, msgs...)
				}
				continue
			}
			label := objectRole(v)
			role := NormalizeRole(label)
			if role == "" {
				log.Warn("skip message with unknown role", zap.String("path", path), zap.String("role", label))
				continue
			}
			content := strings.TrimSpace(objectContent(v))
			if content == "" {
				continue
			}
			out = append(out, Message{Role: role, Content: content})
		}
	}
	return out
}

func objectRole(o *Object) string {
	for _, k := range roleKeys {
		val, ok := o.Get(k)
		if !ok {
			continue
		}
		switch r := val.(type) {
		case string:
			return r
		case *Object:
			// {"author": {"role": "user"}}
			if s := r.String("role"); s != "" {
				return s
			}
			if s := r.String("name"); s != "" {
				return s
			}
		}
	}
	return ""
}

func objectContent(o *Object) string {
	for _, k := range contentKeys {
		val, ok := o.Get(k)
		if !ok {
			continue
		}
		if s := contentText(val); s != "" {
			return s
		}
	}
	return ""
}

// contentText flattens the content shapes seen in chat exports: plain strings, arrays of
// strings or {type:"text", text} blocks, and objects carrying "parts" or "text".
func contentText(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case []any:
		var parts []string
		for _, p := range c {
			switch pv := p.(type) {
			case string:
				parts = append(parts, pv)
			case *Object:
				if t := pv.String("type"); t != "" && t != "text" {
					continue
				}
				if s := pv.String("text"); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "\n")
	case *Object:
		if parts, ok := c.Get("parts"); ok {
			return contentText(parts)
		}
		return c.String("text")
	}
	return ""
}
