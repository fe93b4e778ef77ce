package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// linearizeMapping reads a parent-linked message tree (the "mapping" member of ChatGPT
// share pages and account exports) and returns the branch ending at current_node, or at
// the latest leaf when current_node is absent, in chronological order.
func linearizeMapping(holder *Object) (string, []Message, error) {
	title := holder.String("title")
	raw, _ := holder.Get("mapping")
	nodes, ok := raw.(*Object)
	if !ok || len(nodes.Keys) == 0 {
		return title, nil, nil
	}

	id := holder.String("current_node")
	if id == "" {
		id = latestLeaf(nodes)
	}
	if id == "" {
		return title, nil, errors.New("linearizeMapping: no current_node and no leaf node found")
	}

	seen := make(map[string]bool, len(nodes.Keys))
	var branch []Message
	for id != "" {
		if seen[id] {
			return title, nil, fmt.Errorf("linearizeMapping: cycle detected at node %q", id)
		}
		seen[id] = true

		v, _ := nodes.Get(id)
		node, ok := v.(*Object)
		if !ok {
			return title, nil, fmt.Errorf("linearizeMapping: missing node %q in mapping", id)
		}
		if msg, ok := nodeMessage(node); ok {
			branch = append(branch, msg)
		}
		id = node.String("parent")
	}
	slices.Reverse(branch)
	return title, branch, nil
}

// latestLeaf picks the childless node with the greatest message create_time. The earliest
// such node in document order wins a tie.
func latestLeaf(nodes *Object) string {
	best, bestTime := "", 0.0
	for _, id := range nodes.Keys {
		node, ok := nodes.Fields[id].(*Object)
		if !ok {
			continue
		}
		if kids, _ := node.Get("children"); !isEmptyValue(kids) {
			continue
		}
		msg, _ := node.Get("message")
		m, ok := msg.(*Object)
		if !ok {
			continue
		}
		ct := numberValue(m, "create_time")
		if best == "" || ct > bestTime {
			best, bestTime = id, ct
		}
	}
	return best
}

// nodeMessage turns a tree node into a turn. Tool output, empty nodes and system nodes
// flagged as hidden are not turns.
func nodeMessage(node *Object) (Message, bool) {
	v, _ := node.Get("message")
	m, ok := v.(*Object)
	if !ok {
		return Message{}, false
	}
	role := NormalizeRole(objectRole(m))
	if role == "" {
		return Message{}, false
	}
	content, _ := m.Get("content")
	text := strings.TrimSpace(contentText(content))
	if text == "" {
		return Message{}, false
	}
	if role == RoleSystem {
		meta, _ := m.Get("metadata")
		if mo, ok := meta.(*Object); ok {
			if hidden, _ := mo.Get("is_visually_hidden_from_conversation"); hidden == true {
				return Message{}, false
			}
		}
	}
	return Message{Role: role, Content: text}, true
}

func numberValue(o *Object, key string) float64 {
	v, _ := o.Get(key)
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}
