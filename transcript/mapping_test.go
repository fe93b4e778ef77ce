package transcript

import (
	"reflect"
	"strings"
	"testing"
)

const mappingDoc = `{
  "title": "Trip planning",
  "current_node": "n4",
  "mapping": {
    "root": {"id": "root", "message": null, "parent": null, "children": ["n1"]},
    "n1": {"id": "n1", "parent": "root", "children": ["n2"], "message": {
      "author": {"role": "system"}, "content": {"content_type": "text", "parts": [""]},
      "metadata": {"is_visually_hidden_from_conversation": true}}},
    "n2": {"id": "n2", "parent": "n1", "children": ["n3", "n3b"], "message": {
      "author": {"role": "user"}, "create_time": 1.0, "content": {"content_type": "text", "parts": ["Where should I go?"]}}},
    "n3": {"id": "n3", "parent": "n2", "children": ["n4"], "message": {
      "author": {"role": "assistant"}, "create_time": 2.0, "content": {"content_type": "text", "parts": ["Lisbon."]}}},
    "n3b": {"id": "n3b", "parent": "n2", "children": [], "message": {
      "author": {"role": "assistant"}, "create_time": 9.0, "content": {"content_type": "text", "parts": ["Porto."]}}},
    "n4": {"id": "n4", "parent": "n3", "children": [], "message": {
      "author": {"role": "tool"}, "create_time": 3.0, "content": {"content_type": "code", "text": "search()"}}}
  }
}`

func TestLinearizeMapping_FollowsCurrentNode(t *testing.T) {
	t.Parallel()

	p := FindConversation(mustParse(t, mappingDoc), 0)
	if p.Kind != PayloadMapping {
		t.Fatalf("kind=%s, want mapping", p.Kind)
	}
	title, msgs, err := PayloadDecoder{Rules: DefaultRules()}.Decode(p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if title != "Trip planning" {
		t.Fatalf("title=%q", title)
	}
	want := []Message{
		{Role: RoleUser, Content: "Where should I go?"},
		{Role: RoleAssistant, Content: "Lisbon."},
	}
	if !reflect.DeepEqual(msgs, want) {
		t.Fatalf("messages=%+v, want %+v", msgs, want)
	}
}

func TestLinearizeMapping_LatestLeafWithoutCurrentNode(t *testing.T) {
	t.Parallel()

	doc := strings.Replace(mappingDoc, `"current_node": "n4",`, "", 1)
	_, msgs, err := linearizeMapping(mustParse(t, doc).(*Object))
	if err != nil {
		t.Fatalf("linearizeMapping: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != "Porto." {
		t.Fatalf("messages=%+v, want the branch ending at the latest leaf", msgs)
	}
}

func TestLinearizeMapping_Errors(t *testing.T) {
	t.Parallel()

	cycle := `{"current_node":"a","mapping":{
		"a":{"parent":"b","message":null},
		"b":{"parent":"a","message":null}}}`
	if _, _, err := linearizeMapping(mustParse(t, cycle).(*Object)); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("err=%v, want cycle error", err)
	}

	missing := `{"current_node":"a","mapping":{"a":{"parent":"gone","message":null}}}`
	if _, _, err := linearizeMapping(mustParse(t, missing).(*Object)); err == nil || !strings.Contains(err.Error(), "missing node") {
		t.Fatalf("err=%v, want missing node error", err)
	}
}

func TestLinearizeMapping_TieAndVisibleSystem(t *testing.T) {
	t.Parallel()

	doc := `{"mapping":{
		"s":{"parent":null,"children":["u"],"message":{"author":{"role":"system"},"content":{"parts":["be brief"]},
			"metadata":{"is_visually_hidden_from_conversation":false}}},
		"u":{"parent":"s","children":["b","a"],"message":{"author":{"role":"user"},"create_time":1,"content":{"parts":["q"]}}},
		"b":{"parent":"u","children":[],"message":{"author":{"role":"assistant"},"create_time":5,"content":{"parts":["first leaf"]}}},
		"a":{"parent":"u","children":[],"message":{"author":{"role":"assistant"},"create_time":5,"content":{"parts":["second leaf"]}}}
	}}`
	_, msgs, err := linearizeMapping(mustParse(t, doc).(*Object))
	if err != nil {
		t.Fatalf("linearizeMapping: %v", err)
	}
	want := []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "first leaf"},
	}
	if !reflect.DeepEqual(msgs, want) {
		t.Fatalf("messages=%+v, want %+v", msgs, want)
	}
}
