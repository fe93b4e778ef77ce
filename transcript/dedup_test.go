package transcript

import (
	"reflect"
	"testing"
)

func TestDedupe_FirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "  hi  "},
		{Role: RoleAssistant, Content: "café"},
		{Role: RoleAssistant, Content: "café"},
		{Role: RoleUser, Content: "bye"},
	}
	got, removed := Dedupe(msgs)
	want := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleAssistant, Content: "café"},
		{Role: RoleUser, Content: "bye"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%+v, want %+v", got, want)
	}
	if removed != 2 {
		t.Fatalf("removed=%d, want 2", removed)
	}
}

func TestDedupe_Idempotent(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "c"},
		{Role: RoleAssistant, Content: "b"},
	}
	once, _ := Dedupe(msgs)
	twice, removed := Dedupe(once)
	if removed != 0 {
		t.Fatalf("second pass removed=%d, want 0", removed)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second pass changed the sequence: %+v vs %+v", once, twice)
	}
}

func TestDedupe_Empty(t *testing.T) {
	t.Parallel()

	got, removed := Dedupe(nil)
	if len(got) != 0 || removed != 0 {
		t.Fatalf("got=%+v removed=%d", got, removed)
	}
}
