package transcript

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildPairs_SimpleExchange(t *testing.T) {
	t.Parallel()

	msgs := SegmentText("User: hi\nAI: hello there\n", DefaultRules()).Messages
	pairs := BuildPairs(msgs, PairOptions{})
	want := []TrainingPair{{Instruction: "hi", Input: "", Output: "hello there"}}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("pairs=%+v, want %+v", pairs, want)
	}
}

func TestBuildPairs_SkipsLeadingAssistant(t *testing.T) {
	t.Parallel()

	msgs := SegmentText("AI: orphan reply\nUser: question\nAI: answer\n", DefaultRules()).Messages
	pairs := BuildPairs(msgs, PairOptions{})
	want := []TrainingPair{{Instruction: "question", Output: "answer"}}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("pairs=%+v, want %+v", pairs, want)
	}
}

func TestBuildPairs_StrictVsPermissive(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleUser, Content: "u1"},
		{Role: RoleSystem, Content: "s"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "u2"},
		{Role: RoleUser, Content: "u3"},
		{Role: RoleAssistant, Content: "a2"},
		{Role: RoleAssistant, Content: "a3"},
	}

	strict := BuildPairs(msgs, PairOptions{})
	if len(strict) != 1 || strict[0].Instruction != "u3" || strict[0].Output != "a2" {
		t.Fatalf("strict pairs=%+v, want only u3->a2", strict)
	}

	permissive := BuildPairs(msgs, PairOptions{Permissive: true})
	if len(permissive) != 2 {
		t.Fatalf("len(permissive)=%d, want 2", len(permissive))
	}
	if permissive[0].Instruction != "u1" || permissive[0].Output != "a1" {
		t.Fatalf("permissive[0]=%+v", permissive[0])
	}
	if permissive[1].Instruction != "u3" || permissive[1].Output != "a2" {
		t.Fatalf("permissive[1]=%+v", permissive[1])
	}
}

func TestBuildPairs_AlwaysFromAdjacentUser(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleAssistant, Content: "a0"},
		{Role: RoleUser, Content: "u1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleAssistant, Content: "a1b"},
		{Role: RoleUser, Content: "u2"},
		{Role: RoleAssistant, Content: "a2"},
	}
	for _, opts := range []PairOptions{{}, {Permissive: true}, {History: true}} {
		for _, p := range BuildPairs(msgs, opts) {
			user := p.Instruction
			if opts.History {
				user = p.Input
			}
			if !strings.HasPrefix(user, "u") || !strings.HasPrefix(p.Output, "a") {
				t.Fatalf("opts=%+v: pair %+v not user->assistant", opts, p)
			}
		}
	}
}

func TestBuildPairs_History(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleUser, Content: "u1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "u2"},
		{Role: RoleAssistant, Content: "a2"},
	}
	pairs := BuildPairs(msgs, PairOptions{History: true})
	if len(pairs) != 2 {
		t.Fatalf("len(pairs)=%d, want 2", len(pairs))
	}

	if pairs[0].Instruction != DefaultInstruction {
		t.Fatalf("first instruction=%q, want the bare default", pairs[0].Instruction)
	}
	if pairs[0].Input != "u1" || pairs[0].Output != "a1" || len(pairs[0].History) != 0 {
		t.Fatalf("pairs[0]=%+v", pairs[0])
	}

	wantInstr := DefaultInstruction + "\n\nContext:\nuser: u1\nassistant: a1\n"
	if pairs[1].Instruction != wantInstr {
		t.Fatalf("instruction=%q, want %q", pairs[1].Instruction, wantInstr)
	}
	if !reflect.DeepEqual(pairs[1].History, msgs[:2]) {
		t.Fatalf("history=%+v, want %+v", pairs[1].History, msgs[:2])
	}

	custom := BuildPairs(msgs[:2], PairOptions{History: true, Instruction: "Reply in character."})
	if custom[0].Instruction != "Reply in character." {
		t.Fatalf("instruction=%q", custom[0].Instruction)
	}
}

func TestBuildPairs_RoundTrip(t *testing.T) {
	t.Parallel()

	text := "User: one\nAI: uno\nUser: two\nAI: dos\nAI: extra\nUser: three\nAI: tres"
	pairs := BuildPairs(SegmentText(text, DefaultRules()).Messages, PairOptions{})
	if len(pairs) != 3 {
		t.Fatalf("len(pairs)=%d, want 3", len(pairs))
	}

	again := BuildPairs(PairsToMessages(pairs), PairOptions{})
	if !reflect.DeepEqual(again, pairs) {
		t.Fatalf("round trip=%+v, want %+v", again, pairs)
	}

	var sb strings.Builder
	for _, m := range PairsToMessages(pairs) {
		if m.Role == RoleUser {
			sb.WriteString("User: ")
		} else {
			sb.WriteString("AI: ")
		}
		sb.WriteString(m.Content + "\n")
	}
	resegmented := BuildPairs(SegmentText(sb.String(), DefaultRules()).Messages, PairOptions{})
	if !reflect.DeepEqual(resegmented, pairs) {
		t.Fatalf("re-segmented=%+v, want %+v", resegmented, pairs)
	}
}

func TestBuildPairs_ZeroPairsIsNotUnclassified(t *testing.T) {
	t.Parallel()

	seg := SegmentText("User: a\nUser: b\n", DefaultRules())
	if !seg.Classified() || len(seg.Messages) != 2 {
		t.Fatalf("only-user transcript should classify: %+v", seg)
	}
	if pairs := BuildPairs(seg.Messages, PairOptions{}); len(pairs) != 0 {
		t.Fatalf("pairs=%+v, want none", pairs)
	}

	none := SegmentText("no markers here", DefaultRules())
	if none.Classified() {
		t.Fatalf("unmarked text classified")
	}
}
