package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok {
		return "", ErrSourceUnreadable
	}
	return body, nil
}

type fakeFallback struct {
	msgs []Message
	err  error
}

func (f fakeFallback) SegmentTranscript(ctx context.Context, text string) ([]Message, error) {
	return append([]Message(nil), f.msgs...), f.err
}

func writeSource(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPipeline_Scenarios(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name      string
		body      string
		via       string
		wantMsgs  []Message
		wantPairs []TrainingPair
	}{
		{
			name:      "plain.txt",
			body:      "User: hi\nAI: hello there\n",
			via:       "markers",
			wantMsgs:  []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello there"}},
			wantPairs: []TrainingPair{{Instruction: "hi", Output: "hello there"}},
		},
		{
			name:      "history.json",
			body:      `{"history":[{"role":"human","content":"hi"},{"role":"model","content":"hi back"}]}`,
			via:       "json_messages",
			wantMsgs:  []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hi back"}},
			wantPairs: []TrainingPair{{Instruction: "hi", Output: "hi back"}},
		},
		{
			name:      "orphan.txt",
			body:      "AI: orphan reply\nUser: question\nAI: answer\n",
			via:       "markers",
			wantPairs: []TrainingPair{{Instruction: "question", Output: "answer"}},
		},
		{
			name:      "dump.json",
			body:      `["hello",null,null,null,null,null,null,null,"user"]`,
			via:       "anchored",
			wantMsgs:  []Message{{Role: RoleUser, Content: "hello"}},
			wantPairs: []TrainingPair{},
		},
	}

	for _, sc := range scenarios {
		p := New(Config{Rules: DefaultRules()})
		rep, err := p.Run(context.Background(), writeSource(t, sc.name, sc.body))
		if err != nil {
			t.Fatalf("%s: Run: %v", sc.name, err)
		}
		if rep.Via != sc.via {
			t.Fatalf("%s: via=%q, want %q", sc.name, rep.Via, sc.via)
		}
		if sc.wantMsgs != nil && !reflect.DeepEqual(rep.Result.Messages, sc.wantMsgs) {
			t.Fatalf("%s: messages=%+v, want %+v", sc.name, rep.Result.Messages, sc.wantMsgs)
		}
		if !reflect.DeepEqual(rep.Pairs, sc.wantPairs) {
			t.Fatalf("%s: pairs=%+v, want %+v", sc.name, rep.Pairs, sc.wantPairs)
		}
	}
}

func TestPipeline_CleansAndDedupes(t *testing.T) {
	t.Parallel()

	body := "User: hi\ncopy\nAI: hello\nedit\nUser: hi\nAI: hello\nUser: bye\nAI: ![x](https://x/watermark.png)"
	p := New(Config{Rules: DefaultRules()})
	rep, err := p.Run(context.Background(), writeSource(t, "noisy.txt", body))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "bye"},
	}
	if !reflect.DeepEqual(rep.Result.Messages, want) {
		t.Fatalf("messages=%+v, want %+v", rep.Result.Messages, want)
	}
	if rep.Extracted != 6 || rep.Clean.Duplicates != 2 || rep.Clean.NoiseDropped != 1 {
		t.Fatalf("report extracted=%d clean=%+v", rep.Extracted, rep.Clean)
	}
	if len(rep.Pairs) != 1 {
		t.Fatalf("pairs=%+v", rep.Pairs)
	}
}

func TestPipeline_FormatUndetected(t *testing.T) {
	t.Parallel()

	p := New(Config{Rules: DefaultRules()})
	rep, err := p.Run(context.Background(), writeSource(t, "notes.txt", "nothing to see here"))
	if !errors.Is(err, ErrFormatUndetected) || !errors.Is(err, ErrUnclassified) {
		t.Fatalf("err=%v, want ErrFormatUndetected and ErrUnclassified", err)
	}
	if rep.Result.Messages == nil || len(rep.Result.Messages) != 0 {
		t.Fatalf("messages=%+v, want empty non-nil", rep.Result.Messages)
	}

	_, err = p.Run(context.Background(), writeSource(t, "config.json", `{"a":[1,2,3]}`))
	if !errors.Is(err, ErrFormatUndetected) {
		t.Fatalf("json err=%v, want ErrFormatUndetected", err)
	}
}

func TestPipeline_ZeroPairsIsSuccess(t *testing.T) {
	t.Parallel()

	p := New(Config{Rules: DefaultRules()})
	rep, err := p.Run(context.Background(), writeSource(t, "monologue.txt", "User: one\nUser: two"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Result.Messages) != 2 || len(rep.Pairs) != 0 {
		t.Fatalf("messages=%d pairs=%d", len(rep.Result.Messages), len(rep.Pairs))
	}
}

func TestPipeline_Unreadable(t *testing.T) {
	t.Parallel()

	p := New(Config{Rules: DefaultRules()})
	if _, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.html")); !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("err=%v, want ErrSourceUnreadable", err)
	}
}

func TestPipeline_Links(t *testing.T) {
	t.Parallel()

	const share = "https://chat.example/share/1"
	doc := `{"share_link":"` + share + `"}`
	path := writeSource(t, "link.json", doc)

	noFollow := New(Config{Rules: DefaultRules(), Fetcher: &fakeFetcher{}})
	if _, err := noFollow.Run(context.Background(), path); !errors.Is(err, ErrNeedsFetch) {
		t.Fatalf("err=%v, want ErrNeedsFetch", err)
	}

	f := &fakeFetcher{pages: map[string]string{
		share: `<html><body><div>User</div><p>q</p><div>Model</div><p>a</p></body></html>`,
	}}
	follow := New(Config{Rules: DefaultRules(), Fetcher: f, FollowLinks: true})
	rep, err := follow.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.FollowedLink != share || rep.Kind != KindHTML || rep.Via != "html_headers" {
		t.Fatalf("report followed=%q kind=%s via=%q", rep.FollowedLink, rep.Kind, rep.Via)
	}
	if len(rep.Pairs) != 1 || rep.Pairs[0].Output != "a" {
		t.Fatalf("pairs=%+v", rep.Pairs)
	}

	// One hop only: a linked page that is itself a link is not followed again.
	f.pages[share] = `{"url":"https://chat.example/share/2"}`
	if _, err := follow.Run(context.Background(), path); !errors.Is(err, ErrNeedsFetch) {
		t.Fatalf("second hop err=%v, want ErrNeedsFetch", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("fetch calls=%v, want 2", f.calls)
	}
}

func TestPipeline_Fallback(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "prose.txt", "hi there. hello, how can I help?")
	fb := fakeFallback{msgs: []Message{{Role: RoleUser, Content: "hi there."}, {Role: RoleAssistant, Content: "hello, how can I help?"}}}
	p := New(Config{Rules: DefaultRules(), Fallback: fb})
	rep, err := p.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Via != "fallback" || len(rep.Pairs) != 1 {
		t.Fatalf("via=%q pairs=%+v", rep.Via, rep.Pairs)
	}

	failing := New(Config{Rules: DefaultRules(), Fallback: fakeFallback{err: errors.New("quota")}})
	if _, err := failing.Run(context.Background(), path); !errors.Is(err, ErrFormatUndetected) {
		t.Fatalf("err=%v, want ErrFormatUndetected", err)
	}
}

func TestPipeline_HTMLStateDump(t *testing.T) {
	t.Parallel()

	page := `<html><body><div id="app"></div><script>window.__state=[[["What is Go?",null,null,null,null,null,null,null,"user"],` +
		`["A programming language.",null,null,null,null,null,null,null,"model"]]]</script></body></html>`
	p := New(Config{Rules: DefaultRules()})
	rep, err := p.Run(context.Background(), writeSource(t, "state.html", page))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Via != "anchored" || rep.AnchoredRecords != 2 {
		t.Fatalf("via=%q records=%d", rep.Via, rep.AnchoredRecords)
	}
	if len(rep.Pairs) != 1 || rep.Pairs[0].Output != "A programming language." {
		t.Fatalf("pairs=%+v", rep.Pairs)
	}
}

func TestPipeline_MappingTitle(t *testing.T) {
	t.Parallel()

	p := New(Config{Rules: DefaultRules(), PairOptions: PairOptions{History: true}})
	rep, err := p.Run(context.Background(), writeSource(t, "export.json", mappingDoc))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Result.Title != "Trip planning" || rep.Via != "json_mapping" {
		t.Fatalf("title=%q via=%q", rep.Result.Title, rep.Via)
	}
	if len(rep.Pairs) != 1 || rep.Pairs[0].Input != "Where should I go?" || rep.Pairs[0].Instruction != DefaultInstruction {
		t.Fatalf("pairs=%+v", rep.Pairs)
	}
}

func TestPipeline_TextMentioningTags(t *testing.T) {
	t.Parallel()

	p := New(Config{Rules: DefaultRules()})
	body := "User: how do I center a <div> element?\nAI: use flexbox on the parent\nUser: thanks\nAI: welcome\n"
	rep, err := p.Run(context.Background(), writeSource(t, "tags.txt", body))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Kind != KindText || rep.Via != "markers" || len(rep.Pairs) != 2 {
		t.Fatalf("kind=%s via=%q pairs=%+v", rep.Kind, rep.Via, rep.Pairs)
	}
	if rep.Pairs[0].Output != "use flexbox on the parent" {
		t.Fatalf("pairs=%+v", rep.Pairs)
	}

	// Closed inline markup sniffs as HTML; the raw text still keeps its boundaries.
	inline := "User: what does <span>x</span> do?\nAI: it wraps text inline\nUser: thanks\nAI: welcome\n"
	rep, err = p.Run(context.Background(), writeSource(t, "inline.txt", inline))
	if err != nil {
		t.Fatalf("Run inline: %v", err)
	}
	if rep.Kind != KindHTML || rep.Via != "markers" || rep.Markers != 4 || len(rep.Pairs) != 2 {
		t.Fatalf("kind=%s via=%q markers=%d pairs=%+v", rep.Kind, rep.Via, rep.Markers, rep.Pairs)
	}
}

func TestPipeline_PlaceholderLinkKey(t *testing.T) {
	t.Parallel()

	doc := `{"url":"n/a","messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`
	p := New(Config{Rules: DefaultRules()})
	rep, err := p.Run(context.Background(), writeSource(t, "decoy.json", doc))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Via != "json_messages" || len(rep.Pairs) != 1 || rep.Pairs[0].Output != "hello" {
		t.Fatalf("via=%q pairs=%+v", rep.Via, rep.Pairs)
	}
}

func TestPipeline_AnchoredApplicableWithoutRecords(t *testing.T) {
	t.Parallel()

	p := New(Config{Rules: DefaultRules()})
	rep, err := p.Run(context.Background(), writeSource(t, "state.txt", `[["hello",null,"user"]] broken`))
	if !errors.Is(err, ErrFormatUndetected) {
		t.Fatalf("err=%v, want ErrFormatUndetected", err)
	}
	if !rep.AnchoredApplicable || rep.AnchoredRecords != 0 {
		t.Fatalf("applicable=%v records=%d", rep.AnchoredApplicable, rep.AnchoredRecords)
	}

	rep, err = p.Run(context.Background(), writeSource(t, "plain.txt", "User: hi\nAI: hello\n"))
	if err != nil || rep.AnchoredApplicable {
		t.Fatalf("plain text: applicable=%v err=%v", rep.AnchoredApplicable, err)
	}
}
