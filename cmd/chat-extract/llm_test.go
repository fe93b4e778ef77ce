package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
)

type fakeResponses struct {
	err    error
	calls  int
	params responses.ResponseNewParams
}

func (f *fakeResponses) New(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	f.calls++
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &responses.Response{}, nil
}

func TestParseSegmentOutput(t *testing.T) {
	t.Parallel()

	out := "```json\n" + `{"messages":[
		{"role":"user","content":" what is 2+2? "},
		{"role":"Assistant","content":"4"},
		{"role":"narrator","content":"dropped"},
		{"role":"user","content":"   "}
	]}` + "\n```"
	msgs, err := parseSegmentOutput(out)
	if err != nil {
		t.Fatalf("parseSegmentOutput: %v", err)
	}
	want := []transcript.Message{
		{Role: transcript.RoleUser, Content: "what is 2+2?"},
		{Role: transcript.RoleAssistant, Content: "4"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("msgs=%+v, want %+v", msgs, want)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("msgs[%d]=%+v, want %+v", i, msgs[i], want[i])
		}
	}
}

func TestParseSegmentOutput_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := parseSegmentOutput("not json at all"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenAISegmenter_SendsModelAndTranscript(t *testing.T) {
	t.Parallel()

	api := &fakeResponses{}
	s := openAISegmenter{api: api, model: "gpt-5-mini"}
	// The fake returns an empty response, which fails to decode.
	if _, err := s.SegmentTranscript(context.Background(), "hello there\ngeneral kenobi"); err == nil {
		t.Fatalf("expected decode error on empty output")
	}
	if api.calls != 1 {
		t.Fatalf("calls=%d, want 1", api.calls)
	}
	if string(api.params.Model) != "gpt-5-mini" {
		t.Fatalf("Model=%q", api.params.Model)
	}
	if len(api.params.Input.OfInputItemList) != 1 {
		t.Fatalf("input items=%d, want 1", len(api.params.Input.OfInputItemList))
	}
	if api.params.Text.Format.OfJSONSchema == nil {
		t.Fatalf("missing json schema format")
	}
}

func TestOpenAISegmenter_Errors(t *testing.T) {
	t.Parallel()

	if _, err := (openAISegmenter{model: "m"}).SegmentTranscript(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for nil api")
	}
	if _, err := (openAISegmenter{api: &fakeResponses{}}).SegmentTranscript(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for empty model")
	}

	api := &fakeResponses{err: errors.New("POST: 401 Unauthorized")}
	_, err := openAISegmenter{api: api, model: "m"}.SegmentTranscript(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err=%v, want 401", err)
	}

	msgs, err := openAISegmenter{api: api, model: "m"}.SegmentTranscript(context.Background(), "   ")
	if err != nil || msgs != nil {
		t.Fatalf("msgs=%v err=%v, want nil nil for blank text", msgs, err)
	}
}
