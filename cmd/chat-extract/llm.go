package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
	"github.com/theimaginaryfoundation/chat-distill/transcript/fileutils"
	"github.com/theimaginaryfoundation/chat-distill/transcript/provider"
)

// maxSegmentInputChars bounds the transcript sent to the model.
const maxSegmentInputChars = 60000

type openAISegmenter struct {
	api   provider.ResponsesAPI
	model string
}

var _ transcript.FallbackSegmenter = openAISegmenter{}

type segmentResponse struct {
	Messages []segmentMessage `json:"messages"`
}

type segmentMessage struct {
	Role    string `json:"role" jsonschema:"enum=user,enum=assistant"`
	Content string `json:"content"`
}

var segmentSchema = provider.GenerateSchema[segmentResponse]()

func (s openAISegmenter) SegmentTranscript(ctx context.Context, text string) ([]transcript.Message, error) {
	if s.api == nil {
		return nil, errors.New("openAISegmenter: api is nil")
	}
	if s.model == "" {
		return nil, errors.New("openAISegmenter: model is empty")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	resp, err := provider.CallWithRetry(ctx, s.api, buildSegmentParams(s.model, text), provider.DefaultBackoff)
	if err != nil {
		return nil, fmt.Errorf("openAISegmenter: %w", err)
	}
	return parseSegmentOutput(resp.OutputText())
}

func buildSegmentParams(model, text string) responses.ResponseNewParams {
	payload := fileutils.Preview(text, maxSegmentInputChars)

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "TranscriptTurns",
			Schema:      segmentSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Transcript turns JSON"),
			Type:        "json_schema",
		},
	}
	input := []responses.ResponseInputItemUnionParam{
		responses.ResponseInputItemParamOfMessage(payload, responses.EasyInputMessageRoleUser),
	}
	return responses.ResponseNewParams{
		Model:           model,
		MaxOutputTokens: openai.Int(16000),
		Instructions:    openai.String(segmentTranscriptPrompt),
		ServiceTier:     responses.ResponseNewParamsServiceTierFlex,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
}

// parseSegmentOutput decodes the model's turns. Turns with an unknown role or no text are dropped.
func parseSegmentOutput(output string) ([]transcript.Message, error) {
	var out segmentResponse
	if err := fileutils.DecodeModelJSON(output, &out); err != nil {
		return nil, fmt.Errorf("openAISegmenter: decode: %w", err)
	}
	msgs := make([]transcript.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		role := transcript.NormalizeRole(m.Role)
		content := strings.TrimSpace(m.Content)
		if role == "" || role == transcript.RoleSystem || content == "" {
			continue
		}
		msgs = append(msgs, transcript.Message{Role: role, Content: content})
	}
	return msgs, nil
}
