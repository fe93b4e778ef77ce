// Package provider wraps the OpenAI Responses API for the optional model-assisted
// segmentation fallback.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// Backoff is the wait schedule between attempts, per failure class.
type Backoff struct {
	RateLimit   []time.Duration
	ServerError []time.Duration
}

// DefaultBackoff waits out per-minute rate limit windows and short server hiccups.
var DefaultBackoff = Backoff{
	RateLimit:   []time.Duration{65 * time.Second, 100 * time.Second},
	ServerError: []time.Duration{5 * time.Second, 30 * time.Second},
}

// ResponsesAPI is the part of the client CallWithRetry needs.
type ResponsesAPI interface {
	New(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error)
}

// NewResponsesAPI adapts an openai client.
func NewResponsesAPI(client *openai.Client) ResponsesAPI {
	return responsesService{client: client}
}

type responsesService struct {
	client *openai.Client
}

func (s responsesService) New(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	return s.client.Responses.New(ctx, params)
}

// CallWithRetry retries rate-limit and server errors on the backoff schedule. Other errors
// return immediately. Waiting honors ctx.
func CallWithRetry(ctx context.Context, api ResponsesAPI, params responses.ResponseNewParams, backoff Backoff) (*responses.Response, error) {
	rl, se := 0, 0
	for attempt := 1; ; attempt++ {
		resp, err := api.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err) && rl < len(backoff.RateLimit):
			wait = backoff.RateLimit[rl]
			rl++
		case isServerError(err) && se < len(backoff.ServerError):
			wait = backoff.ServerError[se]
			se++
		default:
			if attempt > 1 {
				return nil, fmt.Errorf("CallWithRetry: failed after %d attempts: %w", attempt, err)
			}
			return nil, err
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

// GenerateSchema reflects T into a strict structured-output schema: no references, no
// additional properties, every property required.
func GenerateSchema[T any]() map[string]any {
	schema := Reflect[T]()
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrict(schemaObj)
	return schemaObj
}

// Reflect returns the inline JSON Schema of T.
func Reflect[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	return reflector.Reflect(v)
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureStrict applies the structured-output rules recursively.
func ensureStrict(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			required := make([]string, 0, len(properties))
			for propName := range properties {
				required = append(required, propName)
			}
			if len(required) > 0 {
				sort.Strings(required)
				schema[requiredKey] = required
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureStrict(propMap)
			}
		}
	}
	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureStrict(items)
	}
	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]any); ok {
		ensureStrict(additionalProps)
	}
}
