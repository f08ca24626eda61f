package rundetail

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// requestPayload holds the request keys a user message may be logged under, in
// priority order.
type requestPayload struct {
	Question    any `mapstructure:"question"`
	Query       any `mapstructure:"query"`
	UserMessage any `mapstructure:"user_message"`
	Inputs      any `mapstructure:"inputs"`
}

// responsePayload holds the keys a structured response may wrap its text in.
type responsePayload struct {
	Response any `mapstructure:"response"`
	Output   any `mapstructure:"output"`
	Content  any `mapstructure:"content"`
	Outputs  any `mapstructure:"outputs"`
}

// maxUnwrapDepth bounds how far nested payloads are followed.
const maxUnwrapDepth = 4

// ExtractInput returns the user message from a raw request payload. Payloads that
// are not JSON objects are returned as text.
func ExtractInput(raw string) string {
	return extractInput(decodeJSON(raw), 0)
}

func extractInput(v any, depth int) string {
	m, ok := v.(map[string]any)
	if !ok {
		return asText(v)
	}
	var p requestPayload
	if depth > maxUnwrapDepth || mapstructure.Decode(m, &p) != nil {
		return ""
	}
	for _, candidate := range []any{p.Question, p.Query, p.UserMessage} {
		if s := asText(candidate); s != "" {
			return s
		}
	}
	if inputs, ok := p.Inputs.(map[string]any); ok {
		return extractInput(inputs, depth+1)
	}
	return ""
}

// ExtractResponse unwraps the assistant's text from a raw response payload.
func ExtractResponse(raw string) string {
	return extractResponse(decodeJSON(raw), 0)
}

func extractResponse(v any, depth int) string {
	m, ok := v.(map[string]any)
	if !ok {
		return asText(v)
	}
	var p responsePayload
	if depth > maxUnwrapDepth || mapstructure.Decode(m, &p) != nil {
		return ""
	}
	for _, candidate := range []any{p.Response, p.Output, p.Content} {
		if candidate == nil {
			continue
		}
		if s := extractResponse(candidate, depth+1); s != "" {
			return s
		}
	}
	if p.Outputs != nil {
		return extractResponse(p.Outputs, depth+1)
	}
	return ""
}

// decodeJSON parses raw as JSON, falling back to the raw text itself.
func decodeJSON(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw
	}
	return v
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
