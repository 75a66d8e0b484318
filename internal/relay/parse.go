package relay

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies what the upstream returned.
type Kind int

const (
	// KindObject means the model content parsed as a JSON object.
	KindObject Kind = iota
	// KindUnexpectedFormat means the response had no choices[0].message.content string.
	KindUnexpectedFormat
	// KindNotJSON means the content did not start with '{'.
	KindNotJSON
	// KindUnparsable means the content started with '{' but was not valid JSON.
	KindUnparsable
)

// String returns the label used in logs, metrics and usage records.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindUnexpectedFormat:
		return "unexpected_format"
	case KindNotJSON:
		return "not_json"
	case KindUnparsable:
		return "unparsable"
	default:
		return "unknown"
	}
}

// Error messages placed in the "error" field of degraded results.
const (
	UnexpectedFormatMessage = "Unexpected format"
	NotJSONMessage          = "Model did not return JSON"
)

// contentPath is where OpenAI-compatible responses put the assistant text.
const contentPath = "0.message.content"

// Result is the typed outcome of parsing one upstream response.
type Result struct {
	Kind Kind
	// Object is the parsed content for KindObject.
	Object json.RawMessage
	// Content is the trimmed assistant text, empty for KindUnexpectedFormat.
	Content string
	// Raw is the full upstream response for KindUnexpectedFormat.
	Raw json.RawMessage
}

type errorBody struct {
	Error string      `json:"error"`
	Raw   interface{} `json:"raw"`
}

type rawBody struct {
	Raw string `json:"raw"`
}

// Payload returns the value written as the HTTP response body.
func (r *Result) Payload() interface{} {
	switch r.Kind {
	case KindObject:
		return r.Object
	case KindUnexpectedFormat:
		return errorBody{Error: UnexpectedFormatMessage, Raw: r.Raw}
	case KindNotJSON:
		return errorBody{Error: NotJSONMessage, Raw: r.Content}
	default:
		return rawBody{Raw: r.Content}
	}
}

// ParseCompletion classifies an upstream chat completion body. It never fails:
// every shape problem becomes a Result kind the caller can relay.
func ParseCompletion(body []byte) *Result {
	if !gjson.ValidBytes(body) {
		raw, _ := json.Marshal(string(body))
		return &Result{Kind: KindUnexpectedFormat, Raw: raw}
	}

	choices := gjson.GetBytes(body, "choices")
	content := choices.Get(contentPath)
	if !choices.IsArray() || content.Type != gjson.String {
		return &Result{Kind: KindUnexpectedFormat, Raw: json.RawMessage(body)}
	}

	text := strings.TrimSpace(content.String())
	if !strings.HasPrefix(text, "{") {
		return &Result{Kind: KindNotJSON, Content: text}
	}

	if !json.Valid([]byte(text)) {
		return &Result{Kind: KindUnparsable, Content: text}
	}

	return &Result{Kind: KindObject, Object: json.RawMessage(text), Content: text}
}
