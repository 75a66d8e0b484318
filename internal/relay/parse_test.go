package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completion wraps content in a minimal chat completion body.
func completion(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id": "chatcmpl-test",
		"choices": []any{
			map[string]any{
				"index":   0,
				"message": map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 900, "completion_tokens": 60, "total_tokens": 960},
	})
	require.NoError(t, err)
	return body
}

func payloadJSON(t *testing.T, r *Result) string {
	t.Helper()
	out, err := json.Marshal(r.Payload())
	require.NoError(t, err)
	return string(out)
}

const madridObject = `{"query":"(node[\"tourism\"=\"museum\"]({{bbox}});way[\"tourism\"=\"museum\"]({{bbox}});relation[\"tourism\"=\"museum\"]({{bbox}}););out geom;","categories":["museums"],"place_name":"Madrid","style_definitions":{"node":{"color":"#8e44ad","icon":"museum"}}}`

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name        string
		body        func(t *testing.T) []byte
		wantKind    Kind
		wantPayload string
	}{
		{
			name:        "well-formed object",
			body:        func(t *testing.T) []byte { return completion(t, `{"query":"q","categories":["parks"]}`) },
			wantKind:    KindObject,
			wantPayload: `{"query":"q","categories":["parks"]}`,
		},
		{
			name:        "object surrounded by whitespace",
			body:        func(t *testing.T) []byte { return completion(t, "\n  {\"place_name\":\"Paris\"}\n") },
			wantKind:    KindObject,
			wantPayload: `{"place_name":"Paris"}`,
		},
		{
			name:        "prose instead of json",
			body:        func(t *testing.T) []byte { return completion(t, "Sure! Here is your query.") },
			wantKind:    KindNotJSON,
			wantPayload: `{"error":"Model did not return JSON","raw":"Sure! Here is your query."}`,
		},
		{
			name:        "code fence is not json",
			body:        func(t *testing.T) []byte { return completion(t, "```json\n{}\n```") },
			wantKind:    KindNotJSON,
			wantPayload: `{"error":"Model did not return JSON","raw":"` + "```json\\n{}\\n```" + `"}`,
		},
		{
			name:        "empty content",
			body:        func(t *testing.T) []byte { return completion(t, "   ") },
			wantKind:    KindNotJSON,
			wantPayload: `{"error":"Model did not return JSON","raw":""}`,
		},
		{
			name:        "truncated object",
			body:        func(t *testing.T) []byte { return completion(t, `{"query": "(node`) },
			wantKind:    KindUnparsable,
			wantPayload: `{"raw":"{\"query\": \"(node"}`,
		},
		{
			name:        "missing choices",
			body:        func(*testing.T) []byte { return []byte(`{"id":"x","object":"chat.completion"}`) },
			wantKind:    KindUnexpectedFormat,
			wantPayload: `{"error":"Unexpected format","raw":{"id":"x","object":"chat.completion"}}`,
		},
		{
			name:        "empty choices",
			body:        func(*testing.T) []byte { return []byte(`{"choices":[]}`) },
			wantKind:    KindUnexpectedFormat,
			wantPayload: `{"error":"Unexpected format","raw":{"choices":[]}}`,
		},
		{
			name:        "choices not an array",
			body:        func(*testing.T) []byte { return []byte(`{"choices":{"0":{"message":{"content":"{}"}}}}`) },
			wantKind:    KindUnexpectedFormat,
			wantPayload: `{"error":"Unexpected format","raw":{"choices":{"0":{"message":{"content":"{}"}}}}}`,
		},
		{
			name:        "content not a string",
			body:        func(*testing.T) []byte { return []byte(`{"choices":[{"message":{"content":{"query":"q"}}}]}`) },
			wantKind:    KindUnexpectedFormat,
			wantPayload: `{"error":"Unexpected format","raw":{"choices":[{"message":{"content":{"query":"q"}}}]}}`,
		},
		{
			name:        "null content",
			body:        func(*testing.T) []byte { return []byte(`{"choices":[{"message":{"content":null}}]}`) },
			wantKind:    KindUnexpectedFormat,
			wantPayload: `{"error":"Unexpected format","raw":{"choices":[{"message":{"content":null}}]}}`,
		},
		{
			name:        "body not json",
			body:        func(*testing.T) []byte { return []byte(`<html>bad gateway</html>`) },
			wantKind:    KindUnexpectedFormat,
			wantPayload: `{"error":"Unexpected format","raw":"<html>bad gateway</html>"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseCompletion(tt.body(t))

			assert.Equal(t, tt.wantKind, result.Kind)
			assert.JSONEq(t, tt.wantPayload, payloadJSON(t, result))
		})
	}
}

func TestParseCompletion_MadridRoundTrip(t *testing.T) {
	result := ParseCompletion(completion(t, madridObject))

	require.Equal(t, KindObject, result.Kind)
	assert.Equal(t, madridObject, payloadJSON(t, result))
}

func TestParseCompletion_PreservesKeyOrder(t *testing.T) {
	content := `{"style_definitions":{},"place_name":"Oslo","query":"q","categories":[]}`

	result := ParseCompletion(completion(t, content))

	require.Equal(t, KindObject, result.Kind)
	assert.Equal(t, content, payloadJSON(t, result))
}

func TestParseCompletion_ArrayIsNotAnObject(t *testing.T) {
	result := ParseCompletion(completion(t, `[{"query":"q"}]`))

	assert.Equal(t, KindNotJSON, result.Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "unexpected_format", KindUnexpectedFormat.String())
	assert.Equal(t, "not_json", KindNotJSON.String())
	assert.Equal(t, "unparsable", KindUnparsable.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
