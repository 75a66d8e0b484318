package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoprompt/internal/core"
	"geoprompt/internal/usage"
)

type mockCompleter struct {
	body  []byte
	err   error
	calls int
	last  *core.ChatRequest
}

func (m *mockCompleter) ChatCompletionRaw(_ context.Context, req *core.ChatRequest) ([]byte, error) {
	m.calls++
	m.last = req
	return m.body, m.err
}

type recordingUsage struct {
	mu      sync.Mutex
	entries []*usage.UsageEntry
}

func (r *recordingUsage) Write(e *usage.UsageEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingUsage) Config() usage.Config { return usage.Config{Enabled: true} }
func (r *recordingUsage) Close() error         { return nil }

func TestPredict_NoCredential(t *testing.T) {
	svc := New(nil, Config{})

	result, err := svc.Predict(context.Background(), "museums in Madrid")

	assert.Nil(t, result)
	require.Error(t, err)
	var gwErr *core.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, core.ErrorTypeConfiguration, gwErr.Type)
	assert.Equal(t, 500, gwErr.HTTPStatusCode())
	assert.Equal(t, map[string]interface{}{"error": "GROQ_API_KEY not configured"}, gwErr.ToJSON())
	assert.False(t, svc.Configured())
}

func TestPredict_BuildsPayload(t *testing.T) {
	completer := &mockCompleter{body: completion(t, `{}`)}
	svc := New(completer, Config{})

	_, err := svc.Predict(context.Background(), "parks in Barcelona")
	require.NoError(t, err)

	require.Equal(t, 1, completer.calls)
	req := completer.last
	assert.Equal(t, DefaultModel, req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, core.Message{Role: "system", Content: SystemPrompt}, req.Messages[0])
	assert.Equal(t, core.Message{Role: "user", Content: "parks in Barcelona"}, req.Messages[1])
}

func TestPredict_CustomModelAndPrompt(t *testing.T) {
	completer := &mockCompleter{body: completion(t, `{}`)}
	svc := New(completer, Config{Model: "llama-3.1-8b-instant", SystemPrompt: "be brief"})

	_, err := svc.Predict(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, "llama-3.1-8b-instant", completer.last.Model)
	assert.Equal(t, "be brief", completer.last.Messages[0].Content)
	assert.Equal(t, "llama-3.1-8b-instant", svc.Model())
}

func TestPredict_MadridRoundTrip(t *testing.T) {
	svc := New(&mockCompleter{body: completion(t, madridObject)}, Config{})

	result, err := svc.Predict(context.Background(), "museums in Madrid")
	require.NoError(t, err)

	assert.Equal(t, KindObject, result.Kind)
	assert.Equal(t, madridObject, string(result.Object))
}

func TestPredict_UpstreamError(t *testing.T) {
	upstreamErr := core.NewProviderError("groq", "upstream returned status 503", nil)
	svc := New(&mockCompleter{err: upstreamErr}, Config{})

	result, err := svc.Predict(context.Background(), "cafes in Paris")

	assert.Nil(t, result)
	assert.Same(t, upstreamErr, err)
}

func TestPredict_RecordsUsageAndOutcome(t *testing.T) {
	recorder := &recordingUsage{}
	var outcomes []string
	svc := New(
		&mockCompleter{body: completion(t, "not json at all")},
		Config{},
		WithUsageLogger(recorder),
		WithOutcomeObserver(func(outcome string) { outcomes = append(outcomes, outcome) }),
	)

	ctx := core.WithRequestID(context.Background(), "req-42")
	_, err := svc.Predict(ctx, "cafés in Paris")
	require.NoError(t, err)

	assert.Equal(t, []string{"not_json"}, outcomes)
	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "req-42", entry.RequestID)
	assert.Equal(t, "chatcmpl-test", entry.ProviderID)
	assert.Equal(t, "groq", entry.Provider)
	assert.Equal(t, "not_json", entry.Outcome)
	assert.Equal(t, 14, entry.PromptChars)
	assert.Equal(t, 900, entry.InputTokens)
	assert.Equal(t, 60, entry.OutputTokens)
	assert.Equal(t, 960, entry.TotalTokens)
}

func TestPredict_RecordsUsageOnUpstreamError(t *testing.T) {
	recorder := &recordingUsage{}
	svc := New(
		&mockCompleter{err: core.NewRateLimitError("groq", "slow down")},
		Config{},
		WithUsageLogger(recorder),
	)

	_, err := svc.Predict(context.Background(), "bars in Berlin")
	require.Error(t, err)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "rate_limit_error", recorder.entries[0].Outcome)
	assert.Zero(t, recorder.entries[0].TotalTokens)
}

func TestPredict_NoUsageWithoutCredential(t *testing.T) {
	recorder := &recordingUsage{}
	svc := New(nil, Config{}, WithUsageLogger(recorder))

	_, _ = svc.Predict(context.Background(), "x")

	assert.Empty(t, recorder.entries)
}

func TestSystemPrompt_ListsEveryCategory(t *testing.T) {
	for _, tag := range POITags {
		assert.Contains(t, SystemPrompt, tag.Category, "category %q", tag.Category)
		assert.Contains(t, SystemPrompt, tag.Tag(), "tag %q", tag.Tag())
	}
	assert.Contains(t, SystemPrompt, "{{bbox}}")
	assert.True(t, strings.HasPrefix(SystemPrompt, "\n"))
}
