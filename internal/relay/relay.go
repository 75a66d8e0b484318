// Package relay turns a natural-language place query into an Overpass QL
// result by asking a chat-completion model with a fixed system instruction.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"geoprompt/internal/core"
	"geoprompt/internal/usage"
)

const (
	// DefaultModel is the Groq model the system prompt was tuned against.
	DefaultModel = "llama-3.3-70b-versatile"

	// MissingKeyMessage is returned when the relay has no upstream credential.
	MissingKeyMessage = "GROQ_API_KEY not configured"

	providerName = "groq"
	endpoint     = "/api/predict"
)

// Config holds the per-deployment request settings.
type Config struct {
	// Model defaults to DefaultModel.
	Model string
	// SystemPrompt defaults to SystemPrompt.
	SystemPrompt string
}

// Service is the prompt relay. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	completer    core.ChatCompleter
	model        string
	systemPrompt string
	usage        usage.LoggerInterface
	observe      func(outcome string)
}

// Option customizes a Service.
type Option func(*Service)

// WithUsageLogger records one usage entry per upstream call.
func WithUsageLogger(logger usage.LoggerInterface) Option {
	return func(s *Service) {
		s.usage = logger
	}
}

// WithOutcomeObserver calls observe with the outcome label of every
// prediction that reached the upstream.
func WithOutcomeObserver(observe func(outcome string)) Option {
	return func(s *Service) {
		s.observe = observe
	}
}

// New creates a relay Service. A nil completer means no credential was
// configured: Predict then fails with a configuration error and never calls out.
func New(completer core.ChatCompleter, cfg Config, opts ...Option) *Service {
	s := &Service{
		completer:    completer,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		usage:        &usage.NoopLogger{},
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.systemPrompt == "" {
		s.systemPrompt = SystemPrompt
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the upstream model identifier.
func (s *Service) Model() string {
	return s.model
}

// Configured reports whether the service has an upstream credential.
func (s *Service) Configured() bool {
	return s.completer != nil
}

// BuildRequest constructs the chat payload for prompt. Sampling is pinned to
// temperature 0 so identical prompts yield identical queries.
func (s *Service) BuildRequest(prompt string) *core.ChatRequest {
	return &core.ChatRequest{
		Model: s.model,
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: s.systemPrompt},
			{Role: core.RoleUser, Content: prompt},
		},
		Temperature: core.Float64Ptr(0),
	}
}

// Predict sends prompt upstream and classifies the reply. Shape problems in
// the reply are reported through the Result, not as errors; errors are
// reserved for missing configuration and failed upstream calls.
func (s *Service) Predict(ctx context.Context, prompt string) (*Result, error) {
	if s.completer == nil {
		return nil, core.NewConfigurationError(MissingKeyMessage)
	}

	start := time.Now()
	body, err := s.completer.ChatCompletionRaw(ctx, s.BuildRequest(prompt))
	elapsed := time.Since(start)

	if err != nil {
		slog.Warn("upstream chat completion failed",
			"request_id", core.GetRequestID(ctx),
			"model", s.model,
			"duration", elapsed,
			"error", err,
		)
		s.finish(ctx, prompt, nil, outcomeFor(err), elapsed)
		return nil, err
	}

	result := ParseCompletion(body)
	if result.Kind != KindObject {
		slog.Info("model response was not a JSON object",
			"request_id", core.GetRequestID(ctx),
			"kind", result.Kind.String(),
		)
	}
	s.finish(ctx, prompt, body, result.Kind.String(), elapsed)

	return result, nil
}

func outcomeFor(err error) string {
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		return string(gwErr.Type)
	}
	return "error"
}

func (s *Service) finish(ctx context.Context, prompt string, body []byte, outcome string, elapsed time.Duration) {
	if s.observe != nil {
		s.observe(outcome)
	}
	s.recordUsage(ctx, prompt, body, outcome, elapsed)
}

func (s *Service) recordUsage(ctx context.Context, prompt string, body []byte, outcome string, elapsed time.Duration) {
	if s.usage == nil || !s.usage.Config().Enabled {
		return
	}

	tokens := usage.ExtractTokens(body)
	s.usage.Write(&usage.UsageEntry{
		ID:           uuid.NewString(),
		RequestID:    core.GetRequestID(ctx),
		ProviderID:   tokens.ProviderID,
		Timestamp:    time.Now().UTC(),
		Model:        s.model,
		Provider:     providerName,
		Endpoint:     endpoint,
		Outcome:      outcome,
		PromptChars:  utf8.RuneCountInString(prompt),
		InputTokens:  tokens.InputTokens,
		OutputTokens: tokens.OutputTokens,
		TotalTokens:  tokens.TotalTokens,
		DurationMs:   elapsed.Milliseconds(),
	})
}
