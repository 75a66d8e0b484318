// Package groq provides Groq chat-completion integration for the relay.
package groq

import (
	"context"
	"net/http"
	"strings"

	"geoprompt/internal/core"
	"geoprompt/internal/llmclient"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible API root.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	providerName = "groq"
)

// Options configures a Provider. Empty BaseURL and nil HTTPClient select defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// MaxRetries is the number of retries after the first attempt.
	// Negative keeps the llmclient default.
	MaxRetries int
	Hooks      llmclient.Hooks
}

// Provider implements core.ChatCompleter for Groq
type Provider struct {
	client *llmclient.Client
	apiKey string
}

var _ core.ChatCompleter = (*Provider)(nil)

// New creates a new Groq provider.
func New(apiKey string, opts Options) *Provider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cfg := llmclient.DefaultConfig(providerName, baseURL)
	cfg.Hooks = opts.Hooks
	if opts.MaxRetries >= 0 {
		cfg.MaxRetries = opts.MaxRetries
	}

	p := &Provider{apiKey: apiKey}
	if opts.HTTPClient != nil {
		p.client = llmclient.NewWithHTTPClient(opts.HTTPClient, cfg, p.setHeaders)
	} else {
		p.client = llmclient.New(cfg, p.setHeaders)
	}
	return p
}

// setHeaders sets the required headers for Groq API requests
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	// Forward request ID if present in context
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

// ChatCompletionRaw sends a chat completion request to Groq and returns the
// 2xx response body untouched.
func (p *Provider) ChatCompletionRaw(ctx context.Context, req *core.ChatRequest) ([]byte, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     req,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
