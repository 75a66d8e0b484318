package llmclient

import (
	"context"
	"time"
)

// RequestInfo describes one upstream attempt.
type RequestInfo struct {
	Provider string
	Method   string
	Endpoint string
	// Attempt is zero for the first try and increments per retry.
	Attempt int
}

// ResponseInfo describes the outcome of one upstream attempt.
// StatusCode is zero when the request failed before a response arrived.
type ResponseInfo struct {
	RequestInfo
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Hooks lets observability code watch upstream traffic without the client
// depending on a metrics library.
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}
