// Package core defines the core interfaces and types shared across the relay.
package core

import "context"

// ChatCompleter sends a chat completion request upstream and returns the raw
// response body. The body is returned unparsed because callers relay it verbatim
// when it does not have the expected shape.
type ChatCompleter interface {
	ChatCompletionRaw(ctx context.Context, req *ChatRequest) ([]byte, error)
}
