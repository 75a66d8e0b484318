// Package usage records one entry per prediction (outcome, token counts and
// latency) for later analysis. Entries are buffered in memory and written in
// batches to the shared storage backend.
package usage

import (
	"context"
	"time"
)

// UsageStore defines the interface for usage storage backends.
// Implementations must be safe for concurrent use.
type UsageStore interface {
	// WriteBatch writes multiple usage entries to storage.
	// This is called by the Logger when flushing buffered entries.
	WriteBatch(ctx context.Context, entries []*UsageEntry) error

	// Flush forces any pending writes to complete.
	// Called during graceful shutdown.
	Flush(ctx context.Context) error

	// Close releases resources and flushes pending writes.
	Close() error
}

// UsageEntry is a single prediction record.
type UsageEntry struct {
	// ID is a unique identifier for this usage entry (UUID)
	ID string `json:"id" bson:"_id"`

	// RequestID is the inbound X-Request-ID
	RequestID string `json:"request_id" bson:"request_id"`

	// ProviderID is the upstream completion id (e.g. "chatcmpl-abc123"), empty when the call failed
	ProviderID string `json:"provider_id" bson:"provider_id"`

	// Timestamp is when the upstream call completed
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	Model    string `json:"model" bson:"model"`
	Provider string `json:"provider" bson:"provider"`
	Endpoint string `json:"endpoint" bson:"endpoint"`

	// Outcome is the result kind ("object", "not_json", ...) or the error type of a failed call
	Outcome string `json:"outcome" bson:"outcome"`

	// PromptChars is the user prompt length in runes. The prompt itself is not stored.
	PromptChars int `json:"prompt_chars" bson:"prompt_chars"`

	InputTokens  int `json:"input_tokens" bson:"input_tokens"`
	OutputTokens int `json:"output_tokens" bson:"output_tokens"`
	TotalTokens  int `json:"total_tokens" bson:"total_tokens"`

	DurationMs int64 `json:"duration_ms" bson:"duration_ms"`
}

// Config holds usage tracking configuration
type Config struct {
	// Enabled controls whether usage tracking is active
	Enabled bool

	// BufferSize is the number of usage entries to buffer before dropping
	BufferSize int

	// FlushInterval is how often to flush buffered entries
	FlushInterval time.Duration

	// RetentionDays is how long to keep usage data (0 = forever)
	RetentionDays int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 90,
	}
}
