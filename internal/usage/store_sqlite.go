package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SQLite binds at most 999 parameters per statement.
const (
	maxSQLiteParams      = 999
	columnsPerUsageEntry = 13
	maxEntriesPerBatch   = maxSQLiteParams / columnsPerUsageEntry
)

const usageColumns = `id, request_id, provider_id, timestamp, model, provider, endpoint,
	outcome, prompt_chars, input_tokens, output_tokens, total_tokens, duration_ms`

// SQLiteStore implements UsageStore for SQLite databases.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates the usage table and indexes if needed and, when
// retentionDays > 0, starts the cleanup goroutine.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS usage (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			model TEXT NOT NULL,
			provider TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			outcome TEXT NOT NULL,
			prompt_chars INTEGER NOT NULL DEFAULT 0,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage table: %w", err)
	}

	for _, idx := range usageIndexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, store.cleanup)
	}

	return store, nil
}

// usageIndexes is shared by the SQL backends.
var usageIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage(timestamp)",
	"CREATE INDEX IF NOT EXISTS idx_usage_request_id ON usage(request_id)",
	"CREATE INDEX IF NOT EXISTS idx_usage_model ON usage(model)",
	"CREATE INDEX IF NOT EXISTS idx_usage_outcome ON usage(outcome)",
}

// WriteBatch inserts entries in chunks that fit the parameter limit.
// Entries whose id already exists are skipped.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*UsageEntry) error {
	for start := 0; start < len(entries); start += maxEntriesPerBatch {
		end := min(start+maxEntriesPerBatch, len(entries))
		chunk := entries[start:end]

		placeholders := make([]string, len(chunk))
		values := make([]any, 0, len(chunk)*columnsPerUsageEntry)
		for i, e := range chunk {
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			values = append(values,
				e.ID,
				e.RequestID,
				e.ProviderID,
				e.Timestamp.UTC().Format(time.RFC3339Nano),
				e.Model,
				e.Provider,
				e.Endpoint,
				e.Outcome,
				e.PromptChars,
				e.InputTokens,
				e.OutputTokens,
				e.TotalTokens,
				e.DurationMs,
			)
		}

		query := "INSERT OR IGNORE INTO usage (" + usageColumns + ") VALUES " +
			strings.Join(placeholders, ",")
		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert usage batch %d: %w", start/maxEntriesPerBatch, err)
		}
	}

	return nil
}

// Flush is a no-op; writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. The *sql.DB belongs to the storage
// package and stays open.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *SQLiteStore) cleanup() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UTC().Format(time.RFC3339Nano)

	result, err := s.db.Exec("DELETE FROM usage WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("failed to cleanup old usage entries", "error", err)
		return
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Info("cleaned up old usage entries", "deleted", n)
	}
}
