package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoprompt/config"
	"geoprompt/internal/relay"
	"geoprompt/internal/storage"
	"geoprompt/internal/usage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: "0", BodySizeLimit: "1M"},
		Groq: config.GroqConfig{
			BaseURL:    "http://127.0.0.1:1",
			Model:      "llama-3.3-70b-versatile",
			Timeout:    5,
			MaxRetries: 0,
		},
		Static:  config.StaticConfig{Dir: t.TempDir(), IndexFile: "index.html"},
		Logging: config.LoggingConfig{Format: "json", Level: "info"},
		Storage: config.StorageConfig{Type: "sqlite"},
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestNew_WithoutKey(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	assert.False(t, a.Relay().Configured())
	assert.IsType(t, &usage.NoopLogger{}, a.UsageLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"prompt":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Server().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"GROQ_API_KEY not configured"}`, rec.Body.String())
}

func TestNew_WithKeyAndUsageTracking(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-app",
			"choices": []any{map[string]any{
				"message": map[string]any{"role": "assistant", "content": `{"place_name":"Rome"}`},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.Groq.APIKey = "gsk-test"
	cfg.Groq.BaseURL = upstream.URL
	cfg.Usage = config.UsageConfig{Enabled: true, BufferSize: 10, FlushInterval: 1}
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "usage.db")

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	require.True(t, a.Relay().Configured())

	result, err := a.Relay().Predict(context.Background(), "fountains in Rome")
	require.NoError(t, err)
	assert.Equal(t, relay.KindObject, result.Kind)
	assert.JSONEq(t, `{"place_name":"Rome"}`, string(result.Object))

	db := a.usage.Storage.SQLiteDB()

	// Close the logger first so the entry is flushed while the database is open.
	require.NoError(t, a.usage.Logger.Close())
	var outcome string
	var total int
	require.NoError(t, db.QueryRow("SELECT outcome, total_tokens FROM usage").Scan(&outcome, &total))
	assert.Equal(t, "object", outcome)
	assert.Equal(t, 15, total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
}

func TestShutdown_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestRun_DrainsInFlightRequestBeforeReturning(t *testing.T) {
	received := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(received)
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{"role": "assistant", "content": `{"place_name":"Lisbon"}`},
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		})
	}))
	defer upstream.Close()

	dbPath := filepath.Join(t.TempDir(), "usage.db")
	cfg := testConfig(t)
	cfg.Groq.APIKey = "gsk-test"
	cfg.Groq.BaseURL = upstream.URL
	// Only Close can flush within the test.
	cfg.Usage = config.UsageConfig{Enabled: true, BufferSize: 10, FlushInterval: 3600}
	cfg.Storage.SQLite.Path = dbPath

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(ctx, "127.0.0.1:0", 5*time.Second)
	}()

	require.Eventually(t, func() bool {
		return a.Server().ListenerAddr() != nil
	}, 2*time.Second, 10*time.Millisecond)

	status := make(chan int, 1)
	go func() {
		resp, err := http.Post("http://"+a.Server().ListenerAddr().String()+"/api/predict",
			"application/json", strings.NewReader(`{"prompt":"trams in Lisbon"}`))
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-received
	cancel()

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	// Run has returned, so the request was served and its usage entry flushed.
	assert.Equal(t, http.StatusOK, <-status)

	store, err := storage.New(context.Background(), storage.Config{
		Type:   storage.TypeSQLite,
		SQLite: storage.SQLiteConfig{Path: dbPath},
	})
	require.NoError(t, err)
	defer store.Close()

	var outcome string
	var total int
	require.NoError(t, store.SQLiteDB().QueryRow("SELECT outcome, total_tokens FROM usage").Scan(&outcome, &total))
	assert.Equal(t, "object", outcome)
	assert.Equal(t, 5, total)
}

func TestRun_ReturnsStartError(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	err = a.Run(context.Background(), "not-an-address", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed to start")
}
