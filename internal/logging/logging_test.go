package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatJSON, "info")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("prediction finished", "outcome", "object")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "prediction finished", record["msg"])
	assert.Equal(t, "object", record["outcome"])
}

func TestNew_AutoIsJSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatAuto, "")
	require.NoError(t, err)

	logger.Info("hello")

	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_PrettyWithoutColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatPretty, "debug")
	require.NoError(t, err)

	logger.Debug("upstream call", "status", 200)

	out := buf.String()
	assert.Contains(t, out, "upstream call")
	assert.Contains(t, out, "status=200")
	assert.NotContains(t, out, "\033[")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	require.Error(t, err)

	_, err = New(&bytes.Buffer{}, FormatJSON, "loud")
	require.Error(t, err)
}
