package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("explicit timeout", func(t *testing.T) {
		cfg := DefaultConfig(15 * time.Second)
		assert.Equal(t, 15*time.Second, cfg.Timeout)
		assert.Equal(t, 15*time.Second, cfg.ResponseHeaderTimeout)
	})

	t.Run("zero falls back to default", func(t *testing.T) {
		cfg := DefaultConfig(0)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
	})
}

func TestNewHTTPClient(t *testing.T) {
	cfg := DefaultConfig(5 * time.Second)
	client := NewHTTPClient(&cfg)

	assert.Equal(t, 5*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, cfg.MaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 5*time.Second, transport.ResponseHeaderTimeout)

	assert.Equal(t, DefaultTimeout, NewHTTPClient(nil).Timeout)
}
