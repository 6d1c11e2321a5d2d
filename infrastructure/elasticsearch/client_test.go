package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"os"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "http", input: "http://elasticsearch:9200", expected: "http://elasticsearch:9200"},
		{name: "https", input: "https://elasticsearch:9200", expected: "https://elasticsearch:9200"},
		{name: "missing scheme", input: "elasticsearch:9200", expected: "http://elasticsearch:9200"},
		{name: "empty", input: "", expected: "http://localhost:9200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, normalizeURL(tt.input))
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{URL: "http://custom:9200"}
	cfg.SetDefaults()

	assert.Equal(t, "http://custom:9200", cfg.URL)
	assert.Equal(t, "exchange_programs", cfg.Index)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.PingTimeout)
	require.NotNil(t, cfg.RetryConfig)
	assert.Equal(t, 5, cfg.RetryConfig.MaxAttempts)
}

func TestCreateTransport(t *testing.T) {
	t.Parallel()

	plain, err := createTransport(TLSConfig{})
	require.NoError(t, err)
	assert.Nil(t, plain.TLSClientConfig)

	secure, err := createTransport(TLSConfig{Enabled: true, InsecureSkipVerify: true})
	require.NoError(t, err)
	require.NotNil(t, secure.TLSClientConfig)
	assert.True(t, secure.TLSClientConfig.InsecureSkipVerify)

	badCA := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(badCA, []byte("not a cert"), 0o600))
	_, err = createTransport(TLSConfig{Enabled: true, CAFile: badCA})
	require.ErrorIs(t, err, errNoCACerts)
}

func TestNewClient_Ping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":{"number":"8.19.0"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), Config{URL: srv.URL}, logger.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClient_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := Config{
		URL:         url,
		MaxRetries:  1,
		PingTimeout: 200 * time.Millisecond,
		RetryConfig: &retry.Config{MaxAttempts: 2, InitialDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond},
	}

	_, err := NewClient(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}
