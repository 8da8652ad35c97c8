package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "ok", args: []string{"-a", "127.0.0.1:9090", "-t", "3"},
			expected: &Config{ServerEndpointAddr: "127.0.0.1:9090", RequestTimeout: 3 * time.Second}},
		{name: "foreign flags ignored", args: []string{"login", "-x", "1", "-a", "h:1"},
			expected: &Config{ServerEndpointAddr: "h:1", RequestTimeout: 10 * time.Second}},
		{name: "bad timeout", args: []string{"-t", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LoadDefaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg, tt.args) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestParseJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_endpoint_addr":"auth:443","request_timeout":"2s"}`), 0o600))

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, []string{"-c", path})

	assert.Equal(t, "auth:443", cfg.ServerEndpointAddr)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestParseJson_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"request_timeout":"1s"}`), 0o600))

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, []string{"-config=" + path})

	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, time.Second, cfg.RequestTimeout)
}

func TestParseJson_BadFilePanics(t *testing.T) {
	cfg := &Config{}
	require.Panics(t, func() { parseJson(cfg, []string{"-c", filepath.Join(t.TempDir(), "missing.json")}) })
}
