package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_grpc":                   "www.example:9000",
		"database_dsn":                         "postgres://db",
		"secret_key":                           "my_secret_key",
		"issuer":                               "iss",
		"access_token_validity_duration":       "1m",
		"refresh_token_validity_duration":      "72h",
		"verification_token_validity_duration": "24h",
		"cleanup_interval":                     60000000000,
		"notifier_backend":                     "s3",
		"s3_bucket":                            "bucket",
		"kafka_brokers":                        []string{"a:1"},
		"user_events_topic":                    "users",
		"user_events_group_id":                 "auth",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "iss", cfg.Issuer)
		assert.Equal(t, time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 72*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 24*time.Hour, cfg.VerificationTokenValidityDuration)
		assert.Equal(t, time.Minute, cfg.CleanupInterval)
		assert.Equal(t, "s3", cfg.NotifierBackend)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, []string{"a:1"}, cfg.KafkaBrokers)
		assert.Equal(t, "users", cfg.UserEventsTopic)
		assert.Equal(t, "auth", cfg.UserEventsGroupID)
	})

	t.Run("absent keys keep current values", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", path})

		assert.Equal(t, "admin", cfg.S3RootUser)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		cfg := &Config{SecretKey: "key", AccessTokenValidityDuration: 2 * time.Minute}
		parseJson(cfg, nil)

		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Panics(t, func() { parseJson(&Config{}, []string{"-config", bad}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})
}
