package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Settings.Backend)
	assert.Equal(t, 4*time.Second, cfg.Toast.TTL)
	assert.Equal(t, "claude-haiku-4-5", cfg.Classifier.Model)
	assert.True(t, cfg.Notifications.Supported)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9000"
log:
  level: debug
  format: json
toast:
  ttl: 2s
notifications:
  relay:
    url: https://relay.example.com/push
    rate_limit: 2.5
settings:
  backend: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ALERTY_SERVER__PORT", "9100")
	t.Setenv("ALERTY_CLASSIFIER__API_KEY", "sk-env")
	t.Setenv("ALERTY_NOTIFICATIONS__SUPPORTED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2*time.Second, cfg.Toast.TTL)
	assert.Equal(t, "https://relay.example.com/push", cfg.Notifications.Relay.URL)
	assert.Equal(t, 2.5, cfg.Notifications.Relay.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Notifications.Relay.Timeout)
	assert.Equal(t, BackendMemory, cfg.Settings.Backend)
	assert.Equal(t, "sk-env", cfg.Classifier.APIKey)
	assert.False(t, cfg.Notifications.Supported)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"unknown backend", func(c *Config) { c.Settings.Backend = "redis" }, "settings.backend"},
		{"postgres without url", func(c *Config) { c.Settings.Backend = BackendPostgres }, "database.url"},
		{"sqlite without path", func(c *Config) { c.Settings.SQLitePath = "" }, "settings.sqlite_path"},
		{"zero ttl", func(c *Config) { c.Toast.TTL = 0 }, "toast.ttl"},
		{"negative rate", func(c *Config) { c.Notifications.Relay.RateLimit = -1 }, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.metrics_port", envKey("ALERTY_SERVER__METRICS_PORT"))
	assert.Equal(t, "notifications.relay.url", envKey("ALERTY_NOTIFICATIONS__RELAY__URL"))
}
