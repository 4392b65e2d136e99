package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/logging"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, NewConfig(), cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomchat.yaml")
	yaml := `server:
  port: ":9090"
  allowedOrigins:
    - https://chat.example.com
    - http://localhost:3000
  maxMessageSize: 2048
  shutdownTimeout: 3s
reaper:
  interval: 5s
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.MaxMessageSize)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.ReaperInterval)
	assert.Equal(t, defaultStatsInterval, cfg.StatsInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \":9090\"\n"), 0o600))

	t.Setenv("ROOMCHAT_SERVER_PORT", ":7070")
	t.Setenv("ROOMCHAT_SERVER_ALLOWEDORIGINS", "https://a.example, https://b.example")
	t.Setenv("ROOMCHAT_STATS_INTERVAL", "1m")

	cfg, err := LoadConfig(path, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.StatsInterval)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), logging.Discard())
	assert.Error(t, err)
}

func TestLoadConfigSanitizesInvalidValues(t *testing.T) {
	t.Setenv("ROOMCHAT_SERVER_MAXMESSAGESIZE", "-1")
	t.Setenv("ROOMCHAT_REAPER_INTERVAL", "0s")

	cfg, err := LoadConfig("", logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, int64(defaultMaxMessageSize), cfg.MaxMessageSize)
	assert.Equal(t, defaultReaperInterval, cfg.ReaperInterval)
}

func TestSanitizeConfig(t *testing.T) {
	origins := []string{"http://localhost:8080"}
	got := sanitizeConfig(Config{AllowedOrigins: origins})

	assert.Equal(t, defaultPort, got.Port)
	assert.Equal(t, int64(defaultMaxMessageSize), got.MaxMessageSize)
	assert.Equal(t, defaultShutdownTimeout, got.ShutdownTimeout)
	assert.Equal(t, defaultLogLevel, got.LogLevel)
	assert.Equal(t, defaultLogFormat, got.LogFormat)

	got.AllowedOrigins[0] = "changed"
	assert.Equal(t, "http://localhost:8080", origins[0], "sanitized config must not alias the caller's slice")
}

func TestParseOriginList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"list", []string{"http://a", "http://b"}, []string{"http://a", "http://b"}},
		{"comma separated", []string{"http://a, http://b,"}, []string{"http://a", "http://b"}},
		{"blank entries", []string{" ", ""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOriginList(tt.input))
		})
	}
}
