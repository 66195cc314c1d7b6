package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.ChallengeTTL)
	assert.Equal(t, 8*time.Second, cfg.CheckTimeout)
	assert.Equal(t, "1.1.1.1:53", cfg.DNSUpstream)
	assert.Equal(t, "_verify", cfg.DNSLabel)
	assert.Equal(t, "verify", cfg.FilePrefix)
	assert.False(t, cfg.FileAllowHTTPFallback)
	assert.Equal(t, int64(4096), cfg.FileMaxBody)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SITEVERIFY_MAX_ATTEMPTS", "5")
	t.Setenv("SITEVERIFY_CHALLENGE_TTL", "2h")
	t.Setenv("SITEVERIFY_REDIS_ADDR", "localhost:6379")
	t.Setenv("SITEVERIFY_FILE_ALLOW_HTTP_FALLBACK", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.ChallengeTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.FileAllowHTTPFallback)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("SITEVERIFY_MAX_ATTEMPTS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		c := Config{LogLevel: in}
		assert.Equal(t, want, c.SlogLevel(), in)
	}
}
