package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, chat.DefaultRoom, cfg.Chat.DefaultRoom)
	assert.False(t, cfg.Chat.ExcludeSender)
	assert.Zero(t, cfg.Chat.HistoryLimit)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, *NewConfig(), *cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	content := `
port: "9000"
allowed_origins:
  - https://chat.example.com
max_message_size: 1024
rate_limit:
  burst: 10
  refill_interval: 2s
chat:
  default_room: lobby
  exclude_sender: true
  history_limit: 50
  replay_history: true
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, chat.Options{
		DefaultRoom:   "lobby",
		ExcludeSender: true,
		HistoryLimit:  50,
		ReplayHistory: true,
	}, cfg.chatOptions())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CHATRELAY_PORT", "7070")
	t.Setenv("CHATRELAY_CHAT_DEFAULT_ROOM", "general")
	t.Setenv("CHATRELAY_RATE_LIMIT_BURST", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Port)
	assert.Equal(t, "general", cfg.Chat.DefaultRoom)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Panics(t, func() { MustLoadConfig(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestSanitizeConfig(t *testing.T) {
	cfg := sanitizeConfig(Config{
		Port:           "  ",
		AllowedOrigins: []string{" http://a.test ", "", "  "},
		MaxMessageSize: -1,
		RateLimit:      RateLimitConfig{Burst: 0, RefillInterval: -time.Second},
		Chat:           ChatConfig{DefaultRoom: "  ", HistoryLimit: -5},
	})

	def := defaultConfig()
	assert.Equal(t, def.Port, cfg.Port)
	assert.Equal(t, []string{"http://a.test"}, cfg.AllowedOrigins)
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
	assert.Equal(t, chat.DefaultRoom, cfg.Chat.DefaultRoom)
	assert.Zero(t, cfg.Chat.HistoryLimit)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(LogConfig{Level: "bogus", Format: "json"})
	assert.Equal(t, "info", log.GetLevel().String())

	log = NewLogger(LogConfig{Level: "debug"})
	assert.Equal(t, "debug", log.GetLevel().String())
}
