// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chatrelay service.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

// EnvPrefix prefixes every environment override, e.g. CHATRELAY_PORT.
const EnvPrefix = "CHATRELAY"

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `mapstructure:"burst"`
	RefillInterval time.Duration `mapstructure:"refill_interval"`
}

// ChatConfig holds the room and dispatch policies.
type ChatConfig struct {
	DefaultRoom   string `mapstructure:"default_room"`
	ExcludeSender bool   `mapstructure:"exclude_sender"`
	HistoryLimit  int    `mapstructure:"history_limit"`
	ReplayHistory bool   `mapstructure:"replay_history"`
}

// LogConfig selects the log level and output format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string          `mapstructure:"port"`
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
	MaxMessageSize  int64           `mapstructure:"max_message_size"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Chat            ChatConfig      `mapstructure:"chat"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Log             LogConfig       `mapstructure:"log"`
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		Chat: ChatConfig{
			DefaultRoom: chat.DefaultRoom,
		},
		ShutdownTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig builds a Config from defaults, the optional file at path and
// CHATRELAY_* environment variables, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	def := defaultConfig()
	v.SetDefault("port", def.Port)
	v.SetDefault("allowed_origins", def.AllowedOrigins)
	v.SetDefault("max_message_size", def.MaxMessageSize)
	v.SetDefault("rate_limit.burst", def.RateLimit.Burst)
	v.SetDefault("rate_limit.refill_interval", def.RateLimit.RefillInterval)
	v.SetDefault("chat.default_room", def.Chat.DefaultRoom)
	v.SetDefault("chat.exclude_sender", def.Chat.ExcludeSender)
	v.SetDefault("chat.history_limit", def.Chat.HistoryLimit)
	v.SetDefault("chat.replay_history", def.Chat.ReplayHistory)
	v.SetDefault("shutdown_timeout", def.ShutdownTimeout)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg = sanitizeConfig(cfg)
	return &cfg, nil
}

// MustLoadConfig loads the configuration or panics if there's an error.
func MustLoadConfig(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}

func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}

	cfg.Chat.DefaultRoom = strings.TrimSpace(cfg.Chat.DefaultRoom)
	if cfg.Chat.DefaultRoom == "" {
		cfg.Chat.DefaultRoom = def.Chat.DefaultRoom
	}

	if cfg.Chat.HistoryLimit < 0 {
		cfg.Chat.HistoryLimit = 0
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	return cfg
}

func (c Config) chatOptions() chat.Options {
	return chat.Options{
		DefaultRoom:   c.Chat.DefaultRoom,
		ExcludeSender: c.Chat.ExcludeSender,
		HistoryLimit:  c.Chat.HistoryLimit,
		ReplayHistory: c.Chat.ReplayHistory,
	}
}
