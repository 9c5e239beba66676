// Package server provides configuration helpers that define runtime defaults
// and validation for the chat service.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"

	"github.com/Tyrowin/groupchat/internal/chat"
)

// Config holds the server configuration settings including security controls.
type Config struct {
	Port             string        `env:"SERVER_PORT,default=:8080"`
	Origins          string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxFrameSize     int           `env:"MAX_FRAME_SIZE,default=4096"`
	MaxNameLength    int           `env:"MAX_NAME_LENGTH,default=20"`
	MaxMessageLength int           `env:"MAX_MESSAGE_LENGTH,default=500"`
	SendBufferSize   int           `env:"SEND_BUFFER_SIZE,default=256"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	LogLevel         string        `env:"LOG_LEVEL,default=info"`
	LogFormat        string        `env:"LOG_FORMAT,default=text"`

	// AllowedOrigins is the effective allow-list used by both the CORS layer
	// and the WebSocket origin check. Origins is only its raw source and is
	// parsed into it by NewConfigFromEnv. "*" allows every origin.
	AllowedOrigins []string
}

func defaultConfig() Config {
	limits := chat.DefaultLimits()
	return Config{
		Port:             ":8080",
		Origins:          "http://localhost:8080",
		AllowedOrigins:   []string{"http://localhost:8080"},
		MaxFrameSize:     4096,
		MaxNameLength:    limits.MaxNameLength,
		MaxMessageLength: limits.MaxMessageLength,
		SendBufferSize:   256,
		ShutdownTimeout:  10 * time.Second,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}

	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = defaults.MaxFrameSize
	}

	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = defaults.MaxNameLength
	}

	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaults.MaxMessageLength
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}

	// An empty list would mean "allow all" to CORS but "deny all" to the
	// upgrader, so it falls back to the default list.
	if len(cfg.AllowedOrigins) == 0 {
		cfg.Origins = defaults.Origins
		cfg.AllowedOrigins = defaults.AllowedOrigins
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Unset or non-positive values fall back to the defaults.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.AllowedOrigins = parseOrigins(cfg.Origins)
	cfg = sanitizeConfig(cfg)
	return &cfg, nil
}

// Limits returns the text limits applied by the chat router.
func (c Config) Limits() chat.Limits {
	return chat.Limits{
		MaxNameLength:    c.MaxNameLength,
		MaxMessageLength: c.MaxMessageLength,
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
