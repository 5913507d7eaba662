// Package config loads process configuration with precedence
// file > environment > defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	// Path is the SQLite file. Empty runs the relay ephemeral-only.
	Path string `mapstructure:"path"`
}

type WebSocketConfig struct {
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type ChatConfig struct {
	BufferCapacity  int           `mapstructure:"buffer_capacity"`
	QueryLimit      int           `mapstructure:"query_limit"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	RateLimitRefill time.Duration `mapstructure:"rate_limit_refill"`
}

// Load reads configuration. path may be empty, in which case only the
// environment (CHATRELAY_* variables) and defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("database.path", "./chatrelay.db")
	v.SetDefault("websocket.read_limit", 4096)
	v.SetDefault("websocket.ping_period", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("chat.buffer_capacity", 100)
	v.SetDefault("chat.query_limit", 50)
	v.SetDefault("chat.rate_limit_burst", 20)
	v.SetDefault("chat.rate_limit_refill", "500ms")

	v.SetEnvPrefix("chatrelay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.WebSocket.ReadLimit <= 0 {
		return fmt.Errorf("websocket read limit must be positive")
	}
	if c.WebSocket.PingPeriod <= 0 {
		return fmt.Errorf("websocket ping period must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive")
	}
	if c.Chat.BufferCapacity <= 0 {
		return fmt.Errorf("chat buffer capacity must be positive")
	}
	if c.Chat.QueryLimit <= 0 || c.Chat.QueryLimit > c.Chat.BufferCapacity {
		return fmt.Errorf("chat query limit must be positive and at most the buffer capacity")
	}
	return nil
}
