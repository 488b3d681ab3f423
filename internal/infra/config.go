// Package infra handles configuration loading and infrastructure wiring.
package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/polalpha/aware-gateway/internal/store"
)

// Config is the top-level configuration structure for the gateway.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Database store.Config `yaml:"database"`
	Redis    RedisConfig  `yaml:"redis"` // token store
	Auth     AuthConfig   `yaml:"auth"`

	// QueryTimeout bounds a single request end to end. Large paginated
	// scans need minutes, not seconds.
	QueryTimeout time.Duration `yaml:"query_timeout"` // default 5m
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`          // default ":3446"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default 5m, must cover QueryTimeout
}

// RedisConfig is a minimal Redis connection spec.
type RedisConfig struct {
	Addr     string `yaml:"addr"`     // host:port
	Password string `yaml:"password"` // empty = no auth
	DB       int    `yaml:"db"`       // 0-based
}

// AuthConfig holds the study password and token settings.
type AuthConfig struct {
	StudyPassword string        `yaml:"study_password"` // override via GATEWAY_STUDY_PASSWORD
	TokenTTL      time.Duration `yaml:"token_ttl"`      // default 24h
}

// LoadConfig reads and validates the YAML config at path, applying defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	// Defaults; store.Config applies its own when the provider opens.
	cfg.Server.Addr = ":3446"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 5 * time.Minute
	cfg.Redis.Addr = "localhost:6379"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.QueryTimeout = 5 * time.Minute

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	// STUDY_PASSWORD: config file takes precedence; env var is the fallback
	if cfg.Auth.StudyPassword == "" {
		if s := os.Getenv("GATEWAY_STUDY_PASSWORD"); s != "" {
			cfg.Auth.StudyPassword = s
		} else {
			return nil, fmt.Errorf("config: auth.study_password is required (or set GATEWAY_STUDY_PASSWORD)")
		}
	}
	return cfg, nil
}
