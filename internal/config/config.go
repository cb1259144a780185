// Package config holds the process-level settings for the stateflow
// server and CLI. Values resolve in three layers: defaults, then an
// optional YAML file, then STATEFLOW_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings configures the server and CLI.
type Settings struct {
	Addr            string        `yaml:"addr"`
	Store           string        `yaml:"store"` // memory, sqlite or redis
	SQLitePath      string        `yaml:"sqlite_path"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	MaxIterations   int           `yaml:"max_iterations"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the baseline settings.
func Default() Settings {
	return Settings{
		Addr:            ":8080",
		Store:           "memory",
		SQLitePath:      "stateflow.db",
		RedisAddr:       "localhost:6379",
		LogLevel:        "info",
		LogFormat:       "text",
		MaxIterations:   100,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load resolves settings: defaults, then the YAML file at path (when
// non-empty), then environment variables.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		if err := s.LoadFile(path); err != nil {
			return s, err
		}
	}
	s.ApplyEnv()
	return s, nil
}

// LoadFile merges the YAML file at path into the settings.
func (s *Settings) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv merges STATEFLOW_* environment variables into the settings.
// Malformed numeric or duration values are ignored in favor of the
// current value.
func (s *Settings) ApplyEnv() {
	setString(&s.Addr, "STATEFLOW_ADDR")
	setString(&s.Store, "STATEFLOW_STORE")
	setString(&s.SQLitePath, "STATEFLOW_SQLITE_PATH")
	setString(&s.RedisAddr, "STATEFLOW_REDIS_ADDR")
	setString(&s.RedisPassword, "STATEFLOW_REDIS_PASSWORD")
	setString(&s.LogLevel, "STATEFLOW_LOG_LEVEL")
	setString(&s.LogFormat, "STATEFLOW_LOG_FORMAT")
	setInt(&s.RedisDB, "STATEFLOW_REDIS_DB")
	setInt(&s.MaxIterations, "STATEFLOW_MAX_ITERATIONS")
	if v := os.Getenv("STATEFLOW_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.ShutdownTimeout = d
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
