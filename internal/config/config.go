// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package config loads Qualisight configuration with koanf, layering
// defaults, an optional YAML file, and QUALISIGHT_-prefixed environment
// variables (highest priority). Structural validation runs after unmarshal.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/qualisight/config.yaml",
	"/etc/qualisight/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "QUALISIGHT_CONFIG"

// envPrefix namespaces all configuration environment variables.
const envPrefix = "QUALISIGHT_"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Cache   CacheConfig   `koanf:"cache"`
	Session SessionConfig `koanf:"session"`
	Memory  MemoryConfig  `koanf:"memory"`
}

// ServerConfig configures the admin/monitoring HTTP surface.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig configures the query cache and its janitor.
type CacheConfig struct {
	MaxEntries int `koanf:"max_entries" validate:"min=1"`

	// JanitorInterval drives the supervised expired-entry sweep.
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"min=1s"`
}

// SessionConfig configures session lifecycle management.
type SessionConfig struct {
	MaxConcurrentSessions int           `koanf:"max_concurrent_sessions" validate:"min=1"`
	SessionTimeout        time.Duration `koanf:"session_timeout" validate:"min=1m"`
	RememberMeTimeout     time.Duration `koanf:"remember_me_timeout" validate:"min=1h"`
	ActivityTimeout       time.Duration `koanf:"activity_timeout" validate:"min=1m"`
	RotationInterval      time.Duration `koanf:"rotation_interval" validate:"min=1m"`
	RotateOnActivity      bool          `koanf:"rotate_on_activity"`
	MaxActivities         int           `koanf:"max_activities" validate:"min=1"`

	// JanitorInterval drives the supervised expired-session sweep.
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"min=1s"`
}

// MemoryConfig configures the memory monitor.
type MemoryConfig struct {
	SnapshotInterval       time.Duration `koanf:"snapshot_interval" validate:"min=1s"`
	MaxSnapshots           int           `koanf:"max_snapshots" validate:"min=2"`
	HighUsageThreshold     float64       `koanf:"high_usage_threshold" validate:"gt=0,lte=1"`
	CriticalUsageThreshold float64       `koanf:"critical_usage_threshold" validate:"gt=0,lte=1"`
	RapidGrowthMBPerMin    float64       `koanf:"rapid_growth_mb_per_min" validate:"gt=0"`
	LeakDetectionWindow    time.Duration `koanf:"leak_detection_window" validate:"min=1m"`
	GCPressureThreshold    float64       `koanf:"gc_pressure_threshold" validate:"gt=0"`
	AllowForcedGC          bool          `koanf:"allow_forced_gc"`
}

// defaultConfig returns all defaults; file and environment layers override.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8490,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			MaxEntries:      1000,
			JanitorInterval: 5 * time.Minute,
		},
		Session: SessionConfig{
			MaxConcurrentSessions: 5,
			SessionTimeout:        30 * time.Minute,
			RememberMeTimeout:     30 * 24 * time.Hour,
			ActivityTimeout:       2 * time.Hour,
			RotationInterval:      time.Hour,
			RotateOnActivity:      true,
			MaxActivities:         5000,
			JanitorInterval:       10 * time.Minute,
		},
		Memory: MemoryConfig{
			SnapshotInterval:       60 * time.Second,
			MaxSnapshots:           60,
			HighUsageThreshold:     0.85,
			CriticalUsageThreshold: 0.95,
			RapidGrowthMBPerMin:    10,
			LeakDetectionWindow:    15 * time.Minute,
			GCPressureThreshold:    30,
			AllowForcedGC:          true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// QUALISIGHT_CACHE_MAX_ENTRIES -> cache.max_entries
	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps QUALISIGHT_SECTION_SOME_KEY to section.some_key. The
// first underscore separates the section; the rest keep their underscores.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if i := strings.Index(key, "_"); i > 0 {
		return key[:i] + "." + key[i+1:]
	}
	return key
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate runs structural validation plus cross-field checks.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Memory.CriticalUsageThreshold < c.Memory.HighUsageThreshold {
		return fmt.Errorf("memory.critical_usage_threshold (%.2f) must be >= memory.high_usage_threshold (%.2f)",
			c.Memory.CriticalUsageThreshold, c.Memory.HighUsageThreshold)
	}
	if c.Session.ActivityTimeout > c.Session.RememberMeTimeout {
		return fmt.Errorf("session.activity_timeout must not exceed session.remember_me_timeout")
	}
	return nil
}
