// Package config loads the YAML application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no path is supplied via flag or env.
const DefaultConfigPath = "config.yaml"

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LogConfig holds logging output settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// RedemptionConfig holds default tuning for the redemption flow. Values
// set here seed the DB-backed settings on first migration; runtime changes
// go through the settings table.
type RedemptionConfig struct {
	ProximityRadiusMeters float64       `yaml:"proximity-radius-meters"`
	RevealHold            time.Duration `yaml:"reveal-hold"`
	FeedRefresh           time.Duration `yaml:"feed-refresh"`
}

// AppConfig is the root configuration document.
type AppConfig struct {
	ListenAddr  string           `yaml:"listen-addr"`
	DatabaseDSN string           `yaml:"database-dsn"`
	RedisAddr   string           `yaml:"redis-addr"`
	JWT         JWTConfig        `yaml:"jwt"`
	Log         LogConfig        `yaml:"log"`
	Redemption  RedemptionConfig `yaml:"redemption"`
}

// ResolveConfigPath picks the config path from the explicit value, the
// HOTPLATE_CONFIG environment variable, or the default, in that order.
func ResolveConfigPath(explicit string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("HOTPLATE_CONFIG")); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads and validates the configuration file at path.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}

	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return cfg, fmt.Errorf("config: database-dsn is required")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return cfg, fmt.Errorf("config: jwt.secret is required")
	}
	return cfg, nil
}

// Defaults returns the configuration defaults applied before parsing.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr: ":8080",
		JWT: JWTConfig{
			Expiry: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Redemption: RedemptionConfig{
			ProximityRadiusMeters: 100,
			RevealHold:            1200 * time.Millisecond,
			FeedRefresh:           30 * time.Second,
		},
	}
}
