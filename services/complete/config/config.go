// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the completion service configuration.
//
// Priority: environment > file > defaults. Files may be YAML or JSON.
// The merged configuration is validated with go-playground/validator tags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianComplete/services/complete/completer"
	"github.com/AleutianAI/AleutianComplete/services/complete/snapshot"
	"github.com/AleutianAI/AleutianComplete/services/complete/telemetry"
)

// configValidate is the shared validator instance.
var configValidate = validator.New()

// Config is the full service configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after Load.
type Config struct {
	// Server contains HTTP settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Search contains chain search defaults and limits.
	Search completer.Config `json:"search" yaml:"search"`

	// Snapshots contains snapshot store settings.
	Snapshots SnapshotConfig `json:"snapshots" yaml:"snapshots"`

	// Logging contains logger settings.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Telemetry contains OpenTelemetry settings.
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

// ServerConfig contains HTTP settings.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" validate:"required"`
	RateLimit       float64       `json:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	RateBurst       int           `json:"rate_burst" yaml:"rate_burst" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
}

// SnapshotConfig contains snapshot store settings.
type SnapshotConfig struct {
	MaxSnapshots int           `json:"max_snapshots" yaml:"max_snapshots" validate:"gte=1"`
	Watch        bool          `json:"watch" yaml:"watch"`
	Debounce     time.Duration `json:"debounce" yaml:"debounce" validate:"gte=0"`
	Preload      []string      `json:"preload,omitempty" yaml:"preload,omitempty"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `json:"dir,omitempty" yaml:"dir,omitempty"`
	JSON  bool   `json:"json" yaml:"json"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":12230",
			RateLimit:       50,
			RateBurst:       100,
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     30 * time.Second,
		},
		Search: completer.DefaultConfig(),
		Snapshots: SnapshotConfig{
			MaxSnapshots: snapshot.DefaultMaxSnapshots,
			Watch:        true,
			Debounce:     snapshot.DefaultDebounce,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - path: Path to a YAML/JSON file. Empty or missing means defaults.
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file is invalid or validation fails.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	// Server
	if v := os.Getenv("COMPLETE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("COMPLETE_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	if v := os.Getenv("COMPLETE_RATE_BURST"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateBurst = i
		}
	}

	// Search
	if v := os.Getenv("COMPLETE_MAX_CHAINS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxChains = i
		}
	}
	if v := os.Getenv("COMPLETE_MIN_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Search.MinDepth = i
		}
	}
	if v := os.Getenv("COMPLETE_MAX_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxDepth = i
		}
	}
	if v := os.Getenv("COMPLETE_ADMISSION_CAP"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Search.AdmissionCap = i
		}
	}
	if v := os.Getenv("COMPLETE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.Timeout = d
		}
	}
	if v := os.Getenv("COMPLETE_GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.GracePeriod = d
		}
	}
	if v := os.Getenv("COMPLETE_MAX_CONCURRENT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxConcurrent = i
		}
	}

	// Snapshots
	if v := os.Getenv("COMPLETE_MAX_SNAPSHOTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Snapshots.MaxSnapshots = i
		}
	}
	if v := os.Getenv("COMPLETE_WATCH"); v != "" {
		cfg.Snapshots.Watch = v == "true" || v == "1"
	}
	if v := os.Getenv("COMPLETE_PRELOAD"); v != "" {
		cfg.Snapshots.Preload = splitList(v)
	}

	// Logging
	if v := os.Getenv("COMPLETE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("COMPLETE_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("COMPLETE_LOG_JSON"); v != "" {
		cfg.Logging.JSON = v == "true" || v == "1"
	}
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	return configValidate.Struct(c)
}
