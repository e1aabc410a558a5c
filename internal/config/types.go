// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/clide-dev/clide/internal/telemetry"
	"github.com/clide-dev/clide/pkg/logging"
)

// CurrentConfigVersion is written to new config files.
const CurrentConfigVersion = "1"

// ClideConfig is the CLI configuration stored in clide.yaml.
type ClideConfig struct {
	Meta      MetaConfig       `yaml:"meta"`
	Logging   LoggingConfig    `yaml:"logging"`
	Manifest  string           `yaml:"manifest"`
	Rules     string           `yaml:"rules"`
	Server    ServerConfig     `yaml:"server"`
	Watch     WatchConfig      `yaml:"watch"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// MetaConfig records the config schema version.
type MetaConfig struct {
	Version string `yaml:"version"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// ServerConfig configures `clide serve`.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// WatchConfig configures manifest watching.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ClideConfig {
	return ClideConfig{
		Meta:    MetaConfig{Version: CurrentConfigVersion},
		Logging: LoggingConfig{Level: "info"},
		Server: ServerConfig{
			Address:         "127.0.0.1:7410",
			ShutdownTimeout: 5 * time.Second,
		},
		Watch:     WatchConfig{Debounce: 100 * time.Millisecond},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoggerConfig converts the logging section into a logging.Config.
func (c ClideConfig) LoggerConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.Config{
		Level:   level,
		JSON:    c.Logging.JSON,
		LogDir:  c.Logging.Dir,
		Service: "clide",
	}
}
