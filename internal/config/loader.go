// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the clide CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global ClideConfig
	once   sync.Once

	validate = validator.New()
)

// DefaultPath returns ~/.clide/clide.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".clide", "clide.yaml"), nil
}

// Load ensures the config at path is loaded into Global. An empty path
// means DefaultPath. Only the first call has any effect.
func Load(path string) error {
	var err error
	once.Do(func() {
		var cfg *ClideConfig
		cfg, err = loadInternal(path)
		if err == nil {
			Global = *cfg
		}
	})
	return err
}

func loadInternal(path string) (*ClideConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
		// only the default location is created on first run
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := createDefault(path); err != nil {
				return nil, err
			}
		}
	}
	return LoadFile(path)
}

// LoadFile reads, defaults and validates the config at path.
//
// Fields missing from the file keep their DefaultConfig values.
func LoadFile(path string) (*ClideConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// relative manifest and rule paths are relative to the config file
	base := filepath.Dir(path)
	cfg.Manifest = resolve(base, cfg.Manifest)
	cfg.Rules = resolve(base, cfg.Rules)
	return &cfg, nil
}

// Validate checks field constraints.
func (c *ClideConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
