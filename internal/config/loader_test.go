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
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clide-dev/clide/pkg/logging"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "deep", ".clide", "clide.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg ClideConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	if cfg.Meta.Version != CurrentConfigVersion {
		t.Errorf("Meta.Version = %q, want %q", cfg.Meta.Version, CurrentConfigVersion)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "clide.yaml")
	content := `
logging:
  level: debug
  json: true
manifest: parts/editor.yaml
rules: /etc/clide/rules.yaml
server:
  address: "0.0.0.0:9000"
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Manifest != filepath.Join(dir, "parts", "editor.yaml") {
		t.Errorf("Manifest = %q, want it resolved against the config dir", cfg.Manifest)
	}
	if cfg.Rules != "/etc/clide/rules.yaml" {
		t.Errorf("Rules = %q", cfg.Rules)
	}
	if cfg.Server.Address != "0.0.0.0:9000" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	// untouched sections keep their defaults
	if cfg.Watch.Debounce != 100*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want default", cfg.Watch.Debounce)
	}

	lc := cfg.LoggerConfig()
	if lc.Level != logging.LevelDebug || !lc.JSON || lc.Service != "clide" {
		t.Errorf("LoggerConfig() = %+v", lc)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad level":    "logging:\n  level: loud\n",
		"bad address":  "server:\n  address: nowhere\n",
		"not yaml":     "server: [\n",
		"bad duration": "watch:\n  debounce: soon\n",
		"bad exporter": "telemetry:\n  trace_exporter: zipkin\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "clide.yaml")
			if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(p); err == nil {
				t.Error("LoadFile() should fail")
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() is invalid: %v", err)
	}
}
