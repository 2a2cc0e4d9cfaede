/**
 * Configuration Tests.
 *
 * Unit tests for defaults, YAML loading, environment overrides, and
 * validation.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Split.DurationFraction != 0.5 {
		t.Errorf("duration fraction = %v, want 0.5", cfg.Split.DurationFraction)
	}
	if cfg.Samples.Min != 15 {
		t.Errorf("sample minimum = %d, want 15", cfg.Samples.Min)
	}
	if cfg.Samples.Cap != 50 {
		t.Errorf("sample cap = %d, want 50", cfg.Samples.Cap)
	}
	if cfg.Cluster.Eps != 0.01 || cfg.Cluster.MinSamples != 5 {
		t.Errorf("DBSCAN = (%v, %d), want (0.01, 5)", cfg.Cluster.Eps, cfg.Cluster.MinSamples)
	}
	if cfg.Signature.ZeroRunLength != 11 {
		t.Errorf("zero-run length = %d, want 11", cfg.Signature.ZeroRunLength)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
run_root: /data/run1
workers: 4
log:
  level: debug
  format: json
split:
  duration_fraction: 0.6
devices:
  camera: "aa:bb:cc:dd:ee:01"
  plug: "b0:f1:ec:d4:26:ae"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunRoot != "/data/run1" {
		t.Errorf("run root = %q", cfg.RunRoot)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workers)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Split.DurationFraction != 0.6 {
		t.Errorf("duration fraction = %v, want 0.6", cfg.Split.DurationFraction)
	}
	if cfg.Devices["camera"] != "aa:bb:cc:dd:ee:01" {
		t.Errorf("devices = %v", cfg.Devices)
	}
	// Untouched keys keep their defaults.
	if cfg.Samples.Min != 15 {
		t.Errorf("sample minimum = %d, want default 15", cfg.Samples.Min)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("IOTSCOPE_LOG_LEVEL", "error")
	t.Setenv("IOTSCOPE_WORKERS", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log level = %q, want env override", cfg.Log.Level)
	}
	if cfg.Workers != 3 {
		t.Errorf("workers = %d, want env override", cfg.Workers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero duration fraction", func(c *Config) { c.Split.DurationFraction = 0 }},
		{"fraction above one", func(c *Config) { c.Split.DurationFraction = 1.5 }},
		{"zero sample minimum", func(c *Config) { c.Samples.Min = 0 }},
		{"cap below minimum", func(c *Config) { c.Samples.Cap = 5 }},
		{"negative eps", func(c *Config) { c.Cluster.Eps = -1 }},
		{"zero min samples", func(c *Config) { c.Cluster.MinSamples = 0 }},
		{"zero strip length", func(c *Config) { c.Signature.ZeroRunLength = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestValidateFillsWorkerDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Workers < 1 {
		t.Errorf("workers = %d, want hardware concurrency", cfg.Workers)
	}
}
