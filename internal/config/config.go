/**
 * Configuration Definitions.
 *
 * Defines the pipeline configuration: run-root layout, stage policy
 * constants, worker counts, the device ↔ MAC table, and the optional
 * GeoIP / SQLite / metrics integrations. Loading is koanf-based: YAML
 * file first, then IOTSCOPE_* environment overrides.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Holds the complete iotscope configuration.
type Config struct {
	// RunRoot is the artifact directory root (contains 1_input …
	// 17_signatureMerge).
	RunRoot string `koanf:"run_root"`

	// Workers bounds the file-granularity worker pools. 0 means the
	// available hardware concurrency.
	Workers int `koanf:"workers"`

	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Split     SplitConfig     `koanf:"split"`
	Samples   SampleConfig    `koanf:"samples"`
	Cluster   ClusterConfig   `koanf:"cluster"`
	Signature SignatureConfig `koanf:"signature"`
	GeoIP     GeoIPConfig     `koanf:"geoip"`
	Storage   StorageConfig   `koanf:"storage"`

	// Devices is the pre-supplied device name → MAC address table.
	Devices map[string]string `koanf:"devices"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
// An empty Addr disables the listener.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// SplitConfig holds the session splitter policy.
type SplitConfig struct {
	// DurationFraction is α: a session is kept when its duration is at
	// least α times the capture's time span.
	DurationFraction float64 `koanf:"duration_fraction"`
}

// SampleConfig holds the sample sufficiency policy.
type SampleConfig struct {
	// Min is the minimum number of sample files a session must keep.
	Min int `koanf:"min"`
	// Cap is the maximum number of sample CSVs carried into clustering;
	// larger sessions keep a deterministic random subset.
	Cap int `koanf:"cap"`
}

// ClusterConfig holds the DBSCAN parameters.
type ClusterConfig struct {
	Eps        float64 `koanf:"eps"`
	MinSamples int     `koanf:"min_samples"`
}

// SignatureConfig holds signature extraction policy.
type SignatureConfig struct {
	// ZeroRunLength is the minimum run of '0' characters stripped from
	// hex payloads before hashing.
	ZeroRunLength int `koanf:"zero_run_length"`
}

// GeoIPConfig holds paths to the MaxMind databases. Empty paths disable
// session enrichment.
type GeoIPConfig struct {
	CityDB string `koanf:"city_db"`
	ASNDB  string `koanf:"asn_db"`
}

// StorageConfig holds the optional SQLite persistence settings. An
// empty Path disables persistence.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// Returns a Config populated with the pipeline's default policy
// constants.
func DefaultConfig() *Config {
	return &Config{
		RunRoot: ".",
		Workers: 0,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: "",
			Path: "/metrics",
		},
		Split: SplitConfig{
			DurationFraction: 0.5,
		},
		Samples: SampleConfig{
			Min: 15,
			Cap: 50,
		},
		Cluster: ClusterConfig{
			Eps:        0.01,
			MinSamples: 5,
		},
		Signature: SignatureConfig{
			ZeroRunLength: 11,
		},
		Devices: map[string]string{},
	}
}

// Loads configuration: defaults, then the YAML file (if given), then
// IOTSCOPE_* environment variables (IOTSCOPE_LOG_LEVEL → log.level).
// Every underscore after the prefix becomes a dot, so keys whose own
// names contain an underscore (run_root, cluster.min_samples, ...)
// cannot be set from the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("IOTSCOPE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "IOTSCOPE_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validates configured values and fills computed defaults.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Split.DurationFraction <= 0 || c.Split.DurationFraction > 1 {
		return fmt.Errorf("split.duration_fraction must be in (0, 1], got %v", c.Split.DurationFraction)
	}
	if c.Samples.Min < 1 {
		return fmt.Errorf("samples.min must be >= 1, got %d", c.Samples.Min)
	}
	if c.Samples.Cap < c.Samples.Min {
		return fmt.Errorf("samples.cap (%d) must be >= samples.min (%d)", c.Samples.Cap, c.Samples.Min)
	}
	if c.Cluster.Eps <= 0 {
		return fmt.Errorf("cluster.eps must be positive, got %v", c.Cluster.Eps)
	}
	if c.Cluster.MinSamples < 1 {
		return fmt.Errorf("cluster.min_samples must be >= 1, got %d", c.Cluster.MinSamples)
	}
	if c.Signature.ZeroRunLength < 1 {
		return fmt.Errorf("signature.zero_run_length must be >= 1, got %d", c.Signature.ZeroRunLength)
	}
	return nil
}
