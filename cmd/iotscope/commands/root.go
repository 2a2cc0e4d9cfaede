/**
 * Root Command.
 *
 * Wires configuration, logging, and the optional GeoIP / metrics /
 * SQLite integrations into a ready pipeline for the stage subcommands.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kleaSCM/iotscope/internal/config"
	"github.com/kleaSCM/iotscope/internal/enricher"
	"github.com/kleaSCM/iotscope/internal/metrics"
	"github.com/kleaSCM/iotscope/internal/pipeline"
	"github.com/kleaSCM/iotscope/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagRunRoot string
	flagWorkers int
)

var rootCmd = &cobra.Command{
	Use:   "iotscope",
	Short: "Fingerprint IoT devices from passively observed traffic",
	Long: `iotscope mines periodic control and telemetry conversations out of
per-device packet captures, distils each into a key-packet signature,
and matches fresh captures against the resulting signature bank.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flagRunRoot, "run-root", "", "artifact directory root (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "worker pool size (overrides config)")
}

// Everything a subcommand needs for one invocation.
type runtime struct {
	cfg      *config.Config
	log      *slog.Logger
	pipeline *pipeline.Pipeline
	store    storage.Storage
	geo      *enricher.GeoIPService
}

// Builds the runtime from flags and configuration.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagRunRoot != "" {
		cfg.RunRoot = flagRunRoot
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}

	log := newLogger(cfg.Log)

	var geo *enricher.GeoIPService
	if cfg.GeoIP.CityDB != "" || cfg.GeoIP.ASNDB != "" {
		geo, err = enricher.NewGeoIPService(cfg.GeoIP.CityDB, cfg.GeoIP.ASNDB)
		if err != nil {
			log.Warn("GeoIP initialization failed, enrichment disabled", "error", err)
			geo = nil
		} else {
			log.Info("GeoIP service initialized")
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		go serveMetrics(cfg.Metrics, reg, log)
	}

	var store storage.Storage
	if cfg.Storage.Path != "" {
		s, err := storage.NewSQLiteStorage(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		store = s
	}

	return &runtime{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline.New(cfg, log, geo, collector, store),
		store:    store,
		geo:      geo,
	}, nil
}

// Releases the runtime's resources.
func (rt *runtime) close() {
	if rt.store != nil {
		rt.store.Close()
	}
	rt.geo.Close()
}

// Builds the slog logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// Serves the Prometheus endpoint for the duration of the process.
func serveMetrics(cfg config.MetricsConfig, reg *prometheus.Registry, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info("metrics listener started", "addr", cfg.Addr, "path", cfg.Path)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Warn("metrics listener stopped", "error", err)
	}
}
