package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"playhouse/engine/internal/session"
	"playhouse/engine/internal/snap"
	"playhouse/engine/logging"
)

const (
	envConfigPath   = "PLAYHOUSE_CONFIG"
	envListenAddr   = "PLAYHOUSE_ADDR"
	envTickRateHz   = "PLAYHOUSE_TICK_RATE"
	envCatalogPath  = "PLAYHOUSE_CATALOG"
	defaultAddr     = ":8080"
	defaultTickRate = 30
)

// Config is the root application configuration, loaded from YAML with
// environment fallbacks for the knobs operators touch most.
type Config struct {
	Server  ServerConfig       `yaml:"server"`
	Snap    snap.Tuning        `yaml:"snap"`
	Ground  GroundConfig       `yaml:"ground"`
	Roof    session.RoofConfig `yaml:"roof"`
	Catalog CatalogConfig      `yaml:"catalog"`
	Logging LoggingConfig      `yaml:"logging"`
}

// LoggingConfig is the YAML shape of the event log settings; Build maps it
// onto the logging router's configuration.
type LoggingConfig struct {
	Sinks        []string `yaml:"sinks"`
	BufferSize   int      `yaml:"buffer_size"`
	MinSeverity  string   `yaml:"min_severity"`
	JSONFilePath string   `yaml:"json_file"`
}

func (l LoggingConfig) Build() logging.Config {
	cfg := logging.DefaultConfig()
	if len(l.Sinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), l.Sinks...)
	}
	if l.BufferSize > 0 {
		cfg.BufferSize = l.BufferSize
	}
	switch l.MinSeverity {
	case "debug":
		cfg.MinimumSeverity = logging.SeverityDebug
	case "info", "":
		cfg.MinimumSeverity = logging.SeverityInfo
	case "warn":
		cfg.MinimumSeverity = logging.SeverityWarn
	case "error":
		cfg.MinimumSeverity = logging.SeverityError
	}
	if l.JSONFilePath != "" {
		cfg.JSON.FilePath = l.JSONFilePath
	}
	return cfg
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	TickRate int    `yaml:"tick_rate"`
}

// GroundConfig bounds the square build surface. Size zero falls back to the
// default table.
type GroundConfig struct {
	Size float64 `yaml:"size"`
}

type CatalogConfig struct {
	Paths []string `yaml:"paths"`
}

// Load reads the YAML configuration. With an empty path it consults
// PLAYHOUSE_CONFIG, and with neither set it returns defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// ListenAddr resolves the listen address: config, then PLAYHOUSE_ADDR, then
// the default.
func (s ServerConfig) ListenAddr() string {
	if s.Addr != "" {
		return s.Addr
	}
	if addr := os.Getenv(envListenAddr); addr != "" {
		return addr
	}
	return defaultAddr
}

// TickInterval resolves the simulation tick period from the configured rate,
// PLAYHOUSE_TICK_RATE, or the default 30 Hz.
func (s ServerConfig) TickInterval() time.Duration {
	rate := s.TickRate
	if rate <= 0 {
		if raw := os.Getenv(envTickRateHz); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				rate = parsed
			}
		}
	}
	if rate <= 0 {
		rate = defaultTickRate
	}
	return time.Second / time.Duration(rate)
}

// ResolvedPaths returns the catalog file paths: config, then
// PLAYHOUSE_CATALOG, then nil so the caller falls back to the defaults.
func (c CatalogConfig) ResolvedPaths() []string {
	if len(c.Paths) > 0 {
		return c.Paths
	}
	if path := os.Getenv(envCatalogPath); path != "" {
		return []string{path}
	}
	return nil
}

// Dimensions returns the ground extent, defaulting to a 50m square table.
func (g GroundConfig) Dimensions() float64 {
	if g.Size > 0 {
		return g.Size
	}
	return 50
}
