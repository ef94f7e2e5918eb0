// Package config loads the factoryctl operator configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-factory/pkg/rules"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the factoryctl settings.
type Config struct {
	// Program is the base58 deployment identity the record address derives
	// from.
	Program string `yaml:"program"`
	// Seeds replaces the default address seed when set.
	Seeds []string `yaml:"seeds,omitempty"`
	// KeyFile is the signing key used for mutating commands.
	KeyFile string `yaml:"key_file"`

	Store     StoreConfig     `yaml:"store"`
	Admission AdmissionConfig `yaml:"admission"`
	Activity  ActivityConfig  `yaml:"activity"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, memory
	Path   string `yaml:"path"`
}

// AdmissionConfig configures the rules evaluated before a reservation.
type AdmissionConfig struct {
	Engine string       `yaml:"engine"` // expr, cel, js
	Rules  []rules.Rule `yaml:"rules,omitempty"`
}

// ActivityConfig controls activity emission.
type ActivityConfig struct {
	Channel string `yaml:"channel"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		KeyFile: "keys/operator.yaml",
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "data/factory.db",
		},
		Admission: AdmissionConfig{
			Engine: "expr",
		},
		Activity: ActivityConfig{
			Channel: "factory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("config: store.path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Admission.Engine {
	case "", "expr", "cel", "js":
	default:
		return fmt.Errorf("config: unknown admission engine %q", c.Admission.Engine)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: logging.level: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FACTORY_PROGRAM"); v != "" {
		c.Program = v
	}
	if v := os.Getenv("FACTORY_KEY_FILE"); v != "" {
		c.KeyFile = v
	}
	if v := os.Getenv("FACTORY_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("FACTORY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// BuildLogger returns a zap logger for the logging settings. verbose forces
// debug level.
func (c *Config) BuildLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Logging.Format == "text" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("config: build logger: %w", err)
	}
	return logger, nil
}
