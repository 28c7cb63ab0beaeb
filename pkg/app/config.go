package app

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	axonerrors "github.com/toyz/axonroute/internal/errors"
)

const (
	Development = "development"
	Production  = "production"
)

// Config is the YAML configuration of an application
type Config struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Environment     string        `yaml:"environment"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	GlobalPrefix    string        `yaml:"global_prefix"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Log      LogConfig      `yaml:"log"`
	Views    ViewsConfig    `yaml:"views"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// LogConfig selects the zap logger
type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "console" or "json". Empty picks console in development.
	Format string `yaml:"format"`
}

// ViewsConfig configures the view engine. An empty Engine disables rendering.
type ViewsConfig struct {
	Engine    string   `yaml:"engine"`
	Dir       string   `yaml:"dir"`
	Extension string   `yaml:"extension"`
	Partials  []string `yaml:"partials"`
}

// PipelineConfig enables the built-in middleware
type PipelineConfig struct {
	Recovery  bool            `yaml:"recovery"`
	RequestID bool            `yaml:"request_id"`
	Logging   bool            `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// RateLimitConfig limits requests per client IP. A zero Rate disables it.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// MetricsConfig exposes Prometheus metrics on Path
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the configuration used when no file is loaded
func DefaultConfig() *Config {
	cfg := &Config{
		Environment:     Development,
		Port:            "3000",
		GlobalPrefix:    "/",
		ShutdownTimeout: 30 * time.Second,
		Log:             LogConfig{Level: "info"},
		Pipeline: PipelineConfig{
			Recovery:  true,
			RequestID: true,
			Logging:   true,
			Metrics:   MetricsConfig{Path: "/metrics"},
		},
	}
	cfg.applyEnv()
	return cfg
}

// LoadConfig reads path over DefaultConfig. PORT in the environment wins
// over the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, axonerrors.WrapConfigurationError(path, "read", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, axonerrors.WrapConfigurationError(path, "parse", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
}

// Validate checks the values a file can get wrong
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Production, "test":
	default:
		return axonerrors.ConfigurationError("environment",
			fmt.Sprintf("unknown environment %q", c.Environment))
	}
	if c.Port == "" {
		return axonerrors.ConfigurationError("port", "port is required")
	}
	if c.Pipeline.RateLimit.Rate < 0 {
		return axonerrors.ConfigurationError("pipeline.rate_limit", "rate cannot be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); c.Log.Level != "" && err != nil {
		return axonerrors.WrapConfigurationError("log.level", "parse", err)
	}
	return nil
}

// Addr returns host:port
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Logger builds the zap logger described by the log section
func (c *Config) Logger() (*zap.Logger, error) {
	var zc zap.Config
	if c.Environment == Production {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Log.Level != "" {
		level, err := zapcore.ParseLevel(c.Log.Level)
		if err != nil {
			return nil, axonerrors.WrapConfigurationError("log.level", "parse", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	switch c.Log.Format {
	case "":
	case "json", "console":
		zc.Encoding = c.Log.Format
	default:
		return nil, axonerrors.ConfigurationError("log.format", "must be json or console")
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, axonerrors.WrapConfigurationError("log", "build", err)
	}
	return logger, nil
}
