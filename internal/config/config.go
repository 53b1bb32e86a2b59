// Package config provides layered configuration loading: defaults in code,
// an optional YAML file, then environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment identifies the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

// Config is the root configuration for the ScriptFlow backend.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development production test"`
	Server      Server      `yaml:"server"`
	Redis       Redis       `yaml:"redis"`
	Database    Database    `yaml:"database"`
	Cache       Cache       `yaml:"cache"`
	Monitor     Monitor     `yaml:"monitor"`
	Transcriber Transcriber `yaml:"transcriber"`
	Logging     Logging     `yaml:"logging"`
	Tracing     Tracing     `yaml:"tracing"`
}

// Server holds HTTP server settings.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// Redis holds remote cache connection settings.
type Redis struct {
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	OperationTimeout time.Duration `yaml:"operationTimeout" validate:"gt=0"`
	// Enabled false runs the service without a remote cache; every lookup
	// is then a miss and every write a no-op.
	Enabled bool `yaml:"enabled"`
}

// Database holds durable store settings.
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Cache holds per-resource TTLs and the shared key prefix.
type Cache struct {
	TranscriptTTL time.Duration `yaml:"transcriptTTL" validate:"gt=0"`
	VideoTTL      time.Duration `yaml:"videoTTL" validate:"gt=0"`
	SearchTTL     time.Duration `yaml:"searchTTL" validate:"gt=0"`
	KeyPrefix     string        `yaml:"keyPrefix"`
}

// Monitor holds query performance monitor settings.
type Monitor struct {
	SlowQueryThreshold time.Duration `yaml:"slowQueryThreshold" validate:"gt=0"`
	PersistTimeout     time.Duration `yaml:"persistTimeout" validate:"gt=0"`
}

// Transcriber holds the speech-to-text service settings.
type Transcriber struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// Logging holds logger settings.
type Logging struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Tracing holds OTLP trace export settings.
type Tracing struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns a configuration with sensible defaults so the service can
// run without a config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		Redis: Redis{
			Addr:             "localhost:6379",
			DB:               0,
			OperationTimeout: 5 * time.Second,
			Enabled:          true,
		},
		Database: Database{
			Path: "scriptflow.db",
		},
		Cache: Cache{
			TranscriptTTL: 24 * time.Hour,
			VideoTTL:      12 * time.Hour,
			SearchTTL:     30 * time.Minute,
			KeyPrefix:     "",
		},
		Monitor: Monitor{
			SlowQueryThreshold: time.Second,
			PersistTimeout:     5 * time.Second,
		},
		Transcriber: Transcriber{
			BaseURL: "http://localhost:9000",
			Timeout: 10 * time.Minute,
		},
		Logging: Logging{
			Level: "info",
		},
		Tracing: Tracing{
			Enabled: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// applyEnvironment overlays environment variables, the highest priority
// configuration source.
func (c *Config) applyEnvironment() {
	if val := os.Getenv("SCRIPTFLOW_ENV"); val != "" {
		c.Environment = Environment(val)
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		c.Redis.Enabled = parseBool(val)
	}
	if val := os.Getenv("DATABASE_PATH"); val != "" {
		c.Database.Path = val
	}
	if val := os.Getenv("TRANSCRIBER_URL"); val != "" {
		c.Transcriber.BaseURL = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		c.Tracing.Enabled = parseBool(val)
	}
	if val := os.Getenv("OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
	}
}

func parseBool(val string) bool {
	b, err := strconv.ParseBool(val)
	return err == nil && b
}
