package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gburgyan/go-reqdep/background"
	"github.com/gburgyan/go-reqdep/schema"
)

// Config is the demo server's configuration file.
type Config struct {
	Addr              string            `yaml:"addr"`
	ValidationMessage string            `yaml:"validation_message"`
	MaxBodyBytes      int64             `yaml:"max_body_bytes"`
	Pool              background.Config `yaml:"pool"`
	Log               LogConfig         `yaml:"log"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func defaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ValidationMessage: schema.DefaultMessage,
		MaxBodyBytes:      1 << 20,
		Pool:              background.DefaultConfig(),
		Log:               LogConfig{Level: "info"},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must be set")
	}
	if c.Pool.Workers < 0 || c.Pool.Queue < 0 {
		return fmt.Errorf("config: pool sizes must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: max_body_bytes must be positive")
	}
	return nil
}

func (c LogConfig) build() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		level, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		zc.Level = level
	}
	return zc.Build()
}
