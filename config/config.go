// Package config loads the YAML configuration shared by the CLI and the
// API server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log LogConfig `yaml:"log"`
	VM  VMConfig  `yaml:"vm"`
	API APIConfig `yaml:"api"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `yaml:"-"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type VMConfig struct {
	// 0 means unlimited
	MaxSteps uint64 `yaml:"maxSteps"`
	// 0 means no timeout
	Timeout time.Duration `yaml:"timeout"`
	// 0 means no limit
	MaxInstructions int `yaml:"maxInstructions"`
}

type APIConfig struct {
	ListenAddr     string `yaml:"listenAddr"`
	MaxSourceBytes int64  `yaml:"maxSourceBytes"`
	ServerID       string `yaml:"serverId"`
	// runs kept in memory for GET /runs
	HistorySize int `yaml:"historySize"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		API: APIConfig{
			ListenAddr:     ":8080",
			MaxSourceBytes: 64 << 10,
			HistorySize:    1000,
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}
	cfg.Path = abs
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.VM.Timeout < 0 {
		return fmt.Errorf("vm.timeout must not be negative, got %s", c.VM.Timeout)
	}
	if c.VM.MaxInstructions < 0 {
		return fmt.Errorf("vm.maxInstructions must not be negative, got %d", c.VM.MaxInstructions)
	}
	if c.API.HistorySize < 0 {
		return fmt.Errorf("api.historySize must not be negative, got %d", c.API.HistorySize)
	}
	if c.API.MaxSourceBytes <= 0 {
		return fmt.Errorf("api.maxSourceBytes must be positive, got %d", c.API.MaxSourceBytes)
	}
	return nil
}

// Logger builds a zap logger from the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	var zc zap.Config
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("config: encoder close: %w", err)
	}
	return buf.Bytes(), nil
}
