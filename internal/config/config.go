// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/fulltextd/internal/logging"
)

// IndexerMode selects the queue consumption strategy.
type IndexerMode string

const (
	// ModeParallel claims one request per worker cycle; workers may overlap.
	ModeParallel IndexerMode = "parallel"
	// ModeSerial drains the whole queue in one non-overlapping cycle.
	ModeSerial IndexerMode = "serial"
)

// Config is the complete service configuration.
type Config struct {
	Index   IndexConfig    `yaml:"index"`
	Queue   QueueConfig    `yaml:"queue"`
	Server  ServerConfig   `yaml:"server"`
	Indexer IndexerConfig  `yaml:"indexer"`
	Watch   WatchConfig    `yaml:"watch"`
	Logging logging.Config `yaml:"logging"`
}

// IndexConfig configures the on-disk index layout.
type IndexConfig struct {
	// Root is the directory holding one shard subdirectory per language.
	Root string `yaml:"root"`
}

// QueueConfig configures the persisted indexing queue.
type QueueConfig struct {
	// Path is the SQLite database file backing the queue.
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// IndexerConfig configures the scheduled queue consumers.
type IndexerConfig struct {
	// Mode is "parallel" or "serial".
	Mode IndexerMode `yaml:"mode"`
	// Rate is the scheduling interval between consumption cycles.
	Rate time.Duration `yaml:"rate"`
	// Workers is the number of concurrent claimers in parallel mode.
	Workers int `yaml:"workers"`
}

// UnmarshalYAML accepts rate values like "5s" or "1m30s".
func (c *IndexerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Mode    IndexerMode `yaml:"mode"`
		Rate    string      `yaml:"rate"`
		Workers int         `yaml:"workers"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Mode = raw.Mode
	c.Workers = raw.Workers
	if raw.Rate == "" {
		c.Rate = 0
		return nil
	}
	rate, err := time.ParseDuration(raw.Rate)
	if err != nil {
		return fmt.Errorf("indexer.rate: %w", err)
	}
	c.Rate = rate
	return nil
}

// WatchConfig configures the optional filesystem watcher that enqueues
// content changes.
type WatchConfig struct {
	Paths []string `yaml:"paths"`
}

// Default returns the default configuration rooted under dir.
func Default(dir string) Config {
	return Config{
		Index:   IndexConfig{Root: filepath.Join(dir, "index")},
		Queue:   QueueConfig{Path: filepath.Join(dir, "queue.db")},
		Server:  ServerConfig{Addr: ":7700"},
		Indexer: IndexerConfig{Mode: ModeSerial, Rate: 5 * time.Second, Workers: 4},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads the configuration file at path, applying defaults for missing
// values. A missing file yields the defaults.
func Load(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg := Default(filepath.Join(home, ".fulltextd"))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":7700"
	}
	if c.Indexer.Mode == "" {
		c.Indexer.Mode = ModeSerial
	}
	if c.Indexer.Rate <= 0 {
		c.Indexer.Rate = 5 * time.Second
	}
	if c.Indexer.Workers <= 0 {
		c.Indexer.Workers = 4
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Index.Root == "" {
		return fmt.Errorf("index.root must not be empty")
	}
	if c.Queue.Path == "" {
		return fmt.Errorf("queue.path must not be empty")
	}
	switch c.Indexer.Mode {
	case ModeParallel, ModeSerial:
	default:
		return fmt.Errorf("indexer.mode must be %q or %q, got %q", ModeParallel, ModeSerial, c.Indexer.Mode)
	}
	return nil
}
