package main

import (
	"fmt"
	"os"

	"github.com/op/go-logging"
	"sigs.k8s.io/yaml"

	"github.com/seiflotfy/huffman"
	"github.com/seiflotfy/huffman/lz77"
)

const defaultSuffix = ".compressed"

// fileConfig is the optional YAML configuration. Command-line flags take
// precedence over it.
type fileConfig struct {
	Suffix         string `json:"suffix,omitempty"`
	MaxInputBytes  int    `json:"maxInputBytes,omitempty"`
	Checksum       *bool  `json:"checksum,omitempty"`
	LogLevel       string `json:"logLevel,omitempty"`
	DictionaryFile string `json:"dictionaryFile,omitempty"`
	LZ77Window     int    `json:"lz77Window,omitempty"`
}

func defaultConfig() fileConfig {
	return fileConfig{Suffix: defaultSuffix, LogLevel: "INFO"}
}

func loadConfig(path string) (fileConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *fileConfig) validate() error {
	if c.Suffix == "" {
		c.Suffix = defaultSuffix
	}
	if c.MaxInputBytes < 0 {
		return fmt.Errorf("maxInputBytes must not be negative: %d", c.MaxInputBytes)
	}
	if c.LZ77Window < 0 || c.LZ77Window > lz77.MaxWindowSize {
		return fmt.Errorf("lz77Window out of range [0, %d]: %d", lz77.MaxWindowSize, c.LZ77Window)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c fileConfig) level() (logging.Level, error) {
	if c.LogLevel == "" {
		return logging.INFO, nil
	}
	return logging.LogLevel(c.LogLevel)
}

func (c fileConfig) encoderOptions() []huffman.Option {
	opts := []huffman.Option{huffman.WithMaxInputBytes(c.MaxInputBytes)}
	if c.Checksum != nil {
		opts = append(opts, huffman.WithChecksum(*c.Checksum))
	}
	return opts
}
