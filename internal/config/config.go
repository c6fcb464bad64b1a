// Package config loads the yaml configuration for the cmd binaries.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the on-disk configuration.
type Config struct {
	DataDir       string `yaml:"dataDir"`
	MinimumFreeGB uint   `yaml:"minimumFreeGB"`
	LogLevel      string `yaml:"logLevel"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a yaml config file, filling unset fields with defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}
	if config.DataDir == "" {
		config.DataDir = "./data"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	return config, nil
}
