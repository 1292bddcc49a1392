// Package config loads the Lorekeep configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings.
type Config struct {
	DBPath         string `yaml:"db_path"`
	AttachmentsDir string `yaml:"attachments_dir"`
	LogLevel       string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:         "lorekeep.db",
		AttachmentsDir: "attachments",
		LogLevel:       "info",
	}
}

// Load reads a YAML config file, applying defaults for absent fields.
// A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = Default().DBPath
	}
	if cfg.AttachmentsDir == "" {
		cfg.AttachmentsDir = Default().AttachmentsDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	return cfg, nil
}
