package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.wabridge/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	ListenAddr     string `toml:"listen_addr"`
	ArchiveEnabled bool   `toml:"archive_enabled"`
}

// Default returns the config used when no file exists. Missing keys in a
// loaded file keep these values.
func Default() *Config {
	return &Config{
		ListenAddr:     ":3000",
		ArchiveEnabled: true,
	}
}

// Load reads config from the given path. Returns error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
