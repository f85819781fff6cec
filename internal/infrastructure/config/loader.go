// Package config loads the application configuration.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/ports"
)

// FileLoader loads YAML configuration from ~/.parley/config.yaml
// (overridable via PARLEY_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing config file is replaced
// with written-out defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return l.overridePath
	}
	if custom := os.Getenv("PARLEY_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(userHomeDir(), ".parley", "config.yaml")
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

func defaultConfig() domain.Config {
	base := filepath.Join(userHomeDir(), ".parley")
	return domain.Config{
		ConfigFormatVersion: "1",
		User: domain.UserSettings{
			DefaultUserID: "default",
		},
		Storage: domain.StorageSettings{
			Path:      filepath.Join(base, "memory", "memory.db"),
			KeyEnvVar: "PARLEY_STORAGE_KEY",
			KeyFile:   filepath.Join(base, "memory", "storage.key"),
		},
	}
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	defaults := defaultConfig()
	if cfg.User.DefaultUserID == "" {
		cfg.User.DefaultUserID = defaults.User.DefaultUserID
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaults.Storage.Path
	}
	if cfg.Storage.KeyEnvVar == "" {
		cfg.Storage.KeyEnvVar = defaults.Storage.KeyEnvVar
	}
	if cfg.Storage.KeyFile == "" {
		cfg.Storage.KeyFile = defaults.Storage.KeyFile
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
