package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

func DefaultConfigPath() string {
	if explicit := os.Getenv("SKILLSYNC_CONFIG"); explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skillsync/config.toml"
	}
	return filepath.Join(home, ".skillsync", "config.toml")
}

func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}

func ResolveStorageRoot(cfg Config) (string, error) {
	expanded, err := ExpandPath(cfg.Storage.Root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

func ResolveSourcesFile(cfg Config) (string, error) {
	expanded, err := ExpandPath(cfg.SourcesFile)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

// IsDefaultSourcesFile reports whether the config points at the sources file
// location that may be seeded automatically.
func IsDefaultSourcesFile(cfg Config) bool {
	return cfg.SourcesFile == DefaultConfig().SourcesFile
}

// Token returns the configured access token, preferring the environment.
func (c Config) Token() string {
	for _, key := range []string{"SKILLSYNC_GITHUB_TOKEN", "GITHUB_TOKEN"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(c.GitHub.Token)
}
