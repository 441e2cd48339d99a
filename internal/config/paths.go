// Package config loads and persists ctxwin configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the configuration directory when set.
const HomeEnv = "CTXWIN_HOME"

const (
	configDirName  = ".ctxwin"
	configFileName = "config.yaml"
)

// DefaultConfigDir returns $CTXWIN_HOME, or ~/.ctxwin when it is unset.
func DefaultConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return ExpandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// DefaultConfigPath returns config.yaml inside DefaultConfigDir.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// ExpandPath expands environment variables in path, then a leading ~ to the
// user's home directory.
func ExpandPath(path string) (string, error) {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
