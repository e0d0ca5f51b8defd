// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package xdg provides XDG Base Directory paths for SkyCast.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "skycast"

// ConfigDir returns the XDG config directory for skycast.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the path of the default configuration file, or an
// empty string if it does not exist.
func ConfigFile() string {
	path := filepath.Join(ConfigDir(), "skycast.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// DataDir returns the XDG data directory for skycast.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
