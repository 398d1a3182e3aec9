// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appDir = "tictac"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appDir, "config.toml")
}

// DefaultStatePath returns the path of the persisted stats and LED state.
func DefaultStatePath() string {
	return filepath.Join(XDGDataHome(), appDir, "state.toml")
}

// DefaultDBPath returns the default path for the SQLite game history.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appDir, "history.db")
}

// DefaultLogPath returns the log file used while the TUI owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), appDir, "tictac.log")
}
