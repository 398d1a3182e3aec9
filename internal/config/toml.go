// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

// FileConfig represents the TOML configuration file with TICTAC_* environment overrides.
type FileConfig struct {
	Device  DeviceConfig  `toml:"device"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// DeviceConfig maps transport settings.
type DeviceConfig struct {
	Port        string `toml:"port" env:"TICTAC_PORT"`
	Baud        int    `toml:"baud" env:"TICTAC_BAUD" env-default:"9600"`
	MockOutPath string `toml:"mock-out" env:"TICTAC_MOCK_OUT" env-default:"mock_serial_out.txt"`
	MockInPath  string `toml:"mock-in" env:"TICTAC_MOCK_IN" env-default:"mock_serial_in.txt"`
}

// StorageConfig maps persistence locations. Empty values use XDG defaults.
type StorageConfig struct {
	StatePath   string `toml:"state" env:"TICTAC_STATE_PATH"`
	HistoryPath string `toml:"history" env:"TICTAC_HISTORY_PATH"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level string `toml:"level" env:"TICTAC_LOG_LEVEL" env-default:"info"`
	File  string `toml:"file" env:"TICTAC_LOG_FILE"`
}

// LoadConfig reads a TOML config from the given path and applies environment
// overrides and defaults. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	var cfg FileConfig
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if cfg.Storage.StatePath == "" {
		cfg.Storage.StatePath = DefaultStatePath()
	}
	if cfg.Storage.HistoryPath == "" {
		cfg.Storage.HistoryPath = DefaultDBPath()
	}
	if cfg.Log.File == "" {
		cfg.Log.File = DefaultLogPath()
	}
	return cfg, nil
}
