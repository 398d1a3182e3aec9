package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/tictac/internal/model"
)

// ErrStateNotFound is returned by Load when no state has been saved yet.
var ErrStateNotFound = errors.New("state file not found")

// State is everything persisted between runs.
type State struct {
	PvP     model.PvPStats  `toml:"pvp-stats"`
	AI      model.AIStats   `toml:"ai-stats"`
	LEDs    model.LEDConfig `toml:"led-config"`
	Session SessionState    `toml:"session"`
}

// SessionState keeps the last selected mode.
type SessionState struct {
	Mode model.Mode `toml:"mode"`
}

// StateFile loads and saves State as TOML.
type StateFile struct {
	Path string
}

// NewStateFile returns a StateFile for path.
func NewStateFile(path string) *StateFile {
	return &StateFile{Path: path}
}

// Load reads the state. A missing file yields zero State and ErrStateNotFound.
func (f *StateFile) Load() (State, error) {
	if _, err := os.Stat(f.Path); err != nil {
		if os.IsNotExist(err) {
			return State{}, fmt.Errorf("%w: %s", ErrStateNotFound, f.Path)
		}
		return State{}, fmt.Errorf("failed to stat state: %w", err)
	}
	var st State
	if _, err := toml.DecodeFile(f.Path, &st); err != nil {
		return State{}, fmt.Errorf("failed to decode state: %w", err)
	}
	if st.Session.Mode != model.ModeNone && !st.Session.Mode.Valid() {
		st.Session.Mode = model.ModeNone
	}
	return st, nil
}

// Save replaces the whole file with st.
func (f *StateFile) Save(st State) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "state-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp state: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := toml.NewEncoder(writer).Encode(st); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush state: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}
