package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tictac/internal/model"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))

	require.NoError(t, err)
	assert.Equal(t, 9600, cfg.Device.Baud)
	assert.Equal(t, "mock_serial_out.txt", cfg.Device.MockOutPath)
	assert.Equal(t, "mock_serial_in.txt", cfg.Device.MockInPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultStatePath(), cfg.Storage.StatePath)
	assert.Equal(t, DefaultDBPath(), cfg.Storage.HistoryPath)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[device]
port = "/dev/ttyUSB3"
baud = 19200
mock-in = "replies.txt"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("TICTAC_BAUD", "115200")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", cfg.Device.Port)
	assert.Equal(t, 115200, cfg.Device.Baud, "environment wins over file")
	assert.Equal(t, "replies.txt", cfg.Device.MockInPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[device\nport="), 0o644))

	_, err := LoadConfig(path)

	require.Error(t, err)
}

func TestStateFileMissingReportsNotFound(t *testing.T) {
	f := NewStateFile(filepath.Join(t.TempDir(), "state.toml"))

	st, err := f.Load()

	require.ErrorIs(t, err, ErrStateNotFound)
	assert.Equal(t, State{}, st)
}

func TestStateFileSaveLoad(t *testing.T) {
	f := NewStateFile(filepath.Join(t.TempDir(), "nested", "state.toml"))
	want := State{
		PvP:     model.PvPStats{Games: 3, WinsX: 2, LossesO: 2, DrawsX: 1, DrawsO: 1},
		AI:      model.AIStats{Games: 4, Wins: 1, Losses: 2, Draws: 1, WinRate: 25},
		LEDs:    model.LEDConfig{LED1: true},
		Session: SessionState{Mode: model.ModeAIFirst},
	}

	require.NoError(t, f.Save(want))
	got, err := f.Load()

	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	for _, section := range []string{"[pvp-stats]", "[ai-stats]", "[led-config]", "[session]"} {
		assert.Contains(t, string(raw), section)
	}
}

func TestStateFileDropsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session]\nmode = \"blitz\"\n"), 0o644))

	st, err := NewStateFile(path).Load()

	require.NoError(t, err)
	assert.Equal(t, model.ModeNone, st.Session.Mode)
}
