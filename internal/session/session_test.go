package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tictac/internal/board"
	"github.com/verte-zerg/tictac/internal/config"
	"github.com/verte-zerg/tictac/internal/model"
	"github.com/verte-zerg/tictac/internal/store"
	"github.com/verte-zerg/tictac/internal/transport"
)

// scriptedTransport replays canned replies and records writes.
type scriptedTransport struct {
	replies  []string
	writes   []string
	writeErr error
	readErr  error
	closed   bool
}

func (s *scriptedTransport) Write(p []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, string(p))
	return nil
}

func (s *scriptedTransport) Read() ([]byte, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	if len(s.replies) == 0 {
		return nil, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return []byte(r), nil
}

func (s *scriptedTransport) Close() error {
	s.closed = true
	return nil
}

func (s *scriptedTransport) Name() string {
	return "scripted"
}

type memPersister struct {
	saved []config.State
	err   error
}

func (m *memPersister) Save(st config.State) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, st)
	return nil
}

func newController(t *testing.T, tr transport.Transport, initial config.State) (*Controller, *memPersister) {
	t.Helper()
	p := &memPersister{}
	c := New(tr, Options{
		Initial:   initial,
		Persister: p,
		SessionID: "test-session",
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	})
	return c, p
}

func rows(snapshot string) [board.Size][board.Size]model.Cell {
	b := board.New()
	_ = b.Reconcile(snapshot)
	return b.Rows()
}

func TestMockExchangeUpdatesBoard(t *testing.T) {
	// Given: mock transport whose input file holds one snapshot line
	dir := t.TempDir()
	opts := transport.DefaultOptions()
	opts.Mock = true
	opts.MockOutPath = filepath.Join(dir, "out.txt")
	opts.MockInPath = filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(opts.MockInPath, []byte("XXXOOX   \n"), 0o644))
	tr, err := transport.Open(opts)
	require.NoError(t, err)
	c, _ := newController(t, tr, config.State{})
	t.Cleanup(func() {
		_ = c.Close()
	})

	// When: one move exchange happens
	ex, err := c.Move(context.Background(), 2, 0)

	// Then: the board mirrors the device and the move was appended to the output file
	require.NoError(t, err)
	require.True(t, ex.Applied)
	want := [board.Size][board.Size]model.Cell{
		{model.CellX, model.CellX, model.CellX},
		{model.CellO, model.CellO, model.CellX},
		{model.CellEmpty, model.CellEmpty, model.CellEmpty},
	}
	assert.Equal(t, want, c.Board())
	assert.Equal(t, Idle, c.State())
	out, err := os.ReadFile(opts.MockOutPath)
	require.NoError(t, err)
	assert.Equal(t, "2,0\n", string(out))
}

func TestPvPXWinUpdatesStats(t *testing.T) {
	// Given: PvP mode selected and acknowledged
	tr := &scriptedTransport{replies: []string{"         ", "XXXOO    X win!"}}
	c, p := newController(t, tr, config.State{AI: model.AIStats{Games: 1, Losses: 1}})
	_, err := c.SelectMode(context.Background(), model.ModePvP)
	require.NoError(t, err)

	// When: the device reports an X win
	ex, err := c.Move(context.Background(), 0, 2)

	// Then: only the PvP buckets move
	require.NoError(t, err)
	assert.True(t, ex.Finished)
	assert.Equal(t, model.OutcomeXWin, ex.Outcome)
	assert.Equal(t, model.PvPStats{Games: 1, WinsX: 1, LossesO: 1}, c.Stats().PvP)
	assert.Equal(t, model.AIStats{Games: 1, Losses: 1}, c.Stats().AI)
	assert.True(t, c.GameOver())
	require.NotEmpty(t, p.saved)
	assert.Equal(t, c.Stats().PvP, p.saved[len(p.saved)-1].PvP)
}

func TestAIWinFromZeroGamesHasDefinedRate(t *testing.T) {
	// Given: player-first AI mode with no games played
	tr := &scriptedTransport{replies: []string{"         ", "XXXOO    You win!"}}
	c, _ := newController(t, tr, config.State{Session: config.SessionState{Mode: model.ModePlayerFirst}})
	assert.Equal(t, 0, c.Stats().AI.WinRate)
	_, err := c.Reset(context.Background())
	require.NoError(t, err)

	// When: the player wins
	_, err = c.Move(context.Background(), 0, 2)

	// Then: win rate is computed from 1/1
	require.NoError(t, err)
	assert.Equal(t, model.AIStats{Games: 1, Wins: 1, WinRate: 100}, c.Stats().AI)
}

func TestResetPendingSuppressesMoves(t *testing.T) {
	// Given: a reset the device has not answered
	tr := &scriptedTransport{}
	c, _ := newController(t, tr, config.State{})
	_, err := c.Reset(context.Background())
	require.NoError(t, err)
	require.True(t, c.ResetPending())
	require.Equal(t, []string{"reset\n"}, tr.writes)

	// When: the user clicks every cell
	for r := 0; r < board.Size; r++ {
		for col := 0; col < board.Size; col++ {
			ex, err := c.Move(context.Background(), r, col)
			require.NoError(t, err)
			assert.True(t, ex.Ignored)
		}
	}

	// Then: nothing was written and the board is unchanged
	assert.Equal(t, []string{"reset\n"}, tr.writes)
	assert.Equal(t, rows("         "), c.Board())

	// When: a later exchange yields a non-empty line
	tr.replies = []string{"         "}
	_, err = c.ToggleLED(context.Background(), model.LED1)
	require.NoError(t, err)

	// Then: the flag clears and moves go through again
	assert.False(t, c.ResetPending())
	tr.replies = []string{"X        "}
	ex, err := c.Move(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, ex.Ignored)
	assert.Equal(t, "0,0", ex.Sent)
	assert.Equal(t, rows("X        "), c.Board())
}

func TestGameOverIgnoresMovesUntilModeSelect(t *testing.T) {
	tr := &scriptedTransport{replies: []string{"XOXOXOOXO", "XOXOXOOXODraw!"}}
	c, _ := newController(t, tr, config.State{Session: config.SessionState{Mode: model.ModeAIFirst}})
	_, err := c.Move(context.Background(), 1, 1)
	require.NoError(t, err)
	_, err = c.Move(context.Background(), 2, 2)
	require.NoError(t, err)
	require.True(t, c.GameOver())
	assert.Equal(t, model.OutcomeDraw, c.LastOutcome())
	assert.Equal(t, 1, c.Stats().AI.Draws)

	writes := len(tr.writes)
	ex, err := c.Move(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.True(t, ex.Ignored)
	assert.Len(t, tr.writes, writes)

	tr.replies = []string{"         "}
	_, err = c.SelectMode(context.Background(), model.ModePvP)
	require.NoError(t, err)
	assert.False(t, c.GameOver())
	assert.Equal(t, model.ModePvP, c.Mode())
	assert.Equal(t, "mode_pvp\n", tr.writes[len(tr.writes)-1])
}

func TestRepeatedOutcomeCountsOnce(t *testing.T) {
	tr := &scriptedTransport{replies: []string{"XXXOO    X win!", "XXXOO    X win!"}}
	c, _ := newController(t, tr, config.State{Session: config.SessionState{Mode: model.ModePvP}})

	_, err := c.Move(context.Background(), 0, 2)
	require.NoError(t, err)
	_, err = c.ToggleLED(context.Background(), model.LED2)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Stats().PvP.Games)
}

func TestOutcomeOnSeparateLineFinishesGame(t *testing.T) {
	// Given: mock input where the marker follows the final snapshot on its own line
	dir := t.TempDir()
	opts := transport.DefaultOptions()
	opts.Mock = true
	opts.MockOutPath = filepath.Join(dir, "out.txt")
	opts.MockInPath = filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(opts.MockInPath, []byte("         \nXXXOO    \nX win!\n"), 0o644))
	tr, err := transport.Open(opts)
	require.NoError(t, err)
	c, p := newController(t, tr, config.State{})
	t.Cleanup(func() {
		_ = c.Close()
	})
	ctx := context.Background()
	_, err = c.SelectMode(ctx, model.ModePvP)
	require.NoError(t, err)
	_, err = c.Move(ctx, 0, 2)
	require.NoError(t, err)
	require.False(t, c.GameOver())

	// When: the next exchange reads only the marker line
	ex, err := c.ToggleLED(ctx, model.LED1)

	// Then: the game ends on the board already shown and is counted once
	require.NoError(t, err)
	assert.False(t, ex.Applied)
	assert.True(t, ex.Finished)
	assert.Equal(t, model.OutcomeXWin, ex.Outcome)
	assert.Equal(t, Idle, c.State())
	assert.True(t, c.GameOver())
	assert.Equal(t, rows("XXXOO    "), c.Board())
	assert.Equal(t, model.PvPStats{Games: 1, WinsX: 1, LossesO: 1}, c.Stats().PvP)
	require.NotEmpty(t, p.saved)
	assert.Equal(t, 1, p.saved[len(p.saved)-1].PvP.Games)
}

func TestMalformedResponseKeepsAwaiting(t *testing.T) {
	tr := &scriptedTransport{replies: []string{"XO"}}
	c, _ := newController(t, tr, config.State{})
	_, err := c.Reset(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AwaitingResponse, c.State())
	assert.False(t, c.ResetPending(), "any non-empty read acknowledges the reset")
	assert.Equal(t, rows("         "), c.Board())
}

func TestTransportErrorsAreNotFatal(t *testing.T) {
	tr := &scriptedTransport{writeErr: transport.ErrIO}
	c, _ := newController(t, tr, config.State{})

	ex, err := c.Move(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.ErrorIs(t, ex.Err, transport.ErrIO)
	assert.False(t, ex.Applied)
	assert.Equal(t, Idle, c.State())

	tr.writeErr = nil
	tr.readErr = errors.New("unplugged")
	ex, err = c.Move(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Error(t, ex.Err)
	assert.Equal(t, Idle, c.State())
}

func TestInvalidIntents(t *testing.T) {
	tr := &scriptedTransport{}
	c, _ := newController(t, tr, config.State{})

	_, err := c.Move(context.Background(), 3, 3)
	assert.Error(t, err)
	_, err = c.SelectMode(context.Background(), model.Mode("blitz"))
	assert.ErrorIs(t, err, ErrInvalidMode)
	_, err = c.ToggleLED(context.Background(), model.LED(7))
	assert.ErrorIs(t, err, ErrInvalidLED)
	assert.Empty(t, tr.writes)
}

func TestToggleLEDPersists(t *testing.T) {
	tr := &scriptedTransport{}
	c, p := newController(t, tr, config.State{LEDs: model.LEDConfig{LED2: true}})

	_, err := c.ToggleLED(context.Background(), model.LED1)
	require.NoError(t, err)
	_, err = c.ToggleLED(context.Background(), model.LED2)
	require.NoError(t, err)

	assert.Equal(t, model.LEDConfig{LED1: true, LED2: false}, c.LEDs())
	require.Len(t, p.saved, 2)
	assert.Equal(t, model.LEDConfig{LED1: true, LED2: true}, p.saved[0].LEDs)
	assert.Equal(t, []string{"toggle_led1\n", "toggle_led2\n"}, tr.writes)
}

func TestFinishedGameIsRecorded(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	tr := &scriptedTransport{replies: []string{"         ", "OOOXX X  AI win!"}}
	c := New(tr, Options{
		Initial:   config.State{},
		Recorder:  st,
		SessionID: "run-1",
	})
	ctx := context.Background()
	_, err = c.SelectMode(ctx, model.ModeAIFirst)
	require.NoError(t, err)
	_, err = c.Move(ctx, 1, 1)
	require.NoError(t, err)

	games, err := st.ListGames(ctx, model.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "run-1", games[0].SessionID)
	assert.Equal(t, model.ModeAIFirst, games[0].Mode)
	assert.Equal(t, model.OutcomeAIWin, games[0].Outcome)
	assert.Equal(t, "OOOXX X  ", games[0].Board)
	assert.Equal(t, 6, games[0].Moves)
}

func TestSessionIDDefaultsToUUID(t *testing.T) {
	c := New(&scriptedTransport{}, Options{})
	assert.Len(t, c.SessionID(), 36)
}
