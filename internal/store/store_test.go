package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tictac/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func insertGames(t *testing.T, st *Store, games ...model.GameRecord) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(games))
	for _, g := range games {
		id, err := st.InsertGame(context.Background(), g)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func game(minute int, mode model.Mode, outcome model.Outcome) model.GameRecord {
	start := time.Unix(0, 0).UTC().Add(time.Duration(minute) * time.Minute)
	return model.GameRecord{
		SessionID: "session-1",
		StartedAt: start,
		EndedAt:   start.Add(40 * time.Second),
		Mode:      mode,
		Outcome:   outcome,
		Board:     "XXXOO    ",
		Moves:     5,
	}
}

func TestInsertAndListGames(t *testing.T) {
	st := openTestStore(t)
	ids := insertGames(t, st,
		game(0, model.ModePvP, model.OutcomeXWin),
		game(1, model.ModePlayerFirst, model.OutcomeYouWin),
		game(2, model.ModeAIFirst, model.OutcomeDraw),
	)

	games, err := st.ListGames(context.Background(), model.HistoryFilter{})

	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, ids[0], games[0].ID)
	assert.Equal(t, model.ModePvP, games[0].Mode)
	assert.Equal(t, model.OutcomeXWin, games[0].Outcome)
	assert.Equal(t, "XXXOO    ", games[0].Board)
	assert.Equal(t, 5, games[0].Moves)
	assert.True(t, games[0].EndedAt.Equal(time.Unix(40, 0)))
}

func TestListGamesFilters(t *testing.T) {
	st := openTestStore(t)
	ids := insertGames(t, st,
		game(0, model.ModePvP, model.OutcomeXWin),
		game(1, model.ModePlayerFirst, model.OutcomeYouWin),
		game(2, model.ModePlayerFirst, model.OutcomeAIWin),
		game(3, model.ModePlayerFirst, model.OutcomeDraw),
	)
	ctx := context.Background()

	last, err := st.ListGames(ctx, model.HistoryFilter{Mode: model.ModePlayerFirst, Last: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, ids[2], last[0].ID, "newest games returned oldest first")
	assert.Equal(t, ids[3], last[1].ID)

	since := time.Unix(90, 0)
	recent, err := st.ListGames(ctx, model.HistoryFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestOutcomeCountsAndDeleteAll(t *testing.T) {
	st := openTestStore(t)
	insertGames(t, st,
		game(0, model.ModePvP, model.OutcomeXWin),
		game(1, model.ModePvP, model.OutcomeXWin),
		game(2, model.ModePlayerFirst, model.OutcomeYouWin),
	)
	ctx := context.Background()

	counts, err := st.OutcomeCounts(ctx, model.ModePvP)
	require.NoError(t, err)
	assert.Equal(t, map[model.Outcome]int{model.OutcomeXWin: 2}, counts)

	all, err := st.OutcomeCounts(ctx, model.ModeNone)
	require.NoError(t, err)
	assert.Equal(t, 1, all[model.OutcomeYouWin])

	deleted, err := st.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	games, err := st.ListGames(ctx, model.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, games)
}
