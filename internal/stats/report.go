package stats

import (
	"context"

	"github.com/verte-zerg/tictac/internal/model"
	"github.com/verte-zerg/tictac/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Games    []model.GameRecord
	Outcomes map[model.Outcome]int
}

// BuildReport loads recorded games for rendering.
func BuildReport(ctx context.Context, st *store.Store, filter model.HistoryFilter) (Report, error) {
	games, err := st.ListGames(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	outcomes, err := st.OutcomeCounts(ctx, filter.Mode)
	if err != nil {
		return Report{}, err
	}
	return Report{Games: games, Outcomes: outcomes}, nil
}

// HistoryStats rebuilds counters from recorded games.
func HistoryStats(games []model.GameRecord) model.Stats {
	t := NewTracker(model.PvPStats{}, model.AIStats{})
	for _, g := range games {
		t.Record(g.Mode, g.Outcome)
	}
	return t.Stats()
}
