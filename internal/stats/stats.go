// Package stats tracks game results and renders reports.
package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/tictac/internal/model"
)

const sparkChars = " .:-=+*#%@"

// WinRate returns wins as an integer percentage of games, or 0 with no games.
func WinRate(wins, games int) int {
	if games <= 0 {
		return 0
	}
	return wins * 100 / games
}

// Tracker accumulates per-mode counters.
type Tracker struct {
	pvp model.PvPStats
	ai  model.AIStats
}

// NewTracker starts from previously persisted counters.
func NewTracker(pvp model.PvPStats, ai model.AIStats) *Tracker {
	ai.WinRate = WinRate(ai.Wins, ai.Games)
	return &Tracker{pvp: pvp, ai: ai}
}

// Stats returns a copy of the counters.
func (t *Tracker) Stats() model.Stats {
	return model.Stats{PvP: t.pvp, AI: t.ai}
}

// Record counts one finished game. The mode decides which counter set the
// outcome belongs to. It returns false and changes nothing when the outcome
// does not fit the mode.
func (t *Tracker) Record(mode model.Mode, outcome model.Outcome) bool {
	switch {
	case mode == model.ModePvP:
		return t.recordPvP(outcome)
	case mode.IsAI():
		return t.recordAI(outcome)
	default:
		return false
	}
}

func (t *Tracker) recordPvP(outcome model.Outcome) bool {
	switch outcome {
	case model.OutcomeXWin:
		t.pvp.WinsX++
		t.pvp.LossesO++
	case model.OutcomeOWin:
		t.pvp.WinsO++
		t.pvp.LossesX++
	case model.OutcomeDraw:
		t.pvp.DrawsX++
		t.pvp.DrawsO++
	default:
		return false
	}
	t.pvp.Games++
	return true
}

func (t *Tracker) recordAI(outcome model.Outcome) bool {
	switch outcome {
	case model.OutcomeYouWin, model.OutcomeXWin:
		t.ai.Wins++
	case model.OutcomeAIWin, model.OutcomeOWin:
		t.ai.Losses++
	case model.OutcomeDraw:
		t.ai.Draws++
	default:
		return false
	}
	t.ai.Games++
	t.ai.WinRate = WinRate(t.ai.Wins, t.ai.Games)
	return true
}

// PlayerWon reports whether outcome counts as a win for the human in an AI
// mode. A bare "X win!" is credited to the player in both AI modes.
func PlayerWon(mode model.Mode, outcome model.Outcome) bool {
	if !mode.IsAI() {
		return false
	}
	return outcome == model.OutcomeYouWin || outcome == model.OutcomeXWin
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// WinRateCurve returns the running AI win rate after each game, oldest first.
func WinRateCurve(games []model.GameRecord) []float64 {
	var out []float64
	wins, played := 0, 0
	for _, g := range games {
		if !g.Mode.IsAI() {
			continue
		}
		played++
		if PlayerWon(g.Mode, g.Outcome) {
			wins++
		}
		out = append(out, float64(WinRate(wins, played)))
	}
	return out
}

// RenderSummary prints both counter sets.
func RenderSummary(w io.Writer, s model.Stats) error {
	if _, err := fmt.Fprintln(w, "Player vs Player"); err != nil {
		return err
	}
	pvp := newTable(column{title: "Side"}, column{title: "Wins", right: true}, column{title: "Losses", right: true}, column{title: "Draws", right: true})
	pvp.add("X", strconv.Itoa(s.PvP.WinsX), strconv.Itoa(s.PvP.LossesX), strconv.Itoa(s.PvP.DrawsX))
	pvp.add("O", strconv.Itoa(s.PvP.WinsO), strconv.Itoa(s.PvP.LossesO), strconv.Itoa(s.PvP.DrawsO))
	if err := pvp.writeTo(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Games: %d\n\n", s.PvP.Games); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "Player vs AI"); err != nil {
		return err
	}
	ai := newTable(
		column{title: "Games", right: true},
		column{title: "Wins", right: true},
		column{title: "Losses", right: true},
		column{title: "Draws", right: true},
		column{title: "Win rate", right: true},
	)
	ai.add(strconv.Itoa(s.AI.Games), strconv.Itoa(s.AI.Wins), strconv.Itoa(s.AI.Losses), strconv.Itoa(s.AI.Draws), strconv.Itoa(s.AI.WinRate)+"%")
	if err := ai.writeTo(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderHistory prints recent games and the AI win-rate trend.
func RenderHistory(w io.Writer, games []model.GameRecord, window int) error {
	if len(games) == 0 {
		_, err := fmt.Fprintln(w, "No games recorded.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Recent Games"); err != nil {
		return err
	}
	tbl := newTable(column{title: "Ended"}, column{title: "Mode"}, column{title: "Result"}, column{title: "Moves", right: true}, column{title: "Board"})
	for _, g := range games {
		tbl.add(
			g.EndedAt.Local().Format("2006-01-02 15:04"),
			modeLabel(g.Mode),
			string(g.Outcome),
			strconv.Itoa(g.Moves),
			boardLabel(g.Board),
		)
	}
	if err := tbl.writeTo(w); err != nil {
		return err
	}
	curve := MovingAverage(WinRateCurve(games), window)
	if len(curve) > 0 {
		if _, err := fmt.Fprintf(w, "\nAI win rate  [%s]  %.0f%%\n", Sparkline(curve), curve[len(curve)-1]); err != nil {
			return err
		}
	}
	return nil
}

func modeLabel(m model.Mode) string {
	switch m {
	case model.ModePvP:
		return "PvP"
	case model.ModePlayerFirst:
		return "vs AI (you first)"
	case model.ModeAIFirst:
		return "vs AI (AI first)"
	default:
		return "-"
	}
}

// boardLabel shows empty cells as dots so the snapshot stays readable.
func boardLabel(snapshot string) string {
	return strings.ReplaceAll(snapshot, " ", ".")
}
