package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/verte-zerg/tictac/internal/board"
	"github.com/verte-zerg/tictac/internal/model"
	"github.com/verte-zerg/tictac/internal/session"
)

type intentKind int

const (
	intentMove intentKind = iota + 1
	intentReset
	intentMode
	intentLED
)

type intent struct {
	kind intentKind
	row  int
	col  int
	mode model.Mode
	led  model.LED
}

// scriptSession is the controller surface the scripted driver needs.
type scriptSession interface {
	Move(ctx context.Context, row, col int) (session.Exchange, error)
	Reset(ctx context.Context) (session.Exchange, error)
	SelectMode(ctx context.Context, mode model.Mode) (session.Exchange, error)
	ToggleLED(ctx context.Context, led model.LED) (session.Exchange, error)
	BoardSnapshot() string
	GameOver() bool
	LastOutcome() model.Outcome
}

var scriptModes = map[string]model.Mode{
	"pvp":          model.ModePvP,
	"player":       model.ModePlayerFirst,
	"player_first": model.ModePlayerFirst,
	"ai":           model.ModeAIFirst,
	"ai_first":     model.ModeAIFirst,
}

// parseIntent parses one script line. ok is false for blank and comment lines.
func parseIntent(line string) (intent, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return intent{}, false, nil
	}
	fields := strings.Fields(strings.ToLower(line))
	switch fields[0] {
	case "move":
		if len(fields) != 3 {
			return intent{}, false, fmt.Errorf("move takes <row> <col>")
		}
		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return intent{}, false, fmt.Errorf("invalid row %q", fields[1])
		}
		col, err := strconv.Atoi(fields[2])
		if err != nil {
			return intent{}, false, fmt.Errorf("invalid col %q", fields[2])
		}
		return intent{kind: intentMove, row: row, col: col}, true, nil
	case "reset":
		if len(fields) != 1 {
			return intent{}, false, fmt.Errorf("reset takes no arguments")
		}
		return intent{kind: intentReset}, true, nil
	case "mode":
		if len(fields) != 2 {
			return intent{}, false, fmt.Errorf("mode takes pvp, player or ai")
		}
		mode, ok := scriptModes[fields[1]]
		if !ok {
			return intent{}, false, fmt.Errorf("unknown mode %q", fields[1])
		}
		return intent{kind: intentMode, mode: mode}, true, nil
	case "led":
		if len(fields) != 2 {
			return intent{}, false, fmt.Errorf("led takes 1 or 2")
		}
		switch fields[1] {
		case "1":
			return intent{kind: intentLED, led: model.LED1}, true, nil
		case "2":
			return intent{kind: intentLED, led: model.LED2}, true, nil
		}
		return intent{}, false, fmt.Errorf("unknown led %q", fields[1])
	default:
		return intent{}, false, fmt.Errorf("unknown intent %q", fields[0])
	}
}

func (i intent) apply(ctx context.Context, s scriptSession) (session.Exchange, error) {
	switch i.kind {
	case intentMove:
		return s.Move(ctx, i.row, i.col)
	case intentReset:
		return s.Reset(ctx)
	case intentMode:
		return s.SelectMode(ctx, i.mode)
	case intentLED:
		return s.ToggleLED(ctx, i.led)
	default:
		return session.Exchange{}, fmt.Errorf("unknown intent kind %d", i.kind)
	}
}

// runScript feeds every intent in r to s and prints the board after each one.
// Parse errors stop the run; exchange failures are reported and skipped.
func runScript(ctx context.Context, s scriptSession, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		in, ok, err := parseIntent(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		ex, err := in.apply(ctx, s)
		if err != nil {
			logErrf("line %d: %v\n", lineNo, err)
			continue
		}
		if err := printExchange(w, ex, s); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

func printExchange(w io.Writer, ex session.Exchange, s scriptSession) error {
	header := "> " + ex.Sent
	switch {
	case ex.Ignored:
		header = "> (ignored)"
	case ex.Err != nil:
		header += "  (no response: " + ex.Err.Error() + ")"
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	snap := s.BoardSnapshot()
	for r := 0; r < board.Size; r++ {
		row := snap[r*board.Size : (r+1)*board.Size]
		if _, err := fmt.Fprintf(w, "  %s\n", strings.Join(strings.Split(strings.ReplaceAll(row, " ", "."), ""), " ")); err != nil {
			return err
		}
	}
	if s.GameOver() {
		if _, err := fmt.Fprintf(w, "  %s\n", s.LastOutcome()); err != nil {
			return err
		}
	}
	return nil
}
