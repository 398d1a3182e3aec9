// Package protocol encodes commands for the game device and decodes its replies.
//
// The wire format is newline-terminated ASCII. Outgoing lines are either a
// move "row,col" or a bare keyword. Incoming lines carry a 9-character
// row-major board snapshot, optionally followed by an outcome marker such
// as "X win!". The newline is the only framing, so no payload may contain one.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/verte-zerg/tictac/internal/board"
	"github.com/verte-zerg/tictac/internal/model"
)

// Command is a keyword understood by the device.
type Command string

const (
	CmdReset           Command = "reset"
	CmdModePlayerFirst Command = "mode_player_first"
	CmdModeAIFirst     Command = "mode_ai_first"
	CmdModePvP         Command = "mode_pvp"
	CmdToggleLED1      Command = "toggle_led1"
	CmdToggleLED2      Command = "toggle_led2"
)

const lineTerminator = '\n'

var (
	ErrInvalidMove    = errors.New("move out of range")
	ErrUnknownCommand = errors.New("unknown command")
)

// Markers lists outcome markers in match order.
var Markers = []model.Outcome{
	model.OutcomeXWin,
	model.OutcomeOWin,
	model.OutcomeAIWin,
	model.OutcomeYouWin,
	model.OutcomeDraw,
}

var knownCommands = map[Command]struct{}{
	CmdReset:           {},
	CmdModePlayerFirst: {},
	CmdModeAIFirst:     {},
	CmdModePvP:         {},
	CmdToggleLED1:      {},
	CmdToggleLED2:      {},
}

// Response is a decoded device reply.
type Response struct {
	Snapshot string
	Outcome  model.Outcome
}

// EncodeMove renders a move as "row,col\n".
func EncodeMove(row, col int) ([]byte, error) {
	if !board.InBounds(row, col) {
		return nil, fmt.Errorf("%w: %d,%d", ErrInvalidMove, row, col)
	}
	line := make([]byte, 0, 4)
	line = strconv.AppendInt(line, int64(row), 10)
	line = append(line, ',')
	line = strconv.AppendInt(line, int64(col), 10)
	return append(line, lineTerminator), nil
}

// EncodeCommand renders a keyword command followed by a newline.
func EncodeCommand(cmd Command) ([]byte, error) {
	if _, ok := knownCommands[cmd]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
	}
	return append([]byte(cmd), lineTerminator), nil
}

// ModeCommand maps a game mode to its selection keyword.
func ModeCommand(mode model.Mode) (Command, bool) {
	switch mode {
	case model.ModePvP:
		return CmdModePvP, true
	case model.ModePlayerFirst:
		return CmdModePlayerFirst, true
	case model.ModeAIFirst:
		return CmdModeAIFirst, true
	default:
		return "", false
	}
}

// LEDCommand maps an indicator to its toggle keyword.
func LEDCommand(led model.LED) (Command, bool) {
	switch led {
	case model.LED1:
		return CmdToggleLED1, true
	case model.LED2:
		return CmdToggleLED2, true
	default:
		return "", false
	}
}

// Decode parses the data returned by one read.
//
// Lines shorter than a snapshot that precede the first snapshot are partial
// reads and are dropped. The outcome marker may follow the snapshot on the
// same line or arrive on a later line of the same read. ok is false when no
// snapshot was found.
func Decode(data []byte) (resp Response, ok bool) {
	lines := bytes.Split(data, []byte{lineTerminator})
	for i, raw := range lines {
		line := strings.TrimRight(string(raw), "\r")
		if len(line) < board.SnapshotLen {
			continue
		}
		resp.Snapshot = line[:board.SnapshotLen]
		rest := []string{line[board.SnapshotLen:]}
		for _, tail := range lines[i+1:] {
			rest = append(rest, string(tail))
		}
		resp.Outcome = MatchOutcome(strings.Join(rest, "\n"))
		return resp, true
	}
	return Response{}, false
}

// MatchOutcome returns the first marker contained in s.
func MatchOutcome(s string) model.Outcome {
	for _, m := range Markers {
		if strings.Contains(s, string(m)) {
			return m
		}
	}
	return model.OutcomeNone
}
