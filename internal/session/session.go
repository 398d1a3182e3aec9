// Package session drives request/response exchanges with the game device and
// keeps the board, statistics and LED configuration in sync with it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/tictac/internal/board"
	"github.com/verte-zerg/tictac/internal/config"
	"github.com/verte-zerg/tictac/internal/model"
	"github.com/verte-zerg/tictac/internal/protocol"
	"github.com/verte-zerg/tictac/internal/stats"
	"github.com/verte-zerg/tictac/internal/transport"
)

// State is the exchange state of the controller.
type State int

const (
	// Idle means no exchange is pending.
	Idle State = iota
	// AwaitingResponse means a command was written and no usable reply has
	// been decoded yet.
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting-response"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrInvalidMode = errors.New("invalid game mode")
	ErrInvalidLED  = errors.New("invalid led")
)

// Persister saves the state kept between runs.
type Persister interface {
	Save(st config.State) error
}

// Recorder appends finished games to the history.
type Recorder interface {
	InsertGame(ctx context.Context, g model.GameRecord) (int64, error)
}

// Options configures a Controller.
type Options struct {
	// Initial is the persisted state loaded at startup.
	Initial   config.State
	Persister Persister
	Recorder  Recorder
	Logger    *zap.Logger
	// SessionID tags recorded games; a random one is used when empty.
	SessionID string
	Now       func() time.Time
}

// Exchange describes the outcome of one intent.
type Exchange struct {
	Sent     string
	Received string
	// Ignored is set when the intent was suppressed and nothing was written.
	Ignored bool
	// Applied is set when a snapshot was reconciled into the board.
	Applied bool
	Outcome model.Outcome
	// Finished is set when this exchange ended the game.
	Finished bool
	// Err holds a non-fatal transport failure.
	Err error
}

// Controller turns intents into protocol exchanges. It is not safe for
// concurrent use; the transport is half-duplex.
type Controller struct {
	transport transport.Transport
	board     *board.Board
	tracker   *stats.Tracker
	leds      model.LEDConfig
	mode      model.Mode

	state        State
	resetPending bool
	gameOver     bool
	lastOutcome  model.Outcome
	gameStart    time.Time

	persister Persister
	recorder  Recorder
	log       *zap.Logger
	sessionID string
	now       func() time.Time
}

// New returns a controller that owns t.
func New(t transport.Transport, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		transport: t,
		board:     board.New(),
		tracker:   stats.NewTracker(opts.Initial.PvP, opts.Initial.AI),
		leds:      opts.Initial.LEDs,
		mode:      opts.Initial.Session.Mode,
		persister: opts.Persister,
		recorder:  opts.Recorder,
		log:       logger.With(zap.String("component", "session"), zap.String("transport", t.Name())),
		sessionID: sessionID,
		now:       now,
	}
}

// Move asks the device to place a mark at (row, col). The intent is ignored
// while a reset is unacknowledged or after the game has ended.
func (c *Controller) Move(ctx context.Context, row, col int) (Exchange, error) {
	line, err := protocol.EncodeMove(row, col)
	if err != nil {
		return Exchange{}, err
	}
	if c.resetPending {
		c.log.Debug("move ignored: reset pending", zap.Int("row", row), zap.Int("col", col))
		return Exchange{Ignored: true}, nil
	}
	if c.gameOver {
		c.log.Debug("move ignored: game over", zap.Int("row", row), zap.Int("col", col))
		return Exchange{Ignored: true}, nil
	}
	if c.gameStart.IsZero() {
		c.gameStart = c.now()
	}
	return c.exchange(ctx, line), nil
}

// Reset restarts the game in the current mode.
func (c *Controller) Reset(ctx context.Context) (Exchange, error) {
	return c.restart(ctx, protocol.CmdReset)
}

// SelectMode switches the device to mode and starts a new game.
func (c *Controller) SelectMode(ctx context.Context, mode model.Mode) (Exchange, error) {
	cmd, ok := protocol.ModeCommand(mode)
	if !ok {
		return Exchange{}, fmt.Errorf("%w: %q", ErrInvalidMode, string(mode))
	}
	if c.mode != mode {
		c.mode = mode
		c.persist()
	}
	return c.restart(ctx, cmd)
}

// ToggleLED flips one device indicator and saves the new configuration.
func (c *Controller) ToggleLED(ctx context.Context, led model.LED) (Exchange, error) {
	cmd, ok := protocol.LEDCommand(led)
	if !ok {
		return Exchange{}, fmt.Errorf("%w: %d", ErrInvalidLED, int(led))
	}
	switch led {
	case model.LED1:
		c.leds.LED1 = !c.leds.LED1
	case model.LED2:
		c.leds.LED2 = !c.leds.LED2
	}
	c.persist()
	line, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return Exchange{}, err
	}
	return c.exchange(ctx, line), nil
}

// restart clears the local board right away; the next reply corrects it.
func (c *Controller) restart(ctx context.Context, cmd protocol.Command) (Exchange, error) {
	line, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return Exchange{}, err
	}
	c.board.Reset()
	c.resetPending = true
	c.gameOver = false
	c.lastOutcome = model.OutcomeNone
	c.gameStart = c.now()
	return c.exchange(ctx, line), nil
}

// exchange performs exactly one write followed by one read.
func (c *Controller) exchange(ctx context.Context, line []byte) Exchange {
	ex := Exchange{Sent: strings.TrimRight(string(line), "\n")}
	c.state = AwaitingResponse
	if err := c.transport.Write(line); err != nil {
		c.log.Warn("write failed", zap.String("sent", ex.Sent), zap.Error(err))
		ex.Err = err
		c.state = Idle
		return ex
	}

	data, err := c.transport.Read()
	if err != nil {
		c.log.Warn("read failed", zap.String("sent", ex.Sent), zap.Error(err))
		ex.Err = err
		data = nil
	}
	if len(data) == 0 {
		c.log.Debug("no response", zap.String("sent", ex.Sent))
		c.state = Idle
		return ex
	}
	ex.Received = string(data)
	c.resetPending = false

	resp, ok := protocol.Decode(data)
	if !ok {
		// A marker can trail the snapshot on its own line; it applies to the board as is.
		if outcome := protocol.MatchOutcome(ex.Received); outcome != model.OutcomeNone {
			ex.Outcome = outcome
			c.state = Idle
			if !c.gameOver {
				c.finishGame(ctx, outcome)
				ex.Finished = true
			}
			return ex
		}
		// Partial line; wait for the next intent to supersede it.
		c.log.Debug("discarding malformed response", zap.String("received", ex.Received))
		return ex
	}
	if err := c.board.Reconcile(resp.Snapshot); err != nil {
		c.log.Warn("reconcile failed", zap.Error(err))
		return ex
	}
	ex.Applied = true
	ex.Outcome = resp.Outcome
	c.state = Idle
	c.log.Debug("exchange", zap.String("sent", ex.Sent), zap.String("board", resp.Snapshot), zap.String("outcome", string(resp.Outcome)))

	if resp.Outcome != model.OutcomeNone && !c.gameOver {
		c.finishGame(ctx, resp.Outcome)
		ex.Finished = true
	}
	return ex
}

func (c *Controller) finishGame(ctx context.Context, outcome model.Outcome) {
	c.gameOver = true
	c.lastOutcome = outcome
	if !c.tracker.Record(c.mode, outcome) {
		c.log.Warn("outcome does not match mode; not counted", zap.String("mode", string(c.mode)), zap.String("outcome", string(outcome)))
		return
	}
	c.log.Info("game finished", zap.String("mode", string(c.mode)), zap.String("outcome", string(outcome)))
	c.persist()
	c.record(ctx, outcome)
}

func (c *Controller) record(ctx context.Context, outcome model.Outcome) {
	if c.recorder == nil {
		return
	}
	ended := c.now()
	started := c.gameStart
	if started.IsZero() {
		started = ended
	}
	game := model.GameRecord{
		SessionID: c.sessionID,
		StartedAt: started,
		EndedAt:   ended,
		Mode:      c.mode,
		Outcome:   outcome,
		Board:     c.board.Snapshot(),
		Moves:     c.board.Marks(),
	}
	if _, err := c.recorder.InsertGame(ctx, game); err != nil {
		c.log.Warn("failed to record game", zap.Error(err))
	}
}

func (c *Controller) persist() {
	if c.persister == nil {
		return
	}
	if err := c.persister.Save(c.Snapshot()); err != nil {
		c.log.Warn("failed to save state", zap.Error(err))
	}
}

// Snapshot returns the state to persist.
func (c *Controller) Snapshot() config.State {
	s := c.tracker.Stats()
	return config.State{
		PvP:     s.PvP,
		AI:      s.AI,
		LEDs:    c.leds,
		Session: config.SessionState{Mode: c.mode},
	}
}

// Close releases the transport.
func (c *Controller) Close() error {
	return c.transport.Close()
}

// Board returns the current grid.
func (c *Controller) Board() [board.Size][board.Size]model.Cell {
	return c.board.Rows()
}

// BoardSnapshot returns the grid in wire order.
func (c *Controller) BoardSnapshot() string {
	return c.board.Snapshot()
}

// Stats returns the current counters.
func (c *Controller) Stats() model.Stats {
	return c.tracker.Stats()
}

// LEDs returns the indicator configuration.
func (c *Controller) LEDs() model.LEDConfig {
	return c.leds
}

// Mode returns the last selected mode.
func (c *Controller) Mode() model.Mode {
	return c.mode
}

// State returns the exchange state.
func (c *Controller) State() State {
	return c.state
}

// ResetPending reports whether a reset has not been acknowledged yet.
func (c *Controller) ResetPending() bool {
	return c.resetPending
}

// GameOver reports whether the device announced a result.
func (c *Controller) GameOver() bool {
	return c.gameOver
}

// LastOutcome returns the result of the finished game, if any.
func (c *Controller) LastOutcome() model.Outcome {
	return c.lastOutcome
}

// SessionID identifies this run in the game history.
func (c *Controller) SessionID() string {
	return c.sessionID
}
