// Package model defines shared data structures.
package model

import "time"

// Cell is a single board square as sent by the device.
type Cell byte

const (
	CellEmpty Cell = ' '
	CellX     Cell = 'X'
	CellO     Cell = 'O'
)

// IsMark reports whether the cell holds an X or an O.
func (c Cell) IsMark() bool {
	return c == CellX || c == CellO
}

// Mode is the game mode last selected on the device.
type Mode string

const (
	ModeNone        Mode = ""
	ModePvP         Mode = "pvp"
	ModePlayerFirst Mode = "player_first"
	ModeAIFirst     Mode = "ai_first"
)

// IsAI reports whether the mode is one of the player-vs-AI modes.
func (m Mode) IsAI() bool {
	return m == ModePlayerFirst || m == ModeAIFirst
}

// Valid reports whether m is a selectable mode.
func (m Mode) Valid() bool {
	return m == ModePvP || m.IsAI()
}

// Outcome is a terminal game result reported by the device.
type Outcome string

const (
	OutcomeNone   Outcome = ""
	OutcomeXWin   Outcome = "X win!"
	OutcomeOWin   Outcome = "O win!"
	OutcomeAIWin  Outcome = "AI win!"
	OutcomeYouWin Outcome = "You win!"
	OutcomeDraw   Outcome = "Draw!"
)

// LED identifies one of the two device indicators.
type LED int

const (
	LED1 LED = iota + 1
	LED2
)

// PvPStats counts player-vs-player results from each side's point of view.
type PvPStats struct {
	Games   int `toml:"games"`
	WinsX   int `toml:"wins-x"`
	LossesX int `toml:"losses-x"`
	DrawsX  int `toml:"draws-x"`
	WinsO   int `toml:"wins-o"`
	LossesO int `toml:"losses-o"`
	DrawsO  int `toml:"draws-o"`
}

// AIStats counts player-vs-AI results from the player's point of view.
type AIStats struct {
	Games   int `toml:"games"`
	Wins    int `toml:"wins"`
	Losses  int `toml:"losses"`
	Draws   int `toml:"draws"`
	WinRate int `toml:"win-rate"`
}

// Stats groups both counter sets.
type Stats struct {
	PvP PvPStats
	AI  AIStats
}

// LEDConfig holds the device indicator toggles.
type LEDConfig struct {
	LED1 bool `toml:"led1"`
	LED2 bool `toml:"led2"`
}

// Get returns the state of the given indicator.
func (c LEDConfig) Get(led LED) bool {
	if led == LED2 {
		return c.LED2
	}
	return c.LED1
}

// GameRecord captures a completed game for the history store.
type GameRecord struct {
	ID        int64
	SessionID string
	StartedAt time.Time
	EndedAt   time.Time
	Mode      Mode
	Outcome   Outcome
	Board     string
	Moves     int
}

// HistoryFilter narrows game history queries.
type HistoryFilter struct {
	Mode  Mode
	Since *time.Time
	Last  int
}
