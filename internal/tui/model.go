// Package tui provides the Bubble Tea board interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tictac/internal/board"
	"github.com/verte-zerg/tictac/internal/model"
	"github.com/verte-zerg/tictac/internal/session"
)

// Session is the part of the session controller the UI drives.
type Session interface {
	Move(ctx context.Context, row, col int) (session.Exchange, error)
	Reset(ctx context.Context) (session.Exchange, error)
	SelectMode(ctx context.Context, mode model.Mode) (session.Exchange, error)
	ToggleLED(ctx context.Context, led model.LED) (session.Exchange, error)
	Board() [board.Size][board.Size]model.Cell
	Stats() model.Stats
	LEDs() model.LEDConfig
	Mode() model.Mode
	ResetPending() bool
	GameOver() bool
	LastOutcome() model.Outcome
}

// Model implements the Bubble Tea board UI.
type Model struct {
	session Session
	keys    keyMap
	help    help.Model

	width  int
	height int

	cursorRow int
	cursorCol int
	status    string
}

var (
	xStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	oStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#3A3A3A"))
	gridStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	outcomeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	ledOnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	ledOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a board TUI model.
func NewModel(s Session) *Model {
	return &Model{
		session:   s,
		keys:      defaultKeyMap(),
		help:      help.New(),
		cursorRow: 1,
		cursorCol: 1,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Intents run synchronously so exchanges never overlap.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.cursorRow = (m.cursorRow + board.Size - 1) % board.Size
	case key.Matches(msg, m.keys.Down):
		m.cursorRow = (m.cursorRow + 1) % board.Size
	case key.Matches(msg, m.keys.Left):
		m.cursorCol = (m.cursorCol + board.Size - 1) % board.Size
	case key.Matches(msg, m.keys.Right):
		m.cursorCol = (m.cursorCol + 1) % board.Size
	case key.Matches(msg, m.keys.Place):
		m.apply(m.session.Move(ctx, m.cursorRow, m.cursorCol))
	case key.Matches(msg, m.keys.Cell):
		idx := int(msg.String()[0] - '1')
		m.cursorRow, m.cursorCol = idx/board.Size, idx%board.Size
		m.apply(m.session.Move(ctx, m.cursorRow, m.cursorCol))
	case key.Matches(msg, m.keys.Reset):
		m.apply(m.session.Reset(ctx))
	case key.Matches(msg, m.keys.PlayerFirst):
		m.apply(m.session.SelectMode(ctx, model.ModePlayerFirst))
	case key.Matches(msg, m.keys.AIFirst):
		m.apply(m.session.SelectMode(ctx, model.ModeAIFirst))
	case key.Matches(msg, m.keys.PvP):
		m.apply(m.session.SelectMode(ctx, model.ModePvP))
	case key.Matches(msg, m.keys.LED1):
		m.apply(m.session.ToggleLED(ctx, model.LED1))
	case key.Matches(msg, m.keys.LED2):
		m.apply(m.session.ToggleLED(ctx, model.LED2))
	}
	return m, nil
}

func (m *Model) apply(ex session.Exchange, err error) {
	switch {
	case err != nil:
		m.status = errorStyle.Render(err.Error())
	case ex.Err != nil:
		m.status = errorStyle.Render("device did not respond")
	case ex.Ignored && m.session.ResetPending():
		m.status = "waiting for the device to reset"
	case ex.Ignored:
		m.status = "game over: press r or pick a mode"
	default:
		m.status = ""
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	sections := []string{
		titleStyle.Render("tictac · " + modeLabel(m.session.Mode())),
		"",
		m.renderBoard(),
		"",
		m.renderStatus(),
		m.renderLEDs(),
		m.renderFooter(),
		"",
		m.help.View(m.keys),
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderBoard() string {
	cells := m.session.Board()
	lines := make([]string, 0, board.Size*2-1)
	for r := 0; r < board.Size; r++ {
		parts := make([]string, 0, board.Size)
		for c := 0; c < board.Size; c++ {
			s := renderCell(cells[r][c])
			if r == m.cursorRow && c == m.cursorCol {
				s = cursorStyle.Render(s)
			}
			parts = append(parts, s)
		}
		lines = append(lines, strings.Join(parts, gridStyle.Render("│")))
		if r < board.Size-1 {
			lines = append(lines, gridStyle.Render("───┼───┼───"))
		}
	}
	return strings.Join(lines, "\n")
}

func renderCell(c model.Cell) string {
	switch c {
	case model.CellX:
		return xStyle.Render(" X ")
	case model.CellO:
		return oStyle.Render(" O ")
	default:
		return emptyStyle.Render(" · ")
	}
}

func (m *Model) renderStatus() string {
	if m.session.GameOver() {
		return outcomeStyle.Render(string(m.session.LastOutcome()))
	}
	if m.status != "" {
		return m.status
	}
	if m.session.ResetPending() {
		return "waiting for the device to reset"
	}
	return ""
}

func (m *Model) renderLEDs() string {
	leds := m.session.LEDs()
	return fmt.Sprintf("LED 1 %s  LED 2 %s", ledLabel(leds.Get(model.LED1)), ledLabel(leds.Get(model.LED2)))
}

func ledLabel(on bool) string {
	if on {
		return ledOnStyle.Render("●")
	}
	return ledOffStyle.Render("○")
}

func (m *Model) renderFooter() string {
	s := m.session.Stats()
	segments := []string{
		fmt.Sprintf("PvP %d games · X %d/%d/%d · O %d/%d/%d",
			s.PvP.Games, s.PvP.WinsX, s.PvP.LossesX, s.PvP.DrawsX, s.PvP.WinsO, s.PvP.LossesO, s.PvP.DrawsO),
		fmt.Sprintf("AI %d games · %d/%d/%d · %d%%",
			s.AI.Games, s.AI.Wins, s.AI.Losses, s.AI.Draws, s.AI.WinRate),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func modeLabel(m model.Mode) string {
	switch m {
	case model.ModePvP:
		return "player vs player"
	case model.ModePlayerFirst:
		return "vs AI, you first"
	case model.ModeAIFirst:
		return "vs AI, AI first"
	default:
		return "pick a mode"
	}
}
