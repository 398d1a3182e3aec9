package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	Place       key.Binding
	Cell        key.Binding
	Reset       key.Binding
	PlayerFirst key.Binding
	AIFirst     key.Binding
	PvP         key.Binding
	LED1        key.Binding
	LED2        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Place:       key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "place")),
		Cell:        key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "place at cell")),
		Reset:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		PlayerFirst: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "vs AI, you first")),
		AIFirst:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "vs AI, AI first")),
		PvP:         key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "player vs player")),
		LED1:        key.NewBinding(key.WithKeys("["), key.WithHelp("[", "toggle LED 1")),
		LED2:        key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "toggle LED 2")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Place, k.Reset, k.PlayerFirst, k.AIFirst, k.PvP, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Place, k.Cell, k.Reset},
		{k.PlayerFirst, k.AIFirst, k.PvP},
		{k.LED1, k.LED2, k.Help, k.Quit},
	}
}
