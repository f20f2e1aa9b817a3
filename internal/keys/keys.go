package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Monitoring controls
	CheckNow    key.Binding
	PauseResume key.Binding

	// Classifier
	Process key.Binding

	// Views
	Rules  key.Binding
	Ignore key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		CheckNow: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "check now"),
		),
		PauseResume: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause/resume"),
		),
		Process: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "process invoices"),
		),
		Rules: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "sender rules"),
		),
		Ignore: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "ignore patterns"),
		),
	}
}
