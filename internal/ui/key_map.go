package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	check   key.Binding
	trigger key.Binding
	full    key.Binding
	cancel  key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		check:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "check")),
		trigger: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "sync")),
		full:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "full sync")),
		cancel:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "history")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.check, k.trigger, k.full, k.cancel, k.refresh, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.check, k.trigger, k.full},
		{k.cancel, k.refresh, k.quit},
	}
}
