package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Open         key.Binding
	Generate     key.Binding
	ToneNext     key.Binding
	TonePrev     key.Binding
	ToneNumber   key.Binding
	Up           key.Binding
	Down         key.Binding
	Select       key.Binding
	Focus        key.Binding
	Copy         key.Binding
	Clear        key.Binding
	ClearHistory key.Binding
	Back         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Open:         key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "Open image")),
		Generate:     key.NewBinding(key.WithKeys("g", "enter"), key.WithHelp("g/enter", "Generate")),
		ToneNext:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("h/l", "Tone")),
		TonePrev:     key.NewBinding(key.WithKeys("left", "h")),
		ToneNumber:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "Pick tone")),
		Up:           key.NewBinding(key.WithKeys("up", "k")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/k", "Navigate")),
		Select:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "Reuse caption")),
		Focus:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "Switch")),
		Copy:         key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Copy")),
		Clear:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "Clear")),
		ClearHistory: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "Clear history")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "Back")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "More")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "Quit")),
	}
}

// renderHelp joins "key desc" pairs for bindings that have help text
func renderHelp(bindings ...key.Binding) string {
	helpStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	keyStyle := lipgloss.NewStyle().Foreground(ColorSubtle).Bold(true)

	var parts []string
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" || !b.Enabled() {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+" "+helpStyle.Render(h.Desc))
	}
	return helpStyle.Render(strings.Join(parts, "  |  "))
}
