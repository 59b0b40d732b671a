// Package tui provides the CaptionCraft terminal UI using Charm libraries
package tui

import (
	"strings"

	"captioncraft/caption"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - soft plum and lilac with warm accents
var (
	// Primary colors
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#9C27B0", Dark: "#CE93D8"} // Plum
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#7B1FA2", Dark: "#BA68C8"} // Deep lilac
	ColorAccent    = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"} // Amber

	// Semantic colors
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"} // Emerald
	ColorError   = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"} // Red
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#6366F1", Dark: "#818CF8"} // Indigo

	// Neutral colors
	ColorText   = lipgloss.AdaptiveColor{Light: "#1E293B", Dark: "#F1F5F9"}
	ColorSubtle = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}
	ColorBorder = lipgloss.AdaptiveColor{Light: "#E1BEE7", Dark: "#4A2C55"}
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	BodyStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	FocusedBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	ErrorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Foreground(ColorError).
			Padding(0, 1)

	BadgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF"))

	ButtonStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF"))

	DisabledButtonStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Background(ColorBorder).
				Foreground(ColorMuted)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)
)

// Header renders the "CaptionCraft" wordmark with its tagline
func Header() string {
	word := lipgloss.NewStyle().Bold(true).Foreground(ColorText).Render("Caption") +
		lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Render("Craft")
	tagline := SubtitleStyle.Render("Pick an image, pick a tone, get the perfect caption.")
	return word + "\n" + tagline
}

// Panel renders a titled box; focused panels get the primary border
func Panel(title, content string, width int, focused bool) string {
	style := BoxStyle
	if focused {
		style = FocusedBoxStyle
	}
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(TitleStyle.Render(title) + "\n" + content)
}

// ToneBadge renders "<emoji> <Label>"
func ToneBadge(t caption.Tone) string {
	return BadgeStyle.Render(strings.TrimSpace(t.Emoji() + " " + t.Label()))
}

// ToneChips renders the tone selector row with the selection highlighted
func ToneChips(selected caption.Tone, focused bool) string {
	chips := make([]string, 0, len(caption.Tones))
	for _, t := range caption.Tones {
		label := t.Emoji() + " " + t.Label()
		switch {
		case t == selected && focused:
			chips = append(chips, BadgeStyle.Render(label))
		case t == selected:
			chips = append(chips, SelectedStyle.Render("["+label+"]"))
		default:
			chips = append(chips, MutedStyle.Render(" "+label+" "))
		}
	}
	return strings.Join(chips, " ")
}
