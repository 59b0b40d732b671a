package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"captioncraft/client"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// FeedMessageType represents the type of activity feed message
type FeedMessageType string

const (
	// MsgTypeRequest indicates an outgoing caption request
	MsgTypeRequest FeedMessageType = "request"
	// MsgTypeResponse indicates a successful HTTP response
	MsgTypeResponse FeedMessageType = "response"
	// MsgTypeStatus indicates a status update
	MsgTypeStatus FeedMessageType = "status"
	// MsgTypeError indicates an error occurred
	MsgTypeError FeedMessageType = "error"
	// MsgTypeComplete indicates a caption was produced
	MsgTypeComplete FeedMessageType = "complete"
)

// FeedMessage is a single line in the activity feed
type FeedMessage struct {
	Timestamp time.Time
	Type      FeedMessageType
	Title     string
	Detail    string
	Latency   time.Duration
	Err       string
}

// ActivityFeed keeps a bounded log of what the app sent and received,
// rendered in a scrolling viewport
type ActivityFeed struct {
	Messages    []FeedMessage
	Viewport    viewport.Model
	Width       int
	Height      int
	MaxMessages int
}

// NewActivityFeed creates a feed with the given dimensions
func NewActivityFeed(width, height int) *ActivityFeed {
	vp := viewport.New(width, height)
	return &ActivityFeed{
		Messages:    make([]FeedMessage, 0),
		Viewport:    vp,
		Width:       width,
		Height:      height,
		MaxMessages: 50,
	}
}

// AddMessage appends msg, trims the oldest and scrolls to the bottom
func (f *ActivityFeed) AddMessage(msg FeedMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	f.Messages = append(f.Messages, msg)

	if f.MaxMessages > 0 && len(f.Messages) > f.MaxMessages {
		f.Messages = f.Messages[len(f.Messages)-f.MaxMessages:]
	}

	f.Viewport.SetContent(f.Render())
	f.Viewport.GotoBottom()
}

// AddRequest records a generation start
func (f *ActivityFeed) AddRequest(target, detail string) {
	f.AddMessage(FeedMessage{Type: MsgTypeRequest, Title: "REQUEST to " + target, Detail: detail})
}

// AddStatus records a status line
func (f *ActivityFeed) AddStatus(title string) {
	f.AddMessage(FeedMessage{Type: MsgTypeStatus, Title: title})
}

// AddComplete records a finished caption
func (f *ActivityFeed) AddComplete(title, detail string) {
	f.AddMessage(FeedMessage{Type: MsgTypeComplete, Title: title, Detail: detail})
}

// AddError records a failure
func (f *ActivityFeed) AddError(title, errMsg string) {
	f.AddMessage(FeedMessage{Type: MsgTypeError, Title: title, Err: errMsg})
}

// Record turns a finished HTTP exchange into a feed line
func (f *ActivityFeed) Record(ev client.Event) {
	msg := FeedMessage{
		Type:    MsgTypeResponse,
		Title:   fmt.Sprintf("%s %s", ev.Method, endpointPath(ev.URL)),
		Latency: ev.Latency,
	}
	if ev.StatusCode > 0 {
		msg.Title += fmt.Sprintf(" -> %d", ev.StatusCode)
	}
	if ev.BytesSent > 0 {
		msg.Detail = humanize.Bytes(uint64(ev.BytesSent)) + " sent"
	}
	if ev.Err != nil {
		msg.Type = MsgTypeError
		msg.Err = truncateString(ev.Err.Error(), 80)
	}
	f.AddMessage(msg)
}

// SetSize updates the feed dimensions
func (f *ActivityFeed) SetSize(width, height int) {
	f.Width = width
	f.Height = height
	f.Viewport.Width = width
	f.Viewport.Height = height
	f.Viewport.SetContent(f.Render())
}

// Clear removes all messages
func (f *ActivityFeed) Clear() {
	f.Messages = make([]FeedMessage, 0)
	f.Viewport.SetContent(f.Render())
}

// View returns the viewport view for Bubble Tea
func (f *ActivityFeed) View() string {
	return f.Viewport.View()
}

// Render renders all messages to a string
func (f *ActivityFeed) Render() string {
	if len(f.Messages) == 0 {
		return MutedStyle.Render("  No activity yet")
	}

	lines := make([]string, 0, len(f.Messages))
	for _, msg := range f.Messages {
		lines = append(lines, f.renderMessage(msg))
	}
	return strings.Join(lines, "\n")
}

func (f *ActivityFeed) renderMessage(msg FeedMessage) string {
	icon, style := messageStyle(msg.Type)
	timestamp := lipgloss.NewStyle().Foreground(ColorMuted).Render(msg.Timestamp.Format("15:04:05"))

	var parts []string
	if msg.Latency > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", msg.Latency.Seconds()))
	}
	if msg.Detail != "" {
		parts = append(parts, msg.Detail)
	}

	var suffix string
	if len(parts) > 0 {
		suffix = " " + MutedStyle.Render("("+strings.Join(parts, ", ")+")")
	}
	if msg.Err != "" {
		suffix += " " + lipgloss.NewStyle().Foreground(ColorError).Render("- "+msg.Err)
	}

	return fmt.Sprintf("%s %s %s%s", timestamp, style.Render(icon), style.Render(msg.Title), suffix)
}

func messageStyle(t FeedMessageType) (string, lipgloss.Style) {
	switch t {
	case MsgTypeRequest:
		return "[>]", lipgloss.NewStyle().Foreground(ColorSecondary)
	case MsgTypeResponse:
		return "[<]", lipgloss.NewStyle().Foreground(ColorSuccess)
	case MsgTypeError:
		return "[!]", lipgloss.NewStyle().Foreground(ColorError)
	case MsgTypeComplete:
		return "[x]", lipgloss.NewStyle().Foreground(ColorSuccess)
	default:
		return "[-]", lipgloss.NewStyle().Foreground(ColorPrimary)
	}
}

// endpointPath drops scheme and host so lines stay short
func endpointPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}

func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")

	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
