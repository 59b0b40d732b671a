package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"captioncraft/caption"
	"captioncraft/client"
	"captioncraft/intake"
	"captioncraft/session"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	loadingText   = "Crafting your caption..."
	copiedTimeout = 2 * time.Second
	healthTimeout = 3 * time.Second
	feedHeight    = 5
)

// Options wires the UI to a session
type Options struct {
	Controller *session.Controller
	// Activity carries HTTP events from the caption client; nil in direct mode
	Activity <-chan client.Event
	// Source names where captions come from, shown in the activity feed
	Source   string
	StartDir string
	// Health, when set, is checked once at startup and reported in the feed
	Health func(context.Context) error
	// Clipboard defaults to the system clipboard
	Clipboard func(string) error
}

type focusArea int

const (
	focusTone focusArea = iota
	focusHistory
)

// Messages
type imageLoadedMsg struct {
	path string
	img  *caption.Image
	err  error
}

type previewMsg struct {
	ticket  uint64
	preview string
	info    intake.Info
}

type captionResultMsg struct {
	req  session.Request
	text string
	err  error
}

type activityMsg client.Event

type healthMsg struct{ err error }

type copyResetMsg struct{ seq int }

// Model is the caption screen
type Model struct {
	ctrl     *session.Controller
	activity <-chan client.Event
	source   string
	health   func(context.Context) error
	copyFn   func(string) error

	filepicker filepicker.Model
	picking    bool
	spinner    spinner.Model
	keys       keyMap
	feed       *ActivityFeed
	showHelp   bool

	focus         focusArea
	historyCursor int
	info          intake.Info
	status        string
	warning       string
	copied        bool
	copySeq       int

	width    int
	height   int
	quitting bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewModel creates the caption screen for opts.Controller
func NewModel(opts Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = caption.AllowedExtensions
	fp.ShowHidden = false
	fp.ShowSize = true
	fp.Height = 12
	if opts.StartDir != "" {
		fp.CurrentDirectory = opts.StartDir
	} else if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"✎    ", " ✎   ", "  ✎  ", "   ✎ ", "    ✎", "   ✎ ", "  ✎  ", " ✎   "},
		FPS:    time.Second / 8,
	}
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	source := opts.Source
	if source == "" {
		source = "captioner"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		ctrl:       opts.Controller,
		activity:   opts.Activity,
		source:     source,
		health:     opts.Health,
		copyFn:     copyFn,
		filepicker: fp,
		spinner:    s,
		keys:       defaultKeyMap(),
		feed:       NewActivityFeed(76, feedHeight),
		width:      80,
		height:     24,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.activity != nil {
		cmds = append(cmds, waitForActivity(m.activity))
	}
	if m.health != nil {
		cmds = append(cmds, checkHealth(m.ctx, m.health))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.feed.SetSize(max(msg.Width-6, 20), feedHeight)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || !m.picking) {
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}
		if m.picking {
			return m.updatePicker(msg)
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case imageLoadedMsg:
		if msg.err != nil {
			m.status = ""
			m.warning = msg.err.Error()
			return m, nil
		}
		return m.selectImage(msg.img)

	case previewMsg:
		if m.ctrl.ApplyPreview(msg.ticket, msg.preview) {
			m.info = msg.info
		}
		return m, nil

	case captionResultMsg:
		m.ctrl.Finish(msg.req, msg.text, msg.err)
		if msg.err != nil {
			m.feed.AddError("Caption failed", caption.ErrorMessage(msg.err))
		} else {
			m.feed.AddComplete("Caption ready", fmt.Sprintf("%s, %d chars", msg.req.Tone, len(msg.text)))
			m.historyCursor = 0
		}
		return m, nil

	case activityMsg:
		m.feed.Record(client.Event(msg))
		return m, waitForActivity(m.activity)

	case healthMsg:
		if msg.err != nil {
			m.feed.AddError("Server unreachable", msg.err.Error())
		} else {
			m.feed.AddStatus("Connected to " + m.source)
		}
		return m, nil

	case copyResetMsg:
		if msg.seq == m.copySeq {
			m.copied = false
		}
		return m, nil
	}

	// Directory reads and other internal picker messages
	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)
	return m, cmd
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.picking = false
		m.status = "Loading " + filepath.Base(path) + "..."
		return m, loadImage(path)
	}
	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.warning = fmt.Sprintf("%s is not a supported image (JPG, PNG, WebP)", filepath.Base(path))
		return m, cmd
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.ctrl.State()

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Open):
		m.picking = true
		m.warning = ""
		return m, m.filepicker.Init()

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusTone && len(state.History) > 0 {
			m.focus = focusHistory
		} else {
			m.focus = focusTone
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copyCaption(state.Caption)

	case key.Matches(msg, m.keys.Clear):
		m.ctrl.ClearImage()
		m.info = intake.Info{}
		m.status, m.warning = "", ""
		m.copied = false
		return m, nil

	case key.Matches(msg, m.keys.ClearHistory):
		if err := m.ctrl.ClearHistory(); err != nil {
			m.warning = "Could not clear history: " + err.Error()
		}
		m.historyCursor = 0
		m.focus = focusTone
		return m, nil
	}

	if m.focus == focusHistory {
		return m.handleHistoryKey(msg, state)
	}

	switch {
	case key.Matches(msg, m.keys.ToneNext):
		m.ctrl.SelectTone(shiftTone(state.Tone, 1))
	case key.Matches(msg, m.keys.TonePrev):
		m.ctrl.SelectTone(shiftTone(state.Tone, -1))
	case key.Matches(msg, m.keys.ToneNumber):
		i := int(msg.Runes[0] - '1')
		if i >= 0 && i < len(caption.Tones) {
			m.ctrl.SelectTone(caption.Tones[i])
		}
	case key.Matches(msg, m.keys.Generate):
		return m.generate()
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg, state session.State) (tea.Model, tea.Cmd) {
	n := len(state.History)
	if n == 0 {
		m.focus = focusTone
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.historyCursor < n-1 {
			m.historyCursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.ctrl.SelectFromHistory(m.historyCursor) {
			m.copied = false
			m.status = "Showing a saved caption"
		}
	}
	return m, nil
}

// selectImage makes img current and derives its preview off the update loop
func (m Model) selectImage(img *caption.Image) (tea.Model, tea.Cmd) {
	ticket := m.ctrl.SelectImage(img)
	m.info = intake.Info{}
	m.status = ""
	m.warning = ""
	m.copied = false
	if err := caption.ValidateUpload(img.MediaType, img.Size()); err != nil {
		// the server has the final say
		m.warning = err.Error()
	}
	return m, func() tea.Msg {
		return previewMsg{ticket: ticket, preview: intake.Preview(img), info: intake.Describe(img)}
	}
}

func (m Model) generate() (tea.Model, tea.Cmd) {
	req, ok := m.ctrl.Begin()
	if !ok {
		return m, nil
	}
	m.status = ""
	m.copied = false
	m.feed.AddRequest(m.source, fmt.Sprintf("%s, %s", req.Tone, req.Image.Name))

	ctx, ctrl := m.ctx, m.ctrl
	return m, func() tea.Msg {
		text, err := ctrl.Run(ctx, req)
		return captionResultMsg{req: req, text: text, err: err}
	}
}

func (m Model) copyCaption(text string) (tea.Model, tea.Cmd) {
	if text == "" {
		return m, nil
	}
	if err := m.copyFn(text); err != nil {
		m.warning = "Copy failed: " + err.Error()
		return m, nil
	}
	m.copied = true
	m.copySeq++
	seq := m.copySeq
	return m, tea.Tick(copiedTimeout, func(time.Time) tea.Msg {
		return copyResetMsg{seq: seq}
	})
}

func loadImage(path string) tea.Cmd {
	return func() tea.Msg {
		img, err := intake.Load(path)
		return imageLoadedMsg{path: path, img: img, err: err}
	}
}

func checkHealth(ctx context.Context, health func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		return healthMsg{err: health(ctx)}
	}
}

func waitForActivity(ch <-chan client.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return activityMsg(ev)
	}
}

func shiftTone(t caption.Tone, delta int) caption.Tone {
	n := len(caption.Tones)
	for i, tone := range caption.Tones {
		if tone == t {
			return caption.Tones[((i+delta)%n+n)%n]
		}
	}
	return caption.DefaultTone
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	state := m.ctrl.State()
	width := max(m.width-4, 40)

	var sections []string
	sections = append(sections, Header())

	if m.picking {
		title := TitleStyle.Render("Choose an image")
		desc := MutedStyle.Render("JPG, PNG or WebP up to 25 MB")
		sections = append(sections, FocusedBoxStyle.Width(width).Render(title+"\n"+desc+"\n\n"+m.filepicker.View()))
		sections = append(sections, renderHelp(m.keys.Down, m.keys.Select, m.keys.Back))
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(sections, "\n\n"))
	}

	sections = append(sections, Panel("Image", m.renderImage(state), width, false))
	sections = append(sections, Panel("Tone", ToneChips(state.Tone, m.focus == focusTone), width, m.focus == focusTone))
	sections = append(sections, m.renderButton(state))

	if out := m.renderCaption(state, width); out != "" {
		sections = append(sections, out)
	}
	if len(state.History) > 0 {
		sections = append(sections, Panel("Recent Captions", m.renderHistory(state), width, m.focus == focusHistory))
	}
	sections = append(sections, Panel("Activity", m.feed.View(), width, false))
	sections = append(sections, m.renderHelp(state))

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(sections, "\n\n"))
}

func (m Model) renderImage(state session.State) string {
	var lines []string
	switch {
	case state.HasImage():
		line := "📷 " + BodyStyle.Render(state.Image.Name)
		if m.info.Size > 0 {
			line = "📷 " + BodyStyle.Render(m.info.String())
		}
		lines = append(lines, line)
		if state.Preview == "" {
			lines = append(lines, MutedStyle.Render("Preparing preview..."))
		}
	case state.Preview != "":
		lines = append(lines, MutedStyle.Render("Image from history. Press o to pick a new one."))
	default:
		lines = append(lines, MutedStyle.Render("No image selected. Press o to choose one."))
	}
	if m.status != "" {
		lines = append(lines, InfoStyle.Render(m.status))
	}
	if m.warning != "" {
		lines = append(lines, ErrorStyle.Render("⚠ "+m.warning))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderButton(state session.State) string {
	switch {
	case state.Loading:
		return DisabledButtonStyle.Render("Generating...")
	case state.CanGenerate():
		return ButtonStyle.Render("Generate Caption")
	default:
		return DisabledButtonStyle.Render("Generate Caption")
	}
}

func (m Model) renderCaption(state session.State, width int) string {
	switch {
	case state.Loading:
		return BoxStyle.Width(width).Render(m.spinner.View() + " " + BodyStyle.Render(loadingText))
	case state.Error != "":
		return ErrorBoxStyle.Width(width).Render("✗ " + state.Error)
	case state.Caption != "":
		footer := MutedStyle.Render("c to copy")
		if m.copied {
			footer = SuccessStyle.Render("Copied!")
		}
		body := ToneBadge(state.Tone) + "\n\n" + BodyStyle.Render(state.Caption) + "\n\n" + footer
		return Panel("Your Caption", body, width, true)
	}
	return ""
}

func (m Model) renderHistory(state session.State) string {
	lines := make([]string, 0, len(state.History))
	for i, e := range state.History {
		text := truncateString(e.Caption, max(m.width-16, 20))
		line := e.Tone.Emoji() + " " + text
		if m.focus == focusHistory && i == m.historyCursor {
			lines = append(lines, SelectedStyle.Render("> "+line))
		} else {
			lines = append(lines, MutedStyle.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp(state session.State) string {
	k := m.keys
	if m.showHelp {
		if m.focus == focusHistory {
			return renderHelp(k.Down, k.Select, k.Focus, k.ClearHistory, k.Copy, k.Help, k.Quit)
		}
		return renderHelp(k.Open, k.ToneNext, k.ToneNumber, k.Generate, k.Copy, k.Clear, k.Focus, k.ClearHistory, k.Help, k.Quit)
	}
	if !state.HasImage() {
		return renderHelp(k.Open, k.Help, k.Quit)
	}
	return renderHelp(k.Open, k.ToneNext, k.Generate, k.Copy, k.Help, k.Quit)
}

// Getter methods for external access
func (m Model) IsQuitting() bool    { return m.quitting }
func (m Model) IsPicking() bool     { return m.picking }
func (m Model) Copied() bool        { return m.copied }
func (m Model) Warning() string     { return m.warning }
func (m Model) HistoryCursor() int  { return m.historyCursor }
func (m Model) FocusHistory() bool  { return m.focus == focusHistory }
func (m Model) Feed() *ActivityFeed { return m.feed }

// RunUI runs the caption screen until the user quits
func RunUI(opts Options) error {
	model := NewModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if m, ok := finalModel.(Model); ok {
		m.cancel()
	}
	return err
}
