package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"captioncraft/caption"
	"captioncraft/session"

	tea "github.com/charmbracelet/bubbletea"
)

type memStore struct{ h caption.History }

func (s *memStore) Load() caption.History        { return s.h.Clone() }
func (s *memStore) Save(h caption.History) error { s.h = h.Clone(); return nil }

func newTestModel(t *testing.T, gen caption.CaptionerFunc, history caption.History) (Model, *[]string) {
	t.Helper()
	var copied []string
	ctrl := session.New(gen, &memStore{h: history})
	m := NewModel(Options{
		Controller: ctrl,
		StartDir:   t.TempDir(),
		Clipboard: func(s string) error {
			copied = append(copied, s)
			return nil
		},
	})
	return m, &copied
}

func fixedCaption(text string) caption.CaptionerFunc {
	return func(context.Context, *caption.Image, caption.Tone) (string, error) { return text, nil }
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, c := m.Update(msg)
		m = updated.(Model)
		cmd = c
	}
	return m, cmd
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func testImage() *caption.Image {
	return &caption.Image{Name: "beach.png", MediaType: "image/png", Data: []byte("png bytes")}
}

// withImage loads testImage and applies its preview
func withImage(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := send(t, m, imageLoadedMsg{path: "beach.png", img: testImage()})
	if cmd == nil {
		t.Fatal("selecting an image should return a preview command")
	}
	m, _ = send(t, m, cmd())
	if m.ctrl.State().Preview == "" {
		t.Fatal("preview was not applied")
	}
	return m
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)
	if m.IsQuitting() || m.IsPicking() {
		t.Error("new model should be idle")
	}
	if m.ctrl.State().Tone != caption.ToneCasual {
		t.Errorf("tone = %s, want casual", m.ctrl.State().Tone)
	}
	if cmd := m.Init(); cmd == nil {
		t.Error("Init should start the spinner")
	}
}

func TestToneSelection(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)

	m, _ = press(t, m, "l")
	if got := m.ctrl.State().Tone; got != caption.ToneProfessional {
		t.Errorf("after l: %s, want professional", got)
	}
	m, _ = press(t, m, "left", "left")
	if got := m.ctrl.State().Tone; got != caption.ToneInstagram {
		t.Errorf("wrap around: %s, want instagram", got)
	}
	m, _ = press(t, m, "4")
	if got := m.ctrl.State().Tone; got != caption.TonePoetic {
		t.Errorf("after 4: %s, want poetic", got)
	}
}

func TestGenerateWithoutImageIsIgnored(t *testing.T) {
	called := false
	m, _ := newTestModel(t, func(context.Context, *caption.Image, caption.Tone) (string, error) {
		called = true
		return "", nil
	}, nil)

	m, cmd := press(t, m, "g")
	if cmd != nil {
		t.Error("generate without an image should not start work")
	}
	if m.ctrl.State().Loading || called {
		t.Error("generate without an image changed state")
	}
}

func TestGenerateFlow(t *testing.T) {
	var gotTone caption.Tone
	m, _ := newTestModel(t, func(_ context.Context, img *caption.Image, tone caption.Tone) (string, error) {
		gotTone = tone
		return "Salt in the air", nil
	}, nil)
	m = withImage(t, m)
	m, _ = press(t, m, "3")

	m, cmd := press(t, m, "g")
	if cmd == nil {
		t.Fatal("generate should return a command")
	}
	if !m.ctrl.State().Loading {
		t.Fatal("state should be loading")
	}
	if !strings.Contains(m.View(), loadingText) || !strings.Contains(m.View(), "Generating...") {
		t.Error("loading view missing")
	}

	// a second press while loading is ignored
	if _, again := press(t, m, "g"); again != nil {
		t.Error("generate while loading should be ignored")
	}

	m, _ = send(t, m, cmd())
	s := m.ctrl.State()
	if s.Loading || s.Caption != "Salt in the air" {
		t.Errorf("after result: loading=%v caption=%q", s.Loading, s.Caption)
	}
	if gotTone != caption.ToneWitty {
		t.Errorf("tone sent = %s, want witty", gotTone)
	}
	if len(s.History) != 1 || s.History[0].Tone != caption.ToneWitty {
		t.Errorf("history = %+v", s.History)
	}
	if !strings.Contains(m.View(), "Recent Captions") {
		t.Error("history panel should be visible")
	}
	if len(m.Feed().Messages) != 2 {
		t.Errorf("feed has %d messages, want request and completion", len(m.Feed().Messages))
	}
}

func TestGenerateFailureShowsError(t *testing.T) {
	m, _ := newTestModel(t, func(context.Context, *caption.Image, caption.Tone) (string, error) {
		return "", &caption.APIError{StatusCode: 500, Detail: "Caption generation failed: quota"}
	}, nil)
	m = withImage(t, m)

	m, cmd := press(t, m, "enter")
	m, _ = send(t, m, cmd())

	s := m.ctrl.State()
	if s.Error != "Caption generation failed: quota" {
		t.Errorf("error = %q", s.Error)
	}
	if !strings.Contains(m.View(), "quota") {
		t.Error("error should be rendered")
	}
	if strings.Contains(m.View(), "Recent Captions") {
		t.Error("failures must not add history")
	}
}

func TestStalePreviewDiscarded(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)

	m, first := send(t, m, imageLoadedMsg{img: &caption.Image{Name: "a.png", MediaType: "image/png", Data: []byte("a")}})
	m, second := send(t, m, imageLoadedMsg{img: &caption.Image{Name: "b.png", MediaType: "image/png", Data: []byte("b")}})

	m, _ = send(t, m, second())
	m, _ = send(t, m, first())

	s := m.ctrl.State()
	if s.Image.Name != "b.png" {
		t.Errorf("image = %s, want b.png", s.Image.Name)
	}
	if s.Preview != "data:image/png;base64,Yg==" {
		t.Errorf("preview = %q, want the second image's", s.Preview)
	}
}

func TestLoadErrorIsShown(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)
	m, _ = send(t, m, imageLoadedMsg{err: errors.New("permission denied")})
	if m.Warning() != "permission denied" {
		t.Errorf("warning = %q", m.Warning())
	}
	if m.ctrl.State().HasImage() {
		t.Error("failed load must not select an image")
	}
}

func TestUnsupportedTypeWarns(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)
	m, _ = send(t, m, imageLoadedMsg{img: &caption.Image{Name: "a.gif", MediaType: "image/gif", Data: []byte("g")}})
	if !strings.Contains(m.Warning(), "Invalid file type") {
		t.Errorf("warning = %q", m.Warning())
	}
	if !m.ctrl.State().HasImage() {
		t.Error("selection is still made; the server decides")
	}
}

func TestCopyCaption(t *testing.T) {
	m, copied := newTestModel(t, fixedCaption("Golden hour"), nil)

	// nothing to copy yet
	m, cmd := press(t, m, "c")
	if cmd != nil || len(*copied) != 0 {
		t.Error("copy without a caption should do nothing")
	}

	m = withImage(t, m)
	m, cmd = press(t, m, "g")
	m, _ = send(t, m, cmd())

	m, cmd = press(t, m, "c")
	if len(*copied) != 1 || (*copied)[0] != "Golden hour" {
		t.Fatalf("clipboard = %v", *copied)
	}
	if !m.Copied() || !strings.Contains(m.View(), "Copied!") {
		t.Error("expected Copied! confirmation")
	}
	if cmd == nil {
		t.Fatal("copy should schedule a reset")
	}

	// a reset from an earlier copy is ignored
	m, _ = press(t, m, "c")
	m, _ = send(t, m, copyResetMsg{seq: 1})
	if !m.Copied() {
		t.Error("stale reset cleared the confirmation")
	}
	m, _ = send(t, m, copyResetMsg{seq: 2})
	if m.Copied() {
		t.Error("reset should clear the confirmation")
	}
}

func TestCopyFailure(t *testing.T) {
	ctrl := session.New(fixedCaption("x"), nil)
	m := NewModel(Options{Controller: ctrl, Clipboard: func(string) error { return errors.New("no clipboard") }})
	m = withImage(t, m)
	m, cmd := press(t, m, "g")
	m, _ = send(t, m, cmd())

	m, _ = press(t, m, "c")
	if m.Copied() || !strings.Contains(m.Warning(), "no clipboard") {
		t.Errorf("copied=%v warning=%q", m.Copied(), m.Warning())
	}
}

func TestHistoryNavigation(t *testing.T) {
	history := caption.History{
		{Caption: "first", Tone: caption.ToneCasual, Preview: "p1"},
		{Caption: "second", Tone: caption.TonePoetic, Preview: "p2"},
	}
	m, _ := newTestModel(t, fixedCaption("x"), history)

	m, _ = press(t, m, "tab")
	if !m.FocusHistory() {
		t.Fatal("tab should focus history")
	}
	m, _ = press(t, m, "j", "j")
	if m.HistoryCursor() != 1 {
		t.Errorf("cursor = %d, want 1 (clamped)", m.HistoryCursor())
	}
	m, _ = press(t, m, "enter")

	s := m.ctrl.State()
	if s.Caption != "second" || s.Tone != caption.TonePoetic || s.Preview != "p2" {
		t.Errorf("state after select = %+v", s)
	}
	if s.History[0].Caption != "first" {
		t.Error("selecting must not reorder history")
	}

	m, _ = press(t, m, "k", "tab")
	if m.FocusHistory() || m.HistoryCursor() != 0 {
		t.Error("expected focus back on tones with cursor 0")
	}
}

func TestTabWithoutHistoryStaysOnTones(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)
	m, _ = press(t, m, "tab")
	if m.FocusHistory() {
		t.Error("history panel is hidden when empty")
	}
	if strings.Contains(m.View(), "Recent Captions") {
		t.Error("empty history should not render")
	}
}

func TestClearHistory(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), caption.History{{Caption: "a", Tone: caption.ToneCasual}})
	m, _ = press(t, m, "tab", "D")
	if len(m.ctrl.State().History) != 0 {
		t.Error("history should be empty")
	}
	if m.FocusHistory() {
		t.Error("focus should return to tones")
	}
}

func TestClearImage(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("cap"), nil)
	m = withImage(t, m)
	m, cmd := press(t, m, "g")
	m, _ = send(t, m, cmd())

	m, _ = press(t, m, "x")
	s := m.ctrl.State()
	if s.HasImage() || s.Preview != "" || s.Caption != "" || s.Error != "" {
		t.Errorf("state after clear = %+v", s)
	}
	if !strings.Contains(m.View(), "No image selected") {
		t.Error("expected empty image panel")
	}
}

func TestPickerOpenAndClose(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)

	m, cmd := press(t, m, "o")
	if !m.IsPicking() || cmd == nil {
		t.Fatal("o should open the picker and read the directory")
	}
	if !strings.Contains(m.View(), "Choose an image") {
		t.Error("picker view missing")
	}

	// q does not quit while browsing
	m, _ = press(t, m, "q")
	if m.IsQuitting() {
		t.Error("q should not quit from the picker")
	}

	m, _ = press(t, m, "esc")
	if m.IsPicking() {
		t.Error("esc should close the picker")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)
	m, cmd := press(t, m, "q")
	if !m.IsQuitting() || cmd == nil {
		t.Error("q should quit")
	}
	if m.View() != "" {
		t.Error("quitting view should be empty")
	}
	if m.ctx.Err() == nil {
		t.Error("quitting should cancel in-flight work")
	}
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
	if m.Feed().Width != 114 {
		t.Errorf("feed width = %d", m.Feed().Width)
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t, fixedCaption("x"), nil)
	if strings.Contains(m.View(), "Clear history") {
		t.Error("short help should not list every key")
	}
	m, _ = press(t, m, "?")
	if !strings.Contains(m.View(), "Clear history") {
		t.Error("full help should list clear history")
	}
}

func TestShiftTone(t *testing.T) {
	tests := []struct {
		from  caption.Tone
		delta int
		want  caption.Tone
	}{
		{caption.ToneCasual, 1, caption.ToneProfessional},
		{caption.ToneInstagram, 1, caption.ToneCasual},
		{caption.ToneCasual, -1, caption.ToneInstagram},
		{"unknown", 1, caption.DefaultTone},
	}
	for _, tt := range tests {
		if got := shiftTone(tt.from, tt.delta); got != tt.want {
			t.Errorf("shiftTone(%s, %d) = %s, want %s", tt.from, tt.delta, got, tt.want)
		}
	}
}

func TestStartupHealthCheck(t *testing.T) {
	tests := []struct {
		name      string
		health    func(context.Context) error
		wantType  FeedMessageType
		wantTitle string
	}{
		{"reachable", func(context.Context) error { return nil }, MsgTypeStatus, "Connected to http://localhost:8000"},
		{"unreachable", func(context.Context) error { return errors.New("connection refused") }, MsgTypeError, "Server unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(Options{
				Controller: session.New(fixedCaption("x"), nil),
				Source:     "http://localhost:8000",
				StartDir:   t.TempDir(),
				Health:     tt.health,
			})

			msg := checkHealth(context.Background(), tt.health)()
			m, _ = send(t, m, msg)

			msgs := m.Feed().Messages
			if len(msgs) != 1 {
				t.Fatalf("feed has %d messages, want 1", len(msgs))
			}
			if msgs[0].Type != tt.wantType || msgs[0].Title != tt.wantTitle {
				t.Errorf("feed message = %s %q, want %s %q", msgs[0].Type, msgs[0].Title, tt.wantType, tt.wantTitle)
			}
		})
	}
}

func TestHealthCheckHasDeadline(t *testing.T) {
	var hasDeadline bool
	msg := checkHealth(context.Background(), func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})()
	if _, ok := msg.(healthMsg); !ok {
		t.Fatalf("checkHealth returned %T, want healthMsg", msg)
	}
	if !hasDeadline {
		t.Error("health check should run with a timeout")
	}
}
