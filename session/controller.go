// Package session owns the caption workflow state: the selected image and
// tone, the submit/loading/error/result cycle, and the persisted history.
package session

import (
	"context"
	"log/slog"
	"sync"

	"captioncraft/caption"
)

// HistoryStore persists the history list
type HistoryStore interface {
	Load() caption.History
	Save(h caption.History) error
}

// State is a snapshot of the session for rendering
type State struct {
	Image   *caption.Image
	Preview string
	Tone    caption.Tone
	Caption string
	Loading bool
	Error   string
	History caption.History
}

// HasImage reports whether an image is selected
func (s State) HasImage() bool { return s.Image != nil }

// CanGenerate reports whether the generate action is enabled
func (s State) CanGenerate() bool { return s.Image != nil && !s.Loading }

// Request is the input captured when a generation starts
type Request struct {
	Image   *caption.Image
	Tone    caption.Tone
	Preview string
}

// Controller is the single owner of session state. All mutations go through
// its methods.
type Controller struct {
	mu sync.Mutex

	captioner caption.Captioner
	store     HistoryStore
	logger    *slog.Logger

	image   *caption.Image
	preview string
	tone    caption.Tone
	caption string
	loading bool
	errMsg  string
	history caption.History

	// previewTicket identifies the latest image selection
	previewTicket uint64
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger used for non-fatal persistence failures
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTone overrides the initial tone
func WithTone(t caption.Tone) Option {
	return func(c *Controller) {
		if t.Valid() {
			c.tone = t
		}
	}
}

// New creates a controller and loads history from store once
func New(captioner caption.Captioner, store HistoryStore, opts ...Option) *Controller {
	c := &Controller{
		captioner: captioner,
		store:     store,
		logger:    slog.Default(),
		tone:      caption.DefaultTone,
	}
	for _, opt := range opts {
		opt(c)
	}
	if store != nil {
		c.history = store.Load().Truncate()
	}
	if c.history == nil {
		c.history = caption.History{}
	}
	return c
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Image:   c.image,
		Preview: c.preview,
		Tone:    c.tone,
		Caption: c.caption,
		Loading: c.loading,
		Error:   c.errMsg,
		History: c.history.Clone(),
	}
}

// SelectImage replaces the current image. A nil image clears image, preview,
// caption and error. A non-nil image clears caption and error and returns the
// ticket that its preview must be applied with.
func (c *Controller) SelectImage(img *caption.Image) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.previewTicket++
	c.caption = ""
	c.errMsg = ""
	c.preview = ""
	c.image = img
	if img == nil {
		return 0
	}
	return c.previewTicket
}

// ClearImage is SelectImage(nil)
func (c *Controller) ClearImage() {
	c.SelectImage(nil)
}

// ApplyPreview sets the preview derived for the selection identified by
// ticket. Results for superseded selections are dropped and false is returned.
func (c *Controller) ApplyPreview(ticket uint64, preview string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ticket == 0 || ticket != c.previewTicket || c.image == nil {
		return false
	}
	c.preview = preview
	return true
}

// SelectTone sets the active tone
func (c *Controller) SelectTone(t caption.Tone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tone = t
}

// Begin starts a generation. It returns false without touching state when no
// image is selected or a generation is already running.
func (c *Controller) Begin() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.image == nil || c.loading {
		return Request{}, false
	}
	c.errMsg = ""
	c.caption = ""
	c.loading = true
	return Request{Image: c.image, Tone: c.tone, Preview: c.preview}, true
}

// Finish records the outcome of the generation started by Begin
func (c *Controller) Finish(req Request, text string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = false
	if err != nil {
		c.caption = ""
		c.errMsg = caption.ErrorMessage(err)
		return
	}

	c.caption = text
	c.history = c.history.Add(caption.HistoryEntry{
		Caption: text,
		Tone:    req.Tone,
		Preview: req.Preview,
	})
	if c.store != nil {
		if err := c.store.Save(c.history); err != nil {
			c.logger.Warn("failed to persist history", "error", err)
		}
	}
}

// Run calls the captioner for req. It does not touch controller state.
func (c *Controller) Run(ctx context.Context, req Request) (string, error) {
	return c.captioner.Generate(ctx, req.Image, req.Tone)
}

// Generate runs Begin, the captioner call and Finish in sequence. It is a
// no-op when Begin refuses to start. The returned error is the captioner
// failure, which is also recorded as the session error message.
func (c *Controller) Generate(ctx context.Context) error {
	req, ok := c.Begin()
	if !ok {
		return nil
	}
	text, err := c.Run(ctx, req)
	c.Finish(req, text, err)
	return err
}

// SelectFromHistory replays history entry i into the current view without
// contacting the captioner or reordering history. The current image is kept
// but any pending preview for it is invalidated.
func (c *Controller) SelectFromHistory(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.history) {
		return false
	}
	c.previewTicket++
	e := c.history[i]
	c.caption = e.Caption
	c.preview = e.Preview
	c.tone = e.Tone
	return true
}

// ClearHistory empties the history and persists the empty list
func (c *Controller) ClearHistory() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = caption.History{}
	if c.store == nil {
		return nil
	}
	return c.store.Save(c.history)
}
