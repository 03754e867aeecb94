// Package session owns the webcam session state of the control panel: the
// running flag, the word poller and the edit commands forwarded to the
// recognition backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"handword/internal/backend"

	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultPlaceholder = "[empty]"
	ClearPrompt        = "Clear the entire word?"
)

var (
	// ErrBusy is returned when a start/stop is issued while another is in flight.
	ErrBusy = errors.New("start/stop already in progress")
	// ErrRejected is returned when the backend answers success:false.
	ErrRejected = errors.New("backend rejected request")
	// ErrDeclined is returned when the user declines the clear confirmation.
	ErrDeclined = errors.New("declined by user")
)

// Backend is the subset of the HTTP client the controller drives.
type Backend interface {
	Probe(ctx context.Context) (any, error)
	StartWebcam(ctx context.Context) (backend.Result, error)
	StopWebcam(ctx context.Context) (backend.Result, error)
	GetWord(ctx context.Context) (string, error)
	AddSpace(ctx context.Context) (backend.WordResult, error)
	DeleteChar(ctx context.Context) (backend.WordResult, error)
	ClearWord(ctx context.Context) (backend.Result, error)
	VideoFeedURL() string
}

type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller mediates one webcam session. Idle becomes Active only after a
// successful start; Active becomes Idle after a successful stop or Teardown.
type Controller struct {
	client      Backend
	view        View
	confirm     Confirmer
	logger      logrus.FieldLogger
	interval    time.Duration
	placeholder string
	onWord      func(word string)

	mu       sync.Mutex
	running  bool
	toggling bool
	poll     *poller
	// teardowns requested while a start/stop was in flight
	pendingTeardowns []chan struct{}

	wordMu sync.Mutex
	word   string

	activePolls atomic.Int32
	counters    counters
}

// Option customizes a Controller.
type Option func(*Controller)

// WithInterval sets the word polling period.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithConfirmer sets who answers the clear prompt. The default declines.
func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) { c.confirm = cf }
}

// WithPlaceholder sets the literal displayed for an empty word.
func WithPlaceholder(p string) Option {
	return func(c *Controller) {
		if p != "" {
			c.placeholder = p
		}
	}
}

// WithWordListener is called from the poll goroutine whenever a polled word
// differs from the one displayed before it.
func WithWordListener(fn func(word string)) Option {
	return func(c *Controller) { c.onWord = fn }
}

// New returns an idle Controller.
func New(client Backend, view View, opts ...Option) *Controller {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Controller{
		client:      client,
		view:        view,
		confirm:     NeverConfirm,
		logger:      discard,
		interval:    DefaultInterval,
		placeholder: DefaultPlaceholder,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Init paints the idle view and runs the connectivity check, like a page load.
func (c *Controller) Init(ctx context.Context) error {
	c.view.HideStream()
	c.view.SetToggleLabel(StartLabel)
	c.view.SetWord(c.placeholder)
	return c.CheckConnection(ctx)
}

// CheckConnection probes the backend root and reports the outcome as status.
// It never changes the session state.
func (c *Controller) CheckConnection(ctx context.Context) error {
	info, err := c.client.Probe(ctx)
	if err != nil {
		c.logger.WithError(err).Error("backend connection check failed")
		c.setStatus("Cannot connect to backend - Make sure the backend is running", StatusError)
		return err
	}
	c.logger.WithField("info", info).Info("backend reachable")
	c.setStatus("Connected to backend - Ready to start", StatusActive)
	return nil
}

type direction int

const (
	toggle direction = iota
	toActive
	toIdle
)

// StartOrStop flips the session: start when idle, stop when active.
func (c *Controller) StartOrStop(ctx context.Context) error {
	return c.transition(ctx, toggle)
}

// Start starts the session; it is a no-op when already active.
func (c *Controller) Start(ctx context.Context) error {
	return c.transition(ctx, toActive)
}

// Stop stops the session; it is a no-op when idle.
func (c *Controller) Stop(ctx context.Context) error {
	return c.transition(ctx, toIdle)
}

func (c *Controller) transition(ctx context.Context, dir direction) error {
	c.mu.Lock()
	if c.toggling {
		c.mu.Unlock()
		c.logger.Debug("start/stop ignored, request in flight")
		return ErrBusy
	}
	running := c.running
	if (dir == toActive && running) || (dir == toIdle && !running) {
		c.mu.Unlock()
		return nil
	}
	c.toggling = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.toggling = false
		pending := c.pendingTeardowns
		c.pendingTeardowns = nil
		c.mu.Unlock()
		for _, done := range pending {
			c.teardown(done)
		}
	}()

	if running {
		return c.stop(ctx)
	}
	return c.start(ctx)
}

func (c *Controller) start(ctx context.Context) error {
	c.setStatus("Starting backend webcam...", StatusNormal)
	c.logger.Info("calling /start_webcam")
	res, err := c.client.StartWebcam(ctx)
	c.counters.commands.Add(1)
	if err != nil {
		c.counters.commandFailures.Add(1)
		c.logger.WithError(err).Error("error starting webcam")
		c.setStatus("Error: Could not connect to backend", StatusError)
		return fmt.Errorf("start webcam: %w", err)
	}
	c.logger.WithField("response", res).Info("start webcam response")
	if !res.Success {
		c.counters.commandFailures.Add(1)
		c.setStatus("Failed to start webcam: "+res.Message, StatusError)
		return fmt.Errorf("start webcam: %w: %s", ErrRejected, res.Message)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.ShowStream(c.client.VideoFeedURL())
	c.view.SetToggleLabel(StopLabel)
	c.running = true
	c.setStatus("Webcam active - Show hand gestures", StatusActive)
	c.startPollingLocked()
	return nil
}

func (c *Controller) stop(ctx context.Context) error {
	c.logger.Info("calling /stop_webcam")
	res, err := c.client.StopWebcam(ctx)
	c.counters.commands.Add(1)
	if err != nil {
		c.counters.commandFailures.Add(1)
		c.logger.WithError(err).Error("error stopping webcam")
		c.setStatus("Error stopping webcam", StatusError)
		return fmt.Errorf("stop webcam: %w", err)
	}
	c.logger.WithField("response", res).Info("stop webcam response")
	if !res.Success {
		c.counters.commandFailures.Add(1)
		c.setStatus("Failed to stop webcam", StatusError)
		return fmt.Errorf("stop webcam: %w", ErrRejected)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollingLocked()
	c.view.HideStream()
	c.view.SetToggleLabel(StartLabel)
	c.running = false
	c.setStatus("Webcam stopped", StatusNormal)
	return nil
}

// AddSpace appends a space to the backend word. It does not require an
// active session.
func (c *Controller) AddSpace(ctx context.Context) error {
	return c.edit(ctx, "add space", c.client.AddSpace, "Space added", "Error adding space")
}

// DeleteChar removes the last character of the backend word.
func (c *Controller) DeleteChar(ctx context.Context) error {
	return c.edit(ctx, "delete char", c.client.DeleteChar, "Character deleted", "Error deleting character")
}

func (c *Controller) edit(ctx context.Context, name string, call func(context.Context) (backend.WordResult, error), okText, errText string) error {
	res, err := call(ctx)
	c.counters.commands.Add(1)
	if err != nil {
		c.counters.commandFailures.Add(1)
		c.logger.WithError(err).Errorf("%s failed", name)
		c.setStatus(errText, StatusError)
		return fmt.Errorf("%s: %w", name, err)
	}
	if !res.Success {
		c.counters.commandFailures.Add(1)
		c.setStatus(errText, StatusError)
		return fmt.Errorf("%s: %w", name, ErrRejected)
	}
	c.setWord(res.Word)
	c.setStatus(okText, StatusActive)
	return nil
}

// Clear empties the backend word after the user confirms. On success the
// placeholder is shown whatever the response carried.
func (c *Controller) Clear(ctx context.Context) error {
	if !c.confirm.Confirm(ClearPrompt) {
		return ErrDeclined
	}
	res, err := c.client.ClearWord(ctx)
	c.counters.commands.Add(1)
	if err != nil {
		c.counters.commandFailures.Add(1)
		c.logger.WithError(err).Error("clear word failed")
		c.setStatus("Error clearing word", StatusError)
		return fmt.Errorf("clear word: %w", err)
	}
	if !res.Success {
		c.counters.commandFailures.Add(1)
		c.setStatus("Error clearing word", StatusError)
		return fmt.Errorf("clear word: %w", ErrRejected)
	}
	c.setWord("")
	c.setStatus("Word cleared", StatusActive)
	return nil
}

// Teardown is the unload path: when active it stops polling, marks the
// session idle and sends a stop without waiting for or checking the answer.
// The returned channel closes once the stop has been dispatched and answered
// (or failed); callers that are about to exit may wait on it briefly.
// A Teardown issued while a start is in flight is deferred until that start
// returns, so a start that succeeds late is stopped again.
func (c *Controller) Teardown() <-chan struct{} {
	done := make(chan struct{})
	c.mu.Lock()
	if c.toggling && !c.running {
		c.pendingTeardowns = append(c.pendingTeardowns, done)
		c.mu.Unlock()
		return done
	}
	c.mu.Unlock()
	c.teardown(done)
	return done
}

func (c *Controller) teardown(done chan struct{}) {
	c.mu.Lock()
	running := c.running
	if running {
		c.stopPollingLocked()
		c.running = false
	}
	c.mu.Unlock()
	if !running {
		close(done)
		return
	}
	go func() {
		defer close(done)
		_, _ = c.client.StopWebcam(context.Background())
	}()
}

// Running reports whether the session is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Word returns the word as last displayed, with the placeholder for empty.
func (c *Controller) Word() string {
	c.wordMu.Lock()
	defer c.wordMu.Unlock()
	return c.display(c.word)
}

func (c *Controller) display(word string) string {
	if word == "" {
		return c.placeholder
	}
	return word
}

// setWord renders word and reports whether it differs from the previous one.
func (c *Controller) setWord(word string) bool {
	c.wordMu.Lock()
	changed := word != c.word
	c.word = word
	c.wordMu.Unlock()
	c.view.SetWord(c.display(word))
	return changed
}

func (c *Controller) setStatus(text string, kind StatusKind) {
	c.view.SetStatus(Status{Text: text, Kind: kind})
	c.logger.WithField("kind", kind).Debugf("status: %s", text)
}
