// Package controller hides the pointer after a period of inactivity and
// shows it again as soon as it moves.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/cursorhide/cursorhide/internal/config"
	"github.com/cursorhide/cursorhide/internal/models"
	"github.com/cursorhide/cursorhide/pkg/pointer"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned by Start and Run while the poll loop is active
var ErrAlreadyRunning = errors.New("controller is already running")

// stopWait bounds how long Stop waits for the poll loop before restoring anyway
const stopWait = time.Second

// Journal records transitions and failures. It may be nil.
type Journal interface {
	RecordTransition(event *models.VisibilityEvent) error
	RecordError(errorLog *models.ErrorLog) error
}

// Snapshot is a read-only view of the controller state
type Snapshot struct {
	Running       bool             `json:"running"`
	Hidden        bool             `json:"hidden"`
	Mode          string           `json:"mode"`
	DisplayServer string           `json:"display_server"`
	Timeout       string           `json:"timeout"`
	PollInterval  string           `json:"poll_interval"`
	Position      pointer.Position `json:"position"`
	LastMove      time.Time        `json:"last_move"`
	Hides         int              `json:"hides"`
	Shows         int              `json:"shows"`
	Failures      int              `json:"failures"`
}

type Controller struct {
	timeout  time.Duration
	interval time.Duration
	mode     string
	pointer  pointer.Service
	journal  Journal
	now      func() time.Time

	mu       sync.Mutex
	hidden   bool
	lastPos  pointer.Position
	havePos  bool
	lastMove time.Time
	blank    pointer.Glyph
	saved    pointer.Glyph // original glyph while hidden in glyph mode
	hides    int
	shows    int
	failures int

	running bool
	stopped bool // set by Stop; a poll still in flight must not hide again
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg *config.Config, svc pointer.Service, journal Journal) *Controller {
	return &Controller{
		timeout:  cfg.Controller.Timeout,
		interval: cfg.Controller.PollInterval,
		mode:     cfg.Controller.Mode,
		pointer:  svc,
		journal:  journal,
		now:      time.Now,
	}
}

// Start begins polling on a background goroutine and returns immediately
func (c *Controller) Start(ctx context.Context) error {
	ctx, done, err := c.claim(ctx)
	if err != nil {
		return err
	}

	go func() {
		if err := c.loop(ctx, done); err != nil && !errors.Is(err, context.Canceled) {
			logrus.Errorf("Poll loop stopped: %v", err)
		}
	}()
	return nil
}

// Run polls on the calling goroutine until ctx is cancelled or Stop is called
func (c *Controller) Run(ctx context.Context) error {
	ctx, done, err := c.claim(ctx)
	if err != nil {
		return err
	}
	return c.loop(ctx, done)
}

func (c *Controller) claim(parent context.Context) (context.Context, chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil, nil, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	c.running = true
	c.stopped = false
	c.cancel = cancel
	c.done = make(chan struct{})
	c.havePos = false
	c.lastMove = c.now()

	if pos, err := c.pointer.Position(); err == nil {
		c.lastPos = pos
		c.havePos = true
	}

	logrus.Infof("Starting controller: hide after %v, poll every %v, mode %s",
		c.timeout, c.interval, c.mode)
	return ctx, c.done, nil
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) error {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Debug("Controller stopped by context")
			return ctx.Err()

		case <-ticker.C:
			c.poll(ctx, c.now())
		}
	}
}

// poll runs one sampling step. The sample is dropped when the controller
// was stopped while Position was blocked.
func (c *Controller) poll(ctx context.Context, now time.Time) {
	pos, err := c.pointer.Position()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || ctx.Err() != nil {
		logrus.Debug("Dropping sample taken after stop")
		return
	}
	if err != nil {
		c.failLocked(now, "position", err)
		return
	}

	if !c.havePos {
		c.lastPos = pos
		c.havePos = true
		c.lastMove = now
		return
	}

	if pos != c.lastPos {
		if c.hidden {
			_ = c.showLocked(now, pos, models.ActionShow)
		}
		c.lastPos = pos
		c.lastMove = now
		logrus.Debugf("Pointer moved to %s", pos)
		return
	}

	if !c.hidden && now.Sub(c.lastMove) > c.timeout {
		_ = c.hideLocked(now)
	}
}

// Hide hides the pointer now. It is a no-op while already hidden.
func (c *Controller) Hide() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hidden {
		return nil
	}
	return c.hideLocked(c.now())
}

// Show makes the pointer visible now. It is a no-op while already visible.
func (c *Controller) Show() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.lastMove = now
	return c.showLocked(now, c.lastPos, models.ActionShow)
}

// Stop cancels the poll loop and guarantees the pointer is visible before
// returning. Safe to call more than once or without Start.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(stopWait):
			logrus.Warn("Poll loop did not exit in time, restoring pointer anyway")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if !c.hidden {
		return
	}
	if err := c.showLocked(c.now(), c.lastPos, models.ActionRestore); err != nil {
		logrus.Errorf("Failed to restore pointer on shutdown: %v", err)
		return
	}
	logrus.Info("Pointer restored")
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Running:       c.running,
		Hidden:        c.hidden,
		Mode:          c.mode,
		DisplayServer: c.pointer.DisplayServer(),
		Timeout:       c.timeout.String(),
		PollInterval:  c.interval.String(),
		Position:      c.lastPos,
		LastMove:      c.lastMove,
		Hides:         c.hides,
		Shows:         c.shows,
		Failures:      c.failures,
	}
}

// Hidden reports whether the controller currently has the pointer hidden
func (c *Controller) Hidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hidden
}

func (c *Controller) hideLocked(now time.Time) error {
	idle := now.Sub(c.lastMove)

	if c.mode == config.ModeGlyph {
		if c.blank == pointer.NoGlyph {
			blank, err := c.pointer.BlankGlyph()
			if err != nil {
				c.failLocked(now, "hide", err)
				return err
			}
			c.blank = blank
		}
		old, err := c.pointer.SwapGlyph(c.blank)
		if err != nil {
			c.failLocked(now, "hide", err)
			return err
		}
		c.saved = old
	} else if err := c.pointer.SetVisible(false); err != nil {
		c.failLocked(now, "hide", err)
		return err
	}

	c.hidden = true
	c.hides++
	logrus.Infof("Pointer hidden at %s after %v idle", c.lastPos, idle.Round(time.Millisecond))
	c.recordLocked(now, models.ActionHide, c.lastPos, idle)
	return nil
}

func (c *Controller) showLocked(now time.Time, pos pointer.Position, action string) error {
	if !c.hidden {
		logrus.Debug("Show requested while pointer is visible")
		return nil
	}

	if c.mode == config.ModeGlyph {
		if err := c.pointer.RestoreGlyph(c.saved); err != nil {
			c.failLocked(now, action, err)
			return err
		}
		c.saved = pointer.NoGlyph
	} else if err := c.pointer.SetVisible(true); err != nil {
		if !errors.Is(err, pointer.ErrNotHidden) {
			c.failLocked(now, action, err)
			return err
		}
		logrus.Warnf("Backend reports pointer was not hidden: %v", err)
	}

	c.hidden = false
	c.shows++
	logrus.Infof("Pointer shown at %s", pos)
	c.recordLocked(now, action, pos, 0)
	return nil
}

func (c *Controller) failLocked(now time.Time, op string, err error) {
	c.failures++
	logrus.Warnf("Failed to %s pointer: %v", op, err)

	if c.journal == nil {
		return
	}
	errorLog := &models.ErrorLog{
		Timestamp: now,
		Operation: op,
		ErrorMsg:  err.Error(),
	}
	if dbErr := c.journal.RecordError(errorLog); dbErr != nil {
		logrus.Debugf("Failed to store error in journal: %v (original error: %v)", dbErr, err)
	}
}

func (c *Controller) recordLocked(now time.Time, action string, pos pointer.Position, idle time.Duration) {
	if c.journal == nil {
		return
	}
	event := &models.VisibilityEvent{
		Timestamp:     now,
		Action:        action,
		Mode:          c.mode,
		X:             pos.X,
		Y:             pos.Y,
		IdleMillis:    idle.Milliseconds(),
		DisplayServer: c.pointer.DisplayServer(),
	}
	if err := c.journal.RecordTransition(event); err != nil {
		logrus.Debugf("Failed to store %s event in journal: %v", action, err)
	}
}
