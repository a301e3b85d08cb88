package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cursorhide/cursorhide/internal/config"
	"github.com/cursorhide/cursorhide/internal/models"
	"github.com/cursorhide/cursorhide/pkg/pointer"
	"github.com/cursorhide/cursorhide/pkg/pointer/pointertest"

	"github.com/pkg/errors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

type memJournal struct {
	mu     sync.Mutex
	events []*models.VisibilityEvent
	errs   []*models.ErrorLog
}

func (j *memJournal) RecordTransition(event *models.VisibilityEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
	return nil
}

func (j *memJournal) RecordError(errorLog *models.ErrorLog) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errs = append(j.errs, errorLog)
	return nil
}

func (j *memJournal) actions() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.events {
		out = append(out, e.Action)
	}
	return out
}

const tick = 100 * time.Millisecond

// newStepped returns a claimed controller driven by poll() and a fake clock
func newStepped(t *testing.T, mode string) (*Controller, *pointertest.Fake, *fakeClock, *memJournal) {
	t.Helper()

	cfg := config.Default()
	cfg.Controller.Mode = mode

	fake := pointertest.New(pointer.Position{X: 100, Y: 100})
	journal := &memJournal{}
	clock := &fakeClock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}

	// The real ticker never fires; tests drive poll() directly.
	cfg.Controller.PollInterval = time.Hour

	c := New(cfg, fake, journal)
	c.now = clock.Now
	ctx, done, err := c.claim(context.Background())
	if err != nil {
		t.Fatalf("claim() error: %v", err)
	}
	go c.loop(ctx, done)
	t.Cleanup(c.Stop)
	return c, fake, clock, journal
}

// stepUntilHidden polls once per tick and returns the elapsed time at the first hidden sample
func stepUntilHidden(c *Controller, clock *fakeClock, limit time.Duration) (time.Duration, bool) {
	for elapsed := tick; elapsed <= limit; elapsed += tick {
		c.poll(context.Background(), clock.Advance(tick))
		if c.Hidden() {
			return elapsed, true
		}
	}
	return 0, false
}

func TestHidesAfterTimeout(t *testing.T) {
	for _, mode := range []string{config.ModeToggle, config.ModeGlyph} {
		t.Run(mode, func(t *testing.T) {
			c, fake, clock, _ := newStepped(t, mode)

			elapsed, hidden := stepUntilHidden(c, clock, 5*time.Second)
			if !hidden {
				t.Fatal("pointer not hidden after 5s of stillness")
			}
			if elapsed <= 3*time.Second || elapsed > 3*time.Second+tick {
				t.Errorf("hidden at %v, want within one poll after 3s", elapsed)
			}
			if fake.Shown() {
				t.Error("fake pointer still rendered after hide")
			}
		})
	}
}

func TestNotHiddenAtExactTimeout(t *testing.T) {
	c, _, clock, _ := newStepped(t, config.ModeToggle)

	for i := 0; i < 30; i++ {
		c.poll(context.Background(), clock.Advance(tick))
	}
	if c.Hidden() {
		t.Error("pointer hidden at exactly the timeout, want strictly greater")
	}

	c.poll(context.Background(), clock.Advance(tick))
	if !c.Hidden() {
		t.Error("pointer not hidden one poll past the timeout")
	}
}

func TestShowsOnMove(t *testing.T) {
	for _, mode := range []string{config.ModeToggle, config.ModeGlyph} {
		t.Run(mode, func(t *testing.T) {
			c, fake, clock, _ := newStepped(t, mode)

			if _, hidden := stepUntilHidden(c, clock, 5*time.Second); !hidden {
				t.Fatal("pointer not hidden")
			}

			fake.MoveTo(101, 100)
			c.poll(context.Background(), clock.Advance(tick))

			if c.Hidden() {
				t.Error("controller still hidden after a one-pixel move")
			}
			if !fake.Shown() {
				t.Error("fake pointer not rendered after move")
			}

			snap := c.Snapshot()
			if snap.Position != (pointer.Position{X: 101, Y: 100}) {
				t.Errorf("Position = %s, want (101, 100)", snap.Position)
			}
			if snap.Hides != 1 || snap.Shows != 1 {
				t.Errorf("Hides/Shows = %d/%d, want 1/1", snap.Hides, snap.Shows)
			}
		})
	}
}

func TestMovementResetsTimer(t *testing.T) {
	c, fake, clock, _ := newStepped(t, config.ModeToggle)

	for i := 0; i < 25; i++ {
		c.poll(context.Background(), clock.Advance(tick))
	}
	fake.MoveTo(100, 101)
	c.poll(context.Background(), clock.Advance(tick))

	for i := 0; i < 25; i++ {
		c.poll(context.Background(), clock.Advance(tick))
	}
	if c.Hidden() {
		t.Error("pointer hidden 2.5s after the last move")
	}

	elapsed, hidden := stepUntilHidden(c, clock, 2*time.Second)
	if !hidden {
		t.Fatal("pointer never hidden after the move")
	}
	if total := 25*tick + elapsed; total <= 3*time.Second || total > 3*time.Second+tick {
		t.Errorf("hidden %v after move, want just over 3s", total)
	}
}

func TestHideIdempotent(t *testing.T) {
	c, fake, _, journal := newStepped(t, config.ModeToggle)

	if err := c.Hide(); err != nil {
		t.Fatalf("Hide() error: %v", err)
	}
	if err := c.Hide(); err != nil {
		t.Fatalf("second Hide() error: %v", err)
	}

	hides, _ := fake.Calls()
	if hides != 1 {
		t.Errorf("backend hide calls = %d, want 1", hides)
	}
	if !c.Hidden() || fake.Visible() {
		t.Error("pointer not hidden after Hide()")
	}
	if got := journal.actions(); len(got) != 1 || got[0] != models.ActionHide {
		t.Errorf("journal actions = %v, want [hide]", got)
	}
}

func TestShowWhenVisible(t *testing.T) {
	c, fake, _, journal := newStepped(t, config.ModeToggle)

	if err := c.Show(); err != nil {
		t.Errorf("Show() while visible error: %v", err)
	}
	_, shows := fake.Calls()
	if shows != 0 {
		t.Errorf("backend show calls = %d, want 0", shows)
	}
	if !fake.Visible() || c.Hidden() {
		t.Error("pointer not visible")
	}
	if len(journal.actions()) != 0 {
		t.Errorf("journal recorded %v for a no-op show", journal.actions())
	}
}

func TestShowToleratesBackendNotHidden(t *testing.T) {
	c, fake, _, _ := newStepped(t, config.ModeToggle)

	// Controller believes it is hidden but the backend never hid.
	c.mu.Lock()
	c.hidden = true
	c.mu.Unlock()

	if err := c.Show(); err != nil {
		t.Errorf("Show() error: %v", err)
	}
	if c.Hidden() || !fake.Visible() {
		t.Error("pointer not visible after tolerated show")
	}
}

func TestHideFailureRetried(t *testing.T) {
	c, fake, clock, journal := newStepped(t, config.ModeToggle)

	fake.SetErrors(nil, errors.New("BadWindow"), nil, nil)
	for i := 0; i < 35; i++ {
		c.poll(context.Background(), clock.Advance(tick))
	}
	if c.Hidden() {
		t.Fatal("controller hidden although every hide failed")
	}
	failures := c.Snapshot().Failures
	if failures != 5 {
		t.Errorf("Failures = %d, want 5 (one per qualifying tick)", failures)
	}
	if len(journal.errs) != failures || journal.errs[0].Operation != "hide" {
		t.Errorf("journal errors = %d (%v), want %d hide errors", len(journal.errs), journal.errs, failures)
	}

	fake.SetErrors(nil, nil, nil, nil)
	c.poll(context.Background(), clock.Advance(tick))
	if !c.Hidden() {
		t.Error("hide not retried on the next qualifying tick")
	}
}

func TestShowFailureRetriedOnNextMove(t *testing.T) {
	c, fake, clock, _ := newStepped(t, config.ModeToggle)

	if _, hidden := stepUntilHidden(c, clock, 5*time.Second); !hidden {
		t.Fatal("pointer not hidden")
	}

	fake.SetErrors(nil, nil, errors.New("BadMatch"), nil)
	fake.MoveTo(200, 200)
	c.poll(context.Background(), clock.Advance(tick))
	if !c.Hidden() {
		t.Fatal("controller visible although show failed")
	}

	fake.SetErrors(nil, nil, nil, nil)
	c.poll(context.Background(), clock.Advance(tick))
	if !c.Hidden() {
		t.Error("show retried without a new move")
	}

	fake.MoveTo(201, 200)
	c.poll(context.Background(), clock.Advance(tick))
	if c.Hidden() || !fake.Visible() {
		t.Error("show not retried on the next move")
	}
}

func TestPositionFailureSkipsTick(t *testing.T) {
	c, fake, clock, journal := newStepped(t, config.ModeToggle)

	fake.SetErrors(errors.New("connection lost"), nil, nil, nil)
	for i := 0; i < 40; i++ {
		c.poll(context.Background(), clock.Advance(tick))
	}
	if c.Hidden() {
		t.Error("controller hid without a successful sample")
	}
	if len(journal.errs) != 40 || journal.errs[0].Operation != "position" {
		t.Errorf("journal errors = %d, want 40 position errors", len(journal.errs))
	}

	// Stillness still counts from the last observed move
	fake.SetErrors(nil, nil, nil, nil)
	c.poll(context.Background(), clock.Advance(tick))
	if !c.Hidden() {
		t.Error("pointer not hidden once sampling recovered")
	}
}

func TestGlyphModeRestoresCapturedGlyph(t *testing.T) {
	c, fake, _, _ := newStepped(t, config.ModeGlyph)

	if err := c.Hide(); err != nil {
		t.Fatalf("Hide() error: %v", err)
	}
	if fake.ActiveGlyph() != pointertest.BlankGlyph {
		t.Errorf("active glyph = %v, want blank", fake.ActiveGlyph())
	}

	c.mu.Lock()
	saved := c.saved
	c.mu.Unlock()
	if saved == pointer.NoGlyph {
		t.Fatal("original glyph not captured")
	}

	if err := c.Show(); err != nil {
		t.Fatalf("Show() error: %v", err)
	}
	if len(fake.Released) != 1 || fake.Released[0] != saved {
		t.Errorf("released glyphs = %v, want [%v]", fake.Released, saved)
	}
	if fake.ActiveGlyph() != pointertest.ArrowGlyph {
		t.Errorf("active glyph = %v, want arrow", fake.ActiveGlyph())
	}

	// Second cycle captures a fresh handle
	if err := c.Hide(); err != nil {
		t.Fatalf("Hide() error: %v", err)
	}
	c.mu.Lock()
	second := c.saved
	c.mu.Unlock()
	if second == saved {
		t.Errorf("second hide reused released handle %v", saved)
	}
	hides, shows := fake.Calls()
	if hides != 0 || shows != 0 {
		t.Errorf("glyph mode used SetVisible (%d hides, %d shows)", hides, shows)
	}
}

func TestGlyphModeSwapFailure(t *testing.T) {
	c, fake, _, _ := newStepped(t, config.ModeGlyph)

	fake.SetErrors(nil, nil, nil, errors.New("SetSystemCursor failed"))
	if err := c.Hide(); err == nil {
		t.Error("Hide() returned nil error on swap failure")
	}
	if c.Hidden() {
		t.Error("controller hidden after swap failure")
	}
	if fake.ActiveGlyph() != pointertest.ArrowGlyph {
		t.Error("glyph changed after failed swap")
	}
}

func TestStopRestoresPointer(t *testing.T) {
	for _, mode := range []string{config.ModeToggle, config.ModeGlyph} {
		t.Run(mode, func(t *testing.T) {
			c, fake, _, journal := newStepped(t, mode)

			if err := c.Hide(); err != nil {
				t.Fatalf("Hide() error: %v", err)
			}
			c.Stop()

			if c.Hidden() {
				t.Error("controller hidden after Stop()")
			}
			if !fake.Shown() {
				t.Error("pointer not rendered after Stop()")
			}
			got := journal.actions()
			if len(got) != 2 || got[1] != models.ActionRestore {
				t.Errorf("journal actions = %v, want [hide restore]", got)
			}

			// Second Stop is a no-op
			c.Stop()
		})
	}
}

func TestStopWithoutStart(t *testing.T) {
	cfg := config.Default()
	c := New(cfg, pointertest.New(pointer.Position{}), nil)
	c.Stop()
	if c.Hidden() {
		t.Error("Hidden() = true on a fresh controller")
	}
}

func TestStartTwice(t *testing.T) {
	cfg := config.Default()
	c := New(cfg, pointertest.New(pointer.Position{}), nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer c.Stop()

	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}
	if err := c.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Run() while started = %v, want ErrAlreadyRunning", err)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	cfg := config.Default()
	c := New(cfg, pointertest.New(pointer.Position{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if c.Snapshot().Running {
		t.Error("Snapshot().Running = true after Run returned")
	}
}

func waitFor(t *testing.T, limit time.Duration, cond func() bool) time.Duration {
	t.Helper()
	start := time.Now()
	for time.Since(start) < limit {
		if cond() {
			return time.Since(start)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", limit)
	return 0
}

func TestEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time test")
	}

	cfg := config.Default()
	cfg.Controller.Timeout = 300 * time.Millisecond
	cfg.Controller.PollInterval = 10 * time.Millisecond

	fake := pointertest.New(pointer.Position{X: 100, Y: 100})
	c := New(cfg, fake, nil)

	started := time.Now()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer c.Stop()

	waitFor(t, 2*time.Second, c.Hidden)
	if hiddenAfter := time.Since(started); hiddenAfter < 300*time.Millisecond {
		t.Errorf("hidden after %v, before the 300ms timeout", hiddenAfter)
	}

	fake.MoveTo(101, 100)
	waitFor(t, 200*time.Millisecond, func() bool { return !c.Hidden() })
	if !fake.Visible() {
		t.Error("fake pointer not visible after move")
	}

	// Hidden again, then an interrupt-style shutdown restores it
	waitFor(t, 2*time.Second, c.Hidden)
	c.Stop()
	if c.Hidden() || !fake.Visible() {
		t.Error("pointer not visible after Stop()")
	}
}

// stallingPointer blocks Position once armed until released
type stallingPointer struct {
	*pointertest.Fake

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *stallingPointer) arm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = true
}

func (p *stallingPointer) Position() (pointer.Position, error) {
	p.mu.Lock()
	armed := p.armed
	p.mu.Unlock()

	if armed {
		p.once.Do(func() { close(p.entered) })
		<-p.release
	}
	return p.Fake.Position()
}

func TestStalledPollCannotHideAfterStop(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time test")
	}

	cfg := config.Default()
	cfg.Controller.Timeout = 30 * time.Millisecond
	cfg.Controller.PollInterval = 5 * time.Millisecond

	fake := pointertest.New(pointer.Position{X: 1, Y: 1})
	stalling := &stallingPointer{
		Fake:    fake,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(cfg, stalling, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	waitFor(t, 2*time.Second, c.Hidden)
	stalling.arm()
	select {
	case <-stalling.entered:
	case <-time.After(time.Second):
		t.Fatal("poll loop never sampled after arming")
	}

	// The loop is stuck inside Position, so Stop gives up waiting and restores
	c.Stop()
	if c.Hidden() || !fake.Shown() {
		t.Fatal("pointer not visible after Stop()")
	}

	close(stalling.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll loop did not exit after release")
	}

	if c.Hidden() || !fake.Shown() {
		t.Error("stalled poll hid the pointer after Stop()")
	}
	if hides, _ := fake.Calls(); hides != 1 {
		t.Errorf("backend hide calls = %d, want 1", hides)
	}
}

func TestPollAfterStopIgnored(t *testing.T) {
	c, fake, clock, journal := newStepped(t, config.ModeToggle)
	c.Stop()

	for i := 0; i < 40; i++ {
		c.poll(context.Background(), clock.Advance(tick))
	}
	if c.Hidden() || !fake.Visible() {
		t.Error("poll hid the pointer after Stop()")
	}
	if len(journal.actions()) != 0 {
		t.Errorf("journal recorded %v after Stop()", journal.actions())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
	for i := 0; i < 40; i++ {
		c.poll(ctx, clock.Advance(tick))
	}
	if c.Hidden() {
		t.Error("poll with a cancelled context hid the pointer")
	}
}
