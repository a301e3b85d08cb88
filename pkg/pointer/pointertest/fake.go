// Package pointertest provides an in-memory pointer.Service for tests.
package pointertest

import (
	"sync"

	"github.com/cursorhide/cursorhide/pkg/pointer"
	"github.com/pkg/errors"
)

const (
	// BlankGlyph is the handle the fake hands out for the invisible glyph
	BlankGlyph pointer.Glyph = 1
	// ArrowGlyph is the handle of the glyph active when the fake is created
	ArrowGlyph pointer.Glyph = 2
)

// Fake is a scriptable pointer service. All methods are safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	pos     pointer.Position
	visible bool
	active  pointer.Glyph
	next    pointer.Glyph

	// PositionErr, HideErr, ShowErr and SwapErr make the matching call fail
	PositionErr error
	HideErr     error
	ShowErr     error
	SwapErr     error

	HideCalls    int
	ShowCalls    int
	SwapCalls    int
	RestoreCalls int
	Released     []pointer.Glyph
	closed       bool
}

// New returns a fake with a visible pointer at pos
func New(pos pointer.Position) *Fake {
	return &Fake{
		pos:     pos,
		visible: true,
		active:  ArrowGlyph,
		next:    ArrowGlyph + 1,
	}
}

// MoveTo sets the position returned by the next Position call
func (f *Fake) MoveTo(x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = pointer.Position{X: x, Y: y}
}

// SetErrors replaces the scripted failures
func (f *Fake) SetErrors(position, hide, show, swap error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PositionErr, f.HideErr, f.ShowErr, f.SwapErr = position, hide, show, swap
}

// Visible reports OS-level visibility
func (f *Fake) Visible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible
}

// ActiveGlyph reports the installed glyph
func (f *Fake) ActiveGlyph() pointer.Glyph {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Shown reports whether the pointer would be rendered
func (f *Fake) Shown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible && f.active != BlankGlyph
}

// Calls returns the hide and show call counts
func (f *Fake) Calls() (hides, shows int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HideCalls, f.ShowCalls
}

// Closed reports whether Close was called
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) Position() (pointer.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PositionErr != nil {
		return pointer.Position{}, f.PositionErr
	}
	return f.pos, nil
}

func (f *Fake) SetVisible(visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if visible {
		f.ShowCalls++
		if f.ShowErr != nil {
			return f.ShowErr
		}
		if f.visible {
			return pointer.ErrNotHidden
		}
		f.visible = true
		return nil
	}
	f.HideCalls++
	if f.HideErr != nil {
		return f.HideErr
	}
	f.visible = false
	return nil
}

func (f *Fake) BlankGlyph() (pointer.Glyph, error) {
	return BlankGlyph, nil
}

func (f *Fake) SwapGlyph(g pointer.Glyph) (pointer.Glyph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SwapCalls++
	if f.SwapErr != nil {
		return pointer.NoGlyph, f.SwapErr
	}
	if g == pointer.NoGlyph {
		return pointer.NoGlyph, errors.New("swap to empty glyph")
	}
	// The caller receives a copy of the previous glyph, as the real backends do.
	old := f.next
	f.next++
	f.active = g
	return old, nil
}

func (f *Fake) RestoreGlyph(old pointer.Glyph) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RestoreCalls++
	if f.ShowErr != nil {
		return f.ShowErr
	}
	if old == pointer.NoGlyph {
		return pointer.ErrNotHidden
	}
	f.active = ArrowGlyph
	f.Released = append(f.Released, old)
	return nil
}

func (f *Fake) DisplayServer() string {
	return "fake"
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ pointer.Service = (*Fake)(nil)
