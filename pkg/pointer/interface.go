package pointer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotHidden is returned by SetVisible(true) when the backend never hid the pointer
	ErrNotHidden = errors.New("pointer was not hidden")

	// ErrUnsupported is returned when the display server cannot hide the pointer
	ErrUnsupported = errors.New("pointer control not supported on this display server")
)

// Position is a pointer location in screen coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Glyph is an opaque handle to a pointer image owned by a backend
type Glyph uintptr

// NoGlyph is the zero handle
const NoGlyph Glyph = 0

// Service is the interface that all pointer backends must satisfy
type Service interface {
	// Position returns the current pointer location
	Position() (Position, error)

	// SetVisible toggles OS-level pointer visibility
	SetVisible(visible bool) error

	// BlankGlyph returns an invisible glyph owned by the backend
	BlankGlyph() (Glyph, error)

	// SwapGlyph installs g as the active pointer glyph and returns the
	// glyph that was active before. The caller owns the returned handle.
	SwapGlyph(g Glyph) (Glyph, error)

	// RestoreGlyph reinstates a glyph returned by SwapGlyph and releases it
	RestoreGlyph(old Glyph) error

	// DisplayServer returns the backend name ("x11", "windows", ...)
	DisplayServer() string

	// Close cleans up any resources used by the backend
	Close() error
}
