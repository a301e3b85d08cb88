//go:build !windows

package backend

import (
	"os"

	"github.com/cursorhide/cursorhide/pkg/integrations/wayland"
	"github.com/cursorhide/cursorhide/pkg/integrations/x11"
	"github.com/cursorhide/cursorhide/pkg/pointer"

	"github.com/pkg/errors"
)

// New returns the pointer service for the current session.
// Wayland sessions are only served through XWayland when DISPLAY is set;
// the compositor owns the pointer otherwise.
func New() (pointer.Service, error) {
	switch ds := DetectDisplayServer(); ds {
	case "x11":
		return x11.NewService("")
	case "wayland":
		if os.Getenv("DISPLAY") != "" {
			return x11.NewService("")
		}
		return nil, wayland.Unsupported(wayland.DetectCompositor())
	default:
		return nil, errors.Wrap(pointer.ErrUnsupported, "no display detected")
	}
}
