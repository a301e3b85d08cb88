// Package wayland identifies the Wayland compositor. Wayland clients cannot
// hide the pointer outside their own surfaces, so the compositor has to.
package wayland

import (
	"os"
	"os/exec"
	"strings"

	"github.com/cursorhide/cursorhide/pkg/pointer"

	"github.com/pkg/errors"
)

// Compositor names
const (
	Sway     = "sway"
	Hyprland = "hyprland"
	Wayfire  = "wayfire"
	River    = "river"
	Gnome    = "gnome"
	KDE      = "kde"
	Unknown  = "unknown"
)

// hints tell the user how to get inactivity hiding from the compositor itself
var hints = map[string]string{
	Sway:     `add "seat * hide_cursor 3000" to the sway config`,
	Hyprland: `set "cursor { inactive_timeout = 3 }" in hyprland.conf`,
	Wayfire:  `enable the "hide-cursor" plugin in wayfire.ini`,
}

// DetectCompositor returns the compositor of the current session
func DetectCompositor() string {
	return detect(os.Getenv, processRunning)
}

func detect(getenv func(string) string, running func(string) bool) string {
	switch {
	case getenv("SWAYSOCK") != "":
		return Sway
	case getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return Hyprland
	}

	desktop := strings.ToLower(getenv("XDG_CURRENT_DESKTOP"))
	switch {
	case strings.Contains(desktop, "gnome"):
		return Gnome
	case strings.Contains(desktop, "kde"):
		return KDE
	}

	processes := []struct{ process, name string }{
		{"sway", Sway},
		{"Hyprland", Hyprland},
		{"wayfire", Wayfire},
		{"river", River},
		{"gnome-shell", Gnome},
		{"kwin_wayland", KDE},
	}
	for _, p := range processes {
		if running(p.process) {
			return p.name
		}
	}

	return Unknown
}

func processRunning(name string) bool {
	return exec.Command("pgrep", "-x", name).Run() == nil
}

// Unsupported wraps pointer.ErrUnsupported with a compositor-specific hint
func Unsupported(compositor string) error {
	if hint, ok := hints[compositor]; ok {
		return errors.Wrapf(pointer.ErrUnsupported, "wayland (%s): %s, or set DISPLAY to use XWayland", compositor, hint)
	}
	return errors.Wrapf(pointer.ErrUnsupported, "wayland (%s): set DISPLAY to use XWayland", compositor)
}
