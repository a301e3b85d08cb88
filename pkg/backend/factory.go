package backend

import (
	"os"
	"runtime"
)

// DetectDisplayServer guesses the display server from the session environment
func DetectDisplayServer() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}

	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
