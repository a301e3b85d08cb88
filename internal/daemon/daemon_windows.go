//go:build windows

package daemon

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const stillActive = 259

func processAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}

// There is no SIGTERM on Windows. Toggle mode hides are per-thread and
// vanish with the process, glyph mode hides are not undone.
func terminate(process *os.Process) error {
	if err := process.Kill(); err != nil {
		return errors.Wrap(err, "failed to terminate process")
	}
	return nil
}

// Daemonize re-executes the current binary detached from the console with
// ChildEnv set and returns the child PID.
func Daemonize() (int, error) {
	return spawn(&syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
		HideWindow:    true,
	})
}
