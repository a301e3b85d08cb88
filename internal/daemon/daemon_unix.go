//go:build !windows

package daemon

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func terminate(process *os.Process) error {
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return errors.Wrap(err, "failed to send SIGTERM")
	}
	return nil
}

// Daemonize re-executes the current binary in a new session with ChildEnv
// set and returns the child PID.
func Daemonize() (int, error) {
	return spawn(&syscall.SysProcAttr{Setsid: true})
}
