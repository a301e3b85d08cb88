package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ChildEnv marks the re-executed background process
const ChildEnv = "CURSORHIDE_DAEMON_CHILD"

// ErrAlreadyRunning is returned by Acquire when another instance holds the lock
var ErrAlreadyRunning = errors.New("cursorhide is already running")

// Daemon guards the single controller instance of a session with a lock
// file next to the PID file. The pointer glyph is a global resource, so
// two controllers would fight over it.
type Daemon struct {
	pidFile string
	lock    *flock.Flock
}

func New(pidFile string) *Daemon {
	return &Daemon{
		pidFile: pidFile,
		lock:    flock.New(pidFile + ".lock"),
	}
}

// Acquire takes the instance lock and writes the PID file
func (d *Daemon) Acquire() error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, "acquire instance lock")
	}
	if !locked {
		if pid, _ := d.ReadPID(); pid != 0 {
			return errors.Wrapf(ErrAlreadyRunning, "PID %d", pid)
		}
		return ErrAlreadyRunning
	}

	if err := d.WritePID(); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	return nil
}

// Release removes the PID file and drops the lock
func (d *Daemon) Release() error {
	err := d.RemovePID()
	if unlockErr := d.lock.Unlock(); unlockErr != nil && err == nil {
		err = errors.Wrap(unlockErr, "release instance lock")
	}
	return err
}

func (d *Daemon) WritePID() error {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, fmt.Appendf(nil, "%d", pid), 0o644); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the PID file names a live process.
// A stale PID file is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	if !processAlive(pid) {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Stop asks the running instance to exit. It restores the pointer through
// its own shutdown path before removing the PID file.
func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking daemon status")
	}

	if !running {
		return errors.New("daemon is not running or PID file is stale")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrap(err, "failed to find process")
	}

	return terminate(process)
}

// IsChild reports whether this process was started by Daemonize
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

func spawn(attr *syscall.SysProcAttr) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "locate executable")
	}

	env := append(os.Environ(), ChildEnv+"=1")
	process, err := os.StartProcess(exe, os.Args, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys:   attr,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to start daemon process")
	}

	pid := process.Pid
	_ = process.Release()
	return pid, nil
}
