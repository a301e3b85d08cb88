//go:build windows

package win32

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/cursorhide/cursorhide/pkg/pointer"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

const (
	ocrNormal      = 32512 // OCR_NORMAL
	idcArrow       = 32512 // IDC_ARROW
	spiSetCursors  = 0x0057
	spifSendChange = 0x02
)

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	procGetCursorPos      = user32.NewProc("GetCursorPos")
	procShowCursor        = user32.NewProc("ShowCursor")
	procCreateCursor      = user32.NewProc("CreateCursor")
	procDestroyCursor     = user32.NewProc("DestroyCursor")
	procCopyIcon          = user32.NewProc("CopyIcon")
	procLoadCursorW       = user32.NewProc("LoadCursorW")
	procSetSystemCursor   = user32.NewProc("SetSystemCursor")
	procSystemParamsInfoW = user32.NewProc("SystemParametersInfoW")
)

// Overridden in tests
var (
	showCursor = func(show bool) int32 {
		arg := uintptr(0)
		if show {
			arg = 1
		}
		r1, _, _ := procShowCursor.Call(arg)
		return int32(r1)
	}
	setSystemCursor = func(cursor uintptr) error {
		if r1, _, err := procSetSystemCursor.Call(cursor, ocrNormal); r1 == 0 {
			return err
		}
		return nil
	}
	reloadSystemCursors = func() error {
		if r1, _, err := procSystemParamsInfoW.Call(spiSetCursors, 0, 0, spifSendChange); r1 == 0 {
			return err
		}
		return nil
	}
	destroyCursor = func(cursor uintptr) {
		procDestroyCursor.Call(cursor)
	}
)

type point struct {
	X, Y int32
}

// Service implements pointer.Service with user32.
type Service struct {
	mu     sync.Mutex
	hidden bool
	blank  windows.Handle

	// ShowCursor keeps a per-thread display counter, so every call goes
	// through one goroutine locked to its OS thread.
	calls chan func()
	done  chan struct{}
}

// NewService loads user32 and starts the display-counter thread
func NewService() (*Service, error) {
	if err := user32.Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load user32.dll")
	}
	s := &Service{
		calls: make(chan func()),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

func (s *Service) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		select {
		case fn := <-s.calls:
			fn()
		case <-s.done:
			return
		}
	}
}

func (s *Service) onThread(fn func()) {
	finished := make(chan struct{})
	s.calls <- func() {
		fn()
		close(finished)
	}
	<-finished
}

// DisplayServer returns "windows"
func (s *Service) DisplayServer() string {
	return "windows"
}

// Position returns the pointer location in screen coordinates
func (s *Service) Position() (pointer.Position, error) {
	var pt point
	r1, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if r1 == 0 {
		return pointer.Position{}, errors.Wrap(err, "GetCursorPos failed")
	}
	return pointer.Position{X: int(pt.X), Y: int(pt.Y)}, nil
}

// SetVisible decrements or increments the ShowCursor display counter once
func (s *Service) SetVisible(visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if visible && !s.hidden {
		return pointer.ErrNotHidden
	}
	if !visible && s.hidden {
		return nil
	}

	var count int32
	s.onThread(func() { count = showCursor(visible) })

	if (visible && count < 0) || (!visible && count >= 0) {
		// Undo our step so a retry starts from the same counter
		s.onThread(func() { showCursor(!visible) })
		if visible {
			return errors.Errorf("ShowCursor display counter still negative (%d)", count)
		}
		return errors.Errorf("ShowCursor display counter still non-negative (%d)", count)
	}
	s.hidden = !visible
	return nil
}

// BlankGlyph creates (once) a 1x1 cursor with a transparent AND mask
func (s *Service) BlankGlyph() (pointer.Glyph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blank != 0 {
		return pointer.Glyph(s.blank), nil
	}

	// 1x1 monochrome planes are padded to a WORD per row.
	andPlane := []byte{0xff, 0xff}
	xorPlane := []byte{0x00, 0x00}
	r1, _, err := procCreateCursor.Call(0, 0, 0, 1, 1,
		uintptr(unsafe.Pointer(&andPlane[0])),
		uintptr(unsafe.Pointer(&xorPlane[0])))
	if r1 == 0 {
		return pointer.NoGlyph, errors.Wrap(err, "CreateCursor failed")
	}
	s.blank = windows.Handle(r1)
	return pointer.Glyph(s.blank), nil
}

// SwapGlyph copies the current arrow, then installs a copy of g as OCR_NORMAL.
// SetSystemCursor takes ownership of the handle it is given.
func (s *Service) SwapGlyph(g pointer.Glyph) (pointer.Glyph, error) {
	if g == pointer.NoGlyph {
		return pointer.NoGlyph, errors.New("cannot install empty glyph")
	}

	arrow, _, err := procLoadCursorW.Call(0, idcArrow)
	if arrow == 0 {
		return pointer.NoGlyph, errors.Wrap(err, "LoadCursor(IDC_ARROW) failed")
	}
	saved, _, err := procCopyIcon.Call(arrow)
	if saved == 0 {
		return pointer.NoGlyph, errors.Wrap(err, "CopyIcon failed for arrow")
	}

	replacement, _, err := procCopyIcon.Call(uintptr(g))
	if replacement == 0 {
		destroyCursor(saved)
		return pointer.NoGlyph, errors.Wrap(err, "CopyIcon failed for blank glyph")
	}
	if err := setSystemCursor(replacement); err != nil {
		destroyCursor(replacement)
		destroyCursor(saved)
		return pointer.NoGlyph, errors.Wrap(err, "SetSystemCursor failed")
	}
	return pointer.Glyph(saved), nil
}

// RestoreGlyph reinstalls old as OCR_NORMAL and reloads the user's cursor
// scheme. Either step alone brings the arrow back; old stays valid for a
// retry only when both fail.
func (s *Service) RestoreGlyph(old pointer.Glyph) error {
	if old == pointer.NoGlyph {
		return pointer.ErrNotHidden
	}

	setErr := setSystemCursor(uintptr(old))
	reloadErr := reloadSystemCursors()

	switch {
	case setErr != nil && reloadErr != nil:
		return errors.Wrapf(setErr, "SetSystemCursor restore failed (SPI_SETCURSORS: %v)", reloadErr)
	case setErr != nil:
		// SetSystemCursor did not take ownership
		destroyCursor(uintptr(old))
		logrus.Debugf("SetSystemCursor restore failed, scheme reloaded instead: %v", setErr)
	case reloadErr != nil:
		logrus.Debugf("SystemParametersInfo(SPI_SETCURSORS) failed after restore: %v", reloadErr)
	}
	return nil
}

// Close shows the pointer if this service hid it and stops the counter thread
func (s *Service) Close() error {
	s.mu.Lock()
	if s.hidden {
		s.onThread(func() { showCursor(true) })
		s.hidden = false
	}
	if s.blank != 0 {
		destroyCursor(uintptr(s.blank))
		s.blank = 0
	}
	s.mu.Unlock()

	close(s.done)
	return nil
}

var _ pointer.Service = (*Service)(nil)
