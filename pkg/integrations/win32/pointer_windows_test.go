//go:build windows

package win32

import (
	"testing"

	"github.com/cursorhide/cursorhide/pkg/pointer"

	"github.com/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService()
	if err != nil {
		t.Skipf("user32 unavailable: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDisplayServer(t *testing.T) {
	if got := newTestService(t).DisplayServer(); got != "windows" {
		t.Errorf("DisplayServer() = %s, want windows", got)
	}
}

func TestPosition(t *testing.T) {
	s := newTestService(t)
	pos, err := s.Position()
	if err != nil {
		t.Skipf("no interactive desktop: %v", err)
	}
	t.Logf("Pointer at %s", pos)
}

func TestSetVisible(t *testing.T) {
	s := newTestService(t)

	if err := s.SetVisible(true); !errors.Is(err, pointer.ErrNotHidden) {
		t.Errorf("SetVisible(true) before hide = %v, want ErrNotHidden", err)
	}
	if err := s.SetVisible(false); err != nil {
		t.Fatalf("SetVisible(false) error: %v", err)
	}
	if err := s.SetVisible(false); err != nil {
		t.Errorf("second SetVisible(false) error: %v", err)
	}
	if err := s.SetVisible(true); err != nil {
		t.Errorf("SetVisible(true) error: %v", err)
	}
}

func TestBlankGlyphCached(t *testing.T) {
	s := newTestService(t)

	first, err := s.BlankGlyph()
	if err != nil {
		t.Fatalf("BlankGlyph() error: %v", err)
	}
	second, err := s.BlankGlyph()
	if err != nil {
		t.Fatalf("BlankGlyph() error: %v", err)
	}
	if first != second || first == pointer.NoGlyph {
		t.Errorf("BlankGlyph() = %v then %v, want the same non-zero handle", first, second)
	}
}

func TestRestoreNoGlyph(t *testing.T) {
	if err := newTestService(t).RestoreGlyph(pointer.NoGlyph); !errors.Is(err, pointer.ErrNotHidden) {
		t.Errorf("RestoreGlyph(NoGlyph) = %v, want ErrNotHidden", err)
	}
}

// stubCursorCalls replaces the user32 cursor calls for one test
func stubCursorCalls(t *testing.T, setErr, reloadErr error) *[]uintptr {
	t.Helper()
	origSet, origReload, origDestroy := setSystemCursor, reloadSystemCursors, destroyCursor
	t.Cleanup(func() {
		setSystemCursor, reloadSystemCursors, destroyCursor = origSet, origReload, origDestroy
	})

	destroyed := &[]uintptr{}
	setSystemCursor = func(uintptr) error { return setErr }
	reloadSystemCursors = func() error { return reloadErr }
	destroyCursor = func(h uintptr) { *destroyed = append(*destroyed, h) }
	return destroyed
}

func TestRestoreGlyphFailures(t *testing.T) {
	const saved = pointer.Glyph(0x1234)

	tests := []struct {
		name          string
		setErr        error
		reloadErr     error
		wantErr       bool
		wantDestroyed int
	}{
		{"both succeed", nil, nil, false, 0},
		{"set fails, reload restores scheme", errors.New("access denied"), nil, false, 1},
		{"reload fails after set", nil, errors.New("access denied"), false, 0},
		{"both fail", errors.New("access denied"), errors.New("access denied"), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			destroyed := stubCursorCalls(t, tt.setErr, tt.reloadErr)
			s := &Service{}

			err := s.RestoreGlyph(saved)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RestoreGlyph() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(*destroyed) != tt.wantDestroyed {
				t.Errorf("destroyed handles = %v, want %d", *destroyed, tt.wantDestroyed)
			}
		})
	}
}

func TestRestoreGlyphRetryAfterFailure(t *testing.T) {
	const saved = pointer.Glyph(0x1234)
	s := &Service{}

	destroyed := stubCursorCalls(t, errors.New("busy"), errors.New("busy"))
	if err := s.RestoreGlyph(saved); err == nil {
		t.Fatal("RestoreGlyph() = nil, want error when both calls fail")
	}
	if len(*destroyed) != 0 {
		t.Fatalf("handle destroyed on failed restore: %v", *destroyed)
	}

	var installed uintptr
	setSystemCursor = func(h uintptr) error {
		installed = h
		return nil
	}
	reloadSystemCursors = func() error { return nil }
	if err := s.RestoreGlyph(saved); err != nil {
		t.Fatalf("retry RestoreGlyph() error: %v", err)
	}
	if installed != uintptr(saved) {
		t.Errorf("retry installed %#x, want %#x", installed, uintptr(saved))
	}
}

func TestSetVisibleCompensatesCounter(t *testing.T) {
	s := newTestService(t)

	orig := showCursor
	t.Cleanup(func() { showCursor = orig })

	// Another component already shows the pointer twice
	counter := int32(1)
	showCursor = func(show bool) int32 {
		if show {
			counter++
		} else {
			counter--
		}
		return counter
	}

	for i := 0; i < 3; i++ {
		if err := s.SetVisible(false); err == nil {
			t.Fatal("SetVisible(false) = nil with a non-negative counter")
		}
	}
	if counter != 1 {
		t.Errorf("display counter = %d after failed hides, want 1", counter)
	}
	if s.hidden {
		t.Error("service marked hidden after failed hide")
	}
}
