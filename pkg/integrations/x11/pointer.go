package x11

import (
	"sync"

	"github.com/cursorhide/cursorhide/pkg/pointer"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/render"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// Glyph indices of the arrow in the core "cursor" font (XC_left_ptr)
	leftPtrChar     = 68
	leftPtrMaskChar = 69

	// Theme name of the default arrow
	leftPtrName = "left_ptr"

	xfixesMajor = 4
	xfixesMinor = 0
)

// Service implements pointer.Service on a single X11 connection.
// The connection stays open for the lifetime of the service: XFIXES
// hiding belongs to the client, so the server shows the pointer again
// if this process dies without cleaning up.
type Service struct {
	mu     sync.Mutex
	conn   *xgb.Conn
	root   xproto.Window
	hidden bool
	blank  xproto.Cursor

	// argb is the RENDER ARGB32 format, zero when RENDER is missing
	argb render.Pictformat
	// arrow is the last themed left_ptr image seen by SwapGlyph
	arrow *cursorImage
}

// NewService connects to display (empty means $DISPLAY) and checks XFIXES
func NewService(display string) (*Service, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	if err := xfixes.Init(conn); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "XFIXES extension unavailable")
	}

	version, err := xfixes.QueryVersion(conn, xfixesMajor, xfixesMinor).Reply()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to query XFIXES version")
	}
	if version.MajorVersion < xfixesMajor {
		conn.Close()
		return nil, errors.Errorf("XFIXES %d.%d too old, need %d.%d",
			version.MajorVersion, version.MinorVersion, xfixesMajor, xfixesMinor)
	}

	setup := xproto.Setup(conn)
	s := &Service{
		conn: conn,
		root: setup.DefaultScreen(conn).Root,
	}

	if format, err := queryARGBFormat(conn); err != nil {
		logrus.Warnf("Themed arrow capture unavailable, glyph mode falls back to the core arrow: %v", err)
	} else {
		s.argb = format
	}
	return s, nil
}

// DisplayServer returns "x11"
func (s *Service) DisplayServer() string {
	return "x11"
}

// Position queries the pointer relative to the root window
func (s *Service) Position() (pointer.Position, error) {
	reply, err := xproto.QueryPointer(s.conn, s.root).Reply()
	if err != nil {
		return pointer.Position{}, errors.Wrap(err, "QueryPointer failed")
	}
	return pointer.Position{X: int(reply.RootX), Y: int(reply.RootY)}, nil
}

// SetVisible hides or shows the pointer on the root window via XFIXES.
// XFIXES nests hide requests per client and rejects a show without a
// matching hide, so the service keeps its own flag.
func (s *Service) SetVisible(visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if visible {
		if !s.hidden {
			return pointer.ErrNotHidden
		}
		if err := xfixes.ShowCursorChecked(s.conn, s.root).Check(); err != nil {
			return errors.Wrap(err, "XFIXES ShowCursor failed")
		}
		s.hidden = false
		return nil
	}

	if s.hidden {
		return nil
	}
	if err := xfixes.HideCursorChecked(s.conn, s.root).Check(); err != nil {
		return errors.Wrap(err, "XFIXES HideCursor failed")
	}
	s.hidden = true
	return nil
}

// BlankGlyph builds (once) a 1x1 cursor with an all-zero mask
func (s *Service) BlankGlyph() (pointer.Glyph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blank != 0 {
		return pointer.Glyph(s.blank), nil
	}

	pixmap, err := xproto.NewPixmapId(s.conn)
	if err != nil {
		return pointer.NoGlyph, errors.Wrap(err, "failed to allocate pixmap id")
	}
	drawable := xproto.Drawable(s.root)
	if err := xproto.CreatePixmapChecked(s.conn, 1, pixmap, drawable, 1, 1).Check(); err != nil {
		return pointer.NoGlyph, errors.Wrap(err, "failed to create blank pixmap")
	}
	defer xproto.FreePixmap(s.conn, pixmap)

	// Pixmap contents are undefined until drawn.
	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return pointer.NoGlyph, errors.Wrap(err, "failed to allocate gc id")
	}
	pixDrawable := xproto.Drawable(pixmap)
	if err := xproto.CreateGCChecked(s.conn, gc, pixDrawable, xproto.GcForeground, []uint32{0}).Check(); err != nil {
		return pointer.NoGlyph, errors.Wrap(err, "failed to create gc")
	}
	xproto.PolyFillRectangle(s.conn, pixDrawable, gc, []xproto.Rectangle{{X: 0, Y: 0, Width: 1, Height: 1}})
	xproto.FreeGC(s.conn, gc)

	cursor, err := xproto.NewCursorId(s.conn)
	if err != nil {
		return pointer.NoGlyph, errors.Wrap(err, "failed to allocate cursor id")
	}
	if err := xproto.CreateCursorChecked(s.conn, cursor, pixmap, pixmap, 0, 0, 0, 0, 0, 0, 0, 0).Check(); err != nil {
		return pointer.NoGlyph, errors.Wrap(err, "failed to create blank cursor")
	}

	s.blank = cursor
	return pointer.Glyph(cursor), nil
}

// SwapGlyph captures the current arrow image as a cursor and installs g
// under the arrow's theme name. Applications that set their own cursors
// keep them.
func (s *Service) SwapGlyph(g pointer.Glyph) (pointer.Glyph, error) {
	if g == pointer.NoGlyph {
		return pointer.NoGlyph, errors.New("cannot install empty glyph")
	}

	old, err := s.captureArrow()
	if err != nil {
		return pointer.NoGlyph, err
	}

	if err := s.changeByName(xproto.Cursor(g)); err != nil {
		xproto.FreeCursor(s.conn, old)
		return pointer.NoGlyph, err
	}
	return pointer.Glyph(old), nil
}

// RestoreGlyph reinstalls old under the arrow's theme name and frees it
func (s *Service) RestoreGlyph(old pointer.Glyph) error {
	if old == pointer.NoGlyph {
		return pointer.ErrNotHidden
	}
	cursor := xproto.Cursor(old)
	if err := s.changeByName(cursor); err != nil {
		return err
	}
	xproto.FreeCursor(s.conn, cursor)
	return nil
}

func (s *Service) changeByName(cursor xproto.Cursor) error {
	err := xfixes.ChangeCursorByNameChecked(s.conn, cursor, uint16(len(leftPtrName)), leftPtrName).Check()
	if err != nil {
		return errors.Wrapf(err, "failed to change %s cursor", leftPtrName)
	}
	return nil
}

// coreArrow builds XC_left_ptr from the core cursor font
func (s *Service) coreArrow() (xproto.Cursor, error) {
	font, err := xproto.NewFontId(s.conn)
	if err != nil {
		return 0, errors.Wrap(err, "failed to allocate font id")
	}
	const fontName = "cursor"
	if err := xproto.OpenFontChecked(s.conn, font, uint16(len(fontName)), fontName).Check(); err != nil {
		return 0, errors.Wrap(err, "failed to open cursor font")
	}
	defer xproto.CloseFont(s.conn, font)

	cursor, err := xproto.NewCursorId(s.conn)
	if err != nil {
		return 0, errors.Wrap(err, "failed to allocate cursor id")
	}
	err = xproto.CreateGlyphCursorChecked(s.conn, cursor, font, font,
		leftPtrChar, leftPtrMaskChar,
		0, 0, 0,
		0xffff, 0xffff, 0xffff).Check()
	if err != nil {
		return 0, errors.Wrap(err, "failed to create arrow cursor")
	}
	return cursor, nil
}

// Close shows the pointer if this service hid it, then drops the connection
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hidden {
		if err := xfixes.ShowCursorChecked(s.conn, s.root).Check(); err != nil {
			logrus.Warnf("Failed to show pointer on close: %v", err)
		}
		s.hidden = false
	}
	if s.blank != 0 {
		xproto.FreeCursor(s.conn, s.blank)
		s.blank = 0
	}
	s.conn.Close()
	return nil
}

var _ pointer.Service = (*Service)(nil)
