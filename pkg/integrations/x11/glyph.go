package x11

import (
	"encoding/binary"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/render"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxCursorSide keeps a single PutImage under the core request limit
const maxCursorSide = 256

// cursorImage is a premultiplied ARGB cursor as reported by XFIXES
type cursorImage struct {
	width, height uint16
	xhot, yhot    uint16
	pixels        []uint32
}

func (img *cursorImage) valid() bool {
	return img.width > 0 && img.height > 0 &&
		img.width <= maxCursorSide && img.height <= maxCursorSide &&
		len(img.pixels) >= int(img.width)*int(img.height)
}

// bytes encodes the pixels in the client byte order xgb announces (LSB first)
func (img *cursorImage) bytes() []byte {
	n := int(img.width) * int(img.height)
	out := make([]byte, 4*n)
	for i, px := range img.pixels[:n] {
		binary.LittleEndian.PutUint32(out[4*i:], px)
	}
	return out
}

// isARGB32 matches the standard PictStandardARGB32 layout
func isARGB32(f render.Pictforminfo) bool {
	d := f.Direct
	return f.Type == render.PictTypeDirect && f.Depth == 32 &&
		d.AlphaShift == 24 && d.AlphaMask == 0xff &&
		d.RedShift == 16 && d.RedMask == 0xff &&
		d.GreenShift == 8 && d.GreenMask == 0xff &&
		d.BlueShift == 0 && d.BlueMask == 0xff
}

func findARGB32(formats []render.Pictforminfo) (render.Pictformat, bool) {
	for _, f := range formats {
		if isARGB32(f) {
			return f.Id, true
		}
	}
	return 0, false
}

func queryARGBFormat(conn *xgb.Conn) (render.Pictformat, error) {
	if err := render.Init(conn); err != nil {
		return 0, errors.Wrap(err, "RENDER extension unavailable")
	}
	reply, err := render.QueryPictFormats(conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to query picture formats")
	}
	format, ok := findARGB32(reply.Formats)
	if !ok {
		return 0, errors.New("no ARGB32 picture format")
	}
	return format, nil
}

// pickArrow chooses the image to save before the arrow is replaced. The
// pointer may be over a text field, so only an image named left_ptr is
// trusted; otherwise the last one seen is reused.
func pickArrow(current *cursorImage, name string, cached *cursorImage) *cursorImage {
	if current != nil && name == leftPtrName && current.valid() {
		return current
	}
	return cached
}

// captureArrow returns a new cursor holding the user's arrow image. It
// falls back to the core-font arrow when no themed image is known.
func (s *Service) captureArrow() (xproto.Cursor, error) {
	if s.argb == 0 {
		return s.coreArrow()
	}

	reply, err := xfixes.GetCursorImageAndName(s.conn).Reply()
	if err != nil {
		logrus.Debugf("GetCursorImageAndName failed: %v", err)
	} else {
		current := &cursorImage{
			width:  reply.Width,
			height: reply.Height,
			xhot:   reply.Xhot,
			yhot:   reply.Yhot,
			pixels: reply.CursorImage,
		}
		s.mu.Lock()
		s.arrow = pickArrow(current, reply.Name, s.arrow)
		s.mu.Unlock()
	}

	s.mu.Lock()
	img := s.arrow
	s.mu.Unlock()

	if img == nil {
		logrus.Debug("No themed arrow seen yet, saving the core arrow")
		return s.coreArrow()
	}
	return s.imageCursor(img)
}

// imageCursor uploads img into a depth-32 pixmap and builds a RENDER cursor
func (s *Service) imageCursor(img *cursorImage) (xproto.Cursor, error) {
	pixmap, err := xproto.NewPixmapId(s.conn)
	if err != nil {
		return 0, errors.Wrap(err, "failed to allocate pixmap id")
	}
	err = xproto.CreatePixmapChecked(s.conn, 32, pixmap, xproto.Drawable(s.root), img.width, img.height).Check()
	if err != nil {
		return 0, errors.Wrap(err, "failed to create cursor pixmap")
	}
	defer xproto.FreePixmap(s.conn, pixmap)

	drawable := xproto.Drawable(pixmap)
	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return 0, errors.Wrap(err, "failed to allocate gc id")
	}
	if err := xproto.CreateGCChecked(s.conn, gc, drawable, 0, nil).Check(); err != nil {
		return 0, errors.Wrap(err, "failed to create gc")
	}
	defer xproto.FreeGC(s.conn, gc)

	err = xproto.PutImageChecked(s.conn, xproto.ImageFormatZPixmap, drawable, gc,
		img.width, img.height, 0, 0, 0, 32, img.bytes()).Check()
	if err != nil {
		return 0, errors.Wrap(err, "failed to upload cursor image")
	}

	picture, err := render.NewPictureId(s.conn)
	if err != nil {
		return 0, errors.Wrap(err, "failed to allocate picture id")
	}
	if err := render.CreatePictureChecked(s.conn, picture, drawable, s.argb, 0, nil).Check(); err != nil {
		return 0, errors.Wrap(err, "failed to create cursor picture")
	}
	defer render.FreePicture(s.conn, picture)

	cursor, err := xproto.NewCursorId(s.conn)
	if err != nil {
		return 0, errors.Wrap(err, "failed to allocate cursor id")
	}
	if err := render.CreateCursorChecked(s.conn, cursor, picture, img.xhot, img.yhot).Check(); err != nil {
		return 0, errors.Wrap(err, "failed to create arrow cursor")
	}
	return cursor, nil
}
