// Package win32 implements pointer.Service on top of user32.dll.
//
// The system arrow is swapped with SetSystemCursor in glyph mode, and
// ShowCursor adjusts the display counter in toggle mode. ShowCursor only
// affects windows owned by the calling thread, so glyph mode is the one
// that hides the pointer over other applications.
package win32
