//go:build windows

package backend

import (
	"github.com/cursorhide/cursorhide/pkg/integrations/win32"
	"github.com/cursorhide/cursorhide/pkg/pointer"
)

// New returns the user32 pointer service
func New() (pointer.Service, error) {
	return win32.NewService()
}
