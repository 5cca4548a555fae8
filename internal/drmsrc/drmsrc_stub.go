//go:build !linux

package drmsrc

import (
	"errors"

	"screenrec.dev/screenrec/internal/framebuffer"
)

var ErrLibraryNotLoaded = errors.New("drmsrc capture backend is only available on linux")

type CardSource struct{}

func IsAvailable() bool { return false }

func New(devicePath string) *CardSource { return &CardSource{} }

func DiscoverCards() ([]string, error) {
	return nil, errors.New("drmsrc: /dev/dri is only available on linux")
}

func (c *CardSource) Open() (*framebuffer.View, error) {
	return nil, ErrLibraryNotLoaded
}

func (c *CardSource) Close() error { return nil }
