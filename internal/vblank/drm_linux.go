//go:build linux

package vblank

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// drmWaitVblank mirrors struct drm_wait_vblank_request/reply from
// <drm/drm.h>, used through the DRM_IOCTL_WAIT_VBLANK ioctl.
type drmWaitVblank struct {
	typ      uint32
	sequence uint32
	// request.signal and reply.tval_sec/tval_usec overlap in the kernel
	// union; we never read them back, so a single padding field of the
	// union's max size suffices.
	pad [16]byte
}

const (
	drmVBlankRelative = 0x1
	drmVBlankAbsolute = 0x0

	// DRM_IOCTL_WAIT_VBLANK = DRM_IOWR(0x3a, union drm_wait_vblank), using
	// the Linux _IOC(dir,type,nr,size) encoding directly (dir=3 is
	// read|write) rather than a platform-specific x/sys/unix constant.
	// size = 4(type)+4(sequence)+16(pad) = 24 bytes.
	drmIoctlWaitVblankSize = 24
	drmIoctlWaitVblank     = 3<<30 | drmIoctlWaitVblankSize<<16 | 'd'<<8 | 0x3a
)

// DRMWaiter is the real vblank Waiter, backed by DRM_IOCTL_WAIT_VBLANK
// against the primary display's DRM node (the same node the out-of-scope
// framebuffer-acquisition collaborator opens; see internal/drmsrc).
type DRMWaiter struct {
	f *os.File
}

// OpenDRMWaiter opens the DRM device node at path for vblank waits.
func OpenDRMWaiter(path string) (*DRMWaiter, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open drm node %s: %w", path, err)
	}
	return &DRMWaiter{f: f}, nil
}

// Close releases the DRM node fd.
func (d *DRMWaiter) Close() error { return d.f.Close() }

func (d *DRMWaiter) wait(typ, seq uint32) (uint32, error) {
	req := drmWaitVblank{typ: typ, sequence: seq}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), uintptr(drmIoctlWaitVblank), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return 0, fmt.Errorf("DRM_IOCTL_WAIT_VBLANK: %w", errno)
	}
	return req.sequence, nil
}

// WaitRelative waits until the vblank counter has advanced by offset
// from its current value.
func (d *DRMWaiter) WaitRelative(offset uint32) (uint32, error) {
	return d.wait(drmVBlankRelative, offset)
}

// WaitAbsolute waits until the vblank counter reaches or passes target.
func (d *DRMWaiter) WaitAbsolute(target uint32) (uint32, error) {
	return d.wait(drmVBlankAbsolute, target)
}
