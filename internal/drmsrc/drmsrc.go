//go:build linux

// Package drmsrc is the out-of-scope framebuffer-acquisition collaborator
// (spec.md §1 places device discovery outside the core's hard problem).
// It implements framebuffer.Source against libdrm, loaded dynamically:
// no link-time dependency on the shared object, a small pointer table
// filled in by dlsym, and a Go-side wrapper that owns lifetime and error
// translation.
package drmsrc

/*
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include <string.h>
#include <dlfcn.h>
#include <stdint.h>
#include <xf86drm.h>
#include <xf86drmMode.h>

static int   (*d_drmOpen)(const char *name, const char *busid);
static int   (*d_drmClose)(int fd);
static drmModeResPtr (*d_drmModeGetResources)(int fd);
static void  (*d_drmModeFreeResources)(drmModeResPtr ptr);
static drmModeConnectorPtr (*d_drmModeGetConnector)(int fd, uint32_t connector_id);
static void  (*d_drmModeFreeConnector)(drmModeConnectorPtr ptr);
static drmModeEncoderPtr (*d_drmModeGetEncoder)(int fd, uint32_t encoder_id);
static void  (*d_drmModeFreeEncoder)(drmModeEncoderPtr ptr);
static drmModeCrtcPtr (*d_drmModeGetCrtc)(int fd, uint32_t crtc_id);
static void  (*d_drmModeFreeCrtc)(drmModeCrtcPtr ptr);
static drmModeFB2Ptr (*d_drmModeGetFB2)(int fd, uint32_t fb_id);
static void  (*d_drmModeFreeFB2)(drmModeFB2Ptr ptr);
static int   (*d_drmPrimeHandleToFD)(int fd, uint32_t handle, uint32_t flags, int *prime_fd);
static char* (*d_drmGetVersion_name)(int fd);

static void *drm_lib_handle = NULL;

static int load_drm(void) {
    if (drm_lib_handle != NULL) return 1;

    const char *names[] = {"libdrm.so.2", "libdrm.so", NULL};
    for (int i = 0; names[i] != NULL; i++) {
        drm_lib_handle = dlopen(names[i], RTLD_NOW);
        if (drm_lib_handle) break;
    }
    if (!drm_lib_handle) return 0;

    d_drmOpen               = dlsym(drm_lib_handle, "drmOpen");
    d_drmClose               = dlsym(drm_lib_handle, "drmClose");
    d_drmModeGetResources    = dlsym(drm_lib_handle, "drmModeGetResources");
    d_drmModeFreeResources   = dlsym(drm_lib_handle, "drmModeFreeResources");
    d_drmModeGetConnector    = dlsym(drm_lib_handle, "drmModeGetConnector");
    d_drmModeFreeConnector   = dlsym(drm_lib_handle, "drmModeFreeConnector");
    d_drmModeGetEncoder      = dlsym(drm_lib_handle, "drmModeGetEncoder");
    d_drmModeFreeEncoder     = dlsym(drm_lib_handle, "drmModeFreeEncoder");
    d_drmModeGetCrtc         = dlsym(drm_lib_handle, "drmModeGetCrtc");
    d_drmModeFreeCrtc        = dlsym(drm_lib_handle, "drmModeFreeCrtc");
    d_drmModeGetFB2          = dlsym(drm_lib_handle, "drmModeGetFB2");
    d_drmModeFreeFB2         = dlsym(drm_lib_handle, "drmModeFreeFB2");
    d_drmPrimeHandleToFD     = dlsym(drm_lib_handle, "drmPrimeHandleToFD");

    if (!d_drmModeGetResources || !d_drmModeGetCrtc || !d_drmModeGetFB2 || !d_drmPrimeHandleToFD) {
        dlclose(drm_lib_handle);
        drm_lib_handle = NULL;
        return 0;
    }
    return 1;
}

static inline drmModeResPtr wrap_get_resources(int fd) { return d_drmModeGetResources(fd); }
static inline drmModeConnectorPtr wrap_get_connector(int fd, uint32_t id) { return d_drmModeGetConnector(fd, id); }
static inline drmModeEncoderPtr wrap_get_encoder(int fd, uint32_t id) { return d_drmModeGetEncoder(fd, id); }
static inline drmModeCrtcPtr wrap_get_crtc(int fd, uint32_t id) { return d_drmModeGetCrtc(fd, id); }
static inline drmModeFB2Ptr wrap_get_fb2(int fd, uint32_t id) { return d_drmModeGetFB2(fd, id); }
static inline int wrap_prime_handle_to_fd(int fd, uint32_t handle, int *out) {
    return d_drmPrimeHandleToFD(fd, handle, DRM_CLOEXEC | DRM_RDWR, out);
}
static inline void wrap_free_resources(drmModeResPtr p) { d_drmModeFreeResources(p); }
static inline void wrap_free_connector(drmModeConnectorPtr p) { d_drmModeFreeConnector(p); }
static inline void wrap_free_encoder(drmModeEncoderPtr p) { d_drmModeFreeEncoder(p); }
static inline void wrap_free_crtc(drmModeCrtcPtr p) { d_drmModeFreeCrtc(p); }
static inline void wrap_free_fb2(drmModeFB2Ptr p) { d_drmModeFreeFB2(p); }
*/
import "C"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"unsafe"

	"screenrec.dev/screenrec/internal/framebuffer"
)

// ErrLibraryNotLoaded is returned when the libdrm shared object could not
// be dlopen'd on this system.
var ErrLibraryNotLoaded = errors.New("libdrm.so.2 could not be loaded")

var errNoScanout = errors.New("drmsrc: no connected connector with an active CRTC found")

var libMu = struct{ loaded bool }{}

// IsAvailable checks whether the libdrm shared object can be loaded.
func IsAvailable() bool {
	if libMu.loaded {
		return true
	}
	if C.load_drm() == 1 {
		libMu.loaded = true
		return true
	}
	return false
}

// CardSource is a framebuffer.Source that captures the primary CRTC's
// scanout buffer from one DRM card node via PRIME export and mmap.
type CardSource struct {
	devicePath string

	fd       int
	mmapAddr []byte
	primeFd  int
}

// New returns a Source over devicePath (e.g. "/dev/dri/card0"). Pass ""
// to use the first card node that DiscoverCards lists; that node is not
// checked for a connected display, and no other node is tried if Open
// finds no active scanout on it.
func New(devicePath string) *CardSource {
	return &CardSource{devicePath: devicePath}
}

// DiscoverCards lists DRM card device nodes under /dev/dri, sorted by
// name, for --dump-info enumeration and for New("")'s auto-selection.
func DiscoverCards() ([]string, error) {
	entries, err := os.ReadDir("/dev/dri")
	if err != nil {
		return nil, fmt.Errorf("drmsrc: read /dev/dri: %w", err)
	}
	var cards []string
	for _, e := range entries {
		if len(e.Name()) >= 4 && e.Name()[:4] == "card" {
			cards = append(cards, filepath.Join("/dev/dri", e.Name()))
		}
	}
	sort.Strings(cards)
	return cards, nil
}

// Open implements framebuffer.Source.
func (c *CardSource) Open() (*framebuffer.View, error) {
	if !IsAvailable() {
		return nil, ErrLibraryNotLoaded
	}

	path := c.devicePath
	if path == "" {
		cards, err := DiscoverCards()
		if err != nil {
			return nil, err
		}
		if len(cards) == 0 {
			return nil, errors.New("drmsrc: no DRM device nodes found")
		}
		path = cards[0]
	}

	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("drmsrc: open %s: %w", path, err)
	}
	c.fd = fd

	cleanup := func(err error) (*framebuffer.View, error) {
		_ = c.Close()
		return nil, err
	}

	res := C.wrap_get_resources(C.int(fd))
	if res == nil {
		return cleanup(fmt.Errorf("drmsrc: drmModeGetResources on %s failed", path))
	}
	defer C.wrap_free_resources(res)

	view, err := c.scanoutFromResources(fd, res)
	if err != nil {
		return cleanup(err)
	}
	view.DevicePath = path
	return view, nil
}

func (c *CardSource) scanoutFromResources(fd int, res *C.drmModeRes) (*framebuffer.View, error) {
	connCount := int(res.count_connectors)
	connectors := unsafe.Slice(res.connectors, connCount)

	for i := 0; i < connCount; i++ {
		conn := C.wrap_get_connector(C.int(fd), C.uint32_t(connectors[i]))
		if conn == nil {
			continue
		}
		connected := conn.connection == C.DRM_MODE_CONNECTED
		encoderID := uint32(conn.encoder_id)
		C.wrap_free_connector(conn)
		if !connected || encoderID == 0 {
			continue
		}

		enc := C.wrap_get_encoder(C.int(fd), C.uint32_t(encoderID))
		if enc == nil {
			continue
		}
		crtcID := uint32(enc.crtc_id)
		C.wrap_free_encoder(enc)
		if crtcID == 0 {
			continue
		}

		crtc := C.wrap_get_crtc(C.int(fd), C.uint32_t(crtcID))
		if crtc == nil {
			continue
		}
		fbID := uint32(crtc.buffer_id)
		refreshHz := crtcRefreshHz(crtc)
		C.wrap_free_crtc(crtc)
		if fbID == 0 {
			continue
		}

		return c.viewFromFB(fd, fbID, refreshHz)
	}

	return nil, errNoScanout
}

func crtcRefreshHz(crtc *C.drmModeCrtc) float64 {
	mode := crtc.mode
	if mode.vtotal == 0 || mode.htotal == 0 || mode.clock == 0 {
		return 0
	}
	return float64(mode.clock) * 1000.0 / (float64(mode.htotal) * float64(mode.vtotal))
}

func (c *CardSource) viewFromFB(fd int, fbID uint32, refreshHz float64) (*framebuffer.View, error) {
	fb := C.wrap_get_fb2(C.int(fd), C.uint32_t(fbID))
	if fb == nil {
		return nil, fmt.Errorf("drmsrc: drmModeGetFB2(%d) failed", fbID)
	}
	defer C.wrap_free_fb2(fb)

	handle := uint32(fb.handles[0])
	pitch := uint32(fb.pitches[0])
	width := uint32(fb.width)
	height := uint32(fb.height)
	fourcc := uint32(fb.pixel_format)
	modifier := uint64(fb.modifier)

	var primeFd C.int
	if C.wrap_prime_handle_to_fd(C.int(fd), C.uint32_t(handle), &primeFd) != 0 {
		return nil, fmt.Errorf("drmsrc: drmPrimeHandleToFD(%d) failed", handle)
	}
	c.primeFd = int(primeFd)

	size := int(pitch) * int(height)
	data, err := syscall.Mmap(c.primeFd, 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		syscall.Close(c.primeFd)
		c.primeFd = -1
		return nil, fmt.Errorf("drmsrc: mmap dma-buf: %w", err)
	}
	c.mmapAddr = data

	return &framebuffer.View{
		Width:      width,
		Height:     height,
		PitchBytes: pitch,
		FourCC:     framebuffer.PixelFormat(fourcc),
		Modifier:   framebuffer.Modifier(modifier),
		RefreshHz:  refreshHz,
		Bytes:      data,
	}, nil
}

// Close implements framebuffer.Source.
func (c *CardSource) Close() error {
	var errs []error
	if c.mmapAddr != nil {
		if err := syscall.Munmap(c.mmapAddr); err != nil {
			errs = append(errs, err)
		}
		c.mmapAddr = nil
	}
	if c.primeFd > 0 {
		if err := syscall.Close(c.primeFd); err != nil {
			errs = append(errs, err)
		}
		c.primeFd = 0
	}
	if c.fd > 0 {
		if err := syscall.Close(c.fd); err != nil {
			errs = append(errs, err)
		}
		c.fd = 0
	}
	return errors.Join(errs...)
}
