package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"screenrec.dev/screenrec/internal/encoder"
	"screenrec.dev/screenrec/internal/framebuffer"
	"screenrec.dev/screenrec/internal/vblank"
)

type fakeSource struct {
	view   *framebuffer.View
	closed bool
}

func (s *fakeSource) Open() (*framebuffer.View, error) { return s.view, nil }
func (s *fakeSource) Close() error                     { s.closed = true; return nil }

type fakeWaiter struct {
	seq uint32
}

func (w *fakeWaiter) WaitRelative(offset uint32) (uint32, error) {
	w.seq += offset
	return w.seq, nil
}

func (w *fakeWaiter) WaitAbsolute(target uint32) (uint32, error) {
	w.seq++
	if w.seq < target {
		w.seq = target
	}
	return w.seq, nil
}

type fakeEncoder struct {
	idrEvery int
	calls    int
}

func (e *fakeEncoder) Headers() ([]encoder.NAL, error) {
	return []encoder.NAL{
		{Type: encoder.TypeSPS, Payload: []byte{0x67, 0x42, 0xC0, 0x1F, 0xAA, 0xBB}},
		{Type: encoder.TypePPS, Payload: []byte{0x68, 0xCE, 0x3C, 0x80}},
	}, nil
}

func (e *fakeEncoder) Encode(rgb []byte, pts int64) ([]encoder.NAL, error) {
	e.calls++
	typ := encoder.TypeNonIDR
	if e.idrEvery > 0 && e.calls%e.idrEvery == 1 {
		typ = encoder.TypeIDR
	}
	return []encoder.NAL{{Type: typ, Payload: []byte{0x01, 0x02, 0x03, byte(e.calls)}}}, nil
}

func (e *fakeEncoder) Close() error { return nil }

// decodeSize reads a minimal-width EBML size vint starting at buf[0] and
// returns the decoded value and its width in bytes.
func decodeSize(buf []byte) (value uint64, width int) {
	first := buf[0]
	for w := 1; w <= 8; w++ {
		mask := byte(1 << uint(8-w))
		if first&mask != 0 {
			v := uint64(first &^ mask)
			for i := 1; i < w; i++ {
				v = v<<8 | uint64(buf[i])
			}
			return v, w
		}
	}
	return 0, 0
}

// countCuePoints scans the file for the Cues element and counts its
// direct CuePoint (0xBB) children, without depending on any mkv package
// internals.
func countCuePoints(t *testing.T, data []byte) int {
	t.Helper()
	cuesID := []byte{0x1C, 0x53, 0xBB, 0x6B}
	idx := bytes.Index(data, cuesID)
	if idx < 0 {
		t.Fatalf("Cues element not found in output")
	}
	pos := idx + len(cuesID)
	size, width := decodeSize(data[pos:])
	pos += width
	end := pos + int(size)

	count := 0
	for pos < end {
		if data[pos] != 0xBB {
			t.Fatalf("expected CuePoint id 0xBB at %d, got %#x", pos, data[pos])
		}
		pos++
		sz, w := decodeSize(data[pos:])
		pos += w + int(sz)
		count++
	}
	return count
}

func newTestView() *framebuffer.View {
	return &framebuffer.View{
		Width: 4, Height: 2, PitchBytes: 16,
		FourCC: framebuffer.FourCCXR24, Modifier: framebuffer.ModifierLinear,
		RefreshHz: 60,
		Bytes:     make([]byte, 16*2),
	}
}

func TestDriverCueCountMatchesIDRCount(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.mkv")

	const totalFrames = 23
	const idrEvery = 7
	frameCount := 0

	fe := &fakeEncoder{idrEvery: idrEvery}
	cfg := Config{
		Source:     &fakeSource{view: newTestView()},
		Geometry:   framebuffer.Geometry{},
		Interval:   1,
		OutputPath: outPath,
		NewEncoder: func(encoder.Config) (encoder.Encoder, error) { return fe, nil },
		NewDRMWaiter: func(string) (vblank.Waiter, error) {
			return &fakeWaiter{}, nil
		},
		StopCheck: func() (bool, error) {
			frameCount++
			return frameCount >= totalFrames, nil
		},
	}

	if err := Run(cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	wantIDRs := 0
	for i := 1; i <= totalFrames; i++ {
		if i%idrEvery == 1 {
			wantIDRs++
		}
	}

	got := countCuePoints(t, data)
	if got != wantIDRs {
		t.Fatalf("cue point count = %d, want %d", got, wantIDRs)
	}
}

func TestDriverRejectsBadGeometry(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.mkv")
	cfg := Config{
		Source:     &fakeSource{view: newTestView()},
		Geometry:   framebuffer.Geometry{X: 100, Y: 0, W: 0, H: 0},
		OutputPath: outPath,
		NewEncoder: func(encoder.Config) (encoder.Encoder, error) { return &fakeEncoder{}, nil },
		NewDRMWaiter: func(string) (vblank.Waiter, error) {
			return &fakeWaiter{}, nil
		},
	}
	if err := Run(cfg); err == nil {
		t.Fatal("Run: want error for out-of-bounds geometry, got nil")
	}
}
