package mkv

import (
	"encoding/binary"
	"os"
	"testing"

	"screenrec.dev/screenrec/internal/cue"
)

func openTestMuxer(t *testing.T) (*Muxer, *os.File) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "rec-*.mkv")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	m, err := Open(f, Config{
		Width: 1920, Height: 1080,
		DefaultDurationNs: 16666667,
		SPS:               []byte{0x67, 0x42, 0xC0, 0x1F, 0xAA, 0xBB},
		PPS:               []byte{0x68, 0xCE, 0x3C, 0x80},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m, f
}

func readU32At(t *testing.T, f *os.File, offset int64) uint32 {
	t.Helper()
	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, offset); err != nil {
		t.Fatalf("ReadAt(%d): %v", offset, err)
	}
	return binary.BigEndian.Uint32(buf)
}

func TestFreshClusterRunningSizeStartsAtTen(t *testing.T) {
	m, f := openTestMuxer(t)
	defer f.Close()

	if m.clusterRunningSize != 10 {
		t.Fatalf("fresh cluster running size = %d, want 10", m.clusterRunningSize)
	}
	if m.ClusterRunningSize() != 10 {
		t.Fatalf("ClusterRunningSize() = %d, want 10", m.ClusterRunningSize())
	}
}

func TestClusterSizeBackpatch(t *testing.T) {
	m, f := openTestMuxer(t)
	defer f.Close()

	clusterAbsOffset := m.segmentBodyStart + int64(m.ClusterOffsetInSegment())
	nal1 := []byte{0x65, 0x01, 0x02, 0x03}
	nal2 := []byte{0x61, 0x09, 0x08}

	if err := m.WriteBlock(nal1, 0); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := m.WriteBlock(nal2, 100); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	wantSize := uint32(10 + (9 + len(nal1)) + (9 + len(nal2)))
	if m.clusterRunningSize != wantSize {
		t.Fatalf("running size = %d, want %d", m.clusterRunningSize, wantSize)
	}

	if err := m.RolloverCluster(16666667); err != nil {
		t.Fatalf("RolloverCluster: %v", err)
	}

	sizeFieldOffset := clusterAbsOffset + int64(len(idCluster))
	got := readU32At(t, f, sizeFieldOffset)
	if marker := got &^ 0x0FFFFFFF; marker != 0x10000000 {
		t.Fatalf("cluster size field marker = %#x, want 0x10000000", marker)
	}
	if got&0x0FFFFFFF != wantSize {
		t.Fatalf("back-patched cluster size = %d, want %d", got&0x0FFFFFFF, wantSize)
	}
}

func TestIDRRolloverCueOffsetsMatchSpecInvariant(t *testing.T) {
	m, f := openTestMuxer(t)
	defer f.Close()

	var idx cue.Index
	// Ten non-IDR frames in the first cluster.
	for i := 0; i < 10; i++ {
		if err := m.WriteBlock([]byte{0x61, byte(i)}, uint16(i)); err != nil {
			t.Fatalf("WriteBlock: %v", err)
		}
	}

	// Frame 10 is an IDR: rolls the cluster over before being written.
	if err := m.RolloverCluster(167); err != nil {
		t.Fatalf("RolloverCluster: %v", err)
	}
	idx.Append(cue.Entry{
		TimestampTicks:         167,
		ClusterOffsetInSegment: m.ClusterOffsetInSegment(),
		BlockOffsetInCluster:   m.ClusterRunningSize(),
	})
	if m.ClusterRunningSize() != 10 {
		t.Fatalf("freshly-opened cluster running size = %d, want 10", m.ClusterRunningSize())
	}
	if err := m.WriteBlock([]byte{0x65, 0xAA, 0xBB}, 0); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	if err := m.Finalize(&idx); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	segmentSizeFieldOffset := m.segmentBodyStart - 8
	got := readU32At(t, f, segmentSizeFieldOffset)
	if marker := got &^ 0x0FFFFFFF; marker != 0x10000000 {
		t.Fatalf("segment size field marker = %#x, want 0x10000000", marker)
	}
	wantSegmentSize := uint32(info.Size() - m.segmentBodyStart)
	if got&0x0FFFFFFF != wantSegmentSize {
		t.Fatalf("back-patched segment size = %d, want %d", got&0x0FFFFFFF, wantSegmentSize)
	}
}

func TestAVCConfigTooLargeFails(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rec-*.mkv")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	huge := make([]byte, 70000)
	_, err = Open(f, Config{Width: 100, Height: 100, SPS: huge, PPS: []byte{0x01}})
	if err == nil {
		t.Fatal("Open: want error for an oversized SPS, got nil")
	}
}
