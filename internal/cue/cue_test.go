package cue

import "testing"

func TestAppendAndOrder(t *testing.T) {
	var idx Index
	for i := 0; i < 5; i++ {
		idx.Append(Entry{TimestampTicks: int64(i), ClusterOffsetInSegment: uint32(i * 10)})
	}
	if idx.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", idx.Len())
	}
	all := idx.All()
	for i, e := range all {
		if e.TimestampTicks != int64(i) {
			t.Fatalf("entry %d out of order: %+v", i, e)
		}
	}
}

func TestChunkRollover(t *testing.T) {
	var idx Index
	n := ChunkSize + 3
	for i := 0; i < n; i++ {
		idx.Append(Entry{TimestampTicks: int64(i)})
	}
	if idx.Len() != n {
		t.Fatalf("Len() = %d, want %d", idx.Len(), n)
	}
	if len(idx.chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(idx.chunks))
	}
	if len(idx.chunks[0]) != ChunkSize {
		t.Fatalf("first chunk len = %d, want %d", len(idx.chunks[0]), ChunkSize)
	}
	if len(idx.chunks[1]) != 3 {
		t.Fatalf("second chunk len = %d, want 3", len(idx.chunks[1]))
	}
	all := idx.All()
	if len(all) != n || all[n-1].TimestampTicks != int64(n-1) {
		t.Fatalf("All() did not preserve order across chunk boundary")
	}
}
