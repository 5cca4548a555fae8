// Package cue implements component C6: an append-only chunked index of
// cue entries, one per IDR frame.
package cue

// ChunkSize is the fixed chunk capacity from spec §3 (kept as a
// constant rather than growing chunks dynamically, to mirror the
// original's fixed-capacity chunk design per spec §9's re-architecture
// note — a plain growable chunk sequence, not a linked list).
const ChunkSize = 2048

// Entry is one cue point: a cluster timestamp plus the byte offsets
// (segment-relative cluster offset, and block offset within that
// cluster) needed to seek directly to an IDR (spec §3).
type Entry struct {
	TimestampTicks         int64
	ClusterOffsetInSegment uint32
	BlockOffsetInCluster   uint32
}

// Index is the driver-owned, append-only cue vector. It is never
// mutated in place after Append; iteration visits entries in insertion
// order.
type Index struct {
	chunks [][]Entry
}

// Append adds one cue entry, growing a new chunk of ChunkSize capacity
// when the current one is full.
func (idx *Index) Append(e Entry) {
	if len(idx.chunks) == 0 || len(idx.chunks[len(idx.chunks)-1]) == ChunkSize {
		idx.chunks = append(idx.chunks, make([]Entry, 0, ChunkSize))
	}
	last := len(idx.chunks) - 1
	idx.chunks[last] = append(idx.chunks[last], e)
}

// Len returns the total number of appended entries.
func (idx *Index) Len() int {
	n := 0
	for _, c := range idx.chunks {
		n += len(c)
	}
	return n
}

// All returns every entry in insertion order. The returned slice is a
// fresh copy; the caller may not observe in-place mutation because
// entries are never mutated after Append.
func (idx *Index) All() []Entry {
	out := make([]Entry, 0, idx.Len())
	for _, c := range idx.chunks {
		out = append(out, c...)
	}
	return out
}
