package vblank

import "testing"

type fakeWaiter struct {
	seqs []uint32
	i    int
}

func (f *fakeWaiter) WaitRelative(offset uint32) (uint32, error) {
	return f.next(), nil
}

func (f *fakeWaiter) WaitAbsolute(target uint32) (uint32, error) {
	return f.next(), nil
}

func (f *fakeWaiter) next() uint32 {
	s := f.seqs[f.i]
	f.i++
	return s
}

func TestFirstCallIsRelativeAndSetsSessionStart(t *testing.T) {
	w := &fakeWaiter{seqs: []uint32{100}}
	c := New(w, 1)

	r, err := c.Next()
	if err != nil {
		t.Fatal(err)
	}
	if r.Sequence != 100 || r.Delta != 1 || r.Skipped {
		t.Fatalf("unexpected first result: %+v", r)
	}
	if c.target != 101 {
		t.Fatalf("target = %d, want 101", c.target)
	}
}

func TestNoSkipWhenDeltaEqualsInterval(t *testing.T) {
	w := &fakeWaiter{seqs: []uint32{100, 103, 106}}
	c := New(w, 3)

	if _, err := c.Next(); err != nil {
		t.Fatal(err)
	}
	r, err := c.Next()
	if err != nil {
		t.Fatal(err)
	}
	if r.Skipped {
		t.Fatalf("expected no skip, got delta=%d interval=3", r.Delta)
	}
	if r.Delta != 3 {
		t.Fatalf("delta = %d, want 3", r.Delta)
	}
}

func TestSkipDetectedWhenDeltaExceedsInterval(t *testing.T) {
	w := &fakeWaiter{seqs: []uint32{100, 105}}
	c := New(w, 1)

	if _, err := c.Next(); err != nil {
		t.Fatal(err)
	}
	r, err := c.Next()
	if err != nil {
		t.Fatal(err)
	}
	if !r.Skipped {
		t.Fatalf("expected skip detected, delta=%d interval=1", r.Delta)
	}
	if r.Delta != 5 {
		t.Fatalf("delta = %d, want 5", r.Delta)
	}
}
