package framebuffer

import "testing"

func TestResolveFillsDefaults(t *testing.T) {
	g := Geometry{X: 10, Y: 5}
	r, err := g.Resolve(100, 50)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.W != 90 || r.H != 45 {
		t.Fatalf("resolved = %+v, want W=90 H=45", r)
	}
}

func TestResolveExplicitSizeWithinBounds(t *testing.T) {
	g := Geometry{X: 10, Y: 5, W: 20, H: 10}
	r, err := g.Resolve(100, 50)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r != g {
		t.Fatalf("resolved = %+v, want unchanged %+v", r, g)
	}
}

func TestResolveRejectsOutOfBounds(t *testing.T) {
	cases := []Geometry{
		{X: 200, Y: 0},
		{X: 0, Y: 200},
		{X: 0, Y: 0, W: 200, H: 10},
		{X: 0, Y: 0, W: 10, H: 200},
		{X: 90, Y: 0, W: 20, H: 10},
	}
	for _, g := range cases {
		if _, err := g.Resolve(100, 50); err == nil {
			t.Fatalf("Resolve(%+v): want error, got nil", g)
		}
	}
}

func TestResolveFourCCFallsBackToXR24(t *testing.T) {
	v := &View{FourCC: PixelFormat(0xdeadbeef)}
	if got := v.ResolveFourCC(); got != FourCCXR24 {
		t.Fatalf("ResolveFourCC() = %#x, want %#x", uint32(got), uint32(FourCCXR24))
	}
}

func TestLayoutLinear(t *testing.T) {
	v := &View{Modifier: ModifierLinear}
	if got := v.Layout(); got != LayoutLinear {
		t.Fatalf("Layout() = %v, want LayoutLinear", got)
	}
}

func TestLayoutTiledX(t *testing.T) {
	v := &View{Modifier: Modifier(uint64(1)<<56 | 1)}
	if got := v.Layout(); got != LayoutTiledX4KB {
		t.Fatalf("Layout() = %v, want LayoutTiledX4KB", got)
	}
}

func TestLayoutUnknownFallsBackToLinear(t *testing.T) {
	v := &View{Modifier: Modifier(uint64(2)<<56 | 99)}
	if got := v.Layout(); got != LayoutLinear {
		t.Fatalf("Layout() = %v, want LayoutLinear fallback", got)
	}
}

func TestModifierVendorAndValue(t *testing.T) {
	m := Modifier(uint64(0x02)<<56 | 0x00deadbeef)
	if got := ModifierVendor(m); got != 0x02 {
		t.Fatalf("ModifierVendor() = %#x, want 0x02", got)
	}
	if got := ModifierValue(m); got != 0x00deadbeef {
		t.Fatalf("ModifierValue() = %#x, want %#x", got, 0x00deadbeef)
	}
}
