package sessioninfo

import "testing"

func TestDescribeUnknown(t *testing.T) {
	var c Capabilities
	if got := c.Describe(); got != "unknown" {
		t.Fatalf("Describe() = %q, want %q", got, "unknown")
	}
}

func TestDescribeFlags(t *testing.T) {
	c := Capabilities{
		AvailableSourceTypes: SourceTypeMonitor | SourceTypeVirtual,
		AvailableCursorModes: CursorModeEmbedded,
		Version:              4,
	}
	want := "portal v4, sources=[monitor,virtual], cursor-modes=[embedded]"
	if got := c.Describe(); got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
}

func TestDescribeNoFlagsButVersionSet(t *testing.T) {
	c := Capabilities{Version: 1}
	want := "portal v1, sources=[none], cursor-modes=[none]"
	if got := c.Describe(); got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
}
