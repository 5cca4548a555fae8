package cli

import (
	"bytes"
	"errors"
	"testing"

	"screenrec.dev/screenrec/internal/framebuffer"
)

func TestParseGeometryXYOnly(t *testing.T) {
	g, err := parseGeometry("16,2")
	if err != nil {
		t.Fatalf("parseGeometry: %v", err)
	}
	want := framebuffer.Geometry{X: 16, Y: 2}
	if g != want {
		t.Fatalf("geometry = %+v, want %+v", g, want)
	}
}

func TestParseGeometryWithSize(t *testing.T) {
	g, err := parseGeometry("16,2,32x4")
	if err != nil {
		t.Fatalf("parseGeometry: %v", err)
	}
	want := framebuffer.Geometry{X: 16, Y: 2, W: 32, H: 4}
	if g != want {
		t.Fatalf("geometry = %+v, want %+v", g, want)
	}
}

func TestParseGeometryUppercaseX(t *testing.T) {
	g, err := parseGeometry("0,0,10X20")
	if err != nil {
		t.Fatalf("parseGeometry: %v", err)
	}
	want := framebuffer.Geometry{X: 0, Y: 0, W: 10, H: 20}
	if g != want {
		t.Fatalf("geometry = %+v, want %+v", g, want)
	}
}

func TestParseGeometryRejectsMissingSeparator(t *testing.T) {
	if _, err := parseGeometry("16,2,324"); !errors.Is(err, ErrUsage) {
		t.Fatalf("parseGeometry: want ErrUsage, got %v", err)
	}
}

func TestParseGeometryRejectsNonDecimal(t *testing.T) {
	if _, err := parseGeometry("16,a"); !errors.Is(err, ErrUsage) {
		t.Fatalf("parseGeometry: want ErrUsage, got %v", err)
	}
}

func TestParseGeometryRejectsWrongFieldCount(t *testing.T) {
	if _, err := parseGeometry("1,2,3,4"); !errors.Is(err, ErrUsage) {
		t.Fatalf("parseGeometry: want ErrUsage, got %v", err)
	}
}

func TestLastModeFlagWins(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := Parse([]string{"--dump-info", "--record-screen", "--output", "out.mkv", "--take-screenshot"}, &buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Mode != ModeScreenshot {
		t.Fatalf("Mode = %v, want ModeScreenshot (last flag seen wins)", cfg.Mode)
	}
}

func TestShortAndLongFlagsAgree(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := Parse([]string{"-r", "-o", "out.mkv", "-g", "0,0,100x100", "-p", "fast", "-y", "2"}, &buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Mode != ModeRecord {
		t.Fatalf("Mode = %v, want ModeRecord", cfg.Mode)
	}
	if cfg.Output != "out.mkv" {
		t.Fatalf("Output = %q, want out.mkv", cfg.Output)
	}
	if cfg.Preset != "fast" {
		t.Fatalf("Preset = %q, want fast", cfg.Preset)
	}
	if cfg.Interval != 2 {
		t.Fatalf("Interval = %d, want 2", cfg.Interval)
	}
	want := framebuffer.Geometry{X: 0, Y: 0, W: 100, H: 100}
	if cfg.Geometry != want {
		t.Fatalf("Geometry = %+v, want %+v", cfg.Geometry, want)
	}

	long, err := Parse([]string{"--record-screen", "--output", "out.mkv", "--geometry", "0,0,100x100", "--preset", "fast", "--record-every-th", "2"}, &buf)
	if err != nil {
		t.Fatalf("Parse (long flags): %v", err)
	}
	if *long != *cfg {
		t.Fatalf("long-flag config = %+v, want %+v (same as short flags)", *long, *cfg)
	}
}

func TestRecordModeRequiresOutput(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Parse([]string{"--record-screen"}, &buf); !errors.Is(err, ErrUsage) {
		t.Fatalf("Parse: want ErrUsage for missing --output, got %v", err)
	}
}

func TestIntervalOutOfRangeRejected(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Parse([]string{"--record-every-th", "0"}, &buf); !errors.Is(err, ErrUsage) {
		t.Fatalf("Parse: want ErrUsage for interval 0, got %v", err)
	}
	if _, err := Parse([]string{"--record-every-th", "15"}, &buf); err == nil {
		t.Fatalf("Parse: want error for interval 15")
	}
}

func TestDefaultModeIsHelp(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := Parse([]string{}, &buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Mode != ModeHelp {
		t.Fatalf("Mode = %v, want ModeHelp", cfg.Mode)
	}
}
