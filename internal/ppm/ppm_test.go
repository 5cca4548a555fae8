package ppm

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	width, height := uint32(4), uint32(3)
	rgb := make([]byte, width*height*3)
	for i := range rgb {
		rgb[i] = byte(i * 7)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, width, height, rgb); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	gotW, gotH, gotRGB, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotW != width || gotH != height {
		t.Fatalf("dimensions = %dx%d, want %dx%d", gotW, gotH, width, height)
	}
	if !bytes.Equal(gotRGB, rgb) {
		t.Fatalf("decoded pixels do not match encoded input")
	}
}

func TestEncodeHeaderShape(t *testing.T) {
	var buf bytes.Buffer
	rgb := make([]byte, 2*2*3)
	if err := Encode(&buf, 2, 2, rgb); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "P6\n2\n2\n255\n"
	if got := buf.String()[:len(want)]; got != want {
		t.Fatalf("header = %q, want %q", got, want)
	}
}

func TestEncodeRejectsWrongSize(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, 2, 2, make([]byte, 5)); err == nil {
		t.Fatal("Encode: want error for mismatched buffer size, got nil")
	}
}
