// Package ppm implements the binary PPM ("P6") codec backing
// --take-screenshot (spec §6): a header "P6\n<w>\n<h>\n255\n" followed by
// w*h*3 bytes of R,G,B in scanline order.
package ppm

import (
	"bufio"
	"fmt"
	"io"
)

// Encode writes rgb (packed RGB, scanline order, width*height*3 bytes) as
// a binary PPM to out.
func Encode(out io.Writer, width, height uint32, rgb []byte) error {
	if uint64(len(rgb)) != uint64(width)*uint64(height)*3 {
		return fmt.Errorf("ppm encode: image is %d bytes, want %d for %dx%d", len(rgb), uint64(width)*uint64(height)*3, width, height)
	}
	bw := bufio.NewWriter(out)
	if _, err := fmt.Fprintf(bw, "P6\n%d\n%d\n255\n", width, height); err != nil {
		return err
	}
	if _, err := bw.Write(rgb); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a binary PPM and returns its dimensions and pixel bytes.
// It exists to support the round-trip law in spec §8. It accepts the
// header Encode produces, and more generally any header whose tokens are
// separated by spaces, tabs, CRs or newlines; header comments ('#') are
// not supported.
func Decode(in io.Reader) (width, height uint32, rgb []byte, err error) {
	br := bufio.NewReader(in)

	magic, err := readToken(br)
	if err != nil {
		return 0, 0, nil, err
	}
	if magic != "P6" {
		return 0, 0, nil, fmt.Errorf("ppm decode: bad magic %q, want P6", magic)
	}

	w, err := readUintToken(br)
	if err != nil {
		return 0, 0, nil, err
	}
	h, err := readUintToken(br)
	if err != nil {
		return 0, 0, nil, err
	}
	maxVal, err := readUintToken(br)
	if err != nil {
		return 0, 0, nil, err
	}
	if maxVal != 255 {
		return 0, 0, nil, fmt.Errorf("ppm decode: maxval %d, want 255", maxVal)
	}

	buf := make([]byte, int(w)*int(h)*3)
	if _, err := io.ReadFull(br, buf); err != nil {
		return 0, 0, nil, fmt.Errorf("ppm decode: read pixels: %w", err)
	}
	return w, h, buf, nil
}

// readToken reads one whitespace-delimited token, per PPM's plain-text
// header convention (the pixel data that follows the header remains
// binary).
func readToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if isPPMSpace(b) {
			if len(tok) == 0 {
				continue
			}
			return string(tok), nil
		}
		tok = append(tok, b)
	}
}

func readUintToken(br *bufio.Reader) (uint32, error) {
	tok, err := readToken(br)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, c := range []byte(tok) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("ppm decode: %q is not a decimal integer", tok)
		}
		v = v*10 + uint32(c-'0')
	}
	return v, nil
}

func isPPMSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
