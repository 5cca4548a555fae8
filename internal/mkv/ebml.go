package mkv

import (
	"encoding/binary"
	"fmt"
)

// encodeSize returns the minimal-width EBML data-size vint for value: the
// leading byte's marker bit position determines the total width, per the
// EBML spec's variable-length integer encoding.
func encodeSize(value uint64) []byte {
	for width := 1; width <= 8; width++ {
		maxVal := uint64(1)<<(uint(7*width)) - 1
		if value <= maxVal {
			buf := make([]byte, width)
			v := value
			for i := width - 1; i >= 0; i-- {
				buf[i] = byte(v)
				v >>= 8
			}
			buf[0] |= 1 << uint(8-width)
			return buf
		}
	}
	panic("mkv: value too large for an EBML size field")
}

// size28 encodes value as the fixed 4-byte, 28-bit-marker EBML size used
// for Cluster and SimpleBlock elements (spec §4.5: "0x10000000 | size").
func size28(value uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, 0x10000000|value)
	return buf
}

// element wraps body in an EBML element with a minimal-width size field.
func element(id []byte, body []byte) []byte {
	out := make([]byte, 0, len(id)+8+len(body))
	out = append(out, id...)
	out = append(out, encodeSize(uint64(len(body)))...)
	out = append(out, body...)
	return out
}

// element1 wraps body in an EBML element whose size field is exactly one
// byte (0x80|len). Spec §4.5 requires this exact width for CodecPrivate,
// TrackEntry and Tracks, all capped at 126 bytes.
func element1(id []byte, body []byte) ([]byte, error) {
	if len(body) > 126 {
		return nil, fmt.Errorf("%w: element %x body is %d bytes, exceeds the 126-byte one-byte-size-field limit", ErrConfig, id, len(body))
	}
	out := make([]byte, 0, len(id)+1+len(body))
	out = append(out, id...)
	out = append(out, 0x80|byte(len(body)))
	out = append(out, body...)
	return out, nil
}

// minimalBigEndian trims value to the fewest big-endian bytes that hold
// it, with a floor of one byte.
func minimalBigEndian(value uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	out := make([]byte, 8-i)
	copy(out, buf[i:])
	return out
}

func uintElement(id []byte, value uint64) []byte {
	return element(id, minimalBigEndian(value))
}

func stringElement(id []byte, s string) []byte {
	return element(id, []byte(s))
}

// fixedUintElement writes value as a fixed-width big-endian field
// regardless of magnitude. Used where the byte layout is load-bearing:
// the Cluster Timestamp element is always 8 bytes wide so that a
// freshly-opened cluster's running size is always exactly 10 (spec §4.5,
// §8's "starts at 10" invariant), and PixelWidth/PixelHeight are always
// 16-bit fields (spec §4.5).
func fixedUintElement(id []byte, value uint64, width int) []byte {
	buf := make([]byte, width)
	v := value
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return element(id, buf)
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
