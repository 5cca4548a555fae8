package encoder

// Type classifies an H.264 NAL unit the encoder returned.
type Type int

const (
	TypeOther Type = iota
	TypeSPS
	TypePPS
	TypeIDR
	TypeNonIDR
)

// NAL is one Annex-B-framed H.264 network abstraction layer unit.
// Payload is copied verbatim into a Matroska SimpleBlock by the muxer.
type NAL struct {
	Type    Type
	Payload []byte
}

// classify maps an H.264 nal_unit_type (the low 5 bits of the NAL
// header byte) to the Type the muxer and cue index care about.
func classify(nalUnitType byte) Type {
	switch nalUnitType & 0x1f {
	case 5:
		return TypeIDR
	case 1:
		return TypeNonIDR
	case 7:
		return TypeSPS
	case 8:
		return TypePPS
	default:
		return TypeOther
	}
}

// ParseAnnexB splits an Annex-B byte stream (one or more NALs separated
// by 0x000001 or 0x00000001 start codes) into individual NALs, each
// still holding its own header byte but without the start code.
func ParseAnnexB(buf []byte) []NAL {
	starts := findStartCodes(buf)
	if len(starts) == 0 {
		return nil
	}

	var out []NAL
	for i, s := range starts {
		end := len(buf)
		if i+1 < len(starts) {
			end = starts[i+1].codeStart
		}
		payload := buf[s.payloadStart:end]
		// Trailing zero-byte padding before the next start code is not
		// part of the NAL payload.
		for len(payload) > 0 && payload[len(payload)-1] == 0 {
			payload = payload[:len(payload)-1]
		}
		if len(payload) == 0 {
			continue
		}
		out = append(out, NAL{Type: classify(payload[0]), Payload: payload})
	}
	return out
}

type startCode struct {
	codeStart    int
	payloadStart int
}

func findStartCodes(buf []byte) []startCode {
	var out []startCode
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] != 0 || buf[i+1] != 0 {
			continue
		}
		if buf[i+2] == 1 {
			out = append(out, startCode{codeStart: i, payloadStart: i + 3})
			i += 2
			continue
		}
		if i+3 < len(buf) && buf[i+2] == 0 && buf[i+3] == 1 {
			out = append(out, startCode{codeStart: i, payloadStart: i + 4})
			i += 3
		}
	}
	return out
}
