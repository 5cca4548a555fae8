// Package mkv implements component C5: a purpose-built Matroska/EBML
// muxer that writes exactly the element tree the recording driver needs
// — EBML header, Segment, SeekHead, Info, Tracks, a chain of Clusters
// carrying SimpleBlocks, and a trailing Cues index — with no general
// EBML schema or muxing library underneath (spec §4.5).
package mkv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"screenrec.dev/screenrec/internal/cue"
	"screenrec.dev/screenrec/internal/debuglog"
)

// ErrConfig is returned for muxer configuration failures that are fatal
// to a recording session (spec §7): an oversized CodecPrivate, or a
// Tracks/TrackEntry element that would not fit the mandated one-byte
// size field.
var ErrConfig = errors.New("mkv configuration failed")

const muxingAppName = "screenrec"

// segmentTrackNumber is the single video track's number; the format
// supports exactly one track per spec §1.
const segmentTrackNumber = 1

// Config carries everything the muxer needs to write the fixed scaffold
// once, before the first cluster is opened.
type Config struct {
	Width, Height     uint32
	DefaultDurationNs uint64
	SPS, PPS          []byte
}

// sizeHandle is a deferred-length EBML size field: reserved on write,
// patched in place once its element's true size is known (spec §9's
// design note on back-patching rather than buffering the whole file).
type sizeHandle struct {
	offset    int64 // absolute file offset of the size field itself
	bodyStart int64 // absolute file offset immediately after the size field
}

// writer tracks the current write position of the underlying file so
// that forward writes never need a Seek call; back-patches go through
// WriteAt and leave the current offset untouched.
type writer struct {
	f   *os.File
	pos int64
}

func (w *writer) write(b []byte) error {
	n, err := w.f.Write(b)
	w.pos += int64(n)
	return err
}

func (w *writer) writeAt(b []byte, offset int64) error {
	_, err := w.f.WriteAt(b, offset)
	return err
}

// beginReserved writes id followed by width zero bytes and returns a
// handle to back-patch the size field later.
func (w *writer) beginReserved(id []byte, width int) (*sizeHandle, error) {
	if err := w.write(id); err != nil {
		return nil, err
	}
	h := &sizeHandle{offset: w.pos}
	if err := w.write(make([]byte, width)); err != nil {
		return nil, err
	}
	h.bodyStart = w.pos
	return h, nil
}

// closeSize28 back-patches h's size field with the 4-byte 0x10000000|size
// marker and returns the size written. For an 8-byte-wide reservation
// (Segment) this fills only the first 4 of the reserved bytes, per spec
// §8's testable "28-bit value at offset sizeof(ebml_header)+4" property.
func (w *writer) closeSize28(h *sizeHandle) (uint32, error) {
	size := uint32(w.pos - h.bodyStart)
	return size, w.writeAt(size28(size), h.offset)
}

// Muxer is the open, in-progress Matroska file. It is not safe for
// concurrent use; the recording driver drives it from a single
// goroutine (spec §4.7).
type Muxer struct {
	w *writer

	segment *sizeHandle

	cuesSlotOffset    int64  // absolute file offset of the SeekHead's Cues position field
	segmentBodyStart  int64  // absolute file offset where the Segment body begins

	cluster                *sizeHandle
	clusterOffsetInSegment uint32
	clusterRunningSize     uint32
}

// buildSeekEntry returns one Seek sub-element pointing at targetID, with
// a fixed 4-byte SeekPosition value.
func buildSeekEntry(targetID []byte, position uint32) []byte {
	body := concat(
		element(idSeekID, targetID),
		fixedUintElement(idSeekPos, uint64(position), 4),
	)
	return element(idSeek, body)
}

// buildSeekHead lays out the three fixed Seek entries (Tracks, Info,
// Cues) and reports the byte offset, within the returned SeekHead
// element, of the Cues entry's SeekPosition value — so the caller can
// compute its absolute file offset and back-patch it once Cues is
// written.
func buildSeekHead(tracksPos, infoPos, cuesPos uint32) (bytes []byte, cuesValueOffset int) {
	body := concat(
		buildSeekEntry(idTracks, tracksPos),
		buildSeekEntry(idInfo, infoPos),
	)
	cuesEntryStart := len(body)
	cuesEntry := buildSeekEntry(idCues, cuesPos)
	body = append(body, cuesEntry...)

	headerPrefix := len(idSeekHead) + len(encodeSize(uint64(len(body))))
	cuesValueOffset = headerPrefix + cuesEntryStart + len(cuesEntry) - 4
	return element(idSeekHead, body), cuesValueOffset
}

// buildAVCConfig builds an AVCDecoderConfigurationRecord (spec §4.5)
// from the encoder's SPS/PPS pair.
func buildAVCConfig(sps, pps []byte) ([]byte, error) {
	if len(sps) > 0xFFFF || len(pps) > 0xFFFF {
		return nil, fmt.Errorf("%w: SPS/PPS too large for a 16-bit length prefix", ErrConfig)
	}
	buf := make([]byte, 0, 11+len(sps)+len(pps))
	buf = append(buf, 0x01, 0x42, 0xC0, 0x1F, 0xFF, 0xE1)
	buf = appendBE16(buf, uint16(len(sps)))
	buf = append(buf, sps...)
	buf = append(buf, 0x01)
	buf = appendBE16(buf, uint16(len(pps)))
	buf = append(buf, pps...)
	return buf, nil
}

func appendBE16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func ebmlHeader() []byte {
	body := concat(
		uintElement(idEBMLVersion, 1),
		uintElement(idEBMLReadVersion, 1),
		uintElement(idEBMLMaxIDLength, 4),
		uintElement(idEBMLMaxSizeLength, 8),
		stringElement(idDocType, "matroska"),
		uintElement(idDocTypeVersion, 4),
		uintElement(idDocTypeReadVersion, 2),
	)
	return element(idEBMLHeader, body)
}

// Open writes the fixed scaffold — EBML header, Segment header,
// SeekHead, Tracks, Info, and an initial empty Cluster at timestamp 0 —
// and returns a Muxer ready to receive blocks (spec §4.7).
func Open(f *os.File, cfg Config) (*Muxer, error) {
	w := &writer{f: f}
	if err := w.write(ebmlHeader()); err != nil {
		return nil, err
	}

	segment, err := w.beginReserved(idSegment, 8)
	if err != nil {
		return nil, err
	}
	segmentBodyStart := w.pos

	avcConfig, err := buildAVCConfig(cfg.SPS, cfg.PPS)
	if err != nil {
		return nil, err
	}
	codecPrivate, err := element1(idCodecPriv, avcConfig)
	if err != nil {
		return nil, err
	}

	video := element(idVideo, concat(
		fixedUintElement(idPixelWidth, uint64(cfg.Width), 2),
		fixedUintElement(idPixelHeight, uint64(cfg.Height), 2),
	))

	trackEntryBody := concat(
		uintElement(idTrackNumber, segmentTrackNumber),
		uintElement(idTrackUID, segmentTrackNumber),
		uintElement(idTrackType, 1),
		uintElement(idDefaultDur, cfg.DefaultDurationNs),
		stringElement(idCodecID, "V_MPEG4/ISO/AVC"),
		video,
		codecPrivate,
	)
	trackEntry, err := element1(idTrackEntry, trackEntryBody)
	if err != nil {
		return nil, err
	}
	tracksBytes, err := element1(idTracks, trackEntry)
	if err != nil {
		return nil, err
	}

	infoBody := concat(
		uintElement(idTimestamp, 1),
		stringElement(idMuxingApp, muxingAppName),
		stringElement(idWritingApp, muxingAppName),
	)
	infoBytes := element(idInfo, infoBody)

	probeHead, _ := buildSeekHead(0, 0, 0)
	seekHeadLen := uint32(len(probeHead))
	tracksPos := seekHeadLen
	infoPos := tracksPos + uint32(len(tracksBytes))
	seekHeadBytes, cuesValueOffset := buildSeekHead(tracksPos, infoPos, 0)

	seekHeadFileOffset := w.pos
	if err := w.write(seekHeadBytes); err != nil {
		return nil, err
	}
	if err := w.write(tracksBytes); err != nil {
		return nil, err
	}
	if err := w.write(infoBytes); err != nil {
		return nil, err
	}

	m := &Muxer{
		w:                w,
		segment:          segment,
		segmentBodyStart: segmentBodyStart,
		cuesSlotOffset:   seekHeadFileOffset + int64(cuesValueOffset),
	}
	if err := m.openCluster(0); err != nil {
		return nil, err
	}
	return m, nil
}

// openCluster writes a new Cluster element header with the given
// absolute timestamp. The cluster's running size is always 10
// immediately afterward: 1-byte Timestamp ID + 1-byte size field + an
// 8-byte fixed-width value (spec §8).
func (m *Muxer) openCluster(timestampTicks int64) error {
	m.clusterOffsetInSegment = uint32(m.w.pos - m.segmentBodyStart)
	h, err := m.w.beginReserved(idCluster, 4)
	if err != nil {
		return err
	}
	m.cluster = h
	if err := m.w.write(fixedUintElement(idClusterTimestamp, uint64(timestampTicks), 8)); err != nil {
		return err
	}
	m.clusterRunningSize = uint32(m.w.pos - h.bodyStart)
	debuglog.Debugf("mkv: opened cluster at segment offset %d, timestamp %d", m.clusterOffsetInSegment, timestampTicks)
	return nil
}

// closeCluster back-patches the current cluster's size field.
func (m *Muxer) closeCluster() error {
	_, err := m.w.closeSize28(m.cluster)
	return err
}

// RolloverCluster closes the current cluster and opens a new one at the
// given absolute timestamp. The caller (the recording driver) decides
// when a rollover is due — by cluster-relative timestamp overflow or an
// IDR NAL — per spec §4.7.
func (m *Muxer) RolloverCluster(newTimestampTicks int64) error {
	if err := m.closeCluster(); err != nil {
		return err
	}
	return m.openCluster(newTimestampTicks)
}

// ClusterOffsetInSegment returns the segment-relative byte offset of the
// currently open cluster, for cue-entry bookkeeping.
func (m *Muxer) ClusterOffsetInSegment() uint32 { return m.clusterOffsetInSegment }

// ClusterRunningSize returns the number of bytes written into the
// current cluster's body so far — equivalently, the offset the next
// block will be written at, which the driver records as a cue entry's
// block-relative position before writing the block itself (spec §4.7).
func (m *Muxer) ClusterRunningSize() uint32 { return m.clusterRunningSize }

// WriteBlock writes one SimpleBlock: a 1-byte track number, a
// cluster-relative timestamp, a flags byte, and the NAL payload (spec
// §4.5). The caller is responsible for the oversize guard
// (nal_len+4 > 0x0FFFFFFF) before calling this.
func (m *Muxer) WriteBlock(nal []byte, relativeTimestampTicks uint16) error {
	body := make([]byte, 0, 4+len(nal))
	body = append(body, 0x80|segmentTrackNumber)
	body = binary.BigEndian.AppendUint16(body, relativeTimestampTicks)
	body = append(body, 0x00) // flags: spec §4.5 mandates a literal 0x00, keyframe status not signalled in-band
	body = append(body, nal...)

	block := concat(idSimpleBlock, size28(uint32(len(body))), body)
	if err := m.w.write(block); err != nil {
		return err
	}
	m.clusterRunningSize += uint32(len(block))
	return nil
}

// Finalize closes the last cluster, writes the Cues element, and
// back-patches the SeekHead's Cues position and the Segment's overall
// size (spec §4.5, §4.7). The caller still owns closing the underlying
// file.
func (m *Muxer) Finalize(cues *cue.Index) error {
	if err := m.closeCluster(); err != nil {
		return err
	}

	cuesOffsetInSegment := uint32(m.w.pos - m.segmentBodyStart)
	var cuePoints []byte
	for _, e := range cues.All() {
		cuePoints = append(cuePoints, cuePointBytes(e)...)
	}
	cuesBytes := element(idCues, cuePoints)
	if err := m.w.write(cuesBytes); err != nil {
		return err
	}

	if err := m.w.writeAt(fixedUintBytes(uint64(cuesOffsetInSegment), 4), m.cuesSlotOffset); err != nil {
		return err
	}

	if _, err := m.w.closeSize28(m.segment); err != nil {
		return err
	}
	return nil
}

func cuePointBytes(e cue.Entry) []byte {
	positions := element(idCueTrackPositions, concat(
		uintElement(idCueTrack, segmentTrackNumber),
		fixedUintElement(idCueClusterPos, uint64(e.ClusterOffsetInSegment), 4),
		fixedUintElement(idCueRelativePos, uint64(e.BlockOffsetInCluster), 4),
	))
	body := concat(
		fixedUintElement(idCueTime, uint64(e.TimestampTicks), 8),
		positions,
	)
	return element(idCuePoint, body)
}

func fixedUintBytes(value uint64, width int) []byte {
	buf := make([]byte, width)
	v := value
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}
