//go:build linux

package encoder

import (
	"fmt"
	"unsafe"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// x264Encoder backs Encoder with libx264 through ffmpeg-statigo,
// configured per spec §4.4: 8-bit, RGB color space, width/height fixed
// for the session, CFR (not VFR), no repeated headers (SPS/PPS are
// fetched once via Headers, not re-emitted per frame), Annex-B framing,
// profile high444.
type x264Encoder struct {
	ctx    *ffmpeg.AVCodecContext
	frame  *ffmpeg.AVFrame
	pktBuf *ffmpeg.AVPacket

	width, height uint32
	headersSent   bool
}

// New opens and configures the libx264 encoder. Any failure here is a
// fatal configuration error (spec §7).
func New(cfg Config) (Encoder, error) {
	preset := cfg.Preset
	if preset == "" {
		preset = "medium"
	}

	codec := ffmpeg.AVCodecFindEncoderByName(ffmpeg.ToCStr("libx264"))
	if codec == nil {
		return nil, fmt.Errorf("%w: libx264 encoder not available", ErrConfig)
	}

	ctx := ffmpeg.AVCodecAllocContext3(codec)
	if ctx == nil {
		return nil, fmt.Errorf("%w: alloc codec context", ErrConfig)
	}

	ctx.SetWidth(cfg.Width)
	ctx.SetHeight(cfg.Height)
	ctx.SetPixFmt(ffmpeg.AVPixFmtRgb24)
	ctx.SetProfile(ffmpeg.FFProfileH264High444Predictive)
	ctx.SetTimeBase(ffmpeg.AVMakeQ(1, 1))  // caller supplies integer PTS directly
	ctx.SetFramerate(ffmpeg.AVMakeQ(0, 1)) // non-VFR: no fixed-rate assumption imposed here
	ctx.SetGopSize(0)                      // the encoder places IDRs; the driver's cue/cluster policy only reacts to them
	ctx.SetFlags(ctx.Flags() | ffmpeg.AVCodecFlagGlobalHeader)

	var opts *ffmpeg.AVDictionary
	defer ffmpeg.AVDictFree(&opts)
	ffmpeg.AVDictSet(&opts, ffmpeg.ToCStr("preset"), ffmpeg.ToCStr(preset), 0)
	ffmpeg.AVDictSet(&opts, ffmpeg.ToCStr("x264-params"), ffmpeg.ToCStr("annexb=1:repeat-headers=0"), 0)

	if ret, err := ffmpeg.AVCodecOpen2(ctx, codec, &opts); err != nil || ret < 0 {
		return nil, fmt.Errorf("%w: open libx264: ret=%d err=%v", ErrConfig, ret, err)
	}

	frame := ffmpeg.AVFrameAlloc()
	if frame == nil {
		return nil, fmt.Errorf("%w: alloc frame", ErrConfig)
	}
	frame.SetWidth(cfg.Width)
	frame.SetHeight(cfg.Height)
	frame.SetFormat(int(ffmpeg.AVPixFmtRgb24))
	if ret, err := ffmpeg.AVFrameGetBuffer(frame, 0); err != nil || ret < 0 {
		return nil, fmt.Errorf("%w: allocate frame buffer: ret=%d err=%v", ErrConfig, ret, err)
	}

	return &x264Encoder{
		ctx:    ctx,
		frame:  frame,
		pktBuf: ffmpeg.AVPacketAlloc(),
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

// Headers returns the SPS/PPS pair carried in the codec's extradata,
// populated once AVCodecOpen2 has run with AV_CODEC_FLAG_GLOBAL_HEADER
// set and repeat-headers disabled in x264.
func (e *x264Encoder) Headers() ([]NAL, error) {
	data := e.ctx.Extradata()
	size := e.ctx.ExtradataSize()
	if size == 0 {
		return nil, fmt.Errorf("%w: encoder produced no extradata", ErrConfig)
	}

	buf := unsafe.Slice(data, size)
	copied := make([]byte, size)
	copy(copied, buf)

	nals := ParseAnnexB(copied)
	var out []NAL
	for _, n := range nals {
		if n.Type == TypeSPS || n.Type == TypePPS {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no SPS/PPS in extradata", ErrConfig)
	}
	return out, nil
}

// Encode submits one packed RGB24 frame with pts and drains whatever
// packets libx264 is ready to emit.
func (e *x264Encoder) Encode(rgb []byte, pts int64) ([]NAL, error) {
	if len(rgb) != int(e.width)*int(e.height)*3 {
		return nil, fmt.Errorf("encode: frame size %d, want %d", len(rgb), e.width*e.height*3)
	}

	if ret, err := ffmpeg.AVFrameMakeWritable(e.frame); err != nil || ret < 0 {
		return nil, fmt.Errorf("frame not writable: ret=%d err=%v", ret, err)
	}
	dst := unsafe.Slice(e.frame.Data(0), len(rgb))
	copy(dst, rgb)
	e.frame.SetPts(pts)

	if ret, err := ffmpeg.AVCodecSendFrame(e.ctx, e.frame); err != nil || ret < 0 {
		return nil, fmt.Errorf("send frame: ret=%d err=%v", ret, err)
	}

	var out []NAL
	for {
		ret, err := ffmpeg.AVCodecReceivePacket(e.ctx, e.pktBuf)
		if ret == ffmpeg.AVErrorEAGAIN || ret == ffmpeg.AVErrorEOF {
			break
		}
		if err != nil || ret < 0 {
			return nil, fmt.Errorf("receive packet: ret=%d err=%v", ret, err)
		}

		data := unsafe.Slice(e.pktBuf.Data(), e.pktBuf.Size())
		payload := make([]byte, len(data))
		copy(payload, data)
		ffmpeg.AVPacketUnref(e.pktBuf)

		out = append(out, ParseAnnexB(payload)...)
	}
	return out, nil
}

func (e *x264Encoder) Close() error {
	if e.pktBuf != nil {
		ffmpeg.AVPacketFree(&e.pktBuf)
	}
	if e.frame != nil {
		ffmpeg.AVFrameFree(&e.frame)
	}
	if e.ctx != nil {
		ffmpeg.AVCodecFreeContext(&e.ctx)
	}
	return nil
}
