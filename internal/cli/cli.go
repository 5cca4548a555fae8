// Package cli implements component C8: flag parsing, the geometry
// grammar, help text, and mode dispatch (spec §6). Argument parsing
// itself is scoped out of the core's hard problem per spec §1, but is
// still implemented here to a full, tested contract, following the
// teacher's Options-struct-plus-normalize shape from hls/session.go.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"screenrec.dev/screenrec/internal/framebuffer"
)

// ErrUsage is returned for any flag, geometry, or mode validation
// failure. For a flag or geometry parse error the help text has already
// been written to Parse's usageOut; the caller reports the error and
// exits 1 (spec §6).
var ErrUsage = errors.New("usage error")

// Mode selects which of the three mutually-exclusive actions to run.
// When more than one mode flag is given, the last one parsed wins
// (spec §6).
type Mode int

const (
	ModeHelp Mode = iota
	ModeDumpInfo
	ModeScreenshot
	ModeRecord
)

// Config is the fully parsed and validated command line.
type Config struct {
	Mode     Mode
	Geometry framebuffer.Geometry
	Preset   string
	Interval uint32
	Output   string
}

const defaultPreset = "medium"

// modeSetter is a bool-shaped flag.Value that records which mode flag
// was seen; flag.Parse calls Set in argument order, so the last one
// seen naturally wins without extra bookkeeping.
type modeSetter struct {
	cfg  *Config
	mode Mode
}

func (m *modeSetter) String() string     { return "" }
func (m *modeSetter) IsBoolFlag() bool   { return true }
func (m *modeSetter) Set(string) error {
	m.cfg.Mode = m.mode
	return nil
}

// geometryValue is a flag.Value wrapping parseGeometry so an invalid
// --geometry string fails during flag.Parse itself.
type geometryValue struct {
	cfg *Config
	set bool
}

func (g *geometryValue) String() string {
	if !g.set {
		return ""
	}
	return fmt.Sprintf("%d,%d,%dx%d", g.cfg.Geometry.X, g.cfg.Geometry.Y, g.cfg.Geometry.W, g.cfg.Geometry.H)
}

func (g *geometryValue) Set(s string) error {
	parsed, err := parseGeometry(s)
	if err != nil {
		return err
	}
	g.cfg.Geometry = parsed
	g.set = true
	return nil
}

// Parse parses args (not including the program name) into a Config.
// usageOut receives the help text on a flag parse error. --help/-h only
// selects ModeHelp; printing the help text for it is left to the caller.
func Parse(args []string, usageOut io.Writer) (*Config, error) {
	cfg := &Config{Mode: ModeHelp, Preset: defaultPreset, Interval: 1}

	fs := flag.NewFlagSet("screenrec", flag.ContinueOnError)
	fs.SetOutput(usageOut)
	fs.Usage = func() { fmt.Fprint(usageOut, UsageText) }

	registerModeFlag(fs, cfg, ModeDumpInfo, "dump-info", "d")
	registerModeFlag(fs, cfg, ModeScreenshot, "take-screenshot", "s")
	registerModeFlag(fs, cfg, ModeRecord, "record-screen", "r")

	presetDest := presetFlag{cfg: cfg}
	fs.Var(&presetDest, "preset", "encoder preset (default medium)")
	fs.Var(&presetDest, "p", "encoder preset (default medium)")

	geom := &geometryValue{cfg: cfg}
	fs.Var(geom, "geometry", "sub-rectangle X,Y[,WxH]")
	fs.Var(geom, "g", "sub-rectangle X,Y[,WxH]")

	interval := intervalFlag{cfg: cfg}
	fs.Var(&interval, "record-every-th", "captured-frame interval in vblanks, 1..9")
	fs.Var(&interval, "y", "captured-frame interval in vblanks, 1..9")

	fs.StringVar(&cfg.Output, "output", "", "output file path (record mode)")
	fs.StringVar(&cfg.Output, "o", "", "output file path (record mode)")

	help := boolFlagAlias{fn: func() { cfg.Mode = ModeHelp }}
	fs.Var(&help, "help", "print help and exit")
	fs.Var(&help, "h", "print help and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if cfg.Mode == ModeRecord && cfg.Output == "" {
		return nil, fmt.Errorf("%w: --output is required for --record-screen", ErrUsage)
	}
	if cfg.Interval == 0 {
		cfg.Interval = 1
	}
	if cfg.Interval > 9 {
		return nil, fmt.Errorf("%w: --record-every-th must be 1..9, got %d", ErrUsage, cfg.Interval)
	}

	return cfg, nil
}

func registerModeFlag(fs *flag.FlagSet, cfg *Config, mode Mode, long, short string) {
	m := &modeSetter{cfg: cfg, mode: mode}
	fs.Var(m, long, fmt.Sprintf("select mode %v", mode))
	fs.Var(&modeSetter{cfg: cfg, mode: mode}, short, fmt.Sprintf("select mode %v (short for --%s)", mode, long))
}

type boolFlagAlias struct {
	fn func()
	on bool
}

func (b *boolFlagAlias) String() string   { return "" }
func (b *boolFlagAlias) IsBoolFlag() bool { return true }
func (b *boolFlagAlias) Set(string) error {
	b.on = true
	b.fn()
	return nil
}

type presetFlag struct {
	cfg *Config
	set bool
}

func (p *presetFlag) String() string {
	if p.cfg == nil {
		return defaultPreset
	}
	return p.cfg.Preset
}
func (p *presetFlag) Set(v string) error {
	if v == "" {
		return fmt.Errorf("%w: --preset requires a name", ErrUsage)
	}
	p.cfg.Preset = v
	p.set = true
	return nil
}

type intervalFlag struct {
	cfg *Config
}

func (i *intervalFlag) String() string {
	if i.cfg == nil {
		return "1"
	}
	return fmt.Sprintf("%d", i.cfg.Interval)
}
func (i *intervalFlag) Set(v string) error {
	if len(v) != 1 || v[0] < '1' || v[0] > '9' {
		return fmt.Errorf("%w: --record-every-th must be a single digit 1..9, got %q", ErrUsage, v)
	}
	i.cfg.Interval = uint32(v[0] - '0')
	return nil
}

// parseGeometry implements the grammar from spec §6: digits form decimal
// integers, commas advance the field X→Y→W, and an 'x' or 'X' separates
// W from H within the third field. Unset W or H mean "to the right/
// bottom edge" and are left zero here for framebuffer.Geometry.Resolve
// to fill in. This is the corrected grammar spec.md §9 calls for, not
// the original source's reassignment-chain bug.
func parseGeometry(s string) (framebuffer.Geometry, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return framebuffer.Geometry{}, fmt.Errorf("%w: geometry %q: expected X,Y or X,Y,WxH", ErrUsage, s)
	}

	x, err := parseDecimalUint(parts[0])
	if err != nil {
		return framebuffer.Geometry{}, err
	}
	y, err := parseDecimalUint(parts[1])
	if err != nil {
		return framebuffer.Geometry{}, err
	}
	g := framebuffer.Geometry{X: x, Y: y}

	if len(parts) == 3 {
		wh := parts[2]
		sep := strings.IndexAny(wh, "xX")
		if sep < 0 {
			return framebuffer.Geometry{}, fmt.Errorf("%w: geometry %q: third field must be WxH", ErrUsage, s)
		}
		w, err := parseDecimalUint(wh[:sep])
		if err != nil {
			return framebuffer.Geometry{}, err
		}
		h, err := parseDecimalUint(wh[sep+1:])
		if err != nil {
			return framebuffer.Geometry{}, err
		}
		g.W, g.H = w, h
	}
	return g, nil
}

func parseDecimalUint(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty numeric field in geometry", ErrUsage)
	}
	var v uint64
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q is not a decimal integer", ErrUsage, s)
		}
		v = v*10 + uint64(c-'0')
		if v > (1<<32 - 1) {
			return 0, fmt.Errorf("%w: %q overflows a 32-bit coordinate", ErrUsage, s)
		}
	}
	return uint32(v), nil
}

// UsageText is printed for --help and on any flag parse error.
const UsageText = `screenrec — capture the primary display to a Matroska file

  -d, --dump-info              enumerate devices and print a report
  -s, --take-screenshot        write a binary PPM screenshot to stdout
  -r, --record-screen          record until stdin becomes readable
  -p, --preset NAME            encoder preset (default medium)
  -g, --geometry X,Y[,WxH]     capture sub-rectangle
  -y, --record-every-th N      captured-frame interval in vblanks, 1..9
  -o, --output FILE            output file path (record mode)
  -h, --help                   print this help
`
