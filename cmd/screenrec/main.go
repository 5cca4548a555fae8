// Command screenrec captures the primary display to a Matroska file, or
// reports device information, or takes a single screenshot, depending
// on the mode flag selected (internal/cli). This file is deliberately
// thin: every decision other than "turn a terminal error into an exit
// code" lives in a library package (spec.md §9's "Fatal-exit style"
// design note).
package main

import (
	"fmt"
	"os"

	"screenrec.dev/screenrec/internal/cli"
	"screenrec.dev/screenrec/internal/detile"
	"screenrec.dev/screenrec/internal/driver"
	"screenrec.dev/screenrec/internal/drmsrc"
	"screenrec.dev/screenrec/internal/framebuffer"
	"screenrec.dev/screenrec/internal/ppm"
	"screenrec.dev/screenrec/internal/sessioninfo"
)

func main() {
	cfg, err := cli.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var runErr error
	switch cfg.Mode {
	case cli.ModeHelp:
		fmt.Fprint(os.Stdout, cli.UsageText)
	case cli.ModeDumpInfo:
		runErr = runDumpInfo(os.Stdout)
	case cli.ModeScreenshot:
		runErr = runScreenshot(cfg)
	case cli.ModeRecord:
		runErr = runRecord(cfg)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func runRecord(cfg *cli.Config) error {
	source := drmsrc.New("")
	return driver.Run(driver.Config{
		Source:     source,
		Geometry:   cfg.Geometry,
		Interval:   cfg.Interval,
		Preset:     cfg.Preset,
		OutputPath: cfg.Output,
	})
}

func runScreenshot(cfg *cli.Config) error {
	source := drmsrc.New("")
	view, err := source.Open()
	if err != nil {
		return fmt.Errorf("acquire framebuffer: %w", err)
	}
	defer source.Close()

	geometry, err := cfg.Geometry.Resolve(view.Width, view.Height)
	if err != nil {
		return fmt.Errorf("geometry: %w", err)
	}

	rgb, err := captureStillRGB(view, geometry)
	if err != nil {
		return err
	}

	return ppm.Encode(os.Stdout, geometry.W, geometry.H, rgb)
}

// captureStillRGB detiles one frame synchronously in the calling
// goroutine, since --take-screenshot does not need the vblank-paced
// recording pipeline's worker pool.
func captureStillRGB(view *framebuffer.View, geometry framebuffer.Geometry) ([]byte, error) {
	view.ResolveFourCC()
	layout := view.Layout()

	rgb := make([]byte, int(geometry.W)*int(geometry.H)*3)
	detile.Run(detile.Strip{
		In:       view.Bytes,
		Pitch:    view.PitchBytes,
		Layout:   layout,
		Geometry: geometry,
		Out:      rgb,
		Y0Y1:     [2]uint32{0, geometry.H},
	})
	return rgb, nil
}

func runDumpInfo(out *os.File) error {
	cards, err := drmsrc.DiscoverCards()
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Fprintln(out, "no DRM device nodes found under /dev/dri")
	}

	for _, path := range cards {
		fmt.Fprintf(out, "%s:\n", path)
		src := drmsrc.New(path)
		view, err := src.Open()
		if err != nil {
			fmt.Fprintf(out, "  (no active scanout: %v)\n", err)
			continue
		}
		fmt.Fprintf(out, "  %dx%d @ %.2fHz, fourcc=%#x, modifier=%#x\n",
			view.Width, view.Height, view.RefreshHz, uint32(view.FourCC), uint64(view.Modifier))
		src.Close()
	}

	caps, err := sessioninfo.Query()
	if err != nil {
		fmt.Fprintf(out, "portal enrichment unavailable: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "desktop portal: %s\n", caps.Describe())
	return nil
}
