// Command render computes one fractal image and writes it as PNG, TIFF or
// BMP. Ctrl-C stops the calculation and saves a checkpoint that -resume
// continues from.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/checkpoint"
	"github.com/marben/fractscan/internal/engine"
	"github.com/marben/fractscan/internal/formula"
	"github.com/marben/fractscan/internal/framebuffer"
	"github.com/marben/fractscan/internal/scan"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

type options struct {
	width, height int
	params        string
	fractal       string
	param         string
	region        string
	strategy      string
	maxIter       int
	palette       string
	out           string
	checkpoint    string
	resume        bool
	saveParams    string
	verbose       bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fl := flag.NewFlagSet("render", flag.ContinueOnError)
	fl.IntVar(&o.width, "w", 800, "image width")
	fl.IntVar(&o.height, "h", 600, "image height")
	fl.StringVar(&o.params, "params", "", "JSON parameter file")
	fl.StringVar(&o.fractal, "fractal", "", "fractal type: "+strings.Join(formula.Names(), ", "))
	fl.StringVar(&o.param, "param", "", "formula parameter as re,im")
	fl.StringVar(&o.region, "region", "", "named region ("+strings.Join(mandel.RegionNames(), ", ")+") or xmin,xmax,ymin,ymax")
	fl.StringVar(&o.strategy, "strategy", "", "scan strategy: "+strategies())
	fl.IntVar(&o.maxIter, "maxiter", 0, "iteration limit")
	fl.StringVar(&o.palette, "palette", "rainbow", "rainbow or gray")
	fl.StringVar(&o.out, "o", "fractal.png", "output image; the extension picks png, tiff or bmp")
	fl.StringVar(&o.checkpoint, "checkpoint", "render.fsc", "file an interrupted calculation is saved to")
	fl.BoolVar(&o.resume, "resume", false, "continue the calculation saved in -checkpoint")
	fl.StringVar(&o.saveParams, "save-params", "", "write the effective parameters to this JSON file")
	fl.BoolVar(&o.verbose, "v", false, "log calculation events")
	if err := fl.Parse(args); err != nil {
		return o, err
	}
	if o.width <= 0 || o.height <= 0 {
		return o, fmt.Errorf("image size %dx%d", o.width, o.height)
	}
	return o, nil
}

// config applies the flags over the parameter file.
func (o options) config() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if o.params != "" {
		var err error
		if cfg, err = engine.LoadConfig(o.params); err != nil {
			return cfg, err
		}
	}
	if o.fractal != "" {
		cfg.Fractal = o.fractal
	}
	if o.param != "" {
		x, y, err := pair(o.param)
		if err != nil {
			return cfg, fmt.Errorf("-param: %w", err)
		}
		cfg.Param = &engine.Corner{X: x, Y: y}
	}
	if o.region != "" {
		r, err := parseRegion(o.region)
		if err != nil {
			return cfg, fmt.Errorf("-region: %w", err)
		}
		cfg.Region = r.Fit(o.width, o.height)
		cfg.Corner3 = nil
	}
	if o.strategy != "" {
		if err := cfg.Strategy.UnmarshalText([]byte(o.strategy)); err != nil {
			return cfg, fmt.Errorf("-strategy: %w", err)
		}
	}
	if o.maxIter > 0 {
		cfg.Iterate.MaxIter = o.maxIter
	}
	return cfg, cfg.Validate()
}

func pair(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q: want two numbers", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func parseRegion(s string) (mandel.Region, error) {
	if !strings.Contains(s, ",") {
		return mandel.RegionByName(s)
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return mandel.Region{}, fmt.Errorf("%q: want xmin,xmax,ymin,ymax", s)
	}
	var f [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mandel.Region{}, err
		}
		f[i] = v
	}
	return mandel.Region{Xmin: f[0], Xmax: f[1], Ymin: f[2], Ymax: f[3]}, nil
}

func run() error {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	if o.verbose {
		mandel.SetLogger(slog.Default())
	}
	p := message.NewPrinter(language.English)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calc, buf, err := prepare(o)
	if err != nil {
		return err
	}
	if o.saveParams != "" {
		if err := engine.SaveConfig(o.saveParams, calc.Config()); err != nil {
			return err
		}
	}

	cfg := calc.Config()
	log.Print(p.Sprintf("rendering %s %dx%d with %v, %d iterations", cfg.Fractal, o.width, o.height, cfg.Strategy, cfg.Iterate.MaxIter))
	start := time.Now()
	st, _, err := calc.Run(ctx)
	if err != nil {
		return fmt.Errorf("calculation: %w", err)
	}
	pixels, iters := calc.Stats()

	if st == engine.StatusInterrupted {
		s, err := checkpoint.Capture(calc, buf)
		if err != nil {
			return err
		}
		if err := checkpoint.Save(o.checkpoint, s); err != nil {
			return err
		}
		log.Print(p.Sprintf("interrupted after %d pixels; continue with -resume -checkpoint %s", pixels, o.checkpoint))
		return nil
	}

	if err := buf.Save(o.out); err != nil {
		return err
	}
	if o.resume {
		if err := os.Remove(o.checkpoint); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("remove checkpoint: %v", err)
		}
	}
	log.Print(p.Sprintf("%d pixels computed, %d iterations, in %v", pixels, iters, time.Since(start).Round(time.Millisecond)))
	if n := calc.Degraded(); n > 0 {
		log.Printf("work queue overflowed %d times; the image is exact but took longer", n)
	}
	log.Printf("image saved to %q", o.out)
	return nil
}

// prepare starts a new calculation or restores the checkpoint.
func prepare(o options) (*engine.Calculation, *framebuffer.Buffer, error) {
	if o.resume {
		s, err := checkpoint.Load(o.checkpoint)
		if err != nil {
			return nil, nil, err
		}
		pal, ok := framebuffer.PaletteByName(o.palette, s.Config.Iterate.Colors)
		if !ok {
			return nil, nil, fmt.Errorf("unknown palette %q", o.palette)
		}
		return s.Restore(pal, nil)
	}
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	pal, ok := framebuffer.PaletteByName(o.palette, cfg.Iterate.Colors)
	if !ok {
		return nil, nil, fmt.Errorf("unknown palette %q", o.palette)
	}
	buf := framebuffer.New(o.width, o.height, pal)
	calc, err := engine.Begin(cfg, buf, nil)
	if err != nil {
		return nil, nil, err
	}
	return calc, buf, nil
}

func strategies() string {
	var names []string
	for k := scan.OnePass; k <= scan.Diffusion; k++ {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}
