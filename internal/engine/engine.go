// Package engine runs a whole calculation: it builds the formula, viewport
// and iterator from a Config, drains the work queue with the chosen scan
// strategy, and turns interrupts into checkpoints that Resume continues
// from.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/formula"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/scan"
	"github.com/marben/fractscan/internal/symplot"
	"github.com/marben/fractscan/internal/viewport"
	"github.com/marben/fractscan/internal/worklist"
)

var (
	ErrCorruptCheckpoint = errors.New("engine: corrupt checkpoint")
	ErrCannotPan         = errors.New("engine: unfinished calculation cannot be panned")
	ErrNoCalculation     = errors.New("engine: no calculation to resume")
)

// Status is how Run ended.
type Status int

const (
	StatusCompleted Status = iota
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusInterrupted:
		return "interrupted"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Calculation is one image being computed. It is not safe for concurrent
// use; Run, Pan and Checkpoint must not overlap.
type Calculation struct {
	cfg     Config
	formula formula.Formula
	vp      *viewport.Viewport
	store   mandel.PixelStore
	poll    mandel.Poller
	env     *scan.Env
	// ctx is set while Run is active
	ctx context.Context

	w, h int
	// logFloor is the automatic log map floor once it is known, 0 before.
	logFloor int
	autoLog  bool

	// stats of iterators replaced by a pan
	pixels, iterations int64
}

// Begin prepares a calculation of the whole store. The store is cleared
// unless quick calc is on, which redoes only the inside colored pixels of
// what the store already holds.
func Begin(cfg Config, store mandel.PixelStore, poll mandel.Poller) (*Calculation, error) {
	c, err := build(cfg, store, poll)
	if err != nil {
		return nil, err
	}
	if !c.cfg.Scan.QuickCalc {
		for y := range c.h {
			store.FillRun(y, 0, c.w-1, 0)
		}
	}
	if err := c.env.Queue.Add(worklist.NewItem(0, c.w-1, 0, c.h-1, 0, 0)); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	mandel.Logger().Info("calculation begins", "fractal", c.formula.Name(), "size", fmt.Sprintf("%dx%d", c.w, c.h),
		"strategy", c.cfg.Strategy.String(), "region", c.vp.Region().String(), "symmetry", c.env.Class.String())
	return c, nil
}

func build(cfg Config, store mandel.PixelStore, poll mandel.Poller) (*Calculation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("engine: a pixel store is required")
	}
	w, h := store.Size()
	cfg.Iterate.Attractors = append([]iterate.Attractor(nil), cfg.Iterate.Attractors...)

	param, _ := formula.DefaultParam(cfg.Fractal)
	if cfg.Param != nil {
		param = complex(cfg.Param.X, cfg.Param.Y)
	}
	f, err := formula.New(cfg.Fractal, param)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	f.Tune(&cfg.Iterate)

	if cfg.Region == (mandel.Region{}) {
		cfg.Region = f.DefaultRegion().Fit(w, h)
	}
	x3, y3 := cfg.Region.Xmin, cfg.Region.Ymin
	if cfg.Corner3 != nil {
		x3, y3 = cfg.Corner3.X, cfg.Corner3.Y
	}
	vp, err := viewport.New(w, h, cfg.Region.Xmin, cfg.Region.Xmax, cfg.Region.Ymin, cfg.Region.Ymax, x3, y3)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	if cfg.Strategy == scan.Boundary {
		ic := cfg.Iterate
		if (ic.Inside == iterate.InsideFixed && ic.InsideColor == 0) || (ic.Outside == iterate.OutsideFixed && ic.OutsideColor == 0) {
			mandel.Logger().Info("boundary tracing cannot follow color 0, guessing instead")
			cfg.Strategy = scan.SolidGuess
		}
	}
	if cfg.Strategy == scan.Boundary {
		// 0 marks unvisited pixels
		cfg.Iterate.NonZero = true
	}
	if cfg.Scan.QuickCalc && cfg.Strategy != scan.OnePass && cfg.Strategy != scan.TwoPass {
		mandel.Logger().Info("quick calc needs a raster strategy, computing everything", "strategy", cfg.Strategy.String())
		cfg.Scan.QuickCalc = false
	}
	if cfg.KeyboardCheck > 0 {
		cfg.Iterate.KeyboardCheck = cfg.KeyboardCheck
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = worklist.DefaultCapacity
	}

	if cfg.FindAttractors && len(cfg.Iterate.Attractors) == 0 && !f.ParameterPlane() {
		closeEnough := vp.DeltaMin() * math.Pow(2, -math.Abs(float64(cfg.Iterate.Periodicity)))
		cfg.Iterate.Attractors = formula.FindAttractors(f, cfg.Iterate, closeEnough)
		mandel.Logger().Debug("finite attractors", "found", len(cfg.Iterate.Attractors))
	}

	c := &Calculation{
		cfg:     cfg,
		formula: f,
		vp:      vp,
		store:   store,
		poll:    poll,
		w:       w,
		h:       h,
		autoLog: !cfg.Iterate.LogMapFly && (abs(cfg.Iterate.LogMap) == 2 || (cfg.Iterate.LogMap != 0 && cfg.Iterate.LogMapAuto)),
	}
	it, err := iterate.New(cfg.Iterate, f, vp, pollerFunc(c))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	c.env = &scan.Env{
		It:    it,
		Vp:    vp,
		Store: store,
		Queue: worklist.New(cfg.QueueCapacity),
		Class: symmetry(cfg, f, vp),
		Opts:  cfg.Scan,
	}
	return c, nil
}

// symmetry is the class the formula's symmetry comes down to under the
// coloring in use.
func symmetry(cfg Config, f formula.Formula, vp *viewport.Viewport) symplot.Class {
	ic := cfg.Iterate
	r := symplot.Rules{
		Skewed: vp.Skewed(),
		Decomp: ic.Decomp > 0,
		Coloring: (ic.Outside != iterate.OutsideIter && ic.Outside != iterate.OutsideFixed) ||
			ic.Inside == iterate.InsideFmodi || ic.BailoutTest == iterate.BailoutManr,
	}
	if cfg.Symmetry != nil {
		r.Forced, r.Force = true, *cfg.Symmetry
	}
	return r.Apply(f.Symmetry())
}

// pollerFunc asks the current context first, then the caller's poller.
func pollerFunc(c *Calculation) mandel.Poller {
	return mandel.PollerFunc(func() bool {
		if c.ctx != nil && c.ctx.Err() != nil {
			return true
		}
		return c.poll != nil && c.poll.Interrupted()
	})
}

func (c *Calculation) Config() Config                { return c.cfg }
func (c *Calculation) Viewport() *viewport.Viewport { return c.vp }
func (c *Calculation) Symmetry() symplot.Class      { return c.env.Class }

// Degraded counts the soft limits the calculation ran into. The image is
// still exact, only computed less efficiently.
func (c *Calculation) Degraded() int { return c.env.Degraded }

// Done reports whether nothing is left to compute.
func (c *Calculation) Done() bool { return c.env.Queue.Empty() && !c.autoLog }

// Stats counts the pixels computed and the orbit steps they took.
func (c *Calculation) Stats() (pixels, iterations int64) {
	p, i := c.env.It.Stats()
	return c.pixels + p, c.iterations + i
}

// Run computes until the queue is empty or an interrupt is requested through
// ctx or the poller. On interrupt it returns StatusInterrupted with a
// checkpoint that Resume accepts.
func (c *Calculation) Run(ctx context.Context) (Status, []byte, error) {
	c.ctx = ctx
	defer func() { c.ctx = nil }()
	e := c.env
	kind := c.cfg.Strategy

	if c.autoLog {
		if !c.autoLogMap() {
			return c.interrupted()
		}
	}
	for {
		var item worklist.Item
		if p := e.Pending; p != nil && e.Queue.Take(p.Item) {
			item = p.Item
			e.Resume = p
		} else {
			var ok bool
			if item, ok = e.Queue.Pop(); !ok {
				break
			}
			e.Resume = nil
		}
		e.It.Rearm()
		err := e.Scan(kind, item)
		if errors.Is(err, scan.ErrInterrupted) {
			return c.interrupted()
		}
		if err != nil {
			return StatusCompleted, nil, fmt.Errorf("engine: %w", err)
		}
		if e.It.Poll() && !e.Queue.Empty() {
			return c.interrupted()
		}
	}
	e.Pending = nil
	pixels, iters := c.Stats()
	mandel.Logger().Info("calculation completed", "pixels", pixels, "iterations", iters, "degraded", e.Degraded)
	return StatusCompleted, nil, nil
}

func (c *Calculation) interrupted() (Status, []byte, error) {
	blob, err := c.Checkpoint()
	if err != nil {
		return StatusInterrupted, nil, err
	}
	mandel.Logger().Info("calculation interrupted", "queued", c.env.Queue.Len(), "checkpoint", len(blob))
	return StatusInterrupted, blob, nil
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
