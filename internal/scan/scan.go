// Package scan holds the strategies that decide in which order the pixels of
// a work item are computed and which of them can be guessed or filled
// instead.
//
// Every strategy computes pixels through an iterate.Iterator and writes them
// through a symplot.Plotter. When the iterator reports an interrupt the
// strategy puts a resumption item back on the queue, together with a Cursor
// holding whatever else is needed to continue exactly where it stopped, and
// returns ErrInterrupted.
package scan

import (
	"fmt"
	"strings"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/symplot"
	"github.com/marben/fractscan/internal/viewport"
	"github.com/marben/fractscan/internal/worklist"
)

// ErrInterrupted is returned by Scan after it requeued the unfinished part
// of an item. It is the iterator's sentinel, so errors.Is works with either.
var ErrInterrupted = iterate.ErrInterrupted

// Kind selects a scanning strategy.
type Kind int

const (
	OnePass Kind = iota
	TwoPass
	SolidGuess
	Boundary
	Tesseral
	Diffusion
)

var kindNames = [...]string{"onepass", "twopass", "guess", "boundary", "tesseral", "diffusion"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("scan: unknown strategy %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, n := range kindNames {
		if n == s {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("scan: unknown strategy %q (known: %s)", text, strings.Join(kindNames[:], ", "))
}

// Pannable reports whether work items of this strategy survive being moved
// by a pan. Tesseral boxes and the diffusion counter describe the whole
// item and cannot be shifted.
func (k Kind) Pannable() bool { return k != Tesseral && k != Diffusion }

// PanStep is what both deltas of a pan must be multiples of while items of
// this strategy are still queued on a w×h screen, lowestPass being the
// smallest pass among them. Two pass computes the even pixels first, and
// solid guessing keeps the corners of its blocks on a fixed grid.
func PanStep(k Kind, w, h, lowestPass int, opts Options) int {
	switch k {
	case TwoPass:
		return 2
	case SolidGuess:
		b, _ := guessBlock(w, h, opts.SkipLimit)
		return max(b>>max(lowestPass-1, 0), 1)
	}
	return 1
}

// DefaultSkipLimit is the largest solid guess skip grid, in blocks, before
// the block size is doubled.
const DefaultSkipLimit = 1 << 16

// Options tune the strategies.
type Options struct {
	// QuickCalc makes the raster strategies recompute only pixels that
	// currently hold the inside color.
	QuickCalc bool `json:"quickcalc"`
	// FillColor is used by the fills of boundary tracing, tesseral and
	// diffusion. Negative keeps the color found, 0 disables filling and
	// positive values paint that color.
	FillColor int `json:"fillcolor"`
	// GuessEdges lets solid guessing guess the right and bottom edges of
	// the screen.
	GuessEdges bool `json:"guessedges"`
	SkipLimit  int  `json:"skiplimit,omitempty"`
}

// Env is everything a strategy works with. One Env is reused for all items
// of a calculation.
type Env struct {
	It    *iterate.Iterator
	Vp    *viewport.Viewport
	Store mandel.PixelStore
	Queue *worklist.Queue
	Class symplot.Class
	Opts  Options

	// Resume is the cursor saved for the item passed to the next Scan. Scan
	// consumes it.
	Resume *Cursor
	// Pending is the cursor of the item requeued by the last interrupt, or
	// nil when that item needs none.
	Pending *Cursor
	// Degraded counts the times a soft limit was exceeded.
	Degraded int
}

// scanner is the per item state shared by all strategies.
type scanner struct {
	env    *Env
	it     *iterate.Iterator
	store  mandel.PixelStore
	plot   *symplot.Plotter
	item   worklist.Item
	resume *Cursor
}

// Scan computes one work item with the given strategy.
func (e *Env) Scan(kind Kind, item worklist.Item) error {
	resume := e.Resume
	e.Resume, e.Pending = nil, nil
	if resume != nil && resume.Item != item {
		resume = nil
	}

	// items start from a clean slate; cursors bring back their own carry
	e.It.ResetPeriodicity()
	s := &scanner{env: e, it: e.It, store: e.Store, resume: resume}
	s.plot = symplot.Setup(e.Store, &item, e.Class, e.Vp, e.Queue)
	s.item = item
	mandel.Logger().Debug("scan item", "strategy", kind.String(), "item", item.String(), "mode", s.plot.Mode().String(), "resumed", resume != nil)

	switch kind {
	case OnePass:
		return s.raster(false)
	case TwoPass:
		return s.raster(true)
	case SolidGuess:
		return s.solidGuess()
	case Boundary:
		return s.boundary()
	case Tesseral:
		return s.tesseral()
	case Diffusion:
		return s.diffusion()
	}
	return fmt.Errorf("scan: unknown strategy %d", int(kind))
}

// calc computes and plots one pixel.
func (s *scanner) calc(x, y int) (int, error) {
	c, err := s.it.Color(x, y)
	if err != nil {
		return 0, err
	}
	s.plot.Plot(x, y, c)
	return c, nil
}

func (s *scanner) fillRun(y, x0, x1, c int) {
	s.it.Spend(s.plot.FillRun(y, x0, x1, c))
}

// requeue puts the unfinished part of an item back on the queue. The queue
// grows rather than lose work.
func (s *scanner) requeue(it worklist.Item, cur *Cursor) {
	e := s.env
	if err := e.Queue.Add(it); err != nil {
		e.Queue.Grow(1)
		e.Degraded++
		mandel.Logger().Warn("work queue full, growing it", "capacity", e.Queue.Cap(), "item", it.String())
		_ = e.Queue.Add(it)
	}
	if cur != nil {
		cur.Item = it
	}
	e.Pending = cur
}

// postpone requeues the item at the start of a later pass so that other
// queued items get their coarse pass first. It reports false when the queue
// has no room, in which case the caller just carries on.
func (s *scanner) postpone(pass int) bool {
	it := worklist.NewItem(s.item.XStart, s.item.XStop, s.item.YStart, s.item.YStop, pass, s.item.Sym)
	if err := s.env.Queue.Add(it); err != nil {
		return false
	}
	s.env.Pending = nil
	return true
}

// fillColor is the color used by fills for a region found to be c.
func (s *scanner) fillColor(c int) int {
	if f := s.env.Opts.FillColor; f > 0 {
		return f
	}
	return c
}
