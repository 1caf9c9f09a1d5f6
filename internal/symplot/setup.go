package symplot

import (
	"fmt"
	"math"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/viewport"
	"github.com/marben/fractscan/internal/worklist"
)

// Class is the mathematical symmetry of a fractal family.
type Class int

const (
	NoSymmetry Class = iota
	XAxis
	YAxis
	XYAxis
	Origin
	PiXY     // period pi, plus both axes when possible
	PiOrigin // period pi, plus the origin when possible
)

var classNames = [...]string{"none", "xaxis", "yaxis", "xyaxis", "origin", "pi", "pi-origin"}

func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

func (c Class) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(classNames) {
		return nil, fmt.Errorf("symplot: unknown class %d", int(c))
	}
	return []byte(classNames[c]), nil
}

func (c *Class) UnmarshalText(text []byte) error {
	for i, n := range classNames {
		if n == string(text) {
			*c = Class(i)
			return nil
		}
	}
	return fmt.Errorf("symplot: unknown symmetry %q", text)
}

// Rules collects the settings that rule symmetry out or override it.
type Rules struct {
	Skewed bool // rotated or sheared viewport
	Decomp bool
	// Coloring is set when an inside, outside or bailout mode produces
	// colors that are not mirror symmetric.
	Coloring bool
	Forced   bool
	Force    Class
}

// Apply returns the class that is actually used.
func (r Rules) Apply(c Class) Class {
	switch {
	case r.Skewed || r.Decomp:
		return NoSymmetry
	case r.Forced:
		return r.Force
	case r.Coloring:
		return NoSymmetry
	}
	return c
}

// Setup picks the mirroring mode for item. When the symmetry axis cuts the
// item unevenly, one part is split off into q as a new item and item
// shrinks. item.Sym records what was decided so that a resumed item is never
// split twice.
func Setup(store mandel.PixelStore, item *worklist.Item, class Class, vp *viewport.Viewport, q *worklist.Queue) *Plotter {
	s := &splitter{item: item, q: q}
	s.win = Window{
		XStart: item.XStart, XStop: item.XStop,
		YStart: item.YStart, YStop: item.YStop,
		IXStop: item.XStop, IYStop: item.YStop,
	}
	mode := None
	pi := 0
	row, rowBetween, rowOK := vp.AxisRow()
	col, colBetween, colOK := vp.AxisCol()
	if !rowOK {
		row = -1
	}
	if !colOK {
		col = -1
	}

	switch class {
	case XAxis:
		if !s.x(row, rowBetween) {
			mode = Plot2
		}
	case YAxis:
		if !s.y(col, colBetween) {
			mode = Plot2Y
		}
	case XYAxis:
		s.x(row, rowBetween)
		s.y(col, colBetween)
		switch item.Sym & (worklist.SymX | worklist.SymY) {
		case worklist.SymX:
			mode = Plot2
		case worklist.SymY:
			mode = Plot2Y
		case worklist.SymX | worklist.SymY:
			mode = Plot4
		}
	case Origin:
		if !s.x(row, rowBetween) && !s.y(col, colBetween) {
			mode = Plot2J
			s.win.IXStop = s.win.XStop
		} else {
			s.win.IYStop = s.win.YStop
			item.Sym = worklist.SymXDecided | worklist.SymYDecided
		}
	case PiXY, PiOrigin:
		width := math.Abs(vp.Xmax - vp.Xmin)
		if width < math.Pi/4 {
			break
		}
		pi = int(math.Pi / width * float64(vp.W))
		if pi < 1 {
			break
		}
		mode = PiPlot
		if !s.x(row, rowBetween) && !s.y(col, colBetween) {
			mode = PiPlot2J
			if class == PiXY {
				mode = PiPlot4J
			}
		} else {
			s.win.IYStop = s.win.YStop
			item.Sym = worklist.SymXDecided | worklist.SymYDecided
		}
		s.win.IXStop = min(s.win.XStart+pi-1, s.win.XStop)
		if mid := (s.win.XStart + s.win.XStop) / 2; mode == PiPlot4J && s.win.IXStop > mid {
			s.win.IXStop = mid
		}
	}

	mandel.Logger().Debug("symmetry", "item", item.String(), "class", class, "mode", mode,
		"ixstop", s.win.IXStop, "iystop", s.win.IYStop)
	return New(store, s.win, mode, pi)
}

type splitter struct {
	item *worklist.Item
	win  Window
	q    *worklist.Queue
}

// split queues part, keeping one slot free for the item itself to be
// requeued. It reports false when there is no room.
func (s *splitter) split(part worklist.Item) bool {
	if s.q.Free() < 2 || s.q.Add(part) != nil {
		return false
	}
	mandel.Logger().Debug("symmetry split", "part", part.String())
	return true
}

// x decides x axis symmetry for the item. It reports true when the item is
// to be scanned without it.
func (s *splitter) x(row int, between bool) bool {
	it := s.item
	if it.Sym&(worklist.SymX|worklist.SymXDecided) == worklist.SymXDecided {
		return true
	}
	if it.Sym&worklist.SymX != 0 {
		s.win.IYStop = (s.win.YStart + s.win.YStop) / 2
		return false
	}
	it.Sym |= worklist.SymXDecided
	if row <= it.YStart || row >= it.YStop {
		return true
	}
	i := row + (row - it.YStart)
	if between {
		i++
	}
	switch {
	case i > it.YStop:
		// the bottom part holds the axis and gets its own decision later;
		// the top is scanned without symmetry
		stop := row - (it.YStop - row)
		if !between {
			stop--
		}
		if !s.split(worklist.NewItem(it.XStart, it.XStop, stop+1, it.YStop, it.Pass, 0)) {
			return true
		}
		it.YStop = stop
		it.YBegin = min(it.YBegin, stop)
		s.win.YStop, s.win.IYStop = stop, stop
		return true
	case i < it.YStop:
		if !s.split(worklist.NewItem(it.XStart, it.XStop, i+1, it.YStop, it.Pass, worklist.SymXDecided)) {
			return true
		}
		it.YStop = i
		it.YBegin = min(it.YBegin, i)
		s.win.YStop = i
	}
	s.win.IYStop = row
	it.Sym |= worklist.SymX
	return false
}

// y is x for the imaginary axis.
func (s *splitter) y(col int, between bool) bool {
	it := s.item
	if it.Sym&(worklist.SymY|worklist.SymYDecided) == worklist.SymYDecided {
		return true
	}
	if it.Sym&worklist.SymY != 0 {
		s.win.IXStop = (s.win.XStart + s.win.XStop) / 2
		return false
	}
	it.Sym |= worklist.SymYDecided
	if col <= it.XStart || col >= it.XStop {
		return true
	}
	i := col + (col - it.XStart)
	if between {
		i++
	}
	switch {
	case i > it.XStop:
		stop := col - (it.XStop - col)
		if !between {
			stop--
		}
		if !s.split(worklist.NewItem(stop+1, it.XStop, it.YStart, it.YStop, it.Pass, 0)) {
			return true
		}
		it.XStop = stop
		it.XBegin = min(it.XBegin, stop)
		s.win.XStop, s.win.IXStop = stop, stop
		return true
	case i < it.XStop:
		if !s.split(worklist.NewItem(i+1, it.XStop, it.YStart, it.YStop, it.Pass, worklist.SymYDecided)) {
			return true
		}
		it.XStop = i
		it.XBegin = min(it.XBegin, i)
		s.win.XStop = i
	}
	s.win.IXStop = col
	it.Sym |= worklist.SymY
	return false
}
