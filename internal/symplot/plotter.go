// Package symplot mirrors pixel writes across the symmetry axes of the
// fractal being drawn.
//
// A Plotter is set up once per work item. Mirrored coordinates are computed
// from the item's logical window, and a mirrored write only happens when it
// lands past the part of the window that is scanned directly and inside the
// screen.
package symplot

import (
	"fmt"

	mandel "github.com/marben/fractscan"
)

// Mode is the mirroring rule in effect for one work item.
type Mode int

const (
	None     Mode = iota
	Plot2         // x axis
	Plot2Y        // y axis
	Plot4         // both axes
	Plot2J        // origin
	PiPlot        // period pi along rows
	PiPlot2J      // period pi plus origin
	PiPlot4J      // period pi plus both axes
)

var modeNames = [...]string{"none", "plot2", "plot2y", "plot4", "plot2j", "piplot", "piplot2j", "piplot4j"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Window is the logical extent of a work item. IXStop and IYStop bound the
// part that is scanned directly; everything past them is filled by mirroring.
type Window struct {
	XStart, XStop int
	YStart, YStop int
	IXStop, IYStop int
}

type Plotter struct {
	Window
	mode  Mode
	pi    int
	store mandel.PixelStore
	w, h  int
}

// New returns a plotter for an explicit mode. Setup picks the mode from the
// fractal's symmetry class instead.
func New(store mandel.PixelStore, win Window, mode Mode, piPixels int) *Plotter {
	w, h := store.Size()
	if piPixels < 1 {
		piPixels = 1
	}
	return &Plotter{Window: win, mode: mode, pi: piPixels, store: store, w: w, h: h}
}

func (p *Plotter) Mode() Mode { return p.mode }

// Store is the unmirrored pixel store.
func (p *Plotter) Store() mandel.PixelStore { return p.store }

// Screen returns the size of the pixel store.
func (p *Plotter) Screen() (w, h int) { return p.w, p.h }

func (p *Plotter) mirrorRow(y int) (int, bool) {
	i := p.YStop - (y - p.YStart)
	return i, i > p.IYStop && i < p.h
}

func (p *Plotter) mirrorCol(x int) (int, bool) {
	j := p.XStop - (x - p.XStart)
	return j, j > p.IXStop && j < p.w
}

// Plot writes one pixel and its mirror images.
func (p *Plotter) Plot(x, y, c int) {
	s := p.store
	switch p.mode {
	case None:
		s.SetColor(x, y, c)
	case Plot2:
		s.SetColor(x, y, c)
		if i, ok := p.mirrorRow(y); ok {
			s.SetColor(x, i, c)
		}
	case Plot2Y:
		s.SetColor(x, y, c)
		if j, ok := p.mirrorCol(x); ok {
			s.SetColor(j, y, c)
		}
	case Plot2J:
		s.SetColor(x, y, c)
		p.plotOrigin(x, y, c)
	case Plot4:
		s.SetColor(x, y, c)
		j, jok := p.mirrorCol(x)
		if jok {
			s.SetColor(j, y, c)
		}
		if i, ok := p.mirrorRow(y); ok {
			s.SetColor(x, i, c)
			if jok {
				s.SetColor(j, i, c)
			}
		}
	case PiPlot:
		for ; x <= p.XStop; x += p.pi {
			s.SetColor(x, y, c)
		}
	case PiPlot2J:
		for ; x <= p.XStop; x += p.pi {
			s.SetColor(x, y, c)
			p.plotOrigin(x, y, c)
		}
	case PiPlot4J:
		for ; x <= (p.XStart+p.XStop)/2; x += p.pi {
			s.SetColor(x, y, c)
			j := p.XStop - (x - p.XStart)
			jok := j != x && j < p.w
			if jok {
				s.SetColor(j, y, c)
			}
			if i, ok := p.mirrorRow(y); ok {
				s.SetColor(x, i, c)
				if jok {
					s.SetColor(j, i, c)
				}
			}
		}
	}
}

func (p *Plotter) plotOrigin(x, y, c int) {
	i, ok := p.mirrorRow(y)
	if !ok {
		return
	}
	if j := p.XStop - (x - p.XStart); j >= 0 && j < p.w {
		p.store.SetColor(j, i, c)
	}
}

// FillRun paints [x0,x1] of row y with one color plus the mirrored runs.
// It returns the work units the write is worth for interrupt polling.
func (p *Plotter) FillRun(y, x0, x1, c int) int {
	n := x1 - x0 + 1
	if n <= 0 {
		return 0
	}
	s := p.store
	switch p.mode {
	case None:
		s.FillRun(y, x0, x1, c)
		return n >> 4
	case Plot2:
		s.FillRun(y, x0, x1, c)
		if i, ok := p.mirrorRow(y); ok {
			s.FillRun(i, x0, x1, c)
			return n >> 3
		}
		return 0
	case Plot2Y:
		s.FillRun(y, x0, x1, c)
		if j, k := p.mirrorRun(x0, x1, true); j <= k {
			s.FillRun(y, j, k, c)
		}
		return n >> 3
	case Plot2J:
		s.FillRun(y, x0, x1, c)
		if i, ok := p.mirrorRow(y); ok {
			if j, k := p.mirrorRun(x0, x1, false); j <= k {
				s.FillRun(i, j, k, c)
			}
		}
		return n >> 3
	case Plot4:
		s.FillRun(y, x0, x1, c)
		j, k := p.mirrorRun(x0, x1, true)
		if i, ok := p.mirrorRow(y); ok {
			s.FillRun(i, x0, x1, c)
			if j <= k {
				s.FillRun(i, j, k, c)
			}
		}
		if j <= k {
			s.FillRun(y, j, k, c)
		}
		return n >> 2
	}
	for x := x0; x <= x1; x++ {
		p.Plot(x, y, c)
	}
	return n >> 1
}

// mirrorRun reflects [x0,x1] across the window and clips it to the screen.
// With direct set the part that is scanned directly is clipped off too.
func (p *Plotter) mirrorRun(x0, x1 int, direct bool) (j, k int) {
	j = p.XStop - (x1 - p.XStart)
	k = min(p.XStop-(x0-p.XStart), p.w-1)
	if direct {
		j = max(j, p.IXStop+1)
	}
	return max(j, 0), k
}

// PutRun writes a run of differing colors starting at (x0,y). Only the
// unmirrored and x axis cases are written as whole runs.
func (p *Plotter) PutRun(y, x0 int, colors []int) int {
	n := len(colors)
	if n == 0 {
		return 0
	}
	switch p.mode {
	case None:
		p.store.PutRun(y, x0, colors)
		return n >> 4
	case Plot2:
		p.store.PutRun(y, x0, colors)
		if i, ok := p.mirrorRow(y); ok {
			p.store.PutRun(i, x0, colors)
		}
		return n >> 3
	}
	for k, c := range colors {
		p.Plot(x0+k, y, c)
	}
	return n >> 1
}
