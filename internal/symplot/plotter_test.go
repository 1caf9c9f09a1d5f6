package symplot

import (
	"testing"
)

// grid is an in-memory pixel store that counts writes per pixel.
type grid struct {
	w, h   int
	pix    []int
	writes []int
}

func newGrid(w, h int) *grid {
	return &grid{w: w, h: h, pix: make([]int, w*h), writes: make([]int, w*h)}
}

func (g *grid) Size() (int, int)     { return g.w, g.h }
func (g *grid) ColorAt(x, y int) int { return g.pix[y*g.w+x] }

func (g *grid) SetColor(x, y, c int) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		panic("write off the screen")
	}
	g.pix[y*g.w+x] = c
	g.writes[y*g.w+x]++
}

func (g *grid) FillRun(y, x0, x1, c int) {
	for x := x0; x <= x1; x++ {
		g.SetColor(x, y, c)
	}
}

func (g *grid) PutRun(y, x0 int, colors []int) {
	for i, c := range colors {
		g.SetColor(x0+i, y, c)
	}
}

func (g *grid) total() int {
	n := 0
	for _, w := range g.writes {
		n += w
	}
	return n
}

func TestPlot2MirrorsBelowAxis(t *testing.T) {
	g := newGrid(5, 11)
	p := New(g, Window{XStart: 0, XStop: 4, YStart: 0, YStop: 10, IXStop: 4, IYStop: 5}, Plot2, 0)

	p.Plot(2, 3, 7)
	if g.ColorAt(2, 3) != 7 || g.ColorAt(2, 7) != 7 {
		t.Errorf("pixel or its mirror not written")
	}
	p.Plot(2, 5, 1)
	if g.total() != 3 {
		t.Errorf("%d writes, the axis row must not be mirrored onto itself", g.total())
	}
}

func TestPlot4WritesFourCorners(t *testing.T) {
	g := newGrid(9, 9)
	p := New(g, Window{XStart: 0, XStop: 8, YStart: 0, YStop: 8, IXStop: 4, IYStop: 4}, Plot4, 0)

	p.Plot(1, 2, 5)
	for _, pt := range [][2]int{{1, 2}, {7, 2}, {1, 6}, {7, 6}} {
		if g.ColorAt(pt[0], pt[1]) != 5 {
			t.Errorf("(%d,%d) not written", pt[0], pt[1])
		}
	}
	p.Plot(4, 4, 5)
	if g.total() != 5 {
		t.Errorf("%d writes, want 5", g.total())
	}
}

func TestMirrorClippedToScreen(t *testing.T) {
	// the logical window reaches below the screen
	g := newGrid(4, 6)
	p := New(g, Window{XStart: 0, XStop: 3, YStart: 0, YStop: 9, IXStop: 3, IYStop: 4}, Plot2, 0)
	p.Plot(0, 0, 1) // mirror row 9 is off the screen
	p.Plot(0, 4, 1) // mirror row 5 is on it
	if g.total() != 3 || g.ColorAt(0, 5) != 1 {
		t.Errorf("writes %d, color at mirror %d", g.total(), g.ColorAt(0, 5))
	}
}

func TestDirectScanCoversScreenOnce(t *testing.T) {
	tests := []struct {
		mode   Mode
		ixStop int
		iyStop int
	}{
		{None, 8, 8},
		{Plot2, 8, 4},
		{Plot2Y, 4, 8},
		{Plot4, 4, 4},
		{Plot2J, 8, 4},
	}
	for _, tt := range tests {
		win := Window{XStart: 0, XStop: 8, YStart: 0, YStop: 8, IXStop: tt.ixStop, IYStop: tt.iyStop}
		t.Run(tt.mode.String()+"/plot", func(t *testing.T) {
			g := newGrid(9, 9)
			p := New(g, win, tt.mode, 0)
			for y := 0; y <= tt.iyStop; y++ {
				for x := 0; x <= tt.ixStop; x++ {
					p.Plot(x, y, 3)
				}
			}
			checkOnce(t, g)
		})
		t.Run(tt.mode.String()+"/fill", func(t *testing.T) {
			g := newGrid(9, 9)
			p := New(g, win, tt.mode, 0)
			for y := 0; y <= tt.iyStop; y++ {
				p.FillRun(y, 0, tt.ixStop, 3)
			}
			checkOnce(t, g)
		})
		t.Run(tt.mode.String()+"/put", func(t *testing.T) {
			g := newGrid(9, 9)
			p := New(g, win, tt.mode, 0)
			row := make([]int, tt.ixStop+1)
			for y := 0; y <= tt.iyStop; y++ {
				p.PutRun(y, 0, row)
			}
			checkOnce(t, g)
		})
	}
}

func checkOnce(t *testing.T, g *grid) {
	t.Helper()
	for y := range g.h {
		for x := range g.w {
			if n := g.writes[y*g.w+x]; n != 1 {
				t.Errorf("(%d,%d) written %d times", x, y, n)
			}
		}
	}
}

func TestPiPlotRepeats(t *testing.T) {
	g := newGrid(10, 1)
	p := New(g, Window{XStart: 0, XStop: 9, YStart: 0, YStop: 0, IXStop: 2, IYStop: 0}, PiPlot, 3)
	for x := 0; x <= 2; x++ {
		p.Plot(x, 0, x+1)
	}
	want := []int{1, 2, 3, 1, 2, 3, 1, 2, 3, 1}
	for x, c := range want {
		if g.ColorAt(x, 0) != c {
			t.Errorf("x=%d: color %d, want %d", x, g.ColorAt(x, 0), c)
		}
	}
}

func TestFillRunCost(t *testing.T) {
	win := Window{XStart: 0, XStop: 63, YStart: 0, YStop: 1, IXStop: 63, IYStop: 0}
	tests := []struct {
		mode Mode
		y    int
		want int
	}{
		{None, 0, 4},
		{Plot2, 0, 8},
		// row 1 mirrors onto row 0, which is scanned directly
		{Plot2, 1, 0},
	}
	for _, tt := range tests {
		p := New(newGrid(64, 2), win, tt.mode, 0)
		if got := p.FillRun(tt.y, 0, 63, 1); got != tt.want {
			t.Errorf("%v row %d: cost %d, want %d", tt.mode, tt.y, got, tt.want)
		}
	}
	if got := New(newGrid(64, 2), win, None, 0).FillRun(0, 5, 4, 1); got != 0 {
		t.Errorf("empty run cost %d", got)
	}
}
