package scan

import (
	"slices"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/symplot"
	"github.com/marben/fractscan/internal/worklist"
)

// guesser is the state of solid guessing over one item.
//
// The first pass computes a grid of corners maxBlock apart and guesses the
// rest of every block from its neighbours, computing more of it wherever the
// neighbours disagree. Each later pass halves the block size. Blocks of the
// first pass where nothing had to be computed, and whose neighbours needed
// nothing either, are skipped by the later passes.
type guesser struct {
	*scanner
	maxBlock, block, half int

	// x0 is the item start aligned down to maxBlock
	x0           int
	stopX, stopY int

	guessPlot   bool
	rightGuess  bool
	bottomGuess bool

	// skip[1] collects the blocks of the first pass that needed computing;
	// skip[0] is what the later passes test.
	skip  [2]*skipGrid
	stack [2][]int

	// row restarts the next guessRow at a block, with rowCarry.
	row      *guessVars
	rowCarry int

	// snap is the block state guessRow is working from.
	snap      guessVars
	snapCarry int
	inRow     bool
}

// maxBlockSize is the first pass block size for a screen h rows high.
func maxBlockSize(h int) int {
	b := 4
	for i := 300; i <= h; i *= 2 {
		b *= 2
	}
	return b
}

// guessBlock is the first pass block size on a w×h screen, doubled until the
// skip grid fits in limit cells.
func guessBlock(w, h, limit int) (b int, grown bool) {
	if limit <= 0 {
		limit = DefaultSkipLimit
	}
	b = maxBlockSize(h)
	cells := func(b int) int { return ((w-1)/b + 3) * ((h-1)/b + 3) }
	for cells(b) > limit && b < max(w, h) {
		b *= 2
		grown = true
	}
	return b, grown
}

func (s *scanner) newGuesser() *guesser {
	w, h := s.plot.Screen()
	b, grown := guessBlock(w, h, s.env.Opts.SkipLimit)
	if grown {
		s.env.Degraded++
		mandel.Logger().Warn("skip grid limit reached, using larger blocks", "block", b, "limit", s.env.Opts.SkipLimit)
	}

	g := &guesser{
		scanner:  s,
		maxBlock: b,
		x0:       s.item.XStart &^ (b - 1),
		stopX:    s.plot.IXStop,
		stopY:    s.plot.IYStop,
	}
	mode := s.plot.Mode()
	g.guessPlot = mode != symplot.None && mode != symplot.Plot2 && mode != symplot.Plot2J
	if s.env.Opts.GuessEdges {
		g.bottomGuess = mode == symplot.Plot2 || (mode == symplot.None && g.stopY+1 == h)
		g.rightGuess = mode == symplot.Plot2J || ((mode == symplot.None || mode == symplot.Plot2) && g.stopX+1 == w)
	}
	cols, rows := (w-1)/b+3, (h-1)/b+3
	g.skip[0] = newSkipGrid(cols, rows)
	g.skip[1] = newSkipGrid(cols, rows)
	g.stack[0] = make([]int, w+b)
	g.stack[1] = make([]int, w+b)
	return g
}

func (s *scanner) solidGuess() error {
	g := s.newGuesser()
	it := s.item
	var gs *guessState
	if s.resume != nil {
		gs = s.resume.guess
	}
	y := it.YBegin &^ (g.maxBlock - 1)

	if it.Pass == 0 {
		g.block = g.maxBlock
		switch {
		case gs != nil && g.restore(gs, 1):
			y = gs.y
		case y <= it.YStart:
			g.skip[1].clear()
			s.it.ResetPeriodicity()
			for x := g.x0; x <= g.stopX; x += g.maxBlock {
				if _, err := s.calc(x, y); err != nil {
					s.requeue(it, nil)
					return err
				}
			}
		default:
			g.skip[1].fill()
		}
		for ; y <= g.stopY; y += g.block {
			if err := g.firstRow(y); err != nil {
				s.requeue(g.resumeItem(y, 0), g.cursor(y, true))
				return err
			}
		}
		if !s.env.Queue.Empty() && s.postpone(1) {
			return nil
		}
		it.Pass = 1
		g.finishFirstPass()
		y = it.YStart &^ (g.maxBlock - 1)
	} else if gs != nil && g.restore(gs, 0) {
		y = gs.y
	} else {
		g.skip[0].fill()
	}

	g.block = g.maxBlock >> (it.Pass - 1)
	for g.block >>= 1; g.block >= 2; g.block >>= 1 {
		for ; y <= g.stopY; y += g.block {
			if err := g.guessRow(false, y); err != nil {
				s.requeue(g.resumeItem(y, it.Pass), g.cursor(y, false))
				return err
			}
		}
		it.Pass++
		if !s.env.Queue.Empty() && g.block > 2 && s.postpone(it.Pass) {
			return nil
		}
		y = it.YStart &^ (g.maxBlock - 1)
	}
	return nil
}

func (g *guesser) resumeItem(y, pass int) worklist.Item {
	it := g.item
	return worklist.Item{
		XStart: it.XStart, XStop: it.XStop, XBegin: it.XStart,
		YStart: it.YStart, YStop: it.YStop, YBegin: max(y, it.YStart),
		Pass: pass, Sym: it.Sym,
	}
}

// cursor saves the skip grid in use and, when the interrupt came in the
// middle of a row, the block the row has to restart at.
func (g *guesser) cursor(y int, first bool) *Cursor {
	layer := g.skip[0]
	if first {
		layer = g.skip[1]
	}
	gs := &guessState{y: y, skip: layer.clone()}
	c := &Cursor{carry: g.it.Carry(), guess: gs}
	if g.inRow {
		v := g.snap
		gs.row = &v
		c.carry = g.snapCarry
		if first {
			gs.stack = [2][]int{slices.Clone(g.stack[0]), slices.Clone(g.stack[1])}
		}
	}
	return c
}

// restore loads a saved cursor into skip layer i. It reports false when the
// cursor does not fit this item.
func (g *guesser) restore(gs *guessState, i int) bool {
	sk := gs.skip
	if sk == nil || sk.cols != g.skip[i].cols || sk.rows != g.skip[i].rows {
		return false
	}
	if gs.row != nil && i == 1 && (len(gs.stack[0]) != len(g.stack[0]) || len(gs.stack[1]) != len(g.stack[1])) {
		return false
	}
	g.skip[i] = sk.clone()
	if gs.row != nil {
		if i == 1 {
			copy(g.stack[0], gs.stack[0])
			copy(g.stack[1], gs.stack[1])
		}
		v := *gs.row
		g.row = &v
		g.rowCarry = g.resume.carry
	}
	return true
}

// firstRow computes the corners of the next block row, then guesses row y.
func (g *guesser) firstRow(y int) error {
	g.inRow = false
	if g.row == nil && y+g.block <= g.stopY {
		g.it.ResetPeriodicity()
		for x := g.x0; x <= g.stopX; x += g.maxBlock {
			if _, err := g.calc(x, y+g.block); err != nil {
				return err
			}
		}
	}
	return g.guessRow(true, y)
}

// finishFirstPass turns the blocks that needed computing into the set the
// later passes look at: those blocks and their eight neighbours.
func (g *guesser) finishFirstPass() {
	done := g.skip[1]
	if !g.rightGuess {
		c := g.stopX/g.maxBlock + 2
		for r := range done.rows {
			done.set(r, c)
		}
	}
	if !g.bottomGuess {
		r := g.stopY/g.maxBlock + 2
		for c := range done.cols {
			done.set(r, c)
		}
	}
	g.skip[0].spread(done)
}

func (g *guesser) color(x, y int) int { return g.store.ColorAt(x, y) }

// guessRow handles the blocks whose top left corners are on row y. The
// names cXY are the colors around the block at (x,y), c22 being its top
// left corner, c21 the pixel half a block above it and c12 half a block to
// its left.
func (g *guesser) guessRow(first bool, y int) error {
	g.inRow = false
	half := g.block / 2
	g.half = half
	layer := g.skip[0]
	if first {
		layer = g.skip[1]
	}
	by := y/g.maxBlock + 1
	yLessHalf, yLessBlock := y-half, y-g.block
	yPlusHalf, yPlusBlock := y+half, y+g.block
	top := 0
	if y > 0 {
		top = yLessHalf
	}

	var v guessVars
	restored := g.row != nil
	if restored {
		v = *g.row
		g.row = nil
		g.it.SetCarry(g.rowCarry)
	} else {
		v.prev11 = -1
		v.c22 = g.color(g.x0, y)
		v.c13, v.c12, v.c24 = v.c22, v.c22, v.c22
		v.c21 = g.color(g.x0, top)
		v.c31 = v.c21
		if yPlusBlock <= g.stopY {
			v.c24 = g.color(g.x0, yPlusBlock)
		} else if !g.bottomGuess {
			v.c24 = -1
		}
		v.x = g.x0
	}

	for v.x <= g.stopX {
		x := v.x
		xPlusHalf, xPlusBlock := x+half, x+g.block

		if restored {
			restored = false
		} else {
			if x&(g.maxBlock-1) == 0 && !first && !layer.get(by, x/g.maxBlock+1) {
				v.x += g.maxBlock
				v.c13, v.c12, v.c24, v.c21, v.c31, v.prev11 = v.c22, v.c22, v.c22, v.c22, v.c22, v.c22
				v.guessed13, v.guessed12 = 0, 0
				continue
			}
			if first {
				g.plotBlock(0, x, y, v.c22)
			}
			if xPlusHalf > g.stopX {
				if !g.rightGuess {
					v.c31 = -1
				}
			} else if y > 0 {
				v.c31 = g.color(xPlusHalf, yLessHalf)
			}
			if xPlusBlock <= g.stopX {
				if yPlusBlock <= g.stopY {
					v.c44 = g.color(xPlusBlock, yPlusBlock)
				}
				v.c41 = g.color(xPlusBlock, top)
				v.c42 = g.color(xPlusBlock, y)
			} else if !g.rightGuess {
				v.c44, v.c42, v.c41 = -1, -1, -1
			}
			if yPlusBlock > g.stopY {
				v.c44 = -1
				if g.bottomGuess {
					v.c44 = v.c42
				}
			}
			// later writes in this block can change what was read above
			g.snap, g.snapCarry, g.inRow = v, g.it.Carry(), true
		}

		guessed33, guessed32, guessed23 := 1, 1, 1
		c33, c32, c23 := v.c22, v.c22, v.c22
		if yPlusHalf > g.stopY {
			if !g.bottomGuess {
				c33, c23 = -1, -1
			}
			guessed33, guessed23 = -1, -1
			v.guessed13 = 0
		}
		if xPlusHalf > g.stopX {
			if !g.rightGuess {
				c33, c32 = -1, -1
			}
			guessed33, guessed32 = -1, -1
		}
		for {
			if guessed33 > 0 && (c33 != v.c44 || c33 != v.c42 || c33 != v.c24 || c33 != c32 || c33 != c23) {
				c, err := g.calc(xPlusHalf, yPlusHalf)
				if err != nil {
					return err
				}
				c33, guessed33 = c, 0
			}
			if guessed32 > 0 && (c32 != c33 || c32 != v.c42 || c32 != v.c31 || c32 != v.c21 || c32 != v.c41 || c32 != c23) {
				c, err := g.calc(xPlusHalf, y)
				if err != nil {
					return err
				}
				c32, guessed32 = c, 0
				continue
			}
			if guessed23 > 0 && (c23 != c33 || c23 != v.c24 || c23 != v.c13 || c23 != v.c12 || c23 != c32) {
				c, err := g.calc(x, yPlusHalf)
				if err != nil {
					return err
				}
				c23, guessed23 = c, 0
				continue
			}
			break
		}

		if first && (guessed23 == 0 || guessed32 == 0 || guessed33 == 0) {
			layer.set(by, x/g.maxBlock+1)
		}

		if half > 1 {
			if first {
				if g.guessPlot {
					if guessed23 > 0 {
						g.plot.Plot(x, yPlusHalf, c23)
					}
					if guessed32 > 0 {
						g.plot.Plot(xPlusHalf, y, c32)
					}
					if guessed33 > 0 {
						g.plot.Plot(xPlusHalf, yPlusHalf, c33)
					}
				}
				g.plotBlock(1, x, yPlusHalf, c23)
				g.plotBlock(0, xPlusHalf, y, c32)
				g.plotBlock(1, xPlusHalf, yPlusHalf, c33)
			} else {
				if c23 != v.c22 {
					g.plotBlock(-1, x, yPlusHalf, c23)
				}
				if c32 != v.c22 {
					g.plotBlock(-1, xPlusHalf, y, c32)
				}
				if c33 != v.c22 {
					g.plotBlock(-1, xPlusHalf, yPlusHalf, c33)
				}
			}
		}

		// fix the guesses above the block when it turned out not solid
		fix21 := (v.c22 != v.c12 || v.c22 != c32) && v.c21 == v.c22 && v.c21 == v.c31 && v.c21 == v.prev11 && y > 0 &&
			(x == g.x0 || v.c21 == g.color(x-half, yLessBlock)) &&
			(xPlusHalf > g.stopX || v.c21 == g.color(xPlusHalf, yLessBlock)) &&
			v.c21 == g.color(x, yLessBlock)
		fix31 := v.c22 != c32 && v.c31 == v.c22 && v.c31 == v.c42 && v.c31 == v.c21 && v.c31 == v.c41 && y > 0 &&
			xPlusHalf <= g.stopX && v.c31 == g.color(xPlusHalf, yLessBlock) &&
			(xPlusBlock > g.stopX || v.c31 == g.color(xPlusBlock, yLessBlock)) &&
			v.c31 == g.color(x, yLessBlock)
		v.prev11 = v.c31
		if fix21 {
			c, err := g.calc(x, yLessHalf)
			if err != nil {
				return err
			}
			if half > 1 && c != v.c22 {
				g.plotBlock(-1, x, yLessHalf, c)
			}
		}
		if fix31 {
			c, err := g.calc(xPlusHalf, yLessHalf)
			if err != nil {
				return err
			}
			if half > 1 && c != v.c22 {
				g.plotBlock(-1, xPlusHalf, yLessHalf, c)
			}
		}
		// and to its left
		if c23 != v.c22 {
			if v.guessed12 != 0 {
				c, err := g.calc(x-half, y)
				if err != nil {
					return err
				}
				if half > 1 && c != v.c22 {
					g.plotBlock(-1, x-half, y, c)
				}
			}
			if v.guessed13 != 0 {
				c, err := g.calc(x-half, yPlusHalf)
				if err != nil {
					return err
				}
				if half > 1 && c != v.c22 {
					g.plotBlock(-1, x-half, yPlusHalf, c)
				}
			}
		}

		v.c22, v.c24, v.c13 = v.c42, v.c44, c33
		v.c21, v.c31, v.c12 = v.c41, v.c41, c32
		v.guessed12, v.guessed13 = guessed32, guessed33
		v.x += g.block
	}
	g.inRow = false

	if !first || g.guessPlot {
		return nil
	}
	start := g.item.XStart
	for i := range half {
		if j := y + i; j <= g.stopY {
			g.it.Spend(g.plot.PutRun(j, start, g.stack[0][start:g.stopX+1]))
		}
		if j := y + i + half; j <= g.stopY {
			g.it.Spend(g.plot.PutRun(j, start, g.stack[1][start:g.stopX+1]))
		}
	}
	return nil
}

// plotBlock paints the half block at (x,y), except its top left pixel. In
// the first pass rows 0 and 1 of the block row are only recorded in the
// stacks and written in one go once the row is done.
func (g *guesser) plotBlock(buildRow, x, y, c int) {
	xLim := min(x+g.half, g.stopX+1)
	if buildRow >= 0 && !g.guessPlot {
		lo, hi := min(x, xLim), max(x, xLim)
		for i := lo; i < hi; i++ {
			g.stack[buildRow][i] = c
		}
		if x >= g.item.XStart {
			return
		}
	}
	yLim := y + g.half
	if yLim > g.stopY {
		if y > g.stopY {
			return
		}
		yLim = g.stopY + 1
	}
	g.fillRun(y, x+1, xLim-1, c)
	for y++; y < yLim; y++ {
		g.fillRun(y, x, xLim-1, c)
	}
}
