package scan

import (
	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/symplot"
	"github.com/marben/fractscan/internal/worklist"
)

// Edge colors of a tesseral box besides real colors.
const (
	mixed       = -1
	unknown     = -2
	interrupted = -3
)

type box struct {
	x1, x2, y1, y2     int
	top, bot, lft, rgt int
}

// tesseral computes the edges of the item, then keeps splitting boxes in two
// across their longer side until a box's edges and middle line all have one
// color, which is then filled in.
func (s *scanner) tesseral() error {
	it := s.item
	p := s.plot
	whole := box{x1: it.XStart, x2: p.IXStop, y1: it.YStart, y2: p.IYStop}

	var stack []box
	if it.Pass != 0 && s.resume != nil {
		if stack = rebuildTess(whole, s.resume); stack == nil {
			s.env.Degraded++
			mandel.Logger().Warn("tesseral cursor does not fit the item, starting over", "item", it.String())
		}
	}
	if stack == nil {
		b := whole
		b.top = s.tessRow(b.x1, b.x2, b.y1)
		b.bot = s.tessRow(b.x1, b.x2, b.y2)
		b.lft = s.tessCol(b.x1, b.y1+1, b.y2-1)
		b.rgt = s.tessCol(b.x2, b.y1+1, b.y2-1)
		if s.it.Poll() {
			s.requeue(worklist.NewItem(it.XStart, it.XStop, it.YStart, it.YStop, 0, it.Sym), nil)
			return ErrInterrupted
		}
		if b.x2-b.x1 < 2 || b.y2-b.y1 < 2 {
			return nil
		}
		stack = []box{b}
	}

	mode := p.Mode()
	guessPlot := mode != symplot.None && mode != symplot.Plot2
	for len(stack) > 0 {
		i := len(stack) - 1
		b := &stack[i]
		if !s.tessSolid(b) {
			var ok bool
			if stack, ok = s.tessSplit(stack); !ok {
				return s.tessEnd(stack)
			}
			continue
		}

		if f := s.env.Opts.FillColor; f != 0 {
			color := b.top
			if f > 0 {
				color = f % s.it.Config().Colors
			}
			n := 0
			if guessPlot || b.x2-b.x1-1 < 2 {
				for x := b.x1 + 1; x < b.x2; x++ {
					for y := b.y1 + 1; y < b.y2; y++ {
						p.Plot(x, y, color)
						if n++; n > 500 {
							if s.it.Poll() {
								return s.tessEnd(stack)
							}
							n = 0
						}
					}
				}
			} else {
				for y := b.y1 + 1; y < b.y2; y++ {
					s.fillRun(y, b.x1+1, b.x2-1, color)
					if n++; n > 25 {
						if s.it.Poll() {
							return s.tessEnd(stack)
						}
						n = 0
					}
				}
			}
		}
		stack = stack[:i]
	}
	return nil
}

// tessSolid resolves the unknown edges of b and probes its middle line. It
// reports whether everything came out one color.
func (s *scanner) tessSolid(b *box) bool {
	if b.top == mixed || b.bot == mixed || b.lft == mixed || b.rgt == mixed {
		return false
	}
	if b.top == unknown {
		b.top = s.checkRow(b.x1, b.x2, b.y1)
	}
	if b.top == mixed {
		return false
	}
	if b.bot == unknown {
		b.bot = s.checkRow(b.x1, b.x2, b.y2)
	}
	if b.bot != b.top {
		return false
	}
	if b.lft == unknown {
		b.lft = s.checkCol(b.x1, b.y1, b.y2)
	}
	if b.lft != b.top {
		return false
	}
	if b.rgt == unknown {
		b.rgt = s.checkCol(b.x2, b.y1, b.y2)
	}
	if b.rgt != b.top {
		return false
	}
	var mid int
	if b.x2-b.x1 > b.y2-b.y1 {
		mid = s.tessCol((b.x1+b.x2)>>1, b.y1+1, b.y2-1)
	} else {
		mid = s.tessRow(b.x1+1, b.x2-1, (b.y1+b.y2)>>1)
	}
	return mid == b.top
}

// tessSplit splits the top box of the stack along its middle line, which is
// computed again. It returns false when that was interrupted.
func (s *scanner) tessSplit(stack []box) ([]box, bool) {
	i := len(stack) - 1
	b := &stack[i]
	if b.x2-b.x1 > b.y2-b.y1 {
		mid := (b.x1 + b.x2) >> 1
		color := s.tessCol(mid, b.y1+1, b.y2-1)
		if color == interrupted {
			return stack, false
		}
		if b.x2-mid <= 1 {
			return stack[:i], true
		}
		if b.top == mixed {
			b.top = unknown
		}
		if b.bot == mixed {
			b.bot = unknown
		}
		left := *b
		b.x1, b.lft = mid, color
		if mid-left.x1 > 1 {
			left.x2, left.rgt = mid, color
			stack = append(stack, left)
		}
		return stack, true
	}

	mid := (b.y1 + b.y2) >> 1
	color := s.tessRow(b.x1+1, b.x2-1, mid)
	if color == interrupted {
		return stack, false
	}
	if b.y2-mid <= 1 {
		return stack[:i], true
	}
	if b.lft == mixed {
		b.lft = unknown
	}
	if b.rgt == mixed {
		b.rgt = unknown
	}
	upper := *b
	b.y1, b.top = mid, color
	if mid-upper.y1 > 1 {
		upper.y2, upper.bot = mid, color
		stack = append(stack, upper)
	}
	return stack, true
}

// tessEnd requeues the item with the position of the box being worked on.
// The box sizes are only kept to the next power of two; rebuildTess finds
// the box again by splitting the item the same way.
func (s *scanner) tessEnd(stack []box) error {
	it := s.item
	b := stack[len(stack)-1]
	cur := &Cursor{tess: packTess(b)}
	cur.edges = make([]int32, 0, 4*len(stack))
	for _, e := range stack {
		cur.edges = append(cur.edges, int32(e.top), int32(e.bot), int32(e.lft), int32(e.rgt))
	}
	s.requeue(worklist.Item{
		XStart: it.XStart, XStop: it.XStop, XBegin: b.x1,
		YStart: it.YStart, YStop: it.YStop, YBegin: b.y1,
		Pass: 1, Sym: it.Sym,
	}, cur)
	return ErrInterrupted
}

func tessSize(d int) int {
	size := 1
	for i := 2; d-2 >= i; i <<= 1 {
		size++
	}
	return size
}

func packTess(b box) uint64 {
	return uint64(b.x1)&0xffffff<<40 | uint64(b.y1)&0xffffff<<16 |
		uint64(tessSize(b.x2-b.x1))<<8 | uint64(tessSize(b.y2-b.y1))
}

// rebuildTess splits the whole item towards the packed position until it
// gets to the box that was interrupted, recreating the pending boxes on the
// way. It returns nil when the cursor leads nowhere.
func rebuildTess(whole box, cur *Cursor) []box {
	curX, curY := int(cur.tess>>40&0xffffff), int(cur.tess>>16&0xffffff)
	xSize := 1 << min(cur.tess>>8&0xff, 30)
	ySize := 1 << min(cur.tess&0xff, 30)
	if curX < whole.x1 || curX > whole.x2 || curY < whole.y1 || curY > whole.y2 {
		return nil
	}
	whole.top, whole.bot, whole.lft, whole.rgt = unknown, unknown, unknown, unknown
	stack := []box{whole}
	for range 128 {
		i := len(stack) - 1
		b := stack[i]
		if b.x2-b.x1 > b.y2-b.y1 {
			if b.x1 == curX && b.x2-b.x1-2 < xSize {
				return restoreEdges(stack, cur.edges)
			}
			mid := (b.x1 + b.x2) >> 1
			if mid == b.x1 {
				return nil
			}
			stack[i].x1 = mid
			if mid > curX {
				b.x2 = mid
				stack = append(stack, b)
			}
		} else {
			if b.y1 == curY && b.y2-b.y1-2 < ySize {
				return restoreEdges(stack, cur.edges)
			}
			mid := (b.y1 + b.y2) >> 1
			if mid == b.y1 {
				return nil
			}
			stack[i].y1 = mid
			if mid > curY {
				b.y2 = mid
				stack = append(stack, b)
			}
		}
	}
	return nil
}

// restoreEdges puts back the saved edge colors. Without them every edge is
// checked again from the pixels.
func restoreEdges(stack []box, edges []int32) []box {
	if len(edges) != 4*len(stack) {
		return stack
	}
	for i := range stack {
		e := edges[4*i:]
		stack[i].top, stack[i].bot, stack[i].lft, stack[i].rgt = int(e[0]), int(e[1]), int(e[2]), int(e[3])
	}
	return stack
}

// tessRow computes [x1,x2] of row y and returns its single color, mixed,
// unknown for an empty run, or interrupted.
func (s *scanner) tessRow(x1, x2, y int) int {
	if x1 > x2 {
		return unknown
	}
	s.it.ResetPeriodicity()
	color := unknown
	for x := x1; x <= x2; x++ {
		c, err := s.calc(x, y)
		if err != nil {
			return interrupted
		}
		if x == x1 {
			color = c
		} else if c != color {
			color = mixed
		}
	}
	return color
}

func (s *scanner) tessCol(x, y1, y2 int) int {
	if y1 > y2 {
		return unknown
	}
	s.it.ResetPeriodicity()
	color := unknown
	for y := y1; y <= y2; y++ {
		c, err := s.calc(x, y)
		if err != nil {
			return interrupted
		}
		if y == y1 {
			color = c
		} else if c != color {
			color = mixed
		}
	}
	return color
}

// checkRow reads the already computed row [x1,x2] of y.
func (s *scanner) checkRow(x1, x2, y int) int {
	c := s.store.ColorAt(x1, y)
	for x := x2; x > x1; x-- {
		if s.store.ColorAt(x, y) != c {
			return mixed
		}
	}
	return c
}

// checkCol reads the already computed inner part of column x.
func (s *scanner) checkCol(x, y1, y2 int) int {
	c := s.store.ColorAt(x, y1+1)
	for y := y2 - 1; y > y1+1; y-- {
		if s.store.ColorAt(x, y) != c {
			return mixed
		}
	}
	return c
}
