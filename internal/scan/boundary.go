package scan

import "github.com/marben/fractscan/internal/worklist"

// bk marks a pixel that boundary tracing has not visited yet. The store
// must be cleared to it and computed colors must never be 0.
const bk = 0

type direction int

const (
	north direction = iota
	east
	south
	west
)

// turn rotates clockwise for positive n.
func (d direction) turn(n int) direction { return direction((int(d) + n + 4) & 3) }

func (d direction) step(x, y int) (int, int) {
	switch d {
	case north:
		return x, y - 1
	case east:
		return x + 1, y
	case south:
		return x, y + 1
	}
	return x - 1, y
}

// boundary scans rows for the first pixel of a new color, walks the edge of
// the area of that color with the right hand on the wall, and fills the area
// when the walk found enough of it.
func (s *scanner) boundary() error {
	it := s.item
	resume := s.resume
	for row := it.YStart; row <= s.plot.IYStop; row++ {
		s.it.ResetPeriodicity()
		color := bk
		for col := it.XStart; col <= s.plot.IXStop; col++ {
			tracing := false
			if r := resume; r != nil && row == it.YBegin && col == it.XBegin {
				resume = nil
				s.it.SetCarry(r.carry)
				color = r.trail
				tracing = r.tracing
			}
			if !tracing {
				if s.store.ColorAt(col, row) != bk {
					continue
				}
				trail := color
				c, err := s.calc(col, row)
				if err != nil {
					s.requeueBoundary(col, row, &Cursor{carry: s.it.Carry(), trail: trail})
					return err
				}
				color = c
				if c != trail {
					continue
				}
			}

			trail := s.store.ColorAt(col, row)
			matches, err := s.walk(col, row, trail)
			if err != nil {
				s.requeueBoundary(col, row, &Cursor{carry: s.it.Carry(), trail: trail, tracing: true})
				return err
			}
			if matches > 3 {
				s.fillTraced(col, row, trail)
			}
			s.it.ResetPeriodicity()
			color = bk
		}
	}
	return nil
}

func (s *scanner) requeueBoundary(col, row int, cur *Cursor) {
	it := s.item
	stop := it.YStop
	if s.plot.IYStop != it.YStop {
		stop -= row - it.YStart
	}
	s.requeue(worklist.Item{
		XStart: it.XStart, XStop: it.XStop, XBegin: col,
		YStart: row, YStop: stop, YBegin: row,
		Sym: it.Sym,
	}, cur)
}

// inside reports whether (x,y) may be visited by a walk that started on row0.
func (s *scanner) inside(x, y, row0 int) bool {
	return y >= row0 && x >= s.item.XStart && x <= s.plot.IXStop && y <= s.plot.IYStop
}

// walk follows the edge of the trail colored area clockwise from (col0,row0),
// computing unvisited pixels on the way. It returns the number of steps
// taken along the edge, up to 4.
func (s *scanner) walk(col0, row0, trail int) (int, error) {
	x, y := col0, row0
	from, to := west, east
	matches := 0
	for {
		nx, ny := to.step(x, y)
		more := true
		if s.inside(nx, ny, row0) {
			c := s.store.ColorAt(nx, ny)
			if c == bk {
				var err error
				if c, err = s.calc(nx, ny); err != nil {
					return 0, err
				}
			}
			if c == trail {
				matches = min(matches+1, 4)
				x, y = nx, ny
				to = to.turn(-1)
				from = to.turn(-1)
			} else {
				to = to.turn(1)
				more = to != from || matches > 0
			}
		} else {
			to = to.turn(1)
			more = to != from || matches > 0
		}
		if !more || (nx == col0 && ny == row0) {
			return matches, nil
		}
	}
}

// fillTraced walks the same edge again and fills every run of unvisited
// pixels between a left hand edge and a right hand edge.
func (s *scanner) fillTraced(col0, row0, trail int) {
	fill := s.fillColor(trail)
	x, y := col0, row0
	from, to := west, east
	for {
		matched := false
		for {
			nx, ny := to.step(x, y)
			if s.inside(nx, ny, row0) && s.store.ColorAt(nx, ny) == trail {
				if to == south || (to == west && from != east) {
					s.fillLeft(nx, ny, trail, fill)
				}
				x, y = nx, ny
				to = to.turn(-1)
				from = to.turn(-1)
				matched = true
			} else {
				to = to.turn(1)
			}
			if matched || to == from {
				break
			}
		}
		if !matched {
			x, y = to.step(x, y)
			to = to.turn(-1)
			from = to.turn(-1)
		}
		if x == col0 && y == row0 {
			return
		}
	}
}

// fillLeft fills the unvisited run that ends where the trail colored run
// through (x,y) begins.
func (s *scanner) fillLeft(x, y, trail, fill int) {
	right := x - 1
	for right >= s.item.XStart && s.store.ColorAt(right, y) == trail {
		right--
	}
	if right < s.item.XStart || s.store.ColorAt(right, y) != bk {
		return
	}
	left := right
	for left > s.item.XStart && s.store.ColorAt(left-1, y) == bk {
		left--
	}
	if left == right {
		s.plot.Plot(left, y, fill)
		return
	}
	s.fillRun(y, left, right, fill)
}
