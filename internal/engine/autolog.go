package engine

import (
	"math"

	mandel "github.com/marben/fractscan"
)

// autoLogMap computes the screen edges and makes the lowest iteration count
// found there the log map floor, so no colors go to counts the image never
// shows. It reports false when interrupted, in which case the floor is
// looked for again by the next Run.
func (c *Calculation) autoLogMap() bool {
	it := c.env.It
	it.Rearm()
	it.ResetPeriodicity()
	low := math.MaxInt
	edge := func(col, row int) bool {
		r, err := it.Calc(c.vp.Point(col, row))
		if err != nil {
			return false
		}
		low = min(low, abs(r.Iter))
		return true
	}
	xs, ys := c.w-1, c.h-1
	for col := range xs {
		if !edge(col, 0) {
			return false
		}
	}
	for row := range ys {
		if !edge(xs, row) || !edge(0, row) {
			return false
		}
	}
	for col := range xs {
		if !edge(col, ys) {
			return false
		}
	}

	c.logFloor = max(low, 1)
	c.autoLog = false
	it.SetLogFloor(c.logFloor)
	it.ResetPeriodicity()
	mandel.Logger().Debug("automatic log map", "floor", c.logFloor)
	return true
}
