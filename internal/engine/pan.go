package engine

import (
	"fmt"
	"image"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/scan"
	"github.com/marben/fractscan/internal/worklist"
)

// Pan moves the view so that the pixel at (col+colDelta, row+rowDelta)
// becomes (col, row). The pixels still on screen are moved rather than
// computed again, the work queue follows them and the uncovered strips are
// queued. Run continues the calculation afterwards.
//
// Tesseral and diffusion items describe their whole item and cannot be
// moved, so those strategies can only pan a finished image. Two pass and
// solid guessing pan an unfinished image only by multiples of scan.PanStep.
func (c *Calculation) Pan(rowDelta, colDelta int) error {
	if rowDelta == 0 && colDelta == 0 {
		return nil
	}
	e := c.env
	w, h := c.w, c.h
	past := abs(rowDelta) >= h || abs(colDelta) >= w
	if !past && !e.Queue.Empty() {
		k := c.cfg.Strategy
		if !k.Pannable() {
			return fmt.Errorf("%w: %v", ErrCannotPan, k)
		}
		if step := scan.PanStep(k, w, h, e.Queue.LowestPass(), c.cfg.Scan); rowDelta%step != 0 || colDelta%step != 0 {
			return fmt.Errorf("%w: %v needs multiples of %d until finished", ErrCannotPan, k, step)
		}
	}
	vp, err := c.vp.Pan(rowDelta, colDelta)
	if err != nil {
		return fmt.Errorf("engine: pan: %w", err)
	}
	it, err := iterate.New(c.cfg.Iterate, c.formula, vp, pollerFunc(c))
	if err != nil {
		return fmt.Errorf("engine: pan: %w", err)
	}
	if c.logFloor != 0 {
		it.SetLogFloor(c.logFloor)
	}
	p, i := e.It.Stats()
	c.pixels += p
	c.iterations += i
	c.vp, e.Vp, e.It = vp, vp, it
	c.cfg.Region = vp.Region()
	if c.cfg.Corner3 != nil {
		c.cfg.Corner3 = &Corner{X: vp.X3rd, Y: vp.Y3rd}
	}
	// the interrupted item moves, and its cursor would no longer fit
	e.Pending, e.Resume = nil, nil

	if past {
		c.clear(image.Rect(0, 0, w, h))
		e.Queue.Reset()
		c.enqueue(worklist.NewItem(0, w-1, 0, h-1, 0, 0))
		mandel.Logger().Info("pan past the screen, starting over", "rows", rowDelta, "cols", colDelta)
		return nil
	}

	c.moveContent(rowDelta, colDelta)
	e.Queue.Offset(rowDelta, colDelta)
	e.Queue.Fix(w, h, c.clear)

	y0, y1 := 0, h-1
	switch {
	case rowDelta > 0:
		y1 = h - rowDelta - 1
		c.enqueue(worklist.NewItem(0, w-1, y1+1, h-1, 0, 0))
	case rowDelta < 0:
		y0 = -rowDelta
		c.enqueue(worklist.NewItem(0, w-1, 0, y0-1, 0, 0))
	}
	switch {
	case colDelta > 0:
		c.enqueue(worklist.NewItem(w-colDelta, w-1, y0, y1, 0, 0))
	case colDelta < 0:
		c.enqueue(worklist.NewItem(0, -colDelta-1, y0, y1, 0, 0))
	}
	mandel.Logger().Info("pan", "rows", rowDelta, "cols", colDelta, "queued", e.Queue.Len(), "region", vp.Region().String())
	return nil
}

// moveContent copies the pixels that stay on screen to their new place and
// clears the strips they uncover.
func (c *Calculation) moveContent(rowDelta, colDelta int) {
	w, h := c.w, c.h
	s := c.store
	x0, x1 := max(0, -colDelta), min(w, w-colDelta)
	buf := make([]int, x1-x0)
	move := func(y int) {
		sy := y + rowDelta
		if sy < 0 || sy >= h {
			s.FillRun(y, 0, w-1, 0)
			return
		}
		for x := range buf {
			buf[x] = s.ColorAt(x0+x+colDelta, sy)
		}
		s.PutRun(y, x0, buf)
		if x0 > 0 {
			s.FillRun(y, 0, x0-1, 0)
		}
		if x1 < w {
			s.FillRun(y, x1, w-1, 0)
		}
	}
	if rowDelta >= 0 {
		for y := range h {
			move(y)
		}
	} else {
		for y := h - 1; y >= 0; y-- {
			move(y)
		}
	}
}

func (c *Calculation) clear(r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		c.store.FillRun(y, r.Min.X, r.Max.X-1, 0)
	}
}

// enqueue adds an item, growing the queue when it is full.
func (c *Calculation) enqueue(it worklist.Item) {
	q := c.env.Queue
	if err := q.Add(it); err != nil {
		q.Grow(1)
		c.env.Degraded++
		mandel.Logger().Warn("work queue full, growing it", "capacity", q.Cap(), "item", it.String())
		_ = q.Add(it)
	}
}

// Zoom returns the config of a new calculation showing the view scaled by
// factor about pixel (col, row). Nothing of the current image is reused.
func (c *Calculation) Zoom(factor float64, col, row int) (Config, error) {
	vp, err := c.vp.Zoom(factor, col, row)
	if err != nil {
		return Config{}, fmt.Errorf("engine: zoom: %w", err)
	}
	cfg := c.cfg
	cfg.Region = vp.Region()
	if cfg.Corner3 != nil || vp.Skewed() {
		cfg.Corner3 = &Corner{X: vp.X3rd, Y: vp.Y3rd}
	}
	// found attractors depend on the pixel spacing of the old view
	if cfg.FindAttractors {
		cfg.Iterate.Attractors = nil
	}
	return cfg, nil
}
