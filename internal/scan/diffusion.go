package scan

import (
	"math"
	"math/bits"

	"github.com/marben/fractscan/internal/worklist"
)

// maxDiffusionBits keeps the counter within the three table lookups of
// spread.
const maxDiffusionBits = 24

// diffusion visits the pixels of every s×s tile of the item in the same
// scattered order, so the whole item sharpens evenly. During the first half
// of the count each computed pixel is spread over a block that shrinks as
// the count grows, unless fills are disabled.
func (s *scanner) diffusion() error {
	it := s.item
	x0, y0 := it.XStart, it.YStart
	w, h := s.plot.IXStop-x0+1, s.plot.IYStop-y0+1
	nbits := min(2*(bits.Len(uint(min(w, h)))-1), maxDiffusionBits)
	limit := uint64(1) << nbits
	size := 1 << (nbits / 2)
	nx, ny := w/size, h/size
	remX, remY := w-nx*size, h-ny*size
	offset := 12 - nbits/2
	fill := s.env.Opts.FillColor != 0

	var counter uint64
	if it.Pass != 0 && s.resume != nil {
		counter = s.resume.counter
	}

	for ; counter < limit; counter++ {
		block := 1
		if fill && counter < limit>>1 {
			block = 1 << ((nbits - int(math.Log2(float64(counter)+0.5)) - 1) / 2)
		}
		col, row := spread(counter, offset)
		if err := s.diffuseTiles(x0+col, y0+row, size, nx, ny, col < remX, row < remY, block); err != nil {
			s.requeue(worklist.Item{
				XStart: it.XStart, XStop: it.XStop, XBegin: x0 + col,
				YStart: it.YStart, YStop: it.YStop, YBegin: y0 + row,
				Pass: 1, Sym: it.Sym,
			}, &Cursor{counter: counter})
			return err
		}
	}
	return nil
}

// diffuseTiles computes the pixel at (x,y) and at the same offset in every
// other tile, including the partial tiles at the right and bottom when
// lastCol and lastRow say the offset falls inside them.
func (s *scanner) diffuseTiles(x, y, size, nx, ny int, lastCol, lastRow bool, block int) error {
	cols, rows := nx, ny
	if lastCol {
		cols++
	}
	if lastRow {
		rows++
	}
	for i := range cols {
		for j := range rows {
			s.it.ResetPeriodicity()
			px, py := x+i*size, y+j*size
			c, err := s.calc(px, py)
			if err != nil {
				return err
			}
			if block > 1 {
				s.plotSquare(px, py, block, c)
			}
		}
	}
	return nil
}

// plotSquare fills the block×block square at (x,y), clipped to the part of
// the item scanned directly.
func (s *scanner) plotSquare(x, y, block, c int) {
	x1 := min(x+block-1, s.plot.IXStop)
	for ty := y; ty < min(y+block, s.plot.IYStop+1); ty++ {
		s.fillRun(ty, x, x1, c)
	}
}

// spread maps the diffusion counter to an offset inside a tile. The tables
// interleave the counter bits so that consecutive counts land far apart.
func spread(c uint64, offset int) (x, y int) {
	for range 3 {
		b := c & 0xff
		x = x<<4 + difX[b]
		y = y<<4 + difY[b]
		c >>= 8
	}
	return x >> offset, y >> offset
}

var difX = [256]int{
	0, 8, 0, 8, 4, 12, 4, 12, 0, 8, 0, 8, 4, 12, 4, 12,
	2, 10, 2, 10, 6, 14, 6, 14, 2, 10, 2, 10, 6, 14, 6, 14,
	0, 8, 0, 8, 4, 12, 4, 12, 0, 8, 0, 8, 4, 12, 4, 12,
	2, 10, 2, 10, 6, 14, 6, 14, 2, 10, 2, 10, 6, 14, 6, 14,
	1, 9, 1, 9, 5, 13, 5, 13, 1, 9, 1, 9, 5, 13, 5, 13,
	3, 11, 3, 11, 7, 15, 7, 15, 3, 11, 3, 11, 7, 15, 7, 15,
	1, 9, 1, 9, 5, 13, 5, 13, 1, 9, 1, 9, 5, 13, 5, 13,
	3, 11, 3, 11, 7, 15, 7, 15, 3, 11, 3, 11, 7, 15, 7, 15,
	0, 8, 0, 8, 4, 12, 4, 12, 0, 8, 0, 8, 4, 12, 4, 12,
	2, 10, 2, 10, 6, 14, 6, 14, 2, 10, 2, 10, 6, 14, 6, 14,
	0, 8, 0, 8, 4, 12, 4, 12, 0, 8, 0, 8, 4, 12, 4, 12,
	2, 10, 2, 10, 6, 14, 6, 14, 2, 10, 2, 10, 6, 14, 6, 14,
	1, 9, 1, 9, 5, 13, 5, 13, 1, 9, 1, 9, 5, 13, 5, 13,
	3, 11, 3, 11, 7, 15, 7, 15, 3, 11, 3, 11, 7, 15, 7, 15,
	1, 9, 1, 9, 5, 13, 5, 13, 1, 9, 1, 9, 5, 13, 5, 13,
	3, 11, 3, 11, 7, 15, 7, 15, 3, 11, 3, 11, 7, 15, 7, 15,
}

var difY = [256]int{
	0, 8, 8, 0, 4, 12, 12, 4, 4, 12, 12, 4, 8, 0, 0, 8,
	2, 10, 10, 2, 6, 14, 14, 6, 6, 14, 14, 6, 10, 2, 2, 10,
	2, 10, 10, 2, 6, 14, 14, 6, 6, 14, 14, 6, 10, 2, 2, 10,
	4, 12, 12, 4, 8, 0, 0, 8, 8, 0, 0, 8, 12, 4, 4, 12,
	1, 9, 9, 1, 5, 13, 13, 5, 5, 13, 13, 5, 9, 1, 1, 9,
	3, 11, 11, 3, 7, 15, 15, 7, 7, 15, 15, 7, 11, 3, 3, 11,
	3, 11, 11, 3, 7, 15, 15, 7, 7, 15, 15, 7, 11, 3, 3, 11,
	5, 13, 13, 5, 9, 1, 1, 9, 9, 1, 1, 9, 13, 5, 5, 13,
	1, 9, 9, 1, 5, 13, 13, 5, 5, 13, 13, 5, 9, 1, 1, 9,
	3, 11, 11, 3, 7, 15, 15, 7, 7, 15, 15, 7, 11, 3, 3, 11,
	3, 11, 11, 3, 7, 15, 15, 7, 7, 15, 15, 7, 11, 3, 3, 11,
	5, 13, 13, 5, 9, 1, 1, 9, 9, 1, 1, 9, 13, 5, 5, 13,
	2, 10, 10, 2, 6, 14, 14, 6, 6, 14, 14, 6, 10, 2, 2, 10,
	4, 12, 12, 4, 8, 0, 0, 8, 8, 0, 0, 8, 12, 4, 4, 12,
	4, 12, 12, 4, 8, 0, 0, 8, 8, 0, 0, 8, 12, 4, 4, 12,
	6, 14, 14, 6, 10, 2, 2, 10, 10, 2, 2, 10, 14, 6, 6, 14,
}
