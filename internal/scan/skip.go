package scan

import "slices"

// skipGrid has one bit per solid guess block, plus a border of one block on
// every side. Bit (row, col) belongs to the block at screen block row-1,
// col-1.
type skipGrid struct {
	cols, rows int
	bits       []uint64
}

func newSkipGrid(cols, rows int) *skipGrid {
	return &skipGrid{cols: cols, rows: rows, bits: make([]uint64, (cols*rows+63)/64)}
}

func (g *skipGrid) get(row, col int) bool {
	i := row*g.cols + col
	return g.bits[i>>6]&(1<<(i&63)) != 0
}

func (g *skipGrid) set(row, col int) {
	i := row*g.cols + col
	g.bits[i>>6] |= 1 << (i & 63)
}

func (g *skipGrid) clear() { clear(g.bits) }

func (g *skipGrid) fill() {
	for i := range g.bits {
		g.bits[i] = ^uint64(0)
	}
}

func (g *skipGrid) clone() *skipGrid {
	return &skipGrid{cols: g.cols, rows: g.rows, bits: slices.Clone(g.bits)}
}

// spread sets every bit of g whose 3x3 neighbourhood in src has a bit set.
// The border of g is left clear.
func (g *skipGrid) spread(src *skipGrid) {
	g.clear()
	for r := 1; r < g.rows-1; r++ {
		for c := 1; c < g.cols-1; c++ {
		near:
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if src.get(r+dr, c+dc) {
						g.set(r, c)
						break near
					}
				}
			}
		}
	}
}
