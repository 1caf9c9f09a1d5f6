package worklist

import "image"

// ClearFunc resets a screen rectangle, already clamped to the screen, to the
// background color.
type ClearFunc func(r image.Rectangle)

// Offset moves every item by the given deltas. Positive deltas move items
// up and to the left, the way content moves when the view pans down/right.
func (q *Queue) Offset(rowDelta, colDelta int) {
	for i := range q.items {
		it := &q.items[i]
		it.YStart -= rowDelta
		it.YStop -= rowDelta
		it.YBegin -= rowDelta
		it.XStart -= colDelta
		it.XStop -= colDelta
		it.XBegin -= colDelta
	}
}

// Fix deletes items lying entirely outside a width×height screen, clips the
// rest and restarts whatever part of a symmetric item lost its mirror. The
// queue is tidied afterwards.
func (q *Queue) Fix(width, height int, clear ClearFunc) {
	for i := 0; i < len(q.items); i++ {
		it := q.items[i]
		if it.YStart >= height || it.YStop < 0 || it.XStart >= width || it.XStop < 0 {
			q.items = append(q.items[:i], q.items[i+1:]...)
			i--
			continue
		}

		if it.YStart < 0 {
			if it.Sym&SymX == 0 {
				it.YStart = 0
				it.XBegin = 0
			} else {
				j := it.YStop + it.YStart
				if j > 0 && q.Free() > 0 {
					part := it
					part.YStart, part.YStop = 0, j
					q.items = append(q.items, part)
					it.YStart = j + 1
				} else {
					it.YStart = 0
				}
				it = restart(it, width, height, clear)
			}
		}

		if it.YStop >= height {
			j := height - 1
			if it.Sym&SymX != 0 {
				k := it.YStart + (it.YStop - j)
				if k < j {
					if q.Free() <= 0 {
						it = restart(it, width, height, clear)
					} else {
						part := it
						part.YStart, part.YStop = k, j
						q.items = append(q.items, part)
						j = k - 1
					}
				}
				it.Sym &^= SymX
			}
			it.YStop = j
		}

		if it.XStart < 0 {
			if it.Sym&SymY == 0 {
				it.XStart = 0
			} else {
				j := it.XStop + it.XStart
				if j > 0 && q.Free() > 0 {
					part := it
					part.XStart, part.XStop = 0, j
					q.items = append(q.items, part)
					it.XStart = j + 1
				} else {
					it.XStart = 0
				}
				it = restart(it, width, height, clear)
			}
		}

		if it.XStop >= width {
			j := width - 1
			if it.Sym&SymY != 0 {
				k := it.XStart + (it.XStop - j)
				if k < j {
					if q.Free() <= 0 {
						it = restart(it, width, height, clear)
					} else {
						part := it
						part.XStart, part.XStop = k, j
						q.items = append(q.items, part)
						j = k - 1
					}
				}
				it.Sym &^= SymY
			}
			it.XStop = j
		}

		if it.YStart > it.YStop || it.XStart > it.XStop {
			// a split left nothing behind
			q.items = append(q.items[:i], q.items[i+1:]...)
			i--
			continue
		}
		it.YBegin = clamp(it.YBegin, it.YStart, it.YStop)
		it.XBegin = clamp(it.XBegin, it.XStart, it.XStop)
		q.items[i] = it
	}
	q.Tidy()
}

// restart clears the item's on-screen pixels and rewinds it to a fresh,
// non-symmetric first pass.
func restart(it Item, width, height int, clear ClearFunc) Item {
	r := image.Rect(max(it.XStart, 0), max(it.YStart, 0), min(it.XStop, width-1)+1, min(it.YStop, height-1)+1)
	if clear != nil && !r.Empty() {
		clear(r)
	}
	it.Sym = 0
	it.Pass = 0
	it.YBegin = it.YStart
	it.XBegin = it.XStart
	return it
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
