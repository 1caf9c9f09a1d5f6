// Package worklist keeps the ordered set of unfinished screen rectangles a
// calculation still has to visit. Items are merged with their neighbours
// whenever possible and kept sorted by pass, row and column so that the order
// in which work resumes is fully determined by the queue contents.
package worklist

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// DefaultCapacity matches the historical fixed table size. It is a soft
// limit: callers may pick any positive value.
const DefaultCapacity = 12

// Symmetry bits stored in Item.Sym.
const (
	SymX        = 0x01 // x axis mirroring is active for the item
	SymY        = 0x02 // y axis mirroring is active for the item
	SymXDecided = 0x10 // x axis question already settled for the item
	SymYDecided = 0x20 // y axis question already settled for the item
)

var ErrQueueFull = errors.New("worklist: queue full")

// Item is one rectangular region awaiting computation. All bounds are
// inclusive. XBegin/YBegin is the resumption cursor.
type Item struct {
	XStart, XStop, XBegin int
	YStart, YStop, YBegin int
	Pass                  int
	Sym                   int
}

// NewItem returns an item covering [x0,x1]×[y0,y1] with the cursor at its start.
func NewItem(x0, x1, y0, y1, pass, sym int) Item {
	return Item{
		XStart: x0, XStop: x1, XBegin: x0,
		YStart: y0, YStop: y1, YBegin: y0,
		Pass: pass, Sym: sym,
	}
}

func (it Item) String() string {
	return fmt.Sprintf("[%d..%d@%d]x[%d..%d@%d] pass=%d sym=%#x",
		it.XStart, it.XStop, it.XBegin, it.YStart, it.YStop, it.YBegin, it.Pass, it.Sym)
}

// Within reports whether the item lies inside a w×h screen.
func (it Item) Within(w, h int) bool {
	return it.XStart >= 0 && it.YStart >= 0 && it.XStop < w && it.YStop < h
}

// Width and Height of the item's full region.
func (it Item) Width() int  { return it.XStop - it.XStart + 1 }
func (it Item) Height() int { return it.YStop - it.YStart + 1 }

// Queue is an ordered, capacity-limited list of items.
type Queue struct {
	items    []Item
	capacity int
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity, items: make([]Item, 0, capacity)}
}

func (q *Queue) Len() int      { return len(q.items) }
func (q *Queue) Cap() int      { return q.capacity }
func (q *Queue) Free() int     { return q.capacity - len(q.items) }
func (q *Queue) Empty() bool   { return len(q.items) == 0 }
func (q *Queue) Items() []Item { return slices.Clone(q.items) }

// Reset drops every item.
func (q *Queue) Reset() { q.items = q.items[:0] }

// Add appends the item, then merges and re-sorts the whole queue.
func (q *Queue) Add(it Item) error {
	if len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	q.items = append(q.items, it)
	q.Tidy()
	return nil
}

// Pop removes and returns the first item.
func (q *Queue) Pop() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	it := q.items[0]
	q.items = slices.Delete(q.items, 0, 1)
	return it, true
}

// Take removes the first queued item equal to it and reports whether one
// was found.
func (q *Queue) Take(it Item) bool {
	i := slices.Index(q.items, it)
	if i < 0 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

// Grow raises the capacity by n.
func (q *Queue) Grow(n int) {
	if n > 0 {
		q.capacity += n
		q.items = slices.Grow(q.items, n)
	}
}

// LowestPass returns the smallest pass of any queued item, or -1 when empty.
func (q *Queue) LowestPass() int {
	if len(q.items) == 0 {
		return -1
	}
	lowest := q.items[0].Pass
	for _, it := range q.items[1:] {
		lowest = min(lowest, it.Pass)
	}
	return lowest
}

// Tidy merges items until no merge applies, then sorts by pass, row, column.
func (q *Queue) Tidy() {
	for {
		j := q.combine()
		if j < 0 {
			break
		}
		q.items = slices.Delete(q.items, j, j+1)
	}
	slices.SortStableFunc(q.items, func(a, b Item) int {
		return cmp.Or(
			cmp.Compare(a.Pass, b.Pass),
			cmp.Compare(a.YStart, b.YStart),
			cmp.Compare(a.XStart, b.XStart),
		)
	})
}

// combine merges one pair of items into the lower index and returns the
// index of the absorbed item, or -1 when no pair qualifies.
func (q *Queue) combine() int {
	for i := range q.items {
		a := &q.items[i]
		if a.YStart != a.YBegin {
			continue
		}
		for j := i + 1; j < len(q.items); j++ {
			b := q.items[j]
			if b.Sym != a.Sym || b.YStart != b.YBegin || b.XStart != b.XBegin || b.Pass != a.Pass {
				continue
			}
			if a.XStart == b.XStart && a.XBegin == b.XBegin && a.XStop == b.XStop {
				if a.YStop+1 == b.YStart {
					a.YStop = b.YStop
					return j
				}
				if b.YStop+1 == a.YStart {
					a.YStart = b.YStart
					a.YBegin = b.YBegin
					return j
				}
			}
			if a.YStart == b.YStart && a.YBegin == b.YBegin && a.YStop == b.YStop {
				if a.XStop+1 == b.XStart {
					a.XStop = b.XStop
					return j
				}
				if b.XStop+1 == a.XStart {
					a.XStart = b.XStart
					a.XBegin = b.XBegin
					return j
				}
			}
		}
	}
	return -1
}
