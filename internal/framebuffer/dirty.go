package framebuffer

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// dirtyTiles is a lock-free bitmap with one bit per tile of the image. Bit
// index = ty*cols + tx.
type dirtyTiles struct {
	words      []atomic.Uint64
	cols, rows int
	size       int
}

func newDirtyTiles(w, h, size int) *dirtyTiles {
	cols, rows := (w+size-1)/size, (h+size-1)/size
	return &dirtyTiles{words: make([]atomic.Uint64, (cols*rows+63)/64), cols: cols, rows: rows, size: size}
}

// markRun marks the tiles touched by pixels x0..x1 of row y.
func (d *dirtyTiles) markRun(y, x0, x1 int) {
	ty := y / d.size
	for tx := x0 / d.size; tx <= x1/d.size; tx++ {
		i := ty*d.cols + tx
		d.words[i>>6].Or(1 << (i & 63))
	}
}

func (d *dirtyTiles) markAll() {
	n := d.cols * d.rows
	for i := range d.words {
		if rest := n - i*64; rest < 64 {
			d.words[i].Store(1<<rest - 1)
		} else {
			d.words[i].Store(^uint64(0))
		}
	}
}

// take returns the dirty tiles as pixel rectangles, clipped to w×h, and
// marks them clean.
func (d *dirtyTiles) take(w, h int) []image.Rectangle {
	var out []image.Rectangle
	for wi := range d.words {
		word := d.words[wi].Swap(0)
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << b
			i := wi*64 + b
			tx, ty := i%d.cols, i/d.cols
			r := image.Rect(tx*d.size, ty*d.size, (tx+1)*d.size, (ty+1)*d.size)
			out = append(out, r.Intersect(image.Rect(0, 0, w, h)))
		}
	}
	return out
}
