// Package framebuffer is the paletted image a calculation paints into. It
// is safe for concurrent use: the calculation writes while a server reads
// the tiles that changed.
package framebuffer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	mandel "github.com/marben/fractscan"
)

// DefaultTileSize is the edge of the squares changes are tracked in.
const DefaultTileSize = 32

type Buffer struct {
	mu    sync.RWMutex
	img   *image.Paletted
	dirty *dirtyTiles
}

var _ mandel.PixelStore = (*Buffer)(nil)
var _ mandel.ImgProvider = (*Buffer)(nil)

// New returns a w×h buffer filled with color 0.
func New(w, h int, pal color.Palette) *Buffer {
	return NewTiled(w, h, pal, DefaultTileSize)
}

func NewTiled(w, h int, pal color.Palette, tile int) *Buffer {
	return &Buffer{
		img:   image.NewPaletted(image.Rect(0, 0, w, h), pal),
		dirty: newDirtyTiles(w, h, max(tile, 1)),
	}
}

func (b *Buffer) Size() (w, h int) {
	r := b.img.Rect
	return r.Dx(), r.Dy()
}

func (b *Buffer) ColorAt(x, y int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int(b.img.Pix[y*b.img.Stride+x])
}

func (b *Buffer) SetColor(x, y, c int) {
	b.mu.Lock()
	b.img.Pix[y*b.img.Stride+x] = uint8(c)
	b.mu.Unlock()
	b.dirty.markRun(y, x, x)
}

func (b *Buffer) FillRun(y, x0, x1, c int) {
	if x1 < x0 {
		return
	}
	b.mu.Lock()
	row := b.img.Pix[y*b.img.Stride:]
	for x := x0; x <= x1; x++ {
		row[x] = uint8(c)
	}
	b.mu.Unlock()
	b.dirty.markRun(y, x0, x1)
}

func (b *Buffer) PutRun(y, x0 int, colors []int) {
	if len(colors) == 0 {
		return
	}
	b.mu.Lock()
	row := b.img.Pix[y*b.img.Stride+x0:]
	for i, c := range colors {
		row[i] = uint8(c)
	}
	b.mu.Unlock()
	b.dirty.markRun(y, x0, x0+len(colors)-1)
}

func (b *Buffer) Palette() color.Palette { return b.img.Palette }

// Snapshot copies the current image.
func (b *Buffer) Snapshot() *image.Paletted {
	b.mu.RLock()
	defer b.mu.RUnlock()
	img := image.NewPaletted(b.img.Rect, b.img.Palette)
	copy(img.Pix, b.img.Pix)
	return img
}

// GetImage renders the buffer through its palette.
func (b *Buffer) GetImage() (image.RGBA, error) {
	src := b.Snapshot()
	dst := image.NewRGBA(src.Rect)
	draw.Draw(dst, dst.Rect, src, image.Point{}, draw.Src)
	return *dst, nil
}

// Indices copies the palette indices of r, row by row.
func (b *Buffer) Indices(r image.Rectangle) []byte {
	r = r.Intersect(b.img.Rect)
	out := make([]byte, 0, r.Dx()*r.Dy())
	b.mu.RLock()
	defer b.mu.RUnlock()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*b.img.Stride + r.Min.X
		out = append(out, b.img.Pix[off:off+r.Dx()]...)
	}
	return out
}

// Pix copies every palette index, rows top to bottom.
func (b *Buffer) Pix() []byte { return b.Indices(b.img.Rect) }

// SetPix replaces the whole image, as saved by Pix.
func (b *Buffer) SetPix(pix []byte) error {
	w, h := b.Size()
	if len(pix) != w*h {
		return fmt.Errorf("framebuffer: %d pixels for a %dx%d image", len(pix), w, h)
	}
	b.mu.Lock()
	for y := range h {
		copy(b.img.Pix[y*b.img.Stride:y*b.img.Stride+w], pix[y*w:])
	}
	b.mu.Unlock()
	b.dirty.markAll()
	return nil
}

// Dirty returns the tiles written since the last call.
func (b *Buffer) Dirty() []image.Rectangle {
	w, h := b.Size()
	return b.dirty.take(w, h)
}

// MarkAll makes every tile dirty, for a client that needs the whole image.
func (b *Buffer) MarkAll() { b.dirty.markAll() }
