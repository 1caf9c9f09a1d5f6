package mandel

import (
	"image"
)

// PixelStore is the raw framebuffer a calculation paints into. Colors are
// palette indices. Runs are inclusive on both ends.
type PixelStore interface {
	Size() (w, h int)
	ColorAt(x, y int) int
	SetColor(x, y, c int)
	FillRun(y, x0, x1, c int)
	PutRun(y, x0 int, colors []int)
}

// Poller reports whether the caller asked the running calculation to stop.
type Poller interface {
	Interrupted() bool
}

// PollerFunc adapts a function to Poller.
type PollerFunc func() bool

func (f PollerFunc) Interrupted() bool { return f() }

// ImgProvider hands out the fully rendered image once a calculation completes.
type ImgProvider interface {
	GetImage() (image.RGBA, error)
}
