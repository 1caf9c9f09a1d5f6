package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marben/fractscan/internal/checkpoint"
	"github.com/marben/fractscan/internal/engine"
	"github.com/marben/fractscan/internal/framebuffer"
	"github.com/marben/fractscan/internal/wire"
)

const progressInterval = 100 * time.Millisecond

// imgWorkScheduler owns the calculation. One goroutine runs it; clients
// reach it only through commands, which interrupt the run.
type imgWorkScheduler struct {
	initial engine.Config
	pal     color.Palette
	hub     *hub

	cmds    chan wire.Message
	pending atomic.Bool

	// owned by the run goroutine
	calc      *engine.Calculation
	lastStats time.Time

	pixels, iterations atomic.Int64

	// m guards the fields below and orders everything sent to the hub
	m     sync.Mutex
	buf   *framebuffer.Buffer
	hello *wire.Hello
	// done is closed when the current image is complete
	done chan struct{}
}

func newImgWorkScheduler(cfg engine.Config, pal color.Palette, h *hub) *imgWorkScheduler {
	return &imgWorkScheduler{
		initial: cfg,
		pal:     pal,
		hub:     h,
		cmds:    make(chan wire.Message, 16),
		done:    make(chan struct{}),
	}
}

// Interrupted implements mandel.Poller for the running calculation.
func (iws *imgWorkScheduler) Interrupted() bool {
	if now := time.Now(); now.Sub(iws.lastStats) > progressInterval {
		iws.lastStats = now
		iws.storeStats()
	}
	return iws.pending.Load()
}

func (iws *imgWorkScheduler) storeStats() {
	p, i := iws.calc.Stats()
	iws.pixels.Store(p)
	iws.iterations.Store(i)
}

// command queues a client request for the run goroutine.
func (iws *imgWorkScheduler) command(m wire.Message) {
	select {
	case iws.cmds <- m:
		iws.pending.Store(true)
	default:
		log.Printf("dropping %v: too many commands queued", m.Type())
	}
}

// start begins a calculation of w×h pixels, or continues the one saved in
// st when it is not nil.
func (iws *imgWorkScheduler) start(w, h int, st *checkpoint.State) error {
	if st != nil {
		calc, buf, err := st.Restore(iws.pal, iws)
		if err != nil {
			return err
		}
		iws.install(calc, buf)
		return nil
	}
	return iws.begin(iws.initial, w, h)
}

func (iws *imgWorkScheduler) begin(cfg engine.Config, w, h int) error {
	buf := framebuffer.New(w, h, iws.pal)
	calc, err := engine.Begin(cfg, buf, iws)
	if err != nil {
		return err
	}
	iws.install(calc, buf)
	return nil
}

func (iws *imgWorkScheduler) install(calc *engine.Calculation, buf *framebuffer.Buffer) {
	iws.calc = calc
	iws.storeStats()
	iws.m.Lock()
	defer iws.m.Unlock()
	iws.buf = buf
	iws.reopen()
	iws.announce()
	buf.MarkAll()
}

// announce tells every client about the current view. Callers hold m.
func (iws *imgWorkScheduler) announce() {
	w, h := iws.buf.Size()
	r := iws.calc.Config().Region
	iws.hello = &wire.Hello{Width: w, Height: h, Region: [4]float64{r.Xmin, r.Xmax, r.Ymin, r.Ymax}, Palette: iws.pal}
	iws.hub.broadcast(iws.hello)
}

// reopen marks the image as incomplete. Callers hold m.
func (iws *imgWorkScheduler) reopen() {
	select {
	case <-iws.done:
		iws.done = make(chan struct{})
	default:
	}
}

// loop runs the calculation and applies commands until ctx ends. It
// returns the state to save.
func (iws *imgWorkScheduler) loop(ctx context.Context) (checkpoint.State, error) {
	for {
		st, _, err := iws.calc.Run(ctx)
		if err != nil {
			return checkpoint.State{}, err
		}
		if st == engine.StatusCompleted {
			iws.finished()
			select {
			case m := <-iws.cmds:
				iws.apply(m)
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			iws.m.Lock()
			buf := iws.buf
			iws.m.Unlock()
			return checkpoint.Capture(iws.calc, buf)
		}
		iws.drain()
	}
}

func (iws *imgWorkScheduler) drain() {
	iws.pending.Store(false)
	for {
		select {
		case m := <-iws.cmds:
			iws.apply(m)
		default:
			return
		}
	}
}

func (iws *imgWorkScheduler) apply(m wire.Message) {
	switch m := m.(type) {
	case *wire.Pan:
		err := iws.calc.Pan(m.Rows, m.Cols)
		if errors.Is(err, engine.ErrCannotPan) {
			// the moved view is computed from scratch instead
			vp, verr := iws.calc.Viewport().Pan(m.Rows, m.Cols)
			if verr != nil {
				log.Printf("pan: %v", verr)
				return
			}
			cfg := iws.calc.Config()
			cfg.Region = vp.Region()
			iws.restart(cfg)
			return
		}
		if err != nil {
			log.Printf("pan: %v", err)
			return
		}
		iws.m.Lock()
		iws.reopen()
		iws.announce()
		iws.buf.MarkAll()
		iws.m.Unlock()
	case *wire.Zoom:
		cfg, err := iws.calc.Zoom(m.Factor, m.Col, m.Row)
		if err != nil {
			log.Printf("zoom: %v", err)
			return
		}
		iws.restart(cfg)
	case *wire.Restart:
		iws.restart(iws.initial)
	default:
		log.Printf("unexpected %v from client", m.Type())
	}
}

func (iws *imgWorkScheduler) restart(cfg engine.Config) {
	w, h := iws.calc.Viewport().W, iws.calc.Viewport().H
	if err := iws.begin(cfg, w, h); err != nil {
		log.Printf("restart: %v", err)
	}
}

func (iws *imgWorkScheduler) finished() {
	iws.storeStats()
	p, i := iws.pixels.Load(), iws.iterations.Load()
	iws.m.Lock()
	iws.flushLocked()
	select {
	case <-iws.done:
	default:
		close(iws.done)
	}
	iws.hub.broadcast(&wire.Done{Pixels: p, Iterations: i, Degraded: iws.calc.Degraded()})
	iws.m.Unlock()
	log.Print(printer.Sprintf("image complete: %d pixels, %d iterations", p, i))
}

// snapshot returns the framebuffer and whether its image is complete.
func (iws *imgWorkScheduler) snapshot() (*framebuffer.Buffer, bool) {
	iws.m.Lock()
	defer iws.m.Unlock()
	select {
	case <-iws.done:
		return iws.buf, true
	default:
		return iws.buf, false
	}
}

// GetImage implements mandel.ImgProvider. It waits for the image to be
// complete.
func (iws *imgWorkScheduler) GetImage() (image.RGBA, error) {
	iws.m.Lock()
	done := iws.done
	iws.m.Unlock()
	<-done
	buf, _ := iws.snapshot()
	return buf.GetImage()
}

// subscribe sends a new client the current view and everything computed so
// far, then adds it to the hub.
func (iws *imgWorkScheduler) subscribe(c *client) {
	iws.m.Lock()
	defer iws.m.Unlock()
	c.queue(iws.hello)
	w, h := iws.buf.Size()
	for _, r := range tiles(w, h) {
		c.queue(&wire.Tile{Rect: r, Pix: iws.buf.Indices(r)})
	}
	select {
	case <-iws.done:
		c.queue(&wire.Done{Pixels: iws.pixels.Load(), Iterations: iws.iterations.Load()})
	default:
	}
	iws.hub.add(c)
}

// flushLocked sends the tiles changed since the last flush. Callers hold m.
func (iws *imgWorkScheduler) flushLocked() {
	for _, r := range iws.buf.Dirty() {
		iws.hub.broadcast(&wire.Tile{Rect: r, Pix: iws.buf.Indices(r)})
	}
}

// stream flushes tiles and progress until ctx ends.
func (iws *imgWorkScheduler) stream(ctx context.Context) {
	t := time.NewTicker(progressInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		iws.m.Lock()
		iws.flushLocked()
		iws.m.Unlock()
		if _, complete := iws.snapshot(); !complete {
			iws.hub.broadcast(&wire.Progress{Pixels: iws.pixels.Load(), Iterations: iws.iterations.Load()})
		}
	}
}

// tiles splits a w×h image into squares of framebuffer.DefaultTileSize.
// Tiles at the right and bottom edges are smaller if the size is not
// divisible.
func tiles(w, h int) []image.Rectangle {
	const size = framebuffer.DefaultTileSize
	var out []image.Rectangle
	for oy := 0; oy < h; oy += size {
		for ox := 0; ox < w; ox += size {
			out = append(out, image.Rect(ox, oy, min(ox+size, w), min(oy+size, h)))
		}
	}
	return out
}
