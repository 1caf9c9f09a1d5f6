// Command cliclient connects to the render server, optionally moves the
// view, waits for the image to be complete and saves it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/coder/websocket"

	"github.com/marben/fractscan/internal/framebuffer"
	"github.com/marben/fractscan/internal/wire"
)

func main() {
	log.Printf("Starting CLI client...")
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run() error {
	var (
		addr    = flag.String("addr", "ws://localhost:8080/ws", "server websocket url")
		out     = flag.String("o", "mandel.png", "output image; the extension picks png, tiff or bmp")
		pan     = flag.String("pan", "", "pan by rows,cols once the image is complete")
		zoom    = flag.Float64("zoom", 0, "zoom by this factor about the image center once it is complete")
		timeout = flag.Duration("timeout", 10*time.Minute, "give up after this long")
	)
	flag.Parse()

	var cmd wire.Message
	switch {
	case *pan != "" && *zoom != 0:
		return errors.New("-pan and -zoom exclude each other")
	case *pan != "":
		var p wire.Pan
		if _, err := fmt.Sscanf(*pan, "%d,%d", &p.Rows, &p.Cols); err != nil {
			return fmt.Errorf("-pan %q: %w", *pan, err)
		}
		cmd = &p
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Step 1: Connect to the server
	log.Printf("Connecting to %s...", *addr)
	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(1 << 24)
	s := &session{conn: conn}

	// Step 2: Wait for the image the server is working on
	if err := s.waitDone(ctx); err != nil {
		return err
	}

	// Step 3: Move the view and wait for the new image
	if *zoom != 0 {
		w, h := s.buf.Size()
		cmd = &wire.Zoom{Factor: *zoom, Col: w / 2, Row: h / 2}
	}
	if cmd != nil {
		log.Printf("Sending %v...", cmd.Type())
		if err := s.send(ctx, cmd); err != nil {
			return err
		}
		if err := s.waitHello(ctx); err != nil {
			return err
		}
		if err := s.waitDone(ctx); err != nil {
			return err
		}
	}

	// Step 4: Save the image
	log.Printf("Saving rendered image to %q...", *out)
	if err := s.buf.Save(*out); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	log.Printf("Fully rendered image saved to %q", *out)
	return nil
}

// session mirrors the server's image from the messages it streams.
type session struct {
	conn *websocket.Conn
	buf  *framebuffer.Buffer

	lastProgress time.Time
}

func (s *session) send(ctx context.Context, m wire.Message) error {
	b, err := wire.Marshal(m)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageBinary, b)
}

func (s *session) waitHello(ctx context.Context) error {
	for {
		m, err := s.next(ctx)
		if err != nil {
			return err
		}
		if m.Type() == wire.TypeHello {
			return nil
		}
	}
}

func (s *session) waitDone(ctx context.Context) error {
	for {
		m, err := s.next(ctx)
		if err != nil {
			return err
		}
		switch m := m.(type) {
		case *wire.Progress:
			if time.Since(s.lastProgress) > time.Second {
				s.lastProgress = time.Now()
				w, h := s.buf.Size()
				log.Printf("%d of %d pixels computed", m.Pixels, w*h)
			}
		case *wire.Done:
			log.Printf("image complete: %d pixels, %d iterations", m.Pixels, m.Iterations)
			return nil
		}
	}
}

// next reads one message and applies it to the image.
func (s *session) next(ctx context.Context) (wire.Message, error) {
	_, b, err := s.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	m, err := wire.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	switch m := m.(type) {
	case *wire.Hello:
		s.buf = framebuffer.New(m.Width, m.Height, m.Palette)
	case *wire.Tile:
		if s.buf == nil {
			return nil, errors.New("tile before hello")
		}
		if w, h := s.buf.Size(); !m.Rect.In(image.Rect(0, 0, w, h)) {
			return nil, fmt.Errorf("tile %v outside the %dx%d image", m.Rect, w, h)
		}
		w := m.Rect.Dx()
		colors := make([]int, w)
		for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
			for i, c := range m.Pix[(y-m.Rect.Min.Y)*w:][:w] {
				colors[i] = int(c)
			}
			s.buf.PutRun(y, m.Rect.Min.X, colors)
		}
	case *wire.Progress, *wire.Done:
		if s.buf == nil {
			return nil, fmt.Errorf("%v before hello", m.Type())
		}
	}
	return m, nil
}
