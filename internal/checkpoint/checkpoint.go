// Package checkpoint stores an interrupted calculation in a file: the
// config it was started with, the engine's checkpoint and the pixels
// computed so far, compressed as one zstd frame.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/engine"
	"github.com/marben/fractscan/internal/framebuffer"
)

const magic = "fractscan checkpoint v1\n"

// ErrCorrupt is returned for files that are not checkpoints or were cut
// short.
var ErrCorrupt = errors.New("checkpoint: corrupt file")

// State is everything needed to continue a calculation in a new process.
type State struct {
	Config engine.Config
	Width  int
	Height int
	// Engine is the blob made by Calculation.Checkpoint.
	Engine []byte
	// Pixels are palette indices, rows top to bottom.
	Pixels []byte
}

// Capture takes the state of a calculation that is not running.
func Capture(c *engine.Calculation, buf *framebuffer.Buffer) (State, error) {
	blob, err := c.Checkpoint()
	if err != nil {
		return State{}, err
	}
	w, h := buf.Size()
	return State{Config: c.Config(), Width: w, Height: h, Engine: blob, Pixels: buf.Pix()}, nil
}

// Restore rebuilds the framebuffer and the calculation. The framebuffer
// uses pal, which need not be the palette of the original run.
func (s State) Restore(pal color.Palette, poll mandel.Poller) (*engine.Calculation, *framebuffer.Buffer, error) {
	buf := framebuffer.New(s.Width, s.Height, pal)
	if err := buf.SetPix(s.Pixels); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	c, err := engine.Resume(s.Config, s.Engine, buf, poll)
	if err != nil {
		return nil, nil, err
	}
	return c, buf, nil
}

// Write encodes s to w.
func Write(w io.Writer, s State) error {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("checkpoint: encode config: %w", err)
	}
	if len(s.Pixels) != s.Width*s.Height {
		return fmt.Errorf("checkpoint: %d pixels for %dx%d", len(s.Pixels), s.Width, s.Height)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	var hdr []byte
	hdr = append(hdr, magic...)
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(s.Width))
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(s.Height))
	for _, part := range [][]byte{hdr, chunkLen(cfg), cfg, chunkLen(s.Engine), s.Engine, s.Pixels} {
		if _, err := enc.Write(part); err != nil {
			_ = enc.Close()
			return fmt.Errorf("zstd encode: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	return nil
}

func chunkLen(b []byte) []byte { return binary.BigEndian.AppendUint32(nil, uint32(len(b))) }

// maxPixels bounds the image size a file may announce.
const maxPixels = 1 << 28

// Read decodes a checkpoint written by Write.
func Read(r io.Reader) (State, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(maxPixels+1<<24))
	if err != nil {
		return State{}, fmt.Errorf("zstd decode: %w", err)
	}
	defer dec.Close()
	var payload bytes.Buffer
	if _, err := payload.ReadFrom(dec); err != nil {
		return State{}, fmt.Errorf("%w: zstd decode: %w", ErrCorrupt, err)
	}
	b := payload.Bytes()

	if len(b) < len(magic)+8 || string(b[:len(magic)]) != magic {
		return State{}, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	b = b[len(magic):]
	s := State{Width: int(binary.BigEndian.Uint32(b)), Height: int(binary.BigEndian.Uint32(b[4:]))}
	b = b[8:]
	if s.Width <= 0 || s.Height <= 0 || s.Width*s.Height > maxPixels {
		return State{}, fmt.Errorf("%w: image %dx%d", ErrCorrupt, s.Width, s.Height)
	}

	cfg, b, err := chunk(b)
	if err != nil {
		return State{}, err
	}
	if s.Engine, b, err = chunk(b); err != nil {
		return State{}, err
	}
	if len(b) != s.Width*s.Height {
		return State{}, fmt.Errorf("%w: %d pixels for %dx%d", ErrCorrupt, len(b), s.Width, s.Height)
	}
	s.Pixels = b

	s.Config = engine.DefaultConfig()
	if err := json.Unmarshal(cfg, &s.Config); err != nil {
		return State{}, fmt.Errorf("%w: config: %w", ErrCorrupt, err)
	}
	return s, nil
}

func chunk(b []byte) (part, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated", ErrCorrupt)
	}
	n := binary.BigEndian.Uint32(b)
	if uint64(n) > uint64(len(b)-4) {
		return nil, nil, fmt.Errorf("%w: part of %d bytes, %d left", ErrCorrupt, n, len(b)-4)
	}
	return b[4 : 4+n], b[4+n:], nil
}

// Save writes s to path through a temporary file, so an existing checkpoint
// survives a failed write.
func Save(path string, s State) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(f.Name())
	if err := Write(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

func Load(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return State{}, fmt.Errorf("checkpoint: %w", err)
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
