package engine

import (
	"encoding/binary"
	"fmt"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/scan"
	"github.com/marben/fractscan/internal/worklist"
)

const (
	checkpointMagic   = "FSCP"
	checkpointVersion = 1

	flagAutoLog = 0x01 // log map floor still to be found
)

// headerSize is magic, version, width, height, strategy, flags, log floor
// and the degraded count.
const headerSize = 4 + 1 + 4 + 4 + 1 + 1 + 4 + 4

// Checkpoint encodes what Resume needs besides the pixels: image size,
// strategy, log map floor, the work queue and the cursor of the item that
// was interrupted. All integers are big-endian.
func (c *Calculation) Checkpoint() ([]byte, error) {
	e := c.env
	q, err := e.Queue.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("engine: checkpoint: %w", err)
	}
	var cur []byte
	if e.Pending != nil {
		if cur, err = e.Pending.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("engine: checkpoint: %w", err)
		}
	}

	var flags byte
	if c.autoLog {
		flags |= flagAutoLog
	}
	b := make([]byte, 0, headerSize+8+len(q)+len(cur))
	b = append(b, checkpointMagic...)
	b = append(b, checkpointVersion)
	b = binary.BigEndian.AppendUint32(b, uint32(c.w))
	b = binary.BigEndian.AppendUint32(b, uint32(c.h))
	b = append(b, byte(c.cfg.Strategy), flags)
	b = binary.BigEndian.AppendUint32(b, uint32(int32(c.logFloor)))
	b = binary.BigEndian.AppendUint32(b, uint32(e.Degraded))
	b = binary.BigEndian.AppendUint32(b, uint32(len(q)))
	b = append(b, q...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(cur)))
	b = append(b, cur...)
	return b, nil
}

// Resume continues a calculation from a checkpoint made with the same
// config. The store must still hold the pixels it had when the checkpoint
// was made.
func Resume(cfg Config, blob []byte, store mandel.PixelStore, poll mandel.Poller) (*Calculation, error) {
	if len(blob) == 0 {
		return nil, ErrNoCalculation
	}
	c, err := build(cfg, store, poll)
	if err != nil {
		return nil, err
	}
	if len(blob) < headerSize || string(blob[:4]) != checkpointMagic {
		return nil, fmt.Errorf("%w: bad header", ErrCorruptCheckpoint)
	}
	if v := blob[4]; v != checkpointVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCorruptCheckpoint, v)
	}
	w, h := int(binary.BigEndian.Uint32(blob[5:])), int(binary.BigEndian.Uint32(blob[9:]))
	if w != c.w || h != c.h {
		return nil, fmt.Errorf("%w: made for %dx%d, store is %dx%d", ErrCorruptCheckpoint, w, h, c.w, c.h)
	}
	if k := scan.Kind(blob[13]); k != c.cfg.Strategy {
		return nil, fmt.Errorf("%w: made with strategy %v, config has %v", ErrCorruptCheckpoint, k, c.cfg.Strategy)
	}
	flags := blob[14]
	floor := int(int32(binary.BigEndian.Uint32(blob[15:])))
	degraded := int(binary.BigEndian.Uint32(blob[19:]))
	rest := blob[headerSize:]

	q, rest, err := chunk(rest)
	if err != nil {
		return nil, err
	}
	cur, rest, err := chunk(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptCheckpoint, len(rest))
	}

	e := c.env
	queue := worklist.New(worklist.DefaultCapacity)
	if err := queue.UnmarshalBinary(q); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptCheckpoint, err)
	}
	for _, it := range queue.Items() {
		if !it.Within(c.w, c.h) {
			return nil, fmt.Errorf("%w: item %v outside the %dx%d image", ErrCorruptCheckpoint, it, c.w, c.h)
		}
	}
	e.Queue = queue
	if len(cur) > 0 {
		var p scan.Cursor
		if err := p.UnmarshalBinary(cur); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptCheckpoint, err)
		}
		if err := p.Fits(c.w, c.h); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptCheckpoint, err)
		}
		e.Pending = &p
	}
	e.Degraded = degraded
	c.autoLog = c.autoLog && flags&flagAutoLog != 0
	if !c.autoLog && floor != 0 {
		c.logFloor = floor
		e.It.SetLogFloor(floor)
	}
	mandel.Logger().Info("calculation resumed", "fractal", c.formula.Name(), "queued", queue.Len(),
		"cursor", e.Pending != nil, "logfloor", c.logFloor)
	return c, nil
}

// chunk splits off one length prefixed part.
func chunk(b []byte) (part, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated", ErrCorruptCheckpoint)
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint64(n) > uint64(len(b)) {
		return nil, nil, fmt.Errorf("%w: part of %d bytes, %d left", ErrCorruptCheckpoint, n, len(b))
	}
	return b[:n], b[n:], nil
}
