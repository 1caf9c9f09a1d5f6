package scan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/marben/fractscan/internal/worklist"
)

var ErrCorruptCursor = errors.New("scan: corrupt cursor")

const cursorVersion = 1

// Cursor is the strategy state that does not fit in a work item. It belongs
// to the requeued item it was saved with; a cursor is only honoured when
// that exact item is scanned next.
type Cursor struct {
	Item worklist.Item

	// periodicity warm-up at the restart point
	carry int

	// boundary trace: color of the pixel left of the restart point, and
	// whether the restart point began a walk
	trail   int
	tracing bool

	// tesseral: packed position of the interrupted box and the edge colors
	// of every box on the stack
	tess  uint64
	edges []int32

	// diffusion counter
	counter uint64

	guess *guessState
}

// guessState is where solid guessing stopped.
type guessState struct {
	y    int
	skip *skipGrid
	// row is nil when the interrupt came before the row's blocks were
	// started; stacks are only kept with it.
	row   *guessVars
	stack [2][]int
}

// guessVars are the neighbour colors solid guessing carries from block to
// block, as they were at the start of a block.
type guessVars struct {
	x                    int
	c12, c13, c21, c22   int
	c24, c31, c41, c42   int
	c44, prev11          int
	guessed12, guessed13 int
}

func (v *guessVars) fields() []*int {
	return []*int{&v.x, &v.c12, &v.c13, &v.c21, &v.c22, &v.c24, &v.c31, &v.c41, &v.c42, &v.c44, &v.prev11, &v.guessed12, &v.guessed13}
}

// Fits returns an error when the cursor reaches outside a w×h screen.
func (c *Cursor) Fits(w, h int) error {
	if !c.Item.Within(w, h) {
		return fmt.Errorf("%w: item %v outside %dx%d", ErrCorruptCursor, c.Item, w, h)
	}
	if x, y := int(c.tess>>40&0xffffff), int(c.tess>>16&0xffffff); x >= w || y >= h {
		return fmt.Errorf("%w: tesseral box at (%d,%d)", ErrCorruptCursor, x, y)
	}
	if c.counter >= 1<<maxDiffusionBits {
		return fmt.Errorf("%w: diffusion counter %d", ErrCorruptCursor, c.counter)
	}
	if g := c.guess; g != nil {
		if g.y < 0 || g.y >= h {
			return fmt.Errorf("%w: guessing row %d", ErrCorruptCursor, g.y)
		}
		if g.row != nil && (g.row.x < 0 || g.row.x >= w) {
			return fmt.Errorf("%w: guessing block at column %d", ErrCorruptCursor, g.row.x)
		}
	}
	return nil
}

func (c *Cursor) String() string {
	return fmt.Sprintf("cursor{%v carry=%d}", c.Item, c.carry)
}

type encoder struct {
	buf []byte
	err error
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.BigEndian.AppendUint64(e.buf, v) }

func (e *encoder) i32(v int) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		e.err = fmt.Errorf("scan: cursor value %d out of range", v)
	}
	e.u32(uint32(int32(v)))
}

func (e *encoder) bool(b bool) {
	if b {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) ints(s []int) {
	e.u32(uint32(len(s)))
	for _, v := range s {
		e.i32(v)
	}
}

type decoder struct {
	buf []byte
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf) < n {
		d.err = fmt.Errorf("%w: truncated", ErrCorruptCursor)
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) i32() int   { return int(int32(d.u32())) }
func (d *decoder) bool() bool { return d.u8() != 0 }

// count reads a slice length and checks that n elements of size bytes each
// can still follow.
func (d *decoder) count(size int) int {
	n := int(d.u32())
	if d.err == nil && n*size > len(d.buf) {
		d.err = fmt.Errorf("%w: length %d exceeds input", ErrCorruptCursor, n)
		return 0
	}
	return n
}

func (d *decoder) ints() []int {
	n := d.count(4)
	if n == 0 {
		return nil
	}
	s := make([]int, n)
	for i := range s {
		s[i] = d.i32()
	}
	return s
}

// MarshalBinary encodes the cursor big-endian, fields in declaration order.
func (c *Cursor) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.u8(cursorVersion)
	it := c.Item
	for _, v := range [...]int{it.XStart, it.XStop, it.XBegin, it.YStart, it.YStop, it.YBegin, it.Pass, it.Sym} {
		e.i32(v)
	}
	e.i32(c.carry)
	e.i32(c.trail)
	e.bool(c.tracing)
	e.u64(c.tess)
	e.u32(uint32(len(c.edges)))
	for _, v := range c.edges {
		e.u32(uint32(v))
	}
	e.u64(c.counter)

	g := c.guess
	e.bool(g != nil)
	if g != nil {
		e.i32(g.y)
		e.bool(g.skip != nil)
		if g.skip != nil {
			e.i32(g.skip.cols)
			e.i32(g.skip.rows)
			e.u32(uint32(len(g.skip.bits)))
			for _, w := range g.skip.bits {
				e.u64(w)
			}
		}
		e.bool(g.row != nil)
		if g.row != nil {
			for _, p := range g.row.fields() {
				e.i32(*p)
			}
			e.ints(g.stack[0])
			e.ints(g.stack[1])
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

func (c *Cursor) UnmarshalBinary(data []byte) error {
	d := &decoder{buf: data}
	if v := d.u8(); d.err == nil && v != cursorVersion {
		return fmt.Errorf("%w: version %d", ErrCorruptCursor, v)
	}
	var n Cursor
	f := [...]*int{&n.Item.XStart, &n.Item.XStop, &n.Item.XBegin, &n.Item.YStart, &n.Item.YStop, &n.Item.YBegin, &n.Item.Pass, &n.Item.Sym}
	for _, p := range f {
		*p = d.i32()
	}
	n.carry = d.i32()
	n.trail = d.i32()
	n.tracing = d.bool()
	n.tess = d.u64()
	if k := d.count(4); k > 0 {
		n.edges = make([]int32, k)
		for i := range n.edges {
			n.edges[i] = int32(d.u32())
		}
	}
	n.counter = d.u64()

	if d.bool() {
		g := &guessState{y: d.i32()}
		if d.bool() {
			cols, rows := d.i32(), d.i32()
			k := d.count(8)
			if d.err == nil && (cols <= 0 || rows <= 0 || k != (cols*rows+63)/64) {
				return fmt.Errorf("%w: skip grid %dx%d with %d words", ErrCorruptCursor, cols, rows, k)
			}
			g.skip = &skipGrid{cols: cols, rows: rows, bits: make([]uint64, k)}
			for i := range g.skip.bits {
				g.skip.bits[i] = d.u64()
			}
		}
		if d.bool() {
			g.row = &guessVars{}
			for _, p := range g.row.fields() {
				*p = d.i32()
			}
			g.stack[0] = d.ints()
			g.stack[1] = d.ints()
		}
		n.guess = g
	}
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorruptCursor, len(d.buf))
	}
	*c = n
	return nil
}
