// Package wire is the message format between the render server and its
// clients. Every websocket message is one binary frame: a type byte and a
// big-endian body. Tile pixels travel zstd compressed.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/klauspost/compress/zstd"
)

type Type byte

const (
	TypeHello Type = iota + 1
	TypeTile
	TypeProgress
	TypeDone
	TypePan
	TypeZoom
	TypeRestart
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "hello"
	case TypeTile:
		return "tile"
	case TypeProgress:
		return "progress"
	case TypeDone:
		return "done"
	case TypePan:
		return "pan"
	case TypeZoom:
		return "zoom"
	case TypeRestart:
		return "restart"
	}
	return fmt.Sprintf("Type(%d)", byte(t))
}

var ErrMalformed = errors.New("wire: malformed message")

// Message is one of the types below.
type Message interface {
	Type() Type
	appendBody([]byte) ([]byte, error)
	parseBody([]byte) error
}

// Hello starts every stream and follows every restart.
type Hello struct {
	Width, Height int
	Region        [4]float64 // xmin, xmax, ymin, ymax
	Palette       color.Palette
}

// Tile replaces a rectangle of the image with palette indices, row by row.
type Tile struct {
	Rect image.Rectangle
	Pix  []byte
}

type Progress struct {
	Pixels     int64
	Iterations int64
}

// Done tells the client the image is final.
type Done struct {
	Pixels     int64
	Iterations int64
	Degraded   int
}

// Pan asks the server to move the view; see engine.Calculation.Pan.
type Pan struct {
	Rows, Cols int
}

// Zoom asks for the view scaled by Factor about pixel (Col, Row).
type Zoom struct {
	Factor   float64
	Col, Row int
}

// Restart asks for the calculation to start again from the initial view.
type Restart struct{}

func (*Hello) Type() Type    { return TypeHello }
func (*Tile) Type() Type     { return TypeTile }
func (*Progress) Type() Type { return TypeProgress }
func (*Done) Type() Type     { return TypeDone }
func (*Pan) Type() Type      { return TypePan }
func (*Zoom) Type() Type     { return TypeZoom }
func (*Restart) Type() Type  { return TypeRestart }

// Marshal encodes m into one frame.
func Marshal(m Message) ([]byte, error) {
	b, err := m.appendBody([]byte{byte(m.Type())})
	if err != nil {
		return nil, fmt.Errorf("wire: encode %v: %w", m.Type(), err)
	}
	return b, nil
}

// Unmarshal decodes a frame made by Marshal.
func Unmarshal(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	var m Message
	switch Type(b[0]) {
	case TypeHello:
		m = new(Hello)
	case TypeTile:
		m = new(Tile)
	case TypeProgress:
		m = new(Progress)
	case TypeDone:
		m = new(Done)
	case TypePan:
		m = new(Pan)
	case TypeZoom:
		m = new(Zoom)
	case TypeRestart:
		m = new(Restart)
	default:
		return nil, fmt.Errorf("%w: unknown type %d", ErrMalformed, b[0])
	}
	if err := m.parseBody(b[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrMalformed, m.Type(), err)
	}
	return m, nil
}

// reader walks a body; the first short read sticks.
type reader struct {
	b   []byte
	err error
}

var errShort = errors.New("short body")

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.b) {
		r.err = errShort
		r.b = nil
		return nil
	}
	p := r.b[:n]
	r.b = r.b[n:]
	return p
}

func (r *reader) u32() uint32 {
	if p := r.next(4); p != nil {
		return binary.BigEndian.Uint32(p)
	}
	return 0
}

func (r *reader) i32() int { return int(int32(r.u32())) }

func (r *reader) u64() uint64 {
	if p := r.next(8); p != nil {
		return binary.BigEndian.Uint64(p)
	}
	return 0
}

func (r *reader) f64() float64 { return math.Float64frombits(r.u64()) }

// done reports the first error, or leftover bytes.
func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if len(r.b) != 0 {
		return fmt.Errorf("%d trailing bytes", len(r.b))
	}
	return nil
}

func appendI32(b []byte, v int) []byte { return binary.BigEndian.AppendUint32(b, uint32(int32(v))) }

func appendF64(b []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(b, math.Float64bits(v))
}

func (m *Hello) appendBody(b []byte) ([]byte, error) {
	if len(m.Palette) > 256 {
		return nil, fmt.Errorf("%d colors", len(m.Palette))
	}
	b = appendI32(b, m.Width)
	b = appendI32(b, m.Height)
	for _, f := range m.Region {
		b = appendF64(b, f)
	}
	b = binary.BigEndian.AppendUint16(b, uint16(len(m.Palette)))
	for _, c := range m.Palette {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		b = append(b, rgba.R, rgba.G, rgba.B)
	}
	return b, nil
}

func (m *Hello) parseBody(body []byte) error {
	r := &reader{b: body}
	m.Width, m.Height = r.i32(), r.i32()
	for i := range m.Region {
		m.Region[i] = r.f64()
	}
	var n int
	if p := r.next(2); p != nil {
		n = int(binary.BigEndian.Uint16(p))
	}
	if n > 256 {
		return fmt.Errorf("%d colors", n)
	}
	rgb := r.next(3 * n)
	if err := r.done(); err != nil {
		return err
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("image %dx%d", m.Width, m.Height)
	}
	m.Palette = make(color.Palette, n)
	for i := range n {
		m.Palette[i] = color.RGBA{rgb[3*i], rgb[3*i+1], rgb[3*i+2], 255}
	}
	return nil
}

func (m *Tile) appendBody(b []byte) ([]byte, error) {
	if len(m.Pix) != m.Rect.Dx()*m.Rect.Dy() {
		return nil, fmt.Errorf("%d pixels for %v", len(m.Pix), m.Rect)
	}
	b = appendI32(b, m.Rect.Min.X)
	b = appendI32(b, m.Rect.Min.Y)
	b = appendI32(b, m.Rect.Dx())
	b = appendI32(b, m.Rect.Dy())
	return encoder.EncodeAll(m.Pix, b), nil
}

// maxTilePixels bounds what a tile header may make the decoder allocate.
const maxTilePixels = 1 << 24

func (m *Tile) parseBody(body []byte) error {
	r := &reader{b: body}
	x, y, w, h := r.i32(), r.i32(), r.i32(), r.i32()
	if r.err != nil {
		return r.err
	}
	if w <= 0 || h <= 0 || w*h > maxTilePixels {
		return fmt.Errorf("tile %dx%d", w, h)
	}
	pix, err := decoder.DecodeAll(r.b, make([]byte, 0, w*h))
	if err != nil {
		return fmt.Errorf("zstd decode: %w", err)
	}
	if len(pix) != w*h {
		return fmt.Errorf("%d pixels for a %dx%d tile", len(pix), w, h)
	}
	m.Rect = image.Rect(x, y, x+w, y+h)
	m.Pix = pix
	return nil
}

func (m *Progress) appendBody(b []byte) ([]byte, error) {
	b = binary.BigEndian.AppendUint64(b, uint64(m.Pixels))
	return binary.BigEndian.AppendUint64(b, uint64(m.Iterations)), nil
}

func (m *Progress) parseBody(body []byte) error {
	r := &reader{b: body}
	m.Pixels, m.Iterations = int64(r.u64()), int64(r.u64())
	return r.done()
}

func (m *Done) appendBody(b []byte) ([]byte, error) {
	b = binary.BigEndian.AppendUint64(b, uint64(m.Pixels))
	b = binary.BigEndian.AppendUint64(b, uint64(m.Iterations))
	return appendI32(b, m.Degraded), nil
}

func (m *Done) parseBody(body []byte) error {
	r := &reader{b: body}
	m.Pixels, m.Iterations, m.Degraded = int64(r.u64()), int64(r.u64()), r.i32()
	return r.done()
}

func (m *Pan) appendBody(b []byte) ([]byte, error) {
	return appendI32(appendI32(b, m.Rows), m.Cols), nil
}

func (m *Pan) parseBody(body []byte) error {
	r := &reader{b: body}
	m.Rows, m.Cols = r.i32(), r.i32()
	return r.done()
}

func (m *Zoom) appendBody(b []byte) ([]byte, error) {
	if !(m.Factor > 0) || math.IsInf(m.Factor, 0) {
		return nil, fmt.Errorf("factor %g", m.Factor)
	}
	return appendI32(appendI32(appendF64(b, m.Factor), m.Col), m.Row), nil
}

func (m *Zoom) parseBody(body []byte) error {
	r := &reader{b: body}
	m.Factor, m.Col, m.Row = r.f64(), r.i32(), r.i32()
	if err := r.done(); err != nil {
		return err
	}
	if !(m.Factor > 0) || math.IsInf(m.Factor, 0) {
		return fmt.Errorf("factor %g", m.Factor)
	}
	return nil
}

func (*Restart) appendBody(b []byte) ([]byte, error) { return b, nil }

func (*Restart) parseBody(body []byte) error {
	if len(body) != 0 {
		return fmt.Errorf("%d trailing bytes", len(body))
	}
	return nil
}

// shared by every connection; EncodeAll and DecodeAll may run concurrently
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxTilePixels))
)
