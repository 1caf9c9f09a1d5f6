package wire

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"
)

func TestMessages(t *testing.T) {
	pix := bytes.Repeat([]byte{1, 2, 3, 3, 3, 3, 0, 9}, 128)
	msgs := []Message{
		&Hello{Width: 640, Height: 480, Region: [4]float64{-2.5, 1.5, -1.5, 1.5},
			Palette: color.Palette{color.RGBA{0, 0, 0, 255}, color.RGBA{10, 20, 30, 255}}},
		&Tile{Rect: image.Rect(32, 64, 64, 96), Pix: pix},
		&Progress{Pixels: 1 << 40, Iterations: 5},
		&Done{Pixels: 7, Iterations: 1 << 50, Degraded: 1},
		&Pan{Rows: -12, Cols: 40},
		&Zoom{Factor: 0.5, Col: 3, Row: 4},
		&Restart{},
	}
	for _, m := range msgs {
		t.Run(m.Type().String(), func(t *testing.T) {
			b, err := Marshal(m)
			if err != nil {
				t.Fatal(err)
			}
			if Type(b[0]) != m.Type() {
				t.Errorf("type byte %d", b[0])
			}
			got, err := Unmarshal(b)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, m) {
				t.Errorf("got %+v\nwant %+v", got, m)
			}
			if m.Type() == TypeTile {
				// trailing bytes end up inside the zstd frame; see TestRejects
				return
			}
			if len(b) > 1 {
				if _, err := Unmarshal(b[:len(b)-1]); !errors.Is(err, ErrMalformed) {
					t.Errorf("truncated: %v", err)
				}
			}
			if _, err := Unmarshal(append(b, 0)); !errors.Is(err, ErrMalformed) {
				t.Errorf("trailing byte: %v", err)
			}
		})
	}
}

func TestTileCompresses(t *testing.T) {
	m := &Tile{Rect: image.Rect(0, 0, 64, 64), Pix: make([]byte, 64*64)}
	b, err := Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) > 200 {
		t.Errorf("blank 64x64 tile takes %d bytes", len(b))
	}
}

func TestRejects(t *testing.T) {
	if _, err := Marshal(&Tile{Rect: image.Rect(0, 0, 2, 2), Pix: []byte{1}}); err == nil {
		t.Error("tile with missing pixels")
	}
	if _, err := Marshal(&Zoom{Factor: 0}); err == nil {
		t.Error("zero zoom")
	}
	if _, err := Marshal(&Hello{Width: 1, Height: 1, Palette: make(color.Palette, 300)}); err == nil {
		t.Error("300 colors")
	}
	bad := [][]byte{
		nil,
		{0},
		{42},
		append([]byte{byte(TypeZoom)}, make([]byte, 16)...), // factor 0
		append([]byte{byte(TypeHello)}, make([]byte, 42)...), // 0x0 image
		{byte(TypeTile), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 'x'},
		{byte(TypeTile), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2},
		// 2x2 tile holding three pixels
		encoder.EncodeAll([]byte{1, 2, 3}, []byte{byte(TypeTile), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 2}),
	}
	for i, b := range bad {
		if _, err := Unmarshal(b); !errors.Is(err, ErrMalformed) {
			t.Errorf("case %d: %v", i, err)
		}
	}
}
