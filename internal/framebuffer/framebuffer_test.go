package framebuffer

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestRuns(t *testing.T) {
	b := New(10, 4, Rainbow(16))
	b.FillRun(1, 2, 5, 7)
	b.PutRun(2, 8, []int{3, 4})
	b.SetColor(0, 3, 9)
	b.FillRun(0, 5, 4, 1) // empty

	want := make([]byte, 40)
	for x := 2; x <= 5; x++ {
		want[10+x] = 7
	}
	want[28], want[29], want[30] = 3, 4, 9
	if got := b.Pix(); !bytes.Equal(got, want) {
		t.Errorf("pix %v\nwant %v", got, want)
	}
	if got := b.ColorAt(9, 2); got != 4 {
		t.Errorf("ColorAt = %d", got)
	}
	if got := b.Indices(image.Rect(7, 1, 12, 3)); !bytes.Equal(got, []byte{0, 0, 0, 0, 3, 4}) {
		t.Errorf("indices %v", got)
	}
}

func rects(rs []image.Rectangle) []image.Rectangle {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Min.Y != rs[j].Min.Y {
			return rs[i].Min.Y < rs[j].Min.Y
		}
		return rs[i].Min.X < rs[j].Min.X
	})
	return rs
}

func TestDirtyTiles(t *testing.T) {
	b := NewTiled(20, 10, Gray(4), 8)
	if d := b.Dirty(); len(d) != 0 {
		t.Fatalf("fresh buffer dirty: %v", d)
	}
	b.FillRun(3, 6, 9, 1)
	b.SetColor(19, 9, 2)
	want := []image.Rectangle{
		image.Rect(0, 0, 8, 8),
		image.Rect(8, 0, 16, 8),
		image.Rect(16, 8, 20, 10),
	}
	if got := rects(b.Dirty()); !reflect.DeepEqual(got, want) {
		t.Errorf("dirty %v\nwant %v", got, want)
	}
	if d := b.Dirty(); len(d) != 0 {
		t.Errorf("dirty twice: %v", d)
	}
	b.MarkAll()
	if got := b.Dirty(); len(got) != 6 {
		t.Errorf("all tiles: %v", got)
	}
}

func TestMarkAllManyWords(t *testing.T) {
	d := newDirtyTiles(100, 90, 1)
	d.markAll()
	if got := len(d.take(100, 90)); got != 9000 {
		t.Errorf("%d tiles", got)
	}
}

func TestSetPix(t *testing.T) {
	a := New(5, 3, Rainbow(8))
	a.FillRun(1, 0, 4, 5)
	b := New(5, 3, Rainbow(8))
	if err := b.SetPix(a.Pix()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix(), b.Pix()) {
		t.Error("pixels differ")
	}
	if err := b.SetPix(make([]byte, 14)); err == nil {
		t.Error("short pixels accepted")
	}
}

func TestGetImage(t *testing.T) {
	pal := Rainbow(32)
	b := New(4, 4, pal)
	b.SetColor(2, 1, 17)
	img, err := b.GetImage()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.At(2, 1), color.RGBAModel.Convert(pal[17]); got != want {
		t.Errorf("At(2,1) = %v, want %v", got, want)
	}
	if got := img.At(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("At(0,0) = %v", got)
	}
}

func TestPalettes(t *testing.T) {
	for _, n := range []int{0, 2, 16, 256, 1000} {
		p := Rainbow(n)
		if len(p) < 2 || len(p) > 256 {
			t.Errorf("Rainbow(%d) has %d colors", n, len(p))
		}
		if p[0] != (color.RGBA{0, 0, 0, 255}) {
			t.Errorf("Rainbow(%d)[0] = %v", n, p[0])
		}
	}
	g := Gray(3)
	if g[2] != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("gray top %v", g[2])
	}
	if _, ok := PaletteByName("plaid", 8); ok {
		t.Error("unknown palette")
	}
}

func TestEncode(t *testing.T) {
	b := New(12, 7, Rainbow(16))
	b.FillRun(3, 0, 11, 9)
	src, _ := b.GetImage()

	cases := []struct {
		f      Format
		decode func(*bytes.Reader) (image.Image, error)
	}{
		{TIFF, func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) }},
		{BMP, func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) }},
	}
	for _, c := range cases {
		t.Run(string(c.f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, b.Snapshot(), c.f); err != nil {
				t.Fatal(err)
			}
			img, err := c.decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatal(err)
			}
			for y := range 7 {
				for x := range 12 {
					r0, g0, b0, _ := src.At(x, y).RGBA()
					r1, g1, b1, _ := img.At(x, y).RGBA()
					if r0 != r1 || g0 != g1 || b0 != b1 {
						t.Fatalf("(%d,%d) differs", x, y)
					}
				}
			}
		})
	}
	if err := Encode(&bytes.Buffer{}, src.SubImage(src.Rect), "gif"); err == nil {
		t.Error("gif accepted")
	}
}

func TestSaveByExtension(t *testing.T) {
	dir := t.TempDir()
	b := New(3, 3, Gray(4))
	for _, name := range []string{"a.png", "b.TIF", "c.bmp"} {
		if err := b.Save(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if FormatOf("x.tiff") != TIFF || FormatOf("x") != PNG {
		t.Error("FormatOf")
	}
}

func TestPreview(t *testing.T) {
	b := New(200, 50, Rainbow(8))
	if r := b.Preview(100).Rect; r != image.Rect(0, 0, 100, 25) {
		t.Errorf("wide preview %v", r)
	}
	b = New(30, 90, Rainbow(8))
	if r := b.Preview(45).Rect; r != image.Rect(0, 0, 15, 45) {
		t.Errorf("tall preview %v", r)
	}
	if r := b.Preview(500).Rect; r != image.Rect(0, 0, 30, 90) {
		t.Errorf("small image %v", r)
	}
}
