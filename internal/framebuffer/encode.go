package framebuffer

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

type Format string

const (
	PNG  Format = "png"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
)

// FormatOf picks the format from a file extension, PNG when unknown.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return TIFF
	case ".bmp":
		return BMP
	}
	return PNG
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case PNG, "":
		err = png.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case BMP:
		err = bmp.Encode(w, img)
	default:
		return fmt.Errorf("framebuffer: unknown format %q", f)
	}
	if err != nil {
		return fmt.Errorf("framebuffer: encode %s: %w", f, err)
	}
	return nil
}

// Save writes the current image to path, in the format its extension names.
func (b *Buffer) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("framebuffer: %w", err)
	}
	if err := Encode(f, b.Snapshot(), FormatOf(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Preview scales the current image to fit in a maxSide square, keeping its
// aspect ratio. Images already small enough are returned at full size.
func (b *Buffer) Preview(maxSide int) *image.RGBA {
	src := b.Snapshot()
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			w, h = maxSide, max(1, h*maxSide/w)
		} else {
			w, h = max(1, w*maxSide/h), maxSide
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
	return dst
}
