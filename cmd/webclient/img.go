//go:build js && wasm

package main

import (
	"image"
	"image/color"
	"syscall/js"
)

func canvas() js.Value {
	return js.Global().Get("document").Call("getElementById", "myCanvas")
}

func initCanvas(width, height int, color string) {
	c := canvas()
	c.Set("width", width)
	c.Set("height", height)

	ctx := c.Call("getContext", "2d")
	ctx.Set("fillStyle", color)
	ctx.Call("fillRect", 0, 0, width, height)
}

// drawTile converts palette indices to RGBA and puts them on the canvas at
// the tile's own coordinates.
func drawTile(r image.Rectangle, pix []byte, pal color.Palette) {
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for i, c := range pix {
		rgba := color.RGBA{A: 255}
		if int(c) < len(pal) {
			rgba = color.RGBAModel.Convert(pal[c]).(color.RGBA)
		}
		img.Pix[4*i], img.Pix[4*i+1], img.Pix[4*i+2], img.Pix[4*i+3] = rgba.R, rgba.G, rgba.B, rgba.A
	}

	jsData := js.Global().Get("Uint8ClampedArray").New(len(img.Pix))
	js.CopyBytesToJS(jsData, img.Pix)
	imageData := js.Global().Get("ImageData").New(jsData, r.Dx(), r.Dy())
	canvas().Call("getContext", "2d").Call("putImageData", imageData, r.Min.X, r.Min.Y)
}
