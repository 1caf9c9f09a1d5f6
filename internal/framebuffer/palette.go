package framebuffer

import (
	"image/color"
	"math"
)

// Rainbow returns an n color palette: black at index 0, the rest a hue
// wheel at full saturation, so neighboring iteration counts stay apart.
func Rainbow(n int) color.Palette {
	n = min(max(n, 2), 256)
	pal := make(color.Palette, n)
	pal[0] = color.RGBA{0, 0, 0, 255}
	for i := 1; i < n; i++ {
		// walk the wheel three times so short escape bands are distinct
		pal[i] = hsv(float64(i-1)*3/float64(n-1), 0.85, 1)
	}
	return pal
}

// Gray is a ramp from black to white.
func Gray(n int) color.Palette {
	n = min(max(n, 2), 256)
	pal := make(color.Palette, n)
	for i := range n {
		v := uint8(i * 255 / (n - 1))
		pal[i] = color.RGBA{v, v, v, 255}
	}
	return pal
}

// PaletteByName returns Rainbow or Gray with n colors.
func PaletteByName(name string, n int) (color.Palette, bool) {
	switch name {
	case "", "rainbow":
		return Rainbow(n), true
	case "gray", "grey":
		return Gray(n), true
	}
	return nil, false
}

func hsv(h, s, v float64) color.RGBA {
	h = math.Mod(h, 1)
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return color.RGBA{uint8(r * 255), uint8(g * 255), uint8(b * 255), 255}
}
