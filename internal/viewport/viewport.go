// Package viewport maps screen pixels to points of the complex plane.
//
// A viewport is described by three corners: the top-left (Xmin, Ymax), the
// bottom-right (Xmax, Ymin) and the bottom-left "3rd" corner (X3rd, Y3rd).
// When the 3rd corner differs from (Xmin, Ymin) the image is rotated or
// skewed. The affine map is solved from the three corner correspondences.
package viewport

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	mandel "github.com/marben/fractscan"
)

type Viewport struct {
	W, H       int
	Xmin, Xmax float64
	Ymin, Ymax float64
	X3rd, Y3rd float64

	// x = a*col + b*row + tx, y = c*col + d*row + ty
	a, b, tx float64
	c, d, ty float64
}

// New solves the pixel→plane map for a w×h screen.
func New(w, h int, xmin, xmax, ymin, ymax, x3rd, y3rd float64) (*Viewport, error) {
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("viewport: screen %dx%d too small", w, h)
	}
	v := &Viewport{W: w, H: h, Xmin: xmin, Xmax: xmax, Ymin: ymin, Ymax: ymax, X3rd: x3rd, Y3rd: y3rd}
	src := [3][2]float64{{0, 0}, {float64(w - 1), float64(h - 1)}, {0, float64(h - 1)}}
	dst := [3][2]float64{{xmin, ymax}, {xmax, ymin}, {x3rd, y3rd}}

	// [x', y'] = [a, b, tx; c, d, ty] * [col, row, 1]
	A := mat.NewDense(6, 6, nil)
	B := mat.NewVecDense(6, nil)
	for i := range 3 {
		col, row := src[i][0], src[i][1]
		A.Set(i*2, 0, col)
		A.Set(i*2, 1, row)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, dst[i][0])

		A.Set(i*2+1, 3, col)
		A.Set(i*2+1, 4, row)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, dst[i][1])
	}
	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return nil, fmt.Errorf("viewport: degenerate corners: %w", err)
	}
	v.a, v.b, v.tx = params.AtVec(0), params.AtVec(1), params.AtVec(2)
	v.c, v.d, v.ty = params.AtVec(3), params.AtVec(4), params.AtVec(5)
	return v, nil
}

// FromRegion builds an unrotated viewport.
func FromRegion(w, h int, r mandel.Region) (*Viewport, error) {
	return New(w, h, r.Xmin, r.Xmax, r.Ymin, r.Ymax, r.Xmin, r.Ymin)
}

func (v *Viewport) Region() mandel.Region {
	return mandel.Region{Xmin: v.Xmin, Xmax: v.Xmax, Ymin: v.Ymin, Ymax: v.Ymax}
}

// Point returns the plane coordinate of pixel (col,row).
func (v *Viewport) Point(col, row int) complex128 {
	x, y := float64(col), float64(row)
	return complex(v.a*x+v.b*y+v.tx, v.c*x+v.d*y+v.ty)
}

// Pixel is the inverse of Point; the result is fractional.
func (v *Viewport) Pixel(z complex128) (col, row float64, err error) {
	m := mat.NewDense(3, 3, []float64{
		v.a, v.b, v.tx,
		v.c, v.d, v.ty,
		0, 0, 1,
	})
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return 0, 0, fmt.Errorf("viewport: singular map: %w", err)
	}
	var p mat.VecDense
	p.MulVec(&inv, mat.NewVecDense(3, []float64{real(z), imag(z), 1}))
	return p.AtVec(0), p.AtVec(1), nil
}

// Skewed reports whether the 3rd corner rotates or shears the image.
func (v *Viewport) Skewed() bool {
	return v.X3rd != v.Xmin || v.Y3rd != v.Ymin
}

// DeltaMin is the smaller of the per-pixel steps along each screen axis;
// it scales the periodicity tolerance.
func (v *Viewport) DeltaMin() float64 {
	dx, dx2 := math.Abs(v.a), math.Abs(v.b)
	dy, dy2 := math.Abs(v.d), math.Abs(v.c)
	m := max(dx, dx2)
	if dy > dy2 {
		m = min(dy, m)
	} else if dy2 < m {
		m = dy2
	}
	return m
}

// Steps returns the per-pixel steps (dx/dcol, dx/drow, dy/dcol, dy/drow).
func (v *Viewport) Steps() (dxCol, dxRow, dyCol, dyRow float64) {
	return v.a, v.b, v.c, v.d
}

// AxisRow returns the screen row closest to the real axis. between reports
// that the axis falls between two rows; ok is false when the axis is off screen.
func (v *Viewport) AxisRow() (row int, between, ok bool) {
	if sign(v.Ymin) == sign(v.Ymax) {
		return -1, false, false
	}
	f := (0-v.Ymax)/(v.Ymin-v.Ymax)*float64(v.H-1) + 0.25
	row = int(f)
	return row, f-float64(row) >= 0.5, true
}

// AxisCol is AxisRow for the imaginary axis.
func (v *Viewport) AxisCol() (col int, between, ok bool) {
	if sign(v.Xmin) == sign(v.Xmax) {
		return -1, false, false
	}
	f := (0-v.Xmin)/(v.Xmax-v.Xmin)*float64(v.W-1) + 0.25
	col = int(f)
	return col, f-float64(col) >= 0.5, true
}

// Pan returns the viewport seen after moving the view by the given pixel
// deltas: the pixel at (col+colDelta, row+rowDelta) becomes (col, row).
func (v *Viewport) Pan(rowDelta, colDelta int) (*Viewport, error) {
	tl := v.Point(colDelta, rowDelta)
	br := v.Point(v.W-1+colDelta, v.H-1+rowDelta)
	bl := v.Point(colDelta, v.H-1+rowDelta)
	return New(v.W, v.H, real(tl), real(br), imag(br), imag(tl), real(bl), imag(bl))
}

// Zoom scales the view about pixel (col,row). factor > 1 zooms in.
func (v *Viewport) Zoom(factor float64, col, row int) (*Viewport, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("viewport: zoom factor %g", factor)
	}
	center := v.Point(col, row)
	at := func(z complex128) complex128 { return center + (z-center)/complex(factor, 0) }
	tl := at(complex(v.Xmin, v.Ymax))
	br := at(complex(v.Xmax, v.Ymin))
	bl := at(complex(v.X3rd, v.Y3rd))
	return New(v.W, v.H, real(tl), real(br), imag(br), imag(tl), real(bl), imag(bl))
}

func sign(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	}
	return 0
}
