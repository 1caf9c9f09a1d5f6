package viewport

import (
	"math"
	"math/cmplx"
	"testing"

	mandel "github.com/marben/fractscan"
)

const eps = 1e-12

func near(a, b complex128) bool { return cmplx.Abs(a-b) < eps }

func TestCorners(t *testing.T) {
	v, err := New(101, 51, -2, 2, -1, 1, -2, -1)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		col, row int
		want     complex128
	}{
		{0, 0, complex(-2, 1)},
		{100, 50, complex(2, -1)},
		{0, 50, complex(-2, -1)},
		{100, 0, complex(2, 1)},
		{50, 25, 0},
	}
	for _, tt := range tests {
		if got := v.Point(tt.col, tt.row); !near(got, tt.want) {
			t.Errorf("Point(%d,%d) = %v, want %v", tt.col, tt.row, got, tt.want)
		}
	}
	if v.Skewed() {
		t.Error("unrotated viewport reported as skewed")
	}
}

func TestPixelInvertsPoint(t *testing.T) {
	v, err := New(64, 48, -1.5, 0.5, -0.75, 0.75, -1.4, -0.8)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Skewed() {
		t.Error("skewed viewport not detected")
	}
	for _, p := range [][2]int{{0, 0}, {63, 47}, {10, 30}} {
		col, row, err := v.Pixel(v.Point(p[0], p[1]))
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(col-float64(p[0])) > 1e-9 || math.Abs(row-float64(p[1])) > 1e-9 {
			t.Errorf("Pixel(Point(%v)) = (%g,%g)", p, col, row)
		}
	}
}

func TestPan(t *testing.T) {
	v, err := FromRegion(80, 60, mandel.Region{Xmin: -2, Xmax: 2, Ymin: -1.5, Ymax: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	p, err := v.Pan(5, -7)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range [][2]int{{0, 0}, {20, 30}, {79, 59}} {
		if got, want := p.Point(q[0], q[1]), v.Point(q[0]-7, q[1]+5); !near(got, want) {
			t.Errorf("panned Point(%v) = %v, want %v", q, got, want)
		}
	}
}

func TestAxis(t *testing.T) {
	tests := []struct {
		name        string
		r           mandel.Region
		h           int
		wantRow     int
		wantBetween bool
		wantOK      bool
	}{
		{"centered odd", mandel.Region{Xmin: -2, Xmax: 1, Ymin: -1, Ymax: 1}, 101, 50, false, true},
		{"centered even", mandel.Region{Xmin: -2, Xmax: 1, Ymin: -1, Ymax: 1}, 100, 49, true, true},
		{"off screen", mandel.Region{Xmin: -2, Xmax: 1, Ymin: 0.1, Ymax: 1}, 100, -1, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromRegion(40, tt.h, tt.r)
			if err != nil {
				t.Fatal(err)
			}
			row, between, ok := v.AxisRow()
			if row != tt.wantRow || between != tt.wantBetween || ok != tt.wantOK {
				t.Errorf("AxisRow = (%d,%v,%v), want (%d,%v,%v)", row, between, ok, tt.wantRow, tt.wantBetween, tt.wantOK)
			}
		})
	}
}

func TestDeltaMin(t *testing.T) {
	v, err := FromRegion(101, 51, mandel.Region{Xmin: 0, Xmax: 1, Ymin: 0, Ymax: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v.DeltaMin(), 0.01; math.Abs(got-want) > eps {
		t.Errorf("DeltaMin = %g, want %g", got, want)
	}
}
