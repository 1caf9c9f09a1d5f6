package mandel

import (
	"fmt"
	"slices"
	"strings"
)

// Region is an axis-aligned window of the complex plane.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

func (r Region) Width() float64  { return r.Xmax - r.Xmin }
func (r Region) Height() float64 { return r.Ymax - r.Ymin }

func (r Region) Center() (x, y float64) {
	return (r.Xmin + r.Xmax) / 2, (r.Ymin + r.Ymax) / 2
}

// Fit grows the region along one axis so that it has the aspect ratio of a
// w×h pixel grid, keeping its center.
func (r Region) Fit(w, h int) Region {
	if w <= 0 || h <= 0 || r.Width() == 0 || r.Height() == 0 {
		return r
	}
	cx, cy := r.Center()
	want := float64(w) / float64(h)
	got := r.Width() / r.Height()
	if got < want {
		half := r.Height() * want / 2
		return Region{Xmin: cx - half, Xmax: cx + half, Ymin: r.Ymin, Ymax: r.Ymax}
	}
	half := r.Width() / want / 2
	return Region{Xmin: r.Xmin, Xmax: r.Xmax, Ymin: cy - half, Ymax: cy + half}
}

func (r Region) String() string {
	return fmt.Sprintf("[%g,%g]x[%g,%g]", r.Xmin, r.Xmax, r.Ymin, r.Ymax)
}

var (
	// Whole Mandelbrot set, centered on the real axis so x axis symmetry applies.
	WholeSet = Region{Xmin: -2.5, Xmax: 1.5, Ymin: -1.5, Ymax: 1.5}

	// Whole Julia plane, centered on the origin.
	JuliaPlane = Region{Xmin: -2, Xmax: 2, Ymin: -1.5, Ymax: 1.5}

	// Seahorse Valley, dense filaments and repeating curls
	SeahorseValley = Region{Xmin: -0.8, Xmax: -0.7, Ymin: 0.05, Ymax: 0.15}

	// Elephant Valley, large bulb with trunk-like tendrils
	ElephantValley = Region{Xmin: -1.85, Xmax: -1.75, Ymin: -0.10, Ymax: -0.02}

	// small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = Region{Xmin: -0.7435, Xmax: -0.7420, Ymin: 0.1310, Ymax: 0.1325}

	// threefold symmetric spiral structure
	TripleSpiral = Region{Xmin: -0.7480, Xmax: -0.7450, Ymin: 0.0950, Ymax: 0.0980}

	// Valley of the Dragon, deep spiral filaments
	ValleyOfTheDragon = Region{Xmin: -0.7400, Xmax: -0.7350, Ymin: 0.1800, Ymax: 0.1850}

	// self-similar copy inside a spiral arm
	MinibrotInMiniSpiral = Region{Xmin: -1.7390, Xmax: -1.7375, Ymin: -0.0235, Ymax: -0.0220}
)

var namedRegions = map[string]Region{
	"whole":      WholeSet,
	"julia":      JuliaPlane,
	"seahorse":   SeahorseValley,
	"elephant":   ElephantValley,
	"spiral":     SpiralMinibrot,
	"triple":     TripleSpiral,
	"dragon":     ValleyOfTheDragon,
	"minispiral": MinibrotInMiniSpiral,
}

// RegionByName looks up one of the landmarks above.
func RegionByName(name string) (Region, error) {
	r, ok := namedRegions[strings.ToLower(name)]
	if !ok {
		return Region{}, fmt.Errorf("unknown region %q (known: %s)", name, strings.Join(RegionNames(), ", "))
	}
	return r, nil
}

func RegionNames() []string {
	names := make([]string, 0, len(namedRegions))
	for n := range namedRegions {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
