package formula

import (
	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/symplot"
)

// Mandel is z²+c. Perturb moves the starting point away from c.
type Mandel struct {
	Perturb complex128
}

func (m Mandel) Start(c complex128) (complex128, int) { return c + m.Perturb, 0 }
func (Mandel) Step(z, c complex128) complex128        { return z*z + c }

func (Mandel) Name() string { return "mandel" }

func (m Mandel) Symmetry() symplot.Class {
	if m.Perturb != 0 {
		return symplot.NoSymmetry
	}
	return symplot.XAxis
}

func (Mandel) ParameterPlane() bool         { return true }
func (Mandel) AttractorSeeds() []complex128 { return nil }
func (Mandel) Tune(*iterate.Config)         {}
func (Mandel) DefaultRegion() mandel.Region { return mandel.WholeSet }

// Julia is z²+K over the starting point.
type Julia struct {
	K complex128
}

func (Julia) Start(c complex128) (complex128, int) { return c, -1 }
func (j Julia) Step(z, _ complex128) complex128    { return z*z + j.K }

func (Julia) Name() string                 { return "julia" }
func (Julia) Symmetry() symplot.Class      { return symplot.Origin }
func (Julia) ParameterPlane() bool         { return false }
func (Julia) AttractorSeeds() []complex128 { return []complex128{0} }
func (Julia) Tune(*iterate.Config)         {}
func (Julia) DefaultRegion() mandel.Region { return mandel.JuliaPlane }

// Cubic is z³+c.
type Cubic struct{}

func (Cubic) Start(c complex128) (complex128, int) { return c, 0 }
func (Cubic) Step(z, c complex128) complex128      { return z*z*z + c }

func (Cubic) Name() string                 { return "cubic" }
func (Cubic) Symmetry() symplot.Class      { return symplot.XYAxis }
func (Cubic) ParameterPlane() bool         { return true }
func (Cubic) AttractorSeeds() []complex128 { return nil }
func (Cubic) Tune(*iterate.Config)         {}
func (Cubic) DefaultRegion() mandel.Region { return mandel.JuliaPlane }
