package formula

import (
	"math/cmplx"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/symplot"
)

// LambdaSin is K·sin(z). Orbits escape along the imaginary axis, so the
// default bailout tests |Im z| against 50.
type LambdaSin struct {
	K complex128
}

func (LambdaSin) Start(c complex128) (complex128, int) { return c, 0 }
func (l LambdaSin) Step(z, _ complex128) complex128    { return l.K * cmplx.Sin(z) }

func (LambdaSin) Name() string { return "lambdasin" }

func (l LambdaSin) Symmetry() symplot.Class {
	if imag(l.K) == 0 {
		return symplot.PiXY
	}
	return symplot.PiOrigin
}

func (LambdaSin) ParameterPlane() bool         { return false }
func (LambdaSin) AttractorSeeds() []complex128 { return []complex128{0} }

func (LambdaSin) Tune(cfg *iterate.Config) {
	if cfg.Bailout == 0 {
		cfg.Bailout = 50 * 50
		cfg.BailoutTest = iterate.BailoutImag
	}
}

func (LambdaSin) DefaultRegion() mandel.Region {
	return mandel.Region{Xmin: -8, Xmax: 8, Ymin: -6, Ymax: 6}
}

// Lambda is the logistic map K·z·(1-z).
type Lambda struct {
	K complex128
}

func (Lambda) Start(c complex128) (complex128, int) { return c, 0 }
func (l Lambda) Step(z, _ complex128) complex128    { return l.K * z * (1 - z) }

func (Lambda) Name() string                 { return "lambda" }
func (Lambda) Symmetry() symplot.Class      { return symplot.NoSymmetry }
func (Lambda) ParameterPlane() bool         { return false }
func (Lambda) AttractorSeeds() []complex128 { return []complex128{0, 0.5} }
func (Lambda) Tune(*iterate.Config)         {}

func (Lambda) DefaultRegion() mandel.Region {
	return mandel.Region{Xmin: -1.5, Xmax: 2.5, Ymin: -1.5, Ymax: 1.5}
}
