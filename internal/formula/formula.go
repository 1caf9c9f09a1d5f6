// Package formula holds the escape-time orbits the engine can draw.
package formula

import (
	"fmt"
	"math/cmplx"
	"slices"
	"strings"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/symplot"
)

// maxAttractors bounds the attractors FindAttractors reports.
const maxAttractors = 8

// Formula is an orbit plus what the engine needs to know about it.
type Formula interface {
	iterate.Orbit
	Name() string
	Symmetry() symplot.Class
	// ParameterPlane reports whether pixels are the formula parameter, as
	// for the Mandelbrot set, rather than the starting point.
	ParameterPlane() bool
	// AttractorSeeds are the starting points searched for finite
	// attractors. Parameter plane formulas have none.
	AttractorSeeds() []complex128
	// Tune fills in formula specific defaults, like the bailout.
	Tune(cfg *iterate.Config)
	DefaultRegion() mandel.Region
}

type entry struct {
	make  func(k complex128) Formula
	param complex128
}

var registry = map[string]entry{
	"mandel":    {func(k complex128) Formula { return Mandel{Perturb: k} }, 0},
	"julia":     {func(k complex128) Formula { return Julia{K: k} }, 0.3 + 0.6i},
	"cubic":     {func(complex128) Formula { return Cubic{} }, 0},
	"lambdasin": {func(k complex128) Formula { return LambdaSin{K: k} }, 1 + 0.4i},
	"lambda":    {func(k complex128) Formula { return Lambda{K: k} }, 0.85 + 0.6i},
}

// New returns the named formula with parameter k.
func New(name string, k complex128) (Formula, error) {
	e, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("formula: unknown fractal %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return e.make(k), nil
}

// DefaultParam is the parameter a fractal is usually drawn with.
func DefaultParam(name string) (complex128, error) {
	e, ok := registry[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("formula: unknown fractal %q", name)
	}
	return e.param, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// FindAttractors looks for finite attractors by following the orbit of each
// seed. An orbit that stays bounded for max(MaxIter, 500) steps and then
// comes back within closeEnough of where it was in at most 10 more steps is
// taken as an attracting cycle of that length. cfg should already be tuned
// for f.
func FindAttractors(f Formula, cfg iterate.Config, closeEnough float64) []iterate.Attractor {
	maxit := max(cfg.MaxIter, 500)
	var found []iterate.Attractor
	for _, seed := range f.AttractorSeeds() {
		if len(found) >= maxAttractors {
			break
		}
		z := seed
		bounded := true
		for i := 1; i < maxit; i++ {
			z = f.Step(z, seed)
			if cfg.Escapes(z) || !finite(z) {
				bounded = false
				break
			}
		}
		if !bounded {
			continue
		}
		saved := z
		for i := range 10 {
			z = f.Step(z, seed)
			if cfg.Escapes(z) || !finite(z) {
				break
			}
			if abs(real(saved)-real(z)) < closeEnough && abs(imag(saved)-imag(z)) < closeEnough {
				found = append(found, iterate.Attractor{Re: real(z), Im: imag(z), Period: i + 1})
				break
			}
		}
	}
	return found
}

func finite(z complex128) bool { return !cmplx.IsNaN(z) && !cmplx.IsInf(z) }

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
