package iterate

import (
	"errors"
	"fmt"
	"strings"
)

// Bailout selects the escape test applied after every orbit step.
type Bailout int

const (
	BailoutMod  Bailout = iota // x²+y² ≥ limit
	BailoutReal                // x² ≥ limit
	BailoutImag                // y² ≥ limit
	BailoutOr                  // x² ≥ limit or y² ≥ limit
	BailoutAnd                 // x² ≥ limit and y² ≥ limit
	BailoutManh                // (|x|+|y|)² ≥ limit
	BailoutManr                // (x+y)² ≥ limit
)

var bailoutNames = []string{"mod", "real", "imag", "or", "and", "manh", "manr"}

func (b Bailout) String() string { return enumName(bailoutNames, int(b)) }

func (b Bailout) MarshalText() ([]byte, error) { return enumMarshal(bailoutNames, int(b)) }

func (b *Bailout) UnmarshalText(text []byte) error {
	return enumUnmarshal(bailoutNames, text, (*int)(b))
}

// Inside selects how points that never escape are colored.
type Inside int

const (
	InsideMaxIter   Inside = iota // color maxiter
	InsideFixed                   // Config.InsideColor
	InsideZmag                    // final magnitude
	InsideBof60                   // closest approach to the origin
	InsideBof61                   // iteration of the closest approach
	InsideEpsCross                // orbit passed near an axis
	InsideStarTrail               // tangent of the first iterates
	InsidePeriod                  // detected cycle length
	InsideFmodi                   // proximity to the bailout curve
	InsideAtani                   // final angle
)

var insideNames = []string{"maxiter", "color", "zmag", "bof60", "bof61", "epscross", "startrail", "period", "fmod", "atan"}

func (m Inside) String() string { return enumName(insideNames, int(m)) }

func (m Inside) MarshalText() ([]byte, error) { return enumMarshal(insideNames, int(m)) }

func (m *Inside) UnmarshalText(text []byte) error {
	return enumUnmarshal(insideNames, text, (*int)(m))
}

// Outside selects how escaping points are colored.
type Outside int

const (
	OutsideIter  Outside = iota // iteration count
	OutsideFixed                // Config.OutsideColor
	OutsideReal
	OutsideImag
	OutsideMult
	OutsideSum
	OutsideAtan
	OutsideFmod
	OutsideTdis
)

var outsideNames = []string{"iter", "color", "real", "imag", "mult", "summ", "atan", "fmod", "tdis"}

func (m Outside) String() string { return enumName(outsideNames, int(m)) }

func (m Outside) MarshalText() ([]byte, error) { return enumMarshal(outsideNames, int(m)) }

func (m *Outside) UnmarshalText(text []byte) error {
	return enumUnmarshal(outsideNames, text, (*int)(m))
}

// Attractor is a known finite attractor of the orbit.
type Attractor struct {
	Re     float64 `json:"re"`
	Im     float64 `json:"im"`
	Period int     `json:"period"`
}

func (a Attractor) Point() complex128 { return complex(a.Re, a.Im) }

// Config holds every per-pixel setting. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	MaxIter int `json:"maxiter"`
	// Bailout 0 leaves the limit to the formula, or 4.
	Bailout     float64 `json:"bailout"`
	BailoutTest Bailout `json:"bailouttest"`

	// Periodicity 0 disables cycle detection. Larger magnitudes tighten
	// the tolerance; negative values paint caught cycles with color 7.
	Periodicity    int  `json:"periodicity"`
	OldPeriodicity bool `json:"oldperiodicity"`

	Inside         Inside  `json:"inside"`
	InsideColor    int     `json:"insidecolor"`
	Outside        Outside `json:"outside"`
	OutsideColor   int     `json:"outsidecolor"`
	CloseProximity float64 `json:"proximity"`

	// Potential holds the level, slope and bailout of the continuous
	// potential. It is enabled when the level is non-zero.
	Potential [3]float64 `json:"potential"`

	DistEst      int `json:"distest"`
	DistEstWidth int `json:"distestwidth"`

	Decomp   int `json:"decomp"`
	Biomorph int `json:"biomorph"` // -1 disables

	Attractors  []Attractor `json:"attractors,omitempty"`
	FinitePhase bool        `json:"finattract"`

	LogMap     int  `json:"logmap"`
	LogMapAuto bool `json:"logmapauto"`
	LogMapFly  bool `json:"logmapfly"`

	Colors        int `json:"colors"`
	AtanColors    int `json:"atancolors"`
	KeyboardCheck int `json:"-"`

	// NonZero keeps color 0 free for unvisited pixels.
	NonZero bool `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		MaxIter:        150,
		Periodicity:    1,
		Inside:         InsideFixed,
		InsideColor:    1,
		CloseProximity: 0.01,
		DistEstWidth:   71,
		Biomorph:       -1,
		Colors:         256,
		AtanColors:     180,
		KeyboardCheck:  80,
	}
}

// PotentialOn reports whether continuous potential coloring is enabled.
func (c *Config) PotentialOn() bool { return c.Potential[0] != 0 }

// Escapes applies the configured bailout test to z.
func (c *Config) Escapes(z complex128) bool {
	lim := c.Bailout
	if lim == 0 {
		lim = 4
	}
	return escapes(c.BailoutTest, lim, z)
}

func (c *Config) Validate() error {
	var errs []error
	if c.MaxIter < 2 {
		errs = append(errs, fmt.Errorf("maxiter %d: must be at least 2", c.MaxIter))
	}
	if c.Colors < 2 || c.Colors > 256 {
		errs = append(errs, fmt.Errorf("colors %d: must be in 2..256", c.Colors))
	}
	if c.LogMap != 0 && c.Colors < 16 {
		errs = append(errs, errors.New("logmap needs at least 16 colors"))
	}
	if c.Bailout < 0 {
		errs = append(errs, fmt.Errorf("bailout %g: must not be negative", c.Bailout))
	}
	if c.Decomp < 0 || c.Decomp > 256 {
		errs = append(errs, fmt.Errorf("decomp %d: must be in 0..256", c.Decomp))
	}
	for i, a := range c.Attractors {
		if a.Period < 1 {
			errs = append(errs, fmt.Errorf("attractor %d: period %d", i, a.Period))
		}
	}
	if c.Inside == InsideFixed && c.InsideColor < 0 {
		errs = append(errs, fmt.Errorf("inside color %d", c.InsideColor))
	}
	if c.Outside == OutsideFixed && c.OutsideColor < 0 {
		errs = append(errs, fmt.Errorf("outside color %d", c.OutsideColor))
	}
	return errors.Join(errs...)
}

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("%d", v)
	}
	return names[v]
}

func enumMarshal(names []string, v int) ([]byte, error) {
	if v < 0 || v >= len(names) {
		return nil, fmt.Errorf("unknown value %d", v)
	}
	return []byte(names[v]), nil
}

func enumUnmarshal(names []string, text []byte, v *int) error {
	s := strings.ToLower(string(text))
	for i, n := range names {
		if n == s {
			*v = i
			return nil
		}
	}
	return fmt.Errorf("unknown value %q (known: %s)", s, strings.Join(names, ", "))
}
