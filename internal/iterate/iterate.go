// Package iterate runs the escape-time orbit of a single pixel and turns it
// into a palette index.
//
// An Iterator is configured once per calculation. Each call to Calc walks a
// pixel through initialization, the orbit loop (escape, finite attractors,
// periodicity and budget checks) and the color finalization stages. The only
// state carried from one pixel to the next is the periodicity warm-up, which
// callers save and restore through Carry and SetCarry.
package iterate

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/viewport"
)

// ErrInterrupted is returned when the poller asked the calculation to stop.
// The pixel being computed is left untouched.
var ErrInterrupted = errors.New("interrupted")

const (
	checkFreq        = 2048
	demBailout       = 535.5
	attractorRadius  = 1.0 / 32768
	resetWarmup      = 255
	starTrailIters   = 16
	floatMinNormal   = 0x1p-126
	noPeriodicity    = math.MaxInt32
	periodInsideSave = 16
)

// Orbit is an escape-time formula.
type Orbit interface {
	// Start returns the first iterate for the plane point c and the value
	// the iteration counter starts from (0, or -1 when z0 itself counts).
	Start(c complex128) (z complex128, iter int)
	// Step advances z by one iteration for the pixel at c.
	Step(z, c complex128) complex128
}

// ParameterPlane is implemented by orbits whose pixel is the parameter of
// the formula, like the Mandelbrot set. Their distance estimator derivative
// gains 1 per step.
type ParameterPlane interface {
	ParameterPlane() bool
}

// State is the terminal classification of an orbit.
type State int

const (
	StateEscaped State = iota
	StateInside
	StateAttracted
)

func (s State) String() string {
	switch s {
	case StateEscaped:
		return "escaped"
	case StateInside:
		return "inside"
	case StateAttracted:
		return "attracted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result describes one finished pixel.
type Result struct {
	Color       int
	State       State
	Iter        int // iterations actually run
	CaughtCycle bool
	CycleLen    int
}

type Iterator struct {
	cfg   Config
	orbit Orbit
	vp    *viewport.Viewport
	poll  mandel.Poller

	bailout       float64
	bailoutRoot   float64
	closeEnough   float64
	nextSavedIncr int
	firstSavedAnd int
	andColor      int
	logMap        *LogMap

	dem struct {
		on     bool
		mandel bool
		delta  float64
		width  float64
		tooBig float64
	}

	carry     int
	countdown int
	pending   bool

	pixels, iterations int64
}

// New prepares an iterator for the given viewport. poll may be nil.
func New(cfg Config, orbit Orbit, vp *viewport.Viewport, poll mandel.Poller) (*Iterator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	if orbit == nil || vp == nil {
		return nil, errors.New("iterate: orbit and viewport are required")
	}
	it := &Iterator{cfg: cfg, orbit: orbit, vp: vp, poll: poll}
	if it.cfg.KeyboardCheck <= 0 {
		it.cfg.KeyboardCheck = 80
	}
	if it.cfg.AtanColors <= 0 {
		it.cfg.AtanColors = it.cfg.Colors
	}

	it.bailout = cfg.Bailout
	if it.bailout == 0 {
		it.bailout = 4
	}
	if cfg.PotentialOn() && cfg.Potential[2] != 0 {
		it.bailout = cfg.Potential[2]
	}
	if cfg.DistEst != 0 && (cfg.DistEst != 1 || cfg.Colors == 2) {
		it.bailout = max(it.bailout, demBailout)
	}
	it.bailoutRoot = math.Sqrt(it.bailout)

	if cfg.OldPeriodicity {
		it.nextSavedIncr = 1
		it.firstSavedAnd = 1
	} else {
		it.nextSavedIncr = max(int(math.Log10(float64(cfg.MaxIter))), 4)
		it.firstSavedAnd = it.nextSavedIncr*2 + 1
	}
	it.closeEnough = vp.DeltaMin() * math.Pow(2, -math.Abs(float64(cfg.Periodicity)))
	it.andColor = cfg.Colors - 1
	it.logMap = NewLogMap(cfg.LogMap, cfg.Colors, cfg.MaxIter, cfg.LogMapFly)

	if cfg.DistEst != 0 {
		it.setupDistEst()
	}
	it.countdown = it.cfg.KeyboardCheck
	return it, nil
}

func (it *Iterator) setupDistEst() {
	v := it.vp
	w, h := float64(v.W-1), float64(v.H-1)
	delXX := (v.Xmax - v.X3rd) / w
	delYY := (v.Ymax - v.Y3rd) / h
	delXX2 := (v.X3rd - v.Xmin) / h
	delYY2 := (v.Y3rd - v.Ymin) / w

	d := &it.dem
	d.on = true
	if pp, ok := it.orbit.(ParameterPlane); ok {
		d.mandel = pp.ParameterPlane()
	}
	d.delta = max(sqr(delXX)+sqr(delYY2), sqr(delYY)+sqr(delXX2))
	width := float64(it.cfg.DistEstWidth)
	if width == 0 {
		width = 1
	}
	if width > 0 {
		d.delta *= sqr(width) / 10000
	} else {
		d.delta *= 1 / (sqr(width) * 10000)
	}
	aspect := float64(v.H) / float64(v.W)
	d.width = (math.Sqrt(sqr(v.Xmax-v.Xmin)+sqr(v.X3rd-v.Xmin))*aspect +
		math.Sqrt(sqr(v.Ymax-v.Ymin)+sqr(v.Y3rd-v.Ymin))) / float64(it.cfg.DistEst)
	f := max(it.bailout, demBailout) + 3
	d.tooBig = math.Abs(f) * math.Abs(math.Log(f)) * 2 / math.Sqrt(d.delta)
}

// Config returns the effective configuration.
func (it *Iterator) Config() Config { return it.cfg }

// SetLogFloor replaces the log map floor, for the automatic log map.
func (it *Iterator) SetLogFloor(floor int) {
	if it.cfg.LogMap == 0 {
		return
	}
	sign := 1
	if it.cfg.LogMap < 0 {
		sign = -1
	}
	it.cfg.LogMap = sign * max(floor, 1)
	it.logMap = NewLogMap(it.cfg.LogMap, it.cfg.Colors, it.cfg.MaxIter, it.cfg.LogMapFly)
}

// ResetPeriodicity delays cycle checks for the next pixel. Scanners call
// it where neighbouring pixels stop being related, like a new row.
func (it *Iterator) ResetPeriodicity() { it.carry = resetWarmup }

// Carry is the periodicity warm-up handed to the next pixel.
func (it *Iterator) Carry() int     { return it.carry }
func (it *Iterator) SetCarry(c int) { it.carry = c }

// Stats counts the pixels computed and the orbit steps they took.
func (it *Iterator) Stats() (pixels, iterations int64) {
	return it.pixels, it.iterations
}

// Spend charges n units of work against the interrupt countdown.
func (it *Iterator) Spend(n int) { it.countdown -= n }

// Poll asks the poller right away. Once it reports an interrupt every
// further call to Calc fails until Rearm.
func (it *Iterator) Poll() bool {
	if it.pending {
		return true
	}
	if it.poll != nil && it.poll.Interrupted() {
		it.pending = true
	}
	return it.pending
}

// Rearm forgets a seen interrupt so the iterator can be run again.
func (it *Iterator) Rearm() {
	it.pending = false
	it.countdown = it.cfg.KeyboardCheck
}

// Color computes the palette index of pixel (col,row).
func (it *Iterator) Color(col, row int) (int, error) {
	r, err := it.Calc(it.vp.Point(col, row))
	return r.Color, err
}

// Calc runs the orbit of c. On ErrInterrupted nothing observable changed.
func (it *Iterator) Calc(c complex128) (Result, error) {
	if it.pending {
		return Result{}, ErrInterrupted
	}
	cfg := &it.cfg
	maxit := cfg.MaxIter
	if cfg.Inside == InsideStarTrail {
		maxit = starTrailIters
	}

	warmup := it.carry
	switch {
	case cfg.Periodicity == 0 || cfg.Inside == InsideZmag || cfg.Inside == InsideStarTrail:
		warmup = noPeriodicity
	case cfg.Inside == InsidePeriod:
		warmup = maxit / 5 * 4
	}
	warmup = max(warmup, it.firstSavedAnd)

	s, interrupted := it.run(c, maxit, warmup)
	if interrupted {
		return Result{}, ErrInterrupted
	}

	var res Result
	if s.hooper != 0 {
		// stopped near an axis: inside without touching the warm-up
		it.carry = warmup
		res = Result{Color: it.finishInside(&s, maxit), State: StateInside, Iter: s.iter}
	} else {
		res = it.finish(&s, maxit)
	}
	res.Color = it.wrap(res.Color)

	it.pixels++
	it.iterations += int64(abs(res.Iter))
	it.countdown -= abs(res.Iter)
	if it.countdown <= 0 {
		it.Poll()
		it.countdown = cfg.KeyboardCheck
	}
	return res, nil
}

// orbit holds everything one pixel's iteration produces.
type orbit struct {
	z, last, saved complex128
	deriv          complex128
	iter           int

	savedAnd, savedIncr, savedIter int
	caught                         bool
	cycleLen                       int
	attracted                      bool
	overflow                       bool
	hooper                         int

	memValue  float64
	minOrbit  float64
	minIndex  int
	totalDist float64
	tan       [16]float64
}

// run iterates until escape, attraction, a caught cycle, the budget or an
// interrupt.
func (it *Iterator) run(c complex128, maxit, warmup int) (orbit, bool) {
	cfg := &it.cfg
	s := orbit{minOrbit: 100000, cycleLen: -1, savedIncr: 1, deriv: 1}
	if cfg.Inside == InsidePeriod {
		s.savedAnd = periodInsideSave
	} else {
		s.savedAnd = it.firstSavedAnd
	}
	s.z, s.iter = it.orbit.Start(c)
	s.last = s.z

	for {
		s.iter++
		if s.iter >= maxit {
			return s, false
		}
		if s.iter%checkFreq == 0 && it.Poll() {
			return s, true
		}

		old := s.z
		if it.dem.on {
			d := 2 * old * s.deriv
			if it.dem.mandel {
				d++
			}
			s.deriv = d
			if max(math.Abs(real(d)), math.Abs(imag(d))) > it.dem.tooBig {
				return s, false
			}
		}
		s.z = it.orbit.Step(old, c)
		if !finite(s.z) {
			s.overflow = true
			return s, false
		}
		if it.escaped(s.z) && (it.dem.on || cfg.Inside != InsideStarTrail) {
			return s, false
		}

		switch cfg.Inside {
		case InsideStarTrail:
			if 0 < s.iter && s.iter < starTrailIters {
				s.tan[(s.iter-1)%it.andColor] = imag(s.z) / (real(s.z) + .000001)
			}
		case InsideEpsCross:
			prox := cfg.CloseProximity
			if math.Abs(real(s.z)) < math.Abs(prox) {
				s.hooper = signedHooper(1, prox)
				return s, false
			}
			if math.Abs(imag(s.z)) < math.Abs(prox) {
				s.hooper = signedHooper(2, prox)
				return s, false
			}
		case InsideFmodi:
			if m := it.fmodTest(s.z); m < cfg.CloseProximity {
				s.memValue = m
			}
		case InsideBof60, InsideBof61:
			if m := sqr(real(s.z)) + sqr(imag(s.z)); m < s.minOrbit {
				s.minOrbit = m
				s.minIndex = s.iter + 1
			}
		}

		switch cfg.Outside {
		case OutsideTdis:
			s.totalDist += cmplx.Abs(s.last - s.z)
			s.last = s.z
		case OutsideFmod:
			if m := it.fmodTest(s.z); m < cfg.CloseProximity {
				s.memValue = m
			}
		}

		for _, a := range cfg.Attractors {
			p := a.Point()
			dx := sqr(real(s.z) - real(p))
			if dx >= attractorRadius {
				continue
			}
			dy := sqr(imag(s.z) - imag(p))
			if dy < attractorRadius && dx+dy < attractorRadius {
				s.attracted = true
				if cfg.FinitePhase {
					s.iter = s.iter%a.Period + 1
				}
				return s, false
			}
		}

		if s.iter > warmup {
			if s.iter&s.savedAnd == 0 {
				s.savedIter = s.iter
				s.saved = s.z
				s.savedIncr--
				if s.savedIncr == 0 {
					s.savedAnd = s.savedAnd<<1 + 1
					s.savedIncr = it.nextSavedIncr
				}
			} else if math.Abs(real(s.saved)-real(s.z)) < it.closeEnough &&
				math.Abs(imag(s.saved)-imag(s.z)) < it.closeEnough {
				s.caught = true
				s.cycleLen = s.iter - s.savedIter
				s.iter = maxit - 1
			}
		}
	}
}

func (it *Iterator) escaped(z complex128) bool {
	return escapes(it.cfg.BailoutTest, it.bailout, z)
}

func escapes(test Bailout, lim float64, z complex128) bool {
	x2, y2 := sqr(real(z)), sqr(imag(z))
	switch test {
	case BailoutReal:
		return x2 >= lim
	case BailoutImag:
		return y2 >= lim
	case BailoutOr:
		return x2 >= lim || y2 >= lim
	case BailoutAnd:
		return x2 >= lim && y2 >= lim
	case BailoutManh:
		return sqr(math.Abs(real(z))+math.Abs(imag(z))) >= lim
	case BailoutManr:
		return sqr(real(z)+imag(z)) >= lim
	}
	return x2+y2 >= lim
}

// fmodTest measures z the same way the bailout test does.
func (it *Iterator) fmodTest(z complex128) float64 {
	x, y := real(z), imag(z)
	switch it.cfg.BailoutTest {
	case BailoutReal:
		return sqr(x)
	case BailoutImag:
		return sqr(y)
	case BailoutOr:
		return max(sqr(x), sqr(y))
	case BailoutManh:
		return sqr(math.Abs(x) + math.Abs(y))
	case BailoutManr:
		return sqr(x + y)
	}
	return sqr(x) + sqr(y)
}

func signedHooper(h int, prox float64) int {
	if prox > 0 {
		return h
	}
	return -h
}

func finite(z complex128) bool {
	return !math.IsNaN(real(z)) && !math.IsNaN(imag(z)) &&
		!math.IsInf(real(z), 0) && !math.IsInf(imag(z), 0)
}

func sqr(f float64) float64 { return f * f }

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// trunc converts like a C cast, saturating instead of overflowing.
func trunc(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
