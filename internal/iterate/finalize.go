package iterate

import "math"

// finish turns a completed orbit into a raw color. Each stage either
// settles the color and returns or hands over to the next one.
func (it *Iterator) finish(s *orbit, maxit int) Result {
	cfg := &it.cfg
	res := Result{Iter: s.iter, CaughtCycle: s.caught, CycleLen: max(s.cycleLen, 0)}
	iter := s.iter

	if iter >= maxit {
		it.carry = 0
		res.State = StateInside
	} else {
		it.carry = iter + 10
		if iter == 0 {
			iter = 1
		}
		res.State = StateEscaped
		if s.attracted {
			res.State = StateAttracted
		}
	}

	if cfg.PotentialOn() {
		res.Color = it.logMap.Map(it.potential(sqr(real(s.z))+sqr(imag(s.z)), iter, maxit))
		return res
	}
	if iter >= maxit {
		res.Color = it.finishInside(s, maxit)
		return res
	}

	iter = it.outsideValue(s, iter, maxit)

	if it.dem.on {
		c, done, inside := it.distEst(s, iter)
		if inside {
			res.State = StateInside
			res.Color = it.finishInside(s, maxit)
			return res
		}
		if done {
			res.Color = c
			return res
		}
	}

	switch {
	case cfg.Decomp > 0:
		iter = decompose(s.z, cfg.Decomp, cfg.Colors)
	case cfg.Biomorph != -1:
		if math.Abs(real(s.z)) < it.bailoutRoot || math.Abs(imag(s.z)) < it.bailoutRoot {
			iter = cfg.Biomorph
		}
	}

	if cfg.Outside == OutsideFixed && !s.attracted {
		res.Color = cfg.OutsideColor
	} else {
		res.Color = it.logMap.Map(iter)
	}
	return res
}

// outsideValue applies the numeric outside modes to an escaped orbit.
func (it *Iterator) outsideValue(s *orbit, iter, maxit int) int {
	cfg := &it.cfg
	x, y := real(s.z), imag(s.z)
	switch cfg.Outside {
	case OutsideReal:
		iter += trunc(x) + 7
	case OutsideImag:
		iter += trunc(y) + 7
	case OutsideMult:
		if y != 0 {
			iter = trunc(float64(iter) * (x / y))
		}
	case OutsideSum:
		iter += trunc(x + y)
	case OutsideAtan:
		iter = trunc(math.Abs(math.Atan2(y, x) * float64(cfg.AtanColors) / math.Pi))
	case OutsideFmod:
		return trunc(s.memValue * float64(cfg.Colors) / cfg.CloseProximity)
	case OutsideTdis:
		iter = trunc(s.totalDist)
	default:
		return iter
	}
	if iter <= 0 || iter > maxit {
		iter = 1
	}
	return iter
}

// distEst reports the distance estimator's verdict. done means c is final;
// inside means the point lies on the boundary and is shown as inside.
func (it *Iterator) distEst(s *orbit, iter int) (c int, done, inside bool) {
	cfg := &it.cfg
	dist := sqr(real(s.z)) + sqr(imag(s.z))
	if dist == 0 || s.overflow {
		dist = 0
	} else {
		l := math.Log(dist)
		dist = dist * sqr(l) / (sqr(real(s.deriv)) + sqr(imag(s.deriv)))
	}
	if dist < it.dem.delta {
		if cfg.DistEst > 0 {
			return 0, false, true
		}
		return -cfg.DistEst, true, false
	}
	if cfg.Colors == 2 {
		if cfg.Inside == InsideFixed && cfg.InsideColor == 0 {
			return 1, true, false
		}
		return 0, true, false
	}
	if cfg.DistEst > 1 {
		return trunc(dist/it.dem.width+1) & math.MaxInt32, true, false
	}
	return iter, false, false
}

// finishInside colors a point that did not escape.
func (it *Iterator) finishInside(s *orbit, maxit int) int {
	cfg := &it.cfg
	if cfg.Periodicity < 0 && s.caught {
		return 7
	}
	var iter int
	switch cfg.Inside {
	case InsideFixed:
		return cfg.InsideColor
	case InsideStarTrail:
		for i := 1; i < starTrailIters; i++ {
			if math.Abs(s.tan[0]-s.tan[i]) < .05 {
				iter = i
				break
			}
		}
	case InsidePeriod:
		iter = cfg.MaxIter
		if s.cycleLen > 0 {
			iter = s.cycleLen
		}
	case InsideEpsCross:
		switch s.hooper {
		case 1:
			iter = 2
		case 2:
			iter = 6
		case 0:
			iter = cfg.MaxIter
		}
	case InsideFmodi:
		iter = trunc(s.memValue * float64(cfg.Colors) / cfg.CloseProximity)
	case InsideAtani:
		iter = trunc(math.Abs(math.Atan2(imag(s.z), real(s.z)) * float64(cfg.AtanColors) / math.Pi))
	case InsideBof60:
		iter = trunc(math.Sqrt(s.minOrbit) * 75)
	case InsideBof61:
		iter = s.minIndex
	case InsideZmag:
		iter = trunc((sqr(real(s.z))+sqr(imag(s.z)))*float64(cfg.MaxIter>>1) + 1)
	default:
		iter = cfg.MaxIter
	}
	return it.logMap.Map(iter)
}

// potential maps the final magnitude to a continuous color.
func (it *Iterator) potential(mag float64, iter, maxit int) int {
	cfg := &it.cfg
	p := cfg.Potential
	var pot float64
	switch {
	case iter < maxit:
		if n := iter + 2; n > 0 && mag > 1 {
			if d := math.Log(mag) / math.Pow(2, float64(n)); d > floatMinNormal {
				pot = float64(float32(d))
			}
		}
		if pot > 0 {
			pot = p[0] - math.Sqrt(pot)*p[1] - 1
		} else {
			pot = p[0] - 1
		}
		pot = max(pot, 1)
	case cfg.Inside == InsideFixed:
		pot = float64(cfg.InsideColor)
	default:
		pot = p[0]
	}
	return min(trunc(pot*256)>>8, cfg.Colors-1)
}

// wrap folds a raw color into the palette.
func (it *Iterator) wrap(iter int) int {
	cfg := &it.cfg
	c := abs(iter)
	if iter >= cfg.Colors {
		if cfg.Colors < 16 {
			c = iter & it.andColor
		} else {
			c = (iter-1)%it.andColor + 1
		}
	}
	if cfg.NonZero && c <= 0 {
		c = 1
	}
	return c
}

var decompSteps = []struct {
	min            int
	tan, cos, sin float64
}{
	{16, 0.41421356237309500, 0.70710678118654750, 0.70710678118654750},
	{32, 0.19891236737965800, 0.92387953251128670, 0.38268343236508980},
	{64, 0.09849140335716425, 0.98078528040323040, 0.19509032201612820},
	{128, 0.04912684976946725, 0.99518472667219690, 0.09801714032956060},
}

const tan1_4063 = 0.02454862210892544

// decompose colors by the angular sector of z, with decomp sectors.
func decompose(z complex128, decomp, colors int) int {
	x, y := real(z), imag(z)
	temp := 0
	if y < 0 {
		temp = 2
		y = -y
	}
	if x < 0 {
		temp++
		x = -x
	}
	saveTemp := temp
	if decomp == 2 {
		switch temp {
		case 2:
			saveTemp = 3
		case 3:
			saveTemp = 2
		}
	}
	if decomp >= 8 {
		temp <<= 1
		if x < y {
			temp++
			x, y = y, x
		}
		for _, st := range decompSteps {
			if decomp < st.min {
				break
			}
			temp <<= 1
			if x*st.tan < y {
				temp++
				x, y = x*st.cos+y*st.sin, x*st.sin-y*st.cos
			}
		}
		if decomp == 256 {
			temp <<= 1
			if x*tan1_4063 < y {
				temp++
			}
		}
	}

	iter := 0
	for i := 1; temp > 0; i++ {
		if temp&1 != 0 {
			iter = (1 << i) - 1 - iter
		}
		temp >>= 1
	}
	if decomp == 2 {
		iter = 0
		if saveTemp&2 != 0 {
			iter = 1
		}
		if colors == 2 {
			iter++
		}
	}
	if colors > decomp {
		iter++
	}
	return iter
}
