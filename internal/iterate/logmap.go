package iterate

import "math"

// maxLogTable bounds the precomputed table; larger iteration limits are
// mapped on the fly.
const maxLogTable = 32767

// LogMap compresses large iteration counts into the palette.
//
// Flag > 0 selects the log map with a floor of Flag (1 means no floor),
// -1 the old log map and values ≤ -2 the square root map with floor -Flag.
type LogMap struct {
	flag  int
	lf    int
	mlf   float64
	table []int
}

// NewLogMap returns nil when flag is 0.
func NewLogMap(flag, colors, maxIter int, fly bool) *LogMap {
	if flag == 0 {
		return nil
	}
	maxLT := maxIter
	m := &LogMap{flag: flag}
	switch {
	case flag > 0:
		if flag > 1 {
			m.lf = flag
		}
		m.lf = min(m.lf, maxLT-1)
		sub := 1
		if m.lf != 0 {
			sub = 2
		}
		m.mlf = float64(colors-sub) / math.Log(float64(maxLT-m.lf))
	case flag == -1:
		m.mlf = float64(colors-1) / math.Log(float64(maxLT))
	default:
		m.lf = min(-flag, maxLT-1)
		m.mlf = float64(colors-2) / math.Sqrt(float64(maxLT-m.lf))
	}
	if fly || maxLT > maxLogTable {
		return m
	}

	m.table = make([]int, maxLT+1)
	for i := range m.table {
		m.table[i] = m.calc(i)
	}
	m.table[0] = 0
	if flag != -1 {
		// spread the top so no palette entry is skipped
		for i := 1; i < maxLT; i++ {
			if m.table[i] > m.table[i-1] {
				m.table[i] = m.table[i-1] + 1
			}
		}
	}
	return m
}

// Floor is the iteration count below which everything maps to color 1.
func (m *LogMap) Floor() int { return m.lf }

func (m *LogMap) Map(iter int) int {
	if m == nil {
		return iter
	}
	if m.table != nil {
		return m.table[min(max(iter, 0), len(m.table)-1)]
	}
	return m.calc(iter)
}

func (m *LogMap) calc(iter int) int {
	switch {
	case m.flag > 0:
		if iter <= m.lf+1 {
			return 1
		}
		d := float64(iter - m.lf)
		if d/math.Log(d) <= m.mlf {
			return iter - m.lf
		}
		return int(m.mlf*math.Log(d)) + 1
	case m.flag == -1:
		if iter <= 0 {
			return 1
		}
		return int(m.mlf*math.Log(float64(iter))) + 1
	default:
		if iter <= m.lf {
			return 1
		}
		if iter-m.lf <= int(m.mlf*m.mlf) {
			return iter - m.lf + 1
		}
		return int(m.mlf*math.Sqrt(float64(iter-m.lf))) + 1
	}
}
