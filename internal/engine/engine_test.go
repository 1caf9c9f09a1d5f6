package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/scan"
	"github.com/marben/fractscan/internal/symplot"
	"github.com/marben/fractscan/internal/worklist"
)

type grid struct {
	w, h int
	pix  []int
}

func newGrid(w, h int) *grid { return &grid{w: w, h: h, pix: make([]int, w*h)} }

func (g *grid) Size() (int, int)     { return g.w, g.h }
func (g *grid) ColorAt(x, y int) int { return g.pix[y*g.w+x] }
func (g *grid) SetColor(x, y, c int) { g.pix[y*g.w+x] = c }

func (g *grid) FillRun(y, x0, x1, c int) {
	for x := x0; x <= x1; x++ {
		g.pix[y*g.w+x] = c
	}
}

func (g *grid) PutRun(y, x0 int, colors []int) { copy(g.pix[y*g.w+x0:], colors) }

// interrupter stops the calculation at every step-th poll until it has done
// so limit times.
type interrupter struct {
	step, limit  int
	polls, fired int
}

func (p *interrupter) Interrupted() bool {
	if p.fired >= p.limit {
		return false
	}
	p.polls++
	if p.polls%p.step != 0 {
		return false
	}
	p.fired++
	return true
}

func testConfig(kind scan.Kind) Config {
	cfg := DefaultConfig()
	cfg.Region = mandel.SeahorseValley
	cfg.Strategy = kind
	cfg.Iterate.MaxIter = 250
	cfg.KeyboardCheck = 300
	return cfg
}

func complete(t *testing.T, cfg Config, g *grid) *Calculation {
	t.Helper()
	c, err := Begin(cfg, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	st, blob, err := c.Run(context.Background())
	if err != nil || st != StatusCompleted || blob != nil {
		t.Fatalf("run: %v %d bytes %v", st, len(blob), err)
	}
	return c
}

func TestCheckpointResumeMatchesUninterrupted(t *testing.T) {
	kinds := []scan.Kind{scan.OnePass, scan.TwoPass, scan.SolidGuess, scan.Boundary, scan.Tesseral, scan.Diffusion}
	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			cfg := testConfig(k)
			want := newGrid(80, 60)
			complete(t, cfg, want)

			got := newGrid(80, 60)
			poll := &interrupter{step: 7, limit: 25}
			c, err := Begin(cfg, got, poll)
			if err != nil {
				t.Fatal(err)
			}
			interrupts := 0
			for {
				st, blob, err := c.Run(context.Background())
				if err != nil {
					t.Fatal(err)
				}
				if st == StatusCompleted {
					break
				}
				interrupts++
				// a fresh calculation from the checkpoint alone
				if c, err = Resume(cfg, blob, got, poll); err != nil {
					t.Fatal(err)
				}
			}
			if interrupts == 0 {
				t.Fatal("never interrupted")
			}
			if !reflect.DeepEqual(want.pix, got.pix) {
				t.Errorf("image differs after %d interrupts", interrupts)
			}
		})
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	c, err := Begin(testConfig(scan.SolidGuess), newGrid(64, 48), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, blob, err := c.Run(ctx)
	if err != nil || st != StatusInterrupted || len(blob) == 0 {
		t.Fatalf("got %v, %d bytes, %v", st, len(blob), err)
	}
	if c.Done() {
		t.Error("done without computing")
	}
	st, _, err = c.Run(context.Background())
	if err != nil || st != StatusCompleted || !c.Done() {
		t.Fatalf("second run: %v %v", st, err)
	}
}

func TestResumeRejectsBadCheckpoints(t *testing.T) {
	cfg := testConfig(scan.SolidGuess)
	g := newGrid(64, 48)
	c, err := Begin(cfg, g, &interrupter{step: 5, limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	st, blob, err := c.Run(context.Background())
	if err != nil || st != StatusInterrupted {
		t.Fatalf("got %v, %v", st, err)
	}

	if _, err := Resume(cfg, nil, g, nil); !errors.Is(err, ErrNoCalculation) {
		t.Errorf("empty blob: %v", err)
	}
	for _, n := range []int{3, headerSize, headerSize + 10, len(blob) - 1} {
		if _, err := Resume(cfg, blob[:n], g, nil); !errors.Is(err, ErrCorruptCheckpoint) {
			t.Errorf("truncated to %d: %v", n, err)
		}
	}
	bad := append([]byte{}, blob...)
	bad[0] = 'X'
	if _, err := Resume(cfg, bad, g, nil); !errors.Is(err, ErrCorruptCheckpoint) {
		t.Errorf("bad magic: %v", err)
	}
	if _, err := Resume(cfg, blob, newGrid(65, 48), nil); !errors.Is(err, ErrCorruptCheckpoint) {
		t.Errorf("other size: %v", err)
	}
	other := cfg
	other.Strategy = scan.TwoPass
	if _, err := Resume(other, blob, g, nil); !errors.Is(err, ErrCorruptCheckpoint) {
		t.Errorf("other strategy: %v", err)
	}
	// an item reaching past the image, in the queue and behind a cursor
	big := worklist.NewItem(0, 500, 0, 400, 0, 0)
	q := worklist.New(worklist.DefaultCapacity)
	if err := q.Add(big); err != nil {
		t.Fatal(err)
	}
	empty, err := worklist.New(worklist.DefaultCapacity).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	full, err := q.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	cur, err := (&scan.Cursor{Item: big}).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	for name, parts := range map[string][2][]byte{"queued": {full, nil}, "cursor": {empty, cur}} {
		b := append([]byte{}, blob[:headerSize]...)
		for _, p := range parts {
			b = binary.BigEndian.AppendUint32(b, uint32(len(p)))
			b = append(b, p...)
		}
		if _, err := Resume(cfg, b, g, nil); !errors.Is(err, ErrCorruptCheckpoint) {
			t.Errorf("%s item off the image: %v", name, err)
		}
	}

	if _, err := Resume(cfg, blob, g, nil); err != nil {
		t.Errorf("intact blob: %v", err)
	}
}

func TestPanComputesOnlyTheUncoveredStrips(t *testing.T) {
	cfg := testConfig(scan.OnePass)
	g := newGrid(60, 40)
	c := complete(t, cfg, g)
	before := append([]int(nil), g.pix...)
	pixels, _ := c.Stats()

	const dr, dc = 6, -9
	if err := c.Pan(dr, dc); err != nil {
		t.Fatal(err)
	}
	for y := range 40 - dr {
		for x := -dc; x < 60; x++ {
			if got, want := g.ColorAt(x, y), before[(y+dr)*60+x+dc]; got != want {
				t.Fatalf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
	if st, _, err := c.Run(context.Background()); err != nil || st != StatusCompleted {
		t.Fatalf("run after pan: %v %v", st, err)
	}
	after, _ := c.Stats()
	if want := int64(60*dr + (40-dr)*-dc); after-pixels != want {
		t.Errorf("computed %d pixels after the pan, want %d", after-pixels, want)
	}
	for i, v := range g.pix {
		if v == 0 {
			t.Fatalf("pixel (%d,%d) left blank", i%60, i/60)
		}
	}
}

func TestPanUnfinishedQueue(t *testing.T) {
	for _, k := range []scan.Kind{scan.Tesseral, scan.SolidGuess} {
		cfg := testConfig(k)
		g := newGrid(64, 48)
		c, err := Begin(cfg, g, &interrupter{step: 4, limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if st, _, err := c.Run(context.Background()); err != nil || st != StatusInterrupted {
			t.Fatalf("%v: got %v, %v", k, st, err)
		}
		if err := c.Pan(3, 3); !errors.Is(err, ErrCannotPan) {
			t.Errorf("%v pan off the block grid: %v", k, err)
		}
		if k == scan.Tesseral {
			continue
		}
		if err := c.Pan(4, -4); err != nil {
			t.Fatal(err)
		}
		if st, _, err := c.Run(context.Background()); err != nil || st != StatusCompleted {
			t.Fatalf("%v after pan: %v %v", k, st, err)
		}
		for i, v := range g.pix {
			if v == 0 {
				t.Fatalf("%v: pixel (%d,%d) left blank", k, i%64, i/64)
			}
		}
	}
}

// finishPanned interrupts a calculation once at the given poll, pans it and
// runs it to completion.
func finishPanned(t *testing.T, k scan.Kind, step, dr, dc int) (*grid, error) {
	t.Helper()
	g := newGrid(64, 48)
	c, err := Begin(testConfig(k), g, &interrupter{step: step, limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	st, _, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if k != scan.OnePass && st != StatusInterrupted {
		t.Fatalf("%v finished before poll %d", k, step)
	}
	if err := c.Pan(dr, dc); err != nil {
		return nil, err
	}
	if st, _, err := c.Run(context.Background()); err != nil || st != StatusCompleted {
		t.Fatalf("run after pan: %v %v", st, err)
	}
	return g, nil
}

func TestPanUnfinishedTwoPassStaysExact(t *testing.T) {
	for _, step := range []int{2, 5, 9, 14} {
		for _, d := range [][2]int{{0, 1}, {1, 0}, {-3, 2}} {
			if _, err := finishPanned(t, scan.TwoPass, step, d[0], d[1]); !errors.Is(err, ErrCannotPan) {
				t.Errorf("poll %d, odd pan %v: %v", step, d, err)
			}
		}
		for _, d := range [][2]int{{2, 2}, {0, -4}, {6, 0}} {
			want, err := finishPanned(t, scan.OnePass, step, d[0], d[1])
			if err != nil {
				t.Fatal(err)
			}
			got, err := finishPanned(t, scan.TwoPass, step, d[0], d[1])
			if err != nil {
				t.Fatalf("poll %d, pan %v: %v", step, d, err)
			}
			wrong := 0
			for i := range want.pix {
				if got.pix[i] != want.pix[i] {
					wrong++
				}
			}
			if wrong != 0 {
				t.Errorf("poll %d, pan %v: %d pixels differ from one pass", step, d, wrong)
			}
		}
	}
}

func TestAutoLogMap(t *testing.T) {
	cfg := testConfig(scan.OnePass)
	cfg.Iterate.LogMap = 2
	g := newGrid(50, 40)
	c := complete(t, cfg, g)

	plain := testConfig(scan.OnePass)
	ref, err := Begin(plain, newGrid(50, 40), nil)
	if err != nil {
		t.Fatal(err)
	}
	low := 1 << 30
	vp := ref.Viewport()
	edge := func(col, row int) {
		r, err := ref.env.It.Calc(vp.Point(col, row))
		if err != nil {
			t.Fatal(err)
		}
		low = min(low, r.Iter)
	}
	for col := range 49 {
		edge(col, 0)
		edge(col, 39)
	}
	for row := range 39 {
		edge(0, row)
		edge(49, row)
	}
	if c.logFloor != max(low, 1) {
		t.Errorf("log floor %d, edges reach down to %d", c.logFloor, low)
	}
	if !c.Done() {
		t.Error("not done")
	}
}

func TestBoundaryNeedsNonZeroColors(t *testing.T) {
	cfg := testConfig(scan.Boundary)
	cfg.Iterate.InsideColor = 0
	c, err := Begin(cfg, newGrid(20, 20), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Config().Strategy; got != scan.SolidGuess {
		t.Errorf("strategy %v", got)
	}
	cfg.Iterate.InsideColor = 5
	if c, err = Begin(cfg, newGrid(20, 20), nil); err != nil {
		t.Fatal(err)
	}
	if got := c.Config(); got.Strategy != scan.Boundary || !got.Iterate.NonZero {
		t.Errorf("strategy %v, nonzero %v", got.Strategy, got.Iterate.NonZero)
	}
}

func TestSymmetryRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Region = mandel.WholeSet
	c, err := Begin(cfg, newGrid(40, 31), nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Symmetry() != symplot.XAxis {
		t.Errorf("mandel symmetry %v", c.Symmetry())
	}
	cfg.Iterate.Outside = iterate.OutsideReal
	if c, err = Begin(cfg, newGrid(40, 31), nil); err != nil {
		t.Fatal(err)
	}
	if c.Symmetry() != symplot.NoSymmetry {
		t.Errorf("real outside symmetry %v", c.Symmetry())
	}
	forced := symplot.Origin
	cfg.Symmetry = &forced
	if c, err = Begin(cfg, newGrid(40, 31), nil); err != nil {
		t.Fatal(err)
	}
	if c.Symmetry() != symplot.Origin {
		t.Errorf("forced symmetry %v", c.Symmetry())
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	cfg := testConfig(scan.Tesseral)
	cfg.Fractal = "julia"
	cfg.Param = &Corner{X: -0.8, Y: 0.156}
	cfg.Iterate.Inside = iterate.InsidePeriod
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("got %+v\nwant %+v", got, cfg)
	}

	cfg.Fractal = "nosuch"
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("unknown fractal accepted")
	}
}

func TestZoom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Region = mandel.WholeSet
	c, err := Begin(cfg, newGrid(40, 30), nil)
	if err != nil {
		t.Fatal(err)
	}
	zoomed, err := c.Zoom(4, 20, 15)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := zoomed.Region.Width(), mandel.WholeSet.Width()/4; got < want*0.999 || got > want*1.001 {
		t.Errorf("width %g, want %g", got, want)
	}
	if zoomed.Corner3 != nil {
		t.Error("unrotated view got a third corner")
	}
	if _, err := c.Zoom(0, 1, 1); err == nil {
		t.Error("zero factor accepted")
	}
	z, err := Begin(zoomed, newGrid(40, 30), nil)
	if err != nil {
		t.Fatal(err)
	}
	// the pixel zoomed about stays put
	before, after := c.Viewport().Point(20, 15), z.Viewport().Point(20, 15)
	if d := after - before; real(d)*real(d)+imag(d)*imag(d) > 1e-20 {
		t.Errorf("pixel moved from %v to %v", before, after)
	}
}

func TestQuickCalc(t *testing.T) {
	cfg := testConfig(scan.OnePass)
	cfg.Iterate.MaxIter = 60
	g := newGrid(40, 30)
	complete(t, cfg, g)
	inside := 0
	for _, v := range g.pix {
		if v == cfg.Iterate.InsideColor {
			inside++
		}
	}
	if inside == 0 || inside == len(g.pix) {
		t.Fatalf("%d inside pixels", inside)
	}

	cfg.Iterate.MaxIter = 250
	cfg.Scan.QuickCalc = true
	c := complete(t, cfg, g)
	if pixels, _ := c.Stats(); pixels != int64(inside) {
		t.Errorf("quick calc computed %d pixels, %d were inside", pixels, inside)
	}

	cfg.Strategy = scan.SolidGuess
	c, err := Begin(cfg, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Config().Scan.QuickCalc {
		t.Error("quick calc kept for solid guessing")
	}
}
