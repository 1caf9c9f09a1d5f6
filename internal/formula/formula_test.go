package formula

import (
	"testing"

	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/symplot"
)

func TestNew(t *testing.T) {
	for _, name := range Names() {
		k, err := DefaultParam(name)
		if err != nil {
			t.Fatal(err)
		}
		f, err := New(name, k)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if f.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, f.Name())
		}
		if r := f.DefaultRegion(); r.Width() <= 0 || r.Height() <= 0 {
			t.Errorf("%s: empty default region %v", name, r)
		}
	}
	if _, err := New("Mandel", 0); err != nil {
		t.Errorf("names are case insensitive: %v", err)
	}
	if _, err := New("newton", 0); err == nil {
		t.Error("unknown fractal accepted")
	}
}

func TestSymmetryClasses(t *testing.T) {
	tests := []struct {
		f    Formula
		want symplot.Class
	}{
		{Mandel{}, symplot.XAxis},
		{Mandel{Perturb: 0.1i}, symplot.NoSymmetry},
		{Julia{K: 0.3 + 0.6i}, symplot.Origin},
		{Cubic{}, symplot.XYAxis},
		{LambdaSin{K: 1}, symplot.PiXY},
		{LambdaSin{K: 1 + 0.4i}, symplot.PiOrigin},
		{Lambda{K: 2}, symplot.NoSymmetry},
	}
	for _, tt := range tests {
		if got := tt.f.Symmetry(); got != tt.want {
			t.Errorf("%s %v: symmetry %v, want %v", tt.f.Name(), tt.f, got, tt.want)
		}
	}
}

func TestMandelStartsAtC(t *testing.T) {
	z, iter := Mandel{}.Start(0.25)
	if z != 0.25 || iter != 0 {
		t.Errorf("Start = %v, %d", z, iter)
	}
	if z, iter := (Julia{K: 1}).Start(0.25); z != 0.25 || iter != -1 {
		t.Errorf("julia Start = %v, %d", z, iter)
	}
}

func TestLambdaSinBailout(t *testing.T) {
	cfg := iterate.DefaultConfig()
	LambdaSin{}.Tune(&cfg)
	if cfg.Bailout != 2500 || cfg.BailoutTest != iterate.BailoutImag {
		t.Errorf("bailout %g test %v", cfg.Bailout, cfg.BailoutTest)
	}
	if cfg.Escapes(1000 + 49i) {
		t.Error("a large real part must not escape")
	}
	if !cfg.Escapes(51i) {
		t.Error("|Im z| > 50 must escape")
	}

	cfg = iterate.DefaultConfig()
	cfg.Bailout = 16
	LambdaSin{}.Tune(&cfg)
	if cfg.Bailout != 16 || cfg.BailoutTest != iterate.BailoutMod {
		t.Error("an explicit bailout must be kept")
	}
}

func TestFindAttractors(t *testing.T) {
	cfg := iterate.DefaultConfig()

	// z²-1 cycles 0 → -1 → 0
	got := FindAttractors(Julia{K: -1}, cfg, 1e-9)
	if len(got) != 1 || got[0].Period != 2 || got[0].Point() != -1 {
		t.Errorf("julia -1: %v, want the 2-cycle through -1", got)
	}

	// 2z(1-z) has its fixed point at 0.5
	got = FindAttractors(Lambda{K: 2}, cfg, 1e-9)
	found := false
	for _, a := range got {
		if a.Point() == 0.5 && a.Period == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("lambda 2: %v, want the fixed point 0.5", got)
	}

	if got := FindAttractors(Julia{K: 1}, cfg, 1e-9); len(got) != 0 {
		t.Errorf("z²+1 escapes from 0, got %v", got)
	}
	if got := FindAttractors(Mandel{}, cfg, 1e-9); got != nil {
		t.Errorf("parameter plane: %v", got)
	}
}
