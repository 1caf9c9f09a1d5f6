package scan

import (
	"errors"
	"reflect"
	"testing"

	"github.com/marben/fractscan/internal/worklist"
)

func TestCursorRoundTrip(t *testing.T) {
	skip := newSkipGrid(7, 5)
	skip.set(1, 2)
	skip.set(4, 6)
	cursors := []*Cursor{
		{Item: worklist.NewItem(0, 99, 0, 49, 0, 0), carry: 17},
		{
			Item:    worklist.Item{XStart: 3, XStop: 90, XBegin: 40, YStart: 2, YStop: 40, YBegin: 7, Pass: 1, Sym: worklist.SymXDecided},
			trail:   5,
			tracing: true,
			tess:    packTess(box{x1: 40, x2: 51, y1: 7, y2: 12}),
			edges:   []int32{mixed, unknown, 4, 4, 9, 9, 9, 9},
			counter: 1234,
		},
		{
			Item:  worklist.NewItem(0, 63, 0, 63, 2, worklist.SymX|worklist.SymXDecided),
			carry: 255,
			guess: &guessState{y: 12, skip: skip},
		},
		{
			Item: worklist.NewItem(0, 63, 0, 63, 0, 0),
			guess: &guessState{
				y:     8,
				skip:  skip,
				row:   &guessVars{x: 16, c12: 3, c13: 3, c21: 4, c22: 4, c24: -1, c31: 4, c41: 2, c42: 2, c44: 2, prev11: 3, guessed12: 1},
				stack: [2][]int{{1, 2, 3}, {4, 5, 6}},
			},
		},
	}
	for _, c := range cursors {
		b, err := c.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		var got Cursor
		if err := got.UnmarshalBinary(b); err != nil {
			t.Fatalf("%v: %v", c, err)
		}
		if !reflect.DeepEqual(&got, c) {
			t.Errorf("round trip of %v gave %+v", c, got)
		}
	}
}

func TestCursorCorrupt(t *testing.T) {
	c := &Cursor{
		Item:  worklist.NewItem(0, 63, 0, 63, 1, 0),
		guess: &guessState{y: 4, skip: newSkipGrid(4, 4)},
	}
	b, err := c.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	var got Cursor
	for n := range len(b) {
		if err := got.UnmarshalBinary(b[:n]); !errors.Is(err, ErrCorruptCursor) {
			t.Fatalf("truncated to %d: %v", n, err)
		}
	}
	if err := got.UnmarshalBinary(append(b, 0)); !errors.Is(err, ErrCorruptCursor) {
		t.Errorf("trailing byte: %v", err)
	}
	bad := append([]byte{}, b...)
	bad[0] = 9
	if err := got.UnmarshalBinary(bad); !errors.Is(err, ErrCorruptCursor) {
		t.Errorf("version 9: %v", err)
	}
	if _, err := (&Cursor{carry: 1 << 40}).MarshalBinary(); err == nil {
		t.Error("oversized carry encoded")
	}
}

func TestCursorFits(t *testing.T) {
	whole := worklist.NewItem(0, 63, 0, 47, 1, 0)
	tests := []struct {
		name string
		c    Cursor
		ok   bool
	}{
		{"plain", Cursor{Item: whole}, true},
		{"guessing", Cursor{Item: whole, guess: &guessState{y: 40, row: &guessVars{x: 60}}}, true},
		{"tesseral", Cursor{Item: whole, tess: packTess(box{x1: 32, x2: 63, y1: 24, y2: 47})}, true},
		{"item too wide", Cursor{Item: worklist.NewItem(0, 500, 0, 400, 0, 0)}, false},
		{"item above", Cursor{Item: worklist.NewItem(0, 63, -1, 47, 0, 0)}, false},
		{"tesseral box off screen", Cursor{Item: whole, tess: packTess(box{x1: 64, x2: 70, y1: 0, y2: 8})}, false},
		{"diffusion counter", Cursor{Item: whole, counter: 1 << maxDiffusionBits}, false},
		{"guessing row", Cursor{Item: whole, guess: &guessState{y: 48}}, false},
		{"guessing column", Cursor{Item: whole, guess: &guessState{y: 0, row: &guessVars{x: -4}}}, false},
	}
	for _, tt := range tests {
		err := tt.c.Fits(64, 48)
		if tt.ok && err != nil {
			t.Errorf("%s: %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrCorruptCursor) {
			t.Errorf("%s: got %v", tt.name, err)
		}
	}
}
