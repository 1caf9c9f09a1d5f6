package worklist

import (
	"bytes"
	"errors"
	"image"
	"slices"
	"testing"
)

func TestAddMergesAdjacent(t *testing.T) {
	tests := []struct {
		name string
		a, b Item
		want Item
	}{
		{
			name: "vertical",
			a:    NewItem(0, 99, 0, 9, 0, 0),
			b:    NewItem(0, 99, 10, 19, 0, 0),
			want: NewItem(0, 99, 0, 19, 0, 0),
		},
		{
			name: "horizontal",
			a:    NewItem(0, 49, 0, 9, 1, 0),
			b:    NewItem(50, 99, 0, 9, 1, 0),
			want: NewItem(0, 99, 0, 9, 1, 0),
		},
		{
			name: "symmetric items",
			a:    NewItem(0, 9, 0, 4, 0, SymX|SymXDecided),
			b:    NewItem(10, 19, 0, 4, 0, SymX|SymXDecided),
			want: NewItem(0, 19, 0, 4, 0, SymX|SymXDecided),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range [][2]Item{{tt.a, tt.b}, {tt.b, tt.a}} {
				q := New(0)
				for _, it := range order {
					if err := q.Add(it); err != nil {
						t.Fatalf("Add(%v): %v", it, err)
					}
				}
				if q.Len() != 1 {
					t.Fatalf("got %d items %v, want 1", q.Len(), q.Items())
				}
				if got := q.Items()[0]; got != tt.want {
					t.Errorf("merged = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAddDoesNotMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b Item
	}{
		{"gap", NewItem(0, 99, 0, 9, 0, 0), NewItem(0, 99, 11, 19, 0, 0)},
		{"different pass", NewItem(0, 99, 0, 9, 0, 0), NewItem(0, 99, 10, 19, 1, 0)},
		{"different sym", NewItem(0, 99, 0, 9, 0, 0), NewItem(0, 99, 10, 19, 0, SymXDecided)},
		{"different width", NewItem(0, 98, 0, 9, 0, 0), NewItem(0, 99, 10, 19, 0, 0)},
		{"resumed item", NewItem(0, 99, 0, 9, 0, 0), Item{XStart: 0, XStop: 99, XBegin: 5, YStart: 10, YStop: 19, YBegin: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(0)
			_ = q.Add(tt.a)
			_ = q.Add(tt.b)
			if q.Len() != 2 {
				t.Fatalf("got %d items, want 2: %v", q.Len(), q.Items())
			}
		})
	}
}

func TestMergeCommutes(t *testing.T) {
	strips := []Item{
		NewItem(0, 99, 0, 9, 0, 0),
		NewItem(0, 99, 10, 19, 0, 0),
		NewItem(0, 99, 20, 29, 0, 0),
		NewItem(0, 99, 30, 39, 0, 0),
	}
	var first []Item
	for _, perm := range [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}} {
		q := New(0)
		for _, k := range perm {
			if err := q.Add(strips[k]); err != nil {
				t.Fatal(err)
			}
		}
		if first == nil {
			first = q.Items()
			continue
		}
		if !slices.Equal(first, q.Items()) {
			t.Errorf("order %v gave %v, want %v", perm, q.Items(), first)
		}
	}
	if len(first) != 1 || first[0] != NewItem(0, 99, 0, 39, 0, 0) {
		t.Errorf("got %v, want a single full item", first)
	}
}

func TestSortOrder(t *testing.T) {
	q := New(0)
	_ = q.Add(NewItem(50, 60, 50, 60, 1, 0))
	_ = q.Add(NewItem(20, 30, 50, 60, 0, 0))
	_ = q.Add(NewItem(0, 10, 50, 60, 0, 0))
	_ = q.Add(NewItem(0, 10, 0, 10, 1, 0))

	want := []Item{
		NewItem(0, 10, 50, 60, 0, 0),
		NewItem(20, 30, 50, 60, 0, 0),
		NewItem(0, 10, 0, 10, 1, 0),
		NewItem(50, 60, 50, 60, 1, 0),
	}
	if got := q.Items(); !slices.Equal(got, want) {
		t.Errorf("items = %v\nwant %v", got, want)
	}
	if q.LowestPass() != 0 {
		t.Errorf("LowestPass = %d, want 0", q.LowestPass())
	}
	it, _ := q.Pop()
	if it != want[0] {
		t.Errorf("Pop = %v, want %v", it, want[0])
	}
}

func TestQueueFull(t *testing.T) {
	q := New(2)
	if err := q.Add(NewItem(0, 1, 0, 1, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := q.Add(NewItem(5, 6, 5, 6, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := q.Add(NewItem(9, 9, 9, 9, 0, 0)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestTakeAndGrow(t *testing.T) {
	q := New(2)
	a := NewItem(0, 9, 0, 4, 0, 0)
	b := NewItem(0, 9, 10, 19, 1, 0)
	for _, it := range []Item{a, b} {
		if err := q.Add(it); err != nil {
			t.Fatal(err)
		}
	}
	q.Grow(1)
	c := Item{XStart: 0, XStop: 9, XBegin: 3, YStart: 6, YStop: 8, YBegin: 7, Pass: 1}
	if err := q.Add(c); err != nil {
		t.Fatalf("Add after Grow: %v", err)
	}
	if q.Cap() != 3 || q.Free() != 0 {
		t.Errorf("cap %d free %d", q.Cap(), q.Free())
	}
	if !q.Take(c) || q.Take(c) {
		t.Error("Take must remove the item exactly once")
	}
	if got := q.Items(); !slices.Equal(got, []Item{a, b}) {
		t.Errorf("items %v", got)
	}
}

func TestFixClipsIntoBounds(t *testing.T) {
	const w, h = 64, 48
	q := New(32)
	for _, it := range []Item{
		NewItem(-10, 20, -5, 10, 0, 0),
		NewItem(50, 80, 40, 60, 1, 0),
		NewItem(100, 120, 0, 10, 0, 0), // off right
		NewItem(0, 10, -20, -1, 0, 0),  // off top
		NewItem(-8, 71, -6, 53, 0, SymX|SymY|SymXDecided|SymYDecided),
		{XStart: 10, XStop: 30, XBegin: 25, YStart: -4, YStop: 4, YBegin: -2, Pass: 1},
	} {
		if err := q.Add(it); err != nil {
			t.Fatal(err)
		}
	}

	var cleared []image.Rectangle
	q.Fix(w, h, func(r image.Rectangle) { cleared = append(cleared, r) })

	for _, it := range q.Items() {
		if !(0 <= it.XStart && it.XStart <= it.XBegin && it.XBegin <= it.XStop && it.XStop < w) {
			t.Errorf("x out of bounds: %v", it)
		}
		if !(0 <= it.YStart && it.YStart <= it.YBegin && it.YBegin <= it.YStop && it.YStop < h) {
			t.Errorf("y out of bounds: %v", it)
		}
	}
	for _, r := range cleared {
		if !r.In(image.Rect(0, 0, w, h)) {
			t.Errorf("cleared %v outside the screen", r)
		}
	}
}

func TestFixSplitsSymmetricTop(t *testing.T) {
	q := New(0)
	// Axis at row 5; rows -5..15 are mirrored about it.
	_ = q.Add(Item{XStart: 0, XStop: 9, XBegin: 0, YStart: -5, YStop: 15, YBegin: -5, Pass: 0, Sym: SymX | SymXDecided})

	var cleared []image.Rectangle
	q.Fix(10, 30, func(r image.Rectangle) { cleared = append(cleared, r) })

	want := []Item{
		NewItem(0, 9, 0, 10, 0, SymX|SymXDecided),
		NewItem(0, 9, 11, 15, 0, 0),
	}
	if got := q.Items(); !slices.Equal(got, want) {
		t.Fatalf("items = %v\nwant %v", got, want)
	}
	if len(cleared) != 1 || cleared[0] != image.Rect(0, 11, 10, 16) {
		t.Errorf("cleared = %v", cleared)
	}
}

func TestFixDropsBottomSymmetry(t *testing.T) {
	q := New(0)
	_ = q.Add(NewItem(0, 9, 20, 40, 0, SymX|SymXDecided))
	q.Fix(10, 35, nil)

	want := []Item{
		NewItem(0, 9, 20, 25, 0, SymXDecided),
		NewItem(0, 9, 26, 34, 0, SymX|SymXDecided),
	}
	if got := q.Items(); !slices.Equal(got, want) {
		t.Fatalf("items = %v\nwant %v", got, want)
	}
}

func TestOffset(t *testing.T) {
	q := New(0)
	_ = q.Add(Item{XStart: 10, XStop: 20, XBegin: 12, YStart: 5, YStop: 9, YBegin: 6, Pass: 1})
	q.Offset(2, -3)
	want := Item{XStart: 13, XStop: 23, XBegin: 15, YStart: 3, YStop: 7, YBegin: 4, Pass: 1}
	if got := q.Items()[0]; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	q := New(0)
	_ = q.Add(Item{XStart: 0, XStop: 639, XBegin: 17, YStart: 100, YStop: 379, YBegin: 100, Pass: 0, Sym: SymX | SymXDecided})
	_ = q.Add(NewItem(0, 639, 380, 479, 0, SymXDecided))
	_ = q.Add(NewItem(0, 639, 0, 99, 1, 0))

	blob, err := q.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	var back Queue
	if err := back.UnmarshalBinary(blob); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(back.Items(), q.Items()) || back.Cap() != q.Cap() {
		t.Fatalf("round trip changed the queue: %v vs %v", back.Items(), q.Items())
	}
	again, err := back.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(blob, again) {
		t.Error("re-encoding is not byte identical")
	}
}

func TestDecodeRejectsCorrupt(t *testing.T) {
	q := New(4)
	_ = q.Add(NewItem(0, 9, 0, 9, 0, 0))
	blob, _ := q.MarshalBinary()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", blob[:len(blob)-1]},
		{"count too big", append([]byte{0, 0, 0, 9}, blob[4:]...)},
		{"cursor outside", func() []byte {
			b := bytes.Clone(blob)
			b[8+2*4+3] = 50 // XBegin
			return b
		}()},
		{"dirty padding", func() []byte {
			b := bytes.Clone(blob)
			b[len(b)-1] = 1
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var back Queue
			if err := back.UnmarshalBinary(tt.data); !errors.Is(err, ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}
