package iterate

import "testing"

func TestLogMapMonotonic(t *testing.T) {
	for _, flag := range []int{1, 20, -1, -2, -30} {
		for _, fly := range []bool{false, true} {
			m := NewLogMap(flag, 256, 1000, fly)
			prev := m.Map(1)
			for i := 2; i <= 1000; i++ {
				got := m.Map(i)
				if got < prev {
					t.Fatalf("flag=%d fly=%v: Map(%d)=%d < Map(%d)=%d", flag, fly, i, got, i-1, prev)
				}
				if got < 1 || got > 256 {
					t.Fatalf("flag=%d fly=%v: Map(%d)=%d outside the palette", flag, fly, i, got)
				}
				prev = got
			}
		}
	}
}

func TestLogMapFloor(t *testing.T) {
	m := NewLogMap(50, 256, 1000, true)
	tests := []struct{ in, want int }{
		{10, 1},
		{51, 1},
		{53, 3},
	}
	for _, tt := range tests {
		if got := m.Map(tt.in); got != tt.want {
			t.Errorf("Map(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if m.Floor() != 50 {
		t.Errorf("Floor = %d", m.Floor())
	}
}

func TestLogMapKeepsLowCounts(t *testing.T) {
	m := NewLogMap(1, 256, 1000, false)
	for i := 1; i <= 10; i++ {
		if got := m.Map(i); got != i {
			t.Errorf("Map(%d) = %d, want it unchanged", i, got)
		}
	}
}

func TestNilLogMap(t *testing.T) {
	var m *LogMap
	if NewLogMap(0, 256, 150, false) != nil {
		t.Error("flag 0 should disable the map")
	}
	if m.Map(77) != 77 {
		t.Error("nil map must be the identity")
	}
}
