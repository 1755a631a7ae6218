package ring

import "testing"

func TestBetweenThreeLaw(t *testing.T) {
	const a, b ID = 10, 20

	tests := []struct {
		name string
		x    ID
		want bool
	}{
		{"a itself is never in (a,b]", a, false},
		{"b itself is in (a,b]", b, true},
		{"midpoint is in (a,b]", 15, true},
		{"outside the arc, closer to b side", 25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Between(tt.x, a, b, true); got != tt.want {
				t.Errorf("Between(%d,%d,%d,true) = %v, want %v", tt.x, a, b, got, tt.want)
			}
		})
	}
}

func TestBetweenPartition(t *testing.T) {
	const a, b ID = 100, 50 // deliberately wraps
	for x := ID(0); x < 200; x++ {
		first := Between(x, a, b, true)
		second := Between(x, b, a, true)
		switch x {
		case a:
			if first {
				t.Fatalf("Between(a,a,b,true) must be false")
			}
			if !second {
				t.Fatalf("a must lie in (b,a]")
			}
		case b:
			if !first {
				t.Fatalf("b must lie in (a,b]")
			}
			if second {
				t.Fatalf("Between(b,b,a,true) must be false")
			}
		default:
			if first == second {
				t.Fatalf("x=%d: exactly one of (a,b],(b,a] must hold, got first=%v second=%v", x, first, second)
			}
		}
	}
}

func TestBetweenDegenerate(t *testing.T) {
	const a ID = 42
	if Between(a, a, a, true) {
		t.Fatalf("in_ring(a,a,a,true) must be false")
	}
	for _, x := range []ID{0, 1, 41, 43, ^ID(0)} {
		if x == a {
			continue
		}
		if !Between(x, a, a, true) {
			t.Fatalf("in_ring(%d,a,a,true) must be true for every x != a", x)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b ID
		want ID
	}{
		{"simple forward", 10, 15, 5},
		{"wraps around zero", ^ID(0), 4, 5},
		{"zero distance", 7, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFingerStart(t *testing.T) {
	const self ID = 100
	if got := FingerStart(self, 0); got != 101 {
		t.Errorf("FingerStart(100,0) = %d, want 101", got)
	}
	if got := FingerStart(self, 63); got != self.Add(uint64(1)<<63) {
		t.Errorf("FingerStart(100,63) = %d, want %d", got, self.Add(uint64(1)<<63))
	}
}
