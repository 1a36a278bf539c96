package hex

import "testing"

func TestDistance(t *testing.T) {
	if got := Distance(New(0, 0, 0), New(2, -1, -1)); got != 2 {
		t.Fatalf("distance = %d, want 2", got)
	}
	if got := Distance(New(-3, 1, 2), New(3, -1, -2)); got != 6 {
		t.Fatalf("distance = %d, want 6", got)
	}
}

func TestNewRejectsInvalidCube(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for x+y+z != 0")
		}
	}()
	New(1, 1, 1)
}

func TestNeighborsOrder(t *testing.T) {
	want := [6]Hex{
		{X: 0, Y: -1, Z: 1},
		{X: 1, Y: -1, Z: 0},
		{X: 1, Y: 0, Z: -1},
		{X: 0, Y: 1, Z: -1},
		{X: -1, Y: 1, Z: 0},
		{X: -1, Y: 0, Z: 1},
	}
	if got := Zero().Neighbors(); got != want {
		t.Fatalf("neighbors = %v, want %v", got, want)
	}

	c := New(4, -7, 3)
	for i, n := range c.Neighbors() {
		if Distance(c, n) != 1 {
			t.Fatalf("neighbor %d at distance %d", i, Distance(c, n))
		}
		if n.X+n.Y+n.Z != 0 {
			t.Fatalf("neighbor %d breaks cube invariant: %v", i, n)
		}
	}
}

func TestCircle(t *testing.T) {
	got := Circle(Zero(), 1)
	if len(got) != 7 {
		t.Fatalf("circle(origin,1) = %d cells, want 7", len(got))
	}
	seen := map[Hex]bool{}
	for _, h := range got {
		seen[h] = true
	}
	if !seen[Zero()] {
		t.Fatalf("circle missing center")
	}
	for _, n := range Zero().Neighbors() {
		if !seen[n] {
			t.Fatalf("circle missing neighbor %v", n)
		}
	}

	for r := int32(0); r <= 6; r++ {
		want := 3*r*r + 3*r + 1
		cells := Circle(New(2, -5, 3), r)
		if int32(len(cells)) != want {
			t.Fatalf("circle radius %d = %d cells, want %d", r, len(cells), want)
		}
		for _, h := range cells {
			if Distance(New(2, -5, 3), h) > r {
				t.Fatalf("cell %v outside radius %d", h, r)
			}
		}
	}
	if Circle(Zero(), -1) != nil {
		t.Fatalf("negative radius should yield nothing")
	}
}

func TestRing(t *testing.T) {
	center := New(1, 1, -2)
	for r := int32(1); r <= 4; r++ {
		cells := Ring(center, r)
		if int32(len(cells)) != 6*r {
			t.Fatalf("ring %d = %d cells, want %d", r, len(cells), 6*r)
		}
		seen := map[Hex]bool{}
		for _, h := range cells {
			if Distance(center, h) != r {
				t.Fatalf("ring %d: %v at distance %d", r, h, Distance(center, h))
			}
			if seen[h] {
				t.Fatalf("ring %d: duplicate %v", r, h)
			}
			seen[h] = true
		}
	}
	if got := Ring(center, 0); len(got) != 1 || got[0] != center {
		t.Fatalf("ring 0 = %v", got)
	}
}

func TestLine(t *testing.T) {
	a, b := New(0, 0, 0), New(4, -2, -2)
	line := Line(a, b)
	if len(line) != 5 {
		t.Fatalf("line length = %d, want 5", len(line))
	}
	if line[0] != a || line[len(line)-1] != b {
		t.Fatalf("line endpoints = %v..%v", line[0], line[len(line)-1])
	}
	for i := 1; i < len(line); i++ {
		if Distance(line[i-1], line[i]) != 1 {
			t.Fatalf("line step %d not adjacent: %v -> %v", i, line[i-1], line[i])
		}
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	for col := int32(-40); col <= 40; col++ {
		for row := int32(-40); row <= 40; row++ {
			o := Offset{Col: col, Row: row}
			h := FromOffset(o)
			if h.X+h.Y+h.Z != 0 {
				t.Fatalf("FromOffset(%v) broke invariant: %v", o, h)
			}
			if back := h.Offset(); back != o {
				t.Fatalf("round trip %v -> %v -> %v", o, h, back)
			}
		}
	}
	for _, h := range Circle(Zero(), 12) {
		if back := FromOffset(h.Offset()); back != h {
			t.Fatalf("cube round trip %v -> %v", h, back)
		}
	}
}

func TestPlanarRoundTrip(t *testing.T) {
	for _, h := range Circle(New(10, -3, -7), 8) {
		if got := FromPlanar(h.Planar()); got != h {
			t.Fatalf("FromPlanar(Planar(%v)) = %v", h, got)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, div, mod int32
	}{
		{0, 6, 0, 0},
		{5, 6, 0, 5},
		{6, 6, 1, 0},
		{-1, 6, -1, 5},
		{-6, 6, -1, 0},
		{-7, 6, -2, 5},
	}
	for _, tc := range tests {
		if got := FloorDiv(tc.a, tc.b); got != tc.div {
			t.Errorf("FloorDiv(%d,%d) = %d, want %d", tc.a, tc.b, got, tc.div)
		}
		if got := Mod(tc.a, tc.b); got != tc.mod {
			t.Errorf("Mod(%d,%d) = %d, want %d", tc.a, tc.b, got, tc.mod)
		}
	}
}
