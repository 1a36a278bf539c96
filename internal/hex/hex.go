// Package hex implements pointy-top hexagonal grid math in cube coordinates.
// Offset coordinates use the odd-r layout. Everything here is a pure function
// over value types and safe to call from any goroutine.
package hex

import (
	"fmt"
	"math"
)

// Hex is a cube coordinate. X+Y+Z is always 0.
type Hex struct {
	X int32
	Y int32
	Z int32
}

// New builds a cube coordinate and panics if the components do not sum to zero.
func New(x, y, z int32) Hex {
	if x+y+z != 0 {
		panic(fmt.Sprintf("hex: invalid cube coordinate (%d,%d,%d)", x, y, z))
	}
	return Hex{X: x, Y: y, Z: z}
}

// Axial builds a cube coordinate from axial (q, r); z is inferred.
func Axial(q, r int32) Hex {
	return Hex{X: q, Y: r, Z: -q - r}
}

// Zero is the origin.
func Zero() Hex { return Hex{} }

func (h Hex) Add(o Hex) Hex {
	return Hex{X: h.X + o.X, Y: h.Y + o.Y, Z: h.Z + o.Z}
}

func (h Hex) Sub(o Hex) Hex {
	return Hex{X: h.X - o.X, Y: h.Y - o.Y, Z: h.Z - o.Z}
}

// Scale multiplies every component by k, preserving the cube invariant.
func (h Hex) Scale(k int32) Hex {
	return Hex{X: h.X * k, Y: h.Y * k, Z: h.Z * k}
}

// Length is the distance from the origin.
func (h Hex) Length() int32 {
	return (abs(h.X) + abs(h.Y) + abs(h.Z)) / 2
}

func (h Hex) String() string {
	return fmt.Sprintf("(%d,%d,%d)", h.X, h.Y, h.Z)
}

// Distance returns the number of steps between a and b.
func Distance(a, b Hex) int32 {
	return a.Sub(b).Length()
}

// Direction offsets, clockwise from north-west.
var (
	NW = Hex{X: 0, Y: -1, Z: 1}
	NE = Hex{X: 1, Y: -1, Z: 0}
	E  = Hex{X: 1, Y: 0, Z: -1}
	SE = Hex{X: 0, Y: 1, Z: -1}
	SW = Hex{X: -1, Y: 1, Z: 0}
	W  = Hex{X: -1, Y: 0, Z: 1}
)

// Directions is the neighbor order used by Neighbors. Callers iterate it for
// deterministic traversal, so the order must never change.
var Directions = [6]Hex{NW, NE, E, SE, SW, W}

// Diagonals are the six second-ring cells sharing a vertex with the center.
var Diagonals = [6]Hex{
	{X: -1, Y: -1, Z: 2},
	{X: 1, Y: -2, Z: 1},
	{X: 2, Y: -1, Z: -1},
	{X: 1, Y: 1, Z: -2},
	{X: -1, Y: 2, Z: -1},
	{X: -2, Y: 1, Z: 1},
}

// Neighbors returns the six adjacent cells in Directions order.
func (h Hex) Neighbors() [6]Hex {
	var out [6]Hex
	for i, d := range Directions {
		out[i] = h.Add(d)
	}
	return out
}

// Circle returns every cell within radius of center, center included.
// A radius of r yields 3r²+3r+1 cells; a negative radius yields none.
func Circle(center Hex, radius int32) []Hex {
	if radius < 0 {
		return nil
	}
	out := make([]Hex, 0, 3*radius*radius+3*radius+1)
	for q := -radius; q <= radius; q++ {
		lo := max(-radius, -q-radius)
		hi := min(radius, -q+radius)
		for r := lo; r <= hi; r++ {
			out = append(out, center.Add(Hex{X: q, Y: r, Z: -q - r}))
		}
	}
	return out
}

// Ring returns the cells at exactly radius from center, starting at the
// west corner and walking clockwise. Radius 0 is the center itself.
func Ring(center Hex, radius int32) []Hex {
	if radius < 0 {
		return nil
	}
	if radius == 0 {
		return []Hex{center}
	}
	out := make([]Hex, 0, 6*radius)
	cur := center.Add(W.Scale(radius))
	for side := range Directions {
		d := Directions[(side+1)%len(Directions)]
		for i := int32(0); i < radius; i++ {
			out = append(out, cur)
			cur = cur.Add(d)
		}
	}
	return out
}

// Line returns the cells from a to b inclusive.
func Line(a, b Hex) []Hex {
	n := Distance(a, b)
	if n == 0 {
		return []Hex{a}
	}
	// nudge off the shared edges so rounding is stable along axis-aligned lines
	ax, ay, az := float64(a.X)+1e-6, float64(a.Y)+1e-6, float64(a.Z)-2e-6
	bx, by, bz := float64(b.X)+1e-6, float64(b.Y)+1e-6, float64(b.Z)-2e-6

	out := make([]Hex, 0, n+1)
	step := 1.0 / float64(n)
	for i := int32(0); i <= n; i++ {
		t := step * float64(i)
		out = append(out, Round(lerp(ax, bx, t), lerp(ay, by, t), lerp(az, bz, t)))
	}
	return out
}

// Round snaps fractional cube coordinates to the nearest cell.
func Round(fx, fy, fz float64) Hex {
	x := math.Round(fx)
	y := math.Round(fy)
	z := math.Round(fz)

	dx := math.Abs(x - fx)
	dy := math.Abs(y - fy)
	dz := math.Abs(z - fz)

	switch {
	case dx > dy && dx > dz:
		x = -y - z
	case dy > dz:
		y = -x - z
	default:
		z = -x - y
	}
	return Hex{X: int32(x), Y: int32(y), Z: int32(z)}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
