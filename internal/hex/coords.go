package hex

import "math"

var sqrt3 = math.Sqrt(3)

// Offset is an odd-r offset coordinate (odd rows shoved right).
type Offset struct {
	Col int32
	Row int32
}

// Vec2 is a position on the world plane.
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2    { return Vec2{X: v.X * k, Y: v.Y * k} }
func (v Vec2) Dot(o Vec2) float64      { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Length() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Distance(o Vec2) float64 { return v.Sub(o).Length() }

// Normalize returns the unit vector, or zero for a zero-length input.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Offset converts to odd-r offset coordinates.
func (h Hex) Offset() Offset {
	return Offset{
		Col: h.X + (h.Y-(h.Y&1))/2,
		Row: h.Y,
	}
}

// FromOffset is the exact inverse of Hex.Offset.
func FromOffset(o Offset) Hex {
	x := o.Col - (o.Row-(o.Row&1))/2
	y := o.Row
	return Hex{X: x, Y: y, Z: -x - y}
}

// Planar returns the center of the cell on the world plane (unit cell radius).
func (h Hex) Planar() Vec2 {
	return Vec2{
		X: sqrt3*float64(h.X) + sqrt3/2*float64(h.Y),
		Y: 1.5 * float64(h.Y),
	}
}

// FromPlanar returns the cell containing the given world position.
func FromPlanar(p Vec2) Hex {
	fx := sqrt3/3*p.X - p.Y/3
	fy := 2.0 / 3.0 * p.Y
	return Round(fx, fy, -fx-fy)
}

// FloorDiv divides rounding toward negative infinity. b must be positive.
func FloorDiv(a, b int32) int32 {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// Mod is the non-negative remainder of a/b. b must be positive.
func Mod(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash is a seeded SplitMix hash of a cell, stable across runs and platforms.
func Hash(seed int64, h Hex) uint64 {
	ux := uint64(uint32(h.X))
	uy := uint64(uint32(h.Y))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
