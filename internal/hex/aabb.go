package hex

import "math"

// Aabb is an axis-aligned box on the world plane. The zero value is empty.
type Aabb struct {
	Min   Vec2
	Max   Vec2
	valid bool
}

// NewAabb returns the box spanning both corners, in any order.
func NewAabb(a, b Vec2) Aabb {
	var box Aabb
	box.Push(a)
	box.Push(b)
	return box
}

// Empty reports whether nothing has been pushed into the box.
func (b Aabb) Empty() bool { return !b.valid }

// Push grows the box to contain p.
func (b *Aabb) Push(p Vec2) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
}

// Union grows the box to contain o.
func (b *Aabb) Union(o Aabb) {
	if !o.valid {
		return
	}
	b.Push(o.Min)
	b.Push(o.Max)
}

// Expand returns a copy grown by m on every side.
func (b Aabb) Expand(m float64) Aabb {
	if !b.valid {
		return b
	}
	return Aabb{
		Min:   Vec2{X: b.Min.X - m, Y: b.Min.Y - m},
		Max:   Vec2{X: b.Max.X + m, Y: b.Max.Y + m},
		valid: true,
	}
}

// Translate returns a copy moved by d.
func (b Aabb) Translate(d Vec2) Aabb {
	if !b.valid {
		return b
	}
	return Aabb{Min: b.Min.Add(d), Max: b.Max.Add(d), valid: true}
}

// Intersects reports whether the boxes overlap. Touching edges count.
func (b Aabb) Intersects(o Aabb) bool {
	if !b.valid || !o.valid {
		return false
	}
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

// Contains reports whether o lies fully inside b.
func (b Aabb) Contains(o Aabb) bool {
	if !b.valid || !o.valid {
		return false
	}
	return o.Min.X >= b.Min.X && o.Max.X <= b.Max.X &&
		o.Min.Y >= b.Min.Y && o.Max.Y <= b.Max.Y
}

// ContainsPoint reports whether p lies inside b.
func (b Aabb) ContainsPoint(p Vec2) bool {
	if !b.valid {
		return false
	}
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b Aabb) Center() Vec2 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b Aabb) Size() Vec2 {
	return b.Max.Sub(b.Min)
}

// Points returns the four corners: top-left, top-right, bottom-right, bottom-left.
func (b Aabb) Points() [4]Vec2 {
	return [4]Vec2{
		b.Min,
		{X: b.Max.X, Y: b.Min.Y},
		b.Max,
		{X: b.Min.X, Y: b.Max.Y},
	}
}
