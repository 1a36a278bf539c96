package stream

import "github.com/hexworld/engine/internal/hex"

// View is the camera footprint projected onto the world plane. Corners go
// clockwise: top-left, top-right, bottom-right, bottom-left. A perspective
// camera yields a trapezoid; an orthographic one a rectangle.
type View struct {
	TL, TR, BR, BL hex.Vec2
}

// ViewFromAabb returns the rectangular view covering b.
func ViewFromAabb(b hex.Aabb) View {
	p := b.Points()
	return View{TL: p[0], TR: p[1], BR: p[2], BL: p[3]}
}

// ViewAround returns a w×h rectangle centered on c.
func ViewAround(c hex.Vec2, w, h float64) View {
	half := hex.Vec2{X: w / 2, Y: h / 2}
	return ViewFromAabb(hex.NewAabb(c.Sub(half), c.Add(half)))
}

func (v View) points() [4]hex.Vec2 { return [4]hex.Vec2{v.TL, v.TR, v.BR, v.BL} }

// Area is the absolute shoelace area of the quad.
func (v View) Area() float64 {
	p := v.points()
	s := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		s += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	if s < 0 {
		s = -s
	}
	return s / 2
}

// Empty reports a degenerate view that sees nothing.
func (v View) Empty() bool { return v.Area() == 0 }

func (v View) Aabb() hex.Aabb {
	var b hex.Aabb
	for _, p := range v.points() {
		b.Push(p)
	}
	return b
}

func (v View) Center() hex.Vec2 {
	return v.TL.Add(v.TR).Add(v.BR).Add(v.BL).Scale(0.25)
}

func (v View) Translate(d hex.Vec2) View {
	return View{TL: v.TL.Add(d), TR: v.TR.Add(d), BR: v.BR.Add(d), BL: v.BL.Add(d)}
}

// Test reports whether the quad overlaps b: box against box first, then a
// separating-axis check along each quad edge normal.
func (v View) Test(b hex.Aabb) bool {
	if v.Empty() || !v.Aabb().Intersects(b) {
		return false
	}
	quad := v.points()
	box := b.Points()
	for i := range quad {
		e := quad[(i+1)%4].Sub(quad[i])
		axis := hex.Vec2{X: -e.Y, Y: e.X}
		if axis.X == 0 && axis.Y == 0 {
			continue
		}
		qmin, qmax := project(quad[:], axis)
		bmin, bmax := project(box[:], axis)
		if qmax < bmin || bmax < qmin {
			return false
		}
	}
	return true
}

func project(pts []hex.Vec2, axis hex.Vec2) (lo, hi float64) {
	lo = pts[0].Dot(axis)
	hi = lo
	for _, p := range pts[1:] {
		d := p.Dot(axis)
		lo = min(lo, d)
		hi = max(hi, d)
	}
	return lo, hi
}
