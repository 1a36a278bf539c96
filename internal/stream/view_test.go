package stream

import (
	"testing"
	"time"

	"github.com/hexworld/engine/internal/hex"
)

func TestViewTest(t *testing.T) {
	v := ViewAround(hex.Vec2{}, 10, 10)
	if v.Area() != 100 {
		t.Fatalf("area = %v", v.Area())
	}
	if !v.Test(hex.NewAabb(hex.Vec2{X: 4, Y: 4}, hex.Vec2{X: 6, Y: 6})) {
		t.Fatalf("overlapping box rejected")
	}
	if v.Test(hex.NewAabb(hex.Vec2{X: 6, Y: 6}, hex.Vec2{X: 8, Y: 8})) {
		t.Fatalf("disjoint box accepted")
	}

	// diamond: the box sits in the bounding box of the quad but outside the quad
	diamond := View{
		TL: hex.Vec2{X: 0, Y: -10},
		TR: hex.Vec2{X: 10, Y: 0},
		BR: hex.Vec2{X: 0, Y: 10},
		BL: hex.Vec2{X: -10, Y: 0},
	}
	corner := hex.NewAabb(hex.Vec2{X: 7, Y: 7}, hex.Vec2{X: 9, Y: 9})
	if !diamond.Aabb().Intersects(corner) {
		t.Fatalf("precondition: box should overlap the diamond's bounding box")
	}
	if diamond.Test(corner) {
		t.Fatalf("separating axis not applied")
	}
	if !diamond.Test(hex.NewAabb(hex.Vec2{X: 1, Y: 1}, hex.Vec2{X: 2, Y: 2})) {
		t.Fatalf("box inside diamond rejected")
	}

	if (View{}).Test(hex.NewAabb(hex.Vec2{X: -1, Y: -1}, hex.Vec2{X: 1, Y: 1})) {
		t.Fatalf("empty view sees something")
	}

	moved := v.Translate(hex.Vec2{X: 100})
	if moved.Center() != (hex.Vec2{X: 100}) {
		t.Fatalf("translated center = %v", moved.Center())
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	c.Advance(3 * time.Second)
	if got := c.Now().Sub(start); got != 3*time.Second {
		t.Fatalf("advanced %v", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("set did not rewind")
	}
}
