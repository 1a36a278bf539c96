package system

import (
	"math"

	"github.com/hexworld/engine/internal/config"
	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/stream"
)

// Camera 提供每個 tick 的視點：中心點、視野四邊形、速度（世界單位 / tick）。
type Camera interface {
	Step() (center hex.Vec2, view stream.View, velocity hex.Vec2)
}

// FixedCamera 固定不動的視點。
type FixedCamera struct {
	Center hex.Vec2
	View   stream.View
}

func (c FixedCamera) Step() (hex.Vec2, stream.View, hex.Vec2) {
	return c.Center, c.View, hex.Vec2{}
}

// FlyCamera 以固定速度直線飛行，每 TurnEvery tick 轉向一次。
// 轉向角度由世界種子雜湊決定，同一種子每次飛行路線相同。
type FlyCamera struct {
	pos     hex.Vec2
	heading float64
	speed   float64
	w, h    float64

	seed      int64
	turnEvery int
	ticks     int
	turns     int32
}

func NewFlyCamera(cfg config.CameraConfig, seed int64) *FlyCamera {
	c := &FlyCamera{
		speed:     cfg.Speed,
		w:         cfg.ViewWidth,
		h:         cfg.ViewHeight,
		seed:      seed,
		turnEvery: cfg.TurnEvery,
	}
	c.turn()
	return c
}

func (c *FlyCamera) turn() {
	r := hex.Hash(c.seed, hex.Axial(c.turns, 0))
	c.heading = 2 * math.Pi * float64(r%3600) / 3600
	c.turns++
}

func (c *FlyCamera) Step() (hex.Vec2, stream.View, hex.Vec2) {
	c.ticks++
	if c.turnEvery > 0 && c.ticks%c.turnEvery == 0 {
		c.turn()
	}
	vel := hex.Vec2{X: math.Cos(c.heading), Y: math.Sin(c.heading)}.Scale(c.speed)
	c.pos = c.pos.Add(vel)
	return c.pos, stream.ViewAround(c.pos, c.w, c.h), vel
}

// Position 目前中心點。
func (c *FlyCamera) Position() hex.Vec2 { return c.pos }
