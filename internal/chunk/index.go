package chunk

import (
	"fmt"

	"github.com/hexworld/engine/internal/hex"
)

// Index identifies a square group of Resolution×Resolution tiles in offset space.
type Index struct {
	X int32
	Y int32
}

func (i Index) String() string {
	return fmt.Sprintf("[%d,%d]", i.X, i.Y)
}

// IndexFromOffset floor-divides an offset coordinate by the chunk resolution.
func IndexFromOffset(o hex.Offset, res int32) Index {
	return Index{X: hex.FloorDiv(o.Col, res), Y: hex.FloorDiv(o.Row, res)}
}

// IndexFromHex returns the chunk containing h.
func IndexFromHex(h hex.Hex, res int32) Index {
	return IndexFromOffset(h.Offset(), res)
}

// IndexFromPlanar returns the chunk containing the world position p.
func IndexFromPlanar(p hex.Vec2, res int32) Index {
	return IndexFromHex(hex.FromPlanar(p), res)
}

// Origin is the offset coordinate of the chunk's first tile.
func (i Index) Origin(res int32) hex.Offset {
	return hex.Offset{Col: i.X * res, Row: i.Y * res}
}

// Anchor is the planar center of the chunk's first tile. Chunk meshes are
// built relative to it.
func (i Index) Anchor(res int32) hex.Vec2 {
	return hex.FromOffset(i.Origin(res)).Planar()
}

// Tiles returns every tile of the chunk in row-major offset order.
func (i Index) Tiles(res int32) []hex.Hex {
	o := i.Origin(res)
	out := make([]hex.Hex, 0, res*res)
	for y := int32(0); y < res; y++ {
		for x := int32(0); x < res; x++ {
			out = append(out, hex.FromOffset(hex.Offset{Col: o.Col + x, Row: o.Row + y}))
		}
	}
	return out
}

// BorderTiles returns the chunk's tiles plus a one-tile ring in offset space,
// (res+2)² cells in total. Mesh building needs these for seamless edges.
func (i Index) BorderTiles(res int32) []hex.Hex {
	o := i.Origin(res)
	n := res + 2
	out := make([]hex.Hex, 0, n*n)
	for y := int32(-1); y <= res; y++ {
		for x := int32(-1); x <= res; x++ {
			out = append(out, hex.FromOffset(hex.Offset{Col: o.Col + x, Row: o.Row + y}))
		}
	}
	return out
}

// Size is the planar extent of one chunk.
func Size(res int32) hex.Vec2 {
	return hex.FromOffset(hex.Offset{Col: res, Row: res}).Planar()
}

// Bounds is the planar box covering every tile of the chunk, padded so that
// tile edges and tall geometry on the border are included.
func Bounds(i Index, res int32) hex.Aabb {
	lo := i.Anchor(res)
	size := Size(res)
	return hex.NewAabb(
		hex.Vec2{X: lo.X - 2, Y: lo.Y - 2},
		hex.Vec2{X: lo.X + size.X + 4, Y: lo.Y + size.Y + 4},
	)
}

// Center is the planar midpoint of the chunk.
func Center(i Index, res int32) hex.Vec2 {
	return i.Anchor(res).Add(Size(res).Scale(0.5))
}
