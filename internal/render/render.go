// Package render is the boundary between the streaming core and whatever
// draws chunks. The core only creates, toggles and destroys proxies; it never
// looks inside them.
package render

import (
	"github.com/hexworld/engine/internal/core/handle"
	"github.com/hexworld/engine/internal/hex"
)

// Handle names a renderer-side proxy. The zero Handle means none.
type Handle = handle.Handle

// Detail selects one of the two precomputed mesh levels.
type Detail int

const (
	DetailHigh Detail = iota
	DetailLow
	NumDetails
)

// Mesh is a triangle list on the world plane with a height per vertex.
type Mesh struct {
	Positions []float32 // x, y, height
	Indices   []uint32
}

func (m *Mesh) NumVertices() int  { return len(m.Positions) / 3 }
func (m *Mesh) NumTriangles() int { return len(m.Indices) / 3 }

// Geometry is the finished output of a chunk build.
type Geometry struct {
	Levels [NumDetails]Mesh
}

// Empty reports whether no level has any vertex.
func (g *Geometry) Empty() bool {
	if g == nil {
		return true
	}
	for i := range g.Levels {
		if g.Levels[i].NumVertices() > 0 {
			return false
		}
	}
	return true
}

type DecorationKind uint8

const (
	Tree DecorationKind = iota
	ResourceMarker
)

// Decoration is a per-tile prop placed on top of the chunk mesh.
type Decoration struct {
	Kind     DecorationKind
	Tile     hex.Hex
	Position hex.Vec2
	Scale    float32
}

// ProxyFactory creates and destroys renderer-visible representations. All
// calls happen on the main goroutine.
type ProxyFactory interface {
	CreateMeshProxy(g *Geometry, at hex.Vec2) Handle
	CreateDecorationProxy(d []Decoration) Handle
	SetEnabled(h Handle, enabled bool)
	Destroy(h Handle)
}
