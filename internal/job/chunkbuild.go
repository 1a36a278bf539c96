package job

import (
	"math"
	"time"

	"github.com/hexworld/engine/internal/chunk"
	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/render"
	"github.com/hexworld/engine/internal/tile"
)

// Tile surface heights per biome class.
const (
	heightOcean    = -0.5
	heightShallow  = -0.2
	heightLand     = 0.1
	heightMountain = 1.0
	peakMountain   = 2.0
)

var corners [6]hex.Vec2

func init() {
	// pointy-top: corner k sits at 60k-30 degrees, unit radius
	for k := range corners {
		a := (60*float64(k) - 30) * math.Pi / 180
		corners[k] = hex.Vec2{X: math.Cos(a), Y: math.Sin(a)}
	}
}

// ChunkBuild turns a chunk's tiles into geometry. Prepare copies the chunk
// and its one-tile border out of the tile store, so Execute reads nothing
// but job-local data.
type ChunkBuild struct {
	Index chunk.Index
	Gen   uint64

	store *tile.Store
	reg   *chunk.Registry
	res   int32
	seed  int64

	anchor   hex.Vec2
	tiles    map[hex.Hex]tile.Record
	interior []hex.Hex
	result   chunk.Result
}

func NewChunkBuild(store *tile.Store, reg *chunk.Registry, idx chunk.Index, gen uint64) *ChunkBuild {
	return &ChunkBuild{
		Index: idx,
		Gen:   gen,
		store: store,
		reg:   reg,
		res:   reg.Resolution(),
		seed:  store.Generator().Seed(),
	}
}

// Prepare discovers the chunk's tiles plus its border. It aborts when the
// chunk is no longer registered.
func (c *ChunkBuild) Prepare() bool {
	if _, ok := c.reg.Get(c.Index); !ok {
		return false
	}
	border := c.Index.BorderTiles(c.res)
	c.tiles = make(map[hex.Hex]tile.Record, len(border))
	for _, h := range border {
		c.tiles[h] = *c.store.At(c.store.Discover(h))
	}
	c.interior = c.Index.Tiles(c.res)
	c.anchor = c.Index.Anchor(c.res)
	return true
}

// Execute synthesizes both detail levels in the shared scratch buffer and
// places decorations. It fails on empty geometry.
func (c *ChunkBuild) Execute(s *Scratch) bool {
	start := time.Now()
	g := &render.Geometry{}

	s.With(func(b *Buffer) {
		for _, h := range c.interior {
			c.emitHigh(b, h)
		}
		g.Levels[render.DetailHigh] = copyMesh(b)

		b.Reset()
		for _, h := range c.interior {
			c.emitLow(b, h)
		}
		g.Levels[render.DetailLow] = copyMesh(b)
	})

	if g.Empty() {
		return false
	}

	for _, h := range c.interior {
		rec := c.tiles[h]
		if rec.IsWater() {
			c.result.HasWater = true
		}
		c.result.Decorations = c.decorate(c.result.Decorations, h, rec)
	}
	c.result.Mesh = g
	c.result.BuildMs = float64(time.Since(start).Microseconds()) / 1000
	return true
}

// Finalize hands the result to the registry, which drops it if the chunk
// went away in the meantime.
func (c *ChunkBuild) Finalize(ok bool) {
	res := c.result
	res.OK = ok
	c.reg.End(c.Index, c.Gen, res)
}

func surface(r tile.Record) float32 {
	switch r.Biome() {
	case tile.Ocean:
		return heightOcean
	case tile.Shallow:
		return heightShallow
	case tile.Mountain:
		return heightMountain
	default:
		return heightLand
	}
}

func (c *ChunkBuild) local(p hex.Vec2) (float32, float32) {
	d := p.Sub(c.anchor)
	return float32(d.X), float32(d.Y)
}

// emitHigh writes a center fan, a raised peak for mountains and a skirt down
// to every lower neighbour so the surface has no cracks.
func (c *ChunkBuild) emitHigh(b *Buffer, h hex.Hex) {
	rec := c.tiles[h]
	top := surface(rec)
	center := h.Planar()

	cx, cy := c.local(center)
	peak := top
	if rec.IsMountain() {
		peak = peakMountain
	}
	mid := b.Vertex(cx, cy, peak)

	var ring [6]uint32
	for k, off := range corners {
		x, y := c.local(center.Add(off))
		ring[k] = b.Vertex(x, y, top)
	}
	for k := range ring {
		b.Triangle(mid, ring[k], ring[(k+1)%6])
	}

	for k := range corners {
		next := (k + 1) % 6
		edgeMid := corners[k].Add(corners[next]).Scale(0.5)
		n := hex.FromPlanar(center.Add(edgeMid.Scale(2)))
		nrec, ok := c.tiles[n]
		if !ok {
			continue
		}
		low := surface(nrec)
		if low >= top {
			continue
		}
		ax, ay := c.local(center.Add(corners[k]))
		bx, by := c.local(center.Add(corners[next]))
		a0 := b.Vertex(ax, ay, low)
		b0 := b.Vertex(bx, by, low)
		b.Triangle(ring[k], a0, b0)
		b.Triangle(ring[k], b0, ring[next])
	}
}

// emitLow writes a flat hexagon as four triangles over its corners.
func (c *ChunkBuild) emitLow(b *Buffer, h hex.Hex) {
	top := surface(c.tiles[h])
	center := h.Planar()
	var ring [6]uint32
	for k, off := range corners {
		x, y := c.local(center.Add(off))
		ring[k] = b.Vertex(x, y, top)
	}
	b.Triangle(ring[0], ring[1], ring[2])
	b.Triangle(ring[0], ring[2], ring[3])
	b.Triangle(ring[0], ring[3], ring[5])
	b.Triangle(ring[3], ring[4], ring[5])
}

// decorate places trees on forest tiles and a marker on resource tiles.
// Offsets come from a seeded hash so rebuilding a chunk puts every tree
// back in the same spot.
func (c *ChunkBuild) decorate(out []render.Decoration, h hex.Hex, rec tile.Record) []render.Decoration {
	center := h.Planar()
	if rec.Biome() == tile.Forest {
		n := int(rec.Abundance()) + 1
		for i := 0; i < n; i++ {
			v := hex.Hash(c.seed+int64(i), h)
			angle := float64(v&0xffff) / 0xffff * 2 * math.Pi
			dist := 0.15 + float64((v>>16)&0xffff)/0xffff*0.5
			scale := 0.8 + float32((v>>32)&0xff)/0xff*0.4
			out = append(out, render.Decoration{
				Kind:     render.Tree,
				Tile:     h,
				Position: center.Add(hex.Vec2{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist}),
				Scale:    scale,
			})
		}
	}
	if rec.HasResource() && rec.Resource() != tile.Wood {
		out = append(out, render.Decoration{
			Kind:     render.ResourceMarker,
			Tile:     h,
			Position: center,
			Scale:    float32(rec.AbundanceFloat()),
		})
	}
	return out
}

func copyMesh(b *Buffer) render.Mesh {
	m := render.Mesh{
		Positions: make([]float32, len(b.Positions)),
		Indices:   make([]uint32, len(b.Indices)),
	}
	copy(m.Positions, b.Positions)
	copy(m.Indices, b.Indices)
	return m
}
