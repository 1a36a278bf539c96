package tile

import (
	"fmt"

	"github.com/ojrac/opensimplex-go"

	"github.com/hexworld/engine/internal/data"
	"github.com/hexworld/engine/internal/hex"
)

// RuleHook may rewrite a freshly generated record. It must be a pure function
// of its inputs or world generation stops being reproducible.
type RuleHook interface {
	Apply(h hex.Hex, r Record) Record
}

type landResource struct {
	kind  Resource
	above float64
}

// Generator computes tile records from coordinates. It has no mutable state
// after construction; the simplex tables are read-only.
type Generator struct {
	noise opensimplex.Noise
	table data.Worldgen
	land  []landResource
	hook  RuleHook
	seed  int64
}

// NewGenerator builds a generator for the given seed. A nil table uses the
// built-in defaults.
func NewGenerator(seed int64, table *data.Worldgen) (*Generator, error) {
	if table == nil {
		table = data.DefaultWorldgen()
	}
	g := &Generator{
		noise: opensimplex.NewNormalized(seed),
		table: *table,
		seed:  seed,
	}
	for _, t := range table.LandResources {
		kind, ok := ResourceByName(t.Kind)
		if !ok {
			return nil, fmt.Errorf("worldgen: unknown resource kind %q", t.Kind)
		}
		g.land = append(g.land, landResource{kind: kind, above: t.Above})
	}
	return g, nil
}

// SetHook installs a rule hook. Call before any tile is generated.
func (g *Generator) SetHook(h RuleHook) { g.hook = h }

func (g *Generator) Seed() int64 { return g.seed }

func (g *Generator) sample(layer data.NoiseLayer, p hex.Vec2) float64 {
	return g.noise.Eval2((p.X+layer.OffsetX)*layer.Scale, (p.Y+layer.OffsetY)*layer.Scale)
}

// Calculate returns the record for h. Equal inputs always give equal records.
func (g *Generator) Calculate(h hex.Hex) Record {
	t := &g.table
	p := h.Planar().Scale(t.PlanarScale)
	r := Record{Faction: NoFaction, Health: 255}

	height := g.sample(t.Height, p)
	switch {
	case height > t.LandAbove:
		r.SetBiome(g.landBiome(p))
		if height > t.MountainAbove {
			r.SetBiome(Mountain)
		} else if r.Biome() != Desert && g.sample(t.Forest, p) > t.ForestAbove {
			r.SetBiome(Forest)
			r.SetResource(Wood)
		}
	case height > t.ShallowAbove:
		r.SetBiome(Shallow)
	default:
		r.SetBiome(Ocean)
	}

	abundance := g.sample(t.Abundance, p)
	switch {
	case abundance > t.AbundanceTiers[0]:
		r.SetAbundance(4)
	case abundance > t.AbundanceTiers[1]:
		r.SetAbundance(3)
	case abundance > t.AbundanceTiers[2]:
		r.SetAbundance(2)
	default:
		r.SetAbundance(1)
	}

	if !r.HasResource() {
		g.placeResource(&r, p, abundance)
	}

	if g.hook != nil {
		r = g.hook.Apply(h, r)
	}
	return r
}

func (g *Generator) landBiome(p hex.Vec2) Biome {
	c := g.sample(g.table.Biome, p)
	switch {
	case c > g.table.TundraAbove:
		return Tundra
	case c > g.table.GrasslandAbove:
		return Grassland
	default:
		return Desert
	}
}

func (g *Generator) placeResource(r *Record, p hex.Vec2, abundance float64) {
	res := g.sample(g.table.Resource, p)
	switch r.Biome() {
	case Ocean:
		if res > g.table.DeepStoneAbove {
			r.SetResource(Stone)
		}
	case Shallow:
		if res > g.table.ShallowStoneAbove {
			r.SetResource(Stone)
		}
	default:
		if abundance <= g.table.ResourceMinAbundance {
			return
		}
		for _, lr := range g.land {
			if res > lr.above {
				r.SetResource(lr.kind)
				return
			}
		}
	}
}
