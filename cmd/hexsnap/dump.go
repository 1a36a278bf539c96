package main

import (
	"sort"

	"github.com/hexworld/engine/internal/snapshot"
	"github.com/hexworld/engine/internal/tile"
)

// ---------------------------------------------------------------------------
// YAML output structs
// ---------------------------------------------------------------------------

type dumpYAML struct {
	World      string      `yaml:"world"`
	Seed       int64       `yaml:"seed"`
	Resolution int32       `yaml:"resolution"`
	Tick       uint64      `yaml:"tick"`
	SavedAt    string      `yaml:"saved_at"`
	Total      int         `yaml:"total"`
	Claimed    int         `yaml:"claimed"`
	Biomes     []countYAML `yaml:"biomes"`
	Resources  []countYAML `yaml:"resources"`
	Tiles      []tileYAML  `yaml:"tiles,omitempty"`
}

type countYAML struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

type tileYAML struct {
	X         int32  `yaml:"x"`
	Y         int32  `yaml:"y"`
	Biome     string `yaml:"biome"`
	Resource  string `yaml:"resource,omitempty"`
	Abundance uint8  `yaml:"abundance"`
	Faction   *uint8 `yaml:"faction,omitempty"`
}

// buildDump summarizes t. With withTiles every tile is listed, sorted by
// coordinate so repeated dumps diff cleanly.
func buildDump(h snapshot.Header, t tile.Table, withTiles bool) dumpYAML {
	d := dumpYAML{
		World:      h.World,
		Seed:       t.Seed,
		Resolution: t.Resolution,
		Tick:       h.Tick,
		Total:      len(t.Entries),
	}
	if !h.SavedAt.IsZero() {
		d.SavedAt = h.SavedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	biomes := map[string]int{}
	resources := map[string]int{}
	for _, e := range t.Entries {
		r := e.Record
		biomes[r.Biome().String()]++
		if r.HasResource() {
			resources[r.Resource().String()]++
		}
		if r.Claimed() {
			d.Claimed++
		}
		if !withTiles {
			continue
		}
		ty := tileYAML{
			X:         e.Hex.X,
			Y:         e.Hex.Y,
			Biome:     r.Biome().String(),
			Abundance: r.Abundance(),
		}
		if r.HasResource() {
			ty.Resource = r.Resource().String()
		}
		if r.Claimed() {
			f := r.Faction
			ty.Faction = &f
		}
		d.Tiles = append(d.Tiles, ty)
	}
	d.Biomes = sortedCounts(biomes)
	d.Resources = sortedCounts(resources)

	sort.Slice(d.Tiles, func(i, j int) bool {
		if d.Tiles[i].X != d.Tiles[j].X {
			return d.Tiles[i].X < d.Tiles[j].X
		}
		return d.Tiles[i].Y < d.Tiles[j].Y
	})
	return d
}

// sortedCounts orders by count descending, then name.
func sortedCounts(m map[string]int) []countYAML {
	out := make([]countYAML, 0, len(m))
	for name, n := range m {
		out = append(out, countYAML{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
