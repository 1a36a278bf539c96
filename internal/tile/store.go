package tile

import (
	"github.com/hexworld/engine/internal/chunk"
	"github.com/hexworld/engine/internal/hex"
)

// DiscoverFunc is told about every tile the first time it is discovered.
type DiscoverFunc func(h hex.Hex, idx chunk.Index)

// Entry pairs a coordinate with its record for export.
type Entry struct {
	Hex    hex.Hex
	Record Record
}

// Table is the discovered-tile table in discovery order.
type Table struct {
	Seed       int64
	Resolution int32
	Entries    []Entry
}

// Store is the sparse discovery index: a dense, append-only record slice
// plus a map from coordinate to slot. It is owned by the main goroutine and
// has no locks; nothing may call it from a worker.
type Store struct {
	gen        *Generator
	resolution int32

	tiles  []Record
	coords []hex.Hex
	index  map[hex.Hex]int

	discovered map[chunk.Index]struct{}
	bounds     hex.Aabb

	onDiscover DiscoverFunc
}

func NewStore(gen *Generator, resolution int32) *Store {
	return &Store{
		gen:        gen,
		resolution: resolution,
		tiles:      make([]Record, 0, 4096),
		coords:     make([]hex.Hex, 0, 4096),
		index:      make(map[hex.Hex]int, 4096),
		discovered: make(map[chunk.Index]struct{}, 64),
	}
}

// OnDiscover sets the hook invoked for each newly discovered tile.
func (s *Store) OnDiscover(fn DiscoverFunc) { s.onDiscover = fn }

func (s *Store) Resolution() int32     { return s.resolution }
func (s *Store) Generator() *Generator { return s.gen }

// Discover returns the slot of h, generating and appending its record the
// first time h is seen.
func (s *Store) Discover(h hex.Hex) int {
	if i, ok := s.index[h]; ok {
		return i
	}
	return s.insert(h, s.gen.Calculate(h))
}

func (s *Store) insert(h hex.Hex, r Record) int {
	i := len(s.tiles)
	s.tiles = append(s.tiles, r)
	s.coords = append(s.coords, h)
	s.index[h] = i

	idx := chunk.IndexFromHex(h, s.resolution)
	if _, ok := s.discovered[idx]; !ok {
		s.discovered[idx] = struct{}{}
		s.bounds.Union(chunk.Bounds(idx, s.resolution))
	}
	if s.onDiscover != nil {
		s.onDiscover(h, idx)
	}
	return i
}

// TileIndex is Discover under the name callers use for index lookups.
func (s *Store) TileIndex(h hex.Hex) int { return s.Discover(h) }

// Get returns the stored record for h without discovering it.
func (s *Store) Get(h hex.Hex) (*Record, bool) {
	i, ok := s.index[h]
	if !ok {
		return nil, false
	}
	return &s.tiles[i], true
}

// TileData returns the stored record, or a freshly calculated one that is
// not stored.
func (s *Store) TileData(h hex.Hex) Record {
	if r, ok := s.Get(h); ok {
		return *r
	}
	return s.gen.Calculate(h)
}

// Calculate runs the generator for h, ignoring any stored state.
func (s *Store) Calculate(h hex.Hex) Record { return s.gen.Calculate(h) }

// At returns the record in slot i. Pointers are invalidated by the next Discover.
func (s *Store) At(i int) *Record { return &s.tiles[i] }

func (s *Store) Len() int { return len(s.tiles) }

// Each visits every discovered tile in discovery order.
func (s *Store) Each(fn func(i int, h hex.Hex, r *Record)) {
	for i := range s.tiles {
		fn(i, s.coords[i], &s.tiles[i])
	}
}

// Discovered reports whether any tile of the chunk has been discovered.
func (s *Store) Discovered(idx chunk.Index) bool {
	_, ok := s.discovered[idx]
	return ok
}

func (s *Store) DiscoveredChunks() int { return len(s.discovered) }

// DiscoveredBounds is the union of every discovered chunk's bounds.
func (s *Store) DiscoveredBounds() hex.Aabb { return s.bounds }

// WorldBounds is DiscoveredBounds grown by margin, used for the minimap.
func (s *Store) WorldBounds(margin float64) hex.Aabb { return s.bounds.Expand(margin) }

// Export copies the discovered table.
func (s *Store) Export() Table {
	t := Table{
		Seed:       s.gen.Seed(),
		Resolution: s.resolution,
		Entries:    make([]Entry, len(s.tiles)),
	}
	for i := range s.tiles {
		t.Entries[i] = Entry{Hex: s.coords[i], Record: s.tiles[i]}
	}
	return t
}

// Import loads a previously exported table. Known tiles are overwritten in
// place and unknown ones are appended without running the generator.
func (s *Store) Import(t Table) {
	for _, e := range t.Entries {
		if i, ok := s.index[e.Hex]; ok {
			s.tiles[i] = e.Record
			continue
		}
		s.insert(e.Hex, e.Record)
	}
}
