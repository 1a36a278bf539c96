// Package tile holds per-hex world content: the packed tile record, the
// deterministic generator that produces it, and the discovery store.
package tile

import "encoding/binary"

// Flags packs biome, resource, improvement and abundance into 16 bits.
//
//	bits 15-13 biome
//	bits 12-10 resource
//	bits  9-6  improvement
//	bits  5-4  abundance tier - 1
type Flags uint16

const (
	biomeShift       = 13
	resourceShift    = 10
	improvementShift = 6
	abundanceShift   = 4

	BiomeMask       Flags = 0b111 << biomeShift
	ResourceMask    Flags = 0b111 << resourceShift
	ImprovementMask Flags = 0b1111 << improvementShift
	AbundanceMask   Flags = 0b11 << abundanceShift
)

type Biome uint8

const (
	Grassland Biome = iota
	Forest
	Desert
	Tundra
	Mountain
	Shallow
	Ocean
)

var biomeNames = [...]string{"grassland", "forest", "desert", "tundra", "mountain", "shallow", "ocean"}

func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return "reserved"
}

func BiomeByName(name string) (Biome, bool) {
	for i, n := range biomeNames {
		if n == name {
			return Biome(i), true
		}
	}
	return Grassland, false
}

type Resource uint8

const (
	NoResource Resource = iota
	Wood
	Stone
	Ore
	Gold
	Oil
	Uranium
)

var resourceNames = [...]string{"none", "wood", "stone", "ore", "gold", "oil", "uranium"}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return "reserved"
}

// ResourceByName maps worldgen table names to resource kinds.
func ResourceByName(name string) (Resource, bool) {
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), true
		}
	}
	return NoResource, false
}

type Improvement uint8

const (
	NoImprovement Improvement = iota
	ResourceSite
	Barracks
	Factory
	ForwardBase
	Airbase
	Research
	Pillbox
	Artillery
	Seaport
	GuardTower
	Wall
)

// ImprovementFlags holds the defense level (2 bits) and six upgrade bits of a
// built improvement.
type ImprovementFlags uint8

const (
	DefenseMask  ImprovementFlags = 0b0000_0011
	UpgradesMask ImprovementFlags = 0b1111_1100
)

func (f ImprovementFlags) Defense() uint8 { return uint8(f & DefenseMask) }

func (f ImprovementFlags) HasUpgrade(n uint8) bool {
	return n < 6 && f&(1<<(n+2)) != 0
}

// NoFaction marks a tile nobody has claimed.
const NoFaction uint8 = 255

// Record is the content of one hex. It is a plain value: comparing two
// records with == compares every bit.
type Record struct {
	Flags   Flags
	Faction uint8
	Upgrade ImprovementFlags
	// Health is a unsigned 8-bit fraction, 255 is 1.0.
	Health uint8
}

func (r Record) Biome() Biome             { return Biome((r.Flags & BiomeMask) >> biomeShift) }
func (r Record) Resource() Resource       { return Resource((r.Flags & ResourceMask) >> resourceShift) }
func (r Record) Improvement() Improvement { return Improvement((r.Flags & ImprovementMask) >> improvementShift) }

// Abundance returns the tier in 1..4.
func (r Record) Abundance() uint8 { return uint8((r.Flags&AbundanceMask)>>abundanceShift) + 1 }

func (r Record) IsWater() bool     { b := r.Biome(); return b == Shallow || b == Ocean }
func (r Record) IsLand() bool      { return !r.IsWater() }
func (r Record) IsMountain() bool  { return r.Biome() == Mountain }
func (r Record) HasResource() bool { return r.Resource() != NoResource }
func (r Record) Claimed() bool     { return r.Faction != NoFaction }

// AbundanceFloat maps the tier onto 0.25..1.0.
func (r Record) AbundanceFloat() float64 { return float64(r.Abundance()) / 4 }

func (r Record) HealthFloat() float64 { return float64(r.Health) / 255 }

func (r *Record) SetBiome(b Biome) {
	r.Flags = r.Flags&^BiomeMask | Flags(b)<<biomeShift&BiomeMask
}

func (r *Record) SetResource(k Resource) {
	r.Flags = r.Flags&^ResourceMask | Flags(k)<<resourceShift&ResourceMask
}

func (r *Record) SetImprovement(i Improvement) {
	r.Flags = r.Flags&^ImprovementMask | Flags(i)<<improvementShift&ImprovementMask
}

// SetAbundance clamps tier into 1..4.
func (r *Record) SetAbundance(tier uint8) {
	tier = min(max(tier, 1), 4)
	r.Flags = r.Flags&^AbundanceMask | Flags(tier-1)<<abundanceShift
}

// SetHealth clamps v into 0..1.
func (r *Record) SetHealth(v float64) {
	v = min(max(v, 0), 1)
	r.Health = uint8(v*255 + 0.5)
}

// RecordSize is the length of Bytes.
const RecordSize = 5

// Bytes is the little-endian wire form used for persistence and equality checks.
func (r Record) Bytes() [RecordSize]byte {
	var b [RecordSize]byte
	binary.LittleEndian.PutUint16(b[0:2], uint16(r.Flags))
	b[2] = r.Faction
	b[3] = uint8(r.Upgrade)
	b[4] = r.Health
	return b
}

// RecordFromBytes is the inverse of Bytes.
func RecordFromBytes(b [RecordSize]byte) Record {
	return Record{
		Flags:   Flags(binary.LittleEndian.Uint16(b[0:2])),
		Faction: b[2],
		Upgrade: ImprovementFlags(b[3]),
		Health:  b[4],
	}
}
