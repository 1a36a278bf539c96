package data

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable is returned when a worldgen table fails schema validation.
var ErrInvalidTable = errors.New("invalid worldgen table")

//go:embed worldgen.schema.json
var worldgenSchema string

// NoiseLayer is one simplex sample: (planar + offset) * scale.
type NoiseLayer struct {
	OffsetX float64 `yaml:"offset_x" json:"offset_x"`
	OffsetY float64 `yaml:"offset_y" json:"offset_y"`
	Scale   float64 `yaml:"scale" json:"scale"`
}

// ResourceTier assigns a resource kind when the resource sample exceeds Above.
type ResourceTier struct {
	Kind  string  `yaml:"kind" json:"kind"`
	Above float64 `yaml:"above" json:"above"`
}

// Worldgen holds every tunable that feeds tile generation. Tiers are checked
// in the order they appear.
type Worldgen struct {
	PlanarScale float64 `yaml:"planar_scale" json:"planar_scale"`

	Height    NoiseLayer `yaml:"height" json:"height"`
	Biome     NoiseLayer `yaml:"biome" json:"biome"`
	Forest    NoiseLayer `yaml:"forest" json:"forest"`
	Abundance NoiseLayer `yaml:"abundance" json:"abundance"`
	Resource  NoiseLayer `yaml:"resource" json:"resource"`

	LandAbove     float64 `yaml:"land_above" json:"land_above"`
	MountainAbove float64 `yaml:"mountain_above" json:"mountain_above"`
	ShallowAbove  float64 `yaml:"shallow_above" json:"shallow_above"`

	TundraAbove    float64 `yaml:"tundra_above" json:"tundra_above"`
	GrasslandAbove float64 `yaml:"grassland_above" json:"grassland_above"`
	ForestAbove    float64 `yaml:"forest_above" json:"forest_above"`

	// AbundanceTiers are the thresholds for tiers 4, 3 and 2; below the last is tier 1.
	AbundanceTiers [3]float64 `yaml:"abundance_tiers" json:"abundance_tiers"`

	// ResourceMinAbundance gates land resources on the abundance sample.
	ResourceMinAbundance float64        `yaml:"resource_min_abundance" json:"resource_min_abundance"`
	LandResources        []ResourceTier `yaml:"land_resources" json:"land_resources"`
	ShallowStoneAbove    float64        `yaml:"shallow_stone_above" json:"shallow_stone_above"`
	DeepStoneAbove       float64        `yaml:"deep_stone_above" json:"deep_stone_above"`
}

// DefaultWorldgen returns the built-in table used when no file is configured.
func DefaultWorldgen() *Worldgen {
	return &Worldgen{
		PlanarScale:    1.05,
		Height:         NoiseLayer{OffsetX: 32.16, OffsetY: 64.32, Scale: 0.0135},
		Biome:          NoiseLayer{OffsetX: 81.44, OffsetY: 93.58, Scale: 0.01},
		Forest:         NoiseLayer{OffsetX: 32.14, OffsetY: 29.28, Scale: 7.5},
		Abundance:      NoiseLayer{OffsetX: 41.44, OffsetY: 73.28, Scale: 2.0},
		Resource:       NoiseLayer{OffsetX: 11.44, OffsetY: 53.28, Scale: 8.0},
		LandAbove:      0.75,
		MountainAbove:  0.90,
		ShallowAbove:   0.57,
		TundraAbove:    0.8,
		GrasslandAbove: 0.4,
		ForestAbove:    0.6,
		AbundanceTiers: [3]float64{0.97, 0.86, 0.75},

		ResourceMinAbundance: 0.5,
		LandResources: []ResourceTier{
			{Kind: "uranium", Above: 0.985},
			{Kind: "gold", Above: 0.96},
			{Kind: "oil", Above: 0.93},
			{Kind: "ore", Above: 0.9},
			{Kind: "stone", Above: 0.85},
		},
		ShallowStoneAbove: 0.92,
		DeepStoneAbove:    0.865,
	}
}

// LoadWorldgen reads a YAML worldgen table, validates it against the embedded
// schema and returns it. Fields missing from the file keep their defaults.
func LoadWorldgen(path string) (*Worldgen, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worldgen table: %w", err)
	}
	return ParseWorldgen(raw)
}

// ParseWorldgen is LoadWorldgen over an in-memory document.
func ParseWorldgen(raw []byte) (*Worldgen, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse worldgen table: %w", err)
	}
	if err := validateWorldgen(doc); err != nil {
		return nil, err
	}

	w := DefaultWorldgen()
	if err := yaml.Unmarshal(raw, w); err != nil {
		return nil, fmt.Errorf("decode worldgen table: %w", err)
	}
	return w, nil
}

func validateWorldgen(doc any) error {
	schema, err := jsonschema.CompileString("worldgen.schema.json", worldgenSchema)
	if err != nil {
		return fmt.Errorf("compile worldgen schema: %w", err)
	}
	// yaml.v3 yields int/map[string]any; the validator wants plain JSON values.
	buf, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	var normalized any
	if err := json.Unmarshal(buf, &normalized); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return nil
}
