package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseWorldgenKeepsDefaults(t *testing.T) {
	w, err := ParseWorldgen([]byte("land_above: 0.7\nforest:\n  offset_x: 1\n  offset_y: 2\n  scale: 3\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if w.LandAbove != 0.7 {
		t.Fatalf("land_above = %v, want 0.7", w.LandAbove)
	}
	if w.Forest != (NoiseLayer{OffsetX: 1, OffsetY: 2, Scale: 3}) {
		t.Fatalf("forest layer = %+v", w.Forest)
	}
	def := DefaultWorldgen()
	if w.MountainAbove != def.MountainAbove || w.Height != def.Height {
		t.Fatalf("defaults not kept: %+v", w)
	}
	if len(w.LandResources) != len(def.LandResources) {
		t.Fatalf("land resources = %d, want %d", len(w.LandResources), len(def.LandResources))
	}
}

func TestParseWorldgenRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "lava_above: 0.3\n"},
		{"threshold out of range", "land_above: 1.5\n"},
		{"bad resource kind", "land_resources:\n  - kind: diamonds\n    above: 0.9\n"},
		{"short tiers", "abundance_tiers: [0.9, 0.8]\n"},
		{"zero scale", "height:\n  scale: 0\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseWorldgen([]byte(tc.doc))
			if !errors.Is(err, ErrInvalidTable) {
				t.Fatalf("err = %v, want ErrInvalidTable", err)
			}
		})
	}
}

func TestLoadWorldgenFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "worldgen.yaml")
	if err := os.WriteFile(p, []byte("planar_scale: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := LoadWorldgen(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if w.PlanarScale != 2 {
		t.Fatalf("planar_scale = %v", w.PlanarScale)
	}

	if _, err := LoadWorldgen(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
