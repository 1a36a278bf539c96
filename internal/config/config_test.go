package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexworld.toml")
	raw := `
[world]
seed = "archipelago"
resolution = 8

[streaming]
tick_rate = "100ms"
chunk_ttl = "30s"
max_hidden_chunks = 64
retain_discovered = false

[database]
driver = "none"
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.World.Resolution != 8 || cfg.World.Seed != "archipelago" {
		t.Fatalf("world = %+v", cfg.World)
	}
	if cfg.Streaming.TickRate != 100*time.Millisecond || cfg.Streaming.ChunkTTL != 30*time.Second {
		t.Fatalf("durations = %s, %s", cfg.Streaming.TickRate, cfg.Streaming.ChunkTTL)
	}
	if cfg.Streaming.MaxHiddenChunks != 64 || cfg.Streaming.RetainDiscovered {
		t.Fatalf("streaming = %+v", cfg.Streaming)
	}
	// untouched keys keep their defaults
	if cfg.Streaming.Workers != 4 || cfg.Camera.ViewWidth != 60 || cfg.Logging.Level != "info" {
		t.Fatalf("defaults lost: %+v %+v", cfg.Streaming, cfg.Camera)
	}
	if cfg.World.StartTime == 0 {
		t.Fatalf("start time not stamped")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"resolution": "[world]\nresolution = 0\n",
		"workers":    "[streaming]\nworkers = 0\n",
		"driver":     "[database]\ndriver = \"mysql\"\n",
		"view":       "[camera]\nview_width = -1\n",
		"syntax":     "[world\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: accepted %q", name, raw)
		}
	}
}

func TestNoiseSeed(t *testing.T) {
	a := WorldConfig{Seed: "alpha"}
	if a.NoiseSeed() != a.NoiseSeed() {
		t.Fatalf("seed derivation not stable")
	}
	if a.NoiseSeed() == (WorldConfig{Seed: "beta"}).NoiseSeed() {
		t.Fatalf("different seeds collide")
	}
}
