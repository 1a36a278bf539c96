package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/blake2b"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Streaming StreamingConfig `toml:"streaming"`
	Camera    CameraConfig    `toml:"camera"`
	Database  DatabaseConfig  `toml:"database"`
	Snapshot  SnapshotConfig  `toml:"snapshot"`
	Observer  ObserverConfig  `toml:"observer"`
	Logging   LoggingConfig   `toml:"logging"`
}

type WorldConfig struct {
	Name       string `toml:"name"`
	Seed       string `toml:"seed"`       // hashed into the noise seed
	Resolution int32  `toml:"resolution"` // tiles per chunk edge
	Worldgen   string `toml:"worldgen"`   // YAML table; empty = built-in defaults
	Scripts    string `toml:"scripts"`    // Lua rule directory; empty = no hook
	StartTime  int64  // set at boot, not from config
}

// NoiseSeed derives the generator seed from the configured seed string.
// Equal strings give equal worlds.
func (w WorldConfig) NoiseSeed() int64 {
	sum := blake2b.Sum256([]byte(w.Seed))
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}

type StreamingConfig struct {
	TickRate           time.Duration `toml:"tick_rate"`
	Workers            int           `toml:"workers"`
	MaxInFlight        int           `toml:"max_in_flight"`
	MaxQueued          int           `toml:"max_queued"`
	MaxHiddenChunks    int           `toml:"max_hidden_chunks"`
	ChunkTTL           time.Duration `toml:"chunk_ttl"`
	LookAheadThreshold float64       `toml:"look_ahead_threshold"`
	LookAheadMax       float64       `toml:"look_ahead_max"`
	LookAheadStride    float64       `toml:"look_ahead_stride"` // in chunk widths
	RetainDiscovered   bool          `toml:"retain_discovered"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout"`
}

// CameraConfig drives the scripted fly-over in cmd/hexworld.
type CameraConfig struct {
	ViewWidth  float64 `toml:"view_width"`
	ViewHeight float64 `toml:"view_height"`
	Speed      float64 `toml:"speed"`      // world units per tick
	TurnEvery  int     `toml:"turn_every"` // ticks between heading changes
	StopAfter  int     `toml:"stop_after"` // ticks; 0 = run until signalled
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres", "sqlite" or "none"
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SaveEvery       int           `toml:"save_every"` // ticks; 0 = only on shutdown
}

type SnapshotConfig struct {
	Path       string `toml:"path"` // empty disables snapshots
	EveryTicks int    `toml:"every_ticks"`
	Restore    bool   `toml:"restore"`
}

type ObserverConfig struct {
	Enabled      bool          `toml:"enabled"`
	BindAddress  string        `toml:"bind_address"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	QueueSize    int           `toml:"queue_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	Locale string `toml:"locale"` // BCP 47 tag for console numbers
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.World.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.World.Resolution < 1:
		return fmt.Errorf("world.resolution must be positive, got %d", c.World.Resolution)
	case c.Streaming.TickRate <= 0:
		return fmt.Errorf("streaming.tick_rate must be positive, got %s", c.Streaming.TickRate)
	case c.Streaming.Workers < 1:
		return fmt.Errorf("streaming.workers must be positive, got %d", c.Streaming.Workers)
	case c.Streaming.MaxInFlight < 1:
		return fmt.Errorf("streaming.max_in_flight must be positive, got %d", c.Streaming.MaxInFlight)
	case c.Camera.ViewWidth <= 0 || c.Camera.ViewHeight <= 0:
		return fmt.Errorf("camera view must have a positive size")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite", "none":
	default:
		return fmt.Errorf("database.driver %q is not one of postgres, sqlite, none", c.Database.Driver)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			Name:       "hexworld",
			Seed:       "hexworld",
			Resolution: 6,
		},
		Streaming: StreamingConfig{
			TickRate:           50 * time.Millisecond,
			Workers:            4,
			MaxInFlight:        4,
			MaxQueued:          32,
			MaxHiddenChunks:    128,
			ChunkTTL:           10 * time.Second,
			LookAheadThreshold: 0.1,
			LookAheadMax:       0.3,
			LookAheadStride:    1.5,
			RetainDiscovered:   true,
			ShutdownTimeout:    10 * time.Second,
		},
		Camera: CameraConfig{
			ViewWidth:  60,
			ViewHeight: 40,
			Speed:      0.25,
			TurnEvery:  400,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "data/hexworld.db",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			SaveEvery:       6000, // 6000 × 50ms = 5 minutes
		},
		Snapshot: SnapshotConfig{
			Path:       "data/hexworld.snap",
			EveryTicks: 1200,
		},
		Observer: ObserverConfig{
			Enabled:      false,
			BindAddress:  "127.0.0.1:7070",
			WriteTimeout: 5 * time.Second,
			QueueSize:    256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Locale: "en",
		},
	}
}
