package persist

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/config"
	"github.com/hexworld/engine/internal/tile"
)

// ErrNoTable is returned by Load when nothing was saved for the seed.
var ErrNoTable = errors.New("no saved tile table")

// TileRepo saves and loads the discovered-tile table of one world, keyed by
// its noise seed. A save replaces the previous table for that seed.
type TileRepo interface {
	Save(ctx context.Context, t tile.Table) error
	Load(ctx context.Context, seed int64) (tile.Table, error)
	Close() error
}

// Open connects the repo selected by cfg.Driver and applies migrations.
// Driver "none" returns a nil repo and no error.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (TileRepo, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return NewPGTileRepo(db), nil
	case "sqlite":
		repo, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func recordFromRow(data []byte) (tile.Record, error) {
	if len(data) != tile.RecordSize {
		return tile.Record{}, fmt.Errorf("tile record has %d bytes, want %d", len(data), tile.RecordSize)
	}
	return tile.RecordFromBytes([tile.RecordSize]byte(data)), nil
}
