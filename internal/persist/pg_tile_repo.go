package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/tile"
)

type PGTileRepo struct {
	db *DB
}

func NewPGTileRepo(db *DB) *PGTileRepo {
	return &PGTileRepo{db: db}
}

// Save replaces the table for t.Seed in a single transaction. Rows go in
// through COPY.
func (r *PGTileRepo) Save(ctx context.Context, t tile.Table) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save tiles begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO worlds (seed, resolution, tiles, saved_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (seed) DO UPDATE SET resolution = EXCLUDED.resolution, tiles = EXCLUDED.tiles, saved_at = now()`,
		t.Seed, t.Resolution, len(t.Entries),
	); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tiles WHERE seed = $1`, t.Seed); err != nil {
		return fmt.Errorf("clear tiles: %w", err)
	}

	rows := make([][]any, len(t.Entries))
	for i, e := range t.Entries {
		b := e.Record.Bytes()
		rows[i] = []any{t.Seed, int32(i), e.Hex.X, e.Hex.Y, b[:]}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"tiles"},
		[]string{"seed", "ord", "x", "y", "data"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy tiles: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PGTileRepo) Load(ctx context.Context, seed int64) (tile.Table, error) {
	t := tile.Table{Seed: seed}
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT resolution, tiles FROM worlds WHERE seed = $1`, seed,
	).Scan(&t.Resolution, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrNoTable
	}
	if err != nil {
		return t, fmt.Errorf("load world: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT x, y, data FROM tiles WHERE seed = $1 ORDER BY ord`, seed,
	)
	if err != nil {
		return t, fmt.Errorf("load tiles: %w", err)
	}
	defer rows.Close()

	t.Entries = make([]tile.Entry, 0, count)
	for rows.Next() {
		var x, y int32
		var data []byte
		if err := rows.Scan(&x, &y, &data); err != nil {
			return t, fmt.Errorf("scan tile: %w", err)
		}
		rec, err := recordFromRow(data)
		if err != nil {
			return t, err
		}
		t.Entries = append(t.Entries, tile.Entry{Hex: hex.Axial(x, y), Record: rec})
	}
	return t, rows.Err()
}

func (r *PGTileRepo) Close() error {
	r.db.Close()
	return nil
}
