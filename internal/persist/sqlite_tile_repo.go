package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/tile"
)

// SQLiteTileRepo stores tile tables in an embedded SQLite file. One
// connection serialises every write.
type SQLiteTileRepo struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteTileRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runSQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &SQLiteTileRepo{db: db}, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (r *SQLiteTileRepo) Save(ctx context.Context, t tile.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save tiles begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO worlds (seed, resolution, tiles, saved_at)
		 VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT (seed) DO UPDATE SET resolution = excluded.resolution, tiles = excluded.tiles, saved_at = excluded.saved_at`,
		t.Seed, t.Resolution, len(t.Entries),
	); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tiles WHERE seed = ?`, t.Seed); err != nil {
		return fmt.Errorf("clear tiles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tiles (seed, ord, x, y, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tile insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range t.Entries {
		b := e.Record.Bytes()
		if _, err := stmt.ExecContext(ctx, t.Seed, i, e.Hex.X, e.Hex.Y, b[:]); err != nil {
			return fmt.Errorf("insert tile %v: %w", e.Hex, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteTileRepo) Load(ctx context.Context, seed int64) (tile.Table, error) {
	t := tile.Table{Seed: seed}
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT resolution, tiles FROM worlds WHERE seed = ?`, seed,
	).Scan(&t.Resolution, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNoTable
	}
	if err != nil {
		return t, fmt.Errorf("load world: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT x, y, data FROM tiles WHERE seed = ? ORDER BY ord`, seed)
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

func (r *SQLiteTileRepo) Close() error { return r.db.Close() }
