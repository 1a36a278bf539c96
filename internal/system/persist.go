package system

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/config"
	coresys "github.com/hexworld/engine/internal/core/system"
	"github.com/hexworld/engine/internal/persist"
	"github.com/hexworld/engine/internal/snapshot"
	"github.com/hexworld/engine/internal/stream"
)

// PersistSystem periodically saves the discovered-tile table to the database
// and to a snapshot file. A save is skipped when no tile was discovered since
// the previous one. Phase 3 (Persist).
type PersistSystem struct {
	grid  *stream.Grid
	repo  persist.TileRepo // nil when the database is disabled
	world string
	snap  config.SnapshotConfig
	log   *zap.Logger

	saveEvery int // ticks between database saves, 0 disables
	tickCount int
	ticks     uint64

	savedTiles int
	snapTiles  int
}

func NewPersistSystem(grid *stream.Grid, repo persist.TileRepo, world string, saveEveryTicks int, snap config.SnapshotConfig, log *zap.Logger) *PersistSystem {
	return &PersistSystem{
		grid:       grid,
		repo:       repo,
		world:      world,
		snap:       snap,
		log:        log,
		saveEvery:  saveEveryTicks,
		savedTiles: -1,
		snapTiles:  -1,
	}
}

func (s *PersistSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistSystem) Update(_ time.Duration) {
	s.ticks++
	s.tickCount++
	if s.saveEvery > 0 && s.tickCount%s.saveEvery == 0 {
		s.saveRepo(true)
	}
	if s.snap.Path != "" && s.snap.EveryTicks > 0 && s.tickCount%s.snap.EveryTicks == 0 {
		s.writeSnapshot(true)
	}
}

// SaveAll writes the table to every configured target regardless of whether
// it changed. Called on graceful shutdown.
func (s *PersistSystem) SaveAll() error {
	return errors.Join(s.saveRepo(false), s.writeSnapshot(false))
}

func (s *PersistSystem) saveRepo(dirtyOnly bool) error {
	if s.repo == nil {
		return nil
	}
	n := s.grid.Store().Len()
	if dirtyOnly && n == s.savedTiles {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.repo.Save(ctx, s.grid.Store().Export()); err != nil {
		s.log.Error("地圖存檔失敗", zap.Error(err))
		return err
	}
	s.savedTiles = n
	s.log.Info("自動存檔完成", zap.Int("地塊數", n), zap.Duration("耗時", time.Since(start)))
	return nil
}

func (s *PersistSystem) writeSnapshot(dirtyOnly bool) error {
	if s.snap.Path == "" {
		return nil
	}
	n := s.grid.Store().Len()
	if dirtyOnly && n == s.snapTiles {
		return nil
	}
	t := s.grid.Store().Export()
	h := snapshot.Header{
		World:      s.world,
		Seed:       t.Seed,
		Resolution: t.Resolution,
		Tick:       s.ticks,
		SavedAt:    s.grid.Clock().Now(),
	}
	if err := snapshot.Write(s.snap.Path, h, t); err != nil {
		s.log.Error("快照寫入失敗", zap.String("path", s.snap.Path), zap.Error(err))
		return err
	}
	s.snapTiles = n
	s.log.Debug("快照已寫入", zap.String("path", s.snap.Path), zap.Int("地塊數", n))
	return nil
}

// Restore loads a previously saved table into the grid's store. The snapshot
// file wins over the database when both exist. A table saved under another
// seed is ignored. Returns the number of tiles imported.
func (s *PersistSystem) Restore(ctx context.Context) (int, error) {
	seed := s.grid.Store().Generator().Seed()

	if s.snap.Path != "" && s.snap.Restore {
		h, t, err := snapshot.Read(s.snap.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return 0, err
		case h.Seed != seed:
			s.log.Warn("快照種子不符，略過", zap.Int64("快照", h.Seed), zap.Int64("世界", seed))
		default:
			s.grid.Store().Import(t)
			s.mark()
			s.log.Info("從快照還原地圖", zap.String("path", s.snap.Path), zap.Int("地塊數", len(t.Entries)))
			return len(t.Entries), nil
		}
	}

	if s.repo == nil {
		return 0, nil
	}
	t, err := s.repo.Load(ctx, seed)
	if errors.Is(err, persist.ErrNoTable) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	s.grid.Store().Import(t)
	s.mark()
	s.log.Info("從資料庫還原地圖", zap.Int("地塊數", len(t.Entries)))
	return len(t.Entries), nil
}

// mark records the current table as already saved everywhere.
func (s *PersistSystem) mark() {
	n := s.grid.Store().Len()
	s.savedTiles = n
	s.snapTiles = n
}
