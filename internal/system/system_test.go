package system

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/hexworld/engine/internal/config"
	"github.com/hexworld/engine/internal/core/event"
	coresys "github.com/hexworld/engine/internal/core/system"
	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/persist"
	"github.com/hexworld/engine/internal/render"
	"github.com/hexworld/engine/internal/snapshot"
	"github.com/hexworld/engine/internal/stream"
	"github.com/hexworld/engine/internal/tile"
)

func newGrid(t *testing.T, seed int64) *stream.Grid {
	t.Helper()
	gen, err := tile.NewGenerator(seed, nil)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	clock := stream.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	g := stream.New(context.Background(), zaptest.NewLogger(t), tile.NewStore(gen, 6),
		render.NewMemoryFactory(), event.NewBus(), clock, stream.DefaultOptions())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = g.Shutdown(ctx)
	})
	return g
}

type statsSink struct {
	got []any
}

func (s *statsSink) PublishStats(v any) { s.got = append(s.got, v) }

func TestFlyCameraIsDeterministic(t *testing.T) {
	cfg := config.CameraConfig{ViewWidth: 30, ViewHeight: 20, Speed: 0.5, TurnEvery: 10}
	a := NewFlyCamera(cfg, 77)
	b := NewFlyCamera(cfg, 77)
	for i := 0; i < 50; i++ {
		pa, va, vela := a.Step()
		pb, vb, velb := b.Step()
		if pa != pb || va != vb || vela != velb {
			t.Fatalf("step %d diverged: %v vs %v", i, pa, pb)
		}
		if math.Abs(vela.Length()-cfg.Speed) > 1e-9 {
			t.Fatalf("step %d: speed %v, want %v", i, vela.Length(), cfg.Speed)
		}
		if !va.Aabb().ContainsPoint(pa) {
			t.Fatalf("step %d: view does not contain the camera", i)
		}
	}
	if a.Position() == (hex.Vec2{}) {
		t.Fatalf("camera never moved")
	}
}

func TestTickLoopStreamsAroundCamera(t *testing.T) {
	g := newGrid(t, 11)
	log := zaptest.NewLogger(t)
	sink := &statsSink{}

	notify := NewNotifySystem(g.Bus(), log)
	finalize := NewFinalizeSystem(g)
	cam := FixedCamera{View: stream.ViewAround(hex.Vec2{}, 20, 15)}
	stats := NewStatsSystem(g, sink, log, 1)

	runner := coresys.NewRunner()
	runner.Register(stats)
	runner.Register(NewStreamingSystem(g, cam))
	runner.Register(finalize)
	runner.Register(notify)

	deadline := time.Now().Add(10 * time.Second)
	for {
		runner.Tick(50 * time.Millisecond)
		if in, _, _, _ := notify.Counts(); in > 0 && g.NumJobsInFlight() == 0 && g.NumJobsInQueue() == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("nothing popped in: %+v", g.Stats())
		}
		time.Sleep(time.Millisecond)
	}

	if finalize.Finalized() == 0 {
		t.Fatalf("no job finalized")
	}
	if g.NumVisibleChunks() == 0 || g.Store().Len() == 0 {
		t.Fatalf("stats after streaming: %+v", g.Stats())
	}
	if len(sink.got) == 0 {
		t.Fatalf("stats never published")
	}
	if st, ok := sink.got[len(sink.got)-1].(stream.Stats); !ok || st.Chunks == 0 {
		t.Fatalf("last published = %#v", sink.got[len(sink.got)-1])
	}
	if stats.Last().Chunks == 0 {
		t.Fatalf("last sample = %+v", stats.Last())
	}
	if g.HighLoadTime() != 0 {
		t.Fatalf("load time high-water mark not cleared")
	}
}

func discoverRing(g *stream.Grid, radius int32) int {
	for _, h := range hex.Circle(hex.Zero(), radius) {
		g.Discover(h)
	}
	return g.Store().Len()
}

func TestPersistSavesOnlyWhenChanged(t *testing.T) {
	dir := t.TempDir()
	repo, err := persist.OpenSQLite(context.Background(), filepath.Join(dir, "tiles.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer repo.Close()

	g := newGrid(t, 5)
	n := discoverRing(g, 4)
	snap := config.SnapshotConfig{Path: filepath.Join(dir, "world.snap"), EveryTicks: 3}
	s := NewPersistSystem(g, repo, "test", 2, snap, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		s.Update(0)
	}
	got, err := repo.Load(context.Background(), 5)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Entries) != n {
		t.Fatalf("saved %d tiles, want %d", len(got.Entries), n)
	}
	h, err := snapshot.ReadHeader(snap.Path)
	if err != nil {
		t.Fatalf("snapshot header: %v", err)
	}
	if h.Tiles != n || h.World != "test" || h.Tick != 3 {
		t.Fatalf("header = %+v", h)
	}

	// unchanged table: the next scheduled snapshot is skipped
	for i := 0; i < 3; i++ {
		s.Update(0)
	}
	if h, _ := snapshot.ReadHeader(snap.Path); h.Tick != 3 {
		t.Fatalf("snapshot rewritten without changes, tick = %d", h.Tick)
	}

	if err := s.SaveAll(); err != nil {
		t.Fatalf("save all: %v", err)
	}
	if h, _ := snapshot.ReadHeader(snap.Path); h.Tick != 6 {
		t.Fatalf("SaveAll did not force a snapshot, tick = %d", h.Tick)
	}
}

func TestRestorePrefersSnapshot(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	repo, err := persist.OpenSQLite(ctx, filepath.Join(dir, "tiles.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer repo.Close()
	snap := config.SnapshotConfig{Path: filepath.Join(dir, "world.snap"), EveryTicks: 1, Restore: true}

	src := newGrid(t, 9)
	discoverRing(src, 2)
	if err := repo.Save(ctx, src.Store().Export()); err != nil {
		t.Fatalf("save: %v", err)
	}
	n := discoverRing(src, 5)
	if err := NewPersistSystem(src, nil, "w", 0, snap, zaptest.NewLogger(t)).SaveAll(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	dst := newGrid(t, 9)
	got, err := NewPersistSystem(dst, repo, "w", 0, snap, zaptest.NewLogger(t)).Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got != n || dst.Store().Len() != n {
		t.Fatalf("restored %d (store %d), want %d from the snapshot", got, dst.Store().Len(), n)
	}
}

func TestRestoreIgnoresOtherSeed(t *testing.T) {
	dir := t.TempDir()
	snap := config.SnapshotConfig{Path: filepath.Join(dir, "world.snap"), Restore: true}

	src := newGrid(t, 1)
	discoverRing(src, 3)
	if err := NewPersistSystem(src, nil, "w", 0, snap, zaptest.NewLogger(t)).SaveAll(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	dst := newGrid(t, 2)
	got, err := NewPersistSystem(dst, nil, "w", 0, snap, zaptest.NewLogger(t)).Restore(context.Background())
	if err != nil || got != 0 || dst.Store().Len() != 0 {
		t.Fatalf("restore across seeds: n=%d len=%d err=%v", got, dst.Store().Len(), err)
	}
}

func TestRestoreWithNothingSaved(t *testing.T) {
	dir := t.TempDir()
	repo, err := persist.OpenSQLite(context.Background(), filepath.Join(dir, "tiles.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer repo.Close()
	snap := config.SnapshotConfig{Path: filepath.Join(dir, "missing.snap"), Restore: true}

	g := newGrid(t, 4)
	got, err := NewPersistSystem(g, repo, "w", 0, snap, zaptest.NewLogger(t)).Restore(context.Background())
	if err != nil || got != 0 {
		t.Fatalf("n=%d err=%v", got, err)
	}
}
