// Package stream decides, tick by tick, which chunks must be resident, which
// are being built and which can be evicted, based on where the camera looks
// and where it is heading.
package stream

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/chunk"
	"github.com/hexworld/engine/internal/core/event"
	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/job"
	"github.com/hexworld/engine/internal/render"
	"github.com/hexworld/engine/internal/tile"
)

// Options tunes the scheduler. Zero numeric fields take the DefaultOptions
// value; RetainDiscovered is taken as given.
type Options struct {
	Workers         int
	MaxInFlight     int
	MaxQueued       int
	MaxHiddenChunks int
	ChunkTTL        time.Duration

	// Look-ahead fires above LookAheadThreshold speed and casts one trace per
	// threshold step up to LookAheadMax.
	LookAheadThreshold float64
	LookAheadMax       float64
	LookAheadStride    float64 // in chunk widths

	// RetainDiscovered keeps stale chunks whose center lies in the
	// discovered-world bounds; only the hidden-chunk cap evicts them.
	RetainDiscovered bool
}

func DefaultOptions() Options {
	return Options{
		Workers:            job.DefaultWorkers,
		MaxInFlight:        job.DefaultWorkers,
		MaxQueued:          32,
		MaxHiddenChunks:    128,
		ChunkTTL:           10 * time.Second,
		LookAheadThreshold: 0.1,
		LookAheadMax:       0.3,
		LookAheadStride:    1.5,
		RetainDiscovered:   true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = o.Workers
	}
	if o.MaxQueued <= 0 {
		o.MaxQueued = d.MaxQueued
	}
	if o.MaxHiddenChunks <= 0 {
		o.MaxHiddenChunks = d.MaxHiddenChunks
	}
	if o.ChunkTTL <= 0 {
		o.ChunkTTL = d.ChunkTTL
	}
	if o.LookAheadThreshold <= 0 {
		o.LookAheadThreshold = d.LookAheadThreshold
	}
	if o.LookAheadMax <= 0 {
		o.LookAheadMax = d.LookAheadMax
	}
	if o.LookAheadStride <= 0 {
		o.LookAheadStride = d.LookAheadStride
	}
	return o
}

// BuildFunc creates the job that builds idx under job generation gen.
type BuildFunc func(g *Grid, idx chunk.Index, gen uint64) job.Job

// DefaultBuild builds chunk geometry from the tile store.
func DefaultBuild(g *Grid, idx chunk.Index, gen uint64) job.Job {
	return job.NewChunkBuild(g.store, g.reg, idx, gen)
}

// Grid is the streaming facade: it owns the tile store, chunk registry and
// executor and is driven by one UpdateStreaming call per tick. Everything
// except the executor's workers runs on the caller's goroutine.
type Grid struct {
	log     *zap.Logger
	opts    Options
	clock   Clock
	bus     *event.Bus
	store   *tile.Store
	reg     *chunk.Registry
	exec    *job.Executor
	proxies render.ProxyFactory
	build   BuildFunc

	res        int32
	chunkWidth float64

	force  []View
	forced map[chunk.Index]struct{}
	paused bool
	closed bool
}

// New wires a grid around store. The executor's workers live until Shutdown.
func New(ctx context.Context, log *zap.Logger, store *tile.Store, proxies render.ProxyFactory, bus *event.Bus, clock Clock, opts Options) *Grid {
	opts = opts.withDefaults()
	if clock == nil {
		clock = SystemClock{}
	}
	res := store.Resolution()
	g := &Grid{
		log:        log.With(zap.String("component", "stream")),
		opts:       opts,
		clock:      clock,
		bus:        bus,
		store:      store,
		proxies:    proxies,
		build:      DefaultBuild,
		res:        res,
		chunkWidth: chunk.Size(res).X,
		forced:     make(map[chunk.Index]struct{}),
	}
	g.reg = chunk.NewRegistry(log, proxies, bus, clock.Now, res, opts.MaxInFlight)
	g.exec = job.NewExecutor(ctx, log, opts.Workers, opts.MaxInFlight)
	store.OnDiscover(func(_ hex.Hex, idx chunk.Index) { g.reg.FlagOutdated(idx) })
	return g
}

// SetBuilder replaces the job factory. Call before the first tick.
func (g *Grid) SetBuilder(fn BuildFunc) { g.build = fn }

func (g *Grid) Options() Options             { return g.opts }
func (g *Grid) Store() *tile.Store           { return g.store }
func (g *Grid) Registry() *chunk.Registry    { return g.reg }
func (g *Grid) Executor() *job.Executor      { return g.exec }
func (g *Grid) Bus() *event.Bus              { return g.bus }
func (g *Grid) Clock() Clock                 { return g.clock }
func (g *Grid) Proxies() render.ProxyFactory { return g.proxies }
func (g *Grid) Resolution() int32            { return g.res }

func (g *Grid) launch(rec *chunk.Record, gen uint64) {
	g.exec.Submit(g.build(g, rec.Index, gen))
}

// ── chunk API ──

func (g *Grid) GetOrCreateChunk(idx chunk.Index) *chunk.Record { return g.reg.GetOrCreate(idx) }

// NukeChunk evicts a chunk. A chunk with a job in flight is removed once the
// job reports back.
func (g *Grid) NukeChunk(rec *chunk.Record) {
	if rec != nil {
		delete(g.forced, rec.Index)
	}
	g.reg.Nuke(rec)
}

func (g *Grid) QueueStreamingChunk(rec *chunk.Record) { g.reg.Queue(rec) }

// StartStreamingChunk launches the build job for a Queued chunk. It reports
// false when the chunk is not Queued or every job slot is taken. A chunk
// committed through EndStreamingChunk frees its registry slot while its job
// may still be running, so the executor's own count gates the start too.
func (g *Grid) StartStreamingChunk(rec *chunk.Record) bool {
	if g.closed || !g.slotFree() {
		return false
	}
	return g.reg.Start(rec, g.launch)
}

func (g *Grid) slotFree() bool {
	return g.reg.NumJobsInFlight() < g.reg.MaxInFlight() && !g.exec.Full()
}

// EndStreamingChunk commits externally built geometry for the job currently
// attached to idx. Results for absent or idle chunks are discarded.
func (g *Grid) EndStreamingChunk(idx chunk.Index, mesh *render.Geometry, buildMs float64, decorations []render.Decoration) bool {
	gen, _ := g.reg.Ticket(idx)
	return g.reg.End(idx, gen, chunk.Result{
		OK:          !mesh.Empty(),
		Mesh:        mesh,
		Decorations: decorations,
		BuildMs:     buildMs,
	})
}

func (g *Grid) PopInChunk(rec *chunk.Record)  { g.reg.PopIn(rec) }
func (g *Grid) PopOutChunk(rec *chunk.Record) { g.reg.PopOut(rec) }

// ClearAllChunks drops every chunk and the queue. Chunks still building are
// removed as their jobs finish.
func (g *Grid) ClearAllChunks() {
	g.force = g.force[:0]
	clear(g.forced)
	g.reg.ClearQueue()
	g.reg.Clear()
}

func (g *Grid) NumChunks() int        { return g.reg.NumChunks() }
func (g *Grid) NumVisibleChunks() int { return g.reg.NumVisible() }
func (g *Grid) NumJobsInFlight() int  { return g.reg.NumJobsInFlight() }
func (g *Grid) NumJobsInQueue() int   { return g.reg.NumQueued() }
func (g *Grid) HighLoadTime() float64 { return g.reg.HighLoadTime() }
func (g *Grid) ClearLoadTime()        { g.reg.ClearLoadTime() }

// ForceStreamView queues every chunk under v on the next update and starts
// them ahead of everything else, whether or not they are in view.
func (g *Grid) ForceStreamView(v View) { g.force = append(g.force, v) }

// SetPaused freezes streaming: nothing new is queued or started and pending
// chunks outside the view are dropped.
func (g *Grid) SetPaused(p bool) { g.paused = p }
func (g *Grid) Paused() bool     { return g.paused }

// ── tile API ──

func (g *Grid) Discover(h hex.Hex) int  { return g.store.Discover(h) }
func (g *Grid) TileIndex(h hex.Hex) int { return g.store.TileIndex(h) }

// TileData returns the stored record without discovering.
func (g *Grid) TileData(h hex.Hex) (*tile.Record, bool) { return g.store.Get(h) }

func (g *Grid) CalculateTileData(h hex.Hex) tile.Record { return g.store.Calculate(h) }

// WorldBounds is the discovered-world box grown by margin, kept regardless of
// which chunks are resident.
func (g *Grid) WorldBounds(margin float64) hex.Aabb { return g.store.WorldBounds(margin) }

// ── job plumbing ──

// Drain finalizes every completed job. Call once per tick on the main goroutine.
func (g *Grid) Drain() int { return g.exec.Drain() }

// Shutdown stops scheduling, waits until no job is in flight, clears the
// registry and stops the workers.
func (g *Grid) Shutdown(ctx context.Context) error {
	if g.closed {
		return nil
	}
	g.paused = true
	g.reg.ClearQueue()
	if err := g.exec.WaitIdle(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	g.closed = true
	g.ClearAllChunks()
	if n := g.reg.NumJobsInFlight(); n != 0 {
		g.log.Warn("registry still reports jobs in flight after idle", zap.Int("in_flight", n))
	}
	return g.exec.Close()
}

// Stats is a point-in-time summary for logging and debug views.
type Stats struct {
	Chunks       int     `json:"chunks"`
	Visible      int     `json:"visible"`
	Hidden       int     `json:"hidden"`
	InView       int     `json:"in_view"`
	LookAhead    int     `json:"look_ahead"`
	Queued       int     `json:"queued"`
	InFlight     int     `json:"in_flight"`
	Tiles        int     `json:"tiles"`
	HighLoadMs   float64 `json:"high_load_ms"`
	ScratchWaits int64   `json:"scratch_waits"`
	Paused       bool    `json:"paused"`
}

func (g *Grid) Stats() Stats {
	return Stats{
		Chunks:       g.reg.NumChunks(),
		Visible:      g.reg.NumVisible(),
		Hidden:       g.reg.NumHidden(),
		InView:       g.reg.NumInView(),
		LookAhead:    g.reg.NumLookAhead(),
		Queued:       g.reg.NumQueued(),
		InFlight:     g.reg.NumJobsInFlight(),
		Tiles:        g.store.Len(),
		HighLoadMs:   g.reg.HighLoadTime(),
		ScratchWaits: g.exec.Scratch().Contended(),
		Paused:       g.paused,
	}
}
