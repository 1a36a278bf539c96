package chunk

import (
	"time"

	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/core/event"
	"github.com/hexworld/engine/internal/render"
)

// Launcher submits the build job for a chunk that just entered Streaming.
// It may report the result synchronously through Registry.End.
type Launcher func(rec *Record, gen uint64)

type set map[Index]*Record

func (s set) add(r *Record) { s[r.Index] = r }
func (s set) del(r *Record) { delete(s, r.Index) }

// Registry owns every chunk record and the bookkeeping sets derived from
// their states. Counts are set sizes, never scans. It is not safe for
// concurrent use; only the main goroutine touches it.
type Registry struct {
	log     *zap.Logger
	proxies render.ProxyFactory
	bus     *event.Bus
	now     func() time.Time

	maxInFlight int
	res         int32

	chunks      set
	queued      set
	streaming   set
	visible     set
	hidden      set
	inView      set
	lookAhead   set
	invalidated set // freshly Ready, waiting for a pop-in decision
	outdated    set

	nextGen    uint64
	highLoadMs float64
}

func NewRegistry(log *zap.Logger, proxies render.ProxyFactory, bus *event.Bus, now func() time.Time, res int32, maxInFlight int) *Registry {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Registry{
		log:         log.With(zap.String("component", "chunks")),
		proxies:     proxies,
		bus:         bus,
		now:         now,
		maxInFlight: maxInFlight,
		res:         res,
		chunks:      make(set, 256),
		queued:      make(set, 32),
		streaming:   make(set, 8),
		visible:     make(set, 64),
		hidden:      make(set, 256),
		inView:      make(set, 64),
		lookAhead:   make(set, 16),
		invalidated: make(set, 8),
		outdated:    make(set, 8),
	}
}

func chunkField(idx Index) zap.Field { return zap.Stringer("chunk", idx) }

// Resolution is the chunk edge length in tiles.
func (r *Registry) Resolution() int32 { return r.res }

// MaxInFlight is the job capacity.
func (r *Registry) MaxInFlight() int { return r.maxInFlight }

// GetOrCreate returns the record for idx, creating it Poked and hidden if
// needed. A record evicted while streaming is revived instead.
func (r *Registry) GetOrCreate(idx Index) *Record {
	if rec, ok := r.chunks[idx]; ok {
		rec.Evicted = false
		return rec
	}
	rec := &Record{Index: idx, State: Poked}
	r.chunks.add(rec)
	r.hidden.add(rec)
	return rec
}

// Get returns a live record. Records evicted while streaming are not live.
func (r *Registry) Get(idx Index) (*Record, bool) {
	rec, ok := r.chunks[idx]
	if !ok || rec.Evicted {
		return nil, false
	}
	return rec, true
}

// Ticket returns the generation of the job attached to idx, if any.
func (r *Registry) Ticket(idx Index) (uint64, bool) {
	rec, ok := r.chunks[idx]
	if !ok || rec.Job == nil {
		return 0, false
	}
	return rec.Job.Gen, true
}

// Queue moves a Poked chunk to Queued; any other state is left alone.
func (r *Registry) Queue(rec *Record) {
	if rec == nil || rec.State != Poked || rec.Evicted {
		return
	}
	rec.State = Queued
	r.queued.add(rec)
}

// Start moves a Queued chunk to Streaming and launches its job. When every
// job slot is taken the chunk stays Queued and Start reports false.
func (r *Registry) Start(rec *Record, launch Launcher) bool {
	if rec == nil || rec.State != Queued || rec.Evicted {
		return false
	}
	if len(r.streaming) >= r.maxInFlight {
		r.log.Debug("job capacity reached, deferring", chunkField(rec.Index), zap.Int("in_flight", len(r.streaming)))
		return false
	}
	r.nextGen++
	gen := r.nextGen
	r.queued.del(rec)
	rec.State = Streaming
	rec.Job = &Ticket{Gen: gen, Started: r.now()}
	r.streaming.add(rec)

	launch(rec, gen)
	return true
}

// End commits a finished build. The result is dropped when the chunk is gone,
// was evicted mid-build, or the generation does not match the attached job.
// A failed build returns the chunk to Poked.
func (r *Registry) End(idx Index, gen uint64, res Result) bool {
	rec, ok := r.chunks[idx]
	if !ok {
		r.log.Warn("finalize for unknown chunk, result discarded", chunkField(idx), zap.Uint64("gen", gen))
		return false
	}
	if rec.Job == nil || rec.Job.Gen != gen {
		r.log.Warn("finalize for stale job, result discarded", chunkField(idx), zap.Uint64("gen", gen), zap.Stringer("state", rec.State))
		return false
	}

	rec.Job = nil
	r.streaming.del(rec)

	if rec.Evicted {
		rec.State = Poked
		r.remove(rec)
		return false
	}

	if !res.OK {
		rec.State = Poked
		rec.Failures++
		r.log.Warn("chunk build failed, reverting to poked", chunkField(idx), zap.Int("failures", rec.Failures))
		event.Emit(r.bus, Failed{Index: idx, Failures: rec.Failures})
		return false
	}

	if res.BuildMs > r.highLoadMs {
		r.highLoadMs = res.BuildMs
	}
	rec.State = Ready
	rec.Mesh = res.Mesh
	rec.Decorations = res.Decorations
	rec.HasWater = res.HasWater
	rec.BuildMs = res.BuildMs
	rec.Failures = 0
	r.invalidated.add(rec)
	event.Emit(r.bus, Streamed{Index: idx, BuildMs: res.BuildMs, HasWater: res.HasWater})
	return true
}

// PopIn creates the chunk's proxies and marks it visible. Safe to call at any
// time: a chunk that is already visible or not yet Ready is left alone.
func (r *Registry) PopIn(rec *Record) {
	if rec == nil || rec.Visible {
		return
	}
	if rec.State != Ready {
		r.log.Debug("pop-in before ready ignored", chunkField(rec.Index), zap.Stringer("state", rec.State))
		return
	}
	if !rec.Mesh.Empty() {
		rec.Proxy = r.proxies.CreateMeshProxy(rec.Mesh, rec.Index.Anchor(r.res))
	}
	if len(rec.Decorations) > 0 {
		rec.DecorationProxy = r.proxies.CreateDecorationProxy(rec.Decorations)
	}
	rec.Visible = true
	r.visible.add(rec)
	r.hidden.del(rec)

	ev := PoppedIn{Index: rec.Index, HasWater: rec.HasWater}
	if rec.Mesh != nil {
		ev.Triangles = rec.Mesh.Levels[render.DetailHigh].NumTriangles()
	}
	for _, d := range rec.Decorations {
		if d.Kind == render.Tree {
			ev.Trees++
		}
	}
	event.Emit(r.bus, ev)
}

// PopOut destroys the chunk's proxies and marks it hidden. Popping out a
// hidden chunk is a no-op.
func (r *Registry) PopOut(rec *Record) {
	if rec == nil || !rec.Visible {
		return
	}
	r.destroyProxies(rec)
	rec.Visible = false
	r.visible.del(rec)
	r.hidden.add(rec)
	event.Emit(r.bus, PoppedOut{Index: rec.Index})
}

func (r *Registry) destroyProxies(rec *Record) {
	if !rec.Proxy.IsZero() {
		r.proxies.Destroy(rec.Proxy)
		rec.Proxy = 0
	}
	if !rec.DecorationProxy.IsZero() {
		r.proxies.Destroy(rec.DecorationProxy)
		rec.DecorationProxy = 0
	}
}

// Nuke evicts a chunk. It pops the chunk out first so no proxy outlives it.
// A chunk with a job in flight is only marked Evicted; End removes it once
// the job reports back.
func (r *Registry) Nuke(rec *Record) {
	if rec == nil {
		return
	}
	if cur, ok := r.chunks[rec.Index]; !ok || cur != rec {
		return
	}
	r.PopOut(rec)
	if rec.InFlight() {
		if !rec.Evicted {
			r.log.Debug("nuke while streaming, deferring removal", chunkField(rec.Index))
		}
		rec.Evicted = true
		r.inView.del(rec)
		r.lookAhead.del(rec)
		rec.InView, rec.LookAhead = false, false
		return
	}
	r.remove(rec)
}

func (r *Registry) remove(rec *Record) {
	r.destroyProxies(rec)
	for _, s := range []set{r.chunks, r.queued, r.streaming, r.visible, r.hidden, r.inView, r.lookAhead, r.invalidated, r.outdated} {
		s.del(rec)
	}
	rec.Mesh = nil
	rec.Decorations = nil
	event.Emit(r.bus, Nuked{Index: rec.Index})
}

// Clear nukes every chunk. Chunks with a job in flight linger as Evicted
// until their results are drained.
func (r *Registry) Clear() {
	for _, rec := range r.Snapshot() {
		r.Nuke(rec)
	}
}

// ClearQueue returns every Queued chunk to Poked.
func (r *Registry) ClearQueue() {
	for _, rec := range r.queued {
		rec.State = Poked
	}
	clear(r.queued)
}

// FlagOutdated marks an existing chunk whose neighbourhood changed.
func (r *Registry) FlagOutdated(idx Index) {
	if rec, ok := r.chunks[idx]; ok && rec.State == Ready {
		r.outdated.add(rec)
	}
}

// FlushOutdated emits Outdated for every flagged chunk that is visible and
// clears the flags.
func (r *Registry) FlushOutdated() {
	for _, rec := range r.outdated {
		if rec.Visible {
			event.Emit(r.bus, Outdated{Index: rec.Index})
		}
	}
	clear(r.outdated)
}

// TakeInvalidated returns the chunks that became Ready since the last call.
func (r *Registry) TakeInvalidated() []*Record {
	out := make([]*Record, 0, len(r.invalidated))
	for _, rec := range r.invalidated {
		out = append(out, rec)
	}
	clear(r.invalidated)
	return out
}

// SetInView updates the in-view flag and set membership.
func (r *Registry) SetInView(rec *Record, in bool) {
	rec.InView = in
	if in {
		r.inView.add(rec)
	} else {
		r.inView.del(rec)
	}
}

// SetLookAhead updates the look-ahead flag and set membership.
func (r *Registry) SetLookAhead(rec *Record, on bool) {
	rec.LookAhead = on
	if on {
		r.lookAhead.add(rec)
	} else {
		r.lookAhead.del(rec)
	}
}

func snapshot(s set) []*Record {
	out := make([]*Record, 0, len(s))
	for _, rec := range s {
		out = append(out, rec)
	}
	return out
}

// Snapshot returns every registered record, evicted ones included.
func (r *Registry) Snapshot() []*Record { return snapshot(r.chunks) }

func (r *Registry) QueuedRecords() []*Record    { return snapshot(r.queued) }
func (r *Registry) VisibleRecords() []*Record   { return snapshot(r.visible) }
func (r *Registry) HiddenRecords() []*Record    { return snapshot(r.hidden) }
func (r *Registry) InViewRecords() []*Record    { return snapshot(r.inView) }
func (r *Registry) LookAheadRecords() []*Record { return snapshot(r.lookAhead) }

func (r *Registry) NumChunks() int       { return len(r.chunks) }
func (r *Registry) NumVisible() int      { return len(r.visible) }
func (r *Registry) NumHidden() int       { return len(r.hidden) }
func (r *Registry) NumJobsInFlight() int { return len(r.streaming) }
func (r *Registry) NumQueued() int       { return len(r.queued) }
func (r *Registry) NumInView() int       { return len(r.inView) }
func (r *Registry) NumLookAhead() int    { return len(r.lookAhead) }

// HighLoadTime is the slowest build seen, in milliseconds.
func (r *Registry) HighLoadTime() float64 { return r.highLoadMs }

func (r *Registry) ClearLoadTime() { r.highLoadMs = 0 }
