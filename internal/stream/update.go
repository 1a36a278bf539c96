package stream

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/chunk"
	"github.com/hexworld/engine/internal/hex"
)

// chunksUnder returns every chunk whose padded bounds the view overlaps.
func (g *Grid) chunksUnder(v View) []chunk.Index {
	if v.Empty() {
		return nil
	}
	box := v.Aabb()
	lo := chunk.IndexFromPlanar(box.Min, g.res)
	hi := lo
	for _, p := range box.Points() {
		idx := chunk.IndexFromPlanar(p, g.res)
		lo.X, lo.Y = min(lo.X, idx.X), min(lo.Y, idx.Y)
		hi.X, hi.Y = max(hi.X, idx.X), max(hi.Y, idx.Y)
	}
	// padded bounds reach into the neighbouring chunks
	var out []chunk.Index
	for y := lo.Y - 1; y <= hi.Y+1; y++ {
		for x := lo.X - 1; x <= hi.X+1; x++ {
			idx := chunk.Index{X: x, Y: y}
			if v.Test(chunk.Bounds(idx, g.res)) {
				out = append(out, idx)
			}
		}
	}
	return out
}

// UpdateStreaming runs one scheduling pass for the camera at center looking
// at view and moving with velocity (world units per tick).
func (g *Grid) UpdateStreaming(center hex.Vec2, view View, velocity hex.Vec2) {
	if g.closed {
		return
	}
	now := g.clock.Now()

	for _, rec := range g.reg.InViewRecords() {
		g.reg.SetInView(rec, false)
	}
	for _, rec := range g.reg.LookAheadRecords() {
		g.reg.SetLookAhead(rec, false)
	}

	// chunks under the camera
	for _, idx := range g.chunksUnder(view) {
		rec := g.reg.GetOrCreate(idx)
		g.reg.SetInView(rec, true)
		rec.LastInView = now
		if !g.paused {
			g.reg.Queue(rec)
		}
		g.reg.PopIn(rec)
	}

	g.processForced()

	if !g.paused {
		g.lookAhead(view, velocity, now)
	}

	// freshly built chunks
	for _, rec := range g.reg.TakeInvalidated() {
		if rec.InView {
			g.reg.PopIn(rec)
		}
	}
	g.reg.FlushOutdated()

	// visible chunks that left the view
	for _, rec := range g.reg.VisibleRecords() {
		if !rec.InView {
			g.reg.PopOut(rec)
			rec.LastInView = now
		}
	}

	if g.paused {
		for _, rec := range g.reg.Snapshot() {
			if !rec.InView && rec.State != chunk.Streaming && rec.State != chunk.Ready {
				g.NukeChunk(rec)
			}
		}
	} else {
		g.drainQueue(center)
	}

	g.evict(now)
}

func (g *Grid) processForced() {
	if len(g.force) == 0 {
		return
	}
	for _, v := range g.force {
		for _, idx := range g.chunksUnder(v) {
			rec := g.reg.GetOrCreate(idx)
			rec.LastInView = g.clock.Now()
			g.reg.Queue(rec)
			if rec.State == chunk.Queued {
				g.forced[idx] = struct{}{}
			}
		}
	}
	g.force = g.force[:0]
	for idx := range g.forced {
		rec, ok := g.reg.Get(idx)
		if !ok || rec.State != chunk.Queued {
			delete(g.forced, idx)
			continue
		}
		if g.StartStreamingChunk(rec) {
			delete(g.forced, idx)
		}
	}
}

// lookAhead casts up to LookAheadMax/LookAheadThreshold translated copies of
// the view along the direction of travel and queues what they cover.
func (g *Grid) lookAhead(view View, velocity hex.Vec2, now time.Time) {
	speed := velocity.Length()
	if speed <= g.opts.LookAheadThreshold {
		return
	}
	traces := int(min(speed, g.opts.LookAheadMax) / g.opts.LookAheadThreshold)
	dir := velocity.Normalize()
	step := dir.Scale(g.opts.LookAheadStride * g.chunkWidth)
	for i := 1; i <= traces; i++ {
		trace := view.Translate(step.Scale(float64(i)))
		for _, idx := range g.chunksUnder(trace) {
			rec := g.reg.GetOrCreate(idx)
			if rec.InView {
				continue
			}
			g.reg.SetLookAhead(rec, true)
			rec.LastInView = now
			g.reg.Queue(rec)
		}
	}
}

// drainQueue starts queued chunks in priority order until every job slot is
// taken, then drops whatever sits beyond MaxQueued.
func (g *Grid) drainQueue(center hex.Vec2) {
	queued := g.reg.QueuedRecords()
	if len(queued) == 0 {
		return
	}
	dist := make(map[chunk.Index]float64, len(queued))
	for _, rec := range queued {
		dist[rec.Index] = chunk.Center(rec.Index, g.res).Distance(center)
	}
	sort.Slice(queued, func(i, j int) bool {
		a, b := queued[i], queued[j]
		_, fa := g.forced[a.Index]
		_, fb := g.forced[b.Index]
		if fa != fb {
			return fa
		}
		if a.InView != b.InView {
			return a.InView
		}
		if a.InView {
			return dist[a.Index] < dist[b.Index]
		}
		if !a.LastInView.Equal(b.LastInView) {
			return a.LastInView.After(b.LastInView)
		}
		return dist[a.Index] < dist[b.Index]
	})

	i := 0
	for ; i < len(queued); i++ {
		if !g.slotFree() {
			break
		}
		if g.StartStreamingChunk(queued[i]) {
			delete(g.forced, queued[i].Index)
		}
	}

	rest := queued[i:]
	if len(rest) > g.opts.MaxQueued {
		for _, rec := range rest[g.opts.MaxQueued:] {
			if rec.InView {
				continue
			}
			g.NukeChunk(rec)
		}
	}
}

// evict nukes hidden chunks that have been out of view longer than the TTL,
// then culls the oldest hidden chunks while there are more than the cap.
// Chunks with a job in flight, in view or on the look-ahead path stay.
func (g *Grid) evict(now time.Time) {
	var world hex.Aabb
	if g.opts.RetainDiscovered {
		world = g.store.DiscoveredBounds()
	}
	var candidates []*chunk.Record
	for _, rec := range g.reg.HiddenRecords() {
		if rec.InFlight() || rec.InView || rec.LookAhead || rec.Evicted {
			continue
		}
		if _, ok := g.forced[rec.Index]; ok {
			continue
		}
		if now.Sub(rec.LastInView) <= g.opts.ChunkTTL {
			candidates = append(candidates, rec)
			continue
		}
		if g.opts.RetainDiscovered && world.ContainsPoint(chunk.Center(rec.Index, g.res)) {
			candidates = append(candidates, rec)
			continue
		}
		g.NukeChunk(rec)
	}

	over := g.reg.NumHidden() - g.opts.MaxHiddenChunks
	if over <= 0 || len(candidates) == 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastInView.Before(candidates[j].LastInView)
	})
	n := min(over, len(candidates))
	for _, rec := range candidates[:n] {
		g.NukeChunk(rec)
	}
	g.log.Debug("hidden chunk cap reached, culled oldest", zap.Int("culled", n), zap.Int("cap", g.opts.MaxHiddenChunks))
}
