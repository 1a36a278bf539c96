package render

import (
	"github.com/hexworld/engine/internal/core/handle"
	"github.com/hexworld/engine/internal/hex"
)

// ProxyKind tells mesh proxies from decoration proxies.
type ProxyKind uint8

const (
	MeshProxy ProxyKind = iota
	DecorationProxy
)

// Proxy is what the in-memory factory remembers about a created proxy.
type Proxy struct {
	Kind        ProxyKind
	Origin      hex.Vec2
	Triangles   int
	Decorations int
	Enabled     bool
}

// MemoryFactory is a headless ProxyFactory. It keeps every live proxy in a
// handle store so tools and tests can inspect renderer state.
type MemoryFactory struct {
	pool    *handle.Pool
	proxies *handle.Store[Proxy]
	created int
}

func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{
		pool:    handle.NewPool(),
		proxies: handle.NewStore[Proxy](),
	}
}

func (f *MemoryFactory) CreateMeshProxy(g *Geometry, at hex.Vec2) Handle {
	h := f.pool.Acquire()
	f.proxies.Set(h, &Proxy{
		Kind:      MeshProxy,
		Origin:    at,
		Triangles: g.Levels[DetailHigh].NumTriangles(),
		Enabled:   true,
	})
	f.created++
	return h
}

func (f *MemoryFactory) CreateDecorationProxy(d []Decoration) Handle {
	h := f.pool.Acquire()
	p := &Proxy{Kind: DecorationProxy, Decorations: len(d), Enabled: true}
	if len(d) > 0 {
		p.Origin = d[0].Position
	}
	f.proxies.Set(h, p)
	f.created++
	return h
}

func (f *MemoryFactory) SetEnabled(h Handle, enabled bool) {
	if p, ok := f.proxies.Get(h); ok {
		p.Enabled = enabled
	}
}

func (f *MemoryFactory) Destroy(h Handle) {
	if f.pool.Release(h) {
		f.proxies.Remove(h)
	}
}

// Get returns the live proxy behind h.
func (f *MemoryFactory) Get(h Handle) (*Proxy, bool) { return f.proxies.Get(h) }

// Alive reports whether h has been created and not destroyed.
func (f *MemoryFactory) Alive(h Handle) bool { return f.pool.Alive(h) }

// Live is the number of proxies not yet destroyed.
func (f *MemoryFactory) Live() int { return f.proxies.Len() }

// Created is the total number of proxies ever created.
func (f *MemoryFactory) Created() int { return f.created }

// Each visits every live proxy.
func (f *MemoryFactory) Each(fn func(Handle, *Proxy)) { f.proxies.Each(fn) }
