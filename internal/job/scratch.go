package job

import (
	"sync"
	"sync/atomic"
)

// Buffer is the dynamic mesh scratchpad geometry is assembled in.
type Buffer struct {
	Positions []float32
	Indices   []uint32
}

func (b *Buffer) Reset() {
	b.Positions = b.Positions[:0]
	b.Indices = b.Indices[:0]
}

// Vertex appends a vertex and returns its index.
func (b *Buffer) Vertex(x, y, h float32) uint32 {
	i := uint32(len(b.Positions) / 3)
	b.Positions = append(b.Positions, x, y, h)
	return i
}

func (b *Buffer) Triangle(a, c, d uint32) {
	b.Indices = append(b.Indices, a, c, d)
}

// Scratch is the one buffer shared by every worker, guarded by a single
// mutex. Parallel builds serialize here.
type Scratch struct {
	mu        sync.Mutex
	buf       Buffer
	uses      atomic.Int64
	contended atomic.Int64
}

func NewScratch() *Scratch {
	return &Scratch{
		buf: Buffer{
			Positions: make([]float32, 0, 16*1024),
			Indices:   make([]uint32, 0, 16*1024),
		},
	}
}

// With locks the scratchpad, resets it and hands it to fn. fn must not keep
// the buffer or its slices after returning.
func (s *Scratch) With(fn func(b *Buffer)) {
	if !s.mu.TryLock() {
		s.contended.Add(1)
		s.mu.Lock()
	}
	defer s.mu.Unlock()
	s.uses.Add(1)
	s.buf.Reset()
	fn(&s.buf)
}

// Uses is the number of With calls so far.
func (s *Scratch) Uses() int64 { return s.uses.Load() }

// Contended is how many With calls had to wait for another worker.
func (s *Scratch) Contended() int64 { return s.contended.Load() }
