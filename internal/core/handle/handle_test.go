package handle

import "testing"

func TestPoolGenerations(t *testing.T) {
	p := NewPool()
	a := p.Acquire()
	if a.IsZero() {
		t.Fatalf("first handle is zero")
	}
	if !p.Alive(a) || p.Live() != 1 {
		t.Fatalf("fresh handle not alive")
	}
	if !p.Release(a) {
		t.Fatalf("release failed")
	}
	if p.Release(a) {
		t.Fatalf("double release reported success")
	}
	if p.Alive(a) {
		t.Fatalf("released handle still alive")
	}

	b := p.Acquire()
	if b.Index() != a.Index() || b.Generation() == a.Generation() {
		t.Fatalf("slot not recycled with new generation: %x -> %x", a, b)
	}
	if p.Alive(a) || !p.Alive(b) || p.Live() != 1 {
		t.Fatalf("stale handle resolves after recycle")
	}
	if p.Alive(0) || p.Release(0) {
		t.Fatalf("zero handle treated as live")
	}
}

func TestStore(t *testing.T) {
	p := NewPool()
	s := NewStore[string]()
	h := p.Acquire()
	v := "mesh"
	s.Set(h, &v)
	if got, ok := s.Get(h); !ok || *got != "mesh" {
		t.Fatalf("get = %v %v", got, ok)
	}
	n := 0
	s.Each(func(Handle, *string) { n++ })
	if n != 1 || s.Len() != 1 {
		t.Fatalf("each visited %d, len %d", n, s.Len())
	}
	s.Remove(h)
	if s.Has(h) {
		t.Fatalf("removed handle still present")
	}
}
