package handle

// Store is a generic typed map keyed by handle.
type Store[T any] struct {
	data map[Handle]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[Handle]*T, 256),
	}
}

func (s *Store[T]) Set(h Handle, v *T) {
	s.data[h] = v
}

func (s *Store[T]) Get(h Handle) (*T, bool) {
	v, ok := s.data[h]
	return v, ok
}

func (s *Store[T]) Remove(h Handle) {
	delete(s.data, h)
}

func (s *Store[T]) Has(h Handle) bool {
	_, ok := s.data[h]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Each(fn func(Handle, *T)) {
	for h, v := range s.data {
		fn(h, v)
	}
}
