package ecs

// Removable is what the Registry needs from a store to sweep destroyed
// handles and report occupancy.
type Removable interface {
	Name() string
	Len() int
	Has(h Handle) bool
	Remove(h Handle)
}

// Store holds at most one component of type T per handle. The universe host
// keeps one per back-reference kind, one for the Active marker and one for
// command tags; each is registered with the world under its name so a flush
// clears every kind at once.
type Store[T any] struct {
	name string
	data map[Handle]*T
}

// NewStore creates a store named name; sizeHint preallocates.
func NewStore[T any](name string, sizeHint int) *Store[T] {
	return &Store[T]{
		name: name,
		data: make(map[Handle]*T, sizeHint),
	}
}

func (s *Store[T]) Name() string { return s.name }

func (s *Store[T]) Set(h Handle, c *T) {
	s.data[h] = c
}

func (s *Store[T]) Get(h Handle) (*T, bool) {
	c, ok := s.data[h]
	return c, ok
}

// GetOrCreate returns h's component, attaching mk() first if h has none.
func (s *Store[T]) GetOrCreate(h Handle, mk func() *T) *T {
	if c, ok := s.data[h]; ok {
		return c
	}
	c := mk()
	s.data[h] = c
	return c
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
