package ecs

import "fmt"

// Registry tracks the component stores attached to a World, by name.
type Registry struct {
	stores []Removable
	names  map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 8),
		names:  make(map[string]struct{}, 8),
	}
}

// Register adds a store to be swept on every destroy. Store names are unique
// per world; registering a second store under a taken name panics.
func (r *Registry) Register(store Removable) {
	if _, dup := r.names[store.Name()]; dup {
		panic(fmt.Sprintf("ecs: component store %q registered twice", store.Name()))
	}
	r.names[store.Name()] = struct{}{}
	r.stores = append(r.stores, store)
}

// RemoveAll clears h from every registered store and returns how many
// components it dropped.
func (r *Registry) RemoveAll(h Handle) int {
	n := 0
	for _, s := range r.stores {
		if s.Has(h) {
			s.Remove(h)
			n++
		}
	}
	return n
}

// Counts reports how many handles carry a component in each store.
func (r *Registry) Counts() map[string]int {
	out := make(map[string]int, len(r.stores))
	for _, s := range r.stores {
		out[s.Name()] = s.Len()
	}
	return out
}
