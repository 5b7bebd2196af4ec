package universe

import "math"

// localIDPool hands out sibling-scoped local IDs. Recycled IDs are reused
// last-in first-out before the counter advances.
type localIDPool[T ~uint32] struct {
	free      []T
	freeSet   map[T]struct{}
	next      T
	exhausted bool
}

// generate returns the next ID for which inUse reports false.
func (p *localIDPool[T]) generate(inUse func(T) bool) (T, error) {
	for n := len(p.free); n > 0; n = len(p.free) {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		delete(p.freeSet, id)
		if !inUse(id) {
			return id, nil
		}
	}
	for !p.exhausted {
		id := p.next
		if uint32(p.next) == math.MaxUint32 {
			p.exhausted = true
		} else {
			p.next++
		}
		if !inUse(id) {
			return id, nil
		}
	}
	return 0, ErrLocalIDsExhausted
}

// recycle returns id to the pool. Recycling an ID already in the pool is a
// double free.
func (p *localIDPool[T]) recycle(id T) error {
	if p.freeSet == nil {
		p.freeSet = make(map[T]struct{})
	}
	if _, dup := p.freeSet[id]; dup {
		return ErrLocalIDAlreadyRecycled
	}
	p.freeSet[id] = struct{}{}
	p.free = append(p.free, id)
	return nil
}

func (p *localIDPool[T]) recycled() int { return len(p.free) }
