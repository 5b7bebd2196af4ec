package ecs

import "fmt"

// Handle identifies a host-side placeholder object. The lower 32 bits hold the
// slot index and the upper 32 bits its generation, so a handle kept past
// Destroy never aliases the slot's next occupant.
type Handle uint64

func NewHandle(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.Index(), h.Generation())
}

// HandlePool allocates handles from a free list, falling back to a growing
// index when the free list is empty.
type HandlePool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
	live        int
}

func NewHandlePool() *HandlePool {
	return &HandlePool{
		generations: make([]uint32, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

func (p *HandlePool) Create() Handle {
	p.live++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewHandle(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return NewHandle(idx, p.generations[idx])
}

func (p *HandlePool) Alive(h Handle) bool {
	idx := h.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == h.Generation()
}

// Destroy invalidates h. Stale or unknown handles are ignored and reported
// as false.
func (p *HandlePool) Destroy(h Handle) bool {
	if !p.Alive(h) {
		return false
	}
	idx := h.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Live returns the number of handles created and not yet destroyed.
func (p *HandlePool) Live() int { return p.live }
