package ecs

// World owns the handle pool, the component registry and a deferred
// destruction queue flushed once per tick by the cleanup system.
// Accessed only from the tick goroutine.
type World struct {
	pool         *HandlePool
	registry     *Registry
	destroyQueue []Handle
	queued       map[Handle]struct{}
}

func NewWorld() *World {
	return &World{
		pool:         NewHandlePool(),
		registry:     NewRegistry(),
		destroyQueue: make([]Handle, 0, 64),
		queued:       make(map[Handle]struct{}, 64),
	}
}

func (w *World) Registry() *Registry { return w.registry }

func (w *World) Create() Handle {
	return w.pool.Create()
}

func (w *World) Alive(h Handle) bool {
	return w.pool.Alive(h)
}

// MarkForDestruction queues h for end-of-tick cleanup. Queuing the same
// handle twice is a no-op.
func (w *World) MarkForDestruction(h Handle) {
	if _, dup := w.queued[h]; dup {
		return
	}
	w.queued[h] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, h)
}

// PendingDestruction returns the number of handles waiting for the next flush.
func (w *World) PendingDestruction() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys every queued handle and clears its components.
// It returns how many live handles were destroyed.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, h := range w.destroyQueue {
		w.registry.RemoveAll(h)
		if w.pool.Destroy(h) {
			n++
		}
		delete(w.queued, h)
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
