package universe

import "sync"

// guard is a mutex that remembers a panic raised while it was held. Once
// poisoned every later lock panics with ErrPoisoned.
//
// unlock must be deferred directly (defer g.unlock()) for the panic to be
// observed; a plain call behaves like sync.Mutex.Unlock.
type guard struct {
	mu       sync.Mutex
	poisoned bool
}

func (g *guard) lock() {
	g.mu.Lock()
	if g.poisoned {
		g.mu.Unlock()
		panic(ErrPoisoned)
	}
}

// tryLock is lock for call sites that report poisoning as an error.
func (g *guard) tryLock() error {
	g.mu.Lock()
	if g.poisoned {
		g.mu.Unlock()
		return ErrPoisoned
	}
	return nil
}

func (g *guard) unlock() {
	if r := recover(); r != nil {
		g.poisoned = true
		g.mu.Unlock()
		panic(r)
	}
	g.mu.Unlock()
}
