package universe

import (
	"maps"
	"sync"

	"github.com/l1jgo/universe/internal/core/ecs"
)

// Host is the capability the universe needs from the engine: create and
// destroy placeholder objects carrying a back-reference, and mirror run
// state and command output onto them.
type Host interface {
	CreateChunkHandle(id ChunkID) ecs.Handle
	CreateEntityHandle(id EntityID) ecs.Handle
	DestroyHandle(h ecs.Handle)
	SetActive(h ecs.Handle, active bool)
	SetTag(h ecs.Handle, key, value string)
}

// ChunkRef is the back-reference component attached to a chunk's handle.
type ChunkRef struct {
	ID ChunkID
}

// EntityRef is the back-reference component attached to an entity's handle.
type EntityRef struct {
	ID EntityID
}

// Active marks handles whose chunk or entity is spawned.
type Active struct{}

// Tags holds free-form key/value pairs written by entity commands.
type Tags struct {
	Values map[string]string
}

// WorldHost implements Host on an ecs.World. Destruction is deferred to the
// world's destroy queue; Flush applies it.
type WorldHost struct {
	mu         sync.Mutex
	world      *ecs.World
	chunkRefs  *ecs.Store[ChunkRef]
	entityRefs *ecs.Store[EntityRef]
	active     *ecs.Store[Active]
	tags       *ecs.Store[Tags]
}

func NewWorldHost(world *ecs.World) *WorldHost {
	h := &WorldHost{
		world:      world,
		chunkRefs:  ecs.NewStore[ChunkRef]("chunk_ref", 256),
		entityRefs: ecs.NewStore[EntityRef]("entity_ref", 1024),
		active:     ecs.NewStore[Active]("active", 1024),
		tags:       ecs.NewStore[Tags]("tags", 64),
	}
	reg := world.Registry()
	reg.Register(h.chunkRefs)
	reg.Register(h.entityRefs)
	reg.Register(h.active)
	reg.Register(h.tags)
	return h
}

func (w *WorldHost) CreateChunkHandle(id ChunkID) ecs.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.world.Create()
	w.chunkRefs.Set(h, &ChunkRef{ID: id})
	return h
}

func (w *WorldHost) CreateEntityHandle(id EntityID) ecs.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.world.Create()
	w.entityRefs.Set(h, &EntityRef{ID: id})
	return h
}

func (w *WorldHost) DestroyHandle(h ecs.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.world.MarkForDestruction(h)
}

func (w *WorldHost) SetActive(h ecs.Handle, active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if active {
		w.active.Set(h, &Active{})
		return
	}
	w.active.Remove(h)
}

func (w *WorldHost) SetTag(h ecs.Handle, key, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t := w.tags.GetOrCreate(h, func() *Tags { return &Tags{Values: make(map[string]string)} })
	t.Values[key] = value
}

// Tags returns a copy of the tags written to h.
func (w *WorldHost) Tags(h ecs.Handle) map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.tags.Get(h); ok {
		return maps.Clone(t.Values)
	}
	return nil
}

// Flush destroys every handle queued since the last flush.
func (w *WorldHost) Flush() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.world.FlushDestroyQueue()
}

func (w *WorldHost) Alive(h ecs.Handle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.world.Alive(h)
}

func (w *WorldHost) IsActive(h ecs.Handle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active.Has(h)
}

// ComponentCounts reports how many handles carry each host component,
// keyed by store name.
func (w *WorldHost) ComponentCounts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.world.Registry().Counts()
}

// ActiveCounts returns how many chunk and entity handles are marked active.
func (w *WorldHost) ActiveCounts() (chunks, entities int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ecs.Each2(w.chunkRefs, w.active, func(ecs.Handle, *ChunkRef, *Active) { chunks++ })
	ecs.Each2(w.entityRefs, w.active, func(ecs.Handle, *EntityRef, *Active) { entities++ })
	return chunks, entities
}

// HostCommand is what an EntityCommand runs against.
type HostCommand struct {
	Entity EntityID
	Handle ecs.Handle
	Host   Host
}

// EntityCommand is an arbitrary host-side action issued against a spawned
// entity. It runs on the dispatching goroutine with no universe locks held,
// but must not call back into the universe synchronously; enqueue requests
// instead.
type EntityCommand func(cmd HostCommand) error
