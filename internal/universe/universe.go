package universe

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/l1jgo/universe/internal/core/event"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Universe owns the root chunks and applies every lifecycle mutation.
//
// Mutation is single-writer: the Apply methods and ProcessOperationRequests
// serialize on one lock. Requests may be sent from any goroutine. Locks are
// always taken root set, then parent chunk, then target, then children, then
// shadow hierarchy nodes.
type Universe struct {
	writeMu sync.Mutex

	mu      guard
	roots   map[LocalChunkID]*Chunk
	rootIDs localIDPool[LocalChunkID]

	hierarchy *Hierarchy

	queueMu guard
	queue   []pendingRequest

	host          Host
	bus           *event.Bus
	log           *zap.Logger
	warnThreshold int
	tick          uint64
}

// Option configures a Universe.
type Option func(*Universe)

// WithQueueWarnThreshold makes a drain of more than n requests log a warning
// and emit event.QueueBacklog. Zero disables the check.
func WithQueueWarnThreshold(n int) Option {
	return func(u *Universe) { u.warnThreshold = n }
}

// New creates an empty universe. bus may be nil.
func New(host Host, bus *event.Bus, log *zap.Logger, opts ...Option) *Universe {
	if log == nil {
		log = zap.NewNop()
	}
	u := &Universe{
		roots:     make(map[LocalChunkID]*Chunk),
		hierarchy: NewHierarchy(),
		host:      host,
		bus:       bus,
		log:       log,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// SendChunkOperationRequest queues req for the next drain.
func (u *Universe) SendChunkOperationRequest(req *ChunkOperationRequest) error {
	if req == nil {
		return eris.Wrap(ErrInvalidOperation, "nil chunk operation request")
	}
	return u.enqueue(req)
}

// SendEntityOperationRequest queues req for the next drain.
func (u *Universe) SendEntityOperationRequest(req *EntityOperationRequest) error {
	if req == nil {
		return eris.Wrap(ErrInvalidOperation, "nil entity operation request")
	}
	return u.enqueue(req)
}

// The queue is unbounded: a producer outpacing the tick grows it without
// limit. WithQueueWarnThreshold only reports the backlog.
func (u *Universe) enqueue(req pendingRequest) error {
	if err := u.queueMu.tryLock(); err != nil {
		return err
	}
	defer u.queueMu.unlock()
	u.queue = append(u.queue, req)
	return nil
}

// PendingRequests returns the number of queued requests.
func (u *Universe) PendingRequests() int {
	u.queueMu.lock()
	defer u.queueMu.unlock()
	return len(u.queue)
}

func (u *Universe) drain() []pendingRequest {
	u.queueMu.lock()
	defer u.queueMu.unlock()
	reqs := u.queue
	u.queue = nil
	return reqs
}

// ProcessReport summarizes one drain.
type ProcessReport struct {
	Tick       uint64
	Requests   int
	Operations int
	Failures   int
}

// ProcessOperationRequests drains the queue and applies every request in
// enqueue order, operations in list order. A failed operation does not roll
// back earlier ones. Callbacks run synchronously on the calling goroutine
// and must not call the Apply methods; they may send new requests, which
// wait for the next drain.
//
// If a callback or entity command panics, the operation that raised it
// counts as processed. Everything after it, including the rest of its own
// request, goes back to the front of the queue before the panic propagates.
func (u *Universe) ProcessOperationRequests() ProcessReport {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	u.tick++
	reqs := u.drain()
	rep := ProcessReport{Tick: u.tick, Requests: len(reqs)}
	if u.warnThreshold > 0 && len(reqs) > u.warnThreshold {
		u.log.Warn("operation queue backlog",
			zap.Uint64("tick", u.tick),
			zap.Stringer("oldest_request", reqs[0].requestID()),
			zap.Int("pending", len(reqs)),
			zap.Int("threshold", u.warnThreshold))
		emit(u, event.QueueBacklog{Tick: u.tick, Pending: len(reqs), Threshold: u.warnThreshold})
	}

	current := 0
	defer func() {
		if r := recover(); r != nil {
			u.requeueAfterPanic(reqs[current:], r)
			panic(r)
		}
	}()
	for i, req := range reqs {
		current = i
		ops, failures := req.apply(u)
		rep.Operations += ops
		rep.Failures += failures
	}
	if rep.Requests > 0 {
		emit(u, event.RequestsProcessed{
			Tick:       rep.Tick,
			Requests:   rep.Requests,
			Operations: rep.Operations,
			Failures:   rep.Failures,
		})
	}
	return rep
}

// requeueAfterPanic puts rest back ahead of anything sent meanwhile. rest[0]
// is the request that panicked; apply has already cut its operations down to
// the ones it never reached.
func (u *Universe) requeueAfterPanic(rest []pendingRequest, cause any) {
	if len(rest) == 0 {
		return
	}
	failed := rest[0]
	if failed.remaining() == 0 {
		rest = rest[1:]
	}
	u.log.Error("operation drain interrupted by panic",
		zap.Stringer("request", failed.requestID()),
		zap.Any("panic", cause),
		zap.Int("requeued", len(rest)))
	if len(rest) == 0 {
		return
	}
	if err := u.queueMu.tryLock(); err != nil {
		return
	}
	defer u.queueMu.unlock()
	u.queue = append(slices.Clone(rest), u.queue...)
}

func (r *ChunkOperationRequest) apply(u *Universe) (ops, failures int) {
	i := 0
	defer func() {
		if rec := recover(); rec != nil {
			r.Operations = r.Operations[i+1:]
			panic(rec)
		}
	}()
	for ; i < len(r.Operations); i++ {
		op := r.Operations[i]
		id, err := u.applyChunk(op)
		if err != nil {
			failures++
			u.log.Debug("chunk operation failed",
				zap.Stringer("request", r.ID),
				zap.Stringer("op", op.Kind),
				zap.Error(err))
			if op.OnFailure != nil {
				op.OnFailure(err)
			}
			continue
		}
		if op.OnSuccess != nil {
			op.OnSuccess(id)
		}
	}
	return len(r.Operations), failures
}

func (r *EntityOperationRequest) apply(u *Universe) (ops, failures int) {
	i := 0
	defer func() {
		if rec := recover(); rec != nil {
			r.Operations = r.Operations[i+1:]
			panic(rec)
		}
	}()
	for ; i < len(r.Operations); i++ {
		op := r.Operations[i]
		id, err := u.applyEntity(op)
		if err != nil {
			failures++
			u.log.Debug("entity operation failed",
				zap.Stringer("request", r.ID),
				zap.Stringer("op", op.Kind),
				zap.Error(err))
			if op.OnFailure != nil {
				op.OnFailure(err)
			}
			continue
		}
		if op.OnSuccess != nil {
			op.OnSuccess(id)
		}
	}
	return len(r.Operations), failures
}

// ApplyChunkOperation runs op immediately and returns its outcome instead of
// invoking its callbacks.
func (u *Universe) ApplyChunkOperation(op ChunkOperation) (ChunkID, error) {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()
	return u.applyChunk(op)
}

// ApplyEntityOperation runs op immediately and returns its outcome instead of
// invoking its callbacks.
func (u *Universe) ApplyEntityOperation(op EntityOperation) (EntityID, error) {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()
	return u.applyEntity(op)
}

func emit[T any](u *Universe, ev T) {
	if u.bus != nil {
		event.Emit(u.bus, ev)
	}
}

// GetRegisteredChunk resolves id through the shadow hierarchy.
func (u *Universe) GetRegisteredChunk(id ChunkID) (*Chunk, bool) {
	return u.hierarchy.ChunkInfo(id)
}

func (u *Universe) GetRegisteredEntity(id EntityID) (*Entity, bool) {
	return u.hierarchy.EntityInfo(id)
}

func (u *Universe) IsChunkRegistered(id ChunkID) bool {
	return u.hierarchy.IsChunkInfoRegistered(id)
}

func (u *Universe) IsEntityRegistered(id EntityID) bool {
	return u.hierarchy.IsEntityInfoRegistered(id)
}

// RootChunkIDs lists root chunks in local ID order.
func (u *Universe) RootChunkIDs() []ChunkID {
	u.mu.lock()
	defer u.mu.unlock()
	locals := slices.Sorted(maps.Keys(u.roots))
	out := make([]ChunkID, len(locals))
	for i, l := range locals {
		out[i] = RootChunkID(l)
	}
	return out
}

func (u *Universe) rootChunks() []*Chunk {
	u.mu.lock()
	defer u.mu.unlock()
	return slices.Collect(maps.Values(u.roots))
}

// GenerateChunkID allocates a free local ID under parent, or among the roots
// when parent is nil. The ID is not reserved until registered.
func (u *Universe) GenerateChunkID(parent *ChunkID) (ChunkID, error) {
	if parent == nil {
		u.mu.lock()
		defer u.mu.unlock()
		local, err := u.rootIDs.generate(func(l LocalChunkID) bool { _, ok := u.roots[l]; return ok })
		if err != nil {
			return ChunkID{}, err
		}
		return RootChunkID(local), nil
	}
	p, ok := u.hierarchy.ChunkInfo(*parent)
	if !ok {
		return ChunkID{}, eris.Wrapf(ErrParentChunkNotRegistered, "generate under %s", *parent)
	}
	p.lock()
	defer p.unlock()
	if p.data == nil {
		return ChunkID{}, eris.Wrapf(ErrParentChunkDataNotLoaded, "generate under %s", *parent)
	}
	if p.data.children == nil {
		return ChunkID{}, eris.Wrapf(ErrParentChunkNotAllowedToHaveChildChunks, "generate under %s", *parent)
	}
	local, err := p.data.chunkIDs.generate(func(l LocalChunkID) bool { _, ok := p.data.children[l]; return ok })
	if err != nil {
		return ChunkID{}, err
	}
	return ChildChunkID(*parent, local), nil
}

// RecycleChunkID returns an unregistered local ID to its pool.
func (u *Universe) RecycleChunkID(id ChunkID) error {
	if !id.IsValid() {
		return ErrInvalidChunkID
	}
	parentID, hasParent := id.Parent()
	if !hasParent {
		u.mu.lock()
		defer u.mu.unlock()
		if _, ok := u.roots[id.Local()]; ok {
			return eris.Wrapf(ErrLocalIDStillRegistered, "recycle %s", id)
		}
		return u.rootIDs.recycle(id.Local())
	}
	p, ok := u.hierarchy.ChunkInfo(parentID)
	if !ok {
		return eris.Wrapf(ErrParentChunkNotRegistered, "recycle %s", id)
	}
	p.lock()
	defer p.unlock()
	if p.data == nil {
		return eris.Wrapf(ErrParentChunkDataNotLoaded, "recycle %s", id)
	}
	if _, ok := p.data.children[id.Local()]; ok {
		return eris.Wrapf(ErrLocalIDStillRegistered, "recycle %s", id)
	}
	return p.data.chunkIDs.recycle(id.Local())
}

// GenerateEntityID allocates a free local entity ID in chunk: recycled IDs
// first, then the chunk's counter.
func (u *Universe) GenerateEntityID(chunk ChunkID) (EntityID, error) {
	c, ok := u.hierarchy.ChunkInfo(chunk)
	if !ok {
		return EntityID{}, eris.Wrapf(ErrParentChunkNotRegistered, "generate in %s", chunk)
	}
	c.lock()
	defer c.unlock()
	if c.data == nil {
		return EntityID{}, eris.Wrapf(ErrParentChunkDataNotLoaded, "generate in %s", chunk)
	}
	local, err := c.data.entityIDs.generate(func(l LocalEntityID) bool { _, ok := c.data.entities[l]; return ok })
	if err != nil {
		return EntityID{}, err
	}
	return NewEntityID(chunk, local), nil
}

// RecycleEntityID returns an unregistered local entity ID to its chunk's
// pool. Recycling twice without an intervening generate fails.
func (u *Universe) RecycleEntityID(id EntityID) error {
	c, ok := u.hierarchy.ChunkInfo(id.Chunk)
	if !ok {
		return eris.Wrapf(ErrParentChunkNotRegistered, "recycle %s", id)
	}
	c.lock()
	defer c.unlock()
	if c.data == nil {
		return eris.Wrapf(ErrParentChunkDataNotLoaded, "recycle %s", id)
	}
	if _, ok := c.data.entities[id.Local]; ok {
		return eris.Wrapf(ErrLocalIDStillRegistered, "recycle %s", id)
	}
	return c.data.entityIDs.recycle(id.Local)
}

// Stats counts what the owning tree currently holds.
type Stats struct {
	Chunks          int
	Entities        int
	ChunksByStage   [3]int
	EntitiesByStage [3]int
	SpawnedChunks   int
	SpawnedEntities int
}

func (u *Universe) Stats() Stats {
	var s Stats
	var walk func(c *Chunk)
	walk = func(c *Chunk) {
		c.lock()
		s.Chunks++
		s.ChunksByStage[c.stage]++
		var kids []*Chunk
		var ents []*Entity
		if c.data != nil {
			if c.data.run == Spawned {
				s.SpawnedChunks++
			}
			kids = slices.Collect(maps.Values(c.data.children))
			ents = slices.Collect(maps.Values(c.data.entities))
		}
		c.unlock()
		for _, e := range ents {
			e.lock()
			s.Entities++
			s.EntitiesByStage[e.stage]++
			if e.data != nil && e.data.run == Spawned {
				s.SpawnedEntities++
			}
			e.unlock()
		}
		for _, k := range kids {
			walk(k)
		}
	}
	for _, r := range u.rootChunks() {
		walk(r)
	}
	return s
}

// VerifyConsistency walks the owning tree and checks that the shadow
// hierarchy resolves every chunk and entity to the same object and holds
// nothing else.
func (u *Universe) VerifyConsistency() error {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	var errs []error
	chunks, entities := 0, 0
	var walk func(c *Chunk)
	walk = func(c *Chunk) {
		chunks++
		if got, ok := u.hierarchy.ChunkInfo(c.id); !ok || got != c {
			errs = append(errs, eris.Wrapf(ErrChunkNotRegistered, "shadow lookup of %s", c.id))
		}
		for _, e := range c.entities() {
			entities++
			if e.id.Chunk != c.id {
				errs = append(errs, eris.Errorf("entity %s filed under %s", e.id, c.id))
			}
			if got, ok := u.hierarchy.EntityInfo(e.id); !ok || got != e {
				errs = append(errs, eris.Wrapf(ErrEntityNotRegistered, "shadow lookup of %s", e.id))
			}
		}
		for _, k := range c.children() {
			if !c.id.IsAncestorOf(k.id) || k.id.Depth() != c.id.Depth()+1 {
				errs = append(errs, eris.Errorf("chunk %s filed under %s", k.id, c.id))
			}
			walk(k)
		}
	}
	for _, r := range u.rootChunks() {
		walk(r)
	}
	sc, se := u.hierarchy.Counts()
	if sc != chunks || se != entities {
		errs = append(errs, eris.Errorf("shadow holds %d chunks and %d entities, owning tree %d and %d",
			sc, se, chunks, entities))
	}
	return errors.Join(errs...)
}
