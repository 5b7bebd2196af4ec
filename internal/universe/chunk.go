package universe

import (
	"maps"
	"slices"

	"github.com/l1jgo/universe/internal/core/ecs"
)

// Stage is the load stage of a chunk or entity.
type Stage int

const (
	StageRegistered Stage = iota
	StageMetadataLoaded
	StageDataLoaded
)

func (s Stage) String() string {
	switch s {
	case StageRegistered:
		return "registered"
	case StageMetadataLoaded:
		return "metadata_loaded"
	case StageDataLoaded:
		return "data_loaded"
	}
	return "unknown"
}

// RunState says whether a data-loaded chunk or entity is live in the host.
type RunState int

const (
	Despawned RunState = iota
	Spawned
)

func (r RunState) String() string {
	if r == Spawned {
		return "spawned"
	}
	return "despawned"
}

// ChunkMetadata is the descriptive part of a chunk, loaded before its data.
type ChunkMetadata struct {
	Name       string
	Properties map[string]string
}

// ChunkData is the payload supplied when loading chunk data. Leaf chunks
// can never hold child chunks.
type ChunkData struct {
	Leaf       bool
	Properties map[string]string
}

// chunkData is what a DataLoaded chunk owns.
type chunkData struct {
	run        RunState
	leaf       bool
	properties map[string]string
	// nil for leaf chunks
	children map[LocalChunkID]*Chunk
	entities map[LocalEntityID]*Entity
	chunkIDs  localIDPool[LocalChunkID]
	entityIDs localIDPool[LocalEntityID]
}

// Chunk is one node of the owning tree. Each chunk is locked on its own;
// the universe locks a parent before any of its children.
type Chunk struct {
	guard
	id     ChunkID
	handle ecs.Handle
	stage  Stage
	meta   ChunkMetadata
	data   *chunkData
}

func newChunk(id ChunkID, handle ecs.Handle) *Chunk {
	return &Chunk{id: id, handle: handle, stage: StageRegistered}
}

func (c *Chunk) ID() ChunkID { return c.id }

// Handle is the host placeholder created when the chunk was registered.
func (c *Chunk) Handle() ecs.Handle { return c.handle }

func (c *Chunk) Stage() Stage {
	c.lock()
	defer c.unlock()
	return c.stage
}

// RunState reports false when the chunk has no data loaded.
func (c *Chunk) RunState() (RunState, bool) {
	c.lock()
	defer c.unlock()
	if c.data == nil {
		return Despawned, false
	}
	return c.data.run, true
}

func (c *Chunk) Metadata() (ChunkMetadata, bool) {
	c.lock()
	defer c.unlock()
	if c.stage == StageRegistered {
		return ChunkMetadata{}, false
	}
	return ChunkMetadata{Name: c.meta.Name, Properties: maps.Clone(c.meta.Properties)}, true
}

func (c *Chunk) Data() (ChunkData, bool) {
	c.lock()
	defer c.unlock()
	if c.data == nil {
		return ChunkData{}, false
	}
	return ChunkData{Leaf: c.data.leaf, Properties: maps.Clone(c.data.properties)}, true
}

// ChunkSnapshot is a point-in-time copy of a chunk's state. Data, RunState
// and the child and entity lists are only set once data is loaded.
type ChunkSnapshot struct {
	ID          ChunkID
	Handle      ecs.Handle
	Stage       Stage
	Metadata    ChunkMetadata
	Data        *ChunkData
	RunState    RunState
	ChildChunks []ChunkID
	Entities    []EntityID
}

func (c *Chunk) Snapshot() ChunkSnapshot {
	c.lock()
	defer c.unlock()
	s := ChunkSnapshot{ID: c.id, Handle: c.handle, Stage: c.stage}
	if c.stage != StageRegistered {
		s.Metadata = ChunkMetadata{Name: c.meta.Name, Properties: maps.Clone(c.meta.Properties)}
	}
	if c.data != nil {
		s.Data = &ChunkData{Leaf: c.data.leaf, Properties: maps.Clone(c.data.properties)}
		s.RunState = c.data.run
		s.ChildChunks = c.childIDsLocked()
		s.Entities = c.entityIDsLocked()
	}
	return s
}

// EntityIDs lists registered entities in local ID order.
func (c *Chunk) EntityIDs() []EntityID {
	c.lock()
	defer c.unlock()
	return c.entityIDsLocked()
}

func (c *Chunk) childIDsLocked() []ChunkID {
	if c.data == nil || len(c.data.children) == 0 {
		return nil
	}
	locals := slices.Sorted(maps.Keys(c.data.children))
	out := make([]ChunkID, len(locals))
	for i, l := range locals {
		out[i] = ChildChunkID(c.id, l)
	}
	return out
}

func (c *Chunk) entityIDsLocked() []EntityID {
	if c.data == nil || len(c.data.entities) == 0 {
		return nil
	}
	locals := slices.Sorted(maps.Keys(c.data.entities))
	out := make([]EntityID, len(locals))
	for i, l := range locals {
		out[i] = NewEntityID(c.id, l)
	}
	return out
}

// isSpawned locks c on its own; callers hold only ancestors.
func (c *Chunk) isSpawned() bool {
	c.lock()
	defer c.unlock()
	return c.data != nil && c.data.run == Spawned
}

// children returns the direct child chunks, or nil without data.
func (c *Chunk) children() []*Chunk {
	c.lock()
	defer c.unlock()
	if c.data == nil {
		return nil
	}
	return slices.Collect(maps.Values(c.data.children))
}

func (c *Chunk) entities() []*Entity {
	c.lock()
	defer c.unlock()
	if c.data == nil {
		return nil
	}
	return slices.Collect(maps.Values(c.data.entities))
}
