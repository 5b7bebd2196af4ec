package universe

import (
	"maps"

	"github.com/l1jgo/universe/internal/core/ecs"
)

type EntityMetadata struct {
	Name       string
	Properties map[string]string
}

type EntityData struct {
	Properties map[string]string
}

type entityData struct {
	run        RunState
	properties map[string]string
}

// Entity is a leaf of the owning tree, owned by exactly one chunk.
type Entity struct {
	guard
	id     EntityID
	handle ecs.Handle
	stage  Stage
	meta   EntityMetadata
	data   *entityData
}

func newEntity(id EntityID, handle ecs.Handle) *Entity {
	return &Entity{id: id, handle: handle, stage: StageRegistered}
}

func (e *Entity) ID() EntityID { return e.id }

func (e *Entity) Handle() ecs.Handle { return e.handle }

func (e *Entity) Stage() Stage {
	e.lock()
	defer e.unlock()
	return e.stage
}

func (e *Entity) RunState() (RunState, bool) {
	e.lock()
	defer e.unlock()
	if e.data == nil {
		return Despawned, false
	}
	return e.data.run, true
}

func (e *Entity) Metadata() (EntityMetadata, bool) {
	e.lock()
	defer e.unlock()
	if e.stage == StageRegistered {
		return EntityMetadata{}, false
	}
	return EntityMetadata{Name: e.meta.Name, Properties: maps.Clone(e.meta.Properties)}, true
}

func (e *Entity) Data() (EntityData, bool) {
	e.lock()
	defer e.unlock()
	if e.data == nil {
		return EntityData{}, false
	}
	return EntityData{Properties: maps.Clone(e.data.properties)}, true
}

func (e *Entity) isSpawned() bool {
	e.lock()
	defer e.unlock()
	return e.data != nil && e.data.run == Spawned
}
