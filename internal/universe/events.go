package universe

import "github.com/l1jgo/universe/internal/core/ecs"

// ChunkEvent is emitted after a chunk operation succeeds.
type ChunkEvent struct {
	Kind   ChunkOperationKind
	ID     ChunkID
	Handle ecs.Handle
}

// EntityEvent is emitted after an entity operation succeeds.
type EntityEvent struct {
	Kind   EntityOperationKind
	ID     EntityID
	Handle ecs.Handle
}
