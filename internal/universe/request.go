package universe

import (
	"maps"
	"strings"

	"github.com/google/uuid"
)

// ChunkOperationKind names a chunk lifecycle action.
type ChunkOperationKind int

const (
	ChunkRegisterRoot ChunkOperationKind = iota
	ChunkRegister
	ChunkUnregister
	ChunkLoadMetadata
	ChunkUnloadMetadata
	ChunkLoadData
	ChunkUnloadData
	ChunkSpawn
	ChunkDespawn
)

var chunkKindNames = [...]string{
	ChunkRegisterRoot:   "register_root",
	ChunkRegister:       "register",
	ChunkUnregister:     "unregister",
	ChunkLoadMetadata:   "load_metadata",
	ChunkUnloadMetadata: "unload_metadata",
	ChunkLoadData:       "load_data",
	ChunkUnloadData:     "unload_data",
	ChunkSpawn:          "spawn",
	ChunkDespawn:        "despawn",
}

func (k ChunkOperationKind) String() string {
	if k >= 0 && int(k) < len(chunkKindNames) {
		return chunkKindNames[k]
	}
	return "unknown"
}

// ParseChunkOperationKind maps a kind name back to its value.
func ParseChunkOperationKind(s string) (ChunkOperationKind, bool) {
	for k, name := range chunkKindNames {
		if name == s {
			return ChunkOperationKind(k), true
		}
	}
	return 0, false
}

// EntityOperationKind names an entity lifecycle action.
type EntityOperationKind int

const (
	EntityRegister EntityOperationKind = iota
	EntityUnregister
	EntityLoadMetadata
	EntityUnloadMetadata
	EntityLoadData
	EntityUnloadData
	EntitySpawn
	EntityDespawn
	EntityCommandOp
)

var entityKindNames = [...]string{
	EntityRegister:       "register",
	EntityUnregister:     "unregister",
	EntityLoadMetadata:   "load_metadata",
	EntityUnloadMetadata: "unload_metadata",
	EntityLoadData:       "load_data",
	EntityUnloadData:     "unload_data",
	EntitySpawn:          "spawn",
	EntityDespawn:        "despawn",
	EntityCommandOp:      "command",
}

func (k EntityOperationKind) String() string {
	if k >= 0 && int(k) < len(entityKindNames) {
		return entityKindNames[k]
	}
	return "unknown"
}

func ParseEntityOperationKind(s string) (EntityOperationKind, bool) {
	for k, name := range entityKindNames {
		if name == s {
			return EntityOperationKind(k), true
		}
	}
	return 0, false
}

// ChunkOperation is one chunk action plus its continuations. Which fields
// matter depends on Kind:
//
//	RegisterRoot: Local (or AutoID)
//	Register:     Parent, Local (or AutoID)
//	LoadMetadata: ID, Metadata
//	LoadData:     ID, Data
//	others:       ID
//
// OnSuccess receives the chunk the operation applied to; OnFailure receives
// an *OperationError. Either may be nil.
type ChunkOperation struct {
	Kind     ChunkOperationKind
	ID       ChunkID
	Parent   ChunkID
	Local    LocalChunkID
	AutoID   bool
	Metadata ChunkMetadata
	Data     ChunkData

	OnSuccess func(ChunkID)
	OnFailure func(error)
}

// WithCallbacks returns a copy of op carrying the given continuations.
func (op ChunkOperation) WithCallbacks(onSuccess func(ChunkID), onFailure func(error)) ChunkOperation {
	op.OnSuccess, op.OnFailure = onSuccess, onFailure
	return op
}

// targetName names the chunk in errors. Auto-ID registrations have no local
// ID until they succeed, so they name the parent with an <auto> segment.
func (op ChunkOperation) targetName() string {
	switch op.Kind {
	case ChunkRegisterRoot:
		if op.AutoID {
			return "chunk/<auto>"
		}
		return RootChunkID(op.Local).String()
	case ChunkRegister:
		if op.AutoID {
			return op.Parent.String() + "/<auto>"
		}
		return ChildChunkID(op.Parent, op.Local).String()
	}
	return op.ID.String()
}

func RegisterRootChunkOp(local LocalChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkRegisterRoot, Local: local}
}

// RegisterRootChunkAutoOp registers a root chunk under a generated local ID.
func RegisterRootChunkAutoOp() ChunkOperation {
	return ChunkOperation{Kind: ChunkRegisterRoot, AutoID: true}
}

func RegisterChunkOp(parent ChunkID, local LocalChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkRegister, Parent: parent, Local: local}
}

func RegisterChunkAutoOp(parent ChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkRegister, Parent: parent, AutoID: true}
}

func UnregisterChunkOp(id ChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkUnregister, ID: id}
}

func LoadChunkMetadataOp(id ChunkID, meta ChunkMetadata) ChunkOperation {
	meta.Properties = maps.Clone(meta.Properties)
	return ChunkOperation{Kind: ChunkLoadMetadata, ID: id, Metadata: meta}
}

func UnloadChunkMetadataOp(id ChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkUnloadMetadata, ID: id}
}

func LoadChunkDataOp(id ChunkID, data ChunkData) ChunkOperation {
	data.Properties = maps.Clone(data.Properties)
	return ChunkOperation{Kind: ChunkLoadData, ID: id, Data: data}
}

func UnloadChunkDataOp(id ChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkUnloadData, ID: id}
}

func SpawnChunkOp(id ChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkSpawn, ID: id}
}

func DespawnChunkOp(id ChunkID) ChunkOperation {
	return ChunkOperation{Kind: ChunkDespawn, ID: id}
}

// EntityOperation is one entity action plus its continuations.
//
//	Register:     Chunk, ID.Local (or AutoID)
//	LoadMetadata: ID, Metadata
//	LoadData:     ID, Data
//	Command:      ID, Command
//	others:       ID
type EntityOperation struct {
	Kind     EntityOperationKind
	ID       EntityID
	AutoID   bool
	Metadata EntityMetadata
	Data     EntityData
	Command  EntityCommand

	OnSuccess func(EntityID)
	OnFailure func(error)
}

func (op EntityOperation) WithCallbacks(onSuccess func(EntityID), onFailure func(error)) EntityOperation {
	op.OnSuccess, op.OnFailure = onSuccess, onFailure
	return op
}

// targetName names the entity in errors; see ChunkOperation.targetName.
func (op EntityOperation) targetName() string {
	if op.Kind == EntityRegister && op.AutoID {
		return "entity" + strings.TrimPrefix(op.ID.Chunk.String(), "chunk") + "#<auto>"
	}
	return op.ID.String()
}

func RegisterEntityOp(id EntityID) EntityOperation {
	return EntityOperation{Kind: EntityRegister, ID: id}
}

// RegisterEntityAutoOp registers an entity in chunk under a generated local ID.
func RegisterEntityAutoOp(chunk ChunkID) EntityOperation {
	return EntityOperation{Kind: EntityRegister, ID: EntityID{Chunk: chunk}, AutoID: true}
}

func UnregisterEntityOp(id EntityID) EntityOperation {
	return EntityOperation{Kind: EntityUnregister, ID: id}
}

func LoadEntityMetadataOp(id EntityID, meta EntityMetadata) EntityOperation {
	meta.Properties = maps.Clone(meta.Properties)
	return EntityOperation{Kind: EntityLoadMetadata, ID: id, Metadata: meta}
}

func UnloadEntityMetadataOp(id EntityID) EntityOperation {
	return EntityOperation{Kind: EntityUnloadMetadata, ID: id}
}

func LoadEntityDataOp(id EntityID, data EntityData) EntityOperation {
	data.Properties = maps.Clone(data.Properties)
	return EntityOperation{Kind: EntityLoadData, ID: id, Data: data}
}

func UnloadEntityDataOp(id EntityID) EntityOperation {
	return EntityOperation{Kind: EntityUnloadData, ID: id}
}

func SpawnEntityOp(id EntityID) EntityOperation {
	return EntityOperation{Kind: EntitySpawn, ID: id}
}

func DespawnEntityOp(id EntityID) EntityOperation {
	return EntityOperation{Kind: EntityDespawn, ID: id}
}

func CommandEntityOp(id EntityID, cmd EntityCommand) EntityOperation {
	return EntityOperation{Kind: EntityCommandOp, ID: id, Command: cmd}
}

// ChunkOperationRequest is an ordered batch of chunk operations.
type ChunkOperationRequest struct {
	ID         uuid.UUID
	Operations []ChunkOperation
}

func NewChunkOperationRequest(ops ...ChunkOperation) *ChunkOperationRequest {
	return &ChunkOperationRequest{ID: uuid.New(), Operations: ops}
}

// EntityOperationRequest is an ordered batch of entity operations.
type EntityOperationRequest struct {
	ID         uuid.UUID
	Operations []EntityOperation
}

func NewEntityOperationRequest(ops ...EntityOperation) *EntityOperationRequest {
	return &EntityOperationRequest{ID: uuid.New(), Operations: ops}
}

// pendingRequest is either request type waiting in the queue.
type pendingRequest interface {
	requestID() uuid.UUID
	remaining() int
	apply(u *Universe) (ops, failures int)
}

func (r *ChunkOperationRequest) requestID() uuid.UUID  { return r.ID }
func (r *EntityOperationRequest) requestID() uuid.UUID { return r.ID }

func (r *ChunkOperationRequest) remaining() int  { return len(r.Operations) }
func (r *EntityOperationRequest) remaining() int { return len(r.Operations) }
