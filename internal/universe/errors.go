package universe

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Chunk precondition failures.
var (
	ErrChunkAlreadyRegistered                 = eris.New("chunk already registered")
	ErrChunkNotRegistered                     = eris.New("chunk not registered")
	ErrParentChunkNotRegistered               = eris.New("parent chunk not registered")
	ErrParentChunkDataNotLoaded               = eris.New("parent chunk data not loaded")
	ErrParentChunkNotAllowedToHaveChildChunks = eris.New("parent chunk not allowed to have child chunks")
	ErrParentChunkNotSpawned                  = eris.New("parent chunk not spawned")
	ErrWrongParentChunk                       = eris.New("wrong parent chunk")
	ErrChunkMetadataAlreadyLoaded             = eris.New("chunk metadata already loaded")
	ErrChunkMetadataNotLoaded                 = eris.New("chunk metadata not loaded")
	ErrChunkMetadataStillLoaded               = eris.New("chunk metadata still loaded")
	ErrChunkDataAlreadyLoaded                 = eris.New("chunk data already loaded")
	ErrChunkDataNotLoaded                     = eris.New("chunk data not loaded")
	ErrChunkDataStillLoaded                   = eris.New("chunk data still loaded")
	ErrChildChunksStillRegistered             = eris.New("child chunks still registered")
	ErrEntitiesStillRegistered                = eris.New("entities still registered")
	ErrChunkStillSpawned                      = eris.New("chunk still spawned")
	ErrChunkAlreadySpawned                    = eris.New("chunk already spawned")
	ErrChunkAlreadyDespawned                  = eris.New("chunk already despawned")
	ErrChildChunksStillSpawned                = eris.New("child chunks still spawned")
	ErrEntitiesStillSpawned                   = eris.New("entities still spawned")
)

// Entity precondition failures.
var (
	ErrEntityAlreadyRegistered     = eris.New("entity already registered")
	ErrEntityNotRegistered         = eris.New("entity not registered")
	ErrEntityMetadataAlreadyLoaded = eris.New("entity metadata already loaded")
	ErrEntityMetadataNotLoaded     = eris.New("entity metadata not loaded")
	ErrEntityMetadataStillLoaded   = eris.New("entity metadata still loaded")
	ErrEntityDataAlreadyLoaded     = eris.New("entity data already loaded")
	ErrEntityDataNotLoaded         = eris.New("entity data not loaded")
	ErrEntityDataStillLoaded       = eris.New("entity data still loaded")
	ErrEntityStillSpawned          = eris.New("entity still spawned")
	ErrEntityAlreadySpawned        = eris.New("entity already spawned")
	ErrEntityAlreadyDespawned      = eris.New("entity already despawned")
	ErrEntityNotSpawned            = eris.New("entity not spawned")
	ErrEntityCommandFailed         = eris.New("entity command failed")
)

// Identifier and request failures.
var (
	ErrInvalidLocalID         = eris.New("invalid local id")
	ErrInvalidChunkID         = eris.New("invalid chunk id")
	ErrLocalIDAlreadyRecycled = eris.New("local id already recycled")
	ErrLocalIDStillRegistered = eris.New("local id still registered")
	ErrLocalIDsExhausted      = eris.New("local id space exhausted")
	ErrInvalidOperation       = eris.New("invalid operation")
)

// ErrPoisoned is raised as a panic, never returned, when a lock is acquired
// after a previous holder panicked. The guarded state may be half mutated.
var ErrPoisoned = eris.New("lock poisoned by panicking holder")

func invalidLocalID(v int64) error {
	return eris.Wrapf(ErrInvalidLocalID, "%d out of range", v)
}

// OperationError reports which operation failed on which target. It unwraps
// to one of the sentinel errors above.
type OperationError struct {
	Op     string
	Target string
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func chunkOpError(kind ChunkOperationKind, target string, err error) error {
	return &OperationError{Op: "chunk " + kind.String(), Target: target, Err: err}
}

func entityOpError(kind EntityOperationKind, target string, err error) error {
	return &OperationError{Op: "entity " + kind.String(), Target: target, Err: err}
}
