package universe

import (
	"errors"
	"testing"

	"github.com/l1jgo/universe/internal/core/ecs"
	"github.com/l1jgo/universe/internal/core/event"
	"go.uber.org/zap"
)

type fixture struct {
	u    *Universe
	host *WorldHost
	bus  *event.Bus
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	host := NewWorldHost(ecs.NewWorld())
	bus := event.NewBus()
	return &fixture{u: New(host, bus, zap.NewNop(), opts...), host: host, bus: bus}
}

func (f *fixture) chunk(t *testing.T, op ChunkOperation) ChunkID {
	t.Helper()
	id, err := f.u.ApplyChunkOperation(op)
	if err != nil {
		t.Fatalf("%s: %v", op.Kind, err)
	}
	return id
}

func (f *fixture) entity(t *testing.T, op EntityOperation) EntityID {
	t.Helper()
	id, err := f.u.ApplyEntityOperation(op)
	if err != nil {
		t.Fatalf("%s: %v", op.Kind, err)
	}
	return id
}

func (f *fixture) chunkFails(t *testing.T, op ChunkOperation, want error) {
	t.Helper()
	_, err := f.u.ApplyChunkOperation(op)
	if !errors.Is(err, want) {
		t.Fatalf("%s: expected %v, got %v", op.Kind, want, err)
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("%s: expected *OperationError, got %T", op.Kind, err)
	}
}

func (f *fixture) entityFails(t *testing.T, op EntityOperation, want error) {
	t.Helper()
	_, err := f.u.ApplyEntityOperation(op)
	if !errors.Is(err, want) {
		t.Fatalf("%s: expected %v, got %v", op.Kind, want, err)
	}
}

// loadedRoot registers root chunk local with data loaded.
func (f *fixture) loadedRoot(t *testing.T, local LocalChunkID, leaf bool) ChunkID {
	t.Helper()
	id := f.chunk(t, RegisterRootChunkOp(local))
	f.chunk(t, LoadChunkMetadataOp(id, ChunkMetadata{Name: "root"}))
	f.chunk(t, LoadChunkDataOp(id, ChunkData{Leaf: leaf}))
	return id
}

func (f *fixture) loadedChild(t *testing.T, parent ChunkID, local LocalChunkID, leaf bool) ChunkID {
	t.Helper()
	id := f.chunk(t, RegisterChunkOp(parent, local))
	f.chunk(t, LoadChunkMetadataOp(id, ChunkMetadata{Name: "child"}))
	f.chunk(t, LoadChunkDataOp(id, ChunkData{Leaf: leaf}))
	return id
}

func (f *fixture) loadedEntity(t *testing.T, chunk ChunkID, local LocalEntityID) EntityID {
	t.Helper()
	id := f.entity(t, RegisterEntityOp(NewEntityID(chunk, local)))
	f.entity(t, LoadEntityMetadataOp(id, EntityMetadata{Name: "e"}))
	f.entity(t, LoadEntityDataOp(id, EntityData{}))
	return id
}

func (f *fixture) consistent(t *testing.T) {
	t.Helper()
	if err := f.u.VerifyConsistency(); err != nil {
		t.Fatalf("owning tree and shadow hierarchy diverged: %v", err)
	}
}
