package universe

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

func TestHierarchyInsertAndResolve(t *testing.T) {
	h := NewHierarchy()
	rootID := RootChunkID(0)
	root := newChunk(rootID, 0)

	if err := h.InsertChunkInfo(nil, 0, root); err != nil {
		t.Fatalf("insert root: %v", err)
	}
	if err := h.InsertChunkInfo(nil, 0, root); !errors.Is(err, ErrChunkAlreadyRegistered) {
		t.Fatalf("expected duplicate root to fail, got %v", err)
	}

	childID := ChildChunkID(rootID, 2)
	child := newChunk(childID, 0)
	if err := h.InsertChunkInfo(&rootID, 2, child); !errors.Is(err, ErrParentChunkDataNotLoaded) {
		t.Fatalf("expected parent without data to refuse children, got %v", err)
	}
	if err := h.SetChunkInfoData(rootID, true, false); err != nil {
		t.Fatal(err)
	}
	if err := h.InsertChunkInfo(&rootID, 2, child); err != nil {
		t.Fatalf("insert child: %v", err)
	}

	got, ok := h.ChunkInfo(childID)
	if !ok || got != child {
		t.Fatalf("expected child to resolve")
	}
	if h.IsChunkInfoRegistered(ChildChunkID(rootID, 3)) {
		t.Fatalf("unregistered sibling must not resolve")
	}
	if h.IsChunkInfoRegistered(ChildChunkID(ChildChunkID(RootChunkID(9), 2), 0)) {
		t.Fatalf("missing ancestor must read as not found")
	}
}

func TestHierarchyRejectsLeafParentAndWrongID(t *testing.T) {
	h := NewHierarchy()
	rootID := RootChunkID(1)
	if err := h.InsertChunkInfo(nil, 1, newChunk(rootID, 0)); err != nil {
		t.Fatal(err)
	}
	if err := h.SetChunkInfoData(rootID, true, true); err != nil {
		t.Fatal(err)
	}
	if err := h.InsertChunkInfo(&rootID, 0, newChunk(ChildChunkID(rootID, 0), 0)); !errors.Is(err, ErrParentChunkNotAllowedToHaveChildChunks) {
		t.Fatalf("expected leaf parent refusal, got %v", err)
	}
	if err := h.InsertChunkInfo(nil, 7, newChunk(RootChunkID(8), 0)); !errors.Is(err, ErrWrongParentChunk) {
		t.Fatalf("expected id mismatch to fail, got %v", err)
	}
	missing := RootChunkID(5)
	if err := h.InsertChunkInfo(&missing, 0, newChunk(ChildChunkID(missing, 0), 0)); !errors.Is(err, ErrParentChunkNotRegistered) {
		t.Fatalf("expected missing parent to fail, got %v", err)
	}
}

func TestHierarchyEntities(t *testing.T) {
	h := NewHierarchy()
	rootID := RootChunkID(0)
	if err := h.InsertChunkInfo(nil, 0, newChunk(rootID, 0)); err != nil {
		t.Fatal(err)
	}
	eid := NewEntityID(rootID, 4)
	e := newEntity(eid, 0)

	if err := h.InsertEntityInfo(rootID, 4, e); !errors.Is(err, ErrParentChunkDataNotLoaded) {
		t.Fatalf("expected entity insert to need data, got %v", err)
	}
	if err := h.SetChunkInfoData(rootID, true, true); err != nil {
		t.Fatal(err)
	}
	if err := h.InsertEntityInfo(rootID, 4, e); err != nil {
		t.Fatalf("insert entity: %v", err)
	}
	if err := h.InsertEntityInfo(rootID, 4, e); !errors.Is(err, ErrEntityAlreadyRegistered) {
		t.Fatalf("expected duplicate entity to fail, got %v", err)
	}
	if got, ok := h.EntityInfo(eid); !ok || got != e {
		t.Fatalf("expected entity to resolve")
	}
	if _, entities := h.Counts(); entities != 1 {
		t.Fatalf("expected 1 entity node, got %d", entities)
	}

	if err := h.RemoveEntityInfo(eid); err != nil {
		t.Fatalf("remove entity: %v", err)
	}
	if err := h.RemoveEntityInfo(eid); !errors.Is(err, ErrEntityNotRegistered) {
		t.Fatalf("expected second remove to fail, got %v", err)
	}
	if h.IsEntityInfoRegistered(eid) {
		t.Fatalf("removed entity must not resolve")
	}
}

func TestHierarchyRemoveChunk(t *testing.T) {
	h := NewHierarchy()
	rootID := RootChunkID(0)
	if err := h.InsertChunkInfo(nil, 0, newChunk(rootID, 0)); err != nil {
		t.Fatal(err)
	}
	if err := h.RemoveChunkInfo(rootID); err != nil {
		t.Fatalf("remove root: %v", err)
	}
	if err := h.RemoveChunkInfo(rootID); !errors.Is(err, ErrChunkNotRegistered) {
		t.Fatalf("expected missing root, got %v", err)
	}
	if err := h.RemoveChunkInfo(ChildChunkID(rootID, 1)); !errors.Is(err, ErrChunkNotRegistered) {
		t.Fatalf("expected missing child, got %v", err)
	}
}

func TestHierarchyDoesNotKeepChunksAlive(t *testing.T) {
	h := NewHierarchy()
	id := RootChunkID(3)
	func() {
		if err := h.InsertChunkInfo(nil, 3, newChunk(id, 0)); err != nil {
			t.Fatal(err)
		}
	}()
	for i := 0; i < 10 && h.IsChunkInfoRegistered(id); i++ {
		runtime.GC()
	}
	if h.IsChunkInfoRegistered(id) {
		t.Fatalf("shadow index must not be the sole owner of a chunk")
	}
}

func TestVerifyConsistencyCatchesMisfiledChunk(t *testing.T) {
	f := newFixture(t)
	root := f.loadedRoot(t, 0, false)
	child := f.chunk(t, RegisterChunkOp(root, 1))
	f.consistent(t)

	c, _ := f.u.GetRegisteredChunk(child)
	c.id = ChildChunkID(RootChunkID(7), 1)
	err := f.u.VerifyConsistency()
	if err == nil || !strings.Contains(err.Error(), "filed under "+root.String()) {
		t.Fatalf("expected misfiled child to be reported, got %v", err)
	}
}
