package universe

import (
	"testing"
)

func TestRegisterRootChunkTwice(t *testing.T) {
	f := newFixture(t)
	id := f.chunk(t, RegisterRootChunkOp(0))
	before := f.u.Stats()

	f.chunkFails(t, RegisterRootChunkOp(0), ErrChunkAlreadyRegistered)

	if after := f.u.Stats(); after != before {
		t.Fatalf("failed registration changed state: %+v -> %+v", before, after)
	}
	c, ok := f.u.GetRegisteredChunk(id)
	if !ok || c.Stage() != StageRegistered {
		t.Fatalf("expected registered root chunk")
	}
	f.consistent(t)
}

func TestRegisterChildChunkPreconditions(t *testing.T) {
	f := newFixture(t)
	root := f.chunk(t, RegisterRootChunkOp(0))

	f.chunkFails(t, RegisterChunkOp(RootChunkID(5), 0), ErrParentChunkNotRegistered)
	f.chunkFails(t, RegisterChunkOp(root, 0), ErrParentChunkDataNotLoaded)

	leaf := f.loadedRoot(t, 1, true)
	f.chunkFails(t, RegisterChunkOp(leaf, 0), ErrParentChunkNotAllowedToHaveChildChunks)

	parent := f.loadedRoot(t, 2, false)
	child := f.chunk(t, RegisterChunkOp(parent, 7))
	if child != ChildChunkID(parent, 7) {
		t.Fatalf("unexpected child id %s", child)
	}
	f.chunkFails(t, RegisterChunkOp(parent, 7), ErrChunkAlreadyRegistered)
	f.consistent(t)
}

func TestChunkStageOrdering(t *testing.T) {
	f := newFixture(t)
	id := f.chunk(t, RegisterRootChunkOp(0))

	f.chunkFails(t, LoadChunkDataOp(id, ChunkData{}), ErrChunkMetadataNotLoaded)
	f.chunkFails(t, UnloadChunkMetadataOp(id), ErrChunkMetadataNotLoaded)

	f.chunk(t, LoadChunkMetadataOp(id, ChunkMetadata{Name: "a"}))
	f.chunkFails(t, LoadChunkMetadataOp(id, ChunkMetadata{Name: "b"}), ErrChunkMetadataAlreadyLoaded)
	f.chunk(t, UnloadChunkMetadataOp(id))
	f.chunk(t, LoadChunkMetadataOp(id, ChunkMetadata{Name: "c", Properties: map[string]string{"k": "v"}}))

	c, _ := f.u.GetRegisteredChunk(id)
	meta, ok := c.Metadata()
	if !ok || meta.Name != "c" || meta.Properties["k"] != "v" {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	f.chunk(t, LoadChunkDataOp(id, ChunkData{}))
	f.chunkFails(t, LoadChunkDataOp(id, ChunkData{}), ErrChunkDataAlreadyLoaded)
	f.chunkFails(t, UnloadChunkMetadataOp(id), ErrChunkDataStillLoaded)
	if c.Stage() != StageDataLoaded {
		t.Fatalf("expected data loaded, got %s", c.Stage())
	}
}

func TestUnloadChunkDataGuards(t *testing.T) {
	f := newFixture(t)
	root := f.loadedRoot(t, 0, false)

	f.chunk(t, SpawnChunkOp(root))
	f.chunkFails(t, UnloadChunkDataOp(root), ErrChunkStillSpawned)
	f.chunk(t, DespawnChunkOp(root))

	child := f.chunk(t, RegisterChunkOp(root, 0))
	f.chunkFails(t, UnloadChunkDataOp(root), ErrChildChunksStillRegistered)
	f.chunk(t, UnregisterChunkOp(child))

	e := f.entity(t, RegisterEntityOp(NewEntityID(root, 0)))
	f.chunkFails(t, UnloadChunkDataOp(root), ErrEntitiesStillRegistered)
	f.entity(t, UnregisterEntityOp(e))

	f.chunk(t, UnloadChunkDataOp(root))
	c, _ := f.u.GetRegisteredChunk(root)
	if c.Stage() != StageMetadataLoaded {
		t.Fatalf("expected metadata loaded after unload, got %s", c.Stage())
	}
	f.chunkFails(t, UnloadChunkDataOp(root), ErrChunkDataNotLoaded)
	f.consistent(t)
}

func TestUnregisterChunkRequiresRegisteredStage(t *testing.T) {
	f := newFixture(t)
	root := f.loadedRoot(t, 0, false)
	f.chunk(t, SpawnChunkOp(root))

	f.chunkFails(t, UnregisterChunkOp(root), ErrChunkStillSpawned)
	f.chunk(t, DespawnChunkOp(root))
	f.chunkFails(t, UnregisterChunkOp(root), ErrChunkDataStillLoaded)
	f.chunk(t, UnloadChunkDataOp(root))
	f.chunkFails(t, UnregisterChunkOp(root), ErrChunkMetadataStillLoaded)
	f.chunk(t, UnloadChunkMetadataOp(root))

	c, _ := f.u.GetRegisteredChunk(root)
	f.chunk(t, UnregisterChunkOp(root))
	if f.u.IsChunkRegistered(root) {
		t.Fatalf("unregistered chunk still resolves")
	}
	f.chunkFails(t, UnregisterChunkOp(root), ErrChunkNotRegistered)

	if !f.host.Alive(c.Handle()) {
		t.Fatalf("handle destruction is deferred to the flush")
	}
	if ref, ok := f.host.chunkRefs.Get(c.Handle()); !ok || ref.ID != root {
		t.Fatalf("back-reference must survive until the flush, got %v", ref)
	}
	f.host.Flush()
	if f.host.Alive(c.Handle()) {
		t.Fatalf("expected chunk handle to be destroyed after flush")
	}
	if f.host.chunkRefs.Has(c.Handle()) {
		t.Fatalf("flush must drop the back-reference")
	}
	f.consistent(t)
}

func TestSpawnRequiresSpawnedParent(t *testing.T) {
	f := newFixture(t)
	root := f.loadedRoot(t, 0, false)
	child := f.loadedChild(t, root, 0, false)

	f.chunkFails(t, SpawnChunkOp(child), ErrParentChunkNotSpawned)
	f.chunk(t, SpawnChunkOp(root))
	f.chunk(t, SpawnChunkOp(child))
	f.chunkFails(t, SpawnChunkOp(child), ErrChunkAlreadySpawned)

	c, _ := f.u.GetRegisteredChunk(child)
	if rs, ok := c.RunState(); !ok || rs != Spawned {
		t.Fatalf("expected child spawned, got %s", rs)
	}
	if !f.host.IsActive(c.Handle()) {
		t.Fatalf("expected host handle to be marked active")
	}
}

func TestRootChunkHasImplicitSpawnedParent(t *testing.T) {
	f := newFixture(t)
	root := f.chunk(t, RegisterRootChunkOp(3))
	f.chunkFails(t, SpawnChunkOp(root), ErrChunkDataNotLoaded)
	f.chunk(t, LoadChunkMetadataOp(root, ChunkMetadata{}))
	f.chunk(t, LoadChunkDataOp(root, ChunkData{}))
	f.chunk(t, SpawnChunkOp(root))
}

func TestDespawnRequiresDespawnedChildren(t *testing.T) {
	f := newFixture(t)
	root := f.loadedRoot(t, 0, false)
	child := f.loadedChild(t, root, 0, true)
	e := f.loadedEntity(t, root, 0)

	f.chunkFails(t, DespawnChunkOp(root), ErrChunkAlreadyDespawned)
	f.chunk(t, SpawnChunkOp(root))
	f.chunk(t, SpawnChunkOp(child))
	f.entity(t, SpawnEntityOp(e))

	f.chunkFails(t, DespawnChunkOp(root), ErrChildChunksStillSpawned)
	f.chunk(t, DespawnChunkOp(child))
	f.chunkFails(t, DespawnChunkOp(root), ErrEntitiesStillSpawned)
	f.entity(t, DespawnEntityOp(e))
	f.chunk(t, DespawnChunkOp(root))

	c, _ := f.u.GetRegisteredChunk(root)
	if rs, _ := c.RunState(); rs != Despawned {
		t.Fatalf("expected root despawned, got %s", rs)
	}
	if f.host.IsActive(c.Handle()) {
		t.Fatalf("expected host handle to be inactive")
	}
}

func TestChunkIDGeneration(t *testing.T) {
	f := newFixture(t)
	first, err := f.u.GenerateChunkID(nil)
	if err != nil || first != RootChunkID(0) {
		t.Fatalf("expected root 0, got %s (%v)", first, err)
	}
	f.chunk(t, RegisterRootChunkOp(0))
	f.chunk(t, RegisterRootChunkOp(1))
	next, _ := f.u.GenerateChunkID(nil)
	if next != RootChunkID(2) {
		t.Fatalf("expected counter to skip registered roots, got %s", next)
	}

	f.chunk(t, UnregisterChunkOp(RootChunkID(0)))
	reused, _ := f.u.GenerateChunkID(nil)
	if reused != RootChunkID(0) {
		t.Fatalf("expected unregistered root id to be reused, got %s", reused)
	}

	auto := f.chunk(t, RegisterRootChunkAutoOp())
	if auto != RootChunkID(3) {
		t.Fatalf("expected auto root 3, got %s", auto)
	}

	parent := f.loadedRoot(t, 10, false)
	kid := f.chunk(t, RegisterChunkAutoOp(parent))
	if kid != ChildChunkID(parent, 0) {
		t.Fatalf("expected first child 0, got %s", kid)
	}
	if err := f.u.RecycleChunkID(kid); err == nil {
		t.Fatalf("recycling a registered chunk id must fail")
	}
	leaf := f.loadedRoot(t, 11, true)
	if _, err := f.u.GenerateChunkID(&leaf); err == nil {
		t.Fatalf("leaf chunks cannot allocate child ids")
	}
}
