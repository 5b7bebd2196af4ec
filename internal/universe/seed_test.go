package universe

import (
	"errors"
	"testing"

	"github.com/l1jgo/universe/internal/data"
)

func TestSeedGridLayoutReachesSpawned(t *testing.T) {
	f := newFixture(t)
	l := data.GridLayout(2, 3, 4)

	var failures []error
	sent, err := f.u.SeedLayout(l, func(err error) { failures = append(failures, err) })
	if err != nil {
		t.Fatal(err)
	}
	if sent != 2*(1+2*3) {
		t.Fatalf("expected %d requests, got %d", 2*(1+2*3), sent)
	}
	f.u.ProcessOperationRequests()
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}

	s := f.u.Stats()
	if s.Chunks != 8 || s.Entities != 24 || s.SpawnedChunks != 8 || s.SpawnedEntities != 24 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if c, e := f.host.ActiveCounts(); c != 8 || e != 24 {
		t.Fatalf("expected 8 active chunks and 24 active entities, got %d and %d", c, e)
	}
	f.consistent(t)
}

func TestSeedHonorsStages(t *testing.T) {
	f := newFixture(t)
	l, err := data.ParseLayout([]byte(`
roots:
  - local: 3
    name: overworld
    spawn: true
    chunks:
      - local: 1
        name: town
        stage: metadata
    entities:
      - local: 0
        name: marker
        stage: registered
      - local: 1
        name: gate
        spawn: true
        properties: {kind: portal}
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.u.SeedLayout(l, nil); err != nil {
		t.Fatal(err)
	}
	f.u.ProcessOperationRequests()

	root := RootChunkID(3)
	c, ok := f.u.GetRegisteredChunk(root)
	if !ok || c.Stage() != StageDataLoaded {
		t.Fatalf("expected data-loaded root")
	}
	if rs, _ := c.RunState(); rs != Spawned {
		t.Fatalf("expected spawned root")
	}
	town, ok := f.u.GetRegisteredChunk(ChildChunkID(root, 1))
	if !ok || town.Stage() != StageMetadataLoaded {
		t.Fatalf("expected metadata-loaded town")
	}
	if meta, _ := town.Metadata(); meta.Name != "town" {
		t.Fatalf("expected town metadata, got %+v", meta)
	}
	marker, _ := f.u.GetRegisteredEntity(NewEntityID(root, 0))
	if marker.Stage() != StageRegistered {
		t.Fatalf("expected registered marker, got %s", marker.Stage())
	}
	gate, _ := f.u.GetRegisteredEntity(NewEntityID(root, 1))
	if d, ok := gate.Data(); !ok || d.Properties["kind"] != "portal" {
		t.Fatalf("expected gate data, got %+v", d)
	}
	if rs, _ := gate.RunState(); rs != Spawned {
		t.Fatalf("expected spawned gate")
	}
	f.consistent(t)
}

func TestSeedReportsFailuresWithoutStopping(t *testing.T) {
	f := newFixture(t)
	l := &data.Layout{Roots: []data.ChunkSpec{
		{Local: 0, Leaf: true, Chunks: []data.ChunkSpec{{Local: 0}}},
		{Local: 1},
	}}

	var failures []error
	if _, err := f.u.SeedLayout(l, func(err error) { failures = append(failures, err) }); err != nil {
		t.Fatal(err)
	}
	f.u.ProcessOperationRequests()

	if len(failures) == 0 || !errors.Is(failures[0], ErrParentChunkNotAllowedToHaveChildChunks) {
		t.Fatalf("expected leaf parent failure first, got %v", failures)
	}
	if !f.u.IsChunkRegistered(RootChunkID(1)) {
		t.Fatalf("later chunks must still be seeded")
	}
	f.consistent(t)
}

func TestSeedRejectsOutOfRangeLocal(t *testing.T) {
	f := newFixture(t)
	l := &data.Layout{Roots: []data.ChunkSpec{{Local: -1}}}
	if _, err := f.u.SeedLayout(l, nil); !errors.Is(err, ErrInvalidLocalID) {
		t.Fatalf("expected ErrInvalidLocalID, got %v", err)
	}
}
