package system

import (
	"testing"
	"time"

	"github.com/l1jgo/universe/internal/core/ecs"
	"github.com/l1jgo/universe/internal/core/event"
	coresys "github.com/l1jgo/universe/internal/core/system"
	"github.com/l1jgo/universe/internal/data"
	"github.com/l1jgo/universe/internal/universe"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type tickFunc func(uint64)

func (f tickFunc) Tick(tick uint64) { f(tick) }

func TestTickPipeline(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	host := universe.NewWorldHost(ecs.NewWorld())
	bus := event.NewBus()
	u := universe.New(host, bus, log)

	var chunkEvents, processed int
	event.Subscribe(bus, func(universe.ChunkEvent) { chunkEvents++ })
	event.Subscribe(bus, func(event.RequestsProcessed) { processed++ })

	scripts := tickFunc(func(tick uint64) {
		if tick != 1 {
			return
		}
		if _, err := u.SeedLayout(data.GridLayout(1, 2, 2), nil); err != nil {
			t.Errorf("seed: %v", err)
		}
	})

	runner := coresys.NewRunner()
	// registered out of order; the runner sorts by phase
	runner.Register(NewCleanupSystem(host, log))
	runner.Register(NewStatsSystem(u, host, 2*time.Second, log))
	us := NewUniverseSystem(u, log)
	runner.Register(us)
	runner.Register(NewEventDispatchSystem(bus))
	runner.Register(NewScriptSystem(scripts))

	runner.Tick(time.Second)
	if s := u.Stats(); s.Chunks != 3 || s.SpawnedChunks != 3 || s.SpawnedEntities != 4 {
		t.Fatalf("expected seeded layout applied on the same tick, got %+v", s)
	}
	if us.LastReport().Failures != 0 {
		t.Fatalf("unexpected failures %+v", us.LastReport())
	}
	if chunkEvents != 0 {
		t.Fatalf("events must wait for the next tick")
	}

	runner.Tick(time.Second)
	if chunkEvents != 12 || processed != 1 {
		t.Fatalf("expected 12 chunk events and 1 processed event, got %d and %d", chunkEvents, processed)
	}
	stats := logs.FilterMessage("universe stats").All()
	if len(stats) != 1 {
		t.Fatalf("expected stats after 2s of ticks, got %d", len(stats))
	}
	comps, ok := stats[0].ContextMap()["components"].(map[string]int)
	if !ok || comps["chunk_ref"] != 3 || comps["entity_ref"] != 4 || comps["active"] != 7 {
		t.Fatalf("expected host component counts in stats, got %v", stats[0].ContextMap()["components"])
	}

	cell := universe.ChildChunkID(universe.RootChunkID(0), 0)
	id := universe.NewEntityID(cell, 0)
	ent, ok := u.GetRegisteredEntity(id)
	if !ok {
		t.Fatalf("entity %s not registered", id)
	}
	h := ent.Handle()
	if err := u.SendEntityOperationRequest(universe.NewEntityOperationRequest(
		universe.DespawnEntityOp(id),
		universe.UnloadEntityDataOp(id),
		universe.UnloadEntityMetadataOp(id),
		universe.UnregisterEntityOp(id),
	)); err != nil {
		t.Fatal(err)
	}

	runner.Tick(time.Second)
	if u.IsEntityRegistered(id) {
		t.Fatalf("entity still registered")
	}
	if host.Alive(h) {
		t.Fatalf("cleanup should have destroyed the entity handle")
	}
	if runner.Ticks() != 3 {
		t.Fatalf("expected 3 ticks, got %d", runner.Ticks())
	}
}

func TestStatsSystemDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	host := universe.NewWorldHost(ecs.NewWorld())
	u := universe.New(host, nil, zap.NewNop())
	s := NewStatsSystem(u, host, 0, zap.New(core))
	for i := 0; i < 10; i++ {
		s.Update(time.Hour)
	}
	if logs.Len() != 0 {
		t.Fatalf("zero interval must never log")
	}
}
