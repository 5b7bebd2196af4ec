package system

import (
	"time"

	coresys "github.com/l1jgo/universe/internal/core/system"
	"github.com/l1jgo/universe/internal/universe"
	"go.uber.org/zap"
)

// HostCounter reports host-side occupancy. universe.WorldHost implements it.
type HostCounter interface {
	ActiveCounts() (chunks, entities int)
	ComponentCounts() map[string]int
}

// StatsSystem logs universe counts every interval of simulated time.
// Phase 3 (PostUpdate).
type StatsSystem struct {
	u        *universe.Universe
	host     HostCounter
	log      *zap.Logger
	interval time.Duration
	elapsed  time.Duration
}

func NewStatsSystem(u *universe.Universe, host HostCounter, interval time.Duration, log *zap.Logger) *StatsSystem {
	return &StatsSystem{u: u, host: host, interval: interval, log: log}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *StatsSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0

	st := s.u.Stats()
	activeChunks, activeEntities := s.host.ActiveCounts()
	s.log.Info("universe stats",
		zap.Int("chunks", st.Chunks),
		zap.Int("entities", st.Entities),
		zap.Int("spawned_chunks", st.SpawnedChunks),
		zap.Int("spawned_entities", st.SpawnedEntities),
		zap.Int("active_chunks", activeChunks),
		zap.Int("active_entities", activeEntities),
		zap.Any("components", s.host.ComponentCounts()),
		zap.Int("pending_requests", s.u.PendingRequests()))
}
