package system

import (
	"time"

	coresys "github.com/l1jgo/universe/internal/core/system"
	"github.com/l1jgo/universe/internal/universe"
	"go.uber.org/zap"
)

// UniverseSystem drains the universe's operation queue once per tick.
// Phase 2 (Update).
type UniverseSystem struct {
	u   *universe.Universe
	log *zap.Logger

	last universe.ProcessReport
}

func NewUniverseSystem(u *universe.Universe, log *zap.Logger) *UniverseSystem {
	return &UniverseSystem{u: u, log: log}
}

func (s *UniverseSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UniverseSystem) Update(_ time.Duration) {
	s.last = s.u.ProcessOperationRequests()
	if s.last.Failures > 0 {
		s.log.Debug("operation requests had failures",
			zap.Uint64("tick", s.last.Tick),
			zap.Int("requests", s.last.Requests),
			zap.Int("failures", s.last.Failures))
	}
}

// LastReport returns the report of the most recent drain.
func (s *UniverseSystem) LastReport() universe.ProcessReport { return s.last }
