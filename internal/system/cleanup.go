package system

import (
	"time"

	coresys "github.com/l1jgo/universe/internal/core/system"
	"go.uber.org/zap"
)

// Flusher applies deferred handle destruction. universe.WorldHost implements it.
type Flusher interface {
	Flush() int
}

// CleanupSystem flushes the deferred handle destruction queue at tick end.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	host Flusher
	log  *zap.Logger
}

func NewCleanupSystem(host Flusher, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{host: host, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.host.Flush(); n > 0 {
		s.log.Debug("destroyed host handles", zap.Int("count", n))
	}
}
