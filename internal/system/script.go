package system

import (
	"time"

	coresys "github.com/l1jgo/universe/internal/core/system"
)

// Ticker receives the tick number. scripting.Engine implements it.
type Ticker interface {
	Tick(tick uint64)
}

// ScriptSystem runs the script on_tick hook so scripts can queue requests
// before the universe drains them. Phase 0 (Input).
type ScriptSystem struct {
	scripts Ticker
	tick    uint64
}

func NewScriptSystem(scripts Ticker) *ScriptSystem {
	return &ScriptSystem{scripts: scripts}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptSystem) Update(_ time.Duration) {
	s.tick++
	s.scripts.Tick(s.tick)
}
