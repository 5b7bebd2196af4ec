package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: scripts enqueue operation requests
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: drain and apply operation requests
	PhasePostUpdate              // 3: reporting
	PhaseCleanup                 // 4: destroy queued host handles
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
