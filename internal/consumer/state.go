package consumer

import "museum-stream-backend/internal/metrics"

// State is a step of the consumer lifecycle:
// Starting -> Running -> (Draining -> Stopped | Crashed).
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
	StateCrashed
)

var allStates = []State{StateIdle, StateStarting, StateRunning, StateDraining, StateStopped, StateCrashed}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	}
	return "unknown"
}

// Healthy reports whether the loop is starting or consuming.
func (s State) Healthy() bool {
	return s == StateStarting || s == StateRunning
}

func (s *Service) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	for _, st := range allStates {
		v := 0.0
		if st == next {
			v = 1
		}
		metrics.ConsumerState.WithLabelValues(st.String()).Set(v)
	}
	if prev == next {
		return
	}
	ev := s.log.Info()
	if next == StateCrashed {
		ev = s.log.Error()
	}
	ev.Str("from", prev.String()).Str("to", next.String()).Msg("consumer state changed")
}

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Service) State() State {
	return State(s.state.Load())
}
