package lifecycle

import "fmt"

// State is the coordinator's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateSpawning
	StateRunning
	StateStopRequested
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateStopRequested:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}
