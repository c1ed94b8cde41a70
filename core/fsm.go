package core

import "fmt"

// ProtocolState is the computation state of a router
type ProtocolState int

const (
	StateIdle ProtocolState = iota
	StateComputationPending
	StateComputing
	StateConverged
)

func (s ProtocolState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateComputationPending:
		return "ComputationPending"
	case StateComputing:
		return "Computing"
	case StateConverged:
		return "Converged"
	}
	return fmt.Sprintf("ProtocolState(%d)", int(s))
}

type ProtocolEvent int

const (
	EventTopologyChanged ProtocolEvent = iota
	EventDispatched
	EventComputeFinished
	EventDetached
)

func (e ProtocolEvent) String() string {
	switch e {
	case EventTopologyChanged:
		return "TopologyChanged"
	case EventDispatched:
		return "Dispatched"
	case EventComputeFinished:
		return "ComputeFinished"
	case EventDetached:
		return "Detached"
	}
	return fmt.Sprintf("ProtocolEvent(%d)", int(e))
}

// Action is the side effect the router must perform after a transition
type Action int

const (
	ActionNone Action = iota
	ActionScheduleCompute
	ActionRunCompute
	ActionPublish
	ActionPublishAndReschedule
	ActionDiscard
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionScheduleCompute:
		return "ScheduleCompute"
	case ActionRunCompute:
		return "RunCompute"
	case ActionPublish:
		return "Publish"
	case ActionPublishAndReschedule:
		return "PublishAndReschedule"
	case ActionDiscard:
		return "Discard"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Transition is the pure transition function of the computation state machine.
// pending records that the topology changed while a computation was running.
// At most one computation is in flight, and any number of changes during it cause exactly one follow-up.
func Transition(s ProtocolState, ev ProtocolEvent, pending bool) (ProtocolState, Action, bool) {
	switch ev {
	case EventTopologyChanged:
		switch s {
		case StateIdle, StateConverged:
			return StateComputationPending, ActionScheduleCompute, false
		case StateComputing:
			return StateComputing, ActionNone, true
		}
	case EventDispatched:
		if s == StateComputationPending {
			return StateComputing, ActionRunCompute, false
		}
	case EventComputeFinished:
		if s == StateComputing {
			if pending {
				return StateComputationPending, ActionPublishAndReschedule, false
			}
			return StateConverged, ActionPublish, false
		}
	case EventDetached:
		if s == StateComputing || s == StateComputationPending {
			return StateIdle, ActionDiscard, false
		}
		return StateIdle, ActionNone, false
	}
	return s, ActionNone, pending
}

// Machine holds the state of Transition between events
type Machine struct {
	state   ProtocolState
	pending bool
}

func (m *Machine) Handle(ev ProtocolEvent) Action {
	var act Action
	m.state, act, m.pending = Transition(m.state, ev, m.pending)
	return act
}

func (m *Machine) State() ProtocolState {
	return m.state
}

func (m *Machine) Pending() bool {
	return m.pending
}

// Stable reports whether the last computation was published and nothing is scheduled or running since
func (m *Machine) Stable() bool {
	return m.state == StateConverged
}

// Idle reports whether the machine never computed since it was created or detached
func (m *Machine) Idle() bool {
	return m.state == StateIdle
}
