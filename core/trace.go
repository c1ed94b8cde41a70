package core

import (
	"fmt"
	"time"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/lsr/state"
)

// TraceEvent is published for every route change and convergence
type TraceEvent struct {
	At     time.Duration
	Router state.NodeId
	Event  RouterEvent
	Dest   state.NodeId
	Route  Route
}

func (e TraceEvent) String() string {
	if e.Event == Converged {
		return fmt.Sprintf("[%s] %s %s", e.At, e.Router, e.Event)
	}
	return fmt.Sprintf("[%s] %s %s %s", e.At, e.Router, e.Event, e.Route)
}

// Trace fans route changes out to any number of listeners. Publishing never blocks the router.
type Trace struct {
	broadcast.Broadcaster
}

func (t *Trace) Init(s *state.State) error {
	t.Broadcaster = broadcast.NewBroadcaster(1024)
	return nil
}

func (t *Trace) Cleanup(s *state.State) error {
	return t.Broadcaster.Close()
}

// Publish drops the event if the trace is not initialized or its buffer is full
func (t *Trace) Publish(ev TraceEvent) bool {
	if t == nil || t.Broadcaster == nil {
		return false
	}
	return t.TrySubmit(ev)
}
