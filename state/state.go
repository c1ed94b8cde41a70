package state

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type NyModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// Scheduler delivers callbacks on a single logical thread. Callbacks never run concurrently with each other.
type Scheduler interface {
	// Now returns the time elapsed since the scheduler started
	Now() time.Duration
	// Schedule runs fn after delay
	Schedule(delay time.Duration, fn func())
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Modules map[string]NyModule
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan func(s *State) error
	Context         context.Context
	Cancel          context.CancelCauseFunc
	Log             *slog.Logger
	Topology        TopologyCfg
	Epoch           time.Time
	Started         atomic.Bool
	Stopping        atomic.Bool
}

func NewEnv(ctx context.Context, topo TopologyCfg, log *slog.Logger) *Env {
	ctx, cancel := context.WithCancelCause(ctx)
	return &Env{
		DispatchChannel: make(chan func(s *State) error, DispatchBuffer),
		Context:         ctx,
		Cancel:          cancel,
		Log:             log,
		Topology:        topo,
		Epoch:           time.Now(),
	}
}
