package sim

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/encodeous/lsr/core"
	"github.com/encodeous/lsr/state"
)

// Scenario is a network driven by the virtual clock
type Scenario struct {
	*Network
	Sim *Simulator
}

// NewScenario builds the network of cfg on a fresh simulator, starts every router and schedules the scripted events
func NewScenario(cfg *state.TopologyCfg, log *slog.Logger, opts ...NetworkOption) (*Scenario, error) {
	s := NewSimulator()
	n, err := NewNetwork(cfg, s, log, opts...)
	if err != nil {
		return nil, err
	}
	if err := n.AttachAll(); err != nil {
		return nil, err
	}
	n.ScheduleEvents()
	return &Scenario{Network: n, Sim: s}, nil
}

// Run advances the scenario to the configured duration, or to until when it is set
func (s *Scenario) Run(until time.Duration) error {
	if until == 0 {
		until = s.cfg.Duration
	}
	if err := s.Sim.RunUntil(until); err != nil {
		return err
	}
	s.log.Info("simulation finished", "at", s.Sim.Now(), "events", s.Sim.Processed(), "stable", s.Stable())
	return nil
}

// Settle runs until every attached router is stable with a forwarding table that matches the real topology
func (s *Scenario) Settle(limit time.Duration) error {
	deadline := s.Sim.Now() + limit
	for {
		if s.Stable() && s.Verify() == nil {
			return nil
		}
		if s.Sim.Pending() == 0 || s.Sim.Now() >= deadline {
			break
		}
		if err := s.Sim.RunUntil(min(s.Sim.Now()+time.Millisecond, deadline)); err != nil {
			return err
		}
	}
	if err := s.Verify(); err != nil {
		return fmt.Errorf("network did not settle within %s: %w", limit, err)
	}
	return fmt.Errorf("network did not settle within %s", limit)
}

// WriteTables prints the installed routes of every router, or only of the given ones
func WriteTables(w io.Writer, n *Network, ids ...state.NodeId) error {
	nodes := n.Nodes()
	if len(ids) != 0 {
		nodes = slices.DeleteFunc(nodes, func(node *Node) bool {
			return !slices.Contains(ids, node.id)
		})
	}
	for _, node := range nodes {
		status := "detached"
		if r, ok := node.Router(); ok {
			status = r.State().String()
		}
		if _, err := fmt.Fprintf(w, "router %s (%s, %d routes)\n", node.id, status, node.fib.Len()); err != nil {
			return err
		}
		for _, route := range node.fib.Routes() {
			if _, err := fmt.Fprintf(w, "  %s\n", route); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteSummary prints the aggregated prefixes of a node per next hop
func WriteSummary(w io.Writer, node *Node) error {
	summary := node.fib.Summary()
	hops := slices.SortedFunc(maps.Keys(summary), func(a, b core.NextHop) int {
		if a.Neighbour != b.Neighbour {
			if a.Neighbour < b.Neighbour {
				return -1
			}
			return 1
		}
		return int(a.IfIndex) - int(b.IfIndex)
	})
	for _, nh := range hops {
		if _, err := fmt.Fprintf(w, "  via %s: %v\n", nh, summary[nh]); err != nil {
			return err
		}
	}
	return nil
}
