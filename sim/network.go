package sim

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/encodeous/lsr/core"
	"github.com/encodeous/lsr/state"
)

// Link is a bidirectional link with a cost per direction
type Link struct {
	A, B   *Node
	CostAB state.Metric
	CostBA state.Metric
	Delay  time.Duration
	up     bool
	// epoch changes whenever the link goes down, so that in-flight advertisements are dropped
	epoch int
}

func (l *Link) CostFrom(n *Node) state.Metric {
	if n == l.B {
		return l.CostBA
	}
	return l.CostAB
}

func (l *Link) Up() bool {
	return l.up
}

func (l *Link) String() string {
	return fmt.Sprintf("%s <-[%d/%d]-> %s", l.A.id, l.CostAB, l.CostBA, l.B.id)
}

// Network is a set of simulated routers and the links between them. It is also the topology oracle of the
// global variant.
type Network struct {
	cfg   *state.TopologyCfg
	sched state.Scheduler
	log   *slog.Logger
	trace *core.Trace
	nodes map[state.NodeId]*Node
	links []*Link
}

type NetworkOption func(*Network)

// WithTrace publishes the route changes of every router to t
func WithTrace(t *core.Trace) NetworkOption {
	return func(n *Network) {
		n.trace = t
	}
}

// NewNetwork builds the network described by an expanded and validated cfg. No protocol is attached yet.
func NewNetwork(cfg *state.TopologyCfg, sched state.Scheduler, log *slog.Logger, opts ...NetworkOption) (*Network, error) {
	n := &Network{
		cfg:   cfg,
		sched: sched,
		log:   log,
		nodes: make(map[state.NodeId]*Node),
	}
	for _, opt := range opts {
		opt(n)
	}
	for _, rcfg := range cfg.Routers {
		node := &Node{
			id:       rcfg.Id,
			net:      n,
			prefixes: slices.Clone(rcfg.Prefixes),
			fib:      core.NewFib(),
		}
		node.Binding = core.NewRouterBinding(node, core.FamilyLinkState, log)
		n.nodes[rcfg.Id] = node
	}
	for _, lcfg := range cfg.Links {
		a, ok := n.nodes[lcfg.A]
		if !ok {
			return nil, fmt.Errorf("router %s not defined", lcfg.A)
		}
		b, ok := n.nodes[lcfg.B]
		if !ok {
			return nil, fmt.Errorf("router %s not defined", lcfg.B)
		}
		delay := lcfg.Delay
		if delay == 0 {
			delay = state.LinkDelay
		}
		l := &Link{
			A:      a,
			B:      b,
			CostAB: lcfg.CostFrom(lcfg.A),
			CostBA: lcfg.CostFrom(lcfg.B),
			Delay:  delay,
			up:     !lcfg.Down,
		}
		a.ports = append(a.ports, port{link: l, peer: b, peerIf: state.IfIndex(len(b.ports))})
		b.ports = append(b.ports, port{link: l, peer: a, peerIf: state.IfIndex(len(a.ports) - 1)})
		n.links = append(n.links, l)
	}
	return n, nil
}

func (n *Network) Node(id state.NodeId) (*Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// Nodes returns every node ordered by id
func (n *Network) Nodes() []*Node {
	out := make([]*Node, 0, len(n.nodes))
	for _, id := range slices.Sorted(maps.Keys(n.nodes)) {
		out = append(out, n.nodes[id])
	}
	return out
}

func (n *Network) Links() []*Link {
	return n.links
}

// Link finds the link between a and b in either direction
func (n *Network) Link(a, b state.NodeId) (*Link, error) {
	for _, l := range n.links {
		if l.A.id == a && l.B.id == b || l.A.id == b && l.B.id == a {
			return l, nil
		}
	}
	return nil, fmt.Errorf("no link between %s and %s", a, b)
}

// NewProtocol creates a router for node configured like the rest of the network
func (n *Network) NewProtocol() *core.Router {
	return core.NewRouter(n.cfg.Protocol, n.sched, n.log, core.WithOracle(n), core.WithTrace(n.trace))
}

func (n *Network) Attach(id state.NodeId) error {
	node, ok := n.nodes[id]
	if !ok {
		return fmt.Errorf("unknown router %s", id)
	}
	if node.Binding.Protocol() != nil {
		return nil
	}
	return node.Binding.Attach(n.NewProtocol())
}

func (n *Network) Detach(id state.NodeId) error {
	node, ok := n.nodes[id]
	if !ok {
		return fmt.Errorf("unknown router %s", id)
	}
	node.Binding.Detach()
	return nil
}

// AttachAll starts a protocol on every node, in id order
func (n *Network) AttachAll() error {
	for _, node := range n.Nodes() {
		if err := n.Attach(node.id); err != nil {
			return err
		}
	}
	return nil
}

// Dispose detaches and disposes every binding
func (n *Network) Dispose() {
	for _, node := range n.Nodes() {
		node.Binding.Dispose()
	}
}

// SetLinkUp changes the state of the link between a and b
func (n *Network) SetLinkUp(a, b state.NodeId, up bool) error {
	l, err := n.Link(a, b)
	if err != nil {
		return err
	}
	if l.up == up {
		return nil
	}
	l.up = up
	if !up {
		l.epoch++
	}
	n.log.Debug("link state changed", "link", l.String(), "up", up)
	n.notify(l)
	return nil
}

// SetLinkCost changes the cost of the link between a and b in both directions
func (n *Network) SetLinkCost(a, b state.NodeId, cost state.Metric) error {
	l, err := n.Link(a, b)
	if err != nil {
		return err
	}
	if l.CostAB == cost && l.CostBA == cost {
		return nil
	}
	l.CostAB = cost
	l.CostBA = cost
	n.log.Debug("link cost changed", "link", l.String())
	n.notify(l)
	return nil
}

func (n *Network) notify(l *Link) {
	l.A.linkChanged(n.portOf(l.A, l))
	l.B.linkChanged(n.portOf(l.B, l))
	for _, node := range n.Nodes() {
		node.topologyChanged()
	}
}

func (n *Network) portOf(node *Node, l *Link) state.IfIndex {
	return state.IfIndex(slices.IndexFunc(node.ports, func(p port) bool {
		return p.link == l
	}))
}

// Advertisements implements core.TopologyOracle with the current state of every link
func (n *Network) Advertisements() []state.Advertisement {
	out := make([]state.Advertisement, 0, len(n.nodes))
	for _, node := range n.Nodes() {
		adv := state.Advertisement{
			Origin:   node.id,
			Prefixes: slices.Clone(node.prefixes),
		}
		for _, itf := range core.UpInterfaces(node) {
			adv.Edges = append(adv.Edges, state.Edge{
				From:    node.id,
				To:      itf.Neighbour,
				Cost:    itf.Cost,
				IfIndex: itf.Index,
			})
		}
		out = append(out, adv)
	}
	return out
}

// GroundTruth is a snapshot of the real topology
func (n *Network) GroundTruth(local state.NodeId) *core.Snapshot {
	return core.NewSnapshot(local, n.Advertisements()...)
}

// Apply performs a scripted event immediately
func (n *Network) Apply(ev state.EventCfg) error {
	n.log.Info("applying event", "kind", ev.Kind, "at", n.sched.Now())
	switch ev.Kind {
	case state.EventLinkDown:
		return n.SetLinkUp(ev.A, ev.B, false)
	case state.EventLinkUp:
		return n.SetLinkUp(ev.A, ev.B, true)
	case state.EventLinkCost:
		return n.SetLinkCost(ev.A, ev.B, ev.Cost)
	case state.EventDetach:
		return n.Detach(ev.Node)
	case state.EventAttach:
		return n.Attach(ev.Node)
	}
	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

// ScheduleEvents queues every configured event relative to the current time
func (n *Network) ScheduleEvents() {
	for _, ev := range n.cfg.Events {
		n.sched.Schedule(ev.At-n.sched.Now(), func() {
			if err := n.Apply(ev); err != nil {
				n.log.Error("failed to apply event", "kind", ev.Kind, "error", err)
			}
		})
	}
}

// Stable reports whether every attached router has finished computing
func (n *Network) Stable() bool {
	for _, node := range n.nodes {
		if r, ok := node.Router(); ok && !r.Stable() {
			return false
		}
	}
	return true
}

// Verify checks the forwarding table of every attached router against shortest paths over the real topology
func (n *Network) Verify() error {
	for _, node := range n.Nodes() {
		if _, ok := node.Router(); !ok {
			continue
		}
		expected := core.ComputeSPF(n.GroundTruth(node.id), node.id, core.OptionsFromConfig(n.cfg.Protocol))
		diff := core.DiffTables(node.fib.TableOf(node.id), expected)
		if !diff.Empty() {
			return fmt.Errorf("%s has not converged: %d added, %d changed, %d removed", node.id, len(diff.Added), len(diff.Changed), len(diff.Removed))
		}
	}
	return nil
}

// Init starts every router and schedules the scripted events, for use as a module of the real-time main loop
func (n *Network) Init(s *state.State) error {
	if err := n.AttachAll(); err != nil {
		return err
	}
	n.ScheduleEvents()
	s.RepeatTask(func(s *state.State) error {
		if !n.Stable() {
			s.Log.Debug("network is converging")
		} else if err := n.Verify(); err != nil {
			s.Log.Warn("routers are stable but disagree with the topology", "error", err)
		} else {
			s.Log.Debug("network converged", "routers", len(n.nodes))
		}
		return nil
	}, state.StatusInterval)
	return nil
}

func (n *Network) Cleanup(s *state.State) error {
	n.Dispose()
	return nil
}

var (
	_ core.TopologyOracle = (*Network)(nil)
	_ state.NyModule      = (*Network)(nil)
)
