package core

import (
	"testing"
	"time"

	"github.com/encodeous/lsr/state"
	"github.com/stretchr/testify/assert"
)

// triangle is the following network, seen by A:
//
//	   B
//	1 / \ 1
//	 A---C
//	   5
func triangle() *staticOracle {
	return &staticOracle{advs: merge(
		bidir("A", "B", 1, 0, 0),
		bidir("A", "C", 5, 1, 0),
		bidir("B", "C", 1, 1, 1),
	)}
}

func newGlobalRouter(t *testing.T) (*Router, *NodeHarness, *manualScheduler, *staticOracle) {
	sched := &manualScheduler{}
	oracle := triangle()
	h := NewNodeHarness("A", "B", "C")
	r := NewRouter(testProtocolCfg(state.VariantGlobal), sched, discardLogger(), WithOracle(oracle))
	assert.NoError(t, r.Start(h))
	return r, h, sched, oracle
}

func TestRouterComputesAfterDelay(t *testing.T) {
	r, h, sched, _ := newGlobalRouter(t)
	assert.Equal(t, StateComputationPending, r.State())

	sched.Advance(49 * time.Millisecond)
	assert.Zero(t, h.GetActions().Count("INSERT_ROUTE"))

	sched.Advance(time.Millisecond)
	assert.Equal(t, StateComputing, r.State())
	assert.Zero(t, h.GetActions().Count("INSERT_ROUTE"))

	sched.Advance(10 * time.Millisecond)
	a := h.GetActions()
	a.AssertContains(t, "INSERT_ROUTE", state.NodeId("B"), uint64(1))
	a.AssertContains(t, "INSERT_ROUTE", state.NodeId("C"), uint64(2))
	a.AssertNotContains(t, "INSERT_ROUTE", state.NodeId("A"))
	assert.Equal(t, StateConverged, r.State())
	assert.Equal(t, 1, r.Computations())

	c, ok := h.fib.Route("C")
	assert.True(t, ok)
	assert.Equal(t, []NextHop{{IfIndex: 0, Neighbour: "B"}}, c.NextHops)
}

func TestRouterCoalescesChangesDuringCompute(t *testing.T) {
	r, h, sched, oracle := newGlobalRouter(t)
	sched.Advance(60 * time.Millisecond)
	assert.Equal(t, 1, r.Computations())
	h.GetActions()

	oracle.SetCost("A", "B", 3)
	r.HandleTopologyChange()
	sched.Advance(50 * time.Millisecond)
	assert.Equal(t, StateComputing, r.State())
	assert.Equal(t, 2, r.Computations())

	for cost := state.Metric(2); cost <= 6; cost++ {
		oracle.SetCost("B", "C", cost)
		r.HandleTopologyChange()
	}
	assert.Equal(t, StateComputing, r.State())
	assert.Equal(t, 2, r.Computations())

	// the result of the second run is published, then exactly one more run follows
	sched.Advance(10 * time.Millisecond)
	assert.Equal(t, StateComputationPending, r.State())
	sched.Advance(time.Second)
	assert.Equal(t, 3, r.Computations())
	assert.Equal(t, StateConverged, r.State())

	b, _ := h.fib.Route("B")
	assert.Equal(t, uint64(3), b.Distance)
	c, _ := h.fib.Route("C")
	assert.Equal(t, uint64(5), c.Distance)
	assert.Equal(t, []NextHop{{IfIndex: 1, Neighbour: "C"}}, c.NextHops)
}

func TestRouterUnchangedTopologyIsIgnored(t *testing.T) {
	r, _, sched, _ := newGlobalRouter(t)
	sched.Advance(time.Second)
	r.HandleTopologyChange()
	assert.Equal(t, StateConverged, r.State())
	sched.Advance(time.Second)
	assert.Equal(t, 1, r.Computations())
}

func TestRouterDetachDuringFirstCompute(t *testing.T) {
	sched := &manualScheduler{}
	h := NewNodeHarness("A", "B", "C")
	b := NewRouterBinding(h, FamilyLinkState, discardLogger())
	r := NewRouter(testProtocolCfg(state.VariantGlobal), sched, discardLogger(), WithOracle(triangle()))
	assert.NoError(t, b.Attach(r))

	sched.Advance(55 * time.Millisecond)
	assert.Equal(t, StateComputing, r.State())
	b.Detach()
	sched.Advance(time.Second)

	a := h.GetActions()
	assert.Zero(t, a.Count("INSERT_ROUTE"))
	assert.Zero(t, h.fib.Len())
	assert.Equal(t, StateIdle, r.State())
	assert.Nil(t, b.Protocol())
}

func TestRouterDetachDuringRecompute(t *testing.T) {
	sched := &manualScheduler{}
	oracle := triangle()
	h := NewNodeHarness("A", "B", "C")
	b := NewRouterBinding(h, FamilyLinkState, discardLogger())
	r := NewRouter(testProtocolCfg(state.VariantGlobal), sched, discardLogger(), WithOracle(oracle))
	assert.NoError(t, b.Attach(r))
	sched.Advance(time.Second)
	assert.Equal(t, 2, h.fib.Len())
	h.GetActions()

	oracle.SetCost("A", "B", 10)
	r.HandleTopologyChange()
	sched.Advance(55 * time.Millisecond)
	b.Detach()

	a := h.GetActions()
	a.AssertContains(t, "DELETE_ROUTE", state.NodeId("B"))
	a.AssertContains(t, "DELETE_ROUTE", state.NodeId("C"))

	sched.Advance(time.Second)
	assert.Zero(t, h.GetActions().Count("INSERT_ROUTE"))
	assert.Zero(t, h.fib.Len())
}

func TestRouterStopDropsScheduledWork(t *testing.T) {
	r, h, sched, _ := newGlobalRouter(t)
	r.Stop()
	sched.Advance(time.Second)
	assert.Zero(t, h.GetActions().Count("INSERT_ROUTE"))
	assert.Equal(t, 0, r.Computations())
}

func TestRouterInitializeRoutes(t *testing.T) {
	r, h, sched, _ := newGlobalRouter(t)
	assert.NoError(t, r.InitializeRoutes())
	a := h.GetActions()
	a.AssertContains(t, "INSERT_ROUTE", state.NodeId("B"), uint64(1))
	a.AssertContains(t, "INSERT_ROUTE", state.NodeId("C"), uint64(2))

	// the scheduled computation finds nothing new to install
	sched.Advance(time.Second)
	assert.Zero(t, h.GetActions().Count("INSERT_ROUTE"))
	assert.Equal(t, StateConverged, r.State())

	idle := NewRouter(testProtocolCfg(state.VariantGlobal), sched, discardLogger())
	assert.ErrorIs(t, idle.InitializeRoutes(), ErrNotAttached)
}

func TestRouterInitializeRoutesSupersedesRunningCompute(t *testing.T) {
	r, h, sched, oracle := newGlobalRouter(t)
	sched.Advance(time.Second)
	h.GetActions()

	oracle.SetCost("A", "B", 3)
	r.HandleTopologyChange()
	sched.Advance(50 * time.Millisecond)
	assert.Equal(t, StateComputing, r.State())

	oracle.SetCost("A", "B", 7)
	r.HandleTopologyChange()
	assert.NoError(t, r.InitializeRoutes())
	b, _ := h.fib.Route("B")
	assert.Equal(t, uint64(6), b.Distance)

	// the computation that started before the second change must not roll the table back
	sched.Advance(10 * time.Millisecond)
	b, _ = h.fib.Route("B")
	assert.Equal(t, uint64(6), b.Distance)

	sched.Advance(time.Second)
	assert.Equal(t, StateConverged, r.State())
	b, _ = h.fib.Route("B")
	assert.Equal(t, uint64(6), b.Distance)
	h.GetActions().AssertNotContains(t, "INSERT_ROUTE", state.NodeId("B"), uint64(3))
}

func TestRouterDeleteRoutesBeforeCompute(t *testing.T) {
	r, h, _, _ := newGlobalRouter(t)
	r.DeleteRoutes()
	assert.Empty(t, h.GetActions())
}

func TestRouterGlobalRequiresOracle(t *testing.T) {
	r := NewRouter(testProtocolCfg(state.VariantGlobal), &manualScheduler{}, discardLogger())
	assert.Error(t, r.Start(NewNodeHarness("A")))
}

func newFloodingRouter(t *testing.T, id state.NodeId, neighbours ...state.NodeId) (*Router, *NodeHarness, *manualScheduler) {
	sched := &manualScheduler{}
	h := NewNodeHarness(id, neighbours...)
	r := NewRouter(testProtocolCfg(state.VariantFlooding), sched, discardLogger())
	assert.NoError(t, r.Start(h))
	return r, h, sched
}

func TestRouterFloodingOriginates(t *testing.T) {
	_, h, _ := newFloodingRouter(t, "A", "B", "C")
	a := h.GetActions()
	a.AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("A"), uint32(1))
	a.AssertContains(t, "SEND_ADV", state.IfIndex(1), state.NodeId("A"), uint32(1))
}

func TestRouterFloodsNewerAdvertisements(t *testing.T) {
	r, h, sched := newFloodingRouter(t, "A", "B", "C")
	h.GetActions()

	r.HandleAdvertisement(0, state.Advertisement{Origin: "B", Seqno: 1, Edges: []state.Edge{edge("B", "A", 1, 0)}})
	a := h.GetActions()
	a.AssertContains(t, "SEND_ADV", state.IfIndex(1), state.NodeId("B"), uint32(1))
	// first contact, B gets our database
	a.AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("A"), uint32(1))

	r.HandleAdvertisement(1, state.Advertisement{Origin: "D", Seqno: 4})
	a = h.GetActions()
	a.AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("D"), uint32(4))
	a.AssertNotContains(t, "SEND_ADV", state.IfIndex(1), state.NodeId("D"))

	// duplicates are dropped silently
	r.HandleAdvertisement(0, state.Advertisement{Origin: "D", Seqno: 4})
	assert.Empty(t, h.GetActions())

	// an older copy is answered with ours
	r.HandleAdvertisement(0, state.Advertisement{Origin: "D", Seqno: 2})
	h.GetActions().AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("D"), uint32(4))

	sched.Advance(time.Second)
	a = h.GetActions()
	a.AssertContains(t, "INSERT_ROUTE", state.NodeId("B"), uint64(1))
	a.AssertContains(t, "INSERT_ROUTE", state.NodeId("C"), uint64(1))
	a.AssertNotContains(t, "INSERT_ROUTE", state.NodeId("D"))
}

func TestRouterReclaimsOwnAdvertisement(t *testing.T) {
	r, h, _ := newFloodingRouter(t, "A", "B")
	h.GetActions()

	r.HandleAdvertisement(0, state.Advertisement{Origin: "A", Seqno: 7})
	h.GetActions().AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("A"), uint32(8))
	seqno, _ := r.Database().Seqno("A")
	assert.Equal(t, uint32(8), seqno)
}

func TestRouterLinkChangeReoriginates(t *testing.T) {
	r, h, _ := newFloodingRouter(t, "A", "B", "C")
	h.GetActions()

	h.ifaces[1].Up = false
	r.HandleLinkChange(1)
	a := h.GetActions()
	a.AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("A"), uint32(2))
	a.AssertNotContains(t, "SEND_ADV", state.IfIndex(1))
	v, _ := r.Database().Get("A")
	assert.Len(t, v.Edges, 1)

	h.ifaces[1].Up = true
	r.HandleLinkChange(1)
	a = h.GetActions()
	a.AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("A"), uint32(3))
	a.AssertContains(t, "SEND_ADV", state.IfIndex(1), state.NodeId("A"), uint32(3))
}

func TestRouterRefreshAndExpiry(t *testing.T) {
	sched := &manualScheduler{}
	cfg := testProtocolCfg(state.VariantFlooding)
	cfg.RefreshInterval = time.Second
	cfg.MaxAge = 3 * time.Second
	h := NewNodeHarness("A", "B")
	r := NewRouter(cfg, sched, discardLogger())
	assert.NoError(t, r.Start(h))
	r.HandleAdvertisement(0, state.Advertisement{Origin: "B", Seqno: 1, Edges: []state.Edge{edge("B", "A", 1, 0)}})
	h.GetActions()

	sched.Advance(1500 * time.Millisecond)
	h.GetActions().AssertContains(t, "SEND_ADV", state.IfIndex(0), state.NodeId("A"), uint32(2))

	// B never refreshes, so it ages out
	sched.Advance(3 * time.Second)
	_, ok := r.Database().Get("B")
	assert.False(t, ok)
	_, ok = r.Database().Get("A")
	assert.True(t, ok)
}
