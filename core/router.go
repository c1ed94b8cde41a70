package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/lsr/perf"
	"github.com/encodeous/lsr/state"
	"github.com/jellydator/ttlcache/v3"
)

// Router is the link-state routing protocol of a single node. It keeps an LSDB, recomputes shortest paths
// when the database changes, and installs the result into the forwarding table of its node.
// All methods must be called from the scheduler's thread.
type Router struct {
	cfg    state.ProtocolCfg
	opts   SpfOptions
	sched  state.Scheduler
	base   *slog.Logger
	log    *slog.Logger
	oracle TopologyOracle
	trace  *Trace

	node      Node
	db        *LSDB
	fsm       Machine
	installed *NextHopTable
	inflight  *NextHopTable
	// generation is bumped on every start and stop, scheduled work from an older generation is dropped
	generation   uint64
	computations int
	seqno        uint32
	dedup        *ttlcache.Cache[floodKey, uint32]
}

type RouterOption func(*Router)

// WithOracle gives the router the true topology, it is required by the global variant
func WithOracle(o TopologyOracle) RouterOption {
	return func(r *Router) {
		r.oracle = o
	}
}

func WithTrace(t *Trace) RouterOption {
	return func(r *Router) {
		r.trace = t
	}
}

func NewRouter(cfg state.ProtocolCfg, sched state.Scheduler, log *slog.Logger, opts ...RouterOption) *Router {
	r := &Router{
		cfg:   cfg,
		opts:  OptionsFromConfig(cfg),
		sched: sched,
		base:  log,
		log:   log,
		dedup: ttlcache.New[floodKey, uint32](
			ttlcache.WithTTL[floodKey, uint32](state.FloodDedupTTL),
			ttlcache.WithDisableTouchOnHit[floodKey, uint32](),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Family() ProtocolFamily {
	return FamilyLinkState
}

func (r *Router) Start(node Node) error {
	if r.node != nil {
		return fmt.Errorf("router already attached to %s", r.node.GetId())
	}
	if r.cfg.Variant == state.VariantGlobal && r.oracle == nil {
		return fmt.Errorf("the %s variant requires a topology oracle", r.cfg.Variant)
	}
	r.node = node
	r.db = NewLSDB(node.GetId())
	r.fsm = Machine{}
	r.installed = nil
	r.inflight = nil
	r.generation++
	r.log = r.base.With("router", node.GetId())

	switch r.cfg.Variant {
	case state.VariantGlobal:
		r.syncTopology()
	default:
		r.originate()
		r.scheduleMaintenance()
	}
	r.topologyChanged()
	return nil
}

func (r *Router) Stop() {
	if r.node == nil {
		return
	}
	if r.fsm.Handle(EventDetached) == ActionDiscard && r.inflight != nil {
		r.Log(ComputationAborted, "discarding in-flight computation", "version", r.inflight.Version)
		perf.AbortedComputations.Add(1)
	}
	r.inflight = nil
	r.generation++
	r.dedup.DeleteAll()
	r.node = nil
}

func (r *Router) attached(gen uint64) bool {
	return r.node != nil && r.generation == gen
}

func (r *Router) Log(event RouterEvent, desc string, args ...any) {
	if event.Warn() {
		r.log.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
		return
	}
	r.log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

// topologyChanged feeds a change of the database into the state machine
func (r *Router) topologyChanged() {
	switch r.fsm.Handle(EventTopologyChanged) {
	case ActionScheduleCompute:
		r.scheduleCompute()
	default:
		perf.CoalescedChanges.Add(1)
		r.Log(ComputationCoalesced, "change merged into pending computation", "state", r.fsm.State())
	}
}

func (r *Router) scheduleCompute() {
	gen := r.generation
	r.Log(ComputationScheduled, "", "delay", r.cfg.SpfDelay)
	r.sched.Schedule(r.cfg.SpfDelay, func() {
		if !r.attached(gen) {
			return
		}
		r.dispatchCompute()
	})
}

func (r *Router) dispatchCompute() {
	if r.fsm.Handle(EventDispatched) != ActionRunCompute {
		return
	}
	r.inflight = r.compute()
	gen := r.generation
	r.sched.Schedule(r.cfg.SpfDuration, func() {
		r.finishCompute(gen)
	})
}

func (r *Router) compute() *NextHopTable {
	start := time.Now()
	table := ComputeSPF(r.db.Snapshot(), r.node.GetId(), r.opts)
	r.computations++
	perf.SpfRuns.Add(1)
	perf.SpfLatency.Add(float64(time.Since(start).Microseconds()))
	return table
}

func (r *Router) finishCompute(gen uint64) {
	if !r.attached(gen) {
		r.log.Debug("dropping computation result", "error", ErrComputationAborted)
		return
	}
	table := r.inflight
	r.inflight = nil
	switch r.fsm.Handle(EventComputeFinished) {
	case ActionPublish:
		r.commit(table)
		if r.installed != nil {
			r.Log(Converged, "", "version", r.installed.Version, "routes", r.installed.Len())
		}
		r.trace.Publish(TraceEvent{At: r.sched.Now(), Router: r.node.GetId(), Event: Converged})
	case ActionPublishAndReschedule:
		r.commit(table)
		r.scheduleCompute()
	}
}

// commit moves the forwarding table of the node to table, touching only the routes that differ.
// A table computed from an older database than the installed one is dropped.
func (r *Router) commit(table *NextHopTable) {
	if table == nil || r.installed != nil && table.Version < r.installed.Version {
		return
	}
	diff := DiffTables(r.installed, table)
	r.installed = table
	if diff.Empty() {
		return
	}
	fib := r.node.ForwardTable()
	for _, dst := range diff.Removed {
		fib.DeleteRoute(dst)
		r.publish(RouteRemoved, Route{Dest: dst})
	}
	for _, route := range diff.Added {
		fib.InsertRoute(route)
		r.publish(RouteAdded, route)
	}
	for _, route := range diff.Changed {
		fib.InsertRoute(route)
		r.publish(RouteChanged, route)
	}
}

func (r *Router) publish(event RouterEvent, route Route) {
	perf.RouteChanges.Add(1)
	r.Log(event, route.String())
	r.trace.Publish(TraceEvent{
		At:     r.sched.Now(),
		Router: r.node.GetId(),
		Event:  event,
		Dest:   route.Dest,
		Route:  route,
	})
}

// InitializeRoutes computes routes from the current database and installs them immediately
func (r *Router) InitializeRoutes() error {
	if r.node == nil {
		return ErrNotAttached
	}
	table := r.compute()
	if r.fsm.Stable() {
		// run the machine through a full cycle so that it ends up converged
		r.fsm.Handle(EventTopologyChanged)
		r.fsm.Handle(EventDispatched)
		r.fsm.Handle(EventComputeFinished)
	}
	if r.inflight != nil {
		// the running computation saw an older database, it finishes without publishing
		r.Log(ComputationCoalesced, "superseded by route initialization", "version", r.inflight.Version)
		r.inflight = nil
	}
	r.commit(table)
	return nil
}

// DeleteRoutes withdraws every installed route. It is safe to call before anything was computed.
func (r *Router) DeleteRoutes() {
	if r.node == nil || r.installed == nil {
		return
	}
	r.commit(NewNextHopTable(r.node.GetId(), r.db.Version()))
	r.installed = nil
}

// Installed returns the table currently in the forwarding table of the node
func (r *Router) Installed() *NextHopTable {
	return r.installed
}

func (r *Router) Database() *LSDB {
	return r.db
}

func (r *Router) State() ProtocolState {
	return r.fsm.State()
}

// Stable reports whether the installed table is the result of the latest database, with nothing pending or running
func (r *Router) Stable() bool {
	return r.fsm.Stable()
}

// Computations counts every shortest path run since the router was created
func (r *Router) Computations() int {
	return r.computations
}

var (
	_ RoutingProtocol       = (*Router)(nil)
	_ RoutingAlgorithm      = (*Router)(nil)
	_ LinkObserver          = (*Router)(nil)
	_ TopologyObserver      = (*Router)(nil)
	_ AdvertisementReceiver = (*Router)(nil)
)
