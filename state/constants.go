package state

import "time"

const (
	// INF marks an edge that must not be used for forwarding
	INF = ^Metric(0)
	// INFM is the largest usable cost
	INFM = INF - 1
)

var (
	TopologyPath = "topology.yaml"

	DefaultLinkCost = Metric(1)
	DefaultMaxPaths = 4

	// SpfDelay is the hold-down between the first topology change and the computation, changes within it are coalesced.
	SpfDelay = time.Millisecond * 50
	// SpfDuration is the simulated time a computation is in flight before its result is committed.
	SpfDuration = time.Millisecond * 10

	LinkDelay        = time.Millisecond * 5
	FloodDedupTTL    = time.Second * 3
	RefreshInterval  = time.Duration(0) // disabled unless configured
	MaxAge           = time.Duration(0) // disabled unless configured
	SimulationEnd    = time.Second * 30
	MaxSimEvents     = 10_000_000
	DispatchBuffer   = 128
	SlowDispatchWarn = time.Millisecond * 4
	StatusInterval   = time.Second
)
