package core

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/encodeous/lsr/state"
)

// BruteForceDistances enumerates every simple path from source. It is exponential and only meant to cross-check ComputeSPF.
func BruteForceDistances(snap *Snapshot, source state.NodeId) map[state.NodeId]uint64 {
	best := map[state.NodeId]uint64{source: 0}
	visited := map[state.NodeId]bool{source: true}
	var walk func(u state.NodeId, d uint64)
	walk = func(u state.NodeId, d uint64) {
		for _, e := range snap.Edges(u) {
			if e.Cost == state.INF || visited[e.To] {
				continue
			}
			nd := d + uint64(e.Cost)
			if cur, ok := best[e.To]; !ok || nd < cur {
				best[e.To] = nd
			}
			visited[e.To] = true
			walk(e.To, nd)
			visited[e.To] = false
		}
	}
	walk(source, 0)
	return best
}

// RandomAdvertisements generates a random directed graph of n routers named r0..r(n-1).
// Each ordered pair is linked with probability density, with costs in [1, maxCost]. A small share of edges carry INF or cost 0.
func RandomAdvertisements(rng *rand.Rand, n int, density float64, maxCost state.Metric) []state.Advertisement {
	ids := make([]state.NodeId, n)
	for i := range ids {
		ids[i] = state.NodeId(fmt.Sprintf("r%d", i))
	}
	advs := make([]state.Advertisement, 0, n)
	for i, from := range ids {
		adv := state.Advertisement{Origin: from}
		for j, to := range ids {
			if i == j || rng.Float64() >= density {
				continue
			}
			cost := state.Metric(rng.IntN(int(maxCost))) + 1
			switch rng.IntN(20) {
			case 0:
				cost = state.INF
			case 1, 2:
				cost = 0
			}
			adv.Edges = append(adv.Edges, state.Edge{
				From:    from,
				To:      to,
				Cost:    cost,
				IfIndex: state.IfIndex(len(adv.Edges)),
			})
		}
		advs = append(advs, adv)
	}
	return advs
}

// CheckSPF compares ComputeSPF against exhaustive search. Distances must match, and the next hops must be exactly
// the first hops of all shortest paths, reduced to the smallest one without ecmp.
func CheckSPF(snap *Snapshot, source state.NodeId, opts SpfOptions) error {
	table := ComputeSPF(snap, source, opts)
	expected := BruteForceDistances(snap, source)
	if len(expected) != table.Len() {
		return fmt.Errorf("%s: expected %d reachable vertices, got %d", source, len(expected), table.Len())
	}
	// shortest paths never revisit the source, so distances from each neighbour are searched without it
	rest := withoutVertex(snap, source)
	fromNeighbour := make(map[state.NodeId]map[state.NodeId]uint64)
	for _, e := range snap.Edges(source) {
		if e.Cost == state.INF || e.To == source {
			continue
		}
		if _, ok := fromNeighbour[e.To]; !ok {
			fromNeighbour[e.To] = BruteForceDistances(rest, e.To)
		}
	}

	for dst, d := range expected {
		route, err := table.Lookup(dst)
		if err != nil {
			return err
		}
		if route.Distance != d {
			return fmt.Errorf("%s: distance to %s is %d, expected %d", source, dst, route.Distance, d)
		}
		if dst == source {
			if len(route.NextHops) != 0 {
				return fmt.Errorf("%s: route to itself has next hops %v", source, route.NextHops)
			}
			continue
		}
		var hops []NextHop
		for _, e := range snap.Edges(source) {
			if e.Cost == state.INF || e.To == source {
				continue
			}
			if r, ok := fromNeighbour[e.To][dst]; ok && uint64(e.Cost)+r == d {
				hops = append(hops, NextHop{IfIndex: e.IfIndex, Neighbour: e.To})
			}
		}
		slices.SortFunc(hops, compareNextHop)
		hops = slices.Compact(hops)
		switch {
		case len(hops) == 0:
			return fmt.Errorf("%s: no first hop reaches %s at distance %d", source, dst, d)
		case !opts.Ecmp:
			hops = hops[:1]
		case opts.MaxPaths > 0 && len(hops) > opts.MaxPaths:
			hops = hops[:opts.MaxPaths]
		}
		if !slices.Equal(hops, route.NextHops) {
			return fmt.Errorf("%s: next hops to %s are %v, expected %v", source, dst, route.NextHops, hops)
		}
	}
	return nil
}

func withoutVertex(snap *Snapshot, id state.NodeId) *Snapshot {
	db := NewLSDB(snap.Local())
	for _, v := range snap.Ids() {
		if v == id {
			continue
		}
		edges := make([]state.Edge, 0)
		for _, e := range snap.Edges(v) {
			if e.To != id {
				edges = append(edges, e)
			}
		}
		db.Upsert(v, edges)
	}
	return db.Snapshot()
}
