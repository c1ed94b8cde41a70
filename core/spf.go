package core

import (
	"cmp"
	"maps"
	"slices"

	"github.com/encodeous/lsr/state"
)

type SpfOptions struct {
	// Ecmp keeps every equal-cost next hop instead of a single deterministic one
	Ecmp bool
	// MaxPaths caps the next hops kept per destination when Ecmp is set, 0 means unlimited
	MaxPaths int
}

func OptionsFromConfig(cfg state.ProtocolCfg) SpfOptions {
	return SpfOptions{
		Ecmp:     cfg.Ecmp,
		MaxPaths: cfg.MaxPaths,
	}
}

// merge combines the next hops of two equal-cost paths
func (o SpfOptions) merge(cur, cand []NextHop) []NextHop {
	if !o.Ecmp {
		if len(cur) == 0 || compareNextHop(cand[0], cur[0]) < 0 {
			return cand[:1:1]
		}
		return cur
	}
	out := slices.Concat(cur, cand)
	slices.SortFunc(out, compareNextHop)
	out = slices.Compact(out)
	if o.MaxPaths > 0 && len(out) > o.MaxPaths {
		out = out[:o.MaxPaths:o.MaxPaths]
	}
	return out
}

// ComputeSPF runs Dijkstra over snap from source, and returns the distance and first hops of every reachable vertex.
// Edges with cost INF are ignored. Vertices that are only referenced by edges are treated as leaves.
// The result depends only on the content of snap.
func ComputeSPF(snap *Snapshot, source state.NodeId, opts SpfOptions) *NextHopTable {
	dist := shortestDistances(snap, source)

	// every edge that lies on a shortest path, by the vertex it leads to
	preds := make(map[state.NodeId][]state.Edge)
	for u, du := range dist {
		for _, e := range snap.Edges(u) {
			if e.Cost == state.INF || e.To == source {
				continue
			}
			if dv, ok := dist[e.To]; ok && du+uint64(e.Cost) == dv {
				preds[e.To] = append(preds[e.To], e)
			}
		}
	}

	order := slices.SortedFunc(maps.Keys(dist), func(a, b state.NodeId) int {
		if c := cmp.Compare(dist[a], dist[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	hops := make(map[state.NodeId][]NextHop)
	firstHops := func(v state.NodeId) []NextHop {
		var out []NextHop
		for _, e := range preds[v] {
			if e.From == source {
				out = opts.merge(out, []NextHop{{IfIndex: e.IfIndex, Neighbour: e.To}})
			} else if len(hops[e.From]) != 0 {
				out = opts.merge(out, hops[e.From])
			}
		}
		return out
	}
	// vertices at the same distance can only reach each other over zero-cost edges, repeat until the layer settles
	for start := 0; start < len(order); {
		end := start
		for end < len(order) && dist[order[end]] == dist[order[start]] {
			end++
		}
		for changed := true; changed; {
			changed = false
			for _, v := range order[start:end] {
				if v == source {
					continue
				}
				next := firstHops(v)
				if !slices.Equal(next, hops[v]) {
					hops[v] = next
					changed = true
				}
			}
		}
		start = end
	}

	table := NewNextHopTable(source, snap.Version())
	for dst, d := range dist {
		table.Routes[dst] = Route{
			Dest:     dst,
			Distance: d,
			NextHops: slices.Clone(hops[dst]),
			Prefixes: slices.Clone(snap.Prefixes(dst)),
		}
	}
	return table
}

// shortestDistances is Dijkstra without next hop tracking
func shortestDistances(snap *Snapshot, source state.NodeId) map[state.NodeId]uint64 {
	dist := map[state.NodeId]uint64{source: 0}
	scanned := make(map[state.NodeId]struct{})
	q := newPriorityQueue[state.NodeId]()
	q.Set(source, 0)
	for q.Len() > 0 {
		u, du := q.PopMin()
		scanned[u] = struct{}{}
		for _, e := range snap.Edges(u) {
			if e.Cost == state.INF || e.To == source {
				continue
			}
			if _, ok := scanned[e.To]; ok {
				continue
			}
			alt := du + uint64(e.Cost)
			if cur, seen := dist[e.To]; !seen || alt < cur {
				dist[e.To] = alt
				q.Set(e.To, alt)
			}
		}
	}
	return dist
}
