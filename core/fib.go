package core

import (
	"fmt"
	"maps"
	"net/netip"
	"slices"
	"strings"

	"github.com/encodeous/lsr/state"
	"github.com/gaissmai/bart"
)

// ForwardTable is where a protocol installs the routes it computed
type ForwardTable interface {
	InsertRoute(route Route)
	DeleteRoute(dest state.NodeId)
}

// FibEntry is the forwarding decision for a prefix
type FibEntry struct {
	Dest     state.NodeId
	Distance uint64
	NextHops []NextHop
}

// Fib is the forwarding table of a node. Routes are kept per destination, and the prefixes each destination
// originates are indexed for longest prefix match.
type Fib struct {
	routes map[state.NodeId]Route
	// PrefixTable contains the entry of the best destination for each advertised prefix
	PrefixTable bart.Table[FibEntry]
	owners      map[netip.Prefix]state.NodeId
}

func NewFib() *Fib {
	return &Fib{
		routes:      make(map[state.NodeId]Route),
		PrefixTable: bart.Table[FibEntry]{},
		owners:      make(map[netip.Prefix]state.NodeId),
	}
}

func (f *Fib) InsertRoute(route Route) {
	var affected []netip.Prefix
	if old, ok := f.routes[route.Dest]; ok {
		affected = append(affected, old.Prefixes...)
	}
	f.routes[route.Dest] = route
	affected = append(affected, route.Prefixes...)
	f.reindex(affected)
}

func (f *Fib) DeleteRoute(dest state.NodeId) {
	old, ok := f.routes[dest]
	if !ok {
		return
	}
	delete(f.routes, dest)
	f.reindex(old.Prefixes)
}

// reindex picks a new owner for each prefix. When several destinations originate the same prefix
// the nearest one wins, ties go to the smallest id.
func (f *Fib) reindex(prefixes []netip.Prefix) {
	for _, p := range prefixes {
		var best *Route
		for _, dst := range slices.Sorted(maps.Keys(f.routes)) {
			r := f.routes[dst]
			if !slices.Contains(r.Prefixes, p) {
				continue
			}
			if best == nil || r.Distance < best.Distance {
				best = &r
			}
		}
		if best == nil {
			delete(f.owners, p)
			f.PrefixTable.Delete(p)
			continue
		}
		f.owners[p] = best.Dest
		f.PrefixTable.Insert(p, FibEntry{
			Dest:     best.Dest,
			Distance: best.Distance,
			NextHops: best.NextHops,
		})
	}
}

func (f *Fib) Route(dest state.NodeId) (Route, bool) {
	r, ok := f.routes[dest]
	return r, ok
}

// Lookup does a longest prefix match of addr over every installed prefix
func (f *Fib) Lookup(addr netip.Addr) (FibEntry, bool) {
	return f.PrefixTable.Lookup(addr)
}

func (f *Fib) Len() int {
	return len(f.routes)
}

func (f *Fib) Destinations() []state.NodeId {
	return slices.Sorted(maps.Keys(f.routes))
}

// Routes returns the installed routes ordered by destination
func (f *Fib) Routes() []Route {
	out := make([]Route, 0, len(f.routes))
	for _, dst := range f.Destinations() {
		out = append(out, f.routes[dst])
	}
	return out
}

// Summary groups the installed prefixes by primary next hop, and merges adjacent prefixes within each group
func (f *Fib) Summary() map[NextHop][]netip.Prefix {
	groups := make(map[NextHop][]netip.Prefix)
	for p, dst := range f.owners {
		nh, ok := f.routes[dst].NextHop()
		if !ok {
			continue
		}
		groups[nh] = append(groups[nh], p)
	}
	for nh, prefixes := range groups {
		groups[nh] = state.CoalescePrefix(prefixes)
	}
	return groups
}

func (f *Fib) String() string {
	buf := make([]string, 0, len(f.routes))
	for _, r := range f.Routes() {
		buf = append(buf, r.String())
	}
	return strings.Join(buf, "\n")
}

// TableOf returns the installed routes as a NextHopTable, so that they can be compared with a computation
func (f *Fib) TableOf(source state.NodeId) *NextHopTable {
	t := NewNextHopTable(source, 0)
	for dst, r := range f.routes {
		t.Routes[dst] = r
	}
	return t
}

var _ ForwardTable = (*Fib)(nil)

func (e FibEntry) String() string {
	hops := make([]string, 0, len(e.NextHops))
	for _, nh := range e.NextHops {
		hops = append(hops, nh.String())
	}
	return fmt.Sprintf("%s (dist: %d, nh: [%s])", e.Dest, e.Distance, strings.Join(hops, " "))
}
