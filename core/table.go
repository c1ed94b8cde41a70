package core

import (
	"fmt"
	"maps"
	"net/netip"
	"slices"
	"strings"

	"github.com/encodeous/lsr/state"
)

// NextHop is the first hop of a shortest path, the neighbour and the local interface that reaches it
type NextHop struct {
	IfIndex   state.IfIndex
	Neighbour state.NodeId
}

func (n NextHop) String() string {
	return fmt.Sprintf("%s/if%d", n.Neighbour, n.IfIndex)
}

func compareNextHop(a, b NextHop) int {
	if c := strings.Compare(string(a.Neighbour), string(b.Neighbour)); c != 0 {
		return c
	}
	return int(a.IfIndex) - int(b.IfIndex)
}

// Route is the result of a shortest path computation for a single destination
type Route struct {
	Dest     state.NodeId
	Distance uint64
	// NextHops is sorted, and empty only for the source itself
	NextHops []NextHop
	Prefixes []netip.Prefix
}

// NextHop returns the primary next hop
func (r Route) NextHop() (NextHop, bool) {
	if len(r.NextHops) == 0 {
		return NextHop{}, false
	}
	return r.NextHops[0], true
}

func (r Route) Equal(o Route) bool {
	return r.Dest == o.Dest &&
		r.Distance == o.Distance &&
		slices.Equal(r.NextHops, o.NextHops) &&
		slices.Equal(r.Prefixes, o.Prefixes)
}

func (r Route) String() string {
	hops := make([]string, 0, len(r.NextHops))
	for _, nh := range r.NextHops {
		hops = append(hops, nh.String())
	}
	return fmt.Sprintf("(dest: %s, dist: %d, nh: [%s])", r.Dest, r.Distance, strings.Join(hops, " "))
}

// NextHopTable maps every reachable destination to its route. Unreachable destinations are absent.
type NextHopTable struct {
	Source state.NodeId
	// Version is the version of the snapshot the table was computed from
	Version uint64
	Routes  map[state.NodeId]Route
}

func NewNextHopTable(source state.NodeId, version uint64) *NextHopTable {
	return &NextHopTable{
		Source:  source,
		Version: version,
		Routes:  make(map[state.NodeId]Route),
	}
}

// Lookup returns the route to dst, or ErrUnknownVertex when dst is unreachable
func (t *NextHopTable) Lookup(dst state.NodeId) (Route, error) {
	r, ok := t.Routes[dst]
	if !ok {
		return Route{}, fmt.Errorf("no route from %s to %s: %w", t.Source, dst, ErrUnknownVertex)
	}
	return r, nil
}

func (t *NextHopTable) Len() int {
	return len(t.Routes)
}

func (t *NextHopTable) Destinations() []state.NodeId {
	return slices.Sorted(maps.Keys(t.Routes))
}

// Equal compares routes only, tables computed from different versions of the same graph are equal
func (t *NextHopTable) Equal(o *NextHopTable) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Source == o.Source && maps.EqualFunc(t.Routes, o.Routes, Route.Equal)
}

func (t *NextHopTable) String() string {
	if t == nil {
		return "(no table)"
	}
	buf := make([]string, 0, len(t.Routes))
	for _, dst := range t.Destinations() {
		buf = append(buf, t.Routes[dst].String())
	}
	return strings.Join(buf, "\n")
}

// RouteDiff is the set of changes needed to move a forwarding table from one NextHopTable to another
type RouteDiff struct {
	Added   []Route
	Changed []Route
	Removed []state.NodeId
}

func (d RouteDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// DiffTables computes the changes between prev and next. The source of the tables is never part of the diff.
func DiffTables(prev, next *NextHopTable) RouteDiff {
	var diff RouteDiff
	var oldRoutes, newRoutes map[state.NodeId]Route
	var source state.NodeId
	if prev != nil {
		oldRoutes = prev.Routes
		source = prev.Source
	}
	if next != nil {
		newRoutes = next.Routes
		source = next.Source
	}
	for _, dst := range slices.Sorted(maps.Keys(oldRoutes)) {
		if _, ok := newRoutes[dst]; !ok && dst != source {
			diff.Removed = append(diff.Removed, dst)
		}
	}
	for _, dst := range slices.Sorted(maps.Keys(newRoutes)) {
		if dst == source {
			continue
		}
		route := newRoutes[dst]
		prev, ok := oldRoutes[dst]
		if !ok {
			diff.Added = append(diff.Added, route)
		} else if !prev.Equal(route) {
			diff.Changed = append(diff.Changed, route)
		}
	}
	return diff
}
