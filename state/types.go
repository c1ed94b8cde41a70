package state

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

type NodeId string

// IfIndex identifies an interface on a node, starting at 0
type IfIndex int

type Metric = uint32

// Edge is a directed, weighted link as seen from the From vertex.
type Edge struct {
	From    NodeId
	To      NodeId
	Cost    Metric
	IfIndex IfIndex
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -[%d/if%d]-> %s", e.From, e.Cost, e.IfIndex, e.To)
}

// Advertisement is the content of a link-state advertisement: the full edge set of its origin.
type Advertisement struct {
	Origin   NodeId
	Seqno    uint32
	Edges    []Edge
	Prefixes []netip.Prefix
}

// Clone returns a deep copy, so that no two databases ever share an edge slice
func (a Advertisement) Clone() Advertisement {
	return Advertisement{
		Origin:   a.Origin,
		Seqno:    a.Seqno,
		Edges:    slices.Clone(a.Edges),
		Prefixes: slices.Clone(a.Prefixes),
	}
}

func (a Advertisement) String() string {
	edges := make([]string, 0, len(a.Edges))
	for _, e := range a.Edges {
		edges = append(edges, fmt.Sprintf("%s:%d", e.To, e.Cost))
	}
	return fmt.Sprintf("(origin: %s, seqno: %d, edges: [%s])", a.Origin, a.Seqno, strings.Join(edges, " "))
}

func AddrToPrefix(addr netip.Addr) netip.Prefix {
	res, err := addr.Prefix(addr.BitLen())
	if err != nil {
		panic(err)
	}
	return res
}
