package state

import (
	"fmt"
	"slices"
	"strings"
)

func parseSymbolList(s string, validSymbols []string) ([]string, error) {
	line := make([]string, 0)
	for _, sym := range strings.Split(strings.TrimSpace(s), ",") {
		x := strings.TrimSpace(sym)
		if x == "" {
			continue
		}
		if !slices.Contains(validSymbols, x) {
			return nil, fmt.Errorf(`%s is not a valid node/group`, x)
		}
		line = append(line, x)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf(`node/group list must not be empty`)
	}
	slices.Sort(line)
	return line, nil
}

/*
ParseGraph expands link declarations written in group syntax:

	core = r1, r2, r3
	edge = r4, r5
	core, core     // full mesh inside core
	core, edge     // every core router links to every edge router, but not edge to edge
	r5, r6         // a single link

Groups may reference other groups, but not cyclically. nodes is the set of router names the graph evaluates down to.
The result is a sorted list of unique undirected links.
*/
func ParseGraph(graph []string, nodes []string) ([]Pair[NodeId, NodeId], error) {
	symbols := slices.Clone(nodes)
	defs := make(map[string]string)
	lines := make([]string, 0)

	// pass 0, collect group names so that groups can be referenced before they are defined
	for _, line := range graph {
		line = strings.ToLower(strings.TrimSpace(line))
		if !strings.Contains(line, "=") {
			lines = append(lines, line)
			continue
		}
		spl := strings.Split(line, "=")
		if len(spl) != 2 {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
		}
		grp := strings.TrimSpace(spl[0])
		if slices.Contains(nodes, grp) {
			return nil, fmt.Errorf("group name must not be a node name: %s", grp)
		}
		if _, ok := defs[grp]; ok {
			return nil, fmt.Errorf("duplicate group name: %s", grp)
		}
		defs[grp] = spl[1]
		symbols = append(symbols, grp)
	}

	// pass 1, resolve group members, groups without unresolved dependencies are expanded first
	pending := make(map[string][]string)
	for grp, def := range defs {
		members, err := parseSymbolList(def, symbols)
		if err != nil {
			return nil, err
		}
		pending[grp] = members
	}
	expansion := make(map[string][]string)
	for len(pending) > 0 {
		progress := false
		for grp, members := range pending {
			resolved := make([]string, 0, len(members))
			ready := true
			for _, m := range members {
				if slices.Contains(nodes, m) {
					resolved = append(resolved, m)
				} else if exp, ok := expansion[m]; ok {
					resolved = append(resolved, exp...)
				} else {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			slices.Sort(resolved)
			expansion[grp] = slices.Compact(resolved)
			delete(pending, grp)
			progress = true
		}
		if !progress {
			cycle := make([]string, 0, len(pending))
			for grp := range pending {
				cycle = append(cycle, grp)
			}
			slices.Sort(cycle)
			return nil, fmt.Errorf("cycle detected in graph: %v", cycle)
		}
	}

	expand := func(sym string) []NodeId {
		if slices.Contains(nodes, sym) {
			return []NodeId{NodeId(sym)}
		}
		out := make([]NodeId, 0, len(expansion[sym]))
		for _, n := range expansion[sym] {
			out = append(out, NodeId(n))
		}
		return out
	}

	// pass 2, interconnect every pair of symbols on a line
	pairings := make([]Pair[NodeId, NodeId], 0)
	for _, line := range lines {
		names, err := parseSymbolList(line, symbols)
		if err != nil {
			return nil, err
		}
		if len(names) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", names)
		}
		for i := range names {
			for j := i + 1; j < len(names); j++ {
				for _, x := range expand(names[i]) {
					for _, y := range expand(names[j]) {
						if x != y {
							pairings = append(pairings, MakeSortedPair(x, y))
						}
					}
				}
			}
		}
	}
	SortPairs(pairings)
	return slices.Compact(pairings), nil
}
