package core

import "github.com/encodeous/lsr/state"

// syncTopology copies the true topology into the database, and reports whether anything changed
func (r *Router) syncTopology() bool {
	before := r.db.Version()
	seen := make(map[state.NodeId]struct{})
	for _, adv := range r.oracle.Advertisements() {
		seen[adv.Origin] = struct{}{}
		r.db.Upsert(adv.Origin, adv.Edges)
		r.db.SetPrefixes(adv.Origin, adv.Prefixes)
	}
	for _, id := range r.db.Ids() {
		if _, ok := seen[id]; !ok {
			r.db.Remove(id)
		}
	}
	return r.db.Version() != before
}

// HandleTopologyChange is only used by the global variant, flooding routers learn changes from advertisements
func (r *Router) HandleTopologyChange() {
	if r.node == nil || r.cfg.Variant != state.VariantGlobal {
		return
	}
	if r.syncTopology() {
		r.topologyChanged()
	}
}
