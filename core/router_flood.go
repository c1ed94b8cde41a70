package core

import (
	"github.com/encodeous/lsr/perf"
	"github.com/encodeous/lsr/state"
)

// floodKey remembers the newest seqno of an origin already sent on an interface
type floodKey struct {
	idx    state.IfIndex
	origin state.NodeId
}

// localAdvertisement describes the usable interfaces of the node
func (r *Router) localAdvertisement() state.Advertisement {
	id := r.node.GetId()
	adv := state.Advertisement{
		Origin:   id,
		Seqno:    r.seqno,
		Prefixes: r.node.GetPrefixes(),
	}
	for _, itf := range UpInterfaces(r.node) {
		adv.Edges = append(adv.Edges, state.Edge{
			From:    id,
			To:      itf.Neighbour,
			Cost:    itf.Cost,
			IfIndex: itf.Index,
		})
	}
	return adv
}

// originate installs a fresh advertisement of the node and floods it to every neighbour
func (r *Router) originate() {
	r.seqno++
	adv := r.localAdvertisement()
	r.db.Install(adv, r.sched.Now())
	r.flood(adv, -1)
}

// flood sends adv on every usable interface except the one it arrived on
func (r *Router) flood(adv state.Advertisement, except state.IfIndex) {
	for _, itf := range UpInterfaces(r.node) {
		if itf.Index == except {
			continue
		}
		key := floodKey{idx: itf.Index, origin: adv.Origin}
		if item := r.dedup.Get(key); item != nil && item.Value() >= adv.Seqno {
			continue
		}
		r.dedup.Set(key, adv.Seqno, state.FloodDedupTTL)
		r.node.SendAdvertisement(itf.Index, adv.Clone())
		perf.FloodedAdvertisements.Add(1)
		r.Log(AdvertisementFlooded, adv.String(), "if", itf.Index, "neigh", itf.Neighbour)
	}
}

// sendDatabase gives a neighbour that just came up everything we know
func (r *Router) sendDatabase(idx state.IfIndex) {
	for _, adv := range r.db.Advertisements() {
		if adv.Seqno == 0 {
			continue
		}
		r.dedup.Set(floodKey{idx: idx, origin: adv.Origin}, adv.Seqno, state.FloodDedupTTL)
		r.node.SendAdvertisement(idx, adv)
	}
}

func (r *Router) HandleAdvertisement(from state.IfIndex, adv state.Advertisement) {
	if r.node == nil || r.cfg.Variant != state.VariantFlooding {
		return
	}
	if adv.Origin == r.node.GetId() {
		// a copy of ours from before a restart, jump past it so that the network accepts our current state
		if adv.Seqno >= r.seqno {
			r.Log(SelfAdvertisementReclaimed, "", "seqno", adv.Seqno)
			r.seqno = adv.Seqno
			r.originate()
		}
		return
	}
	itf, _ := r.node.GetInterface(from)
	direct := itf.Neighbour == adv.Origin
	prev, known := r.db.Seqno(adv.Origin)
	if !r.db.Install(adv.Clone(), r.sched.Now()) {
		r.Log(StaleAdvertisementDropped, adv.String(), "if", from)
		if adv.Seqno < prev {
			r.answerStale(from, adv.Origin, direct)
		}
		return
	}
	perf.InstalledAdvertisements.Add(1)
	r.Log(AdvertisementInstalled, adv.String(), "if", from)
	r.flood(adv, from)
	if direct && !known {
		// first contact with this neighbour
		r.sendDatabase(from)
	}
	r.topologyChanged()
}

// answerStale sends our newer copy back to a neighbour that is behind. A neighbour that is behind on its own
// advertisement has restarted, so it gets the whole database.
func (r *Router) answerStale(from state.IfIndex, origin state.NodeId, direct bool) {
	if direct {
		r.sendDatabase(from)
		return
	}
	if cur, ok := r.db.Advertisement(origin); ok {
		r.dedup.Set(floodKey{idx: from, origin: origin}, cur.Seqno, state.FloodDedupTTL)
		r.node.SendAdvertisement(from, cur)
	}
}

// HandleLinkChange re-originates the node's advertisement, and synchronizes the database with a neighbour that came up
func (r *Router) HandleLinkChange(idx state.IfIndex) {
	if r.node == nil {
		return
	}
	if r.cfg.Variant == state.VariantGlobal {
		r.HandleTopologyChange()
		return
	}
	// the neighbour may have lost what we sent before
	r.dedup.DeleteAll()
	r.originate()
	if itf, ok := r.node.GetInterface(idx); ok && itf.Up && itf.Cost != state.INF {
		r.sendDatabase(idx)
	}
	r.topologyChanged()
}

// scheduleMaintenance starts the periodic refresh and aging of the database, when configured
func (r *Router) scheduleMaintenance() {
	gen := r.generation
	if r.cfg.RefreshInterval > 0 {
		var refresh func()
		refresh = func() {
			if !r.attached(gen) {
				return
			}
			r.dedup.DeleteAll()
			r.originate()
			r.sched.Schedule(r.cfg.RefreshInterval, refresh)
		}
		r.sched.Schedule(r.cfg.RefreshInterval, refresh)
	}
	if r.cfg.MaxAge > 0 {
		interval := max(r.cfg.MaxAge/4, 1)
		var age func()
		age = func() {
			if !r.attached(gen) {
				return
			}
			expired := r.db.Expire(r.sched.Now(), r.cfg.MaxAge)
			if len(expired) > 0 {
				r.Log(AdvertisementExpired, "", "origins", expired)
				r.topologyChanged()
			}
			r.sched.Schedule(interval, age)
		}
		r.sched.Schedule(interval, age)
	}
}
