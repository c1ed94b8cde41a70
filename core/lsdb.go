package core

import (
	"maps"
	"net/netip"
	"slices"
	"time"

	"github.com/encodeous/lsr/state"
)

// Vertex is a router known to the database. Stored vertices are never mutated, updates replace them.
type Vertex struct {
	Id       state.NodeId
	Edges    []state.Edge
	Prefixes []netip.Prefix
	Seqno    uint32
	Local    bool
	Updated  time.Duration // scheduler time of the last install
}

func (v *Vertex) clone() Vertex {
	c := *v
	c.Edges = slices.Clone(v.Edges)
	c.Prefixes = slices.Clone(v.Prefixes)
	return c
}

// LSDB is the link-state database of a single router
type LSDB struct {
	local    state.NodeId
	vertices map[state.NodeId]*Vertex
	version  uint64
	snap     *Snapshot
}

func NewLSDB(local state.NodeId) *LSDB {
	db := &LSDB{
		local:    local,
		vertices: make(map[state.NodeId]*Vertex),
	}
	db.vertices[local] = &Vertex{Id: local, Local: true}
	return db
}

func (db *LSDB) Local() state.NodeId {
	return db.local
}

func (db *LSDB) Version() uint64 {
	return db.version
}

func (db *LSDB) Len() int {
	return len(db.vertices)
}

func (db *LSDB) replace(v *Vertex) {
	db.vertices[v.Id] = v
	db.version++
	db.snap = nil
}

func (db *LSDB) vertex(id state.NodeId) Vertex {
	if old, ok := db.vertices[id]; ok {
		return *old
	}
	return Vertex{Id: id, Local: id == db.local}
}

// Upsert replaces the full edge set of id, creating the vertex if it does not exist.
// Edges are copied and rewritten to originate from id. Other vertices are never touched.
func (db *LSDB) Upsert(id state.NodeId, edges []state.Edge) {
	normalized := make([]state.Edge, 0, len(edges))
	for _, e := range edges {
		e.From = id
		normalized = append(normalized, e)
	}
	old, exists := db.vertices[id]
	if exists && slices.Equal(old.Edges, normalized) {
		return
	}
	v := db.vertex(id)
	v.Edges = normalized
	db.replace(&v)
}

// SetPrefixes replaces the prefixes advertised by id, creating the vertex if it does not exist
func (db *LSDB) SetPrefixes(id state.NodeId, prefixes []netip.Prefix) {
	old, exists := db.vertices[id]
	if exists && slices.Equal(old.Prefixes, prefixes) {
		return
	}
	v := db.vertex(id)
	v.Prefixes = slices.Clone(prefixes)
	db.replace(&v)
}

// Install stores adv if it is newer than what the database holds for its origin, and reports whether it did
func (db *LSDB) Install(adv state.Advertisement, now time.Duration) bool {
	if old, ok := db.vertices[adv.Origin]; ok && old.Seqno >= adv.Seqno {
		return false
	}
	v := db.vertex(adv.Origin)
	v.Seqno = adv.Seqno
	v.Updated = now
	v.Edges = make([]state.Edge, 0, len(adv.Edges))
	for _, e := range adv.Edges {
		e.From = adv.Origin
		v.Edges = append(v.Edges, e)
	}
	v.Prefixes = slices.Clone(adv.Prefixes)
	db.replace(&v)
	return true
}

// Remove deletes id and its outgoing edges. Edges of other vertices that point to id are left dangling.
// The local vertex is never deleted, only its edges are cleared.
func (db *LSDB) Remove(id state.NodeId) bool {
	old, ok := db.vertices[id]
	if !ok {
		return false
	}
	if id == db.local {
		if len(old.Edges) == 0 {
			return false
		}
		v := *old
		v.Edges = nil
		db.replace(&v)
		return true
	}
	delete(db.vertices, id)
	db.version++
	db.snap = nil
	return true
}

// Expire removes every non-local vertex that was last installed more than maxAge before now
func (db *LSDB) Expire(now, maxAge time.Duration) []state.NodeId {
	expired := make([]state.NodeId, 0)
	for id, v := range db.vertices {
		if v.Local || now-v.Updated <= maxAge {
			continue
		}
		expired = append(expired, id)
	}
	slices.Sort(expired)
	for _, id := range expired {
		db.Remove(id)
	}
	return expired
}

func (db *LSDB) Get(id state.NodeId) (Vertex, bool) {
	v, ok := db.vertices[id]
	if !ok {
		return Vertex{}, false
	}
	return v.clone(), true
}

func (db *LSDB) Seqno(id state.NodeId) (uint32, bool) {
	v, ok := db.vertices[id]
	if !ok {
		return 0, false
	}
	return v.Seqno, true
}

// Advertisement rebuilds the advertisement stored for id
func (db *LSDB) Advertisement(id state.NodeId) (state.Advertisement, bool) {
	v, ok := db.vertices[id]
	if !ok {
		return state.Advertisement{}, false
	}
	return state.Advertisement{
		Origin:   v.Id,
		Seqno:    v.Seqno,
		Edges:    slices.Clone(v.Edges),
		Prefixes: slices.Clone(v.Prefixes),
	}, true
}

// Advertisements returns every stored advertisement ordered by origin
func (db *LSDB) Advertisements() []state.Advertisement {
	out := make([]state.Advertisement, 0, len(db.vertices))
	for _, id := range slices.Sorted(maps.Keys(db.vertices)) {
		adv, _ := db.Advertisement(id)
		out = append(out, adv)
	}
	return out
}

func (db *LSDB) Ids() []state.NodeId {
	return slices.Sorted(maps.Keys(db.vertices))
}

// Snapshot returns an immutable view of the database. Calls without an intervening change return the same view.
func (db *LSDB) Snapshot() *Snapshot {
	if db.snap == nil {
		db.snap = &Snapshot{
			version:  db.version,
			local:    db.local,
			vertices: maps.Clone(db.vertices),
		}
	}
	return db.snap
}

// Snapshot is a read-only view of an LSDB at a given version
type Snapshot struct {
	version  uint64
	local    state.NodeId
	vertices map[state.NodeId]*Vertex
}

// NewSnapshot builds a standalone snapshot from a set of advertisements
func NewSnapshot(local state.NodeId, advs ...state.Advertisement) *Snapshot {
	db := NewLSDB(local)
	for _, adv := range advs {
		db.Upsert(adv.Origin, adv.Edges)
		db.SetPrefixes(adv.Origin, adv.Prefixes)
	}
	return db.Snapshot()
}

func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) Local() state.NodeId {
	return s.local
}

func (s *Snapshot) Len() int {
	return len(s.vertices)
}

// Edges returns the outgoing edges of id. Unknown vertices are leaves and have none.
// The returned slice must not be modified.
func (s *Snapshot) Edges(id state.NodeId) []state.Edge {
	if v, ok := s.vertices[id]; ok {
		return v.Edges
	}
	return nil
}

func (s *Snapshot) Vertex(id state.NodeId) (Vertex, bool) {
	v, ok := s.vertices[id]
	if !ok {
		return Vertex{}, false
	}
	return v.clone(), true
}

func (s *Snapshot) Prefixes(id state.NodeId) []netip.Prefix {
	if v, ok := s.vertices[id]; ok {
		return v.Prefixes
	}
	return nil
}

// Ids returns every vertex with its own entry, in order
func (s *Snapshot) Ids() []state.NodeId {
	return slices.Sorted(maps.Keys(s.vertices))
}
