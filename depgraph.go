package timesteward

import (
	"fmt"
	"sync"
)

// accessorKind distinguishes the two kinds of accessor the overview (spec
// §2) names: predictor invocations and event bodies.
type accessorKind int

const (
	accessorPredictor accessorKind = iota
	accessorEvent
)

// accessorHandle identifies one accessor invocation: either a predictor
// instance (identified by its type and subject row, stable across
// re-runs) or an executing event body (identified by its ExtendedTime,
// unique per invariant I3).
type accessorHandle struct {
	kind          accessorKind
	predictorType TypeID
	subject       RowID
	eventTime     ExtendedTime
}

func eventAccessor(at ExtendedTime) accessorHandle {
	return accessorHandle{kind: accessorEvent, eventTime: at}
}

// String renders a stable human-readable identity, used only by debug
// export tooling (see debugexport/neo4jexport) and never by simulation
// logic.
func (a accessorHandle) String() string {
	if a.kind == accessorEvent {
		return "event@" + a.eventTime.String()
	}
	return "predictor:" + a.predictorType.String() + "/" + a.subject.String()
}

// readEdge is one (accessor) -- reads --> (timeline, key) edge, tagged with
// the ExtendedTime the read was performed at so invalidation can restrict
// itself to accessors that read before the changed region begins (spec
// §4.3).
type readEdge struct {
	timeline    TypeID
	key         RowID
	at          ExtendedTime
	granularity EdgeGranularity
}

func (e readEdge) fieldKey() fieldKey {
	if e.granularity == WholeTimeline {
		return fieldKey{timeline: e.timeline}
	}
	return fieldKey{timeline: e.timeline, key: e.key}
}

type fieldKey struct {
	timeline TypeID
	key      RowID
}

// DependencyGraph is the bipartite record of which accessors read which
// (timeline, key) pairs and which events wrote which pairs (spec §3, §4.3).
// It stores two inverted indices — accessor -> edges and field -> accessors
// — exactly as the teacher's neo4jengine keeps a forward node map and a
// label-keyed reverse index (neo4jengine/noderegistry.go), generalized from
// "label lookup" to "dependency lookup".
type DependencyGraph struct {
	mu sync.Mutex

	reads     map[accessorHandle][]readEdge
	readIndex map[fieldKey]map[accessorHandle]struct{}

	writes map[ExtendedTime][]fieldKey
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		reads:     make(map[accessorHandle][]readEdge),
		readIndex: make(map[fieldKey]map[accessorHandle]struct{}),
		writes:    make(map[ExtendedTime][]fieldKey),
	}
}

// ReplaceReads atomically replaces the full read-edge set of an accessor,
// matching spec §4.3's "re-executing an accessor replaces its edge set
// atomically; stale edges are never left behind."
func (g *DependencyGraph) ReplaceReads(accessor accessorHandle, edges []readEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeReadsLocked(accessor)
	if len(edges) == 0 {
		return
	}
	g.reads[accessor] = edges
	for _, e := range edges {
		fk := e.fieldKey()
		set, ok := g.readIndex[fk]
		if !ok {
			set = make(map[accessorHandle]struct{})
			g.readIndex[fk] = set
		}
		set[accessor] = struct{}{}
	}
}

func (g *DependencyGraph) removeReadsLocked(accessor accessorHandle) {
	for _, e := range g.reads[accessor] {
		fk := e.fieldKey()
		if set, ok := g.readIndex[fk]; ok {
			delete(set, accessor)
			if len(set) == 0 {
				delete(g.readIndex, fk)
			}
		}
	}
	delete(g.reads, accessor)
}

// RemoveAccessor drops every read edge belonging to accessor, used when a
// predictor instance is destroyed (its subject row removed) or an event is
// undone.
func (g *DependencyGraph) RemoveAccessor(accessor accessorHandle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeReadsLocked(accessor)
}

// RecordWrites attributes a set of written fields to the event that wrote
// them. Writes are attributed to exactly one event; removing that event
// also removes its write records (spec §4.3).
func (g *DependencyGraph) RecordWrites(event ExtendedTime, fields []fieldKey) {
	if len(fields) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes[event] = append(g.writes[event], fields...)
}

// RemoveEventWrites forgets the write attribution of an undone event. It
// does not itself undo the DataTimeline state; the driver's rewind path
// calls the timeline's Remove separately (spec §4.6).
func (g *DependencyGraph) RemoveEventWrites(event ExtendedTime) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.writes, event)
}

// Dependents returns every accessor whose recorded read overlaps the given
// field region. For PerKeyRange reads, this additionally requires
// read.at >= writeAt, per spec §4.3: "a predictor that read field F at
// time 10 is invalidated by a write to F at time 8 or 10, not by a write at
// time 20." Coarser granularities (PerKey, WholeTimeline) invalidate
// unconditionally on any write to the same key or timeline (spec §4.2).
func (g *DependencyGraph) Dependents(timeline TypeID, region Region, writeAt ExtendedTime) []accessorHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[accessorHandle]struct{})
	var out []accessorHandle

	collect := func(fk fieldKey) {
		for accessor := range g.readIndex[fk] {
			for _, e := range g.reads[accessor] {
				if e.fieldKey() != fk {
					continue
				}
				// PerKeyRange is the only granularity precise enough to
				// restrict invalidation by time at all: a write strictly
				// after the read's own query time cannot change what that
				// historical query returned. PerKey and WholeTimeline are
				// coarse by construction (spec §4.2) — any write to the
				// same key (or timeline) invalidates every reader of it,
				// regardless of when each read was performed.
				if e.granularity == PerKeyRange && e.at.Compare(writeAt) < 0 {
					continue
				}
				if _, dup := seen[accessor]; dup {
					continue
				}
				seen[accessor] = struct{}{}
				out = append(out, accessor)
			}
		}
	}

	collect(fieldKey{timeline: timeline})            // WholeTimeline-granularity readers
	collect(fieldKey{timeline: timeline, key: region.Key}) // PerKey/PerKeyRange readers

	return out
}

// GraphEdge is a point-in-time view of one dependency-graph edge, exposed
// only for operator inspection tooling (see debugexport/neo4jexport).
// Its shape is not part of any compatibility contract.
type GraphEdge struct {
	Accessor string
	Timeline TypeID
	Key      RowID
	At       ExtendedTime
	Kind     string // "read" or "write"
}

// debugEdges returns every live read and write edge as a flat, exported
// snapshot. Called from Engine.DebugGraphEdges.
func (g *DependencyGraph) debugEdges() []GraphEdge {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []GraphEdge
	for accessor, edges := range g.reads {
		for _, e := range edges {
			out = append(out, GraphEdge{
				Accessor: accessor.String(),
				Timeline: e.timeline,
				Key:      e.key,
				At:       e.at,
				Kind:     "read",
			})
		}
	}
	for at, fields := range g.writes {
		for _, f := range fields {
			out = append(out, GraphEdge{
				Accessor: fmt.Sprintf("event@%s", at),
				Timeline: f.timeline,
				Key:      f.key,
				At:       at,
				Kind:     "write",
			})
		}
	}
	return out
}

// HasAccessor reports whether accessor currently has any recorded reads,
// used by internal-invariant checks (an edge must never point at an
// accessor the graph no longer knows about).
func (g *DependencyGraph) HasAccessor(accessor accessorHandle) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.reads[accessor]
	return ok
}
