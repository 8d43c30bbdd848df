package timesteward

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"
)

// EdgeGranularity is the coarseness a DataTimeline chooses for the
// dependency edges its queries produce (spec §4.2). Coarser edges increase
// false-positive invalidations but reduce graph size; correctness never
// depends on the choice.
type EdgeGranularity int

const (
	// PerKey records one edge per RowID: any write to the row invalidates
	// every accessor that ever queried it, regardless of which ExtendedTime
	// it queried at.
	PerKey EdgeGranularity = iota
	// PerKeyRange records edges scoped to the queried ExtendedTime, the
	// finest granularity: only a write at or before that time invalidates
	// the accessor (spec §4.3).
	PerKeyRange
	// WholeTimeline records a single edge against the entire timeline: any
	// write to any row invalidates every accessor that queried it.
	WholeTimeline
)

// Region is the coarsest set of (key, ExtendedTime-range) a DataTimeline
// reports as changed by an Insert or Remove, used by the driver to find
// dependent accessors via the graph (spec §4.2).
type Region struct {
	Key  RowID
	From ExtendedTime // inclusive
}

// TimelineSnapshot is a cheap, immutable view returned by
// DataTimeline.Snapshot; it must remain stable even as later operations are
// inserted into the timeline it was taken from (spec §4.2).
type TimelineSnapshot interface {
	Query(key RowID) (Value, bool)
}

// DataTimeline is the authoritative retroactive store for one column type.
// Implementations must make Query a pure function of the operations with
// ExtendedTime <= the query time, independent of the order those operations
// were inserted in (spec §4.2).
type DataTimeline interface {
	TypeID() TypeID
	Granularity() EdgeGranularity
	// Query returns the value as of ExtendedTime at, and whether the key has
	// ever been written at or before that time.
	Query(key RowID, at ExtendedTime) (Value, bool)
	// Insert records a retroactive write, returning the regions whose query
	// results may have changed.
	Insert(key RowID, at ExtendedTime, value Value) []Region
	// Remove is the exact inverse of the Insert it undoes.
	Remove(key RowID, at ExtendedTime, value Value) []Region
	// Snapshot returns a stable view as of ExtendedTime at.
	Snapshot(at ExtendedTime) TimelineSnapshot
}

// --- FieldMap: a last-write-wins field per row -----------------------------

type versionedValue struct {
	at    ExtendedTime
	value Value
}

// FieldMap is a last-write-wins DataTimeline: Query(key, t) returns the
// value of the most recent write to key with ExtendedTime <= t. It keeps a
// full version history per row (an ordered btree of versionedValue keyed by
// ExtendedTime) so retroactive inserts/removes at arbitrary points in the
// past are cheap and exact, per spec §4.2.
type FieldMap struct {
	typ         TypeID
	granularity EdgeGranularity

	mu      sync.RWMutex
	history map[RowID]*btree.BTreeG[versionedValue]
	cache   *lru.Cache[fieldMapCacheKey, cachedQuery]
}

type fieldMapCacheKey struct {
	key RowID
	at  ExtendedTime
}

type cachedQuery struct {
	value Value
	ok    bool
}

func versionedValueLess(a, b versionedValue) bool { return a.at.Less(b.at) }

// NewFieldMap constructs a FieldMap registered under typ with the given
// edge granularity. cacheSize bounds a query memoization cache (via
// hashicorp/golang-lru); 0 disables caching. The cache never changes
// observable results, since eviction only forces a recompute that is
// guaranteed identical (spec §4.2's purity requirement).
func NewFieldMap(typ TypeID, granularity EdgeGranularity, cacheSize int) *FieldMap {
	fm := &FieldMap{
		typ:         typ,
		granularity: granularity,
		history:     make(map[RowID]*btree.BTreeG[versionedValue]),
	}
	if cacheSize > 0 {
		c, err := lru.New[fieldMapCacheKey, cachedQuery](cacheSize)
		if err != nil {
			panic(fmt.Sprintf("timesteward: construct query cache: %v", err))
		}
		fm.cache = c
	}
	return fm
}

func (fm *FieldMap) TypeID() TypeID              { return fm.typ }
func (fm *FieldMap) Granularity() EdgeGranularity { return fm.granularity }

// FieldMapSnapshotKeys returns every RowID fm currently has any history for,
// for callers that need to build the keysByTimeline argument to
// Engine.SerializeSnapshot without tracking keys separately themselves.
func (fm *FieldMap) FieldMapSnapshotKeys() []RowID {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	keys := make([]RowID, 0, len(fm.history))
	for k := range fm.history {
		keys = append(keys, k)
	}
	return keys
}

func (fm *FieldMap) Query(key RowID, at ExtendedTime) (Value, bool) {
	if fm.cache != nil {
		if v, ok := fm.cache.Get(fieldMapCacheKey{key, at}); ok {
			return v.value, v.ok
		}
	}

	fm.mu.RLock()
	tree, ok := fm.history[key]
	fm.mu.RUnlock()
	if !ok {
		if fm.cache != nil {
			fm.cache.Add(fieldMapCacheKey{key, at}, cachedQuery{})
		}
		return nil, false
	}

	var result versionedValue
	var found bool
	tree.DescendLessOrEqual(versionedValue{at: at}, func(item versionedValue) bool {
		result, found = item, true
		return false
	})
	if fm.cache != nil {
		fm.cache.Add(fieldMapCacheKey{key, at}, cachedQuery{result.value, found})
	}
	return result.value, found
}

func (fm *FieldMap) Insert(key RowID, at ExtendedTime, value Value) []Region {
	fm.mu.Lock()
	tree, ok := fm.history[key]
	if !ok {
		tree = btree.NewG(32, versionedValueLess)
		fm.history[key] = tree
	}
	tree.ReplaceOrInsert(versionedValue{at: at, value: value})
	fm.mu.Unlock()

	fm.invalidateCacheFor(key)
	return fm.regionsFor(key, at)
}

func (fm *FieldMap) Remove(key RowID, at ExtendedTime, value Value) []Region {
	fm.mu.Lock()
	if tree, ok := fm.history[key]; ok {
		tree.Delete(versionedValue{at: at, value: value})
		if tree.Len() == 0 {
			delete(fm.history, key)
		}
	}
	fm.mu.Unlock()

	fm.invalidateCacheFor(key)
	return fm.regionsFor(key, at)
}

func (fm *FieldMap) regionsFor(key RowID, at ExtendedTime) []Region {
	switch fm.granularity {
	case WholeTimeline:
		return []Region{{Key: RowID{}, From: at}}
	default:
		return []Region{{Key: key, From: at}}
	}
}

// invalidateCacheFor drops every cached query for key, since any cached
// result at or after the write's ExtendedTime may now be stale. Purging the
// whole key (rather than comparing each entry's time with the write's) walks
// the cache's keys once, so the cost grows with the cache size, not with the
// timeline's history size.
func (fm *FieldMap) invalidateCacheFor(key RowID) {
	if fm.cache == nil {
		return
	}
	for _, k := range fm.cache.Keys() {
		if k.key == key {
			fm.cache.Remove(k)
		}
	}
}

func (fm *FieldMap) Snapshot(at ExtendedTime) TimelineSnapshot {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	values := make(map[RowID]versionedValue, len(fm.history))
	for key, tree := range fm.history {
		var result versionedValue
		var found bool
		tree.Ascend(func(item versionedValue) bool {
			if item.at.Compare(at) <= 0 {
				result, found = item, true
				return true
			}
			return false
		})
		if found {
			values[key] = result
		}
	}
	return fieldMapSnapshot{values: values}
}

type fieldMapSnapshot struct {
	values map[RowID]versionedValue
}

func (s fieldMapSnapshot) Query(key RowID) (Value, bool) {
	v, ok := s.values[key]
	return v.value, ok
}
