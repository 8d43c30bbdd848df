package timesteward

import (
	"fmt"
	"sort"
	"sync"
)

// Snapshot is an opaque, immutable, pinned view of simulation state at one
// ExtendedTime (spec §4.7). It pins every DataTimeline against discarding
// history with time <= its own time; read-through is guaranteed stable even
// as later operations are inserted, matching the teacher's captureSnapshot
// pattern in neo4jengine/snapshot.go generalized from "one graph" to "every
// registered timeline".
type Snapshot struct {
	id   uint64
	at   ExtendedTime
	byID map[TypeID]TimelineSnapshot
}

// At returns the ExtendedTime the snapshot was taken at.
func (s *Snapshot) At() ExtendedTime { return s.at }

// Query reads a field as it stood when the snapshot was taken.
func (s *Snapshot) Query(timeline TypeID, key RowID) (Value, bool) {
	ts, ok := s.byID[timeline]
	if !ok {
		return nil, false
	}
	return ts.Query(key)
}

// SnapshotManager owns the set of currently-pinned snapshots (spec §4.7).
// It stores the configured retention horizon but never reads it: its only
// retention check, CheckRetention, looks at pinned snapshots alone.
type SnapshotManager struct {
	mu      sync.Mutex
	nextID  uint64
	pinned  map[uint64]ExtendedTime
	horizon uint64 // number of committed events to retain behind P
}

func NewSnapshotManager(retentionHorizon uint64) *SnapshotManager {
	return &SnapshotManager{
		pinned:  make(map[uint64]ExtendedTime),
		horizon: retentionHorizon,
	}
}

// pin records a new pinned snapshot at `at` and returns its id.
func (m *SnapshotManager) pin(at ExtendedTime) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.pinned[id] = at
	return id
}

// Release unpins a previously taken snapshot. Releasing an unknown id is a
// no-op, matching the teacher's tolerant release semantics for already-gone
// handles.
func (m *SnapshotManager) Release(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pinned, id)
}

// EarliestPinned returns the earliest ExtendedTime any live snapshot still
// pins, and whether any snapshot is pinned at all.
func (m *SnapshotManager) EarliestPinned() (ExtendedTime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var earliest ExtendedTime
	found := false
	for _, at := range m.pinned {
		if !found || at.Less(earliest) {
			earliest = at
			found = true
		}
	}
	return earliest, found
}

// CheckRetention returns ErrRetentionViolation if discarding history at or
// before `at` would violate a pinned snapshot, that is, if `at` is not
// before the earliest pinned ExtendedTime. present is accepted but not
// examined, so the retention horizon behind the present cursor is not
// checked.
//
// This guards an actual garbage-collection boundary — a decision to throw
// away everything at or before some point — not a rewind. A rewind never
// discards anything a pinned Snapshot can observe: Snapshot.Query reads from
// a TimelineSnapshot that FieldMap.Snapshot already copied into its own map
// at take time, so a later rewind mutating the live FieldMap cannot change
// what an existing pinned snapshot returns. No caller in this package
// invokes CheckRetention yet, since there is no history-pruning operation
// implemented (RetentionHorizon is accepted in Config and threaded through
// to here, but nothing ever acts on it); it is kept, correctly implemented
// and tested, as the primitive such an operation would call.
func (m *SnapshotManager) CheckRetention(at ExtendedTime, present ExtendedTime) error {
	if earliest, ok := m.EarliestPinned(); ok && !at.Less(earliest) {
		return fmt.Errorf("%w: region at %s is pinned by a live snapshot at %s", ErrRetentionViolation, at, earliest)
	}
	_ = present // horizon-relative checks belong to a future discard operation, not implemented here
	return nil
}

// --- wire-format snapshot serialization (spec §6) --------------------------

// wireRecord is one (TypeID, RowID, serialized field value) tuple; the
// canonical wire format is a sequence of these in ascending (TypeID, RowID)
// order so that two snapshots of identical state are byte-identical (spec
// §6). The concrete bytes encoding is implemented in wire.go, grounded on
// the teacher's gob-based compilation/compilation.go encoding.
type wireRecord struct {
	Timeline TypeID
	Key      RowID
	Value    Value
}

func snapshotRecords(byID map[TypeID]TimelineSnapshot, keysByTimeline map[TypeID][]RowID) []wireRecord {
	var records []wireRecord
	timelines := make([]TypeID, 0, len(byID))
	for t := range byID {
		timelines = append(timelines, t)
	}
	sort.Slice(timelines, func(i, j int) bool { return timelines[i] < timelines[j] })

	for _, t := range timelines {
		keys := append([]RowID(nil), keysByTimeline[t]...)
		sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
		ts := byID[t]
		for _, k := range keys {
			if v, ok := ts.Query(k); ok {
				records = append(records, wireRecord{Timeline: t, Key: k, Value: v})
			}
		}
	}
	return records
}
