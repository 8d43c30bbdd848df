package timesteward

import "fmt"

// Config bounds the driver's behavior: iteration limit guards against
// non-terminating same-base invalidation cascades (spec §4.6), and
// RetentionHorizon is the number of committed events to keep behind the
// present cursor (spec §4.7). RetentionHorizon is passed to the
// SnapshotManager and stored there; no operation discards history, and no
// check reads it.
type Config struct {
	IterationLimit   uint32
	RetentionHorizon uint64
}

// DefaultConfig returns reasonable defaults: an iteration limit generous
// enough for legitimate same-instant causal chains but tight enough to
// catch a pathological predictor pair quickly (spec §8 scenario 6), and no
// retention horizon beyond what live snapshots pin.
func DefaultConfig() Config {
	return Config{IterationLimit: 1000, RetentionHorizon: 0}
}

// Engine is the retroactive event scheduler and its dependency tracker
// (spec §1): the canonical ordered event log, the predictor set, the
// dependency graph, and the invalidation/repair driver that keeps the
// present (and any committed snapshots) equal to the state a full
// re-simulation would produce.
type Engine struct {
	cfg Config

	payloadTypes *typeRegistry
	bodies       map[TypeID]Body

	timelines map[TypeID]DataTimeline

	graph      *DependencyGraph
	queue      *EventQueue
	committed  *EventQueue
	predictors *PredictorTable
	snapshots  *SnapshotManager

	fiat        map[RowID]ExtendedTime // live fiat event ids -> their ExtendedTime
	removedFiat map[RowID]struct{}     // ids explicitly removed, so a rewind never restores them

	// pendingRewind is set when RemoveFiatEvent retracts an id that was
	// already committed: there is nothing left in the pending queue to make
	// AdvanceTo notice it must rewind, so the driver checks this directly
	// (spec §8 scenario 3).
	pendingRewind *ExtendedTime

	present ExtendedTime
}

// New constructs an empty Engine. Callers register DataTimelines, event
// bodies, and predictors before inserting any fiat events (spec §6's
// abstract `new(initial_globals)`).
func New(cfg Config) *Engine {
	return &Engine{
		cfg:          cfg,
		payloadTypes: newTypeRegistry(),
		bodies:       make(map[TypeID]Body),
		timelines:    make(map[TypeID]DataTimeline),
		graph:        NewDependencyGraph(),
		queue:        NewEventQueue(),
		committed:    NewEventQueue(),
		predictors:   NewPredictorTable(),
		snapshots:    NewSnapshotManager(cfg.RetentionHorizon),
		fiat:         make(map[RowID]ExtendedTime),
		removedFiat:  make(map[RowID]struct{}),
	}
}

// RegisterTimeline registers a DataTimeline under its own TypeID. A second
// registration of the same TypeID, whatever its Go value, is a fatal
// configuration error and panics (spec §3).
func (e *Engine) RegisterTimeline(dt DataTimeline) {
	if _, ok := e.timelines[dt.TypeID()]; ok {
		panic(fmt.Sprintf("timesteward: %v: timeline %s already registered", ErrTypeIDCollision, dt.TypeID()))
	}
	e.timelines[dt.TypeID()] = dt
}

func (e *Engine) timelineFor(typ TypeID) (DataTimeline, error) {
	dt, ok := e.timelines[typ]
	if !ok {
		return nil, fmt.Errorf("%w: timeline %s", ErrUnregisteredType, typ)
	}
	return dt, nil
}

// RegisterEventBody registers the Body dispatched to when an event payload
// of sample's concrete type commits. sample is also registered in the
// payload type registry (and, transitively, with gob) under typ.
func (e *Engine) RegisterEventBody(typ TypeID, sample Value, body Body) {
	e.payloadTypes.Register(typ, sample)
	e.bodies[typ] = body
}

// RegisterPredictor registers a predictor type. Use SpawnPredictor to bind
// an instance of it to a subject row.
func (e *Engine) RegisterPredictor(typ TypeID, fn PredictorFunc) {
	e.predictors.Register(typ, fn)
}

// SpawnPredictor creates (or reuses) a predictor instance bound to subject,
// marking it for an initial run on the next AdvanceTo call (spec §3's
// Lifecycle: "Predictor instances are created when a fiat event or prior
// predictor output registers them").
func (e *Engine) SpawnPredictor(typ TypeID, subject RowID) {
	e.predictors.Spawn(typ, subject)
}

// InsertFiatEvent places a caller-supplied event on the queue (spec §6).
// It fails with ErrDuplicateFiatID if id was already inserted and not
// removed.
func (e *Engine) InsertFiatEvent(time Time, id RowID, payload Value) error {
	if _, ok := e.fiat[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFiatID, id)
	}
	at := NewExtendedTime(time, id)
	e.queue.Insert(Event{Time: at, Payload: payload, Origin: FiatOrigin()})
	e.fiat[id] = at
	return nil
}

// RemoveFiatEvent retracts a previously inserted fiat event (spec §6). It
// fails with ErrNoSuchFiatEvent if no live fiat event has that id. If the
// event was still pending, this simply deletes its queue entry. If it was
// already committed, there is nothing left on the pending queue to trigger
// a rewind, so the id is instead recorded as a pending rewind target: the
// next AdvanceTo that reaches at least its time will rewind past it (and
// everything that causally followed it) before continuing, and the id is
// remembered so that rewind never restores it.
func (e *Engine) RemoveFiatEvent(time Time, id RowID) error {
	at, ok := e.fiat[id]
	if !ok || at.Base != time {
		return fmt.Errorf("%w: %s at %d", ErrNoSuchFiatEvent, id, time)
	}
	delete(e.fiat, id)
	e.removedFiat[id] = struct{}{}
	if !e.queue.Delete(queueHandle{at: at, valid: true}) {
		if e.pendingRewind == nil || at.Less(*e.pendingRewind) {
			e.pendingRewind = &at
		}
	}
	return nil
}

// DebugGraphEdges returns a snapshot of every live dependency-graph edge,
// for export to external inspection tooling (see debugexport/neo4jexport).
// The returned shape is not part of any compatibility contract and must
// never be used by simulation logic.
func (e *Engine) DebugGraphEdges() []GraphEdge {
	return e.graph.debugEdges()
}

// Present returns the driver's present cursor P: all events with
// ExtendedTime <= P are currently executed (spec §4.6).
func (e *Engine) Present() ExtendedTime { return e.present }

// TakeSnapshot materializes an immutable view pinned at ExtendedTime
// e.present truncated to `at` (spec §4.7). Pass the Time to snapshot at;
// the returned Snapshot's own ExtendedTime is the present cursor clamped to
// that Time, since a snapshot can only be taken of already-committed state.
func (e *Engine) TakeSnapshot(at Time) *Snapshot {
	snapAt := e.present
	if snapAt.Base > at {
		snapAt = ExtendedTime{Base: at, Iteration: 0, ID: RowID{}}
	}

	byID := make(map[TypeID]TimelineSnapshot, len(e.timelines))
	for typ, dt := range e.timelines {
		byID[typ] = dt.Snapshot(snapAt)
	}

	id := e.snapshots.pin(snapAt)
	return &Snapshot{id: id, at: snapAt, byID: byID}
}

// ReleaseSnapshot unpins a snapshot taken with TakeSnapshot (spec §6).
func (e *Engine) ReleaseSnapshot(s *Snapshot) {
	if s == nil {
		return
	}
	e.snapshots.Release(s.id)
}

// SerializeSnapshot encodes a snapshot into the canonical wire format (spec
// §6). keysByTimeline must list every RowID the caller wants included for
// each TypeID, since a TimelineSnapshot itself does not enumerate its own
// keys (built-in timelines expose a keys accessor for this; see
// FieldMap.FieldMapSnapshotKeys in timeline.go).
func (e *Engine) SerializeSnapshot(s *Snapshot, keysByTimeline map[TypeID][]RowID) ([]byte, error) {
	records := snapshotRecords(s.byID, keysByTimeline)
	header := SnapshotHeader{
		SchemaVersion: schemaVersion,
		At:            s.at,
		TypeIDs:       e.payloadTypes.TypeIDs(),
	}
	return EncodeSnapshot(header, records)
}

// LoadSnapshot writes the records encoded by data into e's DataTimelines at
// the snapshot's ExtendedTime and moves the present cursor there, returning
// ErrSnapshotDeserializationMismatch if its header disagrees with e's
// current registrations (spec §6, §7). History already in e's timelines is
// not cleared. The engine's
// registrations (timelines, event bodies, predictors) must already match
// the configuration that produced the snapshot; LoadSnapshot only restores
// state, mirroring spec §6's deserialize_snapshot contract that "reconstructs
// a simulation whose future is identical to the original given identical
// subsequent fiat events" (I5).
func (e *Engine) LoadSnapshot(data []byte) error {
	header, records, err := DecodeSnapshot(data, e.payloadTypes.TypeIDs())
	if err != nil {
		return err
	}

	for _, r := range records {
		dt, err := e.timelineFor(r.Timeline)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		dt.Insert(r.Key, header.At, r.Value)
	}
	e.present = header.At
	return nil
}
