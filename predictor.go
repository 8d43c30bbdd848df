package timesteward

import "sync"

// Accessor is the read-only façade supplied to predictor bodies (and
// embedded in Mutator for event bodies). It is the only legal channel for
// reading simulation state (spec §5); every read it performs is recorded as
// a dependency edge against the accessor it was constructed for.
type Accessor struct {
	engine *Engine
	self   accessorHandle
	at     ExtendedTime
	reads  []readEdge
}

// At returns the ExtendedTime this accessor is reading the simulation as
// of.
func (a *Accessor) At() ExtendedTime { return a.at }

// Query reads timeline's value for key as of the accessor's ExtendedTime,
// recording a dependency edge at the granularity the timeline declares
// (spec §4.2).
func (a *Accessor) Query(timeline TypeID, key RowID) (Value, bool) {
	dt, err := a.engine.timelineFor(timeline)
	if err != nil {
		corruptedInvariant("query unregistered timeline %s: %v", timeline, err)
	}
	v, ok := dt.Query(key, a.at)
	a.reads = append(a.reads, readEdge{timeline: timeline, key: key, at: a.at, granularity: dt.Granularity()})
	return v, ok
}

// Mutator extends Accessor with Write, the only legal channel for mutating
// simulation state from an event body (spec §5).
type Mutator struct {
	Accessor
	writes        []fieldKey
	writtenRegion []writtenRegion
}

type writtenRegion struct {
	timeline TypeID
	region   Region
}

// Write records a retroactive write of value to timeline's key, effective
// at the mutator's ExtendedTime.
func (m *Mutator) Write(timeline TypeID, key RowID, value Value) {
	dt, err := m.engine.timelineFor(timeline)
	if err != nil {
		corruptedInvariant("write unregistered timeline %s: %v", timeline, err)
	}
	regions := dt.Insert(key, m.at, value)
	m.writes = append(m.writes, fieldKey{timeline: timeline, key: key})
	for _, r := range regions {
		m.writtenRegion = append(m.writtenRegion, writtenRegion{timeline: timeline, region: r})
	}
}

// predictorDef is a registered predictor type: its function and its
// TypeID, analogous to a registered Applier in the teacher's compiler.go.
type predictorDef struct {
	typ TypeID
	fn  PredictorFunc
}

// PredictorTable is the set of live predictor instances plus the lazy
// re-run work-list (spec §4.4): when any edge of a predictor is
// invalidated, it is placed on this list and re-run no later than the
// driver would otherwise advance past its previously-predicted event time.
type PredictorTable struct {
	mu sync.Mutex

	defs      map[TypeID]predictorDef
	instances map[predictorKey]*predictorInstance
	worklist  map[predictorKey]struct{}
}

type predictorKey struct {
	typ     TypeID
	subject RowID
}

func NewPredictorTable() *PredictorTable {
	return &PredictorTable{
		defs:      make(map[TypeID]predictorDef),
		instances: make(map[predictorKey]*predictorInstance),
		worklist:  make(map[predictorKey]struct{}),
	}
}

// Register binds a PredictorFunc to typ. Registering the same TypeID twice
// is a fatal configuration error (spec §3).
func (t *PredictorTable) Register(typ TypeID, fn PredictorFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.defs[typ]; ok {
		panic(TypeIDCollisionMessage(typ))
	}
	t.defs[typ] = predictorDef{typ: typ, fn: fn}
}

// TypeIDCollisionMessage formats the panic text used when a TypeID is
// registered twice for conflicting definitions.
func TypeIDCollisionMessage(typ TypeID) string {
	return "timesteward: " + ErrTypeIDCollision.Error() + ": predictor " + typ.String() + " already registered"
}

// Spawn creates (or returns the existing) predictor instance for
// (typ, subject) and marks it due for an initial run. Predictor instances
// are created when a fiat event or prior predictor output registers them
// (spec §3).
func (t *PredictorTable) Spawn(typ TypeID, subject RowID) *predictorInstance {
	t.mu.Lock()
	defer t.mu.Unlock()

	def, ok := t.defs[typ]
	if !ok {
		corruptedInvariant("spawn unregistered predictor type %s", typ)
	}
	key := predictorKey{typ: typ, subject: subject}
	inst, ok := t.instances[key]
	if !ok {
		inst = &predictorInstance{typ: typ, subject: subject, fn: def.fn}
		t.instances[key] = inst
	}
	t.worklist[key] = struct{}{}
	return inst
}

// Destroy removes a predictor instance entirely — when the subject row is
// removed or the registering event is undone (spec §3's Lifecycle).
func (t *PredictorTable) Destroy(typ TypeID, subject RowID) (*predictorInstance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := predictorKey{typ: typ, subject: subject}
	inst, ok := t.instances[key]
	delete(t.instances, key)
	delete(t.worklist, key)
	return inst, ok
}

// MarkDue places the predictor owning accessor on the re-run work-list, if
// accessor identifies a predictor (event-body accessors are never re-run
// lazily; they are re-executed by rewind instead).
func (t *PredictorTable) MarkDue(accessor accessorHandle) {
	if accessor.kind != accessorPredictor {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.worklist[predictorKey{typ: accessor.predictorType, subject: accessor.subject}] = struct{}{}
}

// Worklist returns every predictor instance currently due for a re-run —
// spec §4.4's lazy re-run set. Re-running is lazy by construction: an
// invalidated predictor sits here until the driver actually needs its
// output, "no later than the moment the scheduler would otherwise advance
// past its previously-predicted event time, and no later than the moment
// the driver is asked for the state at some time T >= the earliest
// possibly-affected point" — the driver (not this table) decides when that
// moment has arrived and calls Worklist to find out what must run first.
func (t *PredictorTable) Worklist() []*predictorInstance {
	t.mu.Lock()
	defer t.mu.Unlock()

	due := make([]*predictorInstance, 0, len(t.worklist))
	for key := range t.worklist {
		if inst, ok := t.instances[key]; ok {
			due = append(due, inst)
		} else {
			delete(t.worklist, key)
		}
	}
	return due
}

// Clear removes inst from the work-list after it has been re-run.
func (t *PredictorTable) Clear(inst *predictorInstance) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.worklist, predictorKey{typ: inst.typ, subject: inst.subject})
}
