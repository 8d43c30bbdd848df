package timesteward

import (
	"encoding/gob"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Value is the atomic unit of payload carried by events, predictor
// candidates, and DataTimeline columns. Concrete user types implement it by
// embedding InformationElement, mirroring the teacher's
// digitaltwin.Value/InformationElement split: this lets the core guard
// against accidental use of arbitrary types while costing nothing at
// runtime (InformationElement occupies zero words).
type Value interface {
	timestewardValue()
}

// InformationElement embeds into user-defined payload and column types to
// implement Value.
type InformationElement struct{}

func (InformationElement) timestewardValue() {}

// typeRegistry maps a TypeID to the reflect.Type it was registered for. Per
// spec §9, heterogeneous payloads are modeled as a tagged variant over
// registered TypeIDs with per-type handling dispatched via this registry
// populated at construction time — the same "no run-time reflection
// surprises, explicit registration" contract as the teacher's
// neo4jengine.globalNodeRegistry (RegisterLabel/TypeOf/LabelOf, panics on a
// duplicate registration that disagrees with the existing one).
type typeRegistry struct {
	mu        sync.RWMutex
	idToType  map[TypeID]reflect.Type
	typeToID  map[reflect.Type]TypeID
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{
		idToType: make(map[TypeID]reflect.Type),
		typeToID: make(map[reflect.Type]TypeID),
	}
}

// Register binds id to the Go type of sample. Registering the same id with
// a different Go type, or the same Go type with a different id, is a fatal
// configuration error: duplicate registration is a programmer mistake
// caught at startup, not a runtime condition callers should need to handle
// (spec §3: "duplicate registration is a fatal configuration error").
func (r *typeRegistry) Register(id TypeID, sample Value) {
	t := reflect.TypeOf(sample)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.idToType[id]; ok {
		if existing != t {
			panic(fmt.Sprintf("timesteward: %v: TypeID %s already registered for %v", ErrTypeIDCollision, id, existing))
		}
		return
	}
	if existingID, ok := r.typeToID[t]; ok {
		if existingID != id {
			panic(fmt.Sprintf("timesteward: %v: type %v already registered under TypeID %s", ErrTypeIDCollision, t, existingID))
		}
		return
	}
	r.idToType[id] = t
	r.typeToID[t] = id

	// Tie TypeID registration directly to gob wire-encodability, so that a
	// type is never forgotten for snapshot serialization just because an
	// author remembered to register it for dispatch but not for gob (spec
	// §6: "All user values implement a deterministic serialization").
	gob.Register(sample)
}

// TypeIDs returns every TypeID currently registered, sorted ascending; used
// to build a snapshot's wire header (spec §6).
func (r *typeRegistry) TypeIDs() []TypeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]TypeID, 0, len(r.idToType))
	for id := range r.idToType {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TypeIDOf returns the TypeID a value's concrete Go type was registered
// under, or ErrUnregisteredType if it was never registered.
func (r *typeRegistry) TypeIDOf(v Value) (TypeID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.typeToID[reflect.TypeOf(v)]
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnregisteredType, v)
	}
	return id, nil
}

// TypeOf returns the Go type registered for id, or ErrUnregisteredType.
func (r *typeRegistry) TypeOf(id TypeID) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.idToType[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredType, id)
	}
	return t, nil
}
