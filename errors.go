package timesteward

import (
	"errors"
	"fmt"
)

// Configuration errors (spec §7): reported to the caller, engine state
// unchanged.
var (
	ErrDuplicateFiatID  = errors.New("timesteward: fiat id already inserted")
	ErrNoSuchFiatEvent  = errors.New("timesteward: no such fiat event")
	ErrTypeIDCollision  = errors.New("timesteward: type id registered under a different Go type")
	ErrUnregisteredType = errors.New("timesteward: type id not registered")
)

// ErrDependencyCycle names the dependency-cycle kind of simulation-logic
// error (spec §7). The driver does not detect dependency cycles, and no
// code path in this package returns it.
var ErrDependencyCycle = errors.New("timesteward: dependency cycle detected during invalidation")

// IterationLimitError reports a same-base invalidation cascade that did not
// terminate within the configured iteration bound (spec §4.6, §7). AdvanceTo
// returns it as soon as the bound is passed. Nothing is rolled back: the
// present cursor stays at the last event committed, which may be an event
// of the offending cascade itself.
type IterationLimitError struct {
	Base  Time
	Limit uint32
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("timesteward: iteration limit %d exceeded at base time %d", e.Limit, e.Base)
}

// Is allows errors.Is(err, ErrIterationLimitExceeded) style matching without
// requiring callers to unwrap an *IterationLimitError to test the kind.
func (e *IterationLimitError) Is(target error) bool {
	return target == ErrIterationLimitExceeded
}

// ErrIterationLimitExceeded is the sentinel kind IterationLimitError wraps,
// matching the spec's "kind names only, not types" taxonomy (§7) while
// still letting callers recover the offending Base via errors.As.
var ErrIterationLimitExceeded = errors.New("timesteward: iteration limit exceeded")

// SnapshotDeserializationError reports that a snapshot's wire header
// (schema version or registered TypeID set) does not match the engine
// configuration attempting to deserialize it (spec §7, §6).
type SnapshotDeserializationError struct {
	Reason string
}

func (e *SnapshotDeserializationError) Error() string {
	return fmt.Sprintf("timesteward: snapshot deserialization mismatch: %s", e.Reason)
}

func (e *SnapshotDeserializationError) Is(target error) bool {
	return target == ErrSnapshotDeserializationMismatch
}

var ErrSnapshotDeserializationMismatch = errors.New("timesteward: snapshot deserialization mismatch")

// ErrRetentionViolation is returned by SnapshotManager.CheckRetention when
// discarding history at a given point would drop state that an unreleased
// snapshot still pins. Only pinned snapshots are checked, not predictor
// reads, and nothing in the engine calls CheckRetention, since no operation
// discards history.
var ErrRetentionViolation = errors.New("timesteward: garbage collection would discard a region still referenced by a live snapshot")

// corruptedInvariant panics with diagnostic context. Internal invariant
// violations (a dependency-graph edge pointing to a nonexistent accessor, an
// event queue holding a stale handle) are bugs, not part of the public error
// taxonomy (spec §7) — the same contract as the teacher's
// panicWithCorruptedGraph in neo4jengine/writer.go.
func corruptedInvariant(format string, args ...any) {
	panic(fmt.Sprintf("timesteward: internal invariant violated: "+format, args...))
}
