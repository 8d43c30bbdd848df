// Package timesteward provides a deterministic, retroactively-editable
// discrete-event scheduler.
//
// Simulation state lives in DataTimelines, each the authoritative store for
// one typed column across every row. Predictors are pure functions of that
// state that emit at most one candidate Event; events run against an
// Accessor/Mutator pair that records the reads and writes they perform.
// Every read and write is tracked in a dependency graph so that inserting,
// removing, or replacing a past event invalidates and re-executes only the
// events and predictors that actually depended on what changed.
//
// Execution order is defined entirely by ExtendedTime, never by wall-clock
// order or insertion order: the same multiset of fiat events, inserted in
// any order, produces bit-identical state at any given time.
package timesteward
