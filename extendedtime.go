package timesteward

import "fmt"

// Time is the user-facing, signed, monotonic coordinate a simulation is
// defined over. The core imposes no arithmetic on it beyond ordering.
type Time int64

// ExtendedTime is the total order the scheduler uses to sequence every
// committed event: lexicographic on (Base, Iteration, ID). Ties at the same
// Base are broken by ID; causal cycles discovered at a single Base are
// broken by incrementing Iteration (see driver.go, runPredictors).
//
// Users construct ExtendedTimes only with Iteration == 0; the driver owns
// every promotion to a later iteration.
type ExtendedTime struct {
	Base      Time
	Iteration uint32
	ID        RowID
}

// NewExtendedTime builds the Iteration-0 ExtendedTime a fiat insertion uses.
func NewExtendedTime(base Time, id RowID) ExtendedTime {
	return ExtendedTime{Base: base, Iteration: 0, ID: id}
}

// Compare returns -1, 0, or 1 following the lexicographic order on
// (Base, Iteration, ID).
func (t ExtendedTime) Compare(other ExtendedTime) int {
	if t.Base != other.Base {
		if t.Base < other.Base {
			return -1
		}
		return 1
	}
	if t.Iteration != other.Iteration {
		if t.Iteration < other.Iteration {
			return -1
		}
		return 1
	}
	return t.ID.Compare(other.ID)
}

// Less reports whether t sorts strictly before other.
func (t ExtendedTime) Less(other ExtendedTime) bool { return t.Compare(other) < 0 }

// nextIteration returns the ExtendedTime at the same Base with Iteration
// incremented and the given id, used by the driver to resolve same-instant
// causal cycles (spec §4.6).
func (t ExtendedTime) nextIteration(id RowID) ExtendedTime {
	return ExtendedTime{Base: t.Base, Iteration: t.Iteration + 1, ID: id}
}

func (t ExtendedTime) String() string {
	return fmt.Sprintf("(%d,%d,%s)", t.Base, t.Iteration, t.ID)
}
