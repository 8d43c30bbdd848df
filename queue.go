package timesteward

import "github.com/google/btree"

// queueHandle identifies one entry in the event queue. Since distinct
// committed — and, transitively, distinct queued — events never share an
// ExtendedTime (invariant I3), the handle is simply the ExtendedTime
// itself; Valid distinguishes "no handle yet" from a real one.
type queueHandle struct {
	at    ExtendedTime
	valid bool
}

func (h queueHandle) Valid() bool { return h.valid }

// EventQueue is the priority structure ordered by ExtendedTime holding
// every valid scheduled event (spec §4.5). It is explicitly NOT hash-keyed:
// backed by an ordered btree so ordering is a pure function of
// ExtendedTime, never of insertion order or a hash bucket.
type EventQueue struct {
	tree *btree.BTreeG[Event]
}

func eventLess(a, b Event) bool { return a.Time.Less(b.Time) }

func NewEventQueue() *EventQueue {
	return &EventQueue{tree: btree.NewG(32, eventLess)}
}

// Insert places e on the queue and returns a handle usable with Delete.
func (q *EventQueue) Insert(e Event) queueHandle {
	q.tree.ReplaceOrInsert(e)
	return queueHandle{at: e.Time, valid: true}
}

// Delete removes the event identified by h, used when a predictor changes
// its mind and its previously-scheduled candidate must be retracted before
// a new one (or none) is inserted. It reports whether an entry was removed.
func (q *EventQueue) Delete(h queueHandle) bool {
	if !h.valid {
		return false
	}
	_, ok := q.tree.Delete(Event{Time: h.at})
	return ok
}

// Min returns the queue's earliest event without removing it.
func (q *EventQueue) Min() (Event, bool) {
	return q.tree.Min()
}

// Max returns the queue's latest event without removing it.
func (q *EventQueue) Max() (Event, bool) {
	return q.tree.Max()
}

// ExtractMin removes and returns the queue's earliest event.
func (q *EventQueue) ExtractMin() (Event, bool) {
	e, ok := q.tree.DeleteMin()
	return e, ok
}

// Len returns the number of events currently queued.
func (q *EventQueue) Len() int { return q.tree.Len() }

// AscendFrom calls f for every queued event with Time >= from, in
// ExtendedTime order, until f returns false. Used by rewind (driver.go) on
// the committed log to collect the committed events it must undo.
func (q *EventQueue) AscendFrom(from ExtendedTime, f func(Event) bool) {
	q.tree.AscendGreaterOrEqual(Event{Time: from}, f)
}
