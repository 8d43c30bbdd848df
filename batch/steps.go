package batch

import (
	"context"
	"encoding/gob"
	"iter"

	"github.com/timesteward/timesteward"
)

func init() {
	gob.Register(insertFiatEvent{})
	gob.Register(removeFiatEvent{})
}

// insertFiatEvent is a Step that inserts a fiat event.
type insertFiatEvent struct {
	At      timesteward.Time
	ID      timesteward.RowID
	Payload timesteward.Value
}

func (s insertFiatEvent) Do(ctx context.Context, e *timesteward.Engine) error {
	return e.InsertFiatEvent(s.At, s.ID, s.Payload)
}

func (s insertFiatEvent) Targets() iter.Seq[timesteward.RowID] {
	return func(yield func(timesteward.RowID) bool) {
		yield(s.ID)
	}
}

// removeFiatEvent is a Step that retracts a previously inserted fiat event.
type removeFiatEvent struct {
	At timesteward.Time
	ID timesteward.RowID
}

func (s removeFiatEvent) Do(ctx context.Context, e *timesteward.Engine) error {
	return e.RemoveFiatEvent(s.At, s.ID)
}

func (s removeFiatEvent) Targets() iter.Seq[timesteward.RowID] {
	return func(yield func(timesteward.RowID) bool) {
		yield(s.ID)
	}
}
