package timesteward

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// RNG is a deterministic, keyed-hash pseudo-random stream. There is no
// process-wide RNG (spec §9): every event body's RNG is derived by keyed
// hashing from its ExtendedTime ID, and every predictor's RNG is derived
// from (predictor_type_id, subject_row, event.id), so that identical
// invocations at different points in retroactive history draw identical
// sequences regardless of wall-clock order.
//
// RNG is deliberately not math/rand or any platform RNG: per spec §6,
// user-supplied code must not use a platform RNG, and the core's own
// internal draws (e.g. for same-instant id allocation, if ever needed)
// follow the same rule.
type RNG struct {
	seed    uint64
	counter uint64
}

// NewEventRNG derives the RNG for an executing event from its id. The
// engine does not pass an RNG to event bodies; a body that draws random
// numbers calls this itself.
func NewEventRNG(event RowID) RNG {
	return RNG{seed: xxhash.Sum64(event[:])}
}

// NewPredictorRNG derives the RNG for a predictor invocation, keyed by the
// predictor's type, its subject row, and the triggering event's id, so
// that the same predictor invoked again during a retroactive re-run (same
// triple) draws an identical sequence. The engine does not pass an RNG to
// predictors; a predictor that draws random numbers calls this itself, as
// internal/ball does.
func NewPredictorRNG(predictorType TypeID, subject RowID, eventID RowID) RNG {
	h := xxhash.New()
	var typBuf [8]byte
	binary.BigEndian.PutUint64(typBuf[:], uint64(predictorType))
	_, _ = h.Write(typBuf[:])
	_, _ = h.Write(subject[:])
	_, _ = h.Write(eventID[:])
	return RNG{seed: h.Sum64()}
}

// Uint64 returns the next value in the deterministic stream.
func (r *RNG) Uint64() uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], r.seed)
	binary.BigEndian.PutUint64(buf[8:16], r.counter)
	r.counter++
	return xxhash.Sum64(buf[:])
}

// Intn returns a deterministic value in [0, n). n must be positive.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		panic("timesteward: RNG.Intn called with n <= 0")
	}
	return int(r.Uint64() % uint64(n))
}

// RowID mints a fresh RowID from the stream, for predictors or events that
// need to create a new row deterministically rather than derive one from
// caller seed data.
func (r *RNG) RowID() RowID {
	var id RowID
	binary.BigEndian.PutUint64(id[0:8], r.Uint64())
	binary.BigEndian.PutUint64(id[8:16], r.Uint64())
	return id
}
