package timesteward

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// RowID is a 128-bit deterministic identifier for a state row. It is either
// derived by cryptographic hash over caller-supplied seed data
// (DeriveRowID) or minted by the deterministic PRNG seeded from the
// executing event's own ID (see rng.go). Collision is assumed impossible at
// this width, per spec §3.
type RowID [16]byte

// Compare provides the byte-lexicographic order RowID needs wherever it
// breaks ties (ExtendedTime.ID, the wire format's ascending (TypeID, RowID)
// ordering).
func (id RowID) Compare(other RowID) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether id is the zero RowID, conventionally reserved to
// mean "no id" (e.g. a predictor that has never produced an event).
func (id RowID) IsZero() bool { return id == RowID{} }

func (id RowID) String() string { return hex.EncodeToString(id[:]) }

// MarshalText implements encoding.TextMarshaler, following the teacher's
// NodeHash convention of making identifiers legible in logs and JSON.
func (id RowID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *RowID) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("rowid: decode hex: %w", err)
	}
	if len(b) != len(id) {
		return fmt.Errorf("rowid: want %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return nil
}

// DeriveRowID produces a deterministic RowID from caller-supplied seed data
// and the TypeID of the row it will identify, so that two calls with equal
// seed and equal type never collide by construction and unequal ones
// collide only within the hash's negligible collision probability.
//
// This is the cryptographic-strength counterpart to rng.go's fast keyed
// hash: RowID derivation must remain collision-resistant, since RowIDs are
// a correctness-relevant identity, not a reproducible-but-not-adversarial
// random draw.
func DeriveRowID(typ TypeID, seed []byte) RowID {
	h := sha1.New()
	var typBuf [8]byte
	binary.BigEndian.PutUint64(typBuf[:], uint64(typ))
	h.Write(typBuf[:])
	h.Write(seed)
	sum := h.Sum(nil)
	var id RowID
	copy(id[:], sum[:len(id)])
	return id
}

// TypeID is a 64-bit constant chosen by the author of each DataTimeline,
// Event, or Predictor type. The core treats it as opaque beyond requiring
// stability across runs and uniqueness among registered types; duplicate
// registration under a different Go type is a fatal configuration error
// (see typeRegistry in value.go, grounded on the teacher's globalNodeRegistry).
type TypeID uint64

func (t TypeID) String() string { return fmt.Sprintf("type:%016x", uint64(t)) }
