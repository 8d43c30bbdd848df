package timesteward

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sort"
)

// schemaVersion is bumped whenever the wire header or record shape changes
// incompatibly. It is not the same thing as a TypeID: it versions the
// engine's own encoding, not any one user type.
const schemaVersion uint32 = 1

// SnapshotHeader precedes the record sequence in the wire format: schema
// version, the snapshot's ExtendedTime, and the sorted set of TypeIDs the
// engine had registered when it was written (spec §6).
type SnapshotHeader struct {
	SchemaVersion uint32
	At            ExtendedTime
	TypeIDs       []TypeID
}

// EncodeSnapshot serializes header and records into the canonical wire
// format: a fixed-width big-endian header followed by a gob-encoded record
// sequence in ascending (TypeID, RowID) order. Two snapshots of identical
// state encode to byte-identical output, since snapshotRecords already
// sorts deterministically and gob encodes a fixed Go value deterministically
// (spec §6).
func EncodeSnapshot(header SnapshotHeader, records []wireRecord) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, header.SchemaVersion); err != nil {
		return nil, fmt.Errorf("timesteward: write schema version: %w", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, int64(header.At.Base)); err != nil {
		return nil, fmt.Errorf("timesteward: write base time: %w", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, header.At.Iteration); err != nil {
		return nil, fmt.Errorf("timesteward: write iteration: %w", err)
	}
	buf.Write(header.At.ID[:])

	ids := append([]TypeID(nil), header.TypeIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(ids))); err != nil {
		return nil, fmt.Errorf("timesteward: write type count: %w", err)
	}
	for _, id := range ids {
		if err := binary.Write(&buf, binary.BigEndian, uint64(id)); err != nil {
			return nil, fmt.Errorf("timesteward: write type id: %w", err)
		}
	}

	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("timesteward: gob-encode records: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeSnapshot parses the wire format produced by EncodeSnapshot,
// returning ErrSnapshotDeserializationMismatch if the header's schema
// version or registered TypeID set disagrees with the current engine
// configuration (spec §7).
func DecodeSnapshot(data []byte, currentTypeIDs []TypeID) (SnapshotHeader, []wireRecord, error) {
	r := bytes.NewReader(data)
	var header SnapshotHeader

	if err := binary.Read(r, binary.BigEndian, &header.SchemaVersion); err != nil {
		return header, nil, fmt.Errorf("timesteward: read schema version: %w", err)
	}
	if header.SchemaVersion != schemaVersion {
		return header, nil, &SnapshotDeserializationError{
			Reason: fmt.Sprintf("schema version %d, engine expects %d", header.SchemaVersion, schemaVersion),
		}
	}

	var base int64
	if err := binary.Read(r, binary.BigEndian, &base); err != nil {
		return header, nil, fmt.Errorf("timesteward: read base time: %w", err)
	}
	header.At.Base = Time(base)
	if err := binary.Read(r, binary.BigEndian, &header.At.Iteration); err != nil {
		return header, nil, fmt.Errorf("timesteward: read iteration: %w", err)
	}
	if _, err := r.Read(header.At.ID[:]); err != nil {
		return header, nil, fmt.Errorf("timesteward: read id: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return header, nil, fmt.Errorf("timesteward: read type count: %w", err)
	}
	header.TypeIDs = make([]TypeID, count)
	for i := range header.TypeIDs {
		var id uint64
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return header, nil, fmt.Errorf("timesteward: read type id: %w", err)
		}
		header.TypeIDs[i] = TypeID(id)
	}

	if !sameTypeIDSet(header.TypeIDs, currentTypeIDs) {
		return header, nil, &SnapshotDeserializationError{
			Reason: "registered TypeID set differs from current engine configuration",
		}
	}

	var records []wireRecord
	dec := gob.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return header, nil, fmt.Errorf("timesteward: gob-decode records: %w", err)
	}

	return header, records, nil
}

func sameTypeIDSet(a, b []TypeID) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]TypeID(nil), a...)
	bs := append([]TypeID(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
