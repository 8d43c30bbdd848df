package timesteward

import (
	"errors"
	"testing"
)

func TestSnapshotManagerPinTracksEarliest(t *testing.T) {
	m := NewSnapshotManager(0)

	id1 := m.pin(NewExtendedTime(10, RowID{0x01}))
	if _, ok := m.EarliestPinned(); !ok {
		t.Fatal("EarliestPinned reports nothing pinned right after a pin")
	}

	id2 := m.pin(NewExtendedTime(5, RowID{0x02}))
	earliest, ok := m.EarliestPinned()
	if !ok {
		t.Fatal("EarliestPinned reports nothing pinned")
	}
	if want := NewExtendedTime(5, RowID{0x02}); earliest != want {
		t.Errorf("EarliestPinned() = %s, want %s", earliest, want)
	}

	m.Release(id2)
	earliest, ok = m.EarliestPinned()
	if !ok {
		t.Fatal("EarliestPinned reports nothing pinned after releasing only the later one")
	}
	if want := NewExtendedTime(10, RowID{0x01}); earliest != want {
		t.Errorf("EarliestPinned() after releasing id2 = %s, want %s", earliest, want)
	}

	m.Release(id1)
	if _, ok := m.EarliestPinned(); ok {
		t.Error("EarliestPinned reports a pin after releasing every one")
	}
}

func TestSnapshotManagerReleaseUnknownIDIsNoOp(t *testing.T) {
	m := NewSnapshotManager(0)
	m.pin(NewExtendedTime(1, RowID{0x01}))
	m.Release(9999)
	if _, ok := m.EarliestPinned(); !ok {
		t.Error("releasing an unknown id dropped the real pin")
	}
}

func TestCheckRetentionAllowsDiscardingBeforeEarliestPin(t *testing.T) {
	m := NewSnapshotManager(0)
	pinnedAt := NewExtendedTime(10, RowID{0x01})
	m.pin(pinnedAt)

	if err := m.CheckRetention(NewExtendedTime(5, RowID{0x00}), pinnedAt); err != nil {
		t.Errorf("CheckRetention strictly before the pinned time = %v, want nil", err)
	}
}

func TestCheckRetentionRejectsDiscardingAtOrAfterEarliestPin(t *testing.T) {
	m := NewSnapshotManager(0)
	pinnedAt := NewExtendedTime(10, RowID{0x01})
	m.pin(pinnedAt)

	if err := m.CheckRetention(pinnedAt, pinnedAt); !errors.Is(err, ErrRetentionViolation) {
		t.Errorf("CheckRetention at exactly the pinned time = %v, want ErrRetentionViolation", err)
	}
	if err := m.CheckRetention(NewExtendedTime(20, RowID{0x02}), pinnedAt); !errors.Is(err, ErrRetentionViolation) {
		t.Errorf("CheckRetention after the pinned time = %v, want ErrRetentionViolation", err)
	}
}

func TestCheckRetentionWithNoPinsNeverRejects(t *testing.T) {
	m := NewSnapshotManager(0)
	if err := m.CheckRetention(NewExtendedTime(0, RowID{}), NewExtendedTime(100, RowID{})); err != nil {
		t.Errorf("CheckRetention with no live pins = %v, want nil", err)
	}
}

func TestSnapshotQueryDelegatesToTimeline(t *testing.T) {
	const typ TypeID = 1
	snap := &Snapshot{
		at: NewExtendedTime(1, RowID{}),
		byID: map[TypeID]TimelineSnapshot{
			typ: fieldMapSnapshot{values: map[RowID]versionedValue{
				{0x01}: {value: predTestValue{N: 3}},
			}},
		},
	}

	v, ok := snap.Query(typ, RowID{0x01})
	if !ok || v.(predTestValue).N != 3 {
		t.Errorf("Query = (%v, %v), want (3, true)", v, ok)
	}

	if _, ok := snap.Query(typ, RowID{0x02}); ok {
		t.Error("Query for an unwritten key reported ok=true")
	}
	if _, ok := snap.Query(TypeID(2), RowID{0x01}); ok {
		t.Error("Query for an unregistered timeline reported ok=true")
	}
}
