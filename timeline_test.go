package timesteward

import "testing"

type timelineTestValue struct {
	InformationElement
	N int
}

func TestFieldMapQueryReturnsLastWriteAtOrBeforeTime(t *testing.T) {
	fm := NewFieldMap(1, PerKey, 0)
	key := RowID{0x01}

	fm.Insert(key, NewExtendedTime(1, RowID{}), timelineTestValue{N: 1})
	fm.Insert(key, NewExtendedTime(5, RowID{}), timelineTestValue{N: 5})

	if v, ok := fm.Query(key, NewExtendedTime(0, RowID{})); ok {
		t.Errorf("Query before any write = (%v, true), want ok=false", v)
	}
	if v, ok := fm.Query(key, NewExtendedTime(3, RowID{})); !ok || v.(timelineTestValue).N != 1 {
		t.Errorf("Query at time 3 = (%v, %v), want (1, true)", v, ok)
	}
	if v, ok := fm.Query(key, NewExtendedTime(5, RowID{})); !ok || v.(timelineTestValue).N != 5 {
		t.Errorf("Query at time 5 = (%v, %v), want (5, true)", v, ok)
	}
	if v, ok := fm.Query(key, NewExtendedTime(100, RowID{})); !ok || v.(timelineTestValue).N != 5 {
		t.Errorf("Query long after the last write = (%v, %v), want (5, true)", v, ok)
	}
}

func TestFieldMapRemoveIsExactInverseOfInsert(t *testing.T) {
	fm := NewFieldMap(1, PerKey, 0)
	key := RowID{0x01}
	at := NewExtendedTime(5, RowID{})

	fm.Insert(key, at, timelineTestValue{N: 5})
	if _, ok := fm.Query(key, at); !ok {
		t.Fatal("value missing right after Insert")
	}

	fm.Remove(key, at, timelineTestValue{N: 5})
	if _, ok := fm.Query(key, at); ok {
		t.Error("value still present after Remove undid its own Insert")
	}
}

func TestFieldMapQueryIsIndependentOfInsertOrder(t *testing.T) {
	key := RowID{0x01}

	forward := NewFieldMap(1, PerKey, 0)
	forward.Insert(key, NewExtendedTime(1, RowID{}), timelineTestValue{N: 1})
	forward.Insert(key, NewExtendedTime(5, RowID{}), timelineTestValue{N: 5})

	backward := NewFieldMap(1, PerKey, 0)
	backward.Insert(key, NewExtendedTime(5, RowID{}), timelineTestValue{N: 5})
	backward.Insert(key, NewExtendedTime(1, RowID{}), timelineTestValue{N: 1})

	at := NewExtendedTime(3, RowID{})
	fv, fok := forward.Query(key, at)
	bv, bok := backward.Query(key, at)
	if fok != bok || fv.(timelineTestValue).N != bv.(timelineTestValue).N {
		t.Errorf("Query depended on insertion order: forward=(%v,%v) backward=(%v,%v)", fv, fok, bv, bok)
	}
}

func TestFieldMapQueryIsCacheTransparent(t *testing.T) {
	fm := NewFieldMap(1, PerKey, 16)
	key := RowID{0x01}
	at := NewExtendedTime(5, RowID{})

	if _, ok := fm.Query(key, at); ok {
		t.Fatal("Query before any write reported ok=true")
	}

	fm.Insert(key, at, timelineTestValue{N: 7})
	v, ok := fm.Query(key, at)
	if !ok || v.(timelineTestValue).N != 7 {
		t.Errorf("Query after Insert, with caching enabled, = (%v, %v), want (7, true)", v, ok)
	}
}

func TestFieldMapRegionsForGranularity(t *testing.T) {
	key := RowID{0x01}
	at := NewExtendedTime(5, RowID{})

	perKey := NewFieldMap(1, PerKey, 0)
	regions := perKey.Insert(key, at, timelineTestValue{N: 1})
	if len(regions) != 1 || regions[0].Key != key {
		t.Errorf("PerKey Insert regions = %+v, want one region keyed on %s", regions, key)
	}

	whole := NewFieldMap(2, WholeTimeline, 0)
	regions = whole.Insert(key, at, timelineTestValue{N: 1})
	if len(regions) != 1 || regions[0].Key != (RowID{}) {
		t.Errorf("WholeTimeline Insert regions = %+v, want one region keyed on the zero RowID", regions)
	}
}

func TestFieldMapSnapshotIsStableAcrossLaterInserts(t *testing.T) {
	fm := NewFieldMap(1, PerKey, 0)
	key := RowID{0x01}
	fm.Insert(key, NewExtendedTime(1, RowID{}), timelineTestValue{N: 1})

	snap := fm.Snapshot(NewExtendedTime(10, RowID{}))

	fm.Insert(key, NewExtendedTime(2, RowID{}), timelineTestValue{N: 2})

	v, ok := snap.Query(key)
	if !ok || v.(timelineTestValue).N != 1 {
		t.Errorf("snapshot taken before a later Insert changed to (%v, %v), want (1, true)", v, ok)
	}

	live, ok := fm.Query(key, NewExtendedTime(10, RowID{}))
	if !ok || live.(timelineTestValue).N != 2 {
		t.Errorf("live Query after the later Insert = (%v, %v), want (2, true)", live, ok)
	}
}

func TestFieldMapSnapshotRespectsCutoffTime(t *testing.T) {
	fm := NewFieldMap(1, PerKey, 0)
	key := RowID{0x01}
	fm.Insert(key, NewExtendedTime(1, RowID{}), timelineTestValue{N: 1})
	fm.Insert(key, NewExtendedTime(10, RowID{}), timelineTestValue{N: 10})

	snap := fm.Snapshot(NewExtendedTime(5, RowID{}))
	v, ok := snap.Query(key)
	if !ok || v.(timelineTestValue).N != 1 {
		t.Errorf("Snapshot(5).Query = (%v, %v), want (1, true), ignoring the write at time 10", v, ok)
	}
}

func TestFieldMapTypeIDAndGranularity(t *testing.T) {
	fm := NewFieldMap(42, WholeTimeline, 0)
	if fm.TypeID() != 42 {
		t.Errorf("TypeID() = %s, want 42", fm.TypeID())
	}
	if fm.Granularity() != WholeTimeline {
		t.Errorf("Granularity() = %v, want WholeTimeline", fm.Granularity())
	}
}

func TestFieldMapSnapshotKeysListsEveryWrittenKey(t *testing.T) {
	fm := NewFieldMap(1, PerKey, 0)
	fm.Insert(RowID{0x01}, NewExtendedTime(1, RowID{}), timelineTestValue{N: 1})
	fm.Insert(RowID{0x02}, NewExtendedTime(1, RowID{}), timelineTestValue{N: 2})

	keys := fm.FieldMapSnapshotKeys()
	if len(keys) != 2 {
		t.Fatalf("FieldMapSnapshotKeys() = %v, want 2 keys", keys)
	}
}
