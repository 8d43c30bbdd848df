package timesteward

import "testing"

func accessor(subject byte) accessorHandle {
	return accessorHandle{kind: accessorPredictor, predictorType: TypeID(1), subject: RowID{subject}}
}

func TestDependencyGraphPerKeyIgnoresReadTime(t *testing.T) {
	g := NewDependencyGraph()
	acc := accessor(1)
	key := RowID{0xaa}

	g.ReplaceReads(acc, []readEdge{
		{timeline: TypeID(1), key: key, at: NewExtendedTime(100, RowID{0x01}), granularity: PerKey},
	})

	// A write at Base 200 is later than the read's own query time (100), so
	// PerKeyRange would skip it, but PerKey invalidates on any write to the
	// same key regardless.
	got := g.Dependents(TypeID(1), Region{Key: key, From: NewExtendedTime(200, RowID{0x02})}, NewExtendedTime(200, RowID{0x02}))
	if len(got) != 1 || got[0] != acc {
		t.Errorf("Dependents (PerKey) = %v, want [%v]", got, acc)
	}
}

func TestDependencyGraphPerKeyRangeRespectsReadTime(t *testing.T) {
	g := NewDependencyGraph()
	acc := accessor(1)
	key := RowID{0xaa}
	readAt := NewExtendedTime(10, RowID{0x01})

	g.ReplaceReads(acc, []readEdge{
		{timeline: TypeID(1), key: key, at: readAt, granularity: PerKeyRange},
	})

	// A write strictly after the read's query time must not invalidate it.
	after := g.Dependents(TypeID(1), Region{Key: key}, NewExtendedTime(20, RowID{0x02}))
	if len(after) != 0 {
		t.Errorf("Dependents (PerKeyRange, write after read) = %v, want none", after)
	}

	// A write at or before the read's query time must invalidate it.
	before := g.Dependents(TypeID(1), Region{Key: key}, NewExtendedTime(5, RowID{0x02}))
	if len(before) != 1 || before[0] != acc {
		t.Errorf("Dependents (PerKeyRange, write before read) = %v, want [%v]", before, acc)
	}

	atSameTime := g.Dependents(TypeID(1), Region{Key: key}, readAt)
	if len(atSameTime) != 1 || atSameTime[0] != acc {
		t.Errorf("Dependents (PerKeyRange, write at exactly the read time) = %v, want [%v]", atSameTime, acc)
	}
}

func TestDependencyGraphWholeTimelineIgnoresKeyAndTime(t *testing.T) {
	g := NewDependencyGraph()
	acc := accessor(1)
	readKey := RowID{0xaa}
	writeKey := RowID{0xbb}

	g.ReplaceReads(acc, []readEdge{
		{timeline: TypeID(1), key: readKey, at: NewExtendedTime(100, RowID{0x01}), granularity: WholeTimeline},
	})

	got := g.Dependents(TypeID(1), Region{Key: writeKey}, NewExtendedTime(1, RowID{0x02}))
	if len(got) != 1 || got[0] != acc {
		t.Errorf("Dependents (WholeTimeline, different key) = %v, want [%v]", got, acc)
	}
}

func TestDependencyGraphReplaceReadsDropsStaleEdges(t *testing.T) {
	g := NewDependencyGraph()
	acc := accessor(1)
	keyA := RowID{0xaa}
	keyB := RowID{0xbb}

	g.ReplaceReads(acc, []readEdge{
		{timeline: TypeID(1), key: keyA, at: NewExtendedTime(1, RowID{0x01}), granularity: PerKey},
	})
	g.ReplaceReads(acc, []readEdge{
		{timeline: TypeID(1), key: keyB, at: NewExtendedTime(1, RowID{0x01}), granularity: PerKey},
	})

	stillOnA := g.Dependents(TypeID(1), Region{Key: keyA}, NewExtendedTime(2, RowID{0x02}))
	if len(stillOnA) != 0 {
		t.Errorf("Dependents on the old key after ReplaceReads = %v, want none", stillOnA)
	}
	onB := g.Dependents(TypeID(1), Region{Key: keyB}, NewExtendedTime(2, RowID{0x02}))
	if len(onB) != 1 || onB[0] != acc {
		t.Errorf("Dependents on the new key after ReplaceReads = %v, want [%v]", onB, acc)
	}
}

func TestDependencyGraphReplaceReadsWithNoEdgesClearsAccessor(t *testing.T) {
	g := NewDependencyGraph()
	acc := accessor(1)
	key := RowID{0xaa}

	g.ReplaceReads(acc, []readEdge{{timeline: TypeID(1), key: key, granularity: PerKey}})
	if !g.HasAccessor(acc) {
		t.Fatal("HasAccessor false right after recording reads")
	}

	g.ReplaceReads(acc, nil)
	if g.HasAccessor(acc) {
		t.Error("HasAccessor true after replacing with an empty edge set")
	}
}

func TestDependencyGraphRemoveAccessor(t *testing.T) {
	g := NewDependencyGraph()
	acc := accessor(1)
	key := RowID{0xaa}

	g.ReplaceReads(acc, []readEdge{{timeline: TypeID(1), key: key, granularity: PerKey}})
	g.RemoveAccessor(acc)

	if g.HasAccessor(acc) {
		t.Error("HasAccessor true after RemoveAccessor")
	}
	got := g.Dependents(TypeID(1), Region{Key: key}, NewExtendedTime(1, RowID{0x01}))
	if len(got) != 0 {
		t.Errorf("Dependents after RemoveAccessor = %v, want none", got)
	}
}

func TestDependencyGraphRecordAndRemoveEventWrites(t *testing.T) {
	g := NewDependencyGraph()
	at := NewExtendedTime(1, RowID{0x01})
	fk := fieldKey{timeline: TypeID(1), key: RowID{0xaa}}

	g.RecordWrites(at, []fieldKey{fk})
	edges := g.debugEdges()
	found := false
	for _, e := range edges {
		if e.Kind == "write" && e.Timeline == fk.timeline && e.Key == fk.key {
			found = true
		}
	}
	if !found {
		t.Fatal("debugEdges did not include the recorded write")
	}

	g.RemoveEventWrites(at)
	for _, e := range g.debugEdges() {
		if e.Kind == "write" {
			t.Errorf("write edge still present after RemoveEventWrites: %+v", e)
		}
	}
}

func TestDependencyGraphDependentsDeduplicatesAccessor(t *testing.T) {
	g := NewDependencyGraph()
	acc := accessor(1)
	key := RowID{0xaa}

	// Two edges for the same accessor against the same field key (e.g. read
	// twice during one invocation before the edge set was replaced) must not
	// produce duplicate entries in Dependents' result.
	g.ReplaceReads(acc, []readEdge{
		{timeline: TypeID(1), key: key, at: NewExtendedTime(1, RowID{0x01}), granularity: PerKey},
		{timeline: TypeID(1), key: key, at: NewExtendedTime(2, RowID{0x02}), granularity: PerKey},
	})

	got := g.Dependents(TypeID(1), Region{Key: key}, NewExtendedTime(5, RowID{0x03}))
	if len(got) != 1 {
		t.Errorf("Dependents returned %d entries for one accessor with duplicate edges, want 1", len(got))
	}
}
