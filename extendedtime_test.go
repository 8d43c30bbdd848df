package timesteward

import "testing"

func TestExtendedTimeCompareByBase(t *testing.T) {
	early := NewExtendedTime(1, RowID{0xff})
	late := NewExtendedTime(2, RowID{0x00})

	if !early.Less(late) {
		t.Errorf("%s.Less(%s) = false, want true (lower Base always sorts first)", early, late)
	}
	if late.Less(early) {
		t.Errorf("%s.Less(%s) = true, want false", late, early)
	}
}

func TestExtendedTimeCompareByIteration(t *testing.T) {
	base := NewExtendedTime(5, RowID{0xff})
	bumped := base.nextIteration(RowID{0x00})

	if bumped.Base != base.Base {
		t.Fatalf("nextIteration changed Base: got %d, want %d", bumped.Base, base.Base)
	}
	if !base.Less(bumped) {
		t.Errorf("%s.Less(%s) = false, want true (Iteration 0 sorts before Iteration 1 at the same Base)", base, bumped)
	}
}

func TestExtendedTimeCompareByID(t *testing.T) {
	a := ExtendedTime{Base: 5, Iteration: 0, ID: RowID{0x01}}
	b := ExtendedTime{Base: 5, Iteration: 0, ID: RowID{0x02}}

	if !a.Less(b) {
		t.Errorf("%s.Less(%s) = false, want true", a, b)
	}
	if a.Compare(a) != 0 {
		t.Errorf("%s.Compare(itself) = %d, want 0", a, a.Compare(a))
	}
}

func TestExtendedTimeNextIterationMonotonicallyIncreases(t *testing.T) {
	t0 := NewExtendedTime(5, RowID{0x09})
	t1 := t0.nextIteration(RowID{0x00})
	t2 := t1.nextIteration(RowID{0x00})

	if t2.Iteration != t0.Iteration+2 {
		t.Fatalf("Iteration after two bumps = %d, want %d", t2.Iteration, t0.Iteration+2)
	}
	if !t0.Less(t1) || !t1.Less(t2) {
		t.Errorf("repeated nextIteration calls did not produce a strictly increasing chain: %s, %s, %s", t0, t1, t2)
	}
}

func TestExtendedTimeStringIncludesAllFields(t *testing.T) {
	et := ExtendedTime{Base: 3, Iteration: 1, ID: RowID{0xab}}
	s := et.String()
	want := "(3,1,ab000000000000000000000000000000)"
	if s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
}
