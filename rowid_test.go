package timesteward

import "testing"

func TestDeriveRowIDIsDeterministic(t *testing.T) {
	a := DeriveRowID(TypeID(7), []byte("same-seed"))
	b := DeriveRowID(TypeID(7), []byte("same-seed"))
	if a != b {
		t.Errorf("DeriveRowID(7, %q) = %s, %s; want equal", "same-seed", a, b)
	}
}

func TestDeriveRowIDDistinguishesTypeAndSeed(t *testing.T) {
	base := DeriveRowID(TypeID(1), []byte("seed"))
	diffType := DeriveRowID(TypeID(2), []byte("seed"))
	diffSeed := DeriveRowID(TypeID(1), []byte("other"))

	if base == diffType {
		t.Error("DeriveRowID collided across different TypeIDs with the same seed")
	}
	if base == diffSeed {
		t.Error("DeriveRowID collided across different seeds with the same TypeID")
	}
}

func TestRowIDCompareIsLexicographic(t *testing.T) {
	low := RowID{0x00, 0x01}
	high := RowID{0x00, 0x02}

	if low.Compare(high) >= 0 {
		t.Errorf("low.Compare(high) = %d, want < 0", low.Compare(high))
	}
	if high.Compare(low) <= 0 {
		t.Errorf("high.Compare(low) = %d, want > 0", high.Compare(low))
	}
	if low.Compare(low) != 0 {
		t.Errorf("low.Compare(low) = %d, want 0", low.Compare(low))
	}
}

func TestRowIDIsZero(t *testing.T) {
	var zero RowID
	if !zero.IsZero() {
		t.Error("zero-value RowID.IsZero() = false, want true")
	}
	nonZero := DeriveRowID(TypeID(1), []byte("x"))
	if nonZero.IsZero() {
		t.Error("derived RowID.IsZero() = true, want false")
	}
}

func TestRowIDTextRoundTrip(t *testing.T) {
	id := DeriveRowID(TypeID(42), []byte("round-trip"))
	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var got RowID
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got != id {
		t.Errorf("round-tripped RowID = %s, want %s", got, id)
	}
}

func TestRowIDUnmarshalTextRejectsWrongLength(t *testing.T) {
	var id RowID
	if err := id.UnmarshalText([]byte("ab")); err == nil {
		t.Error("UnmarshalText with too-short hex should have failed")
	}
}
