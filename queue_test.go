package timesteward

import "testing"

func et(base Time, id byte) ExtendedTime {
	return NewExtendedTime(base, RowID{id})
}

func TestEventQueueMinOrdersByExtendedTime(t *testing.T) {
	q := NewEventQueue()
	q.Insert(Event{Time: et(5, 1)})
	q.Insert(Event{Time: et(1, 1)})
	q.Insert(Event{Time: et(3, 1)})

	got, ok := q.Min()
	if !ok {
		t.Fatal("Min() on a non-empty queue reported nothing")
	}
	if got.Time.Base != 1 {
		t.Errorf("Min().Time.Base = %d, want 1", got.Time.Base)
	}
}

func TestEventQueueMaxOrdersByExtendedTime(t *testing.T) {
	q := NewEventQueue()
	q.Insert(Event{Time: et(5, 1)})
	q.Insert(Event{Time: et(1, 1)})
	q.Insert(Event{Time: et(9, 1)})

	got, ok := q.Max()
	if !ok {
		t.Fatal("Max() on a non-empty queue reported nothing")
	}
	if got.Time.Base != 9 {
		t.Errorf("Max().Time.Base = %d, want 9", got.Time.Base)
	}
}

func TestEventQueueEmptyMinMax(t *testing.T) {
	q := NewEventQueue()
	if _, ok := q.Min(); ok {
		t.Error("Min() on an empty queue reported an event")
	}
	if _, ok := q.Max(); ok {
		t.Error("Max() on an empty queue reported an event")
	}
}

func TestEventQueueDelete(t *testing.T) {
	q := NewEventQueue()
	h := q.Insert(Event{Time: et(1, 1)})
	q.Insert(Event{Time: et(2, 1)})

	if !q.Delete(h) {
		t.Fatal("Delete of a just-inserted handle reported false")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() after deleting one of two entries = %d, want 1", q.Len())
	}
	if got, _ := q.Min(); got.Time.Base != 2 {
		t.Errorf("Min().Time.Base after delete = %d, want 2", got.Time.Base)
	}
}

func TestEventQueueDeleteInvalidHandle(t *testing.T) {
	q := NewEventQueue()
	q.Insert(Event{Time: et(1, 1)})
	if q.Delete(queueHandle{}) {
		t.Error("Delete of an invalid handle reported true")
	}
	if q.Len() != 1 {
		t.Errorf("Len() after a no-op Delete = %d, want 1", q.Len())
	}
}

func TestEventQueueExtractMinRemoves(t *testing.T) {
	q := NewEventQueue()
	q.Insert(Event{Time: et(1, 1)})
	q.Insert(Event{Time: et(2, 1)})

	first, ok := q.ExtractMin()
	if !ok || first.Time.Base != 1 {
		t.Fatalf("ExtractMin() = %+v, ok=%v; want Base 1", first, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() after ExtractMin = %d, want 1", q.Len())
	}

	second, ok := q.ExtractMin()
	if !ok || second.Time.Base != 2 {
		t.Fatalf("second ExtractMin() = %+v, ok=%v; want Base 2", second, ok)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after draining the queue = %d, want 0", q.Len())
	}
}

func TestEventQueueAscendFromRespectsLowerBound(t *testing.T) {
	q := NewEventQueue()
	q.Insert(Event{Time: et(1, 1)})
	q.Insert(Event{Time: et(5, 1)})
	q.Insert(Event{Time: et(10, 1)})

	var seen []Time
	q.AscendFrom(et(5, 1), func(e Event) bool {
		seen = append(seen, e.Time.Base)
		return true
	})

	if len(seen) != 2 || seen[0] != 5 || seen[1] != 10 {
		t.Errorf("AscendFrom(5) visited %v, want [5 10]", seen)
	}
}

func TestEventQueueAscendFromCanStopEarly(t *testing.T) {
	q := NewEventQueue()
	q.Insert(Event{Time: et(1, 1)})
	q.Insert(Event{Time: et(2, 1)})
	q.Insert(Event{Time: et(3, 1)})

	count := 0
	q.AscendFrom(et(0, 0), func(e Event) bool {
		count++
		return count < 1
	})
	if count != 1 {
		t.Errorf("AscendFrom stopped after %d visits, want 1", count)
	}
}
