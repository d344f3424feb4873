package buffer

import (
	"reflect"
	"testing"
)

func TestRingKeepsNewestEntries(t *testing.T) {
	ring := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		ring.Add(i)
	}
	if got := ring.List(); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Fatalf("expected [3 4 5], got %v", got)
	}
	if ring.Len() != 3 {
		t.Fatalf("expected len 3, got %d", ring.Len())
	}
}

func TestRingLast(t *testing.T) {
	ring := NewRing[string](4)
	for _, value := range []string{"a", "b", "c", "d", "e"} {
		ring.Add(value)
	}
	if got := ring.Last(2); !reflect.DeepEqual(got, []string{"d", "e"}) {
		t.Fatalf("expected [d e], got %v", got)
	}
	if got := ring.Last(10); !reflect.DeepEqual(got, []string{"b", "c", "d", "e"}) {
		t.Fatalf("expected all entries, got %v", got)
	}
	if got := ring.Last(0); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestRingClampAndNil(t *testing.T) {
	ring := NewRing[int](0)
	ring.Add(1)
	ring.Add(2)
	if got := ring.List(); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("expected size to clamp to 1, got %v", got)
	}

	var missing *Ring[int]
	missing.Add(1)
	if missing.Len() != 0 || missing.List() != nil {
		t.Fatalf("expected nil ring to be empty")
	}
}
