package internal

import (
	"testing"
)

func TestNewExpiryHeap(t *testing.T) {
	h := NewExpiryHeap()
	if h.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", h.Len())
	}
	if _, _, ok := h.Next(); ok {
		t.Errorf("Next() on empty heap should report ok=false")
	}
}

func TestScheduleOrder(t *testing.T) {
	h := NewExpiryHeap()
	h.Schedule("a", 100)
	h.Schedule("b", 200)
	h.Schedule("c", 50)

	if h.Len() != 3 {
		t.Fatalf("Heap should have 3 items, but has %d", h.Len())
	}
	key, at, ok := h.Next()
	if !ok || key != "c" || at != 50 {
		t.Errorf("Expected earliest deadline (c,50), got (%s,%d)", key, at)
	}
}

func TestRescheduleMovesDeadline(t *testing.T) {
	h := NewExpiryHeap()
	h.Schedule("a", 100)
	h.Schedule("b", 200)
	h.Schedule("a", 300)

	if h.Len() != 2 {
		t.Errorf("Rescheduling must not duplicate keys, got length %d", h.Len())
	}
	if key, _, _ := h.Next(); key != "b" {
		t.Errorf("Expected b to be next after moving a, got %s", key)
	}
}

func TestUnschedule(t *testing.T) {
	h := NewExpiryHeap()
	h.Schedule("a", 100)
	h.Schedule("b", 200)

	if !h.Unschedule("a") {
		t.Errorf("Unschedule(a) should report true")
	}
	if h.Unschedule("a") {
		t.Errorf("Second Unschedule(a) should report false")
	}
	if h.Contains("a") {
		t.Errorf("Heap should no longer contain a")
	}
	if key, _, _ := h.Next(); key != "b" {
		t.Errorf("Expected b to be next, got %s", key)
	}
}

func TestPopExpired(t *testing.T) {
	h := NewExpiryHeap()
	for i, key := range []string{"e", "d", "c", "b", "a"} {
		h.Schedule(key, int64((5-i)*10))
	}

	expired := h.PopExpired(30)
	want := []string{"a", "b", "c"}
	if len(expired) != len(want) {
		t.Fatalf("Expected %v, got %v", want, expired)
	}
	for i := range want {
		if expired[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, expired)
		}
	}
	if h.Len() != 2 {
		t.Errorf("Expected 2 remaining deadlines, got %d", h.Len())
	}

	h.Reset()
	if h.Len() != 0 || h.Contains("d") {
		t.Errorf("Reset should drop every deadline")
	}
}
