package sidecar

import "testing"

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected %s to panic", what)
		}
	}()
	fn()
}

func TestSlot_RecordTake(t *testing.T) {
	var s Slot
	if s.Occupied() {
		t.Fatal("new slot should be empty")
	}
	if c := s.Take(); c != nil {
		t.Fatalf("Take on empty slot returned %v", c)
	}

	child := &Child{pid: 42}
	s.Record(child)
	if !s.Occupied() {
		t.Fatal("slot should be occupied after Record")
	}

	if got := s.Take(); got != child {
		t.Fatalf("Take returned %v, want %v", got, child)
	}
	if s.Occupied() {
		t.Fatal("slot should be empty after Take")
	}
	if got := s.Take(); got != nil {
		t.Fatalf("second Take returned %v, want nil", got)
	}
}

func TestSlot_RecordTwicePanics(t *testing.T) {
	var s Slot
	s.Record(&Child{pid: 1})
	expectPanic(t, "Record on an occupied slot", func() {
		s.Record(&Child{pid: 2})
	})

	// The original handle must survive the violation.
	if got := s.Take(); got == nil || got.pid != 1 {
		t.Fatalf("slot lost its handle: %v", got)
	}
}

func TestSlot_RecordNilPanics(t *testing.T) {
	var s Slot
	expectPanic(t, "Record(nil)", func() {
		s.Record(nil)
	})
	if s.Occupied() {
		t.Fatal("slot should stay empty")
	}
}

func TestSlot_RecordAfterTake(t *testing.T) {
	var s Slot
	s.Record(&Child{pid: 1})
	s.Take()
	// Empty again, so a new record is allowed by the slot itself.
	s.Record(&Child{pid: 2})
	if got := s.Take(); got == nil || got.pid != 2 {
		t.Fatalf("unexpected handle: %v", got)
	}
}
