package sidecar

import "sync"

// Slot holds the handle of the one running sidecar. It is empty before
// spawn and after the shutdown hook has taken the handle out.
type Slot struct {
	mu    sync.Mutex
	child *Child
}

// Record stores c. Recording into an occupied slot, or recording nil,
// breaks the single-child contract and panics.
func (s *Slot) Record(c *Child) {
	if c == nil {
		panic("sidecar: Record called with a nil child")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.child != nil {
		panic("sidecar: Record called on an occupied slot")
	}
	s.child = c
}

// Take removes and returns the stored handle, or nil if the slot is empty.
func (s *Slot) Take() *Child {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.child
	s.child = nil
	return c
}

// Occupied reports whether a handle is stored.
func (s *Slot) Occupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child != nil
}
