package pipeline

import "sync"

// Sessions tracks in-flight acquisitions by media ID so the same item
// is never worked on by two goroutines at once.
type Sessions struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewSessions() *Sessions {
	return &Sessions{active: make(map[int64]struct{})}
}

// TryAcquire marks the item as in flight. Returns false if it already is.
func (s *Sessions) TryAcquire(mediaID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[mediaID]; ok {
		return false
	}
	s.active[mediaID] = struct{}{}
	return true
}

// Release clears the in-flight mark. Safe to call for an unmarked ID.
func (s *Sessions) Release(mediaID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, mediaID)
}

// Active reports how many acquisitions are currently in flight.
func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
