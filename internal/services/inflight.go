package services

import "sync"

// InFlight tracks records with a lifecycle operation in progress.
type InFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]struct{})}
}

// Acquire claims recordID. It returns false when the record is already
// claimed; otherwise release must be called exactly once.
func (s *InFlight) Acquire(recordID string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.active[recordID]; busy {
		return nil, false
	}
	s.active[recordID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.active, recordID)
			s.mu.Unlock()
		})
	}, true
}
