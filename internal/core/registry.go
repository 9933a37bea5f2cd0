package core

import "sync"

// Registry is the shared table of currently joined sessions. It is the only
// in-process state touched by more than one session concurrently, so every
// access goes through one mutex scoped to the map operation itself. The lock
// is never held across a write to a session's sink; callers that need to fan
// out take a Snapshot and send outside the lock, so one stalled participant
// cannot stall registration or delivery to anyone else.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
	}
}

// Insert adds a session to the registry. Only the owning session's join path
// calls this.
func (r *Registry) Insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove deletes a session by id. Returns true if the entry existed. Only the
// owning session's close path calls this.
func (r *Registry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Snapshot returns the sessions registered at the time of the call. A join or
// leave racing with the snapshot may or may not be observed.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// ForEach applies f to every session registered when ForEach was called.
// f runs outside the registry lock.
func (r *Registry) ForEach(f func(*Session)) {
	for _, s := range r.Snapshot() {
		f(s)
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
