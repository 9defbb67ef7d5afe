package voting

import (
	"sync"

	"github.com/jonboulle/clockwork"
)

// Registry maps room IDs to live sessions. Sessions are created lazily on
// first access and only removed when the owning room is deleted. The
// registry lock covers the map itself, never an individual session, so a
// slow operation on one room cannot block another.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clockwork.Clock
}

// NewRegistry creates an empty session registry. The clock is shared by
// every session it creates.
func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		clock:    clock,
	}
}

// GetOrCreate returns the session for roomID, creating it atomically if
// absent. Two concurrent first-joins for the same room observe the same
// session.
func (r *Registry) GetOrCreate(roomID string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[roomID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[roomID]; ok {
		return s
	}
	s = newSession(roomID, r.clock)
	r.sessions[roomID] = s
	return s
}

// Get returns the session for roomID if one exists.
func (r *Registry) Get(roomID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

// Delete drops the session for roomID. Called when the room configuration
// is deleted; in-flight operations against the dropped session simply see
// a not-found outcome on their next registry lookup.
func (r *Registry) Delete(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, roomID)
}
