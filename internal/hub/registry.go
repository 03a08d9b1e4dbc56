package hub

import "sync"

// Registry is the set of live subscriber sessions. Implementations must be safe for
// concurrent use.
type Registry interface {
	Add(s Session)
	Remove(s Session)
	Sessions() []Session
	Len() int
}

// SessionSet is a Registry keyed by session id.
type SessionSet struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewSessionSet() *SessionSet {
	return &SessionSet{sessions: make(map[string]Session)}
}

func (r *SessionSet) Add(s Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
}

func (r *SessionSet) Remove(s Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID())
	r.mu.Unlock()
}

// Sessions returns a copy of the current members.
func (r *SessionSet) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *SessionSet) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
