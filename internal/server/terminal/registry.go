package terminal

import (
	"sync"
	"time"
)

// SessionInfo is the registry's read-only view of a live session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	StartedAt time.Time `json:"startedAt"`
}

// Registry tracks live sessions for metrics and shutdown. It is purely
// supervisory: session I/O goes through the owning connection's state, never
// through the registry.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot returns the current sessions sorted by nothing in particular;
// callers only need counts and identities.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, SessionInfo{ID: s.ID, Username: s.Username, StartedAt: s.StartedAt})
	}
	return infos
}

// KillAll terminates every live session. Used on server shutdown.
func (r *Registry) KillAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Kill()
	}
}
