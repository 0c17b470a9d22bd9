package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps live sessions in memory, keyed by a random UUID.
//
// Idle sessions are evicted lazily whenever a session is created.
type Registry struct {
	resolver Resolver
	lookup   CodeLookup
	analyzer Analyzer
	idleTTL  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry builds a registry; idleTTL <= 0 disables eviction.
func NewRegistry(resolver Resolver, lookup CodeLookup, analyzer Analyzer, idleTTL time.Duration) *Registry {
	return &Registry{
		resolver: resolver,
		lookup:   lookup,
		analyzer: analyzer,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a new session.
func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.resolver, r.lookup, r.analyzer)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	r.sessions[s.ID()] = s
	return s
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete discards a session. Unknown ids are ignored.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) evictLocked() {
	if r.idleTTL <= 0 {
		return
	}
	now := r.now()
	for id, s := range r.sessions {
		if s.idleSince(now) > r.idleTTL {
			delete(r.sessions, id)
		}
	}
}
