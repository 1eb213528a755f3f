package session

import (
	"sync"
	"time"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/store"

	"github.com/google/uuid"
)

type Registry struct {
	source   store.PageSource
	pageSize int
	debounce time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(source store.PageSource, pageSize int, debounce time.Duration) *Registry {
	return &Registry{
		source:   source,
		pageSize: pageSize,
		debounce: debounce,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create() *Session {
	s := newSession(uuid.NewString(), r.source, r.pageSize, r.debounce)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, catalog.ErrSessionNotFound
	}
	return s, nil
}

// Restore returns the session with id, re-creating it when id is a
// well-formed session id unknown to this process. created reports whether
// a new container was made.
func (r *Registry) Restore(id string) (s *Session, created bool, err error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, false, catalog.ErrSessionNotFound
	}
	id = parsed.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, false, nil
	}
	s = newSession(id, r.source, r.pageSize, r.debounce)
	r.sessions[id] = s
	return s, true, nil
}

// Each calls fn for every live session.
func (r *Registry) Each(fn func(*Session)) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
