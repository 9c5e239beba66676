package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Registry is the authoritative set of live sessions. Every operation runs
// under a single mutex, so a Snapshot never observes a half-applied
// register, bind or unregister.
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
	order    []SessionID // registration order
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[SessionID]*Session),
	}
}

// Register adds an unbound session. A second registration of a live id means
// the transport handed out the same id twice; the registry is left untouched.
func (r *Registry) Register(id SessionID) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return Session{}, fmt.Errorf("register %s: %w", id, ErrDuplicateSession)
	}

	session := &Session{ID: id}
	r.sessions[id] = session
	r.order = append(r.order, id)
	return *session, nil
}

// BindName sets the display name and join time of a registered session.
// Binding an already bound session overwrites both values.
func (r *Registry) BindName(id SessionID, displayName string, at time.Time) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("bind %s: %w", id, ErrUnknownSession)
	}

	session.DisplayName = displayName
	session.JoinedAt = at
	return *session, nil
}

// Unregister removes the session and returns it. Removing an absent id is a
// no-op and reports false.
func (r *Registry) Unregister(id SessionID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}

	delete(r.sessions, id)
	r.order = lo.Without(r.order, id)
	return *session, true
}

func (r *Registry) Lookup(id SessionID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// Snapshot returns copies of all bound sessions in registration order.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		if session := r.sessions[id]; session.Bound() {
			roster = append(roster, *session)
		}
	}
	return roster
}

// Len returns the number of registered sessions, bound or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// BoundLen returns the number of sessions visible in the roster.
func (r *Registry) BoundLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.CountBy(r.order, func(id SessionID) bool {
		return r.sessions[id].Bound()
	})
}
