package chat

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func TestRegistry_Register_Creates_Unbound_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := newSessionID()

	// When a session registers
	session, err := registry.Register(id)

	// Then it exists but is not part of the roster
	req.NoError(err)
	req.Equal(id, session.ID)
	req.False(session.Bound())
	req.Equal(1, registry.Len())
	req.Zero(registry.BoundLen())
	req.Empty(registry.Snapshot())
}

func TestRegistry_Register_Duplicate_Leaves_Registry_Untouched(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := newSessionID()
	joinedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// Given a bound session
	_, err := registry.Register(id)
	req.NoError(err)
	_, err = registry.BindName(id, "alice", joinedAt)
	req.NoError(err)

	// When the same id registers again
	_, err = registry.Register(id)

	// Then the registration fails and the bound session survives
	req.ErrorIs(err, ErrDuplicateSession)
	req.Equal(1, registry.Len())
	session, ok := registry.Lookup(id)
	req.True(ok)
	req.Equal("alice", session.DisplayName)
	req.Equal(joinedAt, session.JoinedAt)
}

func TestRegistry_BindName_Unknown_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, err := registry.BindName(newSessionID(), "alice", time.Now())

	req.True(errors.Is(err, ErrUnknownSession))
	req.Zero(registry.Len())
}

func TestRegistry_BindName_Rebind_Is_Allowed(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := newSessionID()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	_, err := registry.Register(id)
	req.NoError(err)
	_, err = registry.BindName(id, "alice", first)
	req.NoError(err)

	session, err := registry.BindName(id, "alice", second)

	req.NoError(err)
	req.Equal(second, session.JoinedAt)
	req.Len(registry.Snapshot(), 1)
}

func TestRegistry_Unregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := newSessionID()

	_, err := registry.Register(id)
	req.NoError(err)

	removed, ok := registry.Unregister(id)
	req.True(ok)
	req.Equal(id, removed.ID)

	// A second removal is a no-op
	_, ok = registry.Unregister(id)
	req.False(ok)
	req.Zero(registry.Len())
}

func TestRegistry_Snapshot_Keeps_Registration_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	now := time.Now()
	alice, bob, carol := newSessionID(), newSessionID(), newSessionID()

	for _, id := range []SessionID{alice, bob, carol} {
		_, err := registry.Register(id)
		req.NoError(err)
	}

	// Bind in reverse order, leaving bob unbound
	_, err := registry.BindName(carol, "carol", now)
	req.NoError(err)
	_, err = registry.BindName(alice, "alice", now)
	req.NoError(err)

	roster := registry.Snapshot()

	req.Len(roster, 2)
	req.Equal(alice, roster[0].ID)
	req.Equal(carol, roster[1].ID)
	req.Equal(2, registry.BoundLen())
}

func TestRegistry_Concurrent_Operations_Settle_Consistently(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const sessions = 200
	ids := make([]SessionID, sessions)
	for i := range ids {
		ids[i] = newSessionID()
	}

	// Every session registers and binds; every third one also leaves.
	// Snapshots are taken concurrently the whole time.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
				for _, s := range registry.Snapshot() {
					if !s.Bound() {
						t.Errorf("snapshot contains unbound session %s", s.ID)
					}
				}
			}
		}
	}()

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id SessionID) {
			defer wg.Done()
			if _, err := registry.Register(id); err != nil {
				t.Errorf("register %s: %v", id, err)
				return
			}
			if _, err := registry.BindName(id, "user", time.Now()); err != nil {
				t.Errorf("bind %s: %v", id, err)
			}
			if i%3 == 0 {
				registry.Unregister(id)
			}
		}(i, id)
	}
	wg.Wait()
	close(stop)
	<-readerDone

	expected := make(map[SessionID]struct{})
	for i, id := range ids {
		if i%3 != 0 {
			expected[id] = struct{}{}
		}
	}

	roster := registry.Snapshot()
	req.Len(roster, len(expected))
	seen := make(map[SessionID]struct{}, len(roster))
	for _, s := range roster {
		_, dup := seen[s.ID]
		req.False(dup, "duplicate roster entry %s", s.ID)
		seen[s.ID] = struct{}{}
		req.Contains(expected, s.ID)
	}
	req.Equal(len(expected), registry.Len())
}
