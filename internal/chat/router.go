package chat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Router applies the chat fan-out rules. Every OnConnect, OnDisconnect and
// OnAction call runs as one critical section over the Registry, so roster
// broadcasts always reflect a settled registry.
//
// Delivery to each recipient is independent. A recipient whose Send fails is
// dropped once the current dispatch has finished: it is unregistered, the
// remaining sessions are told it left, and the transport closes it.
type Router struct {
	mu        sync.Mutex
	registry  *Registry
	transport Transport
	rules     *rules
	log       *slog.Logger
	observer  Observer
	now       func() time.Time

	failed []SessionID
}

type Option func(*Router)

// WithClock overrides the source of server-side timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Router) { r.log = log }
}

func WithObserver(observer Observer) Option {
	return func(r *Router) { r.observer = observer }
}

func WithLimits(limits Limits) Option {
	return func(r *Router) { r.rules = newRules(limits) }
}

func NewRouter(registry *Registry, transport Transport, opts ...Option) *Router {
	r := &Router{
		registry:  registry,
		transport: transport,
		rules:     newRules(DefaultLimits()),
		log:       slog.New(slog.DiscardHandler),
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry exposes the underlying registry for read-only inspection.
func (r *Router) Registry() *Registry {
	return r.registry
}

// OnConnect registers a new unbound session. ErrDuplicateSession means the
// transport reused a live id; the caller should drop the new connection.
func (r *Router) OnConnect(id SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.registry.Register(id); err != nil {
		r.log.Error("rejecting session", "session", id, "err", err)
		return err
	}
	r.log.Debug("session connected", "session", id)
	r.observeRoster()
	return nil
}

// OnDisconnect removes the session. Calling it for an unknown or already
// removed session does nothing.
func (r *Router) OnDisconnect(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.disconnect(id)
	r.dropFailed()
}

// OnAction handles one inbound action. Actions from sessions that are not
// registered, or that are not allowed in the session's state, are ignored.
func (r *Router) OnAction(id SessionID, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.registry.Lookup(id)
	if !ok {
		r.log.Debug("ignoring action from unknown session", "session", id, "action", action.ActionType())
		return
	}

	switch a := action.(type) {
	case Join:
		r.join(session, a)
	case ChatMessage:
		r.chat(session, a)
	case SetTyping:
		r.typing(session, a)
	case Leave:
		r.disconnect(id)
		r.transport.Close(id)
	default:
		r.log.Debug("ignoring unsupported action", "session", id, "action", action.ActionType())
	}

	r.dropFailed()
}

// join binds the name of an unbound session. The name is fixed once bound, so a
// second join is ignored.
func (r *Router) join(session Session, a Join) {
	if session.Bound() {
		r.reject(session.ID, a, ErrAlreadyJoined)
		return
	}

	name, err := r.rules.displayName(a.DisplayName)
	if err != nil {
		r.reject(session.ID, a, err)
		return
	}

	bound, err := r.registry.BindName(session.ID, name, r.now())
	if err != nil {
		r.log.Error("binding display name", "session", session.ID, "err", err)
		return
	}
	r.log.Info("user joined", "session", bound.ID, "name", bound.DisplayName)
	r.observeRoster()

	roster := r.registry.Snapshot()
	everyone := sessionIDs(roster)
	snapshot := rosterOf(roster)

	r.fanout(lo.Without(everyone, bound.ID), UserJoined{
		DisplayName: bound.DisplayName,
		Text:        fmt.Sprintf("%s joined the chat", bound.DisplayName),
		Timestamp:   bound.JoinedAt,
	})
	r.fanout([]SessionID{bound.ID}, snapshot)
	r.fanout(everyone, snapshot)
}

func (r *Router) chat(session Session, a ChatMessage) {
	if !session.Bound() {
		r.log.Debug("ignoring chat message before join", "session", session.ID)
		r.observer.ActionRejected(a.ActionType(), "not_joined")
		return
	}

	text, err := r.rules.message(a.Text)
	if err != nil {
		r.reject(session.ID, a, err)
		return
	}

	r.fanout(sessionIDs(r.registry.Snapshot()), Message{
		SessionID:   session.ID,
		DisplayName: session.DisplayName,
		Text:        text,
		Timestamp:   r.now(),
	})
}

func (r *Router) typing(session Session, a SetTyping) {
	if !session.Bound() {
		r.observer.ActionRejected(a.ActionType(), "not_joined")
		return
	}

	others := lo.Without(sessionIDs(r.registry.Snapshot()), session.ID)
	r.fanout(others, Typing{
		DisplayName: session.DisplayName,
		IsTyping:    a.IsTyping,
	})
}

func (r *Router) disconnect(id SessionID) {
	session, ok := r.registry.Unregister(id)
	if !ok {
		return
	}
	r.observeRoster()

	if !session.Bound() {
		r.log.Debug("unbound session disconnected", "session", id)
		return
	}
	r.log.Info("user left", "session", id, "name", session.DisplayName)

	roster := r.registry.Snapshot()
	remaining := sessionIDs(roster)

	r.fanout(remaining, UserLeft{
		DisplayName: session.DisplayName,
		Text:        fmt.Sprintf("%s left the chat", session.DisplayName),
		Timestamp:   r.now(),
	})
	r.fanout(remaining, rosterOf(roster))
}

// fanout encodes evt once and offers it to every recipient. Failures are
// queued for dropFailed and never stop delivery to the others.
func (r *Router) fanout(recipients []SessionID, evt Event) {
	if len(recipients) == 0 {
		return
	}

	frame, err := Encode(evt)
	if err != nil {
		r.log.Error("encoding event", "event", evt.EventType(), "err", err)
		return
	}

	for _, id := range recipients {
		if err := r.transport.Send(id, frame); err != nil {
			r.log.Warn("delivery failed, dropping session", "session", id, "event", evt.EventType(), "err", err)
			r.observer.DeliveryFailed(evt.EventType())
			r.failed = append(r.failed, id)
			continue
		}
		r.observer.EventDelivered(evt.EventType())
	}
}

// dropFailed disconnects recipients whose delivery failed. Their leave
// broadcast may fail for others in turn, so the queue is drained until empty.
func (r *Router) dropFailed() {
	for len(r.failed) > 0 {
		id := r.failed[0]
		r.failed = r.failed[1:]

		if _, ok := r.registry.Lookup(id); !ok {
			continue
		}
		r.disconnect(id)
		r.transport.Close(id)
	}
}

func (r *Router) reject(id SessionID, action Action, err error) {
	r.log.Debug("rejecting action", "session", id, "action", action.ActionType(), "err", err)
	r.observer.ActionRejected(action.ActionType(), rejectionReason(err))
}

func (r *Router) observeRoster() {
	r.observer.RosterChanged(r.registry.Len(), r.registry.BoundLen())
}

func sessionIDs(sessions []Session) []SessionID {
	return lo.Map(sessions, func(s Session, _ int) SessionID {
		return s.ID
	})
}

func rosterOf(sessions []Session) RosterSnapshot {
	return RosterSnapshot{
		Sessions: lo.Map(sessions, func(s Session, _ int) RosterEntry {
			return RosterEntry{
				SessionID:   s.ID,
				DisplayName: s.DisplayName,
				JoinedAt:    s.JoinedAt,
			}
		}),
	}
}
