package chat

import "time"

// SessionID identifies one transport connection for its whole lifetime.
type SessionID string

// Session is a connected participant. DisplayName stays empty until the
// session joins; unbound sessions are never part of the roster.
type Session struct {
	ID          SessionID
	DisplayName string
	JoinedAt    time.Time
}

// Bound reports whether the session has joined with a display name.
func (s Session) Bound() bool {
	return s.DisplayName != ""
}
