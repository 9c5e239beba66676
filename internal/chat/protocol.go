package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound frame types.
const (
	TypeJoin        = "join"
	TypeChatMessage = "chatMessage"
	TypeTyping      = "typing"
	TypeLeave       = "leave"
)

// Outbound frame types. Typing indicators reuse TypeTyping.
const (
	TypeUserJoined     = "userJoined"
	TypeUserLeft       = "userLeft"
	TypeMessage        = "message"
	TypeRosterSnapshot = "rosterSnapshot"
)

// Envelope is the JSON text frame exchanged in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Action is an inbound request from a session: Join, ChatMessage, SetTyping
// or Leave.
type Action interface {
	ActionType() string
}

type Join struct {
	DisplayName string `json:"displayName"`
}

// UnmarshalJSON accepts both {"displayName": "..."} and a bare JSON string,
// which is what older clients send.
func (j *Join) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		j.DisplayName = name
		return nil
	}

	type plain Join
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*j = Join(p)
	return nil
}

// ChatMessage carries only text. The sender's name always comes from the
// session, never from the payload.
type ChatMessage struct {
	Text string `json:"text"`
}

type SetTyping struct {
	IsTyping bool `json:"isTyping"`
}

// Leave is an explicit goodbye; it is handled like a transport disconnect.
type Leave struct{}

func (Join) ActionType() string        { return TypeJoin }
func (ChatMessage) ActionType() string { return TypeChatMessage }
func (SetTyping) ActionType() string   { return TypeTyping }
func (Leave) ActionType() string       { return TypeLeave }

// DecodeAction parses one inbound frame.
func DecodeAction(frame []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	switch env.Type {
	case TypeJoin:
		var a Join
		if err := decodePayload(env, &a); err != nil {
			return nil, err
		}
		return a, nil
	case TypeChatMessage:
		var a ChatMessage
		if err := decodePayload(env, &a); err != nil {
			return nil, err
		}
		return a, nil
	case TypeTyping:
		var a SetTyping
		if err := decodePayload(env, &a); err != nil {
			return nil, err
		}
		return a, nil
	case TypeLeave:
		return Leave{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
}

func decodePayload(env Envelope, into any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, into); err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrMalformedFrame, env.Type, err)
	}
	return nil
}

// Event is an outbound notification delivered to one or more sessions.
type Event interface {
	EventType() string
}

type UserJoined struct {
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

type UserLeft struct {
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

type Message struct {
	SessionID   SessionID `json:"sessionId"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

type Typing struct {
	DisplayName string `json:"displayName"`
	IsTyping    bool   `json:"isTyping"`
}

// RosterSnapshot is encoded as a bare array of entries.
type RosterSnapshot struct {
	Sessions []RosterEntry
}

type RosterEntry struct {
	SessionID   SessionID `json:"sessionId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func (UserJoined) EventType() string     { return TypeUserJoined }
func (UserLeft) EventType() string       { return TypeUserLeft }
func (Message) EventType() string        { return TypeMessage }
func (Typing) EventType() string         { return TypeTyping }
func (RosterSnapshot) EventType() string { return TypeRosterSnapshot }

// Encode renders an event as a text frame.
func Encode(evt Event) ([]byte, error) {
	var payload any = evt
	if roster, ok := evt.(RosterSnapshot); ok {
		entries := roster.Sessions
		if entries == nil {
			entries = []RosterEntry{}
		}
		payload = entries
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}
	return json.Marshal(Envelope{Type: evt.EventType(), Payload: raw})
}
