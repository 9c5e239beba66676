package chat

import "errors"

var (
	ErrDuplicateSession = errors.New("session already registered")
	ErrUnknownSession   = errors.New("unknown session")
	ErrAlreadyJoined    = errors.New("session already joined")

	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownAction  = errors.New("unknown action type")

	ErrEmptyDisplayName   = errors.New("display name is empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrMessageTooLong     = errors.New("message too long")
)
