package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Limits bounds client-supplied text. Lengths are counted in runes after
// surrounding whitespace is trimmed.
type Limits struct {
	MaxNameLength    int
	MaxMessageLength int
}

func DefaultLimits() Limits {
	return Limits{
		MaxNameLength:    20,
		MaxMessageLength: 500,
	}
}

type rules struct {
	validate *validator.Validate
	nameTag  string
	textTag  string
}

func newRules(limits Limits) *rules {
	defaults := DefaultLimits()
	if limits.MaxNameLength <= 0 {
		limits.MaxNameLength = defaults.MaxNameLength
	}
	if limits.MaxMessageLength <= 0 {
		limits.MaxMessageLength = defaults.MaxMessageLength
	}

	return &rules{
		validate: validator.New(),
		nameTag:  fmt.Sprintf("required,max=%d", limits.MaxNameLength),
		textTag:  fmt.Sprintf("required,max=%d", limits.MaxMessageLength),
	}
}

func (r *rules) displayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if err := r.validate.Var(name, r.nameTag); err != nil {
		return "", classify(err, ErrEmptyDisplayName, ErrDisplayNameTooLong)
	}
	return name, nil
}

func (r *rules) message(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if err := r.validate.Var(text, r.textTag); err != nil {
		return "", classify(err, ErrEmptyMessage, ErrMessageTooLong)
	}
	return text, nil
}

// classify maps the failed validator tag onto one of our sentinel errors.
func classify(err, empty, tooLong error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	switch fieldErrs[0].Tag() {
	case "required":
		return empty
	case "max":
		return tooLong
	default:
		return err
	}
}

// rejectionReason is the metrics label for a validation failure.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, ErrEmptyDisplayName):
		return "empty_name"
	case errors.Is(err, ErrDisplayNameTooLong):
		return "name_too_long"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrMessageTooLong):
		return "message_too_long"
	default:
		return "invalid"
	}
}
