package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConversationNotFound is returned when no conversation matches the
	// lookup.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidTransition is returned on a status change outside the
	// transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InvalidTransitionError wraps ErrInvalidTransition with both states for
// logging.
func InvalidTransitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
