package domain

import "errors"

var (
	// ErrAgentNotFound is returned when no agent matches the lookup.
	ErrAgentNotFound = errors.New("agent not found")
)
