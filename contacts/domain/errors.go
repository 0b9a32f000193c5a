package domain

import "errors"

var (
	// ErrContactNotFound is returned when no contact matches the lookup.
	ErrContactNotFound = errors.New("contact not found")
)
