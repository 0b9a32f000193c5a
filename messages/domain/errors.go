package domain

import "errors"

// ErrMessageNotFound is returned when no message matches the lookup.
var ErrMessageNotFound = errors.New("message not found")
