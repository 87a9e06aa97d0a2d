package errors

import (
	"errors"
)

// Command-surface error taxonomy. Transport failures never appear here:
// gateway calls are best-effort, logged and discarded at the call site.
var (
	ErrUnresolvedTarget = errors.New("unresolved target user")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInternal         = errors.New("internal error")
)
