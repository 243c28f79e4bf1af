package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoSession occurs when a request carries no authenticated session.
	ErrNoSession = errors.New("no authenticated session")
)
