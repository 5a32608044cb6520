// Package common defines sentinel errors shared across mealtrack layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrNotFound signals a read miss. Repositories return it for absent
	// rows; the remote store returns it for absent documents. It is an
	// absent result, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrRemoteUnavailable signals a network or backend failure while
	// talking to the remote store. Recoverable: the affected row stays
	// pending and is retried on the next sync pass.
	ErrRemoteUnavailable = errors.New("remote unavailable")
)
