// Package errors declares the sentinel error kinds the merge index engine
// raises, and the helpers to attach context to them while keeping the
// sentinel identity intact for errors.Is.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceFailure marks an error reported by (or detected for) a
	// contributing source. Carried by an isFail page; surfaced on the
	// cursor's next pull.
	ErrSourceFailure = errors.New("source failure")

	// ErrFetchedTooLarge is raised by Find when the fetch cache was
	// discarded for exceeding its capacity and a later lookup needs
	// cached data it no longer has.
	ErrFetchedTooLarge = errors.New("fetched cache exceeded capacity and was discarded")

	// ErrOperationUnsupported is raised by the mutation-style index
	// operations (add, remove, truncate, rename, findFirstOrLast), which
	// a merge index never supports.
	ErrOperationUnsupported = errors.New("operation unsupported on a merge index")

	// ErrInvariantViolation marks a programming error: duplicate first
	// page, unregistered source, or duplicate source registration.
	ErrInvariantViolation = errors.New("merge index invariant violation")
)

// SourceFailure wraps ErrSourceFailure with the source and underlying cause.
func SourceFailure(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrSourceFailure)
}

// InvariantViolation wraps ErrInvariantViolation with a contextual message.
func InvariantViolation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvariantViolation)
}
