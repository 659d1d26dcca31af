package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers branch on. Per-file errors
// in a sweep are isolated and aggregated; only construction-time invariant
// violations surface synchronously to the immediate caller.
var (
	// ErrEmptyRecord means neither a location nor a checksum was provided
	ErrEmptyRecord = errors.New("file record requires a location or a checksum")

	// ErrNoSession means a path carries no recognized session folder string.
	// Files without one are compared as orphans, so callers usually treat
	// this as a routing decision rather than a failure.
	ErrNoSession = errors.New("no session identifier in path")

	// ErrAmbiguousSelf means the store returned multiple plausible self
	// entries with conflicting checksums. Resolved conservatively: the
	// subject still needs its own checksum.
	ErrAmbiguousSelf = errors.New("multiple conflicting self entries in store")
)

// ChecksumFormatError is raised synchronously at record construction when a
// supplied digest does not conform to its algorithm's format.
type ChecksumFormatError struct {
	Algorithm string
	Value     string
}

func (e *ChecksumFormatError) Error() string {
	return fmt.Sprintf("invalid %s checksum: %q", e.Algorithm, e.Value)
}

// SessionConflictError is raised when a copy destination already encodes a
// different session than the subject file.
type SessionConflictError struct {
	Destination string
	Want        string
	Got         string
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("session folder mismatch at %s: destination %s != source %s",
		e.Destination, e.Got, e.Want)
}

// SubgroupMismatchError is raised when a copy destination infers a different
// subgroup tag than the subject file carries.
type SubgroupMismatchError struct {
	Source string
	Dest   string
}

func (e *SubgroupMismatchError) Error() string {
	return fmt.Sprintf("subgroup tag mismatch: source %q != dest %q", e.Source, e.Dest)
}

// RetryExhaustedError is surfaced when copy validation keeps failing.
// Nothing has been deleted; both files are left as they were.
type RetryExhaustedError struct {
	Source   string
	Dest     string
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("copy validation failed after %d attempts: %s -> %s",
		e.Attempts, e.Source, e.Dest)
}

// ValidationError reports an invalid configuration or operation field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
