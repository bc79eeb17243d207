package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for registry and store operations
var (
	// ErrNotFound indicates the project does not exist on the registry
	ErrNotFound = errors.New("project not found")

	// ErrNoVersion indicates the project has no version compatible with the target
	ErrNoVersion = errors.New("no compatible version")

	// ErrRateLimited indicates the registry asked us to back off
	ErrRateLimited = errors.New("registry rate limit exceeded")

	// ErrIntegrity indicates downloaded bytes did not match the declared checksum.
	// Non-retryable for that version; the artifact must never be cached.
	ErrIntegrity = errors.New("artifact integrity check failed")

	// ErrCacheMiss indicates the cache has no valid record for the key
	ErrCacheMiss = errors.New("cache miss")
)

// TransportError wraps a network-level failure. Transport errors are
// retryable; the orchestrator backs off and tries again up to its ceiling.
type TransportError struct {
	Op  string // operation being performed, e.g. "search", "download"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the orchestrator should retry after err.
// Rate limiting and transport failures are retryable; everything else
// (not found, integrity, cancellation) is terminal for the attempt.
func Retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te)
}

// IncompletePackError aborts pack assembly when client or shared entries have
// no materialized artifact. Shipping a silently partial pack is worse than
// failing.
type IncompletePackError struct {
	Missing []string // profile filenames with no artifact
}

func (e *IncompletePackError) Error() string {
	return fmt.Sprintf("pack incomplete, %d mods missing: %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}
