package hexmem

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the small closed set of error kinds the HTTP layer maps to status
// codes. Components return errors wrapping a Kind via fmt.Errorf("%w: ...",
// hexmem.ErrNotFound).
type Kind string

const (
	KindInvalidArgument       Kind = "InvalidArgument"
	KindUnauthenticated       Kind = "Unauthenticated"
	KindPermissionDenied      Kind = "PermissionDenied"
	KindNotFound              Kind = "NotFound"
	KindConflict              Kind = "Conflict"
	KindCapabilityUnavailable Kind = "CapabilityUnavailable"
	KindInternal              Kind = "Internal"
)

// Sentinel errors for each kind. Wrap with fmt.Errorf("%w: detail", ErrX) at
// the call site; errors.Is/errors.As unwraps to these.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrEmbeddingUnavailable  = fmt.Errorf("%w: embedding provider unavailable", ErrCapabilityUnavailable)
)

// ConflictError carries the duplicate-match detail returned on 409
// responses to direct-write dedup.
type ConflictError struct {
	ExistingID string
	Similarity float64
	msg        string
}

func (e *ConflictError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return "duplicate match"
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewDedupConflict builds the 409 error returned by direct-write dedup hits.
func NewDedupConflict(existingID string, similarity float64) error {
	return &ConflictError{ExistingID: existingID, Similarity: similarity,
		msg: fmt.Sprintf("duplicate of %s (similarity %.2f)", existingID, similarity)}
}

// KindOf classifies err into one of the Kind sentinels, defaulting to
// KindInternal for anything unrecognized: an unwrapped store error is
// treated as an opaque internal failure rather than guessed at.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrCapabilityUnavailable):
		return KindCapabilityUnavailable
	default:
		return KindInternal
	}
}

// StatusCode maps a Kind to its HTTP status.
func StatusCode(k Kind) int {
	switch k {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindCapabilityUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
