package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed set of failure categories the provisioning flow reacts to.
// Graph responses are mapped to a kind once, at the request boundary.
type ErrorKind string

const (
	// KindUnknown is any failure that fits no other category.
	KindUnknown ErrorKind = "unknown"
	// KindTransient covers network failures, timeouts, throttling (429) and 5xx responses.
	KindTransient ErrorKind = "transient"
	// KindConflict means the resource already exists.
	KindConflict ErrorKind = "conflict"
	// KindNotFound means the resource does not exist or is not visible yet.
	KindNotFound ErrorKind = "not_found"
	// KindLicenseRestricted means the tenant licence does not expose the resource.
	KindLicenseRestricted ErrorKind = "license_restricted"
	// KindProvisioningTimeout means the team never became readable within the poll budget.
	KindProvisioningTimeout ErrorKind = "provisioning_timeout"
	// KindPermissionDenied covers 401 and 403 responses.
	KindPermissionDenied ErrorKind = "permission_denied"
	// KindPayloadTooLarge means the uploaded content exceeds the allowed size.
	KindPayloadTooLarge ErrorKind = "payload_too_large"
	// KindUnsupportedType means the uploaded content type is not accepted.
	KindUnsupportedType ErrorKind = "unsupported_type"
	// KindTeamNotFound means creation conflicted but no search stage found the team.
	KindTeamNotFound ErrorKind = "team_not_found"
	// KindInvalidInput means the caller supplied an unusable request.
	KindInvalidInput ErrorKind = "invalid_input"
)

// Sentinel errors for callers that prefer errors.Is.
var (
	// ErrInvalidInput indicates a request failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTeamNotFound indicates the team could not be located by name.
	ErrTeamNotFound = errors.New("team not found")
)

// Error is a classified failure.
type Error struct {
	Kind ErrorKind
	// StatusCode is the HTTP status returned by Graph, 0 for transport failures.
	StatusCode int
	// Code is the Graph error code (for example "nameAlreadyExists").
	Code    string
	Message string
	// Network marks failures that never reached Graph (DNS, reset, timeout).
	Network bool
	// RetryAfter is the suggested wait before retrying the whole operation.
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// RetryRecommended reports whether retrying the whole operation later may succeed.
func (e *Error) RetryRecommended() bool {
	switch e.Kind {
	case KindTransient, KindProvisioningTimeout, KindTeamNotFound:
		return true
	default:
		return false
	}
}

// NewError builds a classified error with a message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the classified error from a chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first classified error in the chain.
// Unclassified errors report KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	e, ok := AsError(err)
	return ok && e.Network
}
