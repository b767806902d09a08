package microsoft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

// Error types for Microsoft Graph API responses.
var (
	// ErrUnauthorised indicates the access token is invalid or expired.
	ErrUnauthorised = errors.New("microsoft: unauthorised")

	// ErrForbidden indicates the user lacks permission for the requested resource.
	ErrForbidden = errors.New("microsoft: forbidden")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("microsoft: not found")

	// ErrConflict indicates the resource already exists.
	ErrConflict = errors.New("microsoft: conflict")

	// ErrRateLimited indicates the request was throttled by Microsoft Graph.
	ErrRateLimited = errors.New("microsoft: rate limited")

	// ErrPayloadTooLarge indicates the request body exceeded the endpoint limit.
	ErrPayloadTooLarge = errors.New("microsoft: payload too large")

	// ErrBadRequest indicates the request was malformed.
	ErrBadRequest = errors.New("microsoft: bad request")

	// ErrServerError indicates a server-side error from Microsoft Graph.
	ErrServerError = errors.New("microsoft: server error")
)

// Graph error codes and message fragments that change classification.
const (
	codeNameAlreadyExists   = "nameAlreadyExists"
	fragmentAlreadyExists   = "already exist"
	fragmentLicenseRequired = "license information"
)

// WrapError converts an HTTP status code to an appropriate error.
func WrapError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// IsRateLimited checks if the status code indicates rate limiting.
func IsRateLimited(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests
}

// IsNotFound checks if the status code indicates a missing resource.
func IsNotFound(statusCode int) bool {
	return statusCode == http.StatusNotFound
}

// IsRetryable checks if the status code indicates a transient failure.
func IsRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// graphErrorBody is the standard Graph error envelope.
type graphErrorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		InnerError struct {
			Code string `json:"code"`
		} `json:"innerError"`
	} `json:"error"`
}

// Classify maps a non-2xx Graph response to a classified error.
func Classify(statusCode int, header http.Header, body []byte) *domain.Error {
	code, message := parseGraphError(body)
	e := &domain.Error{
		Kind:       domain.KindUnknown,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Err:        WrapError(statusCode),
	}
	if e.Message == "" {
		e.Message = http.StatusText(statusCode)
	}
	lower := strings.ToLower(message)

	switch {
	case statusCode == http.StatusConflict,
		strings.EqualFold(code, codeNameAlreadyExists),
		statusCode == http.StatusBadRequest && strings.Contains(lower, fragmentAlreadyExists):
		e.Kind = domain.KindConflict
		e.Err = ErrConflict
	case strings.Contains(lower, fragmentLicenseRequired):
		e.Kind = domain.KindLicenseRestricted
	case IsRetryable(statusCode):
		e.Kind = domain.KindTransient
		e.RetryAfter = retryAfter(header)
	case statusCode == http.StatusNotFound:
		e.Kind = domain.KindNotFound
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		e.Kind = domain.KindPermissionDenied
	case statusCode == http.StatusRequestEntityTooLarge:
		e.Kind = domain.KindPayloadTooLarge
	case statusCode == http.StatusUnsupportedMediaType:
		e.Kind = domain.KindUnsupportedType
	}
	return e
}

// ClassifyTransport maps a failure to reach Graph. Cancellation of ctx is
// returned as-is so retries stop.
func ClassifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	e := &domain.Error{Kind: domain.KindTransient, Network: true, Err: err}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		e.Message = "request timed out"
	} else {
		e.Message = fmt.Sprintf("network error: %v", err)
	}
	return e
}

func parseGraphError(body []byte) (code, message string) {
	if len(body) == 0 {
		return "", ""
	}
	var env graphErrorBody
	if err := json.Unmarshal(body, &env); err != nil {
		return "", truncate(string(body), 300)
	}
	code = env.Error.Code
	if code == "" {
		code = env.Error.InnerError.Code
	}
	return code, env.Error.Message
}

// retryAfter parses the Retry-After header in its delay-seconds form.
func retryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
