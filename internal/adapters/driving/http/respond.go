package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error            string `json:"error"`
	Kind             string `json:"kind,omitempty"`
	StatusCode       int    `json:"statusCode"`
	RetryRecommended bool   `json:"retryRecommended"`
	WaitTime         int    `json:"waitTime,omitempty"`
}

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, StatusCode: status})
}

// writeDomainError maps a classified failure to a status code and carries
// its retry guidance.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Kind: string(domain.KindOf(err)), StatusCode: status}
	if derr, ok := domain.AsError(err); ok {
		if derr.Message != "" {
			body.Error = derr.Message
		}
		body.RetryRecommended = derr.RetryRecommended()
		body.WaitTime = int(derr.RetryAfter.Seconds())
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	derr, ok := domain.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch derr.Kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindPermissionDenied:
		if derr.StatusCode == http.StatusUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case domain.KindLicenseRestricted:
		return http.StatusForbidden
	case domain.KindNotFound, domain.KindTeamNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.KindUnsupportedType:
		return http.StatusUnsupportedMediaType
	case domain.KindTransient:
		if derr.StatusCode == http.StatusTooManyRequests {
			return http.StatusTooManyRequests
		}
		return http.StatusServiceUnavailable
	case domain.KindProvisioningTimeout:
		return http.StatusGatewayTimeout
	default:
		if derr.StatusCode >= 400 && derr.StatusCode < 600 {
			return derr.StatusCode
		}
		return http.StatusInternalServerError
	}
}
