package microsoft

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   error
	}{
		{name: "unauthorised", statusCode: http.StatusUnauthorized, expected: ErrUnauthorised},
		{name: "forbidden", statusCode: http.StatusForbidden, expected: ErrForbidden},
		{name: "not found", statusCode: http.StatusNotFound, expected: ErrNotFound},
		{name: "conflict", statusCode: http.StatusConflict, expected: ErrConflict},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, expected: ErrRateLimited},
		{name: "too large", statusCode: http.StatusRequestEntityTooLarge, expected: ErrPayloadTooLarge},
		{name: "bad request", statusCode: http.StatusBadRequest, expected: ErrBadRequest},
		{name: "internal server error", statusCode: http.StatusInternalServerError, expected: ErrServerError},
		{name: "service unavailable", statusCode: http.StatusServiceUnavailable, expected: ErrServerError},
		{name: "success returns nil", statusCode: http.StatusOK, expected: nil},
		{name: "accepted returns nil", statusCode: http.StatusAccepted, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WrapError(tt.statusCode))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusConflict, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.statusCode))
		})
	}
}

func TestIsRateLimitedAndNotFound(t *testing.T) {
	assert.True(t, IsRateLimited(http.StatusTooManyRequests))
	assert.False(t, IsRateLimited(http.StatusOK))
	assert.True(t, IsNotFound(http.StatusNotFound))
	assert.False(t, IsNotFound(http.StatusGone))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantKind   domain.ErrorKind
		wantErr    error
	}{
		{
			name:       "409 is conflict",
			statusCode: http.StatusConflict,
			body:       `{"error":{"code":"Conflict","message":"Team exists"}}`,
			wantKind:   domain.KindConflict,
			wantErr:    ErrConflict,
		},
		{
			name:       "400 already exists is conflict",
			statusCode: http.StatusBadRequest,
			body:       `{"error":{"code":"BadRequest","message":"Channel name already existed, please use other name."}}`,
			wantKind:   domain.KindConflict,
			wantErr:    ErrConflict,
		},
		{
			name:       "nameAlreadyExists code is conflict",
			statusCode: http.StatusBadRequest,
			body:       `{"error":{"code":"nameAlreadyExists","message":"An item with the same name exists."}}`,
			wantKind:   domain.KindConflict,
			wantErr:    ErrConflict,
		},
		{
			name:       "license information",
			statusCode: http.StatusNotFound,
			body:       `{"error":{"code":"NotFound","message":"Failed to get license information for the user."}}`,
			wantKind:   domain.KindLicenseRestricted,
			wantErr:    ErrNotFound,
		},
		{
			name:       "429 is transient",
			statusCode: http.StatusTooManyRequests,
			wantKind:   domain.KindTransient,
			wantErr:    ErrRateLimited,
		},
		{
			name:       "503 is transient",
			statusCode: http.StatusServiceUnavailable,
			body:       `not json`,
			wantKind:   domain.KindTransient,
			wantErr:    ErrServerError,
		},
		{
			name:       "404 is not found",
			statusCode: http.StatusNotFound,
			body:       `{"error":{"code":"NotFound","message":"No team found"}}`,
			wantKind:   domain.KindNotFound,
			wantErr:    ErrNotFound,
		},
		{
			name:       "403 is permission denied",
			statusCode: http.StatusForbidden,
			wantKind:   domain.KindPermissionDenied,
			wantErr:    ErrForbidden,
		},
		{
			name:       "401 is permission denied",
			statusCode: http.StatusUnauthorized,
			wantKind:   domain.KindPermissionDenied,
			wantErr:    ErrUnauthorised,
		},
		{
			name:       "413 is payload too large",
			statusCode: http.StatusRequestEntityTooLarge,
			wantKind:   domain.KindPayloadTooLarge,
			wantErr:    ErrPayloadTooLarge,
		},
		{
			name:       "415 is unsupported type",
			statusCode: http.StatusUnsupportedMediaType,
			wantKind:   domain.KindUnsupportedType,
		},
		{
			name:       "other 400 is unknown",
			statusCode: http.StatusBadRequest,
			body:       `{"error":{"code":"BadRequest","message":"Invalid bind property"}}`,
			wantKind:   domain.KindUnknown,
			wantErr:    ErrBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.statusCode, nil, []byte(tt.body))

			require.NotNil(t, err)
			assert.Equal(t, tt.wantKind, err.Kind)
			assert.Equal(t, tt.statusCode, err.StatusCode)
			assert.NotEmpty(t, err.Message)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestClassify_RetryAfterHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")

	err := Classify(http.StatusTooManyRequests, header, nil)

	assert.Equal(t, 7*time.Second, err.RetryAfter)
	assert.Equal(t, "Too Many Requests", err.Message)
}

func TestClassifyTransport(t *testing.T) {
	t.Run("network failure is transient", func(t *testing.T) {
		err := ClassifyTransport(context.Background(), errors.New("connection reset by peer"))

		assert.True(t, domain.IsKind(err, domain.KindTransient))
		assert.True(t, domain.IsNetwork(err))
	})

	t.Run("cancelled context is returned as-is", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := ClassifyTransport(ctx, errors.New("connection reset by peer"))

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, domain.IsKind(err, domain.KindTransient))
	})
}
