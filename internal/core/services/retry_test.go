package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func transient() error {
	return &domain.Error{Kind: domain.KindTransient, StatusCode: 503, Message: "unavailable"}
}

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name       string
		errs       []error
		wantCalls  int
		wantDelays []time.Duration
		wantKind   domain.ErrorKind
	}{
		{
			name:      "success first time",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:       "transient then success",
			errs:       []error{transient(), nil},
			wantCalls:  2,
			wantDelays: []time.Duration{2 * time.Second},
		},
		{
			name:       "transient exhausts attempts",
			errs:       []error{transient(), transient(), transient(), nil},
			wantCalls:  3,
			wantDelays: []time.Duration{2 * time.Second, 4 * time.Second},
			wantKind:   domain.KindTransient,
		},
		{
			name:      "non-transient propagates immediately",
			errs:      []error{&domain.Error{Kind: domain.KindPermissionDenied}},
			wantCalls: 1,
			wantKind:  domain.KindPermissionDenied,
		},
		{
			name:      "unclassified propagates immediately",
			errs:      []error{errors.New("boom")},
			wantCalls: 1,
			wantKind:  domain.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			r := NewRetrier(3, 2*time.Second, sleeper.Sleep)
			calls := 0

			err := r.Do(context.Background(), "test", func(context.Context) error {
				e := tt.errs[calls]
				calls++
				return e
			})

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantDelays, sleeper.delays)
			if tt.wantKind == "" {
				require.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
			}
		})
	}
}

func TestRetrier_Do_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRetrier(3, time.Second, sleepContext)
	calls := 0

	err := r.Do(ctx, "test", func(context.Context) error {
		calls++
		return transient()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewRetrier_ClampsAttempts(t *testing.T) {
	r := NewRetrier(0, 0, nil)
	calls := 0

	_ = r.Do(context.Background(), "test", func(context.Context) error {
		calls++
		return transient()
	})

	assert.Equal(t, 1, calls)
}
