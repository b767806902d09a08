package services

import (
	"context"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

// Sleeper waits for d or until ctx is done. Tests inject a no-op.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the production Sleeper.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options tunes retry, polling and pacing of a provisioning run.
type Options struct {
	// RetryAttempts is the total number of attempts for a transient failure.
	RetryAttempts int
	// RetryBaseDelay is multiplied by the attempt number between attempts.
	RetryBaseDelay time.Duration

	// PollInterval is the wait before each readiness poll of a new team.
	PollInterval time.Duration
	// MaxPolls bounds the readiness polls.
	MaxPolls int
	// ProgressEvery emits a pending event every N failed polls.
	ProgressEvery int

	ChannelPause time.Duration
	MemberPause  time.Duration
	FolderPause  time.Duration

	// IconMaxBytes is the largest accepted picture upload.
	IconMaxBytes int64
	// IconSize is the edge length pictures are resized to.
	IconSize int

	// AllowPartialMatch enables the substring search stage of team resolution.
	AllowPartialMatch bool
	// NotFoundWait is the recommended wait when a conflicting team cannot be found.
	NotFoundWait time.Duration
	// NotFoundWaitNetwork replaces NotFoundWait when the last search failed on the network.
	NotFoundWaitNetwork time.Duration

	Sleep Sleeper
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		RetryAttempts:       3,
		RetryBaseDelay:      2 * time.Second,
		PollInterval:        5 * time.Second,
		MaxPolls:            36,
		ProgressEvery:       6,
		ChannelPause:        500 * time.Millisecond,
		MemberPause:         500 * time.Millisecond,
		FolderPause:         200 * time.Millisecond,
		IconMaxBytes:        4 << 20,
		IconSize:            512,
		AllowPartialMatch:   true,
		NotFoundWait:        120 * time.Second,
		NotFoundWaitNetwork: 30 * time.Second,
		Sleep:               sleepContext,
	}
}

// withDefaults fills zero values from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = d.RetryAttempts
	}
	if o.RetryBaseDelay < 0 {
		o.RetryBaseDelay = 0
	}
	if o.PollInterval < 0 {
		o.PollInterval = 0
	}
	if o.MaxPolls <= 0 {
		o.MaxPolls = d.MaxPolls
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = d.ProgressEvery
	}
	if o.IconMaxBytes <= 0 {
		o.IconMaxBytes = d.IconMaxBytes
	}
	if o.IconSize <= 0 {
		o.IconSize = d.IconSize
	}
	if o.NotFoundWait <= 0 {
		o.NotFoundWait = d.NotFoundWait
	}
	if o.NotFoundWaitNetwork <= 0 {
		o.NotFoundWaitNetwork = d.NotFoundWaitNetwork
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

// orDiscard substitutes a discarding sink for nil.
func orDiscard(sink driven.EventSink) driven.EventSink {
	if sink == nil {
		return driven.DiscardEvents
	}
	return sink
}
