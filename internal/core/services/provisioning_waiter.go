package services

import (
	"context"
	"fmt"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

// ProvisioningWaiter polls a newly created team until Graph can read it.
type ProvisioningWaiter struct {
	gw       driven.TeamsGateway
	interval time.Duration
	maxPolls int
	every    int
	sleep    Sleeper
}

// NewProvisioningWaiter creates a waiter.
func NewProvisioningWaiter(gw driven.TeamsGateway, opts Options) *ProvisioningWaiter {
	opts = opts.withDefaults()
	return &ProvisioningWaiter{
		gw:       gw,
		interval: opts.PollInterval,
		maxPolls: opts.MaxPolls,
		every:    opts.ProgressEvery,
		sleep:    opts.Sleep,
	}
}

// Wait blocks until GetTeam succeeds for teamID. Each poll is preceded by the
// poll interval. A permission failure aborts at once; other failures keep
// polling until the budget is spent, which yields KindProvisioningTimeout.
func (w *ProvisioningWaiter) Wait(ctx context.Context, teamID string, sink driven.EventSink) (*domain.Team, error) {
	sink = orDiscard(sink)

	var lastErr error
	for attempt := 1; attempt <= w.maxPolls; attempt++ {
		if err := w.sleep(ctx, w.interval); err != nil {
			return nil, err
		}

		team, err := w.gw.GetTeam(ctx, teamID)
		if err == nil {
			logger.Debug("waiter: team %s ready after %d polls", teamID, attempt)
			team.State = domain.TeamReady
			return team, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if domain.IsKind(err, domain.KindPermissionDenied) {
			return nil, fmt.Errorf("wait for team %s: %w", teamID, err)
		}
		lastErr = err

		if attempt%w.every == 0 {
			elapsed := int((time.Duration(attempt) * w.interval).Seconds())
			ev := domain.NewEvent(domain.EventPending,
				fmt.Sprintf("Team is still being provisioned (%ds elapsed)", elapsed))
			ev.Data.TeamID, ev.Data.Attempt, ev.Data.ElapsedSeconds = teamID, attempt, elapsed
			sink.Emit(ev)
		}
		logger.Debug("waiter: poll %d/%d for %s failed: %v", attempt, w.maxPolls, teamID, err)
	}

	total := time.Duration(w.maxPolls) * w.interval
	return nil, &domain.Error{
		Kind:       domain.KindProvisioningTimeout,
		Message:    fmt.Sprintf("team %s was not ready after %s", teamID, total),
		RetryAfter: total,
		Err:        lastErr,
	}
}
