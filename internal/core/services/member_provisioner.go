package services

import (
	"context"
	"fmt"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

// MemberProvisioner adds a roster to a team, one member at a time.
// A failing member is recorded and the batch continues.
type MemberProvisioner struct {
	gw      driven.TeamsGateway
	retrier *Retrier
	pause   time.Duration
	sleep   Sleeper
}

// NewMemberProvisioner creates a member provisioner.
func NewMemberProvisioner(gw driven.TeamsGateway, opts Options) *MemberProvisioner {
	opts = opts.withDefaults()
	return &MemberProvisioner{
		gw:      gw,
		retrier: NewRetrier(opts.RetryAttempts, opts.RetryBaseDelay, opts.Sleep),
		pause:   opts.MemberPause,
		sleep:   opts.Sleep,
	}
}

// Add adds every member with the member role. Members given only by e-mail
// are resolved first. Only cancellation of ctx returns an error.
func (p *MemberProvisioner) Add(ctx context.Context, teamID string, members []domain.Member,
	sink driven.EventSink) (*domain.MemberReport, error) {
	sink = orDiscard(sink)
	report := &domain.MemberReport{}
	total := len(members)

	for i, m := range members {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := p.addOne(ctx, teamID, m)
		report.Record(res)

		switch res.Status {
		case domain.MemberFailed:
			logger.Warn("members: failed to add %s to %s: %s", m.Label(), teamID, res.Error)
			ev := domain.NewEvent(domain.EventMemberError, fmt.Sprintf("Failed to add %s", m.Label()))
			ev.Data.Error = res.Error
			ev.Data.Name, ev.Data.Index, ev.Data.Total, ev.Data.TeamID = m.Label(), i+1, total, teamID
			sink.Emit(ev)
		default:
			msg := fmt.Sprintf("Added %s", m.Label())
			if res.Status == domain.MemberExisting {
				msg = fmt.Sprintf("%s is already a member", m.Label())
			}
			ev := domain.NewEvent(domain.EventMemberAdded, msg)
			ev.Data.Name, ev.Data.Index, ev.Data.Total, ev.Data.TeamID = m.Label(), i+1, total, teamID
			sink.Emit(ev)
		}

		if i < total-1 {
			if err := p.sleep(ctx, p.pause); err != nil {
				return report, err
			}
		}
	}

	logger.Debug("members: team %s added=%d existing=%d failed=%d", teamID, report.Added, report.Existing, report.Failed)
	return report, nil
}

func (p *MemberProvisioner) addOne(ctx context.Context, teamID string, m domain.Member) domain.MemberResult {
	res := domain.MemberResult{Member: m}

	if m.ID == "" {
		var user *domain.User
		err := p.retrier.Do(ctx, "lookup member", func(ctx context.Context) error {
			var err error
			user, err = p.gw.FindUserByEmail(ctx, m.Email)
			return err
		})
		if err != nil {
			res.Status = domain.MemberFailed
			res.Error = err.Error()
			return res
		}
		res.Member.ID = user.ID
		if res.Member.DisplayName == "" {
			res.Member.DisplayName = user.DisplayName
		}
	}

	err := p.retrier.Do(ctx, "add member", func(ctx context.Context) error {
		return p.gw.AddMember(ctx, teamID, res.Member.ID, domain.RoleMember)
	})
	switch {
	case err == nil:
		res.Status = domain.MemberAdded
	case domain.IsKind(err, domain.KindConflict):
		res.Status = domain.MemberExisting
	default:
		res.Status = domain.MemberFailed
		res.Error = err.Error()
	}
	return res
}
