package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

// ChannelProvisioner creates the catalog channels in a team.
type ChannelProvisioner struct {
	gw      driven.TeamsGateway
	retrier *Retrier
	pause   time.Duration
	sleep   Sleeper
}

// NewChannelProvisioner creates a channel provisioner.
func NewChannelProvisioner(gw driven.TeamsGateway, opts Options) *ChannelProvisioner {
	opts = opts.withDefaults()
	return &ChannelProvisioner{
		gw:      gw,
		retrier: NewRetrier(opts.RetryAttempts, opts.RetryBaseDelay, opts.Sleep),
		pause:   opts.ChannelPause,
		sleep:   opts.Sleep,
	}
}

// Create provisions catalog[1:] in order. catalog[0] is the general channel
// Teams creates on its own. A channel that already exists counts as
// available. Other failures are recorded and the next channel is attempted.
// Only cancellation of ctx returns an error.
func (p *ChannelProvisioner) Create(ctx context.Context, teamID string, catalog []domain.ChannelTemplate,
	sink driven.EventSink) (*domain.ChannelReport, error) {
	sink = orDiscard(sink)
	report := domain.NewChannelReport()
	if len(catalog) < 2 {
		return report, nil
	}

	existing := p.existingNames(ctx, teamID)
	todo := catalog[1:]

	for i, tmpl := range todo {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := domain.ChannelResult{Name: tmpl.DisplayName}
		if _, ok := existing[strings.ToLower(tmpl.DisplayName)]; ok {
			res.Status = domain.ChannelExisting
		} else {
			res = p.createOne(ctx, teamID, tmpl)
		}
		report.Record(res)
		p.emit(sink, teamID, res, i+1, len(todo))

		if i < len(todo)-1 && res.Status != domain.ChannelExisting {
			if err := p.sleep(ctx, p.pause); err != nil {
				return report, err
			}
		}
	}

	logger.Debug("channels: team %s created=%d existing=%d failed=%d",
		teamID, report.Created, report.Existing, report.Failed)
	return report, nil
}

// existingNames lists the team's channels, lower-cased. A listing failure is
// not fatal: creation conflicts catch duplicates anyway.
func (p *ChannelProvisioner) existingNames(ctx context.Context, teamID string) map[string]struct{} {
	names := make(map[string]struct{})
	channels, err := p.gw.ListChannels(ctx, teamID)
	if err != nil {
		logger.Debug("channels: pre-listing %s failed: %v", teamID, err)
		return names
	}
	for _, ch := range channels {
		names[strings.ToLower(ch.DisplayName)] = struct{}{}
	}
	return names
}

func (p *ChannelProvisioner) createOne(ctx context.Context, teamID string, tmpl domain.ChannelTemplate) domain.ChannelResult {
	res := domain.ChannelResult{Name: tmpl.DisplayName}
	err := p.retrier.Do(ctx, "create channel", func(ctx context.Context) error {
		_, err := p.gw.CreateChannel(ctx, teamID, tmpl)
		return err
	})
	switch {
	case err == nil:
		res.Status = domain.ChannelCreated
	case domain.IsKind(err, domain.KindConflict):
		res.Status = domain.ChannelExisting
	default:
		logger.Warn("channels: failed to create %q in %s: %v", tmpl.DisplayName, teamID, err)
		res.Status = domain.ChannelFailed
		res.Error = err.Error()
	}
	return res
}

func (p *ChannelProvisioner) emit(sink driven.EventSink, teamID string, res domain.ChannelResult, index, total int) {
	var ev domain.Event
	switch res.Status {
	case domain.ChannelCreated:
		ev = domain.NewEvent(domain.EventChannelCreated, fmt.Sprintf("Channel %s created", res.Name))
	case domain.ChannelExisting:
		ev = domain.NewEvent(domain.EventChannelCreated, fmt.Sprintf("Channel %s already exists", res.Name))
	default:
		ev = domain.NewEvent(domain.EventChannelError, fmt.Sprintf("Failed to create channel %s", res.Name))
		ev.Data.Error = res.Error
	}
	ev.Data.TeamID, ev.Data.Name, ev.Data.Index, ev.Data.Total = teamID, res.Name, index, total
	sink.Emit(ev)
}
