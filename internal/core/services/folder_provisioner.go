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

// FolderProvisioner creates the folder catalog inside each channel's files
// location.
type FolderProvisioner struct {
	gw      driven.TeamsGateway
	retrier *Retrier
	pause   time.Duration
	sleep   Sleeper
	folders func(channelName string) []string
}

// NewFolderProvisioner creates a folder provisioner backed by domain.FolderCatalog.
func NewFolderProvisioner(gw driven.TeamsGateway, opts Options) *FolderProvisioner {
	opts = opts.withDefaults()
	return &FolderProvisioner{
		gw:      gw,
		retrier: NewRetrier(opts.RetryAttempts, opts.RetryBaseDelay, opts.Sleep),
		pause:   opts.FolderPause,
		sleep:   opts.Sleep,
		folders: domain.FoldersFor,
	}
}

// Create walks every channel of the team. Channels whose files location is
// license restricted are skipped. A failing folder only abandons the deeper
// segments of its own path. Only a failure to list the channels, or
// cancellation, returns an error.
func (p *FolderProvisioner) Create(ctx context.Context, teamID string, sink driven.EventSink) (*domain.FolderReport, error) {
	sink = orDiscard(sink)

	var channels []domain.Channel
	err := p.retrier.Do(ctx, "list channels", func(ctx context.Context) error {
		var err error
		channels, err = p.gw.ListChannels(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list channels of %s: %w", teamID, err)
	}

	report := &domain.FolderReport{}
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := p.channel(ctx, teamID, ch, sink)
		if err != nil {
			return report, err
		}
		report.Record(res)
	}

	logger.Info("folders: team %s: %s", teamID, report.Summary())
	return report, nil
}

func (p *FolderProvisioner) channel(ctx context.Context, teamID string, ch domain.Channel,
	sink driven.EventSink) (domain.ChannelFolderResult, error) {
	paths := p.folders(ch.DisplayName)
	res := domain.ChannelFolderResult{ChannelName: ch.DisplayName, TotalFolders: len(paths)}
	if len(paths) == 0 {
		res.Outcome = domain.FolderSucceeded
		return res, nil
	}

	var loc *domain.FilesLocation
	err := p.retrier.Do(ctx, "files folder", func(ctx context.Context) error {
		var err error
		loc, err = p.gw.GetChannelFilesFolder(ctx, teamID, ch.ID)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.Outcome = domain.FolderFailed
		if domain.IsKind(err, domain.KindLicenseRestricted) {
			res.Outcome = domain.FolderSkipped
		}
		res.Error = err.Error()
		p.emitError(sink, teamID, ch.DisplayName, res.Error)
		return res, nil
	}

	var failures []string
	for _, path := range paths {
		ok, err := p.createPath(ctx, *loc, path)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		if !ok {
			res.FailedPaths = append(res.FailedPaths, path)
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
			p.emitError(sink, teamID, ch.DisplayName, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		res.FoldersCreated++
		ev := domain.NewEvent(domain.EventFolderCreated, fmt.Sprintf("Folder %s ready in %s", path, ch.DisplayName))
		ev.Data.TeamID, ev.Data.Name = teamID, path
		ev.Data.Index, ev.Data.Total = res.FoldersCreated, res.TotalFolders
		sink.Emit(ev)
	}

	res.Outcome = domain.FolderSucceeded
	if len(failures) > 0 {
		res.Outcome = domain.FolderFailed
		res.Error = strings.Join(failures, "; ")
	}
	return res, nil
}

// createPath creates each segment of path under the channel folder, parent
// first. An existing segment is accepted. It reports whether the leaf exists.
func (p *FolderProvisioner) createPath(ctx context.Context, loc domain.FilesLocation, path string) (bool, error) {
	var parent string
	for _, segment := range domain.SplitFolderPath(path) {
		err := p.retrier.Do(ctx, "create folder", func(ctx context.Context) error {
			return p.gw.CreateFolder(ctx, loc, parent, segment)
		})
		if serr := p.sleep(ctx, p.pause); serr != nil {
			return false, serr
		}
		if err != nil && !domain.IsKind(err, domain.KindConflict) {
			logger.Warn("folders: %s/%s/%s failed: %v", loc.FolderName(), parent, segment, err)
			return false, err
		}
		if parent == "" {
			parent = segment
		} else {
			parent += "/" + segment
		}
	}
	return true, nil
}

func (p *FolderProvisioner) emitError(sink driven.EventSink, teamID, channel, msg string) {
	ev := domain.NewEvent(domain.EventFolderError, fmt.Sprintf("Folder creation failed in %s", channel))
	ev.Data.TeamID, ev.Data.Name, ev.Data.Error = teamID, channel, msg
	sink.Emit(ev)
}
