package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driving"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

// Verify interface compliance.
var _ driving.ProvisioningService = (*Provisioner)(nil)

// Provisioner runs the provisioning stages in sequence for one user token at
// a time. It holds no per-user state: every call builds its own gateway.
type Provisioner struct {
	factory driven.GatewayFactory
	opts    Options
	now     func() time.Time
}

// NewProvisioner creates a provisioner using factory to reach Graph.
func NewProvisioner(factory driven.GatewayFactory, opts Options) *Provisioner {
	return &Provisioner{factory: factory, opts: opts.withDefaults(), now: time.Now}
}

// run bundles the stage components bound to one gateway.
type run struct {
	id       string
	gw       driven.TeamsGateway
	resolver *TeamResolver
	waiter   *ProvisioningWaiter
	channels *ChannelProvisioner
	members  *MemberProvisioner
	folders  *FolderProvisioner
	icons    *IconUploader
}

func (p *Provisioner) newRun(accessToken string) *run {
	gw := p.factory.ForToken(accessToken)
	members := NewMemberProvisioner(gw, p.opts)
	return &run{
		id:       uuid.NewString(),
		gw:       gw,
		resolver: NewTeamResolver(gw, members, p.opts),
		waiter:   NewProvisioningWaiter(gw, p.opts),
		channels: NewChannelProvisioner(gw, p.opts),
		members:  members,
		folders:  NewFolderProvisioner(gw, p.opts),
		icons:    NewIconUploader(gw, p.opts),
	}
}

// Provision implements driving.ProvisioningService.
func (p *Provisioner) Provision(ctx context.Context, accessToken string, req domain.ProvisionRequest,
	sink driven.EventSink) (*domain.ProvisionResult, error) {
	sink = orDiscard(sink)
	req.Normalise()
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	if req.TeamName == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "team name is required", Err: domain.ErrInvalidInput}
	}

	r := p.newRun(accessToken)
	if req.Icon != nil {
		if _, err := r.icons.Validate(*req.Icon); err != nil {
			return nil, err
		}
	}

	started := p.now()
	result := &domain.ProvisionResult{RunID: r.id}
	ev := domain.NewEvent(domain.EventStart, fmt.Sprintf("Provisioning team %s", req.TeamName))
	ev.Data.RunID, ev.Data.TeamName = r.id, req.TeamName
	sink.Emit(ev)
	logger.Info("provision[%s]: starting %q with %d members", r.id, req.TeamName, len(req.Members))

	ownerID, err := p.resolveOwner(ctx, r.gw, req)
	if err != nil {
		return nil, fail(sink, "Could not determine the team owner", err)
	}

	res, err := r.resolver.Resolve(ctx, ResolveRequest{TeamName: req.TeamName, OwnerID: ownerID, Members: req.Members}, sink)
	if err != nil {
		return nil, fail(sink, fmt.Sprintf("Could not create or find team %s", req.TeamName), err)
	}
	result.Team, result.Existing = res.Team, res.Existing

	if !res.Existing {
		sink.Emit(domain.NewEvent(domain.EventProgress, "Waiting for the team to finish provisioning"))
		team, err := r.waiter.Wait(ctx, res.Team.ID, sink)
		if err != nil {
			return nil, fail(sink, "The team did not become available", err)
		}
		result.Team.State = team.State
		if team.DisplayName != "" {
			result.Team.DisplayName = team.DisplayName
		}
	}

	sink.Emit(domain.NewEvent(domain.EventProgress, "Creating channels"))
	result.Channels, err = r.channels.Create(ctx, result.Team.ID, domain.DefaultChannels, sink)
	if err != nil {
		return nil, fail(sink, "Channel creation was interrupted", err)
	}

	if res.Existing {
		result.Members = res.Members
	} else if len(req.Members) > 0 {
		sink.Emit(domain.NewEvent(domain.EventProgress, "Adding members"))
		result.Members, err = r.members.Add(ctx, result.Team.ID, req.Members, sink)
		if err != nil {
			return nil, fail(sink, "Member addition was interrupted", err)
		}
	}

	if req.CreateFolders {
		sink.Emit(domain.NewEvent(domain.EventProgress, "Creating folder structure"))
		report, err := r.folders.Create(ctx, result.Team.ID, sink)
		result.Folders = report
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fail(sink, "Folder creation was interrupted", ctxErr)
			}
			logger.Warn("provision[%s]: folders: %v", r.id, err)
			result.FolderError = err.Error()
		}
	}

	if req.Icon != nil {
		icon, err := r.icons.Upload(ctx, result.Team.ID, *req.Icon)
		if err != nil {
			logger.Warn("provision[%s]: icon: %v", r.id, err)
			result.IconError = err.Error()
		} else {
			result.Icon = icon
			ev := domain.NewEvent(domain.EventIconUploaded, "Team picture updated")
			ev.Data.TeamID = result.Team.ID
			sink.Emit(ev)
		}
	}

	result.Duration = p.now().Sub(started)
	sink.Emit(completeEvent(r.id, result))
	logger.Info("provision[%s]: done in %s (channels=%d members=%d)",
		r.id, result.Duration, result.ChannelsCreated(), result.MembersAdded())
	return result, nil
}

// Finalize implements driving.ProvisioningService.
func (p *Provisioner) Finalize(ctx context.Context, accessToken string, req domain.FinalizeRequest,
	sink driven.EventSink) (*domain.ProvisionResult, error) {
	sink = orDiscard(sink)
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}

	r := p.newRun(accessToken)
	started := p.now()
	result := &domain.ProvisionResult{RunID: r.id, Existing: true}
	ev := domain.NewEvent(domain.EventStart, fmt.Sprintf("Finalizing team %s", req.TeamName))
	ev.Data.RunID, ev.Data.TeamName = r.id, req.TeamName
	sink.Emit(ev)

	res, err := r.resolver.Search(ctx, req.TeamName, sink)
	if err != nil {
		return nil, fail(sink, fmt.Sprintf("Could not find team %s", req.TeamName), err)
	}
	result.Team = res.Team
	found := domain.NewEvent(domain.EventTeamFound, fmt.Sprintf("Team %s found", res.Team.DisplayName))
	found.Data.TeamID, found.Data.TeamName = res.Team.ID, res.Team.DisplayName
	sink.Emit(found)

	members := req.Members[:0:0]
	for _, m := range req.Members {
		if strings.TrimSpace(m.ID) != "" || strings.TrimSpace(m.Email) != "" {
			members = append(members, m)
		}
	}
	if len(members) > 0 {
		result.Members, err = r.members.Add(ctx, res.Team.ID, members, sink)
		if err != nil {
			return nil, fail(sink, "Member addition was interrupted", err)
		}
	}

	result.Channels, err = r.channels.Create(ctx, res.Team.ID, domain.DefaultChannels, sink)
	if err != nil {
		return nil, fail(sink, "Channel creation was interrupted", err)
	}

	result.Duration = p.now().Sub(started)
	sink.Emit(completeEvent(r.id, result))
	return result, nil
}

// CreateFolders implements driving.ProvisioningService.
func (p *Provisioner) CreateFolders(ctx context.Context, accessToken, teamID string,
	sink driven.EventSink) (*domain.FolderReport, error) {
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	if strings.TrimSpace(teamID) == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "team id is required", Err: domain.ErrInvalidInput}
	}
	return p.newRun(accessToken).folders.Create(ctx, teamID, orDiscard(sink))
}

// UploadIcon implements driving.ProvisioningService.
func (p *Provisioner) UploadIcon(ctx context.Context, accessToken, teamID string, icon domain.Icon) (*domain.IconResult, error) {
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	return p.newRun(accessToken).icons.Upload(ctx, teamID, icon)
}

// CheckIconAccess implements driving.ProvisioningService.
func (p *Provisioner) CheckIconAccess(ctx context.Context, accessToken, teamID string) (*domain.IconAccessReport, error) {
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	return p.newRun(accessToken).icons.CheckAccess(ctx, teamID)
}

// WhoAmI implements driving.ProvisioningService.
func (p *Provisioner) WhoAmI(ctx context.Context, accessToken string) (*domain.User, error) {
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	return p.factory.ForToken(accessToken).Me(ctx)
}

// LookupUser implements driving.ProvisioningService.
func (p *Provisioner) LookupUser(ctx context.Context, accessToken, email string) (*domain.User, error) {
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "email is required", Err: domain.ErrInvalidInput}
	}
	return p.factory.ForToken(accessToken).FindUserByEmail(ctx, email)
}

// resolveOwner picks the owner id: explicit id, then e-mail lookup, then the
// signed-in user.
func (p *Provisioner) resolveOwner(ctx context.Context, gw driven.TeamsGateway, req domain.ProvisionRequest) (string, error) {
	if req.OwnerID != "" {
		return req.OwnerID, nil
	}
	retrier := NewRetrier(p.opts.RetryAttempts, p.opts.RetryBaseDelay, p.opts.Sleep)
	var user *domain.User
	err := retrier.Do(ctx, "resolve owner", func(ctx context.Context) error {
		var err error
		if req.OwnerEmail != "" {
			user, err = gw.FindUserByEmail(ctx, req.OwnerEmail)
		} else {
			user, err = gw.Me(ctx)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func requireToken(accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return &domain.Error{Kind: domain.KindPermissionDenied, StatusCode: 401, Message: "access token is required"}
	}
	return nil
}

// fail emits an error event and returns err.
func fail(sink driven.EventSink, msg string, err error) error {
	logger.Error("provision: %s: %v", msg, err)
	sink.Emit(domain.ErrorEvent(msg, err))
	return err
}

func completeEvent(runID string, result *domain.ProvisionResult) domain.Event {
	msg := fmt.Sprintf("Team %s ready: %d channels created, %d members added",
		result.Team.DisplayName, result.ChannelsCreated(), result.MembersAdded())
	if result.Folders != nil {
		msg += ", " + result.Folders.Summary()
	}
	ev := domain.NewEvent(domain.EventComplete, msg)
	ev.Data.RunID, ev.Data.TeamID, ev.Data.TeamName = runID, result.Team.ID, result.Team.DisplayName
	ev.Data.ChannelsCreated, ev.Data.MembersAdded = result.ChannelsCreated(), result.MembersAdded()
	if result.Folders != nil {
		ev.Data.FoldersCreated = result.Folders.TotalCreated
	}
	return ev
}
