package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

// ResolveState is a step of team resolution.
type ResolveState string

const (
	StateCreating                ResolveState = "creating"
	StateConflictFallback        ResolveState = "conflict_fallback"
	StateSearchingJoined         ResolveState = "searching_joined"
	StateSearchingGroups         ResolveState = "searching_groups"
	StateSearchingGroupsFiltered ResolveState = "searching_groups_filtered"
	StateSearchingGroupsPartial  ResolveState = "searching_groups_partial"
	StateFound                   ResolveState = "found"
	StateNotFound                ResolveState = "not_found"
)

// ResolveRequest names the team to create and its owner and roster.
type ResolveRequest struct {
	TeamName string
	OwnerID  string
	Members  []domain.Member
}

// Resolution is the team a run works on.
type Resolution struct {
	Team domain.Team
	// Existing is true when creation conflicted and a search found the team.
	Existing bool
	// FoundBy is the search state that located an existing team.
	FoundBy ResolveState
	// Members is the roster outcome for an existing team.
	Members *domain.MemberReport
}

// TeamResolver obtains a team id for a name: it creates the team, and when
// the name is taken it walks a fixed sequence of search stages until one
// finds the team.
type TeamResolver struct {
	gw           driven.TeamsGateway
	retrier      *Retrier
	members      *MemberProvisioner
	allowPartial bool
	wait         time.Duration
	waitNetwork  time.Duration
}

// NewTeamResolver creates a resolver. members adds the roster when an
// existing team is found.
func NewTeamResolver(gw driven.TeamsGateway, members *MemberProvisioner, opts Options) *TeamResolver {
	opts = opts.withDefaults()
	return &TeamResolver{
		gw:           gw,
		retrier:      NewRetrier(opts.RetryAttempts, opts.RetryBaseDelay, opts.Sleep),
		members:      members,
		allowPartial: opts.AllowPartialMatch,
		wait:         opts.NotFoundWait,
		waitNetwork:  opts.NotFoundWaitNetwork,
	}
}

// resolution is the mutable state of one run through the machine.
type resolution struct {
	name       string
	ownerID    string
	state      ResolveState
	team       *domain.Team
	created    bool
	foundBy    ResolveState
	lastErr    error
	candidates []string
}

// Resolve creates the team or, on a name conflict, finds the existing one and
// adds the roster to it. A non-conflict creation failure is returned as is.
// A conflict that no stage resolves returns a KindTeamNotFound error with a
// recommended wait.
func (r *TeamResolver) Resolve(ctx context.Context, req ResolveRequest, sink driven.EventSink) (*Resolution, error) {
	sink = orDiscard(sink)
	name := strings.TrimSpace(req.TeamName)
	if name == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "team name is required", Err: domain.ErrInvalidInput}
	}
	if req.OwnerID == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "owner id is required", Err: domain.ErrInvalidInput}
	}

	run := &resolution{name: name, ownerID: req.OwnerID, state: StateCreating}
	if err := r.drive(ctx, run, sink); err != nil {
		return nil, err
	}
	if run.state == StateNotFound {
		return nil, r.notFound(run)
	}

	res := &Resolution{Team: *run.team, Existing: !run.created, FoundBy: run.foundBy}
	if run.created {
		ev := domain.NewEvent(domain.EventTeamCreated, fmt.Sprintf("Team %s created", name))
		ev.Data.TeamID, ev.Data.TeamName = res.Team.ID, name
		sink.Emit(ev)
		return res, nil
	}

	ev := domain.NewEvent(domain.EventTeamFound, fmt.Sprintf("Existing team %s found", res.Team.DisplayName))
	ev.Data.TeamID, ev.Data.TeamName = res.Team.ID, res.Team.DisplayName
	sink.Emit(ev)

	if len(req.Members) > 0 && r.members != nil {
		report, err := r.members.Add(ctx, res.Team.ID, req.Members, sink)
		if err != nil {
			return nil, err
		}
		res.Members = report
	}
	return res, nil
}

// Search locates an existing team by name without creating one.
func (r *TeamResolver) Search(ctx context.Context, name string, sink driven.EventSink) (*Resolution, error) {
	sink = orDiscard(sink)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "team name is required", Err: domain.ErrInvalidInput}
	}

	run := &resolution{name: name, state: StateSearchingJoined}
	if err := r.drive(ctx, run, sink); err != nil {
		return nil, err
	}
	if run.state == StateNotFound {
		return nil, r.notFound(run)
	}
	return &Resolution{Team: *run.team, Existing: true, FoundBy: run.foundBy}, nil
}

// drive advances the machine until a terminal state. Only a fatal creation
// failure or cancellation returns an error.
func (r *TeamResolver) drive(ctx context.Context, run *resolution, sink driven.EventSink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("resolver: %q in state %s", run.name, run.state)

		switch run.state {
		case StateCreating:
			if err := r.create(ctx, run); err != nil {
				return err
			}
		case StateConflictFallback:
			sink.Emit(domain.NewEvent(domain.EventProgress,
				fmt.Sprintf("A team named %s already exists, searching for it", run.name)))
			run.state = StateSearchingJoined
		case StateSearchingJoined:
			r.search(ctx, run, StateSearchingGroups, r.findJoined)
		case StateSearchingGroups:
			r.search(ctx, run, StateSearchingGroupsFiltered, r.findMemberOf)
		case StateSearchingGroupsFiltered:
			next := StateNotFound
			if r.allowPartial {
				next = StateSearchingGroupsPartial
			}
			r.search(ctx, run, next, r.findFiltered)
		case StateSearchingGroupsPartial:
			r.search(ctx, run, StateNotFound, func(ctx context.Context, name string) (*domain.Team, error) {
				return r.findPartial(ctx, run, name)
			})
		case StateFound, StateNotFound:
			return nil
		default:
			return fmt.Errorf("resolver: unknown state %q", run.state)
		}
	}
}

func (r *TeamResolver) create(ctx context.Context, run *resolution) error {
	var teamID string
	err := r.retrier.Do(ctx, "create team", func(ctx context.Context) error {
		id, err := r.gw.CreateTeam(ctx, run.name, run.ownerID)
		teamID = id
		return err
	})
	switch {
	case err == nil:
		run.team = &domain.Team{ID: teamID, DisplayName: run.name, State: domain.TeamCreating}
		run.created = true
		run.state = StateFound
		return nil
	case domain.IsKind(err, domain.KindConflict):
		logger.Info("resolver: team %q already exists, falling back to search", run.name)
		run.state = StateConflictFallback
		return nil
	default:
		return fmt.Errorf("create team %q: %w", run.name, err)
	}
}

// search runs one stage under the retry policy. A stage that still fails
// records the error and hands over to the next stage.
func (r *TeamResolver) search(ctx context.Context, run *resolution, next ResolveState,
	find func(ctx context.Context, name string) (*domain.Team, error)) {
	stage := run.state
	var team *domain.Team
	err := r.retrier.Do(ctx, string(stage), func(ctx context.Context) error {
		t, err := find(ctx, run.name)
		team = t
		return err
	})

	switch {
	case err != nil:
		logger.Warn("resolver: stage %s failed for %q: %v", stage, run.name, err)
		run.lastErr = err
		run.state = next
	case team != nil:
		logger.Info("resolver: found %q as %s during %s", run.name, team.ID, stage)
		run.team = team
		run.foundBy = stage
		run.state = StateFound
	default:
		run.state = next
	}
}

func (r *TeamResolver) findJoined(ctx context.Context, name string) (*domain.Team, error) {
	teams, err := r.gw.ListJoinedTeams(ctx)
	if err != nil {
		return nil, err
	}
	return matchByName(teams, name), nil
}

func (r *TeamResolver) findMemberOf(ctx context.Context, name string) (*domain.Team, error) {
	groups, err := r.gw.ListMemberOfGroups(ctx)
	if err != nil {
		return nil, err
	}
	return matchByName(teamsOf(groups), name), nil
}

func (r *TeamResolver) findFiltered(ctx context.Context, name string) (*domain.Team, error) {
	groups, err := r.gw.ListGroups(ctx, name)
	if err != nil {
		return nil, err
	}
	return matchByName(teamsOf(groups), name), nil
}

// findPartial scans every group. An exact (case-insensitive) match wins;
// otherwise a single substring candidate is accepted. Several candidates are
// ambiguous and recorded on run.
func (r *TeamResolver) findPartial(ctx context.Context, run *resolution, name string) (*domain.Team, error) {
	groups, err := r.gw.ListGroups(ctx, "")
	if err != nil {
		return nil, err
	}
	teams := teamsOf(groups)
	if t := matchByName(teams, name); t != nil {
		return t, nil
	}

	candidates := partialMatches(teams, name)
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return &candidates[0], nil
	default:
		run.candidates = run.candidates[:0]
		for _, c := range candidates {
			run.candidates = append(run.candidates, c.DisplayName)
		}
		logger.Warn("resolver: %d partial matches for %q, refusing to pick one", len(candidates), name)
		return nil, nil
	}
}

func (r *TeamResolver) notFound(run *resolution) error {
	wait := r.wait
	if domain.IsNetwork(run.lastErr) {
		wait = r.waitNetwork
	}
	msg := fmt.Sprintf("team %q already exists but could not be found", run.name)
	if len(run.candidates) > 1 {
		msg += fmt.Sprintf(" (ambiguous matches: %s)", strings.Join(run.candidates, ", "))
	}
	if run.lastErr != nil {
		msg += fmt.Sprintf("; last search error: %v", run.lastErr)
	}
	return &domain.Error{
		Kind:       domain.KindTeamNotFound,
		Message:    msg,
		RetryAfter: wait,
		Err:        errors.Join(domain.ErrTeamNotFound, run.lastErr),
	}
}

// matchByName returns the first exact match, then the first
// case-insensitive match.
func matchByName(teams []domain.Team, name string) *domain.Team {
	for i := range teams {
		if teams[i].DisplayName == name {
			return &teams[i]
		}
	}
	for i := range teams {
		if strings.EqualFold(strings.TrimSpace(teams[i].DisplayName), name) {
			return &teams[i]
		}
	}
	return nil
}

// partialMatches returns teams whose name contains, or is contained in, name.
func partialMatches(teams []domain.Team, name string) []domain.Team {
	needle := strings.ToLower(name)
	var out []domain.Team
	for _, t := range teams {
		hay := strings.ToLower(strings.TrimSpace(t.DisplayName))
		if hay == "" {
			continue
		}
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			out = append(out, t)
		}
	}
	return out
}

func teamsOf(groups []domain.Group) []domain.Team {
	teams := make([]domain.Team, 0, len(groups))
	for _, g := range groups {
		if g.IsTeam() {
			teams = append(teams, g.Team())
		}
	}
	return teams
}
