package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

// fakeGateway is a scriptable driven.TeamsGateway. Nil hooks succeed with
// empty results. Every call is appended to calls in order.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	createTeam     func(name, ownerID string) (string, error)
	getTeam        func(teamID string) (*domain.Team, error)
	joinedTeams    func() ([]domain.Team, error)
	memberOf       func() ([]domain.Group, error)
	listGroups     func(displayName string) ([]domain.Group, error)
	getGroup       func(groupID string) (*domain.Group, error)
	listChannels   func(teamID string) ([]domain.Channel, error)
	createChannel  func(tmpl domain.ChannelTemplate) (*domain.Channel, error)
	filesFolder    func(channelID string) (*domain.FilesLocation, error)
	createFolder   func(fullPath string) error
	addMember      func(userID string, role domain.Role) error
	getPhoto       func(groupID string) (*domain.PhotoInfo, error)
	uploadPhoto    func(data []byte, contentType string) error
	me             func() (*domain.User, error)
	findUserByMail func(email string) (*domain.User, error)
}

var _ driven.TeamsGateway = (*fakeGateway)(nil)

func (f *fakeGateway) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// callsWithPrefix returns recorded calls starting with prefix.
func (f *fakeGateway) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGateway) CreateTeam(_ context.Context, name, ownerID string) (string, error) {
	f.record("CreateTeam %s owner=%s", name, ownerID)
	if f.createTeam == nil {
		return "team-new", nil
	}
	return f.createTeam(name, ownerID)
}

func (f *fakeGateway) GetTeam(_ context.Context, teamID string) (*domain.Team, error) {
	f.record("GetTeam %s", teamID)
	if f.getTeam == nil {
		return &domain.Team{ID: teamID, State: domain.TeamReady}, nil
	}
	return f.getTeam(teamID)
}

func (f *fakeGateway) ListJoinedTeams(context.Context) ([]domain.Team, error) {
	f.record("ListJoinedTeams")
	if f.joinedTeams == nil {
		return nil, nil
	}
	return f.joinedTeams()
}

func (f *fakeGateway) ListMemberOfGroups(context.Context) ([]domain.Group, error) {
	f.record("ListMemberOfGroups")
	if f.memberOf == nil {
		return nil, nil
	}
	return f.memberOf()
}

func (f *fakeGateway) ListGroups(_ context.Context, displayName string) ([]domain.Group, error) {
	f.record("ListGroups %q", displayName)
	if f.listGroups == nil {
		return nil, nil
	}
	return f.listGroups(displayName)
}

func (f *fakeGateway) GetGroup(_ context.Context, groupID string) (*domain.Group, error) {
	f.record("GetGroup %s", groupID)
	if f.getGroup == nil {
		return &domain.Group{ID: groupID}, nil
	}
	return f.getGroup(groupID)
}

func (f *fakeGateway) ListChannels(_ context.Context, teamID string) ([]domain.Channel, error) {
	f.record("ListChannels %s", teamID)
	if f.listChannels == nil {
		return nil, nil
	}
	return f.listChannels(teamID)
}

func (f *fakeGateway) CreateChannel(_ context.Context, teamID string, tmpl domain.ChannelTemplate) (*domain.Channel, error) {
	f.record("CreateChannel %s", tmpl.DisplayName)
	if f.createChannel == nil {
		return &domain.Channel{ID: "ch-" + tmpl.DisplayName, DisplayName: tmpl.DisplayName}, nil
	}
	return f.createChannel(tmpl)
}

func (f *fakeGateway) GetChannelFilesFolder(_ context.Context, _, channelID string) (*domain.FilesLocation, error) {
	f.record("GetChannelFilesFolder %s", channelID)
	if f.filesFolder == nil {
		return &domain.FilesLocation{
			WebURL:  "https://contoso.sharepoint.com/sites/T/Shared%20Documents/" + channelID,
			SiteID:  "site",
			DriveID: "drive",
		}, nil
	}
	return f.filesFolder(channelID)
}

func (f *fakeGateway) CreateFolder(_ context.Context, loc domain.FilesLocation, parent, name string) error {
	full := strings.Join(append(append([]string{loc.FolderName()}, domain.SplitFolderPath(parent)...), name), "/")
	f.record("CreateFolder %s", full)
	if f.createFolder == nil {
		return nil
	}
	return f.createFolder(full)
}

func (f *fakeGateway) AddMember(_ context.Context, _, userID string, role domain.Role) error {
	f.record("AddMember %s %s", userID, role)
	if f.addMember == nil {
		return nil
	}
	return f.addMember(userID, role)
}

func (f *fakeGateway) GetPhoto(_ context.Context, groupID string) (*domain.PhotoInfo, error) {
	f.record("GetPhoto %s", groupID)
	if f.getPhoto == nil {
		return &domain.PhotoInfo{ID: "1x1"}, nil
	}
	return f.getPhoto(groupID)
}

func (f *fakeGateway) UploadPhoto(_ context.Context, groupID string, data []byte, contentType string) error {
	f.record("UploadPhoto %s %s", groupID, contentType)
	if f.uploadPhoto == nil {
		return nil
	}
	return f.uploadPhoto(data, contentType)
}

func (f *fakeGateway) Me(context.Context) (*domain.User, error) {
	f.record("Me")
	if f.me == nil {
		return &domain.User{ID: "me-id", DisplayName: "Me", Mail: "me@contoso.com"}, nil
	}
	return f.me()
}

func (f *fakeGateway) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.record("FindUserByEmail %s", email)
	if f.findUserByMail == nil {
		return &domain.User{ID: "id-" + email, Mail: email}, nil
	}
	return f.findUserByMail(email)
}

// eventRecorder collects emitted events.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Emit(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *eventRecorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// testOptions returns defaults with sleeping disabled.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return opts
}

func errKind(kind domain.ErrorKind, msg string) error {
	return &domain.Error{Kind: kind, Message: msg}
}

func networkErr() error {
	return &domain.Error{Kind: domain.KindTransient, Network: true, Message: "connection reset"}
}
