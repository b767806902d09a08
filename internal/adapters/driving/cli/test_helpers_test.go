package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

// mockProvisioningService implements driving.ProvisioningService for testing.
type mockProvisioningService struct {
	ProvisionFunc func(ctx context.Context, token string, req domain.ProvisionRequest, sink driven.EventSink) (*domain.ProvisionResult, error)
	FinalizeFunc  func(ctx context.Context, token string, req domain.FinalizeRequest, sink driven.EventSink) (*domain.ProvisionResult, error)
	FoldersErr    error
	IconErr       error
	WhoAmIErr     error

	provisionReq *domain.ProvisionRequest
	finalizeReq  *domain.FinalizeRequest
	token        string
	iconTeam     string
	icon         domain.Icon
}

func (m *mockProvisioningService) Provision(
	ctx context.Context, token string, req domain.ProvisionRequest, sink driven.EventSink,
) (*domain.ProvisionResult, error) {
	m.token = token
	m.provisionReq = &req
	if m.ProvisionFunc != nil {
		return m.ProvisionFunc(ctx, token, req, sink)
	}
	sink.Emit(domain.NewEvent(domain.EventTeamCreated, "Team created"))
	sink.Emit(domain.NewEvent(domain.EventComplete, "Provisioning complete"))
	return &domain.ProvisionResult{
		Team:     domain.Team{ID: "team-1", DisplayName: req.TeamName},
		Channels: &domain.ChannelReport{Created: 4, Available: 5},
		Members:  &domain.MemberReport{Added: len(req.Members)},
	}, nil
}

func (m *mockProvisioningService) Finalize(
	ctx context.Context, token string, req domain.FinalizeRequest, sink driven.EventSink,
) (*domain.ProvisionResult, error) {
	m.token = token
	m.finalizeReq = &req
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, token, req, sink)
	}
	sink.Emit(domain.NewEvent(domain.EventTeamFound, "Team found"))
	return &domain.ProvisionResult{
		Team:     domain.Team{ID: "team-1", DisplayName: req.TeamName},
		Existing: true,
	}, nil
}

func (m *mockProvisioningService) CreateFolders(
	_ context.Context, token, teamID string, sink driven.EventSink,
) (*domain.FolderReport, error) {
	m.token = token
	if m.FoldersErr != nil {
		return nil, m.FoldersErr
	}
	sink.Emit(domain.NewEvent(domain.EventFolderCreated, "Folders created in General"))
	return &domain.FolderReport{TotalCreated: 7, TotalFolders: 7, Succeeded: 1}, nil
}

func (m *mockProvisioningService) UploadIcon(
	_ context.Context, token, teamID string, icon domain.Icon,
) (*domain.IconResult, error) {
	m.token = token
	m.iconTeam = teamID
	m.icon = icon
	if m.IconErr != nil {
		return nil, m.IconErr
	}
	return &domain.IconResult{TeamID: teamID, ContentType: "image/png", Bytes: len(icon.Data)}, nil
}

func (m *mockProvisioningService) CheckIconAccess(
	_ context.Context, token, teamID string,
) (*domain.IconAccessReport, error) {
	m.token = token
	return &domain.IconAccessReport{TeamID: teamID, TeamFound: true, GroupFound: true}, nil
}

func (m *mockProvisioningService) WhoAmI(_ context.Context, token string) (*domain.User, error) {
	m.token = token
	if m.WhoAmIErr != nil {
		return nil, m.WhoAmIErr
	}
	return &domain.User{ID: "me-1", DisplayName: "Ada Lovelace", Mail: "ada@contoso.com"}, nil
}

func (m *mockProvisioningService) LookupUser(_ context.Context, token, email string) (*domain.User, error) {
	m.token = token
	return &domain.User{ID: "user-1", DisplayName: "Grace Hopper", Mail: email}, nil
}

// resetFlags clears flag variables left over from a previous execution.
func resetFlags() {
	verbose = false
	configFile = ""
	tokenFlag = ""
	provisionOwner = ""
	provisionMembers = nil
	provisionFolders = false
	provisionIcon = ""
	provisionFinalize = false
	provisionTUI = false
	outputJSON = false
	iconCheck = false
	configForce = false
	serveAddr = ""
}

// executeCommand runs the root command with args against svc and returns
// the combined output.
func executeCommand(t *testing.T, svc *mockProvisioningService, args ...string) (string, error) {
	t.Helper()

	oldService, oldConfig, oldLoader, oldBootstrap := provisioningService, appConfig, configLoader, bootstrap
	t.Cleanup(func() {
		provisioningService, appConfig, configLoader, bootstrap = oldService, oldConfig, oldLoader, oldBootstrap
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	resetFlags()
	bootstrap = nil
	provisioningService = nil
	if svc != nil {
		provisioningService = svc
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// stubTerminal replaces the terminal hooks for one test.
func stubTerminal(t *testing.T, terminal bool, password string, err error) {
	t.Helper()
	oldFd, oldIsTerminal, oldRead := stdinFd, isTerminal, readPassword
	t.Cleanup(func() {
		stdinFd, isTerminal, readPassword = oldFd, oldIsTerminal, oldRead
	})
	stdinFd = func() int { return 0 }
	isTerminal = func(int) bool { return terminal }
	readPassword = func(int) ([]byte, error) { return []byte(password), err }
}
