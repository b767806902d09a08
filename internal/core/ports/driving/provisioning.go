package driving

import (
	"context"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

// ProvisioningService drives team provisioning on behalf of a signed-in user.
// Every method receives the user's delegated access token; nothing is cached
// between calls.
type ProvisioningService interface {
	// Provision creates the team (or finds it when the name is taken), waits for
	// it to become readable, then adds channels and members. Folders and the
	// team picture are provisioned when requested. Progress is reported to sink.
	// Partial failures are reported in the result; stage failures return an error.
	Provision(ctx context.Context, accessToken string, req domain.ProvisionRequest,
		sink driven.EventSink) (*domain.ProvisionResult, error)

	// Finalize completes an existing team: adds members and creates missing channels.
	// Returns a KindTeamNotFound error when no search stage finds the team.
	Finalize(ctx context.Context, accessToken string, req domain.FinalizeRequest,
		sink driven.EventSink) (*domain.ProvisionResult, error)

	// CreateFolders creates the catalog folder structure in every channel of a team.
	CreateFolders(ctx context.Context, accessToken, teamID string, sink driven.EventSink) (*domain.FolderReport, error)

	// UploadIcon validates, normalises and uploads a team picture.
	UploadIcon(ctx context.Context, accessToken, teamID string, icon domain.Icon) (*domain.IconResult, error)

	// CheckIconAccess probes whether the team and its photo are reachable.
	CheckIconAccess(ctx context.Context, accessToken, teamID string) (*domain.IconAccessReport, error)

	// WhoAmI returns the signed-in user, proving the token works.
	WhoAmI(ctx context.Context, accessToken string) (*domain.User, error)

	// LookupUser finds a directory user by mail or user principal name.
	LookupUser(ctx context.Context, accessToken, email string) (*domain.User, error)
}
