package driven

import (
	"context"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

// TeamsGateway is the typed view of the Microsoft Graph operations the
// provisioning flow consumes. Implementations classify every failure into a
// *domain.Error so callers can branch on domain.KindOf.
//
// A gateway is bound to one delegated access token and must not be shared
// between runs of different users.
type TeamsGateway interface {
	// CreateTeam requests a new team from the standard template with ownerID as
	// its single owner. It returns the new team id. Creation is asynchronous:
	// the team may not be readable for some time.
	CreateTeam(ctx context.Context, name, ownerID string) (string, error)

	// GetTeam reads a team. Returns a KindNotFound error while provisioning.
	GetTeam(ctx context.Context, teamID string) (*domain.Team, error)

	// ListJoinedTeams returns the teams the signed-in user belongs to.
	ListJoinedTeams(ctx context.Context) ([]domain.Team, error)

	// ListMemberOfGroups returns the groups the signed-in user is a member of.
	ListMemberOfGroups(ctx context.Context) ([]domain.Group, error)

	// ListGroups lists directory groups. A non-empty displayName applies a
	// server-side equality filter; an empty one lists every group.
	ListGroups(ctx context.Context, displayName string) ([]domain.Group, error)

	// GetGroup reads a group by id.
	GetGroup(ctx context.Context, groupID string) (*domain.Group, error)

	// ListChannels returns the channels of a team.
	ListChannels(ctx context.Context, teamID string) ([]domain.Channel, error)

	// CreateChannel creates a standard channel.
	CreateChannel(ctx context.Context, teamID string, tmpl domain.ChannelTemplate) (*domain.Channel, error)

	// GetChannelFilesFolder resolves where a channel stores its files.
	GetChannelFilesFolder(ctx context.Context, teamID, channelID string) (*domain.FilesLocation, error)

	// CreateFolder creates name under parent (a '/'-delimited path relative to
	// the channel folder, empty for the channel folder itself). Creation fails
	// with KindConflict when the folder exists.
	CreateFolder(ctx context.Context, loc domain.FilesLocation, parent, name string) error

	// AddMember adds a user to a team with the given role.
	AddMember(ctx context.Context, teamID, userID string, role domain.Role) error

	// GetPhoto reads the metadata of a group photo.
	GetPhoto(ctx context.Context, groupID string) (*domain.PhotoInfo, error)

	// UploadPhoto replaces a group photo.
	UploadPhoto(ctx context.Context, groupID string, data []byte, contentType string) error

	// Me returns the signed-in user.
	Me(ctx context.Context) (*domain.User, error)

	// FindUserByEmail looks a user up by mail or user principal name.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// GatewayFactory builds a gateway bound to a delegated access token.
type GatewayFactory interface {
	ForToken(accessToken string) TeamsGateway
}

// GatewayFactoryFunc adapts a function to GatewayFactory.
type GatewayFactoryFunc func(accessToken string) TeamsGateway

// ForToken calls f.
func (f GatewayFactoryFunc) ForToken(accessToken string) TeamsGateway {
	return f(accessToken)
}
