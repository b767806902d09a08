package microsoft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

// Template and binding URLs used in team payloads. Graph requires absolute
// URLs in @odata.bind values regardless of the endpoint the request is sent to.
const (
	standardTemplateBind = "https://graph.microsoft.com/v1.0/teamsTemplates('standard')"
	userBindFormat       = "https://graph.microsoft.com/v1.0/users('%s')"
	conversationMember   = "#microsoft.graph.aadUserConversationMember"
	teamDescriptionFmt   = "Équipe créée automatiquement: %s"
)

// teamLocationPattern extracts the id from a "/teams('id')" location header.
var teamLocationPattern = regexp.MustCompile(`teams\('([^']+)'\)`)

type teamMemberPayload struct {
	ODataType string   `json:"@odata.type"`
	UserBind  string   `json:"user@odata.bind"`
	Roles     []string `json:"roles"`
}

type createTeamPayload struct {
	TemplateBind string              `json:"template@odata.bind"`
	DisplayName  string              `json:"displayName"`
	Description  string              `json:"description"`
	Members      []teamMemberPayload `json:"members"`
}

func memberPayload(userID string, role domain.Role) teamMemberPayload {
	return teamMemberPayload{
		ODataType: conversationMember,
		UserBind:  fmt.Sprintf(userBindFormat, userID),
		Roles:     []string{string(role)},
	}
}

// CreateTeam requests a new team from the standard template. Graph answers
// 202 Accepted and reports the id in the Content-Location (or Location) header.
func (c *Client) CreateTeam(ctx context.Context, name, ownerID string) (string, error) {
	payload := createTeamPayload{
		TemplateBind: standardTemplateBind,
		DisplayName:  name,
		Description:  fmt.Sprintf(teamDescriptionFmt, name),
		Members:      []teamMemberPayload{memberPayload(ownerID, domain.RoleOwner)},
	}

	var body struct {
		ID string `json:"id"`
	}
	resp, err := c.sendJSON(ctx, http.MethodPost, "/teams", payload, &body)
	if err != nil {
		return "", err
	}

	if body.ID != "" {
		return body.ID, nil
	}
	for _, h := range []string{"Content-Location", "Location"} {
		if m := teamLocationPattern.FindStringSubmatch(resp.Header.Get(h)); m != nil {
			return m[1], nil
		}
	}
	return "", domain.NewError(domain.KindUnknown, "team creation accepted without a team id")
}

// GetTeam reads a team.
func (c *Client) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	var team domain.Team
	if err := c.getJSON(ctx, "/teams/"+url.PathEscape(teamID), &team); err != nil {
		return nil, err
	}
	team.State = domain.TeamReady
	return &team, nil
}

// ListJoinedTeams returns the teams of the signed-in user.
func (c *Client) ListJoinedTeams(ctx context.Context) ([]domain.Team, error) {
	teams, err := listAll[domain.Team](ctx, c, "/me/joinedTeams?$select=id,displayName,description")
	if err != nil {
		return nil, fmt.Errorf("list joined teams: %w", err)
	}
	for i := range teams {
		teams[i].State = domain.TeamReady
	}
	return teams, nil
}

// AddMember adds a user to a team.
func (c *Client) AddMember(ctx context.Context, teamID, userID string, role domain.Role) error {
	if role == "" {
		role = domain.RoleMember
	}
	_, err := c.sendJSON(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/members",
		memberPayload(userID, role), nil)
	return err
}

// ListChannels returns the channels of a team.
func (c *Client) ListChannels(ctx context.Context, teamID string) ([]domain.Channel, error) {
	channels, err := listAll[domain.Channel](ctx, c, "/teams/"+url.PathEscape(teamID)+"/channels")
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

type createChannelPayload struct {
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	MembershipType string `json:"membershipType"`
}

// CreateChannel creates a standard channel.
func (c *Client) CreateChannel(ctx context.Context, teamID string, tmpl domain.ChannelTemplate) (*domain.Channel, error) {
	payload := createChannelPayload{
		DisplayName:    tmpl.DisplayName,
		Description:    tmpl.Description,
		MembershipType: "standard",
	}
	var ch domain.Channel
	if _, err := c.sendJSON(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/channels", payload, &ch); err != nil {
		return nil, err
	}
	if ch.DisplayName == "" {
		ch.DisplayName = tmpl.DisplayName
	}
	return &ch, nil
}

// GetChannelFilesFolder resolves the SharePoint location of a channel's files.
func (c *Client) GetChannelFilesFolder(ctx context.Context, teamID, channelID string) (*domain.FilesLocation, error) {
	var item struct {
		WebURL          string `json:"webUrl"`
		ParentReference struct {
			SiteID  string `json:"siteId"`
			DriveID string `json:"driveId"`
		} `json:"parentReference"`
	}
	path := "/teams/" + url.PathEscape(teamID) + "/channels/" + url.PathEscape(channelID) + "/filesFolder"
	if err := c.getJSON(ctx, path, &item); err != nil {
		return nil, err
	}
	return &domain.FilesLocation{
		WebURL:  item.WebURL,
		SiteID:  item.ParentReference.SiteID,
		DriveID: item.ParentReference.DriveID,
	}, nil
}

type createFolderPayload struct {
	Name             string         `json:"name"`
	Folder           map[string]any `json:"folder"`
	ConflictBehavior string         `json:"@microsoft.graph.conflictBehavior"`
}

// CreateFolder creates name under parent inside the channel folder. The
// conflict behaviour is "fail", so an existing folder yields KindConflict.
func (c *Client) CreateFolder(ctx context.Context, loc domain.FilesLocation, parent, name string) error {
	segments := append([]string{loc.FolderName()}, domain.SplitFolderPath(parent)...)
	path := fmt.Sprintf("/sites/%s/drives/%s/root:/%s:/children",
		url.PathEscape(loc.SiteID), url.PathEscape(loc.DriveID), escapeSegments(segments))

	payload := createFolderPayload{
		Name:             name,
		Folder:           map[string]any{},
		ConflictBehavior: "fail",
	}
	_, err := c.sendJSON(ctx, http.MethodPost, path, payload, nil)
	return err
}

func escapeSegments(segments []string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(s))
	}
	return strings.Join(escaped, "/")
}
