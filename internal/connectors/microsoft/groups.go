package microsoft

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

const groupSelect = "id,displayName,resourceProvisioningOptions"

// directoryObject is an entry of /me/memberOf, which mixes groups, roles and
// administrative units.
type directoryObject struct {
	ODataType string `json:"@odata.type"`
	domain.Group
}

// ListMemberOfGroups returns the groups the signed-in user belongs to.
func (c *Client) ListMemberOfGroups(ctx context.Context) ([]domain.Group, error) {
	objects, err := listAll[directoryObject](ctx, c, "/me/memberOf?$select="+groupSelect)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	groups := make([]domain.Group, 0, len(objects))
	for _, obj := range objects {
		if obj.ODataType != "" && obj.ODataType != "#microsoft.graph.group" {
			continue
		}
		groups = append(groups, obj.Group)
	}
	return groups, nil
}

// ListGroups lists directory groups, optionally filtered by exact display name.
func (c *Client) ListGroups(ctx context.Context, displayName string) ([]domain.Group, error) {
	query := url.Values{}
	query.Set("$select", groupSelect)
	if displayName != "" {
		query.Set("$filter", fmt.Sprintf("displayName eq '%s'", escapeODataString(displayName)))
	}
	groups, err := listAll[domain.Group](ctx, c, "/groups?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// GetGroup reads a group by id.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	var g domain.Group
	if err := c.getJSON(ctx, "/groups/"+url.PathEscape(groupID)+"?$select="+groupSelect, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetPhoto reads the metadata of the group photo.
func (c *Client) GetPhoto(ctx context.Context, groupID string) (*domain.PhotoInfo, error) {
	var photo struct {
		ID          string `json:"id"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ContentType string `json:"@odata.mediaContentType"`
	}
	if err := c.getJSON(ctx, "/groups/"+url.PathEscape(groupID)+"/photo", &photo); err != nil {
		return nil, err
	}
	return &domain.PhotoInfo{
		ID:          photo.ID,
		Width:       photo.Width,
		Height:      photo.Height,
		ContentType: photo.ContentType,
	}, nil
}

// UploadPhoto replaces the group photo with raw image bytes.
func (c *Client) UploadPhoto(ctx context.Context, groupID string, data []byte, contentType string) error {
	_, err := c.do(ctx, request{
		method:      http.MethodPut,
		path:        "/groups/" + url.PathEscape(groupID) + "/photo/$value",
		body:        bytes.NewReader(data),
		contentType: contentType,
	})
	return err
}

// escapeODataString doubles single quotes for use inside an OData string literal.
func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
