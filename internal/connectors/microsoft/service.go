package microsoft

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

const userSelect = "id,displayName,mail,userPrincipalName"

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.getJSON(ctx, "/me?$select="+userSelect, &u); err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	return &u, nil
}

// FindUserByEmail looks a user up by mail or user principal name.
// Returns a KindNotFound error when nobody matches.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "email is required", Err: domain.ErrInvalidInput}
	}

	escaped := escapeODataString(email)
	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("mail eq '%s' or userPrincipalName eq '%s'", escaped, escaped))
	query.Set("$select", userSelect)

	var page listPage[domain.User]
	if err := c.getJSON(ctx, "/users?"+query.Encode(), &page); err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}
	if len(page.Value) == 0 {
		return nil, &domain.Error{
			Kind:    domain.KindNotFound,
			Message: fmt.Sprintf("no user with mail or principal name %s", email),
			Err:     ErrNotFound,
		}
	}
	return &page.Value[0], nil
}
