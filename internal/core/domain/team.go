package domain

import "strings"

// TeamState tracks whether a team is usable yet.
type TeamState string

const (
	// TeamCreating means creation was accepted but the team is not readable yet.
	TeamCreating TeamState = "creating"
	// TeamReady means the team can be read and extended.
	TeamReady TeamState = "ready"
)

// Team is a Microsoft Teams team. The identifier is the backing group id.
type Team struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	State       TeamState `json:"state,omitempty"`
}

// Group is a Microsoft 365 group as returned by the directory endpoints.
type Group struct {
	ID                          string   `json:"id"`
	DisplayName                 string   `json:"displayName"`
	ResourceProvisioningOptions []string `json:"resourceProvisioningOptions,omitempty"`
}

// IsTeam reports whether the group is backed by a team.
func (g Group) IsTeam() bool {
	for _, opt := range g.ResourceProvisioningOptions {
		if strings.EqualFold(opt, "Team") {
			return true
		}
	}
	return false
}

// Team returns the team view of a Teams-backed group.
func (g Group) Team() Team {
	return Team{ID: g.ID, DisplayName: g.DisplayName, State: TeamReady}
}

// Role is a team membership role.
type Role string

const (
	// RoleOwner is set once, at team creation.
	RoleOwner Role = "owner"
	// RoleMember is used for every roster addition.
	RoleMember Role = "member"
)

// Member is a directory user to add to a team.
// ID is the directory object id. Email is used to resolve ID when it is empty.
type Member struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName string `json:"displayName,omitempty"`
	Role        Role   `json:"role,omitempty"`
}

// Label returns the most readable identifier of the member.
func (m Member) Label() string {
	switch {
	case m.DisplayName != "":
		return m.DisplayName
	case m.Email != "":
		return m.Email
	default:
		return m.ID
	}
}

// User is a directory user profile.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
}

// Email returns the mail address, falling back to the user principal name.
func (u User) Email() string {
	if u.Mail != "" {
		return u.Mail
	}
	return u.UserPrincipalName
}
