package domain

import (
	"strings"
	"time"
)

// ProvisionRequest asks for a team to be created (or found) and populated.
type ProvisionRequest struct {
	TeamName string `json:"teamName" validate:"required,max=256"`
	// OwnerID is the directory id of the owner. When empty, OwnerEmail is
	// resolved, and failing that the signed-in user becomes owner.
	OwnerID       string   `json:"ownerId,omitempty"`
	OwnerEmail    string   `json:"ownerEmail,omitempty" validate:"omitempty,email"`
	Members       []Member `json:"members,omitempty" validate:"dive"`
	CreateFolders bool     `json:"createFolders,omitempty"`
	Icon          *Icon    `json:"-"`
}

// Normalise trims the team name and drops blank roster entries.
func (r *ProvisionRequest) Normalise() {
	r.TeamName = strings.TrimSpace(r.TeamName)
	r.OwnerID = strings.TrimSpace(r.OwnerID)
	r.OwnerEmail = strings.TrimSpace(r.OwnerEmail)
	members := r.Members[:0]
	for _, m := range r.Members {
		m.ID = strings.TrimSpace(m.ID)
		m.Email = strings.TrimSpace(m.Email)
		if m.ID == "" && m.Email == "" {
			continue
		}
		members = append(members, m)
	}
	r.Members = members
}

// FinalizeRequest completes a team that already exists: members and missing channels.
type FinalizeRequest struct {
	TeamName string   `json:"teamName" validate:"required,max=256"`
	Members  []Member `json:"members,omitempty"`
}

// ProvisionResult is the outcome of a full run.
type ProvisionResult struct {
	RunID       string         `json:"runId"`
	Team        Team           `json:"team"`
	Existing    bool           `json:"existing"`
	Channels    *ChannelReport `json:"channels,omitempty"`
	Members     *MemberReport  `json:"members,omitempty"`
	Folders     *FolderReport  `json:"folders,omitempty"`
	FolderError string         `json:"folderError,omitempty"`
	Icon        *IconResult    `json:"icon,omitempty"`
	IconError   string         `json:"iconError,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// ChannelsCreated returns the number of channels created in this run.
func (r *ProvisionResult) ChannelsCreated() int {
	if r.Channels == nil {
		return 0
	}
	return r.Channels.Created
}

// MembersAdded returns the number of members added in this run.
func (r *ProvisionResult) MembersAdded() int {
	if r.Members == nil {
		return 0
	}
	return r.Members.Added
}
