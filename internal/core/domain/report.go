package domain

import (
	"fmt"
	"strings"
)

// ChannelStatus is the outcome of provisioning one channel.
type ChannelStatus string

const (
	ChannelCreated  ChannelStatus = "created"
	ChannelExisting ChannelStatus = "existing"
	ChannelFailed   ChannelStatus = "failed"
)

// ChannelResult is the outcome for one catalog entry.
type ChannelResult struct {
	Name   string        `json:"name"`
	Status ChannelStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// ChannelReport summarises the channel stage.
type ChannelReport struct {
	Results  []ChannelResult `json:"results"`
	Created  int             `json:"created"`
	Existing int             `json:"existing"`
	Failed   int             `json:"failed"`
	// Available counts the implicit general channel plus created and existing ones.
	Available int `json:"available"`
}

// NewChannelReport returns an empty report that already counts the general channel.
func NewChannelReport() *ChannelReport {
	return &ChannelReport{Available: 1}
}

// Record appends a result and updates the counters.
func (r *ChannelReport) Record(res ChannelResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case ChannelCreated:
		r.Created++
		r.Available++
	case ChannelExisting:
		r.Existing++
		r.Available++
	case ChannelFailed:
		r.Failed++
	}
}

// MemberStatus is the outcome of adding one member.
type MemberStatus string

const (
	MemberAdded    MemberStatus = "added"
	MemberExisting MemberStatus = "existing"
	MemberFailed   MemberStatus = "failed"
)

// MemberResult is the outcome for one roster entry.
type MemberResult struct {
	Member Member       `json:"member"`
	Status MemberStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// MemberReport summarises a member batch.
type MemberReport struct {
	Results  []MemberResult `json:"results"`
	Added    int            `json:"added"`
	Existing int            `json:"existing"`
	Failed   int            `json:"failed"`
}

// Record appends a result and updates the counters.
func (r *MemberReport) Record(res MemberResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case MemberAdded:
		r.Added++
	case MemberExisting:
		r.Existing++
	case MemberFailed:
		r.Failed++
	}
}

// FolderOutcome is the outcome of the folder stage for one channel.
type FolderOutcome string

const (
	FolderSucceeded FolderOutcome = "succeeded"
	FolderSkipped   FolderOutcome = "skipped"
	FolderFailed    FolderOutcome = "failed"
)

// ChannelFolderResult is the folder outcome for one channel.
type ChannelFolderResult struct {
	ChannelName    string        `json:"channelName"`
	FoldersCreated int           `json:"foldersCreated"`
	TotalFolders   int           `json:"totalFolders"`
	Outcome        FolderOutcome `json:"outcome"`
	Error          string        `json:"error,omitempty"`
	FailedPaths    []string      `json:"failedPaths,omitempty"`
}

// FolderReport aggregates folder results across channels.
type FolderReport struct {
	Channels     []ChannelFolderResult `json:"channels"`
	TotalCreated int                   `json:"totalCreated"`
	TotalFolders int                   `json:"totalFolders"`
	Succeeded    int                   `json:"succeeded"`
	Skipped      int                   `json:"skipped"`
	Failed       int                   `json:"failed"`
}

// Record appends a channel result and updates the totals.
func (r *FolderReport) Record(res ChannelFolderResult) {
	r.Channels = append(r.Channels, res)
	r.TotalCreated += res.FoldersCreated
	r.TotalFolders += res.TotalFolders
	switch res.Outcome {
	case FolderSucceeded:
		r.Succeeded++
	case FolderSkipped:
		r.Skipped++
	case FolderFailed:
		r.Failed++
	}
}

// Summary renders a one-paragraph human-readable account of the stage.
func (r *FolderReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d folders created across %d channels", r.TotalCreated, r.TotalFolders, len(r.Channels))
	fmt.Fprintf(&b, " (%d succeeded, %d skipped, %d failed)", r.Succeeded, r.Skipped, r.Failed)
	for _, ch := range r.Channels {
		switch ch.Outcome {
		case FolderSkipped:
			fmt.Fprintf(&b, "; %s skipped: %s", ch.ChannelName, ch.Error)
		case FolderFailed:
			fmt.Fprintf(&b, "; %s failed: %s", ch.ChannelName, ch.Error)
		}
	}
	return b.String()
}

// Icon is an image to set as the team picture.
type Icon struct {
	Data        []byte
	ContentType string
	FileName    string
}

// IconResult describes a completed upload.
type IconResult struct {
	TeamID      string `json:"teamId"`
	ContentType string `json:"contentType"`
	Bytes       int    `json:"bytes"`
	Recoded     bool   `json:"recoded"`
}

// PhotoInfo is the metadata of a group photo.
type PhotoInfo struct {
	ID          string `json:"id"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"contentType,omitempty"`
}

// IconAccessReport is the result of probing whether a team picture can be set.
type IconAccessReport struct {
	TeamID      string     `json:"teamId"`
	TeamFound   bool       `json:"teamFound"`
	GroupFound  bool       `json:"groupFound"`
	Photo       *PhotoInfo `json:"photo,omitempty"`
	PhotoError  string     `json:"photoError,omitempty"`
	AccessError string     `json:"accessError,omitempty"`
}
