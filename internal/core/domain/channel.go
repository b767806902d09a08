package domain

import (
	"net/url"
	"path"
	"strings"
)

// GeneralChannelName is the channel Teams creates implicitly with every team.
const GeneralChannelName = "Général"

// Channel is a channel that exists in a team.
type Channel struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

// ChannelTemplate is a catalog entry describing a channel to provision.
type ChannelTemplate struct {
	DisplayName string
	Description string
}

// DefaultChannels is the fixed channel catalog. The first entry is the
// implicit general channel and is never created explicitly.
var DefaultChannels = []ChannelTemplate{
	{DisplayName: GeneralChannelName, Description: "Canal général pour les discussions"},
	{DisplayName: "1-ADMINISTRATIF", Description: "Canal pour les sujets administratifs"},
	{DisplayName: "2-OPÉRATIONNEL", Description: "Canal pour les activités opérationnelles"},
	{DisplayName: "3-INFORMATIQUE", Description: "Canal pour les sujets informatiques et techniques"},
	{DisplayName: "4-DOSSIERS_DE_SUBVENTIONS", Description: "Canal pour la gestion des dossiers de subventions"},
}

// FolderCatalog maps a channel display name to the folder paths created in its
// files location. Paths are '/'-delimited and listed parent before child.
var FolderCatalog = map[string][]string{
	GeneralChannelName: {"Administration", "Communication", "Archive"},
	"General":          {"Administration", "Communication", "Archive"},
	"1-ADMINISTRATIF": {
		"1-Contrats/1-Lot_1",
		"1-Contrats/2-Lot_2",
		"1-Contrats/3-Lot_3",
		"2-Accord de prise en charge",
		"3-Facturation",
	},
	"2-OPÉRATIONNEL": {
		"1-Lot_1/Cadrage Lancement",
		"1-Lot_1/Analyse des besoins",
		"1-Lot_1/Solutions",
		"2-Lot_2",
		"3-Lot_3",
	},
	"3-INFORMATIQUE": {
		"1-Lot_1/Audit",
		"1-Lot_1/Restitutions",
	},
	"4-DOSSIERS_DE_SUBVENTIONS": {},
}

// FoldersFor returns the folder paths for a channel. Lookup is exact first,
// then case-insensitive. Unknown channels have no folders.
func FoldersFor(channelName string) []string {
	if folders, ok := FolderCatalog[channelName]; ok {
		return folders
	}
	for name, folders := range FolderCatalog {
		if strings.EqualFold(name, channelName) {
			return folders
		}
	}
	return nil
}

// SplitFolderPath splits a folder path into non-empty segments.
func SplitFolderPath(p string) []string {
	parts := strings.Split(p, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// FilesLocation is where a channel stores its files in SharePoint.
type FilesLocation struct {
	WebURL  string `json:"webUrl"`
	SiteID  string `json:"siteId"`
	DriveID string `json:"driveId"`
}

// FolderName returns the channel's root folder name: the last path segment of
// the web URL, unescaped.
func (l FilesLocation) FolderName() string {
	raw := l.WebURL
	if u, err := url.Parse(l.WebURL); err == nil {
		raw = u.EscapedPath()
	}
	last := path.Base(strings.TrimRight(raw, "/"))
	if last == "." || last == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(last); err == nil {
		return unescaped
	}
	return last
}
