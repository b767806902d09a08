package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: KindUnknown},
		{name: "classified", err: &Error{Kind: KindConflict}, want: KindConflict},
		{name: "wrapped", err: fmt.Errorf("create: %w", &Error{Kind: KindTransient}), want: KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsKind_NilIsNeverAKind(t *testing.T) {
	assert.False(t, IsKind(nil, KindUnknown))
	assert.True(t, IsKind(errors.New("x"), KindUnknown))
}

func TestError_RetryRecommended(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{KindTransient, true},
		{KindProvisioningTimeout, true},
		{KindTeamNotFound, true},
		{KindConflict, false},
		{KindPermissionDenied, false},
		{KindPayloadTooLarge, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, (&Error{Kind: tt.kind}).RetryRecommended())
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &Error{Kind: KindTransient, Err: inner, Network: true}

	assert.Equal(t, "transient: connection reset", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsNetwork(fmt.Errorf("wrap: %w", err)))

	withStatus := &Error{Kind: KindNotFound, StatusCode: 404, Message: "team missing"}
	assert.Equal(t, "not_found (status 404): team missing", withStatus.Error())
	assert.False(t, IsNetwork(withStatus))
}

func TestGroup_IsTeam(t *testing.T) {
	assert.True(t, Group{ResourceProvisioningOptions: []string{"Team"}}.IsTeam())
	assert.True(t, Group{ResourceProvisioningOptions: []string{"other", "team"}}.IsTeam())
	assert.False(t, Group{}.IsTeam())
}

func TestMember_Label(t *testing.T) {
	assert.Equal(t, "Ada", Member{ID: "1", Email: "a@x", DisplayName: "Ada"}.Label())
	assert.Equal(t, "a@x", Member{ID: "1", Email: "a@x"}.Label())
	assert.Equal(t, "1", Member{ID: "1"}.Label())
}

func TestUser_Email(t *testing.T) {
	assert.Equal(t, "a@x.com", User{Mail: "a@x.com", UserPrincipalName: "a@tenant"}.Email())
	assert.Equal(t, "a@tenant", User{UserPrincipalName: "a@tenant"}.Email())
}

func TestDefaultChannels_Catalog(t *testing.T) {
	require.Len(t, DefaultChannels, 5)
	assert.Equal(t, GeneralChannelName, DefaultChannels[0].DisplayName)
	for _, ch := range DefaultChannels {
		_, ok := FolderCatalog[ch.DisplayName]
		assert.True(t, ok, "catalog entry for %s", ch.DisplayName)
	}
	assert.Empty(t, FolderCatalog["4-DOSSIERS_DE_SUBVENTIONS"])
}

func TestFoldersFor(t *testing.T) {
	assert.Equal(t, []string{"Administration", "Communication", "Archive"}, FoldersFor("General"))
	assert.Len(t, FoldersFor("1-administratif"), 5)
	assert.Nil(t, FoldersFor("Random"))
}

func TestSplitFolderPath(t *testing.T) {
	assert.Equal(t, []string{"1-Lot_1", "Cadrage Lancement"}, SplitFolderPath("1-Lot_1/Cadrage Lancement"))
	assert.Equal(t, []string{"a", "b"}, SplitFolderPath("/a//b/"))
	assert.Empty(t, SplitFolderPath(""))
}

func TestFilesLocation_FolderName(t *testing.T) {
	tests := []struct {
		name   string
		webURL string
		want   string
	}{
		{
			name:   "plain",
			webURL: "https://contoso.sharepoint.com/sites/Team/Shared%20Documents/1-ADMINISTRATIF",
			want:   "1-ADMINISTRATIF",
		},
		{
			name:   "escaped accents",
			webURL: "https://contoso.sharepoint.com/sites/Team/Shared%20Documents/G%C3%A9n%C3%A9ral",
			want:   "Général",
		},
		{
			name:   "trailing slash",
			webURL: "https://contoso.sharepoint.com/sites/Team/Shared%20Documents/2-OP%C3%89RATIONNEL/",
			want:   "2-OPÉRATIONNEL",
		},
		{
			name:   "empty",
			webURL: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilesLocation{WebURL: tt.webURL}.FolderName())
		})
	}
}

func TestChannelReport_Record(t *testing.T) {
	r := NewChannelReport()
	r.Record(ChannelResult{Name: "a", Status: ChannelCreated})
	r.Record(ChannelResult{Name: "b", Status: ChannelExisting})
	r.Record(ChannelResult{Name: "c", Status: ChannelFailed, Error: "x"})

	assert.Equal(t, 1, r.Created)
	assert.Equal(t, 1, r.Existing)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 3, r.Available)
	assert.Len(t, r.Results, 3)
}

func TestFolderReport_Summary(t *testing.T) {
	r := &FolderReport{}
	r.Record(ChannelFolderResult{ChannelName: "Général", FoldersCreated: 3, TotalFolders: 3, Outcome: FolderSucceeded})
	r.Record(ChannelFolderResult{ChannelName: "1-ADMINISTRATIF", TotalFolders: 5, Outcome: FolderSkipped, Error: "license"})
	r.Record(ChannelFolderResult{ChannelName: "3-INFORMATIQUE", FoldersCreated: 1, TotalFolders: 2, Outcome: FolderFailed, Error: "denied"})

	assert.Equal(t, 4, r.TotalCreated)
	assert.Equal(t, 10, r.TotalFolders)
	summary := r.Summary()
	assert.Contains(t, summary, "4/10 folders created across 3 channels")
	assert.Contains(t, summary, "1 succeeded, 1 skipped, 1 failed")
	assert.Contains(t, summary, "1-ADMINISTRATIF skipped: license")
	assert.Contains(t, summary, "3-INFORMATIQUE failed: denied")
}

func TestProvisionRequest_Normalise(t *testing.T) {
	req := ProvisionRequest{
		TeamName: "  Projet X ",
		Members:  []Member{{ID: " 1 "}, {}, {Email: "b@x.com"}},
	}
	req.Normalise()

	assert.Equal(t, "Projet X", req.TeamName)
	require.Len(t, req.Members, 2)
	assert.Equal(t, "1", req.Members[0].ID)
}

func TestErrorEvent(t *testing.T) {
	err := &Error{Kind: KindTeamNotFound, Message: "missing", RetryAfter: 2 * time.Minute}
	ev := ErrorEvent("lookup failed", err)

	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "lookup failed", ev.Data.Message)
	assert.True(t, ev.Data.RetryRecommended)
	assert.Equal(t, 120, ev.Data.WaitSeconds)
	assert.Equal(t, "team_not_found", ev.Data.ErrorKind)
}
