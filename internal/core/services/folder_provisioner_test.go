package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

func teamChannels() ([]domain.Channel, error) {
	return []domain.Channel{
		{ID: "gen", DisplayName: "Général"},
		{ID: "adm", DisplayName: "1-ADMINISTRATIF"},
		{ID: "sub", DisplayName: "4-DOSSIERS_DE_SUBVENTIONS"},
	}, nil
}

func TestFolderProvisioner_Create_AllSucceed(t *testing.T) {
	gw := &fakeGateway{listChannels: func(string) ([]domain.Channel, error) { return teamChannels() }}
	rec := &eventRecorder{}

	report, err := NewFolderProvisioner(gw, testOptions()).Create(context.Background(), "team", rec)

	require.NoError(t, err)
	require.Len(t, report.Channels, 3)
	assert.Equal(t, 8, report.TotalFolders)
	assert.Equal(t, 8, report.TotalCreated)
	assert.Equal(t, 3, report.Succeeded)

	sub := report.Channels[2]
	assert.Equal(t, 0, sub.FoldersCreated)
	assert.Equal(t, 0, sub.TotalFolders)
	assert.Equal(t, domain.FolderSucceeded, sub.Outcome)
	assert.Empty(t, sub.Error)
	assert.NotContains(t, gw.callsWithPrefix("GetChannelFilesFolder"), "GetChannelFilesFolder sub")

	assert.Equal(t, []string{
		"CreateFolder gen/Administration",
		"CreateFolder gen/Communication",
		"CreateFolder gen/Archive",
		"CreateFolder adm/1-Contrats",
		"CreateFolder adm/1-Contrats/1-Lot_1",
		"CreateFolder adm/1-Contrats",
		"CreateFolder adm/1-Contrats/2-Lot_2",
		"CreateFolder adm/1-Contrats",
		"CreateFolder adm/1-Contrats/3-Lot_3",
		"CreateFolder adm/2-Accord de prise en charge",
		"CreateFolder adm/3-Facturation",
	}, gw.callsWithPrefix("CreateFolder"), "parents are created before children")
	assert.Len(t, rec.ofType(domain.EventFolderCreated), 8)
}

func TestFolderProvisioner_Create_ExistingSegmentsAreSatisfied(t *testing.T) {
	gw := &fakeGateway{
		listChannels: func(string) ([]domain.Channel, error) { return teamChannels() },
		createFolder: func(string) error { return errKind(domain.KindConflict, "nameAlreadyExists") },
	}

	report, err := NewFolderProvisioner(gw, testOptions()).Create(context.Background(), "team", nil)

	require.NoError(t, err)
	assert.Equal(t, 8, report.TotalCreated)
	assert.Equal(t, 0, report.Failed)
}

func TestFolderProvisioner_Create_FailedParentSkipsChildrenOnly(t *testing.T) {
	gw := &fakeGateway{
		listChannels: func(string) ([]domain.Channel, error) { return teamChannels() },
		createFolder: func(path string) error {
			if path == "adm/1-Contrats" {
				return errKind(domain.KindPermissionDenied, "access denied")
			}
			return nil
		},
	}
	rec := &eventRecorder{}

	report, err := NewFolderProvisioner(gw, testOptions()).Create(context.Background(), "team", rec)

	require.NoError(t, err)
	adm := report.Channels[1]
	assert.Equal(t, domain.FolderFailed, adm.Outcome)
	assert.Equal(t, 2, adm.FoldersCreated)
	assert.Equal(t, 5, adm.TotalFolders)
	assert.Equal(t, []string{"1-Contrats/1-Lot_1", "1-Contrats/2-Lot_2", "1-Contrats/3-Lot_3"}, adm.FailedPaths)
	assert.Contains(t, adm.Error, "access denied")

	for _, c := range gw.callsWithPrefix("CreateFolder adm/1-Contrats/") {
		t.Errorf("child created after parent failure: %s", c)
	}
	assert.Contains(t, gw.calls, "CreateFolder adm/3-Facturation")
	assert.Equal(t, domain.FolderSucceeded, report.Channels[0].Outcome, "other channels proceed")
	assert.Len(t, rec.ofType(domain.EventFolderError), 3)
	assert.Contains(t, report.Summary(), "1-ADMINISTRATIF failed")
}

func TestFolderProvisioner_Create_LicenseRestrictedChannelSkipped(t *testing.T) {
	gw := &fakeGateway{
		listChannels: func(string) ([]domain.Channel, error) { return teamChannels() },
		filesFolder: func(channelID string) (*domain.FilesLocation, error) {
			if channelID == "gen" {
				return nil, errKind(domain.KindLicenseRestricted, "Failed to get license information for the user")
			}
			return &domain.FilesLocation{WebURL: "https://contoso.sharepoint.com/sites/T/Shared%20Documents/1-ADMINISTRATIF"}, nil
		},
	}

	report, err := NewFolderProvisioner(gw, testOptions()).Create(context.Background(), "team", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.FolderSkipped, report.Channels[0].Outcome)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 5, report.Channels[1].FoldersCreated)
	assert.Empty(t, gw.callsWithPrefix("CreateFolder gen"))
	assert.Contains(t, gw.calls, "CreateFolder 1-ADMINISTRATIF/3-Facturation")
	assert.Contains(t, report.Summary(), "Général skipped")
}

func TestFolderProvisioner_Create_ListChannelsFails(t *testing.T) {
	gw := &fakeGateway{listChannels: func(string) ([]domain.Channel, error) {
		return nil, errKind(domain.KindNotFound, "no team")
	}}

	_, err := NewFolderProvisioner(gw, testOptions()).Create(context.Background(), "team", nil)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestFolderProvisioner_Create_PausesAfterEachFolderCall(t *testing.T) {
	gw := &fakeGateway{listChannels: func(string) ([]domain.Channel, error) {
		return []domain.Channel{{ID: "gen", DisplayName: "Général"}}, nil
	}}
	sleeper := &recordingSleeper{}
	opts := testOptions()
	opts.Sleep = sleeper.Sleep

	_, err := NewFolderProvisioner(gw, opts).Create(context.Background(), "team", nil)

	require.NoError(t, err)
	assert.Len(t, sleeper.delays, 3)
	assert.Equal(t, opts.FolderPause, sleeper.delays[0])
}
