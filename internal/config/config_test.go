package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	assert.Empty(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.GraphTimeout())

	opts := cfg.ServiceOptions()
	assert.Equal(t, 3, opts.RetryAttempts)
	assert.Equal(t, 2*time.Second, opts.RetryBaseDelay)
	assert.Equal(t, 5*time.Second, opts.PollInterval)
	assert.Equal(t, 36, opts.MaxPolls)
	assert.Equal(t, 200*time.Millisecond, opts.FolderPause)
	assert.Equal(t, int64(4<<20), opts.IconMaxBytes)
	assert.True(t, opts.AllowPartialMatch)
}

func TestLoader_Load_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[graph]
timeout_seconds = 10

[provisioning]
max_polls = 12
allow_partial_match = false

[log]
level = "debug"
`), 0o600))

	t.Setenv("AZURE_CLIENT_ID", "app-id")
	t.Setenv("TEAMS_PORTAL_SERVER_ADDR", ":9090")

	cfg, err := NewLoader(path, filepath.Join(dir, "missing.env")).Load()

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Graph.TimeoutSeconds)
	assert.Equal(t, 12, cfg.Provisioning.MaxPolls)
	assert.False(t, cfg.Provisioning.AllowPartialMatch)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "app-id", cfg.Azure.ClientID)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Provisioning.RetryAttempts, "unset keys keep defaults")
}

func TestLoader_Load_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEAMS_PORTAL_AZURE_TENANT_ID=contoso\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEAMS_PORTAL_AZURE_TENANT_ID") })

	cfg, err := NewLoader(filepath.Join(dir, "none.toml"), envFile).Load()

	require.NoError(t, err)
	assert.Equal(t, "contoso", cfg.Azure.TenantID)
}

func TestLoader_Load_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[provisioning]
retry_attempts = 0

[log]
level = "loud"
`), 0o600))

	_, err := NewLoader(path, filepath.Join(dir, ".env")).Load()

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "provisioning.retry_attempts")
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "relative graph url", mutate: func(c *Config) { c.Graph.BaseURL = "/v1.0" }, wantField: "graph.base_url"},
		{name: "zero timeout", mutate: func(c *Config) { c.Graph.TimeoutSeconds = 0 }, wantField: "graph.timeout_seconds"},
		{name: "zero burst", mutate: func(c *Config) { c.Graph.Burst = 0 }, wantField: "graph.burst"},
		{name: "negative pause", mutate: func(c *Config) { c.Provisioning.FolderPauseMs = -1 }, wantField: "provisioning.folder_pause_ms"},
		{name: "zero polls", mutate: func(c *Config) { c.Provisioning.MaxPolls = 0 }, wantField: "provisioning.max_polls"},
		{name: "tiny icon", mutate: func(c *Config) { c.Icon.Size = 10 }, wantField: "icon.size"},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantField: "server.addr"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantField: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()

			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}

func TestConfig_RequireAzure(t *testing.T) {
	cfg := Default()
	err := cfg.RequireAzure()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "azure.client_id")

	cfg.Azure.ClientID = "app"
	assert.NoError(t, cfg.RequireAzure())
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Azure.ClientID = "app-id"

	require.NoError(t, WriteFile(path, cfg, false))
	assert.Error(t, WriteFile(path, cfg, false), "existing file is kept")
	require.NoError(t, WriteFile(path, cfg, true))

	loaded, err := NewLoader(path, filepath.Join(t.TempDir(), ".env")).Load()
	require.NoError(t, err)
	assert.Equal(t, "app-id", loaded.Azure.ClientID)
	assert.Equal(t, cfg.Provisioning, loaded.Provisioning)
}

func TestDir_RespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	assert.Equal(t, "/tmp/xdg/teams-portal", Dir())
	assert.Equal(t, "/tmp/xdg/teams-portal/config.toml", File())
}
