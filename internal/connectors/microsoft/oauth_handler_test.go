package microsoft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewOAuthHandler_DefaultScopes(t *testing.T) {
	handler := NewOAuthHandler(OAuthConfig{ClientID: "client"})

	require.NotNil(t, handler)
	assert.Equal(t, DefaultScopes, handler.Config().Scopes)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		tenant   string
		wantAuth string
	}{
		{
			name:     "defaults to common tenant",
			wantAuth: "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		},
		{
			name:     "specific tenant",
			tenant:   "contoso.onmicrosoft.com",
			wantAuth: "https://login.microsoftonline.com/contoso.onmicrosoft.com/oauth2/v2.0/authorize",
		},
		{
			name:     "custom host",
			host:     "https://login.example.test/",
			tenant:   "t1",
			wantAuth: "https://login.example.test/t1/oauth2/v2.0/authorize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := Endpoint(tt.host, tt.tenant)
			assert.Equal(t, tt.wantAuth, ep.AuthURL)
			assert.Contains(t, ep.TokenURL, "/oauth2/v2.0/token")
			assert.Contains(t, ep.DeviceAuthURL, "/oauth2/v2.0/devicecode")
		})
	}
}

func TestOAuthHandler_BuildAuthURL(t *testing.T) {
	handler := NewOAuthHandler(OAuthConfig{ClientID: "test-client-id", TenantID: "tenant"})

	raw := handler.BuildAuthURL("http://localhost:8080/callback", "test-state", oauth2.GenerateVerifier())

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/tenant/oauth2/v2.0/authorize", u.Path)
	assert.Equal(t, "test-client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "test-state", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "query", q.Get("response_mode"))
	assert.Contains(t, q.Get("scope"), "Team.Create")
}

func TestOAuthHandler_DeviceLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/tenant/oauth2/v2.0/devicecode":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client", r.PostForm.Get("client_id"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"device_code":      "dev-123",
				"user_code":        "ABCD-EFGH",
				"verification_uri": "https://microsoft.com/devicelogin",
				"expires_in":       900,
				"interval":         1,
			})
		case "/tenant/oauth2/v2.0/token":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "dev-123", r.PostForm.Get("device_code"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access",
				"refresh_token": "refresh",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	handler := NewOAuthHandler(OAuthConfig{ClientID: "client", TenantID: "tenant", AuthorityHost: server.URL})
	ctx := context.Background()

	da, err := handler.StartDeviceLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABCD-EFGH", da.UserCode)

	tok, err := handler.CompleteDeviceLogin(ctx, da)
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
}

func TestOAuthHandler_RefreshToken_KeepsPreviousRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	handler := NewOAuthHandler(OAuthConfig{ClientID: "client", AuthorityHost: server.URL})

	tok, err := handler.RefreshToken(context.Background(), "old-refresh")

	require.NoError(t, err)
	assert.Equal(t, "new-access", tok.AccessToken)
	assert.Equal(t, "old-refresh", tok.RefreshToken)
}

func TestOAuthHandler_SetupHint(t *testing.T) {
	assert.NotEmpty(t, NewOAuthHandler(OAuthConfig{}).SetupHint())
}
