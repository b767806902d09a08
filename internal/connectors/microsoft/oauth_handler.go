package microsoft

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Microsoft identity platform constants.
const (
	defaultAuthorityHost = "https://login.microsoftonline.com"
	defaultTenant        = "common"
)

// DefaultScopes are the delegated scopes the provisioning flow needs.
// All scopes are requested upfront to avoid incremental consent prompts.
var DefaultScopes = []string{
	"openid",
	"offline_access", // Required for refresh tokens
	"User.Read",
	"User.ReadBasic.All",
	"Group.ReadWrite.All",
	"Group.Read.All",
	"Team.Create",
	"Team.ReadBasic.All",
	"Channel.Create",
	"TeamMember.ReadWrite.All",
	"Files.ReadWrite.All",
	"Sites.ReadWrite.All",
}

// OAuthConfig identifies the app registration used to obtain delegated tokens.
type OAuthConfig struct {
	ClientID string
	// ClientSecret is optional; public clients (device code, PKCE) leave it empty.
	ClientSecret string
	TenantID     string
	// AuthorityHost overrides the login host (used by tests and national clouds).
	AuthorityHost string
	Scopes        []string
}

// OAuthHandler implements OAuth operations for the Microsoft identity platform.
type OAuthHandler struct {
	config *oauth2.Config
}

// NewOAuthHandler creates a handler for the given app registration.
func NewOAuthHandler(cfg OAuthConfig) *OAuthHandler {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &OAuthHandler{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     Endpoint(cfg.AuthorityHost, cfg.TenantID),
			Scopes:       scopes,
		},
	}
}

// Endpoint returns the v2.0 endpoints of a tenant. An empty tenant uses "common".
func Endpoint(authorityHost, tenantID string) oauth2.Endpoint {
	host := strings.TrimRight(authorityHost, "/")
	if host == "" {
		host = defaultAuthorityHost
	}
	tenant := strings.TrimSpace(tenantID)
	if tenant == "" {
		tenant = defaultTenant
	}
	authority := host + "/" + tenant + "/oauth2/v2.0"
	return oauth2.Endpoint{
		AuthURL:       authority + "/authorize",
		TokenURL:      authority + "/token",
		DeviceAuthURL: authority + "/devicecode",
		AuthStyle:     oauth2.AuthStyleInParams,
	}
}

// Config exposes the underlying oauth2 configuration.
func (h *OAuthHandler) Config() *oauth2.Config {
	return h.config
}

// BuildAuthURL constructs the authorization URL for the PKCE code flow.
func (h *OAuthHandler) BuildAuthURL(redirectURI, state, verifier string) string {
	cfg := *h.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("response_mode", "query"),
	)
}

// ExchangeCode exchanges an authorization code for tokens.
func (h *OAuthHandler) ExchangeCode(ctx context.Context, code, redirectURI, verifier string) (*oauth2.Token, error) {
	cfg := *h.config
	cfg.RedirectURL = redirectURI
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// RefreshToken obtains a fresh access token. Microsoft may rotate the
// refresh token; the previous one is kept when it does not.
func (h *OAuthHandler) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := h.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// StartDeviceLogin begins the device authorization grant.
// The caller shows VerificationURI and UserCode to the user.
func (h *OAuthHandler) StartDeviceLogin(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	resp, err := h.config.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("start device login: %w", err)
	}
	return resp, nil
}

// CompleteDeviceLogin polls the token endpoint until the user approves the
// device login, it expires, or ctx is cancelled.
func (h *OAuthHandler) CompleteDeviceLogin(ctx context.Context, da *oauth2.DeviceAuthResponse) (*oauth2.Token, error) {
	tok, err := h.config.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("complete device login: %w", err)
	}
	return tok, nil
}

// SetupHint returns guidance for registering the app.
func (h *OAuthHandler) SetupHint() string {
	return "Register a public client at portal.azure.com > App registrations, " +
		"enable 'Allow public client flows' and grant the delegated Graph permissions"
}
