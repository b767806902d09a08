package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/thomassicaud/teams-portal/internal/connectors/microsoft"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a device code and print a delegated access token",
	Long: `Sign in to Microsoft Entra ID using the device authorization grant.

Open the printed URL, enter the code and approve the requested Graph
permissions. The access token is printed on stdout so it can be exported:

  export ` + TokenEnv + `=$(teams-portal login)

The token is not stored.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

// deviceLogin is the subset of microsoft.OAuthHandler used by login.
type deviceLogin interface {
	StartDeviceLogin(ctx context.Context) (*oauth2.DeviceAuthResponse, error)
	CompleteDeviceLogin(ctx context.Context, da *oauth2.DeviceAuthResponse) (*oauth2.Token, error)
}

// newDeviceLogin builds the login flow from configuration; replaced in tests.
var newDeviceLogin = func() (deviceLogin, string, error) {
	cfg := currentConfig()
	if err := cfg.RequireAzure(); err != nil {
		return nil, "", err
	}
	h := microsoft.NewOAuthHandler(microsoft.OAuthConfig{
		ClientID:      cfg.Azure.ClientID,
		ClientSecret:  cfg.Azure.ClientSecret,
		TenantID:      cfg.Azure.TenantID,
		AuthorityHost: cfg.Azure.AuthorityHost,
		Scopes:        cfg.Azure.Scopes,
	})
	return h, h.SetupHint(), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	flow, hint, err := newDeviceLogin()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	da, err := flow.StartDeviceLogin(ctx)
	if err != nil {
		if hint != "" {
			cmd.PrintErrln(warningStyle.Render(hint))
		}
		return err
	}
	if da.VerificationURIComplete != "" {
		cmd.PrintErrf("Open %s to sign in.\n", da.VerificationURIComplete)
	} else {
		cmd.PrintErrf("Open %s and enter the code %s\n", da.VerificationURI, headerStyle.Render(da.UserCode))
	}
	cmd.PrintErrln(mutedStyle.Render("Waiting for approval..."))

	tok, err := flow.CompleteDeviceLogin(ctx, da)
	if err != nil {
		return err
	}
	if tok == nil || tok.AccessToken == "" {
		return errors.New("login returned an empty token")
	}
	cmd.PrintErrln(successStyle.Render("✓ Signed in"))
	fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
	return nil
}
