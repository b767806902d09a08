package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thomassicaud/teams-portal/internal/config"
)

// TokenEnv holds a delegated access token for non-interactive use.
const TokenEnv = config.EnvPrefix + "_ACCESS_TOKEN"

var (
	tokenFlag string

	// Terminal hooks, replaced in tests.
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// errNoToken tells the user every way to provide a token.
var errNoToken = errors.New("no access token: pass --token, set " + TokenEnv + " or run 'teams-portal login'")

// resolveToken returns the token from --token, the environment, or a
// no-echo prompt when stdin is a terminal.
func resolveToken(cmd *cobra.Command) (string, error) {
	if t := strings.TrimSpace(tokenFlag); t != "" {
		return t, nil
	}
	if t := strings.TrimSpace(os.Getenv(TokenEnv)); t != "" {
		return t, nil
	}
	fd := stdinFd()
	if !isTerminal(fd) {
		return "", errNoToken
	}
	return promptToken(cmd.ErrOrStderr(), fd)
}

func promptToken(w io.Writer, fd int) (string, error) {
	fmt.Fprint(w, "Access token: ")
	b, err := readPassword(fd)
	fmt.Fprint(w, "\n")
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	t := strings.TrimSpace(string(b))
	if t == "" {
		return "", errNoToken
	}
	return t, nil
}
