package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thomassicaud/teams-portal/internal/config"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driving"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

var (
	// Version is set by goreleaser ldflags.
	version = "dev"

	// Verbose enables debug logging.
	verbose bool

	// configFile overrides the config search path.
	configFile string

	// Services holds injected service implementations for CLI commands.
	provisioningService driving.ProvisioningService
	appConfig           *config.Config
	configLoader        *config.Loader

	// bootstrap builds services once flags are parsed.
	bootstrap func(configFile string) (*Services, error)
)

// Services holds configuration for CLI commands.
type Services struct {
	Provisioning driving.ProvisioningService
	Config       *config.Config
	// Loader is kept so serve can watch the config file.
	Loader *config.Loader
}

// SetServices injects service implementations for CLI commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	provisioningService = s.Provisioning
	appConfig = s.Config
	configLoader = s.Loader
}

// SetBootstrap registers the function that loads configuration and builds
// services after flag parsing, so --config is honoured.
func SetBootstrap(fn func(configFile string) (*Services, error)) {
	bootstrap = fn
}

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "teams-portal",
	Short: "Provision Microsoft Teams teams from a standard template",
	Long: `teams-portal creates (or finds) a Microsoft Teams team by name, waits until
it is usable, then adds the standard channels, the member roster, the
catalog folder structure and the team picture.

Every call runs with a delegated user token. Nothing is stored.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
}

// currentConfig returns the loaded configuration or the defaults.
func currentConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	return config.Default()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default "+config.File()+")")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "",
		"delegated Graph access token (or set "+config.EnvPrefix+"_ACCESS_TOKEN)")

	// Use PersistentPreRunE to build services and set verbose mode before any command executes
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if bootstrap != nil {
			s, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			SetServices(s)
		}
		if verbose {
			logger.SetVerbose(true)
		}
		return nil
	}
}
