package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomassicaud/teams-portal/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create teams-portal configuration",
	Long: `View or create teams-portal configuration.

Without arguments, displays the effective configuration. Settings come from
the config file, a .env file and ` + config.EnvPrefix + `_* environment variables,
in increasing order of precedence.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Long:  `Write a config file with every option set to its default, at ` + config.File() + ` unless a path is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := *currentConfig()
	if cfg.Azure.ClientSecret != "" {
		cfg.Azure.ClientSecret = "********"
	}
	if cfg.Server.RedisPassword != "" {
		cfg.Server.RedisPassword = "********"
	}
	data, err := config.Marshal(&cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.File()
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.WriteFile(path, config.Default(), configForce); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path := config.File()
	if configLoader != nil && configLoader.ConfigFileUsed() != "" {
		path = configLoader.ConfigFileUsed()
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
