package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thomassicaud/teams-portal/internal/adapters/driving/tui"
	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

var provisionCmd = &cobra.Command{
	Use:   "provision <team-name>",
	Short: "Create or complete a team",
	Long: `Create a team with the standard channels and add the roster.

When a team with the same name already exists it is reused: its members are
added and nothing else is recreated. With --finalize the team must already
exist; missing channels are created and members added.

Examples:
  teams-portal provision "Project Falcon" --owner ada@contoso.com \
      --member grace@contoso.com --member 4f1c...e2 --folders --icon logo.png

  teams-portal provision "Project Falcon" --finalize --member linus@contoso.com`,
	Args: cobra.ExactArgs(1),
	RunE: runProvision,
}

var foldersCmd = &cobra.Command{
	Use:   "folders <team-id>",
	Short: "Create the catalog folder structure in every channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolders,
}

var iconCmd = &cobra.Command{
	Use:   "icon <team-id> [image]",
	Short: "Upload a team picture, or check access with --check",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runIcon,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user (checks the token against Graph)",
	Args:  cobra.NoArgs,
	RunE:  runWhoAmI,
}

var userCmd = &cobra.Command{
	Use:   "user <email>",
	Short: "Look up a directory user by mail or user principal name",
	Args:  cobra.ExactArgs(1),
	RunE:  runUser,
}

// Flags for provisioning commands.
var (
	provisionOwner    string
	provisionMembers  []string
	provisionFolders  bool
	provisionIcon     string
	provisionFinalize bool
	provisionTUI      bool
	outputJSON        bool
	iconCheck         bool
)

func init() {
	provisionCmd.Flags().StringVar(&provisionOwner, "owner", "",
		"owner id or e-mail (defaults to the signed-in user)")
	provisionCmd.Flags().StringArrayVarP(&provisionMembers, "member", "m", nil,
		"member id or e-mail (can be repeated)")
	provisionCmd.Flags().BoolVar(&provisionFolders, "folders", false, "create the catalog folder structure")
	provisionCmd.Flags().StringVar(&provisionIcon, "icon", "", "path to a JPEG, PNG or GIF team picture")
	provisionCmd.Flags().BoolVar(&provisionFinalize, "finalize", false, "complete an existing team without creating it")
	provisionCmd.Flags().BoolVar(&provisionTUI, "tui", false, "show interactive progress")
	provisionCmd.Flags().BoolVar(&outputJSON, "json", false, "print events and results as JSON")
	foldersCmd.Flags().BoolVar(&outputJSON, "json", false, "print events and results as JSON")
	iconCmd.Flags().BoolVar(&iconCheck, "check", false, "only check team and photo access")

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(iconCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(userCmd)
}

func requireService() error {
	if provisioningService == nil {
		return errors.New("provisioning service not configured")
	}
	return nil
}

// parseMember treats anything with an @ as an e-mail, otherwise a directory id.
func parseMember(s string) (domain.Member, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Member{}, false
	}
	if strings.Contains(s, "@") {
		return domain.Member{Email: s, Role: domain.RoleMember}, true
	}
	return domain.Member{ID: s, Role: domain.RoleMember}, true
}

func parseMembers(values []string) []domain.Member {
	var members []domain.Member
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if m, ok := parseMember(part); ok {
				members = append(members, m)
			}
		}
	}
	return members
}

func readIcon(path string) (*domain.Icon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read icon: %w", err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return &domain.Icon{Data: data, ContentType: ct, FileName: filepath.Base(path)}, nil
}

func runProvision(cmd *cobra.Command, args []string) error {
	if err := requireService(); err != nil {
		return err
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args[0])
	members := parseMembers(provisionMembers)

	var run tui.RunFunc
	if provisionFinalize {
		req := domain.FinalizeRequest{TeamName: name, Members: members}
		run = func(ctx context.Context, sink driven.EventSink) (*domain.ProvisionResult, error) {
			return provisioningService.Finalize(ctx, token, req, sink)
		}
	} else {
		req := domain.ProvisionRequest{TeamName: name, Members: members, CreateFolders: provisionFolders}
		if owner := strings.TrimSpace(provisionOwner); owner != "" {
			if strings.Contains(owner, "@") {
				req.OwnerEmail = owner
			} else {
				req.OwnerID = owner
			}
		}
		if provisionIcon != "" {
			icon, err := readIcon(provisionIcon)
			if err != nil {
				return err
			}
			req.Icon = icon
		}
		run = func(ctx context.Context, sink driven.EventSink) (*domain.ProvisionResult, error) {
			return provisioningService.Provision(ctx, token, req, sink)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if provisionTUI && !outputJSON {
		res, err := tui.Run(ctx, "Provisioning "+name, run, tui.Options{Output: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	}

	printer := newEventPrinter(cmd.OutOrStdout(), outputJSON)
	res, err := run(ctx, printer)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runFolders(cmd *cobra.Command, args []string) error {
	if err := requireService(); err != nil {
		return err
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}
	printer := newEventPrinter(cmd.OutOrStdout(), outputJSON)
	report, err := provisioningService.CreateFolders(cmd.Context(), token, strings.TrimSpace(args[0]), printer)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	cmd.Printf("\n%d folders created: %d channels succeeded, %d skipped, %d failed\n",
		report.TotalCreated, report.Succeeded, report.Skipped, report.Failed)
	return nil
}

func runIcon(cmd *cobra.Command, args []string) error {
	if err := requireService(); err != nil {
		return err
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}
	teamID := strings.TrimSpace(args[0])

	if iconCheck {
		report, err := provisioningService.CheckIconAccess(cmd.Context(), token, teamID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), report)
	}
	if len(args) < 2 {
		return errors.New("image path required (or use --check)")
	}
	icon, err := readIcon(args[1])
	if err != nil {
		return err
	}
	res, err := provisioningService.UploadIcon(cmd.Context(), token, teamID, *icon)
	if err != nil {
		return err
	}
	cmd.Println(successStyle.Render(fmt.Sprintf("✓ Team picture uploaded (%s, %d bytes)", res.ContentType, res.Bytes)))
	return nil
}

func runWhoAmI(cmd *cobra.Command, _ []string) error {
	if err := requireService(); err != nil {
		return err
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}
	user, err := provisioningService.WhoAmI(cmd.Context(), token)
	if err != nil {
		return err
	}
	cmd.Printf("%s <%s>\n", user.DisplayName, user.Email())
	cmd.Printf("ID: %s\n", user.ID)
	return nil
}

func runUser(cmd *cobra.Command, args []string) error {
	if err := requireService(); err != nil {
		return err
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}
	user, err := provisioningService.LookupUser(cmd.Context(), token, args[0])
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), user)
}
