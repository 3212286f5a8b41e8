package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
)

// NewRolesCmd creates the roles command group
func NewRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Inspect and manage capability grants",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every role and its members",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := getApp(cmd)
				if err != nil {
					return err
				}
				roles := app.Roles.All()
				if app.Config.JSON {
					out := make(map[string][]string, len(roles))
					for c, members := range roles {
						names := make([]string, len(members))
						for i, m := range members {
							names[i] = m.Hex()
						}
						out[c.String()] = names
					}
					return printJSON(cmd, out)
				}
				render.RenderRoles(cmd.OutOrStdout(), roles, labeler(app))
				return nil
			},
		},
		newRoleChangeCmd("grant", "Grant a role (requires the role's admin)"),
		newRoleChangeCmd("revoke", "Revoke a role (requires the role's admin)"),
		newRoleChangeCmd("renounce", "Give up a role held by --from"),
	)

	return cmd
}

var pastTense = map[string]string{
	"grant":    "Granted",
	"revoke":   "Revoked",
	"renounce": "Renounced",
}

func newRoleChangeCmd(action, short string) *cobra.Command {
	use := action + " <role> <account>"
	args := cobra.ExactArgs(2)
	if action == "renounce" {
		use = action + " <role>"
		args = cobra.ExactArgs(1)
	}

	return &cobra.Command{
		Use:     use,
		Short:   short,
		Example: fmt.Sprintf("  govlock roles %s guardian ops --from timelock", action),
		Args:    args,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			role, err := domain.ParseCapability(args[0])
			if err != nil {
				return err
			}
			target, err := account(app, args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			switch action {
			case "grant":
				err = app.Roles.Grant(ctx, from, role, target)
			case "revoke":
				err = app.Roles.Revoke(ctx, from, role, target)
			default:
				err = app.Roles.Renounce(ctx, from, role, target)
			}
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, map[string]any{
					"role":    role.String(),
					"account": target,
					"hasRole": app.Roles.HasCapability(target, role),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("%s %s for %s", pastTense[action], role, app.Config.Project.AccountName(target))))
			return nil
		},
	}
}
