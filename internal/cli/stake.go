package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/cli/render"
)

// NewLockCmd creates the lock command
func NewLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock <amount>",
		Short: "Lock stake to gain voting power",
		Long: `Lock stake for the --from account. Adding to an existing lock restarts
its minimum lock period.`,
		Example: "  govlock lock 1000 --from alice",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}

			result, err := app.Ledger.Lock(cmd.Context(), from, amount)
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, result)
			}
			return render.NewPowerRenderer(cmd.OutOrStdout(), labeler(app)).RenderLock(result)
		},
	}
}

// NewUnlockCmd creates the unlock command
func NewUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Release the whole locked stake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}

			released, err := app.Ledger.Unlock(cmd.Context(), from)
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, map[string]any{"account": from, "released": released})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Unlocked %s", released.PrettyDec(','))))
			return nil
		},
	}
}

// NewPowerCmd creates the power command
func NewPowerCmd() *cobra.Command {
	var at uint64

	cmd := &cobra.Command{
		Use:   "power [account]",
		Short: "Show voting power of an account",
		Long: `Show the locked stake, own voting power and effective voting power
(own plus delegated, or zero when delegated away) of an account.
Defaults to the --from account.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			addr, err := account(app, args)
			if err != nil {
				return err
			}

			report := app.Ledger.PowerAt(addr, at)
			if app.Config.JSON {
				return printJSON(cmd, report)
			}
			return render.NewPowerRenderer(cmd.OutOrStdout(), labeler(app)).Render(report)
		},
	}

	cmd.Flags().Uint64Var(&at, "time", 0, "Evaluate at this past unix time (default now)")

	return cmd
}

// NewDelegateCmd creates the delegate command
func NewDelegateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delegate <to>",
		Short: "Delegate voting power to another account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			to, err := app.Config.Project.ResolveAccount(args[0])
			if err != nil {
				return err
			}

			if err := app.Delegations.Delegate(cmd.Context(), from, to); err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, map[string]common.Address{"delegator": from, "delegate": to})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Delegated %s to %s", args[0], to.Hex())))
			return nil
		},
	}
}

// NewRevokeCmd creates the revoke command
func NewRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the active delegation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}

			previous := app.Delegations.GetDelegate(from)
			if err := app.Delegations.Revoke(cmd.Context(), from); err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, map[string]common.Address{"delegator": from, "previous": previous})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Revoked delegation to %s", previous.Hex())))
			return nil
		},
	}
}
