package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app handle
	appKey contextKey = "app"
)

// appHandle is created before the command runs and filled by the
// pre-run hook so Execute can release the app afterwards.
type appHandle struct {
	app     *app.App
	cleanup func()
	cancel  context.CancelFunc
}

func (h *appHandle) close() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.cleanup != nil {
		h.cleanup()
	}
	h.app, h.cleanup, h.cancel = nil, nil, nil
}

// Execute runs the root command and releases the app afterwards
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	return run(ctx, rootCmd)
}

func run(ctx context.Context, rootCmd *cobra.Command) error {
	handle := &appHandle{}
	defer handle.close()
	return rootCmd.ExecuteContext(context.WithValue(ctx, appKey, handle))
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "govlock",
		Short: "Lock-weighted governance with a critical-call timelock",
		Long: `govlock runs a token-lock governance system from the command line.

Locked stake becomes voting power that grows with lock age and is damped
by an n-th root. Proposals pass by quorum and majority and are executed
through a timelock that escalates the delay of critical calls. State lives
in the project's .govlock directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			handle, ok := cmd.Context().Value(appKey).(*appHandle)
			if !ok {
				handle = &appHandle{}
				cmd.SetContext(context.WithValue(cmd.Context(), appKey, handle))
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			appInstance, cleanup, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			handle.app = appInstance
			handle.cleanup = cleanup

			if appInstance.Config.Timeout > 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), appInstance.Config.Timeout)
				handle.cancel = cancel
				cmd.SetContext(ctx)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("from", "", "Acting account: address or [accounts] name")
	rootCmd.PersistentFlags().Uint64("at", 0, "Pin the logical clock to this unix time")
	rootCmd.PersistentFlags().String("data-dir", "", "State directory (default <project>/.govlock)")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")

	rootCmd.AddGroup(&cobra.Group{ID: "stake", Title: "Stake Commands"})
	rootCmd.AddGroup(&cobra.Group{ID: "governance", Title: "Governance Commands"})
	rootCmd.AddGroup(&cobra.Group{ID: "admin", Title: "Administration Commands"})

	for _, cmd := range []*cobra.Command{NewLockCmd(), NewUnlockCmd(), NewPowerCmd(), NewDelegateCmd(), NewRevokeCmd()} {
		cmd.GroupID = "stake"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{NewProposeCmd(), NewVoteCmd(), NewProposalCmd(), NewTimelockCmd()} {
		cmd.GroupID = "governance"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		NewParamsCmd(), NewEmergencyCmd(), NewPauseCmd(), NewUnpauseCmd(),
		NewRolesCmd(), NewEventsCmd(), NewOutboxCmd(),
	} {
		cmd.GroupID = "admin"
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	handle, ok := cmd.Context().Value(appKey).(*appHandle)
	if !ok || handle.app == nil {
		return nil, errors.New("app not initialized")
	}
	return handle.app, nil
}
