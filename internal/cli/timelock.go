package cli

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/adapters/proposalfile"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// operationFlags describe one timelock call on the command line
type operationFlags struct {
	call        proposalfile.Call
	predecessor string
	salt        string
}

func (f *operationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.call.Target, "target", "", "Call target: address, [accounts] name, governor, timelock or roles")
	cmd.Flags().StringVar(&f.call.Value, "value", "", "Value forwarded with the call")
	cmd.Flags().StringVar(&f.call.Signature, "sig", "", "Function signature, e.g. \"pause()\"")
	cmd.Flags().StringArrayVar(&f.call.Args, "arg", nil, "Function argument (repeatable)")
	cmd.Flags().StringVar(&f.call.Data, "data", "", "Raw hex call data instead of --sig")
	cmd.Flags().StringVar(&f.predecessor, "predecessor", "", "Operation id that must be executed first")
	cmd.Flags().StringVar(&f.salt, "salt", "", "32 byte hex salt, or any text (hashed)")
	_ = cmd.MarkFlagRequired("target")
}

func (f *operationFlags) resolve(a *app.App) (domain.Effect, common.Hash, common.Hash, error) {
	effect, err := f.call.Effect(a.Config.Project)
	if err != nil {
		return domain.Effect{}, common.Hash{}, common.Hash{}, err
	}
	var predecessor common.Hash
	if f.predecessor != "" {
		h, ok := parseHash(f.predecessor)
		if !ok {
			return domain.Effect{}, common.Hash{}, common.Hash{}, fmt.Errorf("invalid predecessor %q", f.predecessor)
		}
		predecessor = h
	}
	return effect, predecessor, parseSalt(f.salt), nil
}

// parseSalt keeps a hex id as is and hashes anything else
func parseSalt(s string) common.Hash {
	if s == "" {
		return common.Hash{}
	}
	if h, ok := parseHash(s); ok {
		return h
	}
	return crypto.Keccak256Hash([]byte(s))
}

// NewTimelockCmd creates the timelock command group
func NewTimelockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timelock",
		Short: "Schedule and execute delayed calls",
	}

	cmd.AddCommand(
		newTimelockScheduleCmd(),
		newTimelockExecuteCmd(),
		newTimelockCancelCmd(),
		newTimelockShowCmd(),
		newTimelockListCmd(),
		newTimelockHashCmd(),
	)

	return cmd
}

func newTimelockScheduleCmd() *cobra.Command {
	var (
		flags operationFlags
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a call behind the timelock delay",
		Long: `Schedule a call. Requires the proposer role. Critical calls (role changes,
delay changes, pause toggles, upgrades, ...) receive an additional
escalation on top of the requested delay.`,
		Example: `  govlock timelock schedule --from ops --target timelock --sig "updateDelay(uint256)" --arg 86400 --delay 48h`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			effect, predecessor, salt, err := flags.resolve(app)
			if err != nil {
				return err
			}
			seconds := uint64(delay / time.Second)
			if delay <= 0 {
				seconds = app.Timelock.Settings().MinDelay
			}

			op, err := app.Timelock.Schedule(cmd.Context(), from, usecase.ScheduleParams{
				Call:        effect,
				Predecessor: predecessor,
				Salt:        salt,
				Delay:       seconds,
			})
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			view, err := app.Timelock.Get(op.ID)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, view)
			}
			return render.NewOperationsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).RenderScheduled([]*usecase.OperationView{view})
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&delay, "delay", 0, "Requested delay (default the minimum delay)")

	return cmd
}

func newTimelockExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <operation>",
		Short: "Execute a ready operation",
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
			view, err := resolveOperation(app, args[0])
			if err != nil {
				return err
			}

			op := view.Operation
			done, err := app.Timelock.Execute(cmd.Context(), from, op.Call, op.Predecessor, op.Salt)
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, done)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Executed %s: %s", done.ID.Hex(), app.Codec.DecodeEffect(done.Call).FormatCompact())))
			return nil
		},
	}
}

func newTimelockCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <operation>",
		Short: "Cancel a pending or ready operation",
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
			view, err := resolveOperation(app, args[0])
			if err != nil {
				return err
			}

			if err := app.Timelock.Cancel(cmd.Context(), from, view.Operation.ID); err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, map[string]any{"id": view.Operation.ID, "state": domain.OperationCanceled})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Canceled operation %s", view.Operation.ID.Hex())))
			return nil
		},
	}
}

func newTimelockShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <operation>",
		Short: "Show a timelock operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			view, err := resolveOperation(app, args[0])
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, view)
			}
			return render.NewOperationsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).Render(view)
		},
	}
}

func newTimelockListCmd() *cobra.Command {
	var states []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List timelock operations by eta",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			views := app.Timelock.List()
			if len(states) > 0 {
				keep := make(map[domain.OperationState]bool, len(states))
				for _, s := range states {
					keep[domain.OperationState(s)] = true
				}
				filtered := views[:0]
				for _, v := range views {
					if keep[v.State] {
						filtered = append(filtered, v)
					}
				}
				views = filtered
			}

			if app.Config.JSON {
				return printJSON(cmd, views)
			}
			return render.NewOperationsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).RenderList(views)
		},
	}

	cmd.Flags().StringSliceVar(&states, "state", nil, "Only show operations in these states")

	return cmd
}

func newTimelockHashCmd() *cobra.Command {
	var flags operationFlags

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute the id of an operation without scheduling it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			effect, predecessor, salt, err := flags.resolve(app)
			if err != nil {
				return err
			}
			id, err := app.Timelock.HashOperation(effect, predecessor, salt)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, map[string]any{"id": id, "state": app.Timelock.State(id)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.Hex())
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
