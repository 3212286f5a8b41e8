package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/adapters/proposalfile"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// NewProposeCmd creates the propose command
func NewProposeCmd() *cobra.Command {
	var (
		file        string
		description string
		call        proposalfile.Call
	)

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Create a governance proposal",
		Long: `Create a proposal from a YAML document (-f) or from a single call given
with flags. The proposer needs effective voting power of at least the
proposal threshold.`,
		Example: `  govlock propose -f raise-quorum.yaml --from alice
  govlock propose --from alice -d "Pause governor" --target governor --sig "pause()"
  govlock propose --from alice -d "Grant guardian" --target roles \
    --sig "grantRole(bytes32,address)" --arg guardian --arg 0x00000000000000000000000000000000000000b2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}

			var params usecase.ProposeParams
			switch {
			case file != "" && call.Target != "":
				return errors.New("use either -f or --target, not both")
			case file != "":
				params, err = proposalfile.Load(file, app.Config.Project)
			case call.Target != "":
				doc := proposalfile.Document{Description: description, Calls: []proposalfile.Call{call}}
				params, err = doc.Resolve(app.Config.Project)
			default:
				return errors.New("a proposal needs -f <file> or --target")
			}
			if err != nil {
				return err
			}

			proposal, err := app.Governor.Propose(cmd.Context(), from, params)
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			view, err := app.Governor.Proposal(cmd.Context(), proposal.ID)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, view)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Created proposal %s", proposal.ID.Hex())))
			return render.NewProposalsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).Render(view)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML proposal document")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Proposal description (with --target)")
	cmd.Flags().StringVar(&call.Target, "target", "", "Call target: address, [accounts] name, governor, timelock or roles")
	cmd.Flags().StringVar(&call.Value, "value", "", "Value forwarded with the call")
	cmd.Flags().StringVar(&call.Signature, "sig", "", "Function signature, e.g. \"updateDelay(uint256)\"")
	cmd.Flags().StringArrayVar(&call.Args, "arg", nil, "Function argument (repeatable)")
	cmd.Flags().StringVar(&call.Data, "data", "", "Raw hex call data instead of --sig")

	return cmd
}

// NewVoteCmd creates the vote command
func NewVoteCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "vote <for|against|abstain> [proposal]",
		Short: "Cast a vote on an active proposal",
		Long: `Cast a ballot weighted by the voter's effective power at the proposal
snapshot. Each account votes once. Without a proposal id the active
proposals are offered for selection.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			option, err := domain.ParseVoteType(args[0])
			if err != nil {
				return err
			}
			view, err := resolveProposal(cmd, app, args[1:], domain.ProposalActive)
			if err != nil {
				return err
			}

			ballot, err := app.Governor.CastVoteWithReason(cmd.Context(), from, view.Proposal.ID, option, reason)
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, ballot)
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).RenderBallot(view.Proposal.ID, ballot)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the ballot")

	return cmd
}

// NewProposalCmd creates the proposal command group
func NewProposalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "proposal",
		Aliases: []string{"proposals"},
		Short:   "Inspect and advance proposals",
	}

	cmd.AddCommand(
		newProposalListCmd(),
		newProposalShowCmd(),
		newProposalStateCmd(),
		newProposalCancelCmd(),
		newProposalQueueCmd(),
		newProposalExecuteCmd(),
	)

	return cmd
}

func newProposalListCmd() *cobra.Command {
	var states []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			filter := make([]domain.ProposalState, len(states))
			for i, s := range states {
				filter[i] = domain.ProposalState(s)
			}

			views, err := app.Governor.List(cmd.Context(), filter...)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, views)
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).RenderList(views)
		},
	}

	cmd.Flags().StringSliceVar(&states, "state", nil, "Only show proposals in these states")

	return cmd
}

func newProposalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [proposal]",
		Short: "Show a proposal with its calls and ballots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			view, err := resolveProposal(cmd, app, args)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, view)
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).Render(view)
		},
	}
}

func newProposalStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <proposal>",
		Short: "Print the state of a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			view, err := resolveProposal(cmd, app, args)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, map[string]any{"id": view.Proposal.ID, "state": view.State, "votes": view.Proposal.Votes})
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.State)
			return nil
		},
	}
}

func newProposalCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [proposal]",
		Short: "Cancel a proposal",
		Long: `Cancel a proposal. The proposer may cancel while it is pending; a
guardian may cancel any time before it is queued. Cancellation is final.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			view, err := resolveProposal(cmd, app, args, domain.ProposalPending, domain.ProposalActive, domain.ProposalSucceeded)
			if err != nil {
				return err
			}

			if err := app.Governor.Cancel(cmd.Context(), from, view.Proposal.ID); err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			if app.Config.JSON {
				return printJSON(cmd, map[string]any{"id": view.Proposal.ID, "state": domain.ProposalCanceled})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Canceled proposal %s", view.Proposal.ID.Hex())))
			return nil
		},
	}
}

func newProposalQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue [proposal]",
		Short: "Schedule a succeeded proposal on the timelock",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			view, err := resolveProposal(cmd, app, args, domain.ProposalSucceeded)
			if err != nil {
				return err
			}

			queued, err := app.Governor.Queue(cmd.Context(), from, view.Proposal.ID)
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			ops := make([]*usecase.OperationView, 0, len(queued.OperationIDs))
			for _, id := range queued.OperationIDs {
				op, err := app.Timelock.Get(id)
				if err != nil {
					return err
				}
				ops = append(ops, op)
			}
			if app.Config.JSON {
				return printJSON(cmd, map[string]any{"id": queued.ID, "operations": ops})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Queued proposal %s", queued.ID.Hex())))
			return render.NewOperationsRenderer(cmd.OutOrStdout(), app.Codec, labeler(app)).RenderScheduled(ops)
		},
	}
}

func newProposalExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute [proposal]",
		Short: "Execute the timelock operations of a queued proposal",
		Long: `Execute every call of a queued proposal in order. Calls already executed
are skipped, so a partially executed proposal can be resumed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(app)
			if err != nil {
				return err
			}
			view, err := resolveProposal(cmd, app, args, domain.ProposalQueued)
			if err != nil {
				return err
			}

			executed, execErr := app.Governor.Execute(cmd.Context(), from, view.Proposal.ID)
			// Calls that did run are recorded even if a later one failed.
			if err := persist(cmd, app); err != nil {
				return err
			}
			if execErr != nil {
				return execErr
			}

			if app.Config.JSON {
				return printJSON(cmd, executed)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Executed proposal %s", executed.ID.Hex())))
			return nil
		},
	}
}
