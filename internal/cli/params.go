package cli

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
)

// NewParamsCmd creates the params command group
func NewParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show or update governance parameters",
	}

	cmd.AddCommand(newParamsShowCmd(), newParamsSetCmd())

	return cmd
}

func newParamsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show voting, governor and timelock parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			voting, settings := app.Governor.Parameters()
			timelock := app.Timelock.Settings()
			governorPause, timelockPause := app.Emergency.Status()

			if app.Config.JSON {
				return printJSON(cmd, map[string]any{
					"voting":   voting,
					"governor": settings,
					"timelock": timelock,
					"pause": map[string]domain.PauseState{
						"governor": governorPause,
						"timelock": timelockPause,
					},
				})
			}
			out := cmd.OutOrStdout()
			render.RenderParams(out, voting, settings, timelock)
			render.RenderPause(out, governorPause, timelockPause)
			return nil
		},
	}
}

// paramsFlags overlay the current parameters; unset flags keep their value
type paramsFlags struct {
	maxVotingPower    string
	quadraticFactor   uint64
	timeWeightFactor  uint64
	rootPower         uint64
	minLockDuration   uint64
	votingDelay       uint64
	votingPeriod      uint64
	proposalThreshold string
	quorumPercent     uint64
}

func newParamsSetCmd() *cobra.Command {
	var (
		f      paramsFlags
		encode bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update voting parameters or governor settings",
		Long: `Update parameters directly. Requires the params manager role, which
genesis hands to the timelock, so most projects use --encode to print the
call data for a proposal instead.`,
		Example: `  govlock params set --root-power 3 --encode
  govlock propose -d "Cube root" --target governor --data $(govlock params set --root-power 3 --encode)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			voting, settings := app.Governor.Parameters()
			flags := cmd.Flags()

			votingChanged, settingsChanged := false, false
			if flags.Changed("max-voting-power") {
				if voting.MaxVotingPower, err = parseAmount(f.maxVotingPower); err != nil {
					return err
				}
				votingChanged = true
			}
			overlay := func(name string, dst *uint64, src uint64, changed *bool) {
				if flags.Changed(name) {
					*dst = src
					*changed = true
				}
			}
			overlay("quadratic-factor", &voting.QuadraticFactor, f.quadraticFactor, &votingChanged)
			overlay("time-weight-factor", &voting.TimeWeightFactor, f.timeWeightFactor, &votingChanged)
			overlay("root-power", &voting.RootPower, f.rootPower, &votingChanged)
			overlay("min-lock-duration", &voting.MinLockDuration, f.minLockDuration, &votingChanged)
			overlay("voting-delay", &settings.VotingDelay, f.votingDelay, &settingsChanged)
			overlay("voting-period", &settings.VotingPeriod, f.votingPeriod, &settingsChanged)
			overlay("quorum-percent", &settings.QuorumPercent, f.quorumPercent, &settingsChanged)
			if flags.Changed("proposal-threshold") {
				if settings.ProposalThreshold, err = parseAmount(f.proposalThreshold); err != nil {
					return err
				}
				settingsChanged = true
			}

			if !votingChanged && !settingsChanged {
				return fmt.Errorf("%w: no parameter flags given", domain.ErrInvalidParams)
			}

			if encode {
				var calls []string
				if votingChanged {
					data, err := app.Codec.Encode("setVotingParams",
						voting.MaxVotingPower.ToBig(),
						new(big.Int).SetUint64(voting.QuadraticFactor),
						new(big.Int).SetUint64(voting.TimeWeightFactor),
						new(big.Int).SetUint64(voting.RootPower),
						new(big.Int).SetUint64(voting.MinLockDuration),
					)
					if err != nil {
						return err
					}
					calls = append(calls, hexutil.Encode(data))
				}
				if settingsChanged {
					data, err := app.Codec.Encode("setGovernorSettings",
						new(big.Int).SetUint64(settings.VotingDelay),
						new(big.Int).SetUint64(settings.VotingPeriod),
						settings.ProposalThreshold.ToBig(),
						new(big.Int).SetUint64(settings.QuorumPercent),
					)
					if err != nil {
						return err
					}
					calls = append(calls, hexutil.Encode(data))
				}
				if app.Config.JSON {
					return printJSON(cmd, map[string]any{"target": app.Addresses.Governor, "data": calls})
				}
				for _, c := range calls {
					fmt.Fprintln(cmd.OutOrStdout(), c)
				}
				return nil
			}

			from, err := caller(app)
			if err != nil {
				return err
			}
			if votingChanged {
				if err := app.Governor.SetVotingParams(cmd.Context(), from, voting); err != nil {
					return err
				}
			}
			if settingsChanged {
				if err := app.Governor.SetGovernorSettings(cmd.Context(), from, settings); err != nil {
					return err
				}
			}
			if err := persist(cmd, app); err != nil {
				return err
			}

			voting, settings = app.Governor.Parameters()
			if app.Config.JSON {
				return printJSON(cmd, map[string]any{"voting": voting, "governor": settings})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess("Parameters updated"))
			render.RenderParams(cmd.OutOrStdout(), voting, settings, app.Timelock.Settings())
			return nil
		},
	}

	cmd.Flags().StringVar(&f.maxVotingPower, "max-voting-power", "", "Cap on the voting power of one account")
	cmd.Flags().Uint64Var(&f.quadraticFactor, "quadratic-factor", 0, "Root term weight in basis points")
	cmd.Flags().Uint64Var(&f.timeWeightFactor, "time-weight-factor", 0, "Lock age bonus at maturity in basis points")
	cmd.Flags().Uint64Var(&f.rootPower, "root-power", 0, "Root applied to locked amounts (2-8)")
	cmd.Flags().Uint64Var(&f.minLockDuration, "min-lock-duration", 0, "Minimum lock duration in seconds")
	cmd.Flags().Uint64Var(&f.votingDelay, "voting-delay", 0, "Seconds between proposal and vote start")
	cmd.Flags().Uint64Var(&f.votingPeriod, "voting-period", 0, "Voting window in seconds")
	cmd.Flags().StringVar(&f.proposalThreshold, "proposal-threshold", "", "Voting power required to propose")
	cmd.Flags().Uint64Var(&f.quorumPercent, "quorum-percent", 0, "Share of total supply required for quorum")
	cmd.Flags().BoolVar(&encode, "encode", false, "Print governor call data instead of applying")

	return cmd
}
