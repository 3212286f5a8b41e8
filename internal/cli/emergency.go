package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
)

// NewEmergencyCmd creates the emergency command
func NewEmergencyCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "emergency <on|off|status>",
		Short: "Toggle emergency mode on the governor and the timelock",
		Long: `Emergency mode halts proposing, voting, queueing and execution and stops
the timelock from executing critical operations. Requires the emergency
role.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on":
				enabled = true
			case "off":
			case "status":
				return renderPause(cmd)
			default:
				return fmt.Errorf("expected on, off or status, got %q", args[0])
			}

			from, err := caller(app)
			if err != nil {
				return err
			}
			if enabled && !confirm(app, yes, "Enable emergency mode") {
				return fmt.Errorf("aborted")
			}
			if err := app.Emergency.SetEmergencyMode(cmd.Context(), from, enabled); err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}
			return renderPause(cmd)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")

	return cmd
}

// NewPauseCmd creates the pause command
func NewPauseCmd() *cobra.Command {
	return newPauseToggleCmd(true)
}

// NewUnpauseCmd creates the unpause command
func NewUnpauseCmd() *cobra.Command {
	return newPauseToggleCmd(false)
}

func newPauseToggleCmd(pause bool) *cobra.Command {
	var surface string

	use, short := "unpause", "Lift the pause of a surface (requires the emergency role)"
	if pause {
		use, short = "pause", "Pause a surface (requires the emergency role)"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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
			target, err := parseSurface(surface)
			if err != nil {
				return err
			}

			if pause {
				err = app.Emergency.Pause(cmd.Context(), from, target)
			} else {
				err = app.Emergency.Unpause(cmd.Context(), from, target)
			}
			if err != nil {
				return err
			}
			if err := persist(cmd, app); err != nil {
				return err
			}
			return renderPause(cmd)
		},
	}

	cmd.Flags().StringVar(&surface, "surface", string(domain.SurfaceGovernor), "Surface to toggle: governor or timelock")

	return cmd
}

func parseSurface(s string) (domain.Surface, error) {
	switch domain.Surface(strings.ToLower(s)) {
	case domain.SurfaceGovernor:
		return domain.SurfaceGovernor, nil
	case domain.SurfaceTimelock:
		return domain.SurfaceTimelock, nil
	}
	return "", fmt.Errorf("unknown surface %q (expected governor or timelock)", s)
}

func renderPause(cmd *cobra.Command) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}
	governor, timelock := app.Emergency.Status()
	if app.Config.JSON {
		return printJSON(cmd, map[string]domain.PauseState{"governor": governor, "timelock": timelock})
	}
	render.RenderPause(cmd.OutOrStdout(), governor, timelock)
	return nil
}
