package cli

import (
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// NewEventsCmd creates the events command
func NewEventsCmd() *cobra.Command {
	var (
		kinds   []string
		subject string
		since   uint64
		until   uint64
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the event index",
		Example: `  govlock events --kind VoteCast --subject 0x3f2a
  govlock events --since 1700000000 --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			query := usecase.EventQuery{
				Subject: subject,
				Since:   since,
				Until:   until,
				Limit:   limit,
			}
			for _, k := range kinds {
				query.Kinds = append(query.Kinds, domain.EventKind(k))
			}

			events, err := app.Events.ListEvents(cmd.Context(), query)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, events)
			}
			render.RenderEvents(cmd.OutOrStdout(), events, labeler(app))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Only events of this kind (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "", "Only events about this proposal or operation id")
	cmd.Flags().Uint64Var(&since, "since", 0, "Only events at or after this time")
	cmd.Flags().Uint64Var(&until, "until", 0, "Only events at or before this time")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events")

	return cmd
}

// NewOutboxCmd creates the outbox command
func NewOutboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "Show effects relayed to external targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			entries, err := app.Outbox.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return printJSON(cmd, entries)
			}
			render.RenderOutbox(cmd.OutOrStdout(), entries, app.Codec, labeler(app))
			return nil
		},
	}
}
