package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/courtside/internal/model"
)

// NewCardCommand creates the card command group.
func NewCardCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Browse the card catalog",
	}
	cmd.AddCommand(newCardListCommand(rootOpts))
	cmd.AddCommand(newCardShowCommand(rootOpts))
	return cmd
}

func newCardListCommand(rootOpts *RootOptions) *cobra.Command {
	var available bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog cards",
		Long: `List every card in the catalog, ordered by id.

Example:
  courtside card list --available`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				var (
					cards []model.Card
					err   error
				)
				if available {
					cards, err = s.engine.ListAvailableCards(s.ctx)
				} else {
					cards, err = s.engine.ListCards(s.ctx)
				}
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(cards, func(w io.Writer) { writeCards(w, cards) })
			})
		},
	}

	cmd.Flags().BoolVar(&available, "available", false, "only list cards nobody owns")
	return cmd
}

func newCardShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show one card with its stats",
		Long: `Show one card. The card is looked up by id, or by exact name.

Example:
  courtside card show 4
  courtside card show "Dario Castell"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				c, err := s.card(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(c, func(w io.Writer) { writeCard(w, c) })
			})
		},
	}
}
