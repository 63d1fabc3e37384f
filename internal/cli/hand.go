package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/courtside/internal/engine"
	"github.com/roach88/courtside/internal/model"
)

// handChange is the payload of "hand add" and "hand remove".
type handChange struct {
	User    string        `json:"user"`
	Card    model.CardID  `json:"card"`
	Holding model.CardSet `json:"holding"`
}

// NewHandCommand creates the hand command group.
func NewHandCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hand",
		Short: "Inspect and change what a user holds",
	}
	cmd.AddCommand(newHandShowCommand(rootOpts))
	cmd.AddCommand(newHandAddCommand(rootOpts))
	cmd.AddCommand(newHandRemoveCommand(rootOpts))
	return cmd
}

func newHandShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <user>",
		Short:         "List the cards a user holds",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				u, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				cards, err := s.engine.UserCards(s.ctx, u.ID)
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(cards, func(w io.Writer) {
					fmt.Fprintf(w, "%s holds %d/%d card(s)\n", u.Name, len(cards), s.engine.MaxHand())
					writeCards(w, cards)
				})
			})
		},
	}
}

func newHandAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <user> <card>",
		Short: "Give an unowned card to a user",
		Long: `Give an unowned card to a user.

Fails with CONFLICT when the card is owned and CAPACITY_EXCEEDED when the
hand is full. Receiving a card clears the user's confirmations.

Example:
  courtside hand add chuck 7`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := parseCardID(args[1])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail(err)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				u, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				added, err := s.engine.AddCardToUser(s.ctx, u.ID, card)
				if err != nil {
					return s.out.Fail(err)
				}
				if !added {
					return s.out.Fail(s.refusal(u, card))
				}
				return s.reportHand(u.Name, card, "✓ Gave card %d to %s")
			})
		},
	}
}

// refusal explains why AddCardToUser returned false.
func (s *session) refusal(u model.User, card model.CardID) error {
	c, err := s.engine.GetCard(s.ctx, card)
	if err != nil {
		return err
	}
	if c.Owned {
		return engine.NewConflictError("add_card_to_user", fmt.Sprintf("card %d is already owned", card))
	}
	return engine.NewCapacityError("add_card_to_user", u.Name, u.Holding.Len(), s.engine.MaxHand())
}

func newHandRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user> <card>",
		Short: "Take a card away from a user",
		Long: `Take a card away from a user. The card becomes available and every
pending trade of the user that offered it is deleted.

Example:
  courtside hand remove chuck 2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := parseCardID(args[1])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail(err)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				u, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				if err := s.engine.RemoveCardFromUser(s.ctx, u.ID, card); err != nil {
					return s.out.Fail(err)
				}
				return s.reportHand(u.Name, card, "✓ Took card %d from %s")
			})
		},
	}
}

func (s *session) reportHand(name string, card model.CardID, format string) error {
	u, err := s.user(name)
	if err != nil {
		return s.out.Fail(err)
	}
	change := handChange{User: u.Name, Card: card, Holding: model.NewCardSet(u.Holding...)}
	return s.out.Success(change, func(w io.Writer) {
		fmt.Fprintf(w, format+"\n", card, u.Name)
		fmt.Fprintf(w, "  %s now holds %v\n", u.Name, []model.CardID(change.Holding))
	})
}
