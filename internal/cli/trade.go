package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/courtside/internal/engine"
	"github.com/roach88/courtside/internal/model"
)

// tradeTerms are the offer flags shared by propose and check.
type tradeTerms struct {
	offer   []int64
	request []int64
}

func (t *tradeTerms) bind(cmd *cobra.Command) {
	cmd.Flags().Int64SliceVar(&t.offer, "offer", nil, "card ids the first user gives (comma separated)")
	cmd.Flags().Int64SliceVar(&t.request, "request", nil, "card ids the second user gives (comma separated)")
}

// confirmOutcome is the payload of "trade confirm".
type confirmOutcome struct {
	Trade model.TradeID `json:"trade"`
	engine.ConfirmResult
}

// NewTradeCommand creates the trade command group.
func NewTradeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Propose, confirm and manage trades",
		Long: `Propose, confirm and manage two-party trades.

A trade executes as soon as both parties have confirmed it. Executing a
trade deletes every other pending trade that offered one of its cards.`,
	}
	cmd.AddCommand(newTradeListCommand(rootOpts))
	cmd.AddCommand(newTradeShowCommand(rootOpts))
	cmd.AddCommand(newTradeProposeCommand(rootOpts))
	cmd.AddCommand(newTradeConfirmCommand(rootOpts))
	cmd.AddCommand(newTradeUnconfirmCommand(rootOpts))
	cmd.AddCommand(newTradeExecuteCommand(rootOpts))
	cmd.AddCommand(newTradeCancelCommand(rootOpts))
	cmd.AddCommand(newTradeCheckCommand(rootOpts))
	return cmd
}

func newTradeListCommand(rootOpts *RootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List pending trades",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				var (
					trades []model.Trade
					err    error
				)
				if user != "" {
					u, uerr := s.user(user)
					if uerr != nil {
						return s.out.Fail(uerr)
					}
					trades, err = s.engine.UserTrades(s.ctx, u.ID)
				} else {
					trades, err = s.engine.ListTrades(s.ctx)
				}
				if err != nil {
					return s.out.Fail(err)
				}
				n, err := s.names()
				if err != nil {
					return s.out.Fail(err)
				}
				views := n.trades(trades)
				return s.out.Success(views, func(w io.Writer) { writeTrades(w, views) })
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "only trades involving this user")
	return cmd
}

func newTradeShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one pending trade",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTradeID(args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail(err)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				return s.showTrade(id, "")
			})
		},
	}
}

func (s *session) showTrade(id model.TradeID, headline string) error {
	tr, err := s.engine.GetTrade(s.ctx, id)
	if err != nil {
		return s.out.Fail(err)
	}
	n, err := s.names()
	if err != nil {
		return s.out.Fail(err)
	}
	view := n.trade(tr)
	return s.out.Success(view, func(w io.Writer) {
		if headline != "" {
			fmt.Fprintln(w, headline)
		}
		writeTradeLine(w, view)
	})
}

func newTradeProposeCommand(rootOpts *RootOptions) *cobra.Command {
	var terms tradeTerms

	cmd := &cobra.Command{
		Use:   "propose <from> <to>",
		Short: "Propose a trade between two users",
		Long: `Propose a trade: <from> gives --offer and <to> gives --request.

Either side may be empty, but not both. Proposing the same trade twice is
a CONFLICT.

Example:
  courtside trade propose chuck nolan --offer 2 --request 4`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				from, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				to, err := s.user(args[1])
				if err != nil {
					return s.out.Fail(err)
				}
				tr, err := s.engine.ProposeTrade(s.ctx, from.ID, toCardSet(terms.offer), to.ID, toCardSet(terms.request))
				if err != nil {
					return s.out.Fail(err)
				}
				return s.showTrade(tr.ID, fmt.Sprintf("✓ Proposed trade #%d", tr.ID))
			})
		},
	}

	terms.bind(cmd)
	return cmd
}

func newTradeConfirmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <user> <id>",
		Short: "Confirm a trade as one of its parties",
		Long: `Confirm a trade. When the other party has already confirmed, the
trade executes immediately.

A confirmation that would overflow the user's hand is refused and exits 1.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTradeID(args[1])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail(err)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				u, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				res, err := s.engine.Confirm(s.ctx, u.ID, id)
				if err != nil {
					return s.out.Fail(err)
				}
				if !res.Confirmed && !res.Invalidated {
					return s.out.Fail(engine.NewCapacityError("confirm", u.Name, u.Holding.Len(), s.engine.MaxHand()))
				}

				outcome := confirmOutcome{Trade: id, ConfirmResult: res}
				return s.out.Success(outcome, func(w io.Writer) {
					switch {
					case res.Executed:
						fmt.Fprintf(w, "✓ Trade #%d executed\n", id)
					case res.Invalidated:
						fmt.Fprintf(w, "✗ Trade #%d was no longer valid and has been removed\n", id)
					default:
						fmt.Fprintf(w, "✓ %s confirmed trade #%d (%s)\n", u.Name, id, res.State)
					}
				})
			})
		},
	}
}

func newTradeUnconfirmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unconfirm <user> <id>",
		Short:         "Withdraw a confirmation",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTradeID(args[1])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail(err)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				u, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				if err := s.engine.Unconfirm(s.ctx, u.ID, id); err != nil {
					return s.out.Fail(err)
				}
				return s.showTrade(id, fmt.Sprintf("✓ %s unconfirmed trade #%d", u.Name, id))
			})
		},
	}
}

func newTradeExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <id>",
		Short: "Execute a fully confirmed trade",
		Long: `Re-validate a trade and swap its cards.

Exits 1 without changes when a side is unconfirmed or a hand would
overflow. A trade whose offers are no longer held is removed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTradeID(args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail(err)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				executed, err := s.engine.ExecuteTrade(s.ctx, id)
				if err != nil {
					return s.out.Fail(err)
				}
				if !executed {
					return s.out.Fail(engine.NewInvalidOperationError("execute_trade", fmt.Sprintf("trade %d was not executed", id)))
				}
				return s.out.Success(map[string]any{"trade": id, "executed": true}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Trade #%d executed\n", id)
				})
			})
		},
	}
}

func newTradeCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "cancel <id>",
		Short:         "Cancel a pending trade",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTradeID(args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail(err)
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				if err := s.engine.CancelTrade(s.ctx, id); err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(map[string]any{"trade": id, "cancelled": true}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Trade #%d cancelled\n", id)
				})
			})
		},
	}
}

func newTradeCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var terms tradeTerms

	cmd := &cobra.Command{
		Use:   "check <from> <to>",
		Short: "Check whether two users hold the cards of a possible trade",
		Long: `Check whether <from> holds --offer and <to> holds --request, without
proposing anything. Exits 1 when they do not.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				from, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				to, err := s.user(args[1])
				if err != nil {
					return s.out.Fail(err)
				}
				valid, err := s.engine.CheckValidTrade(s.ctx, from.ID, toCardSet(terms.offer), to.ID, toCardSet(terms.request))
				if err != nil {
					return s.out.Fail(err)
				}
				if !valid {
					return s.out.Fail(engine.NewInvalidOperationError("check_valid_trade", "the offered cards are not all held"))
				}
				return s.out.Success(map[string]any{"valid": true}, func(w io.Writer) {
					fmt.Fprintln(w, "✓ Trade is valid")
				})
			})
		},
	}

	terms.bind(cmd)
	return cmd
}
