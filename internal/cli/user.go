package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/courtside/internal/model"
)

// userDetail is the payload of "user show".
type userDetail struct {
	User   userView     `json:"user"`
	Cards  []model.Card `json:"cards"`
	Trades []tradeView  `json:"trades"`
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage collectors",
	}
	cmd.AddCommand(newUserListCommand(rootOpts))
	cmd.AddCommand(newUserAddCommand(rootOpts))
	cmd.AddCommand(newUserShowCommand(rootOpts))
	cmd.AddCommand(newUserTouchCommand(rootOpts))
	return cmd
}

func newUserListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List registered users",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				users, err := s.engine.ListUsers(s.ctx)
				if err != nil {
					return s.out.Fail(err)
				}
				views := make([]userView, 0, len(users))
				for _, u := range users {
					views = append(views, newUserView(u))
				}
				return s.out.Success(views, func(w io.Writer) {
					if len(views) == 0 {
						fmt.Fprintln(w, "No users.")
					}
					for _, v := range views {
						writeUserLine(w, v)
					}
				})
			})
		},
	}
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	var access int

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a user",
		Long: `Register a user with an empty hand.

Names are unique after trimming and Unicode normalization.

Example:
  courtside user add chuck --access 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				u, err := s.engine.RegisterUser(s.ctx, args[0], access)
				if err != nil {
					return s.out.Fail(err)
				}
				v := newUserView(u)
				return s.out.Success(v, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Registered %s (id %d)\n", v.Name, v.ID)
				})
			})
		},
	}

	cmd.Flags().IntVar(&access, "access", 0, "access level")
	return cmd
}

func newUserShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <name>",
		Short:         "Show a user with their cards and pending trades",
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
				trades, err := s.engine.UserTrades(s.ctx, u.ID)
				if err != nil {
					return s.out.Fail(err)
				}
				n, err := s.names()
				if err != nil {
					return s.out.Fail(err)
				}

				detail := userDetail{User: newUserView(u), Cards: cards, Trades: n.trades(trades)}
				return s.out.Success(detail, func(w io.Writer) {
					writeUserLine(w, detail.User)
					fmt.Fprintln(w, "\nCards:")
					writeCards(w, detail.Cards)
					fmt.Fprintln(w, "\nTrades:")
					writeTrades(w, detail.Trades)
				})
			})
		},
	}
}

func newUserTouchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "touch <name>",
		Short:         "Record that a user was seen now",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				u, err := s.user(args[0])
				if err != nil {
					return s.out.Fail(err)
				}
				if u, err = s.engine.TouchUser(s.ctx, u.ID); err != nil {
					return s.out.Fail(err)
				}
				v := newUserView(u)
				return s.out.Success(v, func(w io.Writer) { writeUserLine(w, v) })
			})
		},
	}
}
