package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/courtside/internal/seed"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Seed string // seed file path
	Demo bool   // load the built-in demo league
}

// InitResult is the payload of the init command.
type InitResult struct {
	Database string      `json:"database"`
	Seeded   bool        `json:"seeded"`
	Applied  seed.Result `json:"applied"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and optionally load a seed",
		Long: `Create (or migrate) the database and optionally load a CUE seed file
with cards, users, their hands and open trades.

Loading a seed twice is harmless: existing cards, users and identical
pending trades are skipped.

Example:
  courtside init --db league.db --demo
  courtside init --seed ./league.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Seed, "seed", "", "CUE seed file to load")
	cmd.Flags().BoolVar(&opts.Demo, "demo", false, "load the built-in demo league")
	cmd.MarkFlagsMutuallyExclusive("seed", "demo")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	var (
		f   *seed.File
		err error
	)
	switch {
	case opts.Demo:
		f, err = seed.Demo()
	case opts.Seed != "":
		f, err = seed.LoadFile(opts.Seed)
	}
	if err != nil {
		out := newFormatter(opts.RootOptions, cmd)
		_ = out.Error(ErrCodeSeed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load seed", err)
	}

	return withSession(opts.RootOptions, cmd, func(s *session) error {
		result := InitResult{Database: s.cfg.DBPath}
		if f != nil {
			s.out.VerboseLog("applying seed: %d card(s), %d user(s), %d trade(s)", len(f.Cards), len(f.Users), len(f.Trades))
			applied, err := seed.Apply(s.ctx, s.engine, f)
			if err != nil {
				return s.out.Fail(err)
			}
			result.Seeded = true
			result.Applied = applied
		}

		return s.out.Success(result, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Database ready at %s\n", result.Database)
			if result.Seeded {
				a := result.Applied
				fmt.Fprintf(w, "  loaded %d card(s), %d user(s), %d trade(s), %d executed\n",
					a.Cards, a.Users, a.Trades, a.Executed)
			}
		})
	})
}
