package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string // directory holding config.yaml
	Database  string // overrides db_path
	MaxHand   int    // overrides max_hand when positive
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the courtside CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "courtside",
		Short: "Courtside - trading card ledger",
		Long: `Courtside keeps a ledger of who owns which player card and runs
two-party trades between collectors.

Settings come from flags, a .env file, COURTSIDE_* environment variables,
config.yaml and built-in defaults, in that order of precedence.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.MaxHand < 0 {
				return fmt.Errorf("invalid --max-hand %d: must not be negative", opts.MaxHand)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "directory containing config.yaml")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides db_path)")
	cmd.PersistentFlags().IntVar(&opts.MaxHand, "max-hand", 0, "hand size limit (overrides max_hand)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewCardCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewHandCommand(opts))
	cmd.AddCommand(NewTradeCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
