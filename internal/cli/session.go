package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/courtside/internal/config"
	"github.com/roach88/courtside/internal/engine"
	"github.com/roach88/courtside/internal/model"
)

// session is an engine opened for the duration of one command.
type session struct {
	ctx    context.Context
	engine *engine.Engine
	out    *OutputFormatter
	cfg    *config.Config

	closeLock func() error
}

// newFormatter builds the formatter for cmd. Verbose logs go to stderr to
// avoid corrupting JSON.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession resolves the configuration, applies flag overrides and
// opens the engine. Failures are reported through the formatter.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(config.Options{ConfigDir: opts.ConfigDir})
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	if opts.MaxHand > 0 {
		cfg.MaxHand = opts.MaxHand
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	ctx := commandContext(cmd)
	locker, closeLock := cfg.Locker()
	out.VerboseLog("opening database %s (max hand %d)", cfg.DBPath, cfg.MaxHand)
	eng, err := engine.Open(ctx, cfg.DBPath,
		engine.WithMaxHand(cfg.MaxHand),
		engine.WithLocker(locker),
		engine.WithLockKey(cfg.Lock.Key),
		engine.WithLogger(cfg.Logger(cmd.ErrOrStderr())),
	)
	if err != nil {
		_ = closeLock()
		_ = out.Error(string(engine.ErrCodeStorage), err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &session{ctx: ctx, engine: eng, out: out, cfg: cfg, closeLock: closeLock}, nil
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Close releases the engine and the lock client.
func (s *session) Close() error {
	err := s.engine.Close()
	if lerr := s.closeLock(); err == nil {
		err = lerr
	}
	return err
}

// withSession opens a session, runs fn and closes the session.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// user resolves a user name.
func (s *session) user(name string) (model.User, error) {
	return s.engine.GetUserByName(s.ctx, name)
}

// card resolves a card by id or, failing that, by name.
func (s *session) card(ref string) (model.Card, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.engine.GetCard(s.ctx, model.CardID(id))
	}
	return s.engine.GetCardByName(s.ctx, ref)
}

// parseCardID parses a positional card id.
func parseCardID(s string) (model.CardID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid card id %q", s))
	}
	return model.CardID(id), nil
}

// parseTradeID parses a positional trade id.
func parseTradeID(s string) (model.TradeID, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid trade id %q", s))
	}
	return model.TradeID(id), nil
}

// toCardSet converts flag values to a card set.
func toCardSet(ids []int64) model.CardSet {
	set := model.NewCardSet()
	for _, id := range ids {
		set = set.Add(model.CardID(id))
	}
	return set
}
