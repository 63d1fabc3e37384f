package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/courtside/internal/lock"
	"github.com/roach88/courtside/internal/model"
	"github.com/roach88/courtside/internal/store"
)

// DefaultLockKey names the single lock guarding the shared state.
const DefaultLockKey = "courtside:state"

// Engine is the ownership and trade engine.
//
// Thread-safety model:
//   - every exported method is safe from any goroutine
//   - mutations are serialized by locker, then by the store transaction
//   - reads skip the lock, but their store transaction still begins
//     IMMEDIATE, so SQLite serializes them with writers
//
// INVARIANTS (checked by CheckInvariants):
//   - a card is owned iff exactly one user's holding contains it
//   - no holding exceeds maxHand
//   - a live trade's offers are held by their parties
//   - a live trade is never stored with both sides confirmed
type Engine struct {
	store     *store.Store
	ownsStore bool
	locker    lock.Manager
	lockKey   string
	clock     *Clock
	ids       OpIDGenerator
	now       func() time.Time
	maxHand   int
	logger    *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMaxHand sets the hand size limit.
//
// Default: model.DefaultMaxHand (5). The limit applies to every user alike.
// Values below 1 are ignored.
func WithMaxHand(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxHand = n
		}
	}
}

// WithLocker replaces the in-process lock manager, e.g. with lock.NewRedis
// when several processes share one database.
func WithLocker(m lock.Manager) Option {
	return func(e *Engine) {
		if m != nil {
			e.locker = m
		}
	}
}

// WithLockKey overrides DefaultLockKey.
func WithLockKey(key string) Option {
	return func(e *Engine) {
		if key != "" {
			e.lockKey = key
		}
	}
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithOpIDGenerator sets the source of per-operation correlation ids.
func WithOpIDGenerator(g OpIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithNow sets the wall clock used for user last-seen stamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine over an open store. The caller keeps ownership of
// the store; Close does not close it.
//
// The logical clock resumes after the highest seq found on a live trade.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, errors.New("engine: store is required")
	}

	e := &Engine{
		store:   st,
		locker:  lock.NewLocal(),
		lockKey: DefaultLockKey,
		ids:     UUIDv7Generator{},
		now:     time.Now,
		maxHand: model.DefaultMaxHand,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	var seq int64
	err := st.View(ctx, func(tx *store.Tx) error {
		var err error
		seq, err = tx.MaxTradeSeq(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine: resume clock: %w", err)
	}
	e.clock = NewClockAt(seq)

	e.logger.Debug("engine ready", "max_hand", e.maxHand, "seq", seq)
	return e, nil
}

// Open opens (or creates) the database at path and builds an Engine that
// owns it. Close releases the database.
func Open(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	e, err := New(ctx, st, opts...)
	if err != nil {
		st.Close()
		return nil, err
	}
	e.ownsStore = true
	return e, nil
}

// Close releases the store if the engine opened it.
func (e *Engine) Close() error {
	if e.ownsStore {
		return e.store.Close()
	}
	return nil
}

// MaxHand returns the configured hand size limit.
func (e *Engine) MaxHand() int {
	return e.maxHand
}

// Clock exposes the logical clock, mainly for tests and diagnostics.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// txn is the per-operation context handed to operation bodies. All reads
// and writes of one operation go through the same store transaction.
type txn struct {
	ctx context.Context
	tx  *store.Tx
	op  string
	log *slog.Logger
	e   *Engine
}

// update runs fn as one serialized, all-or-nothing operation.
//
// Errors that are not already *Error are classified as Storage. The lock is
// released even when ctx is cancelled mid-operation.
func (e *Engine) update(ctx context.Context, op string, fn func(*txn) error) error {
	log := e.logger.With("op", op, "op_id", e.ids.Generate())

	token, ok, err := e.locker.Acquire(ctx, e.lockKey)
	if err != nil || !ok {
		log.Warn("state lock not acquired", "error", err)
		return NewBusyError(op, err)
	}
	defer func() {
		if rerr := e.locker.Release(context.WithoutCancel(ctx), e.lockKey, token); rerr != nil {
			log.Error("state lock release failed", "error", rerr)
		}
	}()

	err = e.store.Update(ctx, func(tx *store.Tx) error {
		return fn(&txn{ctx: ctx, tx: tx, op: op, log: log, e: e})
	})
	if err != nil {
		err = asEngineError(op, err)
		if CodeOf(err) == ErrCodeStorage {
			log.Error("operation rolled back", "error", err)
		} else {
			log.Debug("operation rejected", "code", CodeOf(err), "error", err)
		}
		return err
	}
	log.Debug("operation committed")
	return nil
}

// view runs fn in a store transaction that is never committed. The engine
// lock is not taken.
func (e *Engine) view(ctx context.Context, op string, fn func(*txn) error) error {
	err := e.store.View(ctx, func(tx *store.Tx) error {
		return fn(&txn{ctx: ctx, tx: tx, op: op, log: e.logger, e: e})
	})
	return asEngineError(op, err)
}

// user loads a user, mapping a missing row to NotFound.
func (t *txn) user(id model.UserID) (model.User, error) {
	u, err := t.tx.GetUser(t.ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, NewNotFoundError(t.op, "user", id)
	}
	return u, err
}

func (t *txn) card(id model.CardID) (model.Card, error) {
	c, err := t.tx.GetCard(t.ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Card{}, NewNotFoundError(t.op, "card", id)
	}
	return c, err
}

func (t *txn) trade(id model.TradeID) (model.Trade, error) {
	tr, err := t.tx.GetTrade(t.ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Trade{}, NewNotFoundError(t.op, "trade", id)
	}
	return tr, err
}
