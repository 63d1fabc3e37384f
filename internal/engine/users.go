package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/courtside/internal/model"
	"github.com/roach88/courtside/internal/store"
)

// RegisterUser creates a user with an empty holding.
// The name is normalized; an empty name is rejected and a taken name is a
// Conflict.
func (e *Engine) RegisterUser(ctx context.Context, name string, access int) (model.User, error) {
	var u model.User
	err := e.update(ctx, "register_user", func(t *txn) error {
		name := model.NormalizeName(name)
		if name == "" {
			return NewInvalidOperationError(t.op, "user name is empty")
		}
		if access < 0 {
			return NewInvalidOperationError(t.op, fmt.Sprintf("access level %d is negative", access))
		}

		var err error
		u, err = t.tx.InsertUser(ctx, name, access, e.now())
		if errors.Is(err, store.ErrConflict) {
			return NewConflictError(t.op, fmt.Sprintf("user name %q already taken", name))
		}
		if err != nil {
			return err
		}
		t.log.Info("user registered", "user", u.ID, "name", u.Name)
		return nil
	})
	return u, err
}

// GetUser returns the user with id, or a NotFound error.
func (e *Engine) GetUser(ctx context.Context, id model.UserID) (model.User, error) {
	var u model.User
	err := e.view(ctx, "get_user", func(t *txn) error {
		var err error
		u, err = t.user(id)
		return err
	})
	return u, err
}

// GetUserByName looks a user up by normalized name.
func (e *Engine) GetUserByName(ctx context.Context, name string) (model.User, error) {
	var u model.User
	err := e.view(ctx, "get_user_by_name", func(t *txn) error {
		var err error
		u, err = t.tx.GetUserByName(ctx, model.NormalizeName(name))
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFoundError(t.op, "user", name)
		}
		return err
	})
	return u, err
}

// ListUsers returns every user ordered by id.
func (e *Engine) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := e.view(ctx, "list_users", func(t *txn) error {
		var err error
		users, err = t.tx.ListUsers(ctx)
		return err
	})
	return users, err
}

// UserExists reports whether a user with the normalized name is registered.
func (e *Engine) UserExists(ctx context.Context, name string) (bool, error) {
	_, err := e.GetUserByName(ctx, name)
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// UserCards returns the catalog records of the cards id holds, ordered by id.
func (e *Engine) UserCards(ctx context.Context, id model.UserID) ([]model.Card, error) {
	var cards []model.Card
	err := e.view(ctx, "user_cards", func(t *txn) error {
		u, err := t.user(id)
		if err != nil {
			return err
		}
		cards = make([]model.Card, 0, u.Holding.Len())
		for _, cid := range u.Holding {
			c, err := t.card(cid)
			if err != nil {
				return err
			}
			cards = append(cards, c)
		}
		return nil
	})
	return cards, err
}

// UserTrades returns the live trades listed in id's pending trades, in the
// order they were registered.
func (e *Engine) UserTrades(ctx context.Context, id model.UserID) ([]model.Trade, error) {
	var trades []model.Trade
	err := e.view(ctx, "user_trades", func(t *txn) error {
		u, err := t.user(id)
		if err != nil {
			return err
		}
		trades = make([]model.Trade, 0, len(u.PendingTrades))
		for _, tid := range u.PendingTrades {
			tr, err := t.trade(tid)
			if err != nil {
				return err
			}
			trades = append(trades, tr)
		}
		return nil
	})
	return trades, err
}

// TouchUser stamps the user's last-seen time with the engine's wall clock.
func (e *Engine) TouchUser(ctx context.Context, id model.UserID) (model.User, error) {
	var u model.User
	err := e.update(ctx, "touch_user", func(t *txn) error {
		var err error
		if u, err = t.user(id); err != nil {
			return err
		}
		u.LastSeen = e.now().UTC().Truncate(time.Millisecond)
		return t.tx.UpdateUser(ctx, u)
	})
	return u, err
}
