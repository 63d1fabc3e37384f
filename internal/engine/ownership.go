package engine

import (
	"context"
	"fmt"

	"github.com/roach88/courtside/internal/model"
)

// AddCardToUser gives an unowned card to a user.
//
// Returns false with no mutation when the card is already owned or the
// user's hand is full. On success the card is marked owned and the user's
// side of every pending trade is unconfirmed, since the hand it was
// confirmed against has changed. Counterparties keep their confirmations.
func (e *Engine) AddCardToUser(ctx context.Context, user model.UserID, card model.CardID) (bool, error) {
	var added bool
	err := e.update(ctx, "add_card_to_user", func(t *txn) error {
		var err error
		added, err = t.addCard(user, card)
		return err
	})
	return added, err
}

// RemoveCardFromUser takes a held card away from a user.
//
// The card becomes unowned and every pending trade of the user whose offer
// contains it is deleted. Removing a card the user does not hold is an
// InvalidOperation.
func (e *Engine) RemoveCardFromUser(ctx context.Context, user model.UserID, card model.CardID) error {
	return e.update(ctx, "remove_card_from_user", func(t *txn) error {
		return t.removeCard(user, card)
	})
}

// GetHolding returns the cards held by user.
func (e *Engine) GetHolding(ctx context.Context, user model.UserID) (model.CardSet, error) {
	var holding model.CardSet
	err := e.view(ctx, "get_holding", func(t *txn) error {
		u, err := t.user(user)
		if err != nil {
			return err
		}
		holding = u.Holding
		return nil
	})
	return holding, err
}

// UnconfirmAll clears the user's confirmation on every pending trade and
// returns how many flags changed.
func (e *Engine) UnconfirmAll(ctx context.Context, user model.UserID) (int, error) {
	var n int
	err := e.update(ctx, "unconfirm_all", func(t *txn) error {
		u, err := t.user(user)
		if err != nil {
			return err
		}
		n, err = t.unconfirmPending(u)
		return err
	})
	return n, err
}

func (t *txn) addCard(userID model.UserID, cardID model.CardID) (bool, error) {
	u, err := t.user(userID)
	if err != nil {
		return false, err
	}
	c, err := t.card(cardID)
	if err != nil {
		return false, err
	}

	if c.Owned {
		t.log.Debug("card already owned", "user", userID, "card", cardID)
		return false, nil
	}
	if !fitsHand(u.Holding.Len(), 1, t.e.maxHand) {
		t.log.Debug("hand full", "user", userID, "size", u.Holding.Len(), "max_hand", t.e.maxHand)
		return false, nil
	}

	u.Holding = u.Holding.Add(cardID)
	if err := t.tx.UpdateUser(t.ctx, u); err != nil {
		return false, err
	}
	if err := t.tx.SetCardOwned(t.ctx, cardID, true); err != nil {
		return false, err
	}
	if _, err := t.unconfirmPending(u); err != nil {
		return false, err
	}

	t.log.Info("card added", "user", userID, "card", cardID)
	return true, nil
}

func (t *txn) removeCard(userID model.UserID, cardID model.CardID) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	if !u.Holding.Contains(cardID) {
		return NewInvalidOperationError(t.op, fmt.Sprintf("user %d does not hold card %d", userID, cardID))
	}
	if _, err := t.card(cardID); err != nil {
		return err
	}

	pending, err := t.pendingTrades(u)
	if err != nil {
		return err
	}

	u.Holding = u.Holding.Remove(cardID)
	if err := t.tx.UpdateUser(t.ctx, u); err != nil {
		return err
	}
	if err := t.tx.SetCardOwned(t.ctx, cardID, false); err != nil {
		return err
	}

	for _, tr := range pending {
		if !tr.Involves(cardID) {
			continue
		}
		if err := t.deleteTrade(tr, "offered card removed"); err != nil {
			return err
		}
	}

	t.log.Info("card removed", "user", userID, "card", cardID)
	return nil
}

// unconfirmPending clears u's side on each of u's pending trades.
func (t *txn) unconfirmPending(u model.User) (int, error) {
	pending, err := t.pendingTrades(u)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, tr := range pending {
		side, ok := tr.SideOf(u.ID)
		if !ok {
			return n, fmt.Errorf("trade %d listed as pending for user %d who is not a party", tr.ID, u.ID)
		}
		me := tr.Side(side)
		if !me.Confirmed {
			continue
		}
		me.Confirmed = false
		tr.Seq = t.e.clock.Next()
		if err := t.tx.UpdateTrade(t.ctx, tr); err != nil {
			return n, err
		}
		t.log.Debug("trade unconfirmed", "trade", tr.ID, "user", u.ID, "seq", tr.Seq)
		n++
	}
	return n, nil
}

// pendingTrades loads u's pending trades. A listed id with no trade behind
// it is corruption, not NotFound, so the raw store error is kept.
func (t *txn) pendingTrades(u model.User) ([]model.Trade, error) {
	trades := make([]model.Trade, 0, len(u.PendingTrades))
	for _, id := range u.PendingTrades {
		tr, err := t.tx.GetTrade(t.ctx, id)
		if err != nil {
			return nil, fmt.Errorf("pending trade %d of user %d: %w", id, u.ID, err)
		}
		trades = append(trades, tr)
	}
	return trades, nil
}

// deleteTrade removes tr and unregisters it from both parties.
func (t *txn) deleteTrade(tr model.Trade, reason string) error {
	if err := t.tx.DeleteTrade(t.ctx, tr.ID); err != nil {
		return err
	}
	for _, id := range []model.UserID{tr.A.User, tr.B.User} {
		u, err := t.user(id)
		if err != nil {
			return err
		}
		u.RemovePending(tr.ID)
		if err := t.tx.UpdateUser(t.ctx, u); err != nil {
			return err
		}
	}
	t.log.Info("trade deleted", "trade", tr.ID, "reason", reason)
	return nil
}
