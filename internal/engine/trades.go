package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/courtside/internal/model"
	"github.com/roach88/courtside/internal/store"
)

// ConfirmResult reports what a Confirm call did.
type ConfirmResult struct {
	// Confirmed is true when the caller's side is confirmed after the call.
	// False means the confirmation was refused without mutation (capacity).
	Confirmed bool `json:"confirmed"`

	// Executed is true when this confirmation completed the trade and the
	// cards were swapped. The trade no longer exists.
	Executed bool `json:"executed"`

	// Invalidated is true when the trade turned out to be stale at
	// execution time and was deleted without a swap.
	Invalidated bool `json:"invalidated"`

	// State is the trade state after the call. Empty when the trade is gone.
	State model.TradeState `json:"state,omitempty"`
}

// CheckValidTrade reports whether both users currently hold what they would
// offer. It has no side effects; unknown users are NotFound.
func (e *Engine) CheckValidTrade(ctx context.Context, a model.UserID, offerA model.CardSet, b model.UserID, offerB model.CardSet) (bool, error) {
	var valid bool
	err := e.view(ctx, "check_valid_trade", func(t *txn) error {
		ua, err := t.user(a)
		if err != nil {
			return err
		}
		ub, err := t.user(b)
		if err != nil {
			return err
		}
		valid = holdsOffer(ua.Holding, model.NewCardSet(offerA...)) &&
			holdsOffer(ub.Holding, model.NewCardSet(offerB...))
		return nil
	})
	return valid, err
}

// ProposeTrade records a new trade with both sides unconfirmed and registers
// it in both users' pending trades.
//
// The proposal is rejected (InvalidOperation) when it is malformed or either
// user does not hold the offered cards. An identical live proposal is a
// Conflict whose Details carry the existing trade id.
func (e *Engine) ProposeTrade(ctx context.Context, a model.UserID, offerA model.CardSet, b model.UserID, offerB model.CardSet) (model.Trade, error) {
	offerA = model.NewCardSet(offerA...)
	offerB = model.NewCardSet(offerB...)

	var tr model.Trade
	err := e.update(ctx, "propose_trade", func(t *txn) error {
		if err := validateProposal(a, offerA, b, offerB); err != nil {
			return NewInvalidOperationError(t.op, err.Error())
		}

		ua, err := t.user(a)
		if err != nil {
			return err
		}
		ub, err := t.user(b)
		if err != nil {
			return err
		}
		if !holdsOffer(ua.Holding, offerA) {
			return NewInvalidOperationError(t.op, fmt.Sprintf("user %d does not hold %v", a, offerA))
		}
		if !holdsOffer(ub.Holding, offerB) {
			return NewInvalidOperationError(t.op, fmt.Sprintf("user %d does not hold %v", b, offerB))
		}

		key, err := model.TradeKey(a, offerA, b, offerB)
		if err != nil {
			return err
		}
		existing, err := t.tx.GetTradeByKey(ctx, key)
		switch {
		case err == nil:
			return duplicateProposal(t.op, existing.ID)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		tr = model.Trade{
			Key: key,
			Seq: e.clock.Next(),
			A:   model.TradeSide{User: a, Offer: offerA},
			B:   model.TradeSide{User: b, Offer: offerB},
		}
		if tr.ID, err = t.tx.InsertTrade(ctx, tr); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return duplicateProposal(t.op, 0)
			}
			return err
		}

		for _, u := range []*model.User{&ua, &ub} {
			u.AddPending(tr.ID)
			if err := t.tx.UpdateUser(ctx, *u); err != nil {
				return err
			}
		}

		t.log.Info("trade proposed", "trade", tr.ID, "user_a", a, "user_b", b, "seq", tr.Seq)
		return nil
	})
	if err != nil {
		return model.Trade{}, err
	}
	return tr, nil
}

func duplicateProposal(op string, existing model.TradeID) *Error {
	err := NewConflictError(op, "an identical trade is already pending")
	if existing != 0 {
		err.Details = map[string]string{"trade": fmt.Sprint(existing)}
	}
	return err
}

// Confirm records user's agreement to trade id.
//
// The caller must be a party (InvalidOperation otherwise). Confirmation is
// refused without mutation when the caller's hand could not take the
// counterparty's offer. When the counterparty has already confirmed, the
// trade executes within the same operation: it either swaps the cards, is
// deleted as stale, or (on overflow) is left exactly as it was.
//
// Confirming an already confirmed side is a no-op.
func (e *Engine) Confirm(ctx context.Context, user model.UserID, id model.TradeID) (ConfirmResult, error) {
	var res ConfirmResult
	err := e.update(ctx, "confirm", func(t *txn) error {
		tr, err := t.trade(id)
		if err != nil {
			return err
		}
		side, ok := tr.SideOf(user)
		if !ok {
			return notAParty(t.op, user, id)
		}

		me, counter := tr.Side(side), tr.Counter(side)
		if me.Confirmed {
			res = ConfirmResult{Confirmed: true, State: tr.State()}
			return nil
		}

		u, err := t.user(user)
		if err != nil {
			return err
		}
		if !fitsHand(u.Holding.Len(), counter.Offer.Len(), e.maxHand) {
			t.log.Debug("confirmation refused, hand would overflow",
				"trade", id, "user", user, "size", u.Holding.Len(), "incoming", counter.Offer.Len())
			res = ConfirmResult{State: tr.State()}
			return nil
		}

		me.Confirmed = true
		if counter.Confirmed {
			v, err := t.execute(tr)
			if err != nil {
				return err
			}
			switch v {
			case verdictReady:
				res = ConfirmResult{Confirmed: true, Executed: true}
			case verdictStale:
				res = ConfirmResult{Invalidated: true}
			default:
				tr.Side(side).Confirmed = false
				res = ConfirmResult{State: tr.State()}
			}
			return nil
		}

		tr.Seq = e.clock.Next()
		if err := t.tx.UpdateTrade(ctx, tr); err != nil {
			return err
		}
		t.log.Info("trade confirmed", "trade", id, "user", user, "side", side, "seq", tr.Seq)
		res = ConfirmResult{Confirmed: true, State: tr.State()}
		return nil
	})
	return res, err
}

// Unconfirm clears user's confirmation of trade id. Unconfirming an
// unconfirmed side is a no-op.
func (e *Engine) Unconfirm(ctx context.Context, user model.UserID, id model.TradeID) error {
	return e.update(ctx, "unconfirm", func(t *txn) error {
		tr, err := t.trade(id)
		if err != nil {
			return err
		}
		side, ok := tr.SideOf(user)
		if !ok {
			return notAParty(t.op, user, id)
		}
		me := tr.Side(side)
		if !me.Confirmed {
			return nil
		}
		me.Confirmed = false
		tr.Seq = e.clock.Next()
		if err := t.tx.UpdateTrade(ctx, tr); err != nil {
			return err
		}
		t.log.Info("trade unconfirmed", "trade", id, "user", user, "seq", tr.Seq)
		return nil
	})
}

// ExecuteTrade re-validates trade id and swaps the offered cards.
//
// Returns false without mutation when either side is unconfirmed or a hand
// would overflow. A trade whose offers are no longer held is deleted and
// false is returned. Confirm calls this path itself once both sides agree.
func (e *Engine) ExecuteTrade(ctx context.Context, id model.TradeID) (bool, error) {
	var executed bool
	err := e.update(ctx, "execute_trade", func(t *txn) error {
		tr, err := t.trade(id)
		if err != nil {
			return err
		}
		v, err := t.execute(tr)
		executed = v == verdictReady
		return err
	})
	return executed, err
}

// CancelTrade deletes trade id without moving cards. Cancelling a trade
// that is already gone is NotFound and changes nothing.
func (e *Engine) CancelTrade(ctx context.Context, id model.TradeID) error {
	return e.update(ctx, "cancel_trade", func(t *txn) error {
		tr, err := t.trade(id)
		if err != nil {
			return err
		}
		return t.deleteTrade(tr, "cancelled")
	})
}

// GetTrade returns live trade id, or NotFound.
func (e *Engine) GetTrade(ctx context.Context, id model.TradeID) (model.Trade, error) {
	var tr model.Trade
	err := e.view(ctx, "get_trade", func(t *txn) error {
		var err error
		tr, err = t.trade(id)
		return err
	})
	return tr, err
}

// ListTrades returns every live trade ordered by id.
func (e *Engine) ListTrades(ctx context.Context) ([]model.Trade, error) {
	var trades []model.Trade
	err := e.view(ctx, "list_trades", func(t *txn) error {
		var err error
		trades, err = t.tx.ListTrades(ctx)
		return err
	})
	return trades, err
}

func notAParty(op string, user model.UserID, id model.TradeID) *Error {
	err := NewInvalidOperationError(op, fmt.Sprintf("user %d is not a party to trade %d", user, id))
	err.Details = map[string]string{"user": fmt.Sprint(user), "trade": fmt.Sprint(id)}
	return err
}

// execute assesses tr (with in-memory confirmation flags) and acts on the
// verdict. Only a ready or stale verdict mutates state.
func (t *txn) execute(tr model.Trade) (verdict, error) {
	ua, err := t.user(tr.A.User)
	if err != nil {
		return verdictStale, err
	}
	ub, err := t.user(tr.B.User)
	if err != nil {
		return verdictStale, err
	}

	v := assess(tr, ua, ub, t.e.maxHand)
	switch v {
	case verdictStale:
		return v, t.deleteTrade(tr, "stale at execution")
	case verdictReady:
		return v, t.swap(tr)
	default:
		t.log.Debug("trade not executed", "trade", tr.ID, "verdict", v.String())
		return v, nil
	}
}

// swap deletes tr, then moves side A's cards to B and side B's cards to A,
// each card removed from its holder before it is added to the receiver.
// Removal cascades to the holders' other trades over the same cards.
func (t *txn) swap(tr model.Trade) error {
	if err := t.deleteTrade(tr, "executed"); err != nil {
		return err
	}

	moves := []struct {
		from, to model.UserID
		cards    model.CardSet
	}{
		{tr.A.User, tr.B.User, tr.A.Offer},
		{tr.B.User, tr.A.User, tr.B.Offer},
	}
	for _, m := range moves {
		for _, card := range m.cards {
			if err := t.removeCard(m.from, card); err != nil {
				return err
			}
			added, err := t.addCard(m.to, card)
			if err != nil {
				return err
			}
			if !added {
				return fmt.Errorf("trade %d: card %d could not be moved to user %d", tr.ID, card, m.to)
			}
		}
	}

	t.log.Info("trade executed", "trade", tr.ID, "user_a", tr.A.User, "user_b", tr.B.User)
	return nil
}
