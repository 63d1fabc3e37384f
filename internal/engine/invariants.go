package engine

import (
	"context"
	"fmt"

	"github.com/roach88/courtside/internal/model"
)

// Violation kinds reported by CheckInvariants.
const (
	ViolationOwnedFlag       = "owned_flag"
	ViolationMultipleHolders = "multiple_holders"
	ViolationUnknownCard     = "unknown_card"
	ViolationHandSize        = "hand_size"
	ViolationOfferNotHeld    = "offer_not_held"
	ViolationOffersOverlap   = "offers_overlap"
	ViolationSelfTrade       = "self_trade"
	ViolationPendingMissing  = "pending_missing"
	ViolationPendingDangling = "pending_dangling"
	ViolationBothConfirmed   = "both_confirmed"
)

// Violation is one broken consistency rule.
type Violation struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Kind + ": " + v.Message
}

// CheckInvariants scans the full state and reports every rule it breaks.
// An empty result means the state is consistent. Nothing is modified.
func (e *Engine) CheckInvariants(ctx context.Context) ([]Violation, error) {
	violations := []Violation{}
	report := func(kind, format string, args ...any) {
		violations = append(violations, Violation{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	err := e.view(ctx, "check_invariants", func(t *txn) error {
		cards, err := t.tx.ListCards(ctx)
		if err != nil {
			return err
		}
		users, err := t.tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		trades, err := t.tx.ListTrades(ctx)
		if err != nil {
			return err
		}

		holders := make(map[model.CardID][]model.UserID)
		byUser := make(map[model.UserID]model.User, len(users))
		for _, u := range users {
			byUser[u.ID] = u
			if u.Holding.Len() > e.maxHand {
				report(ViolationHandSize, "user %d holds %d cards (max %d)", u.ID, u.Holding.Len(), e.maxHand)
			}
			for _, c := range u.Holding {
				holders[c] = append(holders[c], u.ID)
			}
		}

		known := make(map[model.CardID]bool, len(cards))
		for _, c := range cards {
			known[c.ID] = true
			n := len(holders[c.ID])
			if n > 1 {
				report(ViolationMultipleHolders, "card %d held by users %v", c.ID, holders[c.ID])
			}
			if c.Owned != (n == 1) {
				report(ViolationOwnedFlag, "card %d owned=%t but has %d holders", c.ID, c.Owned, n)
			}
		}
		for _, u := range users {
			for _, c := range u.Holding {
				if !known[c] {
					report(ViolationUnknownCard, "user %d holds unknown card %d", u.ID, c)
				}
			}
		}

		live := make(map[model.TradeID]bool, len(trades))
		for _, tr := range trades {
			live[tr.ID] = true
			if tr.A.User == tr.B.User {
				report(ViolationSelfTrade, "trade %d has user %d on both sides", tr.ID, tr.A.User)
			}
			if !tr.A.Offer.Disjoint(tr.B.Offer) {
				report(ViolationOffersOverlap, "trade %d offers overlap", tr.ID)
			}
			if tr.State() == model.TradeBothConfirmed {
				report(ViolationBothConfirmed, "trade %d is stored with both sides confirmed", tr.ID)
			}
			for _, side := range []model.TradeSide{tr.A, tr.B} {
				u := byUser[side.User]
				if !holdsOffer(u.Holding, side.Offer) {
					report(ViolationOfferNotHeld, "trade %d offers %v not held by user %d", tr.ID, side.Offer, side.User)
				}
				if !u.HasPending(tr.ID) {
					report(ViolationPendingMissing, "trade %d missing from pending trades of user %d", tr.ID, side.User)
				}
			}
		}
		for _, u := range users {
			for _, id := range u.PendingTrades {
				if !live[id] {
					report(ViolationPendingDangling, "user %d lists trade %d which does not exist", u.ID, id)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return violations, nil
}
