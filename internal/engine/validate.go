package engine

import (
	"errors"

	"github.com/roach88/courtside/internal/model"
)

// holdsOffer reports whether holding still contains every offered card.
func holdsOffer(holding, offer model.CardSet) bool {
	return holding.ContainsAll(offer)
}

// fitsHand reports whether a hand of size can take incoming more cards.
// Outgoing cards are not subtracted: during a swap the incoming cards can
// arrive before the outgoing ones leave.
func fitsHand(size, incoming, maxHand int) bool {
	return size+incoming <= maxHand
}

// validateProposal checks the shape of a proposal, independent of state.
func validateProposal(a model.UserID, offerA model.CardSet, b model.UserID, offerB model.CardSet) error {
	switch {
	case a == b:
		return errors.New("a user cannot trade with themselves")
	case offerA.Len() == 0 && offerB.Len() == 0:
		return errors.New("both offers are empty")
	case !offerA.Disjoint(offerB):
		return errors.New("a card appears on both sides")
	}
	for _, id := range append(offerA.Int64s(), offerB.Int64s()...) {
		if id <= 0 {
			return errors.New("offers must contain positive card ids")
		}
	}
	return nil
}

// verdict is the outcome of assessing a trade for execution.
type verdict int

const (
	verdictReady verdict = iota
	verdictStale
	verdictNotConfirmed
	verdictOverflow
)

func (v verdict) String() string {
	switch v {
	case verdictReady:
		return "ready"
	case verdictStale:
		return "stale"
	case verdictNotConfirmed:
		return "not_confirmed"
	case verdictOverflow:
		return "overflow"
	}
	return "unknown"
}

// assess decides whether tr can execute against the current holdings of its
// two parties. Staleness is checked first so a stale trade is reported as
// stale even when it is also unconfirmed.
func assess(tr model.Trade, a, b model.User, maxHand int) verdict {
	switch {
	case !holdsOffer(a.Holding, tr.A.Offer) || !holdsOffer(b.Holding, tr.B.Offer):
		return verdictStale
	case !tr.A.Confirmed || !tr.B.Confirmed:
		return verdictNotConfirmed
	case !fitsHand(a.Holding.Len(), tr.B.Offer.Len(), maxHand),
		!fitsHand(b.Holding.Len(), tr.A.Offer.Len(), maxHand):
		return verdictOverflow
	}
	return verdictReady
}
