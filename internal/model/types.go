package model

import "time"

// CardID identifies a card in the catalog.
type CardID int64

// UserID identifies a registered user.
type UserID int64

// TradeID identifies a live trade.
type TradeID int64

// DefaultMaxHand is the hand size used when the engine is not configured otherwise.
const DefaultMaxHand = 5

// Stats holds the season statistics printed on a card.
// Stats are immutable once the catalog is loaded.
type Stats struct {
	GamesPlayed        int     `json:"games_played"`
	MinutesPerGame     float64 `json:"minutes_per_game"`
	FreeThrowAttempts  float64 `json:"free_throw_attempts"`
	FreeThrowPct       float64 `json:"free_throw_pct"`
	TwoPointAttempts   float64 `json:"two_point_attempts"`
	TwoPointPct        float64 `json:"two_point_pct"`
	ThreePointAttempts float64 `json:"three_point_attempts"`
	ThreePointPct      float64 `json:"three_point_pct"`
	ShootingPct        float64 `json:"shooting_pct"`
	PointsPerGame      float64 `json:"points_per_game"`
	ReboundsPerGame    float64 `json:"rebounds_per_game"`
	AssistsPerGame     float64 `json:"assists_per_game"`
	StealsPerGame      float64 `json:"steals_per_game"`
	BlocksPerGame      float64 `json:"blocks_per_game"`
}

// Card is a catalog record.
//
// Owned is a cached flag: it is true iff exactly one user's holding contains
// the card. Only the ownership operations of the engine change it.
type Card struct {
	ID       CardID `json:"id"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Position string `json:"position"`
	Age      int    `json:"age"`
	Stats    Stats  `json:"stats"`
	Image    string `json:"image,omitempty"`
	Owned    bool   `json:"owned"`
}

// SameRecord reports whether two cards carry identical catalog data.
// The Owned flag is ignored.
func (c Card) SameRecord(other Card) bool {
	c.Owned = false
	other.Owned = false
	return c == other
}

// User is a registered collector.
type User struct {
	ID            UserID    `json:"id"`
	Name          string    `json:"name"`
	Access        int       `json:"access"`
	LastSeen      time.Time `json:"last_seen"`
	Holding       CardSet   `json:"holding"`
	PendingTrades []TradeID `json:"pending_trades"`
}

// HasPending reports whether id is registered in the user's pending trades.
func (u User) HasPending(id TradeID) bool {
	for _, t := range u.PendingTrades {
		if t == id {
			return true
		}
	}
	return false
}

// AddPending appends id to the pending trades if absent.
func (u *User) AddPending(id TradeID) {
	if !u.HasPending(id) {
		u.PendingTrades = append(u.PendingTrades, id)
	}
}

// RemovePending drops id from the pending trades, keeping the remaining order.
func (u *User) RemovePending(id TradeID) {
	out := u.PendingTrades[:0]
	for _, t := range u.PendingTrades {
		if t != id {
			out = append(out, t)
		}
	}
	u.PendingTrades = out
}

// TradeState is the derived lifecycle state of a live trade.
type TradeState string

const (
	TradeProposed      TradeState = "PROPOSED"
	TradeOneConfirmed  TradeState = "ONE_CONFIRMED"
	TradeBothConfirmed TradeState = "BOTH_CONFIRMED"
)

// Side identifies one half of a trade.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// TradeSide is one party's half of a trade: who offers what, and whether
// they have agreed.
type TradeSide struct {
	User      UserID  `json:"user"`
	Offer     CardSet `json:"offer"`
	Confirmed bool    `json:"confirmed"`
}

// Trade is a live two-party barter proposal.
// Executed and cancelled trades are deleted, never stored in a final state.
type Trade struct {
	ID  TradeID   `json:"id"`
	Key string    `json:"key"`
	Seq int64     `json:"seq"`
	A   TradeSide `json:"a"`
	B   TradeSide `json:"b"`
}

// State derives the lifecycle state from the confirmation flags.
func (t Trade) State() TradeState {
	switch {
	case t.A.Confirmed && t.B.Confirmed:
		return TradeBothConfirmed
	case t.A.Confirmed || t.B.Confirmed:
		return TradeOneConfirmed
	default:
		return TradeProposed
	}
}

// SideOf returns which side user is on. ok is false when the user is not a party.
func (t Trade) SideOf(user UserID) (side Side, ok bool) {
	switch user {
	case t.A.User:
		return SideA, true
	case t.B.User:
		return SideB, true
	}
	return "", false
}

// Side returns a pointer to the requested half so callers can mutate it.
func (t *Trade) Side(s Side) *TradeSide {
	if s == SideA {
		return &t.A
	}
	return &t.B
}

// Counter returns the half opposite to s.
func (t *Trade) Counter(s Side) *TradeSide {
	if s == SideA {
		return &t.B
	}
	return &t.A
}

// Involves reports whether either offer contains card.
func (t Trade) Involves(card CardID) bool {
	return t.A.Offer.Contains(card) || t.B.Offer.Contains(card)
}
