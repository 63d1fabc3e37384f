package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/roach88/courtside/internal/model"
)

// sideView is one half of a trade with the user shown by name.
type sideView struct {
	User      string        `json:"user"`
	Offer     model.CardSet `json:"offer"`
	Confirmed bool          `json:"confirmed"`
}

// tradeView is the CLI rendering of a live trade.
type tradeView struct {
	ID    model.TradeID    `json:"id"`
	Seq   int64            `json:"seq"`
	State model.TradeState `json:"state"`
	A     sideView         `json:"a"`
	B     sideView         `json:"b"`
}

// userView is the CLI rendering of a user.
type userView struct {
	ID       model.UserID    `json:"id"`
	Name     string          `json:"name"`
	Access   int             `json:"access"`
	LastSeen time.Time       `json:"last_seen"`
	Holding  model.CardSet   `json:"holding"`
	Pending  []model.TradeID `json:"pending_trades"`
}

// names maps user ids to names for rendering trades.
type names map[model.UserID]string

func (s *session) names() (names, error) {
	users, err := s.engine.ListUsers(s.ctx)
	if err != nil {
		return nil, err
	}
	n := make(names, len(users))
	for _, u := range users {
		n[u.ID] = u.Name
	}
	return n, nil
}

func (n names) of(id model.UserID) string {
	if name, ok := n[id]; ok {
		return name
	}
	return fmt.Sprintf("user#%d", id)
}

func (n names) trade(tr model.Trade) tradeView {
	return tradeView{
		ID:    tr.ID,
		Seq:   tr.Seq,
		State: tr.State(),
		A:     sideView{User: n.of(tr.A.User), Offer: model.NewCardSet(tr.A.Offer...), Confirmed: tr.A.Confirmed},
		B:     sideView{User: n.of(tr.B.User), Offer: model.NewCardSet(tr.B.Offer...), Confirmed: tr.B.Confirmed},
	}
}

func (n names) trades(trades []model.Trade) []tradeView {
	views := make([]tradeView, 0, len(trades))
	for _, tr := range trades {
		views = append(views, n.trade(tr))
	}
	return views
}

func newUserView(u model.User) userView {
	pending := u.PendingTrades
	if pending == nil {
		pending = []model.TradeID{}
	}
	return userView{
		ID:       u.ID,
		Name:     u.Name,
		Access:   u.Access,
		LastSeen: u.LastSeen,
		Holding:  model.NewCardSet(u.Holding...),
		Pending:  pending,
	}
}

func writeCards(w io.Writer, cards []model.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No cards.")
		return
	}
	for _, c := range cards {
		writeCardLine(w, c)
	}
}

func writeCardLine(w io.Writer, c model.Card) {
	status := "available"
	if c.Owned {
		status = "owned"
	}
	fmt.Fprintf(w, "%4d  %-24s %-4s %-3s %s\n", c.ID, c.Name, c.Team, c.Position, status)
}

func writeCard(w io.Writer, c model.Card) {
	writeCardLine(w, c)
	s := c.Stats
	fmt.Fprintf(w, "      age %d, %d games, %.1f min\n", c.Age, s.GamesPlayed, s.MinutesPerGame)
	fmt.Fprintf(w, "      %.1f pts  %.1f reb  %.1f ast  %.1f stl  %.1f blk\n",
		s.PointsPerGame, s.ReboundsPerGame, s.AssistsPerGame, s.StealsPerGame, s.BlocksPerGame)
	fmt.Fprintf(w, "      ft %.3f  2p %.3f  3p %.3f  ts %.3f\n",
		s.FreeThrowPct, s.TwoPointPct, s.ThreePointPct, s.ShootingPct)
}

func writeTradeLine(w io.Writer, t tradeView) {
	fmt.Fprintf(w, "#%-4d %-14s %s %v%s  <->  %s %v%s  (seq %d)\n",
		t.ID, t.State,
		t.A.User, []model.CardID(t.A.Offer), confirmMark(t.A.Confirmed),
		t.B.User, []model.CardID(t.B.Offer), confirmMark(t.B.Confirmed),
		t.Seq)
}

func writeTrades(w io.Writer, trades []tradeView) {
	if len(trades) == 0 {
		fmt.Fprintln(w, "No pending trades.")
		return
	}
	for _, t := range trades {
		writeTradeLine(w, t)
	}
}

func confirmMark(confirmed bool) string {
	if confirmed {
		return " ✓"
	}
	return ""
}

func writeUserLine(w io.Writer, u userView) {
	fmt.Fprintf(w, "%4d  %-16s access %d  %d card(s)  %d trade(s)  last seen %s\n",
		u.ID, u.Name, u.Access, len(u.Holding), len(u.Pending), u.LastSeen.Format(time.RFC3339))
}
