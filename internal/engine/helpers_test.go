package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/courtside/internal/model"
	"github.com/roach88/courtside/internal/store"
)

var testNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// newTestEngine returns an engine over a fresh in-memory store holding
// cards 1..20.
func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{WithNow(func() time.Time { return testNow })}, opts...)
	e, err := New(context.Background(), st, opts...)
	require.NoError(t, err)

	cards := make([]model.Card, 0, 20)
	for id := model.CardID(1); id <= 20; id++ {
		cards = append(cards, testCard(id))
	}
	_, err = e.LoadCatalog(context.Background(), cards)
	require.NoError(t, err)
	return e
}

func testCard(id model.CardID) model.Card {
	return model.Card{
		ID:       id,
		Name:     fmt.Sprintf("Player %d", id),
		Team:     "TST",
		Position: "G",
		Age:      20 + int(id),
		Stats:    model.Stats{GamesPlayed: 10, PointsPerGame: float64(id) + 0.5},
	}
}

// givenUser registers name and deals it cards.
func givenUser(t *testing.T, e *Engine, name string, cards ...model.CardID) model.UserID {
	t.Helper()
	ctx := context.Background()

	u, err := e.RegisterUser(ctx, name, 3)
	require.NoError(t, err)
	for _, c := range cards {
		added, err := e.AddCardToUser(ctx, u.ID, c)
		require.NoError(t, err)
		require.True(t, added, "deal card %d to %s", c, name)
	}
	return u.ID
}

func holding(t *testing.T, e *Engine, user model.UserID) model.CardSet {
	t.Helper()
	h, err := e.GetHolding(context.Background(), user)
	require.NoError(t, err)
	return h
}

func requireConsistent(t *testing.T, e *Engine) {
	t.Helper()
	v, err := e.CheckInvariants(context.Background())
	require.NoError(t, err)
	require.Empty(t, v)
}

func cs(ids ...model.CardID) model.CardSet {
	return model.NewCardSet(ids...)
}
