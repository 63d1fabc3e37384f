package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/courtside/internal/model"
)

func TestAddCardToUser(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck")

	added, err := e.AddCardToUser(ctx, a, 5)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, cs(5), holding(t, e, a))

	c, err := e.GetCard(ctx, 5)
	require.NoError(t, err)
	assert.True(t, c.Owned)
	requireConsistent(t, e)
}

func TestAddCardToUser_AlreadyOwned(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	givenUser(t, e, "chuck", 5)
	b := givenUser(t, e, "nolan")

	added, err := e.AddCardToUser(ctx, b, 5)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, holding(t, e, b))
	requireConsistent(t, e)
}

func TestAddCardToUser_HandFull(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2, 3, 4, 5)

	added, err := e.AddCardToUser(ctx, a, 6)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, cs(1, 2, 3, 4, 5), holding(t, e, a))

	c, err := e.GetCard(ctx, 6)
	require.NoError(t, err)
	assert.False(t, c.Owned)
}

func TestAddCardToUser_RespectsConfiguredMax(t *testing.T) {
	e := newTestEngine(t, WithMaxHand(2))
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2)

	added, err := e.AddCardToUser(ctx, a, 3)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestAddCardToUser_UnknownIDs(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck")

	_, err := e.AddCardToUser(ctx, a, 999)
	assert.True(t, IsNotFound(err))
	_, err = e.AddCardToUser(ctx, 999, 1)
	assert.True(t, IsNotFound(err))
}

func TestAddCardToUser_UnconfirmsOwnSideOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2, 3)
	b := givenUser(t, e, "nolan", 4, 5, 6)
	c := givenUser(t, e, "dean", 7)

	t1, err := e.ProposeTrade(ctx, a, cs(2), b, cs(4))
	require.NoError(t, err)
	t2, err := e.ProposeTrade(ctx, c, cs(7), b, cs(5))
	require.NoError(t, err)

	_, err = e.Confirm(ctx, a, t1.ID)
	require.NoError(t, err)
	_, err = e.Confirm(ctx, c, t2.ID)
	require.NoError(t, err)

	added, err := e.AddCardToUser(ctx, a, 10)
	require.NoError(t, err)
	require.True(t, added)

	got, err := e.GetTrade(ctx, t1.ID)
	require.NoError(t, err)
	assert.False(t, got.A.Confirmed, "chuck's confirmation is reset")
	assert.Equal(t, model.TradeProposed, got.State())

	other, err := e.GetTrade(ctx, t2.ID)
	require.NoError(t, err)
	assert.True(t, other.A.Confirmed, "trades chuck is not part of are untouched")
}

func TestAddCardToUser_CounterpartyKeepsConfirmation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2, 3)
	b := givenUser(t, e, "nolan", 4, 5, 6)

	tr, err := e.ProposeTrade(ctx, a, cs(2), b, cs(4))
	require.NoError(t, err)
	_, err = e.Confirm(ctx, a, tr.ID)
	require.NoError(t, err)

	_, err = e.AddCardToUser(ctx, b, 11)
	require.NoError(t, err)

	got, err := e.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, got.A.Confirmed)
	assert.False(t, got.B.Confirmed)
}

func TestRemoveCardFromUser(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2)

	require.NoError(t, e.RemoveCardFromUser(ctx, a, 1))
	assert.Equal(t, cs(2), holding(t, e, a))

	c, err := e.GetCard(ctx, 1)
	require.NoError(t, err)
	assert.False(t, c.Owned)

	err = e.RemoveCardFromUser(ctx, a, 1)
	assert.True(t, IsInvalidOperation(err), "card no longer held")
	requireConsistent(t, e)
}

func TestRemoveCardFromUser_DeletesTradesOfferingIt(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2, 3)
	b := givenUser(t, e, "nolan", 4, 5)

	offering2, err := e.ProposeTrade(ctx, a, cs(2), b, cs(4))
	require.NoError(t, err)
	offering3, err := e.ProposeTrade(ctx, a, cs(3), b, cs(5))
	require.NoError(t, err)

	require.NoError(t, e.RemoveCardFromUser(ctx, a, 2))

	_, err = e.GetTrade(ctx, offering2.ID)
	assert.True(t, IsNotFound(err))
	_, err = e.GetTrade(ctx, offering3.ID)
	assert.NoError(t, err)

	for _, id := range []model.UserID{a, b} {
		u, err := e.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []model.TradeID{offering3.ID}, u.PendingTrades)
	}
	requireConsistent(t, e)
}

func TestUnconfirmAll(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2)
	b := givenUser(t, e, "nolan", 4, 5)

	t1, err := e.ProposeTrade(ctx, a, cs(1), b, cs(4))
	require.NoError(t, err)
	t2, err := e.ProposeTrade(ctx, a, cs(2), b, cs(5))
	require.NoError(t, err)
	_, err = e.Confirm(ctx, a, t1.ID)
	require.NoError(t, err)
	_, err = e.Confirm(ctx, b, t2.ID)
	require.NoError(t, err)

	n, err := e.UnconfirmAll(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.GetTrade(ctx, t2.ID)
	require.NoError(t, err)
	assert.True(t, got.B.Confirmed)

	n, err = e.UnconfirmAll(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, n)
}
