package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/courtside/internal/engine"
	"github.com/roach88/courtside/internal/model"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestDemo_Parses(t *testing.T) {
	f, err := Demo()
	require.NoError(t, err)

	assert.Len(t, f.Cards, 12)
	assert.Len(t, f.Users, 4)
	assert.Len(t, f.Trades, 2)

	first := f.Cards[0]
	assert.Equal(t, model.CardID(1), first.ID)
	assert.Equal(t, "PG", first.Position)
	assert.Equal(t, 71, first.Stats.GamesPlayed)
	assert.InDelta(t, 22.4, first.Stats.PointsPerGame, 1e-9)
	assert.False(t, first.Owned)

	assert.Equal(t, []model.CardID{1, 2, 3}, f.Users[0].Cards)
	assert.Equal(t, []string{"dean"}, f.Trades[1].Confirm)
}

func TestApply_Demo(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	f, err := Demo()
	require.NoError(t, err)

	res, err := Apply(ctx, e, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Cards: 12, Users: 4, Trades: 2}, res)

	chuck, err := e.GetUserByName(ctx, "chuck")
	require.NoError(t, err)
	assert.Equal(t, model.NewCardSet(1, 2, 3), chuck.Holding)
	assert.Len(t, chuck.PendingTrades, 1)

	trades, err := e.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, model.TradeProposed, trades[0].State())
	assert.Equal(t, model.TradeOneConfirmed, trades[1].State())
	assert.True(t, trades[1].A.Confirmed, "dean confirmed his own proposal")

	available, err := e.ListAvailableCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	v, err := e.CheckInvariants(ctx)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestApply_Idempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	f, err := Demo()
	require.NoError(t, err)

	_, err = Apply(ctx, e, f)
	require.NoError(t, err)
	res, err := Apply(ctx, e, f)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	trades, err := e.ListTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestApply_ConfirmCanExecute(t *testing.T) {
	e := newEngine(t)
	src := []byte(`
cards: [{id: 1, name: "A"}, {id: 2, name: "B"}]
users: [{name: "x", cards: [1]}, {name: "y", cards: [2]}]
trades: [{from: "x", offer: [1], to: "y", request: [2], confirm: ["x", "y"]}]
`)
	f, err := Parse("swap.cue", src)
	require.NoError(t, err)

	res, err := Apply(context.Background(), e, f)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Executed)

	x, err := e.GetUserByName(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, model.NewCardSet(2), x.Holding)
}

func TestApply_HandOverflowFails(t *testing.T) {
	e := newEngine(t)
	src := []byte(`
cards: [for i in [1, 2, 3, 4, 5, 6] {id: i, name: "P\(i)"}]
users: [{name: "x", cards: [1, 2, 3, 4, 5, 6]}]
`)
	f, err := Parse("full.cue", src)
	require.NoError(t, err)

	for range 2 {
		_, err = Apply(context.Background(), e, f)
		assert.ErrorContains(t, err, "more than the hand limit of 5")
	}

	exists, err := e.UserExists(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, exists, "nothing is applied when a hand is too big")
}

func TestApply_RetryDealsMissingCards(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	src := []byte(`
cards: [{id: 1, name: "A"}, {id: 2, name: "B"}, {id: 3, name: "C"}]
users: [{name: "x", cards: [1, 2, 3]}]
`)
	f, err := Parse("retry.cue", src)
	require.NoError(t, err)

	_, err = e.LoadCatalog(ctx, f.Cards)
	require.NoError(t, err)
	z, err := e.RegisterUser(ctx, "z", 0)
	require.NoError(t, err)
	added, err := e.AddCardToUser(ctx, z.ID, 3)
	require.NoError(t, err)
	require.True(t, added)

	// Card 3 belongs to z, so x ends up with part of its hand.
	for range 2 {
		_, err = Apply(ctx, e, f)
		assert.ErrorContains(t, err, "card 3 is held by another user")
	}
	x, err := e.GetUserByName(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, model.NewCardSet(1, 2), x.Holding)

	require.NoError(t, e.RemoveCardFromUser(ctx, z.ID, 3))
	res, err := Apply(ctx, e, f)
	require.NoError(t, err)
	assert.Zero(t, res.Users)

	x, err = e.GetUserByName(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, model.NewCardSet(1, 2, 3), x.Holding)

	v, err := e.CheckInvariants(ctx)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestApply_UnknownCardFailsEveryTime(t *testing.T) {
	e := newEngine(t)
	f, err := Parse("ghost.cue", []byte(`users: [{name: "x", cards: [42]}]`))
	require.NoError(t, err)

	for range 2 {
		_, err = Apply(context.Background(), e, f)
		assert.True(t, engine.IsNotFound(err), "got %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains string
		hasPos   bool
	}{
		{"syntax", `cards: [`, "", true},
		{"negative id", `cards: [{id: -1, name: "A"}]`, "", true},
		{"unknown position", `cards: [{id: 1, name: "A", position: "QB"}]`, "", true},
		{"pct out of range", `cards: [{id: 1, name: "A", stats: {free_throw_pct: 1.5}}]`, "", true},
		{"unknown field", `cards: [{id: 1, name: "A", owned: true}]`, "", true},
		{"duplicate card", `cards: [{id: 1, name: "A"}, {id: 1, name: "B"}]`, "duplicate card id 1", false},
		{"double deal", `users: [{name: "x", cards: [1]}, {name: "y", cards: [1]}]`, "dealt to both", false},
		{"unknown trader", `users: [{name: "x"}]
trades: [{from: "x", to: "z", offer: [1]}]`, `unknown user "z"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.cue", []byte(tt.src))
			require.Error(t, err)
			if tt.contains != "" {
				assert.ErrorContains(t, err, tt.contains)
			}
			var le *LoadError
			if tt.hasPos && errors.As(err, &le) {
				assert.True(t, le.Pos.IsValid())
				assert.Equal(t, "bad.cue", le.Pos.Filename())
				assert.Contains(t, err.Error(), "bad.cue:")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.cue")
	require.NoError(t, os.WriteFile(path, []byte(`cards: [{id: 9, name: "Solo"}]`), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, f.Cards, 1)
	assert.Equal(t, "Solo", f.Cards[0].Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
