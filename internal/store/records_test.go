package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/courtside/internal/model"
)

func TestCards_InsertAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpdate(t, s, func(tx *Tx) error {
		for id := model.CardID(1); id <= 3; id++ {
			if err := tx.InsertCard(ctx, createTestCard(id)); err != nil {
				return err
			}
		}
		return tx.SetCardOwned(ctx, 2, true)
	})

	err := s.View(ctx, func(tx *Tx) error {
		c, err := tx.GetCard(ctx, 1)
		require.NoError(t, err)
		assert.True(t, c.SameRecord(createTestCard(1)))
		assert.False(t, c.Owned)

		byName, err := tx.GetCardByName(ctx, "Player 2")
		require.NoError(t, err)
		assert.Equal(t, model.CardID(2), byName.ID)
		assert.True(t, byName.Owned)

		all, err := tx.ListCards(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		available, err := tx.ListAvailableCards(ctx)
		require.NoError(t, err)
		require.Len(t, available, 2)
		assert.Equal(t, model.CardID(1), available[0].ID)
		assert.Equal(t, model.CardID(3), available[1].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestCards_NotFoundAndConflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		_, err := tx.GetCard(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = tx.GetCardByName(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, tx.SetCardOwned(ctx, 99, true), ErrNotFound)

		require.NoError(t, tx.InsertCard(ctx, createTestCard(1)))
		assert.ErrorIs(t, tx.InsertCard(ctx, createTestCard(1)), ErrConflict)

		dup := createTestCard(2)
		dup.Name = "Player 1"
		assert.ErrorIs(t, tx.InsertCard(ctx, dup), ErrConflict)
		return nil
	})
	require.NoError(t, err)
}

func TestCards_EmptyListIsNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.View(ctx, func(tx *Tx) error {
		cards, err := tx.ListCards(ctx)
		require.NoError(t, err)
		assert.NotNil(t, cards)
		assert.Empty(t, cards)
		return nil
	})
	require.NoError(t, err)
}

func TestUsers_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var id model.UserID
	mustUpdate(t, s, func(tx *Tx) error {
		u, err := tx.InsertUser(ctx, "chuck", 3, seen)
		if err != nil {
			return err
		}
		id = u.ID
		assert.Equal(t, "chuck", u.Name)
		assert.Equal(t, 3, u.Access)
		assert.Empty(t, u.Holding)
		assert.Empty(t, u.PendingTrades)

		u.Holding = model.NewCardSet(3, 1, 2)
		u.PendingTrades = []model.TradeID{7, 2}
		return tx.UpdateUser(ctx, u)
	})

	err := s.View(ctx, func(tx *Tx) error {
		u, err := tx.GetUserByName(ctx, "chuck")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, model.CardSet{1, 2, 3}, u.Holding)
		assert.Equal(t, []model.TradeID{7, 2}, u.PendingTrades, "pending order is preserved")
		assert.True(t, seen.Equal(u.LastSeen))

		users, err := tx.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
		return nil
	})
	require.NoError(t, err)

	var raw string
	require.NoError(t, s.db.QueryRow("SELECT holding FROM users WHERE id = ?", id).Scan(&raw))
	assert.Equal(t, "[1,2,3]", raw)
}

func TestUsers_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		_, err := tx.GetUser(ctx, 5)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = tx.InsertUser(ctx, "dean", 0, time.Time{})
		require.NoError(t, err)
		_, err = tx.InsertUser(ctx, "dean", 0, time.Time{})
		assert.ErrorIs(t, err, ErrConflict)

		assert.ErrorIs(t, tx.UpdateUser(ctx, model.User{ID: 99}), ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestUsers_ZeroLastSeen(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpdate(t, s, func(tx *Tx) error {
		u, err := tx.InsertUser(ctx, "george", 0, time.Time{})
		require.NoError(t, err)
		assert.True(t, u.LastSeen.IsZero())
		return nil
	})
}

func TestTrades_Lifecycle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tr := model.Trade{
		Key: model.MustTradeKey(1, model.NewCardSet(2), 2, model.NewCardSet(4, 5)),
		Seq: 1,
		A:   model.TradeSide{User: 1, Offer: model.NewCardSet(2)},
		B:   model.TradeSide{User: 2, Offer: model.NewCardSet(5, 4)},
	}

	var id model.TradeID
	mustUpdate(t, s, func(tx *Tx) error {
		for _, name := range []string{"a", "b", "c"} {
			if _, err := tx.InsertUser(ctx, name, 0, time.Time{}); err != nil {
				return err
			}
		}
		var err error
		id, err = tx.InsertTrade(ctx, tr)
		return err
	})
	assert.Equal(t, model.TradeID(1), id)

	mustUpdate(t, s, func(tx *Tx) error {
		got, err := tx.GetTrade(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tr.Key, got.Key)
		assert.Equal(t, model.CardSet{4, 5}, got.B.Offer)
		assert.False(t, got.A.Confirmed)

		got.A.Confirmed = true
		got.Seq = 2
		return tx.UpdateTrade(ctx, got)
	})

	err := s.Update(ctx, func(tx *Tx) error {
		byKey, err := tx.GetTradeByKey(ctx, tr.Key)
		require.NoError(t, err)
		assert.Equal(t, id, byKey.ID)
		assert.True(t, byKey.A.Confirmed)
		assert.Equal(t, model.TradeState("ONE_CONFIRMED"), byKey.State())

		_, err = tx.InsertTrade(ctx, tr)
		assert.ErrorIs(t, err, ErrConflict, "same key twice")

		forB, err := tx.ListTradesForUser(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, forB, 1)

		forC, err := tx.ListTradesForUser(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, forC)

		seq, err := tx.MaxTradeSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), seq)

		require.NoError(t, tx.DeleteTrade(ctx, id))
		assert.ErrorIs(t, tx.DeleteTrade(ctx, id), ErrNotFound)
		assert.ErrorIs(t, tx.UpdateTrade(ctx, byKey), ErrNotFound)

		_, err = tx.GetTrade(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := tx.ListTrades(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		seq, err = tx.MaxTradeSeq(ctx)
		require.NoError(t, err)
		assert.Zero(t, seq)
		return nil
	})
	require.NoError(t, err)
}

func TestDecode_FailsFast(t *testing.T) {
	tests := []struct {
		name    string
		corrupt string
		column  string
		read    func(ctx context.Context, tx *Tx) error
	}{
		{
			name:    "holding not json",
			corrupt: `UPDATE users SET holding = 'oops'`,
			column:  "holding",
			read: func(ctx context.Context, tx *Tx) error {
				_, err := tx.GetUser(ctx, 1)
				return err
			},
		},
		{
			name:    "holding unsorted",
			corrupt: `UPDATE users SET holding = '[3,1]'`,
			column:  "holding",
			read: func(ctx context.Context, tx *Tx) error {
				_, err := tx.ListUsers(ctx)
				return err
			},
		},
		{
			name:    "pending trades null",
			corrupt: `UPDATE users SET pending_trades = 'null'`,
			column:  "pending_trades",
			read: func(ctx context.Context, tx *Tx) error {
				_, err := tx.GetUserByName(ctx, "a")
				return err
			},
		},
		{
			name:    "access wrong type",
			corrupt: `UPDATE users SET access = 'admin'`,
			read: func(ctx context.Context, tx *Tx) error {
				_, err := tx.GetUser(ctx, 1)
				return err
			},
		},
		{
			name:    "offer with float",
			corrupt: `INSERT INTO trades (trade_key, user_a, offer_a, user_b, offer_b, seq) VALUES ('k', 1, '[1.5]', 2, '[]', 1)`,
			column:  "offer_a",
			read: func(ctx context.Context, tx *Tx) error {
				_, err := tx.ListTrades(ctx)
				return err
			},
		},
		{
			name:    "card age wrong type",
			corrupt: `INSERT INTO cards (id, name, age) VALUES (1, 'x', 'old')`,
			read: func(ctx context.Context, tx *Tx) error {
				_, err := tx.GetCard(ctx, 1)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ctx := context.Background()

			_, err := s.db.Exec(`INSERT INTO users (name) VALUES ('a'), ('b')`)
			require.NoError(t, err)
			_, err = s.db.Exec(tt.corrupt)
			require.NoError(t, err)

			err = s.View(ctx, func(tx *Tx) error { return tt.read(ctx, tx) })
			var de *DecodeError
			require.True(t, errors.As(err, &de), "want DecodeError, got %v", err)
			assert.Equal(t, tt.column, de.Column)
		})
	}
}

func TestUnmarshalIDs(t *testing.T) {
	ids, err := unmarshalIDs("[]")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = unmarshalIDs("[0]")
	assert.Error(t, err)

	_, err = unmarshalIDs(`{"a":1}`)
	assert.Error(t, err)

	_, err = unmarshalCardSet("[2,2]")
	assert.Error(t, err, "duplicates are rejected")

	flag, err := decodeFlag(1)
	require.NoError(t, err)
	assert.True(t, flag)

	_, err = decodeFlag(2)
	assert.Error(t, err)
}
