package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/courtside/internal/model"
)

const tradeColumns = `id, trade_key, user_a, offer_a, confirmed_a, user_b, offer_b, confirmed_b, seq`

// InsertTrade stores a new trade and returns its assigned id.
// The id field of tr is ignored. Returns ErrConflict if a trade with the same
// key is already live.
func (t *Tx) InsertTrade(ctx context.Context, tr model.Trade) (model.TradeID, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO trades (trade_key, user_a, offer_a, confirmed_a, user_b, offer_b, confirmed_b, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, tr.Key,
		tr.A.User, marshalCardSet(tr.A.Offer), encodeFlag(tr.A.Confirmed),
		tr.B.User, marshalCardSet(tr.B.Offer), encodeFlag(tr.B.Confirmed),
		tr.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert trade: %w", ErrConflict)
		}
		return 0, fmt.Errorf("insert trade: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert trade: last insert id: %w", err)
	}
	return model.TradeID(id), nil
}

// GetTrade returns the live trade with the given id, or ErrNotFound.
func (t *Tx) GetTrade(ctx context.Context, id model.TradeID) (model.Trade, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	tr, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trade{}, fmt.Errorf("trade %d: %w", id, ErrNotFound)
	}
	return tr, err
}

// GetTradeByKey returns the live trade with the given idempotency key, or ErrNotFound.
func (t *Tx) GetTradeByKey(ctx context.Context, key string) (model.Trade, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_key = ?`, key)
	tr, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trade{}, fmt.Errorf("trade key %s: %w", key, ErrNotFound)
	}
	return tr, err
}

// UpdateTrade writes back the confirmation flags and seq of tr.
// Parties and offers are immutable once proposed.
func (t *Tx) UpdateTrade(ctx context.Context, tr model.Trade) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE trades SET confirmed_a = ?, confirmed_b = ?, seq = ?
		WHERE id = ?
	`, encodeFlag(tr.A.Confirmed), encodeFlag(tr.B.Confirmed), tr.Seq, tr.ID)
	if err != nil {
		return fmt.Errorf("update trade %d: %w", tr.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trade %d: rows affected: %w", tr.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update trade %d: %w", tr.ID, ErrNotFound)
	}
	return nil
}

// DeleteTrade removes the trade row. Returns ErrNotFound if it is already gone.
// Callers are responsible for the users' pending trade lists.
func (t *Tx) DeleteTrade(ctx context.Context, id model.TradeID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trade %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trade %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete trade %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListTrades returns every live trade ordered by id.
func (t *Tx) ListTrades(ctx context.Context) ([]model.Trade, error) {
	return t.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY id ASC`)
}

// ListTradesForUser returns the live trades where user is either party, ordered by id.
func (t *Tx) ListTradesForUser(ctx context.Context, user model.UserID) ([]model.Trade, error) {
	return t.queryTrades(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE user_a = ? OR user_b = ?
		ORDER BY id ASC
	`, user, user)
}

// MaxTradeSeq returns the highest seq stamped on any live trade, or 0.
// The engine resumes its logical clock from here after a restart.
func (t *Tx) MaxTradeSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM trades`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max trade seq: %w", err)
	}
	return seq, nil
}

func (t *Tx) queryTrades(ctx context.Context, query string, args ...any) ([]model.Trade, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		tr, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}

// scanTrade is the single decode path for trade rows.
func scanTrade(row rowScanner) (model.Trade, error) {
	var (
		tr                     model.Trade
		offerA, offerB         string
		confirmedA, confirmedB int64
	)
	err := row.Scan(&tr.ID, &tr.Key,
		&tr.A.User, &offerA, &confirmedA,
		&tr.B.User, &offerB, &confirmedB,
		&tr.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Trade{}, err
		}
		return model.Trade{}, &DecodeError{Entity: "trade", Err: err}
	}

	if tr.A.Offer, err = unmarshalCardSet(offerA); err != nil {
		return model.Trade{}, &DecodeError{Entity: "trade", Column: "offer_a", Err: err}
	}
	if tr.B.Offer, err = unmarshalCardSet(offerB); err != nil {
		return model.Trade{}, &DecodeError{Entity: "trade", Column: "offer_b", Err: err}
	}
	if tr.A.Confirmed, err = decodeFlag(confirmedA); err != nil {
		return model.Trade{}, &DecodeError{Entity: "trade", Column: "confirmed_a", Err: err}
	}
	if tr.B.Confirmed, err = decodeFlag(confirmedB); err != nil {
		return model.Trade{}, &DecodeError{Entity: "trade", Column: "confirmed_b", Err: err}
	}
	return tr, nil
}
