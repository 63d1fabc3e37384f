package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/courtside/internal/model"
)

const userColumns = `id, name, access, last_seen, holding, pending_trades`

// InsertUser registers a user with an empty holding and returns the stored record.
// Returns ErrConflict if the name is already taken.
func (t *Tx) InsertUser(ctx context.Context, name string, access int, lastSeen time.Time) (model.User, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO users (name, access, last_seen, holding, pending_trades)
		VALUES (?, ?, ?, '[]', '[]')
	`, name, access, encodeTime(lastSeen))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("insert user %q: %w", name, ErrConflict)
		}
		return model.User{}, fmt.Errorf("insert user %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("insert user %q: last insert id: %w", name, err)
	}
	return t.GetUser(ctx, model.UserID(id))
}

// GetUser returns the user with the given id, or ErrNotFound.
func (t *Tx) GetUser(ctx context.Context, id model.UserID) (model.User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

// GetUserByName returns the user with the exact stored name, or ErrNotFound.
func (t *Tx) GetUserByName(ctx context.Context, name string) (model.User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	return u, err
}

// ListUsers returns every user ordered by id.
func (t *Tx) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateUser writes back the mutable fields of u: holding, pending trades
// and last seen. Name and access never change after registration.
func (t *Tx) UpdateUser(ctx context.Context, u model.User) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE users SET holding = ?, pending_trades = ?, last_seen = ?
		WHERE id = ?
	`, marshalCardSet(u.Holding), marshalTradeIDs(u.PendingTrades), encodeTime(u.LastSeen), u.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %d: rows affected: %w", u.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

// scanUser is the single decode path for user rows.
func scanUser(row rowScanner) (model.User, error) {
	var (
		u                model.User
		lastSeen         int64
		holding, pending string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Access, &lastSeen, &holding, &pending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, err
		}
		return model.User{}, &DecodeError{Entity: "user", Err: err}
	}

	var err error
	if u.Holding, err = unmarshalCardSet(holding); err != nil {
		return model.User{}, &DecodeError{Entity: "user", Column: "holding", Err: err}
	}
	if u.PendingTrades, err = unmarshalTradeIDs(pending); err != nil {
		return model.User{}, &DecodeError{Entity: "user", Column: "pending_trades", Err: err}
	}
	u.LastSeen = decodeTime(lastSeen)
	return u, nil
}

// Times are stored as Unix milliseconds; 0 means never.
func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func decodeTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
