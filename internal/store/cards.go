package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/courtside/internal/model"
)

const cardColumns = `id, name, team, position, age,
	games_played, minutes_per_game, free_throw_attempts, free_throw_pct,
	two_point_attempts, two_point_pct, three_point_attempts, three_point_pct,
	shooting_pct, points_per_game, rebounds_per_game, assists_per_game,
	steals_per_game, blocks_per_game, image, owned`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// InsertCard adds a catalog record. The owned flag always starts false.
// Returns ErrConflict if the id or name is already taken.
func (t *Tx) InsertCard(ctx context.Context, c model.Card) error {
	s := c.Stats
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, c.ID, c.Name, c.Team, c.Position, c.Age,
		s.GamesPlayed, s.MinutesPerGame, s.FreeThrowAttempts, s.FreeThrowPct,
		s.TwoPointAttempts, s.TwoPointPct, s.ThreePointAttempts, s.ThreePointPct,
		s.ShootingPct, s.PointsPerGame, s.ReboundsPerGame, s.AssistsPerGame,
		s.StealsPerGame, s.BlocksPerGame, c.Image)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert card %d: %w", c.ID, ErrConflict)
		}
		return fmt.Errorf("insert card %d: %w", c.ID, err)
	}
	return nil
}

// GetCard returns the card with the given id, or ErrNotFound.
func (t *Tx) GetCard(ctx context.Context, id model.CardID) (model.Card, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Card{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return c, err
}

// GetCardByName returns the card with the exact stored name, or ErrNotFound.
func (t *Tx) GetCardByName(ctx context.Context, name string) (model.Card, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE name = ?`, name)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Card{}, fmt.Errorf("card %q: %w", name, ErrNotFound)
	}
	return c, err
}

// ListCards returns every card ordered by id.
func (t *Tx) ListCards(ctx context.Context) ([]model.Card, error) {
	return t.queryCards(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY id ASC`)
}

// ListAvailableCards returns the cards nobody holds, ordered by id.
func (t *Tx) ListAvailableCards(ctx context.Context) ([]model.Card, error) {
	return t.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE owned = 0 ORDER BY id ASC`)
}

// SetCardOwned updates the cached owned flag.
func (t *Tx) SetCardOwned(ctx context.Context, id model.CardID, owned bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE cards SET owned = ? WHERE id = ?`, encodeFlag(owned), id)
	if err != nil {
		return fmt.Errorf("set card %d owned: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set card %d owned: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set card %d owned: %w", id, ErrNotFound)
	}
	return nil
}

func (t *Tx) queryCards(ctx context.Context, query string, args ...any) ([]model.Card, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// scanCard is the single decode path for card rows.
func scanCard(row rowScanner) (model.Card, error) {
	var (
		c     model.Card
		owned int64
	)
	s := &c.Stats
	err := row.Scan(&c.ID, &c.Name, &c.Team, &c.Position, &c.Age,
		&s.GamesPlayed, &s.MinutesPerGame, &s.FreeThrowAttempts, &s.FreeThrowPct,
		&s.TwoPointAttempts, &s.TwoPointPct, &s.ThreePointAttempts, &s.ThreePointPct,
		&s.ShootingPct, &s.PointsPerGame, &s.ReboundsPerGame, &s.AssistsPerGame,
		&s.StealsPerGame, &s.BlocksPerGame, &c.Image, &owned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Card{}, err
		}
		return model.Card{}, &DecodeError{Entity: "card", Err: err}
	}
	if c.Owned, err = decodeFlag(owned); err != nil {
		return model.Card{}, &DecodeError{Entity: "card", Column: "owned", Err: err}
	}
	return c, nil
}
