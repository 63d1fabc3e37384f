package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/courtside/internal/model"
	"github.com/roach88/courtside/internal/store"
)

// GetCard returns the catalog record for id, or a NotFound error.
func (e *Engine) GetCard(ctx context.Context, id model.CardID) (model.Card, error) {
	var c model.Card
	err := e.view(ctx, "get_card", func(t *txn) error {
		var err error
		c, err = t.card(id)
		return err
	})
	return c, err
}

// GetCardByName looks a card up by its normalized name.
func (e *Engine) GetCardByName(ctx context.Context, name string) (model.Card, error) {
	var c model.Card
	err := e.view(ctx, "get_card_by_name", func(t *txn) error {
		var err error
		c, err = t.tx.GetCardByName(ctx, model.NormalizeName(name))
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFoundError(t.op, "card", name)
		}
		return err
	})
	return c, err
}

// ListCards returns the whole catalog ordered by id.
func (e *Engine) ListCards(ctx context.Context) ([]model.Card, error) {
	var cards []model.Card
	err := e.view(ctx, "list_cards", func(t *txn) error {
		var err error
		cards, err = t.tx.ListCards(ctx)
		return err
	})
	return cards, err
}

// ListAvailableCards returns the cards nobody holds, ordered by id.
func (e *Engine) ListAvailableCards(ctx context.Context) ([]model.Card, error) {
	var cards []model.Card
	err := e.view(ctx, "list_available_cards", func(t *txn) error {
		var err error
		cards, err = t.tx.ListAvailableCards(ctx)
		return err
	})
	return cards, err
}

// LoadCatalog inserts cards into the catalog and returns how many were new.
//
// Loading is idempotent: a card already present with identical data is
// skipped. A card whose id or name is taken by a different record is a
// Conflict and nothing from the batch is stored. The owned flag of the input
// is ignored; new cards start unowned.
func (e *Engine) LoadCatalog(ctx context.Context, cards []model.Card) (int, error) {
	inserted := 0
	err := e.update(ctx, "load_catalog", func(t *txn) error {
		for _, c := range cards {
			c.Name = model.NormalizeName(c.Name)
			c.Owned = false
			if c.ID <= 0 {
				return NewInvalidOperationError(t.op, fmt.Sprintf("card id %d must be positive", c.ID))
			}
			if c.Name == "" {
				return NewInvalidOperationError(t.op, fmt.Sprintf("card %d has no name", c.ID))
			}

			existing, err := t.tx.GetCard(ctx, c.ID)
			switch {
			case err == nil:
				if !existing.SameRecord(c) {
					return NewConflictError(t.op, fmt.Sprintf("card %d already loaded with different data", c.ID))
				}
				continue
			case !errors.Is(err, store.ErrNotFound):
				return err
			}

			if err := t.tx.InsertCard(ctx, c); err != nil {
				if errors.Is(err, store.ErrConflict) {
					return NewConflictError(t.op, fmt.Sprintf("card name %q already taken", c.Name))
				}
				return err
			}
			inserted++
		}
		t.log.Info("catalog loaded", "cards", len(cards), "inserted", inserted)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
