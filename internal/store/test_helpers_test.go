package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/courtside/internal/model"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustUpdate runs fn in a write transaction and fails the test on error.
func mustUpdate(t *testing.T, s *Store, fn func(tx *Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
}

// createTestCard creates a catalog card named "Player <id>".
func createTestCard(id model.CardID) model.Card {
	return model.Card{
		ID:       id,
		Name:     fmt.Sprintf("Player %d", id),
		Team:     "TST",
		Position: "G",
		Age:      20 + int(id),
		Stats: model.Stats{
			GamesPlayed:    60,
			MinutesPerGame: 30.5,
			PointsPerGame:  float64(id) + 0.25,
			FreeThrowPct:   0.75,
		},
	}
}
