package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInvariants_CleanState(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := givenUser(t, e, "chuck", 1, 2, 3)
	b := givenUser(t, e, "nolan", 4, 5, 6)
	_, err := e.ProposeTrade(ctx, a, cs(2), b, cs(4))
	require.NoError(t, err)

	v, err := e.CheckInvariants(ctx)
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Empty(t, v)
}

func TestCheckInvariants_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt []string
		kinds   []string
	}{
		{
			name:    "owned flag without holder",
			corrupt: []string{`UPDATE cards SET owned = 1 WHERE id = 9`},
			kinds:   []string{ViolationOwnedFlag},
		},
		{
			name:    "two holders",
			corrupt: []string{`UPDATE users SET holding = '[1,4,5,6]' WHERE name = 'nolan'`},
			kinds:   []string{ViolationMultipleHolders, ViolationOwnedFlag},
		},
		{
			name:    "unknown card",
			corrupt: []string{`UPDATE users SET holding = '[4,5,6,99]' WHERE name = 'nolan'`},
			kinds:   []string{ViolationUnknownCard},
		},
		{
			name: "hand too large",
			corrupt: []string{
				`UPDATE users SET holding = '[4,5,6,7,8,9]' WHERE name = 'nolan'`,
				`UPDATE cards SET owned = 1 WHERE id IN (7,8,9)`,
			},
			kinds: []string{ViolationHandSize},
		},
		{
			name: "offer not held",
			corrupt: []string{
				`UPDATE users SET holding = '[1,3]' WHERE name = 'chuck'`,
				`UPDATE cards SET owned = 0 WHERE id = 2`,
			},
			kinds: []string{ViolationOfferNotHeld},
		},
		{
			name:    "dangling pending id",
			corrupt: []string{`UPDATE users SET pending_trades = '[1,42]' WHERE name = 'chuck'`},
			kinds:   []string{ViolationPendingDangling},
		},
		{
			name:    "pending id missing",
			corrupt: []string{`UPDATE users SET pending_trades = '[]' WHERE name = 'nolan'`},
			kinds:   []string{ViolationPendingMissing},
		},
		{
			name:    "stored fully confirmed",
			corrupt: []string{`UPDATE trades SET confirmed_a = 1, confirmed_b = 1`},
			kinds:   []string{ViolationBothConfirmed},
		},
		{
			name:    "overlapping offers",
			corrupt: []string{`UPDATE trades SET offer_b = '[2,4]'`},
			kinds:   []string{ViolationOffersOverlap, ViolationOfferNotHeld},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			ctx := context.Background()
			a := givenUser(t, e, "chuck", 1, 2, 3)
			b := givenUser(t, e, "nolan", 4, 5, 6)
			_, err := e.ProposeTrade(ctx, a, cs(2), b, cs(4))
			require.NoError(t, err)

			for _, stmt := range tt.corrupt {
				_, err := e.store.DB().Exec(stmt)
				require.NoError(t, err)
			}

			v, err := e.CheckInvariants(ctx)
			require.NoError(t, err)
			kinds := make([]string, 0, len(v))
			for _, x := range v {
				kinds = append(kinds, x.Kind)
			}
			assert.ElementsMatch(t, tt.kinds, kinds, "violations: %v", v)
		})
	}
}
