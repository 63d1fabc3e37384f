package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/courtside/internal/model"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestRun_Fixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Flow))
		})
	}
}

func TestRun_RecordsTrace(t *testing.T) {
	scenario := &Scenario{
		Name:        "trace",
		Description: "trace records args, outcome and result",
		Users: []UserSetup{
			{Name: "chuck", Cards: []model.CardID{1}},
			{Name: "nolan", Cards: []model.CardID{2}},
		},
		Flow: []FlowStep{
			{Op: OpPropose, User: "chuck", With: "nolan", Offer: []model.CardID{1}, Request: []model.CardID{2}, As: "t1"},
			{Op: OpCancel, Trade: "t1"},
			{Op: OpCancel, Trade: "t1", Expect: &ExpectClause{Error: "NOT_FOUND"}},
		},
		Assertions: []Assertion{{Type: AssertInvariants}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)

	propose := result.Trace[0]
	assert.Equal(t, 1, propose.Step)
	assert.Equal(t, OutcomeOK, propose.Outcome)
	assert.Equal(t, "chuck", propose.Args["user"])
	assert.Equal(t, model.NewCardSet(1), propose.Args["offer"])
	assert.Equal(t, model.TradeID(1), propose.Result["trade"])

	assert.Equal(t, OutcomeOK, result.Trace[1].Outcome)
	assert.Equal(t, "NOT_FOUND", result.Trace[2].Outcome)
	assert.Empty(t, result.Trace[2].Result)
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "expectations that do not hold are reported",
		Users: []UserSetup{
			{Name: "chuck", Cards: []model.CardID{1}},
			{Name: "nolan"},
		},
		Flow: []FlowStep{
			// Card 1 is already owned.
			{Op: OpAddCard, User: "nolan", Card: 1, Expect: &ExpectClause{Result: boolPtr(true)}},
			{Op: OpRemoveCard, User: "nolan", Card: 1},
			{Op: OpAddCard, User: "nolan", Card: 2, Expect: &ExpectClause{Error: "CONFLICT"}},
		},
		Assertions: []Assertion{{Type: AssertInvariants}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected result=true, got false")
	assert.Contains(t, result.Errors[1], "unexpected error")
	assert.Contains(t, result.Errors[2], "expected error CONFLICT, got success")
	assert.Equal(t, "INVALID_OPERATION", result.Trace[1].Outcome)
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "assert",
		Description: "failed assertions land in Errors",
		Users: []UserSetup{
			{Name: "chuck", Cards: []model.CardID{1}},
			{Name: "nolan", Cards: []model.CardID{2}},
		},
		Flow: []FlowStep{
			{Op: OpPropose, User: "chuck", With: "nolan", Offer: []model.CardID{1}, As: "t1"},
		},
		Assertions: []Assertion{
			{Type: AssertHolding, User: "chuck", Cards: []model.CardID{2}},
			{Type: AssertOwner, Card: 2, User: "chuck"},
			{Type: AssertTrade, Trade: "t1", State: StateGone},
			{Type: AssertPending, User: "nolan"},
			{Type: AssertTradeCount, Count: intPtr(0)},
			{Type: AssertTraceCount, Op: OpPropose, Count: intPtr(2)},
			{Type: AssertInvariants},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "chuck holds [1]")
	assert.Contains(t, result.Errors[1], "card 2 held by nolan")
	assert.Contains(t, result.Errors[2], "trade t1 PROPOSED")
	assert.Contains(t, result.Errors[3], "nolan pending [t1]")
	assert.Contains(t, result.Errors[4], "1 live trades")
	assert.Contains(t, result.Errors[5], "propose 1 times")
}

func TestRun_MaxHand(t *testing.T) {
	scenario := &Scenario{
		Name:        "max_hand",
		Description: "max_hand limits setup and flow",
		MaxHand:     1,
		Users:       []UserSetup{{Name: "chuck", Cards: []model.CardID{1}}},
		Flow: []FlowStep{
			{Op: OpAddCard, User: "chuck", Card: 2, Expect: &ExpectClause{Result: boolPtr(false)}},
		},
		Assertions: []Assertion{{Type: AssertHolding, User: "chuck", Cards: []model.CardID{1}}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SetupFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "a card dealt twice fails setup",
		Users: []UserSetup{
			{Name: "chuck", Cards: []model.CardID{1}},
			{Name: "nolan", Cards: []model.CardID{1}},
		},
		Flow:       []FlowStep{{Op: OpUnconfirmAll, User: "chuck"}},
		Assertions: []Assertion{{Type: AssertInvariants}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup failed")
}

func TestRun_GeneratedCatalogSize(t *testing.T) {
	scenario := &Scenario{
		Name:        "catalog",
		Description: "cards sizes the generated catalog",
		Cards:       3,
		Users:       []UserSetup{{Name: "chuck", Cards: []model.CardID{3}}},
		Flow: []FlowStep{
			{Op: OpAddCard, User: "chuck", Card: 4, Expect: &ExpectClause{Error: "NOT_FOUND"}},
		},
		Assertions: []Assertion{{Type: AssertInvariants}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, model.NewCardSet(1, 2), result.State["available"])
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "hand_full.yaml"))
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	a := Snapshot{ScenarioName: scenario.Name, Trace: first.Trace, State: first.State}
	b := Snapshot{ScenarioName: scenario.Name, Trace: second.Trace, State: second.State}
	ja, err := a.Marshal()
	require.NoError(t, err)
	jb, err := b.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertHolding,
		Expected: "chuck holds [1]",
		Actual:   "chuck holds []",
		Trace: []TraceEvent{
			{Step: 1, Op: OpRemoveCard, Args: map[string]any{"user": "chuck", "card": model.CardID(1)}, Outcome: OutcomeOK},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: holding")
	assert.Contains(t, msg, "Expected: chuck holds [1]")
	assert.Contains(t, msg, "Actual: chuck holds []")
	assert.Contains(t, msg, "[1] remove_card")
}
