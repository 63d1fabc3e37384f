package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/courtside/internal/engine"
	"github.com/roach88/courtside/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Step, event.Op, event.Args, event.Outcome)
		}
	}
	return buf.String()
}

// evaluate checks one assertion against the engine state and the trace.
func (h *Harness) evaluate(ctx context.Context, a Assertion, result *Result) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}

	switch a.Type {
	case AssertHolding:
		id, err := h.userID(ctx, a.User)
		if err != nil {
			return err
		}
		got, err := h.engine.GetHolding(ctx, id)
		if err != nil {
			return err
		}
		want := model.NewCardSet(a.Cards...)
		if !slices.Equal(want, got) {
			return fail(fmt.Sprintf("%s holds %v", a.User, want), fmt.Sprintf("%s holds %v", a.User, got))
		}

	case AssertOwner:
		holder, err := h.holderOf(ctx, a.Card)
		if err != nil {
			return err
		}
		if holder != model.NormalizeName(a.User) {
			return fail(describeOwner(a.Card, a.User), describeOwner(a.Card, holder))
		}

	case AssertTrade:
		return h.assertTrade(ctx, a, fail)

	case AssertPending:
		id, err := h.userID(ctx, a.User)
		if err != nil {
			return err
		}
		u, err := h.engine.GetUser(ctx, id)
		if err != nil {
			return err
		}
		got := make([]string, 0, len(u.PendingTrades))
		for _, tid := range u.PendingTrades {
			got = append(got, h.tradeTag(tid))
		}
		want := a.Trades
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(want, got) {
			return fail(fmt.Sprintf("%s pending %v", a.User, want), fmt.Sprintf("%s pending %v", a.User, got))
		}

	case AssertTradeCount:
		trades, err := h.engine.ListTrades(ctx)
		if err != nil {
			return err
		}
		if len(trades) != *a.Count {
			return fail(fmt.Sprintf("%d live trades", *a.Count), fmt.Sprintf("%d live trades", len(trades)))
		}

	case AssertInvariants:
		violations, err := h.engine.CheckInvariants(ctx)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			msgs := make([]string, len(violations))
			for i, v := range violations {
				msgs[i] = v.String()
			}
			return fail("no violations", strings.Join(msgs, "; "))
		}

	case AssertTraceCount:
		count := 0
		for _, event := range result.Trace {
			if event.Op == a.Op && (a.Outcome == "" || event.Outcome == a.Outcome) {
				count++
			}
		}
		if count != *a.Count {
			what := a.Op
			if a.Outcome != "" {
				what += " -> " + a.Outcome
			}
			return fail(fmt.Sprintf("%s %d times", what, *a.Count), fmt.Sprintf("%s %d times", what, count))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (h *Harness) assertTrade(ctx context.Context, a Assertion, fail func(expected, actual string) error) error {
	id, ok := h.labels[a.Trade]
	if !ok {
		return fail(fmt.Sprintf("trade %s %s", a.Trade, a.State), "trade was never proposed")
	}

	tr, err := h.engine.GetTrade(ctx, id)
	if engine.IsNotFound(err) {
		if a.State != StateGone {
			return fail(fmt.Sprintf("trade %s %s", a.Trade, a.State), fmt.Sprintf("trade %s %s", a.Trade, StateGone))
		}
		return nil
	}
	if err != nil {
		return err
	}

	if got := string(tr.State()); got != a.State {
		return fail(fmt.Sprintf("trade %s %s", a.Trade, a.State), fmt.Sprintf("trade %s %s", a.Trade, got))
	}

	if a.ConfirmedBy != nil {
		got := []string{}
		for _, side := range []model.TradeSide{tr.A, tr.B} {
			if side.Confirmed {
				got = append(got, h.names[side.User])
			}
		}
		want := make([]string, len(a.ConfirmedBy))
		for i, name := range a.ConfirmedBy {
			want[i] = model.NormalizeName(name)
		}
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(want, got) {
			return fail(fmt.Sprintf("trade %s confirmed by %v", a.Trade, want), fmt.Sprintf("trade %s confirmed by %v", a.Trade, got))
		}
	}
	return nil
}

// holderOf returns the name of the user holding card, or "".
func (h *Harness) holderOf(ctx context.Context, card model.CardID) (string, error) {
	users, err := h.engine.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.Holding.Contains(card) {
			return u.Name, nil
		}
	}
	return "", nil
}

func describeOwner(card model.CardID, user string) string {
	if user == "" {
		return fmt.Sprintf("card %d unowned", card)
	}
	return fmt.Sprintf("card %d held by %s", card, user)
}
