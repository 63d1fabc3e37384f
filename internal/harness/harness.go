package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/courtside/internal/engine"
	"github.com/roach88/courtside/internal/model"
	"github.com/roach88/courtside/internal/seed"
	"github.com/roach88/courtside/internal/testutil"
)

// DefaultCards is the size of the generated catalog when a scenario has
// neither a seed nor a cards count.
const DefaultCards = 20

// setupAccess is the access level given to scenario users.
const setupAccess = 3

// Epoch is the first wall-clock reading seen by a scenario engine.
var Epoch = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// Harness runs one scenario against a private engine.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	opIDs  *testutil.SequentialOpIDs
	logger *slog.Logger

	users  map[string]model.UserID
	names  map[model.UserID]string
	labels map[string]model.TradeID
	tags   map[model.TradeID]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// wall clock and op ids, so the trace and final state are reproducible.
//
// Execution flow:
//  1. Load the seed, or a generated catalog
//  2. Register the setup users and deal their cards
//  3. Execute flow steps, checking each expect clause
//  4. Snapshot the final state and evaluate assertions
//
// The returned error covers setup failures only. Mismatched expectations
// and failed assertions are reported through Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewDeterministicClock(Epoch, time.Second),
		opIDs:  testutil.NewSequentialOpIDs(scenario.Name),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		users:  make(map[string]model.UserID),
		names:  make(map[model.UserID]string),
		labels: make(map[string]model.TradeID),
		tags:   make(map[model.TradeID]string),
	}

	opts := []engine.Option{
		engine.WithNow(h.clock.Now),
		engine.WithOpIDGenerator(h.opIDs),
		engine.WithLogger(h.logger),
	}
	if scenario.MaxHand > 0 {
		opts = append(opts, engine.WithMaxHand(scenario.MaxHand))
	}

	eng, err := engine.Open(ctx, ":memory:", opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Close()
	h.engine = eng

	if err := h.executeSetup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}

	result := NewResult()
	h.executeFlow(ctx, scenario.Flow, result)

	state, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	result.State = state

	for i, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// executeSetup loads the catalog and deals the setup hands.
func (h *Harness) executeSetup(ctx context.Context, s *Scenario) error {
	if s.Seed != "" {
		var (
			f   *seed.File
			err error
		)
		if s.Seed == SeedDemo {
			f, err = seed.Demo()
		} else {
			f, err = seed.LoadFile(s.Seed)
		}
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, h.engine, f); err != nil {
			return err
		}
		if err := h.learnSeeded(ctx); err != nil {
			return err
		}
	} else {
		n := s.Cards
		if n == 0 {
			n = DefaultCards
		}
		if _, err := h.engine.LoadCatalog(ctx, generatedCatalog(n)); err != nil {
			return err
		}
	}

	for _, su := range s.Users {
		u, err := h.engine.RegisterUser(ctx, su.Name, setupAccess)
		if err != nil {
			return fmt.Errorf("user %q: %w", su.Name, err)
		}
		h.learnUser(u.Name, u.ID)
		for _, c := range su.Cards {
			added, err := h.engine.AddCardToUser(ctx, u.ID, c)
			if err != nil {
				return fmt.Errorf("user %q: %w", su.Name, err)
			}
			if !added {
				return fmt.Errorf("user %q: card %d is owned or the hand is full", su.Name, c)
			}
		}
	}
	return nil
}

// learnSeeded records the users and trades a seed created. Seeded trades
// are labelled "seed-<id>".
func (h *Harness) learnSeeded(ctx context.Context) error {
	users, err := h.engine.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		h.learnUser(u.Name, u.ID)
	}
	trades, err := h.engine.ListTrades(ctx)
	if err != nil {
		return err
	}
	for _, tr := range trades {
		h.learnTrade(fmt.Sprintf("seed-%d", tr.ID), tr.ID)
	}
	return nil
}

func (h *Harness) learnUser(name string, id model.UserID) {
	h.users[name] = id
	h.names[id] = name
}

func (h *Harness) learnTrade(label string, id model.TradeID) {
	h.labels[label] = id
	h.tags[id] = label
}

// generatedCatalog returns cards 1..n named "Player N".
func generatedCatalog(n int) []model.Card {
	cards := make([]model.Card, 0, n)
	for i := 1; i <= n; i++ {
		cards = append(cards, model.Card{
			ID:       model.CardID(i),
			Name:     fmt.Sprintf("Player %d", i),
			Team:     "TST",
			Position: "G",
		})
	}
	return cards
}

// executeFlow runs every step and checks its expect clause. A failing step
// does not stop the flow.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) {
	for i, step := range flow {
		out, err := h.executeStep(ctx, step)

		outcome := OutcomeOK
		if err != nil {
			outcome = string(engine.CodeOf(err))
			if outcome == "" {
				outcome = "ERROR"
			}
			out = stepOutput{}
		}
		result.AddTrace(i+1, step.Op, stepArgs(step), outcome, out.values)

		for _, msg := range checkExpect(step, out, err) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
		}
	}
}

// stepOutput is what a step returned.
type stepOutput struct {
	// result is the step's boolean answer, when it has one.
	result      *bool
	executed    *bool
	invalidated *bool
	values      map[string]any
}

func boolOutput(key string, v bool) stepOutput {
	return stepOutput{result: &v, values: map[string]any{key: v}}
}

func (h *Harness) executeStep(ctx context.Context, step FlowStep) (stepOutput, error) {
	switch step.Op {
	case OpAddCard:
		user, err := h.userID(ctx, step.User)
		if err != nil {
			return stepOutput{}, err
		}
		added, err := h.engine.AddCardToUser(ctx, user, step.Card)
		return boolOutput("added", added), err

	case OpRemoveCard:
		user, err := h.userID(ctx, step.User)
		if err != nil {
			return stepOutput{}, err
		}
		return stepOutput{}, h.engine.RemoveCardFromUser(ctx, user, step.Card)

	case OpPropose, OpCheckValid:
		a, err := h.userID(ctx, step.User)
		if err != nil {
			return stepOutput{}, err
		}
		b, err := h.userID(ctx, step.With)
		if err != nil {
			return stepOutput{}, err
		}
		offer, request := model.NewCardSet(step.Offer...), model.NewCardSet(step.Request...)
		if step.Op == OpCheckValid {
			valid, err := h.engine.CheckValidTrade(ctx, a, offer, b, request)
			return boolOutput("valid", valid), err
		}
		tr, err := h.engine.ProposeTrade(ctx, a, offer, b, request)
		if err != nil {
			return stepOutput{}, err
		}
		if step.As != "" {
			h.learnTrade(step.As, tr.ID)
		}
		return stepOutput{values: map[string]any{"trade": tr.ID, "seq": tr.Seq}}, nil

	case OpConfirm:
		user, err := h.userID(ctx, step.User)
		if err != nil {
			return stepOutput{}, err
		}
		res, err := h.engine.Confirm(ctx, user, h.labels[step.Trade])
		out := stepOutput{
			result:      &res.Confirmed,
			executed:    &res.Executed,
			invalidated: &res.Invalidated,
			values: map[string]any{
				"confirmed":   res.Confirmed,
				"executed":    res.Executed,
				"invalidated": res.Invalidated,
			},
		}
		if res.State != "" {
			out.values["state"] = string(res.State)
		}
		return out, err

	case OpUnconfirm:
		user, err := h.userID(ctx, step.User)
		if err != nil {
			return stepOutput{}, err
		}
		return stepOutput{}, h.engine.Unconfirm(ctx, user, h.labels[step.Trade])

	case OpUnconfirmAll:
		user, err := h.userID(ctx, step.User)
		if err != nil {
			return stepOutput{}, err
		}
		n, err := h.engine.UnconfirmAll(ctx, user)
		return stepOutput{values: map[string]any{"unconfirmed": n}}, err

	case OpExecute:
		executed, err := h.engine.ExecuteTrade(ctx, h.labels[step.Trade])
		return boolOutput("executed", executed), err

	case OpCancel:
		return stepOutput{}, h.engine.CancelTrade(ctx, h.labels[step.Trade])

	default:
		return stepOutput{}, fmt.Errorf("unknown op %q", step.Op)
	}
}

// userID resolves a scenario user name. Unknown names surface as the
// engine's NotFound error.
func (h *Harness) userID(ctx context.Context, name string) (model.UserID, error) {
	name = model.NormalizeName(name)
	if id, ok := h.users[name]; ok {
		return id, nil
	}
	u, err := h.engine.GetUserByName(ctx, name)
	if err != nil {
		return 0, err
	}
	h.learnUser(u.Name, u.ID)
	return u.ID, nil
}

// stepArgs renders the step inputs for the trace.
func stepArgs(step FlowStep) map[string]any {
	args := map[string]any{}
	if step.User != "" {
		args["user"] = step.User
	}
	if step.With != "" {
		args["with"] = step.With
	}
	if step.Card != 0 {
		args["card"] = step.Card
	}
	if step.Op == OpPropose || step.Op == OpCheckValid {
		args["offer"] = model.NewCardSet(step.Offer...)
		args["request"] = model.NewCardSet(step.Request...)
	}
	if step.Trade != "" {
		args["trade"] = step.Trade
	}
	if step.As != "" {
		args["as"] = step.As
	}
	return args
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(step FlowStep, out stepOutput, err error) []string {
	want := step.Expect
	if want == nil {
		want = &ExpectClause{}
	}

	if want.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error %s, got success", want.Error)}
		}
		if got := string(engine.CodeOf(err)); got != want.Error {
			return []string{fmt.Sprintf("expected error %s, got %v", want.Error, err)}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var msgs []string
	check := func(name string, want, got *bool) {
		switch {
		case want == nil:
		case got == nil:
			msgs = append(msgs, fmt.Sprintf("%s has no %s outcome", step.Op, name))
		case *want != *got:
			msgs = append(msgs, fmt.Sprintf("expected %s=%t, got %t", name, *want, *got))
		}
	}
	check("result", want.Result, out.result)
	check("executed", want.Executed, out.executed)
	check("invalidated", want.Invalidated, out.invalidated)
	return msgs
}

// snapshot captures users, live trades and available cards in a form
// model.MarshalCanonical accepts.
func (h *Harness) snapshot(ctx context.Context) (map[string]any, error) {
	users, err := h.engine.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	trades, err := h.engine.ListTrades(ctx)
	if err != nil {
		return nil, err
	}
	available, err := h.engine.ListAvailableCards(ctx)
	if err != nil {
		return nil, err
	}

	userList := make([]any, 0, len(users))
	for _, u := range users {
		pending := make([]any, 0, len(u.PendingTrades))
		for _, id := range u.PendingTrades {
			pending = append(pending, h.tradeTag(id))
		}
		userList = append(userList, map[string]any{
			"name":    u.Name,
			"holding": model.NewCardSet(u.Holding...),
			"pending": pending,
		})
	}

	tradeList := make([]any, 0, len(trades))
	for _, tr := range trades {
		tradeList = append(tradeList, map[string]any{
			"trade": h.tradeTag(tr.ID),
			"seq":   tr.Seq,
			"state": string(tr.State()),
			"a":     h.sideMap(tr.A),
			"b":     h.sideMap(tr.B),
		})
	}

	ids := make(model.CardSet, 0, len(available))
	for _, c := range available {
		ids = ids.Add(c.ID)
	}

	return map[string]any{
		"users":     userList,
		"trades":    tradeList,
		"available": ids,
	}, nil
}

func (h *Harness) sideMap(s model.TradeSide) map[string]any {
	return map[string]any{
		"user":      h.names[s.User],
		"offer":     model.NewCardSet(s.Offer...),
		"confirmed": s.Confirmed,
	}
}

// tradeTag names a trade by its scenario label, or "#<id>" when unlabelled.
func (h *Harness) tradeTag(id model.TradeID) string {
	if label, ok := h.tags[id]; ok {
		return label
	}
	return fmt.Sprintf("#%d", id)
}
