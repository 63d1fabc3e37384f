package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/courtside/internal/model"
)

// Scenario defines a conformance test scenario.
// A scenario deals cards to users, runs a flow of engine operations with
// expected outcomes, and asserts on the final ownership and trade state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// MaxHand overrides the engine hand size limit. Zero means the default.
	MaxHand int `yaml:"max_hand,omitempty"`

	// Seed is a CUE seed file applied before setup, relative to the
	// scenario file, or "demo" for the built-in league.
	Seed string `yaml:"seed,omitempty"`

	// Cards is the number of generated catalog cards ("Player 1".."Player N")
	// loaded when no seed is given. Zero means 20.
	Cards int `yaml:"cards,omitempty"`

	// Users are registered in order and dealt their cards before the flow.
	// Setup is assumed to succeed.
	Users []UserSetup `yaml:"users,omitempty"`

	// Flow contains the engine operations under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// UserSetup registers a user holding the given cards.
type UserSetup struct {
	Name  string         `yaml:"name"`
	Cards []model.CardID `yaml:"cards,omitempty"`
}

// FlowStep is one engine operation.
//
// Users are referenced by name and trades by the label a propose step
// declared with "as".
type FlowStep struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	User    string         `yaml:"user,omitempty"`
	With    string         `yaml:"with,omitempty"`
	Card    model.CardID   `yaml:"card,omitempty"`
	Offer   []model.CardID `yaml:"offer,omitempty"`
	Request []model.CardID `yaml:"request,omitempty"`
	Trade   string         `yaml:"trade,omitempty"`

	// As labels the trade created by a propose step.
	As string `yaml:"as,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed; its boolean result is not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected engine error code (e.g. "NOT_FOUND").
	// Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Result is the expected boolean result: added for add_card, confirmed
	// for confirm, executed for execute, valid for check_valid.
	Result *bool `yaml:"result,omitempty"`

	// Executed and Invalidated check the extra outcomes of confirm.
	Executed    *bool `yaml:"executed,omitempty"`
	Invalidated *bool `yaml:"invalidated,omitempty"`
}

// Step operations.
const (
	OpAddCard      = "add_card"
	OpRemoveCard   = "remove_card"
	OpPropose      = "propose"
	OpConfirm      = "confirm"
	OpUnconfirm    = "unconfirm"
	OpUnconfirmAll = "unconfirm_all"
	OpExecute      = "execute"
	OpCancel       = "cancel"
	OpCheckValid   = "check_valid"
)

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "holding": user holds exactly cards
	// - "owner": card is held by user ("" for unowned)
	// - "trade": trade label is in state (PROPOSED, ONE_CONFIRMED or GONE),
	//   optionally confirmed by exactly confirmed_by
	// - "pending": user's pending trades are exactly trades (labels, in order)
	// - "trade_count": exactly count live trades
	// - "invariants": the state is consistent
	// - "trace_count": op (optionally with outcome) appears count times
	Type string `yaml:"type"`

	User        string         `yaml:"user,omitempty"`
	Card        model.CardID   `yaml:"card,omitempty"`
	Cards       []model.CardID `yaml:"cards,omitempty"`
	Trade       string         `yaml:"trade,omitempty"`
	Trades      []string       `yaml:"trades,omitempty"`
	State       string         `yaml:"state,omitempty"`
	ConfirmedBy []string       `yaml:"confirmed_by,omitempty"`
	Op          string         `yaml:"op,omitempty"`
	Outcome     string         `yaml:"outcome,omitempty"`
	Count       *int           `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertHolding    = "holding"
	AssertOwner      = "owner"
	AssertTrade      = "trade"
	AssertPending    = "pending"
	AssertTradeCount = "trade_count"
	AssertInvariants = "invariants"
	AssertTraceCount = "trace_count"
)

// StateGone is the trade assertion state for a trade that no longer exists.
const StateGone = "GONE"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative seed path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Seed != "" && scenario.Seed != SeedDemo && !filepath.IsAbs(scenario.Seed) {
		scenario.Seed = filepath.Join(filepath.Dir(path), scenario.Seed)
	}
	return scenario, nil
}

// SeedDemo selects the built-in demo league as a scenario seed.
const SeedDemo = "demo"

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// user and trade label is declared before it is used.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.MaxHand < 0 || s.Cards < 0 {
		return fmt.Errorf("max_hand and cards must be non-negative")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	// Seeded users are only known at run time, so name checks are skipped.
	users := make(map[string]bool)
	for i, u := range s.Users {
		name := model.NormalizeName(u.Name)
		if name == "" {
			return fmt.Errorf("users[%d]: name is required", i)
		}
		if users[name] {
			return fmt.Errorf("users[%d]: duplicate user %q", i, name)
		}
		users[name] = true
	}
	knownUser := func(name string) bool {
		return s.Seed != "" || users[model.NormalizeName(name)]
	}

	// Seeded trades are labelled "seed-<id>" at run time.
	labels := make(map[string]bool)
	knownLabel := func(label string) bool {
		return s.Seed != "" || labels[label]
	}
	for i, step := range s.Flow {
		if err := validateStep(step, knownUser, knownLabel); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.As != "" {
			if labels[step.As] {
				return fmt.Errorf("flow[%d]: trade label %q declared twice", i, step.As)
			}
			labels[step.As] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, knownLabel); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step FlowStep, knownUser, knownLabel func(string) bool) error {
	needUser := func(field, name string) error {
		if name == "" {
			return fmt.Errorf("%s is required for %s", field, step.Op)
		}
		if !knownUser(name) {
			return fmt.Errorf("unknown user %q", name)
		}
		return nil
	}
	needTrade := func() error {
		if step.Trade == "" {
			return fmt.Errorf("trade is required for %s", step.Op)
		}
		if !knownLabel(step.Trade) {
			return fmt.Errorf("trade label %q used before it is declared", step.Trade)
		}
		return nil
	}

	switch step.Op {
	case OpAddCard, OpRemoveCard:
		if step.Card <= 0 {
			return fmt.Errorf("card is required for %s", step.Op)
		}
		return needUser("user", step.User)
	case OpPropose, OpCheckValid:
		if err := needUser("user", step.User); err != nil {
			return err
		}
		if err := needUser("with", step.With); err != nil {
			return err
		}
		if step.As != "" && step.Op != OpPropose {
			return fmt.Errorf("as is only valid on propose")
		}
		return nil
	case OpConfirm, OpUnconfirm:
		if err := needUser("user", step.User); err != nil {
			return err
		}
		return needTrade()
	case OpUnconfirmAll:
		return needUser("user", step.User)
	case OpExecute, OpCancel:
		return needTrade()
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func validateAssertion(a Assertion, knownLabel func(string) bool) error {
	switch a.Type {
	case AssertHolding, AssertPending:
		if a.User == "" {
			return fmt.Errorf("user is required for %s", a.Type)
		}
		for _, l := range a.Trades {
			if !knownLabel(l) {
				return fmt.Errorf("unknown trade label %q", l)
			}
		}
	case AssertOwner:
		if a.Card <= 0 {
			return fmt.Errorf("card is required for owner")
		}
	case AssertTrade:
		if !knownLabel(a.Trade) {
			return fmt.Errorf("unknown trade label %q", a.Trade)
		}
		switch model.TradeState(a.State) {
		case model.TradeProposed, model.TradeOneConfirmed, StateGone:
		default:
			return fmt.Errorf("state must be PROPOSED, ONE_CONFIRMED or GONE, got %q", a.State)
		}
	case AssertTradeCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("count is required and must be non-negative for trade_count")
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("op is required for trace_count")
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("count is required and must be non-negative for trace_count")
		}
	case AssertInvariants:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
