// Package seed loads catalog, user and trade fixtures written in CUE and
// applies them through the engine.
//
// A seed file is unified with the embedded schema before decoding, so
// malformed files fail with the CUE position of the offending value.
// Applying a seed is idempotent: known cards and identical pending trades
// are skipped, and known users are only dealt the listed cards they do not
// hold yet.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/courtside/internal/engine"
	"github.com/roach88/courtside/internal/model"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed demo.cue
var demoCUE []byte

// File is a decoded seed.
type File struct {
	Cards  []model.Card `json:"cards"`
	Users  []User       `json:"users"`
	Trades []Trade      `json:"trades"`
}

// User is a collector to register, with the cards dealt to them.
type User struct {
	Name   string         `json:"name"`
	Access int            `json:"access"`
	Cards  []model.CardID `json:"cards"`
}

// Trade is a proposal from one named user to another. Confirm lists the
// names that confirm it right after it is proposed.
type Trade struct {
	From    string         `json:"from"`
	Offer   []model.CardID `json:"offer"`
	To      string         `json:"to"`
	Request []model.CardID `json:"request"`
	Confirm []string       `json:"confirm"`
}

// Result counts what Apply changed.
type Result struct {
	Cards    int `json:"cards"`
	Users    int `json:"users"`
	Trades   int `json:"trades"`
	Executed int `json:"executed"`
}

// LoadError is a seed that failed to parse or validate.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Demo returns the built-in demo league.
func Demo() (*File, error) {
	return Parse("demo.cue", demoCUE)
}

// LoadFile reads and parses a seed file from disk.
func LoadFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(path, src)
}

// Parse validates src against the seed schema and decodes it.
// filename is only used in error positions.
func Parse(filename string, src []byte) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile seed schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(filename, err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(filename, err)
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return nil, formatCUEError(filename, err)
	}
	if err := f.check(0); err != nil {
		return nil, err
	}
	return &f, nil
}

// check enforces the cross-record rules the schema cannot express.
// A positive maxHand also bounds the number of cards dealt to each user.
func (f *File) check(maxHand int) error {
	cardIDs := make(map[model.CardID]bool, len(f.Cards))
	for _, c := range f.Cards {
		if cardIDs[c.ID] {
			return &LoadError{Field: "cards", Message: fmt.Sprintf("duplicate card id %d", c.ID)}
		}
		cardIDs[c.ID] = true
	}

	users := make(map[string]bool, len(f.Users))
	dealt := make(map[model.CardID]string)
	for _, u := range f.Users {
		name := model.NormalizeName(u.Name)
		if users[name] {
			return &LoadError{Field: "users", Message: fmt.Sprintf("duplicate user %q", name)}
		}
		users[name] = true
		if n := model.NewCardSet(u.Cards...).Len(); maxHand > 0 && n > maxHand {
			return &LoadError{Field: "users", Message: fmt.Sprintf("user %q is dealt %d cards, more than the hand limit of %d", name, n, maxHand)}
		}
		for _, c := range u.Cards {
			if owner, ok := dealt[c]; ok {
				return &LoadError{Field: "users", Message: fmt.Sprintf("card %d dealt to both %q and %q", c, owner, name)}
			}
			dealt[c] = name
		}
	}

	for i, tr := range f.Trades {
		for _, name := range append([]string{tr.From, tr.To}, tr.Confirm...) {
			if !users[model.NormalizeName(name)] {
				return &LoadError{Field: fmt.Sprintf("trades[%d]", i), Message: fmt.Sprintf("unknown user %q", name)}
			}
		}
	}
	return nil
}

// Apply loads the seed through e. Cards are loaded first, then users are
// registered and dealt their cards, then trades are proposed and confirmed.
// A user that already exists is dealt the listed cards it does not hold;
// a listed card held by anybody else is an error.
func Apply(ctx context.Context, e *engine.Engine, f *File) (Result, error) {
	var res Result

	if err := f.check(e.MaxHand()); err != nil {
		return res, err
	}

	n, err := e.LoadCatalog(ctx, f.Cards)
	if err != nil {
		return res, fmt.Errorf("seed catalog: %w", err)
	}
	res.Cards = n

	ids := make(map[string]model.UserID, len(f.Users))
	for _, su := range f.Users {
		u, err := e.GetUserByName(ctx, su.Name)
		switch {
		case engine.IsNotFound(err):
			if u, err = e.RegisterUser(ctx, su.Name, su.Access); err != nil {
				return res, fmt.Errorf("seed user %q: %w", su.Name, err)
			}
			res.Users++
		case err != nil:
			return res, err
		}
		ids[u.Name] = u.ID

		if err := deal(ctx, e, u, su.Cards); err != nil {
			return res, err
		}
	}

	for _, st := range f.Trades {
		from, err := lookup(ctx, e, ids, st.From)
		if err != nil {
			return res, err
		}
		to, err := lookup(ctx, e, ids, st.To)
		if err != nil {
			return res, err
		}

		tr, err := e.ProposeTrade(ctx, from, model.NewCardSet(st.Offer...), to, model.NewCardSet(st.Request...))
		if engine.IsConflict(err) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed trade %s->%s: %w", st.From, st.To, err)
		}
		res.Trades++

		for _, name := range st.Confirm {
			who, err := lookup(ctx, e, ids, name)
			if err != nil {
				return res, err
			}
			cr, err := e.Confirm(ctx, who, tr.ID)
			if err != nil {
				return res, fmt.Errorf("seed confirm %q: %w", name, err)
			}
			if cr.Executed {
				res.Executed++
			}
		}
	}
	return res, nil
}

// deal gives u every card in cards it does not hold yet.
func deal(ctx context.Context, e *engine.Engine, u model.User, cards []model.CardID) error {
	for _, c := range cards {
		if u.Holding.Contains(c) {
			continue
		}
		card, err := e.GetCard(ctx, c)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", u.Name, err)
		}
		if card.Owned {
			return fmt.Errorf("seed user %q: card %d is held by another user", u.Name, c)
		}
		added, err := e.AddCardToUser(ctx, u.ID, c)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", u.Name, err)
		}
		if !added {
			return fmt.Errorf("seed user %q: card %d does not fit the hand", u.Name, c)
		}
	}
	return nil
}

func lookup(ctx context.Context, e *engine.Engine, ids map[string]model.UserID, name string) (model.UserID, error) {
	name = model.NormalizeName(name)
	if id, ok := ids[name]; ok {
		return id, nil
	}
	u, err := e.GetUserByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	ids[name] = u.ID
	return u.ID, nil
}

// formatCUEError extracts position info from CUE errors. Positions inside
// filename are preferred over those in the embedded schema.
func formatCUEError(filename string, err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) == 0 {
		return err
	}
	pos := positions[0]
	for _, p := range positions {
		if p.Filename() == filename {
			pos = p
			break
		}
	}
	return &LoadError{
		Field:   "cue",
		Message: first.Error(),
		Pos:     pos,
	}
}
