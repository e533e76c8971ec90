package sandbox

import (
	"context"

	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// Term bundles one object from the unified term id space. Exactly one of
// the payload fields is set, selected by TermKind. Verbs are not sandboxed
// entities; they come from the registry and carry no user overlay.
type Term struct {
	TermKind term.Kind
	Word     *Word
	Triple   *Triple
	Formula  *Formula
	Verb     term.Verb
}

// Entity returns the sandboxed payload, or nil for a verb.
func (t *Term) Entity() Entity {
	switch t.TermKind {
	case term.KindWord:
		return t.Word
	case term.KindTriple:
		return t.Triple
	case term.KindFormula:
		return t.Formula
	default:
		return nil
	}
}

// Name returns the resolved name of the payload.
func (t *Term) Name() string {
	if t.TermKind == term.KindVerb {
		return t.Verb.Name
	}
	if e := t.Entity(); e != nil {
		return e.Name()
	}
	return ""
}

// ID returns the unified term id of the payload, 0 if unresolved.
func (t *Term) ID() term.TermID {
	var native int64
	if t.TermKind == term.KindVerb {
		native = t.Verb.ID
	} else if e := t.Entity(); e != nil {
		native = e.ID()
	}
	if native == 0 {
		return 0
	}
	id, err := term.EncodeTerm(t.TermKind, native)
	if err != nil {
		return 0
	}
	return id
}

// LoadTerm resolves a unified term id to the object it addresses, as the
// user sees it.
func (r *Resolver) LoadTerm(ctx context.Context, user User, id term.TermID) (*Term, error) {
	kind, nativeID, err := term.DecodeTerm(id)
	if err != nil {
		return nil, err
	}
	switch kind {
	case term.KindWord:
		w, err := r.LoadWord(ctx, user, nativeID)
		if err != nil {
			return nil, err
		}
		return &Term{TermKind: kind, Word: w}, nil
	case term.KindTriple:
		tr, err := r.LoadTriple(ctx, user, nativeID)
		if err != nil {
			return nil, err
		}
		return &Term{TermKind: kind, Triple: tr}, nil
	case term.KindFormula:
		f, err := r.LoadFormula(ctx, user, nativeID)
		if err != nil {
			return nil, err
		}
		return &Term{TermKind: kind, Formula: f}, nil
	default:
		v, ok := r.registry.VerbByID(nativeID)
		if !ok {
			return nil, errors.NotFoundf("sandbox", "LoadTerm", "verb %d not registered", nativeID)
		}
		return &Term{TermKind: term.KindVerb, Verb: v}, nil
	}
}

// FindTermByName resolves a name across all four kinds. When the same name
// exists more than once the word wins, then the triple, then the formula,
// then the verb (forward or reverse name).
func (r *Resolver) FindTermByName(ctx context.Context, user User, name string) (*Term, error) {
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrEmptyName, "sandbox", "FindTermByName", "name check")
	}

	w, err := r.LoadWordByName(ctx, user, name)
	if err == nil {
		return &Term{TermKind: term.KindWord, Word: w}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	tr, err := r.findTripleByName(ctx, user, name)
	if err == nil {
		return &Term{TermKind: term.KindTriple, Triple: tr}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	f, err := r.findFormulaByName(ctx, user, name)
	if err == nil {
		return &Term{TermKind: term.KindFormula, Formula: f}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	if v, _, ok := r.registry.ResolveVerbName(name); ok {
		return &Term{TermKind: term.KindVerb, Verb: v}, nil
	}
	return nil, errors.NotFoundf("sandbox", "FindTermByName", "no term named %q", name)
}

// findTripleByName checks the three triple name columns in precedence
// order against the standard rows.
func (r *Resolver) findTripleByName(ctx context.Context, user User, name string) (*Triple, error) {
	for _, field := range []string{FldTripleName, FldNameGiven, FldNameGenerated} {
		row, err := r.store.FetchOne(ctx, storage.Query{
			Table: TableTriples,
			Where: []storage.Cond{storage.Eq(field, name)},
		})
		if err != nil {
			return nil, errors.Wrap(err, "sandbox", "findTripleByName", "name lookup")
		}
		if row != nil {
			return r.LoadTriple(ctx, user, rowInt64(row[FldTripleID]))
		}
	}
	return nil, errors.NotFoundf("sandbox", "findTripleByName", "no triple named %q", name)
}

func (r *Resolver) findFormulaByName(ctx context.Context, user User, name string) (*Formula, error) {
	row, err := r.store.FetchOne(ctx, storage.Query{
		Table: TableFormulas,
		Where: []storage.Cond{storage.Eq(FldFormulaName, name)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "findFormulaByName", "name lookup")
	}
	if row == nil {
		return nil, errors.NotFoundf("sandbox", "findFormulaByName", "no formula named %q", name)
	}
	return r.LoadFormula(ctx, user, rowInt64(row[FldFormulaID]))
}
