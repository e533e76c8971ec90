package service

import (
	"context"

	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/sandbox"
	"github.com/zukunftch/zukunft.com/term"
)

// Direction selects which way a closure call walks the relation.
type Direction int

const (
	// DirectionUp walks towards the more general phrases (parents).
	DirectionUp Direction = iota
	// DirectionDown walks towards the more specific phrases (children).
	DirectionDown
)

// ResolveEntity loads the entity of the given kind and id as the user sees
// it. Formulas live in the term id space next to words; values are not
// terms and have their own accessor.
func (s *Service) ResolveEntity(ctx context.Context, user sandbox.User, kind term.Kind, id int64) (sandbox.Entity, error) {
	switch kind {
	case term.KindWord:
		return s.resolver.LoadWord(ctx, user, id)
	case term.KindTriple:
		return s.resolver.LoadTriple(ctx, user, id)
	case term.KindFormula:
		return s.resolver.LoadFormula(ctx, user, id)
	default:
		return nil, errors.Invalidf("service", "ResolveEntity", "cannot resolve kind %v", kind)
	}
}

// SaveEntity dispatches a save on the entity's concrete type. The generic
// path cannot carry a load snapshot, so it skips the concurrent-change
// check; callers that edit a loaded entity should use the typed Save
// methods with the snapshot they loaded.
func (s *Service) SaveEntity(ctx context.Context, user sandbox.User, e sandbox.Entity) (sandbox.SaveResult, error) {
	switch v := e.(type) {
	case *sandbox.Word:
		return s.SaveWord(ctx, user, v, nil)
	case *sandbox.Triple:
		return s.SaveTriple(ctx, user, v, nil)
	case *sandbox.Formula:
		return s.SaveFormula(ctx, user, v, nil)
	case *sandbox.Value:
		return s.SaveValue(ctx, user, v, nil)
	default:
		return sandbox.SaveResult{}, errors.Invalidf("service", "SaveEntity", "cannot save kind %v", e.Kind())
	}
}

// Closure walks one relation from the seeds in the given direction.
// maxLevels of 0 selects the configured ceiling; 1 gives the direct
// relations only.
func (s *Service) Closure(ctx context.Context, verbCode string, dir Direction, seeds []term.PhraseID, maxLevels int) ([]term.PhraseID, error) {
	if dir == DirectionUp {
		return s.engine.Parents(ctx, verbCode, seeds, maxLevels)
	}
	return s.engine.Children(ctx, verbCode, seeds, maxLevels)
}
