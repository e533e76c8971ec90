package closure

import (
	"context"

	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/sandbox"
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// StoreEdges is the EdgeSource over the triples table. Rows entered in
// reverse orientation (negative verb id, sides swapped) are normalized on
// the way out, and logically deleted rows are skipped.
type StoreEdges struct {
	store storage.RowStore
}

// NewStoreEdges creates an edge source over the given row store.
func NewStoreEdges(store storage.RowStore) *StoreEdges {
	return &StoreEdges{store: store}
}

func phraseInts(ids []term.PhraseID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func edgeFromRow(row storage.Row) (Edge, bool) {
	if v, ok := row[sandbox.FldExcluded]; ok && v != nil {
		if n, isInt := v.(int64); isInt && n != 0 {
			return Edge{}, false
		}
	}
	e := Edge{
		TripleID: rowInt(row[sandbox.FldTripleID]),
		From:     term.PhraseID(rowInt(row[sandbox.FldTripleFrom])),
		VerbID:   rowInt(row[sandbox.FldTripleVerb]),
		To:       term.PhraseID(rowInt(row[sandbox.FldTripleTo])),
	}
	if e.VerbID < 0 {
		e.From, e.To = e.To, e.From
		e.VerbID = -e.VerbID
	}
	return e, true
}

func rowInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// fetch runs one triples query and normalizes the result rows.
func (s *StoreEdges) fetch(ctx context.Context, op string, where []storage.Cond) ([]Edge, error) {
	rows, err := s.store.FetchMany(ctx, storage.Query{Table: sandbox.TableTriples, Where: where})
	if err != nil {
		return nil, errors.Wrap(err, "closure", op, "fetch triples")
	}
	out := make([]Edge, 0, len(rows))
	for _, row := range rows {
		if e, ok := edgeFromRow(row); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// EdgesUp returns the forward edges with the given verb whose from side is
// in ids. Reverse-stored rows match with the sides swapped.
func (s *StoreEdges) EdgesUp(ctx context.Context, verbID int64, ids []term.PhraseID) ([]Edge, error) {
	ints := phraseInts(ids)

	forward, err := s.fetch(ctx, "EdgesUp", []storage.Cond{
		storage.Eq(sandbox.FldTripleVerb, verbID),
		storage.In(sandbox.FldTripleFrom, ints),
	})
	if err != nil {
		return nil, err
	}
	reversed, err := s.fetch(ctx, "EdgesUp", []storage.Cond{
		storage.Eq(sandbox.FldTripleVerb, -verbID),
		storage.In(sandbox.FldTripleTo, ints),
	})
	if err != nil {
		return nil, err
	}
	return append(forward, reversed...), nil
}

// EdgesDown returns the forward edges with the given verb whose to side is
// in ids. Reverse-stored rows match with the sides swapped.
func (s *StoreEdges) EdgesDown(ctx context.Context, verbID int64, ids []term.PhraseID) ([]Edge, error) {
	ints := phraseInts(ids)

	forward, err := s.fetch(ctx, "EdgesDown", []storage.Cond{
		storage.Eq(sandbox.FldTripleVerb, verbID),
		storage.In(sandbox.FldTripleTo, ints),
	})
	if err != nil {
		return nil, err
	}
	reversed, err := s.fetch(ctx, "EdgesDown", []storage.Cond{
		storage.Eq(sandbox.FldTripleVerb, -verbID),
		storage.In(sandbox.FldTripleFrom, ints),
	})
	if err != nil {
		return nil, err
	}
	return append(forward, reversed...), nil
}
