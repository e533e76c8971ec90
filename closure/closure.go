// Package closure implements the phrase graph traversal operations: the
// transitive parent and child closures over verb-typed triples and the
// combined expansions the calculation layer asks for, such as "everything
// that is a kind of, or a part of, these phrases".
//
// The engine never loads whole entities; it works on phrase ids and leaves
// name resolution to the caller. Cycles terminate through the visited set;
// the loop ceiling is a second guard that also bounds pathological graphs.
package closure

import (
	"context"
	"log/slog"

	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/metric"
	"github.com/zukunftch/zukunft.com/registry"
	"github.com/zukunftch/zukunft.com/term"
)

// DefaultMaxLevels bounds how many expansion levels a single traversal may
// run. Real phrase hierarchies are a handful of levels deep; hitting this
// ceiling almost always means a data problem.
const DefaultMaxLevels = 100

// Edge is one forward-oriented, verb-typed link in the phrase graph.
type Edge struct {
	TripleID int64
	From     term.PhraseID
	VerbID   int64
	To       term.PhraseID
}

// EdgeSource supplies the edges of the phrase graph level by level. Both
// methods return forward-oriented edges regardless of how the underlying
// rows were entered.
type EdgeSource interface {
	// EdgesUp returns the edges with the given verb whose from side is in
	// ids: one step toward the more general phrases.
	EdgesUp(ctx context.Context, verbID int64, ids []term.PhraseID) ([]Edge, error)
	// EdgesDown returns the edges with the given verb whose to side is in
	// ids: one step toward the more specific phrases.
	EdgesDown(ctx context.Context, verbID int64, ids []term.PhraseID) ([]Edge, error)
}

// Engine runs closure traversals over an edge source.
type Engine struct {
	edges     EdgeSource
	reg       *registry.TypeRegistry
	logger    *slog.Logger
	metrics   *metric.Metrics
	maxLevels int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics wires traversal counters into the engine.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxLevels overrides the traversal level ceiling.
func WithMaxLevels(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLevels = n
		}
	}
}

// NewEngine creates a closure engine over the given edge source and verb
// registry.
func NewEngine(edges EdgeSource, reg *registry.TypeRegistry, opts ...Option) *Engine {
	e := &Engine{
		edges:     edges,
		reg:       reg,
		logger:    slog.Default(),
		maxLevels: DefaultMaxLevels,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) verbID(op, code string) (int64, error) {
	v, ok := e.reg.VerbByCode(code)
	if !ok {
		return 0, errors.Invalidf("closure", op, "unknown verb code %q", code)
	}
	return v.ID, nil
}

// traverse expands level by level from the seeds, following the verb either
// up (toward To) or down (toward From). The seeds themselves are not part
// of the result.
func (e *Engine) traverse(ctx context.Context, op string, verbID int64, seeds []term.PhraseID, up bool, maxLevels int) ([]term.PhraseID, error) {
	limit := maxLevels
	if limit <= 0 || limit > e.maxLevels {
		limit = e.maxLevels
	}

	seen := make(map[term.PhraseID]bool, len(seeds))
	frontier := make([]term.PhraseID, 0, len(seeds))
	for _, id := range seeds {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		frontier = append(frontier, id)
	}

	var out []term.PhraseID
	levels := 0
	for len(frontier) > 0 {
		if levels >= limit {
			e.logger.Warn("traversal stopped at level ceiling",
				"operation", op, "verb_id", verbID, "levels", levels, "found", len(out))
			if e.metrics != nil {
				e.metrics.RecordCeilingHit()
			}
			break
		}

		var (
			edges []Edge
			err   error
		)
		if up {
			edges, err = e.edges.EdgesUp(ctx, verbID, frontier)
		} else {
			edges, err = e.edges.EdgesDown(ctx, verbID, frontier)
		}
		if err != nil {
			return nil, errors.Wrap(err, "closure", op, "edge fetch")
		}

		var next []term.PhraseID
		for _, ed := range edges {
			n := ed.To
			if !up {
				n = ed.From
			}
			if n == 0 || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			next = append(next, n)
		}
		frontier = next
		levels++
	}

	if e.metrics != nil {
		e.metrics.RecordTraversal(op, levels)
	}
	return out, nil
}

// Parents returns the transitive closure of the given verb upward: all
// phrases reachable by following the verb from the seeds. maxLevels 0 means
// the engine ceiling; 1 gives the direct parents only.
func (e *Engine) Parents(ctx context.Context, verbCode string, seeds []term.PhraseID, maxLevels int) ([]term.PhraseID, error) {
	id, err := e.verbID("Parents", verbCode)
	if err != nil {
		return nil, err
	}
	return e.traverse(ctx, "parents", id, seeds, true, maxLevels)
}

// Children returns the transitive closure of the given verb downward: all
// phrases from which the seeds are reachable by following the verb.
func (e *Engine) Children(ctx context.Context, verbCode string, seeds []term.PhraseID, maxLevels int) ([]term.PhraseID, error) {
	id, err := e.verbID("Children", verbCode)
	if err != nil {
		return nil, err
	}
	return e.traverse(ctx, "children", id, seeds, false, maxLevels)
}

// Are returns every phrase that is a kind of one of the seeds, the seeds
// included: the is-a child closure merged with the seeds themselves.
func (e *Engine) Are(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	kids, err := e.Children(ctx, term.RelationIsA, seeds, 0)
	if err != nil {
		return nil, err
	}
	return MergeIDs(seeds, kids), nil
}

// Contains returns every phrase that is a part of one of the seeds, the
// seeds included: the is-part-of child closure merged with the seeds.
func (e *Engine) Contains(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	parts, err := e.Children(ctx, term.RelationIsPartOf, seeds, 0)
	if err != nil {
		return nil, err
	}
	return MergeIDs(seeds, parts), nil
}

// AreAndContains alternates the is-a and is-part-of child expansions until
// the set stops growing: "Cash Flow Statement" pulls in its parts, the
// parts pull in their subtypes, and so on. The round ceiling guards
// degenerate graphs.
func (e *Engine) AreAndContains(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	result := MergeIDs(nil, seeds)
	for round := 0; ; round++ {
		if round >= e.maxLevels {
			e.logger.Warn("combined expansion stopped at round ceiling",
				"rounds", round, "found", len(result))
			if e.metrics != nil {
				e.metrics.RecordCeilingHit()
			}
			break
		}

		kids, err := e.Children(ctx, term.RelationIsA, result, 0)
		if err != nil {
			return nil, err
		}
		parts, err := e.Children(ctx, term.RelationIsPartOf, result, 0)
		if err != nil {
			return nil, err
		}

		before := len(result)
		result = MergeIDs(result, kids)
		result = MergeIDs(result, parts)
		if len(result) == before {
			break
		}
	}
	if e.metrics != nil {
		e.metrics.RecordTraversal("are_and_contains", 0)
	}
	return result, nil
}

// Differentiators returns the phrases the seeds can contain, one hop over
// the can-contain verb. The caller merges them into its working list to
// split a value set by, say, sector or region.
func (e *Engine) Differentiators(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	id, err := e.verbID("Differentiators", term.RelationCanContain)
	if err != nil {
		return nil, err
	}
	return e.traverse(ctx, "differentiators", id, seeds, true, 1)
}

// MergeIDs appends the ids of b not yet present in a, preserving order.
// The first argument may be nil.
func MergeIDs(a, b []term.PhraseID) []term.PhraseID {
	seen := make(map[term.PhraseID]bool, len(a)+len(b))
	out := make([]term.PhraseID, 0, len(a)+len(b))
	for _, id := range a {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range b {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
