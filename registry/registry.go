// Package registry provides the constructed-once TypeRegistry for type-code
// lookups: verbs with their reverse names, change-log code tables, share and
// protection levels. It replaces ambient global lookup tables; every
// component that needs a code lookup receives the registry explicitly.
package registry

import (
	"context"
	"sync"

	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// TypeRegistry holds the code tables of the core. It is built once at
// startup, optionally refreshed from the store, and safe for concurrent
// readers.
type TypeRegistry struct {
	mu          sync.RWMutex
	verbs       map[int64]term.Verb
	verbsByCode map[string]int64
	verbsByName map[string]int64 // forward names only
	verbsByRev  map[string]int64 // reverse names
}

// builtinVerbs seeds the registry so unit tests and a fresh database agree
// on the relation codes the closure engine traverses.
var builtinVerbs = []term.Verb{
	{ID: 1, Code: term.RelationIsA, Name: "is a", Reverse: "are"},
	{ID: 2, Code: term.RelationIsPartOf, Name: "is part of", Reverse: "contains"},
	{ID: 3, Code: term.RelationCanContain, Name: "can contain", Reverse: "is used for"},
	{ID: 4, Code: term.RelationFollows, Name: "follows", Reverse: "is followed by"},
}

// NewTypeRegistry creates a registry seeded with the built-in verbs.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		verbs:       make(map[int64]term.Verb),
		verbsByCode: make(map[string]int64),
		verbsByName: make(map[string]int64),
		verbsByRev:  make(map[string]int64),
	}
	for _, v := range builtinVerbs {
		r.putVerb(v)
	}
	return r
}

func (r *TypeRegistry) putVerb(v term.Verb) {
	r.verbs[v.ID] = v
	if v.Code != "" {
		r.verbsByCode[v.Code] = v.ID
	}
	if v.Name != "" {
		r.verbsByName[v.Name] = v.ID
	}
	if v.HasReverse() {
		r.verbsByRev[v.Reverse] = v.ID
	}
}

// AddVerb registers a verb. The id must be positive and not yet taken by a
// different verb.
func (r *TypeRegistry) AddVerb(v term.Verb) error {
	if v.ID <= 0 {
		return errors.Invalidf("registry", "AddVerb", "verb id must be positive, got %d", v.ID)
	}
	if v.Name == "" {
		return errors.WrapInvalid(errors.ErrEmptyName, "registry", "AddVerb", "verb name check")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.verbs[v.ID]; ok && old.Name != v.Name {
		return errors.Invalidf("registry", "AddVerb",
			"verb id %d already taken by %q", v.ID, old.Name)
	}
	r.putVerb(v)
	return nil
}

// LoadVerbs refreshes the verb table from the store, keeping built-ins for
// ids the store does not know.
func (r *TypeRegistry) LoadVerbs(ctx context.Context, store storage.RowStore) error {
	rows, err := store.FetchMany(ctx, storage.Query{Table: "verbs"})
	if err != nil {
		return errors.Wrap(err, "registry", "LoadVerbs", "fetch verbs")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		v := term.Verb{
			ID:      asInt64(row["verb_id"]),
			Code:    asString(row["code_id"]),
			Name:    asString(row["verb_name"]),
			Reverse: asString(row["name_reverse"]),
			Usage:   asInt64(row["usage"]),
		}
		if v.ID > 0 && v.Name != "" {
			r.putVerb(v)
		}
	}
	return nil
}

// VerbByID returns the verb with the given native id.
func (r *TypeRegistry) VerbByID(id int64) (term.Verb, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verbs[id]
	return v, ok
}

// VerbByCode returns the verb with the given stable code id, e.g. "is-a".
func (r *TypeRegistry) VerbByCode(code string) (term.Verb, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.verbsByCode[code]
	if !ok {
		return term.Verb{}, false
	}
	return r.verbs[id], true
}

// ResolveVerbName looks a verb up by its user-visible name. A match on the
// reverse name reports reversed=true; the caller stores such links with a
// negated verb id so loading can normalize the orientation.
func (r *TypeRegistry) ResolveVerbName(name string) (v term.Verb, reversed bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, found := r.verbsByName[name]; found {
		return r.verbs[id], false, true
	}
	if id, found := r.verbsByRev[name]; found {
		return r.verbs[id], true, true
	}
	return term.Verb{}, false, false
}

// Verbs returns all registered verbs in unspecified order.
func (r *TypeRegistry) Verbs() []term.Verb {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]term.Verb, 0, len(r.verbs))
	for _, v := range r.verbs {
		out = append(out, v)
	}
	return out
}

func asInt64(v any) int64 {
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

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
