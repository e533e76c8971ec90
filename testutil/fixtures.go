// Package testutil provides row-level fixture helpers for tests that seed
// a store directly, below the sandbox write path.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zukunftch/zukunft.com/sandbox"
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// InsertWord seeds a standard word row and returns its id.
func InsertWord(t *testing.T, store storage.RowStore, owner int64, name string) int64 {
	t.Helper()
	id, err := store.Insert(context.Background(), sandbox.TableWords,
		[]string{sandbox.FldOwner, sandbox.FldWordName},
		[]any{owner, name})
	require.NoError(t, err)
	return id
}

// InsertTriple seeds a standard triple row exactly as given; a negative
// verb id stores the link in reverse orientation.
func InsertTriple(t *testing.T, store storage.RowStore, from term.PhraseID, verbID int64, to term.PhraseID) int64 {
	t.Helper()
	id, err := store.Insert(context.Background(), sandbox.TableTriples,
		[]string{sandbox.FldTripleFrom, sandbox.FldTripleVerb, sandbox.FldTripleTo},
		[]any{int64(from), verbID, int64(to)})
	require.NoError(t, err)
	return id
}

// InsertVerb seeds a verb row the registry can load.
func InsertVerb(t *testing.T, store storage.RowStore, v term.Verb) {
	t.Helper()
	_, err := store.Insert(context.Background(), "verbs",
		[]string{"verb_id", "code_id", "verb_name", "name_reverse"},
		[]any{v.ID, v.Code, v.Name, v.Reverse})
	require.NoError(t, err)
}

// SeedChain links the phrases into a chain with the given verb:
// ids[0] -> ids[1] -> ... -> ids[n-1].
func SeedChain(t *testing.T, store storage.RowStore, verbID int64, ids ...term.PhraseID) {
	t.Helper()
	for i := 0; i+1 < len(ids); i++ {
		InsertTriple(t, store, ids[i], verbID, ids[i+1])
	}
}
