package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukunftch/zukunft.com/term"
)

func word(id int64, name string) *Word {
	return &Word{RowID: id, WordName: name}
}

func TestNamedListAdd(t *testing.T) {
	alice := User{ID: 1, Name: "alice"}
	l := NewNamedList(alice)

	assert.True(t, l.Add(word(1, "Zurich")))
	assert.True(t, l.Add(word(2, "Bern")))
	assert.False(t, l.Add(word(1, "Zurich renamed")), "an id may appear only once")
	assert.Equal(t, 2, l.Count())

	// Entities awaiting identity resolution have no id yet and are kept.
	assert.True(t, l.Add(word(0, "pending")))
	assert.Equal(t, 3, l.Count())

	assert.True(t, l.ContainsID(term.KindWord, 2))
	assert.False(t, l.ContainsID(term.KindWord, 99))
	assert.Equal(t, alice, l.User())
}

func TestNamedListGetByNameAfterMutation(t *testing.T) {
	l := NewNamedList(User{ID: 1}, word(1, "Zurich"))

	got := l.GetByName("Zurich")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID())

	// The name index must follow later additions.
	l.Add(word(2, "Bern"))
	got = l.GetByName("Bern")
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID())

	assert.Nil(t, l.GetByName("Geneva"))
}

func TestNamedListFilterExcludes(t *testing.T) {
	l := NewNamedList(User{ID: 1},
		word(1, "Zurich"), word(2, "Bern"), word(3, "Geneva"))
	exclude := NewNamedList(User{ID: 1}, word(2, "Bern"))

	kept := l.Filter(exclude)
	assert.Equal(t, []int64{1, 3}, kept.IDs())
	assert.Equal(t, 3, l.Count(), "Filter must not touch the receiver")
}

func TestNamedListDiffMutates(t *testing.T) {
	l := NewNamedList(User{ID: 1},
		word(1, "Zurich"), word(2, "Bern"), word(3, "Geneva"))
	remove := NewNamedList(User{ID: 1}, word(1, "Zurich"), word(3, "Geneva"))

	l.Diff(remove)
	assert.Equal(t, []int64{2}, l.IDs())
	assert.NotNil(t, l.GetByName("Bern"), "the name index must survive a diff")
	assert.Nil(t, l.GetByName("Zurich"))
}

func TestNamedListMergeDeduplicates(t *testing.T) {
	l := NewNamedList(User{ID: 1}, word(1, "Zurich"), word(2, "Bern"))
	other := NewNamedList(User{ID: 1}, word(2, "Bern"), word(3, "Geneva"))

	merged := l.Merge(other)
	assert.Same(t, l, merged, "Merge returns the receiver for chaining")
	assert.Equal(t, []int64{1, 2, 3}, l.IDs())
}

func TestNamedListFilterByNameAndSelectByName(t *testing.T) {
	l := NewNamedList(User{ID: 1},
		word(1, "Zurich"), word(2, "Bern"), word(3, "Geneva"))

	without := l.FilterByName([]string{"Bern"})
	assert.Equal(t, []string{"Zurich", "Geneva"}, without.Names())

	only := l.SelectByName([]string{"Bern", "Geneva"})
	assert.Equal(t, []string{"Bern", "Geneva"}, only.Names())
}

func TestNamedListPhraseIDs(t *testing.T) {
	l := NewNamedList(User{ID: 1})
	l.Add(word(5, "Zurich"))
	l.Add(&Triple{RowID: 5, From: 1, VerbID: 1, To: 2})

	ids := l.PhraseIDs()
	assert.Equal(t, []term.PhraseID{5, -5}, ids,
		"word and triple with the same native id stay distinct phrases")
}

func TestNamedListSortByName(t *testing.T) {
	l := NewNamedList(User{ID: 1},
		word(3, "Geneva"), word(1, "Zurich"), word(2, "Bern"))
	l.SortByName()
	assert.Equal(t, []string{"Bern", "Geneva", "Zurich"}, l.Names())
}

func TestNamedListCloneIsIndependent(t *testing.T) {
	l := NewNamedList(User{ID: 1}, word(1, "Zurich"))
	c := l.Clone()
	c.Add(word(2, "Bern"))
	assert.Equal(t, 1, l.Count())
	assert.Equal(t, 2, c.Count())
}

func TestNamedListKeepsValueAndWordApart(t *testing.T) {
	l := NewNamedList(User{ID: 1}, word(5, "Zurich"))

	// A value sharing a word's native id is a different entity kind and
	// must not be swallowed as a duplicate.
	n := 8.5
	v := &Value{RowID: 5, Group: "1,-3", Number: &n}
	assert.True(t, l.Add(v))
	assert.Equal(t, 2, l.Count())

	// Values live outside the phrase id space.
	assert.Equal(t, term.PhraseID(0), PhraseID(v))
	assert.False(t, v.Kind().IsPhrase())
}

func TestNamedListContainsIDIsKindAware(t *testing.T) {
	l := NewNamedList(User{ID: 1}, word(2, "Bern"))
	l.Add(&Triple{RowID: 2, From: 1, VerbID: 1, To: 3})

	assert.True(t, l.ContainsID(term.KindWord, 2))
	assert.True(t, l.ContainsID(term.KindTriple, 2))
	assert.False(t, l.ContainsID(term.KindFormula, 2))
	assert.False(t, l.ContainsID(term.KindTriple, 3))
}
