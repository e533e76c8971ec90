package sandbox

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukunftch/zukunft.com/changelog"
	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/registry"
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

var (
	alice = User{ID: 1, Name: "alice"}
	bob   = User{ID: 2, Name: "bob"}
)

func newTestResolver(t *testing.T) (*Resolver, *storage.MemStore) {
	t.Helper()
	store := storage.NewMemStore()
	rec := changelog.NewStoreRecorder(store, nil, nil)
	return NewResolver(store, rec, registry.NewTypeRegistry(), nil), store
}

// recorderFunc lets a test inject a failing audit trail.
type recorderFunc func(ctx context.Context, e changelog.Entry) (int64, error)

func (f recorderFunc) Record(ctx context.Context, e changelog.Entry) (int64, error) {
	return f(ctx, e)
}

func mustCreateWord(t *testing.T, r *Resolver, user User, name string) *Word {
	t.Helper()
	w := &Word{WordName: name}
	res, err := r.SaveWord(context.Background(), user, w, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)
	require.NotZero(t, w.RowID)
	return w
}

func TestSaveWordCreate(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	got, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	assert.Equal(t, "Zurich", got.WordName)
	assert.Equal(t, alice.ID, got.OwnerID(), "the creator owns the standard row")

	entries, err := changelog.NewReader(store).ByRow(ctx, TableWords, w.RowID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, changelog.ActionAdd, entries[0].Action)
	assert.Equal(t, "Zurich", entries[0].New)
}

func TestSaveWordRedirectsToExistingName(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	existing := mustCreateWord(t, r, alice, "Zurich")

	res, err := r.SaveWord(ctx, bob, &Word{WordName: "Zurich"}, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirected, res.Outcome)
	assert.Equal(t, existing.RowID, res.RedirectID)
}

func TestSaveWordOwnerUpdatesStandard(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	loaded, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	edit := *loaded
	edit.Description = "largest city of Switzerland"

	res, err := r.SaveWord(ctx, alice, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	require.Len(t, res.EntryIDs, 1)

	// Everyone sees the owner's change.
	seen, err := r.LoadWord(ctx, bob, w.RowID)
	require.NoError(t, err)
	assert.Equal(t, "largest city of Switzerland", seen.Description)
}

func TestSaveWordNonOwnerForksOverride(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	loaded, err := r.LoadWord(ctx, bob, w.RowID)
	require.NoError(t, err)
	edit := *loaded
	edit.Description = "my hometown"

	res, err := r.SaveWord(ctx, bob, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeForked, res.Outcome)

	// Bob sees his view, alice keeps the standard one.
	bobView, err := r.LoadWord(ctx, bob, w.RowID)
	require.NoError(t, err)
	assert.Equal(t, "my hometown", bobView.Description)

	aliceView, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	assert.Equal(t, "", aliceView.Description)
}

func TestSaveWordOwnerForksAfterDivergence(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	// Bob diverges first.
	bobLoaded, err := r.LoadWord(ctx, bob, w.RowID)
	require.NoError(t, err)
	bobEdit := *bobLoaded
	bobEdit.Description = "my hometown"
	_, err = r.SaveWord(ctx, bob, &bobEdit, bobLoaded)
	require.NoError(t, err)

	// Now even the owner cannot mutate the shared row directly.
	aliceLoaded, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	aliceEdit := *aliceLoaded
	aliceEdit.Description = "the canton capital"

	res, err := r.SaveWord(ctx, alice, &aliceEdit, aliceLoaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeForked, res.Outcome)

	// Bob's override still shields him from alice's change.
	bobView, err := r.LoadWord(ctx, bob, w.RowID)
	require.NoError(t, err)
	assert.Equal(t, "my hometown", bobView.Description)
}

func TestSaveWordConflictOnConcurrentStandardChange(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	loaded, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)

	// The standard row changes underneath the open edit.
	require.NoError(t, store.Update(ctx, TableWords, w.RowID,
		[]string{FldDesc}, []any{"changed elsewhere"}))

	edit := *loaded
	edit.Description = "my edit"
	_, err = r.SaveWord(ctx, alice, &edit, loaded)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "want a conflict, got %v", err)
}

func TestSaveWordAbortsWhenLogWriteFails(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	failing := NewResolver(store, recorderFunc(func(context.Context, changelog.Entry) (int64, error) {
		return 0, errors.WrapPersistence(errors.ErrLogWriteFailed, "changelog", "Record", "disk full")
	}), registry.NewTypeRegistry(), nil)

	loaded, err := failing.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	edit := *loaded
	edit.Description = "never persisted"

	_, err = failing.SaveWord(ctx, alice, &edit, loaded)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLogWriteFailed))

	// No unaudited mutation may reach the row.
	fresh, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	assert.Equal(t, "", fresh.Description)
}

func TestSaveWordNoChangeIsNoOp(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	loaded, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	edit := *loaded

	res, err := r.SaveWord(ctx, alice, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Empty(t, res.EntryIDs)

	entries, err := changelog.NewReader(store).ByRow(ctx, TableWords, w.RowID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the add entry, no update noise")
}

func TestSaveWordValidation(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.SaveWord(context.Background(), User{}, &Word{}, nil)
	require.Error(t, err)

	var problems ValidationErrors
	require.ErrorAs(t, err, &problems)
	assert.Len(t, problems, 2, "all problems are reported at once")
}

func TestExcludeWord(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	// A non-owner exclusion only hides the word for that user.
	res, err := r.Exclude(ctx, bob, w)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExcluded, res.Outcome)

	bobView, err := r.LoadWord(ctx, bob, w.RowID)
	require.NoError(t, err)
	assert.True(t, bobView.IsExcluded())

	aliceView, err := r.LoadWord(ctx, alice, w.RowID)
	require.NoError(t, err)
	assert.False(t, aliceView.IsExcluded())
}

func TestExcludeWordByOwner(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	w := mustCreateWord(t, r, alice, "Zurich")

	res, err := r.Exclude(ctx, alice, w)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExcluded, res.Outcome)

	// Nobody diverged, so the shared row itself is excluded.
	bobView, err := r.LoadWord(ctx, bob, w.RowID)
	require.NoError(t, err)
	assert.True(t, bobView.IsExcluded())
}

func seedTriple(t *testing.T, r *Resolver, user User, from, to term.PhraseID) *Triple {
	t.Helper()
	tr := &Triple{From: from, VerbID: 1, To: to}
	res, err := r.SaveTriple(context.Background(), user, tr, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)
	return tr
}

func TestSaveTripleCreateAndRedirect(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	tr := seedTriple(t, r, alice, 1, 2)

	// The same link entered in reverse orientation resolves to the same
	// triple.
	res, err := r.SaveTriple(ctx, bob, &Triple{From: 2, VerbID: -1, To: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirected, res.Outcome)
	assert.Equal(t, tr.RowID, res.RedirectID)
}

func TestSaveTripleValidation(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.SaveTriple(context.Background(), alice, &Triple{From: 3, VerbID: 1, To: 3}, nil)
	require.Error(t, err)
	var problems ValidationErrors
	require.ErrorAs(t, err, &problems)
	assert.Contains(t, problems[0], "itself")
}

func TestSaveTripleIdentityRewriteInPlace(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	tr := seedTriple(t, r, alice, 1, 2)

	loaded, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	edit := *loaded
	edit.To = 3

	// Unused by anyone else, so the owner may rewrite the link itself.
	res, err := r.SaveTriple(ctx, alice, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)

	got, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	assert.Equal(t, edit.To, got.To)
}

func TestSaveTripleIdentityMergesIntoExisting(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	a := seedTriple(t, r, alice, 1, 2)
	b := seedTriple(t, r, alice, 1, 3)

	loaded, err := r.LoadTriple(ctx, bob, a.RowID)
	require.NoError(t, err)
	edit := *loaded
	edit.To = term.PhraseID(3) // same link as b

	res, err := r.SaveTriple(ctx, bob, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirected, res.Outcome)
	assert.Equal(t, b.RowID, res.RedirectID)

	// The abandoned link is hidden for bob but still there for alice.
	bobView, err := r.LoadTriple(ctx, bob, a.RowID)
	require.NoError(t, err)
	assert.True(t, bobView.IsExcluded())

	aliceView, err := r.LoadTriple(ctx, alice, a.RowID)
	require.NoError(t, err)
	assert.False(t, aliceView.IsExcluded())
}

func TestSaveTripleIdentityForksForNonOwner(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	a := seedTriple(t, r, alice, 1, 2)

	loaded, err := r.LoadTriple(ctx, bob, a.RowID)
	require.NoError(t, err)
	edit := *loaded
	edit.To = term.PhraseID(4)

	res, err := r.SaveTriple(ctx, bob, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.NotEqual(t, a.RowID, res.ID)

	// The original link survives unchanged for everyone else.
	aliceView, err := r.LoadTriple(ctx, alice, a.RowID)
	require.NoError(t, err)
	assert.Equal(t, term.PhraseID(2), aliceView.To)
	assert.False(t, aliceView.IsExcluded())
}

func TestSaveValueOverrideNumber(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	n := 8.5
	v := &Value{Group: "ch-zurich-inhabitants-mio", Number: &n}
	res, err := r.SaveValue(ctx, alice, v, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)

	loaded, err := r.LoadValue(ctx, bob, v.RowID)
	require.NoError(t, err)
	edit := *loaded
	m := 8.7
	edit.Number = &m

	res, err = r.SaveValue(ctx, bob, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeForked, res.Outcome)

	bobView, err := r.LoadValue(ctx, bob, v.RowID)
	require.NoError(t, err)
	require.NotNil(t, bobView.Number)
	assert.Equal(t, 8.7, *bobView.Number)

	aliceView, err := r.LoadValue(ctx, alice, v.RowID)
	require.NoError(t, err)
	require.NotNil(t, aliceView.Number)
	assert.Equal(t, 8.5, *aliceView.Number)
}

func TestSaveTripleCachesGeneratedName(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	zurich := mustCreateWord(t, r, alice, "Zurich")
	city := mustCreateWord(t, r, alice, "City")

	tr := &Triple{From: term.PhraseID(zurich.RowID), VerbID: 1, To: term.PhraseID(city.RowID)}
	res, err := r.SaveTriple(ctx, alice, tr, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)

	// The standard row caches the name for lookups by name.
	row, err := store.FetchOne(ctx, storage.Query{
		Table: TableTriples,
		Where: []storage.Cond{storage.Eq(FldTripleID, tr.RowID)},
	})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Zurich (City)", row[FldNameGenerated])

	got, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	assert.Equal(t, "Zurich (City)", got.NameGenerated)
	assert.Equal(t, "Zurich (City)", got.Name())

	// A non-is-a verb spells the link out with the verb name.
	taxes := mustCreateWord(t, r, alice, "Taxes")
	cash := mustCreateWord(t, r, alice, "Cash Flow Statement")
	part := &Triple{From: term.PhraseID(taxes.RowID), VerbID: 2, To: term.PhraseID(cash.RowID)}
	_, err = r.SaveTriple(ctx, alice, part, nil)
	require.NoError(t, err)
	got, err = r.LoadTriple(ctx, alice, part.RowID)
	require.NoError(t, err)
	assert.Equal(t, "Taxes is part of Cash Flow Statement", got.Name())
}

func TestSaveTripleRewriteRefreshesGeneratedName(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	zurich := mustCreateWord(t, r, alice, "Zurich")
	city := mustCreateWord(t, r, alice, "City")
	canton := mustCreateWord(t, r, alice, "Canton")

	tr := seedTriple(t, r, alice, term.PhraseID(zurich.RowID), term.PhraseID(city.RowID))

	loaded, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	require.Equal(t, "Zurich (City)", loaded.Name())

	edit := *loaded
	edit.To = term.PhraseID(canton.RowID)
	res, err := r.SaveTriple(ctx, alice, &edit, loaded)
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, res.Outcome)

	got, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	assert.Equal(t, "Zurich (Canton)", got.NameGenerated)
}

func TestSaveValueBumpsPhraseUsage(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	zurich := mustCreateWord(t, r, alice, "Zurich")
	city := mustCreateWord(t, r, alice, "City")
	tr := seedTriple(t, r, alice, term.PhraseID(zurich.RowID), term.PhraseID(city.RowID))

	n := 0.44
	v := &Value{Group: fmt.Sprintf("%d,%d", -tr.RowID, zurich.RowID), Number: &n}
	res, err := r.SaveValue(ctx, alice, v, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)

	w, err := r.LoadWord(ctx, alice, zurich.RowID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.Usage)

	got, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Values)

	// The untouched word keeps its counter.
	c, err := r.LoadWord(ctx, alice, city.RowID)
	require.NoError(t, err)
	assert.Zero(t, c.Usage)
}

func TestSaveTripleIdentityForksWhenValuesExist(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	zurich := mustCreateWord(t, r, alice, "Zurich")
	city := mustCreateWord(t, r, alice, "City")
	canton := mustCreateWord(t, r, alice, "Canton")
	tr := seedTriple(t, r, alice, term.PhraseID(zurich.RowID), term.PhraseID(city.RowID))

	n := 1.0
	v := &Value{Group: fmt.Sprintf("%d", -tr.RowID), Number: &n}
	_, err := r.SaveValue(ctx, alice, v, nil)
	require.NoError(t, err)

	loaded, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	edit := *loaded
	edit.To = term.PhraseID(canton.RowID)

	// A value refers to the link, so even the owner cannot rewrite it in
	// place; the edit becomes a new triple and the old one is retired.
	res, err := r.SaveTriple(ctx, alice, &edit, loaded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.NotEqual(t, tr.RowID, res.ID)

	old, err := r.LoadTriple(ctx, alice, tr.RowID)
	require.NoError(t, err)
	assert.Equal(t, term.PhraseID(city.RowID), old.To, "the referenced link keeps its identity")
	assert.True(t, old.IsExcluded())
}
