package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukunftch/zukunft.com/sandbox"
	"github.com/zukunftch/zukunft.com/term"
)

func mustSaveWord(t *testing.T, svc *Service, user sandbox.User, name string) int64 {
	t.Helper()
	res, err := svc.SaveWord(context.Background(), user, &sandbox.Word{WordName: name}, nil)
	require.NoError(t, err)
	require.Equal(t, sandbox.OutcomeCreated, res.Outcome)
	return res.ID
}

func mustSaveTriple(t *testing.T, svc *Service, user sandbox.User, from, to term.PhraseID, verbID int64) int64 {
	t.Helper()
	res, err := svc.SaveTriple(context.Background(), user,
		&sandbox.Triple{From: from, VerbID: verbID, To: to}, nil)
	require.NoError(t, err)
	return res.ID
}

func TestSaveAndGetWord(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustSaveWord(t, svc, alice, "Zurich")

	w, err := svc.GetWord(ctx, bob, id)
	require.NoError(t, err)
	assert.Equal(t, "Zurich", w.WordName)
}

func TestGetWordByNameUsesCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustSaveWord(t, svc, alice, "Bern")

	w, err := svc.GetWordByName(ctx, alice, "Bern")
	require.NoError(t, err)
	assert.Equal(t, id, w.ID())

	before := svc.nameCache.Stats()
	w, err = svc.GetWordByName(ctx, alice, "Bern")
	require.NoError(t, err)
	assert.Equal(t, id, w.ID())
	after := svc.nameCache.Stats()
	assert.Equal(t, before.Hits+1, after.Hits, "second lookup should hit the name cache")
}

func TestSaveWordInvalidatesCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustSaveWord(t, svc, alice, "Basle")
	snapshot, err := svc.GetWordByName(ctx, alice, "Basle")
	require.NoError(t, err)

	edited := *snapshot
	edited.WordName = "Basel"
	res, err := svc.SaveWord(ctx, alice, &edited, snapshot)
	require.NoError(t, err)
	assert.Equal(t, sandbox.OutcomeUpdated, res.Outcome)

	_, err = svc.GetWordByName(ctx, alice, "Basle")
	require.Error(t, err, "old name must no longer resolve")

	w, err := svc.GetWordByName(ctx, alice, "Basel")
	require.NoError(t, err)
	assert.Equal(t, id, w.ID())
}

func TestExcludeWordHidesForUserOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustSaveWord(t, svc, alice, "Geneva")

	res, err := svc.ExcludeWord(ctx, bob, id)
	require.NoError(t, err)
	assert.Equal(t, sandbox.OutcomeExcluded, res.Outcome)

	w, err := svc.GetWord(ctx, bob, id)
	require.NoError(t, err)
	assert.Equal(t, sandbox.TriTrue, w.Excluded)

	w, err = svc.GetWord(ctx, alice, id)
	require.NoError(t, err)
	assert.NotEqual(t, sandbox.TriTrue, w.Excluded)
}

func TestTripleRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	zurich := mustSaveWord(t, svc, alice, "Zurich")
	city := mustSaveWord(t, svc, alice, "City")

	id := mustSaveTriple(t, svc, alice, term.PhraseID(zurich), term.PhraseID(city), 1)

	tr, err := svc.GetTriple(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, term.PhraseID(zurich), tr.From)
	assert.Equal(t, int64(1), tr.VerbID)
	assert.Equal(t, term.PhraseID(city), tr.To)
}

func TestClosureThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	zurich := mustSaveWord(t, svc, alice, "Zurich")
	city := mustSaveWord(t, svc, alice, "City")
	place := mustSaveWord(t, svc, alice, "Place")

	mustSaveTriple(t, svc, alice, term.PhraseID(zurich), term.PhraseID(city), 1)
	mustSaveTriple(t, svc, alice, term.PhraseID(city), term.PhraseID(place), 1)

	got, err := svc.Are(ctx, []term.PhraseID{term.PhraseID(place)})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]term.PhraseID{term.PhraseID(place), term.PhraseID(city), term.PhraseID(zurich)}, got)
}

func TestChangesForTracksSaves(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustSaveWord(t, svc, alice, "Lugano")

	entries, err := svc.ChangesFor(ctx, sandbox.TableWords, id)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, int64(alice.ID), entries[0].UserID)
	assert.Equal(t, sandbox.TableWords, entries[0].Table)
}

func TestSaveValueThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	inflation := 8.5
	res, err := svc.SaveValue(ctx, alice,
		&sandbox.Value{Group: "1,-3", Number: &inflation}, nil)
	require.NoError(t, err)
	require.Equal(t, sandbox.OutcomeCreated, res.Outcome)

	v, err := svc.GetValue(ctx, bob, res.ID)
	require.NoError(t, err)
	require.NotNil(t, v.Number)
	assert.Equal(t, 8.5, *v.Number)
}
