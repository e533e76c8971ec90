package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukunftch/zukunft.com/errors"
)

func TestEncodeTermVectors(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		nativeID int64
		want     TermID
	}{
		{"word 5 is odd positive", KindWord, 5, 9},
		{"word 1 is the first odd", KindWord, 1, 1},
		{"formula 5 is even positive", KindFormula, 5, 10},
		{"formula 1", KindFormula, 1, 2},
		{"triple 3 is odd negative", KindTriple, 3, -5},
		{"triple 1", KindTriple, 1, -1},
		{"verb 5 is even negative", KindVerb, 5, -10},
		{"verb 1", KindVerb, 1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeTerm(tt.kind, tt.nativeID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTermVectors(t *testing.T) {
	tests := []struct {
		id       TermID
		wantKind Kind
		wantID   int64
	}{
		{9, KindWord, 5},
		{10, KindFormula, 5},
		{-5, KindTriple, 3},
		{-10, KindVerb, 5},
		{1, KindWord, 1},
		{2, KindFormula, 1},
		{-1, KindTriple, 1},
		{-2, KindVerb, 1},
	}
	for _, tt := range tests {
		kind, nativeID, err := DecodeTerm(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.wantKind, kind, "term id %d", tt.id)
		assert.Equal(t, tt.wantID, nativeID, "term id %d", tt.id)
	}
}

// TestTermRoundTrip verifies decode(encode(k, n)) == (k, n) across a range
// of ids for every kind.
func TestTermRoundTrip(t *testing.T) {
	kinds := []Kind{KindWord, KindTriple, KindFormula, KindVerb}
	for _, kind := range kinds {
		for nativeID := int64(1); nativeID <= 1000; nativeID++ {
			id, err := EncodeTerm(kind, nativeID)
			require.NoError(t, err)
			gotKind, gotID, err := DecodeTerm(id)
			require.NoError(t, err)
			require.Equal(t, kind, gotKind)
			require.Equal(t, nativeID, gotID)
		}
	}
}

// TestTermDisjointness verifies that no two (kind, id) pairs share a term id
// within a representative range.
func TestTermDisjointness(t *testing.T) {
	seen := make(map[TermID]string)
	kinds := []Kind{KindWord, KindTriple, KindFormula, KindVerb}
	for _, kind := range kinds {
		for nativeID := int64(1); nativeID <= 500; nativeID++ {
			id, err := EncodeTerm(kind, nativeID)
			require.NoError(t, err)
			if prev, dup := seen[id]; dup {
				t.Fatalf("term id %d produced by both %s and %s/%d", id, prev, kind, nativeID)
			}
			seen[id] = string(kind)
		}
	}
}

func TestEncodeTermRejectsBadInput(t *testing.T) {
	_, err := EncodeTerm(KindWord, 0)
	assert.True(t, errors.IsInvalid(err))

	_, err = EncodeTerm(KindWord, -3)
	assert.True(t, errors.IsInvalid(err))

	_, err = EncodeTerm(Kind("view"), 1)
	assert.True(t, errors.IsInvalid(err))
}

func TestDecodeTermRejectsZero(t *testing.T) {
	_, _, err := DecodeTerm(0)
	assert.True(t, errors.IsInvalid(err))
}

func TestPhraseRoundTrip(t *testing.T) {
	for nativeID := int64(1); nativeID <= 1000; nativeID++ {
		for _, kind := range []Kind{KindWord, KindTriple} {
			id, err := EncodePhrase(kind, nativeID)
			require.NoError(t, err)
			gotKind, gotID, err := DecodePhrase(id)
			require.NoError(t, err)
			require.Equal(t, kind, gotKind)
			require.Equal(t, nativeID, gotID)
		}
	}
}

func TestPhraseEncoding(t *testing.T) {
	id, err := EncodePhrase(KindWord, 5)
	require.NoError(t, err)
	assert.Equal(t, PhraseID(5), id)

	id, err = EncodePhrase(KindTriple, 5)
	require.NoError(t, err)
	assert.Equal(t, PhraseID(-5), id)

	// formulas and verbs are terms but never phrases
	_, err = EncodePhrase(KindFormula, 5)
	assert.True(t, errors.IsInvalid(err))
	_, err = EncodePhrase(KindVerb, 5)
	assert.True(t, errors.IsInvalid(err))

	_, _, err = DecodePhrase(0)
	assert.True(t, errors.IsInvalid(err))
}

// TestPhraseTermSpacesStaySeparate pins the defined bug class: phrase id -5
// addresses triple #5 while term id -5 addresses triple #3.
func TestPhraseTermSpacesStaySeparate(t *testing.T) {
	kind, nativeID, err := DecodePhrase(PhraseID(-5))
	require.NoError(t, err)
	assert.Equal(t, KindTriple, kind)
	assert.Equal(t, int64(5), nativeID)

	kind, nativeID, err = DecodeTerm(TermID(-5))
	require.NoError(t, err)
	assert.Equal(t, KindTriple, kind)
	assert.Equal(t, int64(3), nativeID)
}

func TestTermPhraseConversion(t *testing.T) {
	// word 5: phrase id 5 <-> term id 9
	tid, err := TermOfPhrase(PhraseID(5))
	require.NoError(t, err)
	assert.Equal(t, TermID(9), tid)

	pid, err := PhraseOfTerm(TermID(9))
	require.NoError(t, err)
	assert.Equal(t, PhraseID(5), pid)

	// triple 3: phrase id -3 <-> term id -5
	tid, err = TermOfPhrase(PhraseID(-3))
	require.NoError(t, err)
	assert.Equal(t, TermID(-5), tid)

	pid, err = PhraseOfTerm(TermID(-5))
	require.NoError(t, err)
	assert.Equal(t, PhraseID(-3), pid)

	// a formula term has no phrase form
	_, err = PhraseOfTerm(TermID(10))
	assert.True(t, errors.IsInvalid(err))
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, KindWord.IsPhrase())
	assert.True(t, KindTriple.IsPhrase())
	assert.False(t, KindFormula.IsPhrase())
	assert.False(t, KindVerb.IsPhrase())
	assert.False(t, KindValue.IsPhrase())

	assert.True(t, KindWord.IsValid())
	assert.True(t, KindValue.IsValid())
	assert.False(t, Kind("view").IsValid())

	// Values are outside both the term and the phrase namespace.
	_, err := EncodeTerm(KindValue, 1)
	assert.True(t, errors.IsInvalid(err))
	_, err = EncodePhrase(KindValue, 1)
	assert.True(t, errors.IsInvalid(err))
}

func TestVerb(t *testing.T) {
	v := Verb{ID: 2, Code: RelationIsA, Name: "is a", Reverse: "are"}
	tid, err := v.TermID()
	require.NoError(t, err)
	assert.Equal(t, TermID(-4), tid)
	assert.True(t, v.HasReverse())

	sym := Verb{ID: 3, Name: "follows"}
	assert.False(t, sym.HasReverse())
}
