package term

import (
	"github.com/zukunftch/zukunft.com/errors"
)

// TermID is a signed integer addressing exactly one word, triple, formula
// or verb. The four kinds partition the integer line by sign and parity:
//
//	odd positive  -> word    (native id = (term id + 1) / 2)
//	even positive -> formula (native id = term id / 2)
//	odd negative  -> triple  (native id = (|term id| + 1) / 2)
//	even negative -> verb    (native id = |term id| / 2)
//
// Zero is not a valid term id.
type TermID int64

// PhraseID is a signed integer addressing a word (positive, the native word
// id) or a triple (negative, -1 times the native triple id). It is a
// separate numeric space from TermID.
type PhraseID int64

// EncodeTerm converts a kind and native id into the unified term id space.
// The native id must be positive.
func EncodeTerm(kind Kind, nativeID int64) (TermID, error) {
	if nativeID <= 0 {
		return 0, errors.Invalidf("term", "EncodeTerm",
			"native id must be positive, got %d", nativeID)
	}
	switch kind {
	case KindWord:
		return TermID(nativeID*2 - 1), nil
	case KindFormula:
		return TermID(nativeID * 2), nil
	case KindTriple:
		return TermID(-(nativeID*2 - 1)), nil
	case KindVerb:
		return TermID(-nativeID * 2), nil
	default:
		return 0, errors.Invalidf("term", "EncodeTerm",
			"unknown entity kind %q", kind)
	}
}

// DecodeTerm converts a term id back into its kind and native id.
// It is the total inverse of EncodeTerm over non-zero ids.
func DecodeTerm(id TermID) (Kind, int64, error) {
	if id == 0 {
		return "", 0, errors.Invalidf("term", "DecodeTerm",
			"term id 0 is not defined")
	}
	if id > 0 {
		if id%2 != 0 {
			return KindWord, (int64(id) + 1) / 2, nil
		}
		return KindFormula, int64(id) / 2, nil
	}
	abs := -int64(id)
	if abs%2 != 0 {
		return KindTriple, (abs + 1) / 2, nil
	}
	return KindVerb, abs / 2, nil
}

// EncodePhrase converts a word or triple native id into the phrase id space.
// Only words and triples are phrases; any other kind is rejected.
func EncodePhrase(kind Kind, nativeID int64) (PhraseID, error) {
	if nativeID <= 0 {
		return 0, errors.Invalidf("term", "EncodePhrase",
			"native id must be positive, got %d", nativeID)
	}
	switch kind {
	case KindWord:
		return PhraseID(nativeID), nil
	case KindTriple:
		return PhraseID(-nativeID), nil
	default:
		return 0, errors.Invalidf("term", "EncodePhrase",
			"kind %q is not a phrase kind", kind)
	}
}

// DecodePhrase converts a phrase id back into its kind and native id.
func DecodePhrase(id PhraseID) (Kind, int64, error) {
	if id == 0 {
		return "", 0, errors.Invalidf("term", "DecodePhrase",
			"phrase id 0 is not defined")
	}
	if id > 0 {
		return KindWord, int64(id), nil
	}
	return KindTriple, -int64(id), nil
}

// TermOfPhrase converts a phrase id into the term id addressing the same
// underlying word or triple. The two spaces stay separate; this is the one
// sanctioned crossing point.
func TermOfPhrase(id PhraseID) (TermID, error) {
	kind, nativeID, err := DecodePhrase(id)
	if err != nil {
		return 0, err
	}
	return EncodeTerm(kind, nativeID)
}

// PhraseOfTerm converts a term id into the phrase id addressing the same
// word or triple. Formula and verb term ids are rejected because they are
// not phrases.
func PhraseOfTerm(id TermID) (PhraseID, error) {
	kind, nativeID, err := DecodeTerm(id)
	if err != nil {
		return 0, err
	}
	return EncodePhrase(kind, nativeID)
}
