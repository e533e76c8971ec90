package term

import "encoding/json"

// Kind identifies which of the four entity kinds a term id addresses.
// It replaces runtime class-name dispatch with an explicit enum that the
// codec, the sandbox and the service layer all share.
type Kind string

const (
	// KindWord is an atomic named concept, e.g. "Zurich".
	KindWord Kind = "word"

	// KindTriple is a subject-verb-object link between two phrases,
	// itself addressable as a phrase.
	KindTriple Kind = "triple"

	// KindFormula is a user-defined calculation over phrases.
	KindFormula Kind = "formula"

	// KindVerb is a relation-type label with an optional reverse name.
	KindVerb Kind = "verb"

	// KindValue is a number attributed to a phrase group. Values are
	// addressed through their group, not through the term namespace, so
	// the codec rejects this kind and IsPhrase is false for it.
	KindValue Kind = "value"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the defined constants.
func (k Kind) IsValid() bool {
	switch k {
	case KindWord, KindTriple, KindFormula, KindVerb, KindValue:
		return true
	default:
		return false
	}
}

// IsPhrase returns true if entities of this kind can carry values,
// i.e. words and triples.
func (k Kind) IsPhrase() bool {
	return k == KindWord || k == KindTriple
}

// MarshalJSON implements json.Marshaler to ensure Kind serializes as a string.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(k))
}

// UnmarshalJSON implements json.Unmarshaler to deserialize Kind from string.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = Kind(s)
	return nil
}
