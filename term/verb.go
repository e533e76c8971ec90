package term

// Relation codes for the built-in verbs the closure engine traverses.
// Stored in the verbs table as code ids, so renaming the user-visible verb
// does not break traversal.
const (
	RelationIsA        = "is-a"
	RelationIsPartOf   = "is-part-of"
	RelationCanContain = "can-contain"
	RelationFollows    = "follows"
)

// Verb is a relation-type label, e.g. "is a" with the reverse name "are".
// A negative verb id on a stored triple signals the link was entered in
// reverse orientation; loading normalizes it (see sandbox.Triple).
type Verb struct {
	ID      int64  `json:"id"`
	Code    string `json:"code,omitempty"` // stable code id, e.g. "is-a"
	Name    string `json:"name"`
	Reverse string `json:"reverse,omitempty"` // name seen when reading the link backwards
	Usage   int64  `json:"usage,omitempty"`   // number of triples using this verb
}

// TermID returns the verb's id in the unified term id space.
func (v Verb) TermID() (TermID, error) {
	return EncodeTerm(KindVerb, v.ID)
}

// HasReverse returns true if the verb carries a distinct reverse-direction
// name, e.g. "is a" / "are".
func (v Verb) HasReverse() bool {
	return v.Reverse != "" && v.Reverse != v.Name
}
