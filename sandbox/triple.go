package sandbox

import (
	"github.com/zukunftch/zukunft.com/registry"
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// Triple is a subject-verb-object link between two phrases, itself
// addressable as a phrase. From and To are phrase ids resolved on demand
// through the entity arena, never embedded objects, so a triple of triples
// cannot recurse.
//
// A negative verb id signals the link was entered in reverse orientation
// ("Cash Flow Statement contains Taxes" instead of "Taxes is part of Cash
// Flow Statement"). Normalize must run after every load and before every
// traversal.
type Triple struct {
	RowID         int64           `json:"id"`
	From          term.PhraseID   `json:"from"`
	VerbID        int64           `json:"verb"` // negative while stored in reverse orientation
	To            term.PhraseID   `json:"to"`
	VerbName      string          `json:"verb_name,omitempty"`
	TripleName    string          `json:"name,omitempty"`       // explicit name, highest precedence
	NameGiven     string          `json:"name_given,omitempty"` // user override name
	NameGenerated string          `json:"name_generated,omitempty"`
	Description   string          `json:"description,omitempty"`
	Owner         int64           `json:"owner_id,omitempty"`
	Excluded      TriState        `json:"-"`
	Share         ShareLevel      `json:"share,omitempty"`
	Protection    ProtectionLevel `json:"protection,omitempty"`
	Values        int64           `json:"values,omitempty"` // usage counter
}

// Kind returns the triple kind.
func (t *Triple) Kind() term.Kind { return term.KindTriple }

// ID returns the shared triple id.
func (t *Triple) ID() int64 { return t.RowID }

// SetID assigns the shared triple id.
func (t *Triple) SetID(id int64) { t.RowID = id }

// Name returns the resolved name with the documented precedence:
// explicit name over user-given name over generated name.
func (t *Triple) Name() string {
	if t.TripleName != "" {
		return t.TripleName
	}
	if t.NameGiven != "" {
		return t.NameGiven
	}
	return t.NameGenerated
}

// OwnerID returns the creator of the standard row.
func (t *Triple) OwnerID() int64 { return t.Owner }

// IsExcluded returns the effective logical-deletion flag.
func (t *Triple) IsExcluded() bool { return t.Excluded.Bool() }

// PhraseID returns the triple's id in the phrase id space.
func (t *Triple) PhraseID() term.PhraseID {
	if t.RowID == 0 {
		return 0
	}
	id, err := term.EncodePhrase(term.KindTriple, t.RowID)
	if err != nil {
		return 0
	}
	return id
}

// IsReversed returns true while the triple still carries the reverse
// orientation it was entered in.
func (t *Triple) IsReversed() bool {
	return t.VerbID < 0
}

// Normalize turns a reverse-oriented triple into its forward form: from and
// to swap, the verb id flips positive, and the verb's reverse name replaces
// the stored name. A forward triple is returned unchanged. After Normalize
// the triple is indistinguishable from one entered in forward orientation.
func (t *Triple) Normalize(reg *registry.TypeRegistry) {
	if !t.IsReversed() {
		return
	}
	t.From, t.To = t.To, t.From
	t.VerbID = -t.VerbID
	if reg != nil {
		if v, ok := reg.VerbByID(t.VerbID); ok {
			t.VerbName = v.Name
		}
	}
}

// Verb resolves the triple's verb through the registry.
func (t *Triple) Verb(reg *registry.TypeRegistry) (term.Verb, bool) {
	id := t.VerbID
	if id < 0 {
		id = -id
	}
	return reg.VerbByID(id)
}

// GenerateName computes the generated name from the linked object names.
// Follows the naming rules of the product: an is-a link reads as
// "from (to)", a general link as "from verb to", and a link with an unnamed
// verb as "from to". The result is cached on the standard row
// (name_generated) for the global uniqueness check.
func (t *Triple) GenerateName(fromName, verbName, toName string, isA bool) string {
	switch {
	case isA && fromName != "" && toName != "":
		return fromName + " (" + toName + ")"
	case fromName != "" && verbName != "" && toName != "":
		return fromName + " " + verbName + " " + toName
	case fromName != "" && toName != "":
		return fromName + " " + toName
	default:
		return t.NameGiven
	}
}

// TripleFromRow maps a fetched standard row onto a Triple. The caller must
// Normalize afterwards; loading and normalizing are separate so unit tests
// can pin the stored form.
func TripleFromRow(row storage.Row) *Triple {
	if row == nil {
		return nil
	}
	from := rowInt64(row[FldTripleFrom])
	to := rowInt64(row[FldTripleTo])
	return &Triple{
		RowID:         rowInt64(row[FldTripleID]),
		From:          term.PhraseID(from),
		VerbID:        rowInt64(row[FldTripleVerb]),
		To:            term.PhraseID(to),
		TripleName:    rowString(row[FldTripleName]),
		NameGiven:     rowString(row[FldNameGiven]),
		NameGenerated: rowString(row[FldNameGenerated]),
		Description:   rowString(row[FldDesc]),
		Owner:         rowInt64(row[FldOwner]),
		Excluded:      TriFromRow(row[FldExcluded]),
		Share:         ShareLevel(rowInt64(row[FldShare])),
		Protection:    ProtectionLevel(rowInt64(row[FldProtection])),
		Values:        rowInt64(row[FldTripleValues]),
	}
}

// ResolveTriple merges a standard triple with an optional user override
// row. Only the user-facing fields can be overridden; the link identity
// (from, verb, to) always comes from the standard row.
func ResolveTriple(std *Triple, override storage.Row) *Triple {
	if std == nil {
		return nil
	}
	eff := *std
	if override == nil {
		return &eff
	}
	v, ok := override[FldNameGiven]
	eff.NameGiven = overrideString(eff.NameGiven, v, ok)
	v, ok = override[FldDesc]
	eff.Description = overrideString(eff.Description, v, ok)
	if v, ok := override[FldExcluded]; ok {
		eff.Excluded = TriFromRow(v).Resolve(std.Excluded)
	}
	v, ok = override[FldShare]
	eff.Share = ShareLevel(overrideLevel(int64(eff.Share), v, ok))
	v, ok = override[FldProtection]
	eff.Protection = ProtectionLevel(overrideLevel(int64(eff.Protection), v, ok))
	return &eff
}

func (t *Triple) overridableFields() ([]string, []any) {
	return []string{FldNameGiven, FldDesc, FldExcluded, FldShare, FldProtection},
		[]any{t.NameGiven, t.Description, t.Excluded.RowValue(), int64(t.Share), int64(t.Protection)}
}

// identityFields returns the columns that define which link this is. A
// change of any of them is a change of identity, handled by the
// merge-by-identity save path rather than a field update.
func (t *Triple) identityFields() ([]string, []any) {
	return []string{FldTripleFrom, FldTripleVerb, FldTripleTo},
		[]any{int64(t.From), t.VerbID, int64(t.To)}
}

// Table returns the standard table of triples.
func (t *Triple) Table() string { return TableTriples }

// OverrideTable returns the per-user override table of triples.
func (t *Triple) OverrideTable() string { return TableUserTriples }
