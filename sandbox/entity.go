package sandbox

import (
	"github.com/zukunftch/zukunft.com/term"
)

// User identifies the viewer or editor an operation runs for. Every list
// and every resolved entity is bound to exactly one user.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// TriState models the excluded flag: an override row may leave the flag
// unset (inherit the standard value), set it, or clear it.
type TriState int

const (
	// TriNull means the flag is not set on this row and the standard value
	// applies. The overall default is false.
	TriNull TriState = iota
	// TriFalse means the row explicitly clears the flag.
	TriFalse
	// TriTrue means the row explicitly sets the flag.
	TriTrue
)

// Bool collapses the tri-state to its effective boolean, with inherit
// treated as false.
func (t TriState) Bool() bool {
	return t == TriTrue
}

// IsSet returns true if the flag carries an explicit value.
func (t TriState) IsSet() bool {
	return t != TriNull
}

// Resolve applies tri-state precedence: an explicit value on the override
// wins, otherwise the standard value applies.
func (t TriState) Resolve(std TriState) TriState {
	if t.IsSet() {
		return t
	}
	return std
}

// RowValue returns the store representation: nil for inherit, 0/1 otherwise.
func (t TriState) RowValue() any {
	switch t {
	case TriTrue:
		return int64(1)
	case TriFalse:
		return int64(0)
	default:
		return nil
	}
}

// TriFromRow maps a fetched scalar onto the tri-state.
func TriFromRow(v any) TriState {
	switch n := v.(type) {
	case nil:
		return TriNull
	case bool:
		if n {
			return TriTrue
		}
		return TriFalse
	case int64:
		if n != 0 {
			return TriTrue
		}
		return TriFalse
	case int:
		if n != 0 {
			return TriTrue
		}
		return TriFalse
	case float64:
		if n != 0 {
			return TriTrue
		}
		return TriFalse
	}
	return TriNull
}

// ShareLevel controls who may see an entity.
type ShareLevel int64

const (
	// SharePublic is the default: visible to everyone.
	SharePublic ShareLevel = iota + 1
	// ShareGroup restricts visibility to the owner's groups.
	ShareGroup
	// SharePersonal restricts visibility to the owner.
	SharePersonal
)

// ProtectionLevel controls who may change the shared standard row.
type ProtectionLevel int64

const (
	// ProtectionNone is the default: the normal overlay rules apply.
	ProtectionNone ProtectionLevel = iota + 1
	// ProtectionUser means only the owner may change the standard row.
	ProtectionUser
	// ProtectionAdmin means only an administrator may change the standard row.
	ProtectionAdmin
)

// Entity is the capability set shared by all sandboxed objects: words,
// triples, formulas, verbs and values. Lists and the closure engine only
// depend on this surface.
type Entity interface {
	// Kind returns which of the four term kinds this entity is.
	Kind() term.Kind
	// ID returns the shared numeric id, 0 while the entity awaits identity
	// resolution.
	ID() int64
	// SetID assigns the shared id once name resolution or an insert has
	// produced one.
	SetID(id int64)
	// Name returns the resolved entity name.
	Name() string
	// OwnerID returns the user id of the creator of the standard row.
	OwnerID() int64
	// IsExcluded returns the effective logical-deletion flag.
	IsExcluded() bool
}

// PhraseID returns the phrase id of a word or triple entity, or 0 for
// kinds that are not phrases.
func PhraseID(e Entity) term.PhraseID {
	if e == nil || e.ID() == 0 || !e.Kind().IsPhrase() {
		return 0
	}
	id, err := term.EncodePhrase(e.Kind(), e.ID())
	if err != nil {
		return 0
	}
	return id
}

// TermID returns the term id of any entity, or 0 while the entity has no
// native id yet.
func TermID(e Entity) term.TermID {
	if e == nil || e.ID() == 0 {
		return 0
	}
	id, err := term.EncodeTerm(e.Kind(), e.ID())
	if err != nil {
		return 0
	}
	return id
}
