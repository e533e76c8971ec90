package sandbox

import (
	"time"

	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// Value is a number attributed to a group of phrases, e.g. 8.4 for
// "Zurich", "inhabitants", "2024" (in millions). Values are sandboxed like
// named entities: a user can override the number without touching the
// shared record.
type Value struct {
	RowID      int64           `json:"id"`
	Group      string          `json:"group"`  // sorted phrase id list, e.g. "1,-3,5"
	Number     *float64        `json:"number"` // nil when the row carries no number
	Owner      int64           `json:"owner_id,omitempty"`
	Excluded   TriState        `json:"-"`
	Share      ShareLevel      `json:"share,omitempty"`
	Protection ProtectionLevel `json:"protection,omitempty"`
	LastUpdate time.Time       `json:"last_update,omitempty"`
}

// Kind returns the value kind. Values are addressed through their phrase
// group, not through the term namespace, so the kind is not a phrase kind
// and values never collide with words or triples in id-keyed collections.
func (v *Value) Kind() term.Kind { return term.KindValue }

// ID returns the shared value id.
func (v *Value) ID() int64 { return v.RowID }

// SetID assigns the shared value id.
func (v *Value) SetID(id int64) { v.RowID = id }

// Name returns the phrase group key; values have no user-facing name.
func (v *Value) Name() string { return v.Group }

// OwnerID returns the creator of the standard row.
func (v *Value) OwnerID() int64 { return v.Owner }

// IsExcluded returns the effective logical-deletion flag.
func (v *Value) IsExcluded() bool { return v.Excluded.Bool() }

// ValueFromRow maps a fetched standard row onto a Value.
func ValueFromRow(row storage.Row) *Value {
	if row == nil {
		return nil
	}
	val := &Value{
		RowID:      rowInt64(row[FldValueID]),
		Group:      rowString(row[FldValueGroup]),
		Owner:      rowInt64(row[FldOwner]),
		Excluded:   TriFromRow(row[FldExcluded]),
		Share:      ShareLevel(rowInt64(row[FldShare])),
		Protection: ProtectionLevel(rowInt64(row[FldProtection])),
	}
	if n, ok := rowFloat(row[FldValueNumber]); ok {
		val.Number = &n
	}
	if ts, err := time.Parse(time.RFC3339Nano, rowString(row[FldLastUpdate])); err == nil {
		val.LastUpdate = ts
	}
	return val
}

// ResolveValue merges a standard value with an optional user override row.
// A number set on the override wins even when it equals zero; only a NULL
// override number falls through to the standard.
func ResolveValue(std *Value, override storage.Row) *Value {
	if std == nil {
		return nil
	}
	eff := *std
	if override == nil {
		return &eff
	}
	if v, ok := override[FldValueNumber]; ok && v != nil {
		if n, ok := rowFloat(v); ok {
			eff.Number = &n
		}
	}
	if v, ok := override[FldExcluded]; ok {
		eff.Excluded = TriFromRow(v).Resolve(std.Excluded)
	}
	v, ok := override[FldShare]
	eff.Share = ShareLevel(overrideLevel(int64(eff.Share), v, ok))
	v, ok = override[FldProtection]
	eff.Protection = ProtectionLevel(overrideLevel(int64(eff.Protection), v, ok))
	if ts, err := time.Parse(time.RFC3339Nano, rowString(override[FldLastUpdate])); err == nil {
		eff.LastUpdate = ts
	}
	return &eff
}

func (v *Value) overridableFields() ([]string, []any) {
	var num any
	if v.Number != nil {
		num = *v.Number
	}
	return []string{FldValueNumber, FldExcluded, FldShare, FldProtection},
		[]any{num, v.Excluded.RowValue(), int64(v.Share), int64(v.Protection)}
}

// Table returns the standard table of values.
func (v *Value) Table() string { return TableValues }

// OverrideTable returns the per-user override table of values.
func (v *Value) OverrideTable() string { return TableUserValues }
