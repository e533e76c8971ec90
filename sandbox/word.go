package sandbox

import (
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// Word is an atomic named concept, e.g. "Zurich". The fields mirror the
// words table; an effective Word seen by a user may combine the standard
// row with that user's override row (see ResolveWord).
type Word struct {
	RowID       int64           `json:"id"`
	WordName    string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Owner       int64           `json:"owner_id,omitempty"`
	Excluded    TriState        `json:"-"`
	Share       ShareLevel      `json:"share,omitempty"`
	Protection  ProtectionLevel `json:"protection,omitempty"`
	TypeID      int64           `json:"type_id,omitempty"`
	Usage       int64           `json:"usage,omitempty"`
}

// Kind returns the word kind.
func (w *Word) Kind() term.Kind { return term.KindWord }

// ID returns the shared word id.
func (w *Word) ID() int64 { return w.RowID }

// SetID assigns the shared word id.
func (w *Word) SetID(id int64) { w.RowID = id }

// Name returns the word name.
func (w *Word) Name() string { return w.WordName }

// OwnerID returns the creator of the standard row.
func (w *Word) OwnerID() int64 { return w.Owner }

// IsExcluded returns the effective logical-deletion flag.
func (w *Word) IsExcluded() bool { return w.Excluded.Bool() }

// WordFromRow maps a fetched standard row onto a Word.
func WordFromRow(row storage.Row) *Word {
	if row == nil {
		return nil
	}
	return &Word{
		RowID:       rowInt64(row[FldWordID]),
		WordName:    rowString(row[FldWordName]),
		Description: rowString(row[FldDesc]),
		Owner:       rowInt64(row[FldOwner]),
		Excluded:    TriFromRow(row[FldExcluded]),
		Share:       ShareLevel(rowInt64(row[FldShare])),
		Protection:  ProtectionLevel(rowInt64(row[FldProtection])),
		TypeID:      rowInt64(row[FldWordType]),
		Usage:       rowInt64(row[FldWordUsage]),
	}
}

// ResolveWord merges a standard word with an optional user override row
// into the effective word the user sees. Pure function of its inputs: a
// field set on the override wins, everything else falls back to the
// standard; the excluded flag follows tri-state precedence.
func ResolveWord(std *Word, override storage.Row) *Word {
	if std == nil {
		return nil
	}
	eff := *std
	if override == nil {
		return &eff
	}
	v, ok := override[FldWordName]
	eff.WordName = overrideString(eff.WordName, v, ok)
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

// overridableFields lists the word columns a user override row may carry,
// paired with the current values. Order is fixed so change-log entries come
// out deterministic.
func (w *Word) overridableFields() ([]string, []any) {
	return []string{FldWordName, FldDesc, FldExcluded, FldShare, FldProtection},
		[]any{w.WordName, w.Description, w.Excluded.RowValue(), int64(w.Share), int64(w.Protection)}
}

// Table returns the standard table of words.
func (w *Word) Table() string { return TableWords }

// OverrideTable returns the per-user override table of words.
func (w *Word) OverrideTable() string { return TableUserWords }
