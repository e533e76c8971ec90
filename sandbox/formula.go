package sandbox

import (
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// Formula is a user-defined calculation over phrases. Only the sandboxed
// naming and overlay behavior lives here; expression evaluation is owned by
// the calculation layer outside the core.
type Formula struct {
	RowID       int64           `json:"id"`
	FormulaName string          `json:"name"`
	Text        string          `json:"text,omitempty"` // the formula expression in its storage form
	Description string          `json:"description,omitempty"`
	Owner       int64           `json:"owner_id,omitempty"`
	Excluded    TriState        `json:"-"`
	Share       ShareLevel      `json:"share,omitempty"`
	Protection  ProtectionLevel `json:"protection,omitempty"`
	Usage       int64           `json:"usage,omitempty"`
}

// Kind returns the formula kind.
func (f *Formula) Kind() term.Kind { return term.KindFormula }

// ID returns the shared formula id.
func (f *Formula) ID() int64 { return f.RowID }

// SetID assigns the shared formula id.
func (f *Formula) SetID(id int64) { f.RowID = id }

// Name returns the formula name.
func (f *Formula) Name() string { return f.FormulaName }

// OwnerID returns the creator of the standard row.
func (f *Formula) OwnerID() int64 { return f.Owner }

// IsExcluded returns the effective logical-deletion flag.
func (f *Formula) IsExcluded() bool { return f.Excluded.Bool() }

// FormulaFromRow maps a fetched standard row onto a Formula.
func FormulaFromRow(row storage.Row) *Formula {
	if row == nil {
		return nil
	}
	return &Formula{
		RowID:       rowInt64(row[FldFormulaID]),
		FormulaName: rowString(row[FldFormulaName]),
		Text:        rowString(row[FldFormulaText]),
		Description: rowString(row[FldDesc]),
		Owner:       rowInt64(row[FldOwner]),
		Excluded:    TriFromRow(row[FldExcluded]),
		Share:       ShareLevel(rowInt64(row[FldShare])),
		Protection:  ProtectionLevel(rowInt64(row[FldProtection])),
		Usage:       rowInt64(row["usage"]),
	}
}

// ResolveFormula merges a standard formula with an optional user override
// row, with the same precedence rules as ResolveWord.
func ResolveFormula(std *Formula, override storage.Row) *Formula {
	if std == nil {
		return nil
	}
	eff := *std
	if override == nil {
		return &eff
	}
	v, ok := override[FldFormulaName]
	eff.FormulaName = overrideString(eff.FormulaName, v, ok)
	v, ok = override[FldFormulaText]
	eff.Text = overrideString(eff.Text, v, ok)
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

func (f *Formula) overridableFields() ([]string, []any) {
	return []string{FldFormulaName, FldFormulaText, FldDesc, FldExcluded, FldShare, FldProtection},
		[]any{f.FormulaName, f.Text, f.Description, f.Excluded.RowValue(), int64(f.Share), int64(f.Protection)}
}

// Table returns the standard table of formulas.
func (f *Formula) Table() string { return TableFormulas }

// OverrideTable returns the per-user override table of formulas.
func (f *Formula) OverrideTable() string { return TableUserFormulas }
