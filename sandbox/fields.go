package sandbox

// Column names shared by all sandboxed tables. The user override tables
// carry the same overridable columns plus "user_id".
const (
	FldOwner      = "owner_id"
	FldUser       = "user_id"
	FldExcluded   = "excluded"
	FldShare      = "share_type_id"
	FldProtection = "protect_id"
	FldDesc       = "description"
)

// Table and column names per entity kind.
const (
	TableWords     = "words"
	TableUserWords = "user_words"
	FldWordID      = "word_id"
	FldWordName    = "word_name"
	FldWordType    = "phrase_type_id"
	FldWordUsage   = "usage"

	TableTriples     = "triples"
	TableUserTriples = "user_triples"
	FldTripleID      = "triple_id"
	FldTripleFrom    = "from_phrase_id"
	FldTripleVerb    = "verb_id"
	FldTripleTo      = "to_phrase_id"
	FldTripleName    = "triple_name"
	FldNameGiven     = "name_given"
	FldNameGenerated = "name_generated"
	FldTripleValues  = "values"

	TableFormulas     = "formulas"
	TableUserFormulas = "user_formulas"
	FldFormulaID      = "formula_id"
	FldFormulaName    = "formula_name"
	FldFormulaText    = "formula_text"

	TableValues     = "values"
	TableUserValues = "user_values"
	FldValueID      = "value_id"
	FldValueGroup   = "phrase_group"
	FldValueNumber  = "numeric_value"
	FldLastUpdate   = "last_update"

	TableVerbs     = "verbs"
	FldVerbID      = "verb_id"
	FldVerbName    = "verb_name"
	FldVerbReverse = "name_reverse"
	FldVerbCode    = "code_id"
)

func rowInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func rowString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func rowFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// overrideString applies the override precedence for text fields: a non-null,
// non-empty override value wins.
func overrideString(current string, v any, present bool) string {
	if !present || v == nil {
		return current
	}
	if s := rowString(v); s != "" {
		return s
	}
	return current
}

// overrideLevel applies the override precedence for numeric code fields: a
// non-null, non-zero override value wins.
func overrideLevel(current int64, v any, present bool) int64 {
	if !present || v == nil {
		return current
	}
	if n := rowInt64(v); n != 0 {
		return n
	}
	return current
}
