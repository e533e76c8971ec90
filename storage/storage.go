// Package storage provides the narrow row-oriented boundary between the
// zukunft core and the relational store.
package storage

import "context"

// Row is one fetched record: a mapping from column name to scalar value.
// A missing or NULL column is represented by a nil value.
type Row map[string]any

// Op is the comparison operator of a query condition.
type Op string

const (
	// OpEq matches rows whose field equals the condition value.
	OpEq Op = "eq"
	// OpIn matches rows whose field is contained in the condition values.
	OpIn Op = "in"
	// OpIsNull matches rows whose field is NULL or absent.
	OpIsNull Op = "null"
)

// Cond is one semantic predicate of a query. Conditions of a query are
// combined with AND.
type Cond struct {
	Field  string
	Op     Op
	Value  any
	Values []int64 // only for OpIn
}

// Eq builds an equality condition.
func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

// In builds a set-membership condition over int64 ids.
func In(field string, values []int64) Cond {
	return Cond{Field: field, Op: OpIn, Values: values}
}

// IsNull builds a NULL check condition.
func IsNull(field string) Cond {
	return Cond{Field: field, Op: OpIsNull}
}

// Query is a semantic query descriptor. The core never constructs
// dialect-specific SQL; it describes what it needs and the boundary
// implementation translates.
type Query struct {
	Table   string
	Fields  []string // empty means all columns
	Where   []Cond
	OrderBy string // field name, ascending; empty means store order
	Limit   int    // 0 means no limit
}

// RowStore is the boundary the core queries and mutates rows through.
//
// Implementations must be semantically interchangeable between a real
// relational engine and the in-memory test double: same visibility of
// written rows, same treatment of NULL, same not-found behavior.
//
// Fetch operations return nil (not an error) when nothing matches, because
// a missing row is a normal result the caller must check. Errors are
// reserved for boundary failures and are classified as persistence or
// store-unavailable errors.
type RowStore interface {
	// FetchOne returns the first row matching the query, or nil if none
	// matches.
	FetchOne(ctx context.Context, q Query) (Row, error)

	// FetchMany returns all rows matching the query in a stable order.
	// An empty result is a nil or empty slice, never an error.
	FetchMany(ctx context.Context, q Query) ([]Row, error)

	// Insert adds a row and returns its new id. If the table's id field is
	// present in fields, that id is used instead of allocating one; this is
	// how user-override rows keyed by (user id, entity id) are written.
	Insert(ctx context.Context, table string, fields []string, values []any) (int64, error)

	// Update overwrites the given fields of the row addressed by id.
	// Returns ErrNotFound if no such row exists.
	Update(ctx context.Context, table string, id int64, fields []string, values []any) error

	// UpdateWhere overwrites the given fields of every row matching the
	// conditions. Used for override rows that have a compound key.
	UpdateWhere(ctx context.Context, table string, where []Cond, fields []string, values []any) error

	// Delete removes every row matching the conditions. Deleting nothing is
	// not an error.
	Delete(ctx context.Context, table string, where []Cond) error
}

// IDField returns the id column of a table following the schema convention:
// the singular table name suffixed with "_id", e.g. "words" has "word_id".
// User override tables ("user_words") share the id column of their base
// table and add "user_id" to the key.
func IDField(table string) string {
	name := table
	if len(name) > 5 && name[:5] == "user_" {
		name = name[5:]
	}
	if len(name) > 1 && name[len(name)-1] == 's' {
		name = name[:len(name)-1]
	}
	return name + "_id"
}
