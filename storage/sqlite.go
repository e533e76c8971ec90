package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/zukunftch/zukunft.com/errors"
)

// SQLiteStore is the sqlite-backed RowStore used by the daemon. It
// translates the semantic query descriptors of the boundary into SQL; the
// core itself never sees a SQL string.
type SQLiteStore struct {
	db *sql.DB
}

// Schema statements for the core tables. Kept minimal: the full production
// schema is owned by the surrounding application, this subset is what the
// core reads and writes.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS words (
		word_id INTEGER PRIMARY KEY AUTOINCREMENT,
		word_name TEXT NOT NULL,
		description TEXT,
		owner_id INTEGER,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		phrase_type_id INTEGER,
		"usage" INTEGER DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS user_words (
		word_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		word_name TEXT,
		description TEXT,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		PRIMARY KEY (word_id, user_id))`,
	`CREATE TABLE IF NOT EXISTS triples (
		triple_id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_phrase_id INTEGER NOT NULL,
		verb_id INTEGER NOT NULL,
		to_phrase_id INTEGER NOT NULL,
		triple_name TEXT,
		name_given TEXT,
		name_generated TEXT,
		description TEXT,
		owner_id INTEGER,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		"values" INTEGER DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS user_triples (
		triple_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		name_given TEXT,
		description TEXT,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		PRIMARY KEY (triple_id, user_id))`,
	`CREATE TABLE IF NOT EXISTS formulas (
		formula_id INTEGER PRIMARY KEY AUTOINCREMENT,
		formula_name TEXT NOT NULL,
		formula_text TEXT,
		description TEXT,
		owner_id INTEGER,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		"usage" INTEGER DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS user_formulas (
		formula_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		formula_name TEXT,
		formula_text TEXT,
		description TEXT,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		PRIMARY KEY (formula_id, user_id))`,
	`CREATE TABLE IF NOT EXISTS verbs (
		verb_id INTEGER PRIMARY KEY AUTOINCREMENT,
		code_id TEXT,
		verb_name TEXT NOT NULL,
		name_reverse TEXT,
		"usage" INTEGER DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS "values" (
		value_id INTEGER PRIMARY KEY AUTOINCREMENT,
		phrase_group TEXT NOT NULL,
		numeric_value REAL,
		owner_id INTEGER,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		last_update TEXT)`,
	`CREATE TABLE IF NOT EXISTS user_values (
		value_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		numeric_value REAL,
		excluded INTEGER,
		share_type_id INTEGER,
		protect_id INTEGER,
		last_update TEXT,
		PRIMARY KEY (value_id, user_id))`,
	`CREATE TABLE IF NOT EXISTS changes (
		change_id INTEGER PRIMARY KEY AUTOINCREMENT,
		change_set TEXT,
		user_id INTEGER NOT NULL,
		action_id TEXT NOT NULL,
		table_id TEXT NOT NULL,
		field_id TEXT NOT NULL,
		row_id INTEGER NOT NULL,
		old_value TEXT,
		new_value TEXT,
		std_value TEXT,
		change_time TEXT NOT NULL)`,
}

// OpenSQLite opens (and if needed initializes) a sqlite database at the
// given path. ":memory:" gives a private throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapUnavailable(err, "sqlite", "OpenSQLite", "open database")
	}
	// the core is synchronous per request, a single connection keeps the
	// in-memory database visible across calls
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.WrapPersistence(err, "sqlite", "OpenSQLite", "create schema")
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func buildWhere(where []Cond) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	var parts []string
	var args []any
	for _, c := range where {
		switch c.Op {
		case OpEq:
			parts = append(parts, quoteIdent(c.Field)+" = ?")
			args = append(args, c.Value)
		case OpIn:
			if len(c.Values) == 0 {
				// empty IN matches nothing
				parts = append(parts, "1 = 0")
				continue
			}
			marks := strings.Repeat("?, ", len(c.Values))
			parts = append(parts, quoteIdent(c.Field)+" IN ("+marks[:len(marks)-2]+")")
			for _, v := range c.Values {
				args = append(args, v)
			}
		case OpIsNull:
			parts = append(parts, quoteIdent(c.Field)+" IS NULL")
		default:
			return "", nil, errors.Invalidf("sqlite", "buildWhere", "unknown operator %q", c.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (s *SQLiteStore) buildSelect(q Query) (string, []any, error) {
	cols := "*"
	if len(q.Fields) > 0 {
		quoted := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			quoted[i] = quoteIdent(f)
		}
		cols = strings.Join(quoted, ", ")
	}
	stmt := "SELECT " + cols + " FROM " + quoteIdent(q.Table)
	where, args, err := buildWhere(q.Where)
	if err != nil {
		return "", nil, err
	}
	stmt += where
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = IDField(q.Table)
	}
	stmt += " ORDER BY " + quoteIdent(orderBy)
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return stmt, args, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// FetchOne returns the first matching row, or nil if none matches.
func (s *SQLiteStore) FetchOne(ctx context.Context, q Query) (Row, error) {
	q.Limit = 1
	rows, err := s.FetchMany(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FetchMany returns all matching rows.
func (s *SQLiteStore) FetchMany(ctx context.Context, q Query) ([]Row, error) {
	stmt, args, err := s.buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, classifyDBErr(err, "FetchMany")
	}
	defer rows.Close()
	out, err := scanRows(rows)
	if err != nil {
		return nil, classifyDBErr(err, "FetchMany")
	}
	return out, nil
}

// Insert adds a row and returns its id.
func (s *SQLiteStore) Insert(ctx context.Context, table string, fields []string, values []any) (int64, error) {
	if len(fields) != len(values) {
		return 0, errors.Invalidf("sqlite", "Insert",
			"field/value length mismatch: %d vs %d", len(fields), len(values))
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = quoteIdent(f)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	stmt := "INSERT INTO " + quoteIdent(table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + marks + ")"
	res, err := s.db.ExecContext(ctx, stmt, values...)
	if err != nil {
		return 0, classifyDBErr(err, "Insert")
	}
	// honor an explicitly supplied id (compound-key override tables)
	idField := IDField(table)
	for i, f := range fields {
		if f == idField {
			if id, ok := values[i].(int64); ok && id != 0 {
				return id, nil
			}
		}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classifyDBErr(err, "Insert")
	}
	return id, nil
}

// Update overwrites fields of the row addressed by the table's id field.
func (s *SQLiteStore) Update(ctx context.Context, table string, id int64, fields []string, values []any) error {
	return s.UpdateWhere(ctx, table, []Cond{Eq(IDField(table), id)}, fields, values)
}

// UpdateWhere overwrites fields of every matching row.
func (s *SQLiteStore) UpdateWhere(ctx context.Context, table string, where []Cond, fields []string, values []any) error {
	if len(fields) != len(values) {
		return errors.Invalidf("sqlite", "UpdateWhere",
			"field/value length mismatch: %d vs %d", len(fields), len(values))
	}
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = quoteIdent(f) + " = ?"
	}
	whereSQL, whereArgs, err := buildWhere(where)
	if err != nil {
		return err
	}
	stmt := "UPDATE " + quoteIdent(table) + " SET " + strings.Join(sets, ", ") + whereSQL
	res, err := s.db.ExecContext(ctx, stmt, append(values, whereArgs...)...)
	if err != nil {
		return classifyDBErr(err, "UpdateWhere")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifyDBErr(err, "UpdateWhere")
	}
	if n == 0 {
		return errors.NotFoundf("sqlite", "UpdateWhere", "no row in %q matches", table)
	}
	return nil
}

// Delete removes every matching row. Removing nothing is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, table string, where []Cond) error {
	whereSQL, args, err := buildWhere(where)
	if err != nil {
		return err
	}
	stmt := "DELETE FROM " + quoteIdent(table) + whereSQL
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return classifyDBErr(err, "Delete")
	}
	return nil
}

func classifyDBErr(err error, method string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.WrapUnavailable(err, "sqlite", method, "query")
	}
	return errors.WrapPersistence(err, "sqlite", method, "query")
}
