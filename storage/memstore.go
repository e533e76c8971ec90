package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/zukunftch/zukunft.com/errors"
)

// MemStore is the in-memory RowStore double used by unit tests and by the
// service layer when no database is configured. It mirrors the semantics of
// the sqlite-backed store: auto-incremented ids per table, NULL as nil,
// stable iteration order by id.
type MemStore struct {
	mu      sync.RWMutex
	tables  map[string]*memTable
	failing error // when set, every call fails with this error
}

type memTable struct {
	rows   []Row
	nextID int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

// Fail makes every subsequent call return the given error. Used by tests to
// exercise the fail-closed save path. Passing nil restores normal behavior.
func (m *MemStore) Fail(err error) {
	m.mu.Lock()
	m.failing = err
	m.mu.Unlock()
}

func (m *MemStore) table(name string) *memTable {
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{nextID: 1}
		m.tables[name] = t
	}
	return t
}

func (m *MemStore) checkUsable(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapUnavailable(err, "memstore", method, "context check")
	}
	if m.failing != nil {
		return errors.WrapPersistence(m.failing, "memstore", method, "store write")
	}
	return nil
}

func matches(row Row, where []Cond) bool {
	for _, c := range where {
		v, present := row[c.Field]
		switch c.Op {
		case OpEq:
			if !present || !scalarEqual(v, c.Value) {
				return false
			}
		case OpIn:
			id, ok := asInt64(v)
			if !present || !ok {
				return false
			}
			found := false
			for _, want := range c.Values {
				if id == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case OpIsNull:
			if present && v != nil {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// scalarEqual compares row scalars loosely across integer widths, because
// rows round-tripped through a real driver may come back as int64 while the
// caller compares against int.
func scalarEqual(a, b any) bool {
	if ai, ok := asInt64(a); ok {
		if bi, ok := asInt64(b); ok {
			return ai == bi
		}
		return false
	}
	return a == b
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func project(r Row, fields []string) Row {
	if len(fields) == 0 {
		return cloneRow(r)
	}
	out := make(Row, len(fields))
	for _, f := range fields {
		out[f] = r[f]
	}
	return out
}

// FetchOne returns the first matching row, or nil if none matches.
func (m *MemStore) FetchOne(ctx context.Context, q Query) (Row, error) {
	rows, err := m.FetchMany(ctx, Query{Table: q.Table, Fields: q.Fields, Where: q.Where, OrderBy: q.OrderBy, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FetchMany returns all matching rows ordered by the requested field, or by
// the table's id field when no order is requested.
func (m *MemStore) FetchMany(ctx context.Context, q Query) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkUsable(ctx, "FetchMany"); err != nil {
		return nil, err
	}

	t, ok := m.tables[q.Table]
	if !ok {
		return nil, nil
	}

	var out []Row
	for _, row := range t.rows {
		if matches(row, q.Where) {
			out = append(out, project(row, q.Fields))
		}
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = IDField(q.Table)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := asInt64(out[i][orderBy])
		b, bok := asInt64(out[j][orderBy])
		if aok && bok {
			return a < b
		}
		as, _ := out[i][orderBy].(string)
		bs, _ := out[j][orderBy].(string)
		return as < bs
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Insert adds a row, allocating an id unless the table's id field is given.
func (m *MemStore) Insert(ctx context.Context, table string, fields []string, values []any) (int64, error) {
	if len(fields) != len(values) {
		return 0, errors.Invalidf("memstore", "Insert",
			"field/value length mismatch: %d vs %d", len(fields), len(values))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUsable(ctx, "Insert"); err != nil {
		return 0, err
	}

	t := m.table(table)
	row := make(Row, len(fields)+1)
	for i, f := range fields {
		row[f] = values[i]
	}

	idField := IDField(table)
	id, ok := asInt64(row[idField])
	if !ok || id == 0 {
		id = t.nextID
		row[idField] = id
	}
	if id >= t.nextID {
		t.nextID = id + 1
	}
	t.rows = append(t.rows, row)
	return id, nil
}

// Update overwrites fields of the row addressed by the table's id field.
func (m *MemStore) Update(ctx context.Context, table string, id int64, fields []string, values []any) error {
	return m.UpdateWhere(ctx, table, []Cond{Eq(IDField(table), id)}, fields, values)
}

// UpdateWhere overwrites fields of every matching row.
func (m *MemStore) UpdateWhere(ctx context.Context, table string, where []Cond, fields []string, values []any) error {
	if len(fields) != len(values) {
		return errors.Invalidf("memstore", "UpdateWhere",
			"field/value length mismatch: %d vs %d", len(fields), len(values))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUsable(ctx, "UpdateWhere"); err != nil {
		return err
	}

	t, ok := m.tables[table]
	if !ok {
		return errors.NotFoundf("memstore", "UpdateWhere", "table %q has no rows", table)
	}
	updated := false
	for _, row := range t.rows {
		if matches(row, where) {
			for i, f := range fields {
				row[f] = values[i]
			}
			updated = true
		}
	}
	if !updated {
		return errors.NotFoundf("memstore", "UpdateWhere", "no row in %q matches", table)
	}
	return nil
}

// Delete removes every matching row. Removing nothing is not an error.
func (m *MemStore) Delete(ctx context.Context, table string, where []Cond) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUsable(ctx, "Delete"); err != nil {
		return err
	}

	t, ok := m.tables[table]
	if !ok {
		return nil
	}
	kept := t.rows[:0]
	for _, row := range t.rows {
		if !matches(row, where) {
			kept = append(kept, row)
		}
	}
	t.rows = kept
	return nil
}
