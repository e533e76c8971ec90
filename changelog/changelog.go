// Package changelog provides the append-only audit trail of the zukunft
// core. Every field-level change the sandbox overlay resolver persists is
// recorded here before the row mutation itself, so a failed log write
// aborts the enclosing save (fail-closed). Entries are never updated or
// deleted.
package changelog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/storage"
)

// Action is the kind of change an entry records.
type Action string

const (
	// ActionAdd records the creation of a row.
	ActionAdd Action = "add"
	// ActionUpdate records a field change on an existing row.
	ActionUpdate Action = "update"
	// ActionDelete records a logical deletion.
	ActionDelete Action = "del"
)

// IsValid checks if the Action is one of the defined constants.
func (a Action) IsValid() bool {
	switch a {
	case ActionAdd, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// Entry is one immutable change record. Old, New and Std carry the field
// value before the change, after the change, and on the shared standard row
// at the time of the change; the standard value is what later lets the UI
// show three-way divergence.
type Entry struct {
	ID        int64     `json:"id,omitempty"`
	ChangeSet string    `json:"change_set,omitempty"` // groups the entries of one save
	UserID    int64     `json:"user_id"`
	Action    Action    `json:"action"`
	Table     string    `json:"table"`
	Field     string    `json:"field"`
	RowID     int64     `json:"row_id"`
	Old       string    `json:"old_value,omitempty"`
	New       string    `json:"new_value,omitempty"`
	Std       string    `json:"std_value,omitempty"`
	Time      time.Time `json:"change_time"`
}

// Recorder appends change entries to the audit trail.
type Recorder interface {
	// Record appends one entry and returns its id. A failed store write is
	// a persistence error the caller must treat as fatal to the enclosing
	// save.
	Record(ctx context.Context, e Entry) (int64, error)
}

// NewChangeSet returns a fresh correlation id grouping the entries of one
// save operation.
func NewChangeSet() string {
	return uuid.NewString()
}

// StoreRecorder writes entries to the changes table and, when a publisher
// is configured, forwards them to the changefeed.
type StoreRecorder struct {
	store     storage.RowStore
	publisher *Publisher
	logger    *slog.Logger
}

// NewStoreRecorder creates a recorder backed by the given store. The
// publisher may be nil when no changefeed is wanted.
func NewStoreRecorder(store storage.RowStore, publisher *Publisher, logger *slog.Logger) *StoreRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreRecorder{store: store, publisher: publisher, logger: logger}
}

// Record appends one entry. The entry is validated, written to the store,
// and then offered to the changefeed. A changefeed failure is logged but
// does not fail the record: the durable audit row is the contract, the
// feed is advisory.
func (r *StoreRecorder) Record(ctx context.Context, e Entry) (int64, error) {
	if !e.Action.IsValid() {
		return 0, errors.Invalidf("changelog", "Record", "unknown action %q", e.Action)
	}
	if e.UserID == 0 {
		return 0, errors.Invalidf("changelog", "Record", "entry without user")
	}
	if e.Table == "" || e.Field == "" {
		return 0, errors.Invalidf("changelog", "Record", "entry without table or field")
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	id, err := r.store.Insert(ctx, "changes",
		[]string{"change_set", "user_id", "action_id", "table_id", "field_id",
			"row_id", "old_value", "new_value", "std_value", "change_time"},
		[]any{e.ChangeSet, e.UserID, string(e.Action), e.Table, e.Field,
			e.RowID, e.Old, e.New, e.Std, e.Time.Format(time.RFC3339Nano)})
	if err != nil {
		return 0, errors.WrapPersistence(errors.ErrLogWriteFailed, "changelog", "Record",
			fmt.Sprintf("insert entry for %s.%s row %d: %v", e.Table, e.Field, e.RowID, err))
	}
	e.ID = id

	if r.publisher != nil {
		if err := r.publisher.PublishEntry(ctx, e); err != nil {
			r.logger.Warn("changefeed publish failed",
				"table", e.Table, "row_id", e.RowID, "error", err)
		}
	}
	return id, nil
}

// Reader provides read access to the trail for conflict display. There is
// deliberately no update or delete surface.
type Reader struct {
	store storage.RowStore
}

// NewReader creates a read-only view of the change trail.
func NewReader(store storage.RowStore) *Reader {
	return &Reader{store: store}
}

// ByRow returns all entries for one row of one table, oldest first.
func (r *Reader) ByRow(ctx context.Context, table string, rowID int64) ([]Entry, error) {
	rows, err := r.store.FetchMany(ctx, storage.Query{
		Table: "changes",
		Where: []storage.Cond{
			storage.Eq("table_id", table),
			storage.Eq("row_id", rowID),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "changelog", "ByRow", "fetch entries")
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entryFromRow(row))
	}
	return out, nil
}

func entryFromRow(row storage.Row) Entry {
	e := Entry{
		ChangeSet: asString(row["change_set"]),
		Action:    Action(asString(row["action_id"])),
		Table:     asString(row["table_id"]),
		Field:     asString(row["field_id"]),
		Old:       asString(row["old_value"]),
		New:       asString(row["new_value"]),
		Std:       asString(row["std_value"]),
	}
	e.ID = asInt64(row["change_id"])
	e.UserID = asInt64(row["user_id"])
	e.RowID = asInt64(row["row_id"])
	if ts, err := time.Parse(time.RFC3339Nano, asString(row["change_time"])); err == nil {
		e.Time = ts
	}
	return e
}

func asInt64(v any) int64 {
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

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
