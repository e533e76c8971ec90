package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zukunftch/zukunft.com/changelog"
	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/registry"
	"github.com/zukunftch/zukunft.com/storage"
	"github.com/zukunftch/zukunft.com/term"
)

// Outcome tells the caller what a save actually did. The id-redirect path
// is an ordinary result, not an exception.
type Outcome int

const (
	// OutcomeCreated means a new standard row was allocated.
	OutcomeCreated Outcome = iota + 1
	// OutcomeUpdated means the shared standard row was mutated directly.
	OutcomeUpdated
	// OutcomeForked means the change went into the user's override row,
	// leaving the standard row untouched.
	OutcomeForked
	// OutcomeRedirected means an entity with the target identity already
	// exists; the caller should continue with RedirectID.
	OutcomeRedirected
	// OutcomeExcluded means the entity was logically deleted for this user
	// or for everyone.
	OutcomeExcluded
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeForked:
		return "forked"
	case OutcomeRedirected:
		return "redirected"
	case OutcomeExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// SaveResult reports the outcome of one save: what happened, the id the
// caller should continue with, and the recorded change entries.
type SaveResult struct {
	Outcome    Outcome
	ID         int64
	RedirectID int64  // set when Outcome is OutcomeRedirected
	ChangeSet  string // correlation id of the recorded entries
	EntryIDs   []int64
}

// ValidationErrors collects all field problems of a save so the caller can
// report them at once instead of failing on the first.
type ValidationErrors []string

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	return strings.Join(v, "; ")
}

// FieldDelta is one persisted field change with the three values the
// change log needs for conflict display and rollback.
type FieldDelta struct {
	Field string
	Old   string
	New   string
	Std   string
}

// SaveTarget is where the write path directs a change.
type SaveTarget int

const (
	// TargetStandard mutates the shared row directly.
	TargetStandard SaveTarget = iota + 1
	// TargetOverride writes the diverging fields to the user's override row.
	TargetOverride
)

// SavePlan is the pure decision of the write path: which row to touch and
// which field deltas to persist. Computing the plan does no I/O.
type SavePlan struct {
	Target SaveTarget
	Deltas []FieldDelta
}

// PlanSave compares the current values against the standard row values
// field by field and decides the write target. The standard row may be
// mutated directly only by its owner while nobody else has diverged from
// it; everyone else forks an override.
func PlanSave(fields []string, current, standard []any, isOwner, othersDiverged bool) SavePlan {
	plan := SavePlan{Target: TargetOverride}
	if isOwner && !othersDiverged {
		plan.Target = TargetStandard
	}
	for i, f := range fields {
		cur := valueString(current[i])
		std := valueString(standard[i])
		if cur == std {
			continue
		}
		plan.Deltas = append(plan.Deltas, FieldDelta{Field: f, Old: std, New: cur, Std: std})
	}
	return plan
}

func valueString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// savable is the write-path surface of the concrete entity types.
type savable interface {
	Entity
	Table() string
	OverrideTable() string
	overridableFields() ([]string, []any)
}

// Resolver is the sandbox overlay resolver: it loads effective entities
// for a user and runs the write path, emitting change-log entries for every
// persisted delta. It is the only core component allowed to mutate rows.
type Resolver struct {
	store    storage.RowStore
	recorder changelog.Recorder
	registry *registry.TypeRegistry
	logger   *slog.Logger
}

// NewResolver creates an overlay resolver on the given collaborators.
func NewResolver(store storage.RowStore, recorder changelog.Recorder, reg *registry.TypeRegistry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, recorder: recorder, registry: reg, logger: logger}
}

// Registry returns the type registry the resolver was built with.
func (r *Resolver) Registry() *registry.TypeRegistry { return r.registry }

// Store returns the row store boundary the resolver queries through.
func (r *Resolver) Store() storage.RowStore { return r.store }

/*
 * load path
 */

func (r *Resolver) fetchStandard(ctx context.Context, table string, id int64) (storage.Row, error) {
	return r.store.FetchOne(ctx, storage.Query{
		Table: table,
		Where: []storage.Cond{storage.Eq(storage.IDField(table), id)},
	})
}

func (r *Resolver) fetchOverride(ctx context.Context, table string, id int64, user User) (storage.Row, error) {
	return r.store.FetchOne(ctx, storage.Query{
		Table: table,
		Where: []storage.Cond{
			storage.Eq(storage.IDField(table), id),
			storage.Eq(FldUser, user.ID),
		},
	})
}

// LoadWord returns the effective word for a user, or a not-found error.
func (r *Resolver) LoadWord(ctx context.Context, user User, id int64) (*Word, error) {
	row, err := r.fetchStandard(ctx, TableWords, id)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadWord", "fetch standard")
	}
	if row == nil {
		return nil, errors.NotFoundf("sandbox", "LoadWord", "no word with id %d", id)
	}
	override, err := r.fetchOverride(ctx, TableUserWords, id, user)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadWord", "fetch override")
	}
	return ResolveWord(WordFromRow(row), override), nil
}

// LoadWordByName resolves a word by its unique name.
func (r *Resolver) LoadWordByName(ctx context.Context, user User, name string) (*Word, error) {
	row, err := r.store.FetchOne(ctx, storage.Query{
		Table: TableWords,
		Where: []storage.Cond{storage.Eq(FldWordName, name)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadWordByName", "fetch standard")
	}
	if row == nil {
		return nil, errors.NotFoundf("sandbox", "LoadWordByName", "no word named %q", name)
	}
	word := WordFromRow(row)
	override, err := r.fetchOverride(ctx, TableUserWords, word.RowID, user)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadWordByName", "fetch override")
	}
	return ResolveWord(word, override), nil
}

// LoadTriple returns the effective triple for a user, normalized to
// forward orientation.
func (r *Resolver) LoadTriple(ctx context.Context, user User, id int64) (*Triple, error) {
	row, err := r.fetchStandard(ctx, TableTriples, id)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadTriple", "fetch standard")
	}
	if row == nil {
		return nil, errors.NotFoundf("sandbox", "LoadTriple", "no triple with id %d", id)
	}
	override, err := r.fetchOverride(ctx, TableUserTriples, id, user)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadTriple", "fetch override")
	}
	triple := ResolveTriple(TripleFromRow(row), override)
	triple.Normalize(r.registry)
	return triple, nil
}

// LoadFormula returns the effective formula for a user.
func (r *Resolver) LoadFormula(ctx context.Context, user User, id int64) (*Formula, error) {
	row, err := r.fetchStandard(ctx, TableFormulas, id)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadFormula", "fetch standard")
	}
	if row == nil {
		return nil, errors.NotFoundf("sandbox", "LoadFormula", "no formula with id %d", id)
	}
	override, err := r.fetchOverride(ctx, TableUserFormulas, id, user)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadFormula", "fetch override")
	}
	return ResolveFormula(FormulaFromRow(row), override), nil
}

// LoadValue returns the effective value for a user.
func (r *Resolver) LoadValue(ctx context.Context, user User, id int64) (*Value, error) {
	row, err := r.fetchStandard(ctx, TableValues, id)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadValue", "fetch standard")
	}
	if row == nil {
		return nil, errors.NotFoundf("sandbox", "LoadValue", "no value with id %d", id)
	}
	override, err := r.fetchOverride(ctx, TableUserValues, id, user)
	if err != nil {
		return nil, errors.Wrap(err, "sandbox", "LoadValue", "fetch override")
	}
	return ResolveValue(ValueFromRow(row), override), nil
}

/*
 * write path
 */

// othersDiverged reports whether any user other than the editor carries an
// override row for the entity with at least one set field. Such a
// divergence blocks direct mutation of the standard row.
func (r *Resolver) othersDiverged(ctx context.Context, overrideTable string, id int64, editor User) (bool, error) {
	rows, err := r.store.FetchMany(ctx, storage.Query{
		Table: overrideTable,
		Where: []storage.Cond{storage.Eq(storage.IDField(overrideTable), id)},
	})
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if rowInt64(row[FldUser]) == editor.ID {
			continue
		}
		for field, v := range row {
			if field == FldUser || field == storage.IDField(overrideTable) {
				continue
			}
			if v != nil {
				return true, nil
			}
		}
	}
	return false, nil
}

// checkUnchanged compares the freshly resolved effective entity against
// the snapshot the user loaded at edit time. Any divergence is a conflict
// the user must resolve; the detail names the first differing field. A nil
// snapshot skips the check (last write wins).
func checkUnchanged(table string, snapshot savable, fresh savable) error {
	if snapshot == nil {
		return nil
	}
	fields, snapVals := snapshot.overridableFields()
	_, freshVals := fresh.overridableFields()
	for i, f := range fields {
		snap := valueString(snapVals[i])
		cur := valueString(freshVals[i])
		if snap != cur {
			return errors.Conflictf("sandbox", "Save",
				"%s %d field %s changed concurrently: loaded %q, now %q",
				table, snapshot.ID(), f, snap, cur)
		}
	}
	if snapshot.OwnerID() != fresh.OwnerID() {
		return errors.Conflictf("sandbox", "Save",
			"%s %d changed owner concurrently", table, snapshot.ID())
	}
	return nil
}

// recordDeltas writes one change-log entry per field delta. Called before
// the row mutation; a failed write aborts the save (fail-closed).
func (r *Resolver) recordDeltas(ctx context.Context, user User, table string, rowID int64, action changelog.Action, deltas []FieldDelta, changeSet string) ([]int64, error) {
	ids := make([]int64, 0, len(deltas))
	for _, d := range deltas {
		id, err := r.recorder.Record(ctx, changelog.Entry{
			ChangeSet: changeSet,
			UserID:    user.ID,
			Action:    action,
			Table:     table,
			Field:     d.Field,
			RowID:     rowID,
			Old:       d.Old,
			New:       d.New,
			Std:       d.Std,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// backfillRowID stamps the allocated id onto change entries that were
// recorded before the insert produced one. Best effort; the entries are
// valid without it.
func (r *Resolver) backfillRowID(ctx context.Context, entryIDs []int64, rowID int64) {
	if len(entryIDs) == 0 {
		return
	}
	err := r.store.UpdateWhere(ctx, "changes",
		[]storage.Cond{storage.In("change_id", entryIDs)},
		[]string{"row_id"}, []any{rowID})
	if err != nil {
		r.logger.Warn("row id backfill on change entries failed",
			"row_id", rowID, "error", err)
	}
}

// applyOverride upserts the user's override row with only the diverging
// fields set.
func (r *Resolver) applyOverride(ctx context.Context, user User, cur savable, deltas []FieldDelta) error {
	fields, values := cur.overridableFields()
	byField := make(map[string]any, len(fields))
	for i, f := range fields {
		byField[f] = values[i]
	}
	setFields := make([]string, 0, len(deltas))
	setValues := make([]any, 0, len(deltas))
	for _, d := range deltas {
		setFields = append(setFields, d.Field)
		setValues = append(setValues, byField[d.Field])
	}

	table := cur.OverrideTable()
	idField := storage.IDField(table)
	existing, err := r.store.FetchOne(ctx, storage.Query{
		Table: table,
		Where: []storage.Cond{storage.Eq(idField, cur.ID()), storage.Eq(FldUser, user.ID)},
	})
	if err != nil {
		return err
	}
	if existing == nil {
		_, err = r.store.Insert(ctx, table,
			append([]string{idField, FldUser}, setFields...),
			append([]any{cur.ID(), user.ID}, setValues...))
		return err
	}
	return r.store.UpdateWhere(ctx, table,
		[]storage.Cond{storage.Eq(idField, cur.ID()), storage.Eq(FldUser, user.ID)},
		setFields, setValues)
}

// upsertOverrideField sets a single field on the user's override row,
// creating the row if needed.
func (r *Resolver) upsertOverrideField(ctx context.Context, user User, cur savable, field string, value any) error {
	table := cur.OverrideTable()
	idField := storage.IDField(table)
	existing, err := r.store.FetchOne(ctx, storage.Query{
		Table: table,
		Where: []storage.Cond{storage.Eq(idField, cur.ID()), storage.Eq(FldUser, user.ID)},
	})
	if err != nil {
		return err
	}
	if existing == nil {
		_, err = r.store.Insert(ctx, table,
			[]string{idField, FldUser, field},
			[]any{cur.ID(), user.ID, value})
		return err
	}
	return r.store.UpdateWhere(ctx, table,
		[]storage.Cond{storage.Eq(idField, cur.ID()), storage.Eq(FldUser, user.ID)},
		[]string{field}, []any{value})
}

// saveExisting runs the shared update path: plan against the fresh
// standard, log entries first, then the row mutation. The conflict check
// against the edit snapshot has already happened in the typed callers.
func (r *Resolver) saveExisting(ctx context.Context, user User, cur, fresh savable) (SaveResult, error) {
	table := cur.Table()
	fields, curVals := cur.overridableFields()
	_, stdVals := fresh.overridableFields()
	diverged, err := r.othersDiverged(ctx, cur.OverrideTable(), cur.ID(), user)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "Save", "divergence check")
	}
	plan := PlanSave(fields, curVals, stdVals, user.ID == fresh.OwnerID(), diverged)
	if len(plan.Deltas) == 0 {
		return SaveResult{Outcome: OutcomeUpdated, ID: cur.ID()}, nil
	}

	changeSet := changelog.NewChangeSet()
	entryIDs, err := r.recordDeltas(ctx, user, table, cur.ID(), changelog.ActionUpdate, plan.Deltas, changeSet)
	if err != nil {
		r.logger.Error("save aborted, change log write failed",
			"table", table, "row_id", cur.ID(), "error", err)
		return SaveResult{}, err
	}

	if plan.Target == TargetStandard {
		setFields := make([]string, 0, len(plan.Deltas))
		setValues := make([]any, 0, len(plan.Deltas))
		byField := make(map[string]any, len(fields))
		for i, f := range fields {
			byField[f] = curVals[i]
		}
		for _, d := range plan.Deltas {
			setFields = append(setFields, d.Field)
			setValues = append(setValues, byField[d.Field])
		}
		if err := r.store.Update(ctx, table, cur.ID(), setFields, setValues); err != nil {
			return SaveResult{}, errors.WrapPersistence(err, "sandbox", "Save", "update standard row")
		}
		return SaveResult{Outcome: OutcomeUpdated, ID: cur.ID(), ChangeSet: changeSet, EntryIDs: entryIDs}, nil
	}

	if err := r.applyOverride(ctx, user, cur, plan.Deltas); err != nil {
		return SaveResult{}, errors.WrapPersistence(err, "sandbox", "Save", "write override row")
	}
	return SaveResult{Outcome: OutcomeForked, ID: cur.ID(), ChangeSet: changeSet, EntryIDs: entryIDs}, nil
}

// createNamed inserts a new standard row with the creator as owner.
func (r *Resolver) createNamed(ctx context.Context, user User, cur savable, nameField, name string) (SaveResult, error) {
	table := cur.Table()
	changeSet := changelog.NewChangeSet()
	entryIDs, err := r.recordDeltas(ctx, user, table, 0, changelog.ActionAdd,
		[]FieldDelta{{Field: nameField, New: name}}, changeSet)
	if err != nil {
		return SaveResult{}, err
	}

	fields, values := cur.overridableFields()
	id, err := r.store.Insert(ctx, table,
		append([]string{FldOwner}, fields...),
		append([]any{user.ID}, values...))
	if err != nil {
		return SaveResult{}, errors.WrapPersistence(err, "sandbox", "Save", "insert standard row")
	}
	cur.SetID(id)
	r.backfillRowID(ctx, entryIDs, id)
	return SaveResult{Outcome: OutcomeCreated, ID: id, ChangeSet: changeSet, EntryIDs: entryIDs}, nil
}

// SaveWord persists a word edit. The snapshot is the standard word as it
// was when the user loaded it; the conflict check runs against a fresh
// read.
func (r *Resolver) SaveWord(ctx context.Context, user User, cur *Word, snapshot *Word) (SaveResult, error) {
	var problems ValidationErrors
	if cur.WordName == "" {
		problems = append(problems, "word name is required")
	}
	if user.ID == 0 {
		problems = append(problems, "a user is required to save")
	}
	if len(problems) > 0 {
		return SaveResult{}, problems
	}

	if cur.RowID == 0 {
		existing, err := r.store.FetchOne(ctx, storage.Query{
			Table: TableWords,
			Where: []storage.Cond{storage.Eq(FldWordName, cur.WordName)},
		})
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveWord", "uniqueness check")
		}
		if existing != nil {
			return SaveResult{
				Outcome:    OutcomeRedirected,
				RedirectID: rowInt64(existing[FldWordID]),
			}, nil
		}
		cur.Owner = user.ID
		return r.createNamed(ctx, user, cur, FldWordName, cur.WordName)
	}

	freshRow, err := r.fetchStandard(ctx, TableWords, cur.RowID)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "SaveWord", "fresh read")
	}
	if freshRow == nil {
		return SaveResult{}, errors.NotFoundf("sandbox", "SaveWord", "word %d vanished", cur.RowID)
	}
	fresh := WordFromRow(freshRow)
	if snapshot != nil {
		override, err := r.fetchOverride(ctx, TableUserWords, cur.RowID, user)
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveWord", "fetch override")
		}
		if err := checkUnchanged(TableWords, snapshot, ResolveWord(fresh, override)); err != nil {
			return SaveResult{}, err
		}
	}
	return r.saveExisting(ctx, user, cur, fresh)
}

// SaveFormula persists a formula edit, with the same path as SaveWord.
func (r *Resolver) SaveFormula(ctx context.Context, user User, cur *Formula, snapshot *Formula) (SaveResult, error) {
	var problems ValidationErrors
	if cur.FormulaName == "" {
		problems = append(problems, "formula name is required")
	}
	if user.ID == 0 {
		problems = append(problems, "a user is required to save")
	}
	if len(problems) > 0 {
		return SaveResult{}, problems
	}

	if cur.RowID == 0 {
		existing, err := r.store.FetchOne(ctx, storage.Query{
			Table: TableFormulas,
			Where: []storage.Cond{storage.Eq(FldFormulaName, cur.FormulaName)},
		})
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveFormula", "uniqueness check")
		}
		if existing != nil {
			return SaveResult{
				Outcome:    OutcomeRedirected,
				RedirectID: rowInt64(existing[FldFormulaID]),
			}, nil
		}
		cur.Owner = user.ID
		return r.createNamed(ctx, user, cur, FldFormulaName, cur.FormulaName)
	}

	freshRow, err := r.fetchStandard(ctx, TableFormulas, cur.RowID)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "SaveFormula", "fresh read")
	}
	if freshRow == nil {
		return SaveResult{}, errors.NotFoundf("sandbox", "SaveFormula", "formula %d vanished", cur.RowID)
	}
	fresh := FormulaFromRow(freshRow)
	if snapshot != nil {
		override, err := r.fetchOverride(ctx, TableUserFormulas, cur.RowID, user)
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveFormula", "fetch override")
		}
		if err := checkUnchanged(TableFormulas, snapshot, ResolveFormula(fresh, override)); err != nil {
			return SaveResult{}, err
		}
	}
	return r.saveExisting(ctx, user, cur, fresh)
}

// SaveValue persists a value edit. Values have no name; the phrase group
// is their identity.
func (r *Resolver) SaveValue(ctx context.Context, user User, cur *Value, snapshot *Value) (SaveResult, error) {
	var problems ValidationErrors
	if cur.Group == "" {
		problems = append(problems, "a phrase group is required")
	}
	if user.ID == 0 {
		problems = append(problems, "a user is required to save")
	}
	if len(problems) > 0 {
		return SaveResult{}, problems
	}

	if cur.RowID == 0 {
		existing, err := r.store.FetchOne(ctx, storage.Query{
			Table: TableValues,
			Where: []storage.Cond{storage.Eq(FldValueGroup, cur.Group)},
		})
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveValue", "uniqueness check")
		}
		if existing != nil {
			return SaveResult{
				Outcome:    OutcomeRedirected,
				RedirectID: rowInt64(existing[FldValueID]),
			}, nil
		}
		cur.Owner = user.ID
		changeSet := changelog.NewChangeSet()
		var num string
		if cur.Number != nil {
			num = valueString(*cur.Number)
		}
		entryIDs, err := r.recordDeltas(ctx, user, TableValues, 0, changelog.ActionAdd,
			[]FieldDelta{{Field: FldValueNumber, New: num}}, changeSet)
		if err != nil {
			return SaveResult{}, err
		}
		fields, values := cur.overridableFields()
		id, err := r.store.Insert(ctx, TableValues,
			append([]string{FldOwner, FldValueGroup}, fields...),
			append([]any{user.ID, cur.Group}, values...))
		if err != nil {
			return SaveResult{}, errors.WrapPersistence(err, "sandbox", "SaveValue", "insert standard row")
		}
		cur.RowID = id
		r.backfillRowID(ctx, entryIDs, id)
		if err := r.bumpGroupUsage(ctx, cur.Group); err != nil {
			return SaveResult{}, err
		}
		return SaveResult{Outcome: OutcomeCreated, ID: id, ChangeSet: changeSet, EntryIDs: entryIDs}, nil
	}

	freshRow, err := r.fetchStandard(ctx, TableValues, cur.RowID)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "SaveValue", "fresh read")
	}
	if freshRow == nil {
		return SaveResult{}, errors.NotFoundf("sandbox", "SaveValue", "value %d vanished", cur.RowID)
	}
	fresh := ValueFromRow(freshRow)
	if snapshot != nil {
		override, err := r.fetchOverride(ctx, TableUserValues, cur.RowID, user)
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveValue", "fetch override")
		}
		if err := checkUnchanged(TableValues, snapshot, ResolveValue(fresh, override)); err != nil {
			return SaveResult{}, err
		}
	}
	return r.saveExisting(ctx, user, cur, fresh)
}

// bumpGroupUsage increments the usage counter of every phrase a new
// value refers to: words count usage, triples count values. The triple
// counter guards the in-place link rewrite, so the write is part of the
// save rather than best-effort. Group members that are not phrase ids or
// that have no standard row are skipped.
func (r *Resolver) bumpGroupUsage(ctx context.Context, group string) error {
	for _, part := range strings.Split(group, ",") {
		raw, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || raw == 0 {
			continue
		}
		kind, nativeID, err := term.DecodePhrase(term.PhraseID(raw))
		if err != nil {
			continue
		}
		table, counter := TableWords, FldWordUsage
		if kind == term.KindTriple {
			table, counter = TableTriples, FldTripleValues
		}
		row, err := r.fetchStandard(ctx, table, nativeID)
		if err != nil {
			return errors.Wrap(err, "sandbox", "SaveValue", "usage counter read")
		}
		if row == nil {
			continue
		}
		if err := r.store.Update(ctx, table, nativeID,
			[]string{counter}, []any{rowInt64(row[counter]) + 1}); err != nil {
			return errors.WrapPersistence(err, "sandbox", "SaveValue", "usage counter update")
		}
	}
	return nil
}

// findTripleByIdentity looks up a triple by its normalized link.
func (r *Resolver) findTripleByIdentity(ctx context.Context, from term.PhraseID, verbID int64, to term.PhraseID) (storage.Row, error) {
	return r.store.FetchOne(ctx, storage.Query{
		Table: TableTriples,
		Where: []storage.Cond{
			storage.Eq(FldTripleFrom, int64(from)),
			storage.Eq(FldTripleVerb, verbID),
			storage.Eq(FldTripleTo, int64(to)),
		},
	})
}

// phraseName resolves the display name of a phrase id for name
// generation. Lookups are best-effort: an unresolvable phrase yields an
// empty name and GenerateName degrades accordingly.
func (r *Resolver) phraseName(ctx context.Context, user User, id term.PhraseID) string {
	kind, nativeID, err := term.DecodePhrase(id)
	if err != nil {
		return ""
	}
	switch kind {
	case term.KindWord:
		w, err := r.LoadWord(ctx, user, nativeID)
		if err != nil || w == nil {
			return ""
		}
		return w.WordName
	case term.KindTriple:
		tr, err := r.LoadTriple(ctx, user, nativeID)
		if err != nil || tr == nil {
			return ""
		}
		return tr.Name()
	}
	return ""
}

// refreshGeneratedName recomputes the cached generated name from the
// current link. The triple must already be normalized.
func (r *Resolver) refreshGeneratedName(ctx context.Context, user User, cur *Triple) {
	var verbName string
	var isA bool
	if v, ok := r.registry.VerbByID(cur.VerbID); ok {
		verbName = v.Name
		isA = v.Code == term.RelationIsA
	}
	cur.NameGenerated = cur.GenerateName(
		r.phraseName(ctx, user, cur.From),
		verbName,
		r.phraseName(ctx, user, cur.To),
		isA)
}

func (r *Resolver) insertTriple(ctx context.Context, user User, cur *Triple) (SaveResult, error) {
	cur.Owner = user.ID
	r.refreshGeneratedName(ctx, user, cur)
	changeSet := changelog.NewChangeSet()
	idFields, idValues := cur.identityFields()
	deltas := make([]FieldDelta, 0, len(idFields))
	for i, f := range idFields {
		deltas = append(deltas, FieldDelta{Field: f, New: valueString(idValues[i])})
	}
	entryIDs, err := r.recordDeltas(ctx, user, TableTriples, 0, changelog.ActionAdd, deltas, changeSet)
	if err != nil {
		return SaveResult{}, err
	}
	fields, values := cur.overridableFields()
	id, err := r.store.Insert(ctx, TableTriples,
		append(append([]string{FldOwner, FldNameGenerated}, idFields...), fields...),
		append(append([]any{user.ID, cur.NameGenerated}, idValues...), values...))
	if err != nil {
		return SaveResult{}, errors.WrapPersistence(err, "sandbox", "SaveTriple", "insert standard row")
	}
	cur.RowID = id
	r.backfillRowID(ctx, entryIDs, id)
	return SaveResult{Outcome: OutcomeCreated, ID: id, ChangeSet: changeSet, EntryIDs: entryIDs}, nil
}

// SaveTriple persists a triple edit. A change to the from/verb/to link is
// an identity change and follows its own path: merge into an existing
// triple with the target link, rewrite the link in place when only the
// owner uses it, or fork a fresh triple otherwise.
func (r *Resolver) SaveTriple(ctx context.Context, user User, cur *Triple, snapshot *Triple) (SaveResult, error) {
	var problems ValidationErrors
	if cur.From == 0 || cur.To == 0 {
		problems = append(problems, "a triple needs both a from and a to phrase")
	}
	if cur.VerbID == 0 {
		problems = append(problems, "a triple needs a verb")
	}
	if cur.From == cur.To && cur.From != 0 {
		problems = append(problems, "a phrase cannot be linked to itself")
	}
	if user.ID == 0 {
		problems = append(problems, "a user is required to save")
	}
	if len(problems) > 0 {
		return SaveResult{}, problems
	}
	cur.Normalize(r.registry)

	if cur.RowID == 0 {
		existing, err := r.findTripleByIdentity(ctx, cur.From, cur.VerbID, cur.To)
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveTriple", "identity lookup")
		}
		if existing != nil {
			return SaveResult{
				Outcome:    OutcomeRedirected,
				RedirectID: rowInt64(existing[FldTripleID]),
			}, nil
		}
		return r.insertTriple(ctx, user, cur)
	}

	freshRow, err := r.fetchStandard(ctx, TableTriples, cur.RowID)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "SaveTriple", "fresh read")
	}
	if freshRow == nil {
		return SaveResult{}, errors.NotFoundf("sandbox", "SaveTriple", "triple %d vanished", cur.RowID)
	}
	fresh := TripleFromRow(freshRow)
	fresh.Normalize(r.registry)
	if snapshot != nil {
		override, err := r.fetchOverride(ctx, TableUserTriples, cur.RowID, user)
		if err != nil {
			return SaveResult{}, errors.Wrap(err, "sandbox", "SaveTriple", "fetch override")
		}
		eff := ResolveTriple(fresh, override)
		eff.Normalize(r.registry)
		if err := checkUnchanged(TableTriples, snapshot, eff); err != nil {
			return SaveResult{}, err
		}
	}

	if cur.From != fresh.From || cur.VerbID != fresh.VerbID || cur.To != fresh.To {
		return r.saveTripleIdentityChange(ctx, user, cur, fresh)
	}
	return r.saveExisting(ctx, user, cur, fresh)
}

func (r *Resolver) saveTripleIdentityChange(ctx context.Context, user User, cur, fresh *Triple) (SaveResult, error) {
	// The target link may already exist; if so, drop the user's edit onto
	// the existing triple and retire the old one for this user.
	existing, err := r.findTripleByIdentity(ctx, cur.From, cur.VerbID, cur.To)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "SaveTriple", "identity lookup")
	}
	if existing != nil {
		old := *fresh
		if _, err := r.Exclude(ctx, user, &old); err != nil {
			return SaveResult{}, err
		}
		return SaveResult{
			Outcome:    OutcomeRedirected,
			ID:         fresh.RowID,
			RedirectID: rowInt64(existing[FldTripleID]),
		}, nil
	}

	diverged, err := r.othersDiverged(ctx, TableUserTriples, cur.RowID, user)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "SaveTriple", "divergence check")
	}

	if user.ID == fresh.OwnerID() && !diverged && fresh.Values == 0 {
		// Nobody else depends on this link yet, so rewrite it in place.
		idFields, newVals := cur.identityFields()
		_, oldVals := fresh.identityFields()
		var deltas []FieldDelta
		for i, f := range idFields {
			if valueString(newVals[i]) == valueString(oldVals[i]) {
				continue
			}
			deltas = append(deltas, FieldDelta{
				Field: f,
				Old:   valueString(oldVals[i]),
				New:   valueString(newVals[i]),
				Std:   valueString(oldVals[i]),
			})
		}
		changeSet := changelog.NewChangeSet()
		entryIDs, err := r.recordDeltas(ctx, user, TableTriples, cur.RowID, changelog.ActionUpdate, deltas, changeSet)
		if err != nil {
			return SaveResult{}, err
		}
		r.refreshGeneratedName(ctx, user, cur)
		if err := r.store.Update(ctx, TableTriples, cur.RowID,
			append(idFields, FldNameGenerated),
			append(newVals, cur.NameGenerated)); err != nil {
			return SaveResult{}, errors.WrapPersistence(err, "sandbox", "SaveTriple", "rewrite link")
		}
		res, err := r.saveExisting(ctx, user, cur, fresh)
		if err != nil {
			return SaveResult{}, err
		}
		res.Outcome = OutcomeUpdated
		res.EntryIDs = append(entryIDs, res.EntryIDs...)
		if res.ChangeSet == "" {
			res.ChangeSet = changeSet
		}
		return res, nil
	}

	// The old link stays for the other users; this user gets a fresh
	// triple with the new link and drops the old one.
	replacement := *cur
	replacement.RowID = 0
	res, err := r.insertTriple(ctx, user, &replacement)
	if err != nil {
		return SaveResult{}, err
	}
	old := *fresh
	if _, err := r.Exclude(ctx, user, &old); err != nil {
		return SaveResult{}, err
	}
	cur.RowID = replacement.RowID
	return res, nil
}

// Exclude logically deletes an entity for the editing user, or for
// everyone when the editor owns the standard row and nobody else has
// diverged. The row and its history stay in place.
func (r *Resolver) Exclude(ctx context.Context, user User, cur savable) (SaveResult, error) {
	if cur.ID() == 0 {
		return SaveResult{}, errors.Invalidf("sandbox", "Exclude", "entity has no id yet")
	}
	table := cur.Table()
	freshRow, err := r.fetchStandard(ctx, table, cur.ID())
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "Exclude", "fresh read")
	}
	if freshRow == nil {
		return SaveResult{}, errors.NotFoundf("sandbox", "Exclude", "%s %d vanished", table, cur.ID())
	}
	owner := rowInt64(freshRow[FldOwner])
	diverged, err := r.othersDiverged(ctx, cur.OverrideTable(), cur.ID(), user)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "sandbox", "Exclude", "divergence check")
	}

	changeSet := changelog.NewChangeSet()
	entryIDs, err := r.recordDeltas(ctx, user, table, cur.ID(), changelog.ActionDelete,
		[]FieldDelta{{Field: FldExcluded, Old: "0", New: "1", Std: "0"}}, changeSet)
	if err != nil {
		return SaveResult{}, err
	}

	if user.ID == owner && !diverged {
		if err := r.store.Update(ctx, table, cur.ID(), []string{FldExcluded}, []any{int64(1)}); err != nil {
			return SaveResult{}, errors.WrapPersistence(err, "sandbox", "Exclude", "update standard row")
		}
	} else {
		if err := r.upsertOverrideField(ctx, user, cur, FldExcluded, int64(1)); err != nil {
			return SaveResult{}, errors.WrapPersistence(err, "sandbox", "Exclude", "write override row")
		}
	}
	return SaveResult{Outcome: OutcomeExcluded, ID: cur.ID(), ChangeSet: changeSet, EntryIDs: entryIDs}, nil
}
