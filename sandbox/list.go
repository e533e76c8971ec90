package sandbox

import (
	"sort"

	"github.com/zukunftch/zukunft.com/term"
)

// NamedList is the ordered, deduplicated collection of sandboxed entities
// that all core components pass between each other. It is bound to exactly
// one viewing user.
//
// Elements are compared by entity id, never by reference. An entity without
// an id but with a name is a pending member awaiting identity resolution;
// it may coexist with resolved members until a save assigns its id.
//
// The name index is rebuilt lazily: any mutation marks it dirty and the
// first name lookup afterwards pays the O(n) rebuild.
type NamedList struct {
	user      User
	lst       []Entity
	namePos   map[string]int
	nameDirty bool
}

// NewNamedList creates a list for the given user, optionally seeded with
// entities (applying the usual id-uniqueness rules).
func NewNamedList(user User, entities ...Entity) *NamedList {
	l := &NamedList{user: user}
	for _, e := range entities {
		l.Add(e)
	}
	return l
}

// User returns the user the list is bound to.
func (l *NamedList) User() User { return l.user }

// Count returns the number of entities in the list.
func (l *NamedList) Count() int { return len(l.lst) }

// IsEmpty returns true if the list has no entities.
func (l *NamedList) IsEmpty() bool { return len(l.lst) == 0 }

// Entities returns the backing slice in list order. Callers must not
// modify it.
func (l *NamedList) Entities() []Entity { return l.lst }

// Get returns the entity at the given position, or nil when out of range.
func (l *NamedList) Get(pos int) Entity {
	if pos < 0 || pos >= len(l.lst) {
		return nil
	}
	return l.lst[pos]
}

func (l *NamedList) markDirty() {
	l.nameDirty = true
}

// Add appends an entity unless an entity with the same non-zero id is
// already present. An entity with id 0 but a non-empty name is appended as
// a pending member. Returns true if the entity was appended.
func (l *NamedList) Add(e Entity) bool {
	if e == nil {
		return false
	}
	if e.ID() == 0 {
		if e.Name() == "" {
			return false
		}
		l.lst = append(l.lst, e)
		l.markDirty()
		return true
	}
	if l.contains(e) {
		return false
	}
	l.lst = append(l.lst, e)
	l.markDirty()
	return true
}

// contains matches on kind plus native id: a word and a triple may share a
// native id without being the same entity.
func (l *NamedList) contains(e Entity) bool {
	for _, m := range l.lst {
		if m.ID() == e.ID() && m.Kind() == e.Kind() {
			return true
		}
	}
	return false
}

// AddByName appends an entity keyed by name instead of id: the entity is
// only appended if no member carries its name yet, unless duplicates are
// explicitly allowed.
func (l *NamedList) AddByName(e Entity, allowDuplicates bool) bool {
	if e == nil || e.Name() == "" {
		return false
	}
	if !allowDuplicates {
		if _, found := l.namePositions()[e.Name()]; found {
			return false
		}
	}
	l.lst = append(l.lst, e)
	l.markDirty()
	return true
}

// ContainsID reports whether a member of the given kind carries the given
// non-zero id. Each kind has its own id space, so the kind is part of the
// key, same as contains.
func (l *NamedList) ContainsID(kind term.Kind, id int64) bool {
	if id == 0 {
		return false
	}
	for _, e := range l.lst {
		if e.ID() == id && e.Kind() == kind {
			return true
		}
	}
	return false
}

// namePositions rebuilds the name index if needed and returns it. The
// first occurrence of a name wins, matching the uniqueness the term
// namespace enforces anyway.
func (l *NamedList) namePositions() map[string]int {
	if !l.nameDirty && l.namePos != nil {
		return l.namePos
	}
	idx := make(map[string]int, len(l.lst))
	for pos, e := range l.lst {
		name := e.Name()
		if name == "" {
			continue
		}
		if _, taken := idx[name]; !taken {
			idx[name] = pos
		}
	}
	l.namePos = idx
	l.nameDirty = false
	return idx
}

// GetByName returns the entity with the given name, or nil. O(1) after the
// index rebuild.
func (l *NamedList) GetByName(name string) Entity {
	pos, found := l.namePositions()[name]
	if !found {
		return nil
	}
	return l.lst[pos]
}

// Filter returns a new list with the entities NOT present in the exclude
// list, matched by id. Pending members (id 0) are kept. Pure; neither list
// is modified.
func (l *NamedList) Filter(exclude *NamedList) *NamedList {
	out := NewNamedList(l.user)
	if exclude == nil || exclude.IsEmpty() {
		for _, e := range l.lst {
			out.Add(e)
		}
		return out
	}
	drop := exclude.idSet()
	for _, e := range l.lst {
		if e.ID() != 0 && drop[entityKey{e.Kind(), e.ID()}] {
			continue
		}
		out.Add(e)
	}
	return out
}

// Diff removes every entity present in the remove list from this list,
// matched by id. Mutates the receiver.
func (l *NamedList) Diff(remove *NamedList) {
	if remove == nil || remove.IsEmpty() || l.IsEmpty() {
		return
	}
	drop := remove.idSet()
	kept := l.lst[:0]
	for _, e := range l.lst {
		if e.ID() != 0 && drop[entityKey{e.Kind(), e.ID()}] {
			continue
		}
		kept = append(kept, e)
	}
	l.lst = kept
	l.markDirty()
}

// Merge adds every entity of the other list via Add (id-uniqueness rules
// apply) and returns the receiver.
func (l *NamedList) Merge(other *NamedList) *NamedList {
	if other == nil {
		return l
	}
	for _, e := range other.lst {
		l.Add(e)
	}
	return l
}

// FilterByName returns a new list without the entities whose name is in
// names, e.g. dropping "2016","2017" from a list of years.
func (l *NamedList) FilterByName(names []string) *NamedList {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := NewNamedList(l.user)
	for _, e := range l.lst {
		if !drop[e.Name()] {
			out.Add(e)
		}
	}
	return out
}

// SelectByName returns a new list with only the entities whose name is in
// names. The counterpart of FilterByName.
func (l *NamedList) SelectByName(names []string) *NamedList {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	out := NewNamedList(l.user)
	for _, e := range l.lst {
		if keep[e.Name()] {
			out.Add(e)
		}
	}
	return out
}

// Names returns one name per entity in list order. Not sorted; callers
// that need stable output sort explicitly.
func (l *NamedList) Names() []string {
	out := make([]string, len(l.lst))
	for i, e := range l.lst {
		out[i] = e.Name()
	}
	return out
}

// IDs returns the non-zero entity ids in list order.
func (l *NamedList) IDs() []int64 {
	out := make([]int64, 0, len(l.lst))
	for _, e := range l.lst {
		if e.ID() != 0 {
			out = append(out, e.ID())
		}
	}
	return out
}

// PhraseIDs returns the phrase ids of the word and triple members, in list
// order. Non-phrase members are skipped.
func (l *NamedList) PhraseIDs() []term.PhraseID {
	out := make([]term.PhraseID, 0, len(l.lst))
	for _, e := range l.lst {
		if id := PhraseID(e); id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// Clone returns a shallow copy: same entities, fresh backing slice and
// index.
func (l *NamedList) Clone() *NamedList {
	out := NewNamedList(l.user)
	out.lst = append(out.lst, l.lst...)
	out.markDirty()
	return out
}

// SortByName orders the list by entity name. The closure operations return
// no defined order; this is the explicit sort for callers that need one.
func (l *NamedList) SortByName() {
	sort.SliceStable(l.lst, func(i, j int) bool {
		return l.lst[i].Name() < l.lst[j].Name()
	})
	l.markDirty()
}

type entityKey struct {
	kind term.Kind
	id   int64
}

func (l *NamedList) idSet() map[entityKey]bool {
	out := make(map[entityKey]bool, len(l.lst))
	for _, e := range l.lst {
		if e.ID() != 0 {
			out[entityKey{e.Kind(), e.ID()}] = true
		}
	}
	return out
}
