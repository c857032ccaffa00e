package tilegrid

import (
	"cmp"
	"slices"
)

// ChangeSet classifies one tick's coordinate changes. Each list is sorted
// by ascending slot index and a slot appears in at most one list.
type ChangeSet struct {
	Inserted []EntityRef
	Modified []EntityRef
	Removed  []EntityRef
}

// Len returns the total number of entries across the three lists.
func (cs *ChangeSet) Len() int {
	return len(cs.Inserted) + len(cs.Modified) + len(cs.Removed)
}

// Empty reports whether the set has no entries.
func (cs *ChangeSet) Empty() bool {
	return cs.Len() == 0
}

// Reset empties the set, keeping capacity.
func (cs *ChangeSet) Reset() {
	cs.Inserted = cs.Inserted[:0]
	cs.Modified = cs.Modified[:0]
	cs.Removed = cs.Removed[:0]
}

// collapseKind merges a newer event kind into the kind already recorded for
// the same slot this tick.
//
//	inserted + modified -> inserted
//	any      + removed  -> removed
//	removed  + inserted -> inserted (slot recycled)
//	otherwise the newer kind wins
func collapseKind(prev, next ChangeKind) ChangeKind {
	if prev == ChangeInserted && next == ChangeModified {
		return ChangeInserted
	}
	return next
}

// Collapse resets cs and fills it from events, applying the per-slot
// collapsing rules. The ref kept for a slot is the one carried by the most
// recent event.
func Collapse(events []ChangeEvent, cs *ChangeSet) {
	cs.Reset()
	latest := make(map[uint32]ChangeEvent, len(events))
	for _, ev := range events {
		if prev, ok := latest[ev.Entity.Index]; ok {
			ev.Kind = collapseKind(prev.Kind, ev.Kind)
		}
		latest[ev.Entity.Index] = ev
	}
	fill(latest, cs)
}

func fill(latest map[uint32]ChangeEvent, cs *ChangeSet) {
	for _, ev := range latest {
		switch ev.Kind {
		case ChangeInserted:
			cs.Inserted = append(cs.Inserted, ev.Entity)
		case ChangeModified:
			cs.Modified = append(cs.Modified, ev.Entity)
		case ChangeRemoved:
			cs.Removed = append(cs.Removed, ev.Entity)
		}
	}
	bySlot := func(a, b EntityRef) int {
		return cmp.Compare(a.Index, b.Index)
	}
	slices.SortFunc(cs.Inserted, bySlot)
	slices.SortFunc(cs.Modified, bySlot)
	slices.SortFunc(cs.Removed, bySlot)
}

// ChangeTracker turns a ChangeSource into one ChangeSet per tick.
type ChangeTracker struct {
	src    ChangeSource
	cursor *ChangeCursor
	set    ChangeSet
	latest map[uint32]ChangeEvent
	events int
}

// NewChangeTracker registers a cursor on src. Only changes made after this
// call are observed.
func NewChangeTracker(src ChangeSource) *ChangeTracker {
	return &ChangeTracker{
		src:    src,
		cursor: src.NewCursor(),
		latest: make(map[uint32]ChangeEvent, 64),
	}
}

// Drain clears the previous tick's sets, consumes every pending event and
// returns the collapsed set. The returned set is owned by the tracker and
// valid until the next Drain.
func (t *ChangeTracker) Drain() *ChangeSet {
	t.set.Reset()
	clear(t.latest)
	t.events = 0
	t.src.ReadChanges(t.cursor, func(ev ChangeEvent) {
		t.events++
		if prev, ok := t.latest[ev.Entity.Index]; ok {
			ev.Kind = collapseKind(prev.Kind, ev.Kind)
		}
		t.latest[ev.Entity.Index] = ev
	})
	fill(t.latest, &t.set)
	return &t.set
}

// Set returns the set produced by the last Drain.
func (t *ChangeTracker) Set() *ChangeSet {
	return &t.set
}

// EventsRead returns how many raw events the last Drain consumed.
func (t *ChangeTracker) EventsRead() int {
	return t.events
}
