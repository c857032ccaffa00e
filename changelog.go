package tilegrid

// ChangeCursor is a reader's position in a ChangeLog. Each reader owns its
// cursor; the log only keeps events some registered cursor has not read yet.
type ChangeCursor struct {
	offset uint64
	log    *ChangeLog
}

// Offset returns the absolute index of the next event this cursor will read.
func (c *ChangeCursor) Offset() uint64 {
	return c.offset
}

// ChangeLog is an append-only stream of change events for one component
// type. Events are addressed by absolute offset; base is the offset of
// events[0].
type ChangeLog struct {
	events  []ChangeEvent
	base    uint64
	cursors []*ChangeCursor
}

// NewChangeLog returns an empty log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{events: make([]ChangeEvent, 0, 64)}
}

// Append records an event. With no registered cursor nobody can read it,
// so only the offset advances.
func (l *ChangeLog) Append(ev ChangeEvent) {
	if len(l.cursors) == 0 {
		l.base++
		return
	}
	l.events = append(l.events, ev)
}

// End returns the offset one past the newest event.
func (l *ChangeLog) End() uint64 {
	return l.base + uint64(len(l.events))
}

// Len returns the number of events still retained.
func (l *ChangeLog) Len() int {
	return len(l.events)
}

// NewCursor registers a reader positioned at the end of the log; it sees
// only events appended after registration.
func (l *ChangeLog) NewCursor() *ChangeCursor {
	c := &ChangeCursor{offset: l.End(), log: l}
	l.cursors = append(l.cursors, c)
	return c
}

// ReleaseCursor unregisters c so it no longer pins retained events.
func (l *ChangeLog) ReleaseCursor(c *ChangeCursor) {
	for i, rc := range l.cursors {
		if rc == c {
			copy(l.cursors[i:], l.cursors[i+1:])
			l.cursors[len(l.cursors)-1] = nil
			l.cursors = l.cursors[:len(l.cursors)-1]
			break
		}
	}
	c.log = nil
	l.compact()
}

// ReadChanges calls fn for every event at or after c's offset, in append
// order, then advances c to the end. Cursors from another log are ignored.
func (l *ChangeLog) ReadChanges(c *ChangeCursor, fn func(ChangeEvent)) {
	if c == nil || c.log != l {
		return
	}
	start := c.offset
	if start < l.base {
		start = l.base
	}
	for _, ev := range l.events[start-l.base:] {
		fn(ev)
	}
	c.offset = l.End()
	l.compact()
}

// compact drops the prefix every registered cursor has passed. With no
// readers the log is emptied.
func (l *ChangeLog) compact() {
	low := l.End()
	for _, c := range l.cursors {
		if c.offset < low {
			low = c.offset
		}
	}
	drop := int(low - l.base)
	if drop <= 0 {
		return
	}
	n := copy(l.events, l.events[drop:])
	clear(l.events[n:])
	l.events = l.events[:n]
	l.base = low
}
