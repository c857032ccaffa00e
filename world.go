package tilegrid

import (
	"errors"
	"reflect"
)

// ErrStaleEntity is returned when a mutation names an entity that is not
// alive (never created, destroyed, or a ref from a recycled slot).
var ErrStaleEntity = errors.New("tilegrid: stale entity")

// arena is the type-erased view of a Components[T] the World needs for
// destroy and bookkeeping.
type arena interface {
	removeEntity(e EntityRef)
}

// World owns the entity pool and one typed component arena per registered
// component type, keyed by the type's identity.
type World struct {
	pool   *entityPool
	arenas map[reflect.Type]arena
	order  []arena
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		pool:   newEntityPool(),
		arenas: make(map[reflect.Type]arena, 8),
	}
}

// Create allocates a new entity, reusing a freed slot if one exists.
func (w *World) Create() EntityRef {
	return w.pool.create()
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e EntityRef) bool {
	return w.pool.isAlive(e)
}

// Entity returns the live entity occupying slot, if any.
func (w *World) Entity(slot uint32) (EntityRef, bool) {
	return w.pool.current(slot)
}

// Destroy removes e's components from every arena (flagged arenas emit
// Removed) and frees its slot. Returns false if e was not alive.
func (w *World) Destroy(e EntityRef) bool {
	if !w.pool.isAlive(e) {
		return false
	}
	for _, a := range w.order {
		a.removeEntity(e)
	}
	return w.pool.destroy(e)
}

// StoreOption configures a component arena at registration.
type StoreOption func(*storeOptions)

type storeOptions struct {
	flagged bool
}

// Flagged makes the arena record Inserted/Modified/Removed events in a
// ChangeLog.
func Flagged() StoreOption {
	return func(o *storeOptions) { o.flagged = true }
}

// Register returns the arena for component type T, creating it on first
// use. Options only apply when the arena is created.
func Register[T any](w *World, opts ...StoreOption) *Components[T] {
	key := reflect.TypeFor[T]()
	if a, ok := w.arenas[key]; ok {
		return a.(*Components[T])
	}
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	c := &Components[T]{pool: w.pool}
	if o.flagged {
		c.log = NewChangeLog()
	}
	w.arenas[key] = c
	w.order = append(w.order, c)
	return c
}

// Store returns the arena for T if it has been registered.
func Store[T any](w *World) (*Components[T], bool) {
	a, ok := w.arenas[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return a.(*Components[T]), true
}

// Components is a dense arena of T indexed by entity slot. Each occupied
// entry remembers the generation it was written for, so a ref to a
// recycled slot never sees the previous entity's value.
type Components[T any] struct {
	pool  *entityPool
	data  []T
	gens  []uint32
	has   []bool
	count int
	log   *ChangeLog
}

func (c *Components[T]) grow(slot uint32) {
	for int(slot) >= len(c.data) {
		var zero T
		c.data = append(c.data, zero)
		c.gens = append(c.gens, 0)
		c.has = append(c.has, false)
	}
}

func (c *Components[T]) present(e EntityRef) bool {
	i := int(e.Index)
	return i < len(c.has) && c.has[i] && c.gens[i] == e.Generation
}

func (c *Components[T]) emit(e EntityRef, kind ChangeKind) {
	if c.log != nil {
		c.log.Append(ChangeEvent{Entity: e, Kind: kind})
	}
}

// Set stores v for e, emitting Inserted if e had no T yet and Modified
// otherwise.
func (c *Components[T]) Set(e EntityRef, v T) error {
	if !c.pool.isAlive(e) {
		return ErrStaleEntity
	}
	c.grow(e.Index)
	kind := ChangeModified
	if !c.present(e) {
		kind = ChangeInserted
		c.has[e.Index] = true
		c.gens[e.Index] = e.Generation
		c.count++
	}
	c.data[e.Index] = v
	c.emit(e, kind)
	return nil
}

// Modify mutates e's T in place and emits Modified. It returns
// ErrStaleEntity if e is dead and false if e has no T.
func (c *Components[T]) Modify(e EntityRef, fn func(*T)) (bool, error) {
	if !c.pool.isAlive(e) {
		return false, ErrStaleEntity
	}
	if !c.present(e) {
		return false, nil
	}
	fn(&c.data[e.Index])
	c.emit(e, ChangeModified)
	return true, nil
}

// Get returns e's component. Writes through the pointer are not flagged;
// use Modify when readers must observe the change.
func (c *Components[T]) Get(e EntityRef) (*T, bool) {
	if !c.present(e) || !c.pool.isAlive(e) {
		return nil, false
	}
	return &c.data[e.Index], true
}

// Has reports whether e currently has a T.
func (c *Components[T]) Has(e EntityRef) bool {
	return c.present(e) && c.pool.isAlive(e)
}

// Remove deletes e's T, emitting Removed. Returns false if there was none.
func (c *Components[T]) Remove(e EntityRef) bool {
	if !c.present(e) {
		return false
	}
	var zero T
	c.data[e.Index] = zero
	c.has[e.Index] = false
	c.count--
	c.emit(e, ChangeRemoved)
	return true
}

func (c *Components[T]) removeEntity(e EntityRef) {
	c.Remove(e)
}

// Len returns the number of entities with a T.
func (c *Components[T]) Len() int {
	return c.count
}

// Each calls fn for every entity with a T in ascending slot order.
func (c *Components[T]) Each(fn func(EntityRef, *T)) {
	for i := range c.data {
		if !c.has[i] {
			continue
		}
		fn(EntityRef{Index: uint32(i), Generation: c.gens[i]}, &c.data[i])
	}
}

// Changes returns the arena's change log, or nil if it is not flagged.
func (c *Components[T]) Changes() *ChangeLog {
	return c.log
}
