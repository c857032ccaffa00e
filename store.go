package tilegrid

// ChangeSource is a per-component change stream read through caller-owned
// cursors.
type ChangeSource interface {
	NewCursor() *ChangeCursor
	ReadChanges(c *ChangeCursor, fn func(ChangeEvent))
}

// EntityStore is what the runtime needs from an entity/component store:
// the change stream of the Coordinate component and a way to read an
// entity's current coordinate. Coordinate must return false for stale refs.
type EntityStore interface {
	ChangeSource
	Coordinate(e EntityRef) (GridCoordinate, bool)
}

// TileWorld is a World with a flagged GridCoordinate arena. It is the
// native EntityStore.
type TileWorld struct {
	*World
	Coords *Components[GridCoordinate]
}

var _ EntityStore = (*TileWorld)(nil)

// NewTileWorld returns an empty world with the coordinate arena registered.
func NewTileWorld() *TileWorld {
	w := NewWorld()
	return &TileWorld{
		World:  w,
		Coords: Register[GridCoordinate](w, Flagged()),
	}
}

// Spawn creates an entity placed at c.
func (w *TileWorld) Spawn(c GridCoordinate) EntityRef {
	e := w.Create()
	_ = w.Coords.Set(e, c)
	return e
}

// Move sets e's coordinate, emitting Inserted or Modified.
func (w *TileWorld) Move(e EntityRef, c GridCoordinate) error {
	return w.Coords.Set(e, c)
}

// Despawn destroys e. Returns false if e was not alive.
func (w *TileWorld) Despawn(e EntityRef) bool {
	return w.Destroy(e)
}

// NewCursor registers a reader on the coordinate change log.
func (w *TileWorld) NewCursor() *ChangeCursor {
	return w.Coords.Changes().NewCursor()
}

// ReadChanges drains coordinate changes since c.
func (w *TileWorld) ReadChanges(c *ChangeCursor, fn func(ChangeEvent)) {
	w.Coords.Changes().ReadChanges(c, fn)
}

// Coordinate returns e's current coordinate.
func (w *TileWorld) Coordinate(e EntityRef) (GridCoordinate, bool) {
	c, ok := w.Coords.Get(e)
	if !ok {
		return GridCoordinate{}, false
	}
	return *c, true
}
