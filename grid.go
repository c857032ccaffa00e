package tilegrid

import (
	"errors"
	"fmt"
	"iter"
)

// DefaultGridSize is the width and height of a grid when none is configured.
const DefaultGridSize = 32

// ErrOutOfBounds is matched (errors.Is) by every *OutOfBoundsError.
var ErrOutOfBounds = errors.New("tilegrid: coordinate out of bounds")

// OutOfBoundsError reports a grid access outside [0,Width)×[0,Height).
type OutOfBoundsError struct {
	Coord         GridCoordinate
	Width, Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("tilegrid: coordinate %v outside %dx%d grid", e.Coord, e.Width, e.Height)
}

// Is makes errors.Is(err, ErrOutOfBounds) true.
func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// Cell is one grid slot. The zero value is empty.
type Cell struct {
	occupant EntityRef
	occupied bool
}

// Occupant returns the entity placed in the cell, if any.
func (c Cell) Occupant() (EntityRef, bool) {
	return c.occupant, c.occupied
}

// Empty reports whether the cell has no occupant.
func (c Cell) Empty() bool {
	return !c.occupied
}

// Place sets the occupant.
func (c *Cell) Place(e EntityRef) {
	c.occupant = e
	c.occupied = true
}

// Clear empties the cell.
func (c *Cell) Clear() {
	c.occupant = EntityRef{}
	c.occupied = false
}

// CoordinateLookup resolves an entity's current coordinate.
type CoordinateLookup func(EntityRef) (GridCoordinate, bool)

// OrphanChange is a changed entity whose coordinate could not be resolved
// at sync time (component removed or entity destroyed before the sync ran).
// It is skipped, not fatal.
type OrphanChange struct {
	Entity EntityRef
	Kind   ChangeKind
}

func (o OrphanChange) String() string {
	return fmt.Sprintf("orphan %s change for entity %v", o.Kind, o.Entity)
}

// SyncReport summarizes one Sync call.
type SyncReport struct {
	Applied int
	Orphans []OrphanChange
}

// SpatialIndex is a fixed-size dense grid mapping coordinates to an
// optional occupant. Cells are stored row-major: index = y*width + x.
// It never owns entities; occupants are weak refs.
type SpatialIndex struct {
	width  int
	height int
	cells  []Cell
}

// NewSpatialIndex allocates width*height empty cells.
func NewSpatialIndex(width, height int) (*SpatialIndex, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tilegrid: invalid grid size %dx%d", width, height)
	}
	return &SpatialIndex{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}, nil
}

// Width returns the number of columns.
func (g *SpatialIndex) Width() int { return g.width }

// Height returns the number of rows.
func (g *SpatialIndex) Height() int { return g.height }

// Len returns width*height.
func (g *SpatialIndex) Len() int { return len(g.cells) }

// InBounds reports whether c lies inside the grid.
func (g *SpatialIndex) InBounds(c GridCoordinate) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// index is the unchecked fast path; callers must have checked InBounds.
func (g *SpatialIndex) index(c GridCoordinate) int {
	return c.Y*g.width + c.X
}

func (g *SpatialIndex) check(c GridCoordinate) error {
	if !g.InBounds(c) {
		return &OutOfBoundsError{Coord: c, Width: g.width, Height: g.height}
	}
	return nil
}

// Get returns a copy of the cell at c.
func (g *SpatialIndex) Get(c GridCoordinate) (Cell, error) {
	if err := g.check(c); err != nil {
		return Cell{}, err
	}
	return g.cells[g.index(c)], nil
}

// At returns a pointer to the cell at c for mutation.
func (g *SpatialIndex) At(c GridCoordinate) (*Cell, error) {
	if err := g.check(c); err != nil {
		return nil, err
	}
	return &g.cells[g.index(c)], nil
}

// Occupant is Get followed by Cell.Occupant.
func (g *SpatialIndex) Occupant(c GridCoordinate) (EntityRef, bool, error) {
	cell, err := g.Get(c)
	if err != nil {
		return EntityRef{}, false, err
	}
	e, ok := cell.Occupant()
	return e, ok, nil
}

// Sync applies a change set: every Inserted entity, then every Modified
// entity, each in ascending slot order, is placed at the coordinate lookup
// resolves for it. When two entities land on the same cell the one
// processed last wins.
//
// Removed entities do not clear their cells; the previous occupant stays
// until another entity is placed there.
//
// Sync is not atomic. If a resolved coordinate is outside the grid it
// returns an *OutOfBoundsError and the placements made before it remain.
func (g *SpatialIndex) Sync(cs *ChangeSet, lookup CoordinateLookup) (SyncReport, error) {
	var report SyncReport
	apply := func(list []EntityRef, kind ChangeKind) error {
		for _, e := range list {
			c, ok := lookup(e)
			if !ok {
				report.Orphans = append(report.Orphans, OrphanChange{Entity: e, Kind: kind})
				continue
			}
			if err := g.check(c); err != nil {
				return fmt.Errorf("sync %v: %w", e, err)
			}
			g.cells[g.index(c)].Place(e)
			report.Applied++
		}
		return nil
	}
	if err := apply(cs.Inserted, ChangeInserted); err != nil {
		return report, err
	}
	if err := apply(cs.Modified, ChangeModified); err != nil {
		return report, err
	}
	return report, nil
}

// Occupied yields every occupied cell in row-major order. The sequence can
// be ranged over any number of times.
func (g *SpatialIndex) Occupied() iter.Seq2[GridCoordinate, EntityRef] {
	return func(yield func(GridCoordinate, EntityRef) bool) {
		for i := range g.cells {
			cell := &g.cells[i]
			if !cell.occupied {
				continue
			}
			c := GridCoordinate{X: i % g.width, Y: i / g.width}
			if !yield(c, cell.occupant) {
				return
			}
		}
	}
}

// Snapshot returns a copy of all cells in row-major order.
func (g *SpatialIndex) Snapshot() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}
