package tilegrid

import "fmt"

// GridCoordinate is an integer tile position. The valid domain of a
// SpatialIndex is [0, Width) × [0, Height).
type GridCoordinate struct {
	X, Y int
}

// Coord is shorthand for GridCoordinate{X: x, Y: y}.
func Coord(x, y int) GridCoordinate {
	return GridCoordinate{X: x, Y: y}
}

// Add returns c offset by d.
func (c GridCoordinate) Add(d GridCoordinate) GridCoordinate {
	return GridCoordinate{X: c.X + d.X, Y: c.Y + d.Y}
}

// String renders the coordinate as "(x,y)".
func (c GridCoordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Vec2 is a 2D vector used for pointer positions, world positions and
// camera offsets.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in screen space. The origin is at the
// top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// ChangeKind classifies a component mutation.
type ChangeKind uint8

const (
	ChangeInserted ChangeKind = iota + 1 // component added to an entity
	ChangeModified                       // component value replaced or mutated
	ChangeRemoved                        // component removed (or entity destroyed)
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInserted:
		return "inserted"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", uint8(k))
	}
}

// ChangeEvent is one notification from a component store.
type ChangeEvent struct {
	Entity EntityRef
	Kind   ChangeKind
}

// Color represents an RGBA color with components in [0, 1]. Not
// premultiplied.
type Color struct {
	R, G, B, A float64
}

// palette is indexed by slot so an entity keeps its color while it lives.
var palette = [...]Color{
	{0.31, 0.71, 1.00, 1},
	{1.00, 0.55, 0.26, 1},
	{0.47, 0.86, 0.47, 1},
	{0.93, 0.36, 0.53, 1},
	{0.98, 0.85, 0.33, 1},
	{0.64, 0.49, 0.96, 1},
	{0.33, 0.88, 0.83, 1},
	{0.85, 0.85, 0.85, 1},
}

// EntityColor returns a stable display color for e.
func EntityColor(e EntityRef) Color {
	return palette[e.Index%uint32(len(palette))]
}
