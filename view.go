package tilegrid

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrSingular is returned when the view matrix cannot be inverted, e.g. a
// zero-area viewport or a zero tile size.
var ErrSingular = errors.New("tilegrid: singular view transform")

// Default depth range of the orthographic projection.
const (
	DefaultNear = -10.0
	DefaultFar  = 10.0
)

// ViewState is everything the view matrix is derived from.
type ViewState struct {
	// Width and Height are the screen size in pixels.
	Width, Height int
	// Camera is the world-space position shown at the centre of the screen.
	Camera Vec2
	// TileSize is the number of pixels per world unit (one tile).
	TileSize float64
	// Near and Far bound the orthographic depth range.
	Near, Far float64
}

// NewViewState returns a state for a width×height screen with the camera at
// the origin, tile size 1 and the default depth range.
func NewViewState(width, height int) ViewState {
	return ViewState{
		Width:    width,
		Height:   height,
		TileSize: 1,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// degenerate reports whether no invertible matrix can be built from vs.
func (vs ViewState) degenerate() bool {
	return vs.Width <= 0 || vs.Height <= 0 ||
		!(vs.TileSize > 0) || math.IsInf(vs.TileSize, 0) ||
		vs.Near == vs.Far
}

// Build composes the world-to-clip matrix:
//
//	Translate(recenter) * Ortho(0..W, 0..H, near..far) * Scale(ts, ts, 1)
//
// The translation is the camera offset expressed in clip units, chosen so
// that the camera's world position lands at clip (0,0), the screen centre:
//
//	recenter = (1 - 2*ts*cam.x/W, 1 - 2*ts*cam.y/H, 0)
//
// A degenerate state yields non-finite entries; ToWorld reports those as
// ErrSingular.
func Build(vs ViewState) mgl64.Mat4 {
	w, h := float64(vs.Width), float64(vs.Height)
	ts := vs.TileSize
	scale := mgl64.Scale3D(ts, ts, 1)
	ortho := mgl64.Ortho(0, w, 0, h, vs.Near, vs.Far)
	trans := mgl64.Translate3D(1-2*ts*vs.Camera.X/w, 1-2*ts*vs.Camera.Y/h, 0)
	return trans.Mul4(ortho).Mul4(scale)
}

// NormalizePointer maps a pixel position to normalized device coordinates
// in [-1,1]. Screen Y grows downward and clip Y grows upward, so Y is
// flipped: pixel row 0 maps to +1.
func NormalizePointer(p Vec2, vs ViewState) Vec2 {
	return Vec2{
		X: 2*p.X/float64(vs.Width) - 1,
		Y: 1 - 2*p.Y/float64(vs.Height),
	}
}

// denormalize is the inverse of NormalizePointer.
func denormalize(n Vec2, vs ViewState) Vec2 {
	return Vec2{
		X: (n.X + 1) / 2 * float64(vs.Width),
		Y: (1 - n.Y) / 2 * float64(vs.Height),
	}
}

// invert returns the inverse of Build(vs), or ErrSingular.
func invert(vs ViewState) (mgl64.Mat4, mgl64.Mat4, error) {
	if vs.degenerate() {
		return mgl64.Mat4{}, mgl64.Mat4{}, ErrSingular
	}
	m := Build(vs)
	det := m.Det()
	// FloatEqual against zero only accepts |det| < mgl64.Epsilon², so tiny
	// but positive tile sizes stay invertible.
	if math.IsNaN(det) || math.IsInf(det, 0) || mgl64.FloatEqual(det, 0) {
		return mgl64.Mat4{}, mgl64.Mat4{}, ErrSingular
	}
	return m, m.Inv(), nil
}

func unproject(inv mgl64.Mat4, p Vec2, vs ViewState) Vec2 {
	n := NormalizePointer(p, vs)
	v := inv.Mul4x1(mgl64.Vec4{n.X, n.Y, 0, 1})
	return Vec2{X: v.X(), Y: v.Y()}
}

func project(m mgl64.Mat4, w Vec2, vs ViewState) Vec2 {
	clip := m.Mul4x1(mgl64.Vec4{w.X, w.Y, 0, 1})
	return denormalize(Vec2{X: clip.X(), Y: clip.Y()}, vs)
}

// ToWorld converts a screen pixel position to world space.
func ToWorld(p Vec2, vs ViewState) (Vec2, error) {
	_, inv, err := invert(vs)
	if err != nil {
		return Vec2{}, err
	}
	return unproject(inv, p, vs), nil
}

// WorldToScreen converts a world position to a screen pixel position.
func WorldToScreen(w Vec2, vs ViewState) (Vec2, error) {
	m, _, err := invert(vs)
	if err != nil {
		return Vec2{}, err
	}
	return project(m, w, vs), nil
}

// ToGrid rounds each axis to the nearest integer, halves away from zero.
func ToGrid(w Vec2) GridCoordinate {
	return GridCoordinate{X: int(math.Round(w.X)), Y: int(math.Round(w.Y))}
}

// cellRect projects the world square [c-0.5, c+0.5]² to screen space. This
// is exactly the set of world points ToGrid maps to c.
func cellRect(m mgl64.Mat4, c GridCoordinate, vs ViewState) Rect {
	a := project(m, Vec2{X: float64(c.X) - 0.5, Y: float64(c.Y) - 0.5}, vs)
	b := project(m, Vec2{X: float64(c.X) + 0.5, Y: float64(c.Y) + 0.5}, vs)
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// CellRect returns the screen rectangle covered by grid cell c. Renderers
// must derive cell and highlight geometry from this so what is drawn under
// the pointer is what the picker resolves.
func CellRect(c GridCoordinate, vs ViewState) (Rect, error) {
	m, _, err := invert(vs)
	if err != nil {
		return Rect{}, err
	}
	return cellRect(m, c, vs), nil
}

// ViewTransform caches the matrix and inverse for a ViewState and
// recomputes them only after the state changes.
type ViewTransform struct {
	state    ViewState
	matrix   mgl64.Mat4
	inverse  mgl64.Mat4
	err      error
	dirty    bool
	rebuilds int
}

// NewViewTransform returns a transform for vs.
func NewViewTransform(vs ViewState) *ViewTransform {
	return &ViewTransform{state: vs, dirty: true}
}

// State returns the current view state.
func (v *ViewTransform) State() ViewState {
	return v.state
}

// SetState replaces the view state.
func (v *ViewTransform) SetState(vs ViewState) {
	if vs != v.state {
		v.state = vs
		v.dirty = true
	}
}

// SetViewport updates the screen size.
func (v *ViewTransform) SetViewport(width, height int) {
	vs := v.state
	vs.Width, vs.Height = width, height
	v.SetState(vs)
}

// SetCamera moves the camera.
func (v *ViewTransform) SetCamera(pos Vec2) {
	vs := v.state
	vs.Camera = pos
	v.SetState(vs)
}

// Invalidate forces a rebuild on next use.
func (v *ViewTransform) Invalidate() {
	v.dirty = true
}

func (v *ViewTransform) refresh() {
	if !v.dirty {
		return
	}
	v.dirty = false
	v.rebuilds++
	v.matrix, v.inverse, v.err = invert(v.state)
	if v.err != nil {
		v.matrix = Build(v.state)
	}
}

// Matrix returns the world-to-clip matrix handed to renderers.
func (v *ViewTransform) Matrix() mgl64.Mat4 {
	v.refresh()
	return v.matrix
}

// Singular reports whether the current state has no inverse.
func (v *ViewTransform) Singular() bool {
	v.refresh()
	return v.err != nil
}

// ToWorld converts a screen pixel position to world space.
func (v *ViewTransform) ToWorld(p Vec2) (Vec2, error) {
	v.refresh()
	if v.err != nil {
		return Vec2{}, v.err
	}
	return unproject(v.inverse, p, v.state), nil
}

// ToGrid converts a screen pixel position straight to a grid coordinate.
func (v *ViewTransform) ToGrid(p Vec2) (GridCoordinate, error) {
	w, err := v.ToWorld(p)
	if err != nil {
		return GridCoordinate{}, err
	}
	return ToGrid(w), nil
}

// WorldToScreen converts a world position to a screen pixel position.
func (v *ViewTransform) WorldToScreen(w Vec2) (Vec2, error) {
	v.refresh()
	if v.err != nil {
		return Vec2{}, v.err
	}
	return project(v.matrix, w, v.state), nil
}

// CellRect returns the screen rectangle covered by grid cell c.
func (v *ViewTransform) CellRect(c GridCoordinate) (Rect, error) {
	v.refresh()
	if v.err != nil {
		return Rect{}, v.err
	}
	return cellRect(v.matrix, c, v.state), nil
}

// VisibleBounds returns the world-space rectangle visible on screen,
// as (min corner, max corner).
func (v *ViewTransform) VisibleBounds() (lo, hi Vec2, err error) {
	a, err := v.ToWorld(Vec2{})
	if err != nil {
		return Vec2{}, Vec2{}, err
	}
	b, err := v.ToWorld(Vec2{X: float64(v.state.Width), Y: float64(v.state.Height)})
	if err != nil {
		return Vec2{}, Vec2{}, err
	}
	lo = Vec2{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
	hi = Vec2{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
	return lo, hi, nil
}
