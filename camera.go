package tilegrid

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// scrollAnim holds active scroll-to tweens for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera is the world-space point shown at the centre of the screen. The
// runtime copies its position into the ViewState each tick.
type Camera struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64

	followTarget EntityRef
	following    bool
	followLookup CoordinateLookup
	followLerp   float64

	// BoundsEnabled clamps the camera position into Bounds.
	BoundsEnabled bool
	// Bounds is the world-space rectangle the camera is clamped to.
	Bounds Rect

	scrollTween *scrollAnim
}

// NewCamera returns a camera centred on (x, y).
func NewCamera(x, y float64) *Camera {
	return &Camera{X: x, Y: y}
}

// Position returns the camera position as a Vec2.
func (c *Camera) Position() Vec2 {
	return Vec2{X: c.X, Y: c.Y}
}

// Follow makes the camera track an entity's coordinate. A lerp of 1.0
// snaps immediately; lower values give smoother following.
func (c *Camera) Follow(e EntityRef, lookup CoordinateLookup, lerp float64) {
	c.followTarget = e
	c.followLookup = lookup
	c.followLerp = lerp
	c.following = lookup != nil
}

// Unfollow stops tracking the current target.
func (c *Camera) Unfollow() {
	c.following = false
	c.followLookup = nil
}

// ScrollTo animates the camera to the given world position over duration seconds.
func (c *Camera) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	c.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Y), float32(y), duration, easeFn),
	}
}

// ScrollToTile scrolls so that grid cell (col, row) is centred.
func (c *Camera) ScrollToTile(col, row int, duration float32, easeFn ease.TweenFunc) {
	c.ScrollTo(float64(col), float64(row), duration, easeFn)
}

// Scrolling reports whether a scroll animation is in progress.
func (c *Camera) Scrolling() bool {
	return c.scrollTween != nil
}

// SetGridBounds clamps the camera to the centres of a width×height grid.
func (c *Camera) SetGridBounds(width, height int) {
	c.BoundsEnabled = true
	c.Bounds = Rect{X: 0, Y: 0, Width: float64(width - 1), Height: float64(height - 1)}
}

// ClearBounds disables bounds clamping.
func (c *Camera) ClearBounds() {
	c.BoundsEnabled = false
}

// Update advances follow, scroll and bounds clamping by dt seconds and
// reports whether the position changed.
func (c *Camera) Update(dt float32) bool {
	prevX, prevY := c.X, c.Y

	if c.following {
		if pos, ok := c.followLookup(c.followTarget); ok {
			c.X += (float64(pos.X) - c.X) * c.followLerp
			c.Y += (float64(pos.Y) - c.Y) * c.followLerp
		}
	}

	if c.scrollTween != nil {
		if !c.scrollTween.doneX {
			val, done := c.scrollTween.tweenX.Update(dt)
			c.X = float64(val)
			c.scrollTween.doneX = done
		}
		if !c.scrollTween.doneY {
			val, done := c.scrollTween.tweenY.Update(dt)
			c.Y = float64(val)
			c.scrollTween.doneY = done
		}
		if c.scrollTween.doneX && c.scrollTween.doneY {
			c.scrollTween = nil
		}
	}

	if c.BoundsEnabled {
		c.X = math.Max(c.Bounds.X, math.Min(c.X, c.Bounds.X+c.Bounds.Width))
		c.Y = math.Max(c.Bounds.Y, math.Min(c.Y, c.Bounds.Y+c.Bounds.Height))
	}

	return c.X != prevX || c.Y != prevY
}
