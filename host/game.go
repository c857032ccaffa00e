package host

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/tilegrid"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title  string
	Width  int
	Height int
	// ShowFPS overlays TPS/FPS and the hovered cell.
	ShowFPS bool
	// Background fills the screen before cells are drawn. Nil means a
	// dark grey.
	Background color.Color
	// ScreenshotDir is where Screenshot writes PNGs. Default "screenshots".
	ScreenshotDir string
}

// outline is the highlight border width in pixels.
const outline = 2

var (
	defaultBackground = color.RGBA{R: 30, G: 30, B: 40, A: 255}
	highlightColor    = tilegrid.Color{R: 1, G: 1, B: 1, A: 1}
)

// Game is an ebiten.Game that drives a tilegrid.Runtime and is also the
// runtime's Renderer. The render step turns the frame into vertices;
// ebiten's Draw submits them.
type Game struct {
	rt *tilegrid.Runtime

	width, height int
	background    color.Color
	showFPS       bool

	verts []ebiten.Vertex
	inds  []uint32
	hover tilegrid.Pick
	tick  uint64

	screenshotDir   string
	screenshotQueue []string
}

var _ tilegrid.Renderer = (*Game)(nil)

// NewGame returns a game for a width×height window. Attach a runtime
// before running it.
func NewGame(width, height int) *Game {
	return &Game{
		width:         width,
		height:        height,
		background:    defaultBackground,
		screenshotDir: "screenshots",
	}
}

// Attach sets the runtime ticked by Update.
func (g *Game) Attach(rt *tilegrid.Runtime) {
	g.rt = rt
}

// ScreenDimensions implements tilegrid.Renderer.
func (g *Game) ScreenDimensions() (int, int) {
	return g.width, g.height
}

// Draw implements tilegrid.Renderer. It rebuilds the vertex buffer from
// the frame: one quad per occupied cell, plus an outline around the
// hovered cell.
func (g *Game) Draw(f *tilegrid.Frame) error {
	g.verts = g.verts[:0]
	g.inds = g.inds[:0]
	g.hover = f.Hover
	g.tick = f.Tick
	for c, e := range f.Cells {
		r, err := f.CellRect(c)
		if err != nil {
			return err
		}
		g.appendQuad(r, tilegrid.EntityColor(e))
	}
	if f.Hover.Resolved() && f.Hover.Status != tilegrid.PickOffGrid {
		r, err := f.CellRect(f.Hover.Coord)
		if err != nil {
			return err
		}
		g.appendOutline(r, highlightColor)
	}
	return nil
}

// appendQuad adds two triangles covering r: TL-TR-BL, TR-BR-BL.
func (g *Game) appendQuad(r tilegrid.Rect, c tilegrid.Color) {
	base := uint32(len(g.verts))
	x0, y0 := float32(r.X), float32(r.Y)
	x1, y1 := float32(r.X+r.Width), float32(r.Y+r.Height)
	cr, cg, cb, ca := float32(c.R*c.A), float32(c.G*c.A), float32(c.B*c.A), float32(c.A)
	g.verts = append(g.verts,
		ebiten.Vertex{DstX: x0, DstY: y0, SrcX: 0, SrcY: 0, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x1, DstY: y0, SrcX: 1, SrcY: 0, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x0, DstY: y1, SrcX: 0, SrcY: 1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x1, DstY: y1, SrcX: 1, SrcY: 1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
	)
	g.inds = append(g.inds,
		base+0, base+1, base+2,
		base+1, base+3, base+2,
	)
}

// appendOutline draws the four edges of r as thin quads inside r.
func (g *Game) appendOutline(r tilegrid.Rect, c tilegrid.Color) {
	w := min(float64(outline), r.Width/2, r.Height/2)
	g.appendQuad(tilegrid.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: w}, c)
	g.appendQuad(tilegrid.Rect{X: r.X, Y: r.Y + r.Height - w, Width: r.Width, Height: w}, c)
	g.appendQuad(tilegrid.Rect{X: r.X, Y: r.Y, Width: w, Height: r.Height}, c)
	g.appendQuad(tilegrid.Rect{X: r.X + r.Width - w, Y: r.Y, Width: w, Height: r.Height}, c)
}

// Update implements ebiten.Game: it feeds the cursor to the runtime and
// runs one tick. Escape ends the game and F12 queues a screenshot.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if g.rt == nil {
		return errors.New("host: no runtime attached")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.Screenshot(hoverLabel(g.hover))
	}
	x, y := ebiten.CursorPosition()
	g.rt.SetPointer(float64(x), float64(y))
	// Step failures only skip this tick; the runtime logs them and hands
	// them to its error handler.
	_ = g.rt.Tick(tickDelta(ebiten.TPS()))
	return nil
}

// tickDelta is the duration of one tick at tps. ebiten reports
// SyncWithFPS (-1) when ticks follow the display, so anything not positive
// falls back to the default rate.
func tickDelta(tps int) time.Duration {
	if tps <= 0 {
		tps = ebiten.DefaultTPS
	}
	return time.Second / time.Duration(tps)
}

var whitePixelImage *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}

// DrawScreen submits the vertices built in the last render step.
func (g *Game) DrawScreen(screen *ebiten.Image) {
	screen.Fill(g.background)
	if len(g.verts) > 0 {
		var op ebiten.DrawTrianglesOptions
		op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
		screen.DrawTriangles32(g.verts, g.inds, ensureWhitePixel(), &op)
	}
	if g.showFPS {
		msg := fmt.Sprintf("TPS: %.1f\nFPS: %.1f\n%s %s",
			ebiten.ActualTPS(), ebiten.ActualFPS(), g.hover.Coord, g.hover.Status)
		ebitenutil.DebugPrint(screen, msg)
	}
	g.flushScreenshots(screen)
}

// Layout implements ebiten.Game. The screen follows the window size; the
// next tick's view step picks the new dimensions up.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// Run opens a window and runs g until the window closes or Escape is
// pressed. The tick rate follows the runtime's tick target.
func Run(g *Game, cfg RunConfig) error {
	if g.rt == nil {
		return errors.New("host: no runtime attached")
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		g.width, g.height = cfg.Width, cfg.Height
	}
	if cfg.Background != nil {
		g.background = cfg.Background
	}
	if cfg.ScreenshotDir != "" {
		g.screenshotDir = cfg.ScreenshotDir
	}
	g.showFPS = cfg.ShowFPS

	if target := g.rt.Config().Tick.Target; target > 0 {
		ebiten.SetTPS(max(1, int(time.Second/target)))
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(ebitenGame{g})
}

// ebitenGame adapts Game to ebiten.Game; Game's own Draw belongs to the
// tilegrid.Renderer interface.
type ebitenGame struct{ *Game }

func (e ebitenGame) Draw(screen *ebiten.Image) { e.DrawScreen(screen) }
