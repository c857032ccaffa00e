// Package term runs a tilegrid runtime in a terminal. Each terminal cell
// is one screen pixel, so a tile size of 1 maps one grid cell to one
// character.
package term

import (
	"context"
	"errors"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/phanxgames/tilegrid"
)

const (
	occupantGlyph = '@'
	emptyGlyph    = '·'
)

// Screen draws runtime frames onto a tcell screen and turns mouse events
// into pointer positions.
type Screen struct {
	screen tcell.Screen
	rt     *tilegrid.Runtime
}

var _ tilegrid.Renderer = (*Screen)(nil)

// New wraps an initialized tcell screen and enables mouse reporting.
func New(screen tcell.Screen) *Screen {
	screen.EnableMouse()
	return &Screen{screen: screen}
}

// Attach sets the runtime fed by HandleEvent and ticked by Run.
func (s *Screen) Attach(rt *tilegrid.Runtime) {
	s.rt = rt
}

// ScreenDimensions implements tilegrid.Renderer.
func (s *Screen) ScreenDimensions() (int, int) {
	return s.screen.Size()
}

func styleFor(e tilegrid.EntityRef) tcell.Style {
	c := tilegrid.EntityColor(e)
	fg := tcell.NewRGBColor(int32(c.R*255), int32(c.G*255), int32(c.B*255))
	return tcell.StyleDefault.Foreground(fg)
}

// cellAt returns the terminal cell at the centre of grid cell c.
func cellAt(f *tilegrid.Frame, c tilegrid.GridCoordinate) (x, y int, err error) {
	r, err := f.CellRect(c)
	if err != nil {
		return 0, 0, err
	}
	ctr := r.Center()
	return int(math.Round(ctr.X)), int(math.Round(ctr.Y)), nil
}

// Draw implements tilegrid.Renderer: occupants are drawn as glyphs at the
// centre of their cell rectangle and the hovered cell in reverse video.
func (s *Screen) Draw(f *tilegrid.Frame) error {
	s.screen.Clear()
	w, h := s.screen.Size()
	for c, e := range f.Cells {
		x, y, err := cellAt(f, c)
		if err != nil {
			return err
		}
		if x < 0 || y < 0 || x >= w || y >= h {
			continue
		}
		s.screen.SetContent(x, y, occupantGlyph, nil, styleFor(e))
	}
	if f.Hover.Status == tilegrid.PickHit || f.Hover.Status == tilegrid.PickEmpty {
		x, y, err := cellAt(f, f.Hover.Coord)
		if err != nil {
			return err
		}
		glyph, style := emptyGlyph, tcell.StyleDefault
		if e, ok := f.Hover.Occupant(); ok {
			glyph, style = occupantGlyph, styleFor(e)
		}
		s.screen.SetContent(x, y, glyph, nil, style.Reverse(true))
	}
	s.screen.Show()
	return nil
}

// HandleEvent applies one tcell event. It returns false when the user asked
// to quit (Escape or Ctrl-C).
func (s *Screen) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
	case *tcell.EventMouse:
		if s.rt != nil {
			x, y := ev.Position()
			s.rt.SetPointer(float64(x), float64(y))
		}
	case *tcell.EventResize:
		s.screen.Sync()
	}
	return true
}

// Run ticks the attached runtime until ctx is done or the user quits.
// Events are read on a separate goroutine and applied between ticks.
func Run(ctx context.Context, s *Screen) error {
	if s.rt == nil {
		return errors.New("term: no runtime attached")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	poll := func() bool {
		for {
			select {
			case ev := <-events:
				if !s.HandleEvent(ev) {
					return false
				}
			default:
				return true
			}
		}
	}
	return tilegrid.RunLoop(ctx, s.rt, nil, poll)
}
