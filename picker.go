package tilegrid

import (
	"errors"
	"fmt"
)

// ErrNoResolution is returned by Picker.Pick when the pointer cannot be
// mapped to world space because the view transform is singular.
var ErrNoResolution = errors.New("tilegrid: pointer has no resolution")

// PickStatus describes how a pick resolved.
type PickStatus uint8

const (
	PickNoResolution PickStatus = iota // view transform singular
	PickOffGrid                        // pointer maps outside the grid
	PickEmpty                          // in-bounds cell without occupant
	PickHit                            // in-bounds cell with occupant
)

func (s PickStatus) String() string {
	switch s {
	case PickNoResolution:
		return "no-resolution"
	case PickOffGrid:
		return "off-grid"
	case PickEmpty:
		return "empty"
	case PickHit:
		return "hit"
	default:
		return fmt.Sprintf("PickStatus(%d)", uint8(s))
	}
}

// Pick is the result of resolving one pointer position.
type Pick struct {
	Pointer Vec2
	World   Vec2
	Coord   GridCoordinate
	Entity  EntityRef
	Status  PickStatus
}

// Occupant returns the picked entity when Status is PickHit.
func (p Pick) Occupant() (EntityRef, bool) {
	return p.Entity, p.Status == PickHit
}

// Resolved reports whether the pointer mapped to a grid coordinate.
func (p Pick) Resolved() bool {
	return p.Status != PickNoResolution
}

// --- Handler registry ---

type pickHandler struct {
	id uint32
	fn func(Pick)
}

type pickEvent uint8

const (
	pickEventEnter pickEvent = iota
	pickEventLeave
	pickEventPick
)

type handlerRegistry struct {
	enter  []pickHandler
	leave  []pickHandler
	pick   []pickHandler
	nextID uint32
}

// CallbackHandle allows removing a registered picker callback.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	event pickEvent
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	switch h.event {
	case pickEventEnter:
		h.reg.enter = removePickHandler(h.reg.enter, h.id)
	case pickEventLeave:
		h.reg.leave = removePickHandler(h.reg.leave, h.id)
	case pickEventPick:
		h.reg.pick = removePickHandler(h.reg.pick, h.id)
	}
}

func removePickHandler(s []pickHandler, id uint32) []pickHandler {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = pickHandler{}
			return s[:len(s)-1]
		}
	}
	return s
}

func (r *handlerRegistry) add(list *[]pickHandler, event pickEvent, fn func(Pick)) CallbackHandle {
	r.nextID++
	id := r.nextID
	*list = append(*list, pickHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: r, event: event}
}

// Picker resolves pointer positions to grid occupants. It only reads the
// view and the grid.
type Picker struct {
	view     *ViewTransform
	grid     *SpatialIndex
	handlers handlerRegistry

	last     Pick
	hover    Pick
	hovering bool
}

// NewPicker returns a picker over view and grid.
func NewPicker(view *ViewTransform, grid *SpatialIndex) *Picker {
	return &Picker{view: view, grid: grid}
}

// Pick resolves pointer (in screen pixels). A singular view returns
// ErrNoResolution; a pointer off the grid returns an *OutOfBoundsError.
// Both still return a Pick describing the outcome.
func (p *Picker) Pick(pointer Vec2) (Pick, error) {
	res := Pick{Pointer: pointer, Status: PickNoResolution}
	world, err := p.view.ToWorld(pointer)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrNoResolution, err)
	}
	res.World = world
	res.Coord = ToGrid(world)
	cell, err := p.grid.Get(res.Coord)
	if err != nil {
		res.Status = PickOffGrid
		return res, err
	}
	if e, ok := cell.Occupant(); ok {
		res.Entity = e
		res.Status = PickHit
	} else {
		res.Status = PickEmpty
	}
	return res, nil
}

// Update picks at pointer, fires leave/enter callbacks when the hovered
// occupant changes, then fires pick callbacks. Off-grid and unresolved
// pointers are reported through the returned Pick's Status.
func (p *Picker) Update(pointer Vec2) Pick {
	res, _ := p.Pick(pointer)
	e, hit := res.Occupant()
	if p.hovering && (!hit || e != p.hover.Entity) {
		prev := p.hover
		p.hovering = false
		for _, h := range p.handlers.leave {
			h.fn(prev)
		}
	}
	if hit {
		entered := !p.hovering
		p.hover = res
		p.hovering = true
		if entered {
			for _, h := range p.handlers.enter {
				h.fn(res)
			}
		}
	}
	for _, h := range p.handlers.pick {
		h.fn(res)
	}
	p.last = res
	return res
}

// Last returns the result of the most recent Update.
func (p *Picker) Last() Pick {
	return p.last
}

// Hovered returns the entity currently under the pointer.
func (p *Picker) Hovered() (EntityRef, bool) {
	return p.hover.Entity, p.hovering
}

// OnHoverEnter registers a callback fired when the pointer moves onto an
// occupant (from empty space or from another occupant).
func (p *Picker) OnHoverEnter(fn func(Pick)) CallbackHandle {
	return p.handlers.add(&p.handlers.enter, pickEventEnter, fn)
}

// OnHoverLeave registers a callback fired with the previous pick when the
// pointer leaves an occupant.
func (p *Picker) OnHoverLeave(fn func(Pick)) CallbackHandle {
	return p.handlers.add(&p.handlers.leave, pickEventLeave, fn)
}

// OnPick registers a callback fired on every Update.
func (p *Picker) OnPick(fn func(Pick)) CallbackHandle {
	return p.handlers.add(&p.handlers.pick, pickEventPick, fn)
}
