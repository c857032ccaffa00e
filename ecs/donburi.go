package ecs

import (
	"github.com/phanxgames/tilegrid"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// Coordinate is the Donburi component holding an entity's grid cell.
var Coordinate = donburi.NewComponentType[tilegrid.GridCoordinate]()

// HoverKind says which picker callback produced a HoverEvent.
type HoverKind uint8

const (
	HoverEnter HoverKind = iota + 1
	HoverLeave
	HoverPick
)

// HoverEvent carries a picker result into the Donburi world.
type HoverEvent struct {
	Kind   HoverKind
	Entity donburi.Entity
	Pick   tilegrid.Pick
}

// CoordinateChangedEventType carries coordinate changes made through a
// DonburiStore. They are queued on the world and flushed into the store's
// change log by ReadChanges.
var CoordinateChangedEventType = events.NewEventType[tilegrid.ChangeEvent]()

// HoverEventType is the Donburi event type for picker results. Subscribe
// to it in your ECS systems to react to the pointer.
var HoverEventType = events.NewEventType[HoverEvent]()

// DonburiStore is a tilegrid.EntityStore backed by a Donburi world.
// Coordinates written through the store publish CoordinateChangedEventType
// events, so the runtime sees them as Inserted/Modified/Removed changes.
// Writes that bypass the store are not observed.
type DonburiStore struct {
	world donburi.World
	log   *tilegrid.ChangeLog
}

var _ tilegrid.EntityStore = (*DonburiStore)(nil)

// NewDonburiStore creates a store over world and subscribes its change log
// to CoordinateChangedEventType.
func NewDonburiStore(world donburi.World) *DonburiStore {
	s := &DonburiStore{world: world, log: tilegrid.NewChangeLog()}
	CoordinateChangedEventType.Subscribe(world, s.record)
	return s
}

func (s *DonburiStore) record(_ donburi.World, ev tilegrid.ChangeEvent) {
	s.log.Append(ev)
}

func (s *DonburiStore) publish(ref tilegrid.EntityRef, kind tilegrid.ChangeKind) {
	CoordinateChangedEventType.Publish(s.world, tilegrid.ChangeEvent{Entity: ref, Kind: kind})
}

// World returns the underlying Donburi world.
func (s *DonburiStore) World() donburi.World {
	return s.world
}

// Ref converts a Donburi entity to the runtime's handle. The Donburi id
// becomes the slot and the entity's whole low word, version and flag bits
// included, the generation, so Entity(Ref(e)) == e.
func Ref(e donburi.Entity) tilegrid.EntityRef {
	return tilegrid.EntityRef{Index: uint32(e.Id()), Generation: uint32(e)}
}

// Entity converts a runtime handle back to a Donburi entity.
func Entity(ref tilegrid.EntityRef) donburi.Entity {
	return donburi.Entity(uint64(ref.Index)<<32 | uint64(ref.Generation))
}

func (s *DonburiStore) entry(ref tilegrid.EntityRef) (*donburi.Entry, bool) {
	e := Entity(ref)
	if !s.world.Valid(e) {
		return nil, false
	}
	return s.world.Entry(e), true
}

// Spawn creates an entity with a Coordinate component set to c.
func (s *DonburiStore) Spawn(c tilegrid.GridCoordinate) tilegrid.EntityRef {
	e := s.world.Create(Coordinate)
	Coordinate.SetValue(s.world.Entry(e), c)
	ref := Ref(e)
	s.publish(ref, tilegrid.ChangeInserted)
	return ref
}

// Move sets ref's coordinate, adding the component if it is missing.
func (s *DonburiStore) Move(ref tilegrid.EntityRef, c tilegrid.GridCoordinate) error {
	entry, ok := s.entry(ref)
	if !ok {
		return tilegrid.ErrStaleEntity
	}
	kind := tilegrid.ChangeModified
	if !entry.HasComponent(Coordinate) {
		entry.AddComponent(Coordinate)
		kind = tilegrid.ChangeInserted
	}
	Coordinate.SetValue(entry, c)
	s.publish(ref, kind)
	return nil
}

// RemoveCoordinate drops ref's Coordinate component but keeps the entity.
func (s *DonburiStore) RemoveCoordinate(ref tilegrid.EntityRef) bool {
	entry, ok := s.entry(ref)
	if !ok || !entry.HasComponent(Coordinate) {
		return false
	}
	entry.RemoveComponent(Coordinate)
	s.publish(ref, tilegrid.ChangeRemoved)
	return true
}

// Despawn removes ref from the world.
func (s *DonburiStore) Despawn(ref tilegrid.EntityRef) bool {
	entry, ok := s.entry(ref)
	if !ok {
		return false
	}
	had := entry.HasComponent(Coordinate)
	s.world.Remove(Entity(ref))
	if had {
		s.publish(ref, tilegrid.ChangeRemoved)
	}
	return true
}

// NewCursor registers a reader on the coordinate change log. Changes still
// queued on the world are flushed first, so the cursor only sees changes
// published after it.
func (s *DonburiStore) NewCursor() *tilegrid.ChangeCursor {
	CoordinateChangedEventType.ProcessEvents(s.world)
	return s.log.NewCursor()
}

// ReadChanges processes queued coordinate events into the change log, then
// drains it since c.
func (s *DonburiStore) ReadChanges(c *tilegrid.ChangeCursor, fn func(tilegrid.ChangeEvent)) {
	CoordinateChangedEventType.ProcessEvents(s.world)
	s.log.ReadChanges(c, fn)
}

// Coordinate returns ref's current coordinate. Stale refs and entities
// without the component report false.
func (s *DonburiStore) Coordinate(ref tilegrid.EntityRef) (tilegrid.GridCoordinate, bool) {
	entry, ok := s.entry(ref)
	if !ok || !entry.HasComponent(Coordinate) {
		return tilegrid.GridCoordinate{}, false
	}
	return *Coordinate.Get(entry), true
}

// BindPicker publishes every picker callback as a HoverEvent on the
// store's world. Events are queued until ProcessEvents runs.
func (s *DonburiStore) BindPicker(p *tilegrid.Picker) []tilegrid.CallbackHandle {
	publish := func(kind HoverKind) func(tilegrid.Pick) {
		return func(pk tilegrid.Pick) {
			HoverEventType.Publish(s.world, HoverEvent{
				Kind:   kind,
				Entity: Entity(pk.Entity),
				Pick:   pk,
			})
		}
	}
	return []tilegrid.CallbackHandle{
		p.OnHoverEnter(publish(HoverEnter)),
		p.OnHoverLeave(publish(HoverLeave)),
		p.OnPick(publish(HoverPick)),
	}
}
