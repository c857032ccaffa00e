package ecs

import (
	"testing"

	"github.com/phanxgames/tilegrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

var untracked = donburi.NewTag()

func drain(s *DonburiStore, c *tilegrid.ChangeCursor) []tilegrid.ChangeEvent {
	var out []tilegrid.ChangeEvent
	s.ReadChanges(c, func(ev tilegrid.ChangeEvent) { out = append(out, ev) })
	return out
}

func TestDonburiStore_RefRoundTrip(t *testing.T) {
	world := donburi.NewWorld()
	e := world.Create(Coordinate)
	assert.Equal(t, e, Entity(Ref(e)))
}

func TestDonburiStore_SpawnMoveDespawn(t *testing.T) {
	s := NewDonburiStore(donburi.NewWorld())
	c := s.NewCursor()

	ref := s.Spawn(tilegrid.Coord(3, 4))
	got, ok := s.Coordinate(ref)
	require.True(t, ok)
	assert.Equal(t, tilegrid.Coord(3, 4), got)

	require.NoError(t, s.Move(ref, tilegrid.Coord(5, 6)))
	got, _ = s.Coordinate(ref)
	assert.Equal(t, tilegrid.Coord(5, 6), got)

	assert.True(t, s.Despawn(ref))
	_, ok = s.Coordinate(ref)
	assert.False(t, ok)
	assert.False(t, s.Despawn(ref))
	assert.ErrorIs(t, s.Move(ref, tilegrid.Coord(0, 0)), tilegrid.ErrStaleEntity)

	evs := drain(s, c)
	require.Len(t, evs, 3)
	assert.Equal(t, tilegrid.ChangeInserted, evs[0].Kind)
	assert.Equal(t, tilegrid.ChangeModified, evs[1].Kind)
	assert.Equal(t, tilegrid.ChangeRemoved, evs[2].Kind)
	for _, ev := range evs {
		assert.Equal(t, ref, ev.Entity)
	}
}

func TestDonburiStore_RecycledIDIsNewRef(t *testing.T) {
	world := donburi.NewWorld()
	s := NewDonburiStore(world)

	old := s.Spawn(tilegrid.Coord(1, 1))
	got, ok := s.Coordinate(old)
	require.True(t, ok)
	assert.Equal(t, tilegrid.Coord(1, 1), got)
	require.True(t, s.Despawn(old))

	fresh := s.Spawn(tilegrid.Coord(2, 2))
	assert.Equal(t, old.Index, fresh.Index, "id should be recycled")
	assert.NotEqual(t, old, fresh)
	assert.True(t, world.Valid(Entity(fresh)))
	assert.False(t, world.Valid(Entity(old)))

	_, ok = s.Coordinate(old)
	assert.False(t, ok)
	got, ok = s.Coordinate(fresh)
	require.True(t, ok)
	assert.Equal(t, tilegrid.Coord(2, 2), got)
	assert.False(t, s.Despawn(old))
	assert.True(t, s.Despawn(fresh))
}

func TestDonburiStore_ChangesAreDonburiEvents(t *testing.T) {
	world := donburi.NewWorld()
	s := NewDonburiStore(world)
	c := s.NewCursor()

	var seen []tilegrid.ChangeEvent
	CoordinateChangedEventType.Subscribe(world, func(_ donburi.World, ev tilegrid.ChangeEvent) {
		seen = append(seen, ev)
	})

	ref := s.Spawn(tilegrid.Coord(0, 0))
	assert.Empty(t, seen, "events are queued until processed")

	evs := drain(s, c)
	require.Len(t, evs, 1)
	assert.Equal(t, tilegrid.ChangeEvent{Entity: ref, Kind: tilegrid.ChangeInserted}, evs[0])
	assert.Equal(t, evs, seen)
}

func TestDonburiStore_CursorSkipsQueuedEvents(t *testing.T) {
	s := NewDonburiStore(donburi.NewWorld())
	early := s.NewCursor()
	s.Spawn(tilegrid.Coord(0, 0))
	late := s.NewCursor()

	assert.Len(t, drain(s, early), 1)
	assert.Empty(t, drain(s, late))
}

func TestDonburiStore_AddAndRemoveComponent(t *testing.T) {
	world := donburi.NewWorld()
	s := NewDonburiStore(world)
	c := s.NewCursor()

	ref := Ref(world.Create(untracked))
	_, ok := s.Coordinate(ref)
	assert.False(t, ok)

	require.NoError(t, s.Move(ref, tilegrid.Coord(1, 1)))
	assert.True(t, s.RemoveCoordinate(ref))
	assert.False(t, s.RemoveCoordinate(ref))

	evs := drain(s, c)
	require.Len(t, evs, 2)
	assert.Equal(t, tilegrid.ChangeInserted, evs[0].Kind)
	assert.Equal(t, tilegrid.ChangeRemoved, evs[1].Kind)
}

func TestDonburiStore_TrackerCollapses(t *testing.T) {
	s := NewDonburiStore(donburi.NewWorld())
	tr := tilegrid.NewChangeTracker(s)

	a := s.Spawn(tilegrid.Coord(0, 0))
	require.NoError(t, s.Move(a, tilegrid.Coord(1, 0)))
	b := s.Spawn(tilegrid.Coord(2, 2))

	cs := tr.Drain()
	assert.Len(t, cs.Inserted, 2)
	assert.Empty(t, cs.Modified)
	assert.Empty(t, cs.Removed)

	require.NoError(t, s.Move(b, tilegrid.Coord(3, 3)))
	s.Despawn(a)
	cs = tr.Drain()
	assert.Equal(t, []tilegrid.EntityRef{b}, cs.Modified)
	assert.Equal(t, []tilegrid.EntityRef{a}, cs.Removed)
}

type fakeRenderer struct{ frames int }

func (f *fakeRenderer) ScreenDimensions() (int, int) { return 800, 600 }
func (f *fakeRenderer) Draw(*tilegrid.Frame) error  { f.frames++; return nil }

func TestDonburiStore_DrivesRuntime(t *testing.T) {
	world := donburi.NewWorld()
	s := NewDonburiStore(world)
	r := &fakeRenderer{}
	rt, err := tilegrid.NewRuntime(nil, s, r)
	require.NoError(t, err)

	ref := s.Spawn(tilegrid.Coord(0, 0))
	rt.SetPointer(400, 300)
	require.NoError(t, rt.Tick(0))

	occ, ok, err := rt.Grid().Occupant(tilegrid.Coord(0, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ref, occ)
	assert.Equal(t, tilegrid.PickHit, rt.Hover().Status)
	assert.Equal(t, 1, r.frames)
}

func TestDonburiStore_BindPicker(t *testing.T) {
	world := donburi.NewWorld()
	s := NewDonburiStore(world)
	rt, err := tilegrid.NewRuntime(nil, s, &fakeRenderer{})
	require.NoError(t, err)
	s.BindPicker(rt.Picker())

	var received []HoverEvent
	HoverEventType.Subscribe(world, func(w donburi.World, e HoverEvent) {
		received = append(received, e)
	})

	ref := s.Spawn(tilegrid.Coord(0, 0))
	rt.SetPointer(400, 300)
	require.NoError(t, rt.Tick(0))
	rt.SetPointer(0, 0)
	require.NoError(t, rt.Tick(0))

	events.ProcessAllEvents(world)

	kinds := make([]HoverKind, len(received))
	for i, e := range received {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []HoverKind{HoverEnter, HoverPick, HoverLeave, HoverPick}, kinds)
	assert.Equal(t, Entity(ref), received[0].Entity)
}
