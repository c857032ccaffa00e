// Package tilegrid maps entities onto a fixed 2D tile grid and resolves
// screen pointer positions to the entity under them.
//
// Entities live in an [EntityStore]. The native store is [TileWorld], a
// generational entity table with a flagged [GridCoordinate] arena that
// records every insert, modify and remove. A [ChangeTracker] drains those
// events once per tick and collapses them to one [ChangeSet], which
// [SpatialIndex.Sync] applies to the grid.
//
// # Quick start
//
// A [Runtime] wires the store, the grid, a [ViewTransform] and a [Picker]
// into one [Schedule] and runs it a tick at a time:
//
//	world := tilegrid.NewTileWorld()
//	world.Spawn(tilegrid.Coord(3, 4))
//
//	rt, err := tilegrid.NewRuntime(nil, world, renderer)
//	if err != nil {
//		return err
//	}
//	rt.SetPointer(400, 300)
//	err = rt.Tick(16 * time.Millisecond)
//	hover := rt.Hover()
//
// The renderer is anything implementing [Renderer]. Package host provides
// an Ebitengine window and package term a tcell terminal.
//
// # Schedule
//
// Every runtime registers the steps track, sync, view, pick and draw.
// Custom steps are added with [WithSteps] and ordered against the
// standard ones through [StandardSteps]:
//
//	tilegrid.WithSteps(func(b *tilegrid.ScheduleBuilder, std tilegrid.StandardSteps) {
//		b.Depend(std.Track, b.Add("wander", wander))
//	})
//
// Logic steps run in dependency order, ties broken by registration order.
// The render step always runs last. A failing step aborts the rest of the
// tick and is returned as a [*StepError].
//
// # Coordinates
//
// World space is one unit per tile with Y growing upward. Screen space is
// pixels with Y growing downward. [ViewState] describes the mapping: the
// camera position is shown at the screen centre, scaled by TileSize.
// A pointer resolves to the tile whose centre is nearest, so tile (x, y)
// covers the unit square centred on (x, y) in world space. Points exactly
// halfway between two centres round away from zero: 0.5 belongs to tile 1
// and -0.5 to tile -1.
package tilegrid
