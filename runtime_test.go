package tilegrid

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testRenderer struct {
	width, height int
	frames        []Frame
	cells         [][]GridCoordinate
	err           error
}

func (r *testRenderer) ScreenDimensions() (int, int) { return r.width, r.height }

func (r *testRenderer) Draw(f *Frame) error {
	if r.err != nil {
		return r.err
	}
	var cells []GridCoordinate
	for c := range f.Cells {
		cells = append(cells, c)
	}
	r.frames = append(r.frames, *f)
	r.cells = append(r.cells, cells)
	return nil
}

func newTestRuntime(t *testing.T, opts ...Option) (*Runtime, *TileWorld, *testRenderer) {
	t.Helper()
	w := NewTileWorld()
	r := &testRenderer{width: 800, height: 600}
	rt, err := NewRuntime(nil, w, r, opts...)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt, w, r
}

func TestRuntimeStandardOrder(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	want := []string{"track", "sync", "view", "pick", "draw"}
	if !slices.Equal(rt.Order(), want) {
		t.Errorf("Order = %v, want %v", rt.Order(), want)
	}
}

func TestNewRuntimeValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.Width = 0
	if _, err := NewRuntime(cfg, NewTileWorld(), &testRenderer{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewRuntime(nil, nil, &testRenderer{}); err == nil {
		t.Error("NewRuntime accepted a nil store")
	}
	if _, err := NewRuntime(nil, NewTileWorld(), nil); err == nil {
		t.Error("NewRuntime accepted a nil renderer")
	}
}

func TestRuntimeTickSyncsAndPicks(t *testing.T) {
	rt, w, r := newTestRuntime(t)
	e := w.Spawn(Coord(0, 0))
	w.Spawn(Coord(4, 5))
	rt.SetPointer(400, 300)

	if err := rt.Tick(0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(r.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(r.frames))
	}
	f := r.frames[0]
	if f.Tick != 1 {
		t.Errorf("Frame.Tick = %d, want 1", f.Tick)
	}
	if f.Hover.Status != PickHit || f.Hover.Entity != e {
		t.Errorf("Frame.Hover = %+v, want hit %v", f.Hover, e)
	}
	if !slices.Equal(r.cells[0], []GridCoordinate{{0, 0}, {4, 5}}) {
		t.Errorf("cells = %v", r.cells[0])
	}
	if f.View.Width != 800 || f.View.Height != 600 {
		t.Errorf("Frame.View = %+v", f.View)
	}
	if got := rt.LastChanges().Inserted; len(got) != 2 {
		t.Errorf("LastChanges.Inserted = %v, want 2 entries", got)
	}
	if rt.Stats().Applied != 2 {
		t.Errorf("Stats.Applied = %d, want 2", rt.Stats().Applied)
	}
}

func TestRuntimeFollowsScreenResize(t *testing.T) {
	rt, w, r := newTestRuntime(t)
	w.Spawn(Coord(0, 0))
	r.width, r.height = 400, 200
	rt.SetPointer(200, 100)
	if err := rt.Tick(0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rt.Hover().Status != PickHit {
		t.Errorf("Hover = %+v, want hit at new centre", rt.Hover())
	}
}

func TestRuntimeCustomStepBeforeTrack(t *testing.T) {
	var w *TileWorld
	var spawned EntityRef
	spawn := func(t *Tick) error {
		if t.Number == 1 {
			spawned = w.Spawn(Coord(3, 3))
		}
		return nil
	}
	w = NewTileWorld()
	r := &testRenderer{width: 800, height: 600}
	rt, err := NewRuntime(nil, w, r, WithSteps(func(b *ScheduleBuilder, std StandardSteps) {
		b.Depend(std.Track, b.Add("spawn", spawn))
	}))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	order := rt.Order()
	if i := slices.Index(order, "spawn"); i < 0 || i > slices.Index(order, "track") {
		t.Fatalf("Order = %v, want spawn before track", order)
	}
	if err := rt.Tick(0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got, ok, _ := rt.Grid().Occupant(Coord(3, 3)); !ok || got != spawned {
		t.Errorf("Occupant((3,3)) = %v,%v, want %v in the same tick", got, ok, spawned)
	}
}

func TestRuntimeSyncOutOfBoundsAbortsTick(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	rt, w, r := newTestRuntime(t, WithLogger(zap.New(core)))
	w.Spawn(Coord(100, 100))

	err := rt.Tick(0)
	var se *StepError
	if !errors.As(err, &se) || se.Step != "sync" || !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Tick err = %v, want sync *StepError wrapping ErrOutOfBounds", err)
	}
	if len(r.frames) != 0 {
		t.Error("render step ran after a failed logic step")
	}
	if rt.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", rt.Stats().Failures)
	}
	if logs.FilterMessage("tick failed").Len() != 1 {
		t.Errorf("logged %v, want one tick failure", logs.All())
	}

	if err := rt.Tick(0); err != nil {
		t.Errorf("next Tick: %v", err)
	}
	if len(r.frames) != 1 {
		t.Errorf("frames = %d, want 1", len(r.frames))
	}
}

func TestRuntimeErrorHandler(t *testing.T) {
	var ticks []uint64
	var errs []error
	rt, w, _ := newTestRuntime(t, WithErrorHandler(func(tick uint64, err error) {
		ticks = append(ticks, tick)
		errs = append(errs, err)
	}))
	_ = rt.Tick(0)
	w.Spawn(Coord(-1, 5))
	_ = rt.Tick(0)
	_ = rt.Tick(0)

	if !slices.Equal(ticks, []uint64{2}) {
		t.Fatalf("handler ticks = %v, want [2]", ticks)
	}
	var se *StepError
	if !errors.As(errs[0], &se) || se.Step != "sync" {
		t.Errorf("handler err = %v, want sync *StepError", errs[0])
	}
}

func TestRuntimeRenderFailure(t *testing.T) {
	rt, _, r := newTestRuntime(t)
	r.err = errors.New("gpu lost")
	err := rt.Tick(0)
	var se *StepError
	if !errors.As(err, &se) || se.Step != "draw" {
		t.Errorf("Tick err = %v, want draw *StepError", err)
	}
}

// hidingStore resolves no coordinate for hidden entities.
type hidingStore struct {
	*TileWorld
	hidden map[EntityRef]bool
}

func (s *hidingStore) Coordinate(e EntityRef) (GridCoordinate, bool) {
	if s.hidden[e] {
		return GridCoordinate{}, false
	}
	return s.TileWorld.Coordinate(e)
}

func TestRuntimeLogsOrphans(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &hidingStore{TileWorld: NewTileWorld(), hidden: map[EntityRef]bool{}}
	rt, err := NewRuntime(nil, store, &testRenderer{width: 800, height: 600}, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	e := store.Spawn(Coord(1, 1))
	store.hidden[e] = true

	if err := rt.Tick(0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if n := len(rt.LastSync().Orphans); n != 1 {
		t.Errorf("Orphans = %d, want 1", n)
	}
	if rt.Stats().Orphans != 1 {
		t.Errorf("Stats.Orphans = %d, want 1", rt.Stats().Orphans)
	}
	entries := logs.FilterMessage("orphan change").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d orphan warnings, want 1", len(entries))
	}
	if kind := entries[0].ContextMap()["kind"]; kind != "inserted" {
		t.Errorf("kind field = %v, want inserted", kind)
	}
}

func TestRuntimeDebugStats(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := DefaultConfig()
	cfg.Debug.Enabled = true
	cfg.Debug.StatsEvery = 2
	rt, err := NewRuntime(cfg, NewTileWorld(), &testRenderer{width: 10, height: 10}, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	for range 4 {
		_ = rt.Tick(0)
	}
	if n := logs.FilterMessage("tick stats").Len(); n != 2 {
		t.Errorf("tick stats lines = %d, want 2", n)
	}
	timings := rt.StepTimings()
	if len(timings) != 5 || timings[4].Step != "draw" {
		t.Errorf("StepTimings = %v", timings)
	}
}

func TestRuntimeInjectPath(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	rt.InjectPath(0, 0, 30, 60, 4)
	if rt.Pending() != 4 {
		t.Fatalf("Pending = %d, want 4", rt.Pending())
	}
	want := []Vec2{{0, 0}, {10, 20}, {20, 40}, {30, 60}}
	for i, p := range want {
		_ = rt.Tick(0)
		if !approxVec(rt.Pointer(), p) {
			t.Errorf("tick %d pointer = %v, want %v", i+1, rt.Pointer(), p)
		}
	}
	if rt.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", rt.Pending())
	}
	// The last injected position sticks once the queue is empty.
	_ = rt.Tick(0)
	if !approxVec(rt.Pointer(), Vec2{30, 60}) {
		t.Errorf("pointer = %v after queue drained", rt.Pointer())
	}
}

func TestRuntimeCameraDrivesView(t *testing.T) {
	cam := NewCamera(5, 5)
	rt, w, _ := newTestRuntime(t, WithCamera(cam))
	e := w.Spawn(Coord(5, 5))
	rt.SetPointer(400, 300)
	if err := rt.Tick(0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rt.Hover().Entity != e || rt.Hover().Status != PickHit {
		t.Errorf("Hover = %+v, want hit %v under the camera", rt.Hover(), e)
	}
	if rt.Camera() != cam {
		t.Error("Camera() is not the injected camera")
	}
}

// Cells are never cleared, so every live entity's coordinate stays
// occupied no matter how spawns, moves and despawns interleave.
func TestRuntimeLiveEntitiesOccupyTheirCells(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	w := NewTileWorld()
	var live []EntityRef

	mutate := func(*Tick) error {
		for range rng.IntN(5) {
			switch op := rng.IntN(4); {
			case op == 0 || len(live) == 0:
				c := Coord(rng.IntN(DefaultGridSize), rng.IntN(DefaultGridSize))
				live = append(live, w.Spawn(c))
			case op == 1:
				e := live[rng.IntN(len(live))]
				_ = w.Move(e, Coord(rng.IntN(DefaultGridSize), rng.IntN(DefaultGridSize)))
			case op == 2:
				i := rng.IntN(len(live))
				w.Despawn(live[i])
				live = slices.Delete(live, i, i+1)
			}
		}
		return nil
	}
	rt, err := NewRuntime(nil, w, &testRenderer{width: 800, height: 600},
		WithSteps(func(b *ScheduleBuilder, std StandardSteps) {
			b.Depend(std.Track, b.Add("mutate", mutate))
		}))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	for range 300 {
		if err := rt.Tick(0); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		for _, e := range live {
			c, _ := w.Coordinate(e)
			if _, ok, _ := rt.Grid().Occupant(c); !ok {
				t.Fatalf("live %v at %v missing from the grid", e, c)
			}
		}
		// An entity changed this tick that is alone on its target cell
		// must be the occupant.
		targets := map[GridCoordinate][]EntityRef{}
		cs := rt.LastChanges()
		for _, e := range slices.Concat(cs.Inserted, cs.Modified) {
			if c, ok := w.Coordinate(e); ok {
				targets[c] = append(targets[c], e)
			}
		}
		for c, es := range targets {
			if len(es) != 1 {
				continue
			}
			if got, _, _ := rt.Grid().Occupant(c); got != es[0] {
				t.Fatalf("Occupant(%v) = %v, want %v", c, got, es[0])
			}
		}
	}
}
