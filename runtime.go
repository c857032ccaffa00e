package tilegrid

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Renderer is the outer drawing surface. The runtime asks it for the
// screen size once per tick and hands it one Frame in the render step.
type Renderer interface {
	ScreenDimensions() (width, height int)
	Draw(f *Frame) error
}

// Frame is the read-only snapshot a renderer draws from.
type Frame struct {
	Tick   uint64
	Cells  iter.Seq2[GridCoordinate, EntityRef]
	View   ViewState
	Matrix mgl64.Mat4
	Hover  Pick

	view *ViewTransform
}

// CellRect returns the screen rectangle of c under this frame's view. It
// is the same geometry the picker resolves against.
func (f *Frame) CellRect(c GridCoordinate) (Rect, error) {
	return f.view.CellRect(c)
}

// StandardSteps are the handles of the steps every runtime registers.
// Custom steps may depend on them, or make them depend on custom steps.
type StandardSteps struct {
	Track StepHandle // drain coordinate changes
	Sync  StepHandle // apply them to the grid
	View  StepHandle // viewport and camera
	Pick  StepHandle // resolve the pointer
	Draw  StepHandle // render step
}

// Option configures a Runtime.
type Option func(*runtimeOptions)

type runtimeOptions struct {
	log    *zap.Logger
	steps  []func(b *ScheduleBuilder, std StandardSteps)
	camera *Camera
	onErr  func(tick uint64, err error)
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *runtimeOptions) { o.log = l }
}

// WithSteps registers extra logic steps. fn may be given several times.
func WithSteps(fn func(b *ScheduleBuilder, std StandardSteps)) Option {
	return func(o *runtimeOptions) { o.steps = append(o.steps, fn) }
}

// WithCamera replaces the camera built from the config.
func WithCamera(c *Camera) Option {
	return func(o *runtimeOptions) { o.camera = c }
}

// WithErrorHandler calls fn with every failed tick's *StepError after it
// is logged. Host loops keep ticking; fn is how they observe failures.
func WithErrorHandler(fn func(tick uint64, err error)) Option {
	return func(o *runtimeOptions) { o.onErr = fn }
}

// Runtime wires a store, the grid, the view and the picker into one
// schedule and runs it a tick at a time.
type Runtime struct {
	cfg      *Config
	store    EntityStore
	renderer Renderer
	log      *zap.Logger
	onErr    func(tick uint64, err error)

	tracker  *ChangeTracker
	grid     *SpatialIndex
	view     *ViewTransform
	camera   *Camera
	picker   *Picker
	schedule *Schedule
	steps    StandardSteps

	tick    Tick
	pointer Vec2
	inject  []Vec2
	script  *Script
	hover   Pick
	report  SyncReport
	stats   Stats
}

// NewRuntime builds the grid and schedule described by cfg. A nil cfg
// uses DefaultConfig.
func NewRuntime(cfg *Config, store EntityStore, renderer Renderer, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || renderer == nil {
		return nil, errors.New("tilegrid: runtime needs a store and a renderer")
	}
	o := runtimeOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	grid, err := NewSpatialIndex(cfg.Grid.Width, cfg.Grid.Height)
	if err != nil {
		return nil, err
	}
	camera := o.camera
	if camera == nil {
		camera = NewCamera(cfg.View.CameraX, cfg.View.CameraY)
	}
	w, h := renderer.ScreenDimensions()
	view := NewViewTransform(cfg.ViewState(w, h))

	r := &Runtime{
		cfg:      cfg,
		store:    store,
		renderer: renderer,
		log:      o.log,
		onErr:    o.onErr,
		tracker:  NewChangeTracker(store),
		grid:     grid,
		view:     view,
		camera:   camera,
		picker:   NewPicker(view, grid),
		tick:     Tick{Log: o.log},
	}

	b := NewScheduleBuilder()
	r.steps.Track = b.Add("track", r.trackStep)
	r.steps.Sync = b.Add("sync", r.syncStep, r.steps.Track)
	r.steps.View = b.Add("view", r.viewStep)
	r.steps.Pick = b.Add("pick", r.pickStep, r.steps.Sync, r.steps.View)
	r.steps.Draw = b.Render("draw", r.drawStep)
	for _, fn := range o.steps {
		fn(b, r.steps)
	}
	r.schedule, err = b.Build()
	if err != nil {
		return nil, fmt.Errorf("build schedule: %w", err)
	}

	r.log.Debug("runtime ready",
		zap.Int("width", grid.Width()),
		zap.Int("height", grid.Height()),
		zap.Strings("steps", r.schedule.Order()),
	)
	return r, nil
}

func (r *Runtime) trackStep(*Tick) error {
	r.tracker.Drain()
	return nil
}

func (r *Runtime) syncStep(t *Tick) error {
	report, err := r.grid.Sync(r.tracker.Set(), r.store.Coordinate)
	r.report = report
	r.stats.Applied += report.Applied
	r.stats.Orphans += len(report.Orphans)
	for _, o := range report.Orphans {
		t.Log.Warn("orphan change",
			entityField("entity", o.Entity),
			zap.Stringer("kind", o.Kind),
			zap.Uint64("tick", t.Number),
		)
	}
	return err
}

func (r *Runtime) viewStep(t *Tick) error {
	w, h := r.renderer.ScreenDimensions()
	r.view.SetViewport(w, h)
	r.camera.Update(float32(t.Delta.Seconds()))
	r.view.SetCamera(r.camera.Position())
	return nil
}

func (r *Runtime) pickStep(*Tick) error {
	r.hover = r.picker.Update(r.pointer)
	return nil
}

func (r *Runtime) drawStep(t *Tick) error {
	return r.renderer.Draw(&Frame{
		Tick:   t.Number,
		Cells:  r.grid.Occupied(),
		View:   r.view.State(),
		Matrix: r.view.Matrix(),
		Hover:  r.hover,
		view:   r.view,
	})
}

// SetPointer records the latest pointer position in screen pixels. It is
// read by the next tick's pick step.
func (r *Runtime) SetPointer(x, y float64) {
	r.pointer = Vec2{X: x, Y: y}
}

// Pointer returns the position the next pick will use.
func (r *Runtime) Pointer() Vec2 {
	return r.pointer
}

// Tick runs one pass of the schedule. dt is the time since the previous
// tick. A failing step aborts the tick and is returned as a *StepError.
func (r *Runtime) Tick(dt time.Duration) error {
	if r.script != nil {
		r.script.step(r)
	}
	r.popInjected()

	r.tick.Number++
	r.tick.Delta = dt
	r.stats.Ticks = r.tick.Number

	err := r.schedule.Run(&r.tick)
	if err != nil {
		r.stats.Failures++
		var se *StepError
		if errors.As(err, &se) {
			r.log.Error("tick failed",
				zap.Uint64("tick", r.tick.Number),
				zap.String("step", se.Step),
				zap.Error(se.Err),
			)
		}
		if r.onErr != nil {
			r.onErr(r.tick.Number, err)
		}
	}
	r.stats.Events = r.tracker.EventsRead()
	if r.cfg.Debug.Enabled {
		r.debugLog()
	}
	return err
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() *Config { return r.cfg }

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *zap.Logger { return r.log }

// Grid returns the spatial index.
func (r *Runtime) Grid() *SpatialIndex { return r.grid }

// View returns the view transform.
func (r *Runtime) View() *ViewTransform { return r.view }

// Camera returns the camera.
func (r *Runtime) Camera() *Camera { return r.camera }

// Picker returns the picker, for registering hover callbacks.
func (r *Runtime) Picker() *Picker { return r.picker }

// Hover returns the pick made in the last tick.
func (r *Runtime) Hover() Pick { return r.hover }

// LastChanges returns the change set applied in the last tick.
func (r *Runtime) LastChanges() *ChangeSet { return r.tracker.Set() }

// LastSync returns the report of the last sync step.
func (r *Runtime) LastSync() SyncReport { return r.report }

// Steps returns the handles of the standard steps.
func (r *Runtime) Steps() StandardSteps { return r.steps }

// Order returns the step names in execution order.
func (r *Runtime) Order() []string { return r.schedule.Order() }
