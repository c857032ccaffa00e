package tilegrid

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Schedule construction errors.
var (
	ErrCycle               = errors.New("tilegrid: dependency cycle")
	ErrNoRenderStep        = errors.New("tilegrid: schedule has no render step")
	ErrMultipleRenderSteps = errors.New("tilegrid: schedule has more than one render step")
	ErrRenderDependency    = errors.New("tilegrid: logic step depends on the render step")
	ErrForeignStep         = errors.New("tilegrid: step handle from another builder")
)

// Tick is the per-tick context handed to every step.
type Tick struct {
	Number uint64
	Delta  time.Duration
	Log    *zap.Logger
}

// StepFunc is one unit of per-tick work. A non-nil error aborts the rest
// of the tick.
type StepFunc func(t *Tick) error

// StepError reports which step failed a tick.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepHandle identifies a step within the builder that created it. Edges
// between steps are expressed with handles, never names.
type StepHandle struct {
	id int
	b  *ScheduleBuilder
}

// Name returns the step's display name.
func (h StepHandle) Name() string {
	if h.b == nil || h.id < 0 || h.id >= len(h.b.steps) {
		return ""
	}
	return h.b.steps[h.id].name
}

type stepDef struct {
	name   string
	fn     StepFunc
	render bool
	deps   []int
}

// ScheduleBuilder collects steps and their dependency edges.
type ScheduleBuilder struct {
	steps []stepDef
	errs  []error
}

// NewScheduleBuilder returns an empty builder.
func NewScheduleBuilder() *ScheduleBuilder {
	return &ScheduleBuilder{}
}

func (b *ScheduleBuilder) add(name string, fn StepFunc, render bool, after []StepHandle) StepHandle {
	h := StepHandle{id: len(b.steps), b: b}
	b.steps = append(b.steps, stepDef{name: name, fn: fn, render: render})
	b.Depend(h, after...)
	return h
}

// Add registers a logic step that runs after the given steps.
func (b *ScheduleBuilder) Add(name string, fn StepFunc, after ...StepHandle) StepHandle {
	return b.add(name, fn, false, after)
}

// Render registers the render step. It always runs last, after every
// logic step; after only records explicit edges for validation.
func (b *ScheduleBuilder) Render(name string, fn StepFunc, after ...StepHandle) StepHandle {
	return b.add(name, fn, true, after)
}

// Depend adds edges so that step runs after each of on.
func (b *ScheduleBuilder) Depend(step StepHandle, on ...StepHandle) {
	if step.b != b {
		b.errs = append(b.errs, fmt.Errorf("depend: %w", ErrForeignStep))
		return
	}
	for _, dep := range on {
		if dep.b != b {
			b.errs = append(b.errs, fmt.Errorf("depend %q: %w", step.Name(), ErrForeignStep))
			continue
		}
		if dep.id == step.id {
			b.errs = append(b.errs, fmt.Errorf("%w: %q depends on itself", ErrCycle, step.Name()))
			continue
		}
		b.steps[step.id].deps = append(b.steps[step.id].deps, dep.id)
	}
}

// Build validates the graph and fixes the execution order. Logic steps
// are ordered topologically with ties broken by registration order; the
// render step is appended last.
func (b *ScheduleBuilder) Build() (*Schedule, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	render := -1
	for i, st := range b.steps {
		if !st.render {
			continue
		}
		if render >= 0 {
			return nil, fmt.Errorf("%w: %q and %q", ErrMultipleRenderSteps, b.steps[render].name, st.name)
		}
		render = i
	}
	if render < 0 {
		return nil, ErrNoRenderStep
	}
	for _, st := range b.steps {
		for _, d := range st.deps {
			if d == render && !st.render {
				return nil, fmt.Errorf("%w: %q", ErrRenderDependency, st.name)
			}
		}
	}

	// Kahn's algorithm over logic steps.
	indegree := make([]int, len(b.steps))
	for i, st := range b.steps {
		if i != render {
			indegree[i] = len(st.deps)
		}
	}
	done := make([]bool, len(b.steps))
	order := make([]stepDef, 0, len(b.steps))
	for {
		next := -1
		for i := range b.steps {
			if i != render && !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		order = append(order, b.steps[next])
		for i, st := range b.steps {
			if i == render || done[i] {
				continue
			}
			for _, d := range st.deps {
				if d == next {
					indegree[i]--
				}
			}
		}
	}
	if len(order) != len(b.steps)-1 {
		var stuck []string
		for i, st := range b.steps {
			if i != render && !done[i] {
				stuck = append(stuck, st.name)
			}
		}
		return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
	}
	order = append(order, b.steps[render])

	return &Schedule{
		steps:     order,
		durations: make([]time.Duration, len(order)),
	}, nil
}

// Schedule is a validated, ordered list of steps.
type Schedule struct {
	steps     []stepDef
	durations []time.Duration
}

// Order returns step names in execution order.
func (s *Schedule) Order() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.name
	}
	return names
}

// Run executes every step once, in order. The first failing step aborts
// the tick; steps after it do not run.
func (s *Schedule) Run(t *Tick) error {
	for i := range s.durations {
		s.durations[i] = 0
	}
	for i, st := range s.steps {
		start := time.Now()
		err := st.fn(t)
		s.durations[i] = time.Since(start)
		if err != nil {
			return &StepError{Step: st.name, Err: err}
		}
	}
	return nil
}

// Durations returns how long each step took during the last Run, in
// execution order. Steps that did not run report zero.
func (s *Schedule) Durations() []time.Duration {
	return s.durations
}
