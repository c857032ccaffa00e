package tilegrid

import (
	"time"

	"go.uber.org/zap"
)

// Stats holds running counters for a Runtime.
type Stats struct {
	Ticks    uint64 // ticks started
	Failures uint64 // ticks aborted by a step error
	Events   int    // raw change events drained in the last tick
	Applied  int    // changes applied to the grid, cumulative
	Orphans  int    // orphan changes, cumulative
}

// Stats returns a copy of the runtime counters.
func (r *Runtime) Stats() Stats {
	return r.stats
}

// StepTiming is the wall time one step took in the last tick.
type StepTiming struct {
	Step     string
	Duration time.Duration
}

// StepTimings returns per-step durations for the last tick, in execution
// order.
func (r *Runtime) StepTimings() []StepTiming {
	names := r.schedule.Order()
	durs := r.schedule.Durations()
	out := make([]StepTiming, len(names))
	for i := range names {
		out[i] = StepTiming{Step: names[i], Duration: durs[i]}
	}
	return out
}

// debugLog writes step timings and counters every StatsEvery ticks.
func (r *Runtime) debugLog() {
	every := uint64(r.cfg.Debug.StatsEvery)
	if every == 0 || r.tick.Number%every != 0 {
		return
	}
	var total time.Duration
	fields := make([]zap.Field, 0, 8)
	for _, st := range r.StepTimings() {
		total += st.Duration
		fields = append(fields, zap.Duration(st.Step, st.Duration))
	}
	fields = append(fields,
		zap.Duration("total", total),
		zap.Uint64("tick", r.tick.Number),
		zap.Int("events", r.stats.Events),
		zap.Int("applied", r.stats.Applied),
		zap.Int("orphans", r.stats.Orphans),
	)
	r.log.Debug("tick stats", fields...)
}
