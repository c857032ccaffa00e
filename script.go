package tilegrid

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrScriptExpectation is wrapped by every failed "expect" step.
var ErrScriptExpectation = errors.New("tilegrid: script expectation failed")

// scriptStep is a single action in a pointer script.
type scriptStep struct {
	Action string  `yaml:"action"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	FromX  float64 `yaml:"fromX,omitempty"`
	FromY  float64 `yaml:"fromY,omitempty"`
	ToX    float64 `yaml:"toX,omitempty"`
	ToY    float64 `yaml:"toY,omitempty"`
	Frames int     `yaml:"frames,omitempty"`
	Status string  `yaml:"status,omitempty"`
}

type scriptFile struct {
	Steps []scriptStep `yaml:"steps"`
}

// Script replays pointer movement across ticks and checks pick results,
// for headless testing of a Runtime. Actions:
//
//	move   {x, y}                           pointer to a screen position
//	glide  {fromX, fromY, toX, toY, frames} pointer along a line
//	wait   {frames}                         idle ticks
//	expect {x, y, status}                   last pick hit grid cell (x, y) with status
type Script struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
	failures  []error
}

// LoadScript parses a YAML or JSON script.
func LoadScript(data []byte) (*Script, error) {
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range f.Steps {
		switch st.Action {
		case "move", "glide", "wait", "expect":
		default:
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Script{steps: f.Steps}, nil
}

// SetScript attaches s to the runtime. The script advances at the start of
// every Tick.
func (r *Runtime) SetScript(s *Script) {
	r.script = s
}

// Done reports whether every step has executed.
func (s *Script) Done() bool {
	return s.done
}

// Err returns the failed expectations joined, or nil.
func (s *Script) Err() error {
	return errors.Join(s.failures...)
}

// step advances the script by one tick.
func (s *Script) step(r *Runtime) {
	if s.done {
		return
	}
	// Let queued pointer positions play out first.
	if r.Pending() > 0 {
		return
	}
	if s.waitCount > 0 {
		s.waitCount--
		return
	}
	if s.cursor >= len(s.steps) {
		s.done = true
		return
	}

	st := s.steps[s.cursor]
	s.cursor++

	switch st.Action {
	case "move":
		r.InjectPointer(st.X, st.Y)
	case "glide":
		r.InjectPath(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		if st.Frames > 0 {
			s.waitCount = st.Frames - 1
		}
	case "expect":
		s.expect(r.Hover(), st)
	}

	if s.cursor >= len(s.steps) && s.waitCount == 0 && r.Pending() == 0 {
		s.done = true
	}
}

func (s *Script) expect(got Pick, st scriptStep) {
	want := Coord(int(st.X), int(st.Y))
	if st.Status != "" && got.Status.String() != st.Status {
		s.failures = append(s.failures, fmt.Errorf("%w: step %d: status %s, want %s",
			ErrScriptExpectation, s.cursor-1, got.Status, st.Status))
		return
	}
	if got.Status != PickNoResolution && got.Coord != want {
		s.failures = append(s.failures, fmt.Errorf("%w: step %d: coord %v, want %v",
			ErrScriptExpectation, s.cursor-1, got.Coord, want))
	}
}
