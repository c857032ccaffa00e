package tilegrid

// InjectPointer queues a pointer position in screen pixels. Each tick
// consumes at most one queued position, which overrides SetPointer for
// that tick.
func (r *Runtime) InjectPointer(x, y float64) {
	r.inject = append(r.inject, Vec2{X: x, Y: y})
}

// InjectPath queues a straight pointer movement from one screen position
// to another, one position per tick over the given number of ticks. The
// minimum is 2 (start and end).
func (r *Runtime) InjectPath(fromX, fromY, toX, toY float64, ticks int) {
	if ticks < 2 {
		ticks = 2
	}
	r.InjectPointer(fromX, fromY)
	steps := ticks - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		r.InjectPointer(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	r.InjectPointer(toX, toY)
}

// Pending returns the number of queued pointer positions.
func (r *Runtime) Pending() int {
	return len(r.inject)
}

// popInjected moves the next queued position into the live pointer.
func (r *Runtime) popInjected() bool {
	if len(r.inject) == 0 {
		return false
	}
	r.pointer = r.inject[0]
	copy(r.inject, r.inject[1:])
	r.inject = r.inject[:len(r.inject)-1]
	return true
}
