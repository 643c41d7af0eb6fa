// Package loop decouples the variable-rate render callback from the
// fixed-rate simulation tick with a time accumulator.
package loop

import (
	"time"

	"brawl/internal/sim"
)

type Scheduler struct {
	acc  time.Duration
	tick uint32
}

func New() *Scheduler {
	return &Scheduler{}
}

// Tick is the next tick to be simulated.
func (s *Scheduler) Tick() uint32 { return s.tick }

// Remainder is the accumulated time not yet consumed by a whole tick.
func (s *Scheduler) Remainder() time.Duration { return s.acc }

// Alpha is the fraction of a tick the accumulator currently holds, for
// render interpolation.
func (s *Scheduler) Alpha() float64 {
	return float64(s.acc) / float64(sim.TickDuration)
}

// Advance clamps delta to sim.MaxFrameDelta, accumulates it, and fires fn
// once per whole sim.TickDuration accumulated, passing the tick number and
// incrementing the counter afterwards. Zero or several ticks may fire for a
// single call. fn must not block; everything runs on the caller's goroutine.
func (s *Scheduler) Advance(delta time.Duration, fn func(tick uint32)) int {
	if delta > sim.MaxFrameDelta {
		delta = sim.MaxFrameDelta
	}
	if delta < 0 {
		delta = 0
	}
	s.acc += delta

	fired := 0
	for s.acc >= sim.TickDuration {
		tick := s.tick
		fn(tick)
		// fn may have fast-forwarded the counter via SetTick; only
		// increment when it didn't.
		if s.tick == tick {
			s.tick++
		}
		s.acc -= sim.TickDuration
		fired++
	}
	return fired
}

// SetTick fast-forwards (or rewinds) the counter. Reconciliation uses this
// when the server is ahead of the client after a stall.
func (s *Scheduler) SetTick(tick uint32) {
	s.tick = tick
}

// Reset clears the accumulator and counter at session teardown.
func (s *Scheduler) Reset() {
	s.acc = 0
	s.tick = 0
}
