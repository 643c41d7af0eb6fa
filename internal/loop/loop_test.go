package loop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"brawl/internal/loop"
	"brawl/internal/sim"
)

func TestScheduler_CatchUpClamped(t *testing.T) {
	sched := loop.New()

	// A 250 ms stall is clamped to 100 ms; at 60 Hz that is exactly 6 whole
	// ticks with a sub-tick remainder left in the accumulator.
	var ticks []uint32
	fired := sched.Advance(250*time.Millisecond, func(tick uint32) {
		ticks = append(ticks, tick)
	})

	assert.Equal(t, 6, fired)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, ticks)
	assert.Equal(t, uint32(6), sched.Tick())
	assert.Equal(t, sim.MaxFrameDelta-6*sim.TickDuration, sched.Remainder())
}

func TestScheduler_ZeroTickFrame(t *testing.T) {
	sched := loop.New()

	fired := sched.Advance(5*time.Millisecond, func(uint32) {
		t.Fatal("no tick should fire")
	})

	assert.Equal(t, 0, fired)
	assert.Equal(t, 5*time.Millisecond, sched.Remainder())

	// leftover accumulates across frames
	fired = sched.Advance(12*time.Millisecond, func(uint32) {})
	assert.Equal(t, 1, fired)
}

func TestScheduler_FastForwardInsideHandler(t *testing.T) {
	sched := loop.New()

	var ticks []uint32
	sched.Advance(2*sim.TickDuration, func(tick uint32) {
		ticks = append(ticks, tick)
		if tick == 0 {
			sched.SetTick(100)
		}
	})

	assert.Equal(t, []uint32{0, 100}, ticks)
	assert.Equal(t, uint32(101), sched.Tick())
}

func TestScheduler_Reset(t *testing.T) {
	sched := loop.New()
	sched.Advance(50*time.Millisecond, func(uint32) {})

	sched.Reset()
	assert.Equal(t, uint32(0), sched.Tick())
	assert.Equal(t, time.Duration(0), sched.Remainder())
}
