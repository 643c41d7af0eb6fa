// Package input turns raw device state into one intent sample per tick.
package input

import "brawl/internal/sim"

// Device is the raw input source. Held reports level-triggered key state.
// ConsumeFire is edge-triggered: it reports a mouse release at most once and
// clears the capture. ResetJump clears the jump press so a single key press
// cannot trip the double-jump detector on consecutive ticks.
type Device interface {
	Held() (left, right, jump bool)
	ConsumeFire() (at sim.Vec2, ok bool)
	ResetJump()
}

type Sampler struct {
	dev Device
}

func NewSampler(dev Device) *Sampler {
	return &Sampler{dev: dev}
}

// Sample reads the device once and produces the tick's input. The jump press
// is consumed: jumping again requires a fresh press.
func (s *Sampler) Sample(tick uint32) sim.Input {
	left, right, jump := s.dev.Held()

	in := sim.Input{Tick: tick}
	if right {
		in.Move.X += 1
	}
	if left {
		in.Move.X -= 1
	}
	if jump {
		in.Move.Y = -1
		s.dev.ResetJump()
	}

	if at, ok := s.dev.ConsumeFire(); ok {
		in.Fire = true
		in.FireAt = at
	}

	return in
}
