package input_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brawl/internal/input"
	"brawl/internal/sim"
)

type fakeDevice struct {
	left, right, jump bool

	fireAt  sim.Vec2
	hasFire bool
}

func (d *fakeDevice) Held() (bool, bool, bool) { return d.left, d.right, d.jump }

func (d *fakeDevice) ConsumeFire() (sim.Vec2, bool) {
	if !d.hasFire {
		return sim.Vec2{}, false
	}
	d.hasFire = false
	return d.fireAt, true
}

func (d *fakeDevice) ResetJump() { d.jump = false }

func TestSampler_Vector(t *testing.T) {
	dev := &fakeDevice{right: true, jump: true}
	s := input.NewSampler(dev)

	in := s.Sample(9)
	assert.Equal(t, uint32(9), in.Tick)
	assert.Equal(t, sim.Vec2{X: 1, Y: -1}, in.Move)

	dev.left = true
	dev.right = true
	in = s.Sample(10)
	assert.Equal(t, 0.0, in.Move.X, "opposing keys cancel")
}

func TestSampler_JumpConsumedPerSample(t *testing.T) {
	dev := &fakeDevice{jump: true}
	s := input.NewSampler(dev)

	in := s.Sample(0)
	assert.Equal(t, -1.0, in.Move.Y)

	// the press was consumed; holding the key must not re-trigger
	in = s.Sample(1)
	assert.Equal(t, 0.0, in.Move.Y)
}

func TestSampler_FireEdgeTriggered(t *testing.T) {
	dev := &fakeDevice{hasFire: true, fireAt: sim.Vec2{X: 320, Y: 200}}
	s := input.NewSampler(dev)

	in := s.Sample(0)
	assert.True(t, in.Fire)
	assert.Equal(t, sim.Vec2{X: 320, Y: 200}, in.FireAt)

	in = s.Sample(1)
	assert.False(t, in.Fire, "a release is captured exactly once")
}
