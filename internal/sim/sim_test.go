package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brawl/internal/sim"
)

var platforms = []sim.Platform{
	{X: 180, Y: 520, W: 260},
}

func TestStep_Deterministic(t *testing.T) {
	body := sim.NewBody(sim.Vec2{X: 300, Y: sim.FloorY})
	move := sim.Vec2{X: 1, Y: -1}

	a := sim.Step(7, body, move, platforms)
	b := sim.Step(7, body, move, platforms)

	if a != b {
		t.Errorf("expected identical bodies; got %#v and %#v", a, b)
	}
}

func TestStep_ReplayEquivalence(t *testing.T) {
	start := sim.NewBody(sim.Vec2{X: 300, Y: sim.FloorY})
	moves := []sim.Vec2{
		{X: 1, Y: -1},
		{X: 1},
		{X: 1, Y: -1},
		{},
		{X: -1},
		{X: -1},
	}

	first := start
	for i, m := range moves {
		first = sim.Step(uint32(i), first, m, platforms)
	}

	second := start
	for i, m := range moves {
		second = sim.Step(uint32(i), second, m, platforms)
	}

	assert.Equal(t, first, second)
}

func TestStep_JumpAndDoubleJump(t *testing.T) {
	body := sim.NewBody(sim.Vec2{X: 600, Y: sim.FloorY})

	body = sim.Step(0, body, sim.Vec2{Y: -1}, nil)
	assert.False(t, body.Grounded)
	assert.True(t, body.DoubleJump)
	assert.Less(t, body.Vel, 0.0)

	// second press within the window spends the charge
	body = sim.Step(1, body, sim.Vec2{Y: -1}, nil)
	assert.False(t, body.DoubleJump)
	assert.Equal(t, -sim.JumpStrength+sim.Gravity, body.Vel)

	// third press airborne is a no-op
	before := body.Vel
	body = sim.Step(2, body, sim.Vec2{Y: -1}, nil)
	assert.Equal(t, before+sim.Gravity, body.Vel)
}

func TestStep_DoubleJumpWindowExpires(t *testing.T) {
	body := sim.NewBody(sim.Vec2{X: 600, Y: 100})
	body.Grounded = false
	body.LastJump = 0
	body.Vel = 0

	tick := uint32(sim.DoubleJumpWindow + 1)
	next := sim.Step(tick, body, sim.Vec2{Y: -1}, nil)
	assert.True(t, next.DoubleJump, "charge must survive an out-of-window press")
	assert.Equal(t, body.Vel+sim.Gravity, next.Vel)
}

func TestStep_FloorClamp(t *testing.T) {
	body := sim.NewBody(sim.Vec2{X: 600, Y: sim.FloorY - 5})
	body.Grounded = false
	body.DoubleJump = false
	body.Vel = 20

	body = sim.Step(0, body, sim.Vec2{}, nil)
	assert.Equal(t, float64(sim.FloorY), body.Pos.Y)
	assert.Equal(t, 0.0, body.Vel)
	assert.True(t, body.Grounded)
	assert.True(t, body.DoubleJump, "landing restores the double jump")
}

func TestStep_PlatformLanding(t *testing.T) {
	body := sim.NewBody(sim.Vec2{X: 300, Y: 515})
	body.Grounded = false
	body.Vel = 10

	body = sim.Step(0, body, sim.Vec2{}, platforms)
	assert.Equal(t, 520.0, body.Pos.Y)
	assert.True(t, body.Grounded)

	// no overlap: same fall next to the platform passes through
	miss := sim.NewBody(sim.Vec2{X: 600, Y: 515})
	miss.Grounded = false
	miss.Vel = 10
	miss = sim.Step(0, miss, sim.Vec2{}, platforms)
	assert.False(t, miss.Grounded)
	assert.Greater(t, miss.Pos.Y, 520.0)
}

func TestStep_RisingPassesThroughPlatform(t *testing.T) {
	body := sim.NewBody(sim.Vec2{X: 300, Y: 525})
	body.Grounded = false
	body.Vel = -12

	body = sim.Step(0, body, sim.Vec2{}, platforms)
	assert.False(t, body.Grounded)
	assert.Less(t, body.Pos.Y, 525.0)
}

func TestOnSurface(t *testing.T) {
	assert.True(t, sim.OnSurface(sim.Vec2{X: 10, Y: sim.FloorY}, nil))
	assert.True(t, sim.OnSurface(sim.Vec2{X: 300, Y: 520}, platforms))
	assert.False(t, sim.OnSurface(sim.Vec2{X: 600, Y: 520}, platforms))
	assert.False(t, sim.OnSurface(sim.Vec2{X: 300, Y: 400}, platforms))
}
