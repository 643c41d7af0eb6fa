package game

import (
	"github.com/hajimehoshi/ebiten/v2"

	"brawl/internal/sim"
)

// device adapts ebiten key/mouse state to input.Device. poll runs once per
// render frame; the mouse-release capture is edge-triggered and survives
// until a sampler consumes it, the jump press stays consumed until the key
// is physically released.
type device struct {
	mouseDown    bool
	fireAt       sim.Vec2
	fireCaptured bool

	jumpConsumed bool
}

func (d *device) poll() {
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if d.mouseDown && !pressed {
		x, y := ebiten.CursorPosition()
		d.fireAt = sim.Vec2{X: float64(x), Y: float64(y)}
		d.fireCaptured = true
	}
	d.mouseDown = pressed

	if !jumpHeld() {
		d.jumpConsumed = false
	}
}

func jumpHeld() bool {
	return ebiten.IsKeyPressed(ebiten.KeyW) ||
		ebiten.IsKeyPressed(ebiten.KeySpace) ||
		ebiten.IsKeyPressed(ebiten.KeyArrowUp)
}

func (d *device) Held() (left, right, jump bool) {
	left = ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft)
	right = ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight)
	jump = jumpHeld() && !d.jumpConsumed
	return left, right, jump
}

func (d *device) ConsumeFire() (sim.Vec2, bool) {
	if !d.fireCaptured {
		return sim.Vec2{}, false
	}
	d.fireCaptured = false
	return d.fireAt, true
}

func (d *device) ResetJump() {
	d.jumpConsumed = true
}
