package sim

import "time"

const (
	TickRate     = 60
	TickDuration = time.Second / TickRate

	// Upper bound on the wall-clock delta fed into the scheduler per render
	// frame; anything larger is a stall and gets clamped instead of firing
	// an unbounded burst of catch-up ticks.
	MaxFrameDelta = 100 * time.Millisecond

	// Capacity of the input and state ring buffers. Reconciliation cannot
	// reach further back than this many ticks.
	BufferCap = 1024
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720

	PlayerWidth  = 40
	PlayerHeight = 60

	ProjectileSize = 10

	// FloorY is the y coordinate of the arena floor surface. Positions are
	// measured at the player's feet (bottom center), y growing downward.
	FloorY = 680
)

const (
	MoveSpeed    = 5.0
	JumpStrength = 13.0
	Gravity      = 0.7

	// A second jump press within this many ticks of the first, while
	// airborne, spends the double-jump charge.
	DoubleJumpWindow = 24

	ProjectileSpeed  = 18.0
	ProjectileTTL    = 180
	ProjectileDamage = 10
	MaxHealth        = 100

	// PendingHitTimeout is how many ticks a locally predicted hit waits for
	// server confirmation before the prediction is reverted. 120 ticks at
	// 60 Hz is the 2 s window the server is expected to confirm within.
	PendingHitTimeout = 120

	// Positional divergence below this is floating-point jitter, not a
	// mispredicted tick, and must not trigger a resimulation.
	ReconcileEpsilon = 1e-3
)

// Input is the intent sampled for exactly one tick. Move.X is -1/0/+1,
// Move.Y is -1 while a fresh jump press is held. Fire carries a one-shot
// mouse-release capture. Immutable once buffered.
type Input struct {
	Tick   uint32
	Move   Vec2
	Fire   bool
	FireAt Vec2
}

// Body is the simulated state of one player. Pos is the feet position.
// LastJump is carried inside the body so the double-tap window check stays a
// pure function of (tick, body, input) and replays deterministically.
type Body struct {
	Pos        Vec2
	Vel        float64
	Grounded   bool
	DoubleJump bool
	LastJump   uint32
	Bystander  bool
}

func NewBody(spawn Vec2) Body {
	return Body{
		Pos:        spawn,
		Grounded:   true,
		DoubleJump: true,
	}
}

// Platform is a one-sided horizontal surface: players fall through it upward
// and land on it when crossing the top while moving down.
type Platform struct {
	X, Y, W float64
}

// Step advances body by one fixed tick under move. It is pure with respect
// to its arguments: identical (tick, body, move, platforms) produce a
// bit-identical result, which resimulation after reconciliation relies on.
func Step(tick uint32, body Body, move Vec2, platforms []Platform) Body {
	body.Pos.X += move.X * MoveSpeed
	if body.Pos.X < 0 {
		body.Pos.X = 0
	} else if body.Pos.X > ScreenWidth {
		body.Pos.X = ScreenWidth
	}

	if move.Y < 0 {
		if body.Grounded {
			body.Vel = -JumpStrength
			body.Grounded = false
			body.LastJump = tick
		} else if body.DoubleJump && tick-body.LastJump <= DoubleJumpWindow {
			body.Vel = -JumpStrength
			body.DoubleJump = false
			body.LastJump = tick
		}
	}

	prevY := body.Pos.Y
	body.Vel += Gravity
	body.Pos.Y += body.Vel

	if body.Vel > 0 {
		for _, p := range platforms {
			if body.Pos.X+PlayerWidth/2 < p.X || body.Pos.X-PlayerWidth/2 > p.X+p.W {
				continue
			}
			if prevY <= p.Y && body.Pos.Y >= p.Y {
				body = body.land(p.Y)
				break
			}
		}
	}
	if body.Pos.Y >= FloorY {
		body = body.land(FloorY)
	}

	return body
}

func (b Body) land(surface float64) Body {
	b.Pos.Y = surface
	b.Vel = 0
	b.Grounded = true
	b.DoubleJump = true
	return b
}

// OnSurface reports whether feet at pos rest on the floor or a platform top.
// Used to re-derive the grounded flag after snapping to a server position,
// which carries no grounded bit.
func OnSurface(pos Vec2, platforms []Platform) bool {
	if pos.Y >= FloorY {
		return true
	}
	for _, p := range platforms {
		if pos.Y == p.Y && pos.X+PlayerWidth/2 >= p.X && pos.X-PlayerWidth/2 <= p.X+p.W {
			return true
		}
	}
	return false
}

// Rect is the body's bounding box, derived from the feet position.
func (b Body) Rect() (minX, minY, maxX, maxY float64) {
	return b.Pos.X - PlayerWidth/2, b.Pos.Y - PlayerHeight,
		b.Pos.X + PlayerWidth/2, b.Pos.Y
}
