// Package predict applies local input to the local player immediately and
// reconciles the result against authoritative server snapshots, replaying
// buffered inputs when they diverge (rollback netcode).
package predict

import (
	"log/slog"

	"brawl/internal/protocol"
	"brawl/internal/ringbuf"
	"brawl/internal/sim"
)

// Outcome reports what Reconcile did with a snapshot.
type Outcome int

const (
	// OutcomeClean: buffered state matched the server within epsilon.
	OutcomeClean Outcome = iota
	// OutcomeResimulated: buffered state diverged; the baseline was corrected
	// and every later buffered input was replayed on top of it.
	OutcomeResimulated
	// OutcomeFastForwarded: the server was at or ahead of the local tick; the
	// body was hard-snapped and the caller must advance its tick counter to
	// the returned value. Unacknowledged prediction for the span is lost.
	OutcomeFastForwarded
	// OutcomeStale: the snapshot references a tick already evicted from the
	// ring buffer. Reconciliation was skipped; the next snapshot will catch
	// up. Log-worthy, not fatal.
	OutcomeStale
)

type Predictor struct {
	body      sim.Body
	platforms []sim.Platform

	inputs *ringbuf.Buffer[sim.Input]
	// Full bodies, not just positions: a replay must seed from the jump
	// state that held at the corrected tick, not from the present one.
	states *ringbuf.Buffer[sim.Body]
}

func New(spawn sim.Vec2, platforms []sim.Platform) *Predictor {
	return &Predictor{
		body:      sim.NewBody(spawn),
		platforms: platforms,
		inputs:    ringbuf.New[sim.Input](sim.BufferCap),
		states:    ringbuf.New[sim.Body](sim.BufferCap),
	}
}

func (p *Predictor) Body() sim.Body            { return p.body }
func (p *Predictor) Position() sim.Vec2        { return p.body.Pos }
func (p *Predictor) Platforms() []sim.Platform { return p.platforms }

// Apply buffers the tick's input, advances the body one step, and buffers
// the resulting body for later reconciliation.
func (p *Predictor) Apply(tick uint32, in sim.Input) {
	p.inputs.Put(tick, in)
	p.body = sim.Step(tick, p.body, in.Move, p.platforms)
	p.states.Put(tick, p.body)
}

// Reconcile compares the server's state for the local player against the
// buffered prediction for the same tick. current is the next local tick to
// be simulated. The returned tick is current, except after a fast-forward.
func (p *Predictor) Reconcile(server protocol.PlayerState, current uint32) (uint32, Outcome) {
	if server.Tick >= current {
		// Server ahead of client (stall, resume from pause). Consistency
		// wins over the unacknowledged prediction: snap and fast-forward.
		p.snap(server)
		p.states.Put(server.Tick, p.body)
		slog.Warn("server ahead of client, fast-forwarding",
			"server_tick", server.Tick, "local_tick", current)
		return server.Tick + 1, OutcomeFastForwarded
	}

	local, ok := p.states.Get(server.Tick)
	if !ok {
		slog.Warn("snapshot tick evicted from state buffer, skipping reconciliation",
			"server_tick", server.Tick, "local_tick", current)
		return current, OutcomeStale
	}

	if server.Pos.Sub(local.Pos).Magnitude() <= sim.ReconcileEpsilon {
		return current, OutcomeClean
	}

	// Correct the baseline, then replay every buffered input after it so
	// unconfirmed local input is preserved rather than discarded. The replay
	// seeds from the buffered body at the server tick, overriding only what
	// the server actually reports; LastJump and the double-jump charge keep
	// their historical values.
	body := local
	body.Pos = server.Pos
	body.Vel = server.Vel.Y
	body.Grounded = sim.OnSurface(server.Pos, p.platforms)
	body.Bystander = server.Bystander
	p.states.Put(server.Tick, body)

	for tick := server.Tick + 1; tick < current; tick++ {
		in, ok := p.inputs.Get(tick)
		if !ok {
			// Should not happen while the span fits in the buffer; replay
			// with idle input rather than aborting mid-correction.
			slog.Warn("missing buffered input during replay", "tick", tick)
			in = sim.Input{Tick: tick}
		}
		body = sim.Step(tick, body, in.Move, p.platforms)
		p.states.Put(tick, body)
	}
	p.body = body

	return current, OutcomeResimulated
}

// BufferedState returns the predicted body recorded for tick.
func (p *Predictor) BufferedState(tick uint32) (sim.Body, bool) {
	return p.states.Get(tick)
}

// BufferedInput returns the input recorded for tick.
func (p *Predictor) BufferedInput(tick uint32) (sim.Input, bool) {
	return p.inputs.Get(tick)
}

func (p *Predictor) snap(server protocol.PlayerState) {
	p.body.Pos = server.Pos
	p.body.Vel = server.Vel.Y
	p.body.Grounded = sim.OnSurface(server.Pos, p.platforms)
	p.body.Bystander = server.Bystander
}

// Reset drops all buffered input and state. Part of session teardown; no
// tick may run against the predictor between Reset and the next spawn.
func (p *Predictor) Reset(spawn sim.Vec2) {
	p.body = sim.NewBody(spawn)
	p.inputs.Reset()
	p.states.Reset()
}
