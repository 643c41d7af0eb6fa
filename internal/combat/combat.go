// Package combat predicts projectile hits locally so damage shows up
// without waiting a round trip, and squares those predictions with the
// server's next snapshots: confirmed hits adopt authoritative health,
// unconfirmed ones revert after a timeout.
package combat

import (
	"fmt"
	"log/slog"

	"brawl/internal/protocol"
	"brawl/internal/sim"
)

// Projectile is a live projectile tracked client-side. Born drives a
// tick-counted TTL; no host timers, so aging replays deterministically.
type Projectile struct {
	ID    string
	Owner uint16
	Pos   sim.Vec2
	Vel   sim.Vec2
	Born  uint32
}

type pendingHit struct {
	target     uint16
	projectile string
	created    uint32
}

type Tracker struct {
	localID uint16

	own     []Projectile
	hostile []Projectile

	predicted     map[uint16]int
	authoritative map[uint16]int

	pending []pendingHit

	// Projectiles removed locally (hit or expired); snapshots that still
	// carry them are suppressed until the server catches up.
	destroyed map[string]uint32

	nextID uint32
}

func NewTracker(localID uint16) *Tracker {
	return &Tracker{
		localID:       localID,
		predicted:     map[uint16]int{},
		authoritative: map[uint16]int{},
		destroyed:     map[string]uint32{},
	}
}

// Spawn creates a locally owned projectile flying from origin toward target
// and returns it so the caller can announce it to the server. IDs are
// client-generated, which is what lets a snapshot echo line up with the
// predicted projectile.
func (t *Tracker) Spawn(tick uint32, origin, target sim.Vec2) Projectile {
	p := Projectile{
		ID:    fmt.Sprintf("%d-%d", t.localID, t.nextID),
		Owner: t.localID,
		Pos:   origin,
		Vel:   target.Sub(origin).Normalize().Mul(sim.ProjectileSpeed),
		Born:  tick,
	}
	t.nextID++
	t.own = append(t.own, p)
	return p
}

// Tick advances every tracked projectile one step, expires ones past their
// TTL, and tests hits: own projectiles against enemies and hostile
// projectiles against the local player. The first overlap destroys the
// projectile, applies predicted damage, and registers a pending collision
// awaiting server confirmation. Bystanders are exempt on both sides.
func (t *Tracker) Tick(tick uint32, bodies map[uint16]sim.Body) {
	t.own = t.advance(tick, t.own)
	t.hostile = t.advance(tick, t.hostile)

	local, hasLocal := bodies[t.localID]

	kept := t.own[:0]
	for _, p := range t.own {
		hit := false
		for id, body := range bodies {
			if id == t.localID || body.Bystander {
				continue
			}
			if overlaps(p, body) {
				t.registerHit(tick, id, p.ID)
				hit = true
				break
			}
		}
		if hit {
			t.destroyed[p.ID] = tick
		} else {
			kept = append(kept, p)
		}
	}
	t.own = kept

	if !hasLocal || local.Bystander {
		return
	}
	kept = t.hostile[:0]
	for _, p := range t.hostile {
		if overlaps(p, local) {
			t.registerHit(tick, t.localID, p.ID)
			t.destroyed[p.ID] = tick
		} else {
			kept = append(kept, p)
		}
	}
	t.hostile = kept
}

func (t *Tracker) advance(tick uint32, ps []Projectile) []Projectile {
	kept := ps[:0]
	for _, p := range ps {
		// Born can sit ahead of the local tick for projectiles ingested from
		// a snapshot before the clocks line up; age is zero until then, and
		// the unsigned subtraction must not run backwards.
		if p.Born <= tick && tick-p.Born > sim.ProjectileTTL {
			t.destroyed[p.ID] = tick
			continue
		}
		p.Pos = p.Pos.Add(p.Vel)
		kept = append(kept, p)
	}
	return kept
}

func (t *Tracker) registerHit(tick uint32, target uint16, projectile string) {
	hp, ok := t.predicted[target]
	if !ok {
		hp = sim.MaxHealth
		t.authoritative[target] = sim.MaxHealth
	}
	hp -= sim.ProjectileDamage
	if hp < 0 {
		hp = 0
	}
	t.predicted[target] = hp
	t.pending = append(t.pending, pendingHit{
		target:     target,
		projectile: projectile,
		created:    tick,
	})
	slog.Debug("predicted hit", "target", target, "projectile", projectile, "hp", hp)
}

// ApplySnapshot folds authoritative state in. Health for an entity with an
// outstanding pending collision is adopted only when it confirms the
// prediction (server hp at or below predicted); otherwise the update is
// suppressed so the predicted damage doesn't visibly flicker back. Entities
// seen for the first time are spawns, not errors.
//
// Known limitation, kept on purpose: outside confirmation, server health
// only ever moves the predicted value down. Server-side regeneration would
// need this policy revisited.
func (t *Tracker) ApplySnapshot(snap protocol.Snapshot) {
	for _, p := range snap.Players {
		hp := int(p.HP)
		if t.hasPending(p.ID) {
			if hp <= t.predicted[p.ID] {
				t.confirm(p.ID, hp)
			}
			continue
		}

		t.authoritative[p.ID] = hp
		if cur, ok := t.predicted[p.ID]; !ok || hp < cur {
			t.predicted[p.ID] = hp
		}
	}

	hostile := t.hostile[:0]
	for _, p := range snap.Projectiles {
		if p.Owner == t.localID {
			continue
		}
		if _, gone := t.destroyed[p.ID]; gone {
			continue
		}
		hostile = append(hostile, Projectile{
			ID:    p.ID,
			Owner: p.Owner,
			Pos:   p.Pos,
			Vel:   p.Vel,
			Born:  snap.Tick,
		})
	}
	t.hostile = hostile
}

func (t *Tracker) hasPending(target uint16) bool {
	for _, p := range t.pending {
		if p.target == target {
			return true
		}
	}
	return false
}

func (t *Tracker) confirm(target uint16, hp int) {
	kept := t.pending[:0]
	for _, p := range t.pending {
		if p.target != target {
			kept = append(kept, p)
		}
	}
	t.pending = kept
	t.authoritative[target] = hp
	t.predicted[target] = hp
	slog.Debug("confirmed hit", "target", target, "hp", hp)
}

// Expire reverts pending collisions that outlived the confirmation window:
// predicted health rolls back to the last authoritative value, on the
// assumption the server rejected or never saw the hit. Also garbage-collects
// stale destroyed-projectile records.
func (t *Tracker) Expire(tick uint32) {
	kept := t.pending[:0]
	for _, p := range t.pending {
		if tick-p.created <= sim.PendingHitTimeout {
			kept = append(kept, p)
			continue
		}
		t.predicted[p.target] = t.authoritative[p.target]
		slog.Warn("pending hit expired unconfirmed, reverting prediction",
			"target", p.target, "projectile", p.projectile,
			"hp", t.authoritative[p.target])
	}
	t.pending = kept

	for id, died := range t.destroyed {
		if tick-died > 2*sim.ProjectileTTL {
			delete(t.destroyed, id)
		}
	}
}

// Health returns the predicted health shown for id.
func (t *Tracker) Health(id uint16) (int, bool) {
	hp, ok := t.predicted[id]
	return hp, ok
}

// Authoritative returns the last server-confirmed health for id.
func (t *Tracker) Authoritative(id uint16) (int, bool) {
	hp, ok := t.authoritative[id]
	return hp, ok
}

// Projectiles returns every live projectile for rendering.
func (t *Tracker) Projectiles() []Projectile {
	out := make([]Projectile, 0, len(t.own)+len(t.hostile))
	out = append(out, t.own...)
	out = append(out, t.hostile...)
	return out
}

// Reset clears own projectiles, pending collisions, and the destroyed set.
// Run on gameOver and matchReset; authoritative health is refreshed by the
// next snapshot.
func (t *Tracker) Reset() {
	t.own = nil
	t.hostile = nil
	t.pending = nil
	t.destroyed = map[string]uint32{}
}

func overlaps(p Projectile, b sim.Body) bool {
	minX, minY, maxX, maxY := b.Rect()
	const half = sim.ProjectileSize / 2.0
	return p.Pos.X+half >= minX && p.Pos.X-half <= maxX &&
		p.Pos.Y+half >= minY && p.Pos.Y-half <= maxY
}
