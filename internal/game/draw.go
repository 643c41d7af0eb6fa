package game

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"brawl/assets"
	"brawl/internal/protocol"
	"brawl/internal/sim"
)

func (g *Game) Layout(int, int) (int, int) {
	return sim.ScreenWidth, sim.ScreenHeight
}

func (g *Game) Draw(screen *ebiten.Image) {
	drawRect(screen, assets.Surface, 0, sim.FloorY, sim.ScreenWidth, sim.ScreenHeight-sim.FloorY)
	for _, p := range g.predictor.Platforms() {
		drawRect(screen, assets.Surface, p.X, p.Y, p.W, 10)
	}

	for _, p := range g.remotePlayers() {
		img := assets.Enemy
		if p.Bystander {
			img = assets.Bystander
		}
		g.drawPlayer(screen, img, p.Pos, p.ID)
	}

	g.drawPlayer(screen, assets.Player, g.predictor.Position(), g.localID)

	for _, p := range g.tracker.Projectiles() {
		drawRect(screen, assets.Projectile,
			p.Pos.X-sim.ProjectileSize/2, p.Pos.Y-sim.ProjectileSize/2,
			sim.ProjectileSize, sim.ProjectileSize)
	}

	text.Draw(
		screen,
		fmt.Sprintf("ping %dms", g.conn.RTT().Milliseconds()),
		&text.GoTextFace{Source: assets.MPlus1pRegular, Size: 18},
		&text.DrawOptions{},
	)
}

func (g *Game) drawPlayer(screen *ebiten.Image, img *ebiten.Image, pos sim.Vec2, id uint16) {
	drawRect(screen, img,
		pos.X-sim.PlayerWidth/2, pos.Y-sim.PlayerHeight,
		sim.PlayerWidth, sim.PlayerHeight)

	hp, ok := g.tracker.Health(id)
	if !ok {
		hp = sim.MaxHealth
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(pos.X-sim.PlayerWidth/2, pos.Y-sim.PlayerHeight-22)
	text.Draw(screen, fmt.Sprintf("%d", hp), &text.GoTextFace{
		Source: assets.MPlus1pRegular,
		Size:   16,
	}, op)
}

func drawRect(screen, img *ebiten.Image, x, y, w, h float64) {
	var m ebiten.GeoM
	m.Scale(w, h)
	m.Translate(x, y)
	screen.DrawImage(img, &ebiten.DrawImageOptions{GeoM: m})
}

// remotePlayers interpolates everyone else between the two most recent
// snapshots.
//
// We'd ideally interpolate from the last snapshot to one in the future, but
// both snapshots we hold have already happened, so the render is forced to
// run a little behind reality: t is how far $now - next$ has progressed over
// the gap between the two snapshots, not $now - prev$.
func (g *Game) remotePlayers() []protocol.PlayerState {
	g.snapshotLock.Lock()
	prev, next := g.prevSnapshot, g.nextSnapshot
	g.snapshotLock.Unlock()

	if next.t.IsZero() {
		return nil
	}

	players := make([]protocol.PlayerState, 0, len(next.s.Players))
	if prev.t.IsZero() || !next.t.After(prev.t) {
		for _, p := range next.s.Players {
			if p.ID != g.localID {
				players = append(players, p)
			}
		}
		return players
	}

	t := time.Since(next.t).Seconds() / next.t.Sub(prev.t).Seconds()
	for _, p := range next.s.Players {
		if p.ID == g.localID {
			continue
		}
		if prior, ok := prev.s.Player(p.ID); ok {
			p.Pos = prior.Pos.Lerp(p.Pos, t)
		}
		players = append(players, p)
	}
	return players
}
