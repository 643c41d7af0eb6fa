// Package game wires the predicted client together: fixed-step scheduler,
// input sampling, local prediction, reconciliation, combat prediction, and
// the session transport, behind an ebiten.Game.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	"brawl/internal/combat"
	"brawl/internal/input"
	"brawl/internal/loop"
	"brawl/internal/predict"
	"brawl/internal/protocol"
	"brawl/internal/sim"
	"brawl/internal/transport"
)

// DefaultArena is the platform layout every match uses until the server
// starts sending level data.
var DefaultArena = []sim.Platform{
	{X: 180, Y: 520, W: 260},
	{X: 840, Y: 520, W: 260},
	{X: 500, Y: 360, W: 280},
}

var spawnPoint = sim.Vec2{X: sim.ScreenWidth / 2, Y: sim.FloorY}

type snapshot struct {
	s protocol.Snapshot
	t time.Time
}

type Game struct {
	conn *transport.Conn
	mux  *transport.Mux

	gameOverCh   <-chan []byte
	matchResetCh <-chan []byte

	localID uint16

	sched     *loop.Scheduler
	dev       *device
	sampler   *input.Sampler
	predictor *predict.Predictor
	tracker   *combat.Tracker

	// Latest unprocessed snapshot slot, last-write-wins; the prev/next pair
	// feeds remote-player interpolation.
	snapshotLock sync.Mutex
	latest       protocol.Snapshot
	hasLatest    bool
	prevSnapshot snapshot
	nextSnapshot snapshot

	lastFrame time.Time
	prevMove  sim.Vec2

	loops   *errgroup.Group
	cancel  context.CancelFunc
	closing bool
}

// New dials the server, performs the join handshake, and starts the
// receive and ping loops. The context bounds the handshake.
func New(ctx context.Context, raddr string) (*Game, error) {
	conn, err := transport.Dial(ctx, raddr)
	if err != nil {
		return nil, err
	}

	localID, err := join(ctx, conn)
	if err != nil {
		err = fmt.Errorf("joining match: %w", err)
		return nil, errors.Join(err, conn.Close())
	}
	slog.Info("joined match", "player_id", localID)

	mux := transport.NewMux(conn)
	snapshotCh := mux.Subscribe(protocol.ScopeSnapshot, 1)
	gameOverCh := mux.Subscribe(protocol.ScopeGameOver, 1)
	matchResetCh := mux.Subscribe(protocol.ScopeMatchReset, 1)

	dev := &device{}
	g := &Game{
		conn:         conn,
		mux:          mux,
		gameOverCh:   gameOverCh,
		matchResetCh: matchResetCh,
		localID:      localID,
		sched:        loop.New(),
		dev:          dev,
		sampler:      input.NewSampler(dev),
		predictor:    predict.New(spawnPoint, DefaultArena),
		tracker:      combat.NewTracker(localID),
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.loops, _ = errgroup.WithContext(loopCtx)
	g.loops.Go(func() error {
		mux.Run(slog.Warn)
		return nil
	})
	g.loops.Go(func() error {
		err := conn.PingLoop(loopCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.loops.Go(func() error {
		g.snapshotLoop(snapshotCh)
		return nil
	})

	return g, nil
}

// join sends ScopeJoin and waits for the assigned player id. Runs before
// the mux starts, so reading the connection directly here is safe.
func join(ctx context.Context, conn *transport.Conn) (uint16, error) {
	err := conn.Send(protocol.ScopeJoin, nil)
	if err != nil {
		return 0, err
	}

	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	for time.Now().Before(deadline) {
		scope, body, err := conn.Receive()
		if err != nil {
			return 0, err
		}
		if scope != protocol.ScopeWelcome {
			continue
		}
		var w protocol.Welcome
		err = w.UnmarshalBinary(body)
		if err != nil {
			return 0, err
		}
		return w.PlayerID, nil
	}
	return 0, errors.New("no welcome before deadline")
}

// snapshotLoop consumes decoded snapshots into the latest slot. If two
// arrive between ticks the earlier one is discarded; server ticks are
// monotonic, so latest is always freshest.
func (g *Game) snapshotLoop(ch <-chan []byte) {
	for body := range ch {
		var s protocol.Snapshot
		err := s.UnmarshalBinary(body)
		if err != nil {
			slog.Warn("failed to unmarshal snapshot", "error", err)
			continue
		}

		g.snapshotLock.Lock()
		if s.Tick < g.latest.Tick {
			g.snapshotLock.Unlock()
			slog.Warn("snapshot tick went backwards, dropping",
				"tick", s.Tick, "latest", g.latest.Tick)
			continue
		}
		g.prevSnapshot = g.nextSnapshot
		g.nextSnapshot = snapshot{s: s, t: time.Now()}
		g.latest = s
		g.hasLatest = true
		g.snapshotLock.Unlock()
	}
}

func (g *Game) Update() error {
	if g.closing {
		return ebiten.Termination
	}

	g.drainLifecycle()
	g.dev.poll()

	now := time.Now()
	var delta time.Duration
	if !g.lastFrame.IsZero() {
		delta = now.Sub(g.lastFrame)
	}
	g.lastFrame = now

	g.sched.Advance(delta, g.step)
	return nil
}

// step runs once per simulation tick: reconcile, sample, predict, combat,
// broadcast. Must not block.
func (g *Game) step(tick uint32) {
	if snap, ok := g.takeLatest(); ok {
		if server, ok := snap.Player(g.localID); ok {
			next, outcome := g.predictor.Reconcile(server, tick)
			if outcome == predict.OutcomeFastForwarded {
				g.sched.SetTick(next)
				tick = next
			}
		}
		g.tracker.ApplySnapshot(snap)
	}

	g.tracker.Expire(tick)

	in := g.sampler.Sample(tick)
	g.predictor.Apply(tick, in)

	if in.Fire {
		g.shoot(tick, in.FireAt)
	}

	g.tracker.Tick(tick, g.bodies())
	g.broadcastInput(in)
}

func (g *Game) takeLatest() (protocol.Snapshot, bool) {
	g.snapshotLock.Lock()
	defer g.snapshotLock.Unlock()
	if !g.hasLatest {
		return protocol.Snapshot{}, false
	}
	g.hasLatest = false
	return g.latest, true
}

// bodies collects collision targets for the combat tick: the predicted
// local body plus the last authoritative position of everyone else.
func (g *Game) bodies() map[uint16]sim.Body {
	out := map[uint16]sim.Body{g.localID: g.predictor.Body()}

	g.snapshotLock.Lock()
	players := g.latest.Players
	g.snapshotLock.Unlock()

	for _, p := range players {
		if p.ID == g.localID {
			continue
		}
		body := sim.NewBody(p.Pos)
		body.Bystander = p.Bystander
		out[p.ID] = body
	}
	return out
}

func (g *Game) shoot(tick uint32, target sim.Vec2) {
	origin := g.predictor.Position().Sub(sim.Vec2{Y: sim.PlayerHeight / 2})
	p := g.tracker.Spawn(tick, origin, target)

	msg := protocol.Shoot{Target: target, ID: p.ID}
	body, err := msg.MarshalBinary()
	if err != nil {
		slog.Warn("failed to marshal shoot", "error", err)
		return
	}
	err = g.conn.Send(protocol.ScopeShoot, body)
	if err != nil {
		slog.Warn("failed to send shoot", "error", err)
	}
}

// broadcastInput sends the tick's input under the throttle rule: airborne,
// or moving, or movement just stopped (the server needs to see the stop).
func (g *Game) broadcastInput(in sim.Input) {
	moving := in.Move.X != 0 || in.Move.Y != 0
	wasMoving := g.prevMove.X != 0 || g.prevMove.Y != 0
	g.prevMove = in.Move

	airborne := !g.predictor.Body().Grounded
	if !airborne && !moving && !wasMoving {
		return
	}

	msg := protocol.Input{Tick: in.Tick, Move: in.Move}
	body, err := msg.MarshalBinary()
	if err != nil {
		slog.Warn("failed to marshal input", "error", err)
		return
	}
	err = g.conn.Send(protocol.ScopeInput, body)
	if errors.Is(err, transport.ErrClosed) {
		g.closing = true
		return
	}
	if err != nil {
		slog.Warn("failed to send input", "error", err)
	}
}

// drainLifecycle consumes gameOver/matchReset signals. Both clear combat
// prediction state; the next snapshot repopulates the world.
func (g *Game) drainLifecycle() {
	for {
		select {
		case _, open := <-g.gameOverCh:
			if !open {
				g.closing = true
				return
			}
			slog.Info("game over")
			g.tracker.Reset()
		case _, open := <-g.matchResetCh:
			if !open {
				g.closing = true
				return
			}
			slog.Info("match reset")
			g.tracker.Reset()
			g.predictor.Reset(spawnPoint)
		default:
			return
		}
	}
}

// Close tears the session down atomically: the update loop stops before
// buffers are dropped, so no tick can run against destroyed state.
func (g *Game) Close(context.Context) error {
	g.closing = true
	g.cancel()

	err := g.conn.Close()
	if errors.Is(err, transport.ErrClosed) {
		err = nil
	}
	waitErr := g.loops.Wait()

	g.sched.Reset()
	g.predictor.Reset(spawnPoint)
	g.tracker.Reset()

	if err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return fmt.Errorf("join loops: %w", waitErr)
	}
	return nil
}
