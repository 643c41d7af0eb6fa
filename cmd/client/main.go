package main

import (
	"flag"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"

	"brawl/internal/cli"
	_ "brawl/internal/config"
	"brawl/internal/game"
	"brawl/internal/sim"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:3000", "server address")
	flag.Parse()

	ctx, cancel := cli.NewSignalContext()
	defer cancel()

	g, err := game.New(ctx, *addr)
	if err != nil {
		slog.Error("failed to initialize game", "error", err)
		return
	}
	defer func() {
		err = g.Close(ctx)
		if err != nil {
			slog.Error("failed to close game", "error", err)
		}
	}()

	ebiten.SetWindowTitle("Brawl")
	ebiten.SetWindowSize(sim.ScreenWidth, sim.ScreenHeight)
	err = ebiten.RunGame(g)
	if err != nil {
		slog.Error("failed to run game", "error", err)
		return
	}
}
