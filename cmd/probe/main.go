/*
Package main is a headless room client.

It joins a room, walks its own player around a circle at the configured update
cadence, mirrors everyone else and interpolates their positions on its own tick,
logging what a presentation layer would draw. Lines read from stdin are posted
to the room chat.
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncroom/internal/app/interp"
	"syncroom/internal/app/mirror"
	"syncroom/internal/app/peer"
	"syncroom/internal/configs"
	"syncroom/internal/pkg/logx"
	"syncroom/internal/pkg/vec"
)

const (
	walkRadius = 5.0
	walkPeriod = 20 * time.Second
	reportRate = time.Second
)

func main() {
	cfg, err := configs.LoadPeerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	smoother, err := interp.New(cfg.Blend)
	if err != nil {
		logx.Fatal(err, "Invalid blend factor")
	}

	log := logx.Component("Probe")
	events := mirror.Funcs{
		PlayerAdded: func(p mirror.Player) {
			log.Info().Str("session_id", p.SessionID).Bool("self", p.Self).Msg("Player added.")
		},
		PlayerRemoved: func(p mirror.Player) {
			log.Info().Str("session_id", p.SessionID).Msg("Player removed.")
		},
		MessageAdded: func(m mirror.Message) {
			log.Info().Str("author", m.Author).Uint64("index", m.Seq).Msg(m.Text)
		},
	}

	p, err := peer.Dial(ctx, cfg.ServerURL, cfg.Room, peer.Options{
		Listeners: []mirror.Listener{smoother, events},
	})
	if err != nil {
		logx.Fatal(err, "Failed to join room", "room", cfg.Room)
	}
	defer p.Close()

	started := time.Now()
	walk := func() vec.Vec3 {
		angle := 2 * math.Pi * time.Since(started).Seconds() / walkPeriod.Seconds()
		return vec.New(walkRadius*math.Cos(angle), 0, walkRadius*math.Sin(angle))
	}

	go func() {
		if err := p.RunPositionFeed(ctx, walk, cfg.UpdateInterval, cfg.SendOnChange); err != nil && ctx.Err() == nil {
			logx.Error(err, "Position feed stopped")
		}
	}()

	go readChat(ctx, p)

	lastReport := time.Now()
	go smoother.Run(ctx, cfg.TickInterval, func(samples []interp.Sample) {
		if time.Since(lastReport) < reportRate {
			return
		}
		lastReport = time.Now()
		for _, s := range samples {
			log.Debug().
				Str("session_id", s.SessionID).
				Float64("x", s.Position.X).
				Float64("y", s.Position.Y).
				Float64("z", s.Position.Z).
				Msg("Rendered position.")
		}
	})

	select {
	case <-ctx.Done():
		if err := p.Leave(); err != nil {
			logx.Warn("Failed to leave room cleanly.", "error", err.Error())
		}
		select {
		case <-p.Done():
		case <-time.After(time.Second):
		}
	case <-p.Done():
		if err := p.Err(); err != nil {
			logx.Fatal(err, "Connection lost")
		}
	}

	logx.Info("Probe stopped.")
}

func readChat(ctx context.Context, p *peer.Peer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := p.SendMessage(scanner.Text()); err != nil {
			logx.Error(err, "Failed to send chat message")
			return
		}
	}
}
