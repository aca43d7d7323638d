package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/control"
	"github.com/pthm-cable/plankton/feed"
	"github.com/pthm-cable/plankton/game"
	"github.com/pthm-cable/plankton/telemetry"
	"github.com/pthm-cable/plankton/ui"
)

const headlessDT = 1.0 / 60

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	scriptPath := flag.String("script", "", "Control script for script agents (overrides config)")
	serveAddr := flag.String("serve", "", "Serve the observer feed on this address (overrides config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *scriptPath != "" {
		cfg.Control.ScriptPath = *scriptPath
	}
	if *serveAddr != "" {
		cfg.Feed.Addr = *serveAddr
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	script, err := loadScript(cfg)
	if err != nil {
		slog.Error("failed to load script", "path", cfg.Control.ScriptPath, "error", err)
		os.Exit(1)
	}

	var output *telemetry.OutputManager
	if *outputDir != "" {
		output, err = telemetry.NewOutputManager(*outputDir)
		if err != nil {
			slog.Error("failed to create output dir", "error", err)
			os.Exit(1)
		}
		defer output.Close()
		if err := output.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	keys := control.NewKeyState()
	g, err := game.New(cfg, game.Options{
		Seed:     rngSeed,
		Keys:     keys,
		Script:   script,
		Output:   output,
		LogStats: *logStats,
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer g.Destroy()
	if err := g.Start(); err != nil {
		slog.Error("failed to start game", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &runner{game: g, maxTicks: *maxTicks, broadcastEach: max(cfg.Feed.BroadcastEach, 1)}
	if cfg.Feed.Addr != "" {
		r.hub = feed.NewHub(keys)
		go r.hub.Run(ctx)
		srv := &http.Server{Addr: cfg.Feed.Addr, Handler: r.hub.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("feed server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		slog.Info("serving observer feed", "addr", cfg.Feed.Addr)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"headless", *headless,
		"max_ticks", *maxTicks,
		"agents", cfg.Agents.Count,
	)

	if *headless {
		r.runHeadless(ctx)
		return
	}

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Plankton")
	defer rl.CloseWindow()
	rl.SetWindowState(rl.FlagWindowResizable)
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	r.view = ui.NewView(cfg, keys)
	r.runWindow(ctx)
}

// loadScript compiles the configured control script, if any.
func loadScript(cfg *config.Config) (*control.Script, error) {
	if cfg.Control.ScriptPath == "" {
		return nil, nil
	}
	src, err := os.ReadFile(cfg.Control.ScriptPath)
	if err != nil {
		return nil, err
	}
	mode, err := control.ParseScriptMode(cfg.Control.ScriptMode)
	if err != nil {
		return nil, err
	}
	return control.CompileScript(string(src), mode)
}

// runner drives a game from either the window loop or the headless loop.
type runner struct {
	game          *game.Game
	hub           *feed.Hub
	view          *ui.View
	maxTicks      int
	broadcastEach int
}

func (r *runner) runHeadless(ctx context.Context) {
	for ctx.Err() == nil {
		r.drainCommands()
		if !r.game.Tick(headlessDT) {
			// Paused: wait for an observer to resume.
			time.Sleep(10 * time.Millisecond)
			continue
		}
		r.publish()
		if r.done() {
			return
		}
	}
}

func (r *runner) runWindow(ctx context.Context) {
	for !rl.WindowShouldClose() && ctx.Err() == nil {
		r.apply(r.view.HandleInput())
		r.drainCommands()

		r.game.Tick(rl.GetFrameTime())
		r.publish()

		snap := r.game.Snapshot()
		r.apply(r.view.Draw(&snap, r.game.ManualOverride(), r.game.Perf().Stats(), r.game.Graph()))

		if r.done() {
			return
		}
	}
}

func (r *runner) done() bool {
	if r.maxTicks > 0 && int(r.game.TickCount()) >= r.maxTicks {
		slog.Info("max ticks reached", "tick", r.game.TickCount())
		return true
	}
	return false
}

// publish sends a snapshot to observers every broadcastEach ticks.
func (r *runner) publish() {
	if r.hub == nil || r.hub.ClientCount() == 0 {
		return
	}
	if int(r.game.TickCount())%r.broadcastEach != 0 {
		return
	}
	if err := r.hub.Publish(r.game.Snapshot()); err != nil {
		slog.Warn("publish failed", "error", err)
	}
}

// drainCommands applies every queued observer command.
func (r *runner) drainCommands() {
	if r.hub == nil {
		return
	}
	for {
		select {
		case cmd := <-r.hub.Commands():
			r.command(cmd)
		default:
			return
		}
	}
}

func (r *runner) command(cmd feed.Command) {
	switch cmd.Action {
	case "pause":
		r.game.Pause()
	case "resume":
		r.game.Resume()
	case "reset":
		r.reset()
	case "override":
		r.game.SetManualOverride(cmd.On)
	case "reconfigure":
		r.reconfigure(ui.Perception{Cells: cmd.Cells, Range: cmd.Range, Angle: cmd.Angle})
	default:
		slog.Warn("unknown command", "action", cmd.Action)
	}
}

// apply handles the requests raised by one frame of UI interaction.
func (r *runner) apply(ev ui.Events) {
	if ev.TogglePause {
		if r.game.State() == game.StatePaused {
			r.game.Resume()
		} else {
			r.game.Pause()
		}
	}
	if ev.Reset {
		r.reset()
	}
	if ev.ToggleOverride {
		r.game.SetManualOverride(!r.game.ManualOverride())
	}
	if ev.Reconfigure != nil {
		r.reconfigure(*ev.Reconfigure)
	}
}

func (r *runner) reset() {
	if err := r.game.Reset(); err != nil {
		slog.Error("reset failed", "error", err)
	}
}

func (r *runner) reconfigure(p ui.Perception) {
	if err := r.game.Reconfigure(p.Cells, p.Range, p.Angle); err != nil {
		slog.Warn("reconfigure rejected", "cells", p.Cells, "range", p.Range, "angle", p.Angle, "error", err)
	}
	if r.view != nil {
		pc := r.game.Config().Perception
		r.view.SyncPerception(ui.Perception{Cells: pc.Cells, Range: pc.Range, Angle: pc.AngleDeg})
	}
}
