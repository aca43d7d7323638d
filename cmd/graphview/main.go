// Neuron graph preview tool - drives a small point-neuron graph with
// slider-controlled receptor voltages and shows spikes and effector outputs.
//
// Usage: go run ./cmd/graphview [-config path]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/neural"
	"github.com/pthm-cable/plankton/ui"
)

const (
	windowWidth  = 1100
	windowHeight = 640
	panelWidth   = 300
	previewCells = 4
)

// wiring connects the vision receptor to two neurons and the movement outputs.
var wiring = []neural.Synapse{
	{From: neural.VisionInputID("R", 0), To: "neuron-1", Weight: 12, Delay: 1},
	{From: neural.VisionInputID("G", 1), To: "neuron-1", Weight: 12, Delay: 1},
	{From: neural.VisionInputID("B", 2), To: "neuron-2", Weight: 12, Delay: 1},
	{From: "neuron-1", To: "neuron-2", Weight: 8, Delay: 3},
	{From: "neuron-1", To: "output-forward", Weight: 2, Delay: 1},
	{From: "neuron-2", To: "output-left", Weight: 2, Delay: 1},
	{From: "neuron-2", To: "output-stress", Weight: -1, Delay: 1},
}

func main() {
	configPath := flag.String("config", "", "Path to config file (uses embedded defaults if empty)")
	stepsPerFrame := flag.Int("steps", 4, "Graph steps per frame")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	g, err := buildGraph(neural.GraphParamsFromConfig(cfg))
	if err != nil {
		logger.Error("failed to wire graph", "error", err)
		os.Exit(1)
	}

	rl.InitWindow(windowWidth, windowHeight, "Neuron Graph Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	panel := ui.NewGraphPanel(10, 10, windowWidth-panelWidth-30, windowHeight-20)
	voltages := map[string]float32{}
	presets := []string{"regular", "fast", "bursting", "chattering"}
	preset := 0
	running := true

	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeySpace) {
			running = !running
		}
		if running {
			for i := 0; i < *stepsPerFrame; i++ {
				g.Step()
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Color{R: 15, G: 18, B: 24, A: 255})
		panel.Draw(g)

		// Control panel
		panelX := float32(windowWidth - panelWidth - 10)
		panelY := float32(10)
		rl.DrawText("Receptor Inputs", int32(panelX), int32(panelY), 20, rl.LightGray)
		panelY += 30

		for _, s := range wiring[:3] {
			rl.DrawText(s.From, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 60, Height: 20},
				"0", "1",
				voltages[s.From], 0, 1,
			)
			if v != voltages[s.From] {
				voltages[s.From] = v
				if err := g.SetInput(s.From, float64(v)); err != nil {
					logger.Warn("set input failed", "id", s.From, "error", err)
				}
			}
			panelY += 30
		}

		rl.DrawText("Neuron Preset", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 60, Height: 24}, presets[preset]) {
			preset = (preset + 1) % len(presets)
			p, _ := neural.PresetByName(presets[preset])
			for _, id := range []string{"neuron-1", "neuron-2"} {
				if err := g.SetParams(id, p); err != nil {
					logger.Warn("set params failed", "id", id, "error", err)
				}
			}
		}
		panelY += 36

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 60, Height: 24}, "Reset") {
			g.Reset()
		}
		panelY += 40

		for _, id := range []string{"output-left", "output-forward", "output-stress"} {
			sig, _ := g.OutputSignal(id)
			pulse, _ := g.OutputPulse(id)
			rl.DrawText(fmt.Sprintf("%-15s sig %.2f  pulse %.2f", id, sig, pulse), int32(panelX), int32(panelY), 14, rl.LightGray)
			panelY += 20
		}

		status := "running"
		if !running {
			status = "paused"
		}
		rl.DrawText(fmt.Sprintf("t = %.1f ms (%s, Space toggles)", g.Now(), status), int32(panelX), windowHeight-30, 14, rl.Gray)

		rl.EndDrawing()
	}
}

// buildGraph creates the default graph with a few preview cells and wires it.
func buildGraph(p neural.GraphParams) (*neural.Graph, error) {
	g := neural.DefaultGraph(p, previewCells)
	for _, s := range wiring {
		if err := g.Connect(s.From, s.To, s.Weight, s.Delay); err != nil {
			return nil, fmt.Errorf("connect %s->%s: %w", s.From, s.To, err)
		}
	}
	return g, nil
}
