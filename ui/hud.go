package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plankton/game"
	"github.com/pthm-cable/plankton/telemetry"
)

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the status lines in the top-left corner.
func (h *HUD) Draw(snap *game.Snapshot, override bool) {
	s := snap.Stats
	rl.DrawText("Plankton", 10, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("Agents: %d | Food: %d | Tick: %d | FPS: %.0f", len(snap.Agents), s.Food, snap.Tick, s.FPS),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Reward: %.1f | Collisions: %d | Pleasure: %+.2f | Arousal: %.2f",
			s.TotalReward, s.Collisions, s.PleasureMean, s.ArousalMean),
		10, 55, 16, rl.LightGray,
	)

	status := snap.State
	if override {
		status += " | manual override"
	}
	rl.DrawText(status, 10, 75, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, legend string) {
	rl.DrawText(legend, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the tick phase breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders phases in pipeline order.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	width := int32(260)
	height := int32(40 + 14*len(telemetry.Phases))
	p.renderer.DrawPanel(p.x, p.y, width, height)

	x := p.x + p.renderer.Theme.Padding
	y := p.y + 6
	rl.DrawText(fmt.Sprintf("Tick %s | %.0f tps", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, rl.White)
	y += 20

	for _, phase := range telemetry.Phases {
		pct := stats.PhasePct[phase]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-13s %8s %5.1f%%", phase, stats.PhaseAvg[phase].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
