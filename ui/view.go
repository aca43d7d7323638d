package ui

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plankton/camera"
	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/control"
	"github.com/pthm-cable/plankton/game"
	"github.com/pthm-cable/plankton/neural"
	"github.com/pthm-cable/plankton/telemetry"
)

const legend = "WASD/arrows: steer  Space: pause  R: reset  O: override  V/B/I/G/Tab/F3: panels  Wheel/right-drag: camera  Home: fit"

// movementKeys maps window keys onto the shared key table.
var movementKeys = []struct {
	key  control.Key
	keys []int32
}{
	{control.KeyForward, []int32{rl.KeyW, rl.KeyUp}},
	{control.KeyBack, []int32{rl.KeyS, rl.KeyDown}},
	{control.KeyLeft, []int32{rl.KeyA, rl.KeyLeft}},
	{control.KeyRight, []int32{rl.KeyD, rl.KeyRight}},
}

// View owns the window-side state: camera, panels and key forwarding.
type View struct {
	cam      *camera.Camera
	hud      *HUD
	overlays *OverlayRegistry
	controls *ControlsPanel
	agent    *AgentPanel
	graph    *GraphPanel
	perf     *PerfPanel

	keys    *control.KeyState
	held    map[control.Key]bool // Last state written from this window
	width   float32
	height  float32
	palette palette
}

// palette holds entity colours derived from the perception config, so the
// screen shows what agents see.
type palette struct {
	background rl.Color
	agent      rl.Color
	food       rl.Color
	obstacle   rl.Color
	moving     rl.Color
}

// NewView creates the window-side UI. rl.InitWindow must have been called.
func NewView(cfg *config.Config, keys *control.KeyState) *View {
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	pc := cfg.Perception

	v := &View{
		cam:      camera.New(w, h, cfg.Derived.WorldW32, cfg.Derived.WorldH32),
		hud:      NewHUD(),
		overlays: NewOverlayRegistry(),
		controls: NewControlsPanel(int32(w)-250, 10, 240, Perception{Cells: pc.Cells, Range: pc.Range, Angle: pc.AngleDeg}),
		agent:    NewAgentPanel(10, 100, 260, float32(cfg.Agents.MaxHealth)),
		graph:    NewGraphPanel(int32(w)/2-300, int32(h)-330, 600, 300),
		perf:     NewPerfPanel(int32(w)-270, int32(h)-200),
		keys:     keys,
		held:     make(map[control.Key]bool),
		width:    w,
		height:   h,
	}
	v.SetPalette(cfg)
	return v
}

// SetPalette refreshes entity colours from cfg.
func (v *View) SetPalette(cfg *config.Config) {
	pc := cfg.Perception
	bg := colorOf(pc.Background)
	v.palette = palette{
		background: rl.Color{R: bg.R / 5, G: bg.G / 5, B: bg.B / 4, A: 255},
		agent:      colorOf(pc.AgentColor),
		food:       colorOf(pc.FoodColor),
		obstacle:   colorOf(pc.ObstacleColor),
		moving:     colorOf(pc.MovingColor),
	}
}

func colorOf(c config.ColorConfig) rl.Color {
	return toColor(components.Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)})
}

// SyncPerception moves the perception sliders to the applied setting.
func (v *View) SyncPerception(p Perception) {
	v.controls.Sync(p)
}

// HandleInput processes window input for one frame.
func (v *View) HandleInput() Events {
	var ev Events
	v.handleResize()

	for _, mk := range movementKeys {
		down := false
		for _, k := range mk.keys {
			down = down || rl.IsKeyDown(k)
		}
		// Only edges are written so remote observers can also hold keys.
		if down != v.held[mk.key] {
			v.held[mk.key] = down
			v.keys.Press(mk.key, down)
		}
	}

	if key := rl.GetKeyPressed(); key != 0 {
		v.overlays.HandleKeyPress(key)
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		ev.TogglePause = true
	}
	if rl.IsKeyPressed(rl.KeyR) {
		ev.Reset = true
	}
	if rl.IsKeyPressed(rl.KeyO) {
		ev.ToggleOverride = true
	}
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	v.handleCameraInput()
	return ev
}

// handleResize checks for window resize and propagates new dimensions.
func (v *View) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.width && h == v.height {
		return
	}
	v.width, v.height = w, h
	v.cam.Resize(w, h)
	v.controls.SetPosition(int32(w)-250, 10)
	v.graph.SetBounds(int32(w)/2-300, int32(h)-330, 600, 300)
	v.perf.SetPosition(int32(w)-270, int32(h)-200)
}

// handleCameraInput processes camera pan/zoom controls.
func (v *View) handleCameraInput() {
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}
}

// Draw renders one frame and returns the control panel's requests.
func (v *View) Draw(snap *game.Snapshot, override bool, perf telemetry.PerfStats, graph *neural.Graph) Events {
	var ev Events

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	v.drawArena(snap)
	if v.overlays.IsEnabled(OverlayVisionCones) {
		for i := range snap.Agents {
			if snap.Agents[i].ID == game.MainAgent {
				v.drawVisionCone(&snap.Agents[i], snap.Vision)
			}
		}
	}
	v.drawEntities(snap)

	v.hud.Draw(snap, override)
	v.hud.DrawControls(int32(v.height), legend)

	if focus := mainAgent(snap); focus != nil {
		if v.overlays.IsEnabled(OverlayAgentPanel) {
			v.agent.Draw(*focus)
		} else if v.overlays.IsEnabled(OverlayVisionStrip) {
			DrawVisionStrip(10, 100, 260, 20, *focus)
		}
	}
	if v.overlays.IsEnabled(OverlayGraph) {
		v.graph.Draw(graph)
	}
	if v.overlays.IsEnabled(OverlayPerf) {
		v.perf.Draw(perf)
	}
	if v.overlays.IsEnabled(OverlayControls) {
		ev = v.controls.Draw(snap.State == game.StatePaused.String(), override)
	}

	rl.EndDrawing()
	return ev
}

func mainAgent(snap *game.Snapshot) *game.AgentView {
	for i := range snap.Agents {
		if snap.Agents[i].ID == game.MainAgent {
			return &snap.Agents[i]
		}
	}
	return nil
}

// drawArena fills the world rectangle.
func (v *View) drawArena(snap *game.Snapshot) {
	x0, y0 := v.cam.WorldToScreen(0, 0)
	x1, y1 := v.cam.WorldToScreen(snap.Width, snap.Height)
	rl.DrawRectangleV(rl.Vector2{X: x0, Y: y0}, rl.Vector2{X: x1 - x0, Y: y1 - y0}, v.palette.background)
}

// drawEntities renders obstacles, food and agents.
func (v *View) drawEntities(snap *game.Snapshot) {
	for _, o := range snap.Obstacles {
		if !v.cam.IsVisible(o.X, o.Y, o.Radius) {
			continue
		}
		color := v.palette.obstacle
		if o.Moving {
			color = v.palette.moving
		}
		sx, sy := v.cam.WorldToScreen(o.X, o.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, v.cam.ScaleLength(o.Radius), color)
	}

	for _, f := range snap.Food {
		if !v.cam.IsVisible(f.X, f.Y, f.Radius) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(f.X, f.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, v.cam.ScaleLength(f.Radius), v.palette.food)
	}

	for _, a := range snap.Agents {
		if !v.cam.IsVisible(a.X, a.Y, a.Radius*1.5) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(a.X, a.Y)
		color := v.palette.agent
		// Brighter with pleasure, redder with arousal
		color.R = uint8(min(255, int(color.R)+int(a.Arousal*120)))
		color.G = uint8(min(255, int(color.G)+int(max(a.Pleasure, 0)*80)))
		drawOrientedTriangle(sx, sy, a.Heading, v.cam.ScaleLength(a.Radius), color)
		if a.ID == game.MainAgent {
			rl.DrawCircleLines(int32(sx), int32(sy), v.cam.ScaleLength(a.Radius)*1.8, rl.Yellow)
		}
	}
}

// drawVisionCone paints each cone cell in the colour it resolved to.
func (v *View) drawVisionCone(a *game.AgentView, vision game.VisionView) {
	n := len(a.Cells)
	if n == 0 {
		return
	}
	sx, sy := v.cam.WorldToScreen(a.X, a.Y)
	center := rl.Vector2{X: sx, Y: sy}
	radius := v.cam.ScaleLength(vision.Range)
	step := vision.Angle / float32(n)
	start := a.Heading - vision.Angle/2

	for i, c := range a.Cells {
		from := (start + float32(i)*step) * rl.Rad2deg
		to := from + step*rl.Rad2deg
		color := toColor(c)
		color.A = 60
		rl.DrawCircleSector(center, radius, from, to, 4, color)
	}
}

// drawOrientedTriangle draws a triangle pointing in the heading direction.
func drawOrientedTriangle(x, y, heading, radius float32, color rl.Color) {
	cos := float32(math.Cos(float64(heading)))
	sin := float32(math.Sin(float64(heading)))

	front := rl.Vector2{X: x + cos*radius*1.5, Y: y + sin*radius*1.5}

	backAngle := float64(heading) + math.Pi*0.8
	backLeft := rl.Vector2{X: x + float32(math.Cos(backAngle))*radius, Y: y + float32(math.Sin(backAngle))*radius}
	backAngle = float64(heading) - math.Pi*0.8
	backRight := rl.Vector2{X: x + float32(math.Cos(backAngle))*radius, Y: y + float32(math.Sin(backAngle))*radius}

	// DrawTriangle requires counter-clockwise winding (v1, v3, v2)
	rl.DrawTriangle(front, backRight, backLeft, color)
	rl.DrawTriangleLines(front, backLeft, backRight, rl.White)
}
