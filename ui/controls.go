package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Perception is a vision cone setting chosen in the controls panel.
type Perception struct {
	Cells int
	Range float64
	Angle float64 // Degrees
}

// Events are the requests raised by one frame of UI interaction.
type Events struct {
	TogglePause    bool
	Reset          bool
	ToggleOverride bool
	Reconfigure    *Perception
}

// ControlsPanel renders raygui buttons and perception sliders.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32

	// Slider values, applied only when the user presses Apply
	cells float32
	rng   float32
	angle float32
}

// NewControlsPanel creates a panel whose sliders start at p.
func NewControlsPanel(x, y, width int32, p Perception) *ControlsPanel {
	c := &ControlsPanel{renderer: NewRenderer(), x: x, y: y, width: width}
	c.Sync(p)
	return c
}

// Sync moves the sliders to p.
func (c *ControlsPanel) Sync(p Perception) {
	c.cells = float32(p.Cells)
	c.rng = float32(p.Range)
	c.angle = float32(p.Angle)
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Pending returns the perception the sliders currently describe.
func (c *ControlsPanel) Pending() Perception {
	return Perception{
		Cells: max(1, int(math.Round(float64(c.cells)))),
		Range: float64(c.rng),
		Angle: float64(c.angle),
	}
}

// Draw renders the panel and returns what was clicked.
func (c *ControlsPanel) Draw(paused, override bool) Events {
	var ev Events
	r := c.renderer
	pad := float32(r.Theme.Padding)
	x := float32(c.x) + pad
	y := float32(c.y) + pad
	inner := float32(c.width) - 2*pad
	half := (inner - pad) / 2

	r.DrawPanel(c.x, c.y, c.width, 250)
	rl.DrawText("Simulation", int32(x), int32(y), 16, rl.White)
	y += 24

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 26}, toggleText(paused, "Resume", "Pause")) {
		ev.TogglePause = true
	}
	if gui.Button(rl.Rectangle{X: x + half + pad, Y: y, Width: half, Height: 26}, "Reset") {
		ev.Reset = true
	}
	y += 34

	if gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 16, Height: 16}, "Manual override", override) != override {
		ev.ToggleOverride = true
	}
	y += 28

	rl.DrawText("Perception", int32(x), int32(y), 14, r.Theme.SectionHeader)
	y += 20

	sliderW := inner - 60
	c.cells = c.slider(x, &y, sliderW, "Cells", fmt.Sprintf("%d", c.Pending().Cells), c.cells, 1, 72)
	c.rng = c.slider(x, &y, sliderW, "Range", fmt.Sprintf("%.0f", c.rng), c.rng, 50, 600)
	c.angle = c.slider(x, &y, sliderW, "Angle", fmt.Sprintf("%.0f deg", c.angle), c.angle, 10, 360)

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: inner, Height: 26}, "Apply") {
		p := c.Pending()
		ev.Reconfigure = &p
	}
	return ev
}

// slider draws one labelled SliderBar and advances y.
func (c *ControlsPanel) slider(x float32, y *float32, width float32, label, value string, v, lo, hi float32) float32 {
	rl.DrawText(label, int32(x), int32(*y), c.renderer.Theme.FontSize, c.renderer.Theme.LabelColor)
	*y += 14
	v = gui.SliderBar(rl.Rectangle{X: x, Y: *y, Width: width, Height: 16}, "", "", v, lo, hi)
	rl.DrawText(value, int32(x+width+8), int32(*y+2), c.renderer.Theme.FontSize, c.renderer.Theme.ValueColor)
	*y += 24
	return v
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
