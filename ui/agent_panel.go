package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plankton/game"
)

// agentSections describes the agent panel layout.
func agentSections(maxHealth float32) []SectionDescriptor[game.AgentView] {
	return []SectionDescriptor[game.AgentView]{
		{
			Title: "State",
			Fields: []FieldDescriptor[game.AgentView]{
				{Label: "Control", Widget: WidgetText, TextGetter: func(a game.AgentView) string { return a.Control }},
				{Label: "Health", Widget: WidgetHealthBar, Range: FieldRange{Max: maxHealth}, Getter: func(a game.AgentView) float32 { return a.Health }},
				{Label: "Energy", Widget: WidgetHealthBar, Range: FieldRange{Max: maxHealth}, Getter: func(a game.AgentView) float32 { return a.Energy }},
				{Label: "Reward", Widget: WidgetText, Format: "%.1f", Getter: func(a game.AgentView) float32 { return a.Reward }},
				{Label: "Collisions", Widget: WidgetText, TextGetter: func(a game.AgentView) string { return fmt.Sprintf("%d", a.Collisions) }},
			},
		},
		{
			Title: "Affect",
			Fields: []FieldDescriptor[game.AgentView]{
				{Label: "Pleasure", Widget: WidgetCenteredBar, Range: CenteredRange(), Getter: func(a game.AgentView) float32 { return a.Pleasure }},
				{Label: "Arousal", Widget: WidgetBar, Range: DefaultRange(), Getter: func(a game.AgentView) float32 { return a.Arousal }},
				{Label: "Homeostasis", Widget: WidgetBar, Range: DefaultRange(), Getter: func(a game.AgentView) float32 { return a.Homeostasis }},
			},
		},
	}
}

// AgentPanel shows one agent's state and what it sees.
type AgentPanel struct {
	renderer *Renderer
	sections []SectionDescriptor[game.AgentView]
	x, y     int32
	width    int32
}

// NewAgentPanel creates a panel at (x, y).
func NewAgentPanel(x, y, width int32, maxHealth float32) *AgentPanel {
	return &AgentPanel{
		renderer: NewRenderer(),
		sections: agentSections(maxHealth),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *AgentPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Height returns the panel height including the vision strip.
func (p *AgentPanel) Height() int32 {
	t := p.renderer.Theme
	h := 2*t.Padding + t.LineHeight + 4
	for _, sd := range p.sections {
		h += SectionHeight(t, sd)
	}
	return h + t.LineHeight + 24
}

// Draw renders agent a.
func (p *AgentPanel) Draw(a game.AgentView) {
	r := p.renderer
	pad := r.Theme.Padding
	inner := p.width - 2*pad

	r.DrawPanel(p.x, p.y, p.width, p.Height())
	x := p.x + pad
	y := p.y + pad

	rl.DrawText(fmt.Sprintf("Agent %d", a.ID), x, y, 16, rl.White)
	y += r.Theme.LineHeight + 4

	for _, sd := range p.sections {
		y = DrawSection(r, x, y, sd, a, inner)
	}

	y = r.DrawSectionHeader(x, y, "Vision")
	DrawVisionStrip(x, y, inner, 20, a)
}

// DrawVisionStrip paints an agent's cone cells left to right.
func DrawVisionStrip(x, y, width, height int32, a game.AgentView) {
	n := int32(len(a.Cells))
	if n == 0 {
		return
	}
	cellW := max(width/n, 1)
	for i, c := range a.Cells {
		rl.DrawRectangle(x+int32(i)*cellW, y, cellW, height, toColor(c))
	}
	rl.DrawRectangleLines(x, y, cellW*n, height, rl.Color{R: 60, G: 70, B: 80, A: 255})
}
