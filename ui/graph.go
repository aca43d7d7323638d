package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plankton/neural"
)

// GraphPanel draws a point-neuron graph: receptor ports on the left,
// neurons in the middle at their editor positions, effector outputs on the
// right with their live signal.
type GraphPanel struct {
	renderer      *Renderer
	x, y          int32
	width, height int32
}

// NewGraphPanel creates a panel covering the given rectangle.
func NewGraphPanel(x, y, width, height int32) *GraphPanel {
	return &GraphPanel{renderer: NewRenderer(), x: x, y: y, width: width, height: height}
}

// SetBounds moves and resizes the panel.
func (p *GraphPanel) SetBounds(x, y, width, height int32) {
	p.x, p.y, p.width, p.height = x, y, width, height
}

// graphLayout places every node and port inside the rectangle. Ports are
// keyed by port ID, neurons by node ID.
func graphLayout(nodes []neural.Node, x, y, width, height float32) map[string]rl.Vector2 {
	pos := make(map[string]rl.Vector2)
	const margin = 20

	var receptorPorts, effectorPorts []string
	var neurons []neural.Node
	for _, n := range nodes {
		switch n.Kind {
		case neural.KindReceptor:
			for _, port := range n.Ports {
				receptorPorts = append(receptorPorts, port.ID)
			}
		case neural.KindEffector:
			for _, port := range n.Ports {
				effectorPorts = append(effectorPorts, port.ID)
			}
		default:
			neurons = append(neurons, n)
		}
	}

	column := func(ids []string, cx float32) {
		step := (height - 2*margin) / float32(max(len(ids), 1))
		for i, id := range ids {
			pos[id] = rl.Vector2{X: cx, Y: y + margin + step*(float32(i)+0.5)}
		}
	}
	column(receptorPorts, x+margin)
	column(effectorPorts, x+width-margin-90)

	if len(neurons) == 0 {
		return pos
	}
	minX, maxX := neurons[0].X, neurons[0].X
	minY, maxY := neurons[0].Y, neurons[0].Y
	for _, n := range neurons[1:] {
		minX, maxX = min(minX, n.X), max(maxX, n.X)
		minY, maxY = min(minY, n.Y), max(maxY, n.Y)
	}
	left := x + margin + 60
	right := x + width - margin - 150
	top := y + margin
	bottom := y + height - margin
	for _, n := range neurons {
		fx, fy := float32(0.5), float32(0.5)
		if maxX > minX {
			fx = float32((n.X - minX) / (maxX - minX))
		}
		if maxY > minY {
			fy = float32((n.Y - minY) / (maxY - minY))
		}
		pos[n.ID] = rl.Vector2{X: left + fx*(right-left), Y: top + fy*(bottom-top)}
	}
	return pos
}

// Draw renders g.
func (p *GraphPanel) Draw(g *neural.Graph) {
	p.renderer.DrawPanel(p.x, p.y, p.width, p.height)
	if g == nil {
		return
	}

	nodes := g.Nodes()
	pos := graphLayout(nodes, float32(p.x), float32(p.y), float32(p.width), float32(p.height))

	for _, s := range g.Synapses() {
		from, ok1 := pos[s.From]
		to, ok2 := pos[s.To]
		if !ok1 || !ok2 {
			continue
		}
		alpha := uint8(min(255, int(absf(float32(s.Weight))*20)+60))
		color := rl.Color{R: 100, G: 200, B: 100, A: alpha}
		if s.Weight < 0 {
			color = rl.Color{R: 200, G: 100, B: 100, A: alpha}
		}
		rl.DrawLineV(from, to, color)
	}

	for _, n := range nodes {
		switch n.Kind {
		case neural.KindReceptor:
			for _, port := range n.Ports {
				v := pos[port.ID]
				shade := channel(float32(port.Voltage))
				rl.DrawCircleV(v, 3, rl.Color{R: shade, G: shade, B: 255, A: 255})
			}
		case neural.KindEffector:
			for _, port := range n.Ports {
				v := pos[port.ID]
				signal, _ := g.OutputSignal(port.ID)
				pulse, _ := g.OutputPulse(port.ID)
				rl.DrawCircleV(v, 5, rl.Color{R: 255, G: 180, B: 100, A: 255})
				rl.DrawRectangle(int32(v.X)+10, int32(v.Y)-4, int32(40*pulse), 8, rl.Orange)
				rl.DrawText(fmt.Sprintf("%s %.2f", port.Label, signal), int32(v.X)+10, int32(v.Y)+5, 10, rl.LightGray)
			}
		default:
			v := pos[n.ID]
			color := rl.Color{R: 180, G: 180, B: 180, A: 255}
			if n.State.Spike {
				color = rl.Yellow
			}
			rl.DrawCircleV(v, 8, color)
			rl.DrawText(fmt.Sprintf("%s %.0fmV", n.Label, n.State.V), int32(v.X)-20, int32(v.Y)+10, 10, rl.LightGray)
		}
	}

	rl.DrawText(fmt.Sprintf("t = %.1f ms", g.Now()), p.x+8, p.y+4, 12, rl.Gray)
}
