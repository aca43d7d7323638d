package systems

import (
	"fmt"
	"math"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
)

// BlurMode selects the lateral smoothing applied after cell resolution.
type BlurMode uint8

const (
	BlurNone    BlurMode = iota
	BlurRing             // Weighted self and neighbours, wraps at the cone edges
	BlurFalloff          // Normalized 1/(1+|offset|) kernel, clamped at the cone edges
)

// ParseBlurMode maps a config name to a BlurMode.
func ParseBlurMode(s string) (BlurMode, error) {
	switch s {
	case "", "none":
		return BlurNone, nil
	case "ring":
		return BlurRing, nil
	case "falloff":
		return BlurFalloff, nil
	}
	return BlurNone, fmt.Errorf("unknown blur mode %q", s)
}

// Target is a perceivable entity as seen by the vision system.
type Target struct {
	X, Y   float32
	Radius float32
	Color  components.Color
	Agent  int // Owning agent ID, -1 for food and obstacles
}

// VisionParams configures the vision cone.
type VisionParams struct {
	Cells      int
	Range      float32
	Angle      float32 // Full cone width in radians
	Background components.Color
	Blur       BlurMode
	BlurCenter float32
	BlurSide   float32
	BlurRadius int
}

// VisionParamsFromConfig builds cone parameters from the perception section.
func VisionParamsFromConfig(cfg *config.Config) (VisionParams, error) {
	pc := cfg.Perception
	mode, err := ParseBlurMode(pc.BlurMode)
	if err != nil {
		return VisionParams{}, err
	}
	return VisionParams{
		Cells:      pc.Cells,
		Range:      float32(pc.Range),
		Angle:      cfg.Derived.VisionAngle,
		Background: ColorFromConfig(pc.Background),
		Blur:       mode,
		BlurCenter: float32(pc.BlurCenter),
		BlurSide:   float32(pc.BlurSide),
		BlurRadius: pc.BlurRadius,
	}, nil
}

// ColorFromConfig converts a config colour to a component colour.
func ColorFromConfig(c config.ColorConfig) components.Color {
	return components.Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}

// cellStep returns the angular width of one cell.
func (p VisionParams) cellStep() float32 {
	return p.Angle / float32(p.Cells)
}

// cellStart returns the start angle of cell i relative to the heading.
func (p VisionParams) cellStart(i int) float32 {
	return -p.Angle/2 + float32(i)*p.cellStep()
}

// NewVision allocates cone cells and a sensory vector sized for p.
func NewVision(p VisionParams) components.Vision {
	v := components.Vision{
		Cells:   make([]components.VisionCell, p.Cells),
		Sensory: make([]float32, p.Cells*3),
	}
	step := p.cellStep()
	for i := range v.Cells {
		v.Cells[i] = components.VisionCell{
			Angle:   p.cellStart(i) + step/2,
			Color:   p.Background,
			Closest: float32(math.Inf(1)),
		}
	}
	flatten(&v)
	return v
}

// Perceiver resolves vision cones. It keeps scratch buffers, so each
// goroutine needs its own.
type Perceiver struct {
	params  VisionParams
	blurBuf []components.Color
}

// NewPerceiver creates a perceiver for the given cone.
func NewPerceiver(p VisionParams) *Perceiver {
	return &Perceiver{
		params:  p,
		blurBuf: make([]components.Color, p.Cells),
	}
}

// Params returns the cone parameters.
func (p *Perceiver) Params() VisionParams {
	return p.params
}

// Perceive rebuilds v for the agent self at (x, y) facing heading.
// near lists candidate indices into targets in ascending order; nil scans
// every target. The result depends only on the inputs.
func (p *Perceiver) Perceive(v *components.Vision, self int, x, y, heading float32, targets []Target, near []int) {
	if len(v.Cells) != p.params.Cells || len(v.Sensory) != p.params.Cells*3 {
		*v = NewVision(p.params)
	}

	inf := float32(math.Inf(1))
	for i := range v.Cells {
		v.Cells[i].Color = p.params.Background
		v.Cells[i].Closest = inf
	}

	if near == nil {
		for i := range targets {
			p.resolve(v, self, x, y, heading, &targets[i])
		}
	} else {
		for _, i := range near {
			p.resolve(v, self, x, y, heading, &targets[i])
		}
	}

	p.blur(v.Cells)
	flatten(v)
}

// resolve paints the cells covered by one target, nearest wins.
func (p *Perceiver) resolve(v *components.Vision, self int, x, y, heading float32, t *Target) {
	if self >= 0 && t.Agent == self {
		return
	}

	dx := t.X - x
	dy := t.Y - y
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if dist-t.Radius > p.params.Range {
		return
	}

	var start, width float32
	if dist <= t.Radius {
		// Target encloses the eye: it fills the whole field.
		start, width = -math.Pi, twoPi
	} else {
		rel := NormalizeAngle(float32(math.Atan2(float64(dy), float64(dx))) - heading)
		if absf(rel) > p.params.Angle/2 {
			return
		}
		footprint := float32(math.Asin(float64(t.Radius / dist)))
		start, width = rel-footprint, 2*footprint
	}

	step := p.params.cellStep()
	for i := range v.Cells {
		if !ArcsOverlap(p.params.cellStart(i), step, start, width) {
			continue
		}
		cell := &v.Cells[i]
		if dist < cell.Closest {
			cell.Closest = dist
			cell.Color = t.Color
		}
	}
}

// blur smooths colours across neighbouring cells.
func (p *Perceiver) blur(cells []components.VisionCell) {
	n := len(cells)
	if n == 0 || p.params.Blur == BlurNone {
		return
	}
	if cap(p.blurBuf) < n {
		p.blurBuf = make([]components.Color, n)
	}
	orig := p.blurBuf[:n]
	for i := range cells {
		orig[i] = cells[i].Color
	}

	switch p.params.Blur {
	case BlurRing:
		c, s := p.params.BlurCenter, p.params.BlurSide
		for i := range cells {
			l := orig[(i-1+n)%n]
			r := orig[(i+1)%n]
			m := orig[i]
			cells[i].Color = components.Color{
				R: m.R*c + (l.R+r.R)*s,
				G: m.G*c + (l.G+r.G)*s,
				B: m.B*c + (l.B+r.B)*s,
			}
		}
	case BlurFalloff:
		radius := p.params.BlurRadius
		for i := range cells {
			var sum components.Color
			var total float32
			lo := max(0, i-radius)
			hi := min(n-1, i+radius)
			for j := lo; j <= hi; j++ {
				off := i - j
				if off < 0 {
					off = -off
				}
				w := 1 / (1 + float32(off))
				sum.R += orig[j].R * w
				sum.G += orig[j].G * w
				sum.B += orig[j].B * w
				total += w
			}
			cells[i].Color = components.Color{R: sum.R / total, G: sum.G / total, B: sum.B / total}
		}
	}
}

// flatten writes cell colours into the sensory vector as R,G,B per cell.
func flatten(v *components.Vision) {
	for i, c := range v.Cells {
		v.Sensory[i*3] = c.Color.R
		v.Sensory[i*3+1] = c.Color.G
		v.Sensory[i*3+2] = c.Color.B
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
