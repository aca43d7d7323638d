package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plankton/components"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawBar draws a progress bar for value within rng.
func (r *Renderer) DrawBar(x, y int32, label string, value float32, rng FieldRange, width int32, fill rl.Color) int32 {
	ratio := normalize(value, rng)
	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth - 50

	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, r.Theme.BarHeight, r.Theme.BarBg)
	rl.DrawRectangle(barX, y+2, int32(float32(barWidth)*ratio), r.Theme.BarHeight, fill)
	rl.DrawText(fmt.Sprintf("%.2f", value), barX+barWidth+5, y, r.Theme.FontSize, r.Theme.ValueColor)

	return y + r.Theme.LineHeight + 2
}

// DrawCenteredBar draws a bar growing left or right from the middle of rng.
func (r *Renderer) DrawCenteredBar(x, y int32, label string, value float32, rng FieldRange, width int32) int32 {
	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth - 50
	centerX := barX + barWidth/2

	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, r.Theme.BarHeight, r.Theme.BarBg)
	rl.DrawLine(centerX, y+2, centerX, y+2+r.Theme.BarHeight, rl.Color{R: 80, G: 80, B: 80, A: 255})

	// Signed offset from the middle, in [-1, 1]
	offset := normalize(value, rng)*2 - 1
	fillWidth := int32(float32(barWidth/2) * absf(offset))
	fillX := centerX
	barColor := r.Theme.BarFillPositive
	if offset < 0 {
		fillX = centerX - fillWidth
		barColor = r.Theme.BarFillNegative
	}
	rl.DrawRectangle(fillX, y+2, fillWidth, r.Theme.BarHeight, barColor)
	rl.DrawText(fmt.Sprintf("%+.2f", value), barX+barWidth+5, y, r.Theme.FontSize, r.Theme.ValueColor)

	return y + r.Theme.LineHeight + 2
}

// healthColor picks a fill by ratio thresholds.
func (r *Renderer) healthColor(ratio float32) rl.Color {
	switch {
	case ratio < 0.3:
		return r.Theme.BarFillLow
	case ratio < 0.6:
		return r.Theme.BarFillMedium
	}
	return r.Theme.BarFillHigh
}

// DrawField renders one descriptor against data.
func DrawField[T any](r *Renderer, x, y int32, fd FieldDescriptor[T], data T, width int32) int32 {
	value := float32(0)
	if fd.Getter != nil {
		value = fd.Getter(data)
	}

	switch fd.Widget {
	case WidgetText:
		text := ""
		if fd.TextGetter != nil {
			text = fd.TextGetter(data)
		} else {
			text = fmt.Sprintf(fd.Format, value)
		}
		return r.DrawLabelValue(x, y, fd.Label, text)
	case WidgetBar:
		return r.DrawBar(x, y, fd.Label, value, fd.Range, width, r.Theme.BarFill)
	case WidgetHealthBar:
		return r.DrawBar(x, y, fd.Label, value, fd.Range, width, r.healthColor(normalize(value, fd.Range)))
	case WidgetCenteredBar:
		return r.DrawCenteredBar(x, y, fd.Label, value, fd.Range, width)
	case WidgetSection:
		return r.DrawSectionHeader(x, y, fd.Label)
	case WidgetSpacer:
		return y + 6
	}
	return y
}

// DrawSection renders a section header followed by its fields.
func DrawSection[T any](r *Renderer, x, y int32, sd SectionDescriptor[T], data T, width int32) int32 {
	if sd.Title != "" {
		y = r.DrawSectionHeader(x, y, sd.Title)
	}
	for _, fd := range sd.Fields {
		y = DrawField(r, x, y, fd, data, width)
	}
	return y + 4
}

// SectionHeight returns the pixel height DrawSection will use.
func SectionHeight[T any](t Theme, sd SectionDescriptor[T]) int32 {
	var h int32
	if sd.Title != "" {
		h += t.LineHeight
	}
	for _, fd := range sd.Fields {
		switch fd.Widget {
		case WidgetBar, WidgetHealthBar, WidgetCenteredBar:
			h += t.LineHeight + 2
		case WidgetSpacer:
			h += 6
		default:
			h += t.LineHeight
		}
	}
	return h + 4
}

// normalize maps value into [0, 1] over rng.
func normalize(value float32, rng FieldRange) float32 {
	span := rng.Max - rng.Min
	if span <= 0 {
		return 0
	}
	return min(max((value-rng.Min)/span, 0), 1)
}

// toColor converts a [0,1] component colour to an opaque raylib colour.
func toColor(c components.Color) rl.Color {
	return rl.Color{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: 255}
}

func channel(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
