package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/sim"
)

// ParamPanel renders the debug panel of parameter sliders.
type ParamPanel struct {
	theme   Theme
	sliders []SliderDescriptor
	x, y    int32
	width   int32
	visible bool
}

// NewParamPanel creates a new parameter panel.
func NewParamPanel(x, y, width int32) *ParamPanel {
	return &ParamPanel{
		theme:   DefaultTheme(),
		sliders: ParamSliders(),
		x:       x,
		y:       y,
		width:   width,
		visible: true,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ParamPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ParamPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point falls on the visible panel, so
// clicks there do not paint walls.
func (c *ParamPanel) Contains(sx, sy float32) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(rl.Vector2{X: sx, Y: sy}, c.bounds())
}

func (c *ParamPanel) height() int32 {
	t := c.theme
	row := t.LineHeight + t.SliderHeight + 4
	return t.Padding*2 + t.LineHeight + 4 + int32(len(c.sliders))*row
}

func (c *ParamPanel) bounds() rl.Rectangle {
	return rl.Rectangle{X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height())}
}

// Draw renders the panel and applies slider edits to p. It returns true if
// any value changed.
func (c *ParamPanel) Draw(p *sim.Params) bool {
	if !c.visible || p == nil {
		return false
	}

	t := c.theme
	padding := t.Padding
	h := c.height()
	rl.DrawRectangle(c.x, c.y, c.width, h, t.PanelBg)
	rl.DrawRectangleLines(c.x, c.y, c.width, h, t.PanelBorder)

	y := c.y + padding
	rl.DrawText("Parameters", c.x+padding, y, 16, rl.White)
	y += t.LineHeight + 4

	changed := false
	for _, d := range c.sliders {
		cur := d.Get(p)
		rl.DrawText(d.Label, c.x+padding, y, t.FontSize, t.LabelColor)
		rl.DrawText(fmt.Sprintf(d.Format, cur), c.x+t.LabelWidth+padding, y, t.FontSize, t.ValueColor)
		y += t.LineHeight

		next := gui.SliderBar(
			rl.Rectangle{X: float32(c.x + padding), Y: float32(y), Width: float32(c.width - 2*padding), Height: float32(t.SliderHeight)},
			"", "",
			cur, d.Min, d.Max,
		)
		if next = d.Snap(next); next != cur {
			d.Set(p, next)
			changed = true
		}
		y += t.SliderHeight + 4
	}
	return changed
}
