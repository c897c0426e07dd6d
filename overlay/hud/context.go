package hud

import (
	"fmt"
	"time"

	"github.com/jaquobia/rine/overlay"
)

// Context is handed to the application's DrawOverlay once per frame.
type Context struct {
	ui       *UI
	pressed  bool
	released bool
	width    float32
	height   float32
	elapsed  time.Duration

	panels []overlay.Rect
	meshes []overlay.Mesh
}

// ScreenSize is the screen size in points.
func (c *Context) ScreenSize() (w, h float32) { return c.width, c.height }

// Time is the time since the overlay was created.
func (c *Context) Time() time.Duration { return c.elapsed }

// Hovered reports whether the pointer is over any panel laid out so far in
// this frame.
func (c *Context) Hovered() bool {
	p := c.ui.frame
	if !p.inside {
		return false
	}
	for _, r := range c.panels {
		if r.Contains(p.x, p.y) {
			return true
		}
	}
	return false
}

// Window lays out a panel whose top-left corner is at (x, y) with the given
// width. The height grows to fit body.
func (c *Context) Window(title string, x, y, width float32, body func(p *Panel)) {
	t := c.ui.theme
	titleH := float32(lineHeight) + 2*t.Spacing
	p := &Panel{
		ctx:     c,
		title:   title,
		x:       x,
		width:   width,
		cursorY: y + titleH + t.Padding,
	}
	if body != nil {
		body(p)
	}
	height := p.cursorY - y + t.Padding - t.Spacing
	if height < titleH {
		height = titleH
	}
	rect := overlay.Rect{X: x, Y: y, W: width, H: height}

	var bg builder
	bg.rect(x, y, width, height, t.Panel)
	bg.rect(x, y, width, titleH, t.TitleBar)
	bg.text(x+t.Padding, y+t.Spacing, title, t.Text)
	bg.quads = append(bg.quads, p.content.quads...)

	c.panels = append(c.panels, rect)
	c.meshes = append(c.meshes, bg.meshes(rect)...)
}

// Panel lays out widgets top to bottom inside a window.
type Panel struct {
	ctx     *Context
	title   string
	x       float32
	width   float32
	cursorY float32
	content builder
}

func (p *Panel) inner() (x, w float32) {
	pad := p.ctx.ui.theme.Padding
	return p.x + pad, p.width - 2*pad
}

func (p *Panel) advance(h float32) {
	p.cursorY += h + p.ctx.ui.theme.Spacing
}

// interact runs hit testing for a widget occupying r.
func (p *Panel) interact(id uint64, r overlay.Rect) (hovered, held, clicked bool) {
	u := p.ctx.ui
	hovered = u.frame.inside && r.Contains(u.frame.x, u.frame.y)
	if hovered {
		u.hot = id
		if p.ctx.pressed {
			u.active = id
		}
	}
	if u.active == id {
		held = u.frame.down
		clicked = p.ctx.released && hovered
	}
	return hovered, held, clicked
}

// Label draws one line of text.
func (p *Panel) Label(text string) {
	x, _ := p.inner()
	p.content.text(x, p.cursorY, text, p.ctx.ui.theme.Text)
	p.advance(lineHeight)
}

// Labelf draws a formatted line of text.
func (p *Panel) Labelf(format string, args ...any) {
	p.Label(fmt.Sprintf(format, args...))
}

// Separator draws a horizontal rule.
func (p *Panel) Separator() {
	x, w := p.inner()
	p.content.rect(x, p.cursorY, w, 1, p.ctx.ui.theme.Separator)
	p.advance(1)
}

// Button draws a full-width button and reports whether it was clicked this
// frame.
func (p *Panel) Button(text string) bool {
	t := p.ctx.ui.theme
	x, w := p.inner()
	h := float32(lineHeight) + 2*t.Spacing
	r := overlay.Rect{X: x, Y: p.cursorY, W: w, H: h}
	hovered, held, clicked := p.interact(widgetID(p.title, "button", text), r)

	col := t.Button
	switch {
	case held:
		col = t.ButtonActive
	case hovered:
		col = t.ButtonHover
	}
	p.content.rect(r.X, r.Y, r.W, r.H, col)
	tx := x + (w-textWidth(text))/2
	p.content.text(tx, r.Y+t.Spacing, text, t.Text)
	p.advance(h)
	return clicked
}

// Checkbox draws a labelled box bound to value, toggling it on click.
// It reports whether value changed.
func (p *Panel) Checkbox(text string, value *bool) bool {
	t := p.ctx.ui.theme
	x, w := p.inner()
	box := float32(lineHeight)
	r := overlay.Rect{X: x, Y: p.cursorY, W: w, H: box}
	hovered, _, clicked := p.interact(widgetID(p.title, "checkbox", text), r)
	if clicked {
		*value = !*value
	}

	col := t.Button
	if hovered {
		col = t.ButtonHover
	}
	p.content.rect(x, r.Y, box, box, col)
	if *value {
		p.content.rect(x+3, r.Y+3, box-6, box-6, t.Check)
	}
	p.content.text(x+box+t.Spacing, r.Y, text, t.Text)
	p.advance(box)
	return clicked
}
