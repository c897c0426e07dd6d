// Package hud is a small immediate-mode UI for the overlay compositor.
//
// It draws floating panels with labels, buttons and checkboxes using the
// 7x13 bitmap font from golang.org/x/image. Pointer events over a panel are
// consumed so they do not reach the application.
//
//	func (a *app) DrawOverlay(ctx *hud.Context) {
//	    ctx.Window("Stats", 10, 10, 180, func(p *hud.Panel) {
//	        p.Labelf("frames: %d", a.frames)
//	        if p.Button("Reset") {
//	            a.frames = 0
//	        }
//	        p.Checkbox("vsync", &a.vsync)
//	    })
//	}
package hud

import (
	"hash/fnv"

	"github.com/jaquobia/rine"
	"github.com/jaquobia/rine/overlay"
)

// Theme holds colors (straight RGBA) and spacing in points.
type Theme struct {
	Panel        [4]float32
	TitleBar     [4]float32
	Text         [4]float32
	Button       [4]float32
	ButtonHover  [4]float32
	ButtonActive [4]float32
	Check        [4]float32
	Separator    [4]float32
	Padding      float32
	Spacing      float32
}

// DefaultTheme is a dark translucent theme.
func DefaultTheme() Theme {
	return Theme{
		Panel:        [4]float32{0.12, 0.12, 0.14, 0.92},
		TitleBar:     [4]float32{0.22, 0.24, 0.30, 1},
		Text:         [4]float32{0.92, 0.92, 0.92, 1},
		Button:       [4]float32{0.28, 0.30, 0.36, 1},
		ButtonHover:  [4]float32{0.36, 0.40, 0.50, 1},
		ButtonActive: [4]float32{0.20, 0.45, 0.80, 1},
		Check:        [4]float32{0.30, 0.75, 0.40, 1},
		Separator:    [4]float32{0.35, 0.35, 0.38, 1},
		Padding:      6,
		Spacing:      4,
	}
}

// Option configures a UI.
type Option func(*UI)

// WithTheme replaces DefaultTheme.
func WithTheme(t Theme) Option {
	return func(u *UI) { u.theme = t }
}

type pointer struct {
	x, y   float32
	inside bool
	down   bool
}

// UI implements overlay.UI[*Context].
type UI struct {
	theme Theme
	ppp   float32

	// live tracks the pointer as events arrive, for consumption decisions.
	live      pointer
	overPanel bool

	// frame is the pointer as replayed from the last snapshot.
	frame  pointer
	active uint64
	hot    uint64
	panels []overlay.Rect
}

var _ overlay.UI[*Context] = (*UI)(nil)

// New returns a UI with DefaultTheme.
func New(opts ...Option) *UI {
	u := &UI{theme: DefaultTheme(), ppp: 1}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Panels returns the panel rectangles of the last frame, in points.
func (u *UI) Panels() []overlay.Rect { return u.panels }

func (u *UI) hitPanel(x, y float32) bool {
	for _, r := range u.panels {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

// OnEvent consumes pointer events over a panel, and the release of a
// press that started on one.
func (u *UI) OnEvent(ev rine.Event) rine.EventResponse {
	switch e := ev.(type) {
	case rine.ScaleFactorChangedEvent:
		if e.ScaleFactor > 0 {
			u.ppp = float32(e.ScaleFactor)
		}
		return rine.EventResponse{Repaint: true}
	case rine.CursorMovedEvent:
		u.live.x, u.live.y = float32(e.X)/u.ppp, float32(e.Y)/u.ppp
		u.live.inside = true
		over := u.hitPanel(u.live.x, u.live.y)
		resp := rine.EventResponse{Consumed: over || u.live.down, Repaint: over != u.overPanel}
		u.overPanel = over
		return resp
	case rine.CursorLeftEvent:
		u.live.inside = false
		was := u.overPanel
		u.overPanel = false
		return rine.EventResponse{Repaint: was}
	case rine.MouseButtonEvent:
		if e.Button != rine.MouseButtonLeft {
			return rine.EventResponse{Consumed: u.overPanel}
		}
		if e.Pressed {
			if u.overPanel {
				u.live.down = true
				return rine.EventResponse{Consumed: true, Repaint: true}
			}
			return rine.EventResponse{}
		}
		if u.live.down {
			u.live.down = false
			return rine.EventResponse{Consumed: true, Repaint: true}
		}
	case rine.ScrollEvent:
		return rine.EventResponse{Consumed: u.overPanel}
	}
	return rine.EventResponse{}
}

// Run replays in.Events to derive this frame's pointer state and lays out
// the frame through build.
func (u *UI) Run(in overlay.Input, build func(*Context)) overlay.Output {
	if in.PixelsPerPoint > 0 {
		u.ppp = in.PixelsPerPoint
	}

	var pressed, released bool
	for _, ev := range in.Events {
		switch e := ev.(type) {
		case rine.CursorMovedEvent:
			u.frame.x, u.frame.y = float32(e.X)/u.ppp, float32(e.Y)/u.ppp
			u.frame.inside = true
		case rine.CursorLeftEvent:
			u.frame.inside = false
		case rine.MouseButtonEvent:
			if e.Button != rine.MouseButtonLeft {
				continue
			}
			if e.Pressed {
				pressed = true
				u.frame.down = true
			} else {
				released = true
				u.frame.down = false
			}
		}
	}

	w, h := in.Screen.PointSize()
	ctx := &Context{
		ui:       u,
		pressed:  pressed,
		released: released,
		width:    w,
		height:   h,
		elapsed:  in.Time,
	}
	prevHot := u.hot
	u.hot = 0
	build(ctx)
	if released {
		u.active = 0
	}
	u.panels = ctx.panels

	return overlay.Output{
		Meshes:         ctx.meshes,
		RequestRepaint: u.hot != prevHot,
	}
}

// widgetID hashes the panel title and widget label.
func widgetID(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
