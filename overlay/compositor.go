// Package overlay composites an immediate-mode UI on top of the application
// frame.
//
// A [Compositor] buffers window events into per-frame input snapshots, runs
// the UI with the application's [Drawer] callback, lets a [Renderer] upload
// the resulting meshes and records one render pass that loads (never
// clears) the frame. It implements [rine.Overlay].
package overlay

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/jaquobia/rine"
)

// RenderPassLabel labels the overlay's render pass.
const RenderPassLabel = "rine overlay render pass"

// UI is the immediate-mode UI collaborator. C is the context type handed to
// the application's build callback.
type UI[C any] interface {
	// OnEvent decides whether the UI wants ev. It is called as events
	// arrive, before the next frame's snapshot is taken.
	OnEvent(ev rine.Event) rine.EventResponse

	// Run lays out one frame from in, calling build with the UI context.
	Run(in Input, build func(C)) Output
}

// Renderer turns meshes into GPU commands.
type Renderer interface {
	// UpdateBuffers uploads meshes. Returned command buffers are submitted
	// before the overlay pass.
	UpdateBuffers(enc rine.CommandEncoder, meshes []Mesh, screen ScreenDescriptor) ([]rine.CommandBuffer, error)

	// Render draws meshes into pass.
	Render(pass rine.RenderPass, meshes []Mesh, screen ScreenDescriptor) error
}

// Drawer is implemented by applications that contribute overlay UI.
type Drawer[C any] interface {
	DrawOverlay(ctx C)
}

// Option configures a Compositor.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for the Input.Time field.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Compositor adapts a UI and a Renderer to rine.Overlay.
type Compositor[C any] struct {
	ui       UI[C]
	renderer Renderer
	now      func() time.Time
	start    time.Time
	pending  []rine.Event
	frames   uint64
}

var _ rine.Overlay = (*Compositor[struct{}])(nil)

// New returns a compositor for ui drawn by renderer.
func New[C any](ui UI[C], renderer Renderer, opts ...Option) *Compositor[C] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Compositor[C]{
		ui:       ui,
		renderer: renderer,
		now:      o.now,
		start:    o.now(),
	}
}

// Frames is the number of overlay frames recorded.
func (c *Compositor[C]) Frames() uint64 { return c.frames }

// OnEvent buffers ev for the next snapshot and returns the UI's verdict.
func (c *Compositor[C]) OnEvent(ev rine.Event) rine.EventResponse {
	c.pending = append(c.pending, ev)
	return c.ui.OnEvent(ev)
}

// Redraw runs the UI for one frame and records it into rec on top of
// view.
func (c *Compositor[C]) Redraw(sc *rine.SurfaceContext, rec *rine.FrameRecorder, view rine.TextureView, app rine.Application) error {
	size := sc.Size()
	ppp := float32(sc.Window().ScaleFactor())
	if ppp <= 0 {
		ppp = 1
	}
	screen := ScreenDescriptor{Width: size.Width, Height: size.Height, PixelsPerPoint: ppp}

	in := Input{
		Events:         c.pending,
		Screen:         screen,
		Time:           c.now().Sub(c.start),
		PixelsPerPoint: ppp,
	}
	c.pending = nil

	build := func(C) {}
	if d, ok := app.(Drawer[C]); ok {
		build = d.DrawOverlay
	}
	out := c.ui.Run(in, build)
	if out.RequestRepaint {
		sc.Window().RequestRedraw()
	}

	enc, err := rec.Encoder()
	if err != nil {
		return err
	}
	uploads, err := c.renderer.UpdateBuffers(enc, out.Meshes, screen)
	if err != nil {
		return fmt.Errorf("overlay: update buffers: %w", err)
	}
	if err := rec.Append(uploads...); err != nil {
		return err
	}

	pass, err := enc.BeginRenderPass(&rine.RenderPassDescriptor{
		Label: RenderPassLabel,
		ColorAttachments: []rine.ColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	if err != nil {
		return fmt.Errorf("overlay: begin pass: %w", err)
	}
	renderErr := c.renderer.Render(pass, out.Meshes, screen)
	if err := pass.End(); err != nil {
		return fmt.Errorf("overlay: end pass: %w", err)
	}
	if renderErr != nil {
		return fmt.Errorf("overlay: render: %w", renderErr)
	}
	c.frames++
	rine.Logger().Debug("overlay: frame recorded", "meshes", len(out.Meshes), "events", len(in.Events))
	return nil
}
