package overlay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/jaquobia/rine"
	"github.com/jaquobia/rine/headless"
	"github.com/jaquobia/rine/overlay"
)

type uiContext struct{ built bool }

// scriptUI consumes key events and returns a single quad per frame.
type scriptUI struct {
	inputs  []overlay.Input
	repaint bool
}

func (u *scriptUI) OnEvent(ev rine.Event) rine.EventResponse {
	_, key := ev.(rine.KeyEvent)
	return rine.EventResponse{Consumed: key, Repaint: key}
}

func (u *scriptUI) Run(in overlay.Input, build func(*uiContext)) overlay.Output {
	u.inputs = append(u.inputs, in)
	c := &uiContext{}
	build(c)
	col := [4]float32{1, 1, 1, 1}
	if c.built {
		col = [4]float32{0, 0, 1, 1}
	}
	return overlay.Output{
		Meshes: []overlay.Mesh{{
			Vertices: []overlay.Vertex{
				{Pos: [2]float32{0, 0}, Color: col},
				{Pos: [2]float32{4, 0}, Color: col},
				{Pos: [2]float32{4, 4}, Color: col},
				{Pos: [2]float32{0, 4}, Color: col},
			},
			Indices: []uint16{0, 1, 2, 0, 2, 3},
		}},
		RequestRepaint: u.repaint,
	}
}

type clearApp struct {
	rine.BaseApplication
}

func (clearApp) Draw(_ *rine.SurfaceContext, enc rine.CommandEncoder, view rine.TextureView) {
	pass, err := enc.BeginRenderPass(&rine.RenderPassDescriptor{
		ColorAttachments: []rine.ColorAttachment{{
			View: view, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 1, A: 1},
		}},
	})
	if err != nil {
		panic(err)
	}
	_ = pass.End()
}

type drawingApp struct {
	clearApp
	calls int
}

func (a *drawingApp) DrawOverlay(c *uiContext) {
	a.calls++
	c.built = true
}

type fixture struct {
	p *headless.Platform
	q *headless.Queue
	l *rine.Loop
	c *overlay.Compositor[*uiContext]
	r *headless.OverlayRenderer
}

func setup(t *testing.T, app rine.Application, ui *scriptUI, opts ...overlay.Option) fixture {
	t.Helper()
	p := headless.New(headless.Options{})
	sc, err := p.OpenSurfaceContext(context.Background(), rine.DefaultWindowConfig().WithSize(8, 8))
	if err != nil {
		t.Fatal(err)
	}
	r := headless.NewOverlayRenderer()
	c := overlay.New[*uiContext](ui, r, opts...)
	return fixture{p: p, q: sc.Queue().(*headless.Queue), l: rine.NewLoop(sc, app, c), c: c, r: r}
}

func drain(p *headless.Platform, l *rine.Loop) {
	for p.Pending() > 0 {
		ev, err := p.WaitEvent(context.Background())
		if err != nil {
			return
		}
		l.Step(ev)
	}
}

func TestCompositorDrawsOverApplication(t *testing.T) {
	ui := &scriptUI{}
	app := &drawingApp{}
	f := setup(t, app, ui)
	p, l, c, r := f.p, f.l, f.c, f.r

	p.PushBatch()
	drain(p, l)

	if app.calls != 1 {
		t.Errorf("DrawOverlay calls = %d, want 1", app.calls)
	}
	if c.Frames() != 1 || r.Uploads() != 1 || r.Frames() != 1 {
		t.Errorf("frames %d uploads %d renders %d", c.Frames(), r.Uploads(), r.Frames())
	}
	img := p.Surface().LastFrame()
	if got := img.RGBAAt(1, 1); got.B < 200 || got.R > 50 {
		t.Errorf("overlay pixel = %v, want blue over the clear", got)
	}
	if got := img.RGBAAt(6, 6); got.R != 255 || got.A != 255 {
		t.Errorf("app pixel = %v, want red clear preserved", got)
	}

	if l.Stats().Presented != 1 {
		t.Fatalf("Presented = %d", l.Stats().Presented)
	}
	subs := f.q.Submissions()
	want := []string{rine.MainEncoderLabel, "headless overlay upload", rine.OverlayEncoderLabel}
	if len(subs) != 1 || len(subs[0]) != len(want) {
		t.Fatalf("submissions = %v, want [%v]", subs, want)
	}
	for i := range want {
		if subs[0][i] != want[i] {
			t.Errorf("submission[%d] = %q, want %q", i, subs[0][i], want[i])
		}
	}
}

func TestCompositorWithoutDrawer(t *testing.T) {
	ui := &scriptUI{}
	f := setup(t, clearApp{}, ui)
	p, l := f.p, f.l

	p.PushBatch()
	drain(p, l)

	if got := p.Surface().LastFrame().RGBAAt(1, 1); got.R != 255 || got.G != 255 || got.B != 255 {
		t.Errorf("pixel = %v, want the UI's default white quad", got)
	}
}

func TestCompositorSnapshotsEvents(t *testing.T) {
	now := time.Unix(100, 0)
	clock := func() time.Time { return now }
	ui := &scriptUI{}
	f := setup(t, clearApp{}, ui, overlay.WithClock(clock))
	p, l := f.p, f.l

	move := rine.CursorMovedEvent{X: 1, Y: 2}
	key := rine.KeyEvent{Pressed: true}
	p.PushBatch(move, key)
	drain(p, l)
	now = now.Add(2 * time.Second)
	p.PushBatch()
	drain(p, l)

	if len(ui.inputs) != 2 {
		t.Fatalf("Run calls = %d, want 2", len(ui.inputs))
	}
	first := ui.inputs[0]
	if len(first.Events) != 2 || first.Events[0] != move || first.Events[1] != key {
		t.Errorf("first snapshot = %#v", first.Events)
	}
	if first.Screen.Width != 8 || first.PixelsPerPoint != 1 {
		t.Errorf("screen = %+v ppp %v", first.Screen, first.PixelsPerPoint)
	}
	second := ui.inputs[1]
	// The key repaint queued a RedrawRequestedEvent, which is not a window
	// event and never reaches the UI.
	if len(second.Events) != 0 {
		t.Errorf("second snapshot = %#v, want empty", second.Events)
	}
	if second.Time != 2*time.Second {
		t.Errorf("second Time = %v, want 2s", second.Time)
	}
}

func TestCompositorRequestRepaint(t *testing.T) {
	ui := &scriptUI{repaint: true}
	f := setup(t, clearApp{}, ui)
	p, l := f.p, f.l

	p.PushBatch()
	drain(p, l)

	if n := p.Window().RedrawRequests(); n == 0 {
		t.Error("RequestRepaint did not request a redraw")
	}
}

type failingRenderer struct{ err error }

func (f failingRenderer) UpdateBuffers(rine.CommandEncoder, []overlay.Mesh, overlay.ScreenDescriptor) ([]rine.CommandBuffer, error) {
	return nil, f.err
}

func (failingRenderer) Render(rine.RenderPass, []overlay.Mesh, overlay.ScreenDescriptor) error {
	return nil
}

func TestCompositorRendererFailureKeepsFrame(t *testing.T) {
	p := headless.New(headless.Options{})
	sc, err := p.OpenSurfaceContext(context.Background(), rine.DefaultWindowConfig().WithSize(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	c := overlay.New[*uiContext](&scriptUI{}, failingRenderer{err: boom})
	l := rine.NewLoop(sc, clearApp{}, c)

	p.PushBatch()
	drain(p, l)

	if l.Stats().Presented != 1 {
		t.Errorf("Presented = %d, want the application frame", l.Stats().Presented)
	}
	if c.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", c.Frames())
	}
	if got := p.Surface().LastFrame().RGBAAt(1, 1); got.R != 255 {
		t.Errorf("pixel = %v, want app clear", got)
	}
}
