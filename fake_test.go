package rine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gogpu/gputypes"
)

// Minimal in-package fakes. Integration tests in run_test.go use the
// headless platform instead.

type fakeWindow struct {
	title   string
	size    Size
	scale   float64
	redraws int
	closed  bool
}

func (w *fakeWindow) Title() string        { return w.title }
func (w *fakeWindow) SetTitle(t string)    { w.title = t }
func (w *fakeWindow) InnerSize() Size      { return w.size }
func (w *fakeWindow) ScaleFactor() float64 { return w.scale }
func (w *fakeWindow) RequestRedraw()       { w.redraws++ }
func (w *fakeWindow) Close() error         { w.closed = true; return nil }

type fakeSurface struct {
	configs   []SurfaceConfiguration
	failNext  []error
	acquired  int
	presented int
	discarded int
}

func (s *fakeSurface) PreferredFormat(Adapter) gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

func (s *fakeSurface) Configure(_ Device, cfg SurfaceConfiguration) error {
	s.configs = append(s.configs, cfg)
	return nil
}

func (s *fakeSurface) AcquireTexture() (SurfaceTexture, error) {
	if len(s.failNext) > 0 {
		err := s.failNext[0]
		s.failNext = s.failNext[1:]
		return nil, err
	}
	s.acquired++
	return &fakeTexture{s: s}, nil
}

func (s *fakeSurface) lastConfig() SurfaceConfiguration { return s.configs[len(s.configs)-1] }

type fakeTexture struct{ s *fakeSurface }

func (t *fakeTexture) CreateView() (TextureView, error) { return "frame-view", nil }
func (t *fakeTexture) Present() error                   { t.s.presented++; return nil }
func (t *fakeTexture) Discard()                         { t.s.discarded++ }

type fakeBuffer struct{ label string }

// releasableBuffer counts releases into n.
type releasableBuffer struct {
	label string
	n     *int
}

func (b releasableBuffer) Release() { *b.n++ }

type fakePass struct{ enc *fakeEncoder }

func (p *fakePass) End() error { p.enc.open = false; return nil }

type fakeEncoder struct {
	label     string
	passes    []RenderPassDescriptor
	open      bool
	finished  bool
	discarded bool
}

func (e *fakeEncoder) BeginRenderPass(desc *RenderPassDescriptor) (RenderPass, error) {
	if e.open {
		return nil, errors.New("pass already open")
	}
	e.open = true
	e.passes = append(e.passes, *desc)
	return &fakePass{enc: e}, nil
}

func (e *fakeEncoder) Finish() (CommandBuffer, error) {
	if e.open {
		return nil, errors.New("pass still open")
	}
	e.finished = true
	return fakeBuffer{label: e.label}, nil
}

func (e *fakeEncoder) Discard() { e.discarded = true }

type fakeDevice struct {
	encoders  []*fakeEncoder
	polls     int
	destroyed bool
}

func (d *fakeDevice) Poll(bool) { d.polls++ }
func (d *fakeDevice) Destroy()  { d.destroyed = true }

func (d *fakeDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	enc := &fakeEncoder{label: label}
	d.encoders = append(d.encoders, enc)
	return enc, nil
}

type fakeQueue struct {
	submits [][]CommandBuffer
	err     error
}

func (q *fakeQueue) Submit(bufs []CommandBuffer) error {
	if q.err != nil {
		return q.err
	}
	q.submits = append(q.submits, bufs)
	return nil
}

type fakeAdapter struct {
	features  gputypes.Features
	limits    gputypes.Limits
	downlevel DownlevelCapabilities
}

func (a *fakeAdapter) Info() AdapterInfo                            { return AdapterInfo{Name: "fake"} }
func (a *fakeAdapter) Features() gputypes.Features                  { return a.features }
func (a *fakeAdapter) Limits() gputypes.Limits                      { return a.limits }
func (a *fakeAdapter) DownlevelCapabilities() DownlevelCapabilities { return a.downlevel }

func (a *fakeAdapter) RequestDevice(context.Context, DeviceDescriptor) (Device, Queue, error) {
	return &fakeDevice{}, &fakeQueue{}, nil
}

// recordingApp records every callback.
type recordingApp struct {
	events  []Event
	resizes []Size
	draws   int
	dirty   int
	exitOn  func(Event) bool
}

func (a *recordingApp) HandleEvent(ev Event, _ *SurfaceContext) ControlFlow {
	a.events = append(a.events, ev)
	if a.exitOn != nil && a.exitOn(ev) {
		return ControlFlowExit
	}
	return ControlFlowContinue
}

func (a *recordingApp) Resize(size Size, _ *SurfaceContext) { a.resizes = append(a.resizes, size) }

func (a *recordingApp) Draw(_ *SurfaceContext, enc CommandEncoder, view TextureView) {
	a.draws++
	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		Label: "app",
		ColorAttachments: []ColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	if err == nil {
		_ = pass.End()
	}
}

type dirtyApp struct{ recordingApp }

func (a *dirtyApp) DrawDirty(*SurfaceContext, CommandEncoder, TextureView) { a.dirty++ }

// fakeOverlay consumes cursor moves over it and asks for a repaint on key
// events.
type fakeOverlay struct {
	seen    []Event
	redraws int
}

func (o *fakeOverlay) OnEvent(ev Event) EventResponse {
	o.seen = append(o.seen, ev)
	switch ev.(type) {
	case CursorMovedEvent:
		return EventResponse{Consumed: true}
	case KeyEvent:
		return EventResponse{Repaint: true}
	}
	return EventResponse{}
}

func (o *fakeOverlay) Redraw(_ *SurfaceContext, rec *FrameRecorder, view TextureView, _ Application) error {
	o.redraws++
	if err := rec.Append(fakeBuffer{label: "overlay-upload"}); err != nil {
		return err
	}
	enc, err := rec.Encoder()
	if err != nil {
		return err
	}
	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		Label: "overlay",
		ColorAttachments: []ColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	if err != nil {
		return err
	}
	return pass.End()
}

type harness struct {
	window  *fakeWindow
	surface *fakeSurface
	device  *fakeDevice
	queue   *fakeQueue
	sc      *SurfaceContext
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		window:  &fakeWindow{title: DefaultTitle, size: Size{Width: 640, Height: 480}, scale: 1},
		surface: &fakeSurface{},
		device:  &fakeDevice{},
		queue:   &fakeQueue{},
	}
	cfg := DefaultSurfaceConfiguration(gputypes.TextureFormatBGRA8Unorm, h.window.size, true)
	sc, err := NewSurfaceContext(h.window, h.surface, &fakeAdapter{}, h.device, h.queue, cfg)
	if err != nil {
		t.Fatalf("NewSurfaceContext() = %v", err)
	}
	h.sc = sc
	return h
}

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

// sliceSource replays events and then reports io.EOF.
type sliceSource struct{ events []Event }

func (s *sliceSource) WaitEvent(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.events) == 0 {
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}
