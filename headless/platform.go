// Package headless is an in-memory rine platform.
//
// It has no window system and no GPU. Events are scripted with Push and
// PushBatch, the surface is backed by *image.RGBA textures, and command
// buffers replay their recorded operations on the CPU when submitted. It
// is used by tests and by the rinedemo command to exercise the full loop
// deterministically.
package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/jaquobia/rine"
)

// ErrInjected marks setup failures requested through Options.
var ErrInjected = errors.New("headless: injected failure")

// Options configures a Platform.
type Options struct {
	// ScaleFactor of the window. Zero means 1.
	ScaleFactor float64
	// Format reported by Surface.PreferredFormat. Zero means
	// gputypes.TextureFormatRGBA8Unorm.
	Format  gputypes.TextureFormat
	Adapter AdapterConfig

	FailWindow  bool
	FailSurface bool
	NoAdapter   bool
}

// Platform is a scripted rine.Platform. Push methods may be called from any
// goroutine; the rest is used from the loop goroutine.
type Platform struct {
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	events []rine.Event

	window  *Window
	surface *Surface
	adapter *Adapter
}

var _ rine.Platform = (*Platform)(nil)

// New returns a platform with opts.
func New(opts Options) *Platform {
	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = 1
	}
	if opts.Format == gputypes.TextureFormatUndefined {
		opts.Format = gputypes.TextureFormatRGBA8Unorm
	}
	return &Platform{opts: opts, log: rine.Logger()}
}

// SetLogger replaces the platform logger. rine.Run calls it.
func (p *Platform) SetLogger(l *slog.Logger) { p.log = l }

// Push queues events.
func (p *Platform) Push(evs ...rine.Event) {
	p.mu.Lock()
	p.events = append(p.events, evs...)
	p.mu.Unlock()
}

// PushBatch queues events followed by an EventsDrainedEvent, which is what
// a real platform delivers after each batch.
func (p *Platform) PushBatch(evs ...rine.Event) {
	p.mu.Lock()
	p.events = append(p.events, evs...)
	p.events = append(p.events, rine.EventsDrainedEvent{})
	p.mu.Unlock()
}

// PushResize sets the window size and queues the matching ResizedEvent.
func (p *Platform) PushResize(width, height uint32) {
	size := rine.Size{Width: width, Height: height}
	if p.window != nil {
		p.window.setSize(size)
	}
	p.Push(rine.ResizedEvent{Size: size})
}

// Pending is the number of queued events.
func (p *Platform) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// WaitEvent pops the next event. It returns io.EOF when the queue is empty.
func (p *Platform) WaitEvent(ctx context.Context) (rine.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil, io.EOF
	}
	ev := p.events[0]
	p.events = p.events[1:]
	return ev, nil
}

// CreateWindow creates the single window of the platform.
func (p *Platform) CreateWindow(cfg rine.WindowConfig) (rine.Window, error) {
	if p.opts.FailWindow {
		return nil, fmt.Errorf("create window %q: %w", cfg.Title, ErrInjected)
	}
	if p.window != nil && !p.window.Closed() {
		return nil, errors.New("headless: window already open")
	}
	p.window = &Window{
		platform:  p,
		title:     cfg.Title,
		size:      rine.Size{Width: cfg.Width, Height: cfg.Height},
		scale:     p.opts.ScaleFactor,
		resizable: cfg.Resizable,
	}
	p.log.Debug("headless: window created", "title", cfg.Title, "width", cfg.Width, "height", cfg.Height)
	return p.window, nil
}

// CreateSurface creates a software surface for w.
func (p *Platform) CreateSurface(w rine.Window) (rine.Surface, error) {
	if p.opts.FailSurface {
		return nil, fmt.Errorf("create surface: %w", ErrInjected)
	}
	hw, ok := w.(*Window)
	if !ok || hw.platform != p {
		return nil, errors.New("headless: window belongs to another platform")
	}
	p.surface = &Surface{window: hw, format: p.opts.Format}
	return p.surface, nil
}

// RequestAdapter returns the platform's only adapter if it matches opts.
func (p *Platform) RequestAdapter(_ context.Context, opts rine.AdapterOptions) (rine.Adapter, error) {
	if p.opts.NoAdapter {
		return nil, fmt.Errorf("request adapter: %w", ErrInjected)
	}
	a := newAdapter(p.opts.Adapter)
	if !a.matches(opts) {
		return nil, fmt.Errorf("headless: no adapter matches name %q backend %q", opts.Name, opts.Backend)
	}
	p.adapter = a
	return a, nil
}

// Window returns the created window, or nil.
func (p *Platform) Window() *Window { return p.window }

// Surface returns the created surface, or nil.
func (p *Platform) Surface() *Surface { return p.surface }

// Adapter returns the selected adapter, or nil.
func (p *Platform) Adapter() *Adapter { return p.adapter }

// OpenSurfaceContext performs the same setup as rine.Run on p without
// starting a loop. It is meant for tests and custom drivers that call
// rine.Loop.Step themselves.
func (p *Platform) OpenSurfaceContext(ctx context.Context, cfg rine.WindowConfig) (*rine.SurfaceContext, error) {
	w, err := p.CreateWindow(cfg)
	if err != nil {
		return nil, err
	}
	s, err := p.CreateSurface(w)
	if err != nil {
		return nil, err
	}
	a, err := p.RequestAdapter(ctx, rine.AdapterOptions{CompatibleSurface: s})
	if err != nil {
		return nil, err
	}
	dev, q, err := a.RequestDevice(ctx, rine.Negotiate(a, rine.DefaultRequirements(), cfg.Title))
	if err != nil {
		return nil, err
	}
	sc := rine.DefaultSurfaceConfiguration(s.PreferredFormat(a), w.InnerSize(), cfg.VSync)
	return rine.NewSurfaceContext(w, s, a, dev, q, sc)
}
