package rine

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// PresentMode controls how presented frames are synchronized with the
// display.
type PresentMode uint8

const (
	// PresentModeAutoVsync picks Fifo-style synchronized presentation.
	PresentModeAutoVsync PresentMode = iota
	// PresentModeAutoNoVsync picks the lowest-latency mode available.
	PresentModeAutoNoVsync
	PresentModeFifo
	PresentModeFifoRelaxed
	PresentModeImmediate
	PresentModeMailbox
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeAutoVsync:
		return "AutoVsync"
	case PresentModeAutoNoVsync:
		return "AutoNoVsync"
	case PresentModeFifo:
		return "Fifo"
	case PresentModeFifoRelaxed:
		return "FifoRelaxed"
	case PresentModeImmediate:
		return "Immediate"
	case PresentModeMailbox:
		return "Mailbox"
	default:
		return fmt.Sprintf("PresentMode(%d)", uint8(m))
	}
}

// vsync reports whether the mode waits for vertical blank.
func (m PresentMode) vsync() bool {
	switch m {
	case PresentModeAutoNoVsync, PresentModeImmediate, PresentModeMailbox:
		return false
	}
	return true
}

// AlphaMode is how the compositor treats surface alpha.
type AlphaMode uint8

const (
	AlphaModeAuto AlphaMode = iota
	AlphaModeOpaque
	AlphaModePremultiplied
	AlphaModePostmultiplied
	AlphaModeInherit
)

// SurfaceConfiguration is the presentation configuration of a surface.
// Width and Height are always at least 1 once applied.
type SurfaceConfiguration struct {
	Usage       gputypes.TextureUsage
	Format      gputypes.TextureFormat
	Width       uint32
	Height      uint32
	PresentMode PresentMode
	AlphaMode   AlphaMode
}

// DefaultSurfaceConfiguration returns a render-attachment configuration in
// format at the given size.
func DefaultSurfaceConfiguration(format gputypes.TextureFormat, size Size, vsync bool) SurfaceConfiguration {
	mode := PresentModeAutoVsync
	if !vsync {
		mode = PresentModeAutoNoVsync
	}
	size = size.clamp()
	return SurfaceConfiguration{
		Usage:       gputypes.TextureUsageRenderAttachment,
		Format:      format,
		Width:       size.Width,
		Height:      size.Height,
		PresentMode: mode,
		AlphaMode:   AlphaModeAuto,
	}
}

// Surface is the presentable target bound to a window.
type Surface interface {
	// PreferredFormat is the format the surface wants on adapter.
	PreferredFormat(adapter Adapter) gputypes.TextureFormat

	// Configure (re)applies cfg.
	Configure(device Device, cfg SurfaceConfiguration) error

	// AcquireTexture returns the next presentable texture. Failures should
	// wrap ErrSurfaceOutdated, ErrSurfaceLost, ErrSurfaceOutOfMemory or
	// ErrSurfaceTimeout where they apply.
	AcquireTexture() (SurfaceTexture, error)
}

// SurfaceTexture is one acquired swapchain image.
type SurfaceTexture interface {
	CreateView() (TextureView, error)
	Present() error
	// Discard returns the image without presenting it.
	Discard()
}

// Frame is an acquired, not yet presented surface texture.
type Frame struct {
	sc      *SurfaceContext
	texture SurfaceTexture
	view    TextureView
	done    bool
}

// View is the render target view for this frame.
func (f *Frame) View() TextureView { return f.view }

// Texture is the underlying surface texture.
func (f *Frame) Texture() SurfaceTexture { return f.texture }

// Discard drops the frame without presenting it.
func (f *Frame) Discard() error {
	if f.done {
		return ErrFrameDone
	}
	f.finish()
	f.texture.Discard()
	return nil
}

func (f *Frame) finish() {
	f.done = true
	if f.sc.outstanding == f {
		f.sc.outstanding = nil
	}
}

// SurfaceContext owns the window, device, queue and presentation
// configuration for one window. It is not safe for concurrent use; the loop
// goroutine owns it.
type SurfaceContext struct {
	window  Window
	surface Surface
	adapter Adapter
	device  Device
	queue   Queue
	config  SurfaceConfiguration

	outstanding *Frame
}

// NewSurfaceContext binds the given resources and applies cfg once.
func NewSurfaceContext(window Window, surface Surface, adapter Adapter, device Device, queue Queue, cfg SurfaceConfiguration) (*SurfaceContext, error) {
	sc := &SurfaceContext{
		window:  window,
		surface: surface,
		adapter: adapter,
		device:  device,
		queue:   queue,
		config:  cfg,
	}
	if err := sc.Configure(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *SurfaceContext) Window() Window                 { return sc.window }
func (sc *SurfaceContext) Surface() Surface               { return sc.surface }
func (sc *SurfaceContext) Adapter() Adapter               { return sc.adapter }
func (sc *SurfaceContext) Device() Device                 { return sc.device }
func (sc *SurfaceContext) Queue() Queue                   { return sc.queue }
func (sc *SurfaceContext) Config() SurfaceConfiguration   { return sc.config }
func (sc *SurfaceContext) Format() gputypes.TextureFormat { return sc.config.Format }

// Size is the configured surface size.
func (sc *SurfaceContext) Size() Size {
	return Size{Width: sc.config.Width, Height: sc.config.Height}
}

// Configure stores the new size, each dimension clamped to at least 1, and
// re-applies the configuration even when the size did not change.
func (sc *SurfaceContext) Configure(width, height uint32) error {
	s := Size{Width: width, Height: height}.clamp()
	sc.config.Width, sc.config.Height = s.Width, s.Height
	return sc.apply()
}

// ReconfigureInPlace re-applies the current configuration unchanged. Use
// it after the surface reported it was lost.
func (sc *SurfaceContext) ReconfigureInPlace() error {
	return sc.apply()
}

func (sc *SurfaceContext) apply() error {
	if err := sc.surface.Configure(sc.device, sc.config); err != nil {
		return fmt.Errorf("rine: configure surface %dx%d: %w", sc.config.Width, sc.config.Height, err)
	}
	return nil
}

// VSync reports whether the configured present mode waits for vblank.
func (sc *SurfaceContext) VSync() bool { return sc.config.PresentMode.vsync() }

// SetVSync switches between PresentModeAutoVsync and PresentModeAutoNoVsync.
// The change is stored only; it takes effect at the next Configure or
// ReconfigureInPlace.
func (sc *SurfaceContext) SetVSync(on bool) {
	if on {
		sc.config.PresentMode = PresentModeAutoVsync
	} else {
		sc.config.PresentMode = PresentModeAutoNoVsync
	}
}

// ToggleVSync flips the vsync setting and returns the new value.
func (sc *SurfaceContext) ToggleVSync() bool {
	on := !sc.VSync()
	sc.SetVSync(on)
	return on
}

// SetPresentMode stores an explicit present mode, applied lazily like
// SetVSync.
func (sc *SurfaceContext) SetPresentMode(mode PresentMode) {
	sc.config.PresentMode = mode
}

// AcquireFrame obtains the next frame. On failure the error is always an
// *AcquireError with exactly one Kind.
func (sc *SurfaceContext) AcquireFrame() (*Frame, error) {
	if sc.outstanding != nil {
		return nil, &AcquireError{Kind: AcquireOther, Err: ErrFrameOutstanding}
	}
	tex, err := sc.surface.AcquireTexture()
	if err != nil {
		return nil, classifyAcquire(err)
	}
	view, err := tex.CreateView()
	if err != nil {
		tex.Discard()
		return nil, &AcquireError{Kind: AcquireOther, Err: fmt.Errorf("create view: %w", err)}
	}
	f := &Frame{sc: sc, texture: tex, view: view}
	sc.outstanding = f
	return f, nil
}

// Present submits commands in order as one submission and then presents
// frame. If submission fails the frame is discarded.
func (sc *SurfaceContext) Present(frame *Frame, commands []CommandBuffer) error {
	if frame == nil || frame.sc != sc {
		return errors.New("rine: present: frame does not belong to this surface")
	}
	if frame.done {
		return ErrFrameDone
	}
	if err := sc.queue.Submit(commands); err != nil {
		frame.finish()
		frame.texture.Discard()
		return fmt.Errorf("rine: submit %d command buffers: %w", len(commands), err)
	}
	frame.finish()
	if err := frame.texture.Present(); err != nil {
		return fmt.Errorf("rine: present: %w", err)
	}
	return nil
}

// GPUContextProvider exposes the device through gpucontext so gogpu
// libraries (gg, ui) can share it.
func (sc *SurfaceContext) GPUContextProvider() gpucontext.DeviceProvider {
	return deviceProvider{sc: sc}
}

type deviceProvider struct{ sc *SurfaceContext }

func (p deviceProvider) Device() gpucontext.Device             { return p.sc.device }
func (p deviceProvider) Queue() gpucontext.Queue               { return p.sc.queue }
func (p deviceProvider) Adapter() gpucontext.Adapter           { return p.sc.adapter }
func (p deviceProvider) SurfaceFormat() gputypes.TextureFormat { return p.sc.config.Format }

func (p deviceProvider) AdapterInfo() gpucontext.AdapterInfo {
	info := p.sc.adapter.Info()
	return gpucontext.AdapterInfo{Name: info.Name, Type: adapterType(info.DeviceType)}
}

// adapterType maps a device type onto the coarser gpucontext classification.
func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterTypeUnknown
}
