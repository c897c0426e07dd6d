package rine

import "github.com/gogpu/gputypes"

// ControlFlow tells the loop whether to keep running.
type ControlFlow uint8

const (
	ControlFlowContinue ControlFlow = iota
	ControlFlowExit
)

func (c ControlFlow) String() string {
	if c == ControlFlowExit {
		return "Exit"
	}
	return "Continue"
}

// Application receives loop callbacks. Embed BaseApplication to pick up
// no-op defaults and override only what is needed.
//
// All methods run on the loop goroutine.
type Application interface {
	// HandleEvent is called once for every event that reaches the
	// application, including EventsDrainedEvent.
	HandleEvent(ev Event, sc *SurfaceContext) ControlFlow

	// Resize is called after the surface has been reconfigured. size is the
	// clamped surface size.
	Resize(size Size, sc *SurfaceContext)

	// Draw records this frame's commands into enc targeting view. It must
	// not submit or present.
	Draw(sc *SurfaceContext, enc CommandEncoder, view TextureView)
}

// BaseApplication implements Application with no-ops.
type BaseApplication struct{}

func (BaseApplication) HandleEvent(Event, *SurfaceContext) ControlFlow    { return ControlFlowContinue }
func (BaseApplication) Resize(Size, *SurfaceContext)                      {}
func (BaseApplication) Draw(*SurfaceContext, CommandEncoder, TextureView) {}

// DirtyDrawer is implemented by applications that repaint only changed
// elements when the platform explicitly asked for a redraw (for example
// after an expose). DrawDirty runs in the same frame, after Draw.
type DirtyDrawer interface {
	DrawDirty(sc *SurfaceContext, enc CommandEncoder, view TextureView)
}

// Descriptor creates the application once the GPU context exists.
// It may also implement WindowConfigurer, FeatureRequester,
// DownlevelRequester and LimitsRequester to influence setup.
type Descriptor interface {
	Create(sc *SurfaceContext) (Application, error)
}

// DescriptorFunc adapts a function to Descriptor.
type DescriptorFunc func(sc *SurfaceContext) (Application, error)

func (f DescriptorFunc) Create(sc *SurfaceContext) (Application, error) { return f(sc) }

// WindowConfigurer customizes the window before it is created.
type WindowConfigurer interface {
	ConfigureWindow(cfg WindowConfig) WindowConfig
}

// FeatureRequester declares GPU features. Missing optional features are
// dropped silently; missing required ones are logged.
type FeatureRequester interface {
	GPUFeatures() (required, optional gputypes.Features)
}

// DownlevelRequester declares the downlevel baseline the application needs.
type DownlevelRequester interface {
	GPUDownlevelCapabilities() DownlevelCapabilities
}

// LimitsRequester declares the device limits the application needs.
type LimitsRequester interface {
	GPULimits() gputypes.Limits
}

// requirementsOf collects the optional setup declarations of desc.
func requirementsOf(desc Descriptor) Requirements {
	req := DefaultRequirements()
	if fr, ok := desc.(FeatureRequester); ok {
		req.RequiredFeatures, req.OptionalFeatures = fr.GPUFeatures()
	}
	if dr, ok := desc.(DownlevelRequester); ok {
		req.Downlevel = dr.GPUDownlevelCapabilities()
	}
	if lr, ok := desc.(LimitsRequester); ok {
		req.Limits = lr.GPULimits()
	}
	return req
}

// windowConfigOf applies the descriptor's window customization to base.
func windowConfigOf(desc Descriptor, base WindowConfig) WindowConfig {
	if wc, ok := desc.(WindowConfigurer); ok {
		base = wc.ConfigureWindow(base)
	}
	if base.Title == "" {
		base.Title = DefaultTitle
	}
	return base
}
