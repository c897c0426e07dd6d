package rine

// Option configures Run.
//
// Example:
//
//	err := rine.Run(ctx, platform, desc,
//	    rine.WithConfig(cfg),
//	    rine.WithOverlay(func(sc *rine.SurfaceContext) (rine.Overlay, error) {
//	        return overlay.New(hud.New(), renderer), nil
//	    }),
//	)
type Option func(*runOptions)

// OverlayFactory builds the overlay once the surface context exists.
type OverlayFactory func(sc *SurfaceContext) (Overlay, error)

type runOptions struct {
	config  Config
	window  WindowConfig
	overlay OverlayFactory
	onExit  func(FrameStats)
}

func defaultRunOptions() runOptions {
	return runOptions{window: DefaultWindowConfig()}
}

// WithConfig sets process-level configuration, typically from ConfigFromEnv.
func WithConfig(cfg Config) Option {
	return func(o *runOptions) {
		o.config = cfg
	}
}

// WithWindowConfig sets the base window configuration. The descriptor's
// WindowConfigurer, if any, is applied on top of it.
func WithWindowConfig(cfg WindowConfig) Option {
	return func(o *runOptions) {
		o.window = cfg
	}
}

// WithOverlay installs an overlay contributor drawn after the application.
func WithOverlay(f OverlayFactory) Option {
	return func(o *runOptions) {
		o.overlay = f
	}
}

// WithExitHook registers fn to receive the frame counters when the loop ends.
func WithExitHook(fn func(FrameStats)) Option {
	return func(o *runOptions) {
		o.onExit = fn
	}
}
