// Package rine bootstraps a window with a GPU surface and drives a single
// event/render loop for a pluggable application.
//
// # Overview
//
// Run performs one-time setup through a [Platform]: it creates the window,
// picks an adapter, negotiates features and limits, opens the device,
// configures the surface and asks the [Descriptor] for the [Application].
// It then hands control to a [Loop].
//
// The loop dispatches every platform event. Resize and scale-factor events
// reconfigure the surface before the application hears about them. Close
// and destroy requests end the loop. After each [EventsDrainedEvent] the loop
// produces exactly one frame attempt: acquire, let the application record
// into a shared encoder, let an optional [Overlay] record its own non-clearing
// pass on top, then submit everything in order and present.
//
// # Quick Start
//
//	type app struct{ rine.BaseApplication }
//
//	func (a *app) Draw(sc *rine.SurfaceContext, enc rine.CommandEncoder, view rine.TextureView) {
//	    pass, _ := enc.BeginRenderPass(&rine.RenderPassDescriptor{
//	        ColorAttachments: []rine.ColorAttachment{{
//	            View:       view,
//	            LoadOp:     gputypes.LoadOpClear,
//	            StoreOp:    gputypes.StoreOpStore,
//	            ClearValue: gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1},
//	        }},
//	    })
//	    _ = pass.End()
//	}
//
//	desc := rine.DescriptorFunc(func(*rine.SurfaceContext) (rine.Application, error) {
//	    return &app{}, nil
//	})
//	err := rine.Run(ctx, headless.New(headless.Options{}), desc)
//
// # Frame failures
//
// Acquisition failures are classified by [AcquireKind]. Outdated surfaces
// skip the frame silently, lost surfaces are reconfigured in place,
// anything unrecognized drops the frame with an error log, and running out
// of memory ends the loop with [ErrSurfaceOutOfMemory].
//
// # Logging
//
// rine is silent by default. See [SetLogger].
package rine
