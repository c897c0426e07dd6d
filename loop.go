package rine

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// redrawState is the per-loop redraw bookkeeping.
type redrawState struct {
	// system is set by RedrawRequestedEvent and cleared when a frame
	// consumes it.
	system bool
	// gpu is set by EventsDrainedEvent and cleared on entering the frame
	// gate, regardless of the outcome.
	gpu bool
}

// FrameStats counts frame outcomes since the loop started.
type FrameStats struct {
	Presented   uint64
	Outdated    uint64
	Lost        uint64
	OutOfMemory uint64
	// Dropped counts frames lost to AcquireOther, encoder or submission
	// failures.
	Dropped uint64
}

// Loop is the render-loop orchestrator. It dispatches events to the
// overlay, the surface and the application, and produces a frame after
// each drained event batch.
//
// A Loop is driven from one goroutine, either by Run or by calling Step
// per event.
type Loop struct {
	sc      *SurfaceContext
	app     Application
	overlay Overlay

	redraw redrawState
	stats  FrameStats

	exited bool
	err    error
}

// NewLoop returns a loop over sc and app. overlay may be nil.
func NewLoop(sc *SurfaceContext, app Application, overlay Overlay) *Loop {
	return &Loop{sc: sc, app: app, overlay: overlay}
}

// Stats returns the frame counters.
func (l *Loop) Stats() FrameStats { return l.stats }

// Err returns the error that ended the loop, if any.
func (l *Loop) Err() error { return l.err }

// Exited reports whether the loop has decided to stop.
func (l *Loop) Exited() bool { return l.exited }

// Run pumps src until the loop exits. It returns nil after a close request,
// an application exit or an exhausted source (io.EOF), the wrapped
// ErrSurfaceOutOfMemory when the GPU ran out of memory, and ctx.Err() when
// ctx is cancelled. Cancellation is observed between iterations.
func (l *Loop) Run(ctx context.Context, src EventSource) error {
	for !l.exited {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := src.WaitEvent(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				Logger().Info("rine: event source exhausted")
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("rine: wait event: %w", err)
		}
		l.Step(ev)
	}
	return l.err
}

// Step runs one loop iteration for ev and reports whether to continue.
func (l *Loop) Step(ev Event) ControlFlow {
	if l.exited {
		return ControlFlowExit
	}
	flow := l.dispatch(ev)
	if l.redraw.gpu {
		l.redraw.gpu = false
		if l.frame() == ControlFlowExit {
			flow = ControlFlowExit
		}
	}
	if flow == ControlFlowExit {
		l.exited = true
		Logger().Info("rine: loop exit", "presented", l.stats.Presented)
	}
	return flow
}

func (l *Loop) dispatch(ev Event) ControlFlow {
	if l.overlay != nil && IsWindowEvent(ev) {
		resp := l.overlay.OnEvent(ev)
		if resp.Repaint {
			l.sc.Window().RequestRedraw()
		}
		if resp.Consumed {
			return ControlFlowContinue
		}
	}

	switch e := ev.(type) {
	case ResizedEvent:
		l.resize(e.Size)
	case ScaleFactorChangedEvent:
		l.resize(e.Size)
	case CloseRequestedEvent, DestroyedEvent:
		return ControlFlowExit
	case RedrawRequestedEvent:
		l.redraw.system = true
	case EventsDrainedEvent:
		l.redraw.gpu = true
		return l.app.HandleEvent(ev, l.sc)
	default:
		return l.app.HandleEvent(ev, l.sc)
	}
	return ControlFlowContinue
}

func (l *Loop) resize(size Size) {
	if err := l.sc.Configure(size.Width, size.Height); err != nil {
		Logger().Error("rine: resize surface", "width", size.Width, "height", size.Height, "error", err)
	}
	l.app.Resize(l.sc.Size(), l.sc)
}

// frame acquires, records, submits and presents one frame.
func (l *Loop) frame() ControlFlow {
	log := Logger()

	frame, err := l.sc.AcquireFrame()
	if err != nil {
		ae := classifyAcquire(err)
		switch ae.Kind {
		case AcquireOutdated:
			l.stats.Outdated++
		case AcquireLost:
			l.stats.Lost++
			log.Debug("rine: surface lost, reconfiguring")
			if err := l.sc.ReconfigureInPlace(); err != nil {
				log.Error("rine: reconfigure lost surface", "error", err)
			}
		case AcquireOutOfMemory:
			l.stats.OutOfMemory++
			log.Error("rine: out of memory, exiting", "error", err)
			l.err = fmt.Errorf("rine: acquire frame: %w", ErrSurfaceOutOfMemory)
			return ControlFlowExit
		default:
			l.stats.Dropped++
			log.Error("rine: dropped frame", "error", err)
		}
		return ControlFlowContinue
	}

	cmds, err := l.record(frame)
	if err != nil {
		l.stats.Dropped++
		log.Error("rine: dropped frame", "error", err)
		if derr := frame.Discard(); derr != nil && !errors.Is(derr, ErrFrameDone) {
			log.Warn("rine: discard frame", "error", derr)
		}
		return ControlFlowContinue
	}

	err = l.sc.Present(frame, cmds)
	l.sc.Device().Poll(false)
	if err != nil {
		l.stats.Dropped++
		log.Error("rine: dropped frame", "error", err)
		return ControlFlowContinue
	}
	l.stats.Presented++
	log.Debug("rine: frame presented", "buffers", len(cmds), "n", l.stats.Presented)
	return ControlFlowContinue
}

// record runs the application and overlay contributors for frame.
func (l *Loop) record(frame *Frame) ([]CommandBuffer, error) {
	rec := NewFrameRecorder(l.sc.Device())
	if err := rec.Begin("application", MainEncoderLabel); err != nil {
		return nil, err
	}
	enc, err := rec.Encoder()
	if err != nil {
		rec.Discard()
		return nil, err
	}

	view := frame.View()
	l.app.Draw(l.sc, enc, view)
	if l.redraw.system {
		l.redraw.system = false
		if dd, ok := l.app.(DirtyDrawer); ok {
			dd.DrawDirty(l.sc, enc, view)
		}
	}

	if l.overlay != nil {
		if err := rec.Begin("overlay", OverlayEncoderLabel); err != nil {
			rec.Discard()
			return nil, err
		}
		if err := l.overlay.Redraw(l.sc, rec, view, l.app); err != nil {
			Logger().Warn("rine: overlay redraw failed", "error", err)
		}
	}
	return rec.Finish()
}
