package rine

// EventResponse is an overlay's verdict on a window event.
type EventResponse struct {
	// Consumed events are not forwarded to the application and do not
	// count toward producing a frame.
	Consumed bool
	// Repaint asks the loop to request a redraw from the window.
	Repaint bool
}

// Overlay is an optional frame contributor drawn on top of the
// application. The loop offers it window events first and calls Redraw
// after the application has recorded its frame.
type Overlay interface {
	OnEvent(ev Event) EventResponse

	// Redraw records the overlay into rec, in the segment the loop has
	// opened for it, targeting view. It must not clear view.
	Redraw(sc *SurfaceContext, rec *FrameRecorder, view TextureView, app Application) error
}
