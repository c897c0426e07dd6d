package rine

import "context"

// DefaultTitle is the window title used when the application sets none.
const DefaultTitle = "Rine Application!"

// Window is a platform window. The SurfaceContext owns it exclusively.
type Window interface {
	Title() string
	SetTitle(title string)

	// InnerSize is the drawable area in physical pixels.
	InnerSize() Size
	ScaleFactor() float64

	// RequestRedraw asks the platform to emit a RedrawRequestedEvent.
	RequestRedraw()

	Close() error
}

// WindowConfig describes the window to create. It is a value type; the
// With methods return modified copies.
type WindowConfig struct {
	Title     string
	Width     uint32
	Height    uint32
	Resizable bool
	// VSync selects the initial present mode.
	VSync bool
}

// DefaultWindowConfig returns an 800x600 resizable window with vsync.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Title:     DefaultTitle,
		Width:     800,
		Height:    600,
		Resizable: true,
		VSync:     true,
	}
}

func (c WindowConfig) WithTitle(title string) WindowConfig {
	c.Title = title
	return c
}

func (c WindowConfig) WithSize(width, height uint32) WindowConfig {
	c.Width, c.Height = width, height
	return c
}

func (c WindowConfig) WithResizable(resizable bool) WindowConfig {
	c.Resizable = resizable
	return c
}

func (c WindowConfig) WithVSync(vsync bool) WindowConfig {
	c.VSync = vsync
	return c
}

// EventSource yields platform events one at a time. WaitEvent blocks until
// an event is available. It returns io.EOF when the platform has no more
// events to deliver, which ends the loop cleanly.
type EventSource interface {
	WaitEvent(ctx context.Context) (Event, error)
}

// Platform is the window system plus GPU instance the bootstrap talks to.
type Platform interface {
	EventSource

	CreateWindow(cfg WindowConfig) (Window, error)
	CreateSurface(w Window) (Surface, error)
	RequestAdapter(ctx context.Context, opts AdapterOptions) (Adapter, error)
}
