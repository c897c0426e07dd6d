package rine

import "github.com/gogpu/gpucontext"

// Event is a platform event delivered to the loop. Platforms outside this
// package wrap anything without a dedicated type in RawEvent.
type Event interface {
	isEvent()
}

// Size is a window or surface extent in physical pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// clamp raises each dimension to at least 1.
func (s Size) clamp() Size {
	return Size{Width: max(s.Width, 1), Height: max(s.Height, 1)}
}

// ResizedEvent reports a new inner size of the window.
type ResizedEvent struct {
	Size Size
}

// ScaleFactorChangedEvent reports a DPI change. Size is the new inner size
// the platform settled on for this scale factor.
type ScaleFactorChangedEvent struct {
	ScaleFactor float64
	Size        Size
}

// CloseRequestedEvent is sent when the user asks to close the window.
type CloseRequestedEvent struct{}

// DestroyedEvent is sent after the window has been destroyed.
type DestroyedEvent struct{}

// RedrawRequestedEvent is sent when the platform wants the window repainted,
// either on its own or after Window.RequestRedraw.
type RedrawRequestedEvent struct{}

// EventsDrainedEvent marks the end of a batch of pending events. A frame is
// produced after each one.
type EventsDrainedEvent struct{}

// KeyEvent is a keyboard press or release.
type KeyEvent struct {
	Key     gpucontext.Key
	Mods    gpucontext.Modifiers
	Pressed bool
	Repeat  bool
}

// CharEvent carries text input.
type CharEvent struct {
	Char rune
}

// CursorMovedEvent reports the pointer position in physical pixels.
type CursorMovedEvent struct {
	X, Y float64
}

// CursorLeftEvent reports the pointer leaving the window.
type CursorLeftEvent struct{}

// MouseButton identifies a pointer button.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// MouseButtonEvent is a pointer button press or release.
type MouseButtonEvent struct {
	Button  MouseButton
	Pressed bool
}

// ScrollEvent is a wheel or touchpad scroll in lines.
type ScrollEvent struct {
	DX, DY float64
}

// FocusEvent reports keyboard focus changes.
type FocusEvent struct {
	Focused bool
}

// RawEvent carries a platform-specific event the core does not interpret.
// It is forwarded to the application unchanged.
type RawEvent struct {
	Payload any
}

func (ResizedEvent) isEvent()            {}
func (ScaleFactorChangedEvent) isEvent() {}
func (CloseRequestedEvent) isEvent()     {}
func (DestroyedEvent) isEvent()          {}
func (RedrawRequestedEvent) isEvent()    {}
func (EventsDrainedEvent) isEvent()      {}
func (KeyEvent) isEvent()                {}
func (CharEvent) isEvent()               {}
func (CursorMovedEvent) isEvent()        {}
func (CursorLeftEvent) isEvent()         {}
func (MouseButtonEvent) isEvent()        {}
func (ScrollEvent) isEvent()             {}
func (FocusEvent) isEvent()              {}
func (RawEvent) isEvent()                {}

// IsWindowEvent reports whether ev concerns the window itself (input,
// geometry, lifecycle) as opposed to loop bookkeeping. Only window events
// are offered to an overlay.
func IsWindowEvent(ev Event) bool {
	switch ev.(type) {
	case RedrawRequestedEvent, EventsDrainedEvent, RawEvent:
		return false
	}
	return ev != nil
}
