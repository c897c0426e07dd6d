package headless

import (
	"sync"

	"github.com/jaquobia/rine"
)

// Window is a headless window. RequestRedraw queues a RedrawRequestedEvent
// on the platform.
type Window struct {
	platform  *Platform
	resizable bool

	mu       sync.Mutex
	title    string
	size     rine.Size
	scale    float64
	closed   bool
	requests int
}

func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *Window) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
}

func (w *Window) InnerSize() rine.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

func (w *Window) ScaleFactor() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scale
}

// SetScaleFactor changes the scale and queues a ScaleFactorChangedEvent
// with the size scaled accordingly.
func (w *Window) SetScaleFactor(scale float64) {
	w.mu.Lock()
	old := w.scale
	w.scale = scale
	size := rine.Size{
		Width:  uint32(float64(w.size.Width) * scale / old),
		Height: uint32(float64(w.size.Height) * scale / old),
	}
	w.size = size
	w.mu.Unlock()
	w.platform.Push(rine.ScaleFactorChangedEvent{ScaleFactor: scale, Size: size})
}

func (w *Window) RequestRedraw() {
	w.mu.Lock()
	w.requests++
	w.mu.Unlock()
	w.platform.Push(rine.RedrawRequestedEvent{})
}

// RedrawRequests counts RequestRedraw calls.
func (w *Window) RedrawRequests() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requests
}

// Resizable reports the creation-time setting.
func (w *Window) Resizable() bool { return w.resizable }

func (w *Window) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Window) setSize(s rine.Size) {
	w.mu.Lock()
	w.size = s
	w.mu.Unlock()
}
