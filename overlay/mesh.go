package overlay

import (
	"time"

	"github.com/jaquobia/rine"
)

// Rect is an axis-aligned rectangle in points.
type Rect struct {
	X, Y, W, H float32
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// Intersect returns the overlap of r and o, empty if they are disjoint.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Vertex is one mesh vertex. Pos is in points; Color is straight RGBA in
// [0, 1].
type Vertex struct {
	Pos   [2]float32
	Color [4]float32
}

// Mesh is an indexed triangle list clipped to Clip.
type Mesh struct {
	Clip     Rect
	Vertices []Vertex
	Indices  []uint16
}

// MaxMeshVertices is the largest vertex count addressable by uint16 indices.
const MaxMeshVertices = 1 << 16

// ScreenDescriptor describes the render target for a renderer.
type ScreenDescriptor struct {
	// Width and Height are in physical pixels.
	Width, Height  uint32
	PixelsPerPoint float32
}

// PointSize is the screen size in points.
func (s ScreenDescriptor) PointSize() (w, h float32) {
	ppp := s.PixelsPerPoint
	if ppp <= 0 {
		ppp = 1
	}
	return float32(s.Width) / ppp, float32(s.Height) / ppp
}

// Input is the snapshot handed to a UI for one frame.
type Input struct {
	// Events are the window events offered since the previous frame, in
	// arrival order.
	Events         []rine.Event
	Screen         ScreenDescriptor
	Time           time.Duration
	PixelsPerPoint float32
}

// Output is what a UI produced for one frame.
type Output struct {
	Meshes         []Mesh
	RequestRepaint bool
}
