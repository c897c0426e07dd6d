package headless

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"
	"github.com/jaquobia/rine"
	"github.com/jaquobia/rine/overlay"
	"golang.org/x/image/draw"
)

// OverlayRenderer rasterizes overlay meshes on the CPU with gg.
//
// UpdateBuffers returns an upload command buffer that copies the meshes
// into the renderer's "GPU" state when executed; the pass recorded by
// Render draws whatever that state holds at execution time. Submitting the
// pass before its upload therefore draws stale meshes, as it would on a
// GPU.
type OverlayRenderer struct {
	resident []overlay.Mesh
	uploads  int
	frames   int
}

var _ overlay.Renderer = (*OverlayRenderer)(nil)

// NewOverlayRenderer returns an empty renderer.
func NewOverlayRenderer() *OverlayRenderer { return &OverlayRenderer{} }

// Uploads counts executed upload buffers.
func (r *OverlayRenderer) Uploads() int { return r.uploads }

// Frames counts executed overlay draws.
func (r *OverlayRenderer) Frames() int { return r.frames }

func (r *OverlayRenderer) UpdateBuffers(enc rine.CommandEncoder, meshes []overlay.Mesh, _ overlay.ScreenDescriptor) ([]rine.CommandBuffer, error) {
	e, ok := enc.(*CommandEncoder)
	if !ok {
		return nil, fmt.Errorf("headless: overlay encoder has type %T", enc)
	}
	staged := cloneMeshes(meshes)
	cb := NewCommandBuffer(e.device, "headless overlay upload", func() error {
		r.resident = staged
		r.uploads++
		return nil
	})
	return []rine.CommandBuffer{cb}, nil
}

func (r *OverlayRenderer) Render(pass rine.RenderPass, _ []overlay.Mesh, screen overlay.ScreenDescriptor) error {
	p, ok := pass.(*RenderPass)
	if !ok {
		return fmt.Errorf("headless: overlay pass has type %T", pass)
	}
	return p.Draw(func(dst *image.RGBA) error {
		r.frames++
		return rasterizeMeshes(dst, r.resident, screen.PixelsPerPoint)
	})
}

func cloneMeshes(meshes []overlay.Mesh) []overlay.Mesh {
	out := make([]overlay.Mesh, len(meshes))
	for i, m := range meshes {
		out[i] = overlay.Mesh{
			Clip:     m.Clip,
			Vertices: append([]overlay.Vertex(nil), m.Vertices...),
			Indices:  append([]uint16(nil), m.Indices...),
		}
	}
	return out
}

// rasterizeMeshes fills every triangle with its first vertex color and
// composites the result over dst. Consecutive triangles of the same color
// share one path.
func rasterizeMeshes(dst *image.RGBA, meshes []overlay.Mesh, ppp float32) error {
	if len(meshes) == 0 {
		return nil
	}
	if ppp <= 0 {
		ppp = 1
	}
	b := dst.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	defer dc.Close()
	dc.Scale(float64(ppp), float64(ppp))

	for _, m := range meshes {
		if !m.Clip.Empty() {
			dc.ClipRect(float64(m.Clip.X), float64(m.Clip.Y), float64(m.Clip.W), float64(m.Clip.H))
		}
		var cur [4]float32
		open := false
		for i := 0; i+2 < len(m.Indices); i += 3 {
			i0, i1, i2 := int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])
			if i0 >= len(m.Vertices) || i1 >= len(m.Vertices) || i2 >= len(m.Vertices) {
				return fmt.Errorf("headless: mesh index out of range at triangle %d", i/3)
			}
			v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]
			if open && v0.Color != cur {
				if err := dc.Fill(); err != nil {
					return err
				}
				open = false
			}
			if !open {
				cur = v0.Color
				dc.SetRGBA(float64(cur[0]), float64(cur[1]), float64(cur[2]), float64(cur[3]))
				open = true
			}
			dc.MoveTo(float64(v0.Pos[0]), float64(v0.Pos[1]))
			dc.LineTo(float64(v1.Pos[0]), float64(v1.Pos[1]))
			dc.LineTo(float64(v2.Pos[0]), float64(v2.Pos[1]))
			dc.ClosePath()
		}
		if open {
			if err := dc.Fill(); err != nil {
				return err
			}
		}
		dc.ResetClip()
	}

	draw.Draw(dst, b, dc.Image(), image.Point{}, draw.Over)
	return nil
}
