package hud

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jaquobia/rine/overlay"
)

var face = basicfont.Face7x13

// Font metrics in points.
const (
	lineHeight = 13
	ascent     = 11
)

type quad struct {
	r     overlay.Rect
	color [4]float32
}

// builder collects quads and emits them as meshes.
type builder struct {
	quads []quad
}

func (b *builder) rect(x, y, w, h float32, color [4]float32) {
	if w <= 0 || h <= 0 || color[3] <= 0 {
		return
	}
	b.quads = append(b.quads, quad{r: overlay.Rect{X: x, Y: y, W: w, H: h}, color: color})
}

// text draws s with its top-left corner at (x, y). Each glyph row is
// coalesced into horizontal runs of covered pixels.
func (b *builder) text(x, y float32, s string, color [4]float32) {
	dot := fixed.P(0, ascent)
	for _, r := range s {
		dr, mask, maskp, adv, ok := face.Glyph(dot, r)
		if !ok {
			dr, mask, maskp, adv, _ = face.Glyph(dot, '?')
		}
		for yy := 0; yy < dr.Dy(); yy++ {
			run := -1
			for xx := 0; xx <= dr.Dx(); xx++ {
				on := false
				if xx < dr.Dx() {
					_, _, _, a := mask.At(maskp.X+xx, maskp.Y+yy).RGBA()
					on = a > 0x7fff
				}
				switch {
				case on && run < 0:
					run = xx
				case !on && run >= 0:
					b.rect(x+float32(dr.Min.X+run), y+float32(dr.Min.Y+yy), float32(xx-run), 1, color)
					run = -1
				}
			}
		}
		dot.X += adv
	}
}

// textWidth is the advance width of s in points.
func textWidth(s string) float32 {
	return float32(font.MeasureString(face, s).Round())
}

// meshes turns the quads into meshes clipped to clip, splitting whenever
// the uint16 index space would overflow.
func (b *builder) meshes(clip overlay.Rect) []overlay.Mesh {
	var out []overlay.Mesh
	var cur overlay.Mesh
	for _, q := range b.quads {
		if len(cur.Vertices)+4 > overlay.MaxMeshVertices {
			out = append(out, cur)
			cur = overlay.Mesh{}
		}
		cur.Clip = clip
		base := uint16(len(cur.Vertices))
		x0, y0, x1, y1 := q.r.X, q.r.Y, q.r.X+q.r.W, q.r.Y+q.r.H
		cur.Vertices = append(cur.Vertices,
			overlay.Vertex{Pos: [2]float32{x0, y0}, Color: q.color},
			overlay.Vertex{Pos: [2]float32{x1, y0}, Color: q.color},
			overlay.Vertex{Pos: [2]float32{x1, y1}, Color: q.color},
			overlay.Vertex{Pos: [2]float32{x0, y1}, Color: q.color},
		)
		cur.Indices = append(cur.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	if len(cur.Vertices) > 0 {
		out = append(out, cur)
	}
	return out
}
