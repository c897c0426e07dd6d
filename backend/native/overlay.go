package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/jaquobia/rine"
	"github.com/jaquobia/rine/overlay"
)

// overlayVertexStride is the byte stride per vertex:
//
//	position (vec2<f32>) = 8 bytes  (location 0)
//	color    (vec4<f32>) = 16 bytes (location 1, premultiplied)
const overlayVertexStride = 24

// overlayUniformSize holds the screen size in points plus padding.
const overlayUniformSize = 16

// OverlayOption configures an OverlayRenderer.
type OverlayOption func(*OverlayRenderer)

// WithSPIRV makes the renderer compile its shader to SPIR-V with naga
// instead of handing WGSL to the driver.
func WithSPIRV() OverlayOption {
	return func(r *OverlayRenderer) { r.spirv = true }
}

// meshDraw is one mesh's slice of the shared buffers.
type meshDraw struct {
	vertexOffset uint64
	indexOffset  uint64
	indexCount   uint32
	scissor      [4]uint32
}

// OverlayRenderer implements overlay.Renderer with a colored-triangle
// pipeline. Vertex, index and uniform data are written to the queue in
// UpdateBuffers, so hal orders them before the next submission and no
// upload command buffers are returned.
type OverlayRenderer struct {
	device *Device
	format gputypes.TextureFormat
	spirv  bool

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline

	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup
	vertBuf    hal.Buffer
	vertCap    uint64
	idxBuf     hal.Buffer
	idxCap     uint64

	draws []meshDraw
}

var _ overlay.Renderer = (*OverlayRenderer)(nil)

// NewOverlayRenderer returns a renderer drawing into targets of format.
// GPU objects are created on first use.
func NewOverlayRenderer(device *Device, format gputypes.TextureFormat, opts ...OverlayOption) *OverlayRenderer {
	r := &OverlayRenderer{device: device, format: format}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *OverlayRenderer) UpdateBuffers(_ rine.CommandEncoder, meshes []overlay.Mesh, screen overlay.ScreenDescriptor) ([]rine.CommandBuffer, error) {
	r.draws = r.draws[:0]
	if len(meshes) == 0 {
		return nil, nil
	}
	if err := r.ensurePipeline(); err != nil {
		return nil, err
	}

	verts, idx, draws := packMeshes(meshes, screen)
	if len(draws) == 0 {
		return nil, nil
	}
	if err := r.ensureBuffer(&r.vertBuf, &r.vertCap, uint64(len(verts)), "rine_overlay_vertices",
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst); err != nil {
		return nil, err
	}
	if err := r.ensureBuffer(&r.idxBuf, &r.idxCap, uint64(len(idx)), "rine_overlay_indices",
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst); err != nil {
		return nil, err
	}

	q := r.device.queue.hal
	if err := q.WriteBuffer(r.vertBuf, 0, verts); err != nil {
		return nil, fmt.Errorf("native: write overlay vertices: %w", err)
	}
	if err := q.WriteBuffer(r.idxBuf, 0, idx); err != nil {
		return nil, fmt.Errorf("native: write overlay indices: %w", err)
	}
	w, h := screen.PointSize()
	if err := q.WriteBuffer(r.uniformBuf, 0, screenUniform(w, h)); err != nil {
		return nil, fmt.Errorf("native: write overlay uniforms: %w", err)
	}

	r.draws = draws
	return nil, nil
}

func (r *OverlayRenderer) Render(pass rine.RenderPass, _ []overlay.Mesh, _ overlay.ScreenDescriptor) error {
	p, ok := pass.(*RenderPass)
	if !ok {
		return fmt.Errorf("native: overlay pass %T: %w", pass, ErrForeignObject)
	}
	if len(r.draws) == 0 {
		return nil
	}
	rp := p.hal
	rp.SetPipeline(r.pipeline)
	rp.SetBindGroup(0, r.bindGroup, nil)
	for _, d := range r.draws {
		rp.SetScissorRect(d.scissor[0], d.scissor[1], d.scissor[2], d.scissor[3])
		rp.SetVertexBuffer(0, r.vertBuf, d.vertexOffset)
		rp.SetIndexBuffer(r.idxBuf, gputypes.IndexFormatUint16, d.indexOffset)
		rp.DrawIndexed(d.indexCount, 1, 0, 0, 0)
	}
	return nil
}

// Draws is the number of meshes recorded by the last UpdateBuffers.
func (r *OverlayRenderer) Draws() int { return len(r.draws) }

// Destroy releases all GPU objects in reverse creation order. It is safe
// to call more than once.
func (r *OverlayRenderer) Destroy() {
	d := r.device.hal
	if r.idxBuf != nil {
		d.DestroyBuffer(r.idxBuf)
		r.idxBuf, r.idxCap = nil, 0
	}
	if r.vertBuf != nil {
		d.DestroyBuffer(r.vertBuf)
		r.vertBuf, r.vertCap = nil, 0
	}
	if r.bindGroup != nil {
		d.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	if r.uniformBuf != nil {
		d.DestroyBuffer(r.uniformBuf)
		r.uniformBuf = nil
	}
	if r.pipeline != nil {
		d.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		d.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.uniformLayout != nil {
		d.DestroyBindGroupLayout(r.uniformLayout)
		r.uniformLayout = nil
	}
	if r.shader != nil {
		d.DestroyShaderModule(r.shader)
		r.shader = nil
	}
	r.draws = nil
}

func (r *OverlayRenderer) ensurePipeline() error {
	if r.pipeline != nil {
		return nil
	}
	if r.device.destroyed {
		return ErrDeviceDestroyed
	}
	d := r.device.hal

	src := hal.ShaderSource{WGSL: overlayShaderSource}
	if r.spirv {
		code, err := CompileShaderSPIRV(overlayShaderSource)
		if err != nil {
			return err
		}
		src = hal.ShaderSource{SPIRV: code}
	}
	shader, err := d.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: "rine_overlay_shader", Source: src})
	if err != nil {
		return fmt.Errorf("native: compile overlay shader: %w", err)
	}
	r.shader = shader

	layout, err := d.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "rine_overlay_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}},
	})
	if err != nil {
		r.Destroy()
		return fmt.Errorf("native: create overlay uniform layout: %w", err)
	}
	r.uniformLayout = layout

	pipeLayout, err := d.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rine_overlay_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.uniformLayout},
	})
	if err != nil {
		r.Destroy()
		return fmt.Errorf("native: create overlay pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := d.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "rine_overlay_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers:    overlayVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    r.format,
				Blend:     &premulBlend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		r.Destroy()
		return fmt.Errorf("native: create overlay pipeline: %w", err)
	}
	r.pipeline = pipeline

	uniformBuf, err := d.CreateBuffer(&hal.BufferDescriptor{
		Label: "rine_overlay_uniforms",
		Size:  overlayUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.Destroy()
		return fmt.Errorf("native: create overlay uniform buffer: %w", err)
	}
	r.uniformBuf = uniformBuf

	bg, err := d.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "rine_overlay_bind_group",
		Layout: r.uniformLayout,
		Entries: []gputypes.BindGroupEntry{{
			Binding:  0,
			Resource: gputypes.BufferBinding{Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: overlayUniformSize},
		}},
	})
	if err != nil {
		r.Destroy()
		return fmt.Errorf("native: create overlay bind group: %w", err)
	}
	r.bindGroup = bg
	return nil
}

// ensureBuffer grows *buf to hold size bytes, doubling its capacity.
func (r *OverlayRenderer) ensureBuffer(buf *hal.Buffer, capacity *uint64, size uint64, label string, usage gputypes.BufferUsage) error {
	if *buf != nil && *capacity >= size {
		return nil
	}
	newCap := max(*capacity, 4096)
	for newCap < size {
		newCap *= 2
	}
	nb, err := r.device.hal.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: newCap, Usage: usage})
	if err != nil {
		return fmt.Errorf("native: create %s (%d bytes): %w", label, newCap, err)
	}
	if *buf != nil {
		r.device.hal.DestroyBuffer(*buf)
	}
	*buf, *capacity = nb, newCap
	return nil
}

func overlayVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: overlayVertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
		},
	}}
}

func screenUniform(w, h float32) []byte {
	b := make([]byte, overlayUniformSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(w))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(h))
	return b
}

// packMeshes serializes meshes into one vertex and one index stream. Each
// mesh's indices start on a 4-byte boundary. Meshes whose clip falls
// outside the screen are skipped.
func packMeshes(meshes []overlay.Mesh, screen overlay.ScreenDescriptor) (verts, idx []byte, draws []meshDraw) {
	for _, m := range meshes {
		if len(m.Indices) == 0 || len(m.Vertices) == 0 {
			continue
		}
		sc, ok := scissorRect(m.Clip, screen)
		if !ok {
			continue
		}
		d := meshDraw{
			vertexOffset: uint64(len(verts)),
			indexOffset:  uint64(len(idx)),
			indexCount:   uint32(len(m.Indices)),
			scissor:      sc,
		}
		for _, v := range m.Vertices {
			a := v.Color[3]
			verts = appendFloats(verts, v.Pos[0], v.Pos[1], v.Color[0]*a, v.Color[1]*a, v.Color[2]*a, a)
		}
		for _, i := range m.Indices {
			idx = binary.LittleEndian.AppendUint16(idx, i)
		}
		if len(m.Indices)%2 == 1 {
			idx = binary.LittleEndian.AppendUint16(idx, 0)
		}
		draws = append(draws, d)
	}
	return verts, idx, draws
}

func appendFloats(b []byte, fs ...float32) []byte {
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

// scissorRect converts a clip rectangle in points to physical pixels,
// rounded outward and clamped to the screen. An empty clip means the whole
// screen.
func scissorRect(clip overlay.Rect, screen overlay.ScreenDescriptor) ([4]uint32, bool) {
	if screen.Width == 0 || screen.Height == 0 {
		return [4]uint32{}, false
	}
	if clip.Empty() {
		return [4]uint32{0, 0, screen.Width, screen.Height}, true
	}
	ppp := screen.PixelsPerPoint
	if ppp <= 0 {
		ppp = 1
	}
	x0 := clampPx(math.Floor(float64(clip.X*ppp)), screen.Width)
	y0 := clampPx(math.Floor(float64(clip.Y*ppp)), screen.Height)
	x1 := clampPx(math.Ceil(float64((clip.X+clip.W)*ppp)), screen.Width)
	y1 := clampPx(math.Ceil(float64((clip.Y+clip.H)*ppp)), screen.Height)
	if x1 <= x0 || y1 <= y0 {
		return [4]uint32{}, false
	}
	return [4]uint32{x0, y0, x1 - x0, y1 - y0}, true
}

func clampPx(v float64, limit uint32) uint32 {
	return uint32(min(max(v, 0), float64(limit)))
}
