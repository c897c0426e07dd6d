package native

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/jaquobia/rine"
)

const defaultSubmitTimeout = 5 * time.Second

// Device wraps a hal device.
type Device struct {
	hal       hal.Device
	queue     *Queue
	label     string
	destroyed bool
}

var _ rine.Device = (*Device)(nil)

// HAL returns the underlying device for renderers that create pipelines.
func (d *Device) HAL() hal.Device { return d.hal }

// Label is the label the device was opened with.
func (d *Device) Label() string { return d.label }

// Poll frees the buffers of completed submissions, first waiting for the
// last one when wait is set. Submit already waits, so this only matters
// after a timed-out Submit.
func (d *Device) Poll(wait bool) {
	if d.destroyed {
		return
	}
	if !wait {
		d.queue.reclaim()
		return
	}
	if err := d.queue.waitIdle(); err != nil {
		rine.Logger().Warn("native: poll", "error", err)
	}
}

// Destroy waits for outstanding work, frees the remaining command buffers
// and releases the device. It is idempotent.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true
	if err := d.hal.WaitIdle(); err != nil {
		rine.Logger().Warn("native: wait idle before destroy", "label", d.label, "error", err)
	}
	if d.queue != nil {
		for _, f := range d.queue.pending {
			d.hal.FreeCommandBuffer(f.cb)
		}
		d.queue.pending = nil
	}
	d.hal.Destroy()
}

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool { return d.destroyed }

func (d *Device) CreateCommandEncoder(label string) (rine.CommandEncoder, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	enc, err := d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder %q: %w", label, err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("native: begin encoding %q: %w", label, err)
	}
	return &CommandEncoder{device: d, hal: enc, label: label}, nil
}

// CreateRenderTarget allocates an offscreen color texture usable as a
// render pass attachment.
func (d *Device) CreateRenderTarget(label string, width, height uint32, format gputypes.TextureFormat) (*RenderTarget, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	tex, err := d.hal.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create render target %q: %w", label, err)
	}
	view, err := d.hal.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: label + " view"})
	if err != nil {
		d.hal.DestroyTexture(tex)
		return nil, fmt.Errorf("native: create render target view %q: %w", label, err)
	}
	return &RenderTarget{
		device:  d,
		texture: tex,
		view:    &TextureView{hal: view, width: width, height: height, format: format},
	}, nil
}

// RenderTarget is an offscreen texture with its view.
type RenderTarget struct {
	device  *Device
	texture hal.Texture
	view    *TextureView
}

// View is the attachment view.
func (t *RenderTarget) View() *TextureView { return t.view }

// Destroy releases the view and the texture.
func (t *RenderTarget) Destroy() {
	if t.texture == nil {
		return
	}
	t.device.hal.DestroyTextureView(t.view.hal)
	t.device.hal.DestroyTexture(t.texture)
	t.texture = nil
}

// TextureView wraps a hal texture view with its extent.
type TextureView struct {
	hal    hal.TextureView
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

// NewTextureView wraps a view acquired elsewhere, typically from a
// window surface texture.
func NewTextureView(v hal.TextureView, width, height uint32, format gputypes.TextureFormat) *TextureView {
	return &TextureView{hal: v, width: width, height: height, format: format}
}

// HAL returns the wrapped view.
func (v *TextureView) HAL() hal.TextureView { return v.hal }

// Size is the extent of the viewed texture.
func (v *TextureView) Size() (width, height uint32) { return v.width, v.height }

// Format is the texel format of the view.
func (v *TextureView) Format() gputypes.TextureFormat { return v.format }

// CommandEncoder wraps a hal command encoder in the recording state.
type CommandEncoder struct {
	device   *Device
	hal      hal.CommandEncoder
	label    string
	pass     *RenderPass
	finished bool
}

func (e *CommandEncoder) BeginRenderPass(desc *rine.RenderPassDescriptor) (rine.RenderPass, error) {
	if e.finished {
		return nil, fmt.Errorf("begin render pass %q: %w", desc.Label, ErrEncoderFinished)
	}
	if e.pass != nil {
		return nil, fmt.Errorf("begin render pass %q: %w", desc.Label, ErrPassOpen)
	}
	atts := make([]hal.RenderPassColorAttachment, len(desc.ColorAttachments))
	for i, a := range desc.ColorAttachments {
		v, ok := a.View.(*TextureView)
		if !ok || v == nil {
			return nil, fmt.Errorf("begin render pass %q: attachment %d view %T: %w", desc.Label, i, a.View, ErrForeignObject)
		}
		atts[i] = hal.RenderPassColorAttachment{
			View:       v.hal,
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: a.ClearValue,
		}
	}
	rp := e.hal.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: atts,
	})
	e.pass = &RenderPass{encoder: e, hal: rp, label: desc.Label}
	if len(desc.ColorAttachments) > 0 {
		e.pass.target = desc.ColorAttachments[0].View.(*TextureView)
	}
	return e.pass, nil
}

func (e *CommandEncoder) Finish() (rine.CommandBuffer, error) {
	if e.finished {
		return nil, fmt.Errorf("finish %q: %w", e.label, ErrEncoderFinished)
	}
	if e.pass != nil {
		return nil, fmt.Errorf("finish %q: %w", e.label, ErrPassOpen)
	}
	e.finished = true
	cb, err := e.hal.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding %q: %w", e.label, err)
	}
	return &CommandBuffer{device: e.device, hal: cb, label: e.label}, nil
}

func (e *CommandEncoder) Discard() {
	if e.finished {
		return
	}
	e.finished = true
	e.pass = nil
	e.hal.DiscardEncoding()
}

// RenderPass wraps a hal render pass encoder.
type RenderPass struct {
	encoder *CommandEncoder
	hal     hal.RenderPassEncoder
	label   string
	target  *TextureView
	ended   bool
}

// HAL returns the wrapped pass for recording draws.
func (p *RenderPass) HAL() hal.RenderPassEncoder { return p.hal }

// Target is the first color attachment.
func (p *RenderPass) Target() *TextureView { return p.target }

func (p *RenderPass) End() error {
	if p.ended {
		return fmt.Errorf("end render pass %q: already ended", p.label)
	}
	p.ended = true
	p.hal.End()
	p.encoder.pass = nil
	return nil
}

// CommandBuffer is a finished hal command buffer. It is freed after its
// submission completes.
type CommandBuffer struct {
	device    *Device
	hal       hal.CommandBuffer
	label     string
	submitted bool
}

// Label is the encoder label.
func (b *CommandBuffer) Label() string { return b.label }

// Release frees a buffer that will not be submitted.
func (b *CommandBuffer) Release() {
	if b.submitted {
		return
	}
	b.submitted = true
	if !b.device.destroyed {
		b.device.hal.FreeCommandBuffer(b.hal)
	}
}

// Queue wraps the hal queue. Submit waits until hal reports the submission
// index complete, so presentation never races rendering.
type Queue struct {
	hal     hal.Queue
	device  *Device
	last    uint64
	timeout time.Duration
	pending []inFlight
}

// inFlight is a submitted command buffer and the submission carrying it.
type inFlight struct {
	index uint64
	cb    hal.CommandBuffer
}

var (
	_ rine.Queue    = (*Queue)(nil)
	_ rine.Releaser = (*CommandBuffer)(nil)
)

// HAL returns the wrapped queue for buffer uploads.
func (q *Queue) HAL() hal.Queue { return q.hal }

// SetTimeout changes how long Submit waits for the GPU.
func (q *Queue) SetTimeout(d time.Duration) { q.timeout = d }

// Submit executes bufs as one submission and waits for it. A rejected
// submission frees its buffers; they cannot be submitted again.
func (q *Queue) Submit(bufs []rine.CommandBuffer) error {
	if q.device.destroyed {
		return ErrDeviceDestroyed
	}
	cmds := make([]hal.CommandBuffer, 0, len(bufs))
	for i, b := range bufs {
		cb, ok := b.(*CommandBuffer)
		if !ok || cb == nil {
			return fmt.Errorf("native: submit buffer %d (%T): %w", i, b, ErrForeignObject)
		}
		if cb.device != q.device {
			return fmt.Errorf("native: submit %q: %w", cb.label, ErrForeignObject)
		}
		if cb.submitted {
			return fmt.Errorf("native: submit %q: already submitted", cb.label)
		}
		cmds = append(cmds, cb.hal)
	}
	for _, b := range bufs {
		b.(*CommandBuffer).submitted = true
	}

	index, err := q.hal.Submit(cmds)
	if err != nil {
		for _, cb := range cmds {
			q.device.hal.FreeCommandBuffer(cb)
		}
		return fmt.Errorf("native: submit: %w", err)
	}
	q.last = index
	for _, cb := range cmds {
		q.pending = append(q.pending, inFlight{index: index, cb: cb})
	}
	return q.waitIdle()
}

// pollInterval is the sleep between completion checks in waitIdle.
const pollInterval = 100 * time.Microsecond

// waitIdle blocks until the last submission completes or the timeout
// passes, freeing command buffers as their submissions retire.
func (q *Queue) waitIdle() error {
	deadline := time.Now().Add(q.timeout)
	for {
		if q.reclaim() >= q.last {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrGPUTimeout, q.last, q.timeout)
		}
		time.Sleep(pollInterval)
	}
}

// reclaim frees the buffers of completed submissions without blocking and
// returns the highest completed index.
func (q *Queue) reclaim() uint64 {
	done := q.hal.PollCompleted()
	kept := q.pending[:0]
	for _, f := range q.pending {
		if f.index <= done {
			q.device.hal.FreeCommandBuffer(f.cb)
			continue
		}
		kept = append(kept, f)
	}
	q.pending = kept
	return done
}
