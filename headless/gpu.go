package headless

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/jaquobia/rine"
	"golang.org/x/image/draw"
)

// Encoder and submission errors. Wrapped with context where returned.
var (
	ErrEncoderNotRecording = errors.New("headless: encoder not in recording state")
	ErrEncoderLocked       = errors.New("headless: encoder is locked (pass in progress)")
	ErrPassEnded           = errors.New("headless: render pass already ended")
	ErrBufferConsumed      = errors.New("headless: command buffer already submitted")
	ErrForeignBuffer       = errors.New("headless: command buffer from another device")
)

// Device is the software device.
type Device struct {
	label     string
	features  gputypes.Features
	encoders  int
	polls     int
	destroyed bool
}

var _ rine.Device = (*Device)(nil)

func (d *Device) Poll(bool) { d.polls++ }
func (d *Device) Destroy()  { d.destroyed = true }

// Label is the device label requested during setup.
func (d *Device) Label() string { return d.label }

// Features are the features the device was opened with.
func (d *Device) Features() gputypes.Features { return d.features }

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool { return d.destroyed }

// Polls counts Poll calls.
func (d *Device) Polls() int { return d.polls }

func (d *Device) CreateCommandEncoder(label string) (rine.CommandEncoder, error) {
	if d.destroyed {
		return nil, errors.New("headless: device destroyed")
	}
	d.encoders++
	return &CommandEncoder{device: d, label: label}, nil
}

// op is a recorded command, executed at submission.
type op func() error

type encoderState uint8

const (
	encoderRecording encoderState = iota
	encoderLocked
	encoderFinished
	encoderDiscarded
)

// CommandEncoder records operations that run on Queue.Submit.
type CommandEncoder struct {
	device *Device
	label  string
	state  encoderState
	ops    []op
	passes int
}

// Label is the encoder label.
func (e *CommandEncoder) Label() string { return e.label }

func (e *CommandEncoder) BeginRenderPass(desc *rine.RenderPassDescriptor) (rine.RenderPass, error) {
	if e.state == encoderLocked {
		return nil, fmt.Errorf("begin render pass %q: %w", desc.Label, ErrEncoderLocked)
	}
	if e.state != encoderRecording {
		return nil, fmt.Errorf("begin render pass %q: %w", desc.Label, ErrEncoderNotRecording)
	}
	if len(desc.ColorAttachments) != 1 {
		return nil, fmt.Errorf("headless: render pass %q needs exactly one color attachment, got %d",
			desc.Label, len(desc.ColorAttachments))
	}
	att := desc.ColorAttachments[0]
	view, ok := att.View.(*TextureView)
	if !ok || view == nil {
		return nil, fmt.Errorf("headless: render pass %q: unsupported view %T", desc.Label, att.View)
	}

	e.state = encoderLocked
	e.passes++
	pass := &RenderPass{encoder: e, label: desc.Label, target: view.tex.img}
	if att.LoadOp == gputypes.LoadOpClear {
		c := toRGBA(att.ClearValue)
		dst := pass.target
		e.ops = append(e.ops, func() error {
			draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
			return nil
		})
	}
	return pass, nil
}

func (e *CommandEncoder) Finish() (rine.CommandBuffer, error) {
	switch e.state {
	case encoderLocked:
		return nil, fmt.Errorf("finish %q: %w", e.label, ErrEncoderLocked)
	case encoderRecording:
	default:
		return nil, fmt.Errorf("finish %q: %w", e.label, ErrEncoderNotRecording)
	}
	e.state = encoderFinished
	return &CommandBuffer{device: e.device, label: e.label, ops: e.ops}, nil
}

func (e *CommandEncoder) Discard() {
	if e.state == encoderFinished {
		return
	}
	e.state = encoderDiscarded
	e.ops = nil
}

// RenderPass records drawing into one target image.
type RenderPass struct {
	encoder *CommandEncoder
	label   string
	target  *image.RGBA
	ended   bool
	draws   int
}

// Target is the pixels the pass draws into. Read them only from recorded
// operations; contents are undefined until submission.
func (p *RenderPass) Target() *image.RGBA { return p.target }

// Draw records fn to run against the target at submission.
func (p *RenderPass) Draw(fn func(dst *image.RGBA) error) error {
	if p.ended {
		return ErrPassEnded
	}
	p.draws++
	dst := p.target
	p.encoder.ops = append(p.encoder.ops, func() error { return fn(dst) })
	return nil
}

// DrawImage records src composited over the target at offset.
func (p *RenderPass) DrawImage(src image.Image, offset image.Point) error {
	return p.Draw(func(dst *image.RGBA) error {
		r := src.Bounds().Sub(src.Bounds().Min).Add(offset)
		draw.Draw(dst, r, src, src.Bounds().Min, draw.Over)
		return nil
	})
}

// FillRect records a solid fill of r composited over the target.
func (p *RenderPass) FillRect(r image.Rectangle, c gputypes.Color) error {
	col := toRGBA(c)
	return p.Draw(func(dst *image.RGBA) error {
		draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Over)
		return nil
	})
}

// Draws counts recorded draw operations.
func (p *RenderPass) Draws() int { return p.draws }

func (p *RenderPass) End() error {
	if p.ended {
		return ErrPassEnded
	}
	p.ended = true
	p.encoder.state = encoderRecording
	return nil
}

// CommandBuffer is a finished list of operations.
type CommandBuffer struct {
	device    *Device
	label     string
	ops       []op
	submitted bool
}

// NewCommandBuffer wraps fn as a standalone command buffer for device, as
// renderers do for uploads.
func NewCommandBuffer(device *Device, label string, fn func() error) *CommandBuffer {
	return &CommandBuffer{device: device, label: label, ops: []op{fn}}
}

// Label is the label of the encoder that produced the buffer.
func (b *CommandBuffer) Label() string { return b.label }

// Release drops the recorded operations of an unsubmitted buffer. A
// released buffer can no longer be submitted.
func (b *CommandBuffer) Release() {
	if b.submitted {
		return
	}
	b.submitted = true
	b.ops = nil
}

// Queue executes command buffers synchronously.
type Queue struct {
	device      *Device
	submissions [][]string
}

var (
	_ rine.Queue    = (*Queue)(nil)
	_ rine.Releaser = (*CommandBuffer)(nil)
)

// Submit validates every buffer first and then executes them in order.
func (q *Queue) Submit(bufs []rine.CommandBuffer) error {
	cbs := make([]*CommandBuffer, 0, len(bufs))
	for i, b := range bufs {
		cb, ok := b.(*CommandBuffer)
		if !ok || cb == nil {
			return fmt.Errorf("headless: submit buffer %d: unsupported type %T", i, b)
		}
		if cb.device != q.device {
			return fmt.Errorf("submit %q: %w", cb.label, ErrForeignBuffer)
		}
		if cb.submitted {
			return fmt.Errorf("submit %q: %w", cb.label, ErrBufferConsumed)
		}
		cbs = append(cbs, cb)
	}

	labels := make([]string, 0, len(cbs))
	for _, cb := range cbs {
		cb.submitted = true
		labels = append(labels, cb.label)
		for _, o := range cb.ops {
			if err := o(); err != nil {
				return fmt.Errorf("headless: execute %q: %w", cb.label, err)
			}
		}
	}
	q.submissions = append(q.submissions, labels)
	return nil
}

// Submissions lists the labels of each submission's buffers.
func (q *Queue) Submissions() [][]string { return q.submissions }

// toRGBA converts a straight-alpha clear color to a premultiplied pixel.
func toRGBA(c gputypes.Color) color.RGBA {
	a := unit(float64(c.A))
	return color.RGBA{
		R: uint8(unit(float64(c.R))*a*255 + 0.5),
		G: uint8(unit(float64(c.G))*a*255 + 0.5),
		B: uint8(unit(float64(c.B))*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

func unit(v float64) float64 {
	return min(max(v, 0), 1)
}
