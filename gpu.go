package rine

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Device is the logical GPU device. It is created once during setup and
// shared read-only by the loop, the application and the overlay.
type Device interface {
	gpucontext.Device

	// CreateCommandEncoder starts recording a new command list.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Poll processes completed GPU work, blocking until the queue is idle
	// when wait is set.
	Poll(wait bool)

	// Destroy releases the device. It is called once when Run returns.
	Destroy()
}

// Queue submits finished command buffers to the GPU. Only the loop
// goroutine submits.
type Queue interface {
	// Submit executes bufs in slice order as one submission.
	Submit(bufs []CommandBuffer) error
}

// CommandBuffer is a finished, submittable command list.
type CommandBuffer interface{}

// Releaser is implemented by command buffers that hold backend resources
// until they are submitted. Release frees an unsubmitted buffer; it is a
// no-op once the buffer has been submitted or released.
type Releaser interface {
	Release()
}

// ReleaseCommandBuffers releases every buffer in bufs that implements
// Releaser. It is used for buffers that will never be submitted.
func ReleaseCommandBuffers(bufs []CommandBuffer) {
	for _, b := range bufs {
		if r, ok := b.(Releaser); ok {
			r.Release()
		}
	}
}

// TextureView is a render-target view of a texture.
type TextureView interface{}

// CommandEncoder records GPU commands. An encoder yields exactly one
// CommandBuffer from Finish; Discard abandons it.
type CommandEncoder interface {
	// BeginRenderPass opens a pass. The encoder is locked until the pass
	// is ended.
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPass, error)

	// Finish seals the encoder.
	Finish() (CommandBuffer, error)

	// Discard abandons any recorded commands. Safe after Finish.
	Discard()
}

// RenderPass records draw commands into its attachments.
type RenderPass interface {
	End() error
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
}

// ColorAttachment binds a view to a pass. LoadOp decides whether existing
// contents are kept (gputypes.LoadOpLoad) or cleared to ClearValue.
type ColorAttachment struct {
	View       TextureView
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearValue gputypes.Color
}
