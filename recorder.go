package rine

import (
	"errors"
	"fmt"
)

// Encoder labels used by the loop.
const (
	MainEncoderLabel    = "rine main(render) thread encoder"
	OverlayEncoderLabel = "rine overlay encoder"
)

// ErrRecorderFinished is returned when using a FrameRecorder after Finish
// or Discard.
var ErrRecorderFinished = errors.New("rine: frame recorder already finished")

// Contribution is one contributor's share of a frame, in submission order.
type Contribution struct {
	Contributor string
	Buffers     []CommandBuffer
}

// FrameRecorder collects the command buffers of one frame. Each contributor
// records into its own segment; segments are submitted in the order they
// were opened. Within a segment, appended buffers precede the buffer of the
// segment's encoder.
//
// A FrameRecorder lives for one frame and is not safe for concurrent use.
type FrameRecorder struct {
	device   Device
	segments []*segment
	done     bool
	result   []Contribution
}

type segment struct {
	name  string
	label string
	extra []CommandBuffer
	enc   CommandEncoder
}

// NewFrameRecorder returns an empty recorder creating encoders on device.
func NewFrameRecorder(device Device) *FrameRecorder {
	return &FrameRecorder{device: device}
}

// Begin opens a new segment for contributor. Later Encoder and Append calls
// apply to it.
func (r *FrameRecorder) Begin(contributor, encoderLabel string) error {
	if r.done {
		return ErrRecorderFinished
	}
	r.segments = append(r.segments, &segment{name: contributor, label: encoderLabel})
	return nil
}

func (r *FrameRecorder) current() (*segment, error) {
	if r.done {
		return nil, ErrRecorderFinished
	}
	if len(r.segments) == 0 {
		return nil, errors.New("rine: frame recorder has no open segment")
	}
	return r.segments[len(r.segments)-1], nil
}

// Encoder returns the current segment's encoder, creating it on first use.
func (r *FrameRecorder) Encoder() (CommandEncoder, error) {
	seg, err := r.current()
	if err != nil {
		return nil, err
	}
	if seg.enc == nil {
		enc, err := r.device.CreateCommandEncoder(seg.label)
		if err != nil {
			return nil, fmt.Errorf("rine: create encoder %q: %w", seg.label, err)
		}
		seg.enc = enc
	}
	return seg.enc, nil
}

// Append adds already finished buffers to the current segment. They are
// submitted before the segment's own encoder output.
func (r *FrameRecorder) Append(bufs ...CommandBuffer) error {
	seg, err := r.current()
	if err != nil {
		return err
	}
	seg.extra = append(seg.extra, bufs...)
	return nil
}

// Finish seals every segment and returns the flattened submission list.
// If any encoder fails to finish, every buffer already produced or appended
// is released and the remaining encoders are discarded.
func (r *FrameRecorder) Finish() ([]CommandBuffer, error) {
	if r.done {
		return nil, ErrRecorderFinished
	}
	r.done = true

	var all []CommandBuffer
	r.result = make([]Contribution, 0, len(r.segments))
	for i, seg := range r.segments {
		bufs := append([]CommandBuffer(nil), seg.extra...)
		if seg.enc != nil {
			cb, err := seg.enc.Finish()
			if err != nil {
				ReleaseCommandBuffers(all)
				ReleaseCommandBuffers(bufs)
				for _, rest := range r.segments[i+1:] {
					ReleaseCommandBuffers(rest.extra)
					if rest.enc != nil {
						rest.enc.Discard()
					}
				}
				r.result = nil
				return nil, fmt.Errorf("rine: finish %s commands: %w", seg.name, err)
			}
			bufs = append(bufs, cb)
		}
		r.result = append(r.result, Contribution{Contributor: seg.name, Buffers: bufs})
		all = append(all, bufs...)
	}
	return all, nil
}

// Discard abandons every open encoder and releases appended buffers.
func (r *FrameRecorder) Discard() {
	if r.done {
		return
	}
	r.done = true
	for _, seg := range r.segments {
		ReleaseCommandBuffers(seg.extra)
		if seg.enc != nil {
			seg.enc.Discard()
		}
	}
}

// Contributions reports the per-contributor buffers of the last Finish.
func (r *FrameRecorder) Contributions() []Contribution {
	return r.result
}
