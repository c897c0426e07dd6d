package rine

import (
	"errors"
	"fmt"
)

// Setup errors. Run wraps the underlying cause with one of these.
var (
	// ErrWindowCreation is returned when the platform cannot open a window.
	ErrWindowCreation = errors.New("rine: window creation failed")

	// ErrSurfaceCreation is returned when no presentable surface can be
	// created for the window.
	ErrSurfaceCreation = errors.New("rine: surface creation failed")

	// ErrNoAdapter is returned when no GPU adapter matches the request.
	ErrNoAdapter = errors.New("rine: no suitable GPU adapter")

	// ErrNoDevice is returned when the adapter refuses to open a device.
	ErrNoDevice = errors.New("rine: device request failed")

	// ErrAppCreation is returned when Descriptor.Create fails.
	ErrAppCreation = errors.New("rine: application creation failed")
)

// Frame acquisition causes. Surface implementations return these (possibly
// wrapped) from AcquireTexture so the loop can classify the failure.
var (
	ErrSurfaceOutdated    = errors.New("rine: surface outdated")
	ErrSurfaceLost        = errors.New("rine: surface lost")
	ErrSurfaceOutOfMemory = errors.New("rine: out of memory acquiring frame")
	ErrSurfaceTimeout     = errors.New("rine: timed out acquiring frame")
)

var (
	// ErrFrameOutstanding is returned by AcquireFrame while a previously
	// acquired frame has been neither presented nor discarded.
	ErrFrameOutstanding = errors.New("rine: previous frame still outstanding")

	// ErrFrameDone is returned when presenting or discarding a frame twice.
	ErrFrameDone = errors.New("rine: frame already presented or discarded")
)

// AcquireKind classifies a failed frame acquisition.
type AcquireKind int

const (
	// AcquireOther covers timeouts and anything unrecognized. The frame is
	// dropped and the loop continues.
	AcquireOther AcquireKind = iota

	// AcquireOutdated means the surface no longer matches the window. The
	// frame is skipped silently; a resize event is expected to follow.
	AcquireOutdated

	// AcquireLost means the surface must be reconfigured before use.
	AcquireLost

	// AcquireOutOfMemory is fatal to the loop.
	AcquireOutOfMemory
)

// String returns the kind name.
func (k AcquireKind) String() string {
	switch k {
	case AcquireOutdated:
		return "Outdated"
	case AcquireLost:
		return "Lost"
	case AcquireOutOfMemory:
		return "OutOfMemory"
	default:
		return "Other"
	}
}

// AcquireError reports why AcquireFrame produced no frame.
type AcquireError struct {
	Kind AcquireKind
	Err  error
}

func (e *AcquireError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rine: acquire frame: %s", e.Kind)
	}
	return fmt.Sprintf("rine: acquire frame: %s: %v", e.Kind, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

// classifyAcquire maps a surface error onto exactly one AcquireKind.
func classifyAcquire(err error) *AcquireError {
	var ae *AcquireError
	if errors.As(err, &ae) {
		return ae
	}
	kind := AcquireOther
	switch {
	case errors.Is(err, ErrSurfaceOutdated):
		kind = AcquireOutdated
	case errors.Is(err, ErrSurfaceLost):
		kind = AcquireLost
	case errors.Is(err, ErrSurfaceOutOfMemory):
		kind = AcquireOutOfMemory
	}
	return &AcquireError{Kind: kind, Err: err}
}
