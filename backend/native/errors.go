package native

import "errors"

var (
	// ErrBackendUnavailable is returned by Open when hal has no backend
	// registered for the requested API.
	ErrBackendUnavailable = errors.New("native: backend not available")

	// ErrNoAdapter is returned when no adapter matches the selection.
	ErrNoAdapter = errors.New("native: no matching adapter")

	// ErrDeviceDestroyed is returned by operations on a destroyed device.
	ErrDeviceDestroyed = errors.New("native: device destroyed")

	// ErrEncoderFinished is returned when an encoder is used after Finish
	// or Discard.
	ErrEncoderFinished = errors.New("native: encoder finished")

	// ErrPassOpen is returned when a pass is begun or the encoder finished
	// while another pass is still recording.
	ErrPassOpen = errors.New("native: render pass still open")

	// ErrForeignObject is returned when an object from another backend or
	// device is passed in.
	ErrForeignObject = errors.New("native: object belongs to another device")

	// ErrGPUTimeout is returned when a submission does not complete in time.
	ErrGPUTimeout = errors.New("native: timed out waiting for GPU")
)
