package native

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/jaquobia/rine"
)

// Adapter is a hal adapter exposed by an Instance.
type Adapter struct {
	exposed hal.ExposedAdapter
	backend gputypes.Backend
}

var _ rine.Adapter = (*Adapter)(nil)

func (a *Adapter) Info() rine.AdapterInfo {
	return rine.AdapterInfo{
		Name:       a.exposed.Info.Name,
		DeviceType: a.exposed.Info.DeviceType,
		Backend:    a.backend,
	}
}

func (a *Adapter) Features() gputypes.Features { return a.exposed.Features }

// Limits reports the limits hal exposed for the adapter, or the WebGPU
// defaults when the backend left them unset.
func (a *Adapter) Limits() gputypes.Limits {
	if l := a.exposed.Capabilities.Limits; l.MaxTextureDimension2D != 0 {
		return l
	}
	return gputypes.DefaultLimits()
}

// DownlevelCapabilities reports a full WebGPU baseline; hal adapters that
// cannot meet it are not exposed.
func (a *Adapter) DownlevelCapabilities() rine.DownlevelCapabilities {
	return rine.FullDownlevelCapabilities()
}

// RequestDevice opens the adapter with desc's features and limits. Unset
// limits mean the defaults.
func (a *Adapter) RequestDevice(ctx context.Context, desc rine.DeviceDescriptor) (rine.Device, rine.Queue, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	limits := desc.Limits
	if limits.MaxTextureDimension2D == 0 {
		limits = gputypes.DefaultLimits()
	}
	open, err := a.exposed.Adapter.Open(desc.Features, limits)
	if err != nil {
		return nil, nil, fmt.Errorf("native: open device %q: %w", desc.Label, err)
	}
	dev := &Device{hal: open.Device, label: desc.Label}
	dev.queue = &Queue{hal: open.Queue, device: dev, timeout: defaultSubmitTimeout}
	rine.Logger().Debug("native: device opened", "label", desc.Label, "adapter", a.exposed.Info.Name)
	return dev, dev.queue, nil
}
