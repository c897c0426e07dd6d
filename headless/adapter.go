package headless

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/jaquobia/rine"
)

// AdapterConfig describes the simulated adapter. Zero fields get defaults:
// name "headless", default limits, full downlevel capabilities.
type AdapterConfig struct {
	Info      rine.AdapterInfo
	Features  gputypes.Features
	Limits    *gputypes.Limits
	Downlevel *rine.DownlevelCapabilities

	// FailDevice makes RequestDevice fail.
	FailDevice bool
}

// Adapter is the simulated GPU.
type Adapter struct {
	cfg    AdapterConfig
	limits gputypes.Limits
	caps   rine.DownlevelCapabilities

	requested []rine.DeviceDescriptor
}

var _ rine.Adapter = (*Adapter)(nil)

func newAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Info.Name == "" {
		cfg.Info.Name = "headless"
	}
	if cfg.Info.Vendor == "" {
		cfg.Info.Vendor = "rine"
	}
	a := &Adapter{cfg: cfg, limits: gputypes.DefaultLimits(), caps: rine.FullDownlevelCapabilities()}
	if cfg.Limits != nil {
		a.limits = *cfg.Limits
	}
	if cfg.Downlevel != nil {
		a.caps = *cfg.Downlevel
	}
	return a
}

func (a *Adapter) matches(opts rine.AdapterOptions) bool {
	if opts.Name != "" && !strings.Contains(strings.ToLower(a.cfg.Info.Name), strings.ToLower(opts.Name)) {
		return false
	}
	return opts.Backend == "" || opts.Backend == "headless" || opts.Backend == "software"
}

func (a *Adapter) Info() rine.AdapterInfo                            { return a.cfg.Info }
func (a *Adapter) Features() gputypes.Features                       { return a.cfg.Features }
func (a *Adapter) Limits() gputypes.Limits                           { return a.limits }
func (a *Adapter) DownlevelCapabilities() rine.DownlevelCapabilities { return a.caps }

// RequestDevice records desc and opens a software device.
func (a *Adapter) RequestDevice(_ context.Context, desc rine.DeviceDescriptor) (rine.Device, rine.Queue, error) {
	a.requested = append(a.requested, desc)
	if a.cfg.FailDevice {
		return nil, nil, fmt.Errorf("request device %q: %w", desc.Label, ErrInjected)
	}
	dev := &Device{label: desc.Label, features: desc.Features}
	return dev, &Queue{device: dev}, nil
}

// DeviceRequests lists the descriptors passed to RequestDevice.
func (a *Adapter) DeviceRequests() []rine.DeviceDescriptor { return a.requested }
