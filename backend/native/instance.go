package native

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/jaquobia/rine"
)

// InstanceCreator is anything that can create a hal instance: a registered
// hal.Backend or a backend API value such as noop.API.
type InstanceCreator interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Instance owns a hal instance and the adapters it exposes.
type Instance struct {
	inst    hal.Instance
	backend gputypes.Backend
}

// Open creates an instance of the hal backend registered for backend.
func Open(backend gputypes.Backend) (*Instance, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, backend)
	}
	return NewInstance(b, backend)
}

// NewInstance creates an instance through c. backend is reported in
// AdapterInfo.
func NewInstance(c InstanceCreator, backend gputypes.Backend) (*Instance, error) {
	inst, err := c.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	return &Instance{inst: inst, backend: backend}, nil
}

// Adapters enumerates the adapters of the instance.
func (i *Instance) Adapters() []*Adapter {
	exposed := i.inst.EnumerateAdapters(nil)
	out := make([]*Adapter, len(exposed))
	for k := range exposed {
		out[k] = &Adapter{exposed: exposed[k], backend: i.backend}
	}
	return out
}

// RequestAdapter selects an adapter. A non-empty opts.Name keeps only
// adapters whose name contains it (case-insensitive). Among the rest the
// power preference picks discrete or integrated GPUs first; with no
// preference the first hardware adapter wins, then the first adapter.
func (i *Instance) RequestAdapter(ctx context.Context, opts rine.AdapterOptions) (rine.Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a := selectAdapter(i.Adapters(), opts)
	if a == nil {
		return nil, fmt.Errorf("%w: name %q", ErrNoAdapter, opts.Name)
	}
	rine.Logger().Debug("native: adapter selected", "name", a.exposed.Info.Name, "backend", i.backend)
	return a, nil
}

// Destroy releases the instance. Adapters and devices opened from it must
// be released first.
func (i *Instance) Destroy() {
	if i.inst != nil {
		i.inst.Destroy()
		i.inst = nil
	}
}

func selectAdapter(adapters []*Adapter, opts rine.AdapterOptions) *Adapter {
	var candidates []*Adapter
	for _, a := range adapters {
		if opts.Name != "" && !strings.Contains(strings.ToLower(a.exposed.Info.Name), strings.ToLower(opts.Name)) {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return nil
	}

	var order []gputypes.DeviceType
	switch opts.PowerPreference {
	case rine.PowerPreferenceLowPower:
		order = []gputypes.DeviceType{gputypes.DeviceTypeIntegratedGPU, gputypes.DeviceTypeDiscreteGPU}
	default:
		order = []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU}
	}

	if opts.PowerPreference == rine.PowerPreferenceNone {
		for _, a := range candidates {
			if t := a.exposed.Info.DeviceType; t == order[0] || t == order[1] {
				return a
			}
		}
		return candidates[0]
	}
	for _, want := range order {
		for _, a := range candidates {
			if a.exposed.Info.DeviceType == want {
				return a
			}
		}
	}
	return candidates[0]
}

// ParseBackend maps a RINE_BACKEND style name to a hal backend.
func ParseBackend(name string) (gputypes.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "vulkan", "vk":
		return gputypes.BackendVulkan, nil
	case "metal", "mtl":
		return gputypes.BackendMetal, nil
	case "dx12", "d3d12":
		return gputypes.BackendDX12, nil
	case "gl", "gles", "opengl":
		return gputypes.BackendGL, nil
	}
	var none gputypes.Backend
	return none, fmt.Errorf("native: unknown backend %q", name)
}
