package rine

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"strings"

	"github.com/gogpu/gputypes"
)

// PowerPreference hints which adapter to pick when several are available.
type PowerPreference uint8

const (
	PowerPreferenceNone PowerPreference = iota
	PowerPreferenceLowPower
	PowerPreferenceHighPerformance
)

func (p PowerPreference) String() string {
	switch p {
	case PowerPreferenceLowPower:
		return "low-power"
	case PowerPreferenceHighPerformance:
		return "high-performance"
	default:
		return "none"
	}
}

// AdapterOptions selects an adapter. Empty fields mean "any".
type AdapterOptions struct {
	// Backend names the graphics API ("vulkan", "metal", "dx12", "gl", ...).
	Backend string
	// Name selects the first adapter whose name contains this substring,
	// case-insensitively.
	Name            string
	PowerPreference PowerPreference
	// CompatibleSurface is the surface the adapter must be able to present to.
	CompatibleSurface Surface
}

// AdapterInfo describes a physical adapter.
type AdapterInfo struct {
	Name       string
	Vendor     string
	Driver     string
	DeviceType gputypes.DeviceType
	Backend    gputypes.Backend
}

// DownlevelFlags are capabilities below the WebGPU baseline that some
// adapters lack.
type DownlevelFlags uint32

const (
	DownlevelComputeShaders DownlevelFlags = 1 << iota
	DownlevelFragmentWritableStorage
	DownlevelIndirectExecution
	DownlevelBaseVertex
	DownlevelReadOnlyDepthStencil
	DownlevelNonPowerOfTwoMipmappedTextures
	DownlevelCubeArrayTextures
	DownlevelComparisonSamplers
	DownlevelIndependentBlend
	DownlevelVertexStorage
	DownlevelAnisotropicFiltering
	DownlevelFragmentStorage
	DownlevelMultisampledShading
	DownlevelDepthTextureAndBufferCopies
	DownlevelWebGPUTextureFormatSupport

	downlevelLast
)

// DownlevelAll is the full WebGPU-compliant capability set.
const DownlevelAll = downlevelLast - 1

var downlevelNames = [...]string{
	"COMPUTE_SHADERS",
	"FRAGMENT_WRITABLE_STORAGE",
	"INDIRECT_EXECUTION",
	"BASE_VERTEX",
	"READ_ONLY_DEPTH_STENCIL",
	"NON_POWER_OF_TWO_MIPMAPPED_TEXTURES",
	"CUBE_ARRAY_TEXTURES",
	"COMPARISON_SAMPLERS",
	"INDEPENDENT_BLEND",
	"VERTEX_STORAGE",
	"ANISOTROPIC_FILTERING",
	"FRAGMENT_STORAGE",
	"MULTISAMPLED_SHADING",
	"DEPTH_TEXTURE_AND_BUFFER_COPIES",
	"WEBGPU_TEXTURE_FORMAT_SUPPORT",
}

// Contains reports whether every flag in other is set in f.
func (f DownlevelFlags) Contains(other DownlevelFlags) bool { return f&other == other }

// String lists the set flags separated by "|".
func (f DownlevelFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for f != 0 {
		i := bits.TrailingZeros32(uint32(f))
		if i < len(downlevelNames) {
			names = append(names, downlevelNames[i])
		} else {
			names = append(names, fmt.Sprintf("0x%x", uint32(1)<<i))
		}
		f &^= 1 << i
	}
	return strings.Join(names, "|")
}

// DownlevelCapabilities bundles downlevel flags with the shader model.
type DownlevelCapabilities struct {
	Flags DownlevelFlags
	// ShaderModel is the supported shading language level (5 = sm5).
	ShaderModel uint8
}

// FullDownlevelCapabilities is what a WebGPU-compliant adapter reports.
func FullDownlevelCapabilities() DownlevelCapabilities {
	return DownlevelCapabilities{Flags: DownlevelAll, ShaderModel: 5}
}

// DeviceDescriptor is the negotiated device request.
type DeviceDescriptor struct {
	Label    string
	Features gputypes.Features
	Limits   gputypes.Limits
}

// Adapter is a physical GPU the platform offers.
type Adapter interface {
	Info() AdapterInfo
	Features() gputypes.Features
	Limits() gputypes.Limits
	DownlevelCapabilities() DownlevelCapabilities

	// RequestDevice opens a logical device and its queue.
	RequestDevice(ctx context.Context, desc DeviceDescriptor) (Device, Queue, error)
}

// Requirements gathers what the application asks of the adapter.
type Requirements struct {
	RequiredFeatures gputypes.Features
	OptionalFeatures gputypes.Features
	Downlevel        DownlevelCapabilities
	Limits           gputypes.Limits
}

// DefaultRequirements asks for no features, a full downlevel baseline and
// default limits.
func DefaultRequirements() Requirements {
	return Requirements{
		Downlevel: FullDownlevelCapabilities(),
		Limits:    gputypes.DefaultLimits(),
	}
}

// Negotiate builds the device request for adapter. Mismatches between the
// requirements and the adapter are logged as warnings, never returned:
// the device request itself decides whether the adapter is usable.
//
// The resulting features are (optional & available) | required. Limits are
// the requested ones with the 2D texture dimension raised to what the
// adapter supports, so the surface can match any window resolution.
func Negotiate(adapter Adapter, req Requirements, label string) DeviceDescriptor {
	log := Logger()
	available := adapter.Features()

	if missing := req.RequiredFeatures &^ available; missing != 0 {
		log.Warn("rine: adapter lacks required features",
			"adapter", adapter.Info().Name, "missing", fmt.Sprintf("%#x", uint64(missing)))
	}

	caps := adapter.DownlevelCapabilities()
	if missing := req.Downlevel.Flags &^ caps.Flags; missing != 0 {
		log.Warn("rine: adapter lacks required downlevel capabilities",
			"adapter", adapter.Info().Name, "missing", missing.String())
	}
	if caps.ShaderModel < req.Downlevel.ShaderModel {
		log.Warn("rine: adapter shader model too low",
			"have", caps.ShaderModel, "want", req.Downlevel.ShaderModel)
	}

	limits := req.Limits
	if adapterLimits := adapter.Limits(); adapterLimits.MaxTextureDimension2D > limits.MaxTextureDimension2D {
		limits.MaxTextureDimension2D = adapterLimits.MaxTextureDimension2D
	} else if adapterLimits.MaxTextureDimension2D < limits.MaxTextureDimension2D {
		log.Warn("rine: adapter texture dimension below request",
			"have", adapterLimits.MaxTextureDimension2D, "want", limits.MaxTextureDimension2D)
	}

	return DeviceDescriptor{
		Label:    label,
		Features: (req.OptionalFeatures & available) | req.RequiredFeatures,
		Limits:   limits,
	}
}

// logAdapter reports the selected adapter and its downlevel support.
func logAdapter(log *slog.Logger, adapter Adapter) {
	info := adapter.Info()
	caps := adapter.DownlevelCapabilities()
	log.Info("rine: adapter selected",
		"name", info.Name,
		"vendor", info.Vendor,
		"driver", info.Driver,
		"type", info.DeviceType,
		"backend", info.Backend)
	log.Debug("rine: adapter downlevel capabilities",
		"flags", caps.Flags.String(), "shader_model", caps.ShaderModel)
}
