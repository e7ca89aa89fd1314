package wgpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// GPUInfo contains information about the selected GPU.
type GPUInfo struct {
	// Name is the GPU name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the GPU vendor.
	Vendor string
	// DeviceType is the type of GPU (discrete, integrated, etc.).
	DeviceType gputypes.DeviceType
	// Backend is the graphics API in use (Vulkan, Metal, DX12).
	Backend gputypes.Backend
	// Driver is the driver version string.
	Driver string
}

// String returns a human-readable description of the GPU.
func (g *GPUInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", g.Name, g.DeviceType, g.Backend)
}

// AdapterType maps the device type onto the gpucontext classification.
func (g *GPUInfo) AdapterType() gpucontext.AdapterType {
	switch g.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

func newGPUInfo(info wgpu.AdapterInfo) GPUInfo {
	return GPUInfo{
		Name:       info.Name,
		Vendor:     info.Vendor,
		DeviceType: info.DeviceType,
		Backend:    info.Backend,
		Driver:     info.Driver,
	}
}

// logGPUInfo logs information about the selected GPU.
func logGPUInfo(info GPUInfo, limits wgpu.Limits) {
	slogger().Info("wgpu: adapter selected",
		"gpu", info.String(),
		"vendor", info.Vendor,
		"driver", info.Driver)
	slogger().Debug("wgpu: device limits",
		"maxTextureDimension2D", limits.MaxTextureDimension2D,
		"maxBufferSize", limits.MaxBufferSize)
}

// deviceLimits returns the conservative downlevel limits raised to the
// adapter's texture resolution, so frame textures and the swapchain may be
// as large as the hardware allows.
func deviceLimits(adapter wgpu.Limits) wgpu.Limits {
	limits := gputypes.DownlevelLimits()
	if adapter.MaxTextureDimension1D > limits.MaxTextureDimension1D {
		limits.MaxTextureDimension1D = adapter.MaxTextureDimension1D
	}
	if adapter.MaxTextureDimension2D > limits.MaxTextureDimension2D {
		limits.MaxTextureDimension2D = adapter.MaxTextureDimension2D
	}
	return limits
}
