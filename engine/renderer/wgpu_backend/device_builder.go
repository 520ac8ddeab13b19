package wgpu_backend

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
// The default is PresentModeVSync.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode option to a device
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *device) {
		switch mode {
		case PresentModeUncapped:
			d.presentMode = wgpu.PresentModeImmediate
		default:
			d.presentMode = wgpu.PresentModeFifo
		}
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the force software renderer option to a device
func WithForceSoftwareRenderer(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallbackAdapter = force
	}
}

// WithSurfaceSize sets the initial surface size in pixels. Non-positive sizes are ignored.
//
// Parameters:
//   - width: the surface width
//   - height: the surface height
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface size option to a device
func WithSurfaceSize(width, height int) DeviceBuilderOption {
	return func(d *device) {
		if width > 0 && height > 0 {
			d.width, d.height = width, height
		}
	}
}
