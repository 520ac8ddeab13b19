package engine

import (
	"github.com/Carmen-Shannon/keel/engine/renderer"
	"github.com/Carmen-Shannon/keel/engine/renderer/wgpu_backend"
	"github.com/Carmen-Shannon/keel/engine/scene"
	"github.com/Carmen-Shannon/keel/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.tickRate = tickDuration(fps)
	}
}

// WithRenderFrameLimit caps the render frame rate. 0 leaves it uncapped.
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameLimit(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create one with default settings.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRoot sets the scene graph root rendered each frame.
//
// Parameters:
//   - root: the root node
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRoot(root scene.Node) EngineBuilderOption {
	return func(e *engine) {
		e.root = root
	}
}

// WithOrbitControls drives the camera with the mouse: scroll zooms, left drag orbits and middle or right
// drag pans.
//
// Parameters:
//   - enabled: true to enable mouse camera controls
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOrbitControls(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.orbitControls = enabled
	}
}

// WithDeviceOptions forwards options to the WebGPU device.
//
// Parameters:
//   - options: the device options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDeviceOptions(options ...wgpu_backend.DeviceBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.deviceOptions = append(e.deviceOptions, options...)
	}
}

// WithRendererOptions forwards options to the renderer.
//
// Parameters:
//   - options: the renderer options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}
