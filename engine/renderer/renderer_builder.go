package renderer

import (
	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/camera"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithClearColor sets the color the main pass is cleared to. The default is opaque black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingClearColor = &c
	}
}

// WithCamera sets the default camera used when Render is called without one.
//
// Parameters:
//   - cam: the default camera
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(cam camera.Camera) RendererBuilderOption {
	return func(r *renderer) {
		r.camera = cam
	}
}

// WithRenderStages sets the initial post-processing stage chain.
// NewRenderer fails if any stage is not a post-process material.
//
// Parameters:
//   - stages: the post-process materials in render order
//
// Returns:
//   - RendererBuilderOption: a function that applies the render stages option to a renderer
func WithRenderStages(stages ...material.Material) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingStages = stages
	}
}

// WithFrustumCulling enables skipping meshes whose world-space bounds lie outside the camera frustum.
//
// Parameters:
//   - enabled: true to enable frustum culling
//
// Returns:
//   - RendererBuilderOption: a function that applies the frustum culling option to a renderer
func WithFrustumCulling(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.frustumCulling = enabled
	}
}
