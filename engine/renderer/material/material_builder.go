package material

import (
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/shader"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithLabel is an option builder that sets the debug label of the material.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - MaterialBuilderOption: a function that applies the label option to a material
func WithLabel(label string) MaterialBuilderOption {
	return func(m *material) {
		m.label = label
	}
}

// WithRenderingMode is an option builder that selects the primitive mode. It has no effect on
// post-processing materials, which always draw a full-screen triangle.
//
// Parameters:
//   - mode: the rendering mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the rendering mode option to a material
func WithRenderingMode(mode RenderingMode) MaterialBuilderOption {
	return func(m *material) {
		m.mode = mode
	}
}

// WithCullMode is an option builder that sets the face culling mode. The default is no culling.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the cull mode option to a material
func WithCullMode(mode gpu.CullMode) MaterialBuilderOption {
	return func(m *material) {
		m.cullMode = mode
	}
}

// WithFrontFace is an option builder that sets the front face winding. The default is counter-clockwise.
//
// Parameters:
//   - face: the front face winding
//
// Returns:
//   - MaterialBuilderOption: a function that applies the front face option to a material
func WithFrontFace(face gpu.FrontFace) MaterialBuilderOption {
	return func(m *material) {
		m.frontFace = face
	}
}

// WithBlend is an option builder that sets the blend state. nil produces opaque output.
// The default is DefaultBlending.
//
// Parameters:
//   - blend: the blend state or nil
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blend option to a material
func WithBlend(blend *gpu.BlendState) MaterialBuilderOption {
	return func(m *material) {
		if blend == nil {
			m.blend = nil
			return
		}
		b := *blend
		m.blend = &b
	}
}

// WithDepth is an option builder that sets depth testing and writing. Both default to true for scene
// materials and are always disabled for post-processing materials.
//
// Parameters:
//   - test: enable depth testing
//   - write: enable depth writes
//
// Returns:
//   - MaterialBuilderOption: a function that applies the depth option to a material
func WithDepth(test, write bool) MaterialBuilderOption {
	return func(m *material) {
		m.depthTest, m.depthWrite = test, write
	}
}

// WithPostProcess is an option builder that turns the material into a post-processing stage. Its
// fragment shader must read the previous pass through the sourceTexture and sourceSampler bindings
// (include the "stage" chunk).
//
// Returns:
//   - MaterialBuilderOption: a function that applies the post-process option to a material
func WithPostProcess() MaterialBuilderOption {
	return func(m *material) {
		m.stage = StagePostProcess
	}
}

// WithVertexShader is an option builder that replaces the built-in vertex shader.
//
// Parameters:
//   - vs: the vertex shader
//
// Returns:
//   - MaterialBuilderOption: a function that applies the vertex shader option to a material
func WithVertexShader(vs shader.Shader) MaterialBuilderOption {
	return func(m *material) {
		m.vertex = vs
	}
}
