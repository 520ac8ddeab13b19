// Package material describes how geometry is shaded: the shaders, fixed-function state and per-binding
// values a draw uses. Materials are pure CPU-side descriptions; the renderer derives pipeline states and
// GPU resources from them.
package material

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/lifecycle"
	"github.com/Carmen-Shannon/keel/engine/renderer/buffer_writer"
	"github.com/Carmen-Shannon/keel/engine/renderer/gpu"
	"github.com/Carmen-Shannon/keel/engine/renderer/shader"
	"github.com/Carmen-Shannon/keel/engine/renderer/texture"
	"github.com/Carmen-Shannon/keel/engine/versioned"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderingMode selects how a geometry's indices are turned into primitives.
type RenderingMode int

const (
	// RenderingModeTriangleList draws every three indices as a filled triangle.
	RenderingModeTriangleList RenderingMode = iota
	// RenderingModeLineList draws every two indices as a line segment.
	RenderingModeLineList
	// RenderingModePointList draws every index as a screen-aligned square of pointSize pixels.
	RenderingModePointList
	// RenderingModeTriangleLines draws the edges of every triangle as lines (wireframe).
	RenderingModeTriangleLines
)

func (m RenderingMode) String() string {
	switch m {
	case RenderingModeTriangleList:
		return "triangle-list"
	case RenderingModeLineList:
		return "line-list"
	case RenderingModePointList:
		return "point-list"
	case RenderingModeTriangleLines:
		return "triangle-lines"
	default:
		return fmt.Sprintf("rendering-mode(%d)", int(m))
	}
}

// Topology returns the primitive topology the mode's vertex shader emits.
func (m RenderingMode) Topology() gpu.PrimitiveTopology {
	switch m {
	case RenderingModeLineList, RenderingModeTriangleLines:
		return gpu.PrimitiveTopologyLineList
	default:
		return gpu.PrimitiveTopologyTriangleList
	}
}

// VertexCount returns the number of vertices to draw for a geometry with indexCount indices.
func (m RenderingMode) VertexCount(indexCount int) uint32 {
	switch m {
	case RenderingModePointList:
		return uint32(indexCount) * 6
	case RenderingModeTriangleLines:
		return uint32(indexCount) * 2
	default:
		return uint32(indexCount)
	}
}

// Stage tells the renderer where a material is used.
type Stage int

const (
	// StageScene materials shade meshes in the main pass.
	StageScene Stage = iota
	// StagePostProcess materials draw a full-screen triangle reading the previous pass.
	StagePostProcess
)

// DefaultBlending is straight alpha blending, used unless a material overrides it.
var DefaultBlending = gpu.BlendState{
	Color: gpu.BlendComponent{Operation: gpu.BlendOperationAdd, SrcFactor: gpu.BlendFactorSrcAlpha, DstFactor: gpu.BlendFactorOneMinusSrcAlpha},
	Alpha: gpu.BlendComponent{Operation: gpu.BlendOperationAdd, SrcFactor: gpu.BlendFactorOne, DstFactor: gpu.BlendFactorOneMinusSrcAlpha},
}

// material is the implementation of the Material interface.
type material struct {
	label      string
	stage      Stage
	mode       RenderingMode
	cullMode   gpu.CullMode
	frontFace  gpu.FrontFace
	blend      *gpu.BlendState
	depthTest  bool
	depthWrite bool

	vertex   shader.Shader
	fragment shader.Shader
	layout   shader.Layout

	mu       *sync.Mutex
	state    versioned.Versioned[struct{}]
	uniforms map[string]*Uniform
	textures map[string]texture.Texture
	notifier lifecycle.Notifier
}

// Material is the shading description of a draw.
//
// Fixed-function state (culling, front face, blending, depth) and the shaders form the pipeline state.
// Any change to them increments the material's Version, which tells the renderer to rebuild the cached
// pipeline state. Uniform values and textures are looked up by their WGSL variable name and carry their
// own versions, so changing a value re-uploads only that binding.
type Material interface {
	lifecycle.Observable

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Stage returns whether the material shades meshes or post-processes a pass.
	//
	// Returns:
	//   - Stage: the stage kind
	Stage() Stage

	// RenderingMode returns the primitive mode the material draws with.
	//
	// Returns:
	//   - RenderingMode: the rendering mode
	RenderingMode() RenderingMode

	// CullMode returns the face culling mode.
	//
	// Returns:
	//   - gpu.CullMode: the cull mode
	CullMode() gpu.CullMode

	// FrontFace returns the winding of front faces.
	//
	// Returns:
	//   - gpu.FrontFace: the front face winding
	FrontFace() gpu.FrontFace

	// Blend returns the blend state, or nil for opaque output.
	//
	// Returns:
	//   - *gpu.BlendState: a copy of the blend state or nil
	Blend() *gpu.BlendState

	// Depth returns whether the material tests against and writes to the depth buffer.
	//
	// Returns:
	//   - bool: depth test enabled
	//   - bool: depth write enabled
	Depth() (bool, bool)

	// SetCullMode changes the culling mode and increments the version.
	//
	// Parameters:
	//   - mode: the cull mode
	SetCullMode(mode gpu.CullMode)

	// SetFrontFace changes the front face winding and increments the version.
	//
	// Parameters:
	//   - face: the front face
	SetFrontFace(face gpu.FrontFace)

	// SetBlend changes the blend state and increments the version. nil disables blending.
	//
	// Parameters:
	//   - blend: the blend state or nil
	SetBlend(blend *gpu.BlendState)

	// SetDepth changes depth testing and writing and increments the version.
	//
	// Parameters:
	//   - test: enable depth testing
	//   - write: enable depth writes
	SetDepth(test, write bool)

	// VertexShader returns the vertex stage.
	//
	// Returns:
	//   - shader.Shader: the vertex shader
	VertexShader() shader.Shader

	// FragmentShader returns the fragment stage.
	//
	// Returns:
	//   - shader.Shader: the fragment shader
	FragmentShader() shader.Shader

	// Layout returns the merged binding layout of both stages.
	//
	// Returns:
	//   - shader.Layout: the layout
	Layout() shader.Layout

	// Version returns the pipeline-state version.
	//
	// Returns:
	//   - uint64: the version
	Version() uint64

	// IncrementVersion forces the renderer to rebuild the material's pipeline state.
	IncrementVersion()

	// SetScalar sets a f32 uniform.
	//
	// Parameters:
	//   - name: the uniform's WGSL name
	//   - v: the value
	//
	// Returns:
	//   - error: ErrUnknownBinding, ErrUnsupportedLayout if the binding is not a uniform,
	//     ErrSizeMismatch if its size differs, ErrAlreadyDestroyed after Destroy
	SetScalar(name string, v float32) error

	// SetVec2 sets a vec2<f32> uniform. Errors as SetScalar.
	SetVec2(name string, v mgl32.Vec2) error

	// SetVec3 sets a vec3<f32> uniform. Errors as SetScalar.
	SetVec3(name string, v mgl32.Vec3) error

	// SetVec4 sets a vec4<f32> uniform. Errors as SetScalar.
	SetVec4(name string, v mgl32.Vec4) error

	// SetColor sets a vec4<f32> uniform from a straight-alpha color. Errors as SetScalar.
	SetColor(name string, c common.Color) error

	// SetMat4 sets a mat4x4<f32> uniform. Errors as SetScalar.
	SetMat4(name string, m mgl32.Mat4) error

	// SetTexture binds a texture to a texture binding. A nil texture clears the binding, leaving the
	// renderer's default white texture in place.
	//
	// Parameters:
	//   - name: the texture's WGSL name
	//   - t: the texture or nil
	//
	// Returns:
	//   - error: ErrUnknownBinding, ErrUnsupportedLayout if the binding is not a texture,
	//     ErrAlreadyDestroyed after Destroy
	SetTexture(name string, t texture.Texture) error

	// Uniform returns the value set for a uniform binding.
	//
	// Parameters:
	//   - name: the uniform's WGSL name
	//
	// Returns:
	//   - *Uniform: the value
	//   - bool: false if no value has been set
	Uniform(name string) (*Uniform, bool)

	// Texture returns the texture set for a texture binding.
	//
	// Parameters:
	//   - name: the texture's WGSL name
	//
	// Returns:
	//   - texture.Texture: the texture
	//   - bool: false if no texture has been set
	Texture(name string) (texture.Texture, bool)

	// Base returns the material at the root of any wrapper types such as BasicMaterial. It is the value
	// passed to destroy observers and the identity under which GPU state is cached.
	//
	// Returns:
	//   - Material: the underlying material
	Base() Material

	// Destroy notifies observers so they release the material's GPU state.
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed on a second call
	Destroy() error
}

var _ Material = &material{}

// NewMaterial creates a material around a fragment shader. Unless WithVertexShader is given, the vertex
// shader is the built-in one for the material's stage and rendering mode.
//
// Parameters:
//   - fragment: the fragment shader
//   - options: builder options
//
// Returns:
//   - Material: the material
//   - error: an error if the vertex shader cannot be compiled or the stages' layouts conflict
func NewMaterial(fragment shader.Shader, options ...MaterialBuilderOption) (Material, error) {
	m := &material{
		label:      fragment.Label(),
		frontFace:  gpu.FrontFaceCCW,
		cullMode:   gpu.CullModeNone,
		depthTest:  true,
		depthWrite: true,
		fragment:   fragment,
		mu:         &sync.Mutex{},
		uniforms:   make(map[string]*Uniform),
		textures:   make(map[string]texture.Texture),
	}
	blend := DefaultBlending
	m.blend = &blend
	for _, opt := range options {
		opt(m)
	}
	if m.stage == StagePostProcess {
		m.mode = RenderingModeTriangleList
		m.depthTest, m.depthWrite = false, false
	}

	if m.vertex == nil {
		vs, err := vertexShaderFor(m.stage, m.mode)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", m.label, err)
		}
		m.vertex = vs
	}
	layout, err := shader.Merge(m.vertex, m.fragment)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", m.label, err)
	}
	m.layout = layout
	return m, nil
}

func (m *material) Label() string {
	return m.label
}

func (m *material) Stage() Stage {
	return m.stage
}

func (m *material) RenderingMode() RenderingMode {
	return m.mode
}

func (m *material) CullMode() gpu.CullMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cullMode
}

func (m *material) FrontFace() gpu.FrontFace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frontFace
}

func (m *material) Blend() *gpu.BlendState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blend == nil {
		return nil
	}
	b := *m.blend
	return &b
}

func (m *material) Depth() (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depthTest, m.depthWrite
}

func (m *material) SetCullMode(mode gpu.CullMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cullMode = mode
	m.state.Increment()
}

func (m *material) SetFrontFace(face gpu.FrontFace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frontFace = face
	m.state.Increment()
}

func (m *material) SetBlend(blend *gpu.BlendState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if blend == nil {
		m.blend = nil
	} else {
		b := *blend
		m.blend = &b
	}
	m.state.Increment()
}

func (m *material) SetDepth(test, write bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depthTest, m.depthWrite = test, write
	m.state.Increment()
}

func (m *material) VertexShader() shader.Shader {
	return m.vertex
}

func (m *material) FragmentShader() shader.Shader {
	return m.fragment
}

func (m *material) Layout() shader.Layout {
	return m.layout
}

func (m *material) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Version()
}

func (m *material) IncrementVersion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Increment()
}

func (m *material) SetScalar(name string, v float32) error {
	return m.setUniform(name, buffer_writer.FieldScalar, v)
}

func (m *material) SetVec2(name string, v mgl32.Vec2) error {
	return m.setUniform(name, buffer_writer.FieldVec2, v[:]...)
}

func (m *material) SetVec3(name string, v mgl32.Vec3) error {
	return m.setUniform(name, buffer_writer.FieldVec3, v[:]...)
}

func (m *material) SetVec4(name string, v mgl32.Vec4) error {
	return m.setUniform(name, buffer_writer.FieldVec4, v[:]...)
}

func (m *material) SetColor(name string, c common.Color) error {
	return m.setUniform(name, buffer_writer.FieldColor, c[:]...)
}

func (m *material) SetMat4(name string, v mgl32.Mat4) error {
	return m.setUniform(name, buffer_writer.FieldMat4, v[:]...)
}

func (m *material) SetTexture(name string, t texture.Texture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifier.Destroyed() {
		return fmt.Errorf("material %s: set texture %q: %w", m.label, name, common.ErrAlreadyDestroyed)
	}
	b, err := m.layout.Binding(name)
	if err != nil {
		return fmt.Errorf("material %s: %w", m.label, err)
	}
	if b.Type != gpu.BindingTypeTexture {
		return fmt.Errorf("material %s: %q is a %s binding, not a texture: %w", m.label, name, b.Type, common.ErrUnsupportedLayout)
	}
	if t == nil {
		delete(m.textures, name)
		return nil
	}
	m.textures[name] = t
	return nil
}

func (m *material) Uniform(name string) (*Uniform, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uniforms[name]
	return u, ok
}

func (m *material) Texture(name string) (texture.Texture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.textures[name]
	return t, ok
}

func (m *material) Observe(o lifecycle.DestroyObserver) error {
	return m.notifier.Observe(o)
}

func (m *material) Unobserve(o lifecycle.DestroyObserver) {
	m.notifier.Unobserve(o)
}

func (m *material) Base() Material {
	return m
}

func (m *material) Destroy() error {
	if err := m.notifier.Destroy(m); err != nil {
		return fmt.Errorf("material %s: %w", m.label, err)
	}
	common.Logger().Debug("material destroyed", "label", m.label)
	return nil
}

func (m *material) Destroyed() bool {
	return m.notifier.Destroyed()
}

// setUniform validates a value against the reflected binding and stores it.
func (m *material) setUniform(name string, kind buffer_writer.FieldKind, values ...float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifier.Destroyed() {
		return fmt.Errorf("material %s: set %q: %w", m.label, name, common.ErrAlreadyDestroyed)
	}
	b, err := m.layout.Binding(name)
	if err != nil {
		return fmt.Errorf("material %s: %w", m.label, err)
	}
	if b.Type != gpu.BindingTypeUniform {
		return fmt.Errorf("material %s: %q is a %s binding, not a uniform: %w", m.label, name, b.Type, common.ErrUnsupportedLayout)
	}
	if size := uint64(kind.Floats() * 4); size != b.Size {
		return fmt.Errorf("material %s: %s is %d bytes, %q holds %d: %w", m.label, kind, size, name, b.Size, common.ErrSizeMismatch)
	}

	if u, ok := m.uniforms[name]; ok {
		u.set(kind, values)
		return nil
	}
	m.uniforms[name] = newUniform(kind, values)
	return nil
}
